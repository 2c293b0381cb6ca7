package manifest

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/yaml"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
)

// Encode renders a RayCluster declaration as YAML.
func Encode(cluster *rayv1.RayCluster) ([]byte, error) {
	obj, err := ToDeclaration(cluster)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(obj.Object)
}

// ToDeclaration converts a RayCluster to unstructured form without status and server populated
// metadata, so the result can be applied as is.
func ToDeclaration(cluster *rayv1.RayCluster) (*unstructured.Unstructured, error) {
	obj, err := ToUnstructured(cluster)
	if err != nil {
		return nil, err
	}
	unstructured.RemoveNestedField(obj.Object, "status")
	for _, field := range []string{"creationTimestamp", "resourceVersion", "uid", "generation", "managedFields"} {
		unstructured.RemoveNestedField(obj.Object, "metadata", field)
	}

	// Pod templates carry a null creationTimestamp after conversion.
	unstructured.RemoveNestedField(obj.Object, "spec", "headGroupSpec", "template", "metadata", "creationTimestamp")
	groups, found, err := unstructured.NestedSlice(obj.Object, "spec", "workerGroupSpecs")
	if err != nil || !found {
		return obj, err
	}
	for _, group := range groups {
		if groupMap, ok := group.(map[string]interface{}); ok {
			unstructured.RemoveNestedField(groupMap, "template", "metadata", "creationTimestamp")
		}
	}
	if err := unstructured.SetNestedSlice(obj.Object, groups, "spec", "workerGroupSpecs"); err != nil {
		return nil, err
	}
	return obj, nil
}

// ToUnstructured converts a RayCluster to its unstructured form with apiVersion and kind set.
func ToUnstructured(cluster *rayv1.RayCluster) (*unstructured.Unstructured, error) {
	copied := cluster.DeepCopy()
	copied.APIVersion = rayv1.GroupVersion.String()
	copied.Kind = rayv1.RayClusterKind

	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(copied)
	if err != nil {
		return nil, err
	}
	return &unstructured.Unstructured{Object: content}, nil
}

// FromUnstructured converts an unstructured object back to a typed RayCluster.
func FromUnstructured(obj *unstructured.Unstructured) (*rayv1.RayCluster, error) {
	cluster := &rayv1.RayCluster{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.UnstructuredContent(), cluster); err != nil {
		return nil, err
	}
	return cluster, nil
}
