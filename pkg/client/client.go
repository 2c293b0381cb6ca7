package client

import (
	"context"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/manifest"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/util"
)

// operatorLabelSelector matches KubeRay operator deployments installed with the Helm chart or Kustomize.
const operatorLabelSelector = "app.kubernetes.io/name in (kuberay-operator,kuberay)"

type Client interface {
	KubernetesClient() kubernetes.Interface
	DynamicClient() dynamic.Interface
	// GetKubeRayOperatorVersion returns the image tag of the first KubeRay operator deployment found.
	GetKubeRayOperatorVersion(ctx context.Context) (string, error)
	GetRayCluster(ctx context.Context, namespace, name string) (*rayv1.RayCluster, error)
	// ApplyRayCluster creates the RayCluster or replaces the spec of an existing one, merging the
	// declared labels and annotations into the live ones. It reports whether the object was created.
	ApplyRayCluster(ctx context.Context, cluster *rayv1.RayCluster, opts ApplyOptions) (*rayv1.RayCluster, bool, error)
	UpdateRayCluster(ctx context.Context, cluster *rayv1.RayCluster, opts ApplyOptions) (*rayv1.RayCluster, error)
}

// ApplyOptions are passed through to the API server on writes.
type ApplyOptions struct {
	FieldManager string
	DryRun       bool
}

func (o ApplyOptions) dryRun() []string {
	if o.DryRun {
		return []string{metav1.DryRunAll}
	}
	return nil
}

type k8sClient struct {
	kubeClient    kubernetes.Interface
	dynamicClient dynamic.Interface
}

func NewClient(factory cmdutil.Factory) (Client, error) {
	kubeClient, err := factory.KubernetesClientSet()
	if err != nil {
		return nil, err
	}
	dynamicClient, err := factory.DynamicClient()
	if err != nil {
		return nil, err
	}
	return &k8sClient{
		kubeClient:    kubeClient,
		dynamicClient: dynamicClient,
	}, nil
}

func NewClientForTesting(kubeClient kubernetes.Interface, dynamicClient dynamic.Interface) Client {
	return &k8sClient{
		kubeClient:    kubeClient,
		dynamicClient: dynamicClient,
	}
}

func (c *k8sClient) KubernetesClient() kubernetes.Interface {
	return c.kubeClient
}

func (c *k8sClient) DynamicClient() dynamic.Interface {
	return c.dynamicClient
}

func (c *k8sClient) GetKubeRayOperatorVersion(ctx context.Context) (string, error) {
	deployments, err := c.kubeClient.AppsV1().Deployments("").List(ctx, metav1.ListOptions{
		LabelSelector: operatorLabelSelector,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list KubeRay operator deployments: %w", err)
	}
	if len(deployments.Items) == 0 {
		return "", fmt.Errorf("no KubeRay operator deployments found in any namespace")
	}

	containers := deployments.Items[0].Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return "", fmt.Errorf("no containers found in KubeRay operator deployment %s", deployments.Items[0].Name)
	}
	image := containers[0].Image
	if i := strings.LastIndex(image, ":"); i >= 0 && !strings.Contains(image[i:], "/") {
		return image[i+1:], nil
	}
	return "", fmt.Errorf("unable to parse the version of KubeRay operator image %s", image)
}

func (c *k8sClient) GetRayCluster(ctx context.Context, namespace, name string) (*rayv1.RayCluster, error) {
	obj, err := c.dynamicClient.Resource(util.RayClusterGVR).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("unable to get RayCluster %s/%s: %w", namespace, name, err)
	}
	return manifest.FromUnstructured(obj)
}

func (c *k8sClient) ApplyRayCluster(ctx context.Context, cluster *rayv1.RayCluster, opts ApplyOptions) (*rayv1.RayCluster, bool, error) {
	existing, err := c.dynamicClient.Resource(util.RayClusterGVR).Namespace(cluster.Namespace).Get(ctx, cluster.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		obj, err := manifest.ToDeclaration(cluster)
		if err != nil {
			return nil, false, err
		}
		created, err := c.dynamicClient.Resource(util.RayClusterGVR).Namespace(cluster.Namespace).Create(ctx, obj, metav1.CreateOptions{
			FieldManager: opts.FieldManager,
			DryRun:       opts.dryRun(),
		})
		if err != nil {
			return nil, false, fmt.Errorf("unable to create RayCluster: %w", err)
		}
		result, err := manifest.FromUnstructured(created)
		return result, true, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("unable to get RayCluster %s/%s: %w", cluster.Namespace, cluster.Name, err)
	}

	// Only the declared spec, labels and annotations are applied. Finalizers, owner references
	// and metadata set by other writers stay on the live object.
	live, err := manifest.FromUnstructured(existing)
	if err != nil {
		return nil, false, err
	}
	live.Spec = *cluster.Spec.DeepCopy()
	live.Labels = mergeStringMaps(live.Labels, cluster.Labels)
	live.Annotations = mergeStringMaps(live.Annotations, cluster.Annotations)
	result, err := c.UpdateRayCluster(ctx, live, opts)
	return result, false, err
}

// mergeStringMaps returns live with the declared entries set on top.
func mergeStringMaps(live, declared map[string]string) map[string]string {
	if len(declared) == 0 {
		return live
	}
	merged := make(map[string]string, len(live)+len(declared))
	for key, value := range live {
		merged[key] = value
	}
	for key, value := range declared {
		merged[key] = value
	}
	return merged
}

func (c *k8sClient) UpdateRayCluster(ctx context.Context, cluster *rayv1.RayCluster, opts ApplyOptions) (*rayv1.RayCluster, error) {
	obj, err := manifest.ToDeclaration(cluster)
	if err != nil {
		return nil, err
	}
	// The declaration drops server populated metadata, the resource version guards against lost updates.
	if cluster.ResourceVersion != "" {
		obj.SetResourceVersion(cluster.ResourceVersion)
	}
	updated, err := c.dynamicClient.Resource(util.RayClusterGVR).Namespace(cluster.Namespace).Update(ctx, obj, metav1.UpdateOptions{
		FieldManager: opts.FieldManager,
		DryRun:       opts.dryRun(),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to update RayCluster %s/%s: %w", cluster.Namespace, cluster.Name, err)
	}
	return manifest.FromUnstructured(updated)
}
