package autoscaler

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
)

// BuildContainer returns the autoscaler sidecar a consumer adds to the head pod of an
// autoscaling cluster, with the declared autoscalerOptions merged in.
func BuildContainer(cluster *rayv1.RayCluster) (corev1.Container, error) {
	if !rayv1.IsAutoscalingEnabled(&cluster.Spec) {
		return corev1.Container{}, fmt.Errorf("Ray cluster %s does not enable in-tree autoscaling", cluster.Name)
	}
	effective, err := Resolve(cluster)
	if err != nil {
		return corev1.Container{}, err
	}

	container := baseContainer(effective.Image)
	mergeOverrides(&container, effective)
	return container, nil
}

func baseContainer(image string) corev1.Container {
	return corev1.Container{
		Name:            ContainerName,
		Image:           image,
		ImagePullPolicy: DefaultImagePullPolicy,
		Env: []corev1.EnvVar{
			{
				Name: "RAY_CLUSTER_NAME",
				ValueFrom: &corev1.EnvVarSource{
					FieldRef: &corev1.ObjectFieldSelector{
						FieldPath: fmt.Sprintf("metadata.labels['%s']", RayClusterLabelKey),
					},
				},
			},
			{
				Name: "RAY_CLUSTER_NAMESPACE",
				ValueFrom: &corev1.EnvVarSource{
					FieldRef: &corev1.ObjectFieldSelector{
						FieldPath: "metadata.namespace",
					},
				},
			},
			{
				Name: "RAY_HEAD_POD_NAME",
				ValueFrom: &corev1.EnvVarSource{
					FieldRef: &corev1.ObjectFieldSelector{
						FieldPath: "metadata.name",
					},
				},
			},
			{
				Name:  "KUBERAY_CRD_VER",
				Value: rayv1.GroupVersion.Version,
			},
		},
		Command: []string{"/bin/bash", "-lc", "--"},
		Args: []string{
			"ray kuberay-autoscaler --cluster-name $(RAY_CLUSTER_NAME) --cluster-namespace $(RAY_CLUSTER_NAMESPACE)",
		},
		Resources: DefaultResources(),
	}
}

// mergeOverrides applies the resolved options. Env, envFrom and volumeMounts are appended
// after the built-in ones; the rest replace them.
func mergeOverrides(container *corev1.Container, effective *Effective) {
	container.Resources = effective.Resources
	container.Image = effective.Image
	container.ImagePullPolicy = effective.ImagePullPolicy
	if len(effective.Env) > 0 {
		container.Env = append(container.Env, effective.Env...)
	}
	if len(effective.EnvFrom) > 0 {
		container.EnvFrom = append(container.EnvFrom, effective.EnvFrom...)
	}
	if len(effective.VolumeMounts) > 0 {
		container.VolumeMounts = append(container.VolumeMounts, effective.VolumeMounts...)
	}
	if effective.SecurityContext != nil {
		container.SecurityContext = effective.SecurityContext.DeepCopy()
	}
}
