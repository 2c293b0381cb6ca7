package autoscaler

import (
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
)

const (
	ContainerName = "autoscaler"

	// RayClusterLabelKey is the label KubeRay puts on every pod of a cluster.
	RayClusterLabelKey = "ray.io/cluster"

	DefaultUpscalingMode      = rayv1.UpscalingModeDefault
	DefaultIdleTimeoutSeconds = int32(60)
	DefaultImagePullPolicy    = corev1.PullIfNotPresent
	DefaultCPU                = "500m"
	DefaultMemory             = "512Mi"
)

// DefaultResources are the requests and limits of the autoscaler container when none are declared.
func DefaultResources() corev1.ResourceRequirements {
	return corev1.ResourceRequirements{
		Limits: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(DefaultCPU),
			corev1.ResourceMemory: resource.MustParse(DefaultMemory),
		},
		Requests: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(DefaultCPU),
			corev1.ResourceMemory: resource.MustParse(DefaultMemory),
		},
	}
}

// Effective is what the Ray autoscaler of a cluster runs with once declared options are
// merged over the defaults.
type Effective struct {
	Enabled            bool                        `json:"enabled"`
	UpscalingMode      rayv1.UpscalingMode         `json:"upscalingMode"`
	IdleTimeoutSeconds int32                       `json:"idleTimeoutSeconds"`
	Image              string                      `json:"image"`
	ImagePullPolicy    corev1.PullPolicy           `json:"imagePullPolicy"`
	Resources          corev1.ResourceRequirements `json:"resources"`
	SecurityContext    *corev1.SecurityContext     `json:"securityContext,omitempty"`
	Env                []corev1.EnvVar             `json:"env,omitempty"`
	EnvFrom            []corev1.EnvFromSource      `json:"envFrom,omitempty"`
	VolumeMounts       []corev1.VolumeMount        `json:"volumeMounts,omitempty"`
	// Defaulted lists the options that were not declared and fell back to a default.
	Defaulted []string `json:"defaulted,omitempty"`
}

func (e *Effective) IdleTimeout() time.Duration {
	return time.Duration(e.IdleTimeoutSeconds) * time.Second
}

// Resolve returns the effective autoscaler options of a cluster. The autoscaler image defaults
// to the image of the head's Ray container, so the head template must declare one.
func Resolve(cluster *rayv1.RayCluster) (*Effective, error) {
	headContainers := cluster.Spec.HeadGroupSpec.Template.Spec.Containers
	if len(headContainers) <= rayv1.RayContainerIndex {
		return nil, fmt.Errorf("Ray cluster %s has no head container to derive the autoscaler image from", cluster.Name)
	}

	effective := &Effective{
		Enabled:            rayv1.IsAutoscalingEnabled(&cluster.Spec),
		UpscalingMode:      DefaultUpscalingMode,
		IdleTimeoutSeconds: DefaultIdleTimeoutSeconds,
		Image:              headContainers[rayv1.RayContainerIndex].Image,
		ImagePullPolicy:    DefaultImagePullPolicy,
		Resources:          DefaultResources(),
	}

	options := cluster.Spec.AutoscalerOptions
	if options == nil {
		options = &rayv1.AutoscalerOptions{}
	}
	if options.UpscalingMode != nil {
		effective.UpscalingMode = *options.UpscalingMode
	} else {
		effective.Defaulted = append(effective.Defaulted, "upscalingMode")
	}
	if options.IdleTimeoutSeconds != nil {
		effective.IdleTimeoutSeconds = *options.IdleTimeoutSeconds
	} else {
		effective.Defaulted = append(effective.Defaulted, "idleTimeoutSeconds")
	}
	if options.Image != nil {
		effective.Image = *options.Image
	} else {
		effective.Defaulted = append(effective.Defaulted, "image")
	}
	if options.ImagePullPolicy != nil {
		effective.ImagePullPolicy = *options.ImagePullPolicy
	} else {
		effective.Defaulted = append(effective.Defaulted, "imagePullPolicy")
	}
	if options.Resources != nil {
		effective.Resources = *options.Resources.DeepCopy()
	} else {
		effective.Defaulted = append(effective.Defaulted, "resources")
	}
	if options.SecurityContext != nil {
		effective.SecurityContext = options.SecurityContext.DeepCopy()
	}
	for i := range options.Env {
		effective.Env = append(effective.Env, *options.Env[i].DeepCopy())
	}
	for i := range options.EnvFrom {
		effective.EnvFrom = append(effective.EnvFrom, *options.EnvFrom[i].DeepCopy())
	}
	for i := range options.VolumeMounts {
		effective.VolumeMounts = append(effective.VolumeMounts, *options.VolumeMounts[i].DeepCopy())
	}
	return effective, nil
}
