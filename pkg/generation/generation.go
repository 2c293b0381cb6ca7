package generation

import (
	"fmt"
	"maps"

	"github.com/google/shlex"
	"gopkg.in/yaml.v2"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/autoscaler"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/manifest"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/util"
)

type AutoscalerSpecObject struct {
	UpscalingMode      string
	IdleTimeoutSeconds int32
}

type RayClusterSpecObject struct {
	RayVersion                        string
	Image                             string
	HeadCPU                           string
	HeadMemory                        string
	HeadGPU                           string
	HeadRayStartParams                map[string]string
	HeadServiceType                   string
	WorkerGrpName                     string
	WorkerCPU                         string
	WorkerMemory                      string
	WorkerGPU                         string
	WorkerRayStartParams              map[string]string
	HeadLifecyclePrestopExecCommand   []string
	WorkerLifecyclePrestopExecCommand []string
	WorkerReplicas                    int32
	WorkerMinReplicas                 *int32
	WorkerMaxReplicas                 *int32
	// Autoscaler enables in-tree autoscaling when set.
	Autoscaler *AutoscalerSpecObject
	// WaitForHead adds an init container to workers that blocks until the head service resolves.
	WaitForHead bool
}

type RayClusterYamlObject struct {
	ClusterName string
	Namespace   string
	Labels      map[string]string
	Annotations map[string]string
	RayClusterSpecObject
}

// Validate checks the values that GenerateRayCluster parses.
func (rayClusterSpecObject *RayClusterSpecObject) Validate() error {
	for _, quantity := range [][2]string{
		{rayClusterSpecObject.HeadCPU, "head-cpu"},
		{rayClusterSpecObject.HeadMemory, "head-memory"},
		{rayClusterSpecObject.HeadGPU, "head-gpu"},
		{rayClusterSpecObject.WorkerCPU, "worker-cpu"},
		{rayClusterSpecObject.WorkerMemory, "worker-memory"},
		{rayClusterSpecObject.WorkerGPU, "worker-gpu"},
	} {
		if err := util.ValidateResourceQuantity(quantity[0], quantity[1]); err != nil {
			return err
		}
	}
	if rayClusterSpecObject.HeadCPU == "" || rayClusterSpecObject.HeadMemory == "" ||
		rayClusterSpecObject.WorkerCPU == "" || rayClusterSpecObject.WorkerMemory == "" {
		return fmt.Errorf("cpu and memory must be set for the head and the workers")
	}
	if rayClusterSpecObject.WorkerGrpName == "" {
		return fmt.Errorf("worker group name must not be empty")
	}
	return nil
}

// ParsePreStopCommand splits a preStop hook given as one shell-style string into its arguments.
func ParsePreStopCommand(command string) ([]string, error) {
	if command == "" {
		return nil, nil
	}
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("failed to parse preStop command %q: %w", command, err)
	}
	return args, nil
}

func (rayClusterObject *RayClusterYamlObject) GenerateRayCluster() *rayv1.RayCluster {
	rayCluster := &rayv1.RayCluster{
		TypeMeta: metav1.TypeMeta{
			APIVersion: rayv1.GroupVersion.String(),
			Kind:       rayv1.RayClusterKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:        rayClusterObject.ClusterName,
			Namespace:   rayClusterObject.Namespace,
			Labels:      maps.Clone(rayClusterObject.Labels),
			Annotations: maps.Clone(rayClusterObject.Annotations),
		},
		Spec: rayClusterObject.generateRayClusterSpec(rayClusterObject.ClusterName),
	}
	return rayCluster
}

func (rayClusterSpecObject *RayClusterSpecObject) generateRayClusterSpec(clusterName string) rayv1.RayClusterSpec {
	headRayStartParams := map[string]string{
		"dashboard-host": "0.0.0.0",
		"block":          "true",
	}
	maps.Copy(headRayStartParams, rayClusterSpecObject.HeadRayStartParams)

	workerRayStartParams := map[string]string{}
	maps.Copy(workerRayStartParams, rayClusterSpecObject.WorkerRayStartParams)

	headContainer := corev1.Container{
		Name:      "ray-head",
		Image:     rayClusterSpecObject.Image,
		Resources: equalRequestsAndLimits(rayClusterSpecObject.HeadCPU, rayClusterSpecObject.HeadMemory, rayClusterSpecObject.HeadGPU),
		Ports: []corev1.ContainerPort{
			{ContainerPort: util.GCSServerPort, Name: "gcs-server"},
			{ContainerPort: util.DashboardPort, Name: "dashboard"},
			{ContainerPort: util.ClientPort, Name: "client"},
		},
		Lifecycle: preStopLifecycle(rayClusterSpecObject.HeadLifecyclePrestopExecCommand),
	}
	workerContainer := corev1.Container{
		Name:      "ray-worker",
		Image:     rayClusterSpecObject.Image,
		Resources: equalRequestsAndLimits(rayClusterSpecObject.WorkerCPU, rayClusterSpecObject.WorkerMemory, rayClusterSpecObject.WorkerGPU),
		Lifecycle: preStopLifecycle(rayClusterSpecObject.WorkerLifecyclePrestopExecCommand),
	}

	workerGroup := rayv1.WorkerGroupSpec{
		GroupName:      rayClusterSpecObject.WorkerGrpName,
		Replicas:       ptr.To(rayClusterSpecObject.WorkerReplicas),
		MinReplicas:    rayClusterSpecObject.WorkerMinReplicas,
		MaxReplicas:    rayClusterSpecObject.WorkerMaxReplicas,
		RayStartParams: workerRayStartParams,
		Template: corev1.PodTemplateSpec{
			Spec: corev1.PodSpec{Containers: []corev1.Container{workerContainer}},
		},
	}
	if rayClusterSpecObject.WaitForHead {
		workerGroup.Template.Spec.InitContainers = []corev1.Container{waitForHeadContainer(clusterName)}
	}

	spec := rayv1.RayClusterSpec{
		RayVersion: rayClusterSpecObject.RayVersion,
		HeadGroupSpec: rayv1.HeadGroupSpec{
			ServiceType:    corev1.ServiceType(rayClusterSpecObject.HeadServiceType),
			RayStartParams: headRayStartParams,
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{Containers: []corev1.Container{headContainer}},
			},
		},
		WorkerGroupSpecs: []rayv1.WorkerGroupSpec{workerGroup},
	}

	if options := rayClusterSpecObject.Autoscaler; options != nil {
		spec.EnableInTreeAutoscaling = ptr.To(true)
		resources := autoscaler.DefaultResources()
		spec.AutoscalerOptions = &rayv1.AutoscalerOptions{
			UpscalingMode:      ptr.To(rayv1.UpscalingMode(options.UpscalingMode)),
			IdleTimeoutSeconds: ptr.To(options.IdleTimeoutSeconds),
			ImagePullPolicy:    ptr.To(autoscaler.DefaultImagePullPolicy),
			Resources:          &resources,
		}
	}
	return spec
}

func equalRequestsAndLimits(cpu, memory, gpu string) corev1.ResourceRequirements {
	list := corev1.ResourceList{
		corev1.ResourceCPU:    resource.MustParse(cpu),
		corev1.ResourceMemory: resource.MustParse(memory),
	}
	if gpu != "" {
		if quantity := resource.MustParse(gpu); !quantity.IsZero() {
			list[corev1.ResourceName(util.ResourceNvidiaGPU)] = quantity
		}
	}
	return corev1.ResourceRequirements{Requests: list, Limits: list.DeepCopy()}
}

// Lifecycle cannot be empty, an empty lifecycle will stop pod startup so it is only set with a command.
func preStopLifecycle(command []string) *corev1.Lifecycle {
	if len(command) == 0 {
		return nil
	}
	return &corev1.Lifecycle{
		PreStop: &corev1.LifecycleHandler{
			Exec: &corev1.ExecAction{Command: append([]string(nil), command...)},
		},
	}
}

func waitForHeadContainer(clusterName string) corev1.Container {
	return corev1.Container{
		Name:  "init",
		Image: util.WaitForHeadImage,
		Command: []string{
			"sh", "-c",
			"until nslookup $RAY_IP.$(cat /var/run/secrets/kubernetes.io/serviceaccount/namespace).svc.cluster.local; do echo waiting for K8s Service $RAY_IP; sleep 2; done",
		},
		Env: []corev1.EnvVar{
			{Name: "RAY_IP", Value: clusterName + "-head-svc"},
		},
		Resources: equalRequestsAndLimits(util.WaitForHeadCPU, util.WaitForHeadMemory, ""),
	}
}

// Converts a RayCluster object into a yaml string
func ConvertRayClusterToYaml(rayCluster *rayv1.RayCluster) (string, error) {
	obj, err := manifest.ToDeclaration(rayCluster)
	if err != nil {
		return "", err
	}

	clusterByte, err := yaml.Marshal(obj.Object)
	if err != nil {
		return "", err
	}

	return string(clusterByte), nil
}
