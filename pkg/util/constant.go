package util

const (
	RayVersion = "2.41.0"
	RayImage   = "rayproject/ray:" + RayVersion

	RayClusterLabelKey   = "ray.io/cluster"
	RayIsRayNodeLabelKey = "ray.io/is-ray-node"
	RayNodeGroupLabelKey = "ray.io/group"
	RayNodeTypeLabelKey  = "ray.io/node-type"

	ResourceNvidiaGPU = "nvidia.com/gpu"

	DefaultHeadCPU        = "1"
	DefaultHeadMemory     = "2G"
	DefaultHeadGPU        = "0"
	DefaultWorkerGroup    = "small-group"
	DefaultWorkerReplicas = int32(1)
	DefaultWorkerCPU      = "1"
	DefaultWorkerMemory   = "1G"
	DefaultWorkerGPU      = "0"
	DefaultPreStopCommand = "/bin/sh -c 'ray stop'"

	// Image and resources of the init container that waits for the head service.
	WaitForHeadImage  = "busybox:1.28"
	WaitForHeadCPU    = "100m"
	WaitForHeadMemory = "64Mi"

	// Head ports every generated cluster exposes.
	GCSServerPort = 6379
	DashboardPort = 8265
	ClientPort    = 10001
)
