package v1

// In KubeRay, the Ray container must be the first application container in a head or worker Pod.
const RayContainerIndex = 0

const (
	// Kind and resource names of the RayCluster custom resource.
	RayClusterKind     = "RayCluster"
	RayClusterListKind = "RayClusterList"
	RayClusterResource = "rayclusters"
)

// Default replica bounds a consumer assumes when a worker group leaves them unset.
const (
	DefaultWorkerMinReplicas int32 = 0
	DefaultWorkerMaxReplicas int32 = 2147483647
)
