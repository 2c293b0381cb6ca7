package summary

import (
	corev1 "k8s.io/api/core/v1"
	quotav1 "k8s.io/apiserver/pkg/quota/v1"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
)

// GroupRow summarizes one worker group.
type GroupRow struct {
	Name             string
	MinReplicas      int32
	Replicas         int32
	MaxReplicas      int32
	NumOfHosts       int32
	PendingDeletions int
	// PodRequests are the resources one worker pod requests.
	PodRequests corev1.ResourceList
}

// Summary is the resource footprint of a RayCluster at its minimum, desired and maximum size.
type Summary struct {
	Name         string
	Namespace    string
	RayVersion   string
	Autoscaling  bool
	HeadRequests corev1.ResourceList
	Groups       []GroupRow

	AtMin     corev1.ResourceList
	AtDesired corev1.ResourceList
	AtMax     corev1.ResourceList
	// MaxUnbounded is set when a worker group leaves maxReplicas unset.
	MaxUnbounded bool
}

// PodRequests returns what a pod built from spec requests: the sum over its containers, or the
// largest init container request when that is higher.
func PodRequests(spec *corev1.PodSpec) corev1.ResourceList {
	requests := corev1.ResourceList{}
	for _, container := range spec.Containers {
		requests = quotav1.Add(requests, container.Resources.Requests)
	}
	for _, container := range spec.InitContainers {
		requests = quotav1.Max(requests, container.Resources.Requests)
	}
	return requests
}

// Multiply returns list scaled by n. Quantities are added by doubling so that large replica
// counts do not overflow.
func Multiply(list corev1.ResourceList, n int64) corev1.ResourceList {
	result := corev1.ResourceList{}
	power := list.DeepCopy()
	for n > 0 {
		if n&1 == 1 {
			result = quotav1.Add(result, power)
		}
		n >>= 1
		if n > 0 {
			power = quotav1.Add(power, power)
		}
	}
	return result
}

func Summarize(cluster *rayv1.RayCluster) *Summary {
	summary := &Summary{
		Name:         cluster.Name,
		Namespace:    cluster.Namespace,
		RayVersion:   cluster.Spec.RayVersion,
		Autoscaling:  rayv1.IsAutoscalingEnabled(&cluster.Spec),
		HeadRequests: PodRequests(&cluster.Spec.HeadGroupSpec.Template.Spec),
	}

	summary.AtMin = summary.HeadRequests.DeepCopy()
	summary.AtDesired = summary.HeadRequests.DeepCopy()
	summary.AtMax = summary.HeadRequests.DeepCopy()

	for i := range cluster.Spec.WorkerGroupSpecs {
		group := &cluster.Spec.WorkerGroupSpecs[i]
		minReplicas, replicas, maxReplicas := group.EffectiveBounds()
		hosts := group.NumOfHosts
		if hosts < 1 {
			hosts = 1
		}

		row := GroupRow{
			Name:             group.GroupName,
			MinReplicas:      minReplicas,
			Replicas:         replicas,
			MaxReplicas:      maxReplicas,
			NumOfHosts:       hosts,
			PendingDeletions: len(group.ScaleStrategy.WorkersToDelete),
			PodRequests:      PodRequests(&group.Template.Spec),
		}
		summary.Groups = append(summary.Groups, row)

		if group.MaxReplicas == nil {
			summary.MaxUnbounded = true
		}
		summary.AtMin = quotav1.Add(summary.AtMin, Multiply(row.PodRequests, int64(minReplicas)*int64(hosts)))
		summary.AtDesired = quotav1.Add(summary.AtDesired, Multiply(row.PodRequests, int64(replicas)*int64(hosts)))
		summary.AtMax = quotav1.Add(summary.AtMax, Multiply(row.PodRequests, int64(maxReplicas)*int64(hosts)))
	}
	return summary
}

// TotalWorkers returns the number of worker pods at minimum, desired and maximum size.
func (s *Summary) TotalWorkers() (atMin, atDesired, atMax int64) {
	for _, row := range s.Groups {
		atMin += int64(row.MinReplicas) * int64(row.NumOfHosts)
		atDesired += int64(row.Replicas) * int64(row.NumOfHosts)
		atMax += int64(row.MaxReplicas) * int64(row.NumOfHosts)
	}
	return atMin, atDesired, atMax
}
