package v1

import corev1 "k8s.io/api/core/v1"

func EnvVarExists(envName string, envVars []corev1.EnvVar) bool {
	for _, env := range envVars {
		if env.Name == envName {
			return true
		}
	}
	return false
}

// IsAutoscalingEnabled reports whether the in-tree autoscaler sidecar is requested.
func IsAutoscalingEnabled(spec *RayClusterSpec) bool {
	return spec != nil && spec.EnableInTreeAutoscaling != nil && *spec.EnableInTreeAutoscaling
}

// EffectiveBounds returns the replica bounds of a worker group with unset fields
// resolved the way KubeRay resolves them: minReplicas defaults to 0, maxReplicas
// to maxInt32, and replicas to minReplicas.
func (w *WorkerGroupSpec) EffectiveBounds() (minReplicas, replicas, maxReplicas int32) {
	minReplicas = DefaultWorkerMinReplicas
	if w.MinReplicas != nil {
		minReplicas = *w.MinReplicas
	}
	maxReplicas = DefaultWorkerMaxReplicas
	if w.MaxReplicas != nil {
		maxReplicas = *w.MaxReplicas
	}
	replicas = minReplicas
	if w.Replicas != nil {
		replicas = *w.Replicas
	}
	return minReplicas, replicas, maxReplicas
}

// FindWorkerGroup returns the index of the worker group named groupName, or -1.
func (c *RayCluster) FindWorkerGroup(groupName string) int {
	for i := range c.Spec.WorkerGroupSpecs {
		if c.Spec.WorkerGroupSpecs[i].GroupName == groupName {
			return i
		}
	}
	return -1
}

// WorkerGroupNames returns the worker group names in declaration order.
func (c *RayCluster) WorkerGroupNames() []string {
	names := make([]string, 0, len(c.Spec.WorkerGroupSpecs))
	for _, group := range c.Spec.WorkerGroupSpecs {
		names = append(names, group.GroupName)
	}
	return names
}
