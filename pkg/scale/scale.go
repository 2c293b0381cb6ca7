package scale

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/utils/ptr"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
)

// ErrWorkerGroupNotFound is returned when an edit names a worker group the cluster does not declare.
var ErrWorkerGroupNotFound = errors.New("worker group not found")

// Request holds the replica fields to change. Nil fields are left as declared.
type Request struct {
	Replicas    *int32
	MinReplicas *int32
	MaxReplicas *int32
}

func (r Request) IsEmpty() bool {
	return r.Replicas == nil && r.MinReplicas == nil && r.MaxReplicas == nil
}

// Bounds are the effective replica settings of a worker group.
type Bounds struct {
	MinReplicas int32
	Replicas    int32
	MaxReplicas int32
}

func (b Bounds) String() string {
	return fmt.Sprintf("replicas=%d (min %d, max %d)", b.Replicas, b.MinReplicas, b.MaxReplicas)
}

// Result describes an edit applied to one worker group.
type Result struct {
	GroupName string
	Previous  Bounds
	Current   Bounds
}

func (r *Result) Changed() bool {
	return r.Previous != r.Current
}

func boundsOf(group *rayv1.WorkerGroupSpec) Bounds {
	minReplicas, replicas, maxReplicas := group.EffectiveBounds()
	return Bounds{MinReplicas: minReplicas, Replicas: replicas, MaxReplicas: maxReplicas}
}

func findWorkerGroup(cluster *rayv1.RayCluster, groupName string) (*rayv1.WorkerGroupSpec, error) {
	index := cluster.FindWorkerGroup(groupName)
	if index == -1 {
		return nil, fmt.Errorf("%w: %s in Ray cluster %s. Available worker groups: %s",
			ErrWorkerGroupNotFound, groupName, cluster.Name, strings.Join(cluster.WorkerGroupNames(), ", "))
	}
	return &cluster.Spec.WorkerGroupSpecs[index], nil
}

// SetReplicas changes the replica fields of one worker group. The resulting bounds must satisfy
// minReplicas <= replicas <= maxReplicas, otherwise the cluster is left untouched.
func SetReplicas(cluster *rayv1.RayCluster, groupName string, req Request) (*Result, error) {
	group, err := findWorkerGroup(cluster, groupName)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return nil, fmt.Errorf("must specify at least one of -r/--replicas, --min-replicas, --max-replicas")
	}

	for _, field := range []struct {
		flag  string
		value *int32
	}{
		{"replicas", req.Replicas},
		{"min-replicas", req.MinReplicas},
		{"max-replicas", req.MaxReplicas},
	} {
		if field.value != nil && *field.value < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer, got %d", field.flag, *field.value)
		}
	}

	result := &Result{GroupName: groupName, Previous: boundsOf(group)}
	next := result.Previous
	if req.MinReplicas != nil {
		next.MinReplicas = *req.MinReplicas
	}
	if req.MaxReplicas != nil {
		next.MaxReplicas = *req.MaxReplicas
	}
	if req.Replicas != nil {
		next.Replicas = *req.Replicas
	}

	if next.MinReplicas > next.MaxReplicas {
		return nil, fmt.Errorf("minimum replicas (%d) cannot be greater than maximum replicas (%d)", next.MinReplicas, next.MaxReplicas)
	}
	if next.Replicas < next.MinReplicas {
		return nil, fmt.Errorf("desired replicas (%d) cannot be less than minimum replicas (%d)", next.Replicas, next.MinReplicas)
	}
	if next.Replicas > next.MaxReplicas {
		return nil, fmt.Errorf("desired replicas (%d) cannot be greater than maximum replicas (%d)", next.Replicas, next.MaxReplicas)
	}

	if req.MinReplicas != nil {
		group.MinReplicas = ptr.To(next.MinReplicas)
	}
	if req.MaxReplicas != nil {
		group.MaxReplicas = ptr.To(next.MaxReplicas)
	}
	if req.Replicas != nil {
		group.Replicas = ptr.To(next.Replicas)
	}
	result.Current = boundsOf(group)
	return result, nil
}

// ScaleDown removes specific workers from a group: their names are added to workersToDelete and
// replicas is decreased by the number of newly listed workers. Names already listed are ignored.
func ScaleDown(cluster *rayv1.RayCluster, groupName string, workers ...string) (*Result, error) {
	group, err := findWorkerGroup(cluster, groupName)
	if err != nil {
		return nil, err
	}
	added, err := newWorkers(group, workers)
	if err != nil {
		return nil, err
	}

	result := &Result{GroupName: groupName, Previous: boundsOf(group)}
	replicas := result.Previous.Replicas - int32(len(added))
	if replicas < result.Previous.MinReplicas {
		return nil, fmt.Errorf("deleting %d workers from worker group %s would leave %d replicas, below minimum replicas (%d)",
			len(added), groupName, replicas, result.Previous.MinReplicas)
	}

	if len(added) > 0 {
		group.ScaleStrategy.WorkersToDelete = append(group.ScaleStrategy.WorkersToDelete, added...)
		group.Replicas = ptr.To(replicas)
	}
	result.Current = boundsOf(group)
	return result, nil
}
