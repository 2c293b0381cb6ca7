package scale

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
)

// newWorkers returns the names in workers that the group does not list yet, in order and without duplicates.
func newWorkers(group *rayv1.WorkerGroupSpec, workers []string) ([]string, error) {
	listed := sets.New(group.ScaleStrategy.WorkersToDelete...)
	var added []string
	for _, worker := range workers {
		if worker == "" {
			return nil, fmt.Errorf("worker name must not be empty")
		}
		if listed.Has(worker) {
			continue
		}
		listed.Insert(worker)
		added = append(added, worker)
	}
	return added, nil
}

// AddWorkersToDelete lists workers for deletion without touching replicas and returns how many were added.
func AddWorkersToDelete(cluster *rayv1.RayCluster, groupName string, workers ...string) (int, error) {
	group, err := findWorkerGroup(cluster, groupName)
	if err != nil {
		return 0, err
	}
	added, err := newWorkers(group, workers)
	if err != nil {
		return 0, err
	}
	group.ScaleStrategy.WorkersToDelete = append(group.ScaleStrategy.WorkersToDelete, added...)
	return len(added), nil
}

// RemoveWorkersToDelete drops workers from the deletion list and returns how many were removed.
func RemoveWorkersToDelete(cluster *rayv1.RayCluster, groupName string, workers ...string) (int, error) {
	group, err := findWorkerGroup(cluster, groupName)
	if err != nil {
		return 0, err
	}
	drop := sets.New(workers...)
	kept := make([]string, 0, len(group.ScaleStrategy.WorkersToDelete))
	for _, worker := range group.ScaleStrategy.WorkersToDelete {
		if !drop.Has(worker) {
			kept = append(kept, worker)
		}
	}
	removed := len(group.ScaleStrategy.WorkersToDelete) - len(kept)
	if len(kept) == 0 {
		kept = nil
	}
	group.ScaleStrategy.WorkersToDelete = kept
	return removed, nil
}

// ClearWorkersToDelete empties the deletion list of a group and returns how many entries it held.
func ClearWorkersToDelete(cluster *rayv1.RayCluster, groupName string) (int, error) {
	group, err := findWorkerGroup(cluster, groupName)
	if err != nil {
		return 0, err
	}
	cleared := len(group.ScaleStrategy.WorkersToDelete)
	group.ScaleStrategy.WorkersToDelete = nil
	return cleared, nil
}
