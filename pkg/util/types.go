package util

import (
	"k8s.io/apimachinery/pkg/runtime/schema"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
)

var RayClusterGVR = schema.GroupVersionResource{
	Group:    rayv1.GroupVersion.Group,
	Version:  rayv1.GroupVersion.Version,
	Resource: rayv1.RayClusterResource,
}
