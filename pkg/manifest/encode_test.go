package manifest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	"github.com/ray-project/kuberay/rayclusterctl/test/support"
)

func TestEncodeRoundTrip(t *testing.T) {
	cluster := support.DeserializeRayClusterSampleYAML(t, support.AutoscalerSample)
	cluster.ResourceVersion = "12345"
	cluster.UID = "0f6c3c3e-7c43-4ac4-a0b5-5a8e5e2a9d1b"
	cluster.CreationTimestamp = metav1.Now()
	cluster.Status.State = rayv1.Ready

	data, err := Encode(cluster)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "status:")
	assert.NotContains(t, string(data), "resourceVersion")
	assert.NotContains(t, string(data), "creationTimestamp")

	documents, err := Decode(context.Background(), "encoded.yaml", data, true)
	require.NoError(t, err)
	require.Len(t, documents, 1)
	assert.Equal(t, cluster.Spec, documents[0].Cluster.Spec)
	assert.Equal(t, cluster.Labels, documents[0].Cluster.Labels)
}

func TestUnstructuredRoundTrip(t *testing.T) {
	cluster := support.DeserializeRayClusterSampleYAML(t, support.AutoscalerSample)

	obj, err := ToUnstructured(cluster)
	require.NoError(t, err)
	assert.Equal(t, "ray.io/v1", obj.GetAPIVersion())
	assert.Equal(t, rayv1.RayClusterKind, obj.GetKind())

	converted, err := FromUnstructured(obj)
	require.NoError(t, err)
	assert.Equal(t, cluster.Spec, converted.Spec)
}
