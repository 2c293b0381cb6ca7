package apply

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	dynamicFake "k8s.io/client-go/dynamic/fake"
	kubeFake "k8s.io/client-go/kubernetes/fake"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/client"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/util"
	"github.com/ray-project/kuberay/rayclusterctl/test/support"
)

func newTestOptions(strict bool) (*common.Options, *bytes.Buffer) {
	streams, _, _, errOut := genericclioptions.NewTestIOStreams()
	commonOptions := common.NewOptions(streams)
	cfg := &configapi.Configuration{Strict: strict}
	configapi.SetDefaults_Configuration(cfg)
	commonOptions.SetConfig(cfg)
	return commonOptions, errOut
}

func newTestClient() client.Client {
	dynamicClient := dynamicFake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
		map[schema.GroupVersionResource]string{util.RayClusterGVR: "RayClusterList"})
	return client.NewClientForTesting(kubeFake.NewSimpleClientset(), dynamicClient)
}

func TestApplyCreateThenConfigure(t *testing.T) {
	ctx := context.Background()
	k8sClient := newTestClient()
	commonOptions, _ := newTestOptions(true)
	options := NewApplyOptions(commonOptions)
	options.source = support.WriteSampleYAML(t, support.AutoscalerSample, nil)

	var out bytes.Buffer
	require.NoError(t, options.Run(ctx, k8sClient, &out))
	assert.Equal(t, "raycluster.ray.io/raycluster-autoscaler created in namespace default\n", out.String())

	out.Reset()
	require.NoError(t, options.Run(ctx, k8sClient, &out))
	assert.Equal(t, "raycluster.ray.io/raycluster-autoscaler configured in namespace default\n", out.String())

	stored, err := k8sClient.GetRayCluster(ctx, "default", "raycluster-autoscaler")
	require.NoError(t, err)
	assert.Equal(t, "2.41.0", stored.Spec.RayVersion)
}

func TestApplyNamespace(t *testing.T) {
	ctx := context.Background()
	withNamespace := support.WriteSampleYAML(t, support.AutoscalerSample, func(content string) string {
		return strings.Replace(content, "name: raycluster-autoscaler\n", "name: raycluster-autoscaler\n  namespace: ray\n", 1)
	})

	t.Run("namespace flag used for documents without one", func(t *testing.T) {
		k8sClient := newTestClient()
		commonOptions, _ := newTestOptions(false)
		*commonOptions.ConfigFlags.Namespace = "team-a"
		options := NewApplyOptions(commonOptions)
		options.source = support.WriteSampleYAML(t, support.AutoscalerSample, nil)

		var out bytes.Buffer
		require.NoError(t, options.Run(ctx, k8sClient, &out))
		assert.Contains(t, out.String(), "created in namespace team-a")
		_, err := k8sClient.GetRayCluster(ctx, "team-a", "raycluster-autoscaler")
		require.NoError(t, err)
	})

	t.Run("declared namespace kept", func(t *testing.T) {
		k8sClient := newTestClient()
		commonOptions, _ := newTestOptions(false)
		options := NewApplyOptions(commonOptions)
		options.source = withNamespace

		var out bytes.Buffer
		require.NoError(t, options.Run(ctx, k8sClient, &out))
		assert.Contains(t, out.String(), "created in namespace ray")
	})

	t.Run("conflicting namespace flag", func(t *testing.T) {
		commonOptions, _ := newTestOptions(false)
		*commonOptions.ConfigFlags.Namespace = "team-a"
		options := NewApplyOptions(commonOptions)
		options.source = withNamespace

		err := options.Run(ctx, newTestClient(), &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `the namespace from the provided object "ray" does not match the namespace "team-a"`)
	})
}

func TestApplyInvalidSendsNothing(t *testing.T) {
	ctx := context.Background()
	k8sClient := newTestClient()
	commonOptions, _ := newTestOptions(false)
	options := NewApplyOptions(commonOptions)
	options.source = support.WriteSampleYAML(t, support.AutoscalerSample, func(content string) string {
		return strings.Replace(content, "- replicas: 1\n", "- replicas: 11\n", 1)
	})

	var out bytes.Buffer
	err := options.Run(ctx, k8sClient, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `RayCluster.ray.io "raycluster-autoscaler" is invalid`)
	assert.Empty(t, out.String())

	_, err = k8sClient.GetRayCluster(ctx, "default", "raycluster-autoscaler")
	require.Error(t, err)
}

func TestApplyWarnings(t *testing.T) {
	commonOptions, errOut := newTestOptions(false)
	options := NewApplyOptions(commonOptions)
	options.source = support.WriteSampleYAML(t, support.AutoscalerSample, func(content string) string {
		return strings.Replace(content, "limits:\n              cpu: \"1\"\n              memory: \"2G\"", "limits:\n              cpu: \"2\"\n              memory: \"2G\"", 1)
	})

	require.NoError(t, options.Run(context.Background(), newTestClient(), &bytes.Buffer{}))
	assert.Contains(t, errOut.String(), "warning: "+options.source+"#0 (raycluster-autoscaler): ")
}
