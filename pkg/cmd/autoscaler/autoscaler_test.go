package autoscaler

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"sigs.k8s.io/yaml"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/test/support"
)

func newTestOptions() *common.Options {
	streams, _, _, _ := genericclioptions.NewTestIOStreams()
	commonOptions := common.NewOptions(streams)
	cfg := &configapi.Configuration{}
	configapi.SetDefaults_Configuration(cfg)
	commonOptions.SetConfig(cfg)
	return commonOptions
}

func disableAutoscaling(content string) string {
	return strings.Replace(content, "enableInTreeAutoscaling: true", "enableInTreeAutoscaling: false", 1)
}

func TestAutoscalerRun(t *testing.T) {
	path := support.WriteSampleYAML(t, support.AutoscalerSample, nil)
	options := NewAutoscalerOptions(newTestOptions())
	options.source = path

	var out bytes.Buffer
	require.NoError(t, options.Run(context.Background(), &out))

	var report AutoscalerReport
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "raycluster-autoscaler", report.Name)
	assert.True(t, report.Effective.Enabled)
	assert.Equal(t, int32(60), report.Effective.IdleTimeoutSeconds)
	assert.Equal(t, "rayproject/ray:2.41.0", report.Effective.Image)
	assert.Equal(t, []string{"image"}, report.Effective.Defaulted)

	require.NotNil(t, report.Container)
	assert.Equal(t, "autoscaler", report.Container.Name)
	assert.Equal(t, "rayproject/ray:2.41.0", report.Container.Image)
	assert.Equal(t, corev1.PullIfNotPresent, report.Container.ImagePullPolicy)
	assert.Contains(t, report.Container.Args[0], "ray kuberay-autoscaler")
}

func TestAutoscalerContainerOnly(t *testing.T) {
	path := support.WriteSampleYAML(t, support.AutoscalerSample, nil)
	options := NewAutoscalerOptions(newTestOptions())
	options.source = path
	options.containerOnly = true

	var out bytes.Buffer
	require.NoError(t, options.Run(context.Background(), &out))

	var container corev1.Container
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &container))
	assert.Equal(t, "autoscaler", container.Name)
	assert.Equal(t, "500m", container.Resources.Limits.Cpu().String())
}

func TestAutoscalerDisabled(t *testing.T) {
	path := support.WriteSampleYAML(t, support.AutoscalerSample, disableAutoscaling)

	options := NewAutoscalerOptions(newTestOptions())
	options.source = path
	var out bytes.Buffer
	require.NoError(t, options.Run(context.Background(), &out))
	var report AutoscalerReport
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
	assert.False(t, report.Effective.Enabled)
	assert.Nil(t, report.Container)

	options.containerOnly = true
	err := options.Run(context.Background(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not enable in-tree autoscaling")
}

func TestAutoscalerComplete(t *testing.T) {
	commonOptions := newTestOptions()
	cmd := NewAutoscalerCommand(commonOptions)
	options := NewAutoscalerOptions(commonOptions)
	require.Error(t, options.Complete(cmd, nil))
	require.Error(t, options.Complete(cmd, []string{"a.yaml", "b.yaml"}))
	require.NoError(t, options.Complete(cmd, []string{"a.yaml"}))
	assert.Equal(t, "a.yaml", options.source)
}
