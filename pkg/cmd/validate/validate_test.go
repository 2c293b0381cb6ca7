package validate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"sigs.k8s.io/yaml"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/manifest"
	"github.com/ray-project/kuberay/rayclusterctl/test/support"
)

func newTestOptions(strict bool) (*common.Options, *bytes.Buffer) {
	streams, in, _, _ := genericclioptions.NewTestIOStreams()
	commonOptions := common.NewOptions(streams)
	cfg := &configapi.Configuration{Strict: strict}
	configapi.SetDefaults_Configuration(cfg)
	commonOptions.SetConfig(cfg)
	return commonOptions, in
}

func tooManyReplicas(content string) string {
	return strings.Replace(content, "- replicas: 1\n", "- replicas: 11\n", 1)
}

func unequalHeadLimits(content string) string {
	return strings.Replace(content, "limits:\n              cpu: \"1\"\n              memory: \"2G\"", "limits:\n              cpu: \"2\"\n              memory: \"2G\"", 1)
}

func TestValidateComplete(t *testing.T) {
	commonOptions, _ := newTestOptions(false)
	cmd := NewValidateCommand(commonOptions)
	options := NewValidateOptions(commonOptions)

	require.Error(t, options.Complete(cmd, nil))
	require.NoError(t, options.Complete(cmd, []string{"a.yaml", "b.yaml"}))
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, options.sources)

	options.output = "json"
	require.Error(t, options.Validate())
	options.output = OutputYAML
	require.NoError(t, options.Validate())
}

func TestValidateRun(t *testing.T) {
	valid := support.WriteSampleYAML(t, support.AutoscalerSample, nil)
	invalid := support.WriteSampleYAML(t, support.AutoscalerSample, tooManyReplicas)
	warning := support.WriteSampleYAML(t, support.AutoscalerSample, unequalHeadLimits)

	tests := []struct {
		name          string
		sources       []string
		strict        bool
		expectedError string
		expectedOut   []string
	}{
		{
			name:        "valid sample",
			sources:     []string{valid},
			expectedOut: []string{"✔ " + valid + "#0 (raycluster-autoscaler): valid"},
		},
		{
			name:          "replicas above maximum",
			sources:       []string{valid, invalid},
			expectedError: "1 of 2 sources failed validation",
			expectedOut: []string{
				"✔ " + valid + "#0 (raycluster-autoscaler): valid",
				"✖ " + invalid + "#0 (raycluster-autoscaler): 1 errors, 0 warnings",
				"spec.workerGroupSpecs[0].replicas",
			},
		},
		{
			name:        "requests different from limits",
			sources:     []string{warning},
			expectedOut: []string{"! " + warning + "#0 (raycluster-autoscaler): valid with 1 warnings", "resource requests should equal limits"},
		},
		{
			name:          "requests different from limits in strict mode",
			sources:       []string{warning},
			strict:        true,
			expectedError: "1 of 1 sources failed validation",
			expectedOut:   []string{"resource requests should equal limits"},
		},
		{
			name:          "missing source",
			sources:       []string{filepath.Join(t.TempDir(), "missing.yaml")},
			expectedError: "1 of 1 sources failed validation",
			expectedOut:   []string{"✖ ", "missing.yaml"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			commonOptions, _ := newTestOptions(tc.strict)
			options := NewValidateOptions(commonOptions)
			options.sources = tc.sources

			var out bytes.Buffer
			err := options.Run(context.Background(), &out)
			if tc.expectedError != "" {
				assert.EqualError(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
			}
			for _, expected := range tc.expectedOut {
				assert.Contains(t, out.String(), expected)
			}
		})
	}
}

func TestValidateYAMLOutput(t *testing.T) {
	valid := support.WriteSampleYAML(t, support.AutoscalerSample, nil)
	invalid := support.WriteSampleYAML(t, support.AutoscalerSample, tooManyReplicas)

	commonOptions, _ := newTestOptions(false)
	options := NewValidateOptions(commonOptions)
	options.output = OutputYAML
	// Duplicate sources are validated once.
	options.sources = []string{invalid, valid, invalid}

	var out bytes.Buffer
	require.Error(t, options.Run(context.Background(), &out))

	var reports []SourceReport
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, invalid, reports[0].Source)
	require.Len(t, reports[0].Documents, 1)
	assert.Equal(t, "raycluster-autoscaler", reports[0].Documents[0].Name)
	require.Len(t, reports[0].Documents[0].Errors, 1)
	assert.Contains(t, reports[0].Documents[0].Errors[0], "has replicas 11 outside of [minReplicas 1, maxReplicas 10]")
	assert.Equal(t, valid, reports[1].Source)
	assert.Empty(t, reports[1].Documents[0].Errors)
}

func TestValidateReportsSkippedDocuments(t *testing.T) {
	mixed := support.WriteSampleYAML(t, support.AutoscalerSample, func(content string) string {
		legacy := strings.Replace(content, "apiVersion: ray.io/v1\n", "apiVersion: ray.io/v1alpha1\n", 1)
		return "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: cm\n---\n" + legacy + "\n---\n" + content
	})

	commonOptions, _ := newTestOptions(false)
	options := NewValidateOptions(commonOptions)
	options.sources = []string{mixed}

	var out bytes.Buffer
	require.NoError(t, options.Run(context.Background(), &out))
	assert.Contains(t, out.String(), "! "+mixed+"#1: RayCluster ray.io/v1alpha1 is not checked, only ray.io/v1 is supported")
	assert.Contains(t, out.String(), "✔ "+mixed+"#2 (raycluster-autoscaler): valid")

	options.output = OutputYAML
	out.Reset()
	require.NoError(t, options.Run(context.Background(), &out))

	var reports []SourceReport
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 1)
	require.Len(t, reports[0].Warnings, 1)
	assert.Contains(t, reports[0].Warnings[0], "ray.io/v1alpha1")
	assert.Equal(t, []manifest.SkippedDocument{
		{Index: 0, APIVersion: "v1", Kind: "ConfigMap"},
		{Index: 1, APIVersion: "ray.io/v1alpha1", Kind: "RayCluster"},
	}, reports[0].Skipped)
}

func TestValidateStdin(t *testing.T) {
	content, err := support.ReadSampleYAML(support.AutoscalerSample)
	require.NoError(t, err)

	commonOptions, in := newTestOptions(false)
	in.Write(content)
	options := NewValidateOptions(commonOptions)
	options.sources = []string{"-"}

	var out bytes.Buffer
	require.NoError(t, options.Run(context.Background(), &out))
	assert.Contains(t, out.String(), "✔ -#0 (raycluster-autoscaler): valid")
}

func TestValidateMetricsFile(t *testing.T) {
	valid := support.WriteSampleYAML(t, support.AutoscalerSample, nil)
	invalid := support.WriteSampleYAML(t, support.AutoscalerSample, tooManyReplicas)
	metricsFile := filepath.Join(t.TempDir(), "rayclusterctl.prom")

	commonOptions, _ := newTestOptions(false)
	options := NewValidateOptions(commonOptions)
	options.sources = []string{valid, invalid}
	options.metricsFile = metricsFile

	require.Error(t, options.Run(context.Background(), &bytes.Buffer{}))
	content, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `rayclusterctl_validations_total{result="valid",source="cli"} 1`)
	assert.Contains(t, string(content), `rayclusterctl_validations_total{result="invalid",source="cli"} 1`)
}
