package support

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	rayscheme "github.com/ray-project/kuberay/rayclusterctl/pkg/scheme"
)

// AutoscalerSample is the declaration shipped in config/samples.
const AutoscalerSample = "ray-cluster.autoscaler.yaml"

func GetSampleYAMLDir(t *testing.T) string {
	t.Helper()
	_, b, _, _ := runtime.Caller(0)
	sampleYAMLDir := filepath.Join(filepath.Dir(b), "../../config/samples")
	info, err := os.Stat(sampleYAMLDir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
	return sampleYAMLDir
}

func GetSampleYAMLPath(t *testing.T, filename string) string {
	t.Helper()
	return filepath.Join(GetSampleYAMLDir(t), filename)
}

// ReadSampleYAML returns the raw content of a sample declaration.
func ReadSampleYAML(filename string) ([]byte, error) {
	_, b, _, _ := runtime.Caller(0)
	return os.ReadFile(filepath.Join(filepath.Dir(b), "../../config/samples", filename))
}

// DecodeRayCluster decodes one YAML or JSON RayCluster document into into.
func DecodeRayCluster(content []byte, into *rayv1.RayCluster) error {
	decoder := rayscheme.Codecs.UniversalDecoder(rayv1.GroupVersion)
	_, _, err := decoder.Decode(content, nil, into)
	return err
}

func deserializeYAML(filename string, into *rayv1.RayCluster) error {
	yamlFileContent, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return DecodeRayCluster(yamlFileContent, into)
}

func DeserializeRayClusterSampleYAML(t *testing.T, filename string) *rayv1.RayCluster {
	t.Helper()
	rayCluster := &rayv1.RayCluster{}
	err := deserializeYAML(GetSampleYAMLPath(t, filename), rayCluster)
	require.NoError(t, err)
	return rayCluster
}

// WriteSampleYAML writes the sample declaration, passed through edit when not nil, to a file in a
// temporary directory and returns its path.
func WriteSampleYAML(t *testing.T, filename string, edit func(string) string) string {
	t.Helper()
	content, err := ReadSampleYAML(filename)
	require.NoError(t, err)
	text := string(content)
	if edit != nil {
		text = edit(text)
	}
	path := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}
