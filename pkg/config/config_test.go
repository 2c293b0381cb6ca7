package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	config, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.False(t, config.Strict)
	assert.Equal(t, configapi.DefaultNamespace, config.DefaultNamespace)
	assert.Equal(t, configapi.DefaultRayImageRepositories, config.RayImageRepositories)
	assert.Equal(t, configapi.DefaultFetchTimeout, config.FetchTimeout.Duration)
	assert.Equal(t, configapi.DefaultConcurrency, config.Concurrency)
	assert.Equal(t, configapi.DefaultWebhookPort, config.WebhookPort)
	assert.Equal(t, "config.ray.io/v1alpha1", config.APIVersion)
}

func TestLoadHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".rayclusterctl.yaml"), []byte("strict: true\n"), 0o600))

	loader := NewLoader("")
	config, err := loader.Load()
	require.NoError(t, err)
	assert.True(t, config.Strict)
	assert.Equal(t, filepath.Join(home, ".rayclusterctl.yaml"), loader.ConfigFileUsed())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
strict: true
concurrency: 8
fetchTimeout: 5s
rayImageRepositories:
- my.registry/ray
logStdoutEncoder: json
`)
	config, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.True(t, config.Strict)
	assert.Equal(t, 8, config.Concurrency)
	assert.Equal(t, 5*time.Second, config.FetchTimeout.Duration)
	assert.Equal(t, []string{"my.registry/ray"}, config.RayImageRepositories)
	assert.Equal(t, "json", config.LogStdoutEncoder)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, "concurrency: 8\nlogLevel: 1\nrayImageRepositories: [a/ray]\n")
	t.Setenv("RAYCLUSTERCTL_CONCURRENCY", "2")
	t.Setenv("RAYCLUSTERCTL_RAYIMAGEREPOSITORIES", "b/ray,c/ray")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("log-level", 0, "")
	flags.Bool("strict", false, "")
	require.NoError(t, flags.Parse([]string{"--log-level=3"}))

	loader := NewLoader(path)
	require.NoError(t, loader.BindFlags(flags))
	config, err := loader.Load()
	require.NoError(t, err)

	// Flags beat the environment, which beats the file.
	assert.Equal(t, 3, config.LogLevel)
	assert.Equal(t, 2, config.Concurrency)
	assert.Equal(t, []string{"b/ray", "c/ray"}, config.RayImageRepositories)
	// An unchanged flag does not override the default.
	assert.False(t, config.Strict)
}

func TestLoadErrors(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.Error(t, err)

	_, err = NewLoader(writeConfig(t, "strcit: true\n")).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strcit")

	_, err = NewLoader(writeConfig(t, "logFileEncoder: xml\n")).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logFileEncoder")
}

func TestLoadFrom(t *testing.T) {
	config, err := LoadFrom([]byte("apiVersion: config.ray.io/v1alpha1\nkind: Configuration\nstrict: true\n"))
	require.NoError(t, err)
	assert.True(t, config.Strict)
	assert.Equal(t, configapi.DefaultFieldManager, config.FieldManager)
}

func TestCurrent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	loader := NewLoader("")
	assert.Nil(t, loader.Current())

	_, err := loader.Load()
	require.NoError(t, err)
	current := loader.Current()
	require.NotNil(t, current)
	current.Strict = true
	assert.False(t, loader.Current().Strict)
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, "strict: false\n")
	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	changes := make(chan *configapi.Configuration, 32)
	require.NoError(t, loader.Watch(func(config *configapi.Configuration) {
		changes <- config
	}))

	// A broken file keeps the previous configuration.
	require.NoError(t, os.WriteFile(path, []byte("logStdoutEncoder: xml\n"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.False(t, loader.Current().Strict)

	require.NoError(t, os.WriteFile(path, []byte("strict: true\n"), 0o600))
	require.Eventually(t, func() bool {
		return loader.Current().Strict
	}, 5*time.Second, 50*time.Millisecond)

	// Editors may produce intermediate writes, so look for the final notification.
	require.Eventually(t, func() bool {
		for {
			select {
			case config := <-changes:
				if config.Strict {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	loader := NewLoader("")
	_, err := loader.Load()
	require.NoError(t, err)
	require.Error(t, loader.Watch(nil))
}

func TestSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	loader := NewLoader(path)

	require.NoError(t, loader.Set(KeyStrict, "true"))
	require.NoError(t, loader.Set(KeyConcurrency, "6"))
	require.NoError(t, loader.Set(KeyRayImageRepositories, "a/ray, b/ray"))

	config, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.True(t, config.Strict)
	assert.Equal(t, 6, config.Concurrency)
	assert.Equal(t, []string{"a/ray", "b/ray"}, config.RayImageRepositories)

	err = loader.Set("colour", "blue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")

	require.Error(t, loader.Set(KeyConcurrency, "many"))
}
