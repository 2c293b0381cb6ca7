package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
)

func TestNewLoggerStdout(t *testing.T) {
	var out bytes.Buffer
	logger, closer, err := NewLogger(Options{LogStdoutEncoder: "json", Stdout: &out})
	require.NoError(t, err)

	logger.Info("validated", "name", "raycluster-autoscaler")
	logger.V(1).Info("hidden at level 0")
	require.NoError(t, closer())

	assert.Contains(t, out.String(), `"msg":"validated"`)
	assert.Contains(t, out.String(), `"name":"raycluster-autoscaler"`)
	assert.NotContains(t, out.String(), "hidden at level 0")
}

func TestNewLoggerVerbosity(t *testing.T) {
	var out bytes.Buffer
	logger, _, err := NewLogger(Options{LogStdoutEncoder: "console", LogLevel: 1, Stdout: &out})
	require.NoError(t, err)

	logger.V(1).Info("skipping document")
	logger.V(2).Info("too verbose")
	assert.Contains(t, out.String(), "skipping document")
	assert.NotContains(t, out.String(), "too verbose")
}

func TestNewLoggerWithFile(t *testing.T) {
	var out bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "rayclusterctl.log")
	logger, closer, err := NewLogger(Options{
		LogFile:          logFile,
		LogFileEncoder:   "json",
		LogStdoutEncoder: "console",
		Stdout:           &out,
	})
	require.NoError(t, err)

	logger.WithName("webhook").Info("validate create", "name", "raycluster-autoscaler")
	require.NoError(t, closer())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"validate create"`)
	assert.Contains(t, string(content), `"logger":"webhook"`)
	assert.Contains(t, out.String(), "validate create")
}

func TestNewLoggerRejectsUnknownEncoder(t *testing.T) {
	_, _, err := NewLogger(Options{LogStdoutEncoder: "xml"})
	require.Error(t, err)

	_, _, err = NewLogger(Options{LogFile: filepath.Join(t.TempDir(), "x.log"), LogFileEncoder: "xml"})
	require.Error(t, err)
}

func TestOptionsFromConfiguration(t *testing.T) {
	config := configapi.Configuration{}
	configapi.SetDefaults_Configuration(&config)
	config.LogFile = "/tmp/rayclusterctl.log"

	opts := OptionsFromConfiguration(config)
	assert.Equal(t, "/tmp/rayclusterctl.log", opts.LogFile)
	assert.Equal(t, configapi.DefaultLogFileEncoder, opts.LogFileEncoder)
	assert.Equal(t, configapi.DefaultLogStdoutEncoder, opts.LogStdoutEncoder)
}
