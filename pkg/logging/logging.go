package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	zaporigin "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
)

type Options struct {
	// LogFile is an optional file that receives a copy of every log line, rotated by size.
	LogFile          string
	LogFileEncoder   string
	LogStdoutEncoder string
	// LogLevel is the verbosity; V(n) lines are emitted when n <= LogLevel.
	LogLevel int
	// Stdout defaults to os.Stdout.
	Stdout io.Writer
}

func OptionsFromConfiguration(config configapi.Configuration) Options {
	return Options{
		LogFile:          config.LogFile,
		LogFileEncoder:   config.LogFileEncoder,
		LogStdoutEncoder: config.LogStdoutEncoder,
		LogLevel:         config.LogLevel,
	}
}

func newEncoder(name string) (zapcore.Encoder, error) {
	encoderConfig := zaporigin.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch name {
	case "", "json":
		return zapcore.NewJSONEncoder(encoderConfig), nil
	case "console":
		return zapcore.NewConsoleEncoder(encoderConfig), nil
	default:
		return nil, fmt.Errorf("unsupported log encoder %q, valid values are json and console", name)
	}
}

// NewLogger builds a logr.Logger writing to stdout and, when LogFile is set, to a rotated file.
// The returned function flushes and closes the file sink.
func NewLogger(opts Options) (logr.Logger, func() error, error) {
	stdoutEncoder, err := newEncoder(opts.LogStdoutEncoder)
	if err != nil {
		return logr.Discard(), nil, err
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	level := zapcore.Level(-opts.LogLevel)

	zapOpts := zap.Options{
		Encoder:     stdoutEncoder,
		Level:       level,
		DestWriter:  stdout,
		TimeEncoder: zapcore.ISO8601TimeEncoder,
	}
	k8sLogger := zap.NewRaw(zap.UseFlagOptions(&zapOpts))

	if opts.LogFile == "" {
		return zapr.NewLogger(k8sLogger), k8sLogger.Sync, nil
	}

	fileEncoder, err := newEncoder(opts.LogFileEncoder)
	if err != nil {
		return logr.Discard(), nil, err
	}
	fileWriter := &lumberjack.Logger{
		Filename:   opts.LogFile,
		MaxSize:    500, // megabytes
		MaxAge:     10,  // days
		MaxBackups: 10,
	}
	fileCore := zapcore.NewCore(fileEncoder, zapcore.AddSync(fileWriter), level)
	combined := zaporigin.New(zapcore.NewTee(k8sLogger.Core(), fileCore))

	closer := func() error {
		_ = combined.Sync()
		return fileWriter.Close()
	}
	return zapr.NewLogger(combined), closer, nil
}

// Setup installs the logger as the controller-runtime logger used by ctrl.Log and ctrl.LoggerFrom.
func Setup(opts Options) (func() error, error) {
	logger, closer, err := NewLogger(opts)
	if err != nil {
		return nil, err
	}
	ctrl.SetLogger(logger)
	return closer, nil
}
