package common

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/config"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/logging"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/manifest"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/util"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/validation"
)

// Options carries the state shared by every subcommand: kube flags, the resolved tool
// configuration and the output streams.
type Options struct {
	ConfigFlags *genericclioptions.ConfigFlags
	IOStreams   genericclioptions.IOStreams
	ConfigFile  string

	cmdFactory cmdutil.Factory
	loader     *config.Loader
	config     *configapi.Configuration
	closeLog   func() error
}

func NewOptions(streams genericclioptions.IOStreams) *Options {
	configFlags := genericclioptions.NewConfigFlags(true)
	return &Options{
		ConfigFlags: configFlags,
		IOStreams:   streams,
		cmdFactory:  cmdutil.NewFactory(configFlags),
	}
}

// AddFlags registers the global flags on the root command.
func (o *Options) AddFlags(flags *pflag.FlagSet) {
	o.ConfigFlags.AddFlags(flags)
	flags.StringVar(&o.ConfigFile, "config", "", "config file (default is $HOME/.rayclusterctl.yaml)")
	flags.Bool("strict", false, "report convention findings as errors and reject unknown fields")
	flags.IntP("log-level", "v", 0, "log verbosity, higher is more verbose")
	flags.String("log-file", "", "also write logs to this file, rotated by size")
	flags.String("log-stdout-encoder", configapi.DefaultLogStdoutEncoder, "encoder for logs on stderr: json or console")
	flags.String("log-file-encoder", configapi.DefaultLogFileEncoder, "encoder for the log file: json or console")
	flags.Duration("fetch-timeout", configapi.DefaultFetchTimeout, "timeout for downloading http(s) sources")
	flags.StringSlice("ray-image-repositories", nil, "image repositories whose tags must match rayVersion (default Ray project images)")
}

// Initialize loads the configuration and installs the logger. It runs before every subcommand.
func (o *Options) Initialize(cmd *cobra.Command) error {
	o.loader = config.NewLoader(o.ConfigFile)
	if err := o.loader.BindFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg, err := o.loader.Load()
	if err != nil {
		return err
	}
	o.config = cfg

	logOptions := logging.OptionsFromConfiguration(*cfg)
	logOptions.Stdout = o.IOStreams.ErrOut
	closeLog, err := logging.Setup(logOptions)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	o.closeLog = closeLog
	return nil
}

// Close flushes the logger and closes the log file, if any. Sync fails on terminals and pipes, so
// its error is dropped.
func (o *Options) Close() {
	if o.closeLog != nil {
		_ = o.closeLog()
	}
}

// Config returns the resolved configuration, falling back to defaults before Initialize.
func (o *Options) Config() *configapi.Configuration {
	if o.config == nil {
		cfg := &configapi.Configuration{}
		configapi.SetDefaults_Configuration(cfg)
		o.config = cfg
	}
	return o.config
}

// SetConfig replaces the resolved configuration. Tests use it to skip flag and file loading.
func (o *Options) SetConfig(cfg *configapi.Configuration) {
	o.config = cfg
}

func (o *Options) Loader() *config.Loader {
	if o.loader == nil {
		o.loader = config.NewLoader(o.ConfigFile)
	}
	return o.loader
}

func (o *Options) Factory() cmdutil.Factory {
	return o.cmdFactory
}

// Namespace returns --namespace when given, otherwise the configured default namespace.
func (o *Options) Namespace() string {
	if o.ConfigFlags.Namespace != nil && *o.ConfigFlags.Namespace != "" {
		return *o.ConfigFlags.Namespace
	}
	return o.Config().DefaultNamespace
}

// ExplicitNamespace reports whether --namespace was given.
func (o *Options) ExplicitNamespace() bool {
	return o.ConfigFlags.Namespace != nil && *o.ConfigFlags.Namespace != ""
}

// CheckContext returns an error when no kube context is selected.
func (o *Options) CheckContext() error {
	// Overrides and binds the kube config then retrieves the merged result
	rawConfig, err := o.ConfigFlags.ToRawKubeConfigLoader().RawConfig()
	if err != nil {
		return fmt.Errorf("error retrieving raw config: %w", err)
	}
	if !util.HasKubectlContext(rawConfig, o.ConfigFlags) {
		return fmt.Errorf("no context is currently set, use %q or %q to select a new one", "--context", "kubectl config use-context <context>")
	}
	return nil
}

// ManifestLoader returns a document loader honoring the fetch timeout and strict decoding.
func (o *Options) ManifestLoader() *manifest.Loader {
	cfg := o.Config()
	loader := manifest.NewLoader(cfg.FetchTimeout.Duration, cfg.Strict)
	loader.Stdin = o.IOStreams.In
	return loader
}

func (o *Options) ValidationOptions() validation.Options {
	return validation.OptionsFromConfiguration(*o.Config())
}
