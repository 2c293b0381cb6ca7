package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/kubectl/pkg/util/templates"
	"sigs.k8s.io/yaml"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/config"
)

var (
	configLong = templates.LongDesc(`
		View and change the rayclusterctl configuration.

		Values are resolved from flags, RAYCLUSTERCTL_* environment variables, the config file
		and defaults, in that order. 'config set' writes to the config file.
	`)

	configExample = templates.Examples(`
		# Show the resolved configuration
		rayclusterctl config view

		# Make strict validation the default
		rayclusterctl config set strict true

		# Read one value
		rayclusterctl config get rayImageRepositories
	`)
)

func NewConfigCommand(commonOptions *common.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "config <command>",
		Short:        "Configuration management",
		Long:         configLong,
		Example:      configExample,
		SilenceUsage: true,
	}

	cmd.AddCommand(newViewCommand(commonOptions))
	cmd.AddCommand(newGetCommand(commonOptions))
	cmd.AddCommand(newSetCommand(commonOptions))
	return cmd
}

func newViewCommand(commonOptions *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:          "view",
		Short:        "Print the resolved configuration",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := yaml.Marshal(commonOptions.Config())
			if err != nil {
				return err
			}
			if used := commonOptions.Loader().ConfigFileUsed(); used != "" {
				fmt.Fprintf(commonOptions.IOStreams.ErrOut, "# read from %s\n", used)
			}
			_, err = commonOptions.IOStreams.Out.Write(data)
			return err
		},
	}
}

func newGetCommand(commonOptions *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:          "get KEY",
		Short:        "Print one resolved configuration value",
		Long:         fmt.Sprintf("Print one resolved configuration value. Supported keys: %s.", strings.Join(config.Keys(), ", ")),
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			value, err := valueOf(commonOptions.Config(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(commonOptions.IOStreams.Out, value)
			return nil
		},
	}
}

func newSetCommand(commonOptions *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:          "set KEY VALUE",
		Short:        "Write a configuration value to the config file",
		Long:         "Write a configuration value to the config file. Lists are given comma separated.",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return commonOptions.Loader().Set(args[0], args[1])
		},
	}
}

// valueOf formats a configuration value the way 'config set' accepts it.
func valueOf(cfg *configapi.Configuration, key string) (string, error) {
	switch key {
	case config.KeyStrict:
		return strconv.FormatBool(cfg.Strict), nil
	case config.KeyDefaultNamespace:
		return cfg.DefaultNamespace, nil
	case config.KeyFieldManager:
		return cfg.FieldManager, nil
	case config.KeyRayImageRepositories:
		return strings.Join(cfg.RayImageRepositories, ","), nil
	case config.KeyFetchTimeout:
		if cfg.FetchTimeout == nil {
			return "", nil
		}
		return cfg.FetchTimeout.Duration.String(), nil
	case config.KeyConcurrency:
		return strconv.Itoa(cfg.Concurrency), nil
	case config.KeyLogFile:
		return cfg.LogFile, nil
	case config.KeyLogFileEncoder:
		return cfg.LogFileEncoder, nil
	case config.KeyLogStdoutEncoder:
		return cfg.LogStdoutEncoder, nil
	case config.KeyLogLevel:
		return strconv.Itoa(cfg.LogLevel), nil
	case config.KeyMetricsAddr:
		return cfg.MetricsAddr, nil
	case config.KeyProbeAddr:
		return cfg.ProbeAddr, nil
	case config.KeyWebhookPort:
		return strconv.Itoa(cfg.WebhookPort), nil
	case config.KeyCertDir:
		return cfg.CertDir, nil
	}
	return "", fmt.Errorf("key %s is not supported, supported keys are: %s", key, strings.Join(config.Keys(), ", "))
}
