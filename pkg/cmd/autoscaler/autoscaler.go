package autoscaler

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"k8s.io/kubectl/pkg/util/templates"
	"sigs.k8s.io/yaml"

	"github.com/ray-project/kuberay/rayclusterctl/pkg/autoscaler"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
)

type AutoscalerOptions struct {
	common        *common.Options
	source        string
	containerOnly bool
}

// AutoscalerReport is the output for one RayCluster document.
type AutoscalerReport struct {
	Name      string                `json:"name"`
	Namespace string                `json:"namespace,omitempty"`
	Effective *autoscaler.Effective `json:"effective"`
	Container *corev1.Container     `json:"container,omitempty"`
}

var (
	autoscalerLong = templates.LongDesc(`
		Print the options the Ray autoscaler of each RayCluster in SOURCE runs with, and the
		autoscaler sidecar container of its head pod.

		Options that are not declared are shown with their defaults and listed under 'defaulted'.
		The sidecar is only printed for clusters that enable in-tree autoscaling.
	`)

	autoscalerExample = templates.Examples(`
		# Show the effective autoscaler options of a declaration
		rayclusterctl autoscaler ray-cluster.autoscaler.yaml

		# Print only the sidecar container
		rayclusterctl autoscaler ray-cluster.autoscaler.yaml --container-only
	`)
)

func NewAutoscalerOptions(commonOptions *common.Options) *AutoscalerOptions {
	return &AutoscalerOptions{common: commonOptions}
}

func NewAutoscalerCommand(commonOptions *common.Options) *cobra.Command {
	options := NewAutoscalerOptions(commonOptions)

	cmd := &cobra.Command{
		Use:          "autoscaler SOURCE",
		Short:        "Show the effective autoscaler options and sidecar of a RayCluster",
		Long:         autoscalerLong,
		Example:      autoscalerExample,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := options.Complete(cmd, args); err != nil {
				return err
			}
			return options.Run(cmd.Context(), commonOptions.IOStreams.Out)
		},
	}

	cmd.Flags().BoolVar(&options.containerOnly, "container-only", false, "print only the autoscaler sidecar container")
	return cmd
}

func (options *AutoscalerOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return cmdutil.UsageErrorf(cmd, "%s", cmd.Use)
	}
	options.source = args[0]
	return nil
}

func (options *AutoscalerOptions) Run(ctx context.Context, writer io.Writer) error {
	documents, err := options.common.ManifestLoader().Load(ctx, options.source)
	if err != nil {
		return err
	}

	for i, document := range documents {
		cluster := document.Cluster
		effective, err := autoscaler.Resolve(cluster)
		if err != nil {
			return err
		}
		report := AutoscalerReport{Name: cluster.Name, Namespace: cluster.Namespace, Effective: effective}
		if effective.Enabled {
			container, err := autoscaler.BuildContainer(cluster)
			if err != nil {
				return err
			}
			report.Container = &container
		}

		var out interface{} = report
		if options.containerOnly {
			if report.Container == nil {
				return fmt.Errorf("Ray cluster %s does not enable in-tree autoscaling", cluster.Name)
			}
			out = report.Container
		}
		data, err := yaml.Marshal(out)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(writer, "---")
		}
		if _, err := writer.Write(data); err != nil {
			return err
		}
	}
	return nil
}
