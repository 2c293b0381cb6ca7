package cmd

import (
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"

	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/apply"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/autoscaler"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/config"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/describe"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/generate"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/scale"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/validate"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/version"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/webhook"
)

func NewRayClusterCtlCommand(streams genericclioptions.IOStreams) *cobra.Command {
	commonOptions := common.NewOptions(streams)

	cmd := &cobra.Command{
		Use:          "rayclusterctl",
		Short:        "Validate, generate and scale RayCluster declarations",
		Long:         "Work with RayCluster declarations offline, and apply them to Kubernetes clusters running KubeRay.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return commonOptions.Initialize(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			commonOptions.Close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)
	commonOptions.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(validate.NewValidateCommand(commonOptions))
	cmd.AddCommand(generate.NewGenerateCommand(commonOptions))
	cmd.AddCommand(scale.NewScaleCommand(commonOptions))
	cmd.AddCommand(autoscaler.NewAutoscalerCommand(commonOptions))
	cmd.AddCommand(describe.NewDescribeCommand(commonOptions))
	cmd.AddCommand(apply.NewApplyCommand(commonOptions))
	cmd.AddCommand(webhook.NewWebhookCommand(commonOptions))
	cmd.AddCommand(config.NewConfigCommand(commonOptions))
	cmd.AddCommand(version.NewVersionCommand(commonOptions))
	return cmd
}
