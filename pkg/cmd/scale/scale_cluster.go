package scale

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"k8s.io/kubectl/pkg/util/templates"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/client"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
)

type ScaleClusterOptions struct {
	common    *common.Options
	edit      scaleEdit
	namespace string
	cluster   string
	dryRun    bool
}

var (
	scaleClusterLong = templates.LongDesc(`
		Scale a worker group of a RayCluster in a Kubernetes cluster.

		The same rules as 'rayclusterctl scale file' apply before the update is sent.
	`)

	scaleClusterExample = templates.Examples(`
		# Scale a Ray cluster by setting one of its worker groups to 3 replicas
		rayclusterctl scale cluster my-cluster --worker-group my-group --replicas 3

		# Remove a specific worker
		rayclusterctl scale cluster my-cluster -w my-group --delete my-cluster-worker-my-group-abcde
	`)
)

func NewScaleClusterOptions(commonOptions *common.Options) *ScaleClusterOptions {
	return &ScaleClusterOptions{common: commonOptions}
}

func NewScaleClusterCommand(commonOptions *common.Options) *cobra.Command {
	options := NewScaleClusterOptions(commonOptions)

	cmd := &cobra.Command{
		Use:          "cluster (RAYCLUSTER) (-w/--worker-group WORKERGROUP) [-r/--replicas N] [--min-replicas N] [--max-replicas N] [--delete WORKER,...]",
		Short:        "Scale a worker group of a live Ray cluster",
		Long:         scaleClusterLong,
		Example:      scaleClusterExample,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := options.Complete(cmd, args); err != nil {
				return err
			}
			if err := options.Validate(); err != nil {
				return err
			}
			k8sClient, err := client.NewClient(commonOptions.Factory())
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			return options.Run(cmd.Context(), k8sClient, commonOptions.IOStreams.Out)
		},
	}

	options.edit.addFlags(cmd)
	cmd.Flags().BoolVar(&options.dryRun, "dry-run", false, "send the update as a server-side dry run")
	cmd.Flags().String("field-manager", configapi.DefaultFieldManager, "name of the manager recorded for the fields this command writes")
	return cmd
}

func (options *ScaleClusterOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return cmdutil.UsageErrorf(cmd, "%s", cmd.Use)
	}
	options.cluster = args[0]
	options.namespace = options.common.Namespace()
	options.edit.complete(cmd)
	return nil
}

func (options *ScaleClusterOptions) Validate() error {
	return options.edit.validate()
}

func (options *ScaleClusterOptions) Run(ctx context.Context, k8sClient client.Client, writer io.Writer) error {
	cluster, err := k8sClient.GetRayCluster(ctx, options.namespace, options.cluster)
	if err != nil {
		return fmt.Errorf("failed to scale worker group %s in Ray cluster %s in namespace %s: %w", options.edit.workerGroup, options.cluster, options.namespace, err)
	}

	result, err := options.edit.apply(cluster)
	if err != nil {
		return fmt.Errorf("failed to scale worker group %s in Ray cluster %s in namespace %s: %w", options.edit.workerGroup, options.cluster, options.namespace, err)
	}
	if !result.Changed() {
		fmt.Fprintf(writer, "worker group %s in Ray cluster %s in namespace %s already has %s. Skipping\n", options.edit.workerGroup, options.cluster, options.namespace, result.Current)
		return nil
	}

	_, err = k8sClient.UpdateRayCluster(ctx, cluster, client.ApplyOptions{
		FieldManager: options.common.Config().FieldManager,
		DryRun:       options.dryRun,
	})
	if err != nil {
		return fmt.Errorf("failed to scale worker group %s in Ray cluster %s in namespace %s: %w", options.edit.workerGroup, options.cluster, options.namespace, err)
	}

	fmt.Fprintf(writer, "Scaled worker group %s in Ray cluster %s in namespace %s from %s to %s\n", options.edit.workerGroup, options.cluster, options.namespace, result.Previous, result.Current)
	return nil
}
