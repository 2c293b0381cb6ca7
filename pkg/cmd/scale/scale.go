package scale

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/scale"
)

func NewScaleCommand(commonOptions *common.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scale",
		Short:        "Scale a worker group of a RayCluster",
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 0 {
				fmt.Fprintln(commonOptions.IOStreams.ErrOut, fmt.Errorf("unknown command(s) %q", strings.Join(args, " ")))
			}
			cmd.HelpFunc()(cmd, args)
		},
	}

	cmd.AddCommand(NewScaleFileCommand(commonOptions))
	cmd.AddCommand(NewScaleClusterCommand(commonOptions))
	return cmd
}

// scaleEdit is the worker group change shared by the file and cluster subcommands.
type scaleEdit struct {
	workerGroup     string
	replicas        int32
	minReplicas     int32
	maxReplicas     int32
	workersToDelete []string

	request scale.Request
}

func (e *scaleEdit) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&e.workerGroup, "worker-group", "w", "", "worker group")
	cobra.CheckErr(cmd.MarkFlagRequired("worker-group"))
	cmd.Flags().Int32VarP(&e.replicas, "replicas", "r", 0, "desired number of replicas in worker group")
	cmd.Flags().Int32Var(&e.minReplicas, "min-replicas", 0, "minimum number of replicas in worker group")
	cmd.Flags().Int32Var(&e.maxReplicas, "max-replicas", 0, "maximum number of replicas in worker group")
	cmd.Flags().StringSliceVar(&e.workersToDelete, "delete", nil, "names of worker pods to remove, decreasing replicas accordingly")
}

func (e *scaleEdit) complete(cmd *cobra.Command) {
	e.request = scale.Request{}
	if cmd.Flags().Changed("replicas") {
		e.request.Replicas = &e.replicas
	}
	if cmd.Flags().Changed("min-replicas") {
		e.request.MinReplicas = &e.minReplicas
	}
	if cmd.Flags().Changed("max-replicas") {
		e.request.MaxReplicas = &e.maxReplicas
	}
}

func (e *scaleEdit) validate() error {
	if e.workerGroup == "" {
		return fmt.Errorf("must specify -w/--worker-group")
	}
	if e.request.IsEmpty() && len(e.workersToDelete) == 0 {
		return fmt.Errorf("must specify at least one of -r/--replicas, --min-replicas, --max-replicas or --delete")
	}
	return nil
}

// apply sets the requested replica fields first, then removes the listed workers, so that
// "-r 4 --delete a" leaves 3 replicas. The returned result spans both edits.
func (e *scaleEdit) apply(cluster *rayv1.RayCluster) (*scale.Result, error) {
	var result *scale.Result
	if !e.request.IsEmpty() {
		set, err := scale.SetReplicas(cluster, e.workerGroup, e.request)
		if err != nil {
			return nil, err
		}
		result = set
	}
	if len(e.workersToDelete) > 0 {
		deleted, err := scale.ScaleDown(cluster, e.workerGroup, e.workersToDelete...)
		if err != nil {
			return nil, err
		}
		if result != nil {
			deleted.Previous = result.Previous
		}
		result = deleted
	}
	return result, nil
}
