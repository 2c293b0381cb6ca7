package scale

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"k8s.io/kubectl/pkg/util/templates"

	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/manifest"
)

type ScaleFileOptions struct {
	common  *common.Options
	edit    scaleEdit
	path    string
	inPlace bool
}

var (
	scaleFileLong = templates.LongDesc(`
		Scale a worker group of a RayCluster declaration file.

		The edited declaration is printed to standard output, or written back to the file with
		--in-place. Other documents of the file are kept as they are, but comments inside the
		edited RayCluster document are not preserved. Edits never leave a worker
		group outside of minReplicas <= replicas <= maxReplicas, and other worker groups are
		left untouched.
	`)

	scaleFileExample = templates.Examples(`
		# Set a worker group to 3 replicas and print the result
		rayclusterctl scale file ray-cluster.yaml -w small-group -r 3

		# Raise the bounds of a worker group in place
		rayclusterctl scale file ray-cluster.yaml -w small-group --min-replicas 2 --max-replicas 20 --in-place

		# Remove two specific workers
		rayclusterctl scale file ray-cluster.yaml -w small-group --delete worker-a,worker-b --in-place
	`)
)

func NewScaleFileOptions(commonOptions *common.Options) *ScaleFileOptions {
	return &ScaleFileOptions{common: commonOptions}
}

func NewScaleFileCommand(commonOptions *common.Options) *cobra.Command {
	options := NewScaleFileOptions(commonOptions)

	cmd := &cobra.Command{
		Use:          "file (PATH) (-w/--worker-group WORKERGROUP) [-r/--replicas N] [--min-replicas N] [--max-replicas N] [--delete WORKER,...]",
		Short:        "Scale a worker group in a declaration file",
		Long:         scaleFileLong,
		Example:      scaleFileExample,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := options.Complete(cmd, args); err != nil {
				return err
			}
			if err := options.Validate(); err != nil {
				return err
			}
			return options.Run(cmd.Context(), commonOptions.IOStreams.Out)
		},
	}

	options.edit.addFlags(cmd)
	cmd.Flags().BoolVar(&options.inPlace, "in-place", false, "write the result back to the file")
	return cmd
}

func (options *ScaleFileOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return cmdutil.UsageErrorf(cmd, "%s", cmd.Use)
	}
	options.path = args[0]
	options.edit.complete(cmd)
	return nil
}

func (options *ScaleFileOptions) Validate() error {
	if options.inPlace && options.path == manifest.StdinSource {
		return fmt.Errorf("--in-place cannot be used with standard input")
	}
	return options.edit.validate()
}

func (options *ScaleFileOptions) Run(ctx context.Context, writer io.Writer) error {
	stream, err := options.common.ManifestLoader().LoadStream(ctx, options.path)
	if err != nil {
		return err
	}
	if len(stream.Documents) != 1 {
		return fmt.Errorf("%s contains %d RayCluster documents, scale file edits exactly one", options.path, len(stream.Documents))
	}
	document := stream.Documents[0]
	cluster := document.Cluster

	result, err := options.edit.apply(cluster)
	if err != nil {
		return fmt.Errorf("failed to scale worker group %s in Ray cluster %s: %w", options.edit.workerGroup, cluster.Name, err)
	}

	encoded, err := manifest.Encode(cluster)
	if err != nil {
		return err
	}
	content, err := stream.Replace(document.Index, encoded)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Scaled worker group %s in Ray cluster %s from %s to %s\n", result.GroupName, cluster.Name, result.Previous, result.Current)
	if !result.Changed() {
		message = fmt.Sprintf("Worker group %s in Ray cluster %s already has %s\n", result.GroupName, cluster.Name, result.Current)
	}

	if !options.inPlace {
		fmt.Fprint(options.common.IOStreams.ErrOut, message)
		_, err := writer.Write(content)
		return err
	}
	if err := os.WriteFile(options.path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", options.path, err)
	}
	fmt.Fprint(writer, message)
	return nil
}
