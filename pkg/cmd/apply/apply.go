package apply

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"k8s.io/kubectl/pkg/util/templates"
	ctrl "sigs.k8s.io/controller-runtime"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/client"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/manifest"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/validation"
)

type ApplyOptions struct {
	common *common.Options
	source string
	dryRun bool
}

var (
	applyLong = templates.LongDesc(`
		Validate the RayCluster declarations in SOURCE and create or update them in the
		Kubernetes cluster.

		Nothing is sent when any declaration is invalid. Declarations without a namespace go to
		--namespace, or to the configured default namespace.
	`)

	applyExample = templates.Examples(`
		# Apply a declaration
		rayclusterctl apply ray-cluster.autoscaler.yaml

		# Check what the API server would accept without persisting anything
		rayclusterctl apply ray-cluster.autoscaler.yaml --dry-run
	`)
)

func NewApplyOptions(commonOptions *common.Options) *ApplyOptions {
	return &ApplyOptions{common: commonOptions}
}

func NewApplyCommand(commonOptions *common.Options) *cobra.Command {
	options := NewApplyOptions(commonOptions)

	cmd := &cobra.Command{
		Use:          "apply SOURCE",
		Short:        "Validate and create or update RayClusters in a Kubernetes cluster",
		Long:         applyLong,
		Example:      applyExample,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := options.Complete(cmd, args); err != nil {
				return err
			}
			if err := commonOptions.CheckContext(); err != nil {
				return err
			}
			k8sClient, err := client.NewClient(commonOptions.Factory())
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			return options.Run(cmd.Context(), k8sClient, commonOptions.IOStreams.Out)
		},
	}

	cmd.Flags().BoolVar(&options.dryRun, "dry-run", false, "submit server-side dry-run requests without persisting anything")
	cmd.Flags().String("field-manager", configapi.DefaultFieldManager, "name of the manager recorded for the fields this command writes")
	return cmd
}

func (options *ApplyOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return cmdutil.UsageErrorf(cmd, "%s", cmd.Use)
	}
	options.source = args[0]
	return nil
}

func (options *ApplyOptions) Run(ctx context.Context, k8sClient client.Client, writer io.Writer) error {
	logger := ctrl.LoggerFrom(ctx).WithName("apply")
	documents, err := options.common.ManifestLoader().Load(ctx, options.source)
	if err != nil {
		return err
	}
	if err := options.prepare(documents); err != nil {
		return err
	}

	applyOptions := client.ApplyOptions{
		FieldManager: options.common.Config().FieldManager,
		DryRun:       options.dryRun,
	}
	suffix := ""
	if options.dryRun {
		suffix = " (server dry run)"
	}
	for _, document := range documents {
		cluster := document.Cluster
		logger.V(1).Info("Applying RayCluster", "name", cluster.Name, "namespace", cluster.Namespace, "dryRun", options.dryRun)
		_, created, err := k8sClient.ApplyRayCluster(ctx, cluster, applyOptions)
		if err != nil {
			return err
		}
		action := "configured"
		if created {
			action = "created"
		}
		fmt.Fprintf(writer, "raycluster.ray.io/%s %s in namespace %s%s\n", cluster.Name, action, cluster.Namespace, suffix)
	}
	return nil
}

// prepare resolves the namespace of every document and validates all of them before anything is
// sent to the cluster.
func (options *ApplyOptions) prepare(documents []manifest.Document) error {
	validationOptions := options.common.ValidationOptions()
	namespace := options.common.Namespace()
	for _, document := range documents {
		cluster := document.Cluster
		switch {
		case cluster.Namespace == "":
			cluster.Namespace = namespace
		case options.common.ExplicitNamespace() && cluster.Namespace != namespace:
			return fmt.Errorf("the namespace from the provided object %q does not match the namespace %q. You must pass '--namespace=%s' to perform this operation",
				cluster.Namespace, namespace, cluster.Namespace)
		}

		report := validation.ValidateRayCluster(cluster, validationOptions)
		if err := report.ToError(cluster.Name); err != nil {
			return err
		}
		for _, warning := range report.Warnings {
			fmt.Fprintf(options.common.IOStreams.ErrOut, "warning: %s: %s\n", document.Name(), warning)
		}
	}
	return nil
}
