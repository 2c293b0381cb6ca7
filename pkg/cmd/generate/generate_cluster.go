package generate

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"k8s.io/kubectl/pkg/util/templates"
	"k8s.io/utils/ptr"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/autoscaler"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/generation"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/util"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/validation"
)

type GenerateClusterOptions struct {
	common               *common.Options
	clusterName          string
	rayVersion           string
	image                string
	headCPU              string
	headMemory           string
	headGPU              string
	headRayStartParams   map[string]string
	headServiceType      string
	headPreStop          string
	workerGroup          string
	workerCPU            string
	workerMemory         string
	workerGPU            string
	workerRayStartParams map[string]string
	workerPreStop        string
	workerReplicas       int32
	workerMinReplicas    int32
	workerMaxReplicas    int32
	enableAutoscaling    bool
	upscalingMode        string
	idleTimeoutSeconds   int32
	waitForHead          bool
	labels               map[string]string
	annotations          map[string]string
	outputFile           string

	minReplicasSet bool
	maxReplicasSet bool
}

var (
	generateClusterLong = templates.LongDesc(`
		Generate a RayCluster declaration with a head group and one worker group.

		Requests and limits are set to the same values, and the generated declaration passes
		'rayclusterctl validate --strict'.
	`)

	generateClusterExample = templates.Examples(fmt.Sprintf(`
		# Generate a Ray cluster using default values
		rayclusterctl generate cluster sample-cluster

		# Generate an autoscaling Ray cluster with worker bounds
		rayclusterctl generate cluster sample-cluster --ray-version %s --image %s --enable-autoscaling --worker-min-replicas 1 --worker-max-replicas 10

		# Add preStop hooks and write the result to a file
		rayclusterctl generate cluster sample-cluster --head-prestop %q --worker-prestop %q -f sample-cluster.yaml
	`, util.RayVersion, util.RayImage, util.DefaultPreStopCommand, util.DefaultPreStopCommand))
)

func NewGenerateClusterOptions(commonOptions *common.Options) *GenerateClusterOptions {
	return &GenerateClusterOptions{
		common: commonOptions,
	}
}

func NewGenerateClusterCommand(commonOptions *common.Options) *cobra.Command {
	options := NewGenerateClusterOptions(commonOptions)

	cmd := &cobra.Command{
		Use:          "cluster CLUSTERNAME",
		Short:        "Generate a RayCluster declaration",
		Long:         generateClusterLong,
		Example:      generateClusterExample,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := options.Complete(cmd, args); err != nil {
				return err
			}
			if err := options.Validate(); err != nil {
				return err
			}
			return options.Run(commonOptions.IOStreams.Out)
		},
	}

	cmd.Flags().StringVar(&options.rayVersion, "ray-version", util.RayVersion, "Ray version to use")
	cmd.Flags().StringVar(&options.image, "image", "", "container image to use (default rayproject/ray:<ray-version>)")
	cmd.Flags().StringVar(&options.headCPU, "head-cpu", util.DefaultHeadCPU, "number of CPUs in the Ray head")
	cmd.Flags().StringVar(&options.headMemory, "head-memory", util.DefaultHeadMemory, "amount of memory in the Ray head")
	cmd.Flags().StringVar(&options.headGPU, "head-gpu", util.DefaultHeadGPU, "number of GPUs in the Ray head")
	cmd.Flags().StringToStringVar(&options.headRayStartParams, "head-ray-start-params", nil, "ray start parameters of the head, e.g. num-cpus=0")
	cmd.Flags().StringVar(&options.headServiceType, "head-service-type", string(corev1.ServiceTypeClusterIP), "Kubernetes service type of the head service")
	cmd.Flags().StringVar(&options.headPreStop, "head-prestop", "", "preStop command of the head container, split with shell quoting rules")
	cmd.Flags().StringVar(&options.workerGroup, "worker-group", util.DefaultWorkerGroup, "name of the worker group")
	cmd.Flags().Int32Var(&options.workerReplicas, "worker-replicas", util.DefaultWorkerReplicas, "desired worker group replicas")
	cmd.Flags().Int32Var(&options.workerMinReplicas, "worker-min-replicas", 0, "minimum worker group replicas")
	cmd.Flags().Int32Var(&options.workerMaxReplicas, "worker-max-replicas", 0, "maximum worker group replicas")
	cmd.Flags().StringVar(&options.workerCPU, "worker-cpu", util.DefaultWorkerCPU, "number of CPUs in each worker group replica")
	cmd.Flags().StringVar(&options.workerMemory, "worker-memory", util.DefaultWorkerMemory, "amount of memory in each worker group replica")
	cmd.Flags().StringVar(&options.workerGPU, "worker-gpu", util.DefaultWorkerGPU, "number of GPUs in each worker group replica")
	cmd.Flags().StringToStringVar(&options.workerRayStartParams, "worker-ray-start-params", nil, "ray start parameters of the workers")
	cmd.Flags().StringVar(&options.workerPreStop, "worker-prestop", "", "preStop command of the worker containers, split with shell quoting rules")
	cmd.Flags().BoolVar(&options.enableAutoscaling, "enable-autoscaling", false, "enable in-tree autoscaling")
	cmd.Flags().StringVar(&options.upscalingMode, "upscaling-mode", string(autoscaler.DefaultUpscalingMode), "autoscaler upscaling mode: Default, Aggressive or Conservative")
	cmd.Flags().Int32Var(&options.idleTimeoutSeconds, "idle-timeout-seconds", autoscaler.DefaultIdleTimeoutSeconds, "seconds before an idle worker is removed by the autoscaler")
	cmd.Flags().BoolVar(&options.waitForHead, "wait-for-head", false, "add an init container to workers that waits for the head service")
	cmd.Flags().StringToStringVar(&options.labels, "labels", nil, "labels of the RayCluster")
	cmd.Flags().StringToStringVar(&options.annotations, "annotations", nil, "annotations of the RayCluster")
	cmd.Flags().StringVarP(&options.outputFile, "file", "f", "", "write the declaration to this file instead of standard output")
	return cmd
}

func (options *GenerateClusterOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return cmdutil.UsageErrorf(cmd, "%s", cmd.Use)
	}
	options.clusterName = args[0]

	if options.image == "" {
		options.image = fmt.Sprintf("rayproject/ray:%s", options.rayVersion)
	}
	options.minReplicasSet = cmd.Flags().Changed("worker-min-replicas")
	options.maxReplicasSet = cmd.Flags().Changed("worker-max-replicas")
	return nil
}

func (options *GenerateClusterOptions) Validate() error {
	switch rayv1.UpscalingMode(options.upscalingMode) {
	case rayv1.UpscalingModeDefault, rayv1.UpscalingModeAggressive, rayv1.UpscalingModeConservative:
	default:
		return fmt.Errorf("unsupported upscaling mode %q, must be one of Default, Aggressive or Conservative", options.upscalingMode)
	}
	if options.idleTimeoutSeconds < 0 {
		return fmt.Errorf("idle-timeout-seconds must not be negative")
	}
	return nil
}

func (options *GenerateClusterOptions) yamlObject() (*generation.RayClusterYamlObject, error) {
	headPreStop, err := generation.ParsePreStopCommand(options.headPreStop)
	if err != nil {
		return nil, err
	}
	workerPreStop, err := generation.ParsePreStopCommand(options.workerPreStop)
	if err != nil {
		return nil, err
	}

	object := &generation.RayClusterYamlObject{
		ClusterName: options.clusterName,
		Namespace:   options.common.Namespace(),
		Labels:      options.labels,
		Annotations: options.annotations,
		RayClusterSpecObject: generation.RayClusterSpecObject{
			RayVersion:                        options.rayVersion,
			Image:                             options.image,
			HeadCPU:                           options.headCPU,
			HeadMemory:                        options.headMemory,
			HeadGPU:                           options.headGPU,
			HeadRayStartParams:                options.headRayStartParams,
			HeadServiceType:                   options.headServiceType,
			HeadLifecyclePrestopExecCommand:   headPreStop,
			WorkerGrpName:                     options.workerGroup,
			WorkerCPU:                         options.workerCPU,
			WorkerMemory:                      options.workerMemory,
			WorkerGPU:                         options.workerGPU,
			WorkerRayStartParams:              options.workerRayStartParams,
			WorkerLifecyclePrestopExecCommand: workerPreStop,
			WorkerReplicas:                    options.workerReplicas,
			WaitForHead:                       options.waitForHead,
		},
	}
	if options.minReplicasSet {
		object.WorkerMinReplicas = ptr.To(options.workerMinReplicas)
	}
	if options.maxReplicasSet {
		object.WorkerMaxReplicas = ptr.To(options.workerMaxReplicas)
	}
	if options.enableAutoscaling {
		object.Autoscaler = &generation.AutoscalerSpecObject{
			UpscalingMode:      options.upscalingMode,
			IdleTimeoutSeconds: options.idleTimeoutSeconds,
		}
	}
	return object, object.Validate()
}

func (options *GenerateClusterOptions) Run(writer io.Writer) error {
	object, err := options.yamlObject()
	if err != nil {
		return err
	}
	rayCluster := object.GenerateRayCluster()

	// Flag combinations such as replicas outside of the bounds are caught before anything is written.
	report := validation.ValidateRayCluster(rayCluster, options.common.ValidationOptions())
	if err := report.ToError(rayCluster.Name); err != nil {
		return err
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(options.common.IOStreams.ErrOut, "warning: %s\n", warning)
	}

	rayClusterYaml, err := generation.ConvertRayClusterToYaml(rayCluster)
	if err != nil {
		return fmt.Errorf("error creating RayCluster YAML: %w", err)
	}

	if options.outputFile != "" {
		if err := os.WriteFile(options.outputFile, []byte(rayClusterYaml), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", options.outputFile, err)
		}
		fmt.Fprintf(writer, "Wrote RayCluster %s to %s\n", rayCluster.Name, options.outputFile)
		return nil
	}
	fmt.Fprint(writer, rayClusterYaml)
	return nil
}
