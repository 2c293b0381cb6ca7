package version

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/ray-project/kuberay/rayclusterctl/pkg/client"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
)

var Version = "development"

type VersionOptions struct {
	common     *common.Options
	clientOnly bool
}

func NewVersionOptions(commonOptions *common.Options) *VersionOptions {
	return &VersionOptions{common: commonOptions}
}

func NewVersionCommand(commonOptions *common.Options) *cobra.Command {
	options := NewVersionOptions(commonOptions)

	cmd := &cobra.Command{
		Use:          "version",
		Short:        "Output the version of rayclusterctl and of the KubeRay operator",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var k8sClient client.Client
			if !options.clientOnly {
				if err := commonOptions.CheckContext(); err != nil {
					return err
				}
				var err error
				k8sClient, err = client.NewClient(commonOptions.Factory())
				if err != nil {
					return fmt.Errorf("failed to create client: %w", err)
				}
			}
			return options.Run(cmd.Context(), k8sClient, debug.ReadBuildInfo, commonOptions.IOStreams.Out)
		},
	}

	cmd.Flags().BoolVar(&options.clientOnly, "client", false, "only print the rayclusterctl version, without contacting a cluster")
	return cmd
}

// Run prints the tool version and, when k8sClient is not nil, the KubeRay operator version.
func (options *VersionOptions) Run(ctx context.Context, k8sClient client.Client, buildInfo func() (*debug.BuildInfo, bool), writer io.Writer) error {
	fmt.Fprintln(writer, "rayclusterctl version:", versionString(buildInfo))
	if k8sClient == nil {
		return nil
	}

	operatorVersion, err := k8sClient.GetKubeRayOperatorVersion(ctx)
	if err != nil {
		wrappedError := fmt.Errorf(`warning: KubeRay operator installation cannot be found: %w. Did you install it with the name "kuberay-operator"?`, err)
		fmt.Fprintln(writer, wrappedError)
	} else {
		fmt.Fprintln(writer, "KubeRay operator version:", operatorVersion)
	}
	return nil
}

func versionString(buildInfo func() (*debug.BuildInfo, bool)) string {
	info, ok := buildInfo()
	if !ok {
		return Version
	}
	var revision, buildTime string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			buildTime = setting.Value
		}
	}
	if revision == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s, built %s)", Version, revision, buildTime)
}
