package generate

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
)

func NewGenerateCommand(commonOptions *common.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate RayCluster declarations",
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 0 {
				fmt.Fprintln(commonOptions.IOStreams.ErrOut, fmt.Errorf("unknown command(s) %q", strings.Join(args, " ")))
			}
			cmd.HelpFunc()(cmd, args)
		},
	}

	cmd.AddCommand(NewGenerateClusterCommand(commonOptions))
	return cmd
}
