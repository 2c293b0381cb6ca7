package describe

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"k8s.io/kubectl/pkg/util/templates"

	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/summary"
)

type DescribeOptions struct {
	common *common.Options
	source string
}

var (
	describeLong = templates.LongDesc(`
		Describe the worker groups of each RayCluster in SOURCE and the resources the cluster
		requests at its minimum, desired and maximum size, head included.
	`)

	describeExample = templates.Examples(`
		# Describe a declaration
		rayclusterctl describe ray-cluster.autoscaler.yaml
	`)
)

func NewDescribeOptions(commonOptions *common.Options) *DescribeOptions {
	return &DescribeOptions{common: commonOptions}
}

func NewDescribeCommand(commonOptions *common.Options) *cobra.Command {
	options := NewDescribeOptions(commonOptions)

	cmd := &cobra.Command{
		Use:          "describe SOURCE",
		Short:        "Summarize the worker groups and resource footprint of a RayCluster",
		Long:         describeLong,
		Example:      describeExample,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := options.Complete(cmd, args); err != nil {
				return err
			}
			return options.Run(cmd.Context(), commonOptions.IOStreams.Out)
		},
	}
	return cmd
}

func (options *DescribeOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return cmdutil.UsageErrorf(cmd, "%s", cmd.Use)
	}
	options.source = args[0]
	return nil
}

func (options *DescribeOptions) Run(ctx context.Context, writer io.Writer) error {
	documents, err := options.common.ManifestLoader().Load(ctx, options.source)
	if err != nil {
		return err
	}
	for i, document := range documents {
		if i > 0 {
			fmt.Fprintln(writer)
		}
		printSummary(writer, summary.Summarize(document.Cluster))
	}
	return nil
}

func printSummary(writer io.Writer, s *summary.Summary) {
	fmt.Fprintf(writer, "Name:         %s\n", s.Name)
	if s.Namespace != "" {
		fmt.Fprintf(writer, "Namespace:    %s\n", s.Namespace)
	}
	fmt.Fprintf(writer, "Ray Version:  %s\n", s.RayVersion)
	fmt.Fprintf(writer, "Autoscaling:  %t\n", s.Autoscaling)
	fmt.Fprintf(writer, "Head:         %s\n", formatResources(s.HeadRequests))
	fmt.Fprintln(writer)

	groups := tablewriter.NewWriter(writer)
	groups.SetHeader([]string{"Worker Group", "Min", "Desired", "Max", "Hosts", "Pending Deletions", "Requests per Pod"})
	for _, row := range s.Groups {
		groups.Append([]string{
			row.Name,
			strconv.Itoa(int(row.MinReplicas)),
			strconv.Itoa(int(row.Replicas)),
			strconv.Itoa(int(row.MaxReplicas)),
			strconv.Itoa(int(row.NumOfHosts)),
			strconv.Itoa(row.PendingDeletions),
			formatResources(row.PodRequests),
		})
	}
	groups.Render()
	fmt.Fprintln(writer)

	atMin, atDesired, atMax := s.TotalWorkers()
	maxLabel := "maximum"
	if s.MaxUnbounded {
		maxLabel = "maximum (unbounded)"
	}
	totals := tablewriter.NewWriter(writer)
	totals.SetHeader([]string{"Size", "Workers", "Requests"})
	totals.AppendBulk([][]string{
		{"minimum", strconv.FormatInt(atMin, 10), formatResources(s.AtMin)},
		{"desired", strconv.FormatInt(atDesired, 10), formatResources(s.AtDesired)},
		{maxLabel, strconv.FormatInt(atMax, 10), formatResources(s.AtMax)},
	})
	totals.Render()
}

// formatResources renders a resource list as "cpu=1, memory=2G" with names sorted.
func formatResources(list corev1.ResourceList) string {
	if len(list) == 0 {
		return "-"
	}
	names := make([]string, 0, len(list))
	for name := range list {
		names = append(names, string(name))
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		quantity := list[corev1.ResourceName(name)]
		parts = append(parts, fmt.Sprintf("%s=%s", name, quantity.String()))
	}
	return strings.Join(parts, ", ")
}
