package validate

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	cmap "github.com/orcaman/concurrent-map"
	"github.com/spf13/cobra"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"k8s.io/kubectl/pkg/util/templates"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/yaml"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/manifest"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/metrics"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/validation"
)

const (
	OutputText = "text"
	OutputYAML = "yaml"
)

type ValidateOptions struct {
	common      *common.Options
	sources     []string
	output      string
	metricsFile string
}

var (
	validateLong = templates.LongDesc(`
		Validate RayCluster declarations without contacting a Kubernetes cluster.

		SOURCE is a file, - for standard input, or an http(s) URL. Every RayCluster document of a
		multi-document stream is checked: worker group bounds, resource requests and limits,
		Ray image tags against spec.rayVersion and autoscaler options. The command exits with an
		error when any declaration is invalid.
	`)

	validateExample = templates.Examples(`
		# Validate a declaration
		rayclusterctl validate ray-cluster.autoscaler.yaml

		# Validate several sources, treating convention findings as errors
		rayclusterctl validate --strict cluster-a.yaml https://example.com/cluster-b.yaml

		# Validate from standard input and print a YAML report
		cat ray-cluster.yaml | rayclusterctl validate - -o yaml
	`)
)

// SourceReport holds the findings for every document of one source.
type SourceReport struct {
	Source    string           `json:"source"`
	Error     string           `json:"error,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
	Documents []DocumentReport `json:"documents,omitempty"`
	// Skipped lists the documents that are not ray.io/v1 RayClusters.
	Skipped []manifest.SkippedDocument `json:"skipped,omitempty"`
}

type DocumentReport struct {
	Name      string   `json:"name"`
	Namespace string   `json:"namespace,omitempty"`
	Index     int      `json:"index"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

func (r *SourceReport) invalid() bool {
	if r.Error != "" {
		return true
	}
	for _, document := range r.Documents {
		if len(document.Errors) > 0 {
			return true
		}
	}
	return false
}

func NewValidateOptions(commonOptions *common.Options) *ValidateOptions {
	return &ValidateOptions{
		common: commonOptions,
		output: OutputText,
	}
}

func NewValidateCommand(commonOptions *common.Options) *cobra.Command {
	options := NewValidateOptions(commonOptions)

	cmd := &cobra.Command{
		Use:          "validate SOURCE...",
		Short:        "Validate RayCluster declarations",
		Long:         validateLong,
		Example:      validateExample,
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

	cmd.Flags().StringVarP(&options.output, "output", "o", OutputText, "output format: text or yaml")
	cmd.Flags().StringVar(&options.metricsFile, "metrics-file", "", "write validation metrics in Prometheus text format to this file")
	cmd.Flags().Int("concurrency", configapi.DefaultConcurrency, "number of sources validated in parallel")
	return cmd
}

func (options *ValidateOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmdutil.UsageErrorf(cmd, "%s", cmd.Use)
	}
	options.sources = args
	return nil
}

func (options *ValidateOptions) Validate() error {
	if options.output != OutputText && options.output != OutputYAML {
		return fmt.Errorf("unsupported output format %q, must be one of %s or %s", options.output, OutputText, OutputYAML)
	}
	return nil
}

func (options *ValidateOptions) Run(ctx context.Context, writer io.Writer) error {
	reports := options.validateSources(ctx)

	invalid := 0
	for _, report := range reports {
		if report.invalid() {
			invalid++
		}
	}

	if err := options.writeReports(writer, reports); err != nil {
		return err
	}
	if options.metricsFile != "" {
		if err := writeMetrics(options.metricsFile, reports); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d sources failed validation", invalid, len(reports))
	}
	return nil
}

// validateSources loads and validates every source with a bounded number of workers and returns
// the reports in the order the sources were given.
func (options *ValidateOptions) validateSources(ctx context.Context) []*SourceReport {
	logger := ctrl.LoggerFrom(ctx).WithName("validate")
	loader := options.common.ManifestLoader()
	validationOptions := options.common.ValidationOptions()

	sources := uniqueSources(options.sources)
	workers := max(1, min(options.common.Config().Concurrency, len(sources)))

	results := cmap.New()
	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for source := range jobs {
				logger.V(1).Info("Validating source", "source", source)
				results.Set(source, validateSource(ctx, loader, validationOptions, source))
			}
		}()
	}
	for _, source := range sources {
		jobs <- source
	}
	close(jobs)
	wg.Wait()

	reports := make([]*SourceReport, 0, len(sources))
	for _, source := range sources {
		if result, ok := results.Get(source); ok {
			reports = append(reports, result.(*SourceReport))
		}
	}
	return reports
}

func uniqueSources(sources []string) []string {
	seen := make(map[string]bool, len(sources))
	var unique []string
	for _, source := range sources {
		if !seen[source] {
			seen[source] = true
			unique = append(unique, source)
		}
	}
	return unique
}

func validateSource(ctx context.Context, loader *manifest.Loader, opts validation.Options, source string) *SourceReport {
	report := &SourceReport{Source: source}
	stream, err := loader.LoadStream(ctx, source)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Warnings = stream.Warnings()
	report.Skipped = stream.Skipped

	for _, document := range stream.Documents {
		result := validation.ValidateRayCluster(document.Cluster, opts)
		documentReport := DocumentReport{
			Name:      document.Cluster.Name,
			Namespace: document.Cluster.Namespace,
			Index:     document.Index,
			Warnings:  append(append([]string(nil), document.Warnings...), result.Warnings...),
		}
		for _, fieldErr := range result.Errors {
			documentReport.Errors = append(documentReport.Errors, fieldErr.Error())
		}
		report.Documents = append(report.Documents, documentReport)
	}
	return report
}

func (options *ValidateOptions) writeReports(writer io.Writer, reports []*SourceReport) error {
	if options.output == OutputYAML {
		data, err := yaml.Marshal(reports)
		if err != nil {
			return err
		}
		_, err = writer.Write(data)
		return err
	}

	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	for _, report := range reports {
		if report.Error != "" {
			red.Fprintf(writer, "✖ %s: %s\n", report.Source, report.Error)
			continue
		}
		for _, warning := range report.Warnings {
			yellow.Fprintf(writer, "! %s\n", warning)
		}
		for _, document := range report.Documents {
			name := fmt.Sprintf("%s#%d (%s)", report.Source, document.Index, document.Name)
			switch {
			case len(document.Errors) > 0:
				red.Fprintf(writer, "✖ %s: %d errors, %d warnings\n", name, len(document.Errors), len(document.Warnings))
			case len(document.Warnings) > 0:
				yellow.Fprintf(writer, "! %s: valid with %d warnings\n", name, len(document.Warnings))
			default:
				green.Fprintf(writer, "✔ %s: valid\n", name)
			}
			for _, err := range document.Errors {
				red.Fprintf(writer, "    error: %s\n", err)
			}
			for _, warning := range document.Warnings {
				yellow.Fprintf(writer, "    warning: %s\n", warning)
			}
		}
	}
	return nil
}

func writeMetrics(filename string, reports []*SourceReport) error {
	manager := metrics.NewValidationMetricsManager()
	for _, report := range reports {
		if report.Error != "" {
			manager.ObserveValidation(metrics.SourceCLI, report.Source, "", 1, 0)
			continue
		}
		for _, document := range report.Documents {
			manager.ObserveValidation(metrics.SourceCLI, document.Name, document.Namespace, len(document.Errors), len(document.Warnings))
		}
	}
	return manager.WriteToTextfile(filename)
}
