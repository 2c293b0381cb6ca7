package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	SourceCLI     = "cli"
	SourceWebhook = "webhook"

	ResultValid   = "valid"
	ResultWarning = "warning"
	ResultInvalid = "invalid"

	SeverityError   = "error"
	SeverityWarning = "warning"
)

type ValidationMetricsObserver interface {
	ObserveValidation(source, name, namespace string, errors, warnings int)
}

// ValidationMetricsManager implements the prometheus.Collector and ValidationMetricsObserver interface to collect validation metrics.
type ValidationMetricsManager struct {
	validationsTotal   *prometheus.CounterVec
	validationFindings *prometheus.GaugeVec
}

// NewValidationMetricsManager creates a new ValidationMetricsManager instance.
func NewValidationMetricsManager() *ValidationMetricsManager {
	manager := &ValidationMetricsManager{
		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rayclusterctl_validations_total",
				Help: "The number of RayCluster declarations validated, by source and result",
			},
			[]string{"source", "result"},
		),
		validationFindings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rayclusterctl_validation_findings",
				Help: "The number of findings of the latest validation of a RayCluster, by severity",
			},
			[]string{"name", "namespace", "severity"},
		),
	}
	return manager
}

// Describe implements prometheus.Collector interface Describe method.
func (c *ValidationMetricsManager) Describe(ch chan<- *prometheus.Desc) {
	c.validationsTotal.Describe(ch)
	c.validationFindings.Describe(ch)
}

// Collect implements prometheus.Collector interface Collect method.
func (c *ValidationMetricsManager) Collect(ch chan<- prometheus.Metric) {
	c.validationsTotal.Collect(ch)
	c.validationFindings.Collect(ch)
}

func (c *ValidationMetricsManager) ObserveValidation(source, name, namespace string, errors, warnings int) {
	result := ResultValid
	switch {
	case errors > 0:
		result = ResultInvalid
	case warnings > 0:
		result = ResultWarning
	}
	c.validationsTotal.WithLabelValues(source, result).Inc()
	c.validationFindings.WithLabelValues(name, namespace, SeverityError).Set(float64(errors))
	c.validationFindings.WithLabelValues(name, namespace, SeverityWarning).Set(float64(warnings))
}

// WriteToTextfile writes the collected metrics in the text exposition format, for node exporter's
// textfile collector.
func (c *ValidationMetricsManager) WriteToTextfile(filename string) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(c); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(filename, registry)
}
