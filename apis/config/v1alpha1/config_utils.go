package v1alpha1

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-logr/logr"
)

var validEncoders = map[string]bool{"json": true, "console": true}

func ValidateConfiguration(logger logr.Logger, config Configuration) error {
	if config.LogFileEncoder != "" && !validEncoders[config.LogFileEncoder] {
		return fmt.Errorf("logFileEncoder %q is not supported, valid values are json and console", config.LogFileEncoder)
	}
	if config.LogStdoutEncoder != "" && !validEncoders[config.LogStdoutEncoder] {
		return fmt.Errorf("logStdoutEncoder %q is not supported, valid values are json and console", config.LogStdoutEncoder)
	}
	if config.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", config.Concurrency)
	}
	if config.WebhookPort < 0 || config.WebhookPort > 65535 {
		return fmt.Errorf("webhookPort %d is out of range", config.WebhookPort)
	}
	if err := validateBindAddress(config.MetricsAddr); err != nil {
		return fmt.Errorf("metricsAddr is invalid: %w", err)
	}
	if err := validateBindAddress(config.ProbeAddr); err != nil {
		return fmt.Errorf("probeAddr is invalid: %w", err)
	}
	if config.FetchTimeout != nil && config.FetchTimeout.Duration < 0 {
		return fmt.Errorf("fetchTimeout must not be negative")
	}
	if config.LogLevel < 0 {
		return fmt.Errorf("logLevel must not be negative")
	}

	if config.Strict {
		logger.Info("Strict mode is enabled, convention findings are reported as errors")
	}
	return nil
}

// validateBindAddress accepts host:port addresses with a port in range. An empty address and "0"
// disable the endpoint.
func validateBindAddress(addr string) error {
	if addr == "" || addr == "0" {
		return nil
	}
	_, portText, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return fmt.Errorf("port %q of %q is not a number", portText, addr)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %d of %q is out of range", port, addr)
	}
	return nil
}
