package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

//+kubebuilder:object:root=true

// Configuration is the Schema for rayclusterctl config.
type Configuration struct {
	metav1.TypeMeta `json:",inline"`

	// Strict turns convention findings into errors: requests that differ from limits
	// and Ray image tags that cannot be compared against rayVersion.
	Strict bool `json:"strict,omitempty"`

	// DefaultNamespace is used when neither the document nor the command line sets one.
	DefaultNamespace string `json:"defaultNamespace,omitempty"`

	// FieldManager is recorded on objects written to the cluster.
	FieldManager string `json:"fieldManager,omitempty"`

	// RayImageRepositories lists image repositories treated as Ray images. Besides the
	// Ray container of every template, any container using one of these repositories
	// must carry a tag matching spec.rayVersion.
	RayImageRepositories []string `json:"rayImageRepositories,omitempty"`

	// FetchTimeout bounds the download of documents given as http(s) URLs.
	FetchTimeout *metav1.Duration `json:"fetchTimeout,omitempty"`

	// Concurrency is the number of documents validated in parallel.
	Concurrency int `json:"concurrency,omitempty"`

	// LogFile is a path to a local file for synchronizing logs.
	LogFile string `json:"logFile,omitempty"`

	// LogFileEncoder is the encoder to use when logging to a file. Valid values are "json" and "console".
	// Defaults to `json` if empty.
	LogFileEncoder string `json:"logFileEncoder,omitempty"`

	// LogStdoutEncoder is the encoder to use when logging to stdout. Valid values are "json" and "console".
	// Defaults to `console` if empty.
	LogStdoutEncoder string `json:"logStdoutEncoder,omitempty"`

	// LogLevel is the zap verbosity. 0 logs info and above, higher values are more verbose.
	LogLevel int `json:"logLevel,omitempty"`

	// MetricsAddr is the address the metrics endpoint of the webhook server binds to.
	MetricsAddr string `json:"metricsAddr,omitempty"`

	// ProbeAddr is the address the probe endpoint of the webhook server binds to.
	ProbeAddr string `json:"probeAddr,omitempty"`

	// WebhookPort is the port the admission webhook server listens on.
	WebhookPort int `json:"webhookPort,omitempty"`

	// CertDir holds tls.crt and tls.key for the webhook server.
	CertDir string `json:"certDir,omitempty"`
}
