package v1alpha1

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

const (
	DefaultNamespace        = "default"
	DefaultFieldManager     = "rayclusterctl"
	DefaultFetchTimeout     = 30 * time.Second
	DefaultConcurrency      = 4
	DefaultLogFileEncoder   = "json"
	DefaultLogStdoutEncoder = "console"
	DefaultMetricsAddr      = ":8080"
	DefaultProbeAddr        = ":8082"
	DefaultWebhookPort      = 9443
	DefaultCertDir          = "/tmp/k8s-webhook-server/serving-certs"
)

// DefaultRayImageRepositories are the images published by the Ray project.
var DefaultRayImageRepositories = []string{
	"rayproject/ray",
	"rayproject/ray-ml",
	"rayproject/ray-llm",
}

func addDefaultingFuncs(scheme *runtime.Scheme) error {
	scheme.AddTypeDefaultingFunc(&Configuration{}, func(obj interface{}) {
		SetDefaults_Configuration(obj.(*Configuration))
	})
	return nil
}

// SetDefaults_Configuration sets default values for ComponentConfig.
func SetDefaults_Configuration(cfg *Configuration) {
	if cfg.DefaultNamespace == "" {
		cfg.DefaultNamespace = DefaultNamespace
	}

	if cfg.FieldManager == "" {
		cfg.FieldManager = DefaultFieldManager
	}

	if len(cfg.RayImageRepositories) == 0 {
		cfg.RayImageRepositories = append([]string(nil), DefaultRayImageRepositories...)
	}

	if cfg.FetchTimeout == nil {
		cfg.FetchTimeout = &metav1.Duration{Duration: DefaultFetchTimeout}
	}

	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	if cfg.LogFileEncoder == "" {
		cfg.LogFileEncoder = DefaultLogFileEncoder
	}

	if cfg.LogStdoutEncoder == "" {
		cfg.LogStdoutEncoder = DefaultLogStdoutEncoder
	}

	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = DefaultMetricsAddr
	}

	if cfg.ProbeAddr == "" {
		cfg.ProbeAddr = DefaultProbeAddr
	}

	if cfg.WebhookPort == 0 {
		cfg.WebhookPort = DefaultWebhookPort
	}

	if cfg.CertDir == "" {
		cfg.CertDir = DefaultCertDir
	}
}
