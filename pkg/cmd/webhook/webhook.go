package webhook

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/client-go/rest"
	"k8s.io/kubectl/pkg/util/templates"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/cmd/common"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/metrics"
	rayscheme "github.com/ray-project/kuberay/rayclusterctl/pkg/scheme"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/validation"
	webhooksv1 "github.com/ray-project/kuberay/rayclusterctl/pkg/webhooks/v1"
)

var setupLog = ctrl.Log.WithName("setup")

type WebhookOptions struct {
	common *common.Options
}

var (
	webhookLong = templates.LongDesc(`
		Serve the RayCluster checks of 'rayclusterctl validate' as a validating admission webhook.

		The server reads TLS certificates from --cert-dir and exposes Prometheus metrics and
		health probes. Changes to the config file, such as toggling strict, apply to subsequent
		admission requests without a restart.
	`)

	webhookExample = templates.Examples(`
		# Serve on the default port with certificates mounted by cert-manager
		rayclusterctl webhook --cert-dir /tmp/k8s-webhook-server/serving-certs --config /etc/rayclusterctl/config.yaml
	`)
)

func NewWebhookOptions(commonOptions *common.Options) *WebhookOptions {
	return &WebhookOptions{common: commonOptions}
}

func NewWebhookCommand(commonOptions *common.Options) *cobra.Command {
	options := NewWebhookOptions(commonOptions)

	cmd := &cobra.Command{
		Use:          "webhook",
		Short:        "Run the RayCluster validating admission webhook",
		Long:         webhookLong,
		Example:      webhookExample,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			restConfig, err := commonOptions.ConfigFlags.ToRESTConfig()
			if err != nil {
				return fmt.Errorf("failed to load kube config: %w", err)
			}
			return options.Run(ctrl.SetupSignalHandler(), restConfig)
		},
	}

	cmd.Flags().String("metrics-addr", configapi.DefaultMetricsAddr, "the address the metric endpoint binds to")
	cmd.Flags().String("health-probe-bind-address", configapi.DefaultProbeAddr, "the address the probe endpoint binds to")
	cmd.Flags().Int("webhook-port", configapi.DefaultWebhookPort, "the port the webhook server listens on")
	cmd.Flags().String("cert-dir", configapi.DefaultCertDir, "the directory holding tls.crt and tls.key")
	return cmd
}

// NewManager builds a manager serving the RayCluster webhook, metrics and probes.
func (options *WebhookOptions) NewManager(restConfig *rest.Config) (ctrl.Manager, *webhooksv1.RayClusterWebhook, error) {
	cfg := options.common.Config()

	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme: rayscheme.Scheme,
		Metrics: metricsserver.Options{
			BindAddress: cfg.MetricsAddr,
		},
		WebhookServer: webhook.NewServer(webhook.Options{
			Port:    cfg.WebhookPort,
			CertDir: cfg.CertDir,
		}),
		HealthProbeBindAddress: cfg.ProbeAddr,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create manager: %w", err)
	}

	validationMetrics := metrics.NewValidationMetricsManager()
	ctrlmetrics.Registry.MustRegister(validationMetrics)

	rayClusterWebhook := webhooksv1.NewRayClusterWebhook(validation.OptionsFromConfiguration(*cfg), validationMetrics)
	if err := webhooksv1.SetupRayClusterWebhookWithManager(mgr, rayClusterWebhook); err != nil {
		return nil, nil, fmt.Errorf("unable to create webhook for RayCluster: %w", err)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return nil, nil, fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", mgr.GetWebhookServer().StartedChecker()); err != nil {
		return nil, nil, fmt.Errorf("unable to set up ready check: %w", err)
	}
	return mgr, rayClusterWebhook, nil
}

func (options *WebhookOptions) Run(ctx context.Context, restConfig *rest.Config) error {
	mgr, rayClusterWebhook, err := options.NewManager(restConfig)
	if err != nil {
		return err
	}

	if options.common.Loader().ConfigFileUsed() != "" {
		if err := options.common.Loader().Watch(ReloadValidationOptions(rayClusterWebhook)); err != nil {
			return err
		}
	}

	setupLog.Info("starting manager", "webhookPort", options.common.Config().WebhookPort)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("problem running manager: %w", err)
	}
	return nil
}

// ReloadValidationOptions returns a config change handler that updates the checks the webhook runs.
func ReloadValidationOptions(w *webhooksv1.RayClusterWebhook) func(*configapi.Configuration) {
	return func(cfg *configapi.Configuration) {
		options := validation.OptionsFromConfiguration(*cfg)
		setupLog.Info("reloaded configuration", "strict", options.Strict)
		w.SetOptions(options)
	}
}
