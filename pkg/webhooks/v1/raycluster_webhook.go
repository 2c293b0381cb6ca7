package v1

import (
	"context"
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/metrics"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/validation"
)

// log is for logging in this package.
var rayclusterlog = logf.Log.WithName("raycluster-resource")

// SetupRayClusterWebhookWithManager registers the webhook for RayCluster in the manager.
func SetupRayClusterWebhookWithManager(mgr ctrl.Manager, w *RayClusterWebhook) error {
	return ctrl.NewWebhookManagedBy(mgr).
		For(&rayv1.RayCluster{}).
		WithValidator(w).
		Complete()
}

// RayClusterWebhook admits RayClusters that pass the same checks as `rayclusterctl validate`.
type RayClusterWebhook struct {
	observer metrics.ValidationMetricsObserver

	mu      sync.RWMutex
	options validation.Options
}

func NewRayClusterWebhook(options validation.Options, observer metrics.ValidationMetricsObserver) *RayClusterWebhook {
	return &RayClusterWebhook{options: options, observer: observer}
}

// SetOptions replaces the validation options used for subsequent requests.
func (w *RayClusterWebhook) SetOptions(options validation.Options) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.options = options
}

func (w *RayClusterWebhook) Options() validation.Options {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.options
}

//+kubebuilder:webhook:path=/validate-ray-io-v1-raycluster,mutating=false,failurePolicy=fail,sideEffects=None,groups=ray.io,resources=rayclusters,verbs=create;update,versions=v1,name=vraycluster.kb.io,admissionReviewVersions=v1

var _ webhook.CustomValidator = &RayClusterWebhook{}

// ValidateCreate implements webhook.CustomValidator so a webhook will be registered for the type
func (w *RayClusterWebhook) ValidateCreate(_ context.Context, obj runtime.Object) (admission.Warnings, error) {
	rayCluster, ok := obj.(*rayv1.RayCluster)
	if !ok {
		return nil, fmt.Errorf("expected a RayCluster but got a %T", obj)
	}
	rayclusterlog.Info("validate create", "name", rayCluster.Name)
	return w.validateRayCluster(rayCluster)
}

// ValidateUpdate implements webhook.CustomValidator so a webhook will be registered for the type
func (w *RayClusterWebhook) ValidateUpdate(_ context.Context, _ runtime.Object, newObj runtime.Object) (admission.Warnings, error) {
	rayCluster, ok := newObj.(*rayv1.RayCluster)
	if !ok {
		return nil, fmt.Errorf("expected a RayCluster but got a %T", newObj)
	}
	rayclusterlog.Info("validate update", "name", rayCluster.Name)
	return w.validateRayCluster(rayCluster)
}

// ValidateDelete implements webhook.CustomValidator so a webhook will be registered for the type
func (w *RayClusterWebhook) ValidateDelete(_ context.Context, _ runtime.Object) (admission.Warnings, error) {
	return nil, nil
}

func (w *RayClusterWebhook) validateRayCluster(rayCluster *rayv1.RayCluster) (admission.Warnings, error) {
	report := validation.ValidateRayCluster(rayCluster, w.Options())
	if w.observer != nil {
		w.observer.ObserveValidation(metrics.SourceWebhook, rayCluster.Name, rayCluster.Namespace, len(report.Errors), len(report.Warnings))
	}

	return admission.Warnings(report.Warnings), report.ToError(rayCluster.Name)
}
