package validation

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/sets"
	utilvalidation "k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
)

// Options tunes how strictly a declaration is checked.
type Options struct {
	// Strict turns advisory findings (unpinned images, requests different from limits) into errors.
	Strict bool
	// RayImageRepositories are image repositories whose tags must match spec.rayVersion
	// wherever they appear, not only in the Ray container.
	RayImageRepositories []string
}

// OptionsFromConfiguration builds validation options from the tool configuration.
func OptionsFromConfiguration(config configapi.Configuration) Options {
	return Options{
		Strict:               config.Strict,
		RayImageRepositories: config.RayImageRepositories,
	}
}

// Report collects the findings for one RayCluster.
type Report struct {
	Errors   field.ErrorList `json:"errors,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// ToError aggregates the errors of the report into a single Invalid API error, or nil.
func (r *Report) ToError(name string) error {
	if len(r.Errors) == 0 {
		return nil
	}
	return apierrors.NewInvalid(
		schema.GroupKind{Group: rayv1.GroupVersion.Group, Kind: rayv1.RayClusterKind},
		name, r.Errors)
}

func (r *Report) addError(err *field.Error) {
	r.Errors = append(r.Errors, err)
}

func (r *Report) addWarning(path *field.Path, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %s", path.String(), fmt.Sprintf(format, args...)))
}

// advise records a finding that is only an error in strict mode.
func (r *Report) advise(strict bool, path *field.Path, value interface{}, detail string) {
	if strict {
		r.addError(field.Invalid(path, value, detail))
		return
	}
	r.addWarning(path, "%s", detail)
}

// ValidateRayCluster checks a RayCluster declaration without contacting a cluster.
func ValidateRayCluster(rayCluster *rayv1.RayCluster, opts Options) *Report {
	report := &Report{}
	specPath := field.NewPath("spec")

	validateName(report, rayCluster)
	version := validateRayVersion(report, rayCluster.Spec.RayVersion, specPath.Child("rayVersion"))
	images := newImageChecker(version, rayCluster.Spec.RayVersion, opts)

	headPath := specPath.Child("headGroupSpec")
	validateServiceType(report, rayCluster.Spec.HeadGroupSpec.ServiceType, headPath.Child("serviceType"))
	validatePodTemplate(report, &rayCluster.Spec.HeadGroupSpec.Template, headPath.Child("template"), images, opts.Strict)
	validateHeadPorts(report, &rayCluster.Spec.HeadGroupSpec.Template, headPath.Child("template", "spec", "containers"))

	groupNames := sets.New[string]()
	for i := range rayCluster.Spec.WorkerGroupSpecs {
		group := &rayCluster.Spec.WorkerGroupSpecs[i]
		groupPath := specPath.Child("workerGroupSpecs").Index(i)

		if group.GroupName == "" {
			report.addError(field.Required(groupPath.Child("groupName"), "worker group name must not be empty"))
		} else if groupNames.Has(group.GroupName) {
			report.addError(field.Duplicate(groupPath.Child("groupName"), group.GroupName))
		}
		groupNames.Insert(group.GroupName)

		validateReplicas(report, group, groupPath)
		validateWorkersToDelete(report, group.ScaleStrategy.WorkersToDelete, groupPath.Child("scaleStrategy", "workersToDelete"))
		validatePodTemplate(report, &group.Template, groupPath.Child("template"), images, opts.Strict)
	}

	validateAutoscalerOptions(report, &rayCluster.Spec, specPath.Child("autoscalerOptions"), images, opts.Strict)
	return report
}

func validateName(report *Report, rayCluster *rayv1.RayCluster) {
	namePath := field.NewPath("metadata").Child("name")
	if rayCluster.Name == "" {
		report.addError(field.Required(namePath, "name must not be empty"))
		return
	}
	for _, msg := range utilvalidation.IsDNS1035Label(rayCluster.Name) {
		report.addError(field.Invalid(namePath, rayCluster.Name, msg))
	}
}

func validateRayVersion(report *Report, rayVersion string, path *field.Path) *semver.Version {
	if rayVersion == "" {
		report.addError(field.Required(path, "rayVersion must be set so Ray images can be checked against it"))
		return nil
	}
	version, err := semver.NewVersion(rayVersion)
	if err != nil {
		report.addError(field.Invalid(path, rayVersion, fmt.Sprintf("rayVersion is not a semantic version: %v", err)))
		return nil
	}
	return version
}

func validateServiceType(report *Report, serviceType corev1.ServiceType, path *field.Path) {
	switch serviceType {
	case "", corev1.ServiceTypeClusterIP, corev1.ServiceTypeNodePort, corev1.ServiceTypeLoadBalancer:
	default:
		report.addError(field.NotSupported(path, serviceType, []corev1.ServiceType{
			corev1.ServiceTypeClusterIP, corev1.ServiceTypeNodePort, corev1.ServiceTypeLoadBalancer,
		}))
	}
}

func validatePodTemplate(report *Report, template *corev1.PodTemplateSpec, path *field.Path, images *imageChecker, strict bool) {
	specPath := path.Child("spec")
	if len(template.Spec.Containers) == 0 {
		report.addError(field.Required(specPath.Child("containers"), "pod template must declare at least one container"))
	}

	for i := range template.Spec.InitContainers {
		container := &template.Spec.InitContainers[i]
		containerPath := specPath.Child("initContainers").Index(i)
		validateContainerResources(report, container.Resources, containerPath.Child("resources"), strict)
		images.checkListed(report, container.Image, containerPath.Child("image"))
	}
	for i := range template.Spec.Containers {
		container := &template.Spec.Containers[i]
		containerPath := specPath.Child("containers").Index(i)
		validateContainerResources(report, container.Resources, containerPath.Child("resources"), strict)
		if i == rayv1.RayContainerIndex {
			images.checkRay(report, container.Image, containerPath.Child("image"))
		} else {
			images.checkListed(report, container.Image, containerPath.Child("image"))
		}
	}
}

func validateHeadPorts(report *Report, template *corev1.PodTemplateSpec, path *field.Path) {
	portNames := sets.New[string]()
	for i, container := range template.Spec.Containers {
		for j, port := range container.Ports {
			portPath := path.Index(i).Child("ports").Index(j)
			for _, msg := range utilvalidation.IsValidPortNum(int(port.ContainerPort)) {
				report.addError(field.Invalid(portPath.Child("containerPort"), port.ContainerPort, msg))
			}
			if port.Name == "" {
				continue
			}
			if portNames.Has(port.Name) {
				report.addError(field.Duplicate(portPath.Child("name"), port.Name))
			}
			portNames.Insert(port.Name)
		}
	}
}

func validateReplicas(report *Report, group *rayv1.WorkerGroupSpec, path *field.Path) {
	for _, value := range []struct {
		name  string
		value *int32
	}{
		{"replicas", group.Replicas},
		{"minReplicas", group.MinReplicas},
		{"maxReplicas", group.MaxReplicas},
	} {
		if value.value != nil && *value.value < 0 {
			report.addError(field.Invalid(path.Child(value.name), *value.value, "must be a non-negative integer"))
		}
	}

	minReplicas, replicas, maxReplicas := group.EffectiveBounds()
	if minReplicas > maxReplicas {
		report.addError(field.Invalid(path.Child("minReplicas"), minReplicas,
			fmt.Sprintf("worker group %s has minReplicas %d greater than maxReplicas %d", group.GroupName, minReplicas, maxReplicas)))
		return
	}
	if replicas < minReplicas || replicas > maxReplicas {
		report.addError(field.Invalid(path.Child("replicas"), replicas,
			fmt.Sprintf("worker group %s has replicas %d outside of [minReplicas %d, maxReplicas %d]", group.GroupName, replicas, minReplicas, maxReplicas)))
	}
}

func validateWorkersToDelete(report *Report, workers []string, path *field.Path) {
	seen := sets.New[string]()
	for i, worker := range workers {
		if worker == "" {
			report.addError(field.Required(path.Index(i), "worker name must not be empty"))
			continue
		}
		if seen.Has(worker) {
			report.addError(field.Duplicate(path.Index(i), worker))
		}
		seen.Insert(worker)
	}
}

func validateAutoscalerOptions(report *Report, spec *rayv1.RayClusterSpec, path *field.Path, images *imageChecker, strict bool) {
	options := spec.AutoscalerOptions
	if options == nil {
		return
	}
	if !rayv1.IsAutoscalingEnabled(spec) {
		report.addWarning(path, "autoscalerOptions has no effect because enableInTreeAutoscaling is not true")
	}

	if options.UpscalingMode != nil {
		valid := false
		for _, mode := range rayv1.AllUpscalingModes {
			if *options.UpscalingMode == mode {
				valid = true
				break
			}
		}
		if !valid {
			report.addError(field.NotSupported(path.Child("upscalingMode"), *options.UpscalingMode, rayv1.AllUpscalingModes))
		}
	}
	if options.IdleTimeoutSeconds != nil && *options.IdleTimeoutSeconds < 0 {
		report.addError(field.Invalid(path.Child("idleTimeoutSeconds"), *options.IdleTimeoutSeconds, "must be a non-negative integer"))
	}
	if options.ImagePullPolicy != nil {
		switch *options.ImagePullPolicy {
		case corev1.PullAlways, corev1.PullNever, corev1.PullIfNotPresent:
		default:
			report.addError(field.NotSupported(path.Child("imagePullPolicy"), *options.ImagePullPolicy, []corev1.PullPolicy{
				corev1.PullAlways, corev1.PullNever, corev1.PullIfNotPresent,
			}))
		}
	}
	if options.Resources != nil {
		validateContainerResources(report, *options.Resources, path.Child("resources"), strict)
	}
	if options.Image != nil {
		images.checkRay(report, *options.Image, path.Child("image"))
	}
}
