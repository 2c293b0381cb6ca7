package validation

import (
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/validation/field"
	quotav1 "k8s.io/apiserver/pkg/quota/v1"
)

func validateContainerResources(report *Report, resources corev1.ResourceRequirements, path *field.Path, strict bool) {
	missing := false
	if len(resources.Requests) == 0 {
		report.addError(field.Required(path.Child("requests"), "resource requests must be declared"))
		missing = true
	}
	if len(resources.Limits) == 0 {
		report.addError(field.Required(path.Child("limits"), "resource limits must be declared"))
		missing = true
	}
	if missing {
		return
	}

	for name, quantity := range resources.Requests {
		if quantity.Sign() < 0 {
			report.addError(field.Invalid(path.Child("requests").Key(string(name)), quantity.String(), "must not be negative"))
		}
	}
	for name, quantity := range resources.Limits {
		if quantity.Sign() < 0 {
			report.addError(field.Invalid(path.Child("limits").Key(string(name)), quantity.String(), "must not be negative"))
		}
	}

	if !quotav1.Equals(resources.Requests, resources.Limits) {
		report.advise(strict, path, describeResources(resources),
			"resource requests should equal limits")
	}
}

func describeResources(resources corev1.ResourceRequirements) string {
	return fmt.Sprintf("requests={%s} limits={%s}", formatResourceList(resources.Requests), formatResourceList(resources.Limits))
}

func formatResourceList(list corev1.ResourceList) string {
	names := quotav1.ResourceNames(list)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		quantity := list[name]
		pairs = append(pairs, fmt.Sprintf("%s: %s", name, quantity.String()))
	}
	return strings.Join(pairs, ", ")
}
