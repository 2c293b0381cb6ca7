package validation

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Tags that never pin a Ray version.
var floatingTags = map[string]bool{
	"latest":  true,
	"nightly": true,
}

// ImageReference is a container image split into its parts.
type ImageReference struct {
	Repository string
	Tag        string
	Digest     string
}

// ParseImage splits an image reference such as "docker.io/rayproject/ray:2.41.0-py310@sha256:...".
// A colon is part of the registry host, not a tag separator, when a slash follows it.
func ParseImage(image string) ImageReference {
	var ref ImageReference
	if at := strings.Index(image, "@"); at >= 0 {
		ref.Digest = image[at+1:]
		image = image[:at]
	}
	if colon := strings.LastIndex(image, ":"); colon > strings.LastIndex(image, "/") {
		ref.Tag = image[colon+1:]
		image = image[:colon]
	}
	ref.Repository = image
	return ref
}

// TagVersion returns the Ray version encoded in a tag: the part before the first "-",
// so "2.41.0-py310-gpu" yields "2.41.0".
func TagVersion(tag string) string {
	if dash := strings.Index(tag, "-"); dash >= 0 {
		return tag[:dash]
	}
	return tag
}

type imageChecker struct {
	version      *semver.Version
	rayVersion   string
	repositories []string
	strict       bool
}

func newImageChecker(version *semver.Version, rayVersion string, opts Options) *imageChecker {
	return &imageChecker{
		version:      version,
		rayVersion:   rayVersion,
		repositories: opts.RayImageRepositories,
		strict:       opts.Strict,
	}
}

// isRayRepository reports whether repository is one of the configured Ray image repositories,
// with or without a registry prefix.
func (c *imageChecker) isRayRepository(repository string) bool {
	for _, candidate := range c.repositories {
		if repository == candidate || strings.HasSuffix(repository, "/"+candidate) {
			return true
		}
	}
	return false
}

// checkListed checks an image only when it comes from a Ray image repository.
func (c *imageChecker) checkListed(report *Report, image string, path *field.Path) {
	if c.isRayRepository(ParseImage(image).Repository) {
		c.checkRay(report, image, path)
	}
}

// checkRay checks that image is pinned to the declared Ray version.
func (c *imageChecker) checkRay(report *Report, image string, path *field.Path) {
	if image == "" {
		report.addError(field.Required(path, "Ray container image must be set"))
		return
	}
	ref := ParseImage(image)
	switch {
	case ref.Tag == "" && ref.Digest != "":
		report.advise(c.strict, path, image, "image is pinned by digest only; its Ray version cannot be checked against rayVersion")
		return
	case ref.Tag == "":
		report.advise(c.strict, path, image, "image has no tag; it resolves to latest, which does not pin a Ray version")
		return
	case floatingTags[ref.Tag]:
		report.advise(c.strict, path, image, fmt.Sprintf("image tag %q does not pin a Ray version", ref.Tag))
		return
	}

	if c.version == nil {
		// rayVersion is missing or malformed and already reported.
		return
	}
	tagVersion, err := semver.NewVersion(TagVersion(ref.Tag))
	if err != nil || !tagVersion.Equal(c.version) {
		report.addError(field.Invalid(path, image,
			fmt.Sprintf("image tag %q does not match rayVersion %q", ref.Tag, c.rayVersion)))
	}
}
