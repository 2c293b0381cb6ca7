package validation

import (
	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	quotav1 "k8s.io/apiserver/pkg/quota/v1"
	"k8s.io/utils/ptr"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	rayscheme "github.com/ray-project/kuberay/rayclusterctl/pkg/scheme"
	"github.com/ray-project/kuberay/rayclusterctl/test/support"
)

func allContainers(cluster *rayv1.RayCluster) []corev1.Container {
	templates := []corev1.PodTemplateSpec{cluster.Spec.HeadGroupSpec.Template}
	for _, group := range cluster.Spec.WorkerGroupSpecs {
		templates = append(templates, group.Template)
	}
	var containers []corev1.Container
	for _, template := range templates {
		containers = append(containers, template.Spec.InitContainers...)
		containers = append(containers, template.Spec.Containers...)
	}
	return containers
}

var _ = ginkgo.Describe("The autoscaler sample declaration", ginkgo.Ordered, func() {
	var cluster *rayv1.RayCluster

	ginkgo.BeforeAll(func() {
		cluster = &rayv1.RayCluster{}
		data, err := support.ReadSampleYAML(support.AutoscalerSample)
		Expect(err).NotTo(HaveOccurred())
		_, _, err = rayscheme.StrictCodecs.UniversalDeserializer().Decode(data, nil, cluster)
		Expect(err).NotTo(HaveOccurred(), "the sample must decode without unknown fields")
	})

	ginkgo.It("is a ray.io/v1 RayCluster", func() {
		Expect(cluster.APIVersion).To(Equal("ray.io/v1"))
		Expect(cluster.Kind).To(Equal(rayv1.RayClusterKind))
		Expect(cluster.Name).To(Equal("raycluster-autoscaler"))
	})

	ginkgo.It("keeps every worker group's replicas within its bounds", func() {
		Expect(cluster.Spec.WorkerGroupSpecs).NotTo(BeEmpty())
		for _, group := range cluster.Spec.WorkerGroupSpecs {
			minReplicas, replicas, maxReplicas := group.EffectiveBounds()
			Expect(minReplicas).To(BeNumerically("<=", replicas), "group %s", group.GroupName)
			Expect(replicas).To(BeNumerically("<=", maxReplicas), "group %s", group.GroupName)
		}
	})

	ginkgo.It("declares equal requests and limits for every container", func() {
		resources := []corev1.ResourceRequirements{*cluster.Spec.AutoscalerOptions.Resources}
		for _, container := range allContainers(cluster) {
			resources = append(resources, container.Resources)
		}
		for _, r := range resources {
			Expect(r.Requests).NotTo(BeEmpty())
			Expect(r.Limits).NotTo(BeEmpty())
			Expect(quotav1.Equals(r.Requests, r.Limits)).To(BeTrue(), "requests %v limits %v", r.Requests, r.Limits)
		}
	})

	ginkgo.It("pins every Ray image to rayVersion", func() {
		for _, container := range allContainers(cluster) {
			ref := ParseImage(container.Image)
			if ref.Repository != "rayproject/ray" {
				continue
			}
			Expect(TagVersion(ref.Tag)).To(Equal(cluster.Spec.RayVersion), "container %s", container.Name)
		}
	})

	ginkgo.It("passes validation in strict mode", func() {
		report := ValidateRayCluster(cluster, Options{Strict: true, RayImageRepositories: defaultOptions.RayImageRepositories})
		Expect(report.Errors).To(BeEmpty())
		Expect(report.Warnings).To(BeEmpty())
	})

	ginkgo.DescribeTable("rejects edits that break a property",
		func(mutate func(*rayv1.RayCluster), field string) {
			edited := cluster.DeepCopy()
			mutate(edited)
			report := ValidateRayCluster(edited, defaultOptions)
			Expect(errorFields(report.Errors)).To(ContainElement(field))
		},
		ginkgo.Entry("replicas above maxReplicas", func(c *rayv1.RayCluster) {
			c.Spec.WorkerGroupSpecs[0].Replicas = ptr.To[int32](11)
		}, "spec.workerGroupSpecs[0].replicas"),
		ginkgo.Entry("worker image on another Ray version", func(c *rayv1.RayCluster) {
			c.Spec.WorkerGroupSpecs[0].Template.Spec.Containers[0].Image = "rayproject/ray:2.40.0"
		}, "spec.workerGroupSpecs[0].template.spec.containers[0].image"),
		ginkgo.Entry("init container without requests", func(c *rayv1.RayCluster) {
			c.Spec.WorkerGroupSpecs[0].Template.Spec.InitContainers[0].Resources.Requests = nil
		}, "spec.workerGroupSpecs[0].template.spec.initContainers[0].resources.requests"),
		ginkgo.Entry("autoscaler without limits", func(c *rayv1.RayCluster) {
			c.Spec.AutoscalerOptions.Resources.Limits = nil
		}, "spec.autoscalerOptions.resources.limits"),
	)
})
