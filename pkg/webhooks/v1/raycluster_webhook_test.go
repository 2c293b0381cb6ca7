package v1

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/metrics"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/validation"
	"github.com/ray-project/kuberay/rayclusterctl/test/support"
)

type observation struct {
	source, name, namespace string
	errors, warnings        int
}

type recordingObserver struct {
	mu           sync.Mutex
	observations []observation
}

func (r *recordingObserver) ObserveValidation(source, name, namespace string, errors, warnings int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, observation{source, name, namespace, errors, warnings})
}

func (r *recordingObserver) last() observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observations[len(r.observations)-1]
}

var _ = Describe("RayCluster validating webhook", func() {
	var (
		ctx        context.Context
		observer   *recordingObserver
		w          *RayClusterWebhook
		rayCluster *rayv1.RayCluster
	)

	BeforeEach(func() {
		ctx = context.Background()
		observer = &recordingObserver{}
		w = NewRayClusterWebhook(validation.Options{RayImageRepositories: configapi.DefaultRayImageRepositories}, observer)

		content, err := support.ReadSampleYAML(support.AutoscalerSample)
		Expect(err).NotTo(HaveOccurred())
		rayCluster = &rayv1.RayCluster{}
		Expect(support.DecodeRayCluster(content, rayCluster)).To(Succeed())
		rayCluster.Namespace = "default"
	})

	It("admits the sample declaration", func() {
		warnings, err := w.ValidateCreate(ctx, rayCluster)
		Expect(err).NotTo(HaveOccurred())
		Expect(warnings).To(BeEmpty())
		Expect(observer.last()).To(Equal(observation{metrics.SourceWebhook, "raycluster-autoscaler", "default", 0, 0}))
	})

	Context("when name isn't a DNS1035 label", func() {
		It("should return error", func() {
			rayCluster.Name = "invalid.name"
			_, err := w.ValidateCreate(ctx, rayCluster)
			Expect(err).To(HaveOccurred())
			Expect(apierrors.IsInvalid(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("RayCluster.ray.io \"invalid.name\" is invalid: metadata.name"))
			Expect(observer.last().errors).To(Equal(1))
		})
	})

	Context("when groupNames are not unique", func() {
		It("should return error on update", func() {
			duplicate := rayCluster.Spec.WorkerGroupSpecs[0].DeepCopy()
			updated := rayCluster.DeepCopy()
			updated.Spec.WorkerGroupSpecs = append(updated.Spec.WorkerGroupSpecs, *duplicate)

			_, err := w.ValidateUpdate(ctx, rayCluster, updated)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("spec.workerGroupSpecs[1].groupName: Duplicate value"))
		})
	})

	Context("when requests differ from limits", func() {
		BeforeEach(func() {
			rayCluster.Spec.HeadGroupSpec.Template.Spec.Containers[0].Resources.Limits[corev1.ResourceCPU] = resource.MustParse("2")
		})

		It("admits with a warning", func() {
			warnings, err := w.ValidateCreate(ctx, rayCluster)
			Expect(err).NotTo(HaveOccurred())
			Expect(warnings).To(ContainElement(ContainSubstring("resource requests should equal limits")))
			Expect(observer.last().warnings).To(Equal(1))
		})

		It("rejects once strict options are loaded", func() {
			options := w.Options()
			options.Strict = true
			w.SetOptions(options)

			_, err := w.ValidateCreate(ctx, rayCluster)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("resource requests should equal limits"))
		})
	})

	It("rejects objects of another type", func() {
		_, err := w.ValidateCreate(ctx, &corev1.Pod{})
		Expect(err).To(MatchError(ContainSubstring("expected a RayCluster")))
	})

	It("allows deletion", func() {
		warnings, err := w.ValidateDelete(ctx, rayCluster)
		Expect(err).NotTo(HaveOccurred())
		Expect(warnings).To(BeNil())
	})
})
