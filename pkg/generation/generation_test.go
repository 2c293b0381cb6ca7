package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/manifest"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/util"
	"github.com/ray-project/kuberay/rayclusterctl/pkg/validation"
	"github.com/ray-project/kuberay/rayclusterctl/test/support"
)

func testRayClusterYamlObject() RayClusterYamlObject {
	return RayClusterYamlObject{
		ClusterName: "raycluster-autoscaler",
		Namespace:   "default",
		Labels:      map[string]string{"controller-tools.k8s.io": "1.0"},
		RayClusterSpecObject: RayClusterSpecObject{
			RayVersion:                        util.RayVersion,
			Image:                             util.RayImage,
			HeadCPU:                           util.DefaultHeadCPU,
			HeadMemory:                        util.DefaultHeadMemory,
			HeadServiceType:                   string(corev1.ServiceTypeClusterIP),
			WorkerGrpName:                     util.DefaultWorkerGroup,
			WorkerCPU:                         util.DefaultWorkerCPU,
			WorkerMemory:                      util.DefaultWorkerMemory,
			WorkerReplicas:                    1,
			WorkerMinReplicas:                 ptr.To[int32](1),
			WorkerMaxReplicas:                 ptr.To[int32](10),
			HeadLifecyclePrestopExecCommand:   []string{"/bin/sh", "-c", "ray stop"},
			WorkerLifecyclePrestopExecCommand: []string{"/bin/sh", "-c", "ray stop"},
			Autoscaler:                        &AutoscalerSpecObject{UpscalingMode: "Default", IdleTimeoutSeconds: 60},
			WaitForHead:                       true,
		},
	}
}

func TestGenerateRayCluster(t *testing.T) {
	object := testRayClusterYamlObject()
	object.HeadGPU = "1"
	object.HeadRayStartParams = map[string]string{"num-cpus": "0"}
	object.WorkerRayStartParams = map[string]string{"metrics-export-port": "8080"}

	result := object.GenerateRayCluster()

	assert.Equal(t, "ray.io/v1", result.APIVersion)
	assert.Equal(t, rayv1.RayClusterKind, result.Kind)
	assert.Equal(t, object.ClusterName, result.Name)
	assert.Equal(t, object.Namespace, result.Namespace)
	assert.Equal(t, object.Labels, result.Labels)
	assert.Equal(t, object.RayVersion, result.Spec.RayVersion)
	assert.True(t, rayv1.IsAutoscalingEnabled(&result.Spec))
	assert.Equal(t, rayv1.UpscalingModeDefault, *result.Spec.AutoscalerOptions.UpscalingMode)
	assert.Equal(t, int32(60), *result.Spec.AutoscalerOptions.IdleTimeoutSeconds)

	head := result.Spec.HeadGroupSpec
	assert.Equal(t, corev1.ServiceTypeClusterIP, head.ServiceType)
	assert.Equal(t, map[string]string{"dashboard-host": "0.0.0.0", "block": "true", "num-cpus": "0"}, head.RayStartParams)
	headContainer := head.Template.Spec.Containers[0]
	assert.Equal(t, util.RayImage, headContainer.Image)
	assert.Equal(t, "1", headContainer.Resources.Requests.Cpu().String())
	assert.Equal(t, "2G", headContainer.Resources.Limits.Memory().String())
	gpu := headContainer.Resources.Limits[corev1.ResourceName(util.ResourceNvidiaGPU)]
	assert.Equal(t, "1", gpu.String())
	require.Len(t, headContainer.Ports, 3)
	assert.Equal(t, int32(6379), headContainer.Ports[0].ContainerPort)
	assert.Equal(t, []string{"/bin/sh", "-c", "ray stop"}, headContainer.Lifecycle.PreStop.Exec.Command)

	require.Len(t, result.Spec.WorkerGroupSpecs, 1)
	worker := result.Spec.WorkerGroupSpecs[0]
	assert.Equal(t, util.DefaultWorkerGroup, worker.GroupName)
	assert.Equal(t, int32(1), *worker.Replicas)
	assert.Equal(t, int32(1), *worker.MinReplicas)
	assert.Equal(t, int32(10), *worker.MaxReplicas)
	assert.Equal(t, map[string]string{"metrics-export-port": "8080"}, worker.RayStartParams)
	_, hasGPU := worker.Template.Spec.Containers[0].Resources.Limits[corev1.ResourceName(util.ResourceNvidiaGPU)]
	assert.False(t, hasGPU)
	require.Len(t, worker.Template.Spec.InitContainers, 1)
	assert.Equal(t, "raycluster-autoscaler-head-svc", worker.Template.Spec.InitContainers[0].Env[0].Value)

	// Inputs are copied, not shared.
	object.HeadRayStartParams["num-cpus"] = "4"
	object.Labels["team"] = "ml"
	assert.Equal(t, "0", result.Spec.HeadGroupSpec.RayStartParams["num-cpus"])
	assert.NotContains(t, result.Labels, "team")
}

func TestGenerateRayClusterMinimal(t *testing.T) {
	object := testRayClusterYamlObject()
	object.Autoscaler = nil
	object.WaitForHead = false
	object.HeadLifecyclePrestopExecCommand = nil
	object.WorkerLifecyclePrestopExecCommand = nil
	object.WorkerMinReplicas = nil
	object.WorkerMaxReplicas = nil

	result := object.GenerateRayCluster()
	assert.Nil(t, result.Spec.EnableInTreeAutoscaling)
	assert.Nil(t, result.Spec.AutoscalerOptions)
	assert.Nil(t, result.Spec.HeadGroupSpec.Template.Spec.Containers[0].Lifecycle)
	assert.Nil(t, result.Spec.WorkerGroupSpecs[0].Template.Spec.Containers[0].Lifecycle)
	assert.Empty(t, result.Spec.WorkerGroupSpecs[0].Template.Spec.InitContainers)
	assert.NotNil(t, result.Spec.WorkerGroupSpecs[0].RayStartParams)
}

func TestGeneratedClusterMatchesSample(t *testing.T) {
	sample := support.DeserializeRayClusterSampleYAML(t, support.AutoscalerSample)
	object := testRayClusterYamlObject()
	generated := object.GenerateRayCluster()

	assert.Equal(t, sample.Spec.RayVersion, generated.Spec.RayVersion)
	assert.Equal(t, sample.Spec.HeadGroupSpec.RayStartParams, generated.Spec.HeadGroupSpec.RayStartParams)
	assert.Equal(t, sample.Spec.HeadGroupSpec.ServiceType, generated.Spec.HeadGroupSpec.ServiceType)
	assert.Equal(t, sample.Spec.HeadGroupSpec.Template.Spec.Containers[0].Ports, generated.Spec.HeadGroupSpec.Template.Spec.Containers[0].Ports)
	assert.Equal(t, sample.Spec.WorkerGroupSpecs[0].Template.Spec.InitContainers[0].Command, generated.Spec.WorkerGroupSpecs[0].Template.Spec.InitContainers[0].Command)
	assert.Equal(t, *sample.Spec.AutoscalerOptions.UpscalingMode, *generated.Spec.AutoscalerOptions.UpscalingMode)
	assert.Equal(t, *sample.Spec.AutoscalerOptions.ImagePullPolicy, *generated.Spec.AutoscalerOptions.ImagePullPolicy)
}

func TestConvertRayClusterToYaml(t *testing.T) {
	object := testRayClusterYamlObject()
	generated := object.GenerateRayCluster()

	yamlContent, err := ConvertRayClusterToYaml(generated)
	require.NoError(t, err)
	assert.Contains(t, yamlContent, "kind: RayCluster")
	assert.NotContains(t, yamlContent, "status:")
	assert.NotContains(t, yamlContent, "creationTimestamp")

	// The rendered declaration loads strictly and passes strict validation.
	documents, err := manifest.Decode(context.Background(), "generated.yaml", []byte(yamlContent), true)
	require.NoError(t, err)
	require.Len(t, documents, 1)
	report := validation.ValidateRayCluster(documents[0].Cluster, validation.Options{
		Strict:               true,
		RayImageRepositories: configapi.DefaultRayImageRepositories,
	})
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestValidate(t *testing.T) {
	object := testRayClusterYamlObject()
	require.NoError(t, object.Validate())

	object.WorkerMemory = "lots"
	err := object.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker-memory is not a valid resource quantity")

	object = testRayClusterYamlObject()
	object.HeadCPU = ""
	require.Error(t, object.Validate())

	object = testRayClusterYamlObject()
	object.WorkerGrpName = ""
	require.Error(t, object.Validate())
}

func TestParsePreStopCommand(t *testing.T) {
	tests := []struct {
		command  string
		expected []string
	}{
		{command: util.DefaultPreStopCommand, expected: []string{"/bin/sh", "-c", "ray stop"}},
		{command: `/bin/bash -c "ray stop --force"`, expected: []string{"/bin/bash", "-c", "ray stop --force"}},
		{command: "", expected: nil},
	}
	for _, tc := range tests {
		t.Run(tc.command, func(t *testing.T) {
			args, err := ParsePreStopCommand(tc.command)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, args)
		})
	}

	_, err := ParsePreStopCommand(`/bin/sh -c "ray stop`)
	require.Error(t, err)
}
