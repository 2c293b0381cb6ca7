package util

import (
	"path/filepath"
	"testing"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/clientcmd/api"
)

// HasKubectlContext checks if the kubeconfig has a current context or if the --context switch is set.
func HasKubectlContext(config api.Config, configFlags *genericclioptions.ConfigFlags) bool {
	return config.CurrentContext != "" || (configFlags.Context != nil && *configFlags.Context != "")
}

// CreateTempKubeConfigFile writes a kubeconfig pointing at an unreachable API server.
// This function should only be used in tests.
func CreateTempKubeConfigFile(t *testing.T, currentContext string) (string, error) {
	config := &api.Config{
		Clusters: map[string]*api.Cluster{
			"test-cluster": {
				Server:                "https://fake-kubernetes-cluster.example.com",
				InsecureSkipTLSVerify: true,
			},
		},
		Contexts: map[string]*api.Context{
			"test-context": {
				Cluster:   "test-cluster",
				AuthInfo:  "test-user",
				Namespace: "ray-system",
			},
		},
		CurrentContext: currentContext,
		AuthInfos: map[string]*api.AuthInfo{
			"test-user": {},
		},
	}

	path := filepath.Join(t.TempDir(), ".kubeconfig")
	return path, clientcmd.WriteToFile(*config, path)
}
