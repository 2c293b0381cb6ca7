package scheme

import (
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/serializer"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
)

var (
	Scheme = runtime.NewScheme()
	Codecs = serializer.NewCodecFactory(Scheme)
	// StrictCodecs rejects unknown and duplicate fields while decoding.
	StrictCodecs = serializer.NewCodecFactory(Scheme, serializer.EnableStrict)
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(Scheme))
	utilruntime.Must(rayv1.AddToScheme(Scheme))
	utilruntime.Must(configapi.AddToScheme(Scheme))
}
