package manifest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/yaml"

	rayv1 "github.com/ray-project/kuberay/rayclusterctl/apis/ray/v1"
	rayscheme "github.com/ray-project/kuberay/rayclusterctl/pkg/scheme"
)

// StdinSource is the source name that reads documents from standard input.
const StdinSource = "-"

// Document is one RayCluster declaration found in a source.
type Document struct {
	Cluster *rayv1.RayCluster
	Source  string
	// Warnings holds non-fatal decoding findings such as unknown fields.
	Warnings []string
	// Index is the position of the document in its YAML stream, starting at 0.
	Index int
}

// Name identifies the document in reports.
func (d Document) Name() string {
	return fmt.Sprintf("%s#%d (%s)", d.Source, d.Index, d.Cluster.Name)
}

// Loader reads RayCluster declarations from files, standard input or http(s) URLs.
type Loader struct {
	HTTPClient *http.Client
	Stdin      io.Reader
	// Strict turns unknown and duplicate fields into decoding errors.
	Strict bool
}

func NewLoader(fetchTimeout time.Duration, strict bool) *Loader {
	return &Loader{
		HTTPClient: &http.Client{Timeout: fetchTimeout},
		Stdin:      os.Stdin,
		Strict:     strict,
	}
}

// Load reads source and decodes every RayCluster document it contains.
func (l *Loader) Load(ctx context.Context, source string) ([]Document, error) {
	stream, err := l.LoadStream(ctx, source)
	if err != nil {
		return nil, err
	}
	return stream.Documents, nil
}

// LoadStream reads source and keeps its raw content next to the decoded documents.
func (l *Loader) LoadStream(ctx context.Context, source string) (*Stream, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}
	return DecodeStream(ctx, source, data, l.Strict)
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	switch {
	case source == StdinSource:
		data, err := io.ReadAll(l.Stdin)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read standard input")
		}
		return data, nil
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		return l.fetch(ctx, source)
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", source)
		}
		return data, nil
	}
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request for %s", url)
	}
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Errorf("failed to fetch %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response body of %s", url)
	}
	return data, nil
}

// SkippedDocument is a non-empty document of a stream that is not a ray.io/v1 RayCluster.
type SkippedDocument struct {
	Index      int    `json:"index"`
	APIVersion string `json:"apiVersion,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

// Stream is a decoded source.
type Stream struct {
	Source    string
	Raw       []byte
	Documents []Document
	Skipped   []SkippedDocument
}

// Warnings reports the skipped documents that look like RayClusters of another API version.
func (s *Stream) Warnings() []string {
	var warnings []string
	for _, skipped := range s.Skipped {
		if skipped.Kind != rayv1.RayClusterKind {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s#%d: %s %s is not checked, only %s is supported",
			s.Source, skipped.Index, skipped.Kind, skipped.APIVersion, rayv1.GroupVersion.String()))
	}
	return warnings
}

// Replace returns the raw stream with the document at index replaced by content.
// The other documents are kept byte for byte and in their original order.
func (s *Stream) Replace(index int, content []byte) ([]byte, error) {
	chunks, err := splitDocuments(s.Source, s.Raw)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(chunks) {
		return nil, errors.Errorf("%s has no document #%d", s.Source, index)
	}

	var buffer bytes.Buffer
	for i, chunk := range chunks {
		if i == index {
			chunk = content
		}
		if i > 0 {
			buffer.WriteString("---\n")
		}
		buffer.Write(chunk)
		if len(chunk) > 0 && chunk[len(chunk)-1] != '\n' {
			buffer.WriteByte('\n')
		}
	}
	return buffer.Bytes(), nil
}

func splitDocuments(source string, data []byte) ([][]byte, error) {
	var chunks [][]byte
	reader := utilyaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))
	for {
		chunk, err := reader.Read()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to split %s into documents", source)
		}
		chunks = append(chunks, append([]byte(nil), chunk...))
	}
}

// Decode splits data into YAML or JSON documents and decodes each RayCluster among them.
// Documents of other kinds are skipped and empty documents are ignored.
func Decode(ctx context.Context, source string, data []byte, strict bool) ([]Document, error) {
	stream, err := DecodeStream(ctx, source, data, strict)
	if err != nil {
		return nil, err
	}
	return stream.Documents, nil
}

// DecodeStream is Decode that also records the skipped documents and the raw content.
func DecodeStream(ctx context.Context, source string, data []byte, strict bool) (*Stream, error) {
	logger := ctrl.LoggerFrom(ctx).WithName("manifest")

	chunks, err := splitDocuments(source, data)
	if err != nil {
		return nil, err
	}

	stream := &Stream{Source: source, Raw: data}
	for index, raw := range chunks {
		jsonData, err := yaml.YAMLToJSON(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "%s#%d is not well-formed YAML", source, index)
		}
		if trimmed := bytes.TrimSpace(jsonData); len(trimmed) == 0 || string(trimmed) == "null" {
			continue
		}

		var typeMeta metav1.TypeMeta
		if err := yaml.Unmarshal(jsonData, &typeMeta); err != nil {
			return nil, errors.Wrapf(err, "%s#%d has no readable apiVersion and kind", source, index)
		}
		if typeMeta.Kind != rayv1.RayClusterKind || typeMeta.APIVersion != rayv1.GroupVersion.String() {
			logger.Info("Skipping document", "source", source, "index", index, "apiVersion", typeMeta.APIVersion, "kind", typeMeta.Kind)
			stream.Skipped = append(stream.Skipped, SkippedDocument{Index: index, APIVersion: typeMeta.APIVersion, Kind: typeMeta.Kind})
			continue
		}

		document, err := decodeRayCluster(source, index, jsonData, strict)
		if err != nil {
			return nil, err
		}
		stream.Documents = append(stream.Documents, document)
	}

	if len(stream.Documents) == 0 {
		if warnings := stream.Warnings(); len(warnings) > 0 {
			return nil, errors.Errorf("%s contains no %s %s document: %s", source, rayv1.GroupVersion.String(), rayv1.RayClusterKind, strings.Join(warnings, "; "))
		}
		return nil, errors.Errorf("%s contains no %s %s document", source, rayv1.GroupVersion.String(), rayv1.RayClusterKind)
	}
	return stream, nil
}

func decodeRayCluster(source string, index int, data []byte, strict bool) (Document, error) {
	document := Document{Source: source, Index: index}

	cluster := &rayv1.RayCluster{}
	decoder := rayscheme.StrictCodecs.UniversalDeserializer()
	_, _, err := decoder.Decode(data, nil, cluster)
	if err != nil {
		if !runtime.IsStrictDecodingError(err) || strict {
			return document, errors.Wrapf(err, "failed to decode %s#%d", source, index)
		}
		// The object is fully decoded; only unknown or duplicate fields were found.
		if strictErr, ok := runtime.AsStrictDecodingError(err); ok {
			for _, fieldErr := range strictErr.Errors() {
				document.Warnings = append(document.Warnings, fieldErr.Error())
			}
		}
	}

	document.Cluster = cluster
	return document, nil
}
