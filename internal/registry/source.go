package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fiberui-dev/fiberui/internal/errors"
	"github.com/fiberui-dev/fiberui/internal/telemetry"
)

// Layout of a registry, shared by every source.
const (
	// FilesDir is the directory holding component files, relative to the registry root.
	FilesDir = "files"

	// EmbeddedLocation selects the registry compiled into the binary.
	EmbeddedLocation = "embedded"
)

// maxManifestSize bounds a manifest read from a remote source.
const maxManifestSize = 8 << 20

// ManifestNames are the manifest file names tried, in order.
var ManifestNames = []string{"registry.yaml", "registry.yml", "registry.json"}

// Source provides a registry manifest and the files it lists.
type Source interface {
	// Location describes where the registry lives.
	Location() string

	// ReadManifest returns the raw manifest and an origin used in error locations.
	ReadManifest(ctx context.Context) (data []byte, origin string, err error)

	// Open opens a component file by its registry path (e.g. "components/button.tsx").
	Open(ctx context.Context, file string) (io.ReadCloser, error)
}

// OpenOptions configures Open.
type OpenOptions struct {
	// BaseDir resolves relative directory locations. Defaults to the working directory.
	BaseDir string

	// HTTPClient is used for http(s) registries.
	HTTPClient *http.Client

	// S3Client is used for s3:// registries. When nil a client is built
	// from AWS_REGION, FIBERUI_S3_ENDPOINT and AWS credentials in the environment.
	S3Client S3API
}

// Open returns the Source for a registry location: "embedded" (or empty),
// an http(s) URL, an s3://bucket/prefix URL, or a directory.
func Open(location string, opts OpenOptions) (Source, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "" || location == EmbeddedLocation:
		return Embedded(), nil

	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 30 * time.Second}
		}
		return NewHTTPSource(location, client)

	case strings.HasPrefix(location, "s3://"):
		bucket, prefix, err := ParseS3URL(location)
		if err != nil {
			return nil, err
		}
		client := opts.S3Client
		if client == nil {
			client = NewS3Client(os.Getenv("AWS_REGION"), os.Getenv("FIBERUI_S3_ENDPOINT"))
		}
		return NewS3Source(client, bucket, prefix), nil

	default:
		dir := location
		if !filepath.IsAbs(dir) && opts.BaseDir != "" {
			dir = filepath.Join(opts.BaseDir, dir)
		}
		return NewDirSource(dir)
	}
}

// Load reads and validates the manifest of src. m may be nil.
func Load(ctx context.Context, src Source, m *telemetry.Metrics) (*Store, error) {
	ctx, span := telemetry.StartSpan(ctx, "registry.Load",
		attribute.String("registry.location", src.Location()))

	store, err := load(ctx, src)
	if err == nil {
		span.SetAttributes(attribute.Int("registry.components", store.Len()))
	}
	telemetry.EndSpan(span, err)
	m.ObserveRegistryLoad(kindOf(src), err)
	return store, err
}

// readManifest reads a remote manifest, rejecting one larger than
// maxManifestSize.
func readManifest(r io.Reader, origin string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxManifestSize+1))
	if err != nil {
		return nil, errors.New(errors.CodeRegistryUnavail).
			WithDetail("Could not read " + origin + ": " + err.Error()).
			Wrap(err)
	}
	if len(data) > maxManifestSize {
		return nil, errors.New(errors.CodeRegistryUnavail).
			WithDetail(fmt.Sprintf("Registry manifest %s is too large (limit %d MiB)", origin, maxManifestSize>>20))
	}
	return data, nil
}

func load(ctx context.Context, src Source) (*Store, error) {
	data, origin, err := src.ReadManifest(ctx)
	if err != nil {
		return nil, errors.FromError(err, errors.CodeRegistryUnavail)
	}
	manifest, err := ParseManifest(data, origin)
	if err != nil {
		return nil, err
	}
	return NewStore(manifest, origin)
}

func kindOf(src Source) string {
	switch s := src.(type) {
	case *HTTPSource:
		return "http"
	case *S3Source:
		return "s3"
	case *FSSource:
		if s.Location() == EmbeddedLocation {
			return "embedded"
		}
		return "dir"
	default:
		return "other"
	}
}

// missingFile returns the error reported when a registry file does not exist.
func missingFile(file, location string, cause error) *errors.FiberError {
	return errors.New(errors.CodeSourceFileMissing).
		WithDetail("'" + file + "' is not present in registry " + location).
		Wrap(cause)
}
