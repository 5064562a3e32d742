package registry

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/fiberui-dev/fiberui/internal/errors"
)

// HTTPSource fetches a registry over HTTP(S). The manifest lives at the
// configured URL (or {base}/registry.json) and files at {base}/files/{path}.
type HTTPSource struct {
	manifestURL string
	baseURL     string
	client      *http.Client
}

// NewHTTPSource creates an HTTP source. rawURL is either the manifest URL
// (ending in .json, .yaml or .yml) or the registry base URL.
func NewHTTPSource(rawURL string, client *http.Client) (*HTTPSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, errors.New(errors.CodeRegistryUnavail).
			WithDetail("Invalid registry URL " + rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}

	s := &HTTPSource{client: client}
	switch path.Ext(u.Path) {
	case ".json", ".yaml", ".yml":
		s.manifestURL = u.String()
		u.Path = path.Dir(u.Path)
		s.baseURL = strings.TrimSuffix(u.String(), "/")
	default:
		s.baseURL = strings.TrimSuffix(u.String(), "/")
		s.manifestURL = s.baseURL + "/registry.json"
	}
	return s, nil
}

// Location implements Source.
func (s *HTTPSource) Location() string {
	return s.manifestURL
}

// ReadManifest implements Source.
func (s *HTTPSource) ReadManifest(ctx context.Context) ([]byte, string, error) {
	resp, err := s.get(ctx, s.manifestURL)
	if err != nil {
		return nil, "", errors.New(errors.CodeRegistryUnavail).
			WithDetail("Could not connect to registry: " + err.Error()).
			WithSuggestion("Check your internet connection").
			Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.New(errors.CodeRegistryUnavail).
			WithDetail(fmt.Sprintf("Registry returned status %d", resp.StatusCode))
	}

	data, err := readManifest(resp.Body, s.manifestURL)
	if err != nil {
		return nil, "", err
	}
	return data, s.manifestURL, nil
}

// Open implements Source.
func (s *HTTPSource) Open(ctx context.Context, file string) (io.ReadCloser, error) {
	if err := ValidatePath(file); err != nil {
		return nil, missingFile(file, s.manifestURL, err)
	}

	segments := strings.Split(path.Clean(file), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	fileURL := s.baseURL + "/" + FilesDir + "/" + strings.Join(segments, "/")

	resp, err := s.get(ctx, fileURL)
	if err != nil {
		return nil, errors.New(errors.CodeRegistryUnavail).Wrap(err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, missingFile(file, s.manifestURL, fs.ErrNotExist)
	default:
		resp.Body.Close()
		return nil, errors.New(errors.CodeRegistryUnavail).
			WithDetail(fmt.Sprintf("Could not download %s: status %d", file, resp.StatusCode))
	}
}

func (s *HTTPSource) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml, */*")
	return s.client.Do(req)
}
