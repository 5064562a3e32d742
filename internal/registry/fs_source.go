package registry

import (
	"context"
	"embed"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/fiberui-dev/fiberui/internal/errors"
)

//go:embed data
var embeddedData embed.FS

// FSSource reads a registry laid out on an fs.FS:
//
//	registry.yaml
//	files/components/button.tsx
//	files/lib/utils.ts
type FSSource struct {
	fsys     fs.FS
	location string
	dir      string
}

// NewFSSource creates a source over fsys. location is used in messages.
func NewFSSource(fsys fs.FS, location string) *FSSource {
	return &FSSource{fsys: fsys, location: location}
}

// NewDirSource creates a source over a registry directory on disk.
func NewDirSource(dir string) (*FSSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New(errors.CodeRegistryUnavail).Wrap(err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.New(errors.CodeRegistryUnavail).
			WithDetail("Registry directory " + dir + " does not exist").
			WithSuggestion("Set \"registry\" in fiberui.json to a directory, URL or \"embedded\"").
			Wrap(err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.CodeRegistryUnavail).
			WithDetail(dir + " is not a directory")
	}
	return &FSSource{fsys: os.DirFS(abs), location: abs, dir: abs}, nil
}

// Embedded returns the registry compiled into the binary.
func Embedded() *FSSource {
	sub, err := fs.Sub(embeddedData, "data")
	if err != nil {
		panic("registry: embedded data missing: " + err.Error())
	}
	return &FSSource{fsys: sub, location: EmbeddedLocation}
}

// Location implements Source.
func (s *FSSource) Location() string {
	return s.location
}

// Dir returns the on-disk directory of the registry, or "" for non-disk sources.
func (s *FSSource) Dir() string {
	return s.dir
}

// ReadManifest implements Source.
func (s *FSSource) ReadManifest(ctx context.Context) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	for _, name := range ManifestNames {
		data, err := fs.ReadFile(s.fsys, name)
		if err == nil {
			origin := name
			if s.dir != "" {
				origin = filepath.Join(s.dir, name)
			} else if s.location != "" {
				origin = s.location + ":" + name
			}
			return data, origin, nil
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, "", errors.New(errors.CodeRegistryUnavail).Wrap(err)
		}
	}
	return nil, "", errors.New(errors.CodeRegistryUnavail).
		WithDetail("No registry.yaml or registry.json found in " + s.location)
}

// Open implements Source.
func (s *FSSource) Open(ctx context.Context, file string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidatePath(file); err != nil {
		return nil, missingFile(file, s.location, err)
	}
	name := path.Join(FilesDir, path.Clean(file))
	f, err := s.fsys.Open(name)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, missingFile(file, s.location, err)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, missingFile(file, s.location, fs.ErrNotExist)
	}
	return f, nil
}
