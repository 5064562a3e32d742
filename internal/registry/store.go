package registry

import (
	"fmt"
	"path"
	"sort"

	"github.com/fiberui-dev/fiberui/internal/errors"
)

// Store is the read-only component table built from a manifest.
// It is constructed once and shared by reference; nothing mutates it.
type Store struct {
	name      string
	version   string
	homepage  string
	bootstrap Bootstrap
	byName    map[string]Descriptor
	order     []string
}

// NewStore validates a manifest and builds a Store from it. origin is used
// to locate errors and may be empty.
func NewStore(m *Manifest, origin string) (*Store, error) {
	if m == nil {
		return nil, errors.New(errors.CodeInvalidManifest).WithDetail("manifest is empty")
	}

	s := &Store{
		name:      m.Name,
		version:   m.Version,
		homepage:  m.Homepage,
		bootstrap: m.Bootstrap.clone(),
		byName:    make(map[string]Descriptor, len(m.Components)),
		order:     make([]string, 0, len(m.Components)),
	}

	if err := validateFiles("bootstrap", m.Bootstrap.Files); err != nil {
		return nil, err
	}
	if err := validatePackages("bootstrap", "dependencies", m.Bootstrap.Dependencies); err != nil {
		return nil, err
	}
	if err := validatePackages("bootstrap", "devDependencies", m.Bootstrap.DevDependencies); err != nil {
		return nil, err
	}

	for i := range m.Components {
		d := m.Components[i]
		if err := d.Validate(); err != nil {
			return nil, locate(err, origin, d.line)
		}
		if _, dup := s.byName[d.Name]; dup {
			return nil, locate(errors.New(errors.CodeDuplicateComponent).
				WithDetail(fmt.Sprintf("component %q is defined more than once", d.Name)), origin, d.line)
		}
		if d.Type == "" {
			d.Type = TypeComponent
		}
		s.byName[d.Name] = d.clone()
		s.order = append(s.order, d.Name)
	}

	for _, name := range s.order {
		d := s.byName[name]
		for _, dep := range d.RegistryDependencies {
			if _, ok := s.byName[dep]; !ok {
				return nil, locate(errors.New(errors.CodeInvalidManifest).
					WithDetail(fmt.Sprintf("component %q depends on unknown component %q", name, dep)), origin, d.line)
			}
		}
	}

	return s, nil
}

func locate(err error, origin string, line int) error {
	fe, ok := err.(*errors.FiberError)
	if !ok || origin == "" || line == 0 {
		return err
	}
	return fe.WithLocation(origin, line, 0)
}

// Get returns the descriptor for name, or an E143 error when the
// registry has no such component.
func (s *Store) Get(name string) (Descriptor, error) {
	d, ok := s.Lookup(name)
	if !ok {
		return Descriptor{}, UnknownComponent(name)
	}
	return d, nil
}

// Lookup returns the descriptor for name.
func (s *Store) Lookup(name string) (Descriptor, bool) {
	d, ok := s.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return d.clone(), true
}

// Names returns component names in manifest order.
func (s *Store) Names() []string {
	return cloneStrings(s.order)
}

// SortedNames returns component names sorted alphabetically.
func (s *Store) SortedNames() []string {
	names := s.Names()
	sort.Strings(names)
	return names
}

// Components returns every descriptor in manifest order.
func (s *Store) Components() []Descriptor {
	out := make([]Descriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name].clone())
	}
	return out
}

// Len returns the number of components.
func (s *Store) Len() int {
	return len(s.order)
}

// Bootstrap returns the init file set.
func (s *Store) Bootstrap() Bootstrap {
	return s.bootstrap.clone()
}

// Name returns the registry name.
func (s *Store) Name() string { return s.name }

// Version returns the registry version.
func (s *Store) Version() string { return s.version }

// Manifest rebuilds a manifest equivalent to the one the store was built from.
func (s *Store) Manifest() *Manifest {
	return &Manifest{
		Name:       s.name,
		Version:    s.version,
		Homepage:   s.homepage,
		Bootstrap:  s.bootstrap.clone(),
		Components: s.Components(),
	}
}

// Files returns every file path referenced by the registry, bootstrap first.
func (s *Store) Files() []string {
	seen := make(map[string]bool)
	var files []string
	add := func(list []string) {
		for _, f := range list {
			f = path.Clean(f)
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	add(s.bootstrap.Files)
	for _, name := range s.order {
		add(s.byName[name].Files)
	}
	return files
}

// UnknownComponent returns the error reported for a name missing from the registry.
func UnknownComponent(name string) *errors.FiberError {
	return errors.New(errors.CodeUnknownComponent).
		WithDetail("Component '" + name + "' not found in registry").
		WithSuggestion("Run 'fiberui list' to see available components")
}
