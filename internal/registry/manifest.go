package registry

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fiberui-dev/fiberui/internal/errors"
)

// Component types.
const (
	TypeComponent = "component"
	TypeHook      = "hook"
	TypeLib       = "lib"
)

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Manifest represents a registry manifest.
//
// Manifests are written in YAML; JSON manifests are accepted too since
// they are valid YAML.
type Manifest struct {
	Name       string       `yaml:"name" json:"name"`
	Version    string       `yaml:"version" json:"version"`
	Homepage   string       `yaml:"homepage,omitempty" json:"homepage,omitempty"`
	Bootstrap  Bootstrap    `yaml:"bootstrap" json:"bootstrap"`
	Components []Descriptor `yaml:"components" json:"components"`
}

// Bootstrap is the fixed file set written by `fiberui init`.
type Bootstrap struct {
	Files           []string `yaml:"files" json:"files"`
	Dependencies    []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	DevDependencies []string `yaml:"devDependencies,omitempty" json:"devDependencies,omitempty"`
}

// Descriptor describes one installable component: its files and the
// packages it needs.
type Descriptor struct {
	Name                 string   `yaml:"name" json:"name"`
	Type                 string   `yaml:"type,omitempty" json:"type,omitempty"`
	Description          string   `yaml:"description,omitempty" json:"description,omitempty"`
	Dependencies         []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	DevDependencies      []string `yaml:"devDependencies,omitempty" json:"devDependencies,omitempty"`
	RegistryDependencies []string `yaml:"registryDependencies,omitempty" json:"registryDependencies,omitempty"`
	Files                []string `yaml:"files" json:"files"`

	line int
}

// clone returns a deep copy so callers cannot mutate store contents.
func (d Descriptor) clone() Descriptor {
	d.Dependencies = cloneStrings(d.Dependencies)
	d.DevDependencies = cloneStrings(d.DevDependencies)
	d.RegistryDependencies = cloneStrings(d.RegistryDependencies)
	d.Files = cloneStrings(d.Files)
	return d
}

func (b Bootstrap) clone() Bootstrap {
	return Bootstrap{
		Files:           cloneStrings(b.Files),
		Dependencies:    cloneStrings(b.Dependencies),
		DevDependencies: cloneStrings(b.DevDependencies),
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// ParseManifest decodes a YAML or JSON manifest. origin names the manifest
// in error locations (a file path when the manifest is local).
func ParseManifest(data []byte, origin string) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.New(errors.CodeInvalidManifest).
			WithDetail(fmt.Sprintf("%s: %v", origin, err)).
			Wrap(err)
	}

	// Record each component's line so validation errors can point at it.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err == nil {
		if items := componentNodes(&root); len(items) == len(m.Components) {
			for i, item := range items {
				m.Components[i].line = item.Line
			}
		}
	}

	return &m, nil
}

func componentNodes(root *yaml.Node) []*yaml.Node {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "components" && doc.Content[i+1].Kind == yaml.SequenceNode {
			return doc.Content[i+1].Content
		}
	}
	return nil
}

// Validate checks a descriptor's shape. It does not check registry
// dependencies, which need the whole manifest.
func (d *Descriptor) Validate() error {
	if !nameRe.MatchString(d.Name) {
		return errors.New(errors.CodeInvalidManifest).
			WithDetail(fmt.Sprintf("invalid component name %q", d.Name)).
			WithSuggestion("Component names use lowercase letters, digits and dashes")
	}
	switch d.Type {
	case "", TypeComponent, TypeHook, TypeLib:
	default:
		return errors.New(errors.CodeInvalidManifest).
			WithDetail(fmt.Sprintf("component %q has unknown type %q", d.Name, d.Type))
	}
	if len(d.Files) == 0 {
		return errors.New(errors.CodeInvalidManifest).
			WithDetail(fmt.Sprintf("component %q lists no files", d.Name))
	}
	if err := validateFiles(d.Name, d.Files); err != nil {
		return err
	}
	if err := validatePackages(d.Name, "dependencies", d.Dependencies); err != nil {
		return err
	}
	if err := validatePackages(d.Name, "devDependencies", d.DevDependencies); err != nil {
		return err
	}
	for _, dep := range d.RegistryDependencies {
		if dep == d.Name {
			return errors.New(errors.CodeCyclicDependency).
				WithDetail(fmt.Sprintf("component %q lists itself as a registry dependency", d.Name))
		}
	}
	return nil
}

func validateFiles(owner string, files []string) error {
	for _, f := range files {
		if err := ValidatePath(f); err != nil {
			return errors.New(errors.CodeInvalidManifest).
				WithDetail(fmt.Sprintf("%s: %v", owner, err)).
				WithExample("files:\n  - components/button.tsx")
		}
	}
	return nil
}

func validatePackages(owner, field string, pkgs []string) error {
	for _, p := range pkgs {
		if strings.TrimSpace(p) == "" || strings.ContainsAny(p, " \t\n") {
			return errors.New(errors.CodeInvalidManifest).
				WithDetail(fmt.Sprintf("%s: invalid package name %q in %s", owner, p, field))
		}
	}
	return nil
}

// ValidatePath reports whether p is a clean relative slash-separated
// path that stays inside its root.
func ValidatePath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("empty file path")
	case strings.Contains(p, `\`):
		return fmt.Errorf("file path %q must use forward slashes", p)
	case path.IsAbs(p):
		return fmt.Errorf("file path %q must be relative", p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("file path %q escapes the target directory", p)
	}
	return nil
}
