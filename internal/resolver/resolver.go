// Package resolver turns requested component names into the deduplicated
// set of files and package dependencies to install. It performs no I/O.
package resolver

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fiberui-dev/fiberui/internal/errors"
	"github.com/fiberui-dev/fiberui/internal/registry"
	"github.com/fiberui-dev/fiberui/internal/telemetry"
)

// Lookup finds component descriptors by name. *registry.Store implements it.
type Lookup interface {
	Lookup(name string) (registry.Descriptor, bool)
}

// FilePair maps a registry file to its destination, relative to the
// install target directory.
type FilePair struct {
	Source string
	Dest   string
}

// Result is the outcome of a resolution. Every slice is an ordered set:
// entries keep the order of their first occurrence.
type Result struct {
	// Components lists resolved components, registry dependencies first.
	Components      []string
	Files           []FilePair
	Dependencies    []string
	DevDependencies []string
}

// Empty reports whether the result has nothing to install.
func (r *Result) Empty() bool {
	return r == nil || len(r.Files) == 0
}

// CycleError is returned when a component transitively depends on itself.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "cyclic component dependency: " + strings.Join(e.Chain, " -> ")
}

// Unwrap exposes the coded error for errors.As and formatting.
func (e *CycleError) Unwrap() error {
	return errors.New(errors.CodeCyclicDependency).
		WithDetail(strings.Join(e.Chain, " → ")).
		WithSuggestion("Remove one of the registryDependencies entries in the chain")
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDestMapper sets how registry file paths map to destination paths.
// The default keeps them unchanged.
func WithDestMapper(fn func(file string) string) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.dest = fn
		}
	}
}

// WithMetrics records resolutions in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// Resolver computes resolution results against a registry.
type Resolver struct {
	lookup  Lookup
	dest    func(string) string
	metrics *telemetry.Metrics
}

// New creates a Resolver over lookup.
func New(lookup Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup: lookup,
		dest:   func(f string) string { return f },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves names. Names missing from the registry, directly or
// through a registry dependency, are returned in unknown and skipped;
// the remaining names still resolve. A dependency cycle aborts the whole
// request with a *CycleError.
func (r *Resolver) Resolve(ctx context.Context, names []string) (*Result, []string, error) {
	_, span := telemetry.StartSpan(ctx, "resolver.Resolve",
		attribute.StringSlice("components.requested", names))

	res, unknown, err := r.resolve(names)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, unknown, err
	}

	r.metrics.ObserveResolution(len(res.Components), len(unknown))
	return res, unknown, nil
}

func (r *Resolver) resolve(names []string) (*Result, []string, error) {
	b := newBuilder(r.dest)
	unknownSeen := make(map[string]bool)
	var unknown []string

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		order, missing, err := r.closure(name)
		if err != nil {
			return nil, unknown, err
		}
		if len(missing) > 0 {
			for _, m := range missing {
				if !unknownSeen[m] {
					unknownSeen[m] = true
					unknown = append(unknown, m)
				}
			}
			continue
		}
		for _, d := range order {
			b.add(d)
		}
	}

	return b.result(), unknown, nil
}

// closure returns name and its registry dependencies in install order,
// dependencies first. missing lists names the registry does not know.
func (r *Resolver) closure(name string) (order []registry.Descriptor, missing []string, err error) {
	done := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var visit func(n string) error
	visit = func(n string) error {
		if done[n] {
			return nil
		}
		if onStack[n] {
			start := 0
			for i, s := range stack {
				if s == n {
					start = i
					break
				}
			}
			chain := append(append([]string{}, stack[start:]...), n)
			return &CycleError{Chain: chain}
		}

		d, ok := r.lookup.Lookup(n)
		if !ok {
			missing = append(missing, n)
			done[n] = true
			return nil
		}

		onStack[n] = true
		stack = append(stack, n)
		for _, dep := range d.RegistryDependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		onStack[n] = false

		done[n] = true
		order = append(order, d)
		return nil
	}

	if err := visit(name); err != nil {
		return nil, nil, err
	}
	return order, missing, nil
}

// Bootstrap builds the result for a registry's init file set.
func (r *Resolver) Bootstrap(bs registry.Bootstrap) *Result {
	b := newBuilder(r.dest)
	b.add(registry.Descriptor{
		Files:           bs.Files,
		Dependencies:    bs.Dependencies,
		DevDependencies: bs.DevDependencies,
	})
	return b.result()
}

// builder accumulates ordered sets.
type builder struct {
	dest       func(string) string
	components orderedSet
	files      []FilePair
	fileSeen   map[string]bool
	deps       orderedSet
	devDeps    orderedSet
}

func newBuilder(dest func(string) string) *builder {
	return &builder{dest: dest, fileSeen: make(map[string]bool)}
}

func (b *builder) add(d registry.Descriptor) {
	if d.Name != "" {
		b.components.add(d.Name)
	}
	for _, f := range d.Files {
		src := path.Clean(f)
		dst := path.Clean(b.dest(src))
		if b.fileSeen[dst] {
			continue
		}
		b.fileSeen[dst] = true
		b.files = append(b.files, FilePair{Source: src, Dest: dst})
	}
	for _, dep := range d.Dependencies {
		b.deps.add(dep)
	}
	for _, dep := range d.DevDependencies {
		b.devDeps.add(dep)
	}
}

func (b *builder) result() *Result {
	return &Result{
		Components:      b.components.items,
		Files:           b.files,
		Dependencies:    b.deps.items,
		DevDependencies: b.devDeps.items,
	}
}

type orderedSet struct {
	items []string
	seen  map[string]bool
}

func (s *orderedSet) add(v string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[v] {
		return
	}
	s.seen[v] = true
	s.items = append(s.items, v)
}

// String summarizes a result for logs.
func (r *Result) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d components, %d files, %d deps, %d devDeps",
		len(r.Components), len(r.Files), len(r.Dependencies), len(r.DevDependencies))
}
