package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fiberui-dev/fiberui/internal/config"
	"github.com/fiberui-dev/fiberui/internal/install"
	"github.com/fiberui-dev/fiberui/internal/logging"
	"github.com/fiberui-dev/fiberui/internal/pkgmgr"
	"github.com/fiberui-dev/fiberui/internal/registry"
	"github.com/fiberui-dev/fiberui/internal/resolver"
)

// project is a loaded consumer project and its registry.
type project struct {
	cfg *config.Config
	// found is false when the project has no fiberui.json yet.
	found bool
	src   registry.Source
	store *registry.Store
}

func (a *app) workDir() (string, error) {
	if a.cwd != "" {
		return filepath.Abs(a.cwd)
	}
	return os.Getwd()
}

// setupLogger builds the logger from flags, falling back to cfg and then
// to defaultLevel.
func (a *app) setupLogger(cfg *config.Config, defaultLevel string) {
	level, format := a.logLevel, a.logFormat
	if cfg != nil {
		if level == "" {
			level = cfg.Log.Level
		}
		if format == "" {
			format = cfg.Log.Format
		}
	}
	if level == "" {
		level = defaultLevel
	}
	a.jsonErrors = strings.EqualFold(format, "json")
	a.logger = logging.New(logging.Options{Level: level, Format: format, Output: a.stderr})
}

// openProject loads the project config and its registry.
func (a *app) openProject(ctx context.Context) (*project, error) {
	dir, err := a.workDir()
	if err != nil {
		return nil, err
	}

	cfg, found, err := config.LoadOrDefault(dir)
	if err != nil {
		return nil, err
	}
	a.setupLogger(cfg, "warn")

	location := cfg.Registry
	if a.registry != "" {
		location = a.registry
	}
	src, err := registry.Open(location, registry.OpenOptions{BaseDir: cfg.Dir()})
	if err != nil {
		return nil, err
	}

	store, err := registry.Load(ctx, src, a.metrics)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("registry loaded",
		"location", src.Location(),
		"name", store.Name(),
		"version", store.Version(),
		"components", store.Len())

	return &project{cfg: cfg, found: found, src: src, store: store}, nil
}

func (p *project) resolver(a *app) *resolver.Resolver {
	return resolver.New(p.store,
		resolver.WithDestMapper(p.cfg.DestPath),
		resolver.WithMetrics(a.metrics))
}

func (p *project) materializer(a *app) *install.Materializer {
	return install.New(p.src, a.fs,
		install.WithConcurrency(p.cfg.Install.Concurrency),
		install.WithLogger(a.logger),
		install.WithMetrics(a.metrics))
}

// display returns path relative to the project root when possible.
func (p *project) display(path string) string {
	if rel, err := filepath.Rel(p.cfg.Dir(), path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(rel)
	}
	return path
}

// printOutcomes prints one line per outcome followed by the summary.
func (a *app) printOutcomes(p *project, outcomes []install.Outcome) {
	for _, o := range outcomes {
		a.out.outcome(o, p.display(o.Path))
	}
	a.out.summary(install.Summarize(outcomes))
}

// printDependencyHints prints the package manager commands for packages
// the project does not declare yet.
func (a *app) printDependencyHints(p *project, res *resolver.Result) {
	dir := p.cfg.Dir()
	pm := pkgmgr.Detect(a.fs, dir)

	deps, err := pkgmgr.Missing(a.fs, dir, res.Dependencies)
	if err != nil {
		a.logger.Warn("could not read package.json", "error", err)
		deps = res.Dependencies
	}
	devDeps, err := pkgmgr.Missing(a.fs, dir, res.DevDependencies)
	if err != nil {
		devDeps = res.DevDependencies
	}

	cmds := []string{pm.InstallCommand(deps, false), pm.InstallCommand(devDeps, true)}
	if cmds[0] == "" && cmds[1] == "" {
		return
	}
	a.out.println("")
	a.out.info("Install the required packages:")
	for _, c := range cmds {
		if c != "" {
			a.out.info("  " + a.out.accentStyle.Render(c))
		}
	}
}

// flushMetrics writes the metrics textfile configured for the project.
func (a *app) flushMetrics(p *project) {
	path := p.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.cfg.Dir(), path)
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.logger.Warn("could not write metrics textfile", "path", path, "error", err)
	}
}
