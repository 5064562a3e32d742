package main

import (
	"context"
	stderrors "errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fiberui-dev/fiberui/internal/install"
	"github.com/fiberui-dev/fiberui/internal/registry"
	"github.com/fiberui-dev/fiberui/internal/resolver"
)

type addOptions struct {
	overwrite bool
	path      string
}

func (a *app) addCmd() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add <component>...",
		Short: "Add components to your project",
		Long: `Add components to your project.

Components are copied to your project as source code that you own.
Components they build on are added too. Existing files are skipped
unless --overwrite is given.

Exit status is 0 on success, 1 if a component is unknown and 2 if any
file could not be written.

Examples:
  fiberui add button
  fiberui add select slider --overwrite
  fiberui add button --path=app/ui`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAdd(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Replace files that already exist")
	cmd.Flags().StringVar(&opts.path, "path", "", "Override the target directory")

	return cmd
}

func (a *app) runAdd(ctx context.Context, names []string, opts addOptions) error {
	p, err := a.openProject(ctx)
	if err != nil {
		return err
	}
	defer a.flushMetrics(p)

	res, unknown, err := p.resolver(a).Resolve(ctx, names)
	if err != nil {
		var cycle *resolver.CycleError
		if stderrors.As(err, &cycle) {
			a.printError(err)
			return &exitError{code: exitUnknown}
		}
		return err
	}

	for _, name := range unknown {
		a.out.errorMsg("%s", registry.UnknownComponent(name).Error())
	}

	target := p.cfg.TargetPath()
	if opts.path != "" {
		target = opts.path
		if !filepath.IsAbs(target) {
			dir, err := a.workDir()
			if err != nil {
				return err
			}
			target = filepath.Join(dir, target)
		}
	}

	outcomes := p.materializer(a).Materialize(ctx, res, target,
		install.Options{Overwrite: opts.overwrite || p.cfg.Install.Overwrite})
	a.printOutcomes(p, outcomes)

	code := exitOK
	if len(unknown) > 0 {
		code = exitUnknown
		a.out.info("Run 'fiberui list' to see available components")
	}
	if install.HasFailures(outcomes) {
		code = exitFailure
		a.out.errorMsg("%d file(s) could not be written", install.Summarize(outcomes).Failed)
	}

	if len(res.Components) > 0 && !install.HasFailures(outcomes) {
		p.cfg.MarkInstalled(res.Components...)
		if err := p.cfg.Save(); err != nil {
			a.printError(err)
			code = exitFailure
		}
	}

	if !res.Empty() {
		a.printDependencyHints(p, res)
	}

	if code != exitOK {
		return &exitError{code: code}
	}
	return nil
}
