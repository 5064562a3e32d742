package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fiberui-dev/fiberui/internal/config"
	"github.com/fiberui-dev/fiberui/internal/install"
)

func (a *app) initCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize fiberui in your project",
		Long: `Initialize fiberui in your project.

This creates fiberui.json and the base files every component relies on:
  • lib/utils.ts        - class name helpers
  • styles/fiberui.css  - theme variables`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd.Context(), overwrite)
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing bootstrap files")

	return cmd
}

func (a *app) runInit(ctx context.Context, overwrite bool) error {
	p, err := a.openProject(ctx)
	if err != nil {
		return err
	}
	defer a.flushMetrics(p)

	a.out.info("Initializing fiberui...")
	a.out.println("")

	if p.found {
		a.out.info("%s already exists, keeping it", config.ConfigFileName)
	} else {
		if err := p.cfg.Save(); err != nil {
			return err
		}
		a.out.success("Created %s", config.ConfigFileName)
	}

	res := p.resolver(a).Bootstrap(p.store.Bootstrap())
	outcomes := p.materializer(a).Materialize(ctx, res, p.cfg.TargetPath(),
		install.Options{Overwrite: overwrite || p.cfg.Install.Overwrite})
	a.printOutcomes(p, outcomes)

	if install.HasFailures(outcomes) {
		a.out.errorMsg("%d bootstrap file(s) could not be written", install.Summarize(outcomes).Failed)
		return &exitError{code: exitFailure}
	}

	a.printDependencyHints(p, res)
	a.out.println("")
	a.out.info("Ready! Add components with:")
	a.out.println("")
	a.out.info("  fiberui add button select")
	a.out.println("")
	return nil
}
