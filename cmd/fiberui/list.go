package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) listCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all available components",
		Long: `List all components available in the registry, one name per line.

With --long, also show each component's type, install status and the
components it builds on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd.Context(), long)
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show details for each component")

	return cmd
}

func (a *app) runList(ctx context.Context, long bool) error {
	p, err := a.openProject(ctx)
	if err != nil {
		return err
	}

	if !long {
		for _, name := range p.store.SortedNames() {
			fmt.Fprintln(a.stdout, name)
		}
		return nil
	}

	installed := make(map[string]bool, len(p.cfg.Installed))
	for _, name := range p.cfg.Installed {
		installed[name] = true
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, name := range p.store.SortedNames() {
		d, _ := p.store.Get(name)

		status := " "
		if installed[name] {
			status = "✓"
		}
		kind := d.Type
		if kind == "" {
			kind = "component"
		}
		desc := d.Description
		if len(d.RegistryDependencies) > 0 {
			desc += " (requires: " + strings.Join(d.RegistryDependencies, ", ") + ")"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", status, name, kind, desc)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	a.out.println("")
	a.out.info("Registry %s %s (%s)", p.store.Name(), p.store.Version(), p.src.Location())
	return nil
}
