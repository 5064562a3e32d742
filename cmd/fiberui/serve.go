package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fiberui-dev/fiberui/internal/config"
	"github.com/fiberui-dev/fiberui/internal/registry"
	"github.com/fiberui-dev/fiberui/internal/registryserver"
)

type serveOptions struct {
	addr  string
	watch bool
}

func (a *app) serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve [registry-dir]",
		Short: "Serve a registry over HTTP",
		Long: `Serve a component registry over HTTP so other projects can use it
with --registry http://host:port.

Without an argument the registry given by --registry (or the embedded
registry) is served. With --watch the manifest is reloaded whenever it
changes on disk.

Endpoints:
  /registry.json   /registry.yaml   /files/{path}   /healthz   /metrics`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location := a.registry
			if len(args) == 1 {
				location = args[0]
			}
			return a.runServe(cmd.Context(), location, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:7777", "Address to listen on")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the manifest when it changes")

	return cmd
}

func (a *app) runServe(ctx context.Context, location string, opts serveOptions) error {
	a.setupLogger(nil, "info")

	dir, err := a.workDir()
	if err != nil {
		return err
	}
	if location == "" {
		location = config.DefaultRegistry
	}
	src, err := registry.Open(location, registry.OpenOptions{BaseDir: dir})
	if err != nil {
		return err
	}

	srv, err := registryserver.New(ctx, src,
		registryserver.WithLogger(a.logger),
		registryserver.WithMetrics(a.metrics))
	if err != nil {
		return err
	}

	if opts.watch {
		go func() {
			if err := srv.Watch(ctx, registryserver.DefaultDebounce, nil); err != nil {
				a.logger.Error("watch stopped", "error", err)
			}
		}()
	}

	store := srv.Store()
	a.out.success("Serving %s %s (%d components) on http://%s", store.Name(), store.Version(), store.Len(), opts.addr)
	return srv.ListenAndServe(ctx, opts.addr)
}
