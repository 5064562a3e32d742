// Package registry provides the fiberui component registry.
//
// Components are distributed as source files that developers copy into
// their projects and own completely. A registry is a manifest plus a
// files/ tree:
//
//	registry.yaml
//	files/components/button.tsx
//	files/lib/utils.ts
//
// # Registry Manifest
//
//	name: fiberui
//	version: 0.4.0
//	bootstrap:
//	  files: [lib/utils.ts]
//	  dependencies: [clsx, tailwind-merge]
//	components:
//	  - name: button
//	    dependencies: ["@react-aria/button"]
//	    files: [components/button.tsx]
//	  - name: select
//	    registryDependencies: [popover]
//	    files: [components/select.tsx]
//
// JSON manifests (registry.json) with the same shape are accepted.
//
// # Sources
//
// A registry can be read from the copy embedded in the binary, a local
// directory, an HTTP(S) server or an S3 bucket; see Open.
//
// # Usage
//
//	src, err := registry.Open(cfg.Registry, registry.OpenOptions{BaseDir: cfg.Dir()})
//	store, err := registry.Load(ctx, src, nil)
//	button, err := store.Get("button")
package registry
