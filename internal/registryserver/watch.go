package registryserver

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fiberui-dev/fiberui/internal/errors"
	"github.com/fiberui-dev/fiberui/internal/registry"
)

// DefaultDebounce is how long Watch waits for manifest writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads the registry whenever its manifest changes on disk, until
// ctx is cancelled. Only directory sources can be watched. onReload, if
// set, is called after every reload attempt with its result.
func (s *Server) Watch(ctx context.Context, debounce time.Duration, onReload func(error)) error {
	dirSrc, ok := s.src.(interface{ Dir() string })
	if !ok || dirSrc.Dir() == "" {
		return errors.New(errors.CodeRegistryUnavail).
			WithDetail("Only registry directories can be watched, not " + s.src.Location())
	}
	dir := dirSrc.Dir()
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.FromError(err, errors.CodeRegistryUnavail)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return errors.FromError(err, errors.CodeRegistryUnavail)
	}
	s.logger.Info("watching registry", "dir", dir)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isManifestEvent(event) {
				continue
			}
			s.logger.Debug("manifest changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			err := s.Reload(ctx)
			if err != nil {
				s.logger.Error("registry reload failed, keeping previous registry", "error", err)
			}
			if onReload != nil {
				onReload(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", "error", err)
		}
	}
}

func isManifestEvent(event fsnotify.Event) bool {
	if !slices.Contains(registry.ManifestNames, filepath.Base(event.Name)) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}
