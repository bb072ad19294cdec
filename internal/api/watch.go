package api

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// Watch reloads the server whenever the file at path is written or created,
// until ctx is done. The directory is watched so that
// editors replacing the file are noticed too.
func (s *Server) Watch(ctx context.Context, path string) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "invalid config path").WithDetail("path", path)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create file watcher")
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to watch config directory").WithDetail("path", path)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				changed := event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
				if !changed || filepath.Clean(event.Name) != target {
					continue
				}
				s.logger.Info("config file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
				if err := s.Reload(ctx); err != nil {
					s.logger.Error("reload failed, keeping current configuration", zap.Error(err))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("file watcher error", zap.Error(err))
			}
		}
	}()

	s.logger.Info("watching config file", zap.String("path", target))
	return nil
}
