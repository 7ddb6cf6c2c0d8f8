package engine

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer"
	"github.com/fsnotify/fsnotify"
)

// configWatcher reloads a renderer TOML file whenever it changes on disk and hands the parsed
// configuration to the render thread through a single-slot channel.
type configWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	updates chan renderer.Config
	logger  *slog.Logger
	done    chan struct{}
}

// newConfigWatcher starts watching path. The parent directory is watched rather than the file itself
// so that editors which save by renaming a temporary file are still picked up.
//
// Parameters:
//   - path: the TOML file to watch
//   - logger: destination for reload diagnostics
//
// Returns:
//   - *configWatcher: the running watcher
//   - error: an error if the path cannot be resolved or watched
func newConfigWatcher(path string, logger *slog.Logger) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch config %q: %w", abs, err)
	}

	cw := &configWatcher{
		path:    abs,
		watcher: w,
		updates: make(chan renderer.Config, 1),
		logger:  logger,
		done:    make(chan struct{}),
	}
	go cw.watch()
	return cw, nil
}

func (cw *configWatcher) watch() {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := renderer.LoadConfig(cw.path)
			if err != nil {
				cw.logger.Warn("ignoring config reload", "path", cw.path, "error", err)
				continue
			}
			cw.logger.Debug("config reloaded", "path", cw.path)
			cw.publish(cfg)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("config watcher error", "error", err)
		}
	}
}

// publish replaces any configuration the render thread has not consumed yet.
func (cw *configWatcher) publish(cfg renderer.Config) {
	for {
		select {
		case cw.updates <- cfg:
			return
		default:
			select {
			case <-cw.updates:
			default:
			}
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (cw *configWatcher) Close() error {
	err := cw.watcher.Close()
	<-cw.done
	return err
}

// applyConfig applies the runtime-adjustable parts of a reloaded configuration.
// Settings fixed at renderer creation are reported and left alone.
func (e *engine) applyConfig(cfg renderer.Config) {
	if cfg.VSync != e.renderer.VSync() {
		if err := e.renderer.SetVSync(cfg.VSync); err != nil {
			e.logger.Error("failed to apply vsync from config", "vsync", cfg.VSync, "error", err)
		} else {
			e.logger.Info("vsync changed from config", "vsync", cfg.VSync)
		}
	}
	if int(cfg.SampleCount) != e.renderer.SampleCount() {
		e.logger.Warn("sample count change needs a restart", "configured", int(cfg.SampleCount), "active", e.renderer.SampleCount())
	}
	if cfg.GPUTiming != e.renderer.GPUTimer().Enabled() {
		e.logger.Warn("gpu timing change needs a restart", "configured", cfg.GPUTiming)
	}
}
