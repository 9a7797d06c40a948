// Package commands implements the scaleviewer subcommands.
package commands

import (
	"context"
	"time"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/config"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
	"github.com/DrNicoArt/scaleviewer/internal/rules"
	"github.com/DrNicoArt/scaleviewer/internal/service"
	"github.com/DrNicoArt/scaleviewer/internal/store"
)

// cfg is loaded once by Setup before any subcommand runs
var cfg *config.Config

// Setup loads configuration and initializes the global logger.
func Setup(configPath string, jsonLogs bool) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	cfg = loaded
	if err := logger.Initialize(jsonLogs || cfg.Log.JSON); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	return nil
}

// runtime is everything a command needs to run analyses, plus the
// resources to release afterwards.
type runtime struct {
	analyzer *service.Analyzer
	watcher  *catalog.Watcher
	postgres *catalog.PostgresSource
	archive  *store.Archive
}

// openRuntime builds the catalog store from configuration, loads the first
// catalog version, the rule set and the optional archive. The file watcher
// is only started when watch is set.
func openRuntime(ctx context.Context, watch bool) (*runtime, error) {
	rt := &runtime{}

	var src catalog.Source
	if cfg.Catalog.PostgresDSN != "" {
		pg, err := catalog.OpenPostgres(ctx, cfg.Catalog.PostgresDSN, cfg.Catalog.Table)
		if err != nil {
			return nil, err
		}
		rt.postgres = pg
		src = pg
	} else {
		src = catalog.NewFileSource(cfg.Catalog.Path)
	}
	catalogs := catalog.NewStore(src)
	if _, err := catalogs.Reload(ctx); err != nil {
		rt.Close()
		return nil, err
	}

	rs, err := rules.LoadFile(cfg.Rules.Path)
	if err != nil {
		rt.Close()
		return nil, err
	}

	if cfg.Archive.Path != "" {
		archive, err := store.Open(cfg.Archive.Path)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.archive = archive
	}

	rt.analyzer = service.NewAnalyzer(catalogs, rs, rt.archive)

	if watch && cfg.Catalog.Watch && rt.postgres == nil {
		debounce := time.Duration(cfg.Catalog.DebounceMS) * time.Millisecond
		w, err := catalog.NewWatcher(cfg.Catalog.Path, catalogs, debounce)
		if err != nil {
			rt.Close()
			return nil, err
		}
		w.Start(ctx)
		rt.watcher = w
	}
	return rt, nil
}

// Close releases the watcher, database connections and archive.
func (rt *runtime) Close() {
	if rt.watcher != nil {
		if err := rt.watcher.Close(); err != nil {
			logger.Warnw("Failed to stop catalog watcher", logger.FieldError, err)
		}
	}
	if rt.postgres != nil {
		if err := rt.postgres.Close(); err != nil {
			logger.Warnw("Failed to close postgres source", logger.FieldError, err)
		}
	}
	if rt.archive != nil {
		if err := rt.archive.Close(); err != nil {
			logger.Warnw("Failed to close archive", logger.FieldError, err)
		}
	}
}
