package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/mfolders/internal/folders"
	"github.com/starford/mfolders/internal/host"
	"github.com/starford/mfolders/internal/storage"
)

// services bundles the store, the macro directory and the engine built from a
// Config. The engine is reconciled before open returns.
type services struct {
	store  storage.Store
	dir    *host.Dir
	engine *folders.Engine

	iconsDir string
}

func open(ctx context.Context, cfg *Config, logger *slog.Logger, sink folders.RenderSink) (*services, error) {
	if err := os.MkdirAll(cfg.Host.MacrosPath, 0o755); err != nil {
		return nil, fmt.Errorf("create macros dir: %w", err)
	}
	dir, err := host.NewDir(cfg.Host.MacrosPath)
	if err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	store, err := storage.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	engine := folders.New(store, dir, folders.Options{
		DepthLimit: cfg.Folders.DepthLimit,
		ClientID:   cfg.Folders.ClientID,
		Users:      cfg.Host.Users,
		Logger:     logger,
		Sink:       sink,
	})
	rt := &services{store: store, dir: dir, engine: engine, iconsDir: cfg.Folders.IconsPath}

	rep, err := engine.Reconcile(ctx, false)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("initial reconcile: %w", err)
	}
	logger.Info("Folders reconciled",
		slog.Int("folders", rep.Folders),
		slog.Int("entries", rep.Entries),
		slog.Bool("bootstrapped", rep.Bootstrapped))

	return rt, nil
}

// Close stops the engine and releases the store.
func (rt *services) Close() {
	rt.engine.Close()
	if err := rt.store.Close(); err != nil {
		slog.Error("store close failed", slog.String("error", err.Error()))
	}
}

func (a *application) validate() error {
	if a.config == nil {
		return errors.New("config is required")
	}
	return nil
}
