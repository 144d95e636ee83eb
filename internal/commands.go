package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/mfolders/internal/folders"
	"github.com/starford/mfolders/internal/mcpserver"
	"github.com/starford/mfolders/internal/models"
)

// oneShot opens the engine, runs fn and tears everything down again.
func oneShot(ctx context.Context, opts []Option, fn func(*services, *slog.Logger) error) error {
	app := newApplication(opts)
	if err := app.validate(); err != nil {
		return err
	}
	logger := app.logger()

	rt, err := open(ctx, app.config, logger, folders.RenderFunc(func() {}))
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt, logger)
}

// Export writes the folder map to w.
func Export(ctx context.Context, w io.Writer, opts ...Option) error {
	return oneShot(ctx, opts, func(rt *services, _ *slog.Logger) error {
		data, err := rt.engine.ExportState(ctx)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		return nil
	})
}

// Import replaces the folder map with data and reconciles it.
func Import(ctx context.Context, data []byte, opts ...Option) (models.ReconcileReport, error) {
	var rep models.ReconcileReport
	err := oneShot(ctx, opts, func(rt *services, logger *slog.Logger) error {
		var err error
		rep, err = rt.engine.ImportState(ctx, data)
		if err != nil {
			return err
		}
		logger.Info("Folders imported",
			slog.Int("folders", rep.Folders),
			slog.Int("pruned", len(rep.Pruned)))
		return nil
	})
	return rep, err
}

// Reconcile runs one reconciliation pass and reports what it repaired.
func Reconcile(ctx context.Context, opts ...Option) (models.ReconcileReport, error) {
	var rep models.ReconcileReport
	err := oneShot(ctx, opts, func(rt *services, _ *slog.Logger) error {
		var err error
		rep, err = rt.engine.Reconcile(ctx, false)
		return err
	})
	return rep, err
}

// ServeMCP runs the MCP tool server on stdin/stdout until the client hangs up.
func ServeMCP(ctx context.Context, opts ...Option) error {
	return oneShot(ctx, opts, func(rt *services, logger *slog.Logger) error {
		logger.Info("MCP server starting")
		return mcpserver.New(rt.engine, rt.iconsDir).ServeStdio()
	})
}
