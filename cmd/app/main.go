package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/mfolders/internal"
	pkgconfig "github.com/starford/mfolders/pkg/config"
)

// loadConfig reads the --config file. A missing file is only accepted when
// the flag was left at its default; the built-in defaults are used then.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")
	found, err := pkgconfig.LoadOptional(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		if cmd.IsSet("config") {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		slog.Warn("config file not found, using defaults", slog.String("path", path))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func exportFolders(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	var out io.Writer = os.Stdout
	if path := cmd.Args().First(); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return internal.Export(ctx, out, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func importFolders(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("import: file argument is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rep, err := internal.Import(ctx, data, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	fmt.Printf("imported %d folders, %d entries (%d pruned, %d unassigned)\n",
		rep.Folders, rep.Entries, len(rep.Pruned), len(rep.Unassigned))
	return nil
}

func reconcile(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rep, err := internal.Reconcile(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	fmt.Printf("reconciled %d folders, %d entries (%d pruned, %d unassigned)\n",
		rep.Folders, rep.Entries, len(rep.Pruned), len(rep.Unassigned))
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "mfolders",
		Usage:  "Folder tree for a macro collection, with REST, SSE and MCP surfaces",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{Name: "serve", Usage: "Run the HTTP server (default)", Action: serve},
			{Name: "mcp", Usage: "Run the MCP tool server on stdio", Action: serveMCP},
			{Name: "export", Usage: "Write the folder map to a file or stdout", ArgsUsage: "[file]", Action: exportFolders},
			{Name: "import", Usage: "Replace the folder map from a file", ArgsUsage: "<file>", Action: importFolders},
			{Name: "reconcile", Usage: "Repair the folder map against the macros directory", Action: reconcile},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
