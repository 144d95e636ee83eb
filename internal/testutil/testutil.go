// Package testutil provides shared test helpers for macro directories and logging.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// Logger returns a JSON logger that discards its output.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// WriteMacro writes a macro document at rel (slash-separated) under root,
// creating parent directories as needed.
func WriteMacro(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// MacroDir creates a temporary macros directory holding files, keyed by
// relative path.
func MacroDir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		WriteMacro(t, root, rel, content)
	}
	return root
}
