package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
)

const macroExt = ".md"

// Dir is an EntrySource backed by a directory of macro documents. An entry's
// id is its path relative to the root, slash-separated, without extension.
type Dir struct {
	root string // absolute path to the macros directory
}

// NewDir creates a Dir rooted at the given directory. The directory must exist.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("host: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("host: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("host: root is not a directory: %s", abs)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute macros directory.
func (d *Dir) Root() string { return d.root }

// safePath resolves an entry id against the root and rejects any result that
// escapes it.
func (d *Dir) safePath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("host: empty entry id")
	}
	cleaned := filepath.Clean(filepath.FromSlash(id))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("host: absolute ids not allowed: %s", id)
	}
	abs := filepath.Join(d.root, cleaned+macroExt)
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("host: id escapes macros root: %s", id)
	}
	return abs, nil
}

// idFor maps an absolute document path back to its entry id.
func (d *Dir) idFor(absPath string) (string, bool) {
	if !strings.HasSuffix(absPath, macroExt) {
		return "", false
	}
	rel, err := filepath.Rel(d.root, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, macroExt)), true
}

// List walks the root and parses every macro document.
func (d *Dir) List(ctx context.Context) ([]models.EntryDescriptor, error) {
	var out []models.EntryDescriptor
	err := filepath.WalkDir(d.root, func(p string, e fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() {
			if p != d.root && strings.HasPrefix(e.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		id, ok := d.idFor(p)
		if !ok {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, ParseMacro(id, data).Descriptor)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("host: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get reads and parses a single macro document.
func (d *Dir) Get(_ context.Context, id string) (models.EntryDescriptor, bool, error) {
	m, err := d.Read(id)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.EntryDescriptor{}, false, nil
	}
	if err != nil {
		return models.EntryDescriptor{}, false, err
	}
	return m.Descriptor, true, nil
}

// Read returns the parsed macro document for id.
func (d *Dir) Read(id string) (*Macro, error) {
	p, err := d.safePath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("host: read %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("host: read %s: %w", id, err)
	}
	return ParseMacro(id, data), nil
}

// Delete removes the macro document for id.
func (d *Dir) Delete(_ context.Context, id string) error {
	p, err := d.safePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("host: delete %s: %w", id, apperr.ErrNotFound)
		}
		return fmt.Errorf("host: delete %s: %w", id, err)
	}
	return nil
}

// SetPermission rewrites the permission field of the macro document for id
// and returns the updated descriptor. The file is replaced atomically.
func (d *Dir) SetPermission(_ context.Context, id string, level models.PermissionLevel) (models.EntryDescriptor, error) {
	p, err := d.safePath(id)
	if err != nil {
		return models.EntryDescriptor{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.EntryDescriptor{}, fmt.Errorf("host: set permission %s: %w", id, apperr.ErrNotFound)
		}
		return models.EntryDescriptor{}, fmt.Errorf("host: read %s: %w", id, err)
	}
	out, err := SetFrontmatterField(data, "permission", level.String())
	if err != nil {
		return models.EntryDescriptor{}, err
	}
	if err := writeAtomic(p, out); err != nil {
		return models.EntryDescriptor{}, fmt.Errorf("host: write %s: %w", id, err)
	}
	return ParseMacro(id, out).Descriptor, nil
}

// writeAtomic replaces the file at p through a hidden temp file in the same
// directory, which the watcher ignores.
func writeAtomic(p string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p), ".macro-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, p); err != nil {
		return err
	}
	success = true
	return nil
}
