// Package sandbox confines project file operations to one directory tree.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscape is returned for a path that resolves outside the root.
var ErrEscape = errors.New("path escapes the project root")

// Root is a directory that every operation is confined to. Paths given to
// its methods are relative to the root and may use either separator.
type Root struct {
	dir string
}

// New returns a Root for dir, creating the directory if it is missing.
func New(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating root %s: %w", abs, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving root symlinks: %w", err)
	}
	return &Root{dir: resolved}, nil
}

// Dir returns the resolved root directory.
func (r *Root) Dir() string { return r.dir }

// Resolve returns the absolute path for rel after following symlinks in its
// existing prefix. It fails with ErrEscape when the result leaves the root.
func (r *Root) Resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("'%s': %w", rel, ErrEscape)
	}
	candidate := filepath.Clean(filepath.Join(r.dir, filepath.FromSlash(rel)))

	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", fmt.Errorf("resolving '%s': %w", rel, err)
	}

	if resolved != r.dir && !strings.HasPrefix(resolved, r.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("'%s' resolves to '%s': %w", rel, resolved, ErrEscape)
	}
	return resolved, nil
}

// resolveExisting follows symlinks for the longest existing prefix of path
// and appends the rest unchanged.
func resolveExisting(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	dir, base := filepath.Dir(path), filepath.Base(path)
	if dir == path {
		return path, nil
	}
	parent, err := resolveExisting(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, base), nil
}

// ReadFile reads a file inside the root.
func (r *Root) ReadFile(rel string) ([]byte, error) {
	p, err := r.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// WriteFile writes data atomically: a temp file in the target directory is
// synced and renamed over rel.
func (r *Root) WriteFile(rel string, data []byte, perm os.FileMode) error {
	p, err := r.Resolve(rel)
	if err != nil {
		return err
	}
	if _, err := r.Resolve(filepath.Dir(filepath.FromSlash(rel))); err != nil {
		return fmt.Errorf("parent directory: %w", err)
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".contentpack-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", p, err)
	}

	success = true
	return nil
}

// Rename moves one file inside the root to another location inside it.
func (r *Root) Rename(fromRel, toRel string) error {
	from, err := r.Resolve(fromRel)
	if err != nil {
		return err
	}
	to, err := r.Resolve(toRel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.Rename(from, to)
}

// Remove deletes a file inside the root.
func (r *Root) Remove(rel string) error {
	p, err := r.Resolve(rel)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// MkdirAll creates a directory tree inside the root.
func (r *Root) MkdirAll(rel string, perm os.FileMode) error {
	p, err := r.Resolve(rel)
	if err != nil {
		return err
	}
	return os.MkdirAll(p, perm)
}

// Exists reports whether rel exists inside the root.
func (r *Root) Exists(rel string) bool {
	p, err := r.Resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}
