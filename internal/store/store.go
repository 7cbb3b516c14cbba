// Package store is a content-addressed artifact store. Artifacts are named by
// their digest and verified on every read.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/opencontainers/go-digest"
)

// Store keeps artifacts under dir/objects/<algorithm>/<xx>/<encoded>.
type Store struct {
	dir string
}

// New creates a Store at the given directory.
// The directory is created if it does not exist.
func New(dir string) (*Store, error) {
	objDir := filepath.Join(dir, "objects")
	if err := os.MkdirAll(objDir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", objDir, err)
	}
	return &Store{dir: dir}, nil
}

// DefaultDir returns the per-user artifact store directory.
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "contentpack")
}

// Put stores content under its canonical digest. No-op if already stored.
func (s *Store) Put(content []byte) (digest.Digest, error) {
	d := digest.FromBytes(content)
	return d, s.write(d, content)
}

// PutVerified stores content under d after checking they match.
func (s *Store) PutVerified(d digest.Digest, content []byte) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("store put: %w", err)
	}
	if actual := d.Algorithm().FromBytes(content); actual != d {
		return fmt.Errorf("store put: content digest %s does not match declared digest %s", actual, d)
	}
	return s.write(d, content)
}

func (s *Store) write(d digest.Digest, content []byte) error {
	path := s.objectPath(d)

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating store subdirectory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating store temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("writing store temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing store temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing store temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming store temp file: %w", err)
	}

	success = true
	return nil
}

// Get returns the artifact stored under d. A missing artifact returns
// found=false. A corrupt artifact is removed and reported as missing.
func (s *Store) Get(d digest.Digest) ([]byte, bool, error) {
	if err := d.Validate(); err != nil {
		return nil, false, fmt.Errorf("store get: %w", err)
	}
	path := s.objectPath(d)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading store entry %s: %w", d, err)
	}

	v := d.Verifier()
	_, _ = v.Write(data)
	if !v.Verified() {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return data, true, nil
}

// Has checks if d is stored without reading it.
func (s *Store) Has(d digest.Digest) bool {
	if d.Validate() != nil {
		return false
	}
	_, err := os.Stat(s.objectPath(d))
	return err == nil
}

// Size returns the total size of the store in bytes.
func (s *Store) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(s.dir, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			return nil
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// Path returns the store directory path.
func (s *Store) Path() string {
	return s.dir
}

func (s *Store) objectPath(d digest.Digest) string {
	enc := d.Encoded()
	return filepath.Join(s.dir, "objects", string(d.Algorithm()), enc[:2], enc)
}
