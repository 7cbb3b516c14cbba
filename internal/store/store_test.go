package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestPutAndGet(t *testing.T) {
	s := newStore(t)

	d, err := s.Put([]byte("bundle bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if d != digest.FromString("bundle bytes") {
		t.Errorf("digest = %s", d)
	}

	got, found, err := s.Get(d)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected store hit")
	}
	if string(got) != "bundle bytes" {
		t.Errorf("got %q", got)
	}
}

func TestGetMiss(t *testing.T) {
	s := newStore(t)
	_, found, err := s.Get(digest.FromString("never stored"))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("expected miss")
	}
}

func TestGetInvalidDigest(t *testing.T) {
	s := newStore(t)
	if _, _, err := s.Get(digest.Digest("sha256:xyz")); err == nil {
		t.Error("expected error for malformed digest")
	}
	if s.Has(digest.Digest("nope")) {
		t.Error("Has should be false for malformed digest")
	}
}

func TestPutVerifiedRejectsMismatch(t *testing.T) {
	s := newStore(t)
	if err := s.PutVerified(digest.FromString("a"), []byte("b")); err == nil {
		t.Fatal("expected mismatch error")
	}
	if err := s.PutVerified(digest.FromString("a"), []byte("a")); err != nil {
		t.Fatalf("PutVerified: %v", err)
	}
	if !s.Has(digest.FromString("a")) {
		t.Error("expected Has after PutVerified")
	}
}

func TestCorruptEntryIsRemoved(t *testing.T) {
	s := newStore(t)
	d, err := s.Put([]byte("original"))
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(s.objectPath(d), []byte("tampered"), 0644); err != nil {
		t.Fatal(err)
	}

	_, found, err := s.Get(d)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("corrupt entry should be reported as missing")
	}
	if s.Has(d) {
		t.Error("corrupt entry should be removed")
	}
}

func TestPutIsIdempotent(t *testing.T) {
	s := newStore(t)
	d1, _ := s.Put([]byte("same"))
	d2, err := s.Put([]byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("digests differ: %s vs %s", d1, d2)
	}

	entries, _ := os.ReadDir(filepath.Dir(s.objectPath(d1)))
	if len(entries) != 1 {
		t.Errorf("expected one object file, got %d", len(entries))
	}
}

func TestSize(t *testing.T) {
	s := newStore(t)
	_, _ = s.Put([]byte("12345"))
	_, _ = s.Put([]byte("678"))

	size, err := s.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 8 {
		t.Errorf("size = %d, want 8", size)
	}
}

func TestDefaultDir(t *testing.T) {
	if filepath.Base(DefaultDir()) != "contentpack" {
		t.Errorf("DefaultDir = %q", DefaultDir())
	}
}
