package batch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestOpenCreatesDefaultBatch(t *testing.T) {
	s, _ := openTestStore(t)

	batches, err := s.List()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, DefaultName, batches[0].Name)
	assert.Zero(t, batches[0].Selection.Len())
	assert.NotEmpty(t, batches[0].ID)
}

func TestCreateAndGet(t *testing.T) {
	s, _ := openTestStore(t)

	created, err := s.Create("  Nightly ")
	require.NoError(t, err)
	assert.Equal(t, "Nightly", created.Name)

	got, err := s.Get("Nightly")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = s.Create("Nightly")
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = s.Create("   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrderedByName(t *testing.T) {
	s, _ := openTestStore(t)
	_, _ = s.Create("beta")
	_, _ = s.Create("alpha")

	batches, err := s.List()
	require.NoError(t, err)
	names := make([]string, len(batches))
	for i, b := range batches {
		names[i] = b.Name
	}
	assert.Equal(t, []string{"Default", "alpha", "beta"}, names)
}

func TestRename(t *testing.T) {
	s, _ := openTestStore(t)
	_, _ = s.Create("mobile")

	require.NoError(t, s.Rename("mobile", "handheld"))
	_, err := s.Get("mobile")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get("handheld")
	assert.NoError(t, err)

	assert.ErrorIs(t, s.Rename("handheld", "Default"), ErrNameTaken)
	assert.ErrorIs(t, s.Rename("nope", "x"), ErrNotFound)
	assert.ErrorIs(t, s.Rename("handheld", ""), ErrInvalidName)
	assert.NoError(t, s.Rename("handheld", "handheld"))
}

func TestDeleteRefusesLastBatch(t *testing.T) {
	s, _ := openTestStore(t)

	assert.ErrorIs(t, s.Delete(DefaultName), ErrLastBatch)

	_, err := s.Create("other")
	require.NoError(t, err)
	require.NoError(t, s.Delete(DefaultName))

	assert.ErrorIs(t, s.Delete("other"), ErrLastBatch)
	assert.ErrorIs(t, s.Delete("missing"), ErrNotFound)

	batches, err := s.List()
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestSelectionAndPolicyPersist(t *testing.T) {
	s, path := openTestStore(t)

	require.NoError(t, s.SetSelection(DefaultName, []string{"lobby", "arena", "lobby"}))
	require.NoError(t, s.SetStopOnFailure(DefaultName, true))
	assert.ErrorIs(t, s.SetSelection("missing", nil), ErrNotFound)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	b, err := reopened.Get(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, []string{"arena", "lobby"}, b.Selection.IDs())
	assert.True(t, b.Selection.Contains("lobby"))
	assert.True(t, b.StopOnFailure)

	batches, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, batches, 1, "reopening must not add another default batch")
}

func TestRootSetScan(t *testing.T) {
	var s RootSet
	require.NoError(t, s.Scan([]byte(`["b","a"]`)))
	assert.Equal(t, []string{"a", "b"}, s.IDs())

	require.NoError(t, s.Scan(nil))
	assert.Zero(t, s.Len())

	assert.Error(t, s.Scan(42))

	v, err := NewRootSet().Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}
