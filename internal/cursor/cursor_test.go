package cursor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/buntdb"

	"github.com/massmux/zapperd/internal/errors"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.db")
	s, err := Open(path, 0)
	require.NoError(t, err)
	defer s.Close()

	idx, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), idx)

	require.NoError(t, s.Save(42))
	idx, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), idx)

	require.NoError(t, s.Save(43))
	idx, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(43), idx)
}

func TestLoadDefaultWhenAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.db")
	s, err := Open(path, 7)
	require.NoError(t, err)
	defer s.Close()

	idx, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), idx)
}

func TestResumeAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.db")
	s, err := Open(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Save(1001))
	require.NoError(t, s.Close())

	s, err = Open(path, 0)
	require.NoError(t, err)
	defer s.Close()
	idx, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(1001), idx)
}

func TestSaveNeverDecreases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.db")
	s, err := Open(path, 0)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(10))
	assert.Error(t, s.Save(9))

	idx, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), idx)
}

func TestOpenFailsOnGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a cursor database"), 0644))

	_, err := Open(path, 0)
	require.Error(t, err)
	assert.Equal(t, errors.CursorCorruptError, errors.CodeOf(err))
}

func TestOpenFailsOnCorruptValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.db")
	db, err := buntdb.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(indexKey, "not-a-number", nil)
		return err
	}))
	require.NoError(t, db.Close())

	_, err = Open(path, 0)
	require.Error(t, err)
	assert.Equal(t, errors.CursorCorruptError, errors.CodeOf(err))
}
