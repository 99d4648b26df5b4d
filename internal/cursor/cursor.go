// Package cursor persists the last handled CLN pay index. The store is the
// only durable state this daemon owns: losing it forward means missed zaps,
// losing it backward means duplicate receipts, so writes are fsynced and a
// corrupt file is reported instead of being reset.
package cursor

import (
	"fmt"
	"strconv"

	"github.com/tidwall/buntdb"

	"github.com/massmux/zapperd/internal/errors"
)

const indexKey = "zapperd:last-pay-index"

type Store struct {
	db    *buntdb.DB
	start uint64
}

// Open loads the cursor database at path. A missing file starts a new cursor
// at start; an unreadable or unparsable one is a CursorCorruptError and the
// caller must treat it as fatal.
func Open(path string, start uint64) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.New(errors.CursorCorruptError, fmt.Errorf("cursor database %s unreadable: %v", path, err))
	}
	// every Save must hit disk before it returns
	if err := db.SetConfig(buntdb.Config{SyncPolicy: buntdb.Always}); err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{db: db, start: start}
	// surface a corrupt value now rather than mid-run
	if _, err := s.Load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Load() (uint64, error) {
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(indexKey)
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return s.start, nil
	}
	if err != nil {
		return 0, errors.New(errors.CursorCorruptError, fmt.Errorf("could not read cursor: %v", err))
	}
	idx, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New(errors.CursorCorruptError, fmt.Errorf("cursor value %q is not a pay index", raw))
	}
	return idx, nil
}

// Save durably persists idx. The cursor never moves backwards; a smaller
// value than the stored one is refused.
func (s *Store) Save(idx uint64) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		if raw, err := tx.Get(indexKey); err == nil {
			if current, perr := strconv.ParseUint(raw, 10, 64); perr == nil && current > idx {
				return fmt.Errorf("refusing to move cursor backwards from %d to %d", current, idx)
			}
		}
		_, _, err := tx.Set(indexKey, strconv.FormatUint(idx, 10), nil)
		return err
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
