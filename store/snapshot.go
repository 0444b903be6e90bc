package store

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/quake/godwoken/database"
)

var _ KVStore = (*Snapshot)(nil)

// Snapshot is a read-only view of the store fixed at creation. Many
// snapshots may be open alongside a transaction; none of them observe
// uncommitted writes.
type Snapshot struct {
	reader
	inner   database.Snapshot
	store   *Store
	release sync.Once
}

func newSnapshot(store *Store, inner database.Snapshot) *Snapshot {
	snap := &Snapshot{inner: inner, store: store}
	snap.reader = reader{kv: snap}
	return snap
}

func (s *Snapshot) Get(col Col, key []byte) ([]byte, error) {
	return s.inner.Get(columnKey(col, key))
}

func (s *Snapshot) Iterate(col Col, mode IteratorMode) Iterator {
	return columnIterator{iterateDatabase(s.inner, col, mode)}
}

// Insert always panics: writing through a snapshot is a programming error.
func (s *Snapshot) Insert(col Col, key, value []byte) error {
	log.Error("Write through snapshot", "col", col, "key", key)
	panic("snapshot should not be writable")
}

// Delete always panics, like Insert.
func (s *Snapshot) Delete(col Col, key []byte) error {
	log.Error("Delete through snapshot", "col", col, "key", key)
	panic("snapshot should not be writable")
}

// Release frees the underlying database snapshot. Safe to call twice.
func (s *Snapshot) Release() {
	s.release.Do(func() {
		s.inner.Release()
		s.store.snapshotReleased()
	})
}
