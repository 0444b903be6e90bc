package memory

import (
	"sort"
	"sync"

	"github.com/quake/godwoken/database"
	"github.com/quake/godwoken/utils"
)

var (
	_ database.KeyValueStore = (*MemoryDB)(nil)
	_ database.Batcher       = (*batch)(nil)
	_ database.Snapshot      = (*snapshot)(nil)
)

func NewMemoryDB() database.KeyValueStore {
	return &MemoryDB{
		db: make(map[string][]byte),
	}
}

// MemoryDB is a key-value store.
type MemoryDB struct {
	db   map[string][]byte
	lock sync.RWMutex
}

func (db *MemoryDB) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.db == nil {
		return nil, database.ErrDatabaseClosed
	}
	if entry, ok := db.db[string(key)]; ok {
		return utils.CopyBytes(entry), nil
	}
	return nil, database.ErrDatabaseNotFound
}

func (db *MemoryDB) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.db == nil {
		return false, database.ErrDatabaseClosed
	}
	_, ok := db.db[string(key)]
	return ok, nil
}

func (db *MemoryDB) Set(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.db == nil {
		return database.ErrDatabaseClosed
	}
	db.db[string(key)] = utils.CopyBytes(value)
	return nil
}

func (db *MemoryDB) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.db == nil {
		return database.ErrDatabaseClosed
	}
	delete(db.db, string(key))
	return nil
}

func (db *MemoryDB) NewIterator(prefix []byte, start []byte) database.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return newSortedIterator(db.db, prefix, start, false)
}

func (db *MemoryDB) NewReverseIterator(prefix []byte, start []byte) database.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return newSortedIterator(db.db, prefix, start, true)
}

// NewSnapshot copies the whole content of the database.
func (db *MemoryDB) NewSnapshot() (database.Snapshot, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.db == nil {
		return nil, database.ErrDatabaseClosed
	}
	entries := make(map[string][]byte, len(db.db))
	for k, v := range db.db {
		entries[k] = v
	}
	return NewSnapshot(entries), nil
}

func (db *MemoryDB) NewBatch() database.Batcher {
	return &batch{
		db: db,
	}
}

func (db *MemoryDB) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.db = nil
	return nil
}

// NewSnapshot wraps a detached key-value map into a read-only snapshot.
// The map must not be modified afterwards.
func NewSnapshot(entries map[string][]byte) database.Snapshot {
	return &snapshot{entries: entries}
}

type snapshot struct {
	entries map[string][]byte
}

func (s *snapshot) Has(key []byte) (bool, error) {
	if s.entries == nil {
		return false, database.ErrSnapshotReleased
	}
	_, ok := s.entries[string(key)]
	return ok, nil
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	if s.entries == nil {
		return nil, database.ErrSnapshotReleased
	}
	if entry, ok := s.entries[string(key)]; ok {
		return utils.CopyBytes(entry), nil
	}
	return nil, database.ErrDatabaseNotFound
}

func (s *snapshot) NewIterator(prefix []byte, start []byte) database.Iterator {
	return newSortedIterator(s.entries, prefix, start, false)
}

func (s *snapshot) NewReverseIterator(prefix []byte, start []byte) database.Iterator {
	return newSortedIterator(s.entries, prefix, start, true)
}

func (s *snapshot) Release() {
	s.entries = nil
}

// keyvalue is a key-value tuple tagged with a deletion field to allow creating
// memory-database write batches.
type keyvalue struct {
	key    []byte
	value  []byte
	delete bool
}

// batch is a write-only memory batch that commits changes to its host
// database when Write is called. A batch cannot be used concurrently.
type batch struct {
	db     *MemoryDB
	writes []keyvalue
	size   int
}

// Set inserts the given value into the batch for later committing.
func (b *batch) Set(key, value []byte) error {
	b.writes = append(b.writes, keyvalue{utils.CopyBytes(key), utils.CopyBytes(value), false})
	b.size += len(value)
	return nil
}

// Delete inserts the a key removal into the batch for later committing.
func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyvalue{utils.CopyBytes(key), nil, true})
	b.size += len(key)
	return nil
}

// Write flushes any accumulated data to the memory database.
func (b *batch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	if b.db.db == nil {
		return database.ErrDatabaseClosed
	}
	for _, keyvalue := range b.writes {
		if keyvalue.delete {
			delete(b.db.db, string(keyvalue.key))
			continue
		}
		b.db.db[string(keyvalue.key)] = keyvalue.value
	}
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	return b.size
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

// sortedIterator walks a sorted copy of the matching entries.
type sortedIterator struct {
	keys   []string
	values [][]byte
	index  int
}

func newSortedIterator(entries map[string][]byte, prefix []byte, start []byte, reverse bool) *sortedIterator {
	var (
		pr     = string(prefix)
		origin = string(append(utils.CopyBytes(prefix), start...))
		keys   = make([]string, 0, len(entries))
	)
	for key := range entries {
		if len(key) < len(pr) || key[:len(pr)] != pr {
			continue
		}
		if reverse {
			if start != nil && key > origin {
				continue
			}
		} else if key < origin {
			continue
		}
		keys = append(keys, key)
	}
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	} else {
		sort.Strings(keys)
	}
	values := make([][]byte, len(keys))
	for i, key := range keys {
		values[i] = utils.CopyBytes(entries[key])
	}
	return &sortedIterator{keys: keys, values: values, index: -1}
}

// NewSortedIterator builds an iterator over an already filtered and ordered
// list of entries.
func NewSortedIterator(keys [][]byte, values [][]byte) database.Iterator {
	it := &sortedIterator{keys: make([]string, len(keys)), values: values, index: -1}
	for i := range keys {
		it.keys[i] = string(keys[i])
	}
	return it
}

func (it *sortedIterator) Next() bool {
	if it.index >= len(it.keys) {
		return false
	}
	it.index++
	return it.index < len(it.keys)
}

func (it *sortedIterator) Error() error {
	return nil
}

func (it *sortedIterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.index])
}

func (it *sortedIterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.values) {
		return nil
	}
	return it.values[it.index]
}

func (it *sortedIterator) Release() {
	it.keys, it.values = nil, nil
}
