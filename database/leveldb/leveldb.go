package leveldb

import (
	"bytes"
	stdErrors "errors"

	"github.com/pbnjay/memory"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/quake/godwoken/database"
	"github.com/quake/godwoken/utils"
)

var (
	_ database.KeyValueStore = (*Database)(nil)
	_ database.Batcher       = (*batch)(nil)
	_ database.Snapshot      = (*snapshot)(nil)
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to leveldb
	// read and write caching, split half and half.
	minCache = 16

	// maxDefaultCache caps the cache picked when the caller leaves it unset.
	maxDefaultCache = 1024

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

type Database struct {
	namespace []byte
	db        *leveldb.DB // LevelDB instance
}

// DefaultCache returns the cache size in megabytes used when none is
// configured: 1/64 of the physical memory, within [minCache, maxDefaultCache].
func DefaultCache() int {
	cache := int(memory.TotalMemory() / opt.MiB / 64)
	if cache < minCache {
		return minCache
	}
	if cache > maxDefaultCache {
		return maxDefaultCache
	}
	return cache
}

// New returns a wrapped LevelDB object. A zero cache picks DefaultCache.
func New(file string, cache int, handles int, readonly bool) (*Database, error) {
	return NewCustom(file, "", func(options *opt.Options) {
		if cache == 0 {
			cache = DefaultCache()
		}
		// Ensure we have some minimal caching and file guarantees
		if cache < minCache {
			cache = minCache
		}
		if handles < minHandles {
			handles = minHandles
		}
		// Set default options
		options.OpenFilesCacheCapacity = handles
		options.BlockCacheCapacity = cache / 2 * opt.MiB
		options.WriteBuffer = cache / 4 * opt.MiB // Two of these are used internally
		if readonly {
			options.ReadOnly = true
		}
	})
}

// NewFromExistLevelDB returns a wrapped LevelDB object.
func NewFromExistLevelDB(db *leveldb.DB) *Database {
	return &Database{
		db: db,
	}
}

// NewCustom returns a wrapped LevelDB object. The namespace is the prefix that the datastore.
// The customize function allows the caller to modify the leveldb options.
func NewCustom(file string, namespace string, customize func(options *opt.Options)) (*Database, error) {
	options := configureOptions(customize)

	// Open the db and recover any potential corruptions
	db, err := leveldb.OpenFile(file, options)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}

	ldb := &Database{
		db: db,
	}

	if len(namespace) != 0 {
		ldb.namespace = []byte(namespace)
	}
	return ldb, nil
}

// WrapWithNamespace returns a wrapped LevelDB object.
// The namespace is the prefix that the datastore.
func WrapWithNamespace(db *Database, namespace string) *Database {
	db.namespace = []byte(namespace)
	return db
}

// configureOptions sets some default options, then runs the provided setter.
func configureOptions(customizeFn func(*opt.Options)) *opt.Options {
	// Set default options
	options := &opt.Options{
		Filter:                 filter.NewBloomFilter(10),
		DisableSeeksCompaction: true,
	}
	// Allow caller to make custom modifications to the options
	if customizeFn != nil {
		customizeFn(options)
	}
	return options
}

// wrapKey returns a wrapper key with namespace.
func wrapKey(namespace, key []byte) []byte {
	if len(namespace) > 0 {
		return bytes.Join([][]byte{namespace, key}, []byte(":"))
	}
	return key
}

// Close flushes any pending data to disk and closes
// all io accesses to the underlying key-value store.
func (db *Database) Close() error {
	return db.db.Close()
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	has, err := db.db.Has(wrapKey(db.namespace, key), nil)
	if err != nil && stdErrors.Is(err, leveldb.ErrNotFound) {
		return has, database.ErrDatabaseNotFound
	}
	return has, err
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	dat, err := db.db.Get(wrapKey(db.namespace, key), nil)
	if err != nil && stdErrors.Is(err, leveldb.ErrNotFound) {
		return nil, database.ErrDatabaseNotFound
	}
	return dat, err
}

// Set inserts the given value into the key-value store.
func (db *Database) Set(key []byte, value []byte) error {
	return db.db.Put(wrapKey(db.namespace, key), value, nil)
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	return db.db.Delete(wrapKey(db.namespace, key), nil)
}

func (db *Database) NewIterator(prefix []byte, start []byte) database.Iterator {
	return newIterator(db.db, db.namespace, prefix, start, false)
}

func (db *Database) NewReverseIterator(prefix []byte, start []byte) database.Iterator {
	return newIterator(db.db, db.namespace, prefix, start, true)
}

// NewSnapshot pins the current leveldb sequence number.
func (db *Database) NewSnapshot() (database.Snapshot, error) {
	snap, err := db.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &snapshot{namespace: db.namespace, snap: snap}, nil
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (db *Database) NewBatch() database.Batcher {
	return &batch{
		db:        db.db,
		namespace: db.namespace,
		b:         new(leveldb.Batch),
	}
}

// batch is a write-only leveldb batch that commits changes to its host database
// when Write is called. A batch cannot be used concurrently.
type batch struct {
	namespace []byte
	db        *leveldb.DB
	b         *leveldb.Batch
	size      int
}

// Set inserts the given value into the batch for later committing.
func (b *batch) Set(key, value []byte) error {
	b.b.Put(wrapKey(b.namespace, key), value)
	b.size += len(value)
	return nil
}

// Delete inserts the a key removal into the batch for later committing.
func (b *batch) Delete(key []byte) error {
	b.b.Delete(wrapKey(b.namespace, key))
	b.size += len(key)
	return nil
}

// Write flushes any accumulated data to disk.
func (b *batch) Write() error {
	return b.db.Write(b.b, nil)
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	return b.size
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.b.Reset()
	b.size = 0
}

type snapshot struct {
	namespace []byte
	snap      *leveldb.Snapshot
}

func (s *snapshot) Has(key []byte) (bool, error) {
	has, err := s.snap.Has(wrapKey(s.namespace, key), nil)
	if stdErrors.Is(err, leveldb.ErrSnapshotReleased) {
		return false, database.ErrSnapshotReleased
	}
	return has, err
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	dat, err := s.snap.Get(wrapKey(s.namespace, key), nil)
	switch {
	case stdErrors.Is(err, leveldb.ErrNotFound):
		return nil, database.ErrDatabaseNotFound
	case stdErrors.Is(err, leveldb.ErrSnapshotReleased):
		return nil, database.ErrSnapshotReleased
	}
	return dat, err
}

func (s *snapshot) NewIterator(prefix []byte, start []byte) database.Iterator {
	return newIterator(s.snap, s.namespace, prefix, start, false)
}

func (s *snapshot) NewReverseIterator(prefix []byte, start []byte) database.Iterator {
	return newIterator(s.snap, s.namespace, prefix, start, true)
}

func (s *snapshot) Release() {
	s.snap.Release()
}

type iterSource interface {
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

// dbIterator adapts a goleveldb iterator to a one-directional walk and strips
// the namespace from the returned keys.
type dbIterator struct {
	iter    iterator.Iterator
	strip   int
	origin  []byte
	reverse bool
	started bool
}

func newIterator(src iterSource, namespace, prefix, start []byte, reverse bool) *dbIterator {
	full := wrapKey(namespace, prefix)
	it := &dbIterator{
		iter:    src.NewIterator(util.BytesPrefix(full), nil),
		reverse: reverse,
	}
	if len(namespace) > 0 {
		it.strip = len(namespace) + 1
	}
	if start != nil {
		it.origin = append(utils.CopyBytes(full), start...)
	}
	return it
}

// WrapIterator walks iter in one direction, starting at origin (or the
// nearest key in that direction) or at the first key of the range when
// origin is nil. It serves any goleveldb iterator, memdb ones included.
func WrapIterator(iter iterator.Iterator, origin []byte, reverse bool) database.Iterator {
	return &dbIterator{iter: iter, origin: origin, reverse: reverse}
}

func (it *dbIterator) Next() bool {
	if it.started {
		if it.reverse {
			return it.iter.Prev()
		}
		return it.iter.Next()
	}
	it.started = true
	if !it.reverse {
		if it.origin == nil {
			return it.iter.First()
		}
		return it.iter.Seek(it.origin)
	}
	if it.origin == nil {
		return it.iter.Last()
	}
	// Seek lands on the first key >= origin; step back unless it is an exact hit.
	if !it.iter.Seek(it.origin) {
		return it.iter.Last()
	}
	if bytes.Equal(it.iter.Key(), it.origin) {
		return true
	}
	return it.iter.Prev()
}

func (it *dbIterator) Error() error {
	return it.iter.Error()
}

func (it *dbIterator) Key() []byte {
	key := it.iter.Key()
	if key == nil {
		return nil
	}
	return utils.CopyBytes(key[it.strip:])
}

func (it *dbIterator) Value() []byte {
	return utils.CopyBytes(it.iter.Value())
}

func (it *dbIterator) Release() {
	it.iter.Release()
}
