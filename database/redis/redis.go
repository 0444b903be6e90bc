// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package redis

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	stdErrors "github.com/pkg/errors"

	"github.com/quake/godwoken/database"
	"github.com/quake/godwoken/database/memory"
	"github.com/quake/godwoken/utils"
)

var (
	_ database.KeyValueStore = (*Database)(nil)
	_ database.Batcher       = (*batch)(nil)
)

const (
	scanCount = 1000
	mgetChunk = 512
)

// snapshotScript dumps every matching key with its value in one atomic step.
var snapshotScript = redis.NewScript(`
local keys = redis.call('KEYS', ARGV[1])
local out = {}
for _, k in ipairs(keys) do
	out[#out + 1] = k
	out[#out + 1] = redis.call('GET', k)
end
return out
`)

// New returns a wrapped Redis object.
func New(config *RedisConfig, opts ...Option) (*Database, error) {
	var client RedisClient
	if len(config.ClusterAddr) > 0 {
		// cluster mode
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:              config.ClusterAddr,
			PoolSize:           config.PoolSize,
			Username:           config.Username,
			Password:           config.Password,
			MaxRedirects:       config.MaxRedirects,
			ReadOnly:           config.ReadOnly,
			RouteByLatency:     config.RouteByLatency,
			RouteRandomly:      config.RouteRandomly,
			MaxRetries:         config.MaxRetries,
			MinRetryBackoff:    config.MinRetryBackoff,
			MaxRetryBackoff:    config.MaxRetryBackoff,
			DialTimeout:        config.DialTimeout,
			ReadTimeout:        config.ReadTimeout,
			WriteTimeout:       config.WriteTimeout,
			MinIdleConns:       config.MinIdleConns,
			MaxConnAge:         config.MaxConnAge,
			PoolFIFO:           config.PoolFIFO,
			PoolTimeout:        config.PoolTimeout,
			IdleTimeout:        config.IdleTimeout,
			IdleCheckFrequency: config.IdleCheckFrequency,
		})
	} else {
		// single node mode
		client = redis.NewClient(&redis.Options{
			Addr:               config.Addr,
			PoolSize:           config.PoolSize,
			Username:           config.Username,
			Password:           config.Password,
			MaxRetries:         config.MaxRetries,
			MinRetryBackoff:    config.MinRetryBackoff,
			MaxRetryBackoff:    config.MaxRetryBackoff,
			DialTimeout:        config.DialTimeout,
			ReadTimeout:        config.ReadTimeout,
			WriteTimeout:       config.WriteTimeout,
			MinIdleConns:       config.MinIdleConns,
			MaxConnAge:         config.MaxConnAge,
			PoolFIFO:           config.PoolFIFO,
			PoolTimeout:        config.PoolTimeout,
			IdleTimeout:        config.IdleTimeout,
			IdleCheckFrequency: config.IdleCheckFrequency,
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}
	db := &Database{
		db: client,
	}

	for _, opt := range opts {
		opt.Apply(db)
	}

	return db, nil
}

// NewFromExistRedisClient returns a wrapped Redis object.
func NewFromExistRedisClient(client RedisClient, opts ...Option) *Database {
	db := &Database{
		db: client,
	}
	for _, opt := range opts {
		opt.Apply(db)
	}
	return db
}

// WrapWithNamespace returns a wrapped Redis object.
// The namespace is the prefix that the datastore.
func WrapWithNamespace(db *Database, namespace string) *Database {
	return &Database{
		namespace: []byte(namespace),
		db:        db.db,
	}
}

type Database struct {
	namespace []byte
	db        RedisClient
}

// wrapKey returns a wrapper key with namespace.
func wrapKey(namespace, key []byte) string {
	if len(namespace) > 0 {
		return utils.BytesToString((bytes.Join([][]byte{namespace, key}, []byte(":"))))
	}
	return utils.BytesToString(key)
}

// escapeGlob quotes the characters redis treats specially in MATCH patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Close flushes any pending data to disk and closes
// all io accesses to the underlying key-value store.
func (db *Database) Close() error {
	return db.db.Close()
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	dat, err := db.db.Exists(context.Background(), wrapKey(db.namespace, key)).Result()
	if err != nil {
		return false, err
	}
	return dat > 0, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	dat, err := db.db.Get(context.Background(), wrapKey(db.namespace, key)).Result()
	if err != nil && stdErrors.Is(err, redis.Nil) {
		return nil, database.ErrDatabaseNotFound
	}
	return utils.StringToBytes(dat), err
}

// Set inserts the given value into the key-value store.
func (db *Database) Set(key []byte, value []byte) error {
	return db.db.Set(context.Background(), wrapKey(db.namespace, key), value, 0).Err()
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	return db.db.Del(context.Background(), wrapKey(db.namespace, key)).Err()
}

func (db *Database) NewIterator(prefix []byte, start []byte) database.Iterator {
	return db.newIterator(prefix, start, false)
}

func (db *Database) NewReverseIterator(prefix []byte, start []byte) database.Iterator {
	return db.newIterator(prefix, start, true)
}

// newIterator scans the matching keys, orders them locally and loads the
// values with MGET. Writes racing with the scan may or may not be observed.
func (db *Database) newIterator(prefix []byte, start []byte, reverse bool) database.Iterator {
	ctx := context.Background()
	pattern := escapeGlob(wrapKey(db.namespace, prefix)) + "*"
	origin := wrapKey(db.namespace, append(utils.CopyBytes(prefix), start...))

	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := db.db.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return &errIterator{err: err}
		}
		for _, key := range batch {
			if reverse {
				if start != nil && key > origin {
					continue
				}
			} else if key < origin {
				continue
			}
			keys = append(keys, key)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(keys)
	keys = dedupSorted(keys)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	}

	var (
		outKeys   = make([][]byte, 0, len(keys))
		outValues = make([][]byte, 0, len(keys))
		strip     = db.stripLen()
	)
	for i := 0; i < len(keys); i += mgetChunk {
		end := i + mgetChunk
		if end > len(keys) {
			end = len(keys)
		}
		values, err := db.db.MGet(ctx, keys[i:end]...).Result()
		if err != nil {
			return &errIterator{err: err}
		}
		for j, value := range values {
			str, ok := value.(string)
			if !ok {
				// deleted between SCAN and MGET
				continue
			}
			outKeys = append(outKeys, utils.StringToBytes(keys[i+j][strip:]))
			outValues = append(outValues, utils.StringToBytes(str))
		}
	}
	return memory.NewSortedIterator(outKeys, outValues)
}

// NewSnapshot copies the namespace into memory through a lua script, which
// redis executes atomically with respect to every other command.
func (db *Database) NewSnapshot() (database.Snapshot, error) {
	pattern := escapeGlob(wrapKey(db.namespace, nil)) + "*"
	res, err := snapshotScript.Run(context.Background(), db.db, nil, pattern).Result()
	if err != nil {
		return nil, err
	}
	items, ok := res.([]interface{})
	if !ok {
		return nil, stdErrors.Errorf("unexpected snapshot reply %T", res)
	}
	strip := db.stripLen()
	entries := make(map[string][]byte, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		key, ok := items[i].(string)
		if !ok {
			continue
		}
		value, ok := items[i+1].(string)
		if !ok {
			continue
		}
		entries[key[strip:]] = utils.StringToBytes(value)
	}
	return memory.NewSnapshot(entries), nil
}

func (db *Database) stripLen() int {
	if len(db.namespace) > 0 {
		return len(db.namespace) + 1
	}
	return 0
}

func dedupSorted(keys []string) []string {
	if len(keys) < 2 {
		return keys
	}
	out := keys[:1]
	for _, key := range keys[1:] {
		if key != out[len(out)-1] {
			out = append(out, key)
		}
	}
	return out
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called. Batches are flushed inside
// MULTI/EXEC so the writes land atomically.
func (db *Database) NewBatch() database.Batcher {
	return &batch{
		db:        db.db,
		namespace: db.namespace,
		b:         db.db.TxPipeline(),
	}
}

// batch is a write-only redis batch that commits changes to its host database
// when Write is called. A batch cannot be used concurrently.
type batch struct {
	namespace []byte
	db        RedisClient
	b         redis.Pipeliner
	size      int
	lock      sync.RWMutex
}

// Set inserts the given value into the batch for later committing.
func (b *batch) Set(key, value []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.b.Set(context.Background(), wrapKey(b.namespace, key), value, 0)
	b.size += len(key) + len(value)
	return nil
}

// Delete inserts the a key removal into the batch for later committing.
func (b *batch) Delete(key []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.b.Del(context.Background(), wrapKey(b.namespace, key))
	b.size += len(key)
	return nil
}

// Write flushes any accumulated data to disk.
func (b *batch) Write() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.size == 0 {
		return nil
	}
	_, err := b.b.Exec(context.Background())
	if err != nil {
		return err
	}
	b.size = 0
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.size
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.b.Discard()
	b.size = 0
}

// errIterator reports a failure to load the iteration range.
type errIterator struct {
	err error
}

func (it *errIterator) Next() bool    { return false }
func (it *errIterator) Error() error  { return it.err }
func (it *errIterator) Key() []byte   { return nil }
func (it *errIterator) Value() []byte { return nil }
func (it *errIterator) Release()      {}
