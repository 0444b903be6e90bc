package store

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"

	"github.com/quake/godwoken/database"
	"github.com/quake/godwoken/database/memory"
	"github.com/quake/godwoken/metrics"
	"github.com/quake/godwoken/types"
)

// Option is a function that configures a Store.
type Option func(*Store)

func EnableMetrics(metrics metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = metrics
	}
}

// WithPrefetchPool hands pool to every SMT opened from the store.
func WithPrefetchPool(pool *ants.Pool) Option {
	return func(s *Store) {
		s.prefetch = pool
	}
}

// WithBranchCache puts an LRU of size branch nodes under each account
// SMT overlay.
func WithBranchCache(size int) Option {
	return func(s *Store) {
		s.branchCacheSize = size
	}
}

// Store organises a flat key value database into columns and hands out
// transactions and snapshots over it.
type Store struct {
	db              database.KeyValueStore
	metrics         metrics.Metrics
	prefetch        *ants.Pool
	branchCacheSize int
	openSnapshots   int64
}

func New(db database.KeyValueStore, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenTmp opens a store on a fresh in-memory database.
func OpenTmp(opts ...Option) *Store {
	return New(memory.NewMemoryDB(), opts...)
}

func (s *Store) BeginTransaction() *Transaction {
	return newTransaction(s)
}

// GetSnapshot captures the committed content of the store. The snapshot
// must be released.
func (s *Store) GetSnapshot() (*Snapshot, error) {
	inner, err := s.db.NewSnapshot()
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot")
	}
	n := atomic.AddInt64(&s.openSnapshots, 1)
	if s.metrics != nil {
		s.metrics.OpenSnapshots(n)
	}
	return newSnapshot(s, inner), nil
}

func (s *Store) snapshotReleased() {
	n := atomic.AddInt64(&s.openSnapshots, -1)
	if s.metrics != nil {
		s.metrics.OpenSnapshots(n)
	}
}

// HasGenesis reports whether the genesis block was committed.
func (s *Store) HasGenesis() (bool, error) {
	tx := s.BeginTransaction()
	defer tx.Rollback()
	return tx.HasGenesis()
}

func (s *Store) GetChainID() (types.Hash256, error) {
	tx := s.BeginTransaction()
	defer tx.Rollback()
	return tx.GetChainID()
}

func (s *Store) Close() error {
	if n := atomic.LoadInt64(&s.openSnapshots); n > 0 {
		log.Warn("Closing store with open snapshots", "count", n)
	}
	return s.db.Close()
}

func (s *Store) reportCommit(writes int, size int, attached *types.L2Block) {
	if s.metrics == nil {
		return
	}
	s.metrics.CommitNum(writes)
	s.metrics.ChangeSize(uint64(size))
	if attached != nil {
		s.metrics.TipBlockNumber(attached.Number())
		s.metrics.AccountCount(uint64(attached.Raw.PostAccount.Count))
	}
}
