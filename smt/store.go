package smt

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

var _ Store = (*DefaultStore)(nil)

// DefaultStore keeps the tree in memory.
type DefaultStore struct {
	lock     sync.RWMutex
	branches map[BranchKey]BranchNode
	leaves   map[common.Hash]common.Hash
}

func NewDefaultStore() *DefaultStore {
	return &DefaultStore{
		branches: make(map[BranchKey]BranchNode),
		leaves:   make(map[common.Hash]common.Hash),
	}
}

func (s *DefaultStore) GetBranch(key BranchKey) (*BranchNode, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	node, ok := s.branches[key]
	if !ok {
		return nil, nil
	}
	return &node, nil
}

func (s *DefaultStore) GetLeaf(key common.Hash) (common.Hash, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.leaves[key], nil
}

func (s *DefaultStore) InsertBranch(key BranchKey, node BranchNode) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.branches[key] = node
	return nil
}

func (s *DefaultStore) InsertLeaf(key common.Hash, value common.Hash) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.leaves[key] = value
	return nil
}

func (s *DefaultStore) RemoveBranch(key BranchKey) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.branches, key)
	return nil
}

func (s *DefaultStore) RemoveLeaf(key common.Hash) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.leaves, key)
	return nil
}

// Size returns the number of stored branches and leaves.
func (s *DefaultStore) Size() (branches int, leaves int) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.branches), len(s.leaves)
}

// Leaves returns a copy of the stored leaves.
func (s *DefaultStore) Leaves() []Pair {
	s.lock.RLock()
	defer s.lock.RUnlock()
	pairs := make([]Pair, 0, len(s.leaves))
	for k, v := range s.leaves {
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	SortPairs(pairs)
	return pairs
}

var _ Store = (*CachedStore)(nil)

// CachedStore puts an LRU cache of branch nodes in front of another store.
// Writes go through to the inner store.
type CachedStore struct {
	inner    Store
	branches *lru.Cache
}

func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "create branch cache")
	}
	return &CachedStore{inner: inner, branches: cache}, nil
}

func (s *CachedStore) GetBranch(key BranchKey) (*BranchNode, error) {
	if cached, ok := s.branches.Get(key); ok {
		node, _ := cached.(*BranchNode)
		if node == nil {
			return nil, nil
		}
		copied := *node
		return &copied, nil
	}
	node, err := s.inner.GetBranch(key)
	if err != nil {
		return nil, err
	}
	s.branches.Add(key, node)
	if node == nil {
		return nil, nil
	}
	copied := *node
	return &copied, nil
}

func (s *CachedStore) GetLeaf(key common.Hash) (common.Hash, error) {
	return s.inner.GetLeaf(key)
}

func (s *CachedStore) InsertBranch(key BranchKey, node BranchNode) error {
	if err := s.inner.InsertBranch(key, node); err != nil {
		s.branches.Remove(key)
		return err
	}
	s.branches.Add(key, &node)
	return nil
}

func (s *CachedStore) InsertLeaf(key common.Hash, value common.Hash) error {
	return s.inner.InsertLeaf(key, value)
}

func (s *CachedStore) RemoveBranch(key BranchKey) error {
	s.branches.Remove(key)
	return s.inner.RemoveBranch(key)
}

func (s *CachedStore) RemoveLeaf(key common.Hash) error {
	return s.inner.RemoveLeaf(key)
}

// Purge drops every cached branch.
func (s *CachedStore) Purge() {
	s.branches.Purge()
}
