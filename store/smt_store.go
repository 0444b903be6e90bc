package store

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/quake/godwoken/database"
	"github.com/quake/godwoken/smt"
	"github.com/quake/godwoken/types"
)

var _ smt.Store = (*SMTStore)(nil)

// SMTStore keeps the nodes of one tree in a leaf column and a branch column.
type SMTStore struct {
	leafCol   Col
	branchCol Col
	kv        KVStore
}

func NewSMTStore(leafCol, branchCol Col, kv KVStore) *SMTStore {
	return &SMTStore{leafCol: leafCol, branchCol: branchCol, kv: kv}
}

func (s *SMTStore) GetBranch(key smt.BranchKey) (*smt.BranchNode, error) {
	data, err := s.kv.Get(s.branchCol, key.Bytes())
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	node, err := smt.DecodeBranchNode(data)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *SMTStore) GetLeaf(key types.Hash256) (types.Hash256, error) {
	value, err := getHash(s.kv, s.leafCol, key[:])
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return types.Hash256{}, nil
	}
	return value, err
}

func (s *SMTStore) InsertBranch(key smt.BranchKey, node smt.BranchNode) error {
	return s.kv.Insert(s.branchCol, key.Bytes(), node.Bytes())
}

func (s *SMTStore) InsertLeaf(key, value types.Hash256) error {
	return s.kv.Insert(s.leafCol, key[:], value[:])
}

func (s *SMTStore) RemoveBranch(key smt.BranchKey) error {
	return s.kv.Delete(s.branchCol, key.Bytes())
}

func (s *SMTStore) RemoveLeaf(key types.Hash256) error {
	return s.kv.Delete(s.leafCol, key[:])
}

var _ smt.Store = (*MemSMTStore)(nil)

// MemSMTStore records tree writes in memory on top of another store, which
// is only ever read. An empty branch or a zero leaf marks a removal.
type MemSMTStore struct {
	inner    smt.Store
	lock     sync.RWMutex
	branches map[smt.BranchKey]smt.BranchNode
	leaves   map[types.Hash256]types.Hash256
}

func NewMemSMTStore(inner smt.Store) *MemSMTStore {
	return &MemSMTStore{
		inner:    inner,
		branches: make(map[smt.BranchKey]smt.BranchNode),
		leaves:   make(map[types.Hash256]types.Hash256),
	}
}

func (s *MemSMTStore) GetBranch(key smt.BranchKey) (*smt.BranchNode, error) {
	s.lock.RLock()
	node, ok := s.branches[key]
	s.lock.RUnlock()
	if !ok {
		return s.inner.GetBranch(key)
	}
	if node.IsEmpty() {
		return nil, nil
	}
	return &node, nil
}

func (s *MemSMTStore) GetLeaf(key types.Hash256) (types.Hash256, error) {
	s.lock.RLock()
	value, ok := s.leaves[key]
	s.lock.RUnlock()
	if !ok {
		return s.inner.GetLeaf(key)
	}
	return value, nil
}

func (s *MemSMTStore) InsertBranch(key smt.BranchKey, node smt.BranchNode) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.branches[key] = node
	return nil
}

func (s *MemSMTStore) InsertLeaf(key, value types.Hash256) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.leaves[key] = value
	return nil
}

func (s *MemSMTStore) RemoveBranch(key smt.BranchKey) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.branches[key] = smt.BranchNode{}
	return nil
}

func (s *MemSMTStore) RemoveLeaf(key types.Hash256) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.leaves[key] = types.Hash256{}
	return nil
}

// Len returns the number of overlaid branches and leaves, removals included.
func (s *MemSMTStore) Len() (branches int, leaves int) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.branches), len(s.leaves)
}

// Flush replays the overlaid writes into target and clears the overlay.
func (s *MemSMTStore) Flush(target smt.Store) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for key, node := range s.branches {
		var err error
		if node.IsEmpty() {
			err = target.RemoveBranch(key)
		} else {
			err = target.InsertBranch(key, node)
		}
		if err != nil {
			return err
		}
	}
	for key, value := range s.leaves {
		var err error
		if value == (types.Hash256{}) {
			err = target.RemoveLeaf(key)
		} else {
			err = target.InsertLeaf(key, value)
		}
		if err != nil {
			return err
		}
	}
	s.branches = make(map[smt.BranchKey]smt.BranchNode)
	s.leaves = make(map[types.Hash256]types.Hash256)
	return nil
}

// Inner returns the store the overlay reads through to.
func (s *MemSMTStore) Inner() smt.Store {
	return s.inner
}
