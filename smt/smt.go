package smt

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/quake/godwoken/metrics"
)

// prefetchThreshold is the batch size from which UpdateAll prefetches.
const prefetchThreshold = 16

// SparseMerkleTree maps 256-bit keys to 256-bit values, the zero value
// meaning absent. The root only depends on the final mapping.
type SparseMerkleTree struct {
	root    common.Hash
	store   Store
	hasher  *HasherPool
	pool    prefetcher
	metrics metrics.Metrics
}

type prefetcher interface {
	Submit(task func()) error
}

// New creates a tree over store whose current root is root.
func New(root common.Hash, store Store, opts ...Option) *SparseMerkleTree {
	tree := &SparseMerkleTree{
		root:   root,
		store:  store,
		hasher: defaultHasher,
	}
	for _, opt := range opts {
		opt(tree)
	}
	return tree
}

// NewDefault creates an empty tree kept in memory.
func NewDefault(opts ...Option) *SparseMerkleTree {
	return New(common.Hash{}, NewDefaultStore(), opts...)
}

func (tree *SparseMerkleTree) Root() common.Hash {
	return tree.root
}

func (tree *SparseMerkleTree) IsEmpty() bool {
	return tree.root == (common.Hash{})
}

func (tree *SparseMerkleTree) Store() Store {
	return tree.store
}

func (tree *SparseMerkleTree) Hasher() *HasherPool {
	return tree.hasher
}

// Get returns the value of key, the zero hash if absent.
func (tree *SparseMerkleTree) Get(key common.Hash) (common.Hash, error) {
	if tree.IsEmpty() {
		return common.Hash{}, nil
	}
	return tree.store.GetLeaf(key)
}

// Update sets key to value and returns the new root. A zero value removes
// the key together with every branch left empty.
func (tree *SparseMerkleTree) Update(key, value common.Hash) (common.Hash, error) {
	if value == (common.Hash{}) {
		if err := tree.store.RemoveLeaf(key); err != nil {
			return tree.root, errors.Wrap(err, "remove leaf")
		}
	} else if err := tree.store.InsertLeaf(key, value); err != nil {
		return tree.root, errors.Wrap(err, "insert leaf")
	}

	current := tree.hasher.leafHash(key, value)
	for h := 0; h < treeHeight; h++ {
		height := uint8(h)
		branchKey := BranchKey{Height: height, NodeKey: parentPath(key, height)}
		stored, err := tree.store.GetBranch(branchKey)
		if err != nil {
			return tree.root, errors.Wrapf(err, "get branch at height %d", height)
		}
		var node BranchNode
		if stored != nil {
			node = *stored
		}
		if getBit(key, height) {
			node.Right = current
		} else {
			node.Left = current
		}
		if node.IsEmpty() {
			err = tree.store.RemoveBranch(branchKey)
		} else {
			err = tree.store.InsertBranch(branchKey, node)
		}
		if err != nil {
			return tree.root, errors.Wrapf(err, "write branch at height %d", height)
		}
		current = tree.hasher.merge(height, node.Left, node.Right)
	}
	tree.root = current
	return tree.root, nil
}

// UpdateAll applies the pairs in order; a key repeated in the batch ends up
// with its last value. Branches shared by several keys are read and written
// once per batch.
func (tree *SparseMerkleTree) UpdateAll(pairs []Pair) (common.Hash, error) {
	if len(pairs) == 0 {
		return tree.root, nil
	}
	if tree.pool != nil && len(pairs) >= prefetchThreshold {
		tree.prefetch(pairs)
	}

	latest := make(map[common.Hash]common.Hash, len(pairs))
	for _, pair := range pairs {
		latest[pair.Key] = pair.Value
	}
	leaves := make([]Pair, 0, len(latest))
	for key, value := range latest {
		leaves = append(leaves, Pair{Key: key, Value: value})
	}
	SortPairs(leaves)

	nodes := make([]proofNode, len(leaves))
	for i, leaf := range leaves {
		var err error
		if leaf.Value == (common.Hash{}) {
			err = tree.store.RemoveLeaf(leaf.Key)
		} else {
			err = tree.store.InsertLeaf(leaf.Key, leaf.Value)
		}
		if err != nil {
			return tree.root, errors.Wrap(err, "write leaf")
		}
		nodes[i] = proofNode{key: leaf.Key, hash: tree.hasher.leafHash(leaf.Key, leaf.Value)}
	}

	for h := 0; h < treeHeight; h++ {
		height := uint8(h)
		next := nodes[:0]
		for i := 0; i < len(nodes); {
			cur := nodes[i]
			branchKey := BranchKey{Height: height, NodeKey: parentPath(cur.key, height)}
			stored, err := tree.store.GetBranch(branchKey)
			if err != nil {
				return tree.root, errors.Wrapf(err, "get branch at height %d", height)
			}
			var node BranchNode
			if stored != nil {
				node = *stored
			}
			if getBit(cur.key, height) {
				node.Right = cur.hash
			} else {
				node.Left = cur.hash
			}
			i++
			// sorted order puts both children of a branch next to each other
			if i < len(nodes) && parentPath(nodes[i].key, height) == branchKey.NodeKey {
				node.Right = nodes[i].hash
				i++
			}
			if node.IsEmpty() {
				err = tree.store.RemoveBranch(branchKey)
			} else {
				err = tree.store.InsertBranch(branchKey, node)
			}
			if err != nil {
				return tree.root, errors.Wrapf(err, "write branch at height %d", height)
			}
			next = append(next, proofNode{key: cur.key, hash: tree.hasher.merge(height, node.Left, node.Right)})
		}
		nodes = next
	}
	tree.root = nodes[0].hash
	if tree.metrics != nil {
		tree.metrics.SMTUpdateNum(len(pairs))
	}
	return tree.root, nil
}

// prefetch reads every branch on the paths of pairs concurrently. Failures
// are ignored: the sequential pass reads the same nodes again.
func (tree *SparseMerkleTree) prefetch(pairs []Pair) {
	var wg sync.WaitGroup
	for i := range pairs {
		key := pairs[i].Key
		wg.Add(1)
		err := tree.pool.Submit(func() {
			defer wg.Done()
			for h := 0; h < treeHeight; h++ {
				height := uint8(h)
				if _, err := tree.store.GetBranch(BranchKey{Height: height, NodeKey: parentPath(key, height)}); err != nil {
					return
				}
			}
		})
		if err != nil {
			wg.Done()
		}
	}
	wg.Wait()
}

// MerkleProof builds a proof of keys against the current root. keys must be
// sorted with CompareKeys and free of duplicates.
func (tree *SparseMerkleTree) MerkleProof(keys []common.Hash) (*MerkleProof, error) {
	if err := checkKeys(keys); err != nil {
		return nil, err
	}
	nodes := make([]proofNode, len(keys))
	for i, key := range keys {
		value, err := tree.Get(key)
		if err != nil {
			return nil, errors.Wrap(err, "get leaf")
		}
		nodes[i] = proofNode{key: key, hash: tree.hasher.leafHash(key, value)}
	}

	proof := &MerkleProof{keys: append([]common.Hash(nil), keys...), hasher: tree.hasher}
	root, err := tree.hasher.fold(nodes, func(height uint8, key common.Hash) (common.Hash, error) {
		sibling := common.Hash{}
		if !tree.IsEmpty() {
			node, err := tree.store.GetBranch(BranchKey{Height: height, NodeKey: parentPath(key, height)})
			if err != nil {
				return common.Hash{}, err
			}
			if node != nil {
				if getBit(key, height) {
					sibling = node.Left
				} else {
					sibling = node.Right
				}
			}
		}
		proof.push(sibling)
		return sibling, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "get branch")
	}
	if root != tree.root {
		return nil, ErrCorruptedStack
	}
	return proof, nil
}
