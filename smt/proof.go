package smt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

type proofNode struct {
	key  common.Hash
	hash common.Hash
}

// siblingFunc resolves the sibling of the node on the path of key at height.
type siblingFunc func(height uint8, key common.Hash) (common.Hash, error)

// fold merges the sorted leaf nodes level by level up to the root. Two nodes
// that share a parent at some height are adjacent in proof order and merged
// directly; every other node asks sibling for the missing half.
func (p *HasherPool) fold(leaves []proofNode, sibling siblingFunc) (common.Hash, error) {
	nodes := append([]proofNode(nil), leaves...)
	for h := 0; h < treeHeight; h++ {
		height := uint8(h)
		next := nodes[:0]
		for i := 0; i < len(nodes); {
			cur := nodes[i]
			if i+1 < len(nodes) && parentPath(cur.key, height) == parentPath(nodes[i+1].key, height) {
				parent := p.merge(height, cur.hash, nodes[i+1].hash)
				next = append(next, proofNode{key: cur.key, hash: parent})
				i += 2
				continue
			}
			other, err := sibling(height, cur.key)
			if err != nil {
				return common.Hash{}, err
			}
			var parent common.Hash
			if getBit(cur.key, height) {
				parent = p.merge(height, other, cur.hash)
			} else {
				parent = p.merge(height, cur.hash, other)
			}
			next = append(next, proofNode{key: cur.key, hash: parent})
			i++
		}
		nodes = next
	}
	return nodes[0].hash, nil
}

// checkKeys scans left to right so a malformed set always yields the same error.
func checkKeys(keys []common.Hash) error {
	if len(keys) == 0 {
		return ErrEmptyKeys
	}
	for i := 1; i < len(keys); i++ {
		switch c := CompareKeys(keys[i-1], keys[i]); {
		case c == 0:
			return ErrDuplicatedKeys
		case c > 0:
			return ErrNonSortedKeys
		}
	}
	return nil
}

func pairKeys(leaves []Pair) []common.Hash {
	keys := make([]common.Hash, len(leaves))
	for i := range leaves {
		keys[i] = leaves[i].Key
	}
	return keys
}

// MerkleProof holds the siblings needed to recompute a root from a set of
// keys. Every sibling slot takes one bitmap bit; only non-zero siblings are
// kept in the path.
type MerkleProof struct {
	hasher *HasherPool
	keys   []common.Hash
	slots  uint64
	bitmap []byte
	path   []common.Hash
}

func (proof *MerkleProof) push(sibling common.Hash) {
	if proof.slots%8 == 0 {
		proof.bitmap = append(proof.bitmap, 0)
	}
	if sibling != (common.Hash{}) {
		proof.bitmap[proof.slots/8] |= 1 << (proof.slots % 8)
		proof.path = append(proof.path, sibling)
	}
	proof.slots++
}

func (proof *MerkleProof) Keys() []common.Hash {
	return proof.keys
}

// Compile binds the proof to leaves, which must carry exactly the proved keys.
func (proof *MerkleProof) Compile(leaves []Pair) (CompiledMerkleProof, error) {
	if len(leaves) != len(proof.keys) {
		return nil, ErrIncorrectNumberOfLeaves
	}
	for i := range leaves {
		if leaves[i].Key != proof.keys[i] {
			return nil, ErrUnknownLeaf
		}
	}
	return rlp.EncodeToBytes(&compiledProof{
		Slots:  proof.slots,
		Bitmap: proof.bitmap,
		Path:   proof.path,
	})
}

// Verify compiles the proof for leaves and checks it against root with the
// hasher of the tree that produced it.
func (proof *MerkleProof) Verify(root common.Hash, leaves []Pair) (bool, error) {
	compiled, err := proof.Compile(leaves)
	if err != nil {
		return false, err
	}
	hasher := proof.hasher
	if hasher == nil {
		hasher = defaultHasher
	}
	return compiled.VerifyWith(hasher, root, leaves)
}

type compiledProof struct {
	Slots  uint64
	Bitmap []byte
	Path   []common.Hash
}

// CompiledMerkleProof is the RLP form of a proof, as carried in blocks.
type CompiledMerkleProof []byte

// ComputeRoot recomputes the root from leaves; a zero value proves absence.
func (c CompiledMerkleProof) ComputeRoot(leaves []Pair) (common.Hash, error) {
	return c.ComputeRootWith(defaultHasher, leaves)
}

// ComputeRootWith is ComputeRoot for a tree built with another hasher.
func (c CompiledMerkleProof) ComputeRootWith(hasher *HasherPool, leaves []Pair) (common.Hash, error) {
	if err := checkKeys(pairKeys(leaves)); err != nil {
		return common.Hash{}, err
	}
	var decoded compiledProof
	if err := rlp.DecodeBytes(c, &decoded); err != nil {
		return common.Hash{}, errors.Wrap(ErrCorruptedProof, err.Error())
	}
	if uint64(len(decoded.Bitmap)) != (decoded.Slots+7)/8 {
		return common.Hash{}, ErrCorruptedProof
	}

	nodes := make([]proofNode, len(leaves))
	for i, leaf := range leaves {
		nodes[i] = proofNode{key: leaf.Key, hash: hasher.leafHash(leaf.Key, leaf.Value)}
	}
	var slot uint64
	root, err := hasher.fold(nodes, func(uint8, common.Hash) (common.Hash, error) {
		if slot >= decoded.Slots {
			return common.Hash{}, ErrCorruptedProof
		}
		set := decoded.Bitmap[slot/8]&(1<<(slot%8)) != 0
		slot++
		if !set {
			return common.Hash{}, nil
		}
		if len(decoded.Path) == 0 {
			return common.Hash{}, ErrCorruptedProof
		}
		sibling := decoded.Path[0]
		decoded.Path = decoded.Path[1:]
		return sibling, nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	if slot != decoded.Slots || len(decoded.Path) != 0 {
		return common.Hash{}, ErrCorruptedProof
	}
	return root, nil
}

// Verify reports whether the proof recomputes root from leaves.
func (c CompiledMerkleProof) Verify(root common.Hash, leaves []Pair) (bool, error) {
	return c.VerifyWith(defaultHasher, root, leaves)
}

func (c CompiledMerkleProof) VerifyWith(hasher *HasherPool, root common.Hash, leaves []Pair) (bool, error) {
	computed, err := c.ComputeRootWith(hasher, leaves)
	if err != nil {
		return false, err
	}
	return computed == root, nil
}
