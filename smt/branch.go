package smt

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

const (
	treeHeight = 256
	hashSize   = common.HashLength

	leafPrefix   = byte(0)
	branchPrefix = byte(1)
)

// BranchKey locates a branch node: the node at Height splits its subtree on
// bit Height of the key, NodeKey is the key with bits [0, Height] cleared.
type BranchKey struct {
	Height  uint8
	NodeKey common.Hash
}

// Bytes encodes the key as height || node key.
func (k BranchKey) Bytes() []byte {
	buf := make([]byte, 1+hashSize)
	buf[0] = k.Height
	copy(buf[1:], k.NodeKey[:])
	return buf
}

type BranchNode struct {
	Left  common.Hash
	Right common.Hash
}

func (n BranchNode) IsEmpty() bool {
	return n.Left == (common.Hash{}) && n.Right == (common.Hash{})
}

// Bytes encodes the node as left || right.
func (n BranchNode) Bytes() []byte {
	buf := make([]byte, 2*hashSize)
	copy(buf, n.Left[:])
	copy(buf[hashSize:], n.Right[:])
	return buf
}

func DecodeBranchNode(buf []byte) (BranchNode, error) {
	if len(buf) != 2*hashSize {
		return BranchNode{}, ErrInvalidBranchEncoding
	}
	var node BranchNode
	copy(node.Left[:], buf[:hashSize])
	copy(node.Right[:], buf[hashSize:])
	return node, nil
}

// getBit reports bit i of key; bit 0 is the lowest bit of the first byte.
func getBit(key common.Hash, i uint8) bool {
	return key[i/8]&(1<<(i%8)) != 0
}

// parentPath clears bits [0, height] of key.
func parentPath(key common.Hash, height uint8) common.Hash {
	var path common.Hash
	copy(path[:], key[:])
	full := int(height) / 8
	for i := 0; i < full; i++ {
		path[i] = 0
	}
	path[full] &= ^byte((uint16(1) << (height%8 + 1)) - 1)
	return path
}

// CompareKeys orders keys as little-endian 256-bit integers, the order in
// which siblings of every level are adjacent.
func CompareKeys(a, b common.Hash) int {
	for i := hashSize - 1; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// SortKeys sorts keys in place in proof order.
func SortKeys(keys []common.Hash) {
	sort.Slice(keys, func(i, j int) bool {
		return CompareKeys(keys[i], keys[j]) < 0
	})
}

// SortPairs sorts pairs in place by key in proof order.
func SortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		return CompareKeys(pairs[i].Key, pairs[j].Key) < 0
	})
}

func (p *HasherPool) leafHash(key, value common.Hash) common.Hash {
	if value == (common.Hash{}) {
		return common.Hash{}
	}
	return p.Hash256([]byte{leafPrefix}, key[:], value[:])
}

func (p *HasherPool) merge(height uint8, left, right common.Hash) common.Hash {
	if left == (common.Hash{}) && right == (common.Hash{}) {
		return common.Hash{}
	}
	return p.Hash256([]byte{branchPrefix, height}, left[:], right[:])
}
