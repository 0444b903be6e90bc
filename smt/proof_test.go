package smt

import (
	"crypto/sha256"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T, seed int64, n int) (*SparseMerkleTree, []Pair) {
	pairs := randomPairs(rand.New(rand.NewSource(seed)), n)
	tree := NewDefault()
	_, err := tree.UpdateAll(pairs)
	require.NoError(t, err)
	SortPairs(pairs)
	return tree, pairs
}

func TestProofOfMembership(t *testing.T) {
	tree, pairs := buildTree(t, 10, 20)

	for _, subset := range [][]Pair{pairs[:1], pairs[3:9], pairs} {
		proof, err := tree.MerkleProof(pairKeys(subset))
		require.NoError(t, err)

		ok, err := proof.Verify(tree.Root(), subset)
		require.NoError(t, err)
		assert.True(t, ok)

		compiled, err := proof.Compile(subset)
		require.NoError(t, err)
		root, err := compiled.ComputeRoot(subset)
		require.NoError(t, err)
		assert.Equal(t, tree.Root(), root)
	}
}

func TestProofRejectsModifiedLeaf(t *testing.T) {
	tree, pairs := buildTree(t, 11, 8)
	leaves := append([]Pair(nil), pairs[2:5]...)

	proof, err := tree.MerkleProof(pairKeys(leaves))
	require.NoError(t, err)
	compiled, err := proof.Compile(leaves)
	require.NoError(t, err)

	leaves[1].Value = common.HexToHash("0xdead")
	ok, err := compiled.Verify(tree.Root(), leaves)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProofOfNonMembership(t *testing.T) {
	tree, _ := buildTree(t, 12, 8)
	absent := common.HexToHash("0xabcdef")

	proof, err := tree.MerkleProof([]common.Hash{absent})
	require.NoError(t, err)
	compiled, err := proof.Compile([]Pair{{Key: absent}})
	require.NoError(t, err)

	ok, err := compiled.Verify(tree.Root(), []Pair{{Key: absent}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = compiled.Verify(tree.Root(), []Pair{{Key: absent, Value: common.HexToHash("0x01")}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProofOnEmptyTree(t *testing.T) {
	tree := NewDefault()
	key := common.HexToHash("0x01")
	proof, err := tree.MerkleProof([]common.Hash{key})
	require.NoError(t, err)

	ok, err := proof.Verify(common.Hash{}, []Pair{{Key: key}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProofKeyChecks(t *testing.T) {
	tree, pairs := buildTree(t, 13, 4)
	keys := pairKeys(pairs)

	_, err := tree.MerkleProof(nil)
	assert.ErrorIs(t, err, ErrEmptyKeys)

	_, err = tree.MerkleProof([]common.Hash{keys[0], keys[0]})
	assert.ErrorIs(t, err, ErrDuplicatedKeys)

	_, err = tree.MerkleProof([]common.Hash{keys[1], keys[0]})
	assert.ErrorIs(t, err, ErrNonSortedKeys)

	// the first violation from the left decides
	_, err = tree.MerkleProof([]common.Hash{keys[0], keys[0], keys[2], keys[1]})
	assert.ErrorIs(t, err, ErrDuplicatedKeys)
	_, err = tree.MerkleProof([]common.Hash{keys[1], keys[0], keys[2], keys[2]})
	assert.ErrorIs(t, err, ErrNonSortedKeys)
}

func TestCompileChecksLeaves(t *testing.T) {
	tree, pairs := buildTree(t, 14, 4)
	proof, err := tree.MerkleProof(pairKeys(pairs[:2]))
	require.NoError(t, err)

	_, err = proof.Compile(pairs[:1])
	assert.ErrorIs(t, err, ErrIncorrectNumberOfLeaves)

	_, err = proof.Compile(pairs[1:3])
	assert.ErrorIs(t, err, ErrUnknownLeaf)
}

func TestCorruptedCompiledProof(t *testing.T) {
	tree, pairs := buildTree(t, 15, 6)
	leaves := pairs[:2]
	proof, err := tree.MerkleProof(pairKeys(leaves))
	require.NoError(t, err)
	compiled, err := proof.Compile(leaves)
	require.NoError(t, err)

	_, err = CompiledMerkleProof([]byte{0x01, 0x02}).ComputeRoot(leaves)
	assert.ErrorIs(t, err, ErrCorruptedProof)

	// a proof for more leaves leaves unused siblings behind
	_, err = compiled.ComputeRoot(leaves[:1])
	assert.ErrorIs(t, err, ErrCorruptedProof)
}

func TestProofWithCustomHasher(t *testing.T) {
	hasher := NewHasherPool(sha256.New)
	tree := NewDefault(WithHasher(hasher))
	pairs := randomPairs(rand.New(rand.NewSource(12)), 8)
	_, err := tree.UpdateAll(pairs)
	require.NoError(t, err)
	SortPairs(pairs)

	proof, err := tree.MerkleProof(pairKeys(pairs[2:5]))
	require.NoError(t, err)
	ok, err := proof.Verify(tree.Root(), pairs[2:5])
	require.NoError(t, err)
	assert.True(t, ok)

	compiled, err := proof.Compile(pairs[2:5])
	require.NoError(t, err)
	ok, err = compiled.VerifyWith(hasher, tree.Root(), pairs[2:5])
	require.NoError(t, err)
	assert.True(t, ok)
	root, err := compiled.ComputeRootWith(hasher, pairs[2:5])
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), root)

	// the default hasher computes a different root
	ok, err = compiled.Verify(tree.Root(), pairs[2:5])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProofIsHistoryIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	pairs := randomPairs(r, 16)
	extra := randomPairs(r, 8)

	direct := NewDefault()
	_, err := direct.UpdateAll(pairs)
	require.NoError(t, err)

	// same final mapping: extra keys come and go, values are overwritten,
	// and the live keys arrive in reverse order
	winding := NewDefault()
	for _, p := range extra {
		_, err := winding.Update(p.Key, p.Value)
		require.NoError(t, err)
	}
	for i := len(pairs) - 1; i >= 0; i-- {
		_, err := winding.Update(pairs[i].Key, common.Hash{0xff})
		require.NoError(t, err)
		_, err = winding.Update(pairs[i].Key, pairs[i].Value)
		require.NoError(t, err)
	}
	for _, p := range extra {
		_, err := winding.Update(p.Key, common.Hash{})
		require.NoError(t, err)
	}
	require.Equal(t, direct.Root(), winding.Root())
	directBranches, directLeaves := direct.Store().(*DefaultStore).Size()
	windingBranches, windingLeaves := winding.Store().(*DefaultStore).Size()
	assert.Equal(t, directBranches, windingBranches)
	assert.Equal(t, directLeaves, windingLeaves)

	SortPairs(pairs)
	absent := extra[:2]
	SortPairs(absent)
	for _, keys := range [][]common.Hash{pairKeys(pairs[:1]), pairKeys(pairs[4:11]), pairKeys(pairs), pairKeys(absent)} {
		a, err := direct.MerkleProof(keys)
		require.NoError(t, err)
		b, err := winding.MerkleProof(keys)
		require.NoError(t, err)

		leaves := make([]Pair, len(keys))
		for i, key := range keys {
			value, err := direct.Get(key)
			require.NoError(t, err)
			leaves[i] = Pair{Key: key, Value: value}
		}
		ca, err := a.Compile(leaves)
		require.NoError(t, err)
		cb, err := b.Compile(leaves)
		require.NoError(t, err)
		assert.Equal(t, ca, cb)
	}
}
