package store

import (
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quake/godwoken/smt"
	"github.com/quake/godwoken/types"
)

func randomPairs(n int, seed int64) []smt.Pair {
	r := rand.New(rand.NewSource(seed))
	pairs := make([]smt.Pair, n)
	for i := range pairs {
		r.Read(pairs[i].Key[:])
		r.Read(pairs[i].Value[:])
	}
	return pairs
}

func TestSMTStoreMatchesDefaultStore(t *testing.T) {
	pairs := randomPairs(20, 1)
	s := OpenTmp()

	tx := s.BeginTransaction()
	tree, err := tx.AccountSMT()
	require.NoError(t, err)
	root, err := tree.UpdateAll(pairs)
	require.NoError(t, err)

	expected := smt.NewDefault()
	_, err = expected.UpdateAll(pairs)
	require.NoError(t, err)
	assert.Equal(t, expected.Root(), root)

	require.NoError(t, tx.SetAccountMerkleState(types.AccountMerkleState{MerkleRoot: root, Count: 3}))
	require.NoError(t, tx.Commit())

	tx = s.BeginTransaction()
	defer tx.Rollback()
	reopened, err := tx.AccountSMT()
	require.NoError(t, err)
	assert.Equal(t, root, reopened.Root())
	for _, pair := range pairs {
		value, err := reopened.Get(pair.Key)
		require.NoError(t, err)
		assert.Equal(t, pair.Value, value)
	}
}

func TestSMTStoreRemovesEmptyNodes(t *testing.T) {
	s := OpenTmp()
	tx := s.BeginTransaction()
	defer tx.Rollback()

	tree, err := tx.BlockSMT()
	require.NoError(t, err)
	_, err = tree.Update(common.Hash{1}, common.Hash{2})
	require.NoError(t, err)
	_, err = tree.Update(common.Hash{1}, common.Hash{})
	require.NoError(t, err)
	assert.True(t, tree.IsEmpty())

	for _, col := range []Col{ColumnBlockSMTBranch, ColumnBlockSMTLeaf} {
		it := tx.Iterate(col, Start())
		assert.False(t, it.Next(), "column %s", col)
		it.Release()
	}
}

func TestMemSMTStoreOverlay(t *testing.T) {
	pairs := randomPairs(10, 2)
	s := OpenTmp()
	tx := s.BeginTransaction()
	defer tx.Rollback()

	base, err := tx.AccountSMT()
	require.NoError(t, err)
	root, err := base.UpdateAll(pairs[:5])
	require.NoError(t, err)

	overlay := NewMemSMTStore(tx.AccountSMTStore())
	tree := smt.New(root, overlay)
	_, err = tree.UpdateAll(pairs[5:])
	require.NoError(t, err)
	_, err = tree.Update(pairs[0].Key, common.Hash{})
	require.NoError(t, err)

	expected := smt.NewDefault()
	_, err = expected.UpdateAll(pairs[1:])
	require.NoError(t, err)
	assert.Equal(t, expected.Root(), tree.Root())

	// the transaction never saw the overlay writes
	value, err := base.Get(pairs[0].Key)
	require.NoError(t, err)
	assert.Equal(t, pairs[0].Value, value)
	value, err = base.Get(pairs[6].Key)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, value)
	value, err = tree.Get(pairs[0].Key)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, value)

	branches, leaves := overlay.Len()
	assert.NotZero(t, branches)
	assert.Equal(t, 6, leaves)
}
