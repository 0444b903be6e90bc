package statedb

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quake/godwoken/smt"
	"github.com/quake/godwoken/state"
	"github.com/quake/godwoken/store"
	"github.com/quake/godwoken/types"
)

func newTree(t *testing.T, s *store.Store, ctx StateContext) (*store.Transaction, *StateTree) {
	tx := s.BeginTransaction()
	tree, err := NewStateTree(tx, ctx)
	require.NoError(t, err)
	return tx, tree
}

func TestOverlayEquivalence(t *testing.T) {
	s := store.OpenTmp()
	tx, tree := newTree(t, s, Tip())
	defer tx.Rollback()

	key := common.Hash{1}
	require.NoError(t, tree.UpdateRaw(key, common.Hash{2}))

	direct, err := tx.AccountSMTWithMerkleState(tree.GetMerkleState()).Get(key)
	require.NoError(t, err)
	value, err := tree.GetRaw(key)
	require.NoError(t, err)
	assert.Equal(t, direct, value)

	mem, err := NewMemStateTree(tx, Tip())
	require.NoError(t, err)
	// nothing submitted yet: the mem tree starts from the persisted state
	value, err = mem.GetRaw(key)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, value)
}

func TestCreateAccountsThroughStateTree(t *testing.T) {
	s := store.OpenTmp()
	tx, tree := newTree(t, s, Tip())

	first := &types.Script{CodeHash: common.Hash{1}, HashType: types.ScriptHashTypeType}
	second := &types.Script{CodeHash: common.Hash{2}, HashType: types.ScriptHashTypeType, Args: []byte{1}}
	id, err := state.CreateAccountFromScript(tree, first)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)
	id, err = state.CreateAccountFromScript(tree, second)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)

	// read your own writes before submitting
	script, err := tree.GetScript(second.Hash())
	require.NoError(t, err)
	assert.Equal(t, second.Hash(), script.Hash())
	id, err = state.GetAccountIDByShortAddress(tree, second.ShortAddress())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)
	_, err = tx.GetScript(second.Hash())
	assert.Error(t, err)

	require.NoError(t, tree.InsertData(common.Hash{9}, []byte("code")))
	merkle := tree.GetMerkleState()
	require.NoError(t, tree.SubmitTreeToStore())
	require.NoError(t, tx.Commit())

	tx, tree = newTree(t, s, Tip())
	defer tx.Rollback()
	assert.Equal(t, merkle, tree.GetMerkleState())
	script, err = tree.GetScript(first.Hash())
	require.NoError(t, err)
	assert.Equal(t, first.CodeHash, script.CodeHash)
	data, err := tree.GetData(common.Hash{9})
	require.NoError(t, err)
	assert.Equal(t, []byte("code"), data)
	hash, err := tree.GetScriptHashByShortAddress(second.ShortAddress())
	require.NoError(t, err)
	assert.Equal(t, second.Hash(), hash)

	_, err = tree.GetScript(common.Hash{0xaa})
	assert.ErrorIs(t, err, state.ErrMissingKey)
	_, err = tree.GetData(common.Hash{0xaa})
	assert.ErrorIs(t, err, state.ErrMissingKey)
	_, err = tree.GetScriptHashByShortAddress(make([]byte, types.ShortAddressLength))
	assert.ErrorIs(t, err, state.ErrMissingKey)
	_, err = tree.GetScriptHashByShortAddress([]byte{1})
	assert.ErrorIs(t, err, state.ErrInvalidShortAddress)
}

func TestShortAddressCollisionKeepsLatest(t *testing.T) {
	s := store.OpenTmp()
	tx, tree := newTree(t, s, Tip())
	defer tx.Rollback()

	a := common.Hash{1, 2, 3}
	b := a
	b[31] = 0xff
	require.NoError(t, tree.InsertScript(a, &types.Script{CodeHash: common.Hash{1}}))
	require.NoError(t, tree.InsertScript(b, &types.Script{CodeHash: common.Hash{2}}))

	hash, err := tree.GetScriptHashByShortAddress(a[:types.ShortAddressLength])
	require.NoError(t, err)
	assert.Equal(t, b, hash)
}

func TestHistoryIsolation(t *testing.T) {
	s := store.OpenTmp()
	key := common.Hash{1}

	tx, tree := newTree(t, s, AttachBlock(1))
	require.NoError(t, tree.UpdateRaw(key, common.Hash{0x11}))
	require.NoError(t, tree.SubmitTreeToStore())
	require.NoError(t, tx.Commit())

	tx, tree = newTree(t, s, History(1))
	before, err := tree.GetRaw(key)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{0x11}, before)
	tx.Rollback()

	tx, tree = newTree(t, s, AttachBlock(2))
	require.NoError(t, tree.UpdateMultiRaw([]types.KV{
		{Key: key, Value: common.Hash{0x21}},
		{Key: key, Value: common.Hash{0x22}},
	}))
	require.NoError(t, tree.SubmitTreeToStore())
	require.NoError(t, tx.Commit())

	tx, tree = newTree(t, s, History(1))
	after, err := tree.GetRaw(key)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	tx.Rollback()

	tx, tree = newTree(t, s, History(2))
	defer tx.Rollback()
	value, err := tree.GetRaw(key)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{0x22}, value)

	tip, err := NewStateTree(tx, Tip())
	require.NoError(t, err)
	value, err = tip.GetRaw(key)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{0x22}, value)
}

func TestHistoryRejectsWrites(t *testing.T) {
	s := store.OpenTmp()
	tx, tree := newTree(t, s, History(0))
	defer tx.Rollback()

	assert.ErrorIs(t, tree.UpdateRaw(common.Hash{1}, common.Hash{2}), state.ErrReadOnlyContext)
	assert.ErrorIs(t, tree.UpdateMultiRaw([]types.KV{{Key: common.Hash{1}}}), state.ErrReadOnlyContext)
	assert.ErrorIs(t, tree.SetAccountCount(3), state.ErrReadOnlyContext)
	assert.ErrorIs(t, tree.InsertScript(common.Hash{1}, &types.Script{}), state.ErrReadOnlyContext)
	assert.ErrorIs(t, tree.InsertData(common.Hash{1}, nil), state.ErrReadOnlyContext)
	assert.ErrorIs(t, tree.SubmitTreeToStore(), state.ErrReadOnlyContext)
}

func TestClosedTransactionGuard(t *testing.T) {
	s := store.OpenTmp()
	tx, tree := newTree(t, s, Tip())
	tx.Rollback()

	_, err := tree.GetRaw(common.Hash{1})
	assert.ErrorIs(t, err, store.ErrTransactionClosed)
	assert.ErrorIs(t, tree.UpdateRaw(common.Hash{1}, common.Hash{2}), store.ErrTransactionClosed)
	_, err = tree.GetAccountCount()
	assert.ErrorIs(t, err, store.ErrTransactionClosed)
	_, err = tree.GetScript(common.Hash{1})
	assert.ErrorIs(t, err, store.ErrTransactionClosed)
	assert.ErrorIs(t, tree.SubmitTreeToStore(), store.ErrTransactionClosed)
}

func TestMemStateTreeSubmit(t *testing.T) {
	s := store.OpenTmp()
	tx := s.BeginTransaction()
	mem, err := NewMemStateTree(tx, Tip())
	require.NoError(t, err)

	alice := make([]byte, types.ShortAddressLength)
	require.NoError(t, state.MintSUDT(mem, state.CKBSUDTAccountID, alice, uint256.NewInt(50)))

	// the transaction only sees the tree once submitted
	persisted, err := tx.AccountSMT()
	require.NoError(t, err)
	assert.True(t, persisted.IsEmpty())

	require.NoError(t, mem.SubmitTreeToStore())
	require.NoError(t, tx.Commit())

	tx, tree := newTree(t, s, Tip())
	defer tx.Rollback()
	balance, err := state.GetSUDTBalance(tree, state.CKBSUDTAccountID, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), balance.Uint64())
	assert.Equal(t, mem.GetMerkleState(), tree.GetMerkleState())
}

func TestGenerateWitness(t *testing.T) {
	s := store.OpenTmp()
	tx, tree := newTree(t, s, Tip())
	defer tx.Rollback()

	for i := byte(1); i <= 8; i++ {
		require.NoError(t, tree.UpdateRaw(common.Hash{i}, common.Hash{i, i}))
	}
	tree.Tracker().Enable()
	_, err := tree.GetRaw(common.Hash{3})
	require.NoError(t, err)
	require.NoError(t, tree.UpdateRaw(common.Hash{5}, common.Hash{0x55}))
	_, err = tree.GetRaw(common.Hash{0xee})
	require.NoError(t, err)

	leaves, proof, err := tree.GenerateWitness()
	require.NoError(t, err)
	require.Len(t, leaves, 3)

	root, err := tree.CalculateRoot()
	require.NoError(t, err)
	ok, err := proof.Verify(root, leaves)
	require.NoError(t, err)
	assert.True(t, ok)

	tree.Tracker().Reset()
	leaves, proof, err = tree.GenerateWitness()
	require.NoError(t, err)
	assert.Nil(t, leaves)
	assert.Nil(t, proof)
}

func TestTrackerRecordsEveryKeyOnce(t *testing.T) {
	tracker := NewStateTracker()
	tracker.Touch(common.Hash{1})
	assert.Empty(t, tracker.TouchedKeys())
	assert.False(t, tracker.IsEnabled())

	tracker.Enable()
	high := common.Hash{}
	high[31] = 1
	tracker.Touch(high, common.Hash{2})
	tracker.Touch(common.Hash{2})
	keys := tracker.TouchedKeys()
	assert.Equal(t, []types.Hash256{{2}, high}, keys)

	tracker.Reset()
	assert.True(t, tracker.IsEnabled())
	assert.Empty(t, tracker.TouchedKeys())

	tracker.Disable()
	tracker.Touch(common.Hash{3})
	assert.Empty(t, tracker.TouchedKeys())
}

func TestStateContext(t *testing.T) {
	assert.Equal(t, "Tip", Tip().String())
	assert.Equal(t, "AttachBlock(3)", AttachBlock(3).String())
	assert.Equal(t, "History(4)", History(4).String())
	_, ok := Tip().BlockNumber()
	assert.False(t, ok)
	n, ok := History(4).BlockNumber()
	assert.True(t, ok)
	assert.Equal(t, uint64(4), n)
}

func TestStateTreeOptions(t *testing.T) {
	s := store.OpenTmp()
	tx := s.BeginTransaction()
	defer tx.Rollback()
	tree, err := NewMemStateTree(tx, Tip(), smt.WithHasher(smt.DefaultHasher()))
	require.NoError(t, err)
	require.NoError(t, tree.UpdateRaw(common.Hash{1}, common.Hash{1}))
	assert.False(t, tree.SMT().IsEmpty())
}

func TestMemStateTreeWithCacheAndPrefetch(t *testing.T) {
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	pairs := make([]types.KV, 32)
	for i := range pairs {
		pairs[i] = types.KV{Key: common.Hash{byte(i), 0xaa}, Value: common.Hash{byte(i + 1)}}
	}

	plain := store.OpenTmp()
	tx, tree := newTree(t, plain, Tip())
	require.NoError(t, tree.UpdateMultiRaw(pairs))
	want := tree.GetMerkleState()
	tx.Rollback()

	tuned := store.OpenTmp(store.WithPrefetchPool(pool), store.WithBranchCache(64))
	tx = tuned.BeginTransaction()
	mem, err := NewMemStateTree(tx, Tip())
	require.NoError(t, err)
	require.NoError(t, mem.UpdateMultiRaw(pairs[:16]))
	require.NoError(t, mem.UpdateMultiRaw(pairs[16:]))
	require.NoError(t, mem.SubmitTreeToStore())
	require.NoError(t, tx.Commit())
	assert.Equal(t, want, mem.GetMerkleState())

	tx, tree = newTree(t, tuned, Tip())
	defer tx.Rollback()
	assert.Equal(t, want, tree.GetMerkleState())
	value, err := tree.GetRaw(pairs[20].Key)
	require.NoError(t, err)
	assert.Equal(t, pairs[20].Value, value)
}

func TestCreateAccountWithDamagedPrefixIndex(t *testing.T) {
	s := store.OpenTmp()
	tx, tree := newTree(t, s, Tip())
	defer tx.Rollback()

	script := &types.Script{CodeHash: common.Hash{9}, HashType: types.ScriptHashTypeType}
	require.NoError(t, tx.Insert(store.ColumnScriptPrefix, script.ShortAddress(), []byte{1, 2, 3}))
	root := tree.SMT().Root()

	_, err := state.CreateAccountFromScript(tree, script)
	require.ErrorIs(t, err, state.ErrStore)

	count, err := tree.GetAccountCount()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)
	assert.Equal(t, root, tree.SMT().Root())
	_, err = tree.GetScript(script.Hash())
	assert.ErrorIs(t, err, state.ErrMissingKey)
}
