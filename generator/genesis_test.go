package generator

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quake/godwoken/config"
	"github.com/quake/godwoken/smt"
	"github.com/quake/godwoken/state"
	"github.com/quake/godwoken/store"
	"github.com/quake/godwoken/store/statedb"
	"github.com/quake/godwoken/types"
)

var secpData = []byte("secp256k1 data")

func testConfig() *config.GenesisConfig {
	return &config.GenesisConfig{
		Timestamp:                     1630000000000,
		RollupTypeHash:                common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111"),
		MetaContractValidatorTypeHash: common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222"),
		RollupConfig: config.RollupConfig{
			L2SUDTValidatorScriptTypeHash: common.HexToHash("0x3333333333333333333333333333333333333333333333333333333333333333"),
			FinalityBlocks:                100,
		},
	}
}

func TestBuildGenesis(t *testing.T) {
	cfg := testConfig()
	built, err := BuildGenesis(cfg, secpData)
	require.NoError(t, err)

	genesis, globalState := built.Genesis, built.GlobalState
	assert.Equal(t, types.StatusRunning, globalState.Status)
	assert.Equal(t, uint8(1), globalState.Version)
	assert.Equal(t, uint64(1), globalState.Block.Count)
	assert.Equal(t, uint32(2), globalState.Account.Count)
	assert.Equal(t, cfg.RollupConfig.Hash(), globalState.RollupConfigHash)

	expectedRaw := types.RawL2Block{
		Number:             0,
		BlockProducerID:    0,
		ParentBlockHash:    common.Hash{},
		Timestamp:          cfg.Timestamp,
		PostAccount:        globalState.Account,
		SubmitTransactions: genesis.Raw.SubmitTransactions,
	}
	assert.Equal(t, expectedRaw.Hash(), globalState.TipBlockHash)
	assert.Equal(t, genesis.Hash(), globalState.TipBlockHash)

	// the checkpoint before the block equals the state after it: genesis
	// carries no transactions
	assert.Equal(t,
		state.CalculateStateCheckpoint(globalState.Account.MerkleRoot, globalState.Account.Count),
		genesis.Raw.SubmitTransactions.PrevStateCheckpoint)

	leaves := []smt.Pair{{Key: types.BlockSMTKey(0), Value: genesis.Hash()}}
	ok, err := smt.CompiledMerkleProof(genesis.BlockProof).Verify(globalState.Block.MerkleRoot, leaves)
	require.NoError(t, err)
	assert.True(t, ok)

	leaves[0].Value = common.Hash{1}
	ok, err = smt.CompiledMerkleProof(genesis.BlockProof).Verify(globalState.Block.MerkleRoot, leaves)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuildGenesisIsDeterministic(t *testing.T) {
	a, err := BuildGenesis(testConfig(), secpData)
	require.NoError(t, err)
	b, err := BuildGenesis(testConfig(), secpData)
	require.NoError(t, err)
	assert.Equal(t, a.GlobalState, b.GlobalState)

	cfg := testConfig()
	cfg.Timestamp++
	c, err := BuildGenesis(cfg, secpData)
	require.NoError(t, err)
	assert.NotEqual(t, a.GlobalState.TipBlockHash, c.GlobalState.TipBlockHash)
	assert.Equal(t, a.GlobalState.Account, c.GlobalState.Account)
}

func TestGenesisAccounts(t *testing.T) {
	cfg := testConfig()
	s := store.OpenTmp()
	tx := s.BeginTransaction()
	defer tx.Rollback()
	_, err := BuildGenesisFromStore(tx, cfg, secpData)
	require.NoError(t, err)

	tree, err := statedb.NewStateTree(tx, statedb.Tip())
	require.NoError(t, err)

	metaHash, err := state.GetScriptHash(tree, state.ReservedAccountID)
	require.NoError(t, err)
	meta, err := tree.GetScript(metaHash)
	require.NoError(t, err)
	assert.Equal(t, cfg.MetaContractValidatorTypeHash, meta.CodeHash)
	assert.Equal(t, cfg.RollupTypeHash.Bytes(), []byte(meta.Args))

	sudt := BuildL2SUDTScript(cfg.RollupTypeHash, cfg.RollupConfig.L2SUDTValidatorScriptTypeHash, state.CKBSUDTScriptArgs)
	id, err := state.GetAccountIDByScriptHash(tree, sudt.Hash())
	require.NoError(t, err)
	assert.Equal(t, state.CKBSUDTAccountID, id)
	id, err = state.GetAccountIDByShortAddress(tree, sudt.ShortAddress())
	require.NoError(t, err)
	assert.Equal(t, state.CKBSUDTAccountID, id)

	data, err := tree.GetData(types.Blake2bHash(secpData))
	require.NoError(t, err)
	assert.Equal(t, secpData, data)

	// the genesis state is readable as history of block 0
	history, err := statedb.NewStateTree(tx, statedb.History(0))
	require.NoError(t, err)
	hash, err := state.GetScriptHash(history, state.CKBSUDTAccountID)
	require.NoError(t, err)
	assert.Equal(t, sudt.Hash(), hash)
}

func TestInitGenesis(t *testing.T) {
	cfg := testConfig()
	s := store.OpenTmp()
	info := &types.L2BlockCommittedInfo{Number: 10, BlockHash: common.Hash{1}, TransactionHash: common.Hash{2}}
	require.NoError(t, InitGenesis(s, cfg, info, secpData))

	built, err := BuildGenesis(cfg, secpData)
	require.NoError(t, err)

	snap, err := s.GetSnapshot()
	require.NoError(t, err)
	defer snap.Release()

	chainID, err := snap.GetChainID()
	require.NoError(t, err)
	assert.Equal(t, cfg.RollupTypeHash, chainID)
	tip, err := snap.GetTipBlockHash()
	require.NoError(t, err)
	assert.Equal(t, built.Genesis.Hash(), tip)
	globalState, err := snap.GetBlockGlobalState(tip)
	require.NoError(t, err)
	assert.Equal(t, built.GlobalState, globalState)
	committed, err := snap.GetBlockCommittedInfo(tip)
	require.NoError(t, err)
	assert.Equal(t, info, committed)
	root, err := snap.GetBlockSMTRoot()
	require.NoError(t, err)
	assert.Equal(t, built.GlobalState.Block.MerkleRoot, root)
	merkle, err := snap.GetAccountMerkleState()
	require.NoError(t, err)
	assert.Equal(t, built.GlobalState.Account, merkle)
}

func TestInitGenesisIsIdempotent(t *testing.T) {
	cfg := testConfig()
	s := store.OpenTmp()
	require.NoError(t, InitGenesis(s, cfg, &types.L2BlockCommittedInfo{}, secpData))
	merkle := func() types.AccountMerkleState {
		tx := s.BeginTransaction()
		defer tx.Rollback()
		m, err := tx.GetAccountMerkleState()
		require.NoError(t, err)
		return m
	}
	before := merkle()

	require.NoError(t, InitGenesis(s, cfg, &types.L2BlockCommittedInfo{}, secpData))
	assert.Equal(t, before, merkle())
}

func TestInitGenesisWithAnotherRollupPanics(t *testing.T) {
	cfg := testConfig()
	s := store.OpenTmp()
	require.NoError(t, InitGenesis(s, cfg, &types.L2BlockCommittedInfo{}, secpData))

	other := testConfig()
	other.RollupTypeHash = common.Hash{0xff}
	assert.Panics(t, func() {
		_ = InitGenesis(s, other, &types.L2BlockCommittedInfo{}, secpData)
	})
}

func TestBuildL2SUDTScript(t *testing.T) {
	script := BuildL2SUDTScript(common.Hash{1}, common.Hash{2}, common.Hash{3})
	assert.Equal(t, common.Hash{2}, script.CodeHash)
	assert.Equal(t, types.ScriptHashTypeType, script.HashType)
	require.Len(t, script.Args, 64)
	assert.Equal(t, byte(1), script.Args[0])
	assert.Equal(t, byte(3), script.Args[32])
}
