package generator

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/quake/godwoken/config"
	"github.com/quake/godwoken/database"
	"github.com/quake/godwoken/smt"
	"github.com/quake/godwoken/state"
	"github.com/quake/godwoken/store"
	"github.com/quake/godwoken/store/statedb"
	"github.com/quake/godwoken/types"
)

type GenesisWithGlobalState struct {
	Genesis     *types.L2Block
	GlobalState *types.GlobalState
}

// BuildGenesis computes the genesis block and global state on a throwaway
// in-memory store.
func BuildGenesis(cfg *config.GenesisConfig, secpData []byte) (*GenesisWithGlobalState, error) {
	tx := store.OpenTmp().BeginTransaction()
	defer tx.Rollback()
	return BuildGenesisFromStore(tx, cfg, secpData)
}

// BuildGenesisFromStore writes the genesis state into tx and returns the
// genesis block with its global state. tx is left uncommitted.
func BuildGenesisFromStore(tx *store.Transaction, cfg *config.GenesisConfig, secpData []byte) (*GenesisWithGlobalState, error) {
	if err := tx.SetBlockSMTRoot(types.Hash256{}); err != nil {
		return nil, err
	}
	if err := tx.SetRevertedBlockSMTRoot(types.Hash256{}); err != nil {
		return nil, err
	}

	tree := statedb.New(tx, tx.AccountSMTWithMerkleState(types.AccountMerkleState{}), 0, statedb.AttachBlock(0))

	// the meta contract account creates contract accounts
	metaScript := &types.Script{
		CodeHash: cfg.MetaContractValidatorTypeHash,
		HashType: types.ScriptHashTypeType,
		Args:     cfg.RollupTypeHash.Bytes(),
	}
	reservedID, err := state.CreateAccountFromScript(tree, metaScript)
	if err != nil {
		return nil, errors.Wrap(err, "create meta contract account")
	}
	mustEqualID("reserved account id must be zero", reservedID, state.ReservedAccountID)

	sudtScript := BuildL2SUDTScript(cfg.RollupTypeHash, cfg.RollupConfig.L2SUDTValidatorScriptTypeHash, state.CKBSUDTScriptArgs)
	sudtID, err := state.CreateAccountFromScript(tree, sudtScript)
	if err != nil {
		return nil, errors.Wrap(err, "create ckb simple UDT account")
	}
	mustEqualID("ckb simple UDT account id must be one", sudtID, state.CKBSUDTAccountID)

	prevStateCheckpoint, err := state.CalculateStateCheckpointOf(tree)
	if err != nil {
		return nil, err
	}
	submitTxs := types.SubmitTransactions{PrevStateCheckpoint: prevStateCheckpoint}

	postAccount, err := state.CalculateMerkleState(tree)
	if err != nil {
		return nil, err
	}

	raw := types.RawL2Block{
		Number:             0,
		BlockProducerID:    0,
		ParentBlockHash:    types.Hash256{},
		Timestamp:          cfg.Timestamp,
		PostAccount:        postAccount,
		SubmitTransactions: submitTxs,
	}
	genesisHash := raw.Hash()

	blockSMT, err := tx.BlockSMT()
	if err != nil {
		return nil, err
	}
	blockKey := types.BlockSMTKey(0)
	blockRoot, err := blockSMT.Update(blockKey, genesisHash)
	if err != nil {
		return nil, state.WrapAccumulator(err)
	}
	proof, err := blockSMT.MerkleProof([]types.Hash256{blockKey})
	if err != nil {
		return nil, errors.Wrap(state.ErrMerkleProof, err.Error())
	}
	blockProof, err := proof.Compile([]smt.Pair{{Key: blockKey, Value: genesisHash}})
	if err != nil {
		return nil, errors.Wrap(state.ErrMerkleProof, err.Error())
	}

	genesis := &types.L2Block{Raw: raw, BlockProof: blockProof}
	globalState := &types.GlobalState{
		Account:          postAccount,
		Block:            types.BlockMerkleState{MerkleRoot: blockRoot, Count: 1},
		Status:           types.StatusRunning,
		RollupConfigHash: cfg.RollupConfig.Hash(),
		TipBlockHash:     genesis.Hash(),
		Version:          1,
	}

	if err := tree.InsertData(types.Blake2bHash(secpData), secpData); err != nil {
		return nil, err
	}
	if err := tree.SubmitTreeToStore(); err != nil {
		return nil, err
	}
	if err := tx.SetBlockSMTRoot(globalState.Block.MerkleRoot); err != nil {
		return nil, err
	}
	return &GenesisWithGlobalState{Genesis: genesis, GlobalState: globalState}, nil
}

// InitGenesis commits the genesis of cfg into an empty store. A store that
// already holds the genesis of the same rollup is left alone; one that
// belongs to another rollup is a fatal misconfiguration.
func InitGenesis(s *store.Store, cfg *config.GenesisConfig, committedInfo *types.L2BlockCommittedInfo, secpData []byte) error {
	has, err := s.HasGenesis()
	if err != nil {
		return err
	}
	if has {
		chainID, err := s.GetChainID()
		if err != nil && !errors.Is(err, database.ErrDatabaseNotFound) {
			return err
		}
		if chainID == cfg.RollupTypeHash {
			return nil
		}
		log.Error("Store initialized by another rollup", "chain_id", chainID, "rollup_type_hash", cfg.RollupTypeHash)
		panic(fmt.Sprintf("The store is already initialized by rollup_type_hash: %s!", chainID.Hex()))
	}

	tx := s.BeginTransaction()
	defer tx.Rollback()
	if err := tx.SetupChainID(cfg.RollupTypeHash); err != nil {
		return err
	}
	built, err := BuildGenesisFromStore(tx, cfg, secpData)
	if err != nil {
		return err
	}
	genesis := built.Genesis
	if err := tx.InsertBlock(genesis, built.GlobalState, nil); err != nil {
		return err
	}
	if err := tx.InsertBlockCommittedInfo(genesis.Hash(), committedInfo); err != nil {
		return err
	}
	if err := tx.AttachBlock(genesis); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info("Initialized genesis", "hash", genesis.Hash(), "rollup_type_hash", cfg.RollupTypeHash,
		"accounts", genesis.Raw.PostAccount.Count)
	return nil
}

func mustEqualID(msg string, got, want uint32) {
	if got != want {
		log.Error("Unexpected genesis account id", "got", got, "want", want)
		panic(msg)
	}
}
