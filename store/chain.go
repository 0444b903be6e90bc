package store

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/quake/godwoken/smt"
	"github.com/quake/godwoken/types"
	"github.com/quake/godwoken/utils"
)

func (tx *Transaction) SetupChainID(chainID types.Hash256) error {
	return tx.Insert(ColumnMeta, metaChainIDKey, chainID[:])
}

func (tx *Transaction) SetBlockSMTRoot(root types.Hash256) error {
	return tx.Insert(ColumnMeta, metaBlockSMTRootKey, root[:])
}

func (tx *Transaction) SetRevertedBlockSMTRoot(root types.Hash256) error {
	return tx.Insert(ColumnMeta, metaRevertedBlockSMTRootKey, root[:])
}

// SetAccountMerkleState persists the account SMT root together with the
// account count.
func (tx *Transaction) SetAccountMerkleState(state types.AccountMerkleState) error {
	if err := tx.Insert(ColumnMeta, metaAccountSMTRootKey, state.MerkleRoot[:]); err != nil {
		return err
	}
	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, state.Count)
	return tx.Insert(ColumnMeta, metaAccountSMTCountKey, count)
}

// AccountSMTStore is the account SMT node store inside this transaction.
func (tx *Transaction) AccountSMTStore() *SMTStore {
	return NewSMTStore(ColumnAccountSMTLeaf, ColumnAccountSMTBranch, tx)
}

// AccountSMT opens the account SMT at its persisted root.
func (tx *Transaction) AccountSMT(opts ...smt.Option) (*smt.SparseMerkleTree, error) {
	state, err := tx.GetAccountMerkleState()
	if err != nil {
		return nil, err
	}
	return tx.AccountSMTWithMerkleState(state, opts...), nil
}

func (tx *Transaction) AccountSMTWithMerkleState(state types.AccountMerkleState, opts ...smt.Option) *smt.SparseMerkleTree {
	return smt.New(state.MerkleRoot, tx.AccountSMTStore(), tx.smtOptions(opts)...)
}

// AccountSMTOverlay opens the account SMT at state over an in-memory node
// overlay. Nothing reaches the transaction until the overlay is flushed.
func (tx *Transaction) AccountSMTOverlay(state types.AccountMerkleState, opts ...smt.Option) (*smt.SparseMerkleTree, *MemSMTStore, error) {
	var inner smt.Store = tx.AccountSMTStore()
	if size := tx.store.branchCacheSize; size > 0 {
		cached, err := smt.NewCachedStore(inner, size)
		if err != nil {
			return nil, nil, err
		}
		inner = cached
	}
	overlay := NewMemSMTStore(inner)
	return smt.New(state.MerkleRoot, overlay, tx.smtOptions(opts)...), overlay, nil
}

func (tx *Transaction) BlockSMT(opts ...smt.Option) (*smt.SparseMerkleTree, error) {
	root, err := tx.GetBlockSMTRoot()
	if err != nil {
		return nil, err
	}
	store := NewSMTStore(ColumnBlockSMTLeaf, ColumnBlockSMTBranch, tx)
	return smt.New(root, store, tx.smtOptions(opts)...), nil
}

func (tx *Transaction) RevertedBlockSMT(opts ...smt.Option) (*smt.SparseMerkleTree, error) {
	root, err := tx.GetRevertedBlockSMTRoot()
	if err != nil {
		return nil, err
	}
	store := NewSMTStore(ColumnRevertedBlockSMTLeaf, ColumnRevertedBlockSMTBranch, tx)
	return smt.New(root, store, tx.smtOptions(opts)...), nil
}

func (tx *Transaction) smtOptions(opts []smt.Option) []smt.Option {
	var base []smt.Option
	if tx.store.metrics != nil {
		base = append(base, smt.EnableMetrics(tx.store.metrics))
	}
	if tx.store.prefetch != nil {
		base = append(base, smt.WithPrefetchPool(tx.store.prefetch))
	}
	return append(base, opts...)
}

// InsertBlock stores a block with its global state, transactions and
// receipts. receipts must pair up with the block transactions.
func (tx *Transaction) InsertBlock(block *types.L2Block, globalState *types.GlobalState, receipts []types.TxReceipt) error {
	if len(receipts) != len(block.Transactions) {
		return errors.Errorf("block %d has %d transactions but %d receipts",
			block.Number(), len(block.Transactions), len(receipts))
	}
	hash := block.Hash()
	if err := putEntity(tx, ColumnBlock, hash[:], block); err != nil {
		return err
	}
	if err := putEntity(tx, ColumnBlockGlobalState, hash[:], globalState); err != nil {
		return err
	}
	for i := range block.Transactions {
		l2tx := &block.Transactions[i]
		key := types.NewTransactionKey(hash, uint32(i))
		txHash := l2tx.Hash()
		if err := putEntity(tx, ColumnTransaction, key[:], l2tx); err != nil {
			return err
		}
		info := &types.TransactionInfo{BlockNumber: block.Number(), Key: key}
		if err := putEntity(tx, ColumnTransactionInfo, txHash[:], info); err != nil {
			return err
		}
		if err := putEntity(tx, ColumnTransactionReceipt, key[:], &receipts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Transaction) InsertBlockCommittedInfo(blockHash types.Hash256, info *types.L2BlockCommittedInfo) error {
	return putEntity(tx, ColumnL2BlockCommittedInfo, blockHash[:], info)
}

func (tx *Transaction) InsertMemPoolTransactionReceipt(txHash types.Hash256, receipt *types.TxReceipt) error {
	return putEntity(tx, ColumnMemPoolTransactionReceipt, txHash[:], receipt)
}

func (tx *Transaction) RemoveMemPoolTransactionReceipt(txHash types.Hash256) error {
	return tx.Delete(ColumnMemPoolTransactionReceipt, txHash[:])
}

// AttachBlock makes an inserted block the chain tip: it indexes the block by
// number and hash, adds it to the block SMT and records the account merkle
// state it produced.
func (tx *Transaction) AttachBlock(block *types.L2Block) error {
	hash := block.Hash()
	number := block.Number()
	if err := tx.Insert(ColumnIndex, encodeBlockNumber(number), hash[:]); err != nil {
		return err
	}
	if err := tx.Insert(ColumnIndex, hash[:], encodeBlockNumber(number)); err != nil {
		return err
	}
	if err := tx.updateBlockSMT(number, hash); err != nil {
		return err
	}
	if err := tx.SetAccountMerkleState(block.Raw.PostAccount); err != nil {
		return err
	}
	if err := tx.Insert(ColumnMeta, metaTipBlockHashKey, hash[:]); err != nil {
		return err
	}
	tx.attached = block
	return nil
}

// DetachBlock reverts AttachBlock for the current tip, making its parent
// the tip again. The block itself stays stored.
func (tx *Transaction) DetachBlock(block *types.L2Block) error {
	tip, err := tx.GetTipBlockHash()
	if err != nil {
		return err
	}
	hash := block.Hash()
	if tip != hash {
		return errors.Errorf("detach block %d: not the tip", block.Number())
	}
	number := block.Number()
	if err := tx.Delete(ColumnIndex, encodeBlockNumber(number)); err != nil {
		return err
	}
	if err := tx.Delete(ColumnIndex, hash[:]); err != nil {
		return err
	}
	if err := tx.updateBlockSMT(number, types.Hash256{}); err != nil {
		return err
	}
	if err := tx.SetAccountMerkleState(block.Raw.PrevAccount); err != nil {
		return err
	}
	if err := tx.clearBlockStateRecords(number); err != nil {
		return err
	}
	if err := tx.Insert(ColumnMeta, metaTipBlockHashKey, block.Raw.ParentBlockHash[:]); err != nil {
		return err
	}
	tx.attached = nil
	return nil
}

func (tx *Transaction) updateBlockSMT(number uint64, hash types.Hash256) error {
	tree, err := tx.BlockSMT()
	if err != nil {
		return err
	}
	root, err := tree.Update(types.BlockSMTKey(number), hash)
	if err != nil {
		return errors.Wrap(err, "update block smt")
	}
	return tx.SetBlockSMTRoot(root)
}

// RecordBlockState stores the value key holds after block number, for
// later GetHistoryState lookups.
func (tx *Transaction) RecordBlockState(number uint64, key, value types.Hash256) error {
	if err := tx.Insert(ColumnBlockStateRecord, blockStateRecordKey(number, key[:]), value[:]); err != nil {
		return err
	}
	return tx.Insert(ColumnBlockStateReverseRecord, blockStateReverseRecordKey(number, key[:]), []byte{})
}

// clearBlockStateRecords drops every state record of block number.
func (tx *Transaction) clearBlockStateRecords(number uint64) error {
	prefix := encodeBlockNumber(number)
	var keys [][]byte
	it := tx.Iterate(ColumnBlockStateReverseRecord, From(prefix, Forward))
	for it.Next() {
		if !utils.HasPrefix(it.Key(), prefix) {
			break
		}
		keys = append(keys, utils.CopyBytes(it.Key()[len(prefix):]))
	}
	err := it.Error()
	it.Release()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := tx.Delete(ColumnBlockStateRecord, blockStateRecordKey(number, key)); err != nil {
			return err
		}
		if err := tx.Delete(ColumnBlockStateReverseRecord, blockStateReverseRecordKey(number, key)); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Transaction) InsertScript(hash types.Hash256, script *types.Script) error {
	return putEntity(tx, ColumnScript, hash[:], script)
}

// InsertScriptPrefix indexes hash under its short address.
func (tx *Transaction) InsertScriptPrefix(shortAddress []byte, hash types.Hash256) error {
	return tx.Insert(ColumnScriptPrefix, shortAddress, hash[:])
}

func (tx *Transaction) InsertData(hash types.Hash256, data []byte) error {
	return tx.Insert(ColumnData, hash[:], data)
}
