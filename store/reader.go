package store

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/quake/godwoken/database"
	"github.com/quake/godwoken/types"
	"github.com/quake/godwoken/utils"
)

var ErrInvalidEntry = errors.New("invalid store entry")

func getEntity[T any](kv KVStore, col Col, key []byte) (*T, error) {
	data, err := kv.Get(col, key)
	if err != nil {
		return nil, err
	}
	entity := new(T)
	if err := rlp.DecodeBytes(data, entity); err != nil {
		return nil, errors.Wrapf(ErrInvalidEntry, "decode %s: %v", col, err)
	}
	return entity, nil
}

func putEntity(kv KVStore, col Col, key []byte, entity interface{}) error {
	data, err := rlp.EncodeToBytes(entity)
	if err != nil {
		return errors.Wrapf(err, "encode %s", col)
	}
	return kv.Insert(col, key, data)
}

func getHash(kv KVStore, col Col, key []byte) (types.Hash256, error) {
	data, err := kv.Get(col, key)
	if err != nil {
		return types.Hash256{}, err
	}
	if len(data) != len(types.Hash256{}) {
		return types.Hash256{}, errors.Wrapf(ErrInvalidEntry, "%s hash of %d bytes", col, len(data))
	}
	var hash types.Hash256
	copy(hash[:], data)
	return hash, nil
}

// getHashOrZero reads a hash that is absent until first written.
func getHashOrZero(kv KVStore, col Col, key []byte) (types.Hash256, error) {
	hash, err := getHash(kv, col, key)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return types.Hash256{}, nil
	}
	return hash, err
}

// reader implements the lookups shared by transactions and snapshots.
// Absent entries are reported as database.ErrDatabaseNotFound.
type reader struct {
	kv KVStore
}

func (r reader) GetChainID() (types.Hash256, error) {
	return getHash(r.kv, ColumnMeta, metaChainIDKey)
}

func (r reader) HasGenesis() (bool, error) {
	_, err := r.GetBlockHash(0)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r reader) GetTipBlockHash() (types.Hash256, error) {
	return getHash(r.kv, ColumnMeta, metaTipBlockHashKey)
}

func (r reader) GetTipBlock() (*types.L2Block, error) {
	hash, err := r.GetTipBlockHash()
	if err != nil {
		return nil, err
	}
	return r.GetBlock(hash)
}

func (r reader) GetBlockSMTRoot() (types.Hash256, error) {
	return getHashOrZero(r.kv, ColumnMeta, metaBlockSMTRootKey)
}

func (r reader) GetRevertedBlockSMTRoot() (types.Hash256, error) {
	return getHashOrZero(r.kv, ColumnMeta, metaRevertedBlockSMTRootKey)
}

// GetAccountMerkleState returns the persisted account SMT root and count,
// the empty state before the first write.
func (r reader) GetAccountMerkleState() (types.AccountMerkleState, error) {
	root, err := getHashOrZero(r.kv, ColumnMeta, metaAccountSMTRootKey)
	if err != nil {
		return types.AccountMerkleState{}, err
	}
	data, err := r.kv.Get(ColumnMeta, metaAccountSMTCountKey)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return types.AccountMerkleState{MerkleRoot: root}, nil
	}
	if err != nil {
		return types.AccountMerkleState{}, err
	}
	if len(data) != 4 {
		return types.AccountMerkleState{}, errors.Wrapf(ErrInvalidEntry, "account count of %d bytes", len(data))
	}
	return types.AccountMerkleState{MerkleRoot: root, Count: binary.LittleEndian.Uint32(data)}, nil
}

func (r reader) GetBlockHash(number uint64) (types.Hash256, error) {
	return getHash(r.kv, ColumnIndex, encodeBlockNumber(number))
}

func (r reader) GetBlockNumber(hash types.Hash256) (uint64, error) {
	data, err := r.kv.Get(ColumnIndex, hash[:])
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, errors.Wrapf(ErrInvalidEntry, "block number of %d bytes", len(data))
	}
	return decodeBlockNumber(data), nil
}

func (r reader) GetBlock(hash types.Hash256) (*types.L2Block, error) {
	return getEntity[types.L2Block](r.kv, ColumnBlock, hash[:])
}

func (r reader) GetBlockGlobalState(hash types.Hash256) (*types.GlobalState, error) {
	return getEntity[types.GlobalState](r.kv, ColumnBlockGlobalState, hash[:])
}

func (r reader) GetBlockCommittedInfo(hash types.Hash256) (*types.L2BlockCommittedInfo, error) {
	return getEntity[types.L2BlockCommittedInfo](r.kv, ColumnL2BlockCommittedInfo, hash[:])
}

func (r reader) GetTransaction(txHash types.Hash256) (*types.L2Transaction, error) {
	info, err := r.GetTransactionInfo(txHash)
	if err != nil {
		return nil, err
	}
	return getEntity[types.L2Transaction](r.kv, ColumnTransaction, info.Key[:])
}

func (r reader) GetTransactionInfo(txHash types.Hash256) (*types.TransactionInfo, error) {
	return getEntity[types.TransactionInfo](r.kv, ColumnTransactionInfo, txHash[:])
}

func (r reader) GetTransactionReceipt(txHash types.Hash256) (*types.TxReceipt, error) {
	info, err := r.GetTransactionInfo(txHash)
	if err != nil {
		return nil, err
	}
	return r.GetTransactionReceiptByKey(info.Key)
}

func (r reader) GetTransactionReceiptByKey(key types.TransactionKey) (*types.TxReceipt, error) {
	return getEntity[types.TxReceipt](r.kv, ColumnTransactionReceipt, key[:])
}

func (r reader) GetMemPoolTransactionReceipt(txHash types.Hash256) (*types.TxReceipt, error) {
	return getEntity[types.TxReceipt](r.kv, ColumnMemPoolTransactionReceipt, txHash[:])
}

func (r reader) GetScript(hash types.Hash256) (*types.Script, error) {
	return getEntity[types.Script](r.kv, ColumnScript, hash[:])
}

func (r reader) GetScriptHashByShortAddress(shortAddress []byte) (types.Hash256, error) {
	return getHash(r.kv, ColumnScriptPrefix, shortAddress)
}

func (r reader) GetData(hash types.Hash256) ([]byte, error) {
	return r.kv.Get(ColumnData, hash[:])
}

// GetHistoryState returns the value key had once block number was attached:
// the latest record at or below that block, zero if there is none.
func (r reader) GetHistoryState(number uint64, key types.Hash256) (types.Hash256, error) {
	it := r.kv.Iterate(ColumnBlockStateRecord, From(blockStateRecordKey(number, key[:]), Reverse))
	defer it.Release()
	if !it.Next() {
		return types.Hash256{}, it.Error()
	}
	recordKey := it.Key()
	if len(recordKey) != len(key)+8 || !utils.HasPrefix(recordKey, key[:]) {
		return types.Hash256{}, nil
	}
	var value types.Hash256
	copy(value[:], it.Value())
	return value, nil
}
