package types

import (
	"encoding/binary"
	"math/big"
)

type SubmitTransactions struct {
	TxWitnessRoot       Hash256
	TxCount             uint32
	PrevStateCheckpoint Hash256
}

type SubmitWithdrawals struct {
	WithdrawalWitnessRoot Hash256
	WithdrawalCount       uint32
}

type RawL2Block struct {
	Number                 uint64
	BlockProducerID        uint32
	ParentBlockHash        Hash256
	StakeCellOwnerLockHash Hash256
	Timestamp              uint64
	PrevAccount            AccountMerkleState
	PostAccount            AccountMerkleState
	SubmitTransactions     SubmitTransactions
	SubmitWithdrawals      SubmitWithdrawals
	StateCheckpointList    []Hash256
}

func (b *RawL2Block) Hash() Hash256 {
	return rlpHash(b)
}

// BlockSMTKey is the key of block number in the block SMT: the number as a
// little-endian u64 in the first 8 bytes.
func BlockSMTKey(number uint64) Hash256 {
	var key Hash256
	binary.LittleEndian.PutUint64(key[:8], number)
	return key
}

type KV struct {
	Key   Hash256
	Value Hash256
}

type L2Block struct {
	Raw          RawL2Block
	Signature    []byte
	KVState      []KV
	KVStateProof []byte
	Transactions []L2Transaction
	Withdrawals  []WithdrawalRequest
	BlockProof   []byte
}

func (b *L2Block) Hash() Hash256 {
	return b.Raw.Hash()
}

func (b *L2Block) Number() uint64 {
	return b.Raw.Number
}

type RawL2Transaction struct {
	FromID uint32
	ToID   uint32
	Nonce  uint32
	Args   []byte
}

type L2Transaction struct {
	Raw       RawL2Transaction
	Signature []byte
}

func (tx *L2Transaction) Hash() Hash256 {
	return rlpHash(&tx.Raw)
}

type RawWithdrawalRequest struct {
	Nonce             uint32
	Capacity          uint64
	Amount            *big.Int
	SUDTScriptHash    Hash256
	AccountScriptHash Hash256
	OwnerLockHash     Hash256
}

type WithdrawalRequest struct {
	Raw       RawWithdrawalRequest
	Signature []byte
}

func (w *WithdrawalRequest) Hash() Hash256 {
	return rlpHash(&w.Raw)
}

// L2BlockCommittedInfo locates the base chain transaction that committed a block.
type L2BlockCommittedInfo struct {
	Number          uint64
	BlockHash       Hash256
	TransactionHash Hash256
}
