package types

import "encoding/binary"

type LogItem struct {
	AccountID   uint32
	ServiceFlag uint8
	Data        []byte
}

type TxReceipt struct {
	TxWitnessHash  Hash256
	PostState      AccountMerkleState
	ReadDataHashes []Hash256
	Logs           []LogItem
}

const TransactionKeyLength = 36

// TransactionKey is the block hash followed by the little-endian u32 index of
// the transaction inside the block.
type TransactionKey [TransactionKeyLength]byte

func NewTransactionKey(blockHash Hash256, index uint32) TransactionKey {
	var key TransactionKey
	copy(key[:32], blockHash[:])
	binary.LittleEndian.PutUint32(key[32:], index)
	return key
}

func (k TransactionKey) BlockHash() Hash256 {
	var hash Hash256
	copy(hash[:], k[:32])
	return hash
}

func (k TransactionKey) Index() uint32 {
	return binary.LittleEndian.Uint32(k[32:])
}

type TransactionInfo struct {
	BlockNumber uint64
	Key         TransactionKey
}
