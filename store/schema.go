package store

import "encoding/binary"

// Col is a column: a keyspace of its own inside the flat database, realised
// as a one byte key prefix.
type Col byte

const (
	ColumnMeta Col = iota
	ColumnIndex
	ColumnBlock
	ColumnBlockGlobalState
	ColumnTransaction
	ColumnTransactionInfo
	ColumnTransactionReceipt
	ColumnMemPoolTransactionReceipt
	ColumnL2BlockCommittedInfo
	ColumnScript
	ColumnScriptPrefix
	ColumnData
	ColumnAccountSMTBranch
	ColumnAccountSMTLeaf
	ColumnBlockSMTBranch
	ColumnBlockSMTLeaf
	ColumnRevertedBlockSMTBranch
	ColumnRevertedBlockSMTLeaf
	ColumnBlockStateRecord
	ColumnBlockStateReverseRecord

	columnCount
)

var columnNames = [columnCount]string{
	"meta",
	"index",
	"block",
	"block_global_state",
	"transaction",
	"transaction_info",
	"transaction_receipt",
	"mem_pool_transaction_receipt",
	"l2block_committed_info",
	"script",
	"script_prefix",
	"data",
	"account_smt_branch",
	"account_smt_leaf",
	"block_smt_branch",
	"block_smt_leaf",
	"reverted_block_smt_branch",
	"reverted_block_smt_leaf",
	"block_state_record",
	"block_state_reverse_record",
}

func (c Col) String() string {
	if c < columnCount {
		return columnNames[c]
	}
	return "unknown"
}

// Keys of the single value entries in ColumnMeta.
var (
	metaChainIDKey              = []byte("CHAIN_ID")
	metaTipBlockHashKey         = []byte("TIP_BLOCK_HASH")
	metaBlockSMTRootKey         = []byte("BLOCK_SMT_ROOT")
	metaRevertedBlockSMTRootKey = []byte("REVERTED_BLOCK_SMT_ROOT")
	metaAccountSMTRootKey       = []byte("ACCOUNT_SMT_ROOT")
	metaAccountSMTCountKey      = []byte("ACCOUNT_SMT_COUNT")
)

func columnKey(col Col, key []byte) []byte {
	buf := make([]byte, 1+len(key))
	buf[0] = byte(col)
	copy(buf[1:], key)
	return buf
}

// Block numbers are big-endian in keys so that they sort numerically.
func encodeBlockNumber(number uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, number)
	return buf
}

func decodeBlockNumber(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}

// blockStateReverseRecordKey is block number || state key, listing the
// keys a block recorded.
func blockStateReverseRecordKey(number uint64, key []byte) []byte {
	buf := make([]byte, 8+len(key))
	binary.BigEndian.PutUint64(buf, number)
	copy(buf[8:], key)
	return buf
}

// blockStateRecordKey is state key || block number.
func blockStateRecordKey(number uint64, key []byte) []byte {
	buf := make([]byte, len(key)+8)
	copy(buf, key)
	binary.BigEndian.PutUint64(buf[len(key):], number)
	return buf
}
