package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type ScriptHashType uint8

const (
	ScriptHashTypeData ScriptHashType = 0
	ScriptHashTypeType ScriptHashType = 1
)

// ShortAddressLength is the length of the script hash prefix used as a
// compact account reference.
const ShortAddressLength = 20

// TypeIDCodeHash is the code hash of the built-in type id script.
var TypeIDCodeHash = common.HexToHash("00000000000000000000000000000000000000000000000000545950455f4944")

type Script struct {
	CodeHash Hash256        `json:"code_hash"`
	HashType ScriptHashType `json:"hash_type"`
	Args     hexutil.Bytes  `json:"args"`
}

func (s *Script) Hash() Hash256 {
	return rlpHash(s)
}

// ShortAddress returns the first 20 bytes of the script hash.
func (s *Script) ShortAddress() []byte {
	hash := s.Hash()
	return common.CopyBytes(hash[:ShortAddressLength])
}

func (s *Script) IsTypeID() bool {
	return s.HashType == ScriptHashTypeType && s.CodeHash == TypeIDCodeHash
}
