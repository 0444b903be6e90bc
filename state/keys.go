package state

import (
	"encoding/binary"

	"github.com/quake/godwoken/types"
)

const (
	ReservedAccountID uint32 = 0
	CKBSUDTAccountID  uint32 = 1
)

// CKBSUDTScriptArgs are the l1 script hash args of the native CKB simple UDT.
var CKBSUDTScriptArgs = types.Hash256{}

// Account field types, stored at byte 4 of the field key.
const (
	FieldTypeKV             byte = 0
	FieldTypeNonce          byte = 1
	FieldTypeScriptHash     byte = 2
	FieldTypeScriptHashToID byte = 3
	FieldTypeDataHashPrefix byte = 4
)

// BuildAccountFieldKey is id as little-endian u32 followed by the field type.
func BuildAccountFieldKey(id uint32, fieldType byte) types.Hash256 {
	var key types.Hash256
	binary.LittleEndian.PutUint32(key[:4], id)
	key[4] = fieldType
	return key
}

// BuildAccountKey derives the SMT key of a contract storage slot.
func BuildAccountKey(id uint32, key []byte) types.Hash256 {
	var prefix [5]byte
	binary.LittleEndian.PutUint32(prefix[:4], id)
	prefix[4] = FieldTypeKV
	return types.Blake2bHash(prefix[:], key)
}

func BuildScriptHashToAccountIDKey(scriptHash types.Hash256) types.Hash256 {
	var prefix [5]byte
	prefix[4] = FieldTypeScriptHashToID
	return types.Blake2bHash(prefix[:], scriptHash[:])
}

func BuildDataHashKey(dataHash types.Hash256) types.Hash256 {
	var prefix [5]byte
	prefix[4] = FieldTypeDataHashPrefix
	return types.Blake2bHash(prefix[:], dataHash[:])
}

// BuildSUDTKey is the storage key of a balance inside a simple UDT account.
func BuildSUDTKey(sudtID uint32, shortAddress []byte) types.Hash256 {
	return BuildAccountKey(sudtID, shortAddress)
}

// encodeAccountID stores id as a little-endian u32 with an existence flag at
// byte 4, so that id 0 is distinguishable from absence.
func encodeAccountID(id uint32) types.Hash256 {
	var value types.Hash256
	binary.LittleEndian.PutUint32(value[:4], id)
	value[4] = 1
	return value
}

func decodeAccountID(value types.Hash256) (uint32, bool) {
	if value[4] != 1 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(value[:4]), true
}

func encodeUint32(v uint32) types.Hash256 {
	var value types.Hash256
	binary.LittleEndian.PutUint32(value[:4], v)
	return value
}
