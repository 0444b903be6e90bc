package generator

import (
	"github.com/quake/godwoken/types"
)

// BuildL2SUDTScript builds the layer 2 simple UDT script that mirrors the
// layer 1 token identified by l1SUDTScriptHash.
func BuildL2SUDTScript(rollupTypeHash, l2SUDTValidatorTypeHash, l1SUDTScriptHash types.Hash256) *types.Script {
	args := make([]byte, 0, 64)
	args = append(args, rollupTypeHash[:]...)
	args = append(args, l1SUDTScriptHash[:]...)
	return &types.Script{
		CodeHash: l2SUDTValidatorTypeHash,
		HashType: types.ScriptHashTypeType,
		Args:     args,
	}
}
