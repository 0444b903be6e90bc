package state

import (
	"github.com/quake/godwoken/types"
)

// State is the raw key value view of the account SMT plus the account count.
type State interface {
	GetRaw(key types.Hash256) (types.Hash256, error)
	UpdateRaw(key, value types.Hash256) error
	UpdateMultiRaw(pairs []types.KV) error
	GetAccountCount() (uint32, error)
	SetAccountCount(count uint32) error
	CalculateRoot() (types.Hash256, error)
}

// CodeStore holds the scripts and data referenced from the state.
type CodeStore interface {
	InsertScript(hash types.Hash256, script *types.Script) error
	GetScript(hash types.Hash256) (*types.Script, error)
	GetScriptHashByShortAddress(shortAddress []byte) (types.Hash256, error)
	InsertData(hash types.Hash256, data []byte) error
	GetData(hash types.Hash256) ([]byte, error)
}

type StateWithCode interface {
	State
	CodeStore
}
