package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/quake/godwoken/smt"
)

// Hash256 is the 32-byte identifier used for keys, values, scripts, data and
// blocks. The zero hash stands for "absent".
type Hash256 = common.Hash

// Blake2bHash returns the blake2b-256 digest of the concatenated inputs.
func Blake2bHash(data ...[]byte) Hash256 {
	return smt.DefaultHasher().Hash256(data...)
}

// rlpHash hashes the RLP encoding of x. x is always one of the entities of
// this package, whose encoding cannot fail.
func rlpHash(x interface{}) Hash256 {
	enc, err := rlp.EncodeToBytes(x)
	if err != nil {
		panic(err)
	}
	return Blake2bHash(enc)
}
