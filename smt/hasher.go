// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package smt

import (
	"hash"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
)

func NewHasher(hasher hash.Hash) *Hasher {
	return &Hasher{
		hasher: hasher,
	}
}

type Hasher struct {
	hasher hash.Hash
}

func (h *Hasher) Hash(inputs ...[]byte) []byte {
	h.hasher.Reset()
	for i := range inputs {
		h.hasher.Write(inputs[i])
	}
	return h.hasher.Sum(nil)
}

// HasherPool hands out Hashers so that concurrent callers never share state.
type HasherPool struct {
	pool sync.Pool
}

func NewHasherPool(init func() hash.Hash) *HasherPool {
	return &HasherPool{
		pool: sync.Pool{
			New: func() interface{} {
				return NewHasher(init())
			},
		},
	}
}

// NewBlake2b returns an unkeyed blake2b-256 digest.
func NewBlake2b() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only reachable with an oversized key
		panic(err)
	}
	return h
}

var defaultHasher = NewHasherPool(NewBlake2b)

// DefaultHasher returns the process-wide blake2b hasher pool.
func DefaultHasher() *HasherPool {
	return defaultHasher
}

func (p *HasherPool) Hash(inputs ...[]byte) []byte {
	h := p.pool.Get().(*Hasher)
	defer p.pool.Put(h)
	return h.Hash(inputs...)
}

// Hash256 hashes the inputs into a 32-byte digest. Digests of a different
// size are left-padded or truncated by common.BytesToHash.
func (p *HasherPool) Hash256(inputs ...[]byte) common.Hash {
	return common.BytesToHash(p.Hash(inputs...))
}
