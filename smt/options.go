package smt

import (
	"github.com/panjf2000/ants/v2"

	"github.com/quake/godwoken/metrics"
)

// Option is a function that configures SMT.
type Option func(*SparseMerkleTree)

func WithHasher(hasher *HasherPool) Option {
	return func(smt *SparseMerkleTree) {
		smt.hasher = hasher
	}
}

// WithPrefetchPool lets UpdateAll warm the branch reads of a large batch on
// the given pool before applying it. Useful with a CachedStore.
func WithPrefetchPool(pool *ants.Pool) Option {
	return func(smt *SparseMerkleTree) {
		if pool != nil {
			smt.pool = pool
		}
	}
}

func EnableMetrics(metrics metrics.Metrics) Option {
	return func(smt *SparseMerkleTree) {
		smt.metrics = metrics
	}
}
