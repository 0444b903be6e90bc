// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package smt

import "github.com/ethereum/go-ethereum/common"

type (
	Pair struct {
		Key   common.Hash
		Value common.Hash
	}

	// Store persists the non-empty branch nodes and leaves of a tree.
	// Absent branches read as nil, absent leaves as the zero hash.
	Store interface {
		GetBranch(key BranchKey) (*BranchNode, error)
		GetLeaf(key common.Hash) (common.Hash, error)
		InsertBranch(key BranchKey, node BranchNode) error
		InsertLeaf(key common.Hash, value common.Hash) error
		RemoveBranch(key BranchKey) error
		RemoveLeaf(key common.Hash) error
	}
)
