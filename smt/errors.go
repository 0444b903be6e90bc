// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package smt

import (
	"github.com/pkg/errors"
)

var (
	ErrEmptyKeys = errors.New("empty keys")

	ErrNonSortedKeys = errors.New("keys are not sorted")

	ErrDuplicatedKeys = errors.New("keys are duplicated")

	ErrIncorrectNumberOfLeaves = errors.New("number of leaves does not match the proof")

	ErrUnknownLeaf = errors.New("leaf key is not covered by the proof")

	ErrCorruptedProof = errors.New("corrupted proof")

	ErrCorruptedStack = errors.New("computed root does not match the tree root")

	ErrInvalidBranchEncoding = errors.New("invalid branch node encoding")
)
