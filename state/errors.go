package state

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrAccumulator = errors.New("accumulator failure")

	ErrAmountOverflow = errors.New("amount overflow")

	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrMerkleProof = errors.New("merkle proof error")

	ErrMissingKey = errors.New("missing key")

	ErrStore = errors.New("store error")

	ErrInvalidShortAddress = errors.New("invalid short address")

	ErrUnsupportedFeeSUDT = errors.New("paying fee with this simple UDT is not supported")

	ErrReadOnlyContext = errors.New("state is read only in history context")
)

// AccumulatorError carries an error raised by the sparse merkle tree.
type AccumulatorError struct {
	Err error
}

func (e *AccumulatorError) Error() string {
	return fmt.Sprintf("%s: %v", ErrAccumulator, e.Err)
}

func (e *AccumulatorError) Unwrap() error { return e.Err }

func (e *AccumulatorError) Is(target error) bool { return target == ErrAccumulator }

// StoreError carries an error raised by the underlying key value store.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", ErrStore, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// WrapAccumulator returns nil for a nil err.
func WrapAccumulator(err error) error {
	if err == nil {
		return nil
	}
	return &AccumulatorError{Err: err}
}

// WrapStore returns nil for a nil err.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Err: err}
}
