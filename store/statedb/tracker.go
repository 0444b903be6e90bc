package statedb

import (
	"sync"

	"github.com/quake/godwoken/smt"
	"github.com/quake/godwoken/types"
)

// StateTracker collects the raw keys a state transition touched, read or
// written. It records nothing until enabled.
type StateTracker struct {
	lock    sync.Mutex
	touched map[types.Hash256]struct{}
}

func NewStateTracker() *StateTracker {
	return &StateTracker{}
}

// Enable starts recording. Keys recorded so far are kept.
func (t *StateTracker) Enable() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.touched == nil {
		t.touched = make(map[types.Hash256]struct{})
	}
}

// Disable stops recording and drops the recorded keys.
func (t *StateTracker) Disable() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.touched = nil
}

func (t *StateTracker) IsEnabled() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.touched != nil
}

func (t *StateTracker) Touch(keys ...types.Hash256) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.touched == nil {
		return
	}
	for _, key := range keys {
		t.touched[key] = struct{}{}
	}
}

// TouchedKeys returns the recorded keys sorted for smt.MerkleProof.
func (t *StateTracker) TouchedKeys() []types.Hash256 {
	t.lock.Lock()
	keys := make([]types.Hash256, 0, len(t.touched))
	for key := range t.touched {
		keys = append(keys, key)
	}
	t.lock.Unlock()
	smt.SortKeys(keys)
	return keys
}

// Reset forgets the recorded keys but keeps recording.
func (t *StateTracker) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.touched != nil {
		t.touched = make(map[types.Hash256]struct{})
	}
}
