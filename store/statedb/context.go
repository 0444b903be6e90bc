package statedb

import "fmt"

type contextKind uint8

const (
	tipContext contextKind = iota
	attachBlockContext
	historyContext
)

// StateContext selects where a StateTree reads and writes raw state.
type StateContext struct {
	kind   contextKind
	number uint64
}

// Tip reads and writes the live account tree.
func Tip() StateContext {
	return StateContext{kind: tipContext}
}

// AttachBlock behaves like Tip and additionally records every write as the
// state of block number, so History can serve it later.
func AttachBlock(number uint64) StateContext {
	return StateContext{kind: attachBlockContext, number: number}
}

// History reads the state as of block number. Writes are rejected.
func History(number uint64) StateContext {
	return StateContext{kind: historyContext, number: number}
}

func (c StateContext) IsHistory() bool {
	return c.kind == historyContext
}

// BlockNumber returns the block of an AttachBlock or History context.
func (c StateContext) BlockNumber() (uint64, bool) {
	return c.number, c.kind != tipContext
}

func (c StateContext) String() string {
	switch c.kind {
	case attachBlockContext:
		return fmt.Sprintf("AttachBlock(%d)", c.number)
	case historyContext:
		return fmt.Sprintf("History(%d)", c.number)
	default:
		return "Tip"
	}
}
