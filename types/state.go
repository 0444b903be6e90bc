package types

type Status uint8

const (
	StatusRunning Status = 0
	StatusHalting Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusHalting:
		return "halting"
	default:
		return "unknown"
	}
}

type AccountMerkleState struct {
	MerkleRoot Hash256
	Count      uint32
}

type BlockMerkleState struct {
	MerkleRoot Hash256
	Count      uint64
}

// GlobalState is the rollup header committed on the base chain after each
// block. It is replaced as a whole, never updated in place.
type GlobalState struct {
	Account                  AccountMerkleState
	Block                    BlockMerkleState
	RevertedBlockRoot        Hash256
	TipBlockHash             Hash256
	LastFinalizedBlockNumber uint64
	Status                   Status
	RollupConfigHash         Hash256
	Version                  uint8
}

func (g *GlobalState) Hash() Hash256 {
	return rlpHash(g)
}
