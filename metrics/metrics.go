package metrics

type Metrics interface {
	// The number of the latest attached block
	TipBlockNumber(uint64)
	// The account count of the latest attached block
	AccountCount(uint64)
	// The bytes written by each transaction commit
	ChangeSize(uint64)
	// The number of column writes for each commit
	CommitNum(int)
	// The number of leaves written by each smt batch update
	SMTUpdateNum(int)
	// The number of snapshots currently held open
	OpenSnapshots(int64)
}
