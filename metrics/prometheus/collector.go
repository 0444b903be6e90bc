package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quake/godwoken/metrics"
)

var _ metrics.Metrics = (*Collector)(nil)

// NewCollector creates a collector registered with the default registerer.
func NewCollector() *Collector {
	return NewCollectorWithRegisterer(prometheus.DefaultRegisterer)
}

func NewCollectorWithRegisterer(reg prometheus.Registerer) *Collector {
	tipBlockNumber := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gw_store_tip_block_number",
		Help: "The number of the latest attached block",
	})
	accountCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gw_store_account_count",
		Help: "The account count of the latest attached block",
	})
	changeSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gw_store_change_size",
		Help: "The bytes written by each transaction commit",
	})
	commitNum := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gw_store_commit_nums",
		Help: "The number of column writes for each commit",
	})
	commits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gw_store_commits_total",
		Help: "The number of committed transactions",
	})
	smtUpdateNum := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gw_smt_update_nums",
		Help: "The number of leaves written by each smt batch update",
	})
	openSnapshots := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gw_store_open_snapshots",
		Help: "The number of snapshots currently held open",
	})
	reg.MustRegister(
		tipBlockNumber,
		accountCount,
		changeSize,
		commitNum,
		commits,
		smtUpdateNum,
		openSnapshots)

	return &Collector{
		tipBlockNumber: tipBlockNumber,
		accountCount:   accountCount,
		changeSize:     changeSize,
		commitNum:      commitNum,
		commits:        commits,
		smtUpdateNum:   smtUpdateNum,
		openSnapshots:  openSnapshots,
	}
}

type Collector struct {
	tipBlockNumber prometheus.Gauge
	accountCount   prometheus.Gauge
	changeSize     prometheus.Gauge
	commitNum      prometheus.Gauge
	commits        prometheus.Counter
	smtUpdateNum   prometheus.Gauge
	openSnapshots  prometheus.Gauge
}

func (c *Collector) TipBlockNumber(number uint64) {
	c.tipBlockNumber.Set(float64(number))
}

func (c *Collector) AccountCount(count uint64) {
	c.accountCount.Set(float64(count))
}

func (c *Collector) ChangeSize(size uint64) {
	c.changeSize.Set(float64(size))
}

func (c *Collector) CommitNum(n int) {
	c.commitNum.Set(float64(n))
	c.commits.Inc()
}

func (c *Collector) SMTUpdateNum(n int) {
	c.smtUpdateNum.Set(float64(n))
}

func (c *Collector) OpenSnapshots(n int64) {
	c.openSnapshots.Set(float64(n))
}
