package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TxsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circle_txs_total",
			Help: "Total number of executed txs by type and result code",
		},
		[]string{"type", "code"},
	)

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circle_events_total",
			Help: "Total number of emitted events by type",
		},
		[]string{"type"},
	)

	BlockHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "circle_block_height",
			Help: "Height of the last finalized block",
		},
	)

	MemberCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "circle_members",
			Help: "Number of ring positions ever assigned",
		},
	)

	RewardPoolBalance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "circle_reward_pool_balance",
			Help: "Unallocated balance of the reward pool",
		},
	)
)
