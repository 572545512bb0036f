package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProposalsProcessed counts proposals that completed the pipeline and
	// reached the store, deduplicated inserts included.
	ProposalsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proposals_processed_total",
		Help: "Proposals that completed processing and were persisted.",
	})

	// ProposalsFailed counts pipeline failures by the stage that produced them.
	ProposalsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proposals_failed_total",
		Help: "Proposal processing failures by pipeline stage.",
	}, []string{"stage"})

	// StageDuration observes per-stage latency in seconds.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proposal_stage_duration_seconds",
		Help:    "Duration of each pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
)
