package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gridlight/internal/model"
	"github.com/sells-group/gridlight/internal/store"
)

// maxSnapshotRuns bounds how many ledger rows one snapshot reads.
const maxSnapshotRuns = 10000

// Snapshot holds a point-in-time summary of the run ledger.
type Snapshot struct {
	Total    int     `json:"total"`
	Complete int     `json:"complete"`
	Failed   int     `json:"failed"`
	Running  int     `json:"running"`
	FailRate float64 `json:"fail_rate"`

	// Mean accuracy over runs where the rate was defined. Nil when no run
	// in the window had one.
	AvgTruePositive  *float64 `json:"avg_true_positive,omitempty"`
	AvgFalseNegative *float64 `json:"avg_false_negative,omitempty"`
	ScoredRuns       int      `json:"scored_runs"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the slice of the store the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector summarizes the run ledger.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new ledger collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot over runs created within the lookback window.
// A lookback of zero or less covers the whole ledger.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: maxSnapshotRuns})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var cutoff time.Time
	if lookbackHours > 0 {
		cutoff = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}

	var sumTP, sumFN float64
	var nTP, nFN int
	for _, r := range runs {
		if !cutoff.IsZero() && r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.Total++
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
		case model.RunStatusFailed:
			snap.Failed++
		case model.RunStatusRunning:
			snap.Running++
		}
		if r.Metrics == nil {
			continue
		}
		if r.Metrics.TruePositive != nil {
			sumTP += *r.Metrics.TruePositive
			nTP++
		}
		if r.Metrics.FalseNegative != nil {
			sumFN += *r.Metrics.FalseNegative
			nFN++
		}
		if r.Metrics.TruePositive != nil || r.Metrics.FalseNegative != nil {
			snap.ScoredRuns++
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	if nTP > 0 {
		avg := sumTP / float64(nTP)
		snap.AvgTruePositive = &avg
	}
	if nFN > 0 {
		avg := sumFN / float64(nFN)
		snap.AvgFalseNegative = &avg
	}

	return snap, nil
}
