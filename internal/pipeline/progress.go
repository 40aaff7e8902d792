package pipeline

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// progressLogger returns a solver progress callback that logs at most once
// per interval, plus the first call.
func progressLogger(log *zap.Logger, interval time.Duration) func(finalized, total int) {
	s := &rate.Sometimes{First: 1, Interval: interval}
	return func(finalized, total int) {
		s.Do(func() {
			pct := 0.0
			if total > 0 {
				pct = 100 * float64(finalized) / float64(total)
			}
			log.Info("pipeline: solve progress",
				zap.Int("finalized", finalized),
				zap.Int("total", total),
				zap.Float64("percent", pct),
			)
		})
	}
}
