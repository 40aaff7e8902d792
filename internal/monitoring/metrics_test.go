package monitoring

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridlight/internal/model"
)

func TestMetrics_ObserveStage(t *testing.T) {
	m := NewMetrics()

	m.ObserveStage("solve", model.StageStatusComplete, 250*time.Millisecond)
	m.ObserveStage("solve", model.StageStatusComplete, 50*time.Millisecond)
	m.ObserveStage("score", model.StageStatusSkipped, 0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.stagesTotal.WithLabelValues("solve", "complete")), 1e-12)
	assert.InDelta(t, 1, testutil.ToFloat64(m.stagesTotal.WithLabelValues("score", "skipped")), 1e-12)
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))
}

func TestMetrics_ObserveRun(t *testing.T) {
	m := NewMetrics()

	tp := 0.8
	m.ObserveRun(model.RunStatusComplete, &model.Metrics{
		Reached:       90,
		PeakFrontier:  12,
		ExpectedBytes: 4096,
		GuessCells:    30,
		SkeletonCells: 11,
		Segments:      10,
		TruePositive:  &tp,
	})

	assert.InDelta(t, 1, testutil.ToFloat64(m.runsTotal.WithLabelValues("complete")), 1e-12)
	assert.InDelta(t, 90, testutil.ToFloat64(m.cellsReached), 1e-12)
	assert.InDelta(t, 12, testutil.ToFloat64(m.peakFrontier), 1e-12)
	assert.InDelta(t, 4096, testutil.ToFloat64(m.expectedBytes), 1e-12)
	assert.InDelta(t, 30, testutil.ToFloat64(m.guessCells), 1e-12)
	assert.InDelta(t, 11, testutil.ToFloat64(m.skeletonCells), 1e-12)
	assert.InDelta(t, 10, testutil.ToFloat64(m.segments), 1e-12)
	assert.InDelta(t, 0.8, testutil.ToFloat64(m.accuracy.WithLabelValues("true_positive")), 1e-12)
	// Undefined rate never creates a series.
	assert.Equal(t, 1, testutil.CollectAndCount(m.accuracy))
}

func TestMetrics_ObserveRunFailed(t *testing.T) {
	m := NewMetrics()

	m.ObserveRun(model.RunStatusFailed, nil)

	assert.InDelta(t, 1, testutil.ToFloat64(m.runsTotal.WithLabelValues("failed")), 1e-12)
	assert.InDelta(t, 0, testutil.ToFloat64(m.segments), 1e-12)
}

func TestMetrics_IsolatedRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.ObserveRun(model.RunStatusComplete, nil)

	assert.InDelta(t, 0, testutil.ToFloat64(b.runsTotal.WithLabelValues("complete")), 1e-12)
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveStage("thin", model.StageStatusComplete, time.Second)
	m.ObserveRun(model.RunStatusComplete, &model.Metrics{Segments: 3})

	path := filepath.Join(t.TempDir(), "gridlight.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `gridlight_runs_total{status="complete"} 1`)
	assert.Contains(t, text, `gridlight_stages_total{stage="thin",status="complete"} 1`)
	assert.Contains(t, text, "gridlight_network_segments 3")
	assert.Contains(t, text, "# TYPE gridlight_stage_duration_seconds histogram")
}

func TestMetrics_WriteTextfileError(t *testing.T) {
	m := NewMetrics()

	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "gridlight.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: write textfile")
}
