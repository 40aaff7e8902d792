package monitoring

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridlight/internal/model"
	"github.com/sells-group/gridlight/internal/store"
)

type stubLister struct {
	runs []model.Run
	err  error
}

func (s *stubLister) ListRuns(_ context.Context, _ store.RunFilter) ([]model.Run, error) {
	return s.runs, s.err
}

func ptr(v float64) *float64 { return &v }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCollector(runs []model.Run, err error) *Collector {
	c := NewCollector(&stubLister{runs: runs, err: err})
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestCollector_Collect(t *testing.T) {
	recent := fixedNow.Add(-time.Hour)
	runs := []model.Run{
		{Status: model.RunStatusComplete, CreatedAt: recent, Metrics: &model.Metrics{TruePositive: ptr(0.6), FalseNegative: ptr(0.2)}},
		{Status: model.RunStatusComplete, CreatedAt: recent, Metrics: &model.Metrics{TruePositive: ptr(1.0)}},
		{Status: model.RunStatusComplete, CreatedAt: recent, Metrics: &model.Metrics{Segments: 4}},
		{Status: model.RunStatusFailed, CreatedAt: recent},
		{Status: model.RunStatusRunning, CreatedAt: recent},
		{Status: model.RunStatusFailed, CreatedAt: fixedNow.Add(-48 * time.Hour)},
	}

	snap, err := newTestCollector(runs, nil).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 5, snap.Total)
	assert.Equal(t, 3, snap.Complete)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 1, snap.Running)
	assert.InDelta(t, 0.25, snap.FailRate, 1e-12)
	assert.Equal(t, 2, snap.ScoredRuns)
	require.NotNil(t, snap.AvgTruePositive)
	assert.InDelta(t, 0.8, *snap.AvgTruePositive, 1e-12)
	require.NotNil(t, snap.AvgFalseNegative)
	assert.InDelta(t, 0.2, *snap.AvgFalseNegative, 1e-12)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, fixedNow, snap.CollectedAt)
}

func TestCollector_CollectWholeLedger(t *testing.T) {
	runs := []model.Run{
		{Status: model.RunStatusFailed, CreatedAt: fixedNow.Add(-1000 * time.Hour)},
		{Status: model.RunStatusComplete, CreatedAt: fixedNow},
	}

	snap, err := newTestCollector(runs, nil).Collect(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Total)
	assert.InDelta(t, 0.5, snap.FailRate, 1e-12)
	assert.Nil(t, snap.AvgTruePositive)
	assert.Nil(t, snap.AvgFalseNegative)
}

func TestCollector_CollectEmpty(t *testing.T) {
	snap, err := newTestCollector(nil, nil).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.FailRate)
}

func TestCollector_CollectError(t *testing.T) {
	_, err := newTestCollector(nil, errors.New("db gone")).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}

func TestCollector_AgainstSQLite(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	run, err := st.CreateRun(ctx, model.Params{Costs: "c.asc", Seeds: "s.asc"})
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, &model.Metrics{TruePositive: ptr(0.5)}))
	_, err = st.CreateRun(ctx, model.Params{Costs: "c.asc", Seeds: "s.asc"})
	require.NoError(t, err)

	snap, err := NewCollector(st).Collect(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 1, snap.Complete)
	assert.Equal(t, 1, snap.Running)
	require.NotNil(t, snap.AvgTruePositive)
	assert.InDelta(t, 0.5, *snap.AvgTruePositive, 1e-12)
}
