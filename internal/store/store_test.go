package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridlight/internal/model"
	"github.com/sells-group/gridlight/internal/raster"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testParams() model.Params {
	return model.Params{
		Costs:     "costs.asc",
		Seeds:     "seeds.asc",
		OutputDir: "out",
		EdgeRule:  "mean",
		Diagonal:  "euclidean",
		TargetCRS: "EPSG:4326",
		Buffer:    0.01,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, testParams())
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RunStatusRunning, got.Status)
		assert.Equal(t, testParams(), got.Params)
		assert.Nil(t, got.Metrics)
		assert.Empty(t, got.Error)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetRun(context.Background(), "nonexistent-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpdateRunStatusNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.UpdateRunStatus(context.Background(), "nonexistent-id", model.RunStatusFailed)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, testParams())
		require.NoError(t, err)

		tp := 0.5
		err = s.CompleteRun(ctx, run.ID, &model.Metrics{Rows: 10, Cols: 20, Segments: 7, TruePositive: &tp})
		require.NoError(t, err)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Metrics)
		assert.Equal(t, 20, got.Metrics.Cols)
		assert.Equal(t, 7, got.Metrics.Segments)
		require.NotNil(t, got.Metrics.TruePositive)
		assert.InDelta(t, 0.5, *got.Metrics.TruePositive, 1e-12)
		assert.Nil(t, got.Metrics.FalseNegative)
	})

	t.Run("FailRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, testParams())
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, run.ID, "costdist: solve cancelled"))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "costdist: solve cancelled", got.Error)
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.CreateRun(ctx, testParams())
		require.NoError(t, err)
		run2, err := s.CreateRun(ctx, testParams())
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, run2.ID, "boom"))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, run2.ID, failed[0].ID)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		offset, err := s.ListRuns(ctx, RunFilter{Limit: 10, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, offset, 1)
	})

	t.Run("Network", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, testParams())
		require.NoError(t, err)

		_, _, err = s.GetNetwork(ctx, run.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		lines := orb.MultiLineString{{{0, 0}, {1, 1}}, {{1, 1}, {2, 1}}}
		require.NoError(t, s.SaveNetwork(ctx, run.ID, lines, raster.WebMercator))

		got, crs, err := s.GetNetwork(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, raster.WebMercator, crs)
		assert.Equal(t, lines, got)
	})

	t.Run("EmptyNetwork", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, testParams())
		require.NoError(t, err)
		require.NoError(t, s.SaveNetwork(ctx, run.ID, nil, raster.WGS84))

		got, crs, err := s.GetNetwork(ctx, run.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, raster.WGS84, crs)
	})

	t.Run("SaveNetworkNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.SaveNetwork(context.Background(), "missing", orb.MultiLineString{}, raster.WGS84)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Stages", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, testParams())
		require.NoError(t, err)

		solve, err := s.CreateStage(ctx, run.ID, "solve")
		require.NoError(t, err)
		assert.Equal(t, model.StageStatusRunning, solve.Result.Status)

		thin, err := s.CreateStage(ctx, run.ID, "thin")
		require.NoError(t, err)

		require.NoError(t, s.CompleteStage(ctx, solve.ID, &model.StageResult{
			Name:     "solve",
			Status:   model.StageStatusComplete,
			Duration: 120,
			Metadata: map[string]any{"finalized": 42},
		}))

		stages, err := s.ListStages(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, stages, 2)
		assert.Equal(t, solve.ID, stages[0].ID)
		assert.Equal(t, model.StageStatusComplete, stages[0].Result.Status)
		assert.Equal(t, int64(120), stages[0].Result.Duration)
		assert.InDelta(t, 42.0, stages[0].Result.Metadata["finalized"], 1e-12)
		assert.Equal(t, thin.ID, stages[1].ID)
		assert.Equal(t, "thin", stages[1].Result.Name)
		assert.Equal(t, model.StageStatusRunning, stages[1].Result.Status)
	})

	t.Run("CompleteStageNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.CompleteStage(context.Background(), "missing", &model.StageResult{Status: model.StageStatusFailed})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
