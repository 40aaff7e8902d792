package store

import (
	"context"
	"errors"

	"github.com/paulmach/orb"

	"github.com/sells-group/gridlight/internal/model"
	"github.com/sells-group/gridlight/internal/raster"
)

// ErrNotFound indicates a run or stage id with no row.
var ErrNotFound = errors.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the run ledger.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, params model.Params) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, metrics *model.Metrics) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Network geometry, stored as EWKB.
	SaveNetwork(ctx context.Context, runID string, lines orb.MultiLineString, crs raster.CRS) error
	GetNetwork(ctx context.Context, runID string) (orb.MultiLineString, raster.CRS, error)

	// Stages
	CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error)
	CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error
	ListStages(ctx context.Context, runID string) ([]model.RunStage, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
