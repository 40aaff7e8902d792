package model

import "time"

// RunStatus represents the current state of an inference run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// StageStatus represents the current state of a pipeline stage.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// Params records the inputs and settings of a run.
type Params struct {
	Costs      string `json:"costs" yaml:"costs"`
	Seeds      string `json:"seeds" yaml:"seeds"`
	Targets    string `json:"targets,omitempty" yaml:"targets,omitempty"`
	AOI        string `json:"aoi,omitempty" yaml:"aoi,omitempty"`
	Truth      string `json:"truth,omitempty" yaml:"truth,omitempty"`
	PowerLines string `json:"power_lines,omitempty" yaml:"power_lines,omitempty"`
	OutputDir  string `json:"output_dir" yaml:"output_dir"`

	EdgeRule     string  `json:"edge_rule" yaml:"edge_rule"`
	Diagonal     string  `json:"diagonal" yaml:"diagonal"`
	Cutoff       float64 `json:"cutoff" yaml:"cutoff"`
	TargetCRS    string  `json:"target_crs" yaml:"target_crs"`
	Buffer       float64 `json:"buffer" yaml:"buffer"`
	SearchRadius int     `json:"search_radius" yaml:"search_radius"`
}

// Metrics summarizes the outcome of a run. Rates are nil when undefined or
// not computed.
type Metrics struct {
	Rows          int      `json:"rows" yaml:"rows"`
	Cols          int      `json:"cols" yaml:"cols"`
	Seeds         int      `json:"seeds" yaml:"seeds"`
	Reached       int      `json:"reached" yaml:"reached"`
	ExpectedBytes int64    `json:"expected_bytes" yaml:"expected_bytes"`
	PeakFrontier  int      `json:"peak_frontier" yaml:"peak_frontier"`
	RouteCells    int      `json:"route_cells,omitempty" yaml:"route_cells,omitempty"`
	GuessCells    int      `json:"guess_cells" yaml:"guess_cells"`
	SkeletonCells int      `json:"skeleton_cells" yaml:"skeleton_cells"`
	Segments      int      `json:"segments" yaml:"segments"`
	TruePositive  *float64 `json:"true_positive,omitempty" yaml:"true_positive,omitempty"`
	FalseNegative *float64 `json:"false_negative,omitempty" yaml:"false_negative,omitempty"`
}

// Run represents a single inference run.
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	Params    Params    `json:"params"`
	Metrics   *Metrics  `json:"metrics,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageResult holds the outcome of a pipeline stage.
type StageResult struct {
	Name     string         `json:"name" yaml:"name"`
	Status   StageStatus    `json:"status" yaml:"status"`
	Duration int64          `json:"duration_ms" yaml:"duration_ms"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// RunStage is a stage row of the run ledger.
type RunStage struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	Result    StageResult `json:"result"`
	StartedAt time.Time   `json:"started_at"`
}
