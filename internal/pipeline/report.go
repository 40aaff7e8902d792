package pipeline

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/gridlight/internal/model"
)

// Report is the report.yaml summary written at the end of a run.
type Report struct {
	RunID       string              `yaml:"run_id,omitempty"`
	GeneratedAt time.Time           `yaml:"generated_at"`
	Params      model.Params        `yaml:"params"`
	Grid        ReportGrid          `yaml:"grid"`
	Footprint   ReportFootprint     `yaml:"footprint"`
	Metrics     model.Metrics       `yaml:"metrics"`
	Accuracy    *ReportAccuracy     `yaml:"accuracy,omitempty"`
	Stages      []model.StageResult `yaml:"stages"`
	Artifacts   Artifacts           `yaml:"artifacts"`
}

// ReportGrid describes the raster grid of the run.
type ReportGrid struct {
	Rows      int        `yaml:"rows"`
	Cols      int        `yaml:"cols"`
	CRS       string     `yaml:"crs"`
	Transform [6]float64 `yaml:"transform,flow"`
}

// ReportFootprint is the solver memory estimate.
type ReportFootprint struct {
	ExpectedBytes    int64 `yaml:"expected_bytes"`
	ExpectedFrontier int64 `yaml:"expected_frontier"`
	WorstBytes       int64 `yaml:"worst_bytes"`
}

// ReportAccuracy holds the scored rates as text so undefined rates read
// "n/a" rather than NaN.
type ReportAccuracy struct {
	TruePositive  string `yaml:"true_positive"`
	FalseNegative string `yaml:"false_negative"`
	TruthCells    int    `yaml:"truth_cells"`
	GuessCells    int    `yaml:"guess_cells"`
}

// NewReport builds the report of r. Stages recorded so far are included,
// so the report stage itself is absent.
func NewReport(r *Result) Report {
	tf := r.Transform
	rep := Report{
		RunID:       r.RunID,
		GeneratedAt: time.Now().UTC(),
		Params:      r.Params,
		Grid: ReportGrid{
			Rows:      r.Metrics.Rows,
			Cols:      r.Metrics.Cols,
			CRS:       string(r.CRS),
			Transform: [6]float64{tf.A, tf.B, tf.C, tf.D, tf.E, tf.F},
		},
		Footprint: ReportFootprint{
			ExpectedBytes:    r.Footprint.ExpectedBytes,
			ExpectedFrontier: r.Footprint.ExpectedFrontier,
			WorstBytes:       r.Footprint.WorstBytes,
		},
		Metrics:   r.Metrics,
		Stages:    append([]model.StageResult(nil), r.Stages...),
		Artifacts: r.Artifacts,
	}
	if r.Accuracy != nil {
		rep.Accuracy = &ReportAccuracy{
			TruePositive:  r.Accuracy.TruePositive.String(),
			FalseNegative: r.Accuracy.FalseNegative.String(),
			TruthCells:    r.Accuracy.TruthCells,
			GuessCells:    r.Accuracy.GuessCells,
		}
	}
	return rep
}

// WriteReport stores rep as YAML at path.
func WriteReport(path string, rep Report) error {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write report %s", path)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read report %s", path)
	}
	var rep Report
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse report %s", path)
	}
	return &rep, nil
}
