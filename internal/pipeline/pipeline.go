// Package pipeline runs one grid inference end to end: load rasters, solve,
// threshold, thin, vectorize, score and report, recording every stage in
// the run ledger.
package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/gridlight/internal/accuracy"
	"github.com/sells-group/gridlight/internal/config"
	"github.com/sells-group/gridlight/internal/costdist"
	"github.com/sells-group/gridlight/internal/geo"
	"github.com/sells-group/gridlight/internal/model"
	"github.com/sells-group/gridlight/internal/monitoring"
	"github.com/sells-group/gridlight/internal/morph"
	"github.com/sells-group/gridlight/internal/raster"
	"github.com/sells-group/gridlight/internal/store"
	"github.com/sells-group/gridlight/internal/vectorize"
)

// Stage names, in execution order.
const (
	StageLoad      = "load"
	StageEstimate  = "estimate"
	StageSolve     = "solve"
	StageThreshold = "threshold"
	StageThin      = "thin"
	StageVectorize = "vectorize"
	StageScore     = "score"
	StageReport    = "report"
)

// Artifact file names inside the output directory.
const (
	DistFile     = "dist.asc"
	GuessFile    = "guess.asc"
	SkeletonFile = "guess_skel.asc"
	ReportFile   = "report.yaml"
)

var (
	// ErrTransformMismatch indicates cost and seed rasters on different grids.
	ErrTransformMismatch = errors.New("pipeline: cost and seed transforms differ")
	// ErrCRSMismatch indicates cost and seed rasters in different CRSs.
	ErrCRSMismatch = errors.New("pipeline: cost and seed CRS differ")
	// ErrTargetsMismatch indicates a target raster off the cost grid.
	ErrTargetsMismatch = errors.New("pipeline: target raster does not match cost grid")
)

// Inputs names the files of one run. Optional inputs may be empty.
type Inputs struct {
	Costs string
	Seeds string
	// Targets marks settlements to connect. Their least-cost routes back
	// to the seeds join the guess regardless of the cutoff.
	Targets    string
	AOI        string
	Truth      string
	PowerLines string
	// OutputDir overrides output.dir when set.
	OutputDir string
}

// Artifacts lists the files a run wrote.
type Artifacts struct {
	Dist     string `yaml:"dist"`
	Guess    string `yaml:"guess"`
	Skeleton string `yaml:"skeleton"`
	Network  string `yaml:"network"`
	Report   string `yaml:"report"`
}

// Result is the outcome of a run.
type Result struct {
	RunID     string
	Params    model.Params
	Footprint costdist.Footprint
	Dist      *raster.Float
	Guess     *raster.Mask
	Skeleton  *raster.Mask
	Transform raster.Affine
	CRS       raster.CRS
	Network   vectorize.Network
	// Accuracy is nil when the score stage was skipped.
	Accuracy  *accuracy.Result
	Metrics   model.Metrics
	Stages    []model.StageResult
	Artifacts Artifacts
}

// Pipeline orchestrates the stages of a run.
type Pipeline struct {
	cfg     *config.Config
	store   store.Store
	metrics *monitoring.Metrics

	// progressEvery throttles solver progress logs.
	progressEvery time.Duration
}

// New creates a Pipeline. st may be nil to run without a ledger, metrics
// may be nil to skip Prometheus collection.
func New(cfg *config.Config, st store.Store, metrics *monitoring.Metrics) *Pipeline {
	return &Pipeline{
		cfg:           cfg,
		store:         st,
		metrics:       metrics,
		progressEvery: 2 * time.Second,
	}
}

// loaded holds the outputs of the load stage.
type loaded struct {
	costs  *raster.Dataset[float64]
	seeds   *raster.Mask
	targets *raster.Mask
	crs     raster.CRS
	aoi    orb.MultiPolygon
	truth  []orb.Geometry
	extra  []orb.Geometry
	scored bool
}

// Run executes every stage for in. On failure the run and the failing
// stage are marked failed in the ledger and the partial result is returned
// alongside the error.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	outDir := in.OutputDir
	if outDir == "" {
		outDir = p.cfg.Output.Dir
	}
	params := p.params(in, outDir)
	result := &Result{Params: params}

	opts, err := p.cfg.Solver.Options()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: solver options")
	}
	limit, err := p.cfg.Solver.MemoryLimitBytes()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: memory limit")
	}
	targetCRS, err := raster.ParseCRS(p.cfg.Vectorize.TargetCRS)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: target crs")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "pipeline: create output dir %s", outDir)
	}

	if p.store != nil {
		run, err := p.store.CreateRun(ctx, params)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		result.RunID = run.ID
	}

	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", result.RunID))
	log.Info("pipeline: starting run",
		zap.String("costs", in.Costs),
		zap.String("seeds", in.Seeds),
		zap.String("output_dir", outDir),
	)

	trackStage := func(name string, fn func() (map[string]any, error)) error {
		var stage *model.RunStage
		if p.store != nil {
			s, stageErr := p.store.CreateStage(ctx, result.RunID, name)
			if stageErr != nil {
				log.Warn("pipeline: failed to create stage", zap.String("stage", name), zap.Error(stageErr))
			}
			stage = s
		}

		start := time.Now()
		meta, fnErr := fn()
		elapsed := time.Since(start)

		sr := model.StageResult{
			Name:     name,
			Status:   model.StageStatusComplete,
			Duration: elapsed.Milliseconds(),
			Metadata: meta,
		}
		if fnErr != nil {
			sr.Status = model.StageStatusFailed
			sr.Error = fnErr.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Duration("duration", elapsed),
				zap.Error(fnErr),
			)
		} else {
			log.Info("pipeline: stage complete",
				zap.String("stage", name),
				zap.Duration("duration", elapsed),
			)
		}

		p.finishStage(ctx, stage, &sr, elapsed, log)
		result.Stages = append(result.Stages, sr)
		return fnErr
	}

	skipStage := func(name, reason string) {
		sr := model.StageResult{Name: name, Status: model.StageStatusSkipped, Metadata: map[string]any{"reason": reason}}
		var stage *model.RunStage
		if p.store != nil {
			s, stageErr := p.store.CreateStage(ctx, result.RunID, name)
			if stageErr != nil {
				log.Warn("pipeline: failed to create stage", zap.String("stage", name), zap.Error(stageErr))
			}
			stage = s
		}
		log.Info("pipeline: stage skipped", zap.String("stage", name), zap.String("reason", reason))
		p.finishStage(ctx, stage, &sr, 0, log)
		result.Stages = append(result.Stages, sr)
	}

	fail := func(err error) (*Result, error) {
		p.failRun(ctx, result.RunID, err, log)
		return result, err
	}

	// Stage 1: load
	var ld *loaded
	if err := trackStage(StageLoad, func() (map[string]any, error) {
		l, loadErr := p.load(in, targetCRS)
		if loadErr != nil {
			return nil, loadErr
		}
		ld = l
		meta := map[string]any{
			"rows":  l.costs.Grid.Rows,
			"cols":  l.costs.Grid.Cols,
			"crs":   string(l.crs),
			"seeds": raster.CountNonZero(l.seeds),
		}
		if l.targets != nil {
			meta["targets"] = raster.CountNonZero(l.targets)
		}
		return meta, nil
	}); err != nil {
		return fail(err)
	}

	grid := ld.costs.Grid
	result.Transform = ld.costs.Transform
	result.CRS = ld.crs
	result.Metrics.Rows = grid.Rows
	result.Metrics.Cols = grid.Cols
	result.Metrics.Seeds = raster.CountNonZero(ld.seeds)
	opts.NoData = ld.costs.NoData
	opts.HasNoData = ld.costs.HasNoData
	if ld.targets != nil {
		opts.TrackPredecessors = true
	}

	// Stage 2: estimate
	if err := trackStage(StageEstimate, func() (map[string]any, error) {
		fp := costdist.Estimate(grid.Rows, grid.Cols, opts)
		result.Footprint = fp
		result.Metrics.ExpectedBytes = fp.ExpectedBytes
		log.Info("pipeline: solve footprint",
			zap.String("expected", humanize.Bytes(uint64(fp.ExpectedBytes))),
			zap.String("worst", humanize.Bytes(uint64(fp.WorstBytes))),
			zap.Int64("cells", fp.Cells),
		)
		meta := map[string]any{
			"expected_bytes": fp.ExpectedBytes,
			"worst_bytes":    fp.WorstBytes,
			"limit_bytes":    limit,
		}
		return meta, fp.Check(limit)
	}); err != nil {
		return fail(err)
	}

	// Stage 3: solve
	distPath := filepath.Join(outDir, DistFile)
	var solved *costdist.Result
	if err := trackStage(StageSolve, func() (map[string]any, error) {
		opts.Progress = progressLogger(log, p.progressEvery)
		res, solveErr := costdist.Solve(ctx, ld.costs.Grid, ld.seeds, opts)
		if solveErr != nil {
			return nil, solveErr
		}
		solved = res
		result.Dist = res.Dist
		result.Metrics.PeakFrontier = res.PeakFrontier
		reached := 0
		for i := range res.Dist.Data {
			if res.Reached(i) {
				reached++
			}
		}
		result.Metrics.Reached = reached

		out := raster.Like(ld.costs, res.Dist)
		out.CRS = ld.crs
		if writeErr := raster.WriteASCII(distPath, out); writeErr != nil {
			return nil, writeErr
		}
		return map[string]any{
			"finalized":     res.Finalized,
			"reached":       reached,
			"pushes":        res.Pushes,
			"peak_frontier": res.PeakFrontier,
		}, nil
	}); err != nil {
		return fail(err)
	}
	result.Artifacts.Dist = distPath

	// Stage 4: threshold
	guessPath := filepath.Join(outDir, GuessFile)
	if err := trackStage(StageThreshold, func() (map[string]any, error) {
		guess := morph.Threshold(result.Dist, p.cfg.Post.Cutoff)
		meta := map[string]any{"cutoff": p.cfg.Post.Cutoff}
		if ld.targets != nil {
			routes, routeErr := solved.Routes(ld.targets)
			if routeErr != nil {
				return nil, routeErr
			}
			result.Metrics.RouteCells = raster.CountNonZero(routes)
			meta["route_cells"] = result.Metrics.RouteCells
			for i, v := range routes.Data {
				guess.Data[i] |= v
			}
		}
		result.Guess = guess
		result.Metrics.GuessCells = raster.CountNonZero(guess)
		meta["guess_cells"] = result.Metrics.GuessCells
		if writeErr := raster.WriteASCII(guessPath, maskDataset(guess, result.Transform, ld.crs)); writeErr != nil {
			return nil, writeErr
		}
		return meta, nil
	}); err != nil {
		return fail(err)
	}
	result.Artifacts.Guess = guessPath

	// Stage 5: thin
	skelPath := filepath.Join(outDir, SkeletonFile)
	if err := trackStage(StageThin, func() (map[string]any, error) {
		result.Skeleton = morph.Thin(result.Guess)
		result.Metrics.SkeletonCells = raster.CountNonZero(result.Skeleton)
		if writeErr := raster.WriteASCII(skelPath, maskDataset(result.Skeleton, result.Transform, ld.crs)); writeErr != nil {
			return nil, writeErr
		}
		return map[string]any{"skeleton_cells": result.Metrics.SkeletonCells}, nil
	}); err != nil {
		return fail(err)
	}
	result.Artifacts.Skeleton = skelPath

	// Stage 6: vectorize
	netPath := filepath.Join(outDir, "guess."+p.cfg.Output.VectorFormat)
	if err := trackStage(StageVectorize, func() (map[string]any, error) {
		network, vecErr := vectorize.Vectorize(result.Skeleton, result.Transform, ld.crs, targetCRS)
		if vecErr != nil {
			return nil, vecErr
		}
		segments := len(network.Lines)
		if len(ld.extra) > 0 {
			network = network.Merge(ld.extra...)
		}
		result.Network = network
		result.Metrics.Segments = segments

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return geo.WriteLines(netPath, network.Lines, network.CRS)
		})
		if p.store != nil {
			g.Go(func() error {
				return p.store.SaveNetwork(gctx, result.RunID, network.Lines, network.CRS)
			})
		}
		if waitErr := g.Wait(); waitErr != nil {
			return nil, waitErr
		}
		return map[string]any{
			"segments":    segments,
			"power_lines": len(network.Lines) - segments,
			"target_crs":  string(targetCRS),
		}, nil
	}); err != nil {
		return fail(err)
	}
	result.Artifacts.Network = netPath

	// Stage 7: score
	if ld.scored {
		if err := trackStage(StageScore, func() (map[string]any, error) {
			acc, buffer, scoreErr := p.score(ctx, guessPath, ld)
			if scoreErr != nil {
				return nil, scoreErr
			}
			result.Accuracy = &acc
			meta := map[string]any{
				"truth_cells": acc.TruthCells,
				"guess_cells": acc.GuessCells,
				"buffer":      buffer,
			}
			if acc.TruePositive.Defined {
				tp := acc.TruePositive.Value
				result.Metrics.TruePositive = &tp
				meta["true_positive"] = tp
			}
			if acc.FalseNegative.Defined {
				fn := acc.FalseNegative.Value
				result.Metrics.FalseNegative = &fn
				meta["false_negative"] = fn
			}
			log.Info("pipeline: accuracy",
				zap.Stringer("true_positive", acc.TruePositive),
				zap.Stringer("false_negative", acc.FalseNegative),
			)
			return meta, nil
		}); err != nil {
			return fail(err)
		}
	} else {
		skipStage(StageScore, "truth and aoi not supplied")
	}

	// Stage 8: report
	reportPath := filepath.Join(outDir, ReportFile)
	result.Artifacts.Report = reportPath
	if err := trackStage(StageReport, func() (map[string]any, error) {
		return nil, WriteReport(reportPath, NewReport(result))
	}); err != nil {
		return fail(err)
	}

	if p.store != nil {
		if err := p.store.CompleteRun(ctx, result.RunID, &result.Metrics); err != nil {
			log.Warn("pipeline: failed to complete run", zap.Error(err))
		}
	}
	if p.metrics != nil {
		p.metrics.ObserveRun(model.RunStatusComplete, &result.Metrics)
		p.writeTextfile(log)
	}

	log.Info("pipeline: run complete",
		zap.Int("reached", result.Metrics.Reached),
		zap.Int("segments", result.Metrics.Segments),
	)
	return result, nil
}

// load reads every input. Rasters and vectors are read concurrently.
func (p *Pipeline) load(in Inputs, target raster.CRS) (*loaded, error) {
	var (
		costs, seeds, targets *raster.Dataset[float64]
		aoi, truth, lines     *geo.Layer
	)

	var g errgroup.Group
	g.Go(func() (err error) {
		costs, err = raster.ReadASCII(in.Costs)
		return err
	})
	g.Go(func() (err error) {
		seeds, err = raster.ReadASCII(in.Seeds)
		return err
	})
	if in.Targets != "" {
		g.Go(func() (err error) {
			targets, err = raster.ReadASCII(in.Targets)
			return err
		})
	}
	readVector := func(path string, dst **geo.Layer) {
		if path == "" {
			return
		}
		g.Go(func() (err error) {
			*dst, err = geo.Read(path)
			return err
		})
	}
	readVector(in.AOI, &aoi)
	readVector(in.Truth, &truth)
	readVector(in.PowerLines, &lines)
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: load")
	}

	if err := raster.CheckShape(costs.Grid, seeds.Grid); err != nil {
		return nil, eris.Wrap(err, "pipeline: load")
	}
	if costs.Transform != seeds.Transform {
		return nil, ErrTransformMismatch
	}
	crs := costs.CRS
	switch {
	case crs == "":
		crs = seeds.CRS
	case seeds.CRS != "" && seeds.CRS != crs:
		return nil, eris.Wrapf(ErrCRSMismatch, "pipeline: %s and %s", crs, seeds.CRS)
	}
	if crs == "" {
		crs = raster.WGS84
	}

	out := &loaded{
		costs: costs,
		seeds: raster.ToMask(seeds),
		crs:   crs,
	}
	if targets != nil {
		if err := raster.CheckShape(costs.Grid, targets.Grid); err != nil {
			return nil, eris.Wrapf(ErrTargetsMismatch, "pipeline: targets %s: %v", in.Targets, err)
		}
		if targets.Transform != costs.Transform {
			return nil, eris.Wrapf(ErrTargetsMismatch, "pipeline: targets %s transform", in.Targets)
		}
		out.targets = raster.ToMask(targets)
	}

	if aoi != nil {
		projected, err := geo.ProjectLayer(aoi, crs)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: project aoi")
		}
		if out.aoi, err = projected.Polygons(); err != nil {
			return nil, eris.Wrapf(err, "pipeline: aoi %s", in.AOI)
		}
	}
	if truth != nil {
		projected, err := geo.ProjectLayer(truth, crs)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: project truth")
		}
		out.truth = projected.Geometries
	}
	if lines != nil {
		projected, err := geo.ProjectLayer(lines, target)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: project power lines")
		}
		out.extra = projected.Geometries
	}
	out.scored = truth != nil && aoi != nil
	return out, nil
}

// score re-reads the stored guess raster and scores it against the truth.
// The configured buffer is in decimal degrees and is converted to the units
// of the raster CRS; the converted value is returned.
func (p *Pipeline) score(ctx context.Context, guessPath string, in *loaded) (accuracy.Result, float64, error) {
	buffer, err := geo.BufferDistance(p.cfg.Accuracy.Buffer, in.crs)
	if err != nil {
		return accuracy.Result{}, 0, eris.Wrap(err, "pipeline: buffer")
	}
	stored, err := raster.ReadASCII(guessPath)
	if err != nil {
		return accuracy.Result{}, 0, eris.Wrap(err, "pipeline: reread guess")
	}
	acc, err := accuracy.Score(ctx, accuracy.Inputs{
		Truth:     in.truth,
		AOI:       in.aoi,
		Guess:     raster.ToMask(stored),
		Transform: stored.Transform,
	}, accuracy.Options{
		Buffer: buffer,
		Radius: p.cfg.Accuracy.SearchRadius,
	})
	return acc, buffer, err
}

func (p *Pipeline) params(in Inputs, outDir string) model.Params {
	return model.Params{
		Costs:        in.Costs,
		Seeds:        in.Seeds,
		Targets:      in.Targets,
		AOI:          in.AOI,
		Truth:        in.Truth,
		PowerLines:   in.PowerLines,
		OutputDir:    outDir,
		EdgeRule:     p.cfg.Solver.EdgeRule,
		Diagonal:     p.cfg.Solver.Diagonal,
		Cutoff:       p.cfg.Post.Cutoff,
		TargetCRS:    p.cfg.Vectorize.TargetCRS,
		Buffer:       p.cfg.Accuracy.Buffer,
		SearchRadius: p.cfg.Accuracy.SearchRadius,
	}
}

func (p *Pipeline) finishStage(ctx context.Context, stage *model.RunStage, sr *model.StageResult, elapsed time.Duration, log *zap.Logger) {
	if p.metrics != nil {
		p.metrics.ObserveStage(sr.Name, sr.Status, elapsed)
	}
	if stage == nil {
		return
	}
	if err := p.store.CompleteStage(context.WithoutCancel(ctx), stage.ID, sr); err != nil {
		log.Warn("pipeline: failed to complete stage", zap.String("stage", sr.Name), zap.Error(err))
	}
}

// failRun marks the run failed. Ledger writes survive a cancelled ctx.
func (p *Pipeline) failRun(ctx context.Context, runID string, cause error, log *zap.Logger) {
	if p.store != nil {
		if err := p.store.FailRun(context.WithoutCancel(ctx), runID, cause.Error()); err != nil {
			log.Warn("pipeline: failed to mark run failed", zap.Error(err))
		}
	}
	if p.metrics != nil {
		p.metrics.ObserveRun(model.RunStatusFailed, nil)
		p.writeTextfile(log)
	}
}

func (p *Pipeline) writeTextfile(log *zap.Logger) {
	path := p.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := p.metrics.WriteTextfile(path); err != nil {
		log.Warn("pipeline: failed to write metrics", zap.Error(err))
	}
}

// maskDataset wraps a 0/1 grid for storage. Masks carry no no-data value.
func maskDataset(m *raster.Mask, tf raster.Affine, crs raster.CRS) *raster.Dataset[uint8] {
	return &raster.Dataset[uint8]{Grid: m, Transform: tf, CRS: crs}
}
