package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gridlight/internal/model"
)

const metricsNamespace = "gridlight"

// Metrics holds the Prometheus collectors for solver and pipeline runs.
// Collectors live on a private registry so that one-shot CLI runs can dump
// them as a node-exporter textfile and tests stay isolated.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	stagesTotal   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	cellsReached  prometheus.Gauge
	peakFrontier  prometheus.Gauge
	expectedBytes prometheus.Gauge
	guessCells    prometheus.Gauge
	skeletonCells prometheus.Gauge
	segments      prometheus.Gauge
	accuracy      *prometheus.GaugeVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status",
		}, []string{"status"}),
		stagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stages_total",
			Help:      "Pipeline stages by name and status",
		}, []string{"stage", "status"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4min
		}, []string{"stage"}),
		cellsReached: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "solver",
			Name:      "cells_reached",
			Help:      "Cells with a finite cumulative cost in the last run",
		}),
		peakFrontier: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "solver",
			Name:      "peak_frontier",
			Help:      "Largest priority queue size observed in the last run",
		}),
		expectedBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "solver",
			Name:      "expected_bytes",
			Help:      "Estimated solver working set in bytes",
		}),
		guessCells: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "guess_cells",
			Help:      "Foreground cells in the thresholded guess",
		}),
		skeletonCells: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "skeleton_cells",
			Help:      "Foreground cells left after thinning",
		}),
		segments: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "network_segments",
			Help:      "Line segments in the vectorized network",
		}),
		accuracy: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "accuracy_rate",
			Help:      "Accuracy rates of the last scored run",
		}, []string{"metric"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveStage records one finished pipeline stage.
func (m *Metrics) ObserveStage(stage string, status model.StageStatus, d time.Duration) {
	m.stagesTotal.WithLabelValues(stage, string(status)).Inc()
	if status != model.StageStatusSkipped {
		m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveRun records a finished run and, when present, its metrics.
// Undefined accuracy rates leave their gauges untouched.
func (m *Metrics) ObserveRun(status model.RunStatus, mt *model.Metrics) {
	m.runsTotal.WithLabelValues(string(status)).Inc()
	if mt == nil {
		return
	}
	m.cellsReached.Set(float64(mt.Reached))
	m.peakFrontier.Set(float64(mt.PeakFrontier))
	m.expectedBytes.Set(float64(mt.ExpectedBytes))
	m.guessCells.Set(float64(mt.GuessCells))
	m.skeletonCells.Set(float64(mt.SkeletonCells))
	m.segments.Set(float64(mt.Segments))
	if mt.TruePositive != nil {
		m.accuracy.WithLabelValues("true_positive").Set(*mt.TruePositive)
	}
	if mt.FalseNegative != nil {
		m.accuracy.WithLabelValues("false_negative").Set(*mt.FalseNegative)
	}
}

// WriteTextfile writes the registry in the text exposition format. The file
// is written atomically, as the node-exporter textfile collector expects.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return eris.Wrapf(err, "monitoring: write textfile %s", path)
	}
	return nil
}
