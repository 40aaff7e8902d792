package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestProgressLogger_Throttles(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	progress := progressLogger(zap.New(core), time.Hour)

	progress(10, 100)
	progress(20, 100)
	progress(30, 100)

	entries := logs.FilterMessage("pipeline: solve progress").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(10), fields["finalized"])
	assert.Equal(t, int64(100), fields["total"])
	assert.InDelta(t, 10.0, fields["percent"], 1e-12)
}

func TestProgressLogger_EmptyGrid(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	progressLogger(zap.New(core), time.Hour)(0, 0)

	require.Equal(t, 1, logs.Len())
	assert.InDelta(t, 0.0, logs.All()[0].ContextMap()["percent"], 1e-12)
}
