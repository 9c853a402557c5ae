package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDataset = `
metrics:
  cpu_utilization: [40, 42, 45]
  memory_utilization: [60, 61, 59]
services:
  ecs-service: [150, 160, 170, 180, 190]
current:
  cpu_utilization: 91.5
start: "2026-01-01T00:00:00Z"
interval: 1h
`

func TestParse_YAML(t *testing.T) {
	ds, err := Parse([]byte(yamlDataset))
	require.NoError(t, err)

	assert.Equal(t, []float64{40, 42, 45}, ds.Metrics["cpu_utilization"])
	assert.Equal(t, []float64{150, 160, 170, 180, 190}, ds.Services["ecs-service"])
	assert.Equal(t, 91.5, ds.Current["cpu_utilization"])
	assert.Equal(t, "1h", ds.Interval)
}

func TestParse_JSON(t *testing.T) {
	ds, err := Parse([]byte(`{"metrics": {"error_rate": [0.5, 1.5]}, "current": {"error_rate": 4}}`))
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 1.5}, ds.Metrics["error_rate"])
	assert.Equal(t, 4.0, ds.Current["error_rate"])
	assert.NotNil(t, ds.Services)
}

func TestParse_EmptyDocument(t *testing.T) {
	ds, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, ds.Metrics)
	assert.NotNil(t, ds.Current)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("metrics: [1, 2"))
	assert.ErrorContains(t, err, "decode dataset")

	_, err = Parse([]byte("metricz:\n  cpu: [1]\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = Parse([]byte("metrics:\n  cpu: [high]\n"))
	assert.Error(t, err)
}

func TestTimestampsFor_Generated(t *testing.T) {
	ds, err := Parse([]byte(yamlDataset))
	require.NoError(t, err)

	got, err := ds.TimestampsFor("cpu_utilization")
	require.NoError(t, err)
	require.Len(t, got, 3)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, got[0].Equal(start))
	assert.True(t, got[2].Equal(start.Add(2*time.Hour)))
}

func TestTimestampsFor_Explicit(t *testing.T) {
	ds := &Dataset{
		Metrics:    map[string][]float64{"cpu_utilization": {1, 2}},
		Timestamps: []string{"2026-01-01T00:00:00Z", "2026-01-01T01:00:00+02:00"},
	}

	got, err := ds.TimestampsFor("cpu_utilization")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[1].Hour(), "offsets are kept")
}

func TestTimestampsFor_Errors(t *testing.T) {
	ds := &Dataset{Metrics: map[string][]float64{"cpu_utilization": {1}}}

	_, err := ds.TimestampsFor("memory_utilization")
	assert.ErrorContains(t, err, "not found")

	_, err = ds.TimestampsFor("cpu_utilization")
	assert.ErrorContains(t, err, "neither timestamps nor start")

	ds.Start, ds.Interval = "2026-01-01T00:00:00Z", "-1h"
	_, err = ds.TimestampsFor("cpu_utilization")
	assert.ErrorContains(t, err, "interval must be positive")

	ds.Timestamps = []string{"yesterday"}
	_, err = ds.TimestampsFor("cpu_utilization")
	assert.ErrorContains(t, err, "timestamps[0]")
}

func TestFileLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDataset), 0644))

	ds, err := NewFile(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Services["ecs-service"], 5)

	_, err = NewFile(filepath.Join(t.TempDir(), "missing.yaml")).Load(context.Background())
	assert.ErrorContains(t, err, "read dataset")
}

func TestFileLoad_Stdin(t *testing.T) {
	f := &File{Path: "-", Stdin: strings.NewReader(yamlDataset)}
	ds, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 91.5, ds.Current["cpu_utilization"])
}

func TestFileLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFile("unused").Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
