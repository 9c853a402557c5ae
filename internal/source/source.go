// Package source loads the datasets the engine analyzes. A dataset bundles
// per-metric histories, per-service utilization histories, current metric
// values and the timestamps of the samples.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source supplies datasets. Implementations must be safe to call repeatedly;
// each call returns a fresh Dataset.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
}

// Dataset is the analysis input. JSON documents are accepted as well since
// they are valid YAML.
type Dataset struct {
	// Metrics holds the history of each metric, oldest first.
	Metrics map[string][]float64 `yaml:"metrics" json:"metrics"`

	// Services holds the utilization history of each service, oldest first.
	Services map[string][]float64 `yaml:"services" json:"services"`

	// Current holds the latest value of each metric.
	Current map[string]float64 `yaml:"current" json:"current"`

	// Timestamps lists RFC 3339 sample times shared by every metric history.
	Timestamps []string `yaml:"timestamps,omitempty" json:"timestamps,omitempty"`

	// Start and Interval generate sample times when Timestamps is empty.
	Start    string `yaml:"start,omitempty" json:"start,omitempty"`
	Interval string `yaml:"interval,omitempty" json:"interval,omitempty"`
}

// Parse decodes a YAML or JSON dataset.
func Parse(data []byte) (*Dataset, error) {
	ds := &Dataset{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(ds); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if ds.Metrics == nil {
		ds.Metrics = map[string][]float64{}
	}
	if ds.Services == nil {
		ds.Services = map[string][]float64{}
	}
	if ds.Current == nil {
		ds.Current = map[string]float64{}
	}
	return ds, nil
}

// TimestampsFor returns the sample times of metric's history, either the
// explicit timestamps or times generated from start and interval.
func (d *Dataset) TimestampsFor(metric string) ([]time.Time, error) {
	history, ok := d.Metrics[metric]
	if !ok {
		return nil, fmt.Errorf("metric %q not found in dataset", metric)
	}

	if len(d.Timestamps) > 0 {
		out := make([]time.Time, len(d.Timestamps))
		for i, s := range d.Timestamps {
			ts, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("timestamps[%d]: %w", i, err)
			}
			out[i] = ts
		}
		return out, nil
	}

	if d.Start == "" || d.Interval == "" {
		return nil, fmt.Errorf("dataset has neither timestamps nor start and interval")
	}
	start, err := time.Parse(time.RFC3339, d.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	step, err := time.ParseDuration(d.Interval)
	if err != nil {
		return nil, fmt.Errorf("interval: %w", err)
	}
	if step <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", d.Interval)
	}

	out := make([]time.Time, len(history))
	for i := range out {
		out[i] = start.Add(time.Duration(i) * step)
	}
	return out, nil
}

// File reads a dataset from a file on every Load. The path "-" reads from
// Stdin once.
type File struct {
	Path  string
	Stdin io.Reader
}

// NewFile creates a file source.
func NewFile(path string) *File {
	return &File{Path: path, Stdin: os.Stdin}
}

// Load reads and parses the file.
func (f *File) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		data []byte
		err  error
	)
	if f.Path == "-" {
		if f.Stdin == nil {
			return nil, fmt.Errorf("no stdin to read dataset from")
		}
		data, err = io.ReadAll(f.Stdin)
	} else {
		data, err = os.ReadFile(f.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", f.Path, err)
	}

	ds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return ds, nil
}
