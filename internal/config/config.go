package config

import (
	"context"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/logging"
)

// Package config provides configuration management for kubilitics-predict.
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (KUBILITICS_PREDICT_* prefix)
//   2. YAML config file (default: /etc/kubilitics/predict.yaml)
//   3. Built-in defaults (lowest priority)
//
// Main Configuration Sections:
//
//   1. Logging
//      - level: "debug" | "info" | "warn" | "error"
//      - format: "json" | "console"
//      - file: log file path, stderr when empty
//      - max_size_mb, max_backups, max_age_days, compress: rotation
//
//   2. Analytics
//      - critical_utilization: utilization treated as critical (default 80)
//      - target_utilization: utilization capacity is sized for (default 70)
//      - scale_down_confidence: confidence a shrink must exceed (default 0.7)
//      - anomaly_report_threshold: score an anomaly must exceed (default 0.7)
//      - default_capacity, default_unit_cost: fallbacks for unknown services
//      - capacity, unit_cost: per-service tables, merged over the built-in ones
//
//   3. Metrics
//      - enabled: serve Prometheus metrics while watching
//      - address: listen address for /metrics

// Config struct contains all configuration fields
type Config struct {
	// Logging configuration
	Logging struct {
		Level      string
		Format     string
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	}

	// Analytics configuration
	Analytics struct {
		CriticalUtilization    float64
		TargetUtilization      float64
		ScaleDownConfidence    float64
		AnomalyReportThreshold float64
		DefaultCapacity        int
		DefaultUnitCost        float64
		Capacity               map[string]int
		UnitCost               map[string]float64
	}

	// Metrics configuration
	Metrics struct {
		Enabled bool
		Address string
	}
}

// Policy converts the analytics section into an analysis policy.
func (c *Config) Policy() policy.Policy {
	p := policy.Policy{
		CriticalUtilization:    c.Analytics.CriticalUtilization,
		TargetUtilization:      c.Analytics.TargetUtilization,
		ScaleDownConfidence:    c.Analytics.ScaleDownConfidence,
		AnomalyReportThreshold: c.Analytics.AnomalyReportThreshold,
		DefaultCapacity:        c.Analytics.DefaultCapacity,
		DefaultUnitCost:        c.Analytics.DefaultUnitCost,
		Capacity:               make(map[string]int, len(c.Analytics.Capacity)),
		UnitCost:               make(map[string]float64, len(c.Analytics.UnitCost)),
	}
	for k, v := range c.Analytics.Capacity {
		p.Capacity[k] = v
	}
	for k, v := range c.Analytics.UnitCost {
		p.UnitCost[k] = v
	}
	return p
}

// LoggingConfig converts the logging section into logger settings.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches the config file and publishes every successful reload.
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// DefaultConfigPath is used when no path is given.
const DefaultConfigPath = "/etc/kubilitics/predict.yaml"

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}
