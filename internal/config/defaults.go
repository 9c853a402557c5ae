package config

import (
	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/logging"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	cfg := &Config{}

	logs := logging.DefaultConfig()
	cfg.Logging.Level = logs.Level
	cfg.Logging.Format = logs.Format
	cfg.Logging.File = logs.File
	cfg.Logging.MaxSizeMB = logs.MaxSizeMB
	cfg.Logging.MaxBackups = logs.MaxBackups
	cfg.Logging.MaxAgeDays = logs.MaxAgeDays
	cfg.Logging.Compress = logs.Compress

	p := policy.Default()
	cfg.Analytics.CriticalUtilization = p.CriticalUtilization
	cfg.Analytics.TargetUtilization = p.TargetUtilization
	cfg.Analytics.ScaleDownConfidence = p.ScaleDownConfidence
	cfg.Analytics.AnomalyReportThreshold = p.AnomalyReportThreshold
	cfg.Analytics.DefaultCapacity = p.DefaultCapacity
	cfg.Analytics.DefaultUnitCost = p.DefaultUnitCost
	cfg.Analytics.Capacity = p.Capacity
	cfg.Analytics.UnitCost = p.UnitCost

	cfg.Metrics.Enabled = false
	cfg.Metrics.Address = ":9464"

	return cfg
}
