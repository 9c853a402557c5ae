package config

import (
	"fmt"
	"net"

	"go.uber.org/zap/zapcore"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	// Validate logging configuration
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil || c.Logging.Level == "" {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format '%s', must be one of: json, console", c.Logging.Format),
		})
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB < 1 {
		errs = append(errs, &ValidationError{
			Field:   "logging.max_size_mb",
			Message: fmt.Sprintf("max_size_mb must be at least 1 when file is set, got %d", c.Logging.MaxSizeMB),
		})
	}
	if c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		errs = append(errs, &ValidationError{
			Field:   "logging",
			Message: "max_backups and max_age_days cannot be negative",
		})
	}

	// Validate analytics configuration
	a := c.Analytics
	if a.CriticalUtilization <= 0 || a.CriticalUtilization > 100 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.critical_utilization",
			Message: fmt.Sprintf("critical_utilization must be in (0, 100], got %g", a.CriticalUtilization),
		})
	}
	if a.TargetUtilization <= 0 || a.TargetUtilization > 100 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.target_utilization",
			Message: fmt.Sprintf("target_utilization must be in (0, 100], got %g", a.TargetUtilization),
		})
	} else if a.TargetUtilization > a.CriticalUtilization {
		errs = append(errs, &ValidationError{
			Field:   "analytics.target_utilization",
			Message: fmt.Sprintf("target_utilization %g cannot exceed critical_utilization %g", a.TargetUtilization, a.CriticalUtilization),
		})
	}
	if a.ScaleDownConfidence < 0 || a.ScaleDownConfidence > 1 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.scale_down_confidence",
			Message: fmt.Sprintf("scale_down_confidence must be between 0 and 1, got %g", a.ScaleDownConfidence),
		})
	}
	if a.AnomalyReportThreshold < 0 || a.AnomalyReportThreshold >= 1 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.anomaly_report_threshold",
			Message: fmt.Sprintf("anomaly_report_threshold must be in [0, 1), got %g", a.AnomalyReportThreshold),
		})
	}
	if a.DefaultCapacity < 1 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.default_capacity",
			Message: fmt.Sprintf("default_capacity must be at least 1, got %d", a.DefaultCapacity),
		})
	}
	if a.DefaultUnitCost <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.default_unit_cost",
			Message: fmt.Sprintf("default_unit_cost must be positive, got %g", a.DefaultUnitCost),
		})
	}
	for service, units := range a.Capacity {
		if units < 0 {
			errs = append(errs, &ValidationError{
				Field:   "analytics.capacity." + service,
				Message: fmt.Sprintf("capacity cannot be negative, got %d", units),
			})
		}
	}
	for service, cost := range a.UnitCost {
		if cost < 0 {
			errs = append(errs, &ValidationError{
				Field:   "analytics.unit_cost." + service,
				Message: fmt.Sprintf("unit cost cannot be negative, got %g", cost),
			})
		}
	}

	// Validate metrics configuration
	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			errs = append(errs, &ValidationError{
				Field:   "metrics.address",
				Message: "metrics address is required when metrics are enabled",
			})
		} else if _, port, err := net.SplitHostPort(c.Metrics.Address); err != nil {
			errs = append(errs, &ValidationError{
				Field:   "metrics.address",
				Message: fmt.Sprintf("invalid address format (expected host:port): %v", err),
			})
		} else if port == "" {
			errs = append(errs, &ValidationError{
				Field:   "metrics.address",
				Message: "metrics port cannot be empty",
			})
		}
	}

	return errs
}
