package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KUBILITICS_PREDICT"

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	mu         sync.RWMutex
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
	watchOnce  sync.Once
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	v := viper.New()
	v.SetConfigFile(m.configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := readConfigFile(v); err != nil {
		return err
	}

	cfg, err := unmarshalConfig(v)
	if err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.mu.Lock()
	m.viper = v
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	errs := m.Get(ctx).Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads. Load must have been
// called first. Invalid files are ignored and the previous configuration is
// kept. The channel holds at most one pending update.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	m.watchOnce.Do(func() {
		m.mu.RLock()
		v := m.viper
		m.mu.RUnlock()
		if v == nil {
			return
		}

		v.OnConfigChange(func(e fsnotify.Event) {
			if ctx.Err() != nil {
				return
			}
			cfg, err := unmarshalConfig(v)
			if err != nil || len(cfg.Validate()) > 0 {
				return
			}
			m.mu.Lock()
			m.config = cfg
			m.mu.Unlock()

			select {
			case m.watchChan <- *cfg:
			default:
				// Channel full, skip this update
			}
		})
		v.WatchConfig()
	})
	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	m.mu.RLock()
	v := m.viper
	m.mu.RUnlock()
	if v == nil {
		return m.Load(ctx)
	}

	if err := readConfigFile(v); err != nil {
		return err
	}
	cfg, err := unmarshalConfig(v)
	if err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// readConfigFile reads the config file. A missing file is not an error;
// defaults and environment variables apply.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || os.IsNotExist(err) {
		return nil
	}
	return fmt.Errorf("error reading config file: %w", err)
}

// setDefaults sets default values in viper.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", defaults.Logging.Compress)

	// Analytics defaults
	v.SetDefault("analytics.critical_utilization", defaults.Analytics.CriticalUtilization)
	v.SetDefault("analytics.target_utilization", defaults.Analytics.TargetUtilization)
	v.SetDefault("analytics.scale_down_confidence", defaults.Analytics.ScaleDownConfidence)
	v.SetDefault("analytics.anomaly_report_threshold", defaults.Analytics.AnomalyReportThreshold)
	v.SetDefault("analytics.default_capacity", defaults.Analytics.DefaultCapacity)
	v.SetDefault("analytics.default_unit_cost", defaults.Analytics.DefaultUnitCost)

	// Metrics defaults
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.address", defaults.Metrics.Address)
}

// unmarshalConfig builds a Config from viper. Per-service tables from the
// file are merged over the built-in tables.
func unmarshalConfig(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	// Logging
	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Format = v.GetString("logging.format")
	cfg.Logging.File = v.GetString("logging.file")
	cfg.Logging.MaxSizeMB = v.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = v.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = v.GetInt("logging.max_age_days")
	cfg.Logging.Compress = v.GetBool("logging.compress")

	// Analytics
	cfg.Analytics.CriticalUtilization = v.GetFloat64("analytics.critical_utilization")
	cfg.Analytics.TargetUtilization = v.GetFloat64("analytics.target_utilization")
	cfg.Analytics.ScaleDownConfidence = v.GetFloat64("analytics.scale_down_confidence")
	cfg.Analytics.AnomalyReportThreshold = v.GetFloat64("analytics.anomaly_report_threshold")
	cfg.Analytics.DefaultCapacity = v.GetInt("analytics.default_capacity")
	cfg.Analytics.DefaultUnitCost = v.GetFloat64("analytics.default_unit_cost")

	var capacity map[string]int
	if err := v.UnmarshalKey("analytics.capacity", &capacity); err != nil {
		return nil, fmt.Errorf("analytics.capacity: %w", err)
	}
	for service, units := range capacity {
		cfg.Analytics.Capacity[service] = units
	}

	var unitCost map[string]float64
	if err := v.UnmarshalKey("analytics.unit_cost", &unitCost); err != nil {
		return nil, fmt.Errorf("analytics.unit_cost: %w", err)
	}
	for service, cost := range unitCost {
		cfg.Analytics.UnitCost[service] = cost
	}

	// Metrics
	cfg.Metrics.Enabled = v.GetBool("metrics.enabled")
	cfg.Metrics.Address = v.GetString("metrics.address")

	return cfg, nil
}
