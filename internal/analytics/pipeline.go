package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/report"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/trend"
	"github.com/kubilitics/kubilitics-predict/internal/metrics"
	"github.com/kubilitics/kubilitics-predict/internal/source"
)

const (
	// DefaultRefreshInterval is used when a pipeline is created without one.
	DefaultRefreshInterval = 30 * time.Second

	maxRecentAlerts = 1000
)

// Snapshot is the result of one pipeline run. Sections whose input is absent
// from the dataset are nil.
type Snapshot struct {
	Plan      *CapacityPlan      `json:"capacity_plan,omitempty" yaml:"capacity_plan,omitempty"`
	Anomalies *AnomalyReport     `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
	Trends    *PerformanceTrends `json:"performance_trends,omitempty" yaml:"performance_trends,omitempty"`
	LoadedAt  time.Time          `json:"loaded_at" yaml:"loaded_at"`
}

// Pipeline periodically reloads a dataset and re-runs the analyses on it.
type Pipeline struct {
	mu sync.RWMutex

	engine   *Engine
	source   source.Source
	logger   *zap.Logger
	interval time.Duration

	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
	updates  chan *Snapshot

	latest *Snapshot
	// Recent alerts cache (last 1000)
	recentAlerts []report.Alert
}

// NewPipeline creates a pipeline that refreshes from src every interval.
func NewPipeline(engine *Engine, src source.Source, interval time.Duration, logger *zap.Logger) *Pipeline {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		engine:       engine,
		source:       src,
		logger:       logger,
		interval:     interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		updates:      make(chan *Snapshot, 1),
		recentAlerts: make([]report.Alert, 0, 64),
	}
}

// Start begins background refreshing. It runs once immediately.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.refresh(ctx)

		for {
			select {
			case <-ticker.C:
				p.refresh(ctx)
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the pipeline and waits for the running refresh to finish.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if started {
		<-p.doneCh
	}
}

// Updates delivers snapshots as they are produced. Only the most recent
// undelivered snapshot is kept.
func (p *Pipeline) Updates() <-chan *Snapshot {
	return p.updates
}

// SetEngine swaps the engine used by subsequent runs, e.g. after a policy
// change.
func (p *Pipeline) SetEngine(e *Engine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine = e
}

// Latest returns the most recent successful snapshot, or nil.
func (p *Pipeline) Latest() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// RecentAlerts returns alerts raised by recent runs, oldest first.
func (p *Pipeline) RecentAlerts() []report.Alert {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]report.Alert, len(p.recentAlerts))
	copy(out, p.recentAlerts)
	return out
}

// RunOnce loads the dataset and analyzes it. On failure the previous snapshot
// is kept.
func (p *Pipeline) RunOnce(ctx context.Context) (snap *Snapshot, err error) {
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
		}
		metrics.DatasetReloads.WithLabelValues(outcome).Inc()
	}()

	p.mu.RLock()
	engine := p.engine
	p.mu.RUnlock()

	ds, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	snap = &Snapshot{LoadedAt: engine.now()}

	if len(ds.Services) > 0 {
		if snap.Plan, err = engine.CapacityPlan(ctx, ds.Services); err != nil {
			return nil, err
		}
	}

	if len(ds.Current) > 0 {
		if snap.Anomalies, err = engine.AnomalyReport(ctx, ds.Current, ds.Metrics, ""); err != nil {
			return nil, err
		}
	}

	eligible := make(map[string][]float64, len(ds.Metrics))
	for metric, history := range ds.Metrics {
		if len(history) < trend.MinPoints {
			p.logger.Debug("Skipping trend for short history", zap.String("metric", metric), zap.Int("points", len(history)))
			continue
		}
		eligible[metric] = history
	}
	if len(eligible) > 0 {
		if snap.Trends, err = engine.PerformanceTrends(ctx, eligible); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	p.latest = snap
	if snap.Anomalies != nil {
		p.recordAlerts(snap.Anomalies.Alerts)
	}
	p.mu.Unlock()

	select {
	case p.updates <- snap:
	default:
		// Drop the stale snapshot in favour of the new one
		select {
		case <-p.updates:
		default:
		}
		select {
		case p.updates <- snap:
		default:
		}
	}
	return snap, nil
}

// ─── Internal ─────────────────────────────────────────────────────────────────

func (p *Pipeline) refresh(ctx context.Context) {
	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.Warn("Pipeline refresh failed", zap.Error(err))
	}
}

// recordAlerts must be called with p.mu held.
func (p *Pipeline) recordAlerts(alerts []report.Alert) {
	p.recentAlerts = append(p.recentAlerts, alerts...)
	if over := len(p.recentAlerts) - maxRecentAlerts; over > 0 {
		p.recentAlerts = p.recentAlerts[over:]
	}
}
