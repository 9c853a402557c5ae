package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kubilitics/kubilitics-predict/internal/analytics"
	"github.com/kubilitics/kubilitics-predict/internal/config"
	"github.com/kubilitics/kubilitics-predict/internal/metrics"
	"github.com/kubilitics/kubilitics-predict/internal/version"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-analyze the dataset on an interval",
		Long:  "Reload the dataset every --interval and print the capacity plan, anomaly report and performance trends. Config file changes swap the analysis policy without a restart.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if once {
				p := analytics.NewPipeline(a.engine, a.dataSource(), interval, a.logger)
				snap, err := p.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(snap)
			}
			if a.input == "-" {
				return fmt.Errorf("watch needs a dataset file; --input - is only supported with --once")
			}
			return a.runWatch(cmd.Context(), interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", analytics.DefaultRefreshInterval, "refresh interval")
	cmd.Flags().BoolVar(&once, "once", false, "analyze once and exit")
	return cmd
}

func (a *app) runWatch(parent context.Context, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.Metrics.Enabled {
		srv := newMetricsServer(a.cfg.Metrics.Address)
		g.Go(func() error {
			a.logger.Info("Serving metrics", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		return a.watchLoop(gctx, interval)
	})
	return g.Wait()
}

func (a *app) watchLoop(ctx context.Context, interval time.Duration) error {
	pipeline := analytics.NewPipeline(a.engine, a.dataSource(), interval, a.logger)
	pipeline.Start(ctx)
	defer pipeline.Stop()

	a.logger.Info("Watching dataset",
		zap.String("input", a.input),
		zap.Duration("interval", interval),
		zap.String("version", version.Version))

	configChanges := a.manager.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Stopped watching")
			return nil
		case snap := <-pipeline.Updates():
			if err := a.render(snap); err != nil {
				return err
			}
		case cfg := <-configChanges:
			a.applyConfig(pipeline, cfg)
		}
	}
}

// applyConfig swaps the analysis policy of a running pipeline.
func (a *app) applyConfig(pipeline *analytics.Pipeline, cfg config.Config) {
	a.engine = analytics.NewEngine(a.logger, cfg.Policy())
	pipeline.SetEngine(a.engine)
	a.logger.Info("Configuration reloaded",
		zap.Float64("critical_utilization", cfg.Analytics.CriticalUtilization),
		zap.Float64("target_utilization", cfg.Analytics.TargetUtilization))
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "kubilitics-predict %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildDate)
			return nil
		},
	}
}
