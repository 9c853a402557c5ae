package cli

// analyze.go: one-shot analysis commands.
//
// Every command reads one dataset (--input) and prints its result as JSON or
// YAML (--output).
//
// Commands:
//   kubilitics-predict trend [--metric m]      # trend of one metric, or all metrics with a health summary
//   kubilitics-predict capacity                # capacity plan for every service
//   kubilitics-predict anomalies [--severity]  # anomaly report for the current values
//   kubilitics-predict seasonality --metric m  # seasonal profile of one metric
//   kubilitics-predict summary                 # descriptive statistics per metric
//   kubilitics-predict report --service s      # detailed capacity report of one service

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
)

func newTrendCmd(a *app) *cobra.Command {
	var metric string
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Analyze utilization trends",
		Long:  "Analyze the trend of one metric with --metric, or of every metric in the dataset together with an overall health summary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			if metric == "" {
				trends, err := a.engine.PerformanceTrends(cmd.Context(), ds.Metrics)
				if err != nil {
					return err
				}
				return a.render(trends)
			}

			series, ok := ds.Metrics[metric]
			if !ok {
				return fmt.Errorf("metric %q not found in dataset", metric)
			}
			result, err := a.engine.AnalyzeTrend(cmd.Context(), series, metric)
			if err != nil {
				return err
			}
			return a.render(result)
		},
	}
	cmd.Flags().StringVarP(&metric, "metric", "m", "", "metric to analyze (default: all metrics)")
	return cmd
}

func newCapacityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "capacity",
		Short: "Plan service capacity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			plan, err := a.engine.CapacityPlan(cmd.Context(), ds.Services)
			if err != nil {
				return err
			}
			return a.render(plan)
		},
	}
}

func newAnomaliesCmd(a *app) *cobra.Command {
	var severity string
	cmd := &cobra.Command{
		Use:     "anomalies",
		Aliases: []string{"anomaly"},
		Short:   "Detect anomalies in current metric values",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sev, err := parseSeverity(severity)
			if err != nil {
				return err
			}
			ds, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := a.engine.AnomalyReport(cmd.Context(), ds.Current, ds.Metrics, sev)
			if err != nil {
				return err
			}
			return a.render(rep)
		},
	}
	cmd.Flags().StringVar(&severity, "severity", "", "only list anomalies of this severity: low|medium|high|critical")
	return cmd
}

func parseSeverity(s string) (policy.Severity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, sev := range policy.Severities {
		if string(sev) == s {
			return sev, nil
		}
	}
	return "", fmt.Errorf("invalid --severity %q (supported: low, medium, high, critical)", s)
}

func newSeasonalityCmd(a *app) *cobra.Command {
	var metric string
	cmd := &cobra.Command{
		Use:   "seasonality",
		Short: "Detect seasonal patterns of a metric",
		Long:  "Profile a metric by hour of day, weekday and week. Sample times come from the dataset's timestamps, or from its start and interval.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			timestamps, err := ds.TimestampsFor(metric)
			if err != nil {
				return err
			}
			pattern, err := a.engine.AnalyzeSeasonalPatterns(cmd.Context(), ds.Metrics[metric], timestamps)
			if err != nil {
				return err
			}
			return a.render(pattern)
		},
	}
	cmd.Flags().StringVarP(&metric, "metric", "m", "", "metric to profile")
	_ = cmd.MarkFlagRequired("metric")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print descriptive statistics per metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			summaries, err := a.engine.CalculateStatistics(cmd.Context(), ds.Metrics)
			if err != nil {
				return err
			}
			return a.render(summaries)
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	var service string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the capacity report of one service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			series, ok := ds.Services[service]
			if !ok {
				return fmt.Errorf("service %q not found in dataset", service)
			}
			rep, err := a.engine.ServiceReport(cmd.Context(), service, series)
			if err != nil {
				return err
			}
			return a.render(rep)
		},
	}
	cmd.Flags().StringVarP(&service, "service", "s", "", "service to report on")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}
