package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kubilitics/kubilitics-predict/internal/analytics"
	"github.com/kubilitics/kubilitics-predict/internal/config"
	"github.com/kubilitics/kubilitics-predict/internal/logging"
	"github.com/kubilitics/kubilitics-predict/internal/source"
	"github.com/kubilitics/kubilitics-predict/internal/version"
)

type app struct {
	configPath string
	input      string
	output     string
	logLevel   string

	manager config.ConfigManager
	cfg     *config.Config
	logger  *zap.Logger
	engine  *analytics.Engine

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewRootCommandWithIO(in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newRootCommand(in, out, errOut)
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{
		stdin:  in,
		stdout: out,
		stderr: errOut,
	}

	cmd := &cobra.Command{
		Use:           "kubilitics-predict",
		Short:         "Predictive capacity and anomaly analytics for Kubilitics",
		Long:          "kubilitics-predict forecasts utilization trends, sizes service capacity, flags anomalies and detects seasonal load patterns from metric histories.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the config file (default "+config.DefaultConfigPath+")")
	cmd.PersistentFlags().StringVarP(&a.input, "input", "f", "-", "dataset file (YAML or JSON), - for stdin")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "output format: json|yaml")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		newTrendCmd(a),
		newCapacityCmd(a),
		newAnomaliesCmd(a),
		newSeasonalityCmd(a),
		newSummaryCmd(a),
		newReportCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)

	cmd.SetVersionTemplate(fmt.Sprintf("kubilitics-predict {{.Version}} (commit %s, built %s)\n", version.Commit, version.BuildDate))

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		switch strings.ToLower(strings.TrimSpace(a.output)) {
		case "json", "yaml":
		default:
			return fmt.Errorf("unsupported --output %q (supported: json, yaml)", a.output)
		}
		return a.init(cmd.Context())
	}
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if a.logger != nil {
			_ = a.logger.Sync()
		}
	}

	return cmd
}

// init loads configuration and builds the logger and engine.
func (a *app) init(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mgr, err := config.NewConfigManager(a.configPath)
	if err != nil {
		return err
	}
	if err := mgr.Load(ctx); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := mgr.Validate(ctx); err != nil {
		return err
	}
	cfg := mgr.Get(ctx)

	logCfg := cfg.LoggingConfig()
	if a.logLevel != "" {
		logCfg.Level = a.logLevel
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}

	a.manager = mgr
	a.cfg = cfg
	a.logger = logger
	a.engine = analytics.NewEngine(logger, cfg.Policy())
	return nil
}

func (a *app) dataSource() *source.File {
	return &source.File{Path: a.input, Stdin: a.stdin}
}

func (a *app) loadDataset(ctx context.Context) (*source.Dataset, error) {
	ds, err := a.dataSource().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return ds, nil
}

// render writes v to stdout in the selected output format.
func (a *app) render(v any) error {
	switch strings.ToLower(strings.TrimSpace(a.output)) {
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}
