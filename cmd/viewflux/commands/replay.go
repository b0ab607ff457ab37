// Package commands implements CLI command handlers for viewflux.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/config"
	"github.com/viewflux/viewflux/pkg/observability"
	"github.com/viewflux/viewflux/pkg/router"
	"github.com/viewflux/viewflux/pkg/views"
)

// ReplayCommand holds configuration and dependencies for the replay command.
type ReplayCommand struct {
	configPath string
	noColor    bool
	writer     io.Writer
}

// NewReplayCommand creates the replay command.
func NewReplayCommand() *cobra.Command {
	replay := &ReplayCommand{writer: os.Stdout}

	cmd := &cobra.Command{
		Use:   "replay scenario",
		Short: "Replay an edit scenario through a view pipeline",
		Long: `Replay an edit scenario through a view pipeline.

A scenario file names a source array, a pipeline of derived views and a
sequence of edits. Replay feeds the edits through the pipeline and prints
every edit script the final view emits, plus its resulting snapshot.

Examples:
  viewflux replay even-filter            # Resolved in the scenario directory
  viewflux replay ./scenarios/sort.yaml  # Explicit path`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return replay.Run(args[0])
		},
	}

	cmd.Flags().StringVarP(&replay.configPath, "config", "c", "", "config file path")
	cmd.Flags().BoolVar(&replay.noColor, "no-color", false, "disable colored output")

	return cmd
}

// Run executes the replay for the named scenario.
func (rc *ReplayCommand) Run(scenarioName string) error {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return err
	}

	providers, err := observability.Init(observability.Config{
		ServiceName:    "viewflux",
		LogLevel:       parseLogLevel(cfg.Logging.Level),
		LogJSON:        cfg.Logging.Format == "json",
		MetricsEnabled: cfg.Metrics.Enabled,
	})
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Error("observability shutdown failed", slog.Any("error", shutdownErr))
		}
	}()

	scenario, err := LoadScenario(scenarioName, cfg.Replay.ScenarioDir)
	if err != nil {
		return err
	}

	return rc.replay(scenario, cfg, providers)
}

// transactionRecord captures one committed transaction on the final view.
type transactionRecord struct {
	changes []string
	opCount int
	took    time.Duration
}

func (rc *ReplayCommand) replay(
	scenario *Scenario, cfg *config.Config, providers observability.Providers,
) error {
	metrics, err := observability.NewEngineMetrics(providers.Meter)
	if err != nil {
		return err
	}

	pipeline, session, err := BuildPipeline(scenario, cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	logger := providers.Logger.With(slog.String("scenario", scenario.Name))
	logger.InfoContext(ctx, "replaying scenario",
		slog.Int("stages", len(scenario.Pipeline)),
		slog.Int("steps", len(scenario.Steps)),
	)

	var (
		records []transactionRecord
		current transactionRecord
		started time.Time
	)

	untrack := metrics.TrackListener(ctx, scenario.Name)
	defer untrack()

	handle := pipeline.Subscribe(func(event router.Event[change.ArrayChange[int]]) {
		switch event.Kind {
		case router.KindBegin:
			current = transactionRecord{}
			started = time.Now()
		case router.KindChange:
			current.changes = append(current.changes, event.Change.String())
			current.opCount += len(event.Change.Ops())
		case router.KindEnd:
			current.took = time.Since(started)
			records = append(records, current)
			metrics.RecordTransaction(ctx, scenario.Name, current.opCount, current.took)
		}
	})
	defer pipeline.Unsubscribe(handle)

	for _, step := range scenario.Steps {
		stepErr := session.Edit(step)
		if stepErr != nil {
			return stepErr
		}
	}

	rc.render(scenario, pipeline, records, cfg)

	if providers.Registry != nil {
		families, gatherErr := providers.Registry.Gather()
		if gatherErr != nil {
			return fmt.Errorf("gather metrics: %w", gatherErr)
		}

		logger.InfoContext(ctx, "metrics gathered", slog.Int("families", len(families)))
	}

	return nil
}

func (rc *ReplayCommand) render(
	scenario *Scenario, pipeline views.Array[int], records []transactionRecord, cfg *config.Config,
) {
	header := color.New(color.FgCyan, color.Bold)
	if rc.noColor {
		header.DisableColor()
	}

	header.Fprintf(rc.writer, "=== %s ===\n", scenario.Name)

	if scenario.Description != "" {
		fmt.Fprintln(rc.writer, scenario.Description)
	}

	if cfg.Replay.ShowTables {
		tw := table.NewWriter()
		tw.SetOutputMirror(rc.writer)
		tw.AppendHeader(table.Row{"#", "Ops", "Took", "Emitted"})

		for idx, record := range records {
			emitted := "(empty)"
			if len(record.changes) > 0 {
				emitted = record.changes[0]
				for _, extra := range record.changes[1:] {
					emitted += "; " + extra
				}
			}

			tw.AppendRow(table.Row{idx + 1, record.opCount, record.took.Round(time.Microsecond), emitted})
		}

		tw.Render()
	} else {
		for idx, record := range records {
			fmt.Fprintf(rc.writer, "tx %d: %d ops in %s\n", idx+1, record.opCount, record.took)

			for _, line := range record.changes {
				fmt.Fprintf(rc.writer, "  %s\n", line)
			}
		}
	}

	fmt.Fprintf(rc.writer, "result (%s elements): %v\n",
		humanize.Comma(int64(pipeline.Count())), pipeline.Snapshot())
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
