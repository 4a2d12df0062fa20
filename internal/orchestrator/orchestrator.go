package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"viewer-benchmark/internal/bench"
	"viewer-benchmark/internal/cli"
	"viewer-benchmark/internal/config"
	"viewer-benchmark/internal/influx"
	"viewer-benchmark/internal/server"
	"viewer-benchmark/internal/stack"
	"viewer-benchmark/internal/summary"
)

type Options struct {
	// Progress shows a live spinner instead of one line per case.
	Progress bool
	Out      io.Writer
}

type Orchestrator struct {
	cfg    *config.Config
	specs  []bench.CaseSpec
	opts   Options
	logger *slog.Logger
	writer *summary.Writer
	runID  string
}

func New(cfg *config.Config, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Orchestrator{
		cfg:    cfg,
		specs:  config.Resolve(cfg),
		opts:   opts,
		logger: logger,
		writer: summary.NewWriter(cfg.Output.ResultsDir, cfg.Benchmark.BaseURL),
		runID:  influx.RunID(time.Now()),
	}
}

func (o *Orchestrator) Specs() []bench.CaseSpec {
	return o.specs
}

// Run measures every case against a freshly launched server and exports the
// results. Any failure aborts the run before anything is exported.
func (o *Orchestrator) Run(ctx context.Context) error {
	if len(o.specs) == 0 {
		return fmt.Errorf("no case to measure")
	}

	if o.cfg.Influx.Enabled && o.cfg.Influx.ComposeFile != "" {
		compose := stack.NewComposeManager(o.cfg.Influx.ComposeFile, o.cfg.Influx.ComposeProject, nil)
		if err := o.startStack(ctx, compose); err != nil {
			return err
		}
		if !o.cfg.Influx.KeepStack {
			defer o.stopStack(compose) //nolint:contextcheck // cleanup must run even if ctx is canceled
		}
	}

	return o.run(ctx, server.NewSupervisor(config.StartOptions(o.cfg), o.logger))
}

func (o *Orchestrator) run(ctx context.Context, srv bench.Server) error {
	run, err := o.runCases(ctx, srv)
	if err != nil {
		return err
	}
	return o.export(ctx, run)
}

func (o *Orchestrator) startStack(ctx context.Context, compose *stack.ComposeManager) error {
	cli.Section("Metrics stack")
	cli.Infof("Starting %s...", compose.Project())
	if err := compose.Up(ctx); err != nil {
		return err
	}
	if err := compose.WaitHealthy(ctx, stack.DefaultHealthyTimeout, o.cfg.Influx.Services); err != nil {
		o.stopStack(compose) //nolint:contextcheck // cleanup must run even if ctx is canceled
		return err
	}
	cli.Successf("Metrics stack ready")
	return nil
}

func (o *Orchestrator) stopStack(compose *stack.ComposeManager) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	cli.Infof("Stopping %s...", compose.Project())
	if err := compose.Down(ctx); err != nil {
		cli.Warnf("Failed to stop metrics stack: %v", err)
	}
}

func (o *Orchestrator) export(ctx context.Context, run *runResult) error {
	cases := run.cases

	if *o.cfg.Output.Report {
		cli.Section("Report")
		if err := run.suite.Report(o.opts.Out); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		for _, c := range cases {
			fmt.Fprintf(o.opts.Out, "\n%s %s\n", c.Path, c.Comment())
			if err := summary.PrintStageTable(o.opts.Out, c); err != nil {
				return err
			}
		}
	}

	cli.Section("Summary")
	if err := summary.PrintCaseTable(o.opts.Out, cases); err != nil {
		return err
	}
	if run.resources != nil {
		cli.Linef("Memory: %s (max %s)  CPU: %s (max %s)",
			cli.FormatMemory(run.resources.Memory.Avg), cli.FormatMemory(run.resources.Memory.Max),
			cli.FormatCPU(run.resources.CPU.Avg, run.resources.Samples), cli.FormatCPU(run.resources.CPU.Max, run.resources.Samples))
		for _, w := range run.resources.Warnings {
			cli.Warnf("%s", w)
		}
	}

	if err := run.suite.ExportCSV(o.cfg.Output.CSV); err != nil {
		return err
	}
	cli.Successf("Appended %d rows to %s", len(cases), o.cfg.Output.CSV)

	path, err := o.writer.ExportResults(cases, o.cfg.Benchmark.Trials, run.resources)
	if err != nil {
		return err
	}
	cli.Infof("Results: %s", path)

	if o.cfg.Influx.Enabled {
		o.exportInflux(ctx, cases)
	}
	return nil
}

// exportInflux is best effort: the CSV and JSON results are already written.
func (o *Orchestrator) exportInflux(ctx context.Context, cases []*bench.Case) {
	client, err := influx.NewClient(influx.Config{
		Enabled:  true,
		URL:      o.cfg.Influx.URL,
		Database: o.cfg.Influx.Database,
		Token:    o.cfg.Influx.Token,
	}, o.logger)
	if err != nil {
		cli.Warnf("InfluxDB export disabled: %v", err)
		return
	}
	defer func() { _ = client.Close() }()

	if err = client.WriteCases(ctx, o.runID, cases); err != nil {
		cli.Warnf("InfluxDB export failed: %v", err)
		return
	}
	cli.Infof("Exported metrics to InfluxDB (run: %s)", o.runID)
}
