package orchestrator

import (
	"context"
	"fmt"
	"time"

	"viewer-benchmark/internal/bench"
	"viewer-benchmark/internal/cli"
	"viewer-benchmark/internal/client"
	"viewer-benchmark/internal/server"
)

type runResult struct {
	suite     *bench.Suite
	cases     []*bench.Case
	resources *server.ResourceStats
}

// runCases launches the server, measures every case in order and stops the
// server again. The first failing case aborts the run.
func (o *Orchestrator) runCases(ctx context.Context, srv bench.Server) (*runResult, error) {
	bc := o.cfg.Benchmark

	httpClient := client.New(bc.BaseURL, bc.TimeoutDuration, bc.Headers)
	defer httpClient.Close()

	var spinner *cli.ProgressSpinner
	if o.opts.Progress {
		spinner = cli.NewProgressSpinner(o.opts.Out)
	}

	cli.Section("Server")
	cli.Infof("Launching server-under-test...")

	suite, err := bench.Open(ctx, srv, httpClient, bench.Options{
		TrialCount: bc.Trials,
		PathPrefix: bc.PathPrefix,
		Grace:      bc.GraceDuration,
		EndMarker:  bc.EndMarker,
		OnTrial: func(spec bench.CaseSpec, trial, _ int) {
			if spinner != nil {
				spinner.UpdateTrial(spec.Path(bc.PathPrefix), trial)
			}
		},
		Logger: o.logger,
	})
	if err != nil {
		return nil, err
	}
	defer stopSuite(suite) //nolint:contextcheck // intentionally uses fresh context for cleanup after cancellation
	cli.Successf("Ready at %s", httpClient.BaseURL())

	var sampler *server.ResourceSampler
	if sup, ok := srv.(*server.Supervisor); ok && o.cfg.Output.Resources && sup.ContainerName() != "" {
		sampler = server.NewResourceSampler(sup.ContainerName(), nil)
		sampler.Start(ctx)
	}

	cli.Section("Cases")
	if spinner != nil {
		spinner.Start(len(o.specs), suite.TrialCount())
	}

	cases, err := o.measure(ctx, suite, spinner)
	if spinner != nil {
		spinner.Stop()
	}

	result := &runResult{suite: suite, cases: cases}
	if sampler != nil {
		stats := sampler.Stop()
		result.resources = &stats
	}
	if err != nil {
		return nil, err
	}

	stopSuite(suite) //nolint:contextcheck // intentionally uses fresh context for cleanup after cancellation
	return result, nil
}

func (o *Orchestrator) measure(ctx context.Context, suite *bench.Suite, spinner *cli.ProgressSpinner) ([]*bench.Case, error) {
	cooldown := o.cfg.Benchmark.CooldownDuration
	prefix := o.cfg.Benchmark.PathPrefix

	for i, spec := range o.specs {
		if spinner == nil {
			cli.CaseHeader(i+1, len(o.specs), spec.Path(prefix), spec.Gzip)
		}

		c, err := suite.AddCase(ctx, spec)
		if err != nil {
			if spinner == nil {
				cli.Failf("%v", err)
				cli.CaseFooter()
			}
			return nil, fmt.Errorf("case %d/%d: %w", i+1, len(o.specs), err)
		}

		if spinner != nil {
			spinner.CaseDone(i + 1)
		} else {
			total, _ := c.Averages().Get(bench.TotalClientTime)
			cli.Successf("%d trials, %d keys, client avg %s", c.TrialCount(), c.Averages().Len(), cli.FormatMillis(total))
			cli.CaseFooter()
		}

		if cooldown > 0 && i < len(o.specs)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cooldown):
			}
		}
	}
	return suite.Cases(), nil
}

func stopSuite(suite *bench.Suite) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := suite.Close(ctx); err != nil {
		cli.Warnf("Failed to stop server: %v", err)
	}
}
