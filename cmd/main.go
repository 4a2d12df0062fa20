package main

import (
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"viewer-benchmark/internal/cli"
	"viewer-benchmark/internal/config"
	"viewer-benchmark/internal/logging"
	"viewer-benchmark/internal/orchestrator"
)

var (
	configFile string
	trials     int
	qualities  []string
	gzipModes  []string
	csvPath    string
	logLevel   string
	noPrompt   bool

	rootCmd = &cobra.Command{
		Use:   "viewer-benchmark",
		Short: "Measure frame decoding stages of a medical image viewer server",
		Long: `Launches the server-under-test, requests every configured frame several
times and correlates the BENCH timing lines the server logs with each request.
Averaged timings are appended to a CSV file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", config.DefaultConfigFile, "Path to the YAML configuration")
	rootCmd.Flags().IntVarP(&trials, "trials", "n", 0, "Trials per case (overrides config)")
	rootCmd.Flags().StringSliceVarP(&qualities, "qualities", "q", nil, "Quality tiers: low, medium, high, pixeldata")
	rootCmd.Flags().StringSliceVar(&gzipModes, "gzip", nil, "Gzip modes to measure: false, true or both")
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "CSV file to append results to (overrides config)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Never show the interactive prompt")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		cli.Failf("%v", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	opts, err := runtimeOptions(cmd, cfg, interactive)
	if err != nil {
		return err
	}
	if err = config.ApplyRuntimeOptions(cfg, *opts); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Output.LogLevel = logLevel
	}

	logger, closer, err := logging.New(logging.Config{
		Level:   cfg.Output.LogLevel,
		Dir:     cfg.Output.LogDir,
		Service: "viewer-benchmark",
	})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	o := orchestrator.New(cfg, logger, orchestrator.Options{Progress: interactive})
	cli.PrintConfig(cfg, len(o.Specs()))

	return o.Run(ctx)
}

// runtimeOptions reads overrides from flags, falling back to the interactive
// prompt when no override flag was given on a terminal.
func runtimeOptions(cmd *cobra.Command, cfg *config.Config, interactive bool) (*config.RuntimeOptions, error) {
	flags := cmd.Flags()
	explicit := flags.Changed("trials") || flags.Changed("qualities") || flags.Changed("gzip") || flags.Changed("csv")

	if explicit || noPrompt || !interactive {
		gzip, err := parseGzipModes(gzipModes)
		if err != nil {
			return nil, err
		}
		return &config.RuntimeOptions{
			Trials:    trials,
			Qualities: qualities,
			Gzip:      gzip,
			CSV:       csvPath,
		}, nil
	}

	cli.PrintBanner()
	opts, err := cli.PromptOptions(cfg)
	if err != nil {
		return nil, err
	}

	preview := *cfg
	if err = config.ApplyRuntimeOptions(&preview, *opts); err != nil {
		return nil, err
	}
	cli.PrintSummary(&preview, len(config.Resolve(&preview)))
	return opts, nil
}

func parseGzipModes(values []string) ([]bool, error) {
	var modes []bool
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "both" {
			modes = append(modes, false, true)
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		modes = append(modes, b)
	}
	return modes, nil
}
