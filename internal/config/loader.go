package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"viewer-benchmark/internal/bench"
	"viewer-benchmark/internal/server"
)

const (
	DefaultConfigFile   = "benchmark.yaml"
	DefaultTrials       = bench.DefaultTrialCount
	DefaultGrace        = "1s"
	DefaultTimeout      = "60s"
	DefaultPort         = 8042
	DefaultHostPort     = 5080
	DefaultReadyPath    = "/system"
	DefaultReadyTimeout = "60s"
	DefaultStopTimeout  = "30s"
	DefaultCSV          = "file.csv"
	DefaultResultsDir   = "results"
	DefaultLogLevel     = "warn"
)

func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename) //nolint:gosec // config file path is controlled
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := applyDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}
	if err := applyServerDefaults(&cfg.Server); err != nil {
		return err
	}
	if err := applyBenchmarkDefaults(&cfg.Benchmark, &cfg.Server); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Output.CSV) == "" {
		cfg.Output.CSV = DefaultCSV
	}
	if strings.TrimSpace(cfg.Output.ResultsDir) == "" {
		cfg.Output.ResultsDir = DefaultResultsDir
	}
	if cfg.Output.Report == nil {
		report := true
		cfg.Output.Report = &report
	}
	if strings.TrimSpace(cfg.Output.LogLevel) == "" {
		cfg.Output.LogLevel = DefaultLogLevel
	}

	if cfg.Influx.Enabled {
		if cfg.Influx.URL == "" {
			cfg.Influx.URL = "http://localhost:8181"
		}
		if cfg.Influx.Database == "" {
			cfg.Influx.Database = "benchmarks"
		}
		if cfg.Influx.Token == "" {
			cfg.Influx.Token = os.Getenv("INFLUX_TOKEN")
		}
		if cfg.Influx.ComposeFile != "" && len(cfg.Influx.Services) == 0 {
			cfg.Influx.Services = []string{"influxdb"}
		}
	}

	if cfg.Output.Resources && cfg.Server.Mode != server.ModeDocker {
		return errors.New("output resources requires server mode docker")
	}

	if len(cfg.Cases) == 0 {
		return errors.New("no cases defined")
	}
	for i := range cfg.Cases {
		if err := validateCase(&cfg.Cases[i]); err != nil {
			return fmt.Errorf("case[%d]: %w", i, err)
		}
	}

	return nil
}

func applyServerDefaults(s *ServerConfig) error {
	if strings.TrimSpace(s.Mode) == "" {
		s.Mode = server.ModeExec
	}

	switch s.Mode {
	case server.ModeExec:
		if strings.TrimSpace(s.Binary) == "" {
			return errors.New("server binary is required in exec mode")
		}
	case server.ModeDocker:
		if strings.TrimSpace(s.Image) == "" {
			return errors.New("server image is required in docker mode")
		}
		if s.CPU != "" {
			if err := validateCpu(s.CPU); err != nil {
				return fmt.Errorf("server cpu: %w", err)
			}
		}
		if s.Memory != "" {
			normalized, err := normalizeMemoryLimit(s.Memory)
			if err != nil {
				return fmt.Errorf("server memory: %w", err)
			}
			s.Memory = normalized
		}
	default:
		return fmt.Errorf("unknown server mode %q", s.Mode)
	}

	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.HostPort == 0 {
		s.HostPort = DefaultHostPort
	}
	for name, port := range map[string]int{"port": s.Port, "host_port": s.HostPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("server %s must be between 0 and 65535", name)
		}
	}

	if strings.TrimSpace(s.ReadyPath) == "" {
		s.ReadyPath = DefaultReadyPath
	}

	var err error
	if s.ReadyTimeoutDuration, err = parseDuration(s.ReadyTimeout, DefaultReadyTimeout); err != nil {
		return fmt.Errorf("server ready_timeout: %w", err)
	}
	if s.StopTimeoutDuration, err = parseDuration(s.StopTimeout, DefaultStopTimeout); err != nil {
		return fmt.Errorf("server stop_timeout: %w", err)
	}
	return nil
}

func applyBenchmarkDefaults(b *BenchmarkConfig, s *ServerConfig) error {
	if strings.TrimSpace(b.BaseURL) == "" {
		b.BaseURL = defaultBaseURL(s)
	}
	if _, err := url.ParseRequestURI(b.BaseURL); err != nil {
		return fmt.Errorf("benchmark base_url: %w", err)
	}

	if strings.TrimSpace(b.PathPrefix) == "" {
		b.PathPrefix = bench.DefaultPathPrefix
	}

	if b.Trials < 0 {
		return errors.New("benchmark trials must be >= 1")
	}
	if b.Trials == 0 {
		b.Trials = DefaultTrials
	}

	var err error
	if b.GraceDuration, err = parseDuration(b.Grace, DefaultGrace); err != nil {
		return fmt.Errorf("benchmark grace: %w", err)
	}
	if b.TimeoutDuration, err = parseDuration(b.Timeout, DefaultTimeout); err != nil {
		return fmt.Errorf("benchmark timeout: %w", err)
	}
	if b.CooldownDuration, err = parseDuration(b.Cooldown, ""); err != nil {
		return fmt.Errorf("benchmark cooldown: %w", err)
	}

	if len(b.Qualities) == 0 {
		for _, q := range bench.Qualities {
			b.Qualities = append(b.Qualities, string(q))
		}
	}
	if b.Qualities, err = normalizeQualities(b.Qualities); err != nil {
		return fmt.Errorf("benchmark qualities: %w", err)
	}

	if len(b.Gzip) == 0 {
		b.Gzip = []bool{false}
	}
	return nil
}

func defaultBaseURL(s *ServerConfig) string {
	port := s.Port
	if s.Mode == server.ModeDocker {
		port = s.HostPort
	}
	return fmt.Sprintf("http://localhost:%d", port)
}

func validateCase(c *CaseConfig) error {
	c.Instance = strings.TrimSpace(c.Instance)
	if c.Instance == "" {
		return errors.New("instance is required")
	}
	if strings.Contains(c.Instance, "/") {
		return fmt.Errorf("instance %q must not contain '/'", c.Instance)
	}
	if c.Frame < 0 {
		return fmt.Errorf("frame must be >= 0, got %d", c.Frame)
	}
	if len(c.Qualities) > 0 {
		normalized, err := normalizeQualities(c.Qualities)
		if err != nil {
			return err
		}
		c.Qualities = normalized
	}
	return nil
}

func normalizeQualities(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		q, err := bench.ParseQuality(v)
		if err != nil {
			return nil, err
		}
		out = append(out, string(q))
	}
	return out, nil
}
