package config

import (
	"slices"
	"strings"

	"viewer-benchmark/internal/bench"
	"viewer-benchmark/internal/server"
)

// Resolve expands the configured cases into the ordered list of case specs to
// measure: for each gzip mode, for each quality, every case in file order.
// A case listing its own qualities is only measured for those.
func Resolve(cfg *Config) []bench.CaseSpec {
	specs := make([]bench.CaseSpec, 0, len(cfg.Benchmark.Gzip)*len(cfg.Benchmark.Qualities)*len(cfg.Cases))
	for _, gzip := range cfg.Benchmark.Gzip {
		for _, quality := range cfg.Benchmark.Qualities {
			for _, c := range cfg.Cases {
				if len(c.Qualities) > 0 && !slices.Contains(c.Qualities, quality) {
					continue
				}
				specs = append(specs, bench.CaseSpec{
					Instance: c.Instance,
					Frame:    c.Frame,
					Quality:  bench.Quality(quality),
					Comment:  slices.Clone(c.Comment),
					Gzip:     gzip,
				})
			}
		}
	}
	return specs
}

// ApplyRuntimeOptions overrides the configured trials, qualities, gzip modes
// and CSV path with the non-zero values of opts.
func ApplyRuntimeOptions(cfg *Config, opts RuntimeOptions) error {
	if opts.Trials > 0 {
		cfg.Benchmark.Trials = opts.Trials
	}
	if len(opts.Qualities) > 0 {
		qualities, err := normalizeQualities(opts.Qualities)
		if err != nil {
			return err
		}
		cfg.Benchmark.Qualities = qualities
	}
	if len(opts.Gzip) > 0 {
		cfg.Benchmark.Gzip = slices.Clone(opts.Gzip)
	}
	if strings.TrimSpace(opts.CSV) != "" {
		cfg.Output.CSV = opts.CSV
	}
	return nil
}

// StartOptions builds the supervisor settings for the configured server.
func StartOptions(cfg *Config) *server.StartOptions {
	s := cfg.Server
	return &server.StartOptions{
		Mode:         s.Mode,
		Binary:       s.Binary,
		Args:         slices.Clone(s.Args),
		Dir:          s.Dir,
		Env:          slices.Clone(s.Env),
		Image:        s.Image,
		Name:         s.Name,
		Port:         s.Port,
		HostPort:     s.HostPort,
		CPULimit:     s.CPU,
		MemoryLimit:  s.Memory,
		ReadyURL:     strings.TrimRight(cfg.Benchmark.BaseURL, "/") + "/" + strings.TrimLeft(s.ReadyPath, "/"),
		ReadyTimeout: s.ReadyTimeoutDuration,
		StopTimeout:  s.StopTimeoutDuration,
	}
}
