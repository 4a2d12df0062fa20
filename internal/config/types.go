package config

import "time"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Benchmark BenchmarkConfig `yaml:"benchmark"`
	Output    OutputConfig    `yaml:"output"`
	Influx    InfluxConfig    `yaml:"influx"`
	Cases     []CaseConfig    `yaml:"cases"`
}

type ServerConfig struct {
	Mode         string   `yaml:"mode"`
	Binary       string   `yaml:"binary,omitempty"`
	Args         []string `yaml:"args,omitempty"`
	Dir          string   `yaml:"dir,omitempty"`
	Env          []string `yaml:"env,omitempty"`
	Image        string   `yaml:"image,omitempty"`
	Name         string   `yaml:"name,omitempty"`
	Port         int      `yaml:"port"`
	HostPort     int      `yaml:"host_port"`
	CPU          string   `yaml:"cpu,omitempty"`
	Memory       string   `yaml:"memory,omitempty"`
	ReadyPath    string   `yaml:"ready_path"`
	ReadyTimeout string   `yaml:"ready_timeout"`
	StopTimeout  string   `yaml:"stop_timeout"`

	ReadyTimeoutDuration time.Duration `yaml:"-"`
	StopTimeoutDuration  time.Duration `yaml:"-"`
}

type BenchmarkConfig struct {
	BaseURL    string            `yaml:"base_url"`
	PathPrefix string            `yaml:"path_prefix"`
	Trials     int               `yaml:"trials"`
	Grace      string            `yaml:"grace"`
	EndMarker  string            `yaml:"end_marker,omitempty"`
	Timeout    string            `yaml:"timeout"`
	Cooldown   string            `yaml:"cooldown,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	Qualities  []string          `yaml:"qualities"`
	Gzip       []bool            `yaml:"gzip"`

	GraceDuration    time.Duration `yaml:"-"`
	TimeoutDuration  time.Duration `yaml:"-"`
	CooldownDuration time.Duration `yaml:"-"`
}

type OutputConfig struct {
	CSV        string `yaml:"csv"`
	ResultsDir string `yaml:"results_dir"`
	Report     *bool  `yaml:"report,omitempty"`
	LogDir     string `yaml:"log_dir,omitempty"`
	LogLevel   string `yaml:"log_level,omitempty"`
	// Resources samples the server container's CPU and memory (docker mode).
	Resources bool `yaml:"resources,omitempty"`
}

type InfluxConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
	Token    string `yaml:"token"`

	// ComposeFile, when set, is brought up before the run and down after it.
	ComposeFile    string   `yaml:"compose_file,omitempty"`
	ComposeProject string   `yaml:"compose_project,omitempty"`
	Services       []string `yaml:"services,omitempty"`
	KeepStack      bool     `yaml:"keep_stack,omitempty"`
}

type CaseConfig struct {
	Instance  string   `yaml:"instance"`
	Frame     int      `yaml:"frame"`
	Comment   []string `yaml:"comment,omitempty"`
	Qualities []string `yaml:"qualities,omitempty"`
}

// RuntimeOptions carries the overrides chosen on the command line or in the
// interactive prompt. Zero values keep the configured setting.
type RuntimeOptions struct {
	Trials    int
	Qualities []string
	Gzip      []bool
	CSV       string
}
