package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
)

const (
	DockerSocket       = "/var/run/docker.sock"
	minReliableSamples = 3
)

// ResourceStats summarizes the container's memory and CPU usage over a run.
type ResourceStats struct {
	Memory   Spread   `json:"memory_bytes"`
	CPU      Spread   `json:"cpu_percent"`
	Samples  int      `json:"samples"`
	Warnings []string `json:"warnings,omitempty"`
}

type Spread struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

type cpuStatsBlock struct {
	SystemCPUUsage uint64 `json:"system_cpu_usage"`
	OnlineCPUs     int    `json:"online_cpus"`
	CPUUsage       struct {
		TotalUsage uint64 `json:"total_usage"`
	} `json:"cpu_usage"`
}

type dockerStats struct {
	MemoryStats struct {
		Usage uint64 `json:"usage"`
	} `json:"memory_stats"`
	CPUStats    cpuStatsBlock `json:"cpu_stats"`
	PreCPUStats cpuStatsBlock `json:"precpu_stats"`
}

// StatsStream opens the streaming stats endpoint of a container.
type StatsStream func(ctx context.Context, container string) (io.ReadCloser, error)

// DockerStatsStream reads container stats from the docker engine socket.
func DockerStatsStream(socket string) StatsStream {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		},
	}
	return func(ctx context.Context, container string) (io.ReadCloser, error) {
		url := fmt.Sprintf("http://localhost/containers/%s/stats?stream=true", container)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("docker stats %s: unexpected status %d", container, resp.StatusCode)
		}
		return resp.Body, nil
	}
}

// ResourceSampler collects memory and CPU samples of the server container
// while the benchmark runs.
type ResourceSampler struct {
	container string
	open      StatsStream

	mu      sync.Mutex
	memory  []float64
	cpu     []float64
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

func NewResourceSampler(container string, open StatsStream) *ResourceSampler {
	if open == nil {
		open = DockerStatsStream(DockerSocket)
	}
	return &ResourceSampler{container: container, open: open}
}

func (r *ResourceSampler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	streamCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.doneCh = make(chan struct{})

	go r.stream(streamCtx, r.doneCh)
}

// Stop ends sampling and returns the aggregated statistics.
func (r *ResourceSampler) Stop() ResourceStats {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ResourceStats{}
	}
	r.running = false
	cancel, done := r.cancel, r.doneCh
	r.mu.Unlock()

	cancel()
	<-done
	return r.aggregate()
}

func (r *ResourceSampler) stream(ctx context.Context, done chan struct{}) {
	defer close(done)

	body, err := r.open(ctx, r.container)
	if err != nil {
		return
	}
	defer func() { _ = body.Close() }()

	go func() {
		<-ctx.Done()
		_ = body.Close()
	}()

	decoder := json.NewDecoder(body)
	for {
		var stats dockerStats
		if err := decoder.Decode(&stats); err != nil {
			return
		}
		r.processSample(&stats)
	}
}

func (r *ResourceSampler) processSample(stats *dockerStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.memory = append(r.memory, float64(stats.MemoryStats.Usage))

	curr, prev := stats.CPUStats, stats.PreCPUStats
	cpus := max(curr.OnlineCPUs, 1)

	if curr.SystemCPUUsage > prev.SystemCPUUsage && curr.CPUUsage.TotalUsage >= prev.CPUUsage.TotalUsage {
		cpuDelta := float64(curr.CPUUsage.TotalUsage - prev.CPUUsage.TotalUsage)
		sysDelta := float64(curr.SystemCPUUsage - prev.SystemCPUUsage)
		percent := min(cpuDelta/sysDelta*float64(cpus)*100, float64(cpus)*100)
		r.cpu = append(r.cpu, percent)
	}
}

func (r *ResourceSampler) aggregate() ResourceStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := ResourceStats{
		Memory:  spread(r.memory),
		CPU:     spread(r.cpu),
		Samples: len(r.memory),
	}
	if result.Samples < minReliableSamples {
		result.Warnings = append(result.Warnings, "low samples")
	}
	return result
}

func spread(values []float64) Spread {
	if len(values) == 0 {
		return Spread{}
	}
	s := Spread{Min: values[0], Max: values[0]}
	var total float64
	for _, v := range values {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		total += v
	}
	s.Avg = total / float64(len(values))
	return s
}

// ContainerName is the docker container name the server runs under, empty in
// exec mode.
func (s *Supervisor) ContainerName() string {
	if s.opts.Mode != ModeDocker {
		return ""
	}
	return s.containerName()
}
