package stack

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultProject        = "viewer-benchmark-metrics"
	HealthCheckInterval   = 2 * time.Second
	DefaultHealthyTimeout = 2 * time.Minute
)

// Runner executes a docker command and returns its combined output.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

func dockerRunner(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "docker", args...).CombinedOutput() //nolint:gosec // args are controlled internal values
}

// ComposeManager brings the metrics stack (InfluxDB and its dashboards) up
// and down around a run.
type ComposeManager struct {
	file    string
	project string
	run     Runner
}

func NewComposeManager(file, project string, run Runner) *ComposeManager {
	if project == "" {
		project = DefaultProject
	}
	if run == nil {
		run = dockerRunner
	}
	return &ComposeManager{file: file, project: project, run: run}
}

func (m *ComposeManager) Project() string {
	return m.project
}

// Up starts the stack from a clean state.
func (m *ComposeManager) Up(ctx context.Context) error {
	_ = m.Down(ctx)
	if out, err := m.run(ctx, "compose", "-f", m.file, "-p", m.project, "up", "-d"); err != nil {
		return fmt.Errorf("docker compose up failed for %s: %w\noutput: %s", m.project, err, out)
	}
	return nil
}

func (m *ComposeManager) Down(ctx context.Context) error {
	if out, err := m.run(ctx, "compose", "-f", m.file, "-p", m.project, "down"); err != nil {
		return fmt.Errorf("docker compose down failed for %s: %w\noutput: %s", m.project, err, out)
	}
	return nil
}

// WaitHealthy polls the stack until every required service reports healthy.
func (m *ComposeManager) WaitHealthy(ctx context.Context, timeout time.Duration, services []string) error {
	if len(services) == 0 {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultHealthyTimeout
	}
	deadline := time.Now().Add(timeout)

	var lastErr error

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		healthy, err := m.checkServicesHealth(ctx, services)
		if err != nil {
			lastErr = err
		} else if healthy {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(HealthCheckInterval):
		}
	}

	if lastErr != nil {
		return fmt.Errorf("services did not become healthy within %s: %w", timeout, lastErr)
	}
	return fmt.Errorf("services did not become healthy within %s", timeout)
}

type composeService struct {
	Name   string `json:"Name"`
	State  string `json:"State"`
	Health string `json:"Health"`
}

func (m *ComposeManager) checkServicesHealth(ctx context.Context, services []string) (bool, error) {
	out, err := m.run(ctx, "compose", "-p", m.project, "ps", "--format", "json")
	if err != nil {
		return false, fmt.Errorf("docker compose ps failed: %w\noutput: %s", err, out)
	}

	running, err := parseComposeServices(out)
	if err != nil {
		return false, fmt.Errorf("failed to parse compose ps output: %w", err)
	}

	health := make(map[string]string, len(running))
	for _, svc := range running {
		status := svc.Health
		if status == "" && svc.State == "running" {
			status = "healthy"
		}
		health[extractServiceName(svc.Name, m.project)] = status
	}

	for _, required := range services {
		status, ok := health[required]
		if !ok {
			return false, fmt.Errorf("service %s not found in compose stack", required)
		}
		if status != "healthy" {
			return false, nil
		}
	}
	return true, nil
}

// parseComposeServices reads `docker compose ps --format json`, which prints
// one JSON object per line.
func parseComposeServices(data []byte) ([]composeService, error) {
	var services []composeService
	for line := range strings.Lines(strings.TrimSpace(string(data))) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var svc composeService
		if err := json.Unmarshal([]byte(line), &svc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal service JSON: %w", err)
		}
		services = append(services, svc)
	}
	return services, nil
}

// extractServiceName turns "project-influxdb-1" into "influxdb".
func extractServiceName(containerName, project string) string {
	name, found := strings.CutPrefix(containerName, project+"-")
	if !found {
		return containerName
	}
	if idx := strings.LastIndex(name, "-"); idx > 0 {
		return name[:idx]
	}
	return name
}
