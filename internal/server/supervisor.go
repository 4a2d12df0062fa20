package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	ModeExec   = "exec"
	ModeDocker = "docker"

	maxLineSize = 1 << 20
)

var ErrNotRunning = errors.New("server is not running")

type StartOptions struct {
	Mode string

	// exec mode
	Binary string
	Args   []string
	Dir    string
	Env    []string

	// docker mode
	Image       string
	Name        string
	Port        int
	HostPort    int
	CPULimit    string
	MemoryLimit string

	// ReadyURL is polled after launch until it answers 200.
	ReadyURL     string
	ReadyTimeout time.Duration
	StopTimeout  time.Duration
}

// Supervisor runs the server-under-test as a child process and publishes each
// line of its standard output to a LineHub.
type Supervisor struct {
	opts   StartOptions
	hub    *LineHub
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{}
	waitErr error
}

func NewSupervisor(opts *StartOptions, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Supervisor{
		opts:   *opts,
		hub:    NewLineHub(),
		logger: logger,
	}
}

func (s *Supervisor) Lines() *LineHub {
	return s.hub
}

// Command returns the program and arguments used to launch the server.
func (s *Supervisor) Command() (string, []string, error) {
	switch s.opts.Mode {
	case ModeExec, "":
		if strings.TrimSpace(s.opts.Binary) == "" {
			return "", nil, errors.New("exec mode requires a binary")
		}
		return s.opts.Binary, s.opts.Args, nil

	case ModeDocker:
		if strings.TrimSpace(s.opts.Image) == "" {
			return "", nil, errors.New("docker mode requires an image")
		}
		args := []string{"run", "--rm", "--name", s.containerName()}

		hostPort := s.opts.HostPort
		if hostPort == 0 {
			hostPort = 8042
		}
		containerPort := s.opts.Port
		if containerPort == 0 {
			containerPort = 8042
		}
		args = append(args, "-p", fmt.Sprintf("%d:%d", hostPort, containerPort))

		if s.opts.CPULimit != "" {
			args = append(args, "--cpus="+s.opts.CPULimit)
		}
		if s.opts.MemoryLimit != "" {
			args = append(args, "--memory="+s.opts.MemoryLimit)
		}

		args = append(args, s.opts.Image)
		args = append(args, s.opts.Args...)
		return "docker", args, nil

	default:
		return "", nil, fmt.Errorf("unknown server mode %q", s.opts.Mode)
	}
}

func (s *Supervisor) containerName() string {
	if s.opts.Name != "" {
		return s.opts.Name
	}
	return "viewer-benchmark-server"
}

// Start launches the process, starts pumping its output and waits for the
// readiness URL when one is configured.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cmd != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	name, args, err := s.Command()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	cmd := exec.Command(name, args...) //nolint:gosec // command comes from the operator's config
	cmd.Dir = s.opts.Dir
	if len(s.opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.opts.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to open stderr: %w", err)
	}

	if err = cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	s.cmd = cmd
	s.exited = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("server started", "command", name, "args", args, "pid", cmd.Process.Pid)

	var group errgroup.Group
	group.Go(func() error { return s.pump(stdout, "stdout", s.hub.Publish) })
	group.Go(func() error { return s.pump(stderr, "stderr", nil) })

	go func() {
		pumpErr := group.Wait()
		waitErr := cmd.Wait()
		s.mu.Lock()
		s.waitErr = errors.Join(waitErr, pumpErr)
		s.mu.Unlock()
		s.logger.Info("server exited", "error", s.waitErr)
		close(s.exited)
	}()

	if s.opts.ReadyURL == "" {
		return nil
	}

	if err = s.waitReady(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), s.stopTimeout())
		defer cancel()
		if stopErr := s.Stop(stopCtx); stopErr != nil { //nolint:contextcheck // cleanup must run even if ctx is canceled
			s.logger.Warn("failed to stop server after launch failure", "error", stopErr)
		}
		return err
	}
	return nil
}

func (s *Supervisor) pump(r io.Reader, stream string, publish func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		s.logger.Debug("server_line", "stream", stream, "line", line)
		if publish != nil {
			publish(line)
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("server output no longer parsed", "stream", stream, "error", err)
		// Keep the pipe flowing so the server never blocks on a full buffer.
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("reading server %s: %w", stream, err)
	}
	return nil
}

// Exited is closed once the process has terminated.
func (s *Supervisor) Exited() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

// Stop terminates the server, escalating to a kill when it does not exit
// within the stop timeout.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	exited := s.exited
	s.mu.Unlock()

	if cmd == nil {
		return ErrNotRunning
	}

	select {
	case <-exited:
		return nil
	default:
	}

	stopCtx, cancel := context.WithTimeout(ctx, s.stopTimeout())
	defer cancel()

	if s.opts.Mode == ModeDocker {
		out, err := exec.CommandContext(stopCtx, "docker", "stop", s.containerName()).CombinedOutput() //nolint:gosec // container name is controlled internal value
		if err != nil {
			s.logger.Warn("docker stop failed", "error", err, "output", string(out))
		}
	} else if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		s.logger.Warn("failed to signal server", "error", err)
	}

	select {
	case <-exited:
		return nil
	case <-stopCtx.Done():
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill server: %w", err)
	}
	<-exited
	return nil
}

func (s *Supervisor) stopTimeout() time.Duration {
	if s.opts.StopTimeout <= 0 {
		return 30 * time.Second
	}
	return s.opts.StopTimeout
}
