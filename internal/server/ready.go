package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	HealthCheckInterval       = 200 * time.Millisecond
	HealthCheckRequestTimeout = 2 * time.Second
	DefaultReadyTimeout       = time.Minute
)

func (s *Supervisor) waitReady(ctx context.Context) error {
	timeout := s.opts.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	return WaitToBeReady(ctx, timeout, s.opts.ReadyURL, s.Exited())
}

// WaitToBeReady polls url until it answers 200, the exited channel closes or
// timeout elapses.
func WaitToBeReady(ctx context.Context, timeout time.Duration, url string, exited <-chan struct{}) error {
	client := http.Client{
		Timeout: 5 * time.Second,
	}
	deadline := time.Now().Add(timeout)

	var lastErr error

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-exited:
			return errors.New("server exited before becoming ready")
		default:
		}

		reqCtx, cancel := context.WithTimeout(ctx, HealthCheckRequestTimeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, http.NoBody)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to create readiness request: %w", err)
		}

		resp, err := client.Do(req)
		cancel()

		if err != nil {
			lastErr = err
			time.Sleep(HealthCheckInterval)
			continue
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			time.Sleep(HealthCheckInterval)
			continue
		}

		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("server did not become ready in %s: last error: %w", timeout, lastErr)
	}
	return fmt.Errorf("server did not become ready in %s", timeout)
}
