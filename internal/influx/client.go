package influx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/InfluxCommunity/influxdb3-go/influxdb3"
)

const writeBatchSize = 5000

// Client wraps InfluxDB write operations.
type Client struct {
	client   *influxdb3.Client
	database string
	logger   *slog.Logger
}

// NewClient returns nil when the export is disabled.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     cfg.URL,
		Token:    cfg.Token,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create influxdb client: %w", err)
	}

	return &Client{client: client, database: cfg.Database, logger: logger}, nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) write(ctx context.Context, records []record) error {
	points := make([]*influxdb3.Point, 0, min(len(records), writeBatchSize))
	for _, r := range records {
		points = append(points, influxdb3.NewPoint(r.measurement, r.tags, r.fields, r.ts))
		if len(points) >= writeBatchSize {
			if err := c.client.WritePoints(ctx, points); err != nil {
				return err
			}
			points = points[:0]
		}
	}
	if len(points) == 0 {
		return nil
	}
	return c.client.WritePoints(ctx, points)
}

// RunID generates a unique run identifier from timestamp.
func RunID(t time.Time) string {
	return t.UTC().Format("20060102-150405")
}
