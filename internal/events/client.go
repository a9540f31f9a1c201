// Package events publishes pipeline run lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/MikeSquared-Agency/tpfi/internal/config"
)

const publishTimeout = 2 * time.Second

// Client publishes run lifecycle events.
type Client interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// NATSClient persists events in a JetStream stream covering the tpfi subjects.
type NATSClient struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

func NewNATSClient(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (*NATSClient, error) {
	sc, err := streamConfig(cfg)
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("tpfi"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, sc); err != nil {
		logger.Warn("failed to ensure event stream", "stream", sc.Name, "error", err)
	}
	return &NATSClient{conn: nc, js: js, logger: logger}, nil
}

// streamConfig describes the event stream. An empty max age keeps events forever.
func streamConfig(cfg config.NATSConfig) (jetstream.StreamConfig, error) {
	if cfg.Stream == "" {
		return jetstream.StreamConfig{}, fmt.Errorf("nats stream name is required")
	}
	var maxAge time.Duration
	if cfg.StreamMaxAge != "" {
		d, err := time.ParseDuration(cfg.StreamMaxAge)
		if err != nil {
			return jetstream.StreamConfig{}, fmt.Errorf("parse stream max age: %w", err)
		}
		maxAge = d
	}
	return jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: StreamSubjects(),
		MaxAge:   maxAge,
	}, nil
}

// Publish stores ev on its subject and waits for the stream acknowledgement.
func (c *NATSClient) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = c.js.Publish(ctx, ev.Subject(), payload)
	return err
}

func (c *NATSClient) Close() {
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}

// Emit publishes ev when c is configured and logs failures. A pipeline never
// fails because NATS is down.
func Emit(ctx context.Context, c Client, logger *slog.Logger, ev Event) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish event", "subject", ev.Subject(), "error", err)
	}
}
