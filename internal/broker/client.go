// Package broker delivers encoded records to an MQTT broker.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/JonMunkholm/sensoragent/internal/config"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("broker: timed out waiting for acknowledgement")

// Client publishes payloads to a single topic.
type Client struct {
	conn           mqtt.Client
	topic          string
	qos            byte
	publishTimeout time.Duration
	logger         *slog.Logger
}

// URL returns the broker URL for cfg.
func URL(cfg config.MQTTConfig) string {
	return "tcp://" + cfg.Addr()
}

// Dial connects to the broker described by cfg. Reconnects after a lost
// connection are handled by the client in the background.
func Dial(ctx context.Context, cfg config.MQTTConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("broker", URL(cfg), "client_id", cfg.ClientID)

	opts := mqtt.NewClientOptions().
		AddBroker(URL(cfg)).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("connected to broker")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("broker connection lost", "error", err)
		}).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			logger.Info("reconnecting to broker")
		})

	conn := mqtt.NewClient(opts)
	if err := wait(ctx, conn.Connect(), cfg.ConnectTimeout); err != nil {
		conn.Disconnect(0)
		return nil, fmt.Errorf("connect to %s: %w", URL(cfg), err)
	}

	return newClient(conn, cfg, logger), nil
}

func newClient(conn mqtt.Client, cfg config.MQTTConfig, logger *slog.Logger) *Client {
	return &Client{
		conn:           conn,
		topic:          cfg.Topic,
		qos:            byte(cfg.QoS),
		publishTimeout: cfg.PublishTimeout,
		logger:         logger,
	}
}

// Topic returns the topic payloads are published to.
func (c *Client) Topic() string { return c.topic }

// Publish sends payload and waits for the broker acknowledgement the
// configured QoS requires.
func (c *Client) Publish(ctx context.Context, payload []byte) error {
	if err := wait(ctx, c.conn.Publish(c.topic, c.qos, false, payload), c.publishTimeout); err != nil {
		return fmt.Errorf("publish to %s: %w", c.topic, err)
	}
	return nil
}

// Close disconnects, giving in-flight messages a short grace period.
func (c *Client) Close() {
	c.conn.Disconnect(250)
	c.logger.Info("disconnected from broker")
}

// wait blocks until the token completes, ctx ends or timeout elapses.
func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}
