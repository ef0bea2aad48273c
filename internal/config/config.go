// Package config provides centralized configuration management for the agent.
// It loads configuration from environment variables (optionally seeded from
// .env files) with sensible defaults and validates all settings on startup to
// fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Environment names accepted in APP_ENVIRONMENT.
const (
	EnvLocal      = "local"
	EnvProduction = "production"
)

// ReadMode selects how the synchronizer performs file I/O.
type ReadMode string

const (
	// ReadBlocking runs file I/O on the publishing goroutine.
	ReadBlocking ReadMode = "blocking"
	// ReadAsync runs file I/O on per-file goroutines the publisher waits on.
	ReadAsync ReadMode = "async"
)

// Config holds all agent configuration.
// All settings can be configured via environment variables.
type Config struct {
	// Environment is local or production (default: local)
	Environment string `env:"APP_ENVIRONMENT" envDefault:"local"`

	Data      DataConfig
	MQTT      MQTTConfig
	Publisher PublisherConfig
	Status    StatusConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
}

// DataConfig locates the two sensor files.
type DataConfig struct {
	// Dir is the root the file paths are resolved against (default: .)
	Dir string `env:"DATA_DIR" envDefault:"."`

	// AccelerometerFile is the accelerometer CSV relative to Dir
	AccelerometerFile string `env:"DATA_ACCELEROMETER_FILE" envDefault:"data/accelerometer.csv"`

	// GpsFile is the GPS CSV relative to Dir
	GpsFile string `env:"DATA_GPS_FILE" envDefault:"data/gps.csv"`

	// ReadMode is blocking or async (default: blocking)
	ReadMode ReadMode `env:"DATA_READ_MODE" envDefault:"blocking"`
}

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Host string `env:"MQTT_BROKER_HOST" envDefault:"mqtt"`
	Port int    `env:"MQTT_BROKER_PORT" envDefault:"1883"`

	// Topic every combined record is published to (default: agent)
	Topic string `env:"MQTT_TOPIC" envDefault:"agent"`

	// ClientID defaults to sensoragent-<uuid> when unset
	ClientID string `env:"MQTT_CLIENT_ID"`

	// QoS is the MQTT delivery level, 0-2 (default: 0)
	QoS int `env:"MQTT_QOS" envDefault:"0"`

	ConnectTimeout time.Duration `env:"MQTT_CONNECT_TIMEOUT" envDefault:"10s"`
	PublishTimeout time.Duration `env:"MQTT_PUBLISH_TIMEOUT" envDefault:"5s"`
}

// PublisherConfig holds the publish cadence.
type PublisherConfig struct {
	// Delay between two published records (default: 1s)
	Delay time.Duration `env:"PUBLISH_DELAY" envDefault:"1s"`
}

// StatusConfig holds the status HTTP server settings.
type StatusConfig struct {
	// Enabled controls whether the status server runs (default: true)
	Enabled bool   `env:"STATUS_ENABLED" envDefault:"true"`
	Host    string `env:"STATUS_HOST" envDefault:"0.0.0.0"`
	Port    int    `env:"STATUS_PORT" envDefault:"8080"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"STATUS_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled bool `env:"OTEL_ENABLED" envDefault:"true"`

	// Endpoint is the OTLP/HTTP collector URL; empty disables export
	Endpoint string `env:"OTEL_ENDPOINT"`
}

// Addr returns the broker address in host:port format.
func (c *MQTTConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Addr returns the status server listen address in host:port format.
func (c *StatusConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
