package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "sensoragent-" + uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadEnvFiles seeds the process environment from dir/.env and then from
// dir/.env.<APP_ENVIRONMENT>. The environment file overrides the base file,
// and variables already set in the process override both. Missing files are
// skipped. It returns the files that were read.
func LoadEnvFiles(dir string) ([]string, error) {
	base, err := readEnvFile(filepath.Join(dir, ".env"))
	if err != nil {
		return nil, err
	}

	appEnv, ok := os.LookupEnv("APP_ENVIRONMENT")
	if !ok {
		appEnv = base.vars["APP_ENVIRONMENT"]
	}
	if appEnv == "" {
		appEnv = EnvLocal
	}
	if !validEnvironment(appEnv) {
		return nil, fmt.Errorf("APP_ENVIRONMENT (%q) must be one of: %s, %s", appEnv, EnvLocal, EnvProduction)
	}

	overlay, err := readEnvFile(filepath.Join(dir, ".env."+strings.ToLower(appEnv)))
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(base.vars)+len(overlay.vars))
	for k, v := range base.vars {
		merged[k] = v
	}
	for k, v := range overlay.vars {
		merged[k] = v
	}
	for k, v := range merged {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return nil, fmt.Errorf("set %s: %w", k, err)
		}
	}

	var loaded []string
	for _, f := range []envFile{base, overlay} {
		if f.found {
			loaded = append(loaded, f.path)
		}
	}
	return loaded, nil
}

type envFile struct {
	path  string
	found bool
	vars  map[string]string
}

func readEnvFile(path string) (envFile, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return envFile{path: path}, nil
	}
	if err != nil {
		return envFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return envFile{path: path, found: true, vars: vars}, nil
}

func validEnvironment(name string) bool {
	switch strings.ToLower(name) {
	case EnvLocal, EnvProduction:
		return true
	}
	return false
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if !validEnvironment(c.Environment) {
		errs = append(errs, fmt.Sprintf("APP_ENVIRONMENT (%q) must be one of: %s, %s", c.Environment, EnvLocal, EnvProduction))
	}

	// Data validation
	if c.Data.Dir == "" {
		errs = append(errs, "DATA_DIR must not be empty")
	}
	if c.Data.AccelerometerFile == "" {
		errs = append(errs, "DATA_ACCELEROMETER_FILE is required")
	}
	if c.Data.GpsFile == "" {
		errs = append(errs, "DATA_GPS_FILE is required")
	}
	switch c.Data.ReadMode {
	case ReadBlocking, ReadAsync:
	default:
		errs = append(errs, fmt.Sprintf("DATA_READ_MODE (%q) must be one of: %s, %s", c.Data.ReadMode, ReadBlocking, ReadAsync))
	}

	// MQTT validation
	if c.MQTT.Host == "" {
		errs = append(errs, "MQTT_BROKER_HOST is required")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		errs = append(errs, fmt.Sprintf("MQTT_BROKER_PORT (%d) must be 1-65535", c.MQTT.Port))
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "MQTT_TOPIC is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Sprintf("MQTT_QOS (%d) must be 0, 1 or 2", c.MQTT.QoS))
	}
	if c.MQTT.ConnectTimeout <= 0 {
		errs = append(errs, "MQTT_CONNECT_TIMEOUT must be positive")
	}
	if c.MQTT.PublishTimeout <= 0 {
		errs = append(errs, "MQTT_PUBLISH_TIMEOUT must be positive")
	}

	if c.Publisher.Delay <= 0 {
		errs = append(errs, "PUBLISH_DELAY must be positive")
	}

	// Status server validation
	if c.Status.Enabled {
		if c.Status.Port <= 0 || c.Status.Port > 65535 {
			errs = append(errs, fmt.Sprintf("STATUS_PORT (%d) must be 1-65535", c.Status.Port))
		}
		if c.Status.ShutdownTimeout <= 0 {
			errs = append(errs, "STATUS_SHUTDOWN_TIMEOUT must be positive")
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a one-line summary of the config for logging.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Environment: %q, ", c.Environment)
	fmt.Fprintf(&b, "Data: {Dir: %q, Accelerometer: %q, Gps: %q, ReadMode: %s}, ",
		c.Data.Dir, c.Data.AccelerometerFile, c.Data.GpsFile, c.Data.ReadMode)
	fmt.Fprintf(&b, "MQTT: {Addr: %q, Topic: %q, ClientID: %q, QoS: %d}, ",
		c.MQTT.Addr(), c.MQTT.Topic, c.MQTT.ClientID, c.MQTT.QoS)
	fmt.Fprintf(&b, "Publisher: {Delay: %s}, ", c.Publisher.Delay)
	fmt.Fprintf(&b, "Status: {Enabled: %v, Addr: %q}, ", c.Status.Enabled, c.Status.Addr())
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}, ", c.Logging.Level, c.Logging.Format)
	fmt.Fprintf(&b, "Telemetry: {Enabled: %v, Endpoint: %q}", c.Telemetry.Enabled, c.Telemetry.Endpoint)
	b.WriteString("}")
	return b.String()
}
