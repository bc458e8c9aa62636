package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Barlinq Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Venue    VenueConfig    `yaml:"venue"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Matrix   MatrixConfig   `yaml:"matrix"`
	CEC      CECConfig      `yaml:"cec"`
	Control  ControlConfig  `yaml:"control"`
}

// VenueConfig contains venue-specific information.
type VenueConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for command history.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MatrixConfig contains crosspoint matrix switcher settings.
//
// Inputs and Outputs declare the numbers that are physically wired;
// routing requests outside these sets are rejected before any hardware
// contact is made.
type MatrixConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Inputs         []int  `yaml:"inputs"`
	Outputs        []int  `yaml:"outputs"`
	CommandTimeout int    `yaml:"command_timeout"` // seconds
}

// CECConfig contains CEC gateway daemon connection settings.
type CECConfig struct {
	// Connection is the gateway connection URL.
	// Supported formats:
	//   - "unix:///run/cecgate" (Unix socket)
	//   - "tcp://localhost:9526" (TCP)
	Connection     string `yaml:"connection"`
	ConnectTimeout int    `yaml:"connect_timeout"` // seconds
	CommandTimeout int    `yaml:"command_timeout"` // seconds
}

// ControlConfig contains the control engine's tunable parameters.
type ControlConfig struct {
	// CommandTimeout is the bound on a single transport attempt (seconds).
	CommandTimeout int `yaml:"command_timeout"`

	// BatchDelay is the default pause between devices in a sequential
	// batch sweep (milliseconds).
	BatchDelay int `yaml:"batch_delay"`

	// LearnTimeout is the IR capture window bound (seconds).
	LearnTimeout int `yaml:"learn_timeout"`

	// HistorySize is the number of recent command results retained in memory.
	HistorySize int `yaml:"history_size"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BARLINQ_SECTION_KEY
// For example: BARLINQ_DATABASE_PATH, BARLINQ_MATRIX_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Venue: VenueConfig{
			ID:       "venue-001",
			Name:     "Barlinq",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/barlinq.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "barlinq-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Matrix: MatrixConfig{
			Host:           "localhost",
			Port:           23,
			CommandTimeout: 5,
		},
		CEC: CECConfig{
			Connection:     "tcp://localhost:9526",
			ConnectTimeout: 10,
			CommandTimeout: 5,
		},
		Control: ControlConfig{
			CommandTimeout: 4,
			BatchDelay:     1000,
			LearnTimeout:   20,
			HistorySize:    500,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BARLINQ_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("BARLINQ_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("BARLINQ_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BARLINQ_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BARLINQ_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Matrix switcher
	if v := os.Getenv("BARLINQ_MATRIX_HOST"); v != "" {
		cfg.Matrix.Host = v
	}
	if v := os.Getenv("BARLINQ_MATRIX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Matrix.Port = port
		}
	}

	// CEC gateway
	if v := os.Getenv("BARLINQ_CEC_CONNECTION"); v != "" {
		cfg.CEC.Connection = v
	}

	// InfluxDB
	if v := os.Getenv("BARLINQ_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Venue.ID == "" {
		errs = append(errs, "venue.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Matrix.Port < 1 || c.Matrix.Port > 65535 {
		errs = append(errs, "matrix.port must be between 1 and 65535")
	}
	for _, in := range c.Matrix.Inputs {
		if in < 1 {
			errs = append(errs, fmt.Sprintf("matrix.inputs contains invalid input number %d", in))
			break
		}
	}
	for _, out := range c.Matrix.Outputs {
		if out < 1 {
			errs = append(errs, fmt.Sprintf("matrix.outputs contains invalid output number %d", out))
			break
		}
	}

	if c.CEC.Connection == "" {
		errs = append(errs, "cec.connection is required")
	}

	if c.Control.CommandTimeout < 1 {
		errs = append(errs, "control.command_timeout must be at least 1 second")
	}
	if c.Control.BatchDelay < 0 {
		errs = append(errs, "control.batch_delay must not be negative")
	}
	if c.Control.LearnTimeout < 1 {
		errs = append(errs, "control.learn_timeout must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Timeout returns the per-attempt transport timeout as a Duration.
func (c *ControlConfig) Timeout() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}

// BatchDelayDuration returns the sequential batch inter-device delay.
func (c *ControlConfig) BatchDelayDuration() time.Duration {
	return time.Duration(c.BatchDelay) * time.Millisecond
}

// LearnTimeoutDuration returns the IR capture window bound.
func (c *ControlConfig) LearnTimeoutDuration() time.Duration {
	return time.Duration(c.LearnTimeout) * time.Second
}

// MatrixTimeout returns the matrix command timeout as a Duration.
func (c *MatrixConfig) Timeout() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}

// Address returns the matrix switcher network address in host:port form.
func (c *MatrixConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
