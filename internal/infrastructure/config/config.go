package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/busdecode/internal/i2c"
)

// Config is the root configuration structure for busdecode.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Decoder   DecoderConfig   `yaml:"decoder"`
	Devices   []DeviceConfig  `yaml:"devices"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DecoderConfig contains the decode run settings.
type DecoderConfig struct {
	// Debug is the verbosity (0 none, 1 min, 2 max) given to devices first
	// seen on the bus.
	Debug int `yaml:"debug"`

	// Ignore is a comma-separated list of addresses whose transactions are
	// reported as ignored and never decoded.
	Ignore string `yaml:"ignore"`

	// SaveOutput appends every raw input line to a timestamped file in
	// OutputDir.
	SaveOutput bool `yaml:"save_output"`

	// Input is the capture file to decode.
	Input string `yaml:"input"`

	OutputDir  string `yaml:"output_dir"`
	DevicesDir string `yaml:"devices_dir"`

	// Color enables ANSI device colours on console output.
	Color bool `yaml:"color"`
}

// DeviceConfig declares one bus device.
type DeviceConfig struct {
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	Description string `yaml:"description"`

	// Parser is the register map file under decoder.devices_dir.
	// Empty decodes the device as raw hex.
	Parser string `yaml:"parser"`

	Debug     int    `yaml:"debug"`
	Color     string `yaml:"color"`
	CmdLength int    `yaml:"cmd_length"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains report API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket live feed settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings, used when
// output is "file".
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BUSDECODE_SECTION_KEY
// For example: BUSDECODE_DATABASE_PATH, BUSDECODE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from BUSDECODE_CONFIG or the default
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Decoder: DecoderConfig{
			Debug:      1,
			OutputDir:  "output",
			DevicesDir: "devices",
			Color:      true,
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/busdecode.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "busdecode",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     500,
			FlushInterval: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BUSDECODE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Decoder
	if v := os.Getenv("BUSDECODE_INPUT"); v != "" {
		cfg.Decoder.Input = v
	}
	if v := os.Getenv("BUSDECODE_IGNORE"); v != "" {
		cfg.Decoder.Ignore = v
	}
	if v := os.Getenv("BUSDECODE_DEBUG"); v != "" {
		// A non-numeric value is reported by Validate as out of range.
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Decoder.Debug = n
		} else {
			cfg.Decoder.Debug = -1
		}
	}

	// Database
	if v := os.Getenv("BUSDECODE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("BUSDECODE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BUSDECODE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BUSDECODE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("BUSDECODE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("BUSDECODE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Decoder validation
	if c.Decoder.Debug < 0 || c.Decoder.Debug > 2 {
		errs = append(errs, "decoder.debug must be 0, 1, or 2")
	}
	if strings.TrimSpace(c.Decoder.Input) == "" {
		errs = append(errs, "decoder.input is required (set BUSDECODE_INPUT environment variable)")
	}
	if c.Decoder.SaveOutput && c.Decoder.OutputDir == "" {
		errs = append(errs, "decoder.output_dir is required when save_output is enabled")
	}
	for _, a := range c.IgnoreList() {
		if _, err := i2c.CanonicalAddress(a); err != nil {
			errs = append(errs, fmt.Sprintf("decoder.ignore: %q is not a 0xNN address", a))
		}
	}

	// Device validation
	seen := make(map[string]int, len(c.Devices))
	for i, d := range c.Devices {
		addr, err := i2c.CanonicalAddress(d.Address)
		if err != nil {
			errs = append(errs, fmt.Sprintf("devices[%d].address %q is not a 0xNN address", i, d.Address))
			continue
		}
		if prev, ok := seen[addr]; ok {
			errs = append(errs, fmt.Sprintf("devices[%d].address %s duplicates devices[%d]", i, addr, prev))
			continue
		}
		seen[addr] = i
		if d.Debug < 0 || d.Debug > 2 {
			errs = append(errs, fmt.Sprintf("devices[%d].debug must be 0, 1, or 2", i))
		}
		if d.CmdLength < 0 {
			errs = append(errs, fmt.Sprintf("devices[%d].cmd_length must not be negative", i))
		}
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Logging validation
	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IgnoreList splits decoder.ignore into addresses. Spaces are removed and
// empty entries skipped.
func (c *Config) IgnoreList() []string {
	s := strings.ReplaceAll(c.Decoder.Ignore, " ", "")
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
