// Package config loads monitor settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/autoclave-monitor/internal/assistant"
	"github.com/sweeney/autoclave-monitor/internal/export"
	"github.com/sweeney/autoclave-monitor/internal/logic"
	"github.com/sweeney/autoclave-monitor/internal/source"
)

// Environment variables read by ApplyEnv.
const (
	EnvServerURL   = "SERVER_URL"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvGeminiModel = "GEMINI_MODEL"
)

// Config is the full monitor configuration.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	TickPeriod       time.Duration `yaml:"tick_period"`
	TargetKillPoints float64       `yaml:"target_kill_points"`
	HistoryLength    int           `yaml:"history_length"`
	MaxCycles        int           `yaml:"max_cycles"` // 0 keeps every record
	Source           string        `yaml:"source"`     // live or simulation
	StartRunning     bool          `yaml:"start_running"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	Seed             int64         `yaml:"seed"` // 0 seeds from the clock

	FeedURL    string `yaml:"feed_url"`
	HTTPAddr   string `yaml:"http_addr"`
	IngestAddr string `yaml:"ingest_addr"`
	AccessLog  bool   `yaml:"access_log"`

	MQTT      MQTTConfig            `yaml:"mqtt"`
	Kafka     KafkaConfig           `yaml:"kafka"`
	Indicator IndicatorConfig       `yaml:"indicator"`
	Gemini    GeminiConfig          `yaml:"gemini"`
	Simulator logic.SimulatorConfig `yaml:"simulator"`
}

// MQTTConfig configures the broker connection. An empty Broker disables MQTT.
type MQTTConfig struct {
	Broker     string        `yaml:"broker"`
	ClientID   string        `yaml:"client_id"`
	BufferSize int           `yaml:"buffer_size"`
	Heartbeat  time.Duration `yaml:"heartbeat"` // 0 disables
	Telemetry  bool          `yaml:"telemetry"`
}

// KafkaConfig configures cycle export. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// IndicatorConfig selects the GPIO completion indicator. A negative Line disables it.
type IndicatorConfig struct {
	Chip  string        `yaml:"chip"`
	Line  int           `yaml:"line"`
	Pulse time.Duration `yaml:"pulse"`
}

// GeminiConfig configures the assistant model. An empty APIKey selects the
// heuristic insight generator and disables chat.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TickPeriod:       2 * time.Second,
		TargetKillPoints: logic.TargetKillPoints,
		HistoryLength:    60,
		Source:           string(source.KindLive),
		StartRunning:     true,
		HTTPAddr:         ":8080",
		IngestAddr:       ":3001",
		MQTT: MQTTConfig{
			ClientID:  "autoclave-monitor",
			Heartbeat: 15 * time.Minute,
			Telemetry: true,
		},
		Kafka: KafkaConfig{
			Topic: export.DefaultTopic,
		},
		Indicator: IndicatorConfig{
			Chip:  "gpiochip0",
			Line:  -1,
			Pulse: 3 * time.Second,
		},
		Gemini: GeminiConfig{
			Model: assistant.DefaultGeminiModel,
		},
		Simulator: logic.DefaultSimulatorConfig(),
	}
}

// Load returns Default overlaid with the YAML file at path. An empty path
// returns the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. Unset variables leave
// the current value alone.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvServerURL); v != "" {
		c.FeedURL = v
	}
	if v := getenv(EnvGeminiKey); v != "" {
		c.Gemini.APIKey = v
	}
	if v := getenv(EnvGeminiModel); v != "" {
		c.Gemini.Model = v
	}
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	if c.TickPeriod <= 0 {
		return fmt.Errorf("tick_period must be positive, got %v", c.TickPeriod)
	}
	if c.TargetKillPoints <= 0 {
		return fmt.Errorf("target_kill_points must be positive, got %g", c.TargetKillPoints)
	}
	if c.HistoryLength < 1 {
		return fmt.Errorf("history_length must be at least 1, got %d", c.HistoryLength)
	}
	if c.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must be non-negative, got %d", c.MaxCycles)
	}
	if _, err := source.ParseKind(c.Source); err != nil {
		return err
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must be non-negative, got %v", c.FetchTimeout)
	}
	if c.MQTT.Heartbeat < 0 {
		return fmt.Errorf("mqtt.heartbeat must be non-negative, got %v", c.MQTT.Heartbeat)
	}
	if c.MQTT.BufferSize < 0 {
		return fmt.Errorf("mqtt.buffer_size must be non-negative, got %d", c.MQTT.BufferSize)
	}
	if c.Indicator.Line >= 0 && c.Indicator.Pulse <= 0 {
		return fmt.Errorf("indicator.pulse must be positive, got %v", c.Indicator.Pulse)
	}
	if err := c.Simulator.Validate(); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	return nil
}

// Kind returns the configured initial source.
func (c Config) Kind() source.Kind {
	k, _ := source.ParseKind(c.Source)
	return k
}
