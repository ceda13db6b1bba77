// Package config loads the ventserver YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pez-globo/ventserver/internal/message"
)

type Config struct {
	Frontend  FrontendConfig  `yaml:"frontend"`
	LogEvents LogEventsConfig `yaml:"log_events"`
	KeepAlive KeepAliveConfig `yaml:"keep_alive"`
	Initial   InitialConfig   `yaml:"initial"`
	Serial    SerialConfig    `yaml:"serial"`
	Websocket WebsocketConfig `yaml:"websocket"`
	Rotary    RotaryConfig    `yaml:"rotary"`
	Store     StoreConfig     `yaml:"store"`
	Engine    EngineConfig    `yaml:"engine"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type FrontendConfig struct {
	LivenessTimeout time.Duration `yaml:"liveness_timeout"`
}

type LogEventsConfig struct {
	MaxLen        int           `yaml:"max_len"`
	MaxSegmentLen int           `yaml:"max_segment_len"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

type KeepAliveConfig struct {
	PingInterval time.Duration `yaml:"ping_interval"`
}

type InitialConfig struct {
	ParametersRequest *ParametersConfig `yaml:"parameters_request"`
}

// ParametersConfig is the ventilation request seeded into the MCU view at
// startup.
type ParametersConfig struct {
	Mode        string  `yaml:"mode"`
	Ventilating bool    `yaml:"ventilating"`
	PIP         float32 `yaml:"pip"`
	PEEP        float32 `yaml:"peep"`
	RR          float32 `yaml:"rr"`
	IE          float32 `yaml:"ie"`
	FiO2        float32 `yaml:"fio2"`
	VT          float32 `yaml:"vt"`
	Flow        float32 `yaml:"flow"`
}

// SerialConfig selects the MCU link. An empty device disables it.
type SerialConfig struct {
	Device string `yaml:"device"`
}

type WebsocketConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// RotaryConfig selects the rotary encoder line source. An empty device
// disables it.
type RotaryConfig struct {
	Device    string `yaml:"device"`
	QueueSize int    `yaml:"queue_size"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type EngineConfig struct {
	QueueSize int           `yaml:"queue_size"`
	IdleTick  time.Duration `yaml:"idle_tick"`
}

type MetricsConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads, defaults and validates the file at path. Unknown fields are
// rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document. An empty document yields the defaults.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Frontend.LivenessTimeout == 0 {
		c.Frontend.LivenessTimeout = 2 * time.Second
	}
	if c.LogEvents.MaxLen == 0 {
		c.LogEvents.MaxLen = 100
	}
	if c.LogEvents.MaxSegmentLen == 0 {
		c.LogEvents.MaxSegmentLen = 10
	}
	if c.LogEvents.RetryInterval == 0 {
		c.LogEvents.RetryInterval = time.Second
	}
	if c.KeepAlive.PingInterval == 0 {
		c.KeepAlive.PingInterval = 500 * time.Millisecond
	}
	if c.Initial.ParametersRequest == nil {
		c.Initial.ParametersRequest = &ParametersConfig{
			PIP:  30,
			PEEP: 10,
			RR:   30,
			IE:   1,
			FiO2: 60,
		}
	}
	if c.Initial.ParametersRequest.Mode == "" {
		c.Initial.ParametersRequest.Mode = message.ModePCAC.String()
	}
	if c.Websocket.Addr == "" {
		c.Websocket.Addr = ":8000"
	}
	if c.Websocket.Path == "" {
		c.Websocket.Path = "/ws"
	}
	if c.Rotary.QueueSize == 0 {
		c.Rotary.QueueSize = 64
	}
	if c.Store.Path == "" {
		c.Store.Path = "ventserver.db"
	}
	if c.Engine.QueueSize == 0 {
		c.Engine.QueueSize = 256
	}
	if c.Engine.IdleTick == 0 {
		c.Engine.IdleTick = 50 * time.Millisecond
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	if c.Frontend.LivenessTimeout < 0 {
		return fmt.Errorf("frontend.liveness_timeout must be positive")
	}
	if c.LogEvents.MaxLen < 0 || c.LogEvents.MaxSegmentLen < 0 {
		return fmt.Errorf("log_events lengths must be positive")
	}
	if c.LogEvents.MaxSegmentLen > c.LogEvents.MaxLen {
		return fmt.Errorf("log_events.max_segment_len %d exceeds max_len %d",
			c.LogEvents.MaxSegmentLen, c.LogEvents.MaxLen)
	}
	if c.LogEvents.RetryInterval < 0 || c.KeepAlive.PingInterval < 0 {
		return fmt.Errorf("intervals must be positive")
	}
	if _, err := c.ParametersRequest(); err != nil {
		return fmt.Errorf("initial.parameters_request: %w", err)
	}
	if !strings.HasPrefix(c.Websocket.Path, "/") {
		return fmt.Errorf("websocket.path must start with /")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	if c.Metrics.Path == c.Websocket.Path {
		return fmt.Errorf("metrics.path and websocket.path must differ")
	}
	if n := c.Rotary.QueueSize; n < 0 || n&(n-1) != 0 {
		return fmt.Errorf("rotary.queue_size must be a power of two, got %d", n)
	}
	if c.Engine.QueueSize < 0 || c.Engine.IdleTick < 0 {
		return fmt.Errorf("engine settings must be positive")
	}
	return nil
}

// ParametersRequest builds the startup request from the initial section.
func (c *Config) ParametersRequest() (*message.ParametersRequest, error) {
	p := c.Initial.ParametersRequest
	mode, err := message.ParseMode(p.Mode)
	if err != nil {
		return nil, err
	}
	return &message.ParametersRequest{
		Ventilating: p.Ventilating,
		Mode:        mode,
		PIP:         p.PIP,
		PEEP:        p.PEEP,
		RR:          p.RR,
		IE:          p.IE,
		FiO2:        p.FiO2,
		VT:          p.VT,
		Flow:        p.Flow,
	}, nil
}
