// Package config loads the YAML configuration shared by the romiserial
// commands.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Serial backends
const (
	BackendTarm  = "tarm"
	BackendBugst = "bugst"
)

type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Client      ClientConfig      `yaml:"client"`
	Engine      EngineConfig      `yaml:"engine"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Peripherals PeripheralsConfig `yaml:"peripherals"`
}

type SerialConfig struct {
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	Backend       string `yaml:"backend"`
	ReadTimeoutMS int    `yaml:"read_timeout_ms"`
}

// ReadTimeout returns the port read timeout.
func (c SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

type ClientConfig struct {
	TimeoutMS int `yaml:"timeout_ms"`
	Retries   int `yaml:"retries"`
}

// Timeout returns how long one attempt waits for its response.
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

type EngineConfig struct {
	LegacyIDSentinel bool `yaml:"legacy_id_sentinel"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables
// it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type PeripheralsConfig struct {
	IMU     DeviceConfig  `yaml:"imu"`
	Battery DeviceConfig  `yaml:"battery"`
	Display DisplayConfig `yaml:"display"`
	Motors  MotorConfig   `yaml:"motors"`
	Stepper StepperConfig `yaml:"stepper"`
}

// DeviceConfig describes an I2C peripheral.
type DeviceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address uint16 `yaml:"address"`
}

type DisplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address uint16 `yaml:"address"`
	Width   uint8  `yaml:"width"`
	Height  uint8  `yaml:"height"`
}

type MotorConfig struct {
	MaxSpeed int16 `yaml:"max_speed"`
}

// StepperConfig bounds the stepper axes. Limits are absolute positions in
// steps; a move that would leave [-limit, limit] is rejected.
type StepperConfig struct {
	Limits  [3]int32 `yaml:"limits"`
	MaxFeed int16    `yaml:"max_feed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Device:        "/dev/ttyACM0",
			Baud:          115200,
			Backend:       BackendTarm,
			ReadTimeoutMS: 100,
		},
		Client: ClientConfig{
			TimeoutMS: 1000,
			Retries:   2,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Listen: ":9464",
		},
		Peripherals: PeripheralsConfig{
			IMU:     DeviceConfig{Enabled: true, Address: 0x53},
			Battery: DeviceConfig{Enabled: true, Address: 0x40},
			Display: DisplayConfig{Enabled: true, Address: 0x27, Width: 16, Height: 2},
			Motors:  MotorConfig{MaxSpeed: 1000},
			Stepper: StepperConfig{
				Limits:  [3]int32{20000, 20000, 10000},
				MaxFeed: 3000,
			},
		},
	}
}

// Load reads the configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills values a file may have cleared explicitly.
func applyDefaults(cfg *Config) {
	if cfg.Serial.Backend == "" {
		cfg.Serial.Backend = BackendTarm
	}
	if cfg.Serial.ReadTimeoutMS == 0 {
		cfg.Serial.ReadTimeoutMS = 100
	}
	if cfg.Client.TimeoutMS == 0 {
		cfg.Client.TimeoutMS = 1000
	}
	if cfg.Peripherals.Display.Address == 0 {
		cfg.Peripherals.Display.Address = 0x27
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Serial.Backend {
	case BackendTarm, BackendBugst:
	default:
		return fmt.Errorf("serial.backend: unknown backend %q", c.Serial.Backend)
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud: must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.ReadTimeoutMS < 0 {
		return fmt.Errorf("serial.read_timeout_ms: must not be negative")
	}
	if c.Client.TimeoutMS < 0 {
		return fmt.Errorf("client.timeout_ms: must not be negative")
	}
	if c.Client.Retries < 0 {
		return fmt.Errorf("client.retries: must not be negative")
	}

	p := c.Peripherals
	for _, dev := range []struct {
		name string
		addr uint16
	}{
		{"imu", p.IMU.Address},
		{"battery", p.Battery.Address},
		{"display", p.Display.Address},
	} {
		if dev.addr > 0x7f {
			return fmt.Errorf("peripherals.%s.address: %#x is not a 7-bit address", dev.name, dev.addr)
		}
	}
	if p.Display.Enabled && (p.Display.Width == 0 || p.Display.Height == 0) {
		return fmt.Errorf("peripherals.display: width and height must be set")
	}
	if p.Motors.MaxSpeed <= 0 {
		return fmt.Errorf("peripherals.motors.max_speed: must be positive")
	}
	if p.Stepper.MaxFeed <= 0 {
		return fmt.Errorf("peripherals.stepper.max_feed: must be positive")
	}
	for i, limit := range p.Stepper.Limits {
		if limit <= 0 || limit > math.MaxInt16 {
			return fmt.Errorf("peripherals.stepper.limits[%d]: must be in 1..%d", i, math.MaxInt16)
		}
	}
	return nil
}
