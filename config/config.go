// Package config loads the evdash TOML configuration.
package config

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Duration is a time.Duration written as a string, e.g. "50ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", string(text))
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	CAN       CANConfig       `toml:"can"`
	Render    RenderConfig    `toml:"render"`
	Simulator SimulatorConfig `toml:"simulator"`
	Log       LogConfig       `toml:"log"`
	Forwarder ForwarderConfig `toml:"forwarder"`
}

type CANConfig struct {
	Driver    string `toml:"driver"`
	Interface string `toml:"interface"`
	Profile   string `toml:"profile"`
}

type RenderConfig struct {
	FrameRate     int      `toml:"frame_rate"`
	SmoothingRate float64  `toml:"smoothing_rate"`
	StaleAfter    Duration `toml:"stale_after"`
}

type SimulatorConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
	Compress   bool   `toml:"compress"`
}

type ForwarderConfig struct {
	UDP   UDPConfig   `toml:"udp"`
	Kafka KafkaConfig `toml:"kafka"`
}

type UDPConfig struct {
	Enabled  bool     `toml:"enabled"`
	Server   string   `toml:"server"`
	Port     int      `toml:"port"`
	Interval Duration `toml:"interval"`
}

type KafkaConfig struct {
	Enabled  bool     `toml:"enabled"`
	Brokers  []string `toml:"brokers"`
	Topic    string   `toml:"topic"`
	Interval Duration `toml:"interval"`
}

func Default() *Config {
	return &Config{
		CAN: CANConfig{
			Driver:    "brutella",
			Interface: "can0",
			Profile:   "standard",
		},
		Render: RenderConfig{
			FrameRate:     60,
			SmoothingRate: 5,
			StaleAfter:    Duration{2 * time.Second},
		},
		Simulator: SimulatorConfig{
			Interval: Duration{50 * time.Millisecond},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
		Forwarder: ForwarderConfig{
			UDP: UDPConfig{
				Server:   "127.0.0.1",
				Port:     5000,
				Interval: Duration{100 * time.Millisecond},
			},
			Kafka: KafkaConfig{
				Topic:    "evdash.display",
				Interval: Duration{time.Second},
			},
		},
	}
}

// Load reads fileName. A relative name is resolved next to the running
// binary.
func Load(fileName string) (*Config, error) {
	path := fileName
	if !filepath.IsAbs(path) {
		dir, err := filepath.Abs(filepath.Dir(os.Args[0]))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to determine binary location")
		}
		path = filepath.Join(dir, fileName)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return LoadFromReader(file)
}

// LoadFromReader decodes a configuration on top of the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config reader")
	}
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode configuration")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown configuration keys: %v", undecoded)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Render.FrameRate <= 0 || c.Render.FrameRate > 240 {
		return errors.Errorf("render.frame_rate out of range: %d", c.Render.FrameRate)
	}
	if c.Render.SmoothingRate <= 0 {
		return errors.Errorf("render.smoothing_rate must be positive: %v", c.Render.SmoothingRate)
	}
	if c.Forwarder.Kafka.Enabled && len(c.Forwarder.Kafka.Brokers) == 0 {
		return errors.New("forwarder.kafka is enabled without brokers")
	}
	return nil
}
