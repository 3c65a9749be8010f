// SPDX-License-Identifier: EPL-2.0

// Package config loads the audbio command configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	BackendJACK     = "jack"
	BackendLoopback = "loopback"
	BackendOto      = "oto"
)

var Backends = []string{BackendJACK, BackendLoopback, BackendOto}

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Backend  string   `yaml:"backend"`
	LogLevel string   `yaml:"log_level"`
	Client   Client   `yaml:"client"`
	Connect  Connect  `yaml:"connect"`
	Loopback Loopback `yaml:"loopback"`
	Oto      Oto      `yaml:"oto"`
	Tone     Tone     `yaml:"tone"`
}

// Client sizes the blocking façade. Zero buffer sizes pick the default of
// two periods.
type Client struct {
	Name             string `yaml:"name"`
	Inputs           int    `yaml:"inputs"`
	Outputs          int    `yaml:"outputs"`
	InputBufferSize  int    `yaml:"input_buffer_size"`
	OutputBufferSize int    `yaml:"output_buffer_size"`
	StartServer      bool   `yaml:"start_server"`
}

// Connect controls wiring port i to physical channel i after start.
type Connect struct {
	Physical bool `yaml:"physical"`
}

type Loopback struct {
	SampleRate uint32 `yaml:"sample_rate"`
	Period     uint32 `yaml:"period"`
	Capture    int    `yaml:"capture"`
	Playback   int    `yaml:"playback"`
}

type Oto struct {
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	Period     uint32 `yaml:"period"`
}

type Tone struct {
	Frequency float64 `yaml:"frequency"`
	Gain      float64 `yaml:"gain"`
}

func Default() Config {
	return Config{
		Backend:  BackendJACK,
		LogLevel: "info",
		Client: Client{
			Name:    "audbio",
			Inputs:  2,
			Outputs: 2,
		},
		Connect:  Connect{Physical: true},
		Loopback: Loopback{SampleRate: 48000, Period: 256, Capture: 2, Playback: 2},
		Oto:      Oto{SampleRate: 48000, Channels: 2, Period: 512},
		Tone:     Tone{Frequency: 440, Gain: 1},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes data into cfg, keeping the values of keys it does not set.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
		return fmt.Errorf("%w", err)
	}

	cfg.Backend = strings.ToLower(cfg.Backend)

	return cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if !slices.Contains(Backends, c.Backend) {
		bad("backend %q, want one of %v", c.Backend, Backends)
	}
	if _, err := c.Level(); err != nil {
		bad("log_level %q", c.LogLevel)
	}

	if c.Client.Name == "" {
		bad("client.name is empty")
	}
	if c.Client.Inputs < 0 || c.Client.Outputs < 0 {
		bad("client port counts %d/%d", c.Client.Inputs, c.Client.Outputs)
	}
	if c.Client.InputBufferSize < 0 || c.Client.OutputBufferSize < 0 {
		bad("client buffer sizes %d/%d", c.Client.InputBufferSize, c.Client.OutputBufferSize)
	}

	if c.Loopback.SampleRate == 0 || c.Loopback.Period == 0 {
		bad("loopback rate %d and period %d must be positive", c.Loopback.SampleRate, c.Loopback.Period)
	}
	if c.Loopback.Capture < 0 || c.Loopback.Playback < 0 {
		bad("loopback channels %d/%d", c.Loopback.Capture, c.Loopback.Playback)
	}

	if c.Oto.SampleRate <= 0 || c.Oto.Channels <= 0 || c.Oto.Period == 0 {
		bad("oto rate %d, channels %d and period %d must be positive", c.Oto.SampleRate, c.Oto.Channels, c.Oto.Period)
	}

	if c.Tone.Frequency <= 0 {
		bad("tone.frequency %v", c.Tone.Frequency)
	}
	if c.Tone.Gain < 0 || c.Tone.Gain > 1 {
		bad("tone.gain %v outside [0, 1]", c.Tone.Gain)
	}

	return errors.Join(errs...)
}

// Level parses LogLevel as a slog level name ("debug", "info", "warn",
// "error", optionally with an offset such as "info+2").
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w", err)
	}
	return l, nil
}
