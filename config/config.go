// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the deployment configuration of a ZL3073x board.
package config // import "github.com/go-lpc/zldpll/config"

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the configuration of a board.
type Config struct {
	Device  Device  `yaml:"device"`
	Pins    []Pin   `yaml:"pins"`
	Monitor Monitor `yaml:"monitor"`
	Mail    Mail    `yaml:"mail"`
}

// Device describes how to reach and attach the chip.
type Device struct {
	Transport string        `yaml:"transport"` // i2c, spi, smbus or sim
	Bus       string        `yaml:"bus"`       // periph.io bus name, or simulator state file
	BusNum    int           `yaml:"bus-num"`   // SMBus adapter number
	Addr      uint16        `yaml:"addr"`      // I2C/SMBus address
	Speed     int64         `yaml:"speed"`     // SPI clock, in Hz
	Poll      time.Duration `yaml:"poll"`
	Timeout   time.Duration `yaml:"timeout"`
	Firmware  string        `yaml:"firmware"`
	Labels    string        `yaml:"labels"` // board or generic
	Verbose   bool          `yaml:"verbose"`
}

// Pin holds the startup settings of a pin.
// Unset fields leave the chip untouched.
type Pin struct {
	Name      string  `yaml:"name"`
	DPLL      int     `yaml:"dpll"` // DPLL the priority applies to
	Priority  *uint8  `yaml:"priority,omitempty"`
	Frequency *uint64 `yaml:"frequency,omitempty"`
	Phase     *int32  `yaml:"phase,omitempty"` // phase compensation, in ps
	Esync     *uint64 `yaml:"esync,omitempty"`
}

// Monitor configures the telemetry sampler.
type Monitor struct {
	Interval time.Duration `yaml:"interval"`
	Output   string        `yaml:"output"` // YODA file of the telemetry histograms
}

// Mail configures the alert e-mails.
type Mail struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Targets  []string `yaml:"targets"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Device: Device{
			Transport: "i2c",
			Addr:      0x70,
			Speed:     10000000,
			Poll:      10 * time.Microsecond,
			Timeout:   100 * time.Second,
			Labels:    "board",
		},
		Monitor: Monitor{
			Interval: time.Second,
		},
		Mail: Mail{
			Port: 587,
		},
	}
}

// Load reads the configuration from the named YAML file.
func Load(fname string) (Config, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Config{}, fmt.Errorf("config: could not open configuration file: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return cfg, fmt.Errorf("config: could not load %q: %w", fname, err)
	}
	return cfg, nil
}

// Parse reads a YAML configuration from r.
// Missing values are filled with their defaults.
func Parse(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && err != io.EOF {
		return cfg, fmt.Errorf("config: could not decode configuration: %w", err)
	}
	applyDefaults(&cfg)
	err = cfg.validate()
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Device.Transport == "" {
		cfg.Device.Transport = def.Device.Transport
	}
	cfg.Device.Transport = strings.ToLower(cfg.Device.Transport)
	if cfg.Device.Addr == 0 {
		cfg.Device.Addr = def.Device.Addr
	}
	if cfg.Device.Speed == 0 {
		cfg.Device.Speed = def.Device.Speed
	}
	if cfg.Device.Poll == 0 {
		cfg.Device.Poll = def.Device.Poll
	}
	if cfg.Device.Timeout == 0 {
		cfg.Device.Timeout = def.Device.Timeout
	}
	if cfg.Device.Labels == "" {
		cfg.Device.Labels = def.Device.Labels
	}
	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = def.Monitor.Interval
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = def.Mail.Port
	}
}

func (cfg Config) validate() error {
	switch cfg.Device.Transport {
	case "i2c", "spi", "smbus", "sim":
	default:
		return fmt.Errorf("config: unknown transport %q", cfg.Device.Transport)
	}
	if cfg.Device.Transport == "sim" && cfg.Device.Bus == "" {
		return fmt.Errorf("config: simulator transport needs a state file")
	}
	if cfg.Device.Poll < 0 || cfg.Device.Timeout < 0 || cfg.Monitor.Interval < 0 {
		return fmt.Errorf("config: negative durations are not allowed")
	}

	seen := make(map[string]int, len(cfg.Pins))
	for i, pin := range cfg.Pins {
		if pin.Name == "" {
			return fmt.Errorf("config: pin #%d has no name", i)
		}
		if pin.DPLL < 0 || pin.DPLL > 1 {
			return fmt.Errorf("config: pin %q: invalid DPLL index %d", pin.Name, pin.DPLL)
		}
		key := fmt.Sprintf("%s/%d", pin.Name, pin.DPLL)
		if j, dup := seen[key]; dup {
			return fmt.Errorf("config: pin %q configured twice (#%d and #%d)", pin.Name, j, i)
		}
		seen[key] = i
	}
	return nil
}

// FromEnv fills the unset mail settings from the MAIL_SERVER,
// MAIL_PORT, MAIL_USERNAME, MAIL_PASSWORD and MAIL_TGTS (comma separated)
// environment variables.
func (m *Mail) FromEnv() error {
	if m.Server == "" {
		m.Server = os.Getenv("MAIL_SERVER")
	}
	if v := os.Getenv("MAIL_PORT"); v != "" && (m.Port == 0 || m.Port == Default().Mail.Port) {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: could not parse MAIL_PORT=%q: %w", v, err)
		}
		m.Port = port
	}
	if m.Username == "" {
		m.Username = os.Getenv("MAIL_USERNAME")
	}
	if m.Password == "" {
		m.Password = os.Getenv("MAIL_PASSWORD")
	}
	if len(m.Targets) == 0 {
		if v := os.Getenv("MAIL_TGTS"); v != "" {
			for _, tgt := range strings.Split(v, ",") {
				tgt = strings.TrimSpace(tgt)
				if tgt != "" {
					m.Targets = append(m.Targets, tgt)
				}
			}
		}
	}
	return nil
}

// Enabled reports whether alert e-mails can be sent.
func (m Mail) Enabled() bool {
	return m.Server != "" && m.Username != "" && len(m.Targets) > 0
}
