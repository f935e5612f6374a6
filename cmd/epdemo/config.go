// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GermanBionicSystems/epd/uc81xx"
)

// models lists the panels the demo knows by name.
var models = []*uc81xx.Model{
	&uc81xx.EPD7in5v2,
	&uc81xx.EPD7in3E,
	&uc81xx.Impression57,
}

// Pins names the GPIOs as known to gpioreg.
type Pins struct {
	DC   string `yaml:"dc"`
	// CS is optional; leave it empty when the SPI port drives chip select.
	CS   string `yaml:"cs"`
	RST  string `yaml:"rst"`
	Busy string `yaml:"busy"`
}

// Timeouts overrides the busy timeouts of the model. Zero keeps the model's.
type Timeouts struct {
	Reset   time.Duration `yaml:"reset"`
	Power   time.Duration `yaml:"power"`
	Refresh time.Duration `yaml:"refresh"`
}

// Log configures logrus.
type Log struct {
	// Level is one of logrus levels: "debug", "info", "warn"...
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Clock configures the partial refreshes done after the first picture.
type Clock struct {
	Updates  int           `yaml:"updates"`
	Interval time.Duration `yaml:"interval"`
}

// Sim configures the simulated panel used with -sim.
type Sim struct {
	RefreshDelay time.Duration `yaml:"refresh_delay"`
	Columns      int           `yaml:"columns"`
}

// Config is the demo configuration.
type Config struct {
	Model string `yaml:"model"`
	SPI   string `yaml:"spi"`
	Pins  Pins   `yaml:"pins"`

	// Wait is the busy strategy: "poll", "edge", or empty for the build
	// default.
	Wait         string        `yaml:"wait"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeouts     Timeouts      `yaml:"timeouts"`

	Log Log `yaml:"log"`

	// Text is drawn when Picture is empty.
	Text     string  `yaml:"text"`
	Picture  string  `yaml:"picture"`
	FontSize float64 `yaml:"font_size"`
	Clock    Clock   `yaml:"clock"`

	Sim Sim `yaml:"sim"`
}

// DefaultConfig returns the configuration of a Waveshare HAT on a Raspberry
// Pi.
func DefaultConfig() *Config {
	return &Config{
		Model:    uc81xx.EPD7in5v2.Name,
		Pins:     Pins{DC: "GPIO25", CS: "GPIO8", RST: "GPIO17", Busy: "GPIO24"},
		Log:      Log{Level: "info", Format: "text"},
		Text:     "Hello from periph!",
		FontSize: 48,
		Clock:    Clock{Updates: 1, Interval: time.Minute},
		Sim:      Sim{RefreshDelay: 500 * time.Millisecond, Columns: 100},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Normalize fills in zero values with the defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	c.Wait = strings.ToLower(c.Wait)
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.FontSize <= 0 {
		c.FontSize = d.FontSize
	}
	if c.Clock.Interval <= 0 {
		c.Clock.Interval = d.Clock.Interval
	}
	if c.Sim.Columns <= 0 {
		c.Sim.Columns = d.Sim.Columns
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.PanelModel(); err != nil {
		return err
	}
	switch c.Wait {
	case "", "poll", "edge":
	default:
		return fmt.Errorf("unknown wait strategy %q", c.Wait)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Pins.DC == "" || c.Pins.RST == "" || c.Pins.Busy == "" {
		return errors.New("pins dc, rst and busy are required")
	}
	if c.Clock.Updates < 0 {
		return errors.New("clock updates must not be negative")
	}
	return nil
}

// PanelModel returns the model named by the configuration.
func (c *Config) PanelModel() (*uc81xx.Model, error) {
	var names []string
	for _, m := range models {
		if strings.EqualFold(m.Name, c.Model) {
			return m, nil
		}
		names = append(names, m.Name)
	}
	return nil, fmt.Errorf("unknown model %q, want one of %s", c.Model, strings.Join(names, ", "))
}

// PanelTimeouts returns the busy timeouts overrides.
func (c *Config) PanelTimeouts() uc81xx.Timeouts {
	return uc81xx.Timeouts{
		Reset:   c.Timeouts.Reset,
		Power:   c.Timeouts.Power,
		Refresh: c.Timeouts.Refresh,
	}
}
