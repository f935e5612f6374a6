// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/GermanBionicSystems/epd/uc81xx"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "epdemo.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefault(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if diff := cmp.Diff(c, DefaultConfig()); diff != "" {
		t.Errorf("Load() difference (-got +want):\n%s", diff)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
	if m, err := c.PanelModel(); err != nil || m != &uc81xx.EPD7in5v2 {
		t.Errorf("PanelModel() = %v, %v", m, err)
	}
}

func TestLoad(t *testing.T) {
	p := writeConfig(t, `
model: EPD7in3E
spi: SPI0.0
pins:
  dc: GPIO5
  cs: ""
  rst: GPIO6
  busy: GPIO13
wait: Edge
timeouts:
  refresh: 45s
log:
  level: debug
clock:
  updates: 3
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := DefaultConfig()
	want.Model = "EPD7in3E"
	want.SPI = "SPI0.0"
	want.Pins = Pins{DC: "GPIO5", RST: "GPIO6", Busy: "GPIO13"}
	want.Wait = "edge"
	want.Timeouts.Refresh = 45 * time.Second
	want.Log.Level = "debug"
	want.Clock.Updates = 3
	if diff := cmp.Diff(c, want); diff != "" {
		t.Errorf("Load() difference (-got +want):\n%s", diff)
	}
	if m, err := c.PanelModel(); err != nil || m != &uc81xx.EPD7in3E {
		t.Errorf("PanelModel() = %v, %v", m, err)
	}
	if diff := cmp.Diff(c.PanelTimeouts(), uc81xx.Timeouts{Refresh: 45 * time.Second}); diff != "" {
		t.Errorf("PanelTimeouts() difference (-got +want):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		want    string
	}{
		{"model", "model: epd2in13\n", "unknown model"},
		{"wait", "wait: spin\n", "unknown wait strategy"},
		{"log", "log:\n  format: xml\n", "unknown log format"},
		{"pins", "pins:\n  dc: \"\"\n  rst: \"\"\n", "pins"},
		{"updates", "clock:\n  updates: -1\n", "negative"},
		{"yaml", "model: [\n", "epdemo.yaml"},
		{"duration", "timeouts:\n  reset: soon\n", "epdemo.yaml"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("Load() succeeded")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Load() = %q, want it to mention %q", err, tc.want)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}
