// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package busy

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// slack absorbs scheduler jitter when checking the upper bound of a wait.
const slack = 250 * time.Millisecond

func TestPollWait(t *testing.T) {
	for _, tc := range []struct {
		name    string
		level   gpio.Level
		timeout time.Duration
		want    error
	}{
		{name: "ready", level: gpio.High, timeout: time.Second},
		{name: "ready, zero timeout", level: gpio.High},
		{name: "busy, zero timeout", level: gpio.Low, want: ErrTimeout},
		{name: "busy, negative timeout", level: gpio.Low, timeout: -time.Second, want: ErrTimeout},
		{name: "stuck", level: gpio.Low, timeout: 40 * time.Millisecond, want: ErrTimeout},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pin := &gpiotest.Pin{N: "busy", L: tc.level}
			p, err := NewPoll(pin, gpio.Low)
			if err != nil {
				t.Fatalf("NewPoll() failed: %v", err)
			}
			p.Interval = 5 * time.Millisecond

			start := time.Now()
			err = p.Wait(tc.timeout)
			elapsed := time.Since(start)

			if !errors.Is(err, tc.want) {
				t.Errorf("Wait() = %v, want %v", err, tc.want)
			}
			if bound := max(tc.timeout, 0) + slack; elapsed > bound {
				t.Errorf("Wait() took %s, want at most %s", elapsed, bound)
			}
		})
	}
}

func TestPollBecomesReady(t *testing.T) {
	pin := &gpiotest.Pin{N: "busy", L: gpio.Low}
	p := &Poll{Pin: pin, Busy: gpio.Low, Interval: 2 * time.Millisecond}

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = pin.Out(gpio.High)
	}()

	if err := p.Wait(5 * time.Second); err != nil {
		t.Errorf("Wait() failed: %v", err)
	}
}

func TestPollFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	start := clock.Now()
	p := &Poll{
		Pin:      &gpiotest.Pin{N: "busy", L: gpio.High},
		Busy:     gpio.High,
		Interval: 100 * time.Millisecond,
		Clock:    clock,
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Wait(250 * time.Millisecond)
	}()

	// Two full intervals and a final, shortened sleep.
	for _, step := range []time.Duration{100, 100, 50} {
		clock.BlockUntil(1)
		clock.Advance(step * time.Millisecond)
	}

	if err := <-done; !errors.Is(err, ErrTimeout) {
		t.Errorf("Wait() = %v, want %v", err, ErrTimeout)
	}
	if got, want := clock.Since(start), 250*time.Millisecond; got != want {
		t.Errorf("Wait() consumed %s of fake time, want %s", got, want)
	}
}

func TestPollString(t *testing.T) {
	pin := &gpiotest.Pin{N: "busy", L: gpio.High}
	p, err := NewPoll(pin, gpio.Low)
	if err != nil {
		t.Fatalf("NewPoll() failed: %v", err)
	}
	if s := p.String(); !strings.Contains(s, "every "+DefaultInterval.String()) {
		t.Errorf("String() = %q, want the default interval", s)
	}
	p.Interval = 5 * time.Millisecond
	if s := p.String(); !strings.Contains(s, "every 5ms") {
		t.Errorf("String() = %q, want the configured interval", s)
	}
}

func TestNewEdge(t *testing.T) {
	if _, err := NewEdge(&gpiotest.Pin{N: "busy"}, gpio.Low); err == nil {
		t.Error("NewEdge() succeeded on a pin without edge support")
	}

	pin := &gpiotest.Pin{N: "busy", EdgesChan: make(chan gpio.Level, 1)}
	pin.EdgesChan <- gpio.High
	if _, err := NewEdge(pin, gpio.Low); err != nil {
		t.Fatalf("NewEdge() failed: %v", err)
	}
	if n := len(pin.EdgesChan); n != 0 {
		t.Errorf("NewEdge() left %d stale edges queued", n)
	}
}

func TestEdgeWait(t *testing.T) {
	for _, tc := range []struct {
		name    string
		busy    gpio.Level
		initial gpio.Level
		edges   []gpio.Level
		timeout time.Duration
		want    error
	}{
		{
			name:    "already ready",
			busy:    gpio.Low,
			initial: gpio.High,
			timeout: time.Second,
		},
		{
			name:    "rising edge",
			busy:    gpio.Low,
			initial: gpio.Low,
			edges:   []gpio.Level{gpio.High},
			timeout: 5 * time.Second,
		},
		{
			name:    "falling edge, active high",
			busy:    gpio.High,
			initial: gpio.High,
			edges:   []gpio.Level{gpio.Low},
			timeout: 5 * time.Second,
		},
		{
			name:    "glitch then ready",
			busy:    gpio.Low,
			initial: gpio.Low,
			edges:   []gpio.Level{gpio.Low, gpio.High},
			timeout: 5 * time.Second,
		},
		{
			name:    "stuck",
			busy:    gpio.Low,
			initial: gpio.Low,
			timeout: 40 * time.Millisecond,
			want:    ErrTimeout,
		},
		{
			name:    "glitch only",
			busy:    gpio.Low,
			initial: gpio.Low,
			edges:   []gpio.Level{gpio.Low},
			timeout: 40 * time.Millisecond,
			want:    ErrTimeout,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pin := &gpiotest.Pin{N: "busy", EdgesChan: make(chan gpio.Level, len(tc.edges)+1)}
			e, err := NewEdge(pin, tc.busy)
			if err != nil {
				t.Fatalf("NewEdge() failed: %v", err)
			}
			_ = pin.Out(tc.initial)

			go func() {
				for _, l := range tc.edges {
					time.Sleep(5 * time.Millisecond)
					pin.EdgesChan <- l
				}
			}()

			start := time.Now()
			err = e.Wait(tc.timeout)
			elapsed := time.Since(start)

			if !errors.Is(err, tc.want) {
				t.Errorf("Wait() = %v, want %v", err, tc.want)
			}
			if bound := tc.timeout + slack; elapsed > bound {
				t.Errorf("Wait() took %s, want at most %s", elapsed, bound)
			}
		})
	}
}

func TestEdgeFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pin := &gpiotest.Pin{N: "busy", L: gpio.Low, Clock: clock, EdgesChan: make(chan gpio.Level)}
	e := &Edge{Pin: pin, Busy: gpio.Low, Clock: clock}

	done := make(chan error, 1)
	go func() {
		done <- e.Wait(time.Minute)
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	if err := <-done; !errors.Is(err, ErrTimeout) {
		t.Errorf("Wait() = %v, want %v", err, ErrTimeout)
	}
}

func TestNew(t *testing.T) {
	pin := &gpiotest.Pin{N: "busy", L: gpio.High, EdgesChan: make(chan gpio.Level, 1)}
	g, err := New(pin, gpio.Low)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := g.Wait(0); err != nil {
		t.Errorf("Wait() failed: %v", err)
	}
}
