// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package busy waits for an e-paper controller to release its busy line.
//
// Two strategies implement the same Gate contract. Poll samples the line and
// sleeps between samples; Edge parks the calling goroutine on the pin's edge
// detection until the line changes. Both always return within the timeout
// given to Wait: there is no unbounded wait.
package busy

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
)

// ErrTimeout is returned when the controller did not report ready in time.
var ErrTimeout = errors.New("busy: timed out waiting for controller")

// DefaultInterval is the delay between two samples of the Poll strategy.
const DefaultInterval = 100 * time.Millisecond

// Gate blocks until the controller is ready to accept new commands.
type Gate interface {
	// Wait returns nil once the busy line reads ready, or ErrTimeout when
	// timeout elapsed first. A timeout <= 0 samples the line once.
	Wait(timeout time.Duration) error
}

// Poll is the blocking strategy: it samples the busy line and sleeps
// Interval between samples.
type Poll struct {
	Pin gpio.PinIn
	// Busy is the level the controller drives while it is busy.
	Busy gpio.Level
	// Interval defaults to DefaultInterval.
	Interval time.Duration
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// NewPoll configures pin as an input and returns a polling gate.
func NewPoll(pin gpio.PinIn, busy gpio.Level) (*Poll, error) {
	if err := pin.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("busy: configuring %s: %w", pin, err)
	}
	return &Poll{Pin: pin, Busy: busy}, nil
}

// Wait implements Gate.
func (p *Poll) Wait(timeout time.Duration) error {
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := p.interval()

	deadline := clock.Now().Add(timeout)
	for p.Pin.Read() == p.Busy {
		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			return ErrTimeout
		}
		clock.Sleep(min(interval, remaining))
	}
	return nil
}

func (p *Poll) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}
	return p.Interval
}

func (p *Poll) String() string {
	return fmt.Sprintf("busy.Poll{%s, every %s}", p.Pin, p.interval())
}

// Edge is the suspending strategy: between samples the goroutine sleeps in
// the pin's WaitForEdge and consumes no CPU.
type Edge struct {
	Pin gpio.PinIn
	// Busy is the level the controller drives while it is busy.
	Busy gpio.Level
	// Clock defaults to the real clock. It only measures the deadline; the
	// suspension itself is done by the pin.
	Clock clockwork.Clock
}

// NewEdge configures pin to report the busy-to-ready transition and returns
// a suspending gate.
func NewEdge(pin gpio.PinIn, busy gpio.Level) (*Edge, error) {
	edge := gpio.RisingEdge
	if busy == gpio.High {
		edge = gpio.FallingEdge
	}
	if err := pin.In(gpio.Float, edge); err != nil {
		return nil, fmt.Errorf("busy: configuring %s: %w", pin, err)
	}
	return &Edge{Pin: pin, Busy: busy}, nil
}

// Wait implements Gate.
func (e *Edge) Wait(timeout time.Duration) error {
	clock := e.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	deadline := clock.Now().Add(timeout)
	for e.Pin.Read() == e.Busy {
		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			return ErrTimeout
		}
		// The level is sampled again whether an edge arrived or not, so a
		// spurious or missed edge only costs the remaining budget.
		e.Pin.WaitForEdge(remaining)
	}
	return nil
}

func (e *Edge) String() string {
	return fmt.Sprintf("busy.Edge{%s}", e.Pin)
}

var _ Gate = &Poll{}
var _ Gate = &Edge{}
