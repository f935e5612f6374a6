// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/epd/busy"
)

// defaultMaxTx is used when the connection does not report its limit.
const defaultMaxTx = 4096

// Reset pulse timing.
const (
	resetLow  = 30 * time.Millisecond
	resetHigh = 30 * time.Millisecond
)

// bus owns the wire: the SPI connection and the control pins.
type bus struct {
	c   conn.Conn
	dc  gpio.PinOut
	cs  gpio.PinOut // nil when the SPI port drives chip select
	rst gpio.PinOut

	gate  busy.Gate
	clock clockwork.Clock
	maxTx int
}

func newBus(c conn.Conn, dc, cs, rst gpio.PinOut, gate busy.Gate, clock clockwork.Clock) *bus {
	maxTx := defaultMaxTx
	if l, ok := c.(conn.Limits); ok {
		if n := l.MaxTxSize(); n > 0 {
			maxTx = n
		}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &bus{c: c, dc: dc, cs: cs, rst: rst, gate: gate, clock: clock, maxTx: maxTx}
}

// errorHandler is a wrapper for error management. The first error sticks and
// every later call is a no-op. Only the operation that claimed the panel
// holds one.
type errorHandler struct {
	b   *bus
	err error

	// ctx, when set, is checked before each command. A cancellation is only
	// observed between two commands, never in the middle of one.
	ctx context.Context
}

func (eh *errorHandler) transport(what string, err error) {
	if err != nil && eh.err == nil {
		eh.err = fmt.Errorf("%w: %s: %v", ErrTransport, what, err)
	}
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.transport("rst", eh.b.rst.Out(l))
}

func (eh *errorHandler) cTx(w []byte, r []byte) {
	if eh.err != nil {
		return
	}
	eh.transport("tx", eh.b.c.Tx(w, r))
}

func (eh *errorHandler) dcOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.transport("dc", eh.b.dc.Out(l))
}

func (eh *errorHandler) csOut(l gpio.Level) {
	if eh.err != nil || eh.b.cs == nil {
		return
	}
	eh.transport("cs", eh.b.cs.Out(l))
}

// sendCommand writes an opcode with DC low, then returns DC to its rest
// level (data).
func (eh *errorHandler) sendCommand(cmd byte) {
	if eh.err != nil {
		return
	}
	if eh.ctx != nil {
		if err := eh.ctx.Err(); err != nil {
			eh.err = err
			return
		}
	}

	eh.dcOut(gpio.Low)
	eh.csOut(gpio.Low)
	eh.cTx([]byte{cmd}, nil)
	eh.csOut(gpio.High)
	eh.dcOut(gpio.High)
}

// sendData writes data with DC high, split in chunks the connection accepts.
func (eh *errorHandler) sendData(data []byte) {
	if eh.err != nil {
		return
	}

	eh.dcOut(gpio.High)
	eh.csOut(gpio.Low)
	for len(data) > 0 && eh.err == nil {
		n := min(len(data), eh.b.maxTx)
		eh.cTx(data[:n], nil)
		data = data[n:]
	}
	eh.csOut(gpio.High)
}

// sendFrame is a command followed by its parameters.
func (eh *errorHandler) sendFrame(f Frame) {
	eh.sendCommand(f.cmd.Code)
	if len(f.params) > 0 {
		eh.sendData(f.params)
	}
}

func (eh *errorHandler) waitReady(timeout time.Duration) {
	if eh.err != nil {
		return
	}
	if err := eh.b.gate.Wait(timeout); err != nil {
		eh.err = fmt.Errorf("uc81xx: waiting %s: %w", timeout, err)
	}
}

// reset pulses the reset line. The controller drops any command in progress
// and loses its configuration, deep sleep included.
func (eh *errorHandler) reset() {
	eh.rstOut(gpio.Low)
	if eh.err == nil {
		eh.b.clock.Sleep(resetLow)
	}
	eh.rstOut(gpio.High)
	if eh.err == nil {
		eh.b.clock.Sleep(resetHigh)
	}
}
