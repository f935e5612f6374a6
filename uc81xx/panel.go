// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// panel owns the operating state. An operation claims the panel by moving it
// to its working state, and only the claiming goroutine touches the bus until
// it releases the claim. A second request fails immediately, nothing queues.
type panel struct {
	model    *Model
	bus      *bus
	timeouts Timeouts
	log      logrus.FieldLogger

	mu       sync.Mutex
	state    State
	inFlight bool
	// baseline is set by a Full refresh and cleared when the power cycle
	// ends.
	baseline bool
	// dirty is the union of the regions written since the last refresh.
	dirty image.Rectangle
}

func newPanel(m *Model, b *bus, t Timeouts, log logrus.FieldLogger) *panel {
	return &panel{model: m, bus: b, timeouts: t, log: log}
}

func (p *panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *panel) partialReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model.HasWindow() && p.baseline
}

// claim moves the panel from one of the states in from to the working state
// to. check runs under the lock before the move and can veto it.
func (p *panel) claim(op string, to State, check func() error, from ...State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight {
		return fmt.Errorf("%w: %s while %s", ErrInvalidState, op, p.state)
	}
	if !slices.Contains(from, p.state) {
		if p.state == Faulted {
			return fmt.Errorf("%w: %s", ErrFaulted, op)
		}
		return fmt.Errorf("%w: %s from %s", ErrInvalidState, op, p.state)
	}
	if check != nil {
		if err := check(); err != nil {
			return err
		}
	}
	p.log.WithFields(logrus.Fields{"op": op, "from": p.state, "to": to}).Debug("uc81xx: claim")
	p.state = to
	p.inFlight = true
	return nil
}

// release ends the claim. A cancellation lands in cancelled, any other
// failure in Faulted. commit runs under the lock on success.
func (p *panel) release(op string, err error, ok, cancelled State, commit func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false
	switch {
	case err == nil:
		p.state = ok
		if commit != nil {
			commit()
		}
		p.log.WithFields(logrus.Fields{"op": op, "state": p.state}).Debug("uc81xx: done")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		p.state = cancelled
		p.log.WithError(err).WithFields(logrus.Fields{"op": op, "state": p.state}).Info("uc81xx: cancelled")
	default:
		p.state = Faulted
		p.log.WithError(err).WithField("op", op).Warn("uc81xx: panel faulted")
	}
	return err
}

func (p *panel) handler() *errorHandler {
	return &errorHandler{b: p.bus}
}

// endCycle forgets the power cycle. Called under the lock.
func (p *panel) endCycle() {
	p.baseline = false
	p.dirty = image.Rectangle{}
}

// powerOn resets the controller and sends its configuration. It is both the
// cold start and the wake up from deep sleep. A cancelled initialization
// leaves the panel Uninitialized.
func (p *panel) powerOn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.claim("power on", Initializing, nil, Uninitialized, PoweredDown, Sleeping); err != nil {
		return err
	}
	eh := p.handler()
	eh.ctx = ctx
	eh.reset()
	initDisplay(eh, p.model, p.timeouts)
	return p.release("power on", eh.err, Idle, Uninitialized, p.endCycle)
}

// region clips r to the panel and aligns it. Panels without a partial window
// are always written whole.
func (p *panel) region(r image.Rectangle) image.Rectangle {
	b := p.model.Bounds()
	r = r.Intersect(b)
	if r.Empty() {
		return image.Rectangle{}
	}
	if !p.model.HasWindow() {
		return b
	}
	return p.model.Format.Align(r).Intersect(b)
}

// write encodes r from src and sends it to the controller RAM. It does not
// wait for the busy line unless the model needs a data stop.
func (p *panel) write(ctx context.Context, r image.Rectangle, src image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r = p.region(r)
	if r.Empty() {
		return nil
	}
	buf := p.model.Format.Encode(r, src)

	if err := p.claim("write", TransferringBuffer, nil, Idle); err != nil {
		return err
	}
	eh := p.handler()
	err := transfer(eh, p.model, r, buf, p.timeouts)
	if err == nil {
		err = eh.err
	}
	return p.release("write", err, Idle, Idle, func() {
		p.dirty = p.dirty.Union(r)
	})
}

// refresh redraws the panel. Partial needs a partial window and a Full
// refresh earlier in the power cycle; a violation leaves the panel Idle.
func (p *panel) refresh(ctx context.Context, mode Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var r image.Rectangle
	check := func() error {
		if mode == Full {
			return nil
		}
		if !p.model.HasWindow() {
			return fmt.Errorf("%w: %s has no partial refresh", ErrInvalidState, p.model.Name)
		}
		if !p.baseline {
			return fmt.Errorf("%w: partial refresh before a full refresh", ErrInvalidState)
		}
		r = p.dirty
		if r.Empty() {
			r = p.model.Bounds()
		}
		return nil
	}
	op := "refresh " + mode.String()
	if err := p.claim(op, Refreshing, check, Idle); err != nil {
		return err
	}

	eh := p.handler()
	var err error
	if mode == Full {
		refreshFull(eh, p.model, p.timeouts)
	} else {
		err = refreshPartial(eh, p.model, r, p.timeouts)
	}
	if err == nil {
		err = eh.err
	}
	return p.release(op, err, Idle, Idle, func() {
		p.dirty = image.Rectangle{}
		if mode == Full {
			p.baseline = true
		}
	})
}

// sleep enters deep sleep. The controller keeps its RAM but the power cycle
// ends: the next refresh after powerOn must be Full.
func (p *panel) sleep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.claim("sleep", Sleeping, nil, Idle); err != nil {
		return err
	}
	eh := p.handler()
	sleep(eh, p.model, p.timeouts)
	return p.release("sleep", eh.err, Sleeping, Idle, p.endCycle)
}

// powerOff turns the booster off without entering deep sleep.
func (p *panel) powerOff(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.claim("power off", PoweredDown, nil, Idle); err != nil {
		return err
	}
	eh := p.handler()
	powerOff(eh, p.model, p.timeouts)
	return p.release("power off", eh.err, PoweredDown, Idle, p.endCycle)
}

// reset pulses the reset line. It is the only way out of Faulted.
func (p *panel) reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.claim("reset", Uninitialized, nil, Uninitialized, PoweredDown, Idle, Sleeping, Faulted); err != nil {
		return err
	}
	eh := p.handler()
	eh.reset()
	return p.release("reset", eh.err, Uninitialized, Uninitialized, p.endCycle)
}
