// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3/rpi"

	"github.com/GermanBionicSystems/epd/busy"
)

// Opts defines the structure of the display configuration.
type Opts struct {
	// Model is required.
	Model *Model
	// Surface is the image drawing operations go to. It defaults to
	// NewSurface(Model). The driver keeps no other copy of the pixels.
	Surface draw.Image
	// Wait overrides the busy strategy selected at build time.
	Wait busy.Gate
	// Timeouts overrides the model's busy timeouts field by field.
	Timeouts Timeouts
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
	// Clock times the reset pulse. It defaults to the real clock.
	Clock clockwork.Clock
}

// Dev defines the handler which is used to access the display.
type Dev struct {
	c  conn.Conn
	dc gpio.PinOut

	model   *Model
	surface draw.Image
	panel   *panel
	mode    Mode
}

// New creates new handler which is used to access the display. cs may be nil
// when the SPI port drives chip select itself. busy is only used when
// opts.Wait is nil; the controller drives it low while busy.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busyPin gpio.PinIn, opts *Opts) (*Dev, error) {
	if opts == nil || opts.Model == nil {
		return nil, errors.New("uc81xx: a model is required")
	}
	m := opts.Model
	switch m.Format.Depth {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("uc81xx: unsupported depth %d", m.Format.Depth)
	}

	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	gate := opts.Wait
	if gate == nil {
		if busyPin == nil {
			return nil, errors.New("uc81xx: a busy pin or a busy.Gate is required")
		}
		if gate, err = busy.New(busyPin, gpio.Low); err != nil {
			return nil, err
		}
	}

	if err := dc.Out(gpio.High); err != nil {
		return nil, err
	}

	surface := opts.Surface
	if surface == nil {
		surface = NewSurface(m)
	}
	var log logrus.FieldLogger = logrus.StandardLogger()
	if opts.Logger != nil {
		log = opts.Logger
	}

	b := newBus(c, dc, cs, rst, gate, opts.Clock)
	return &Dev{
		c:       c,
		dc:      dc,
		model:   m,
		surface: surface,
		panel:   newPanel(m, b, m.Timeouts.merge(opts.Timeouts), log.WithField("panel", m.Name)),
		mode:    Full,
	}, nil
}

// NewHat creates new handler which is used to access the display. Default
// Waveshare Hat configuration is used.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return New(p, dc, cs, rst, busy, opts)
}

// NewSurface returns a white image covering the panel, in the panel's color
// model.
func NewSurface(m *Model) draw.Image {
	r := m.Bounds()
	var img draw.Image
	if p, ok := m.Format.Model.(color.Palette); ok {
		img = image.NewPaletted(r, p)
	} else if m.Format.Depth == 1 {
		img = image1bit.NewVerticalLSB(r)
	} else {
		img = image.NewGray(r)
	}
	draw.Draw(img, r, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

// ColorModel returns the color model of the panel.
func (d *Dev) ColorModel() color.Model {
	return d.model.Format.Model
}

// Bounds returns the bounds for the configurated display.
func (d *Dev) Bounds() image.Rectangle {
	return d.model.Bounds()
}

// At implements image.Image.
func (d *Dev) At(x, y int) color.Color {
	return d.surface.At(x, y)
}

// Set implements draw.Image. Nothing is sent until Flush.
func (d *Dev) Set(x, y int, c color.Color) {
	d.surface.Set(x, y, c)
}

// Fill paints r with c. Nothing is sent until Flush.
func (d *Dev) Fill(r image.Rectangle, c color.Color) {
	draw.Draw(d.surface, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// Clear paints the whole surface with c. Nothing is sent until Flush.
func (d *Dev) Clear(c color.Color) {
	d.Fill(d.Bounds(), c)
}

// Flush sends r of the surface to the controller RAM. r is widened to byte
// boundaries, and to the whole panel when the controller has no partial
// window. The panel shows it after the next Refresh.
func (d *Dev) Flush(ctx context.Context, r image.Rectangle) error {
	return d.panel.write(ctx, r, d.surface)
}

// Refresh redraws the panel from the controller RAM and returns once the
// controller is done.
func (d *Dev) Refresh(ctx context.Context, mode Mode) error {
	return d.panel.refresh(ctx, mode)
}

// PowerOn resets and configures the controller. It is also the way out of
// Sleep.
func (d *Dev) PowerOn(ctx context.Context) error {
	return d.panel.powerOn(ctx)
}

// Sleep makes the controller enter deep sleep mode. It can be woken up by
// calling PowerOn again.
func (d *Dev) Sleep(ctx context.Context) error {
	return d.panel.sleep(ctx)
}

// PowerOff turns the controller's booster off without deep sleep.
func (d *Dev) PowerOff(ctx context.Context) error {
	return d.panel.powerOff(ctx)
}

// Reset the hardware. It clears Faulted; PowerOn must follow.
func (d *Dev) Reset(ctx context.Context) error {
	return d.panel.reset(ctx)
}

// State returns the current operating state.
func (d *Dev) State() State {
	return d.panel.State()
}

// SetUpdateMode changes the refresh mode used by Draw.
func (d *Dev) SetUpdateMode(mode Mode) {
	d.mode = mode
}

// Draw draws the given image to the display. Only the destination area is
// uploaded. A Partial update mode falls back to Full until the panel had its
// first Full refresh of the power cycle.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error {
	draw.Draw(d.surface, dstRect, src, sp, draw.Src)

	ctx := context.Background()
	if err := d.Flush(ctx, dstRect); err != nil {
		return err
	}
	mode := d.mode
	if mode == Partial && !d.panel.partialReady() {
		mode = Full
	}
	return d.Refresh(ctx, mode)
}

// Halt puts an initialized panel to deep sleep. A faulted panel returns
// ErrFaulted; a panel that is not initialized is left as is.
func (d *Dev) Halt() error {
	switch d.State() {
	case Idle:
		return d.Sleep(context.Background())
	case Faulted:
		return fmt.Errorf("%w: halt", ErrFaulted)
	}
	return nil
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	return fmt.Sprintf("uc81xx.Dev{%s, %s, %s}", d.model, d.c, d.dc)
}

var _ display.Drawer = &Dev{}
var _ draw.Image = &Dev{}
