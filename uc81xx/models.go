// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import (
	"fmt"
	"image"
	"time"
)

// Timeouts bounds every wait on the busy line. A zero field in Opts.Timeouts
// keeps the model's value.
type Timeouts struct {
	// Reset bounds the wait after the hardware reset pulse.
	Reset time.Duration
	// Power bounds the booster power on and off and the data stop commands.
	Power time.Duration
	// Refresh bounds a display refresh.
	Refresh time.Duration
}

func (t Timeouts) merge(o Timeouts) Timeouts {
	if o.Reset > 0 {
		t.Reset = o.Reset
	}
	if o.Power > 0 {
		t.Power = o.Power
	}
	if o.Refresh > 0 {
		t.Refresh = o.Refresh
	}
	return t
}

// Model describes a panel: its geometry, pixel layout and the command
// sequences of its controller.
type Model struct {
	Name   string
	Width  int
	Height int
	Format Format

	// Init is sent after the hardware reset.
	Init []Step

	// KeepPowered is set when Init turns the booster on and it stays on
	// between refreshes. Otherwise every refresh is wrapped in PowerOn and
	// PowerOff.
	KeepPowered bool
	PowerOn     Frame
	PowerOff    Frame
	DeepSleep   Frame

	// DataStart starts the transmission of new pixel data.
	DataStart Command
	// DataStop, when set, is sent after the pixel data.
	DataStop *Step
	// Trigger starts a display refresh.
	Trigger Frame

	// FullLUT and PartialLUT select the waveform before a refresh.
	FullLUT    []Frame
	PartialLUT []Frame

	// Window, PartialIn and PartialOut address a sub-region of the
	// controller RAM. Window is nil when the controller cannot do it, and
	// such a panel only does Full refreshes of the whole frame.
	Window     *Command
	PartialIn  Frame
	PartialOut Frame

	Timeouts Timeouts
}

func (m *Model) String() string {
	return fmt.Sprintf("%s %dx%d %s", m.Name, m.Width, m.Height, &m.Format)
}

// Bounds returns the panel rectangle.
func (m *Model) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// HasWindow reports whether the panel supports partial refreshes.
func (m *Model) HasWindow() bool {
	return m.Window != nil
}

// windowFrame builds the partial window frame covering r, which must be byte
// aligned.
func (m *Model) windowFrame(r image.Rectangle) (Frame, error) {
	return NewFrame(*m.Window, EncodeWindow(r)...)
}

// EncodeWindow returns the 9 parameter bytes of the UC8179 partial window
// command for r: the horizontal and vertical start and inclusive end, big
// endian, and the gate scan flag.
func EncodeWindow(r image.Rectangle) []byte {
	xe, ye := r.Max.X-1, r.Max.Y-1
	return []byte{
		byte(r.Min.X >> 8), byte(r.Min.X),
		byte(xe >> 8), byte(xe),
		byte(r.Min.Y >> 8), byte(r.Min.Y),
		byte(ye >> 8), byte(ye),
		0x01,
	}
}

// DecodeWindow is the inverse of EncodeWindow.
func DecodeWindow(p []byte) (image.Rectangle, error) {
	if len(p) != 9 {
		return image.Rectangle{}, fmt.Errorf("%w: window takes 9 bytes, got %d", ErrArity, len(p))
	}
	u16 := func(b []byte) int { return int(b[0])<<8 | int(b[1]) }
	return image.Rect(u16(p[0:]), u16(p[4:]), u16(p[2:])+1, u16(p[6:])+1), nil
}

// EPD7in5v2 is the Waveshare 7.5" V2 panel: UC8179, 800x480, black and
// white with partial refresh.
var EPD7in5v2 = Model{
	Name:   "epd7in5v2",
	Width:  800,
	Height: 480,
	Format: Mono,
	Init: []Step{
		{Frame: mustFrame(uc8179PWR, 0x07, 0x07, 0x3F, 0x3F)},
		{Frame: mustFrame(uc8179BTST, 0x17, 0x17, 0x28, 0x17)},
		{Frame: mustFrame(cmdPON), Wait: true},
		// KW mode, LUT from OTP.
		{Frame: mustFrame(uc8179PSR, 0x1F)},
		{Frame: mustFrame(uc8179TRES, 0x03, 0x20, 0x01, 0xE0)},
		{Frame: mustFrame(uc8179DUSPI, 0x00)},
		{Frame: mustFrame(uc8179CDI, 0x10, 0x07)},
		{Frame: mustFrame(uc8179TCON, 0x22)},
	},
	KeepPowered: true,
	PowerOn:     mustFrame(cmdPON),
	PowerOff:    mustFrame(cmdPOF),
	DeepSleep:   mustFrame(cmdDSLP, deepSleepCheck),
	DataStart:   uc8179DTM2,
	Trigger:     mustFrame(uc8179DRF),
	FullLUT: []Frame{
		mustFrame(uc8179CCSET, 0x00),
		mustFrame(uc8179CDI, 0x10, 0x07),
	},
	// Force the temperature so the controller picks its fast waveform.
	PartialLUT: []Frame{
		mustFrame(uc8179CCSET, 0x02),
		mustFrame(uc8179TSSET, 0x6E),
		mustFrame(uc8179CDI, 0xA9, 0x07),
	},
	Window:     &uc8179PTL,
	PartialIn:  mustFrame(uc8179PTIN),
	PartialOut: mustFrame(uc8179PTOUT),
	Timeouts: Timeouts{
		Reset:   2 * time.Second,
		Power:   5 * time.Second,
		Refresh: 20 * time.Second,
	},
}

// EPD7in3E is the Waveshare 7.3" Spectra 6 (E6) panel, 800x480, 6 colors.
var EPD7in3E = Model{
	Name:   "epd7in3e",
	Width:  800,
	Height: 480,
	Format: Spectra6,
	Init: []Step{
		{Frame: mustFrame(e6CMDH, 0x49, 0x55, 0x20, 0x08, 0x09, 0x18)},
		{Frame: mustFrame(e6PWR, 0x3F)},
		{Frame: mustFrame(e6PSR, 0x5F, 0x69)},
		{Frame: mustFrame(e6BTST1, 0x40, 0x1F, 0x1F, 0x2C)},
		{Frame: mustFrame(e6BTST3, 0x6F, 0x1F, 0x1F, 0x22)},
		{Frame: mustFrame(e6BTST2, 0x6F, 0x1F, 0x17, 0x17)},
		{Frame: mustFrame(e6POFS, 0x00, 0x54, 0x00, 0x44)},
		{Frame: mustFrame(e6TCON, 0x02, 0x00)},
		{Frame: mustFrame(e6PLL, 0x08)},
		{Frame: mustFrame(e6CDI, 0x3F)},
		{Frame: mustFrame(e6TRES, 0x03, 0x20, 0x01, 0xE0)},
		{Frame: mustFrame(e6PWS, 0x2F)},
		{Frame: mustFrame(e6VDCS, 0x01)},
	},
	PowerOn:   mustFrame(cmdPON),
	PowerOff:  mustFrame(cmdPOF),
	DeepSleep: mustFrame(cmdDSLP, deepSleepCheck),
	DataStart: cmdDTM1,
	DataStop:  &Step{Frame: mustFrame(e6DSP), Wait: true},
	Trigger:   mustFrame(e6DRF, 0x00),
	Timeouts: Timeouts{
		Reset:   20 * time.Second,
		Power:   20 * time.Second,
		Refresh: 20 * time.Second,
	},
}

// Impression57 is the Pimoroni Inky Impression 5.7": UC8159, 600x448, 7
// colors.
var Impression57 = Model{
	Name:   "impression57",
	Width:  600,
	Height: 448,
	Format: Acep7,
	Init: []Step{
		{Frame: mustFrame(uc8159TRES, 0x02, 0x58, 0x01, 0xC0)},
		// 600x448 resolution, LUT from OTP, booster on, no soft reset.
		{Frame: mustFrame(uc8159PSR, 0xEF, 0x08)},
		{Frame: mustFrame(uc8159PWR, 0x37, 0x00, 0x23, 0x23)},
		{Frame: mustFrame(uc8159PLL, 0x3C)},
		{Frame: mustFrame(uc8159TSE, 0x00)},
		// White border.
		{Frame: mustFrame(uc8159CDI, 0x37)},
		{Frame: mustFrame(uc8159TCON, 0x22)},
		{Frame: mustFrame(uc8159DAM, 0x00)},
		{Frame: mustFrame(uc8159PWS, 0xAA)},
		{Frame: mustFrame(uc8159PFS, 0x00)},
	},
	PowerOn:   mustFrame(cmdPON),
	PowerOff:  mustFrame(cmdPOF),
	DeepSleep: mustFrame(cmdDSLP, deepSleepCheck),
	DataStart: cmdDTM1,
	Trigger:   mustFrame(uc8159DRF),
	Timeouts: Timeouts{
		Reset:   time.Second,
		Power:   5 * time.Second,
		Refresh: 40 * time.Second,
	},
}
