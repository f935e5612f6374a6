// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epdsim simulates a UC81xx e-paper panel behind an SPI port.
//
// The Panel decodes the command and data stream the way the controller does,
// using the level of its DC pin, keeps the controller RAM and drives its busy
// line. It lets the driver run end to end without hardware, and can render
// every refresh to a terminal using ANSI color codes.
package epdsim

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jonboulle/clockwork"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/GermanBionicSystems/epd/uc81xx"
)

// Opts represents the options available for the simulated panel.
type Opts struct {
	// RefreshDelay is how long busy stays asserted after a refresh trigger.
	RefreshDelay time.Duration
	// PowerDelay is how long busy stays asserted after a reset, a power
	// command or a data stop.
	PowerDelay time.Duration
	// MaxTxSize is the largest transaction accepted. It defaults to 4096.
	MaxTxSize int
	// Clock defaults to the real clock.
	Clock clockwork.Clock
	// Out, when set, receives a rendering of the panel after each refresh.
	Out io.Writer
	// Columns is the width of the rendering in characters. It defaults to
	// 100.
	Columns int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// Stdout returns a writer to the console that understands ANSI codes on
// every platform.
func Stdout() io.Writer {
	return colorable.NewColorableStdout()
}

// Panel is a simulated panel. It implements spi.Port.
type Panel struct {
	model *uc81xx.Model
	opts  Opts
	roles map[byte]role

	dc   *gpiotest.Pin
	rst  *resetPin
	busy *busyPin

	mu         sync.Mutex
	ram        []byte
	shown      []byte
	cmd        byte
	hasCmd     bool
	applied    bool
	params     []byte
	offset     int
	partial    bool
	window     image.Rectangle
	powered    bool
	sleeping   bool
	stalled    bool
	busyUntil  time.Time
	opcodes    []byte
	refreshes  int
	violations []string
	buf        bytes.Buffer
}

// role is what a command means to the simulator. Commands without a role are
// logged and otherwise ignored.
type role struct {
	name   string
	params int
	apply  func(p *Panel, params []byte)
}

// New returns a simulated panel of the given model.
func New(m *uc81xx.Model, opts *Opts) *Panel {
	p := &Panel{model: m}
	if opts != nil {
		p.opts = *opts
	}
	if p.opts.MaxTxSize <= 0 {
		p.opts.MaxTxSize = 4096
	}
	if p.opts.Clock == nil {
		p.opts.Clock = clockwork.NewRealClock()
	}
	if p.opts.Columns <= 0 {
		p.opts.Columns = 100
	}
	if p.opts.Palette == nil {
		p.opts.Palette = ansi256.Default
	}
	if p.opts.Logger == nil {
		p.opts.Logger = logrus.StandardLogger()
	}

	size := m.Format.Stride(m.Width) * m.Height
	p.ram = make([]byte, size)
	p.shown = make([]byte, size)
	p.dc = &gpiotest.Pin{N: "sim_dc", L: gpio.High}
	p.rst = &resetPin{Pin: gpiotest.Pin{N: "sim_rst", L: gpio.High}, p: p}
	p.busy = &busyPin{Pin: gpiotest.Pin{N: "sim_busy"}, p: p}
	p.roles = p.buildRoles()
	return p
}

func (p *Panel) buildRoles() map[byte]role {
	m := p.model
	roles := map[byte]role{}
	add := func(name string, cmd uc81xx.Command, apply func(p *Panel, params []byte)) {
		n := cmd.Params
		if n == uc81xx.Variable {
			n = 0
		}
		roles[cmd.Code] = role{name: name, params: n, apply: apply}
	}
	add("power on", m.PowerOn.Command(), func(p *Panel, _ []byte) {
		p.powered = true
		p.assertBusy(p.opts.PowerDelay)
	})
	add("power off", m.PowerOff.Command(), func(p *Panel, _ []byte) {
		p.powered = false
		p.assertBusy(p.opts.PowerDelay)
	})
	add("deep sleep", m.DeepSleep.Command(), func(p *Panel, params []byte) {
		if params[0] == 0xA5 {
			p.sleeping = true
		}
	})
	add("refresh", m.Trigger.Command(), (*Panel).refresh)
	add("data start", m.DataStart, nil)
	if m.DataStop != nil {
		add("data stop", m.DataStop.Frame.Command(), func(p *Panel, _ []byte) {
			p.assertBusy(p.opts.PowerDelay)
		})
	}
	if m.HasWindow() {
		add("partial in", m.PartialIn.Command(), func(p *Panel, _ []byte) {
			p.partial = true
		})
		add("partial out", m.PartialOut.Command(), func(p *Panel, _ []byte) {
			p.partial = false
		})
		add("window", *m.Window, func(p *Panel, params []byte) {
			r, err := uc81xx.DecodeWindow(params)
			if err != nil || !r.In(p.model.Bounds()) {
				p.violation("window %v outside the panel", r)
				return
			}
			p.window = r
		})
	}
	return roles
}

func (p *Panel) String() string {
	return "epdsim(" + p.model.Name + ")"
}

// Connect implements spi.Port.
func (p *Panel) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, fmt.Errorf("epdsim: %d bits words are not supported", bits)
	}
	return &simConn{p: p}, nil
}

// DC returns the data/command pin.
func (p *Panel) DC() gpio.PinOut {
	return p.dc
}

// RST returns the reset pin. Driving it low resets the controller.
func (p *Panel) RST() gpio.PinOut {
	return p.rst
}

// Busy returns the busy pin, low while the controller is busy.
func (p *Panel) Busy() gpio.PinIn {
	return p.busy
}

// NewDev returns a driver connected to the panel.
func (p *Panel) NewDev(opts *uc81xx.Opts) (*uc81xx.Dev, error) {
	o := uc81xx.Opts{}
	if opts != nil {
		o = *opts
	}
	o.Model = p.model
	return uc81xx.New(p, p.DC(), nil, p.RST(), p.Busy(), &o)
}

// Stall keeps the busy line asserted until the next reset.
func (p *Panel) Stall() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stalled = true
}

// Frame returns what the panel shows: the RAM content at the last refresh.
func (p *Panel) Frame() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model.Format.Decode(p.model.Bounds(), p.shown)
}

// RAM returns a copy of the raw controller RAM.
func (p *Panel) RAM() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.ram...)
}

// Commands returns the opcodes received so far.
func (p *Panel) Commands() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.opcodes...)
}

// Refreshes returns the number of refreshes done.
func (p *Panel) Refreshes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshes
}

// Sleeping reports whether the controller is in deep sleep.
func (p *Panel) Sleeping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sleeping
}

// Violations lists the protocol errors seen: commands sent while busy,
// refreshes without power and writes past the addressed region.
func (p *Panel) Violations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.violations...)
}

func (p *Panel) violation(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	p.violations = append(p.violations, msg)
	p.opts.Logger.WithField("panel", p.model.Name).Warn("epdsim: " + msg)
}

// isBusy is called with the lock held.
func (p *Panel) isBusy() bool {
	return p.stalled || p.opts.Clock.Now().Before(p.busyUntil)
}

func (p *Panel) assertBusy(d time.Duration) {
	if until := p.opts.Clock.Now().Add(d); until.After(p.busyUntil) {
		p.busyUntil = until
	}
}

func (p *Panel) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasCmd = false
	p.partial = false
	p.powered = false
	p.sleeping = false
	p.stalled = false
	p.busyUntil = time.Time{}
	p.assertBusy(p.opts.PowerDelay)
}

func (p *Panel) tx(w []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sleeping {
		return
	}
	if p.dc.Read() == gpio.Low {
		for _, c := range w {
			p.command(c)
		}
		return
	}
	if !p.hasCmd {
		p.violation("%d data bytes without a command", len(w))
		return
	}
	if p.cmd == p.model.DataStart.Code {
		p.pixels(w)
		return
	}
	p.params = append(p.params, w...)
	p.apply()
}

func (p *Panel) command(c byte) {
	if p.isBusy() {
		p.violation("command 0x%02X while busy", c)
	}
	p.cmd = c
	p.hasCmd = true
	p.applied = false
	p.params = p.params[:0]
	p.offset = 0
	p.opcodes = append(p.opcodes, c)
	p.apply()
}

// apply runs the role of the current command once all its parameters
// arrived.
func (p *Panel) apply() {
	r, ok := p.roles[p.cmd]
	if !ok || p.applied || len(p.params) < r.params {
		return
	}
	p.applied = true
	if r.apply != nil {
		r.apply(p, p.params)
	}
}

// pixels stores data in the RAM, inside the window in partial mode.
func (p *Panel) pixels(b []byte) {
	r := p.model.Bounds()
	if p.partial {
		r = p.window
	}
	f := &p.model.Format
	ws := f.Stride(r.Dx())
	fs := f.Stride(p.model.Width)
	if ws == 0 {
		p.violation("data without a window")
		return
	}
	x0 := r.Min.X * f.Depth / 8
	for _, v := range b {
		row, col := p.offset/ws, p.offset%ws
		p.offset++
		if row >= r.Dy() {
			p.violation("data past the end of %v", r)
			return
		}
		p.ram[(r.Min.Y+row)*fs+x0+col] = v
	}
}

// refresh copies the RAM to the display, only the window in partial mode.
func (p *Panel) refresh(_ []byte) {
	if !p.powered {
		p.violation("refresh without power")
	}
	r := p.model.Bounds()
	if p.partial {
		r = p.window
	}
	f := &p.model.Format
	fs := f.Stride(p.model.Width)
	x0, x1 := r.Min.X*f.Depth/8, f.Stride(r.Max.X)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		copy(p.shown[y*fs+x0:y*fs+x1], p.ram[y*fs+x0:y*fs+x1])
	}
	p.refreshes++
	p.assertBusy(p.opts.RefreshDelay)
	p.opts.Logger.WithFields(logrus.Fields{"panel": p.model.Name, "region": r, "count": p.refreshes}).Debug("epdsim: refresh")
	if p.opts.Out != nil {
		p.render()
	}
}

// render writes the shown frame to Out, two pixel rows per text row.
func (p *Panel) render() {
	img := p.model.Format.Decode(p.model.Bounds(), p.shown)
	cols := p.opts.Columns
	rows := max(1, cols*p.model.Height/p.model.Width/2)
	small := imaging.Resize(img, cols, rows, imaging.Box)

	// This code is designed to minimize the amount of memory allocated per call.
	p.buf.Reset()
	_, _ = p.buf.WriteString("\033[0m")
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			_, _ = io.WriteString(&p.buf, p.opts.Palette.Block(small.NRGBAAt(x, y)))
		}
		_, _ = p.buf.WriteString("\033[0m\n")
	}
	_, _ = p.buf.WriteTo(p.opts.Out)
}

// simConn is the SPI connection to the panel.
type simConn struct {
	p *Panel
}

func (c *simConn) String() string {
	return c.p.String()
}

func (c *simConn) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("epdsim: reads are not supported")
	}
	if len(w) > c.p.opts.MaxTxSize {
		return fmt.Errorf("epdsim: %d bytes exceed the %d bytes limit", len(w), c.p.opts.MaxTxSize)
	}
	c.p.tx(w)
	return nil
}

func (c *simConn) TxPackets(p []spi.Packet) error {
	return errors.New("epdsim: TxPackets is not supported")
}

func (c *simConn) Duplex() conn.Duplex {
	return conn.Half
}

func (c *simConn) MaxTxSize() int {
	return c.p.opts.MaxTxSize
}

// resetPin resets the panel on a falling edge.
type resetPin struct {
	gpiotest.Pin
	p *Panel
}

func (r *resetPin) Out(l gpio.Level) error {
	prev := r.Read()
	if err := r.Pin.Out(l); err != nil {
		return err
	}
	if prev == gpio.High && l == gpio.Low {
		r.p.reset()
	}
	return nil
}

// busyPin reports the busy state of the panel.
type busyPin struct {
	gpiotest.Pin
	p *Panel
}

// In accepts any edge detection setting.
func (b *busyPin) In(pull gpio.Pull, edge gpio.Edge) error {
	return nil
}

func (b *busyPin) Read() gpio.Level {
	b.p.mu.Lock()
	defer b.p.mu.Unlock()
	if b.p.isBusy() {
		return gpio.Low
	}
	return gpio.High
}

// WaitForEdge sleeps until the panel is ready or timeout elapsed.
func (b *busyPin) WaitForEdge(timeout time.Duration) bool {
	b.p.mu.Lock()
	stalled := b.p.stalled
	d := b.p.busyUntil.Sub(b.p.opts.Clock.Now())
	b.p.mu.Unlock()
	if stalled || d > timeout {
		b.p.opts.Clock.Sleep(timeout)
		return false
	}
	if d > 0 {
		b.p.opts.Clock.Sleep(d)
	}
	return true
}

var _ spi.Port = &Panel{}
var _ conn.Limits = &simConn{}
