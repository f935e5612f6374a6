// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func newTestDev(t *testing.T, opts *Opts) (*Dev, *spitest.Record) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger, _ = logtest.NewNullLogger()
	}
	port := &spitest.Record{}
	busy := &gpiotest.Pin{N: "busy", L: gpio.High, EdgesChan: make(chan gpio.Level, 1)}
	d, err := New(port, &gpiotest.Pin{N: "dc"}, &gpiotest.Pin{N: "cs"}, &gpiotest.Pin{N: "rst"}, busy, opts)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return d, port
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		name       string
		model      *Model
		wantString string
		wantBounds image.Rectangle
	}{
		{
			name:       "epd7in5v2",
			model:      &EPD7in5v2,
			wantString: "uc81xx.Dev{epd7in5v2 800x480 mono/1bpp, record, dc(0)}",
			wantBounds: image.Rect(0, 0, 800, 480),
		},
		{
			name:       "epd7in3e",
			model:      &EPD7in3E,
			wantString: "uc81xx.Dev{epd7in3e 800x480 spectra6/4bpp, record, dc(0)}",
			wantBounds: image.Rect(0, 0, 800, 480),
		},
		{
			name:       "impression57",
			model:      &Impression57,
			wantString: "uc81xx.Dev{impression57 600x448 acep7/4bpp, record, dc(0)}",
			wantBounds: image.Rect(0, 0, 600, 448),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev, _ := newTestDev(t, &Opts{Model: tc.model})

			if diff := cmp.Diff(dev.String(), tc.wantString); diff != "" {
				t.Errorf("String() difference (-got +want):\n%s", diff)
			}
			if diff := cmp.Diff(dev.Bounds(), tc.wantBounds); diff != "" {
				t.Errorf("Bounds() difference (-got +want):\n%s", diff)
			}
			if got := dev.State(); got != Uninitialized {
				t.Errorf("State() = %s, want %s", got, Uninitialized)
			}
			if got := dev.At(10, 10); !sameColor(got, color.White) {
				t.Errorf("At() = %v, want white", got)
			}
		})
	}
}

func TestNewErrors(t *testing.T) {
	pin := &gpiotest.Pin{}
	if _, err := New(&spitest.Record{}, pin, pin, pin, pin, nil); err == nil {
		t.Error("New() without options succeeded")
	}
	if _, err := New(&spitest.Record{}, pin, pin, pin, nil, &Opts{Model: &EPD7in5v2}); err == nil {
		t.Error("New() without a busy pin succeeded")
	}
	bad := EPD7in5v2
	bad.Format.Depth = 3
	if _, err := New(&spitest.Record{}, pin, pin, pin, pin, &Opts{Model: &bad}); err == nil {
		t.Error("New() with a 3 bit format succeeded")
	}
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

func TestSurface(t *testing.T) {
	for _, tc := range []struct {
		model *Model
		want  string
	}{
		{&EPD7in5v2, "*image1bit.VerticalLSB"},
		{&EPD7in3E, "*image.Paletted"},
		{&Impression57, "*image.Paletted"},
	} {
		s := NewSurface(tc.model)
		if got := typeName(s); got != tc.want {
			t.Errorf("NewSurface(%s) is a %s, want %s", tc.model.Name, got, tc.want)
		}
		if s.Bounds() != tc.model.Bounds() {
			t.Errorf("NewSurface(%s).Bounds() = %v", tc.model.Name, s.Bounds())
		}
	}

	gray := EPD7in5v2
	gray.Format = GrayFormat(4)
	if got := typeName(NewSurface(&gray)); got != "*image.Gray" {
		t.Errorf("NewSurface(gray4) is a %s, want *image.Gray", got)
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *image1bit.VerticalLSB:
		return "*image1bit.VerticalLSB"
	case *image.Paletted:
		return "*image.Paletted"
	case *image.Gray:
		return "*image.Gray"
	}
	return "unknown"
}

func TestDevDrawing(t *testing.T) {
	surface := image.NewRGBA(EPD7in5v2.Bounds())
	dev, port := newTestDev(t, &Opts{Model: &EPD7in5v2, Surface: surface})

	dev.Clear(color.White)
	dev.Fill(image.Rect(0, 0, 8, 1), color.Black)
	dev.Set(20, 20, color.Black)

	if !sameColor(dev.At(3, 0), color.Black) || !sameColor(surface.At(20, 20), color.Black) {
		t.Error("drawing did not reach the surface")
	}
	if !sameColor(dev.At(9, 0), color.White) {
		t.Error("Fill() painted outside its rectangle")
	}
	if n := len(port.Ops); n != 0 {
		t.Errorf("drawing sent %d transactions, want none", n)
	}
}

func TestDevLifecycle(t *testing.T) {
	ctx := context.Background()
	dev, port := newTestDev(t, &Opts{Model: &EPD7in5v2})

	if err := dev.PowerOn(ctx); err != nil {
		t.Fatalf("PowerOn() failed: %v", err)
	}
	dev.Fill(image.Rect(0, 0, 8, 1), color.Black)
	if err := dev.Flush(ctx, image.Rect(0, 0, 8, 1)); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if err := dev.Refresh(ctx, Partial); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Refresh(Partial) = %v, want %v", err, ErrInvalidState)
	}
	if err := dev.Refresh(ctx, Full); err != nil {
		t.Fatalf("Refresh(Full) failed: %v", err)
	}

	dev.SetUpdateMode(Partial)
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 16, 16))
	if err := dev.Draw(image.Rect(32, 32, 48, 48), img, image.Point{}); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}
	if got := dev.State(); got != Idle {
		t.Errorf("State() = %s, want %s", got, Idle)
	}

	if err := dev.Halt(); err != nil {
		t.Fatalf("Halt() failed: %v", err)
	}
	if got := dev.State(); got != Sleeping {
		t.Errorf("State() after Halt() = %s, want %s", got, Sleeping)
	}
	if err := dev.Halt(); err != nil {
		t.Errorf("Halt() while sleeping failed: %v", err)
	}

	// The last transaction is the deep sleep check byte.
	last := port.Ops[len(port.Ops)-1].W
	if diff := cmp.Diff(last, []byte{0xA5}); diff != "" {
		t.Errorf("last transaction difference (-got +want):\n%s", diff)
	}

	if err := dev.Reset(ctx); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	if err := dev.PowerOn(ctx); err != nil {
		t.Fatalf("PowerOn() after Reset() failed: %v", err)
	}
	if err := dev.PowerOff(ctx); err != nil {
		t.Fatalf("PowerOff() failed: %v", err)
	}
	if got := dev.State(); got != PoweredDown {
		t.Errorf("State() = %s, want %s", got, PoweredDown)
	}
	if err := dev.Halt(); err != nil {
		t.Errorf("Halt() while powered down failed: %v", err)
	}
}

func TestDrawFallsBackToFull(t *testing.T) {
	dev, port := newTestDev(t, &Opts{Model: &EPD7in5v2})
	if err := dev.PowerOn(context.Background()); err != nil {
		t.Fatalf("PowerOn() failed: %v", err)
	}
	dev.SetUpdateMode(Partial)
	n := len(port.Ops)

	if err := dev.Draw(dev.Bounds(), image.NewUniform(color.Black), image.Point{}); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}
	var got []byte
	for _, op := range port.Ops[n:] {
		if len(op.W) == 1 && (op.W[0] == 0x91 || op.W[0] == 0x12) {
			got = append(got, op.W[0])
		}
	}
	// A full refresh trigger and no partial window.
	if diff := cmp.Diff(got, []byte{0x12}); diff != "" {
		t.Errorf("Draw() difference (-got +want):\n%s", diff)
	}
}

func TestTimeoutsOverride(t *testing.T) {
	dev, _ := newTestDev(t, &Opts{Model: &EPD7in5v2, Timeouts: Timeouts{Refresh: 1}})
	want := EPD7in5v2.Timeouts
	want.Refresh = 1
	if got := dev.panel.timeouts; got != want {
		t.Errorf("timeouts = %+v, want %+v", got, want)
	}
}
