// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx_test

import (
	"context"
	"image"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/epd/uc81xx"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Use spireg SPI bus registry to find the first available SPI bus.
	b, err := spireg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	dev, err := uc81xx.NewHat(b, &uc81xx.Opts{Model: &uc81xx.EPD7in5v2})
	if err != nil {
		log.Fatalf("Failed to initialize driver: %v", err)
	}

	ctx := context.Background()
	if err := dev.PowerOn(ctx); err != nil {
		log.Fatalf("Failed to initialize display: %v", err)
	}

	// Draw on it. Black text on a white background.
	dev.Clear(image1bit.On)
	f := basicfont.Face7x13
	drawer := font.Drawer{
		Dst:  dev,
		Src:  &image.Uniform{image1bit.Off},
		Face: f,
		Dot:  fixed.P(8, 8+f.Ascent),
	}
	drawer.DrawString("Hello from periph!")

	if err := dev.Flush(ctx, dev.Bounds()); err != nil {
		log.Fatal(err)
	}
	if err := dev.Refresh(ctx, uc81xx.Full); err != nil {
		log.Fatal(err)
	}

	// Only the clock area is sent and redrawn.
	clock := image.Rect(8, 40, 200, 60)
	dev.Fill(clock, image1bit.On)
	drawer.Dot = fixed.P(clock.Min.X, clock.Min.Y+f.Ascent)
	drawer.DrawString(time.Now().Format(time.Kitchen))
	if err := dev.Flush(ctx, clock); err != nil {
		log.Fatal(err)
	}
	if err := dev.Refresh(ctx, uc81xx.Partial); err != nil {
		log.Fatal(err)
	}

	if err := dev.Sleep(ctx); err != nil {
		log.Fatal(err)
	}
}
