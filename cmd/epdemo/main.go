// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// epdemo draws text or a picture on a UC81xx e-paper panel, then keeps a
// clock updated with partial refreshes when the panel supports them.
//
// With -sim, the panel is simulated and rendered to the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"os/signal"

	"github.com/MaxHalford/halfgone"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/epd/busy"
	"github.com/GermanBionicSystems/epd/epdsim"
	"github.com/GermanBionicSystems/epd/uc81xx"
)

func newLogger(c Log) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	if c.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// openPanel returns a driver for the configured panel. The returned closer
// releases the SPI port.
func openPanel(c *Config, sim bool, log logrus.FieldLogger) (*uc81xx.Dev, io.Closer, error) {
	m, err := c.PanelModel()
	if err != nil {
		return nil, nil, err
	}
	opts := &uc81xx.Opts{Model: m, Timeouts: c.PanelTimeouts(), Logger: log}

	if sim {
		s := epdsim.New(m, &epdsim.Opts{
			RefreshDelay: c.Sim.RefreshDelay,
			Out:          epdsim.Stdout(),
			Columns:      c.Sim.Columns,
			Logger:       log,
		})
		if opts.Wait, err = newGate(c, s.Busy()); err != nil {
			return nil, nil, err
		}
		d, err := s.NewDev(opts)
		return d, io.NopCloser(nil), err
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	pin := func(name string) (gpio.PinIO, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("unknown pin %q", name)
		}
		return p, nil
	}
	dc, err := pin(c.Pins.DC)
	if err != nil {
		return nil, nil, err
	}
	rst, err := pin(c.Pins.RST)
	if err != nil {
		return nil, nil, err
	}
	busyPin, err := pin(c.Pins.Busy)
	if err != nil {
		return nil, nil, err
	}
	var cs gpio.PinOut
	if c.Pins.CS != "" {
		if cs, err = pin(c.Pins.CS); err != nil {
			return nil, nil, err
		}
	}
	if opts.Wait, err = newGate(c, busyPin); err != nil {
		return nil, nil, err
	}

	p, err := spireg.Open(c.SPI)
	if err != nil {
		return nil, nil, err
	}
	d, err := uc81xx.New(p, dc, cs, rst, busyPin, opts)
	if err != nil {
		_ = p.Close()
		return nil, nil, err
	}
	return d, p, nil
}

// newGate returns the configured busy strategy, nil for the build default.
func newGate(c *Config, pin gpio.PinIn) (busy.Gate, error) {
	switch c.Wait {
	case "poll":
		p, err := busy.NewPoll(pin, gpio.Low)
		if err != nil {
			return nil, err
		}
		p.Interval = c.PollInterval
		return p, nil
	case "edge":
		return busy.NewEdge(pin, gpio.Low)
	}
	return nil, nil
}

func newFace(size float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

// textImage draws text centered on a white background of the panel size.
func textImage(r image.Rectangle, text string, size float64) (image.Image, error) {
	face, err := newFace(size)
	if err != nil {
		return nil, err
	}
	w, h := float64(r.Dx()), float64(r.Dy())
	dc := gg.NewContext(r.Dx(), r.Dy())
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	dc.SetFontFace(face)
	padding := 16.0
	dc.SetLineWidth(4)
	dc.DrawRoundedRectangle(padding, padding, w-2*padding, h-2*padding, 20)
	dc.Stroke()
	dc.DrawStringWrapped(text, w/2, h/2, 0.5, 0.5, w-8*padding, 1.5, gg.AlignCenter)
	return dc.Image(), nil
}

// pictureImage loads the picture at path and fits it to the panel. Mono
// panels get it dithered to black and white.
func pictureImage(m *uc81xx.Model, path string) (image.Image, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	r := m.Bounds()
	scaled := imaging.Fit(src, r.Dx(), r.Dy(), imaging.Lanczos)
	size := scaled.Bounds().Size()
	at := r.Min.Add(r.Size().Sub(size).Div(2))
	dst := image.Rectangle{Min: at, Max: at.Add(size)}

	switch p := m.Format.Model.(type) {
	case color.Palette:
		img := image.NewPaletted(r, p)
		draw.Draw(img, r, image.White, image.Point{}, draw.Src)
		draw.FloydSteinberg.Draw(img, dst, scaled, image.Point{})
		return img, nil
	default:
		gray := image.NewGray(r)
		draw.Draw(gray, r, image.White, image.Point{}, draw.Src)
		draw.Draw(gray, dst, scaled, image.Point{}, draw.Src)
		if m.Format.Depth == 1 {
			return halfgone.FloydSteinbergDitherer{}.Apply(gray), nil
		}
		return gray, nil
	}
}

// clockRect is where the time is drawn, aligned for the controller window.
func clockRect(m *uc81xx.Model, size float64) image.Rectangle {
	r := m.Bounds()
	h := int(size * 1.5)
	c := image.Rect(r.Max.X-int(size*4)-32, r.Max.Y-h-32, r.Max.X-32, r.Max.Y-32)
	return m.Format.Align(c.Intersect(r))
}

// drawClock updates the clock area with a partial refresh.
func drawClock(dev *uc81xx.Dev, face font.Face, r image.Rectangle, now string) error {
	img := gg.NewContext(r.Dx(), r.Dy())
	img.SetColor(color.White)
	img.Clear()
	img.SetColor(color.Black)
	img.SetFontFace(face)
	img.DrawStringAnchored(now, float64(r.Dx())/2, float64(r.Dy())/2, 0.5, 0.5)
	return dev.Draw(r, img.Image(), image.Point{})
}

func mainImpl() error {
	configPath := flag.String("config", "", "YAML configuration file")
	sim := flag.Bool("sim", false, "use a simulated panel rendered to the terminal")
	verbose := flag.Bool("v", false, "verbose mode")
	picture := flag.String("picture", "", "picture to draw instead of the configured one")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	c, err := Load(*configPath)
	if err != nil {
		return err
	}
	if *picture != "" {
		c.Picture = *picture
	}
	log, err := newLogger(c.Log)
	if err != nil {
		return err
	}
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dev, closer, err := openPanel(c, *sim, log)
	if err != nil {
		return err
	}
	defer closer.Close()
	m, _ := c.PanelModel()
	log.WithField("dev", dev).Info("panel opened")

	if err := dev.PowerOn(ctx); err != nil {
		return err
	}
	var img image.Image
	if c.Picture != "" {
		img, err = pictureImage(m, c.Picture)
	} else {
		img, err = textImage(dev.Bounds(), c.Text, c.FontSize)
	}
	if err != nil {
		return err
	}
	dev.SetUpdateMode(uc81xx.Full)
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		return err
	}

	if m.HasWindow() && c.Clock.Updates > 0 {
		face, err := newFace(c.FontSize / 2)
		if err != nil {
			return err
		}
		r := clockRect(m, c.FontSize/2)
		dev.SetUpdateMode(uc81xx.Partial)
		clock := clockwork.NewRealClock()
		t := clock.NewTicker(c.Clock.Interval)
		defer t.Stop()
		for i := 0; i < c.Clock.Updates; i++ {
			now := clock.Now().Format("15:04:05")
			if err := drawClock(dev, face, r, now); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"time": now, "region": r}).Debug("clock updated")
			if i == c.Clock.Updates-1 {
				break
			}
			select {
			case <-ctx.Done():
				return dev.Sleep(context.Background())
			case <-t.Chan():
			}
		}
	}
	return dev.Sleep(context.Background())
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "epdemo: %s.\n", err)
		os.Exit(1)
	}
}
