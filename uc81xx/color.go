// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import (
	"image/color"
)

// Gray is a gray level quantized to Depth bits. Level 0 is black and
// 1<<Depth-1 is white.
type Gray struct {
	Y     uint8
	Depth uint8
}

// RGBA implements color.Color.
func (c Gray) RGBA() (r, g, b, a uint32) {
	top := uint32(1)<<c.Depth - 1
	if top == 0 {
		return 0, 0, 0, 0xffff
	}
	y := min(uint32(c.Y), top) * 0xffff / top
	return y, y, y, 0xffff
}

// GrayModel returns the color model quantizing to depth bits of gray.
func GrayModel(depth int) color.Model {
	return color.ModelFunc(func(c color.Color) color.Color {
		if g, ok := c.(Gray); ok && int(g.Depth) == depth {
			return g
		}
		y := uint32(color.Gray16Model.Convert(c).(color.Gray16).Y)
		top := uint32(1)<<depth - 1
		// Round to the nearest level.
		return Gray{Y: uint8((y*top + 0x7fff) / 0xffff), Depth: uint8(depth)}
	})
}

// Colors of the Spectra 6 pigments.
var (
	E6Black  = color.RGBA{0x00, 0x00, 0x00, 0xff}
	E6White  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	E6Yellow = color.RGBA{0xff, 0xff, 0x00, 0xff}
	E6Red    = color.RGBA{0xff, 0x00, 0x00, 0xff}
	E6Blue   = color.RGBA{0x00, 0x00, 0xff, 0xff}
	E6Green  = color.RGBA{0x00, 0xff, 0x00, 0xff}
)

// Spectra6Palette lists the Spectra 6 colors in the order of spectra6Codes.
var Spectra6Palette = color.Palette{E6Black, E6White, E6Yellow, E6Red, E6Blue, E6Green}

// spectra6Codes are the native nibbles; code 4 is not a pigment.
var spectra6Codes = []uint8{0, 1, 2, 3, 5, 6}

// Acep7Palette lists the UC8159 7-color ACeP pigments, indexed by their
// native code.
var Acep7Palette = color.Palette{
	color.RGBA{0x00, 0x00, 0x00, 0xff}, // black
	color.RGBA{0xff, 0xff, 0xff, 0xff}, // white
	color.RGBA{0x00, 0xff, 0x00, 0xff}, // green
	color.RGBA{0x00, 0x00, 0xff, 0xff}, // blue
	color.RGBA{0xff, 0x00, 0x00, 0xff}, // red
	color.RGBA{0xff, 0xff, 0x00, 0xff}, // yellow
	color.RGBA{0xff, 0x8c, 0x00, 0xff}, // orange
}

var acep7Codes = []uint8{0, 1, 2, 3, 4, 5, 6}
