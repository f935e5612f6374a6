// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import (
	"fmt"
	"image"
	"image/color"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Format describes the native pixel layout of a controller: Depth bits per
// pixel, packed most significant bit first, every row starting on a byte
// boundary.
type Format struct {
	Name string
	// Depth is 1, 2, 4 or 8.
	Depth int
	// Model converts arbitrary colors to the colors the panel can show.
	Model color.Model
	// Level maps a color to its native value.
	Level func(c color.Color) uint8
	// Color maps a native value back to a color.
	Color func(level uint8) color.Color
	// Blank is the native value sent for pixels the source does not cover.
	Blank uint8
}

func (f *Format) String() string {
	return fmt.Sprintf("%s/%dbpp", f.Name, f.Depth)
}

func (f *Format) perByte() int {
	return 8 / f.Depth
}

// Stride returns the number of bytes of an encoded row of width pixels.
func (f *Format) Stride(width int) int {
	return (width*f.Depth + 7) / 8
}

// Align widens r horizontally so it starts and ends on byte boundaries.
func (f *Format) Align(r image.Rectangle) image.Rectangle {
	n := f.perByte()
	r.Min.X -= mod(r.Min.X, n)
	if m := mod(r.Max.X, n); m != 0 {
		r.Max.X += n - m
	}
	return r
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

// Encode packs the pixels of src inside r into the native layout. Pixels of
// r outside src.Bounds() and the padding at the end of each row are Blank.
// Encode has no side effect and always returns the same bytes for the same
// input.
func (f *Format) Encode(r image.Rectangle, src image.Image) []byte {
	if r.Empty() {
		return nil
	}
	stride := f.Stride(r.Dx())
	buf := make([]byte, stride*r.Dy())
	sb := src.Bounds()
	mask := uint8(1)<<f.Depth - 1
	n := stride * f.perByte()

	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := buf[(y-r.Min.Y)*stride:]
		for i := 0; i < n; i++ {
			x := r.Min.X + i
			level := f.Blank
			if x < r.Max.X && (image.Point{X: x, Y: y}).In(sb) {
				level = f.Level(src.At(x, y))
			}
			bit := i * f.Depth
			row[bit/8] |= (level & mask) << (8 - f.Depth - bit%8)
		}
	}
	return buf
}

// Decode is the inverse of Encode: it unpacks buf as the pixels of r.
func (f *Format) Decode(r image.Rectangle, buf []byte) *image.RGBA {
	img := image.NewRGBA(r)
	stride := f.Stride(r.Dx())
	mask := uint8(1)<<f.Depth - 1
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := (y - r.Min.Y) * stride
		for x := r.Min.X; x < r.Max.X; x++ {
			bit := (x - r.Min.X) * f.Depth
			i := off + bit/8
			if i >= len(buf) {
				return img
			}
			level := (buf[i] >> (8 - f.Depth - bit%8)) & mask
			img.Set(x, y, f.Color(level))
		}
	}
	return img
}

// Mono is the 1 bit layout of UC81xx controllers in KW mode: a set bit is a
// black pixel.
var Mono = Format{
	Name:  "mono",
	Depth: 1,
	Model: image1bit.BitModel,
	Level: func(c color.Color) uint8 {
		if image1bit.BitModel.Convert(c).(image1bit.Bit) == image1bit.On {
			return 0
		}
		return 1
	},
	Color: func(level uint8) color.Color {
		return image1bit.Bit(level == 0)
	},
}

// GrayFormat returns the layout of a panel with depth bits of gray per
// pixel. Level 0 is black, padding is white.
func GrayFormat(depth int) Format {
	m := GrayModel(depth)
	return Format{
		Name:  fmt.Sprintf("gray%d", depth),
		Depth: depth,
		Model: m,
		Level: func(c color.Color) uint8 {
			return m.Convert(c).(Gray).Y
		},
		Color: func(level uint8) color.Color {
			return Gray{Y: level, Depth: uint8(depth)}
		},
		Blank: uint8(1)<<depth - 1,
	}
}

// paletteFormat maps each color to the native code of its nearest palette
// entry.
func paletteFormat(name string, p color.Palette, codes []uint8, blank int) Format {
	colors := map[uint8]color.Color{}
	for i, c := range codes {
		colors[c] = p[i]
	}
	return Format{
		Name:  name,
		Depth: 4,
		Model: p,
		Level: func(c color.Color) uint8 {
			return codes[p.Index(c)]
		},
		Color: func(level uint8) color.Color {
			if c, ok := colors[level]; ok {
				return c
			}
			return p[blank]
		},
		Blank: codes[blank],
	}
}

var (
	// Spectra6 is the 4 bit layout of Spectra 6 (E6) panels.
	Spectra6 = paletteFormat("spectra6", Spectra6Palette, spectra6Codes, 1)
	// Acep7 is the 4 bit layout of UC8159 7-color panels.
	Acep7 = paletteFormat("acep7", Acep7Palette, acep7Codes, 1)
)
