// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package uc81xx controls e-paper panels driven by UltraChip UC81xx
// controllers and their Spectra 6 relatives, over SPI.
//
// Drawing goes to an image owned by the caller. Flush encodes a region of it
// into the controller's native layout and sends it; Refresh makes the panel
// show it. The panel state machine rejects overlapping operations with
// ErrInvalidState instead of queueing them, and any busy timeout or bus
// error leaves the panel Faulted until Reset.
//
// Datasheets
//
// https://www.waveshare.com/w/upload/6/60/7.5inch_e-Paper_V2_Specification.pdf
//
// https://files.waveshare.com/wiki/7.3inch%20e-Paper%20HAT%20(E)/7.3inch_e-Paper_(E)_user_manual.pdf
//
// Product page
//
// https://www.waveshare.com/7.5inch-e-paper-hat.htm
package uc81xx
