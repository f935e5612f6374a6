// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build epdasync

package busy

import "periph.io/x/conn/v3/gpio"

// New returns the gate selected at build time. With the epdasync build tag it
// is the suspending Edge strategy.
func New(pin gpio.PinIn, busy gpio.Level) (Gate, error) {
	e, err := NewEdge(pin, busy)
	if err != nil {
		return nil, err
	}
	return e, nil
}
