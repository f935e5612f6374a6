// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import "strconv"

// State is the operating state of the panel.
type State uint8

// A panel starts Uninitialized, goes through Initializing to Idle on PowerOn,
// and comes back to Idle after each write and refresh.
const (
	// Uninitialized is the state after construction and after Reset.
	Uninitialized State = iota
	// PoweredDown is reached by PowerOff. PowerOn initializes the panel again.
	PoweredDown
	// Initializing is held while PowerOn resets and configures the controller.
	Initializing
	// Idle accepts writes, refreshes and power transitions.
	Idle
	// TransferringBuffer is held while pixel data is sent to the controller.
	TransferringBuffer
	// Refreshing is held until the controller finished redrawing the panel.
	Refreshing
	// Sleeping is deep sleep. Only PowerOn or Reset wake the controller.
	Sleeping
	// Faulted is entered on a timeout or a transport error. It is left only
	// through Reset.
	Faulted
)

var stateNames = [...]string{
	Uninitialized:      "Uninitialized",
	PoweredDown:        "PoweredDown",
	Initializing:       "Initializing",
	Idle:               "Idle",
	TransferringBuffer: "TransferringBuffer",
	Refreshing:         "Refreshing",
	Sleeping:           "Sleeping",
	Faulted:            "Faulted",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Mode selects the waveform of a refresh.
type Mode bool

const (
	// Full redraws the whole panel and clears ghosting.
	Full Mode = false
	// Partial redraws the regions written since the last refresh. It needs a
	// Full refresh earlier in the same power cycle.
	Partial Mode = true
)

func (m Mode) String() string {
	if m == Partial {
		return "Partial"
	}
	return "Full"
}
