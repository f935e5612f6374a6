// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import (
	"errors"

	"github.com/GermanBionicSystems/epd/busy"
)

var (
	// ErrTimeout is returned when the busy line did not clear in time.
	ErrTimeout = busy.ErrTimeout
	// ErrTransport wraps a failure of the SPI connection or a control pin.
	ErrTransport = errors.New("uc81xx: transport error")
	// ErrInvalidState is returned when an operation is requested while the
	// panel is not in a state that allows it. The panel state is unchanged.
	ErrInvalidState = errors.New("uc81xx: invalid state")
	// ErrFaulted is returned by every operation but Reset once the panel
	// entered the Faulted state.
	ErrFaulted = errors.New("uc81xx: panel faulted, reset required")
	// ErrArity is returned when a frame is built with the wrong number of
	// parameter bytes for its command.
	ErrArity = errors.New("uc81xx: wrong parameter count")
)
