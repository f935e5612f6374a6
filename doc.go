// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epd is a container for the UC81xx e-paper driver and its tools.
//
// uc81xx drives the panels, busy waits for their controller and epdsim
// simulates one for tests and demos. cmd/epdemo puts them together.
package epd
