// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import (
	"image"
	"time"
)

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	sendFrame(Frame)
	waitReady(time.Duration)
}

func sendSteps(ctrl controller, steps []Step, timeout time.Duration) {
	for _, s := range steps {
		ctrl.sendFrame(s.Frame)
		if s.Wait {
			ctrl.waitReady(timeout)
		}
	}
}

// initDisplay runs after the reset pulse.
func initDisplay(ctrl controller, m *Model, t Timeouts) {
	ctrl.waitReady(t.Reset)
	sendSteps(ctrl, m.Init, t.Power)
}

// transfer writes the encoded pixels of r into the controller RAM. When r is
// not the whole panel it is addressed through the partial window.
func transfer(ctrl controller, m *Model, r image.Rectangle, buf []byte, t Timeouts) error {
	windowed := r != m.Bounds()
	if windowed {
		f, err := m.windowFrame(r)
		if err != nil {
			return err
		}
		ctrl.sendFrame(m.PartialIn)
		ctrl.sendFrame(f)
	}

	ctrl.sendCommand(m.DataStart.Code)
	ctrl.sendData(buf)

	if windowed {
		ctrl.sendFrame(m.PartialOut)
	}
	if m.DataStop != nil {
		sendSteps(ctrl, []Step{*m.DataStop}, t.Power)
	}
	return nil
}

// refreshFull redraws the whole panel with the full waveform.
func refreshFull(ctrl controller, m *Model, t Timeouts) {
	for _, f := range m.FullLUT {
		ctrl.sendFrame(f)
	}
	if !m.KeepPowered {
		ctrl.sendFrame(m.PowerOn)
		ctrl.waitReady(t.Power)
	}
	ctrl.sendFrame(m.Trigger)
	ctrl.waitReady(t.Refresh)
	if !m.KeepPowered {
		ctrl.sendFrame(m.PowerOff)
		ctrl.waitReady(t.Power)
	}
}

// refreshPartial redraws r with the partial waveform.
func refreshPartial(ctrl controller, m *Model, r image.Rectangle, t Timeouts) error {
	f, err := m.windowFrame(r)
	if err != nil {
		return err
	}
	for _, lut := range m.PartialLUT {
		ctrl.sendFrame(lut)
	}
	ctrl.sendFrame(m.PartialIn)
	ctrl.sendFrame(f)
	ctrl.sendFrame(m.Trigger)
	ctrl.waitReady(t.Refresh)
	ctrl.sendFrame(m.PartialOut)
	return nil
}

// sleep turns the booster off when it is kept on, then enters deep sleep.
// Only a reset pulse wakes the controller up.
func sleep(ctrl controller, m *Model, t Timeouts) {
	if m.KeepPowered {
		ctrl.sendFrame(m.PowerOff)
		ctrl.waitReady(t.Power)
	}
	ctrl.sendFrame(m.DeepSleep)
}

func powerOff(ctrl controller, m *Model, t Timeouts) {
	ctrl.sendFrame(m.PowerOff)
	ctrl.waitReady(t.Power)
}
