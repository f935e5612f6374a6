// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uc81xx

import (
	"fmt"
)

// Variable marks a command taking a payload of any length, such as the data
// start transmission commands.
const Variable = -1

// Command is an entry of a controller opcode table.
type Command struct {
	Name string
	Code byte
	// Params is the exact number of parameter bytes, or Variable.
	Params int
}

func (c Command) String() string {
	return fmt.Sprintf("%s(0x%02X)", c.Name, c.Code)
}

// Frame is an opcode with its parameter bytes. A Frame is immutable: its
// parameters are copied in and out.
type Frame struct {
	cmd    Command
	params []byte
}

// NewFrame builds a frame for cmd. It fails with ErrArity when the number of
// parameters does not match the opcode table.
func NewFrame(cmd Command, params ...byte) (Frame, error) {
	if cmd.Params != Variable && len(params) != cmd.Params {
		return Frame{}, fmt.Errorf("%w: %s takes %d bytes, got %d", ErrArity, cmd, cmd.Params, len(params))
	}
	return Frame{cmd: cmd, params: append([]byte(nil), params...)}, nil
}

// mustFrame is NewFrame for the static tables of this package.
func mustFrame(cmd Command, params ...byte) Frame {
	f, err := NewFrame(cmd, params...)
	if err != nil {
		panic(err)
	}
	return f
}

// Command returns the opcode table entry of the frame.
func (f Frame) Command() Command {
	return f.cmd
}

// Params returns a copy of the parameter bytes.
func (f Frame) Params() []byte {
	return append([]byte(nil), f.params...)
}

func (f Frame) String() string {
	return fmt.Sprintf("%s % X", f.cmd, f.params)
}

// Step is one entry of a command sequence. When Wait is set the controller
// must report ready before the next step is sent.
type Step struct {
	Frame Frame
	Wait  bool
}

// Opcodes shared by the whole family. Arity differs between controllers, so
// the per-controller tables below carry their own entries where it matters.
var (
	cmdPOF  = Command{Name: "POF", Code: 0x02}
	cmdPON  = Command{Name: "PON", Code: 0x04}
	cmdDSLP = Command{Name: "DSLP", Code: 0x07, Params: 1}
	cmdDTM1 = Command{Name: "DTM1", Code: 0x10, Params: Variable}
)

// deepSleepCheck is the parameter of DSLP; any other value is ignored.
const deepSleepCheck = 0xA5

// UC8179 opcodes.
var (
	uc8179PSR   = Command{Name: "PSR", Code: 0x00, Params: 1}
	uc8179PWR   = Command{Name: "PWR", Code: 0x01, Params: 4}
	uc8179BTST  = Command{Name: "BTST", Code: 0x06, Params: 4}
	uc8179DTM2  = Command{Name: "DTM2", Code: 0x13, Params: Variable}
	uc8179DRF   = Command{Name: "DRF", Code: 0x12}
	uc8179DUSPI = Command{Name: "DUSPI", Code: 0x15, Params: 1}
	uc8179CDI   = Command{Name: "CDI", Code: 0x50, Params: 2}
	uc8179TCON  = Command{Name: "TCON", Code: 0x60, Params: 1}
	uc8179TRES  = Command{Name: "TRES", Code: 0x61, Params: 4}
	uc8179PTL   = Command{Name: "PTL", Code: 0x90, Params: 9}
	uc8179PTIN  = Command{Name: "PTIN", Code: 0x91}
	uc8179PTOUT = Command{Name: "PTOUT", Code: 0x92}
	uc8179CCSET = Command{Name: "CCSET", Code: 0xE0, Params: 1}
	uc8179TSSET = Command{Name: "TSSET", Code: 0xE5, Params: 1}
)

// Spectra 6 (E6) opcodes.
var (
	e6PSR   = Command{Name: "PSR", Code: 0x00, Params: 2}
	e6PWR   = Command{Name: "PWR", Code: 0x01, Params: 1}
	e6POFS  = Command{Name: "POFS", Code: 0x03, Params: 4}
	e6BTST1 = Command{Name: "BTST1", Code: 0x05, Params: 4}
	e6BTST2 = Command{Name: "BTST2", Code: 0x06, Params: 4}
	e6BTST3 = Command{Name: "BTST3", Code: 0x08, Params: 4}
	e6DSP   = Command{Name: "DSP", Code: 0x11}
	e6DRF   = Command{Name: "DRF", Code: 0x12, Params: 1}
	e6PLL   = Command{Name: "PLL", Code: 0x30, Params: 1}
	e6CDI   = Command{Name: "CDI", Code: 0x50, Params: 1}
	e6TCON  = Command{Name: "TCON", Code: 0x60, Params: 2}
	e6TRES  = Command{Name: "TRES", Code: 0x61, Params: 4}
	e6VDCS  = Command{Name: "VDCS", Code: 0x82, Params: 1}
	e6PWS   = Command{Name: "PWS", Code: 0xE3, Params: 1}
	e6CMDH  = Command{Name: "CMDH", Code: 0xAA, Params: 6}
)

// UC8159 opcodes.
var (
	uc8159PSR  = Command{Name: "PSR", Code: 0x00, Params: 2}
	uc8159PWR  = Command{Name: "PWR", Code: 0x01, Params: 4}
	uc8159PFS  = Command{Name: "PFS", Code: 0x03, Params: 1}
	uc8159DRF  = Command{Name: "DRF", Code: 0x12}
	uc8159PLL  = Command{Name: "PLL", Code: 0x30, Params: 1}
	uc8159TSE  = Command{Name: "TSE", Code: 0x41, Params: 1}
	uc8159CDI  = Command{Name: "CDI", Code: 0x50, Params: 1}
	uc8159TCON = Command{Name: "TCON", Code: 0x60, Params: 1}
	uc8159TRES = Command{Name: "TRES", Code: 0x61, Params: 4}
	uc8159DAM  = Command{Name: "DAM", Code: 0x65, Params: 1}
	uc8159PWS  = Command{Name: "PWS", Code: 0xE3, Params: 1}
)
