// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package atmega32

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Line is an external interrupt line. Its value is the enable bit in GICR,
// which is also the flag bit in GIFR.
type Line uint8

const (
	INT2 Line = 5
	INT0 Line = 6
	INT1 Line = 7
)

func (l Line) String() string {
	switch l {
	case INT0:
		return "INT0"
	case INT1:
		return "INT1"
	case INT2:
		return "INT2"
	default:
		return fmt.Sprintf("Line(%d)", uint8(l))
	}
}

// Trigger is the sense control of a line, as the ISC bits.
type Trigger uint8

const (
	LowLevel    Trigger = 0
	AnyChange   Trigger = 1
	FallingEdge Trigger = 2
	RisingEdge  Trigger = 3
)

var (
	ErrLine    = errors.New("atmega32: invalid interrupt line")
	ErrTrigger = errors.New("atmega32: trigger not supported by line")
)

// EXTIConfig is the configuration applied by EXTI.Init.
type EXTIConfig struct {
	Line     Line
	Trigger  Trigger
	Callback Handler
}

type lineInfo struct {
	vector Vector
	port   byte
	bit    uint8
	// iscShift is the position of the two ISC bits in MCUCR. INT2 uses ISC2
	// in MCUCSR.
	iscShift uint8
}

var lines = map[Line]lineInfo{
	INT0: {VectorINT0, 'D', 2, 0},
	INT1: {VectorINT1, 'D', 3, 2},
	INT2: {VectorINT2, 'B', 2, 0},
}

// EXTI is the external interrupt unit. Lines sense PD2 (INT0), PD3 (INT1)
// and PB2 (INT2) whatever the direction of the pin.
type EXTI struct {
	mcu *MCU
}

func newEXTI(mcu *MCU) *EXTI {
	e := &EXTI{mcu: mcu}
	// A one written to a GIFR flag clears it.
	mcu.Mem.onWrite(GIFR, func(old, v byte) {
		mcu.Mem.store(GIFR, func(byte) byte { return old &^ v })
	})
	return e
}

// Init disables the line, programs its trigger, registers the callback and
// enables the line and global interrupts. INT2 only senses edges.
func (e *EXTI) Init(cfg *EXTIConfig) error {
	if cfg == nil {
		return errors.New("atmega32: nil EXTI config")
	}
	info, ok := lines[cfg.Line]
	if !ok {
		return fmt.Errorf("%w: %d", ErrLine, uint8(cfg.Line))
	}
	if cfg.Trigger > RisingEdge {
		return fmt.Errorf("%w: %s trigger %d", ErrTrigger, cfg.Line, cfg.Trigger)
	}
	if cfg.Line == INT2 && cfg.Trigger != FallingEdge && cfg.Trigger != RisingEdge {
		return fmt.Errorf("%w: %s trigger %d", ErrTrigger, cfg.Line, cfg.Trigger)
	}
	mem := e.mcu.Mem
	mem.Clear(GICR, uint8(cfg.Line))
	if cfg.Line == INT2 {
		if cfg.Trigger == RisingEdge {
			mem.Set(MCUCSR, bitISC2)
		} else {
			mem.Clear(MCUCSR, bitISC2)
		}
	} else {
		mem.Modify(MCUCR, 3<<info.iscShift, byte(cfg.Trigger)<<info.iscShift)
	}
	if cfg.Callback != nil {
		if err := e.mcu.Vectors.Register(info.vector, cfg.Callback); err != nil {
			return err
		}
	}
	mem.Set(GICR, uint8(cfg.Line))
	e.mcu.EnableInterrupts()
	e.mcu.log.WithField("unit", "exti").Debugf("%s enabled, trigger %d", cfg.Line, cfg.Trigger)
	return nil
}

// DeInit disables the line and removes its callback.
func (e *EXTI) DeInit(line Line) error {
	info, ok := lines[line]
	if !ok {
		return fmt.Errorf("%w: %d", ErrLine, uint8(line))
	}
	e.mcu.Mem.Clear(GICR, uint8(line))
	e.mcu.Vectors.Clear(info.vector)
	return nil
}

// SetCallback replaces the handler of line.
func (e *EXTI) SetCallback(line Line, fn Handler) error {
	info, ok := lines[line]
	if !ok {
		return fmt.Errorf("%w: %d", ErrLine, uint8(line))
	}
	return e.mcu.Vectors.Register(info.vector, fn)
}

// Trigger returns the sense control programmed for line.
func (e *EXTI) Trigger(line Line) (Trigger, error) {
	info, ok := lines[line]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrLine, uint8(line))
	}
	if line == INT2 {
		if e.mcu.Mem.Bit(MCUCSR, bitISC2) {
			return RisingEdge, nil
		}
		return FallingEdge, nil
	}
	return Trigger(e.mcu.Mem.Read(MCUCR) >> info.iscShift & 3), nil
}

// Enabled reports whether line is enabled in GICR.
func (e *EXTI) Enabled(line Line) bool {
	if _, ok := lines[line]; !ok {
		return false
	}
	return e.mcu.Mem.Bit(GICR, uint8(line))
}

// edge is called by a port when the level of one of its pins changed.
func (e *EXTI) edge(p *Port, bit uint8, level gpio.Level) {
	for line, info := range lines {
		if info.port != p.letter || info.bit != bit || !e.Enabled(line) {
			continue
		}
		trigger, _ := e.Trigger(line)
		var fire bool
		switch trigger {
		case LowLevel:
			fire = !bool(level)
		case AnyChange:
			fire = true
		case FallingEdge:
			fire = !bool(level)
		case RisingEdge:
			fire = bool(level)
		}
		if !fire {
			continue
		}
		e.mcu.Mem.store(GIFR, func(r byte) byte { return r | 1<<uint8(line) })
		if e.mcu.Vectors.Raise(info.vector) {
			e.mcu.Mem.store(GIFR, func(r byte) byte { return r &^ (1 << uint8(line)) })
		}
	}
}
