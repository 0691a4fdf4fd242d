// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sevenseg drives a single digit 7-segment LED display with one GPIO
// pin per segment, A to G.
package sevenseg

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Mode is the common pin wiring of the display.
type Mode uint8

const (
	// CommonAnode lights a segment by driving its pin low.
	CommonAnode Mode = 0
	// CommonCathode lights a segment by driving its pin high.
	CommonCathode Mode = 1
)

// Segments is the number of segment pins.
const Segments = 7

// Digits holds the segment pattern of 0 to 9, bit 0 being segment A.
var Digits = [10]byte{0x3F, 0x06, 0x5B, 0x4F, 0x66, 0x6D, 0x7D, 0x07, 0x7F, 0x6F}

var (
	ErrDigit = errors.New("sevenseg: digit out of range")
	ErrMode  = errors.New("sevenseg: invalid mode")
)

// Dev is one 7-segment digit.
type Dev struct {
	pins    [Segments]gpio.PinOut
	on, off gpio.Level
	pattern byte
}

// New returns a display on pins, where pins[0] drives segment A.
func New(pins [Segments]gpio.PinOut, mode Mode) (*Dev, error) {
	for i, p := range pins {
		if p == nil {
			return nil, fmt.Errorf("sevenseg: segment %c not connected", 'A'+i)
		}
	}
	d := &Dev{pins: pins}
	switch mode {
	case CommonAnode:
		d.on, d.off = gpio.Low, gpio.High
	case CommonCathode:
		d.on, d.off = gpio.High, gpio.Low
	default:
		return nil, fmt.Errorf("%w: %d", ErrMode, mode)
	}
	return d, nil
}

// Init drives every segment off.
func (d *Dev) Init() error {
	return d.Segments(0)
}

// Show displays digit, 0 to 9.
func (d *Dev) Show(digit int) error {
	if digit < 0 || digit >= len(Digits) {
		return fmt.Errorf("%w: %d", ErrDigit, digit)
	}
	return d.Segments(Digits[digit])
}

// Segments lights the segments set in pattern, bit 0 being segment A. Every
// segment is written even when one fails.
func (d *Dev) Segments(pattern byte) error {
	var errs []error
	for i, p := range d.pins {
		l := d.off
		if pattern>>uint(i)&1 == 1 {
			l = d.on
		}
		if err := p.Out(l); err != nil {
			errs = append(errs, fmt.Errorf("sevenseg: segment %c: %w", 'A'+i, err))
		}
	}
	if len(errs) == 0 {
		d.pattern = pattern & 0x7F
	}
	return errors.Join(errs...)
}

// Pattern returns the segments lit by the last successful write.
func (d *Dev) Pattern() byte {
	return d.pattern
}

// Halt implements conn.Resource. It turns every segment off.
func (d *Dev) Halt() error {
	return d.Segments(0)
}

func (d *Dev) String() string {
	return fmt.Sprintf("SevenSegment{%s..%s}", d.pins[0], d.pins[Segments-1])
}

var _ conn.Resource = &Dev{}
