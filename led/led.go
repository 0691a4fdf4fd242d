// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package led drives a single LED on a GPIO pin, wired either active high
// (anode on the pin) or active low (cathode on the pin).
//
// An LED also implements display.DisplayBacklight, so it can switch the
// backlight of a character display.
package led

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// Mode is the logic level that lights the LED.
type Mode uint8

const (
	ActiveLow  Mode = 0
	ActiveHigh Mode = 1
)

var (
	ErrNilPin = errors.New("led: nil pin")
	ErrMode   = errors.New("led: invalid mode")
)

// toggler is implemented by pins that can invert their output in a single
// register operation, like atmega32.Pin.
type toggler interface {
	Toggle() error
}

// LED is one LED. It remembers the last state it drove.
type LED struct {
	pin  gpio.PinOut
	mode Mode
	on   bool
}

// New returns an LED on pin. It does not drive the pin, call Init.
func New(pin gpio.PinOut, mode Mode) (*LED, error) {
	if pin == nil {
		return nil, ErrNilPin
	}
	if mode != ActiveLow && mode != ActiveHigh {
		return nil, fmt.Errorf("%w: %d", ErrMode, mode)
	}
	return &LED{pin: pin, mode: mode}, nil
}

// Init drives the pin as an output with the LED off.
func (l *LED) Init() error {
	return l.Off()
}

// On lights the LED.
func (l *LED) On() error {
	return l.set(true)
}

// Off turns the LED off.
func (l *LED) Off() error {
	return l.set(false)
}

// Toggle inverts the LED.
func (l *LED) Toggle() error {
	if t, ok := l.pin.(toggler); ok {
		if err := t.Toggle(); err != nil {
			return fmt.Errorf("led: %s: %w", l.pin, err)
		}
		l.on = !l.on
		return nil
	}
	return l.set(!l.on)
}

// IsOn reports the last state driven.
func (l *LED) IsOn() bool {
	return l.on
}

// Backlight implements display.DisplayBacklight. Any non zero intensity turns
// the LED on.
func (l *LED) Backlight(intensity display.Intensity) error {
	return l.set(intensity > 0)
}

// Halt implements conn.Resource. It turns the LED off.
func (l *LED) Halt() error {
	return l.Off()
}

func (l *LED) String() string {
	return fmt.Sprintf("LED{%s}", l.pin)
}

func (l *LED) set(on bool) error {
	level := gpio.Level(on)
	if l.mode == ActiveLow {
		level = !level
	}
	if err := l.pin.Out(level); err != nil {
		return fmt.Errorf("led: %s: %w", l.pin, err)
	}
	l.on = on
	return nil
}

var _ display.DisplayBacklight = &LED{}
var _ conn.Resource = &LED{}
