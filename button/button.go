// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package button reads a push button wired between a GPIO pin and ground
// (pull-up mode) or between the pin and the supply (pull-down mode).
package button

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Mode is the resting level of the pin.
type Mode uint8

const (
	// PullUp uses the internal pull-up. The pin reads low while pressed.
	PullUp Mode = 0
	// PullDown relies on an external pull-down resistor. The pin reads high
	// while pressed.
	PullDown Mode = 1
)

// State is the state of the button.
type State uint8

const (
	Released State = 0
	Pressed  State = 1
)

func (s State) String() string {
	if s == Pressed {
		return "pressed"
	}
	return "released"
}

var (
	ErrNilPin = errors.New("button: nil pin")
	ErrMode   = errors.New("button: invalid mode")
)

// Button is one push button.
type Button struct {
	pin  gpio.PinIn
	mode Mode
}

// New returns a Button on pin. Call Init before Read.
func New(pin gpio.PinIn, mode Mode) (*Button, error) {
	if pin == nil {
		return nil, ErrNilPin
	}
	if mode != PullUp && mode != PullDown {
		return nil, fmt.Errorf("%w: %d", ErrMode, mode)
	}
	return &Button{pin: pin, mode: mode}, nil
}

// Init sets the pin as an input, with the internal pull-up in PullUp mode.
func (b *Button) Init() error {
	pull := gpio.Float
	if b.mode == PullUp {
		pull = gpio.PullUp
	}
	if err := b.pin.In(pull, gpio.NoEdge); err != nil {
		return fmt.Errorf("button: %s: %w", b.pin, err)
	}
	return nil
}

// Read samples the pin.
func (b *Button) Read() State {
	l := b.pin.Read()
	if b.mode == PullUp {
		l = !l
	}
	if l {
		return Pressed
	}
	return Released
}

// WaitPress polls the button every interval until it is pressed then
// released.
func (b *Button) WaitPress(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for _, want := range []State{Pressed, Released} {
		for b.Read() != want {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return nil
}

func (b *Button) String() string {
	return fmt.Sprintf("Button{%s}", b.pin)
}
