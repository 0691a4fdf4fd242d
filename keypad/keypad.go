// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package keypad scans a 4x4 matrix keypad.
//
// Rows are inputs with pull-ups and columns are outputs idling high. A scan
// drives one column low at a time and looks for a row pulled low by a closed
// key.
package keypad

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Size is the number of rows and of columns.
const Size = 4

// Layout is the key at each row and column of a calculator keypad.
var Layout = [Size][Size]byte{
	{'7', '8', '9', '/'},
	{'4', '5', '6', 'x'},
	{'1', '2', '3', '-'},
	{'C', '0', '=', '+'},
}

// PollInterval is how often WaitKey scans the matrix.
const PollInterval = 10 * time.Millisecond

var ErrNilPin = errors.New("keypad: nil pin")

// Dev is a matrix keypad.
type Dev struct {
	rows [Size]gpio.PinIn
	cols [Size]gpio.PinOut
}

// New returns a keypad on the row and column pins. Call Init before Scan.
func New(rows [Size]gpio.PinIn, cols [Size]gpio.PinOut) (*Dev, error) {
	for i := 0; i < Size; i++ {
		if rows[i] == nil {
			return nil, fmt.Errorf("%w: row %d", ErrNilPin, i)
		}
		if cols[i] == nil {
			return nil, fmt.Errorf("%w: column %d", ErrNilPin, i)
		}
	}
	return &Dev{rows: rows, cols: cols}, nil
}

// Init configures the rows as pulled-up inputs and the columns as outputs
// driven high.
func (d *Dev) Init() error {
	for i, p := range d.rows {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return fmt.Errorf("keypad: row %d: %w", i, err)
		}
	}
	for i, p := range d.cols {
		if err := p.Out(gpio.High); err != nil {
			return fmt.Errorf("keypad: column %d: %w", i, err)
		}
	}
	return nil
}

// Scan returns the first closed key, scanning column by column. ok is false
// when no key is pressed. The driven column is always released high.
func (d *Dev) Scan() (key byte, ok bool, err error) {
	for c, col := range d.cols {
		if err = col.Out(gpio.Low); err != nil {
			return 0, false, errors.Join(fmt.Errorf("keypad: column %d: %w", c, err), d.release(c))
		}
		for r, row := range d.rows {
			if row.Read() == gpio.Low {
				key, ok = Layout[r][c], true
				break
			}
		}
		if err = d.release(c); err != nil || ok {
			return key, ok && err == nil, err
		}
	}
	return 0, false, nil
}

func (d *Dev) release(c int) error {
	if err := d.cols[c].Out(gpio.High); err != nil {
		return fmt.Errorf("keypad: column %d: %w", c, err)
	}
	return nil
}

// WaitKey blocks until a key is pressed and released, and returns it.
func (d *Dev) WaitKey(ctx context.Context) (byte, error) {
	t := time.NewTicker(PollInterval)
	defer t.Stop()
	var key byte
	for {
		k, ok, err := d.Scan()
		if err != nil {
			return 0, err
		}
		if ok {
			key = k
		} else if key != 0 {
			return key, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
	}
}

// Halt implements conn.Resource. It releases every column.
func (d *Dev) Halt() error {
	var errs []error
	for c := range d.cols {
		errs = append(errs, d.release(c))
	}
	return errors.Join(errs...)
}

func (d *Dev) String() string {
	return fmt.Sprintf("Keypad{rows=%s..%s, cols=%s..%s}", d.rows[0], d.rows[Size-1], d.cols[0], d.cols[Size-1])
}
