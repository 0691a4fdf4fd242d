// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

// HD44780 is a Dev with a known panel geometry. It implements
// periph.io/x/conn/v3/display.TextDisplay and display.DisplayBacklight.
type HD44780 struct {
	dev       *Dev
	backlight display.DisplayBacklight
	rows      int
	cols      int
	on        bool
	cursor    bool
	blink     bool
	increment bool
}

// NewHD44780 validates cfg, runs Init and returns a TextDisplay for a panel
// of rows x cols characters. backlight may be nil when the backlight is not
// switchable.
func NewHD44780(cfg *Config, backlight display.DisplayBacklight, rows, cols int) (*HD44780, error) {
	if rows < 1 || rows > len(Rows) {
		return nil, fmt.Errorf("hd44780: %d rows not supported", rows)
	}
	if cols < 1 || cols > MaxColumn {
		return nil, fmt.Errorf("hd44780: %d columns not supported", cols)
	}
	dev, err := New(cfg)
	if err != nil {
		return nil, err
	}
	lcd := &HD44780{
		dev:       dev,
		backlight: backlight,
		rows:      rows,
		cols:      cols,
		on:        cfg.DisplayMode&0x04 != 0,
		cursor:    cfg.DisplayMode&0x02 != 0,
		blink:     cfg.DisplayMode&0x01 != 0,
		increment: cfg.EntryMode&0x02 != 0,
	}
	if err := dev.Init(); err != nil {
		return nil, err
	}
	return lcd, nil
}

// Dev returns the underlying driver, for CGRAM access and raw instructions.
func (lcd *HD44780) Dev() *Dev {
	return lcd.dev
}

// AutoScroll makes the display shift on every character, so text appears to
// scroll in from the right.
func (lcd *HD44780) AutoScroll(enabled bool) error {
	mode := EntryModeDecShiftOff
	if lcd.increment {
		mode = EntryModeIncShiftOff
	}
	if enabled {
		mode |= 0x01
	}
	return lcd.dev.SendCommand(mode)
}

// Clears the screen and moves the cursor to the first position.
func (lcd *HD44780) Clear() error {
	return lcd.dev.Clear()
}

// Return the number of columns the display supports
func (lcd *HD44780) Cols() int {
	return lcd.cols
}

// Set the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (lcd *HD44780) Cursor(modes ...display.CursorMode) (err error) {
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			lcd.blink = false
			lcd.cursor = false
		case display.CursorBlink, display.CursorBlock:
			lcd.blink = true
		case display.CursorUnderline:
			lcd.cursor = true
		default:
			err = fmt.Errorf("hd44780: unexpected cursor: %d", mode)
			return
		}
	}
	return lcd.dev.SendCommand(lcd.displayControl())
}

// Move the cursor home (MinRow(),MinCol())
func (lcd *HD44780) Home() error {
	return lcd.dev.ReturnHome()
}

// Return the min column position.
func (lcd *HD44780) MinCol() int {
	return 1
}

// Return the min row position.
func (lcd *HD44780) MinRow() int {
	return 1
}

// Move the cursor forward or backward.
func (lcd *HD44780) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Backward:
		return lcd.dev.SendCommand(CursorMoveLeft)
	case display.Forward:
		return lcd.dev.SendCommand(CursorMoveRight)
	default:
		return fmt.Errorf("hd44780: %w", display.ErrNotImplemented)
	}
}

// Move the cursor to arbitrary position.
func (lcd *HD44780) MoveTo(row, col int) error {
	if row < lcd.MinRow() || row > lcd.rows || col < lcd.MinCol() || col > lcd.cols {
		return fmt.Errorf("hd44780: MoveTo(%d,%d) value out of range", row, col)
	}
	return lcd.dev.SetCursor(Rows[row-1], col)
}

// Return the number of rows the display supports.
func (lcd *HD44780) Rows() int {
	return lcd.rows
}

// Return info about the display.
func (lcd *HD44780) String() string {
	return fmt.Sprintf("%s - Rows: %d, Cols: %d", lcd.dev, lcd.rows, lcd.cols)
}

// Turn the display on / off
func (lcd *HD44780) Display(on bool) error {
	lcd.on = on
	return lcd.dev.SendCommand(lcd.displayControl())
}

// Write a set of bytes to the display. Unlike Dev.SendString, a zero byte is
// written like any other: it selects CGRAM glyph 0.
func (lcd *HD44780) Write(p []byte) (n int, err error) {
	for _, b := range p {
		if err = lcd.dev.SendChar(b); err != nil {
			return
		}
		n++
	}
	return
}

// Write a string output to the display.
func (lcd *HD44780) WriteString(text string) (int, error) {
	return lcd.Write([]byte(text))
}

// Halt clears the display, turns the backlight off, and turns the display off.
func (lcd *HD44780) Halt() error {
	_ = lcd.Clear()
	_ = lcd.Backlight(0)
	return lcd.Display(false)
}

// Turn the display's backlight on or off. Without a backlight control this
// only switches the display.
func (lcd *HD44780) Backlight(intensity display.Intensity) error {
	on := intensity > 0
	if err := lcd.Display(on); err != nil {
		return err
	}
	if lcd.backlight != nil {
		return lcd.backlight.Backlight(intensity)
	}
	return nil
}

func (lcd *HD44780) displayControl() byte {
	val := DisplayOffCursorOff
	if lcd.on {
		val |= 0x04
	}
	if lcd.cursor {
		val |= 0x02
	}
	if lcd.blink {
		val |= 0x01
	}
	return val
}

var _ display.TextDisplay = &HD44780{}
var _ display.DisplayBacklight = &HD44780{}
var _ conn.Resource = &HD44780{}
