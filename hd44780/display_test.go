// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"testing"

	"github.com/GermanBionicSystems/avrhal/hd44780/hd44780test"
	"github.com/GermanBionicSystems/avrhal/led"
	periphDisplay "periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/display/displaytest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

const (
	testRows = 2
	testCols = 16
)

func getLCD(t *testing.T, width BusWidth) (*HD44780, *hd44780test.Controller, *gpiotest.Pin) {
	t.Helper()
	cfg, c := testConfig(t, width)
	blPin := &gpiotest.Pin{N: "BL"}
	bl, err := led.New(blPin, led.ActiveHigh)
	if err != nil {
		t.Fatal(err)
	}
	lcd, err := NewHD44780(cfg, bl, testRows, testCols)
	if err != nil {
		t.Fatal(err)
	}
	return lcd, c, blPin
}

func TestBasic(t *testing.T) {
	display, c, _ := getLCD(t, FourBit)
	s := display.String()
	t.Log(s)
	if len(s) == 0 {
		t.Error("display.String()")
	}

	n, err := display.WriteString("1234567890")
	if err != nil || n != 10 {
		t.Errorf("WriteString: n=%d, err=%v", n, err)
	}
	if err = display.MoveTo(2, 2); err != nil {
		t.Error(err)
	}
	if _, err = display.WriteString("2345678901"); err != nil {
		t.Error(err)
	}
	lines, err := c.Lines(testRows, testCols)
	if err != nil {
		t.Fatal(err)
	}
	if lines[0] != "1234567890      " || lines[1] != " 2345678901     " {
		t.Errorf("display shows %q", lines)
	}
	if rows := display.Rows(); rows != testRows {
		t.Errorf("display.Rows() expected %d, received %d", testRows, rows)
	}
	if cols := display.Cols(); cols != testCols {
		t.Errorf("display.Cols() expected %d, received %d", testCols, cols)
	}
	if err = display.Halt(); err != nil {
		t.Error(err)
	}
	if on, _, _ := c.DisplayOn(); on {
		t.Error("Halt left the display on")
	}
}

func TestInterface(t *testing.T) {
	for _, width := range widths {
		display, _, _ := getLCD(t, width)
		errs := displaytest.TestTextDisplay(display, false)
		for _, err := range errs {
			if !errors.Is(err, periphDisplay.ErrNotImplemented) {
				t.Errorf("%s: %v", width, err)
			}
		}
		_ = display.Halt()
	}
}

func TestBacklights(t *testing.T) {
	display, c, blPin := getLCD(t, EightBit)
	t.Cleanup(func() {
		_ = display.Halt()
	})

	if err := display.Backlight(0); err != nil {
		t.Error(err)
	}
	if on, _, _ := c.DisplayOn(); on || blPin.Read() != gpio.Low {
		t.Errorf("Backlight(0): display=%t pin=%s", on, blPin.Read())
	}
	if err := display.Backlight(0xff); err != nil {
		t.Error(err)
	}
	if on, _, _ := c.DisplayOn(); !on || blPin.Read() != gpio.High {
		t.Errorf("Backlight(0xff): display=%t pin=%s", on, blPin.Read())
	}
}

func TestCursor(t *testing.T) {
	display, c, _ := getLCD(t, FourBit)
	for _, tc := range []struct {
		modes         []periphDisplay.CursorMode
		cursor, blink bool
	}{
		{[]periphDisplay.CursorMode{periphDisplay.CursorUnderline}, true, false},
		{[]periphDisplay.CursorMode{periphDisplay.CursorBlink}, true, true},
		{[]periphDisplay.CursorMode{periphDisplay.CursorOff}, false, false},
		{[]periphDisplay.CursorMode{periphDisplay.CursorOff, periphDisplay.CursorBlock}, false, true},
	} {
		if err := display.Cursor(tc.modes...); err != nil {
			t.Fatal(err)
		}
		on, cursor, blink := c.DisplayOn()
		if !on || cursor != tc.cursor || blink != tc.blink {
			t.Errorf("Cursor(%v): on=%t cursor=%t blink=%t", tc.modes, on, cursor, blink)
		}
	}
	if err := display.Cursor(periphDisplay.CursorMode(99)); err == nil {
		t.Error("expected an error for an unknown cursor mode")
	}
}

func TestMove(t *testing.T) {
	display, c, _ := getLCD(t, FourBit)
	if err := display.MoveTo(2, 5); err != nil {
		t.Fatal(err)
	}
	if err := display.Move(periphDisplay.Forward); err != nil {
		t.Fatal(err)
	}
	if a := c.Address(); a != 0x45 {
		t.Errorf("address %#x after forward", a)
	}
	if err := display.Move(periphDisplay.Backward); err != nil {
		t.Fatal(err)
	}
	if a := c.Address(); a != 0x44 {
		t.Errorf("address %#x after backward", a)
	}
	if err := display.Move(periphDisplay.Up); !errors.Is(err, periphDisplay.ErrNotImplemented) {
		t.Errorf("Move(Up): %v", err)
	}
	for _, pos := range [][2]int{{0, 1}, {1, 0}, {testRows + 1, 1}, {1, testCols + 1}} {
		if err := display.MoveTo(pos[0], pos[1]); err == nil {
			t.Errorf("MoveTo(%d,%d) accepted", pos[0], pos[1])
		}
	}
	if err := display.Home(); err != nil {
		t.Fatal(err)
	}
	if c.Address() != 0 {
		t.Error("Home did not reset the address")
	}
}

func TestAutoScroll(t *testing.T) {
	display, c, _ := getLCD(t, EightBit)
	if err := display.AutoScroll(true); err != nil {
		t.Fatal(err)
	}
	if inc, shift := c.EntryMode(); !inc || !shift {
		t.Errorf("increment=%t shift=%t", inc, shift)
	}
	if _, err := display.WriteString("ab"); err != nil {
		t.Fatal(err)
	}
	if c.Shift() != 2 {
		t.Errorf("shift %d after two characters", c.Shift())
	}
	if err := display.AutoScroll(false); err != nil {
		t.Fatal(err)
	}
	if _, shift := c.EntryMode(); shift {
		t.Error("shift still enabled")
	}
}

func TestWriteZeroByte(t *testing.T) {
	display, c, _ := getLCD(t, FourBit)
	if n, err := display.Write([]byte{'a', 0, 'b'}); err != nil || n != 3 {
		t.Fatalf("n=%d, err=%v", n, err)
	}
	if d := c.DDRAM(); d[0] != 'a' || d[1] != 0 || d[2] != 'b' {
		t.Errorf("DDRAM starts with %q", d[:3])
	}
}

func TestNewHD44780Geometry(t *testing.T) {
	for _, g := range [][2]int{{0, 16}, {5, 16}, {2, 0}, {2, 41}} {
		cfg, c := testConfig(t, FourBit)
		if _, err := NewHD44780(cfg, nil, g[0], g[1]); err == nil {
			t.Errorf("%dx%d accepted", g[0], g[1])
		}
		if c.Pulses() != 0 {
			t.Errorf("%dx%d: bus driven before the geometry check", g[0], g[1])
		}
	}
	cfg, _ := testConfig(t, FourBit)
	cfg.BusWidth = 6
	if _, err := NewHD44780(cfg, nil, 2, 16); !errors.Is(err, ErrBusWidth) {
		t.Errorf("expected ErrBusWidth, got %v", err)
	}
}
