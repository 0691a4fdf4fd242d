// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780test

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// clock drives one 8 bit transfer by hand.
func clock8(t *testing.T, c *Controller, rs bool, v byte) {
	t.Helper()
	must(t, c.RS.Out(gpio.Level(rs)))
	for i, p := range c.D {
		must(t, p.Out(gpio.Level(v>>uint(i)&1 == 1)))
	}
	c.Delay(40 * time.Microsecond)
	must(t, c.E.Out(gpio.High))
	c.Delay(150 * time.Microsecond)
	must(t, c.E.Out(gpio.Low))
	c.Delay(300 * time.Microsecond)
}

// clock4 drives one nibble on D7..D4.
func clock4(t *testing.T, c *Controller, rs bool, nibble byte) {
	t.Helper()
	must(t, c.RS.Out(gpio.Level(rs)))
	for i, p := range c.D[4:] {
		must(t, p.Out(gpio.Level(nibble>>uint(i)&1 == 1)))
	}
	must(t, c.E.Out(gpio.High))
	c.Delay(time.Microsecond)
	must(t, c.E.Out(gpio.Low))
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(6); err == nil {
		t.Error("expected an error for a 6 line bus")
	}
	c, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(c.DataPins()); n != 4 {
		t.Errorf("%d data pins", n)
	}
	if c.DataPins()[0] != c.D[4] {
		t.Error("4 bit bus must start at D4")
	}
	if c.FourBit() {
		t.Error("controller must power on in 8 bit mode")
	}
	if l, _ := c.Line(0, 4); l != "    " {
		t.Errorf("DDRAM not blank at power on: %q", l)
	}
}

func TestEightBit(t *testing.T) {
	c, _ := New(8)
	clock8(t, c, false, 0x38)
	clock8(t, c, false, 0x0F)
	clock8(t, c, true, 'h')
	clock8(t, c, true, 'i')
	if !c.TwoLines() || c.FourBit() {
		t.Error("function set not applied")
	}
	if on, cursor, blink := c.DisplayOn(); !on || !cursor || !blink {
		t.Error("display control not applied")
	}
	if l, _ := c.Line(0, 2); l != "hi" {
		t.Errorf("line %q", l)
	}
	if c.Address() != 2 {
		t.Errorf("address %d", c.Address())
	}
	if c.Pulses() != 4 || len(c.Holds()) != 3 {
		t.Errorf("%d pulses, %d holds", c.Pulses(), len(c.Holds()))
	}
	for _, w := range c.PulseWidths() {
		if w != 150*time.Microsecond {
			t.Errorf("pulse width %s", w)
		}
	}
}

func TestFourBitPairsNibbles(t *testing.T) {
	c, _ := New(4)
	clock4(t, c, false, 0x2)
	if !c.FourBit() {
		t.Fatal("lone function set nibble must switch to 4 bit mode")
	}
	clock4(t, c, false, 0x2)
	clock4(t, c, false, 0x8)
	clock4(t, c, true, 0x4)
	clock4(t, c, true, 0x1)
	want := []Instruction{{Data: 0x20}, {Data: 0x28}, {RS: true, Data: 'A'}}
	got := c.Instructions()
	if len(got) != len(want) {
		t.Fatalf("instructions %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d: %v, expected %v", i, got[i], want[i])
		}
	}
	if d := c.Data(); len(d) != 1 || d[0] != 'A' {
		t.Errorf("data %q", d)
	}
	if tr := c.Transfers(); len(tr) != 5 || tr[4].Nibble() != 0x1 || !tr[4].RS {
		t.Errorf("transfers %+v", tr)
	}
}

func TestAddressWrap(t *testing.T) {
	c, _ := New(8)
	clock8(t, c, false, 0x38)
	clock8(t, c, false, 0x80|0x27)
	clock8(t, c, true, 'x')
	if c.Address() != 0x40 {
		t.Errorf("expected wrap to the second line, got %#x", c.Address())
	}
	clock8(t, c, false, 0x80|0x67)
	clock8(t, c, true, 'y')
	if c.Address() != 0 {
		t.Errorf("expected wrap to the first line, got %#x", c.Address())
	}
}

func TestCGRAM(t *testing.T) {
	c, _ := New(8)
	clock8(t, c, false, 0x38)
	clock8(t, c, false, 0x48)
	for i := byte(0); i < 8; i++ {
		clock8(t, c, true, i+1)
	}
	if !c.InCGRAM() {
		t.Error("expected CGRAM mode")
	}
	if g := c.Glyph(1); g != [8]byte{1, 2, 3, 4, 5, 6, 7, 8} {
		t.Errorf("glyph %v", g)
	}
	if cg := c.CGRAM(); cg[0] != 0 {
		t.Error("slot 0 written")
	}
	clock8(t, c, false, 0x80)
	if c.InCGRAM() {
		t.Error("set DDRAM address must leave CGRAM mode")
	}
}

func TestShiftAndClear(t *testing.T) {
	c, _ := New(8)
	clock8(t, c, false, 0x38)
	for _, ch := range []byte("abcd") {
		clock8(t, c, true, ch)
	}
	clock8(t, c, false, 0x18)
	if l, _ := c.Line(0, 3); l != "bcd" {
		t.Errorf("shifted left: %q", l)
	}
	clock8(t, c, false, 0x1C)
	clock8(t, c, false, 0x1C)
	if c.Shift() != -1 {
		t.Errorf("shift %d", c.Shift())
	}
	if l, _ := c.Line(0, 3); l != " ab" {
		t.Errorf("shifted right: %q", l)
	}
	clock8(t, c, false, 0x10)
	if c.Address() != 3 {
		t.Errorf("cursor left: address %d", c.Address())
	}
	clock8(t, c, false, 0x01)
	if l, _ := c.Line(0, 4); l != "    " || c.Address() != 0 || c.Shift() != 0 {
		t.Errorf("clear left %q at %d", l, c.Address())
	}
}

func TestFourRowLines(t *testing.T) {
	c, _ := New(8)
	clock8(t, c, false, 0x38)
	clock8(t, c, false, 0x94)
	clock8(t, c, true, '3')
	clock8(t, c, false, 0xD4)
	clock8(t, c, true, '4')
	lines, err := c.Lines(4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if lines[2] != "3" || lines[3] != "4" {
		t.Errorf("lines %q", lines)
	}
	if _, err := c.Line(4, 1); !errors.Is(err, ErrRow) {
		t.Errorf("expected ErrRow, got %v", err)
	}
}

func TestFailOnAndReset(t *testing.T) {
	c, _ := New(8)
	boom := errors.New("boom")
	c.FailOn("D3", boom)
	if err := c.D[3].Out(gpio.High); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if c.D[3].Read() != gpio.Low {
		t.Error("failed write changed the level")
	}
	c.FailOn("D3", nil)
	must(t, c.D[3].Out(gpio.High))

	clock8(t, c, false, 0x38)
	c.Reset()
	if c.TwoLines() || len(c.Transfers()) != 0 || len(c.Delays()) != 0 {
		t.Error("Reset kept state")
	}
	if c.Now() == 0 {
		t.Error("Reset must not rewind the clock")
	}
}

func TestReadsIgnored(t *testing.T) {
	c, _ := New(8)
	must(t, c.RW.Out(gpio.High))
	clock8(t, c, false, 0x38)
	if c.TwoLines() {
		t.Error("a read cycle executed an instruction")
	}
	if tr := c.Transfers(); len(tr) != 1 || !tr[0].RW {
		t.Errorf("transfers %+v", tr)
	}
}
