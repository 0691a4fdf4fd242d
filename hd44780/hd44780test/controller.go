// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780test emulates an HD44780 controller at the pin level.
//
// The Controller exposes the RS, RW, E and data lines as gpio pins. It
// latches the data lines on each falling edge of E, assembles nibbles once a
// function set has switched it to 4 bit mode, and executes the instruction
// set against its own DDRAM and CGRAM. It is also a delay source: Delay
// advances a virtual clock instead of sleeping, which lets tests check the
// timing windows without waiting for them.
package hd44780test

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

const (
	ddramSize = 0x80
	cgramSize = 0x40
	lineLen   = 40
)

// rowOffsets are the DDRAM addresses of the first column of each row of a 20x4
// or 16x2 panel.
var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// Transfer is one latch of the bus, as seen on the lines when E fell.
type Transfer struct {
	RS bool
	RW bool
	// Lines holds D7..D0. On a 4 bit bus only D7..D4 are wired and the low
	// nibble reads 0.
	Lines byte
	At    time.Duration
}

// Nibble returns the value on D7..D4.
func (t Transfer) Nibble() byte {
	return t.Lines >> 4
}

// Instruction is a complete byte received by the controller.
type Instruction struct {
	RS   bool
	Data byte
}

func (i Instruction) String() string {
	if i.RS {
		return fmt.Sprintf("data(%#02x)", i.Data)
	}
	return fmt.Sprintf("cmd(%#02x)", i.Data)
}

// Pin is one line into the emulated controller.
type Pin struct {
	gpiotest.Pin
	c   *Controller
	lvl gpio.Level
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	if err := p.c.failure(p.N); err != nil {
		return err
	}
	if err := p.Pin.Out(l); err != nil {
		return err
	}
	p.c.onOut(p, l)
	return nil
}

// Controller is an emulated HD44780 wired on a 4 or 8 bit bus.
type Controller struct {
	RS *Pin
	RW *Pin
	E  *Pin
	D  [8]*Pin

	mu    sync.Mutex
	width int
	fails map[string]error

	now         time.Duration
	delays      []time.Duration
	eRoseAt     time.Duration
	eFellAt     time.Duration
	rsChangedAt time.Duration
	pulseWidths []time.Duration
	holds       []time.Duration
	setups      []time.Duration

	transfers    []Transfer
	instructions []Instruction

	fourBit     bool
	pending     bool
	pendingHigh byte

	ddram      [ddramSize]byte
	cgram      [cgramSize]byte
	ac         byte
	cgMode     bool
	increment  bool
	entryShift bool
	displayOn  bool
	cursor     bool
	blink      bool
	twoLines   bool
	shift      int
}

// New returns a controller in its power on state, wired for a bus of width
// 4 (D4..D7) or 8 (D0..D7) lines.
func New(width int) (*Controller, error) {
	if width != 4 && width != 8 {
		return nil, fmt.Errorf("hd44780test: unsupported bus width %d", width)
	}
	c := &Controller{width: width, fails: map[string]error{}}
	c.RS = c.newPin("RS", 0)
	c.RW = c.newPin("RW", 1)
	c.E = c.newPin("E", 2)
	for i := range c.D {
		c.D[i] = c.newPin(fmt.Sprintf("D%d", i), 3+i)
	}
	c.powerOn()
	return c, nil
}

func (c *Controller) newPin(name string, num int) *Pin {
	return &Pin{Pin: gpiotest.Pin{N: name, Num: num}, c: c}
}

// DataPins returns the data lines that are wired for the bus width, in bit
// order.
func (c *Controller) DataPins() []gpio.PinOut {
	first := 0
	if c.width == 4 {
		first = 4
	}
	pins := make([]gpio.PinOut, 0, c.width)
	for _, p := range c.D[first:] {
		pins = append(pins, p)
	}
	return pins
}

// FailOn makes every following write to the named pin return err. A nil err
// removes the failure.
func (c *Controller) FailOn(pin string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fails, pin)
		return
	}
	c.fails[pin] = err
}

func (c *Controller) failure(pin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fails[pin]
}

// Delay advances the virtual clock by d.
func (c *Controller) Delay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays = append(c.delays, d)
	c.now += d
}

// Now returns the virtual clock.
func (c *Controller) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Delays returns every Delay request, in order.
func (c *Controller) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

func (c *Controller) onOut(p *Pin, l gpio.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := p.lvl
	p.lvl = l
	switch p {
	case c.RS, c.RW:
		if prev != l {
			c.rsChangedAt = c.now
		}
	case c.E:
		switch {
		case !bool(prev) && bool(l):
			c.eRoseAt = c.now
			c.setups = append(c.setups, c.now-c.rsChangedAt)
			if len(c.pulseWidths) > 0 {
				c.holds = append(c.holds, c.now-c.eFellAt)
			}
		case bool(prev) && !bool(l):
			c.pulseWidths = append(c.pulseWidths, c.now-c.eRoseAt)
			c.eFellAt = c.now
			c.latch()
		}
	}
}

func (c *Controller) latch() {
	var v byte
	if c.width == 8 {
		for i, p := range c.D {
			if p.lvl {
				v |= 1 << uint(i)
			}
		}
	} else {
		for i, p := range c.D[4:] {
			if p.lvl {
				v |= 1 << uint(i+4)
			}
		}
	}
	rs := bool(c.RS.lvl)
	c.transfers = append(c.transfers, Transfer{RS: rs, RW: bool(c.RW.lvl), Lines: v, At: c.now})
	if c.RW.lvl {
		// Reads are not emulated, the driver never issues them.
		return
	}
	if !c.fourBit {
		c.execute(rs, v)
		return
	}
	if !c.pending {
		c.pending = true
		c.pendingHigh = v & 0xf0
		return
	}
	c.pending = false
	c.execute(rs, c.pendingHigh|v>>4)
}

func (c *Controller) execute(rs bool, b byte) {
	c.instructions = append(c.instructions, Instruction{RS: rs, Data: b})
	if rs {
		c.writeData(b)
		return
	}
	switch {
	case b&0x80 != 0:
		c.ac = b & 0x7f
		c.cgMode = false
	case b&0x40 != 0:
		c.ac = b & 0x3f
		c.cgMode = true
	case b&0x20 != 0:
		c.fourBit = b&0x10 == 0
		c.twoLines = b&0x08 != 0
		c.pending = false
	case b&0x10 != 0:
		right := b&0x04 != 0
		if b&0x08 != 0 {
			if right {
				c.shift--
			} else {
				c.shift++
			}
		} else {
			c.moveAC(right)
		}
	case b&0x08 != 0:
		c.displayOn = b&0x04 != 0
		c.cursor = b&0x02 != 0
		c.blink = b&0x01 != 0
	case b&0x04 != 0:
		c.increment = b&0x02 != 0
		c.entryShift = b&0x01 != 0
	case b&0x02 != 0:
		c.ac = 0
		c.shift = 0
		c.cgMode = false
	case b == clearDisplay:
		for i := range c.ddram {
			c.ddram[i] = ' '
		}
		c.ac = 0
		c.shift = 0
		c.cgMode = false
		c.increment = true
	}
}

// clearDisplay is the only instruction without a flag bit above bit 0.
const clearDisplay = 0x01

func (c *Controller) writeData(b byte) {
	if c.cgMode {
		c.cgram[c.ac&(cgramSize-1)] = b
	} else {
		c.ddram[c.ac&(ddramSize-1)] = b
		if c.entryShift {
			if c.increment {
				c.shift++
			} else {
				c.shift--
			}
		}
	}
	c.moveAC(c.increment)
}

func (c *Controller) moveAC(forward bool) {
	if c.cgMode {
		if forward {
			c.ac = (c.ac + 1) & (cgramSize - 1)
		} else {
			c.ac = (c.ac - 1) & (cgramSize - 1)
		}
		return
	}
	if c.twoLines {
		switch {
		case forward && c.ac == 0x27:
			c.ac = 0x40
		case forward && c.ac >= 0x67:
			c.ac = 0x00
		case !forward && c.ac == 0x40:
			c.ac = 0x27
		case !forward && c.ac == 0x00:
			c.ac = 0x67
		case forward:
			c.ac++
		default:
			c.ac--
		}
		return
	}
	if forward {
		c.ac = (c.ac + 1) % 0x50
	} else if c.ac == 0 {
		c.ac = 0x4f
	} else {
		c.ac--
	}
}

func (c *Controller) powerOn() {
	c.fourBit = false
	c.pending = false
	for i := range c.ddram {
		c.ddram[i] = ' '
	}
	c.cgram = [cgramSize]byte{}
	c.ac = 0
	c.cgMode = false
	c.increment = true
	c.entryShift = false
	c.displayOn = false
	c.cursor = false
	c.blink = false
	c.twoLines = false
	c.shift = 0
}

// Reset puts the controller back in its power on state and drops every
// recording.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.powerOn()
	c.resetLog()
}

// ResetLog drops the recorded transfers, instructions, pulses and delays but
// keeps the controller state.
func (c *Controller) ResetLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLog()
}

func (c *Controller) resetLog() {
	c.transfers = nil
	c.instructions = nil
	c.pulseWidths = nil
	c.holds = nil
	c.setups = nil
	c.delays = nil
}

// Transfers returns every latch, in order.
func (c *Controller) Transfers() []Transfer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Transfer(nil), c.transfers...)
}

// Instructions returns every complete byte received, in order.
func (c *Controller) Instructions() []Instruction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Instruction(nil), c.instructions...)
}

// Commands returns the instruction register bytes received, in order.
func (c *Controller) Commands() []byte {
	return c.filter(false)
}

// Data returns the data register bytes received, in order.
func (c *Controller) Data() []byte {
	return c.filter(true)
}

func (c *Controller) filter(rs bool) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []byte
	for _, i := range c.instructions {
		if i.RS == rs {
			out = append(out, i.Data)
		}
	}
	return out
}

// Pulses returns the number of enable pulses seen.
func (c *Controller) Pulses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pulseWidths)
}

// PulseWidths returns how long E stayed high for each pulse.
func (c *Controller) PulseWidths() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.pulseWidths...)
}

// Holds returns the time between each falling edge of E and the next rising
// edge.
func (c *Controller) Holds() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.holds...)
}

// Setups returns, for each rising edge of E, the time since RS or RW last
// changed.
func (c *Controller) Setups() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.setups...)
}

// FourBit reports whether the controller interface is in 4 bit mode.
func (c *Controller) FourBit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fourBit
}

// TwoLines reports whether the last function set selected two lines.
func (c *Controller) TwoLines() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.twoLines
}

// Address returns the address counter. It points in CGRAM after a set CGRAM
// address instruction and in DDRAM otherwise.
func (c *Controller) Address() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ac
}

// InCGRAM reports whether data writes go to CGRAM.
func (c *Controller) InCGRAM() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cgMode
}

// DisplayOn reports the display, cursor and blink flags of the last display
// control instruction.
func (c *Controller) DisplayOn() (on, cursor, blink bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayOn, c.cursor, c.blink
}

// EntryMode reports the increment and shift flags of the last entry mode
// instruction.
func (c *Controller) EntryMode() (increment, shift bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.increment, c.entryShift
}

// Shift returns how many positions the display was shifted left. A negative
// value is a shift to the right.
func (c *Controller) Shift() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shift
}

// DDRAM returns a copy of the display data RAM.
func (c *Controller) DDRAM() [ddramSize]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ddram
}

// CGRAM returns a copy of the character generator RAM.
func (c *Controller) CGRAM() [cgramSize]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cgram
}

// Glyph returns the 8 pattern rows stored for a CGRAM slot.
func (c *Controller) Glyph(slot int) [8]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var g [8]byte
	copy(g[:], c.cgram[(slot&7)*8:])
	return g
}

// ErrRow is returned by Line for a row the panel does not have.
var ErrRow = errors.New("hd44780test: row out of range")

// Line returns the cols characters visible on row (0 based), with the
// display shift applied. Bytes below 8 refer to CGRAM glyphs.
func (c *Controller) Line(row, cols int) (string, error) {
	if row < 0 || row >= len(rowOffsets) {
		return "", fmt.Errorf("%w: %d", ErrRow, row)
	}
	if cols < 0 || cols > lineLen {
		return "", fmt.Errorf("hd44780test: %d columns", cols)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	base := rowOffsets[row]
	line := base & 0x40
	offset := int(base & 0x3f)
	out := make([]byte, cols)
	for i := range out {
		pos := ((offset+i+c.shift)%lineLen + lineLen) % lineLen
		out[i] = c.ddram[int(line)+pos]
	}
	return string(out), nil
}

// Lines returns the visible content of a rows x cols panel.
func (c *Controller) Lines(rows, cols int) ([]string, error) {
	out := make([]string, rows)
	for r := range out {
		l, err := c.Line(r, cols)
		if err != nil {
			return nil, err
		}
		out[r] = l
	}
	return out, nil
}

var _ gpio.PinIO = &Pin{}
