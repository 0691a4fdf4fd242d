// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi LCD display chipset HD-44780 over a
// parallel 4 or 8 bit bus made of discrete GPIO pins.
//
// The busy flag is never read. Every instruction is followed by a fixed
// delay long enough for the slowest controller in the family, and the read/
// write line is held low for the whole session.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

// BusWidth is the number of data lines wired between the host and the
// controller.
type BusWidth int

const (
	FourBit  BusWidth = 4
	EightBit BusWidth = 8
)

func (w BusWidth) String() string {
	switch w {
	case FourBit:
		return "4-bit"
	case EightBit:
		return "8-bit"
	default:
		return fmt.Sprintf("BusWidth(%d)", int(w))
	}
}

// State is the progress of the initialization sequence.
type State int

const (
	Uninitialized State = iota
	PinsConfigured
	FunctionSet
	DisplayConfigured
	Cleared
	EntryModeConfigured
	Ready
)

var stateNames = [...]string{
	"Uninitialized",
	"PinsConfigured",
	"FunctionSet",
	"DisplayConfigured",
	"Cleared",
	"EntryModeConfigured",
	"Ready",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

var (
	ErrNilDevice = errors.New("hd44780: nil device")
	ErrNilConfig = errors.New("hd44780: nil config")
	ErrBusWidth  = errors.New("hd44780: bus width must be 4 or 8")
	ErrPin       = errors.New("hd44780: pin not connected")
	ErrColumn    = errors.New("hd44780: column out of range")
	ErrDirection = errors.New("hd44780: invalid shift direction")
	ErrSlot      = errors.New("hd44780: CGRAM slot out of range")
)

// Timing windows. They are floors: the controller tolerates longer waits.
const (
	enablePulseWidth = 150 * time.Microsecond
	enableHold       = 300 * time.Microsecond
	setupDelay       = 40 * time.Microsecond
	powerOnDelay     = 30 * time.Millisecond
	bootstrapSetup   = 80 * time.Microsecond
	bootstrapHold    = 300 * time.Microsecond
	commandDelay     = 50 * time.Microsecond
	clearDelay       = 2 * time.Millisecond
)

// MaxColumn is the length of one DDRAM line.
const MaxColumn = 40

// CGRAMSlots is the number of user definable 5x8 glyphs.
const CGRAMSlots = 8

// maxNumberLen is the longest decimal rendering of an int32, sign included.
const maxNumberLen = len("-2147483648")

type writeMode bool

const (
	modeCommand writeMode = false
	modeData    writeMode = true
)

func (m writeMode) String() string {
	if m == modeData {
		return "data"
	}
	return "cmd"
}

// Config describes how a display is wired and how it should be set up.
//
// The caller owns the Config. New copies it, so later changes have no effect
// on an existing Dev.
type Config struct {
	BusWidth BusWidth
	// DisplayMode and EntryMode are instruction bytes sent during Init,
	// e.g. DisplayOnUnderlineOffCursorOff and EntryModeIncShiftOff.
	DisplayMode byte
	EntryMode   byte

	RS gpio.PinOut
	RW gpio.PinOut
	E  gpio.PinOut
	// Data holds the data lines in bit order. In 4 bit mode Data[0] is wired
	// to D4. Entries past BusWidth are ignored.
	Data []gpio.PinOut

	// Delayer defaults to Spin.
	Delayer Delayer
	// Logger defaults to logrus.StandardLogger().
	Logger *logrus.Logger
}

// DefaultConfig holds the modes used by most applications: display on with
// no cursor, and left to right entry without shifting.
var DefaultConfig = Config{
	BusWidth:    FourBit,
	DisplayMode: DisplayOnUnderlineOffCursorOff,
	EntryMode:   EntryModeIncShiftOff,
}

// Validate checks the bus width and that every pin the bus width requires is
// connected.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	switch c.BusWidth {
	case FourBit, EightBit:
	default:
		return fmt.Errorf("%w, got %d", ErrBusWidth, int(c.BusWidth))
	}
	switch {
	case c.RS == nil:
		return fmt.Errorf("%w: RS", ErrPin)
	case c.RW == nil:
		return fmt.Errorf("%w: RW", ErrPin)
	case c.E == nil:
		return fmt.Errorf("%w: E", ErrPin)
	}
	if len(c.Data) < int(c.BusWidth) {
		return fmt.Errorf("%w: %s bus needs %d data pins, got %d", ErrPin, c.BusWidth, int(c.BusWidth), len(c.Data))
	}
	for i := 0; i < int(c.BusWidth); i++ {
		if c.Data[i] == nil {
			return fmt.Errorf("%w: data %d", ErrPin, i)
		}
	}
	return nil
}

// Dev is a display driven over a parallel bus.
//
// A Dev is not safe for concurrent use. A bus transaction spans several pin
// writes, and interleaving two of them corrupts what the controller latches.
type Dev struct {
	cfg   Config
	data  []gpio.PinOut
	delay Delayer
	log   *logrus.Entry
	state State
}

// New validates cfg and returns a Dev. It does not touch the pins, call Init
// to run the power on sequence.
func New(cfg *Config) (*Dev, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Dev{cfg: *cfg, delay: cfg.Delayer}
	d.data = append([]gpio.PinOut(nil), cfg.Data[:cfg.BusWidth]...)
	if d.delay == nil {
		d.delay = Spin{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d.log = logger.WithFields(logrus.Fields{"dev": "hd44780", "bus": cfg.BusWidth.String()})
	return d, nil
}

func (d *Dev) String() string {
	if d == nil {
		return "HD44780(nil)"
	}
	return fmt.Sprintf("HD44780{%s, rs=%s, rw=%s, e=%s}", d.cfg.BusWidth, d.cfg.RS, d.cfg.RW, d.cfg.E)
}

// BusWidth returns the width the Dev was configured with.
func (d *Dev) BusWidth() BusWidth {
	return d.cfg.BusWidth
}

// State returns the last initialization state reached.
func (d *Dev) State() State {
	if d == nil {
		return Uninitialized
	}
	return d.state
}

// Init runs the power on sequence: pins low, function set, display control,
// clear and entry mode.
//
// In 4 bit mode the controller is still listening on 8 lines when the first
// function set arrives, so its high nibble is clocked in alone before the full
// instruction goes through the normal two nibble path.
//
// Init stops at the first error. Instructions already clocked into the
// controller stay in effect.
func (d *Dev) Init() error {
	if d == nil {
		return ErrNilDevice
	}
	d.state = Uninitialized
	d.log.Debug("initializing")

	if err := d.out(d.cfg.RS, "RS", gpio.Low); err != nil {
		return err
	}
	if err := d.out(d.cfg.RW, "RW", gpio.Low); err != nil {
		return err
	}
	if err := d.out(d.cfg.E, "E", gpio.Low); err != nil {
		return err
	}
	if err := d.writeBits(0); err != nil {
		return err
	}
	d.state = PinsConfigured
	d.delay.Delay(powerOnDelay)

	if d.cfg.BusWidth == EightBit {
		if err := d.SendCommand(FunctionSet8Bit2Line); err != nil {
			return err
		}
	} else {
		if err := d.writeBits(FunctionSet4Bit2Line >> 4); err != nil {
			return err
		}
		d.delay.Delay(bootstrapSetup)
		if err := d.pulseEnable(); err != nil {
			return err
		}
		d.delay.Delay(bootstrapHold)
		if err := d.SendCommand(FunctionSet4Bit2Line); err != nil {
			return err
		}
	}
	d.state = FunctionSet

	d.delay.Delay(commandDelay)
	if err := d.SendCommand(d.cfg.DisplayMode); err != nil {
		return err
	}
	d.state = DisplayConfigured

	d.delay.Delay(commandDelay)
	if err := d.Clear(); err != nil {
		return err
	}
	d.state = Cleared

	if err := d.SendCommand(d.cfg.EntryMode); err != nil {
		return err
	}
	d.state = EntryModeConfigured

	d.state = Ready
	d.log.Debug("ready")
	return nil
}

// SendCommand writes one byte to the instruction register.
func (d *Dev) SendCommand(cmd byte) error {
	return d.send(modeCommand, cmd)
}

// SendChar writes one byte to the data register, at the current DDRAM or
// CGRAM address. The address then moves as set by the entry mode.
func (d *Dev) SendChar(c byte) error {
	return d.send(modeData, c)
}

// Clear blanks the display and moves the cursor to the first position.
func (d *Dev) Clear() error {
	err := d.SendCommand(ClearDisplay)
	if err == nil {
		d.delay.Delay(clearDelay)
	}
	return err
}

// ReturnHome moves the cursor to the first position and undoes any display
// shift.
func (d *Dev) ReturnHome() error {
	err := d.SendCommand(ReturnHome)
	if err == nil {
		d.delay.Delay(clearDelay)
	}
	return err
}

// SetCursor moves the cursor to column (1 based) of row.
func (d *Dev) SetCursor(row Row, column int) error {
	if d == nil {
		return ErrNilDevice
	}
	if column < 1 || column > MaxColumn {
		return fmt.Errorf("%w: %d", ErrColumn, column)
	}
	return d.SendCommand(byte(row) + byte(column-1))
}

// SendCharAt writes c at column of row.
func (d *Dev) SendCharAt(c byte, row Row, column int) error {
	if err := d.SetCursor(row, column); err != nil {
		return err
	}
	return d.SendChar(c)
}

// SendString writes s one byte at a time, up to its end or to the first zero
// byte. Every character is attempted. The returned error joins the error of
// each character that failed.
func (d *Dev) SendString(s string) error {
	if d == nil {
		return ErrNilDevice
	}
	var errs []error
	for i := 0; i < len(s) && s[i] != 0; i++ {
		if err := d.SendChar(s[i]); err != nil {
			errs = append(errs, fmt.Errorf("character %d %q: %w", i, s[i], err))
		}
	}
	return errors.Join(errs...)
}

// SendStringAt writes s starting at column of row.
func (d *Dev) SendStringAt(s string, row Row, column int) error {
	if err := d.SetCursor(row, column); err != nil {
		return err
	}
	return d.SendString(s)
}

// SendNumber writes n in decimal, with a leading '-' when negative.
func (d *Dev) SendNumber(n int32) error {
	if d == nil {
		return ErrNilDevice
	}
	var buf [maxNumberLen]byte
	return d.SendString(string(strconv.AppendInt(buf[:0], int64(n), 10)))
}

// SendNumberAt writes n in decimal starting at column of row.
func (d *Dev) SendNumberAt(n int32, row Row, column int) error {
	if err := d.SetCursor(row, column); err != nil {
		return err
	}
	return d.SendNumber(n)
}

// ShiftDisplay moves the visible window by n characters. The controller only
// shifts one position per instruction, so n instructions are sent.
func (d *Dev) ShiftDisplay(dir Direction, n int) error {
	if d == nil {
		return ErrNilDevice
	}
	var cmd byte
	switch dir {
	case ShiftLeft:
		cmd = DisplayShiftLeft
	case ShiftRight:
		cmd = DisplayShiftRight
	default:
		return fmt.Errorf("%w: %d", ErrDirection, uint8(dir))
	}
	if n < 0 {
		return fmt.Errorf("hd44780: negative shift count %d", n)
	}
	var errs []error
	for i := 0; i < n; i++ {
		if err := d.SendCommand(cmd); err != nil {
			errs = append(errs, fmt.Errorf("shift %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// SaveSpecialCharacter stores a 5x8 glyph in CGRAM. pattern holds one byte per
// pixel row, top first, using the low 5 bits. The glyph is then displayed by
// writing the byte slot with SendChar.
//
// Writing CGRAM moves the address counter away from DDRAM, so the cursor is
// put back at the first column of FirstRow afterwards.
func (d *Dev) SaveSpecialCharacter(slot int, pattern [8]byte) error {
	if d == nil {
		return ErrNilDevice
	}
	if slot < 0 || slot >= CGRAMSlots {
		return fmt.Errorf("%w: %d", ErrSlot, slot)
	}
	var errs []error
	if err := d.SendCommand(CGRAMStart + byte(slot*8)); err != nil {
		errs = append(errs, fmt.Errorf("CGRAM address: %w", err))
	}
	for i, b := range pattern {
		if err := d.SendChar(b); err != nil {
			errs = append(errs, fmt.Errorf("pattern row %d: %w", i, err))
		}
	}
	if err := d.SetCursor(FirstRow, 1); err != nil {
		errs = append(errs, fmt.Errorf("cursor reset: %w", err))
	}
	return errors.Join(errs...)
}

// send selects the register, waits for the lines to settle and transfers
// value.
func (d *Dev) send(mode writeMode, value byte) error {
	if d == nil {
		return ErrNilDevice
	}
	if err := d.out(d.cfg.RW, "RW", gpio.Low); err != nil {
		return err
	}
	if err := d.out(d.cfg.RS, "RS", gpio.Level(mode)); err != nil {
		return err
	}
	d.delay.Delay(setupDelay)
	if d.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		d.log.Debugf("%s %#02x", mode, value)
	}
	return d.writeBus(value)
}

// writeBus transfers one byte: a single transfer on an 8 bit bus, or the high
// nibble then the low nibble on a 4 bit bus. Each transfer is latched by an
// enable pulse.
func (d *Dev) writeBus(value byte) error {
	if d.cfg.BusWidth == FourBit {
		if err := d.writeBits(value >> 4); err != nil {
			return err
		}
		if err := d.pulseEnable(); err != nil {
			return err
		}
		value &= 0x0f
	}
	if err := d.writeBits(value); err != nil {
		return err
	}
	return d.pulseEnable()
}

// writeBits drives data pin i with bit i of value.
func (d *Dev) writeBits(value byte) error {
	for i, p := range d.data {
		if err := p.Out(gpio.Level((value>>uint(i))&1 == 1)); err != nil {
			return fmt.Errorf("hd44780: data %d: %w", i, err)
		}
	}
	return nil
}

func (d *Dev) pulseEnable() error {
	if err := d.out(d.cfg.E, "E", gpio.High); err != nil {
		return err
	}
	d.delay.Delay(enablePulseWidth)
	if err := d.out(d.cfg.E, "E", gpio.Low); err != nil {
		return err
	}
	d.delay.Delay(enableHold)
	return nil
}

func (d *Dev) out(p gpio.PinOut, name string, l gpio.Level) error {
	if err := p.Out(l); err != nil {
		return fmt.Errorf("hd44780: %s: %w", name, err)
	}
	return nil
}
