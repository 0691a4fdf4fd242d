// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package atmega32

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

// Direction is the data direction of a pin.
type Direction uint8

const (
	Input  Direction = 0
	Output Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "in"
	case Output:
		return "out"
	default:
		return "Direction(" + strconv.Itoa(int(d)) + ")"
	}
}

var (
	ErrPin       = errors.New("atmega32: pin out of range")
	ErrDirection = errors.New("atmega32: invalid direction")
	ErrNilPort   = errors.New("atmega32: nil port")
)

// PinsPerPort is the width of every port.
const PinsPerPort = 8

// Port is one 8 bit I/O port, made of its PIN, DDR and PORT registers.
//
// Inputs that are not driven by Drive read high when their pull-up is
// enabled and low otherwise.
type Port struct {
	mcu    *MCU
	letter byte
	index  int
	pin    Register
	ddr    Register
	port   Register
	pins   [PinsPerPort]*Pin

	mu     sync.Mutex
	driven byte
	ext    byte
}

func newPort(mcu *MCU, letter byte, index int, base Register) *Port {
	p := &Port{mcu: mcu, letter: letter, index: index, pin: base, ddr: base + 1, port: base + 2}
	for i := range p.pins {
		p.pins[i] = &Pin{port: p, bit: uint8(i)}
	}
	refresh := func(_, _ byte) { p.refresh() }
	mcu.Mem.onWrite(p.ddr, refresh)
	mcu.Mem.onWrite(p.port, refresh)
	return p
}

// Name returns the port name, e.g. "PORTA".
func (p *Port) Name() string {
	return "PORT" + string(p.letter)
}

func (p *Port) String() string {
	return p.Name()
}

// Registers returns the PIN, DDR and PORT registers of the port.
func (p *Port) Registers() (pin, ddr, port Register) {
	return p.pin, p.ddr, p.port
}

// Pin returns pin bit of the port.
func (p *Port) Pin(bit uint8) (*Pin, error) {
	if p == nil {
		return nil, ErrNilPort
	}
	if bit >= PinsPerPort {
		return nil, fmt.Errorf("%w: %s bit %d", ErrPin, p.Name(), bit)
	}
	return p.pins[bit], nil
}

// Pins returns the 8 pins of the port, bit 0 first.
func (p *Port) Pins() []*Pin {
	return append([]*Pin(nil), p.pins[:]...)
}

// Init sets the direction of every pin from ddr, one bit per pin with 1 for
// output, then writes value to the output latch.
func (p *Port) Init(ddr, value byte) error {
	if p == nil {
		return ErrNilPort
	}
	p.mcu.Mem.Write(p.ddr, ddr)
	p.mcu.Mem.Write(p.port, value)
	p.mcu.log.Debugf("%s: ddr=%#02x port=%#02x", p.Name(), ddr, value)
	return nil
}

// SetDirection writes the DDR register.
func (p *Port) SetDirection(ddr byte) error {
	if p == nil {
		return ErrNilPort
	}
	p.mcu.Mem.Write(p.ddr, ddr)
	return nil
}

// Write writes the output latch. On input pins a set bit enables the pull-up.
func (p *Port) Write(value byte) error {
	if p == nil {
		return ErrNilPort
	}
	p.mcu.Mem.Write(p.port, value)
	return nil
}

// Read returns the PIN register.
func (p *Port) Read() (byte, error) {
	if p == nil {
		return 0, ErrNilPort
	}
	return p.mcu.Mem.Read(p.pin), nil
}

// Toggle inverts every bit of the output latch.
func (p *Port) Toggle() error {
	if p == nil {
		return ErrNilPort
	}
	p.mcu.Mem.update(p.port, func(old byte) byte { return old ^ 0xff })
	return nil
}

// Drive applies an external level to an input pin, as a button or another
// chip would. It has no effect on the PIN register while the pin is an
// output.
func (p *Port) Drive(bit uint8, l gpio.Level) error {
	if bit >= PinsPerPort {
		return fmt.Errorf("%w: %s bit %d", ErrPin, p.Name(), bit)
	}
	p.mu.Lock()
	p.driven |= 1 << bit
	if l {
		p.ext |= 1 << bit
	} else {
		p.ext &^= 1 << bit
	}
	p.mu.Unlock()
	p.refresh()
	return nil
}

// Release stops driving an input pin. It then floats or follows its pull-up.
func (p *Port) Release(bit uint8) error {
	if bit >= PinsPerPort {
		return fmt.Errorf("%w: %s bit %d", ErrPin, p.Name(), bit)
	}
	p.mu.Lock()
	p.driven &^= 1 << bit
	p.mu.Unlock()
	p.refresh()
	return nil
}

// refresh recomputes PIN from DDR, PORT and the external levels, then
// reports the pins that changed to the external interrupt unit.
func (p *Port) refresh() {
	ddr := p.mcu.Mem.Read(p.ddr)
	latch := p.mcu.Mem.Read(p.port)
	p.mu.Lock()
	in := p.ext&p.driven | latch&^p.driven
	p.mu.Unlock()
	v := latch&ddr | in&^ddr

	var old byte
	p.mcu.Mem.store(p.pin, func(o byte) byte {
		old = o
		return v
	})

	if changed := old ^ v; changed != 0 {
		for bit := uint8(0); bit < PinsPerPort; bit++ {
			if changed&(1<<bit) != 0 {
				p.mcu.EXTI.edge(p, bit, gpio.Level(v&(1<<bit) != 0))
			}
		}
	}
}

// PinConfig is the static configuration of one pin.
type PinConfig struct {
	Port      *Port
	Direction Direction
	Bit       uint8
	Default   gpio.Level
}

// Init applies the direction then writes the default level: the output level
// for an output, the pull-up for an input.
func (c *PinConfig) Init() (*Pin, error) {
	if c == nil {
		return nil, errors.New("atmega32: nil pin config")
	}
	p, err := c.Port.Pin(c.Bit)
	if err != nil {
		return nil, err
	}
	if err = p.SetDirection(c.Direction); err != nil {
		return nil, err
	}
	return p, p.Write(c.Default)
}

// Pin is one bit of a Port. It implements gpio.PinIO.
type Pin struct {
	port *Port
	bit  uint8
}

// Port returns the port the pin belongs to.
func (p *Pin) Port() *Port {
	return p.port
}

// Bit returns the bit position of the pin in its port.
func (p *Pin) Bit() uint8 {
	return p.bit
}

func (p *Pin) String() string {
	return p.Name()
}

// Name returns the pin name, e.g. "PA0".
func (p *Pin) Name() string {
	return "P" + string(p.port.letter) + strconv.Itoa(int(p.bit))
}

// Number is unique across the ports: PA0 is 0, PD7 is 31.
func (p *Pin) Number() int {
	return p.port.index*PinsPerPort + int(p.bit)
}

func (p *Pin) Function() string {
	return string(p.Func())
}

// Halt sets the pin as a floating input.
func (p *Pin) Halt() error {
	return p.In(gpio.Float, gpio.NoEdge)
}

// SetDirection writes the DDR bit of the pin.
func (p *Pin) SetDirection(d Direction) error {
	switch d {
	case Output:
		p.port.mcu.Mem.Set(p.port.ddr, p.bit)
	case Input:
		p.port.mcu.Mem.Clear(p.port.ddr, p.bit)
	default:
		return fmt.Errorf("%w: %d", ErrDirection, uint8(d))
	}
	return nil
}

// Direction returns the DDR bit of the pin.
func (p *Pin) Direction() Direction {
	if p.port.mcu.Mem.Bit(p.port.ddr, p.bit) {
		return Output
	}
	return Input
}

// Write sets the output latch bit without changing the direction. On an
// input it enables or disables the pull-up.
func (p *Pin) Write(l gpio.Level) error {
	if l {
		p.port.mcu.Mem.Set(p.port.port, p.bit)
	} else {
		p.port.mcu.Mem.Clear(p.port.port, p.bit)
	}
	return nil
}

// Toggle inverts the output latch bit.
func (p *Pin) Toggle() error {
	p.port.mcu.Mem.Toggle(p.port.port, p.bit)
	return nil
}

// In implements gpio.PinIn. The ATmega32 has pull-ups only. Edge detection
// is done by the EXTI unit, on INT0, INT1 and INT2.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return fmt.Errorf("atmega32: %s: edge detection goes through EXTI", p)
	}
	switch pull {
	case gpio.PullDown:
		return fmt.Errorf("atmega32: %s: PullDown is not supported", p)
	case gpio.PullUp:
		if err := p.Write(gpio.High); err != nil {
			return err
		}
	case gpio.Float:
		if err := p.Write(gpio.Low); err != nil {
			return err
		}
	case gpio.PullNoChange:
	}
	return p.SetDirection(Input)
}

// Read implements gpio.PinIn. It samples the PIN register.
func (p *Pin) Read() gpio.Level {
	return gpio.Level(p.port.mcu.Mem.Bit(p.port.pin, p.bit))
}

func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

func (p *Pin) Pull() gpio.Pull {
	if p.Direction() == Input && p.port.mcu.Mem.Bit(p.port.port, p.bit) {
		return gpio.PullUp
	}
	return gpio.Float
}

func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.Float
}

// Out implements gpio.PinOut. It sets the pin as an output if needed.
func (p *Pin) Out(l gpio.Level) error {
	if err := p.Write(l); err != nil {
		return err
	}
	if p.Direction() != Output {
		return p.SetDirection(Output)
	}
	return nil
}

func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("atmega32: PWM is not supported")
}

func (p *Pin) Func() pin.Func {
	if p.Direction() == Output {
		return gpio.OUT
	}
	return gpio.IN
}

func (p *Pin) SupportedFuncs() []pin.Func {
	return supportedFuncs[:]
}

func (p *Pin) SetFunc(f pin.Func) error {
	switch f {
	case gpio.IN:
		return p.SetDirection(Input)
	case gpio.OUT:
		return p.SetDirection(Output)
	default:
		return errors.New("atmega32: Function not supported: " + string(f))
	}
}

var supportedFuncs = [...]pin.Func{gpio.IN, gpio.OUT}

var _ gpio.PinIO = &Pin{}
var _ pin.PinFunc = &Pin{}
