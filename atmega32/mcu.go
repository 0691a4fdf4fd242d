// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package atmega32 models the ATmega32 peripherals used by the drivers of
// this module: the four GPIO ports, the ADC, the external interrupt unit and
// the interrupt vector table.
//
// Each peripheral works on a typed register map owned by an MCU, with the
// same register addresses and bit layout as the silicon. The register file
// is emulated in memory and the side effects the hardware has on it, like
// conversion results, pin levels and interrupt flags, are reproduced. Pins
// implement gpio.PinIO, so every driver written against periph.io/x/conn runs
// unchanged on top of them.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/doc2503.pdf
package atmega32

import (
	"errors"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Opts holds the options of New.
type Opts struct {
	// Logger defaults to logrus.StandardLogger().
	Logger *logrus.Logger
}

// DefaultOpts is used when New is given nil.
var DefaultOpts = Opts{}

// MCU is one microcontroller. It owns the register file; peripherals reach
// it only through their MCU.
type MCU struct {
	Mem     *Memory
	PortA   *Port
	PortB   *Port
	PortC   *Port
	PortD   *Port
	ADC     *ADC
	EXTI    *EXTI
	Vectors *Vectors

	log        *logrus.Entry
	registered []string
}

// New returns an MCU in its reset state: every pin a floating input and
// global interrupts disabled.
func New(opts *Opts) *MCU {
	if opts == nil {
		opts = &DefaultOpts
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := &MCU{Mem: &Memory{}, log: logger.WithField("dev", "atmega32")}
	m.Vectors = &Vectors{mem: m.Mem}
	m.EXTI = newEXTI(m)
	m.PortA = newPort(m, 'A', 0, PINA)
	m.PortB = newPort(m, 'B', 1, PINB)
	m.PortC = newPort(m, 'C', 2, PINC)
	m.PortD = newPort(m, 'D', 3, PIND)
	m.ADC = newADC(m)
	return m
}

func (m *MCU) String() string {
	return "ATmega32"
}

// Ports returns ports A to D.
func (m *MCU) Ports() []*Port {
	return []*Port{m.PortA, m.PortB, m.PortC, m.PortD}
}

// EnableInterrupts sets the global interrupt flag, like sei.
func (m *MCU) EnableInterrupts() {
	m.Mem.Set(SREG, bitI)
}

// DisableInterrupts clears the global interrupt flag, like cli.
func (m *MCU) DisableInterrupts() {
	m.Mem.Clear(SREG, bitI)
}

// InterruptsEnabled reports the global interrupt flag.
func (m *MCU) InterruptsEnabled() bool {
	return m.Mem.Bit(SREG, bitI)
}

// RegisterPins registers the 32 pins in gpioreg under their names, PA0 to
// PD7, so they can be looked up with gpioreg.ByName. Only one MCU of a
// process can register its pins.
func (m *MCU) RegisterPins() error {
	for _, port := range m.Ports() {
		for _, p := range port.pins {
			if err := gpioreg.Register(p); err != nil {
				return errors.Join(err, m.Close())
			}
			m.registered = append(m.registered, p.Name())
		}
	}
	return nil
}

// Close removes the registrations made by RegisterPins.
func (m *MCU) Close() error {
	var errs []error
	for _, name := range m.registered {
		errs = append(errs, gpioreg.Unregister(name))
	}
	m.registered = nil
	return errors.Join(errs...)
}
