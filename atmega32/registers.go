// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package atmega32

import (
	"fmt"
	"sync"
)

// Register is the data space address of an I/O register.
type Register uint8

// Ports. Each port is three consecutive registers: PIN, DDR, PORT.
const (
	PIND  Register = 0x30
	DDRD  Register = 0x31
	PORTD Register = 0x32
	PINC  Register = 0x33
	DDRC  Register = 0x34
	PORTC Register = 0x35
	PINB  Register = 0x36
	DDRB  Register = 0x37
	PORTB Register = 0x38
	PINA  Register = 0x39
	DDRA  Register = 0x3A
	PORTA Register = 0x3B
)

// Analog to digital converter.
const (
	ADCL   Register = 0x24
	ADCH   Register = 0x25
	ADCSRA Register = 0x26
	ADMUX  Register = 0x27
	SFIOR  Register = 0x50
)

// External interrupts and status.
const (
	MCUCSR Register = 0x54
	MCUCR  Register = 0x55
	GIFR   Register = 0x5A
	GICR   Register = 0x5B
	SREG   Register = 0x5F
)

// Bit positions.
const (
	// SREG
	bitI = 7

	// ADCSRA
	bitADEN = 7
	bitADSC = 6
	bitADIF = 4
	bitADIE = 3

	// ADMUX
	bitADLAR = 5

	// MCUCSR
	bitISC2 = 6
)

const memorySize = 0x60

var registerNames = map[Register]string{
	PIND: "PIND", DDRD: "DDRD", PORTD: "PORTD",
	PINC: "PINC", DDRC: "DDRC", PORTC: "PORTC",
	PINB: "PINB", DDRB: "DDRB", PORTB: "PORTB",
	PINA: "PINA", DDRA: "DDRA", PORTA: "PORTA",
	ADCL: "ADCL", ADCH: "ADCH", ADCSRA: "ADCSRA", ADMUX: "ADMUX", SFIOR: "SFIOR",
	MCUCSR: "MCUCSR", MCUCR: "MCUCR", GIFR: "GIFR", GICR: "GICR", SREG: "SREG",
}

func (r Register) String() string {
	if n, ok := registerNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Register(%#02x)", uint8(r))
}

// Memory is the I/O register file of one MCU. Every access takes the lock,
// so a register is never cached by a caller.
//
// A write hook runs after the lock is released and may access Memory again.
type Memory struct {
	mu    sync.Mutex
	regs  [memorySize]byte
	hooks map[Register]func(old, v byte)
}

// Read returns the value of r.
func (m *Memory) Read(r Register) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[r]
}

// Write stores v in r.
func (m *Memory) Write(r Register, v byte) {
	m.update(r, func(byte) byte { return v })
}

// Set sets bit of r.
func (m *Memory) Set(r Register, bit uint8) {
	m.update(r, func(old byte) byte { return old | 1<<bit })
}

// Clear clears bit of r.
func (m *Memory) Clear(r Register, bit uint8) {
	m.update(r, func(old byte) byte { return old &^ (1 << bit) })
}

// Toggle inverts bit of r.
func (m *Memory) Toggle(r Register, bit uint8) {
	m.update(r, func(old byte) byte { return old ^ 1<<bit })
}

// Bit reports whether bit of r is set.
func (m *Memory) Bit(r Register, bit uint8) bool {
	return m.Read(r)&(1<<bit) != 0
}

// Modify replaces the bits of r selected by mask with those of v.
func (m *Memory) Modify(r Register, mask, v byte) {
	m.update(r, func(old byte) byte { return old&^mask | v&mask })
}

func (m *Memory) update(r Register, f func(old byte) byte) {
	m.mu.Lock()
	old := m.regs[r]
	v := f(old)
	m.regs[r] = v
	hook := m.hooks[r]
	m.mu.Unlock()
	if hook != nil {
		hook(old, v)
	}
}

// store is update without the hook, for changes made by the hardware itself.
func (m *Memory) store(r Register, f func(old byte) byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[r] = f(m.regs[r])
	return m.regs[r]
}

func (m *Memory) onWrite(r Register, hook func(old, v byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hooks == nil {
		m.hooks = map[Register]func(old, v byte){}
	}
	m.hooks[r] = hook
}
