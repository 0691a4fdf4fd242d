// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package atmega32

import (
	"errors"
	"fmt"
	"sync"
)

// Vector is an interrupt vector number.
type Vector uint8

const (
	VectorINT0 Vector = 1
	VectorINT1 Vector = 2
	VectorINT2 Vector = 3
	VectorADC  Vector = 16
)

// vectorCount is the size of the ATmega32 vector table, reset included.
const vectorCount = 21

var ErrVector = errors.New("atmega32: invalid interrupt vector")

// Handler is an interrupt service routine.
type Handler func()

// Vectors is the interrupt vector table of one MCU. A vector dispatches only
// while the global interrupt flag in SREG is set.
type Vectors struct {
	mem      *Memory
	mu       sync.Mutex
	handlers [vectorCount]Handler
}

// Register installs fn as the handler of v, replacing any previous one.
func (t *Vectors) Register(v Vector, fn Handler) error {
	if v == 0 || int(v) >= vectorCount {
		return fmt.Errorf("%w: %d", ErrVector, v)
	}
	if fn == nil {
		return fmt.Errorf("atmega32: nil handler for vector %d", v)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[v] = fn
	return nil
}

// Clear removes the handler of v.
func (t *Vectors) Clear(v Vector) {
	if int(v) >= vectorCount {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[v] = nil
}

// Handler returns the handler of v, or nil.
func (t *Vectors) Handler(v Vector) Handler {
	if int(v) >= vectorCount {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handlers[v]
}

// Raise runs the handler of v on the calling goroutine. It reports whether a
// handler ran.
func (t *Vectors) Raise(v Vector) bool {
	if !t.mem.Bit(SREG, bitI) {
		return false
	}
	h := t.Handler(v)
	if h == nil {
		return false
	}
	h()
	return true
}
