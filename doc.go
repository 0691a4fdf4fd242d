// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package avrhal is a container for drivers of an ATmega32 board: an
// HD44780 character LCD, LEDs, push buttons, a 7-segment digit and a 4x4
// keypad, on top of an emulated ATmega32 register file providing GPIO ports,
// the ADC and the external interrupts.
//
// The drivers use periph.io/x/conn/v3 pins, so they run unchanged on host
// GPIO pins as well as on the emulated ports.
package avrhal
