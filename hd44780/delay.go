// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import "time"

// Delayer blocks the caller for at least d.
//
// The driver never reads the busy flag, so every timing window of the
// controller is covered by a Delay call.
type Delayer interface {
	Delay(d time.Duration)
}

// Spin is a Delayer that busy-waits for windows shorter than a millisecond
// and sleeps for longer ones.
type Spin struct{}

const sleepThreshold = time.Millisecond

// Delay implements Delayer.
func (Spin) Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	if d >= sleepThreshold {
		time.Sleep(d)
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

// DelayFunc adapts an ordinary function to the Delayer interface.
type DelayFunc func(d time.Duration)

// Delay implements Delayer.
func (f DelayFunc) Delay(d time.Duration) {
	f(d)
}

var _ Delayer = Spin{}
var _ Delayer = DelayFunc(nil)
