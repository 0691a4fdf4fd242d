// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package atmega32

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Reference selects the ADC voltage reference, as the REFS bits of ADMUX.
type Reference byte

const (
	ReferenceAREF     Reference = 0x00
	ReferenceAVCC     Reference = 0x40
	ReferenceInternal Reference = 0xC0
)

// Adjust selects the alignment of the result in ADCH:ADCL.
type Adjust byte

const (
	AdjustRight Adjust = 0x00
	AdjustLeft  Adjust = 0x20
)

// Prescaler divides the CPU clock for the ADC, as the ADPS bits of ADCSRA.
type Prescaler byte

const (
	Prescale2   Prescaler = 1
	Prescale4   Prescaler = 2
	Prescale8   Prescaler = 3
	Prescale16  Prescaler = 4
	Prescale32  Prescaler = 5
	Prescale64  Prescaler = 6
	Prescale128 Prescaler = 7
)

const (
	// Channels is the number of single ended ADC inputs, on PA0..PA7.
	Channels = 8
	// Resolution is the number of codes of a conversion.
	Resolution = 1024
	// VrefMillivolts is the reference assumed by Millivolts.
	VrefMillivolts = 5000
)

const (
	muxMask  = 0x1F
	adpsMask = 0x07
	maxCode  = Resolution - 1
)

var (
	ErrChannel      = errors.New("atmega32: ADC channel out of range")
	ErrADCDisabled  = errors.New("atmega32: ADC not enabled")
	// ErrADCInterrupt is returned when polling a conversion whose complete
	// flag would be consumed by the ADC interrupt handler.
	ErrADCInterrupt = errors.New("atmega32: ADC interrupt handler owns the conversion flag")
)

// ADCConfig is the configuration applied by ADC.Init.
type ADCConfig struct {
	Reference Reference
	Adjust    Adjust
	Prescaler Prescaler
	// Interrupt enables the conversion complete interrupt. Callback then runs
	// on every completed conversion.
	Interrupt bool
	Callback  Handler
}

// ADC is the 10 bit successive approximation converter.
//
// Conversions complete as soon as they start. The value converted on each
// channel is set with SetInput.
type ADC struct {
	mcu    *MCU
	mu     sync.Mutex
	inputs [Channels]uint16
}

func newADC(mcu *MCU) *ADC {
	a := &ADC{mcu: mcu}
	mcu.Mem.onWrite(ADCSRA, a.onControl)
	return a
}

// Init disables the converter, programs ADMUX and ADCSRA from cfg and enables
// it again. With cfg.Interrupt set, the callback is registered and global
// interrupts are enabled.
func (a *ADC) Init(cfg *ADCConfig) error {
	if cfg == nil {
		return errors.New("atmega32: nil ADC config")
	}
	switch cfg.Reference {
	case ReferenceAREF, ReferenceAVCC, ReferenceInternal:
	default:
		return fmt.Errorf("atmega32: invalid ADC reference %#02x", byte(cfg.Reference))
	}
	if cfg.Adjust != AdjustLeft && cfg.Adjust != AdjustRight {
		return fmt.Errorf("atmega32: invalid ADC adjust %#02x", byte(cfg.Adjust))
	}
	if cfg.Prescaler&^adpsMask != 0 {
		return fmt.Errorf("atmega32: invalid ADC prescaler %d", cfg.Prescaler)
	}
	mem := a.mcu.Mem
	mem.Clear(ADCSRA, bitADEN)
	mem.Write(ADMUX, byte(cfg.Reference)|byte(cfg.Adjust))
	control := byte(cfg.Prescaler)
	if cfg.Interrupt {
		control |= 1 << bitADIE
	}
	mem.Write(ADCSRA, control)
	if cfg.Interrupt {
		if cfg.Callback != nil {
			if err := a.mcu.Vectors.Register(VectorADC, cfg.Callback); err != nil {
				return err
			}
		}
		a.mcu.EnableInterrupts()
	}
	mem.Set(ADCSRA, bitADEN)
	a.mcu.log.WithField("unit", "adc").Debugf("ADMUX=%#02x ADCSRA=%#02x", mem.Read(ADMUX), mem.Read(ADCSRA))
	return nil
}

// SetCallback replaces the conversion complete handler.
func (a *ADC) SetCallback(fn Handler) error {
	return a.mcu.Vectors.Register(VectorADC, fn)
}

// SetInput sets the code the converter produces for channel, clamped to 10
// bits.
func (a *ADC) SetInput(channel uint8, code uint16) error {
	if channel >= Channels {
		return fmt.Errorf("%w: %d", ErrChannel, channel)
	}
	if code > maxCode {
		code = maxCode
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inputs[channel] = code
	return nil
}

// StartConversion selects channel and starts a conversion. With poll set, it
// waits for the conversion complete flag, clears it and returns the result.
// Otherwise it returns 0 and the result is read with Read, typically from
// the interrupt handler. Polling while an enabled ADC interrupt handler would
// consume the flag returns ErrADCInterrupt.
func (a *ADC) StartConversion(ctx context.Context, channel uint8, poll bool) (uint16, error) {
	if channel >= Channels {
		return 0, fmt.Errorf("%w: %d", ErrChannel, channel)
	}
	mem := a.mcu.Mem
	if !mem.Bit(ADCSRA, bitADEN) {
		return 0, ErrADCDisabled
	}
	if poll && mem.Bit(ADCSRA, bitADIE) && a.mcu.InterruptsEnabled() && a.mcu.Vectors.Handler(VectorADC) != nil {
		return 0, ErrADCInterrupt
	}
	mem.Modify(ADMUX, muxMask, channel)
	mem.Set(ADCSRA, bitADSC)
	if !poll {
		return 0, nil
	}
	for !mem.Bit(ADCSRA, bitADIF) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
			runtime.Gosched()
		}
	}
	// The flag clears by writing a one to it.
	mem.Set(ADCSRA, bitADIF)
	return a.Read(), nil
}

// Read returns the last conversion result as a 10 bit value, whatever the
// alignment in ADCH:ADCL.
func (a *ADC) Read() uint16 {
	// ADCL must be read first.
	low := uint16(a.mcu.Mem.Read(ADCL))
	high := uint16(a.mcu.Mem.Read(ADCH))
	v := high<<8 | low
	if a.mcu.Mem.Bit(ADMUX, bitADLAR) {
		return v >> 6
	}
	return v
}

// Millivolts converts a result to millivolts of a 5V reference.
func Millivolts(code uint16) uint32 {
	return uint32(code) * VrefMillivolts / Resolution
}

// onControl emulates the ADCSRA side effects: a one written to ADIF clears
// it, and setting ADSC while ADEN is set runs a conversion.
func (a *ADC) onControl(_, v byte) {
	mem := a.mcu.Mem
	if v&(1<<bitADIF) != 0 {
		mem.store(ADCSRA, func(r byte) byte { return r &^ (1 << bitADIF) })
	}
	if v&(1<<bitADSC) == 0 || v&(1<<bitADEN) == 0 {
		return
	}
	channel := mem.Read(ADMUX) & muxMask
	var code uint16
	a.mu.Lock()
	if channel < Channels {
		code = a.inputs[channel]
	}
	a.mu.Unlock()
	if mem.Bit(ADMUX, bitADLAR) {
		code <<= 6
	}
	mem.store(ADCL, func(byte) byte { return byte(code) })
	mem.store(ADCH, func(byte) byte { return byte(code >> 8) })
	control := mem.store(ADCSRA, func(r byte) byte { return r&^(1<<bitADSC) | 1<<bitADIF })
	if control&(1<<bitADIE) != 0 && a.mcu.Vectors.Raise(VectorADC) {
		// Executing the handler clears the flag.
		mem.store(ADCSRA, func(r byte) byte { return r &^ (1 << bitADIF) })
	}
}
