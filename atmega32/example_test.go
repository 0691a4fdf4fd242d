// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package atmega32_test

import (
	"context"
	"fmt"
	"log"

	"github.com/GermanBionicSystems/avrhal/atmega32"
	"periph.io/x/conn/v3/gpio"
)

func Example() {
	mcu := atmega32.New(nil)

	// A push button on INT0 (PD2) with the internal pull-up.
	button := atmega32.PinConfig{Port: mcu.PortD, Direction: atmega32.Input, Bit: 2, Default: gpio.High}
	if _, err := button.Init(); err != nil {
		log.Fatal(err)
	}
	presses := 0
	err := mcu.EXTI.Init(&atmega32.EXTIConfig{
		Line:     atmega32.INT0,
		Trigger:  atmega32.FallingEdge,
		Callback: func() { presses++ },
	})
	if err != nil {
		log.Fatal(err)
	}
	_ = mcu.PortD.Drive(2, gpio.Low)
	_ = mcu.PortD.Drive(2, gpio.High)

	// A potentiometer on ADC0.
	if err = mcu.ADC.Init(&atmega32.ADCConfig{Reference: atmega32.ReferenceAVCC, Prescaler: atmega32.Prescale128}); err != nil {
		log.Fatal(err)
	}
	_ = mcu.ADC.SetInput(0, 768)
	code, err := mcu.ADC.StartConversion(context.Background(), 0, true)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(presses, code, atmega32.Millivolts(code))
	// Output: 1 768 3750
}
