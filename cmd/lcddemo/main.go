// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lcddemo shows a string, an ADC reading, a custom glyph and a display shift
// on a 16x2 character LCD wired in 4 bit mode.
//
// By default the panel and the ATmega32 are emulated and the panel is drawn
// in the terminal. With -hw the panel is driven through the host GPIO pins.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/GermanBionicSystems/avrhal/atmega32"
	"github.com/GermanBionicSystems/avrhal/hd44780"
	"github.com/GermanBionicSystems/avrhal/hd44780/hd44780test"
	"github.com/GermanBionicSystems/avrhal/lcdimage"
	"github.com/GermanBionicSystems/avrhal/lcdterm"
	"github.com/GermanBionicSystems/avrhal/led"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// heart is stored in CGRAM slot 0.
var heart = [8]byte{0x00, 0x0A, 0x1F, 0x1F, 0x0E, 0x04, 0x00, 0x00}

// wire mirrors every level written to an MCU pin onto the emulated panel.
type wire struct {
	gpio.PinIO
	lcd gpio.PinOut
}

func (w *wire) Out(l gpio.Level) error {
	if err := w.PinIO.Out(l); err != nil {
		return err
	}
	return w.lcd.Out(l)
}

type pins struct {
	rs, rw, e gpio.PinIO
	data      []gpio.PinIO
	backlight gpio.PinIO
}

func lookup(rs, rw, e, data, bl string) (*pins, error) {
	p := &pins{}
	var err error
	byName := func(name string) gpio.PinIO {
		q := gpioreg.ByName(name)
		if q == nil && err == nil {
			err = fmt.Errorf("no pin %q", name)
		}
		return q
	}
	p.rs, p.rw, p.e = byName(rs), byName(rw), byName(e)
	for _, n := range strings.Split(data, ",") {
		p.data = append(p.data, byName(strings.TrimSpace(n)))
	}
	if bl != "" {
		p.backlight = byName(bl)
	}
	if err == nil && len(p.data) != 4 {
		err = fmt.Errorf("-d needs 4 pins, got %d", len(p.data))
	}
	return p, err
}

type demo struct {
	lcd *hd44780.HD44780
	adc *atmega32.ADC
	log *logrus.Entry
	// refresh is called after each frame.
	refresh func() error
}

// frame draws frame i of n.
func (d *demo) frame(ctx context.Context, i, n int) error {
	dev := d.lcd.Dev()
	if err := dev.Clear(); err != nil {
		return err
	}
	if err := dev.SendStringAt("ADC0:", hd44780.FirstRow, 1); err != nil {
		return err
	}
	if d.adc != nil {
		code := uint16(i * (atmega32.Resolution - 1) / max(n-1, 1))
		if err := d.adc.SetInput(0, code); err != nil {
			return err
		}
		// The conversion complete handler prints the result.
		if _, err := d.adc.StartConversion(ctx, 0, false); err != nil {
			return err
		}
	} else if err := dev.SendNumberAt(int32(i), hd44780.FirstRow, 7); err != nil {
		return err
	}
	if err := dev.SendCharAt(0, hd44780.SecondRow, 1); err != nil {
		return err
	}
	if err := dev.SendString(" periph"); err != nil {
		return err
	}
	if i >= n/2 {
		if err := dev.ShiftDisplay(hd44780.ShiftRight, i-n/2); err != nil {
			return err
		}
	}
	if d.refresh != nil {
		return d.refresh()
	}
	return nil
}

func (d *demo) run(ctx context.Context, n int, interval time.Duration, press func(i int)) error {
	if err := d.lcd.Dev().SaveSpecialCharacter(0, heart); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if press != nil {
			press(i)
		}
		if err := d.frame(ctx, i, n); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		d.log.WithField("frame", i).Debug("drawn")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}

func emulator(ctx context.Context, logger *logrus.Logger, rs, rw, e, data, bl, png string, n int, interval time.Duration) error {
	mcu := atmega32.New(&atmega32.Opts{Logger: logger})
	if err := mcu.RegisterPins(); err != nil {
		return err
	}
	defer mcu.Close()
	p, err := lookup(rs, rw, e, data, bl)
	if err != nil {
		return err
	}
	ctrl, err := hd44780test.New(4)
	if err != nil {
		return err
	}
	cfg := hd44780.DefaultConfig
	cfg.RS = &wire{p.rs, ctrl.RS}
	cfg.RW = &wire{p.rw, ctrl.RW}
	cfg.E = &wire{p.e, ctrl.E}
	for i, d := range ctrl.DataPins() {
		cfg.Data = append(cfg.Data, &wire{p.data[i], d})
	}
	cfg.Delayer = ctrl
	cfg.Logger = logger

	term, err := lcdterm.New(ctrl, nil)
	if err != nil {
		return err
	}
	defer term.Halt()
	var light *led.LED
	var backlight display.DisplayBacklight
	if p.backlight != nil {
		if light, err = led.New(p.backlight, led.ActiveHigh); err != nil {
			return err
		}
		if err = light.On(); err != nil {
			return err
		}
		backlight = light
	}
	lcd, err := hd44780.NewHD44780(&cfg, backlight, 2, 16)
	if err != nil {
		return err
	}
	d := &demo{lcd: lcd, adc: mcu.ADC, log: logger.WithField("dev", "lcddemo"), refresh: term.Refresh}

	var handlerErr error
	err = mcu.ADC.Init(&atmega32.ADCConfig{
		Reference: atmega32.ReferenceAVCC,
		Prescaler: atmega32.Prescale64,
		Interrupt: true,
		Callback: func() {
			code := mcu.ADC.Read()
			handlerErr = errors.Join(handlerErr,
				lcd.Dev().SendNumberAt(int32(atmega32.Millivolts(code)), hd44780.FirstRow, 7),
				lcd.Dev().SendString("mV"))
		},
	})
	if err != nil {
		return err
	}

	// A push button on INT0 toggles the backlight.
	if _, err = (&atmega32.PinConfig{Port: mcu.PortD, Direction: atmega32.Input, Bit: 2, Default: gpio.High}).Init(); err != nil {
		return err
	}
	err = mcu.EXTI.Init(&atmega32.EXTIConfig{
		Line:    atmega32.INT0,
		Trigger: atmega32.FallingEdge,
		Callback: func() {
			if light == nil {
				return
			}
			err := light.Toggle()
			var level display.Intensity
			if light.IsOn() {
				level = 1
			}
			handlerErr = errors.Join(handlerErr, err, term.Backlight(level))
		},
	})
	if err != nil {
		return err
	}
	press := func(i int) {
		if i == n-2 {
			_ = mcu.PortD.Drive(2, gpio.Low)
			_ = mcu.PortD.Drive(2, gpio.High)
		}
	}
	if err = d.run(ctx, n, interval, press); err != nil {
		return err
	}
	if handlerErr != nil {
		return handlerErr
	}
	if png != "" {
		r, err := lcdimage.New(nil)
		if err != nil {
			return err
		}
		return r.SavePNG(png, ctrl, light == nil || light.IsOn())
	}
	return nil
}

func hardware(ctx context.Context, logger *logrus.Logger, rs, rw, e, data, bl string, n int, interval time.Duration) error {
	if _, err := host.Init(); err != nil {
		return err
	}
	p, err := lookup(rs, rw, e, data, bl)
	if err != nil {
		return err
	}
	cfg := hd44780.DefaultConfig
	cfg.RS, cfg.RW, cfg.E = p.rs, p.rw, p.e
	for _, q := range p.data {
		cfg.Data = append(cfg.Data, q)
	}
	cfg.Logger = logger
	var backlight display.DisplayBacklight
	if p.backlight != nil {
		if backlight, err = led.New(p.backlight, led.ActiveHigh); err != nil {
			return err
		}
	}
	lcd, err := hd44780.NewHD44780(&cfg, backlight, 2, 16)
	if err != nil {
		return err
	}
	defer lcd.Halt()
	if err = lcd.Backlight(1); err != nil {
		return err
	}
	d := &demo{lcd: lcd, log: logger.WithField("dev", "lcddemo")}
	return d.run(ctx, n, interval, nil)
}

func mainImpl() error {
	hw := flag.Bool("hw", false, "drive a real panel through the host GPIO pins")
	rs := flag.String("rs", "PD3", "RS pin")
	rw := flag.String("rw", "PD4", "RW pin")
	e := flag.String("e", "PD5", "E pin")
	data := flag.String("d", "PD6,PD7,PB7,PB6", "D4 to D7 pins")
	bl := flag.String("bl", "PC0", "backlight pin, empty if not switchable")
	png := flag.String("png", "", "save the last emulated frame as a PNG")
	n := flag.Int("n", 8, "number of frames")
	interval := flag.Duration("interval", 750*time.Millisecond, "delay between frames")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if *n < 1 {
		return errors.New("-n must be at least 1")
	}

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *hw {
		if *png != "" {
			return errors.New("-png needs the emulator")
		}
		return hardware(ctx, logger, *rs, *rw, *e, *data, *bl, *n, *interval)
	}
	return emulator(ctx, logger, *rs, *rw, *e, *data, *bl, *png, *n, *interval)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "lcddemo: %s.\n", err)
		os.Exit(1)
	}
}
