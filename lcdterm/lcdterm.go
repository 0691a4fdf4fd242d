// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdterm renders an emulated character LCD to a terminal using ANSI
// color codes.
//
// Useful to try a display layout before the panel is wired.
package lcdterm

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

// Panel is the visible state of a character LCD, as exposed by
// hd44780test.Controller.
type Panel interface {
	Lines(rows, cols int) ([]string, error)
	DisplayOn() (on, cursor, blink bool)
}

// Opts represents the options available for the renderer.
type Opts struct {
	Rows, Cols int
	// W defaults to stdout. Color codes are stripped when stdout is not a
	// terminal.
	W       io.Writer
	Palette *ansi256.Palette
	// Lit and Unlit are the bezel colors with the backlight on and off.
	Lit, Unlit color.NRGBA
	// Glyph is printed in place of CGRAM characters 0 to 7.
	Glyph rune

	_ struct{}
}

// DefaultOpts is a 16x2 green backlit panel.
var DefaultOpts = Opts{
	Rows:  2,
	Cols:  16,
	Lit:   color.NRGBA{0x40, 0xC0, 0x40, 0xFF},
	Unlit: color.NRGBA{0x20, 0x30, 0x20, 0xFF},
	Glyph: '#',
}

// Dev draws a Panel each time Refresh is called.
type Dev struct {
	w       io.Writer
	panel   Panel
	opts    Opts
	palette ansi256.Palette
	lit     bool
	drawn   bool
	buf     bytes.Buffer
}

// New returns a renderer for panel. A nil opts uses DefaultOpts.
func New(panel Panel, opts *Opts) (*Dev, error) {
	if panel == nil {
		return nil, errors.New("lcdterm: nil panel")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Rows < 1 || opts.Cols < 1 {
		return nil, fmt.Errorf("lcdterm: invalid geometry %dx%d", opts.Cols, opts.Rows)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d := &Dev{w: opts.W, panel: panel, opts: *opts, palette: *p, lit: true}
	if d.w == nil {
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			d.w = colorable.NewColorableStdout()
		} else {
			d.w = colorable.NewNonColorable(os.Stdout)
		}
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("LCDTerm{%dx%d}", d.opts.Cols, d.opts.Rows)
}

// Backlight implements display.DisplayBacklight. Any intensity above zero
// lights the bezel.
func (d *Dev) Backlight(intensity display.Intensity) error {
	d.lit = intensity > 0
	return d.Refresh()
}

// Refresh redraws the panel over the previous frame.
func (d *Dev) Refresh() error {
	lines, err := d.panel.Lines(d.opts.Rows, d.opts.Cols)
	if err != nil {
		return fmt.Errorf("lcdterm: %w", err)
	}
	on, _, _ := d.panel.DisplayOn()
	bezel := d.opts.Unlit
	if d.lit {
		bezel = d.opts.Lit
	}
	edge := d.palette.Block(bezel)

	d.buf.Reset()
	if d.drawn {
		fmt.Fprintf(&d.buf, "\033[%dA", d.opts.Rows+2)
	}
	d.border(edge)
	for _, l := range lines {
		_, _ = d.buf.WriteString("\r\033[0m")
		_, _ = d.buf.WriteString(edge)
		_, _ = d.buf.WriteString("\033[0m")
		for i := 0; i < len(l); i++ {
			switch c := l[i]; {
			case !on:
				_ = d.buf.WriteByte(' ')
			case c < 8:
				_, _ = d.buf.WriteRune(d.opts.Glyph)
			case c < ' ' || c > '~':
				_ = d.buf.WriteByte(' ')
			default:
				_ = d.buf.WriteByte(c)
			}
		}
		_, _ = d.buf.WriteString(edge)
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	d.border(edge)
	_, err = d.buf.WriteTo(d.w)
	d.drawn = true
	return err
}

func (d *Dev) border(edge string) {
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < d.opts.Cols+2; i++ {
		_, _ = d.buf.WriteString(edge)
	}
	_, _ = d.buf.WriteString("\033[0m\n")
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m"))
	return err
}

var _ conn.Resource = &Dev{}
var _ display.DisplayBacklight = &Dev{}
