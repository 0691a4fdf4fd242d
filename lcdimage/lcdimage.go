// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdimage renders an emulated character LCD to an image, e.g. to
// save a PNG snapshot of what the panel would show.
//
// Characters are drawn with a font. CGRAM characters 0 to 7 are drawn dot by
// dot from their 5x8 patterns.
package lcdimage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Panel is the visible state of a character LCD, as exposed by
// hd44780test.Controller.
type Panel interface {
	Lines(rows, cols int) ([]string, error)
	DisplayOn() (on, cursor, blink bool)
	Glyph(slot int) [8]byte
}

const (
	dotsX = 5
	dotsY = 8
)

// Opts represents the options available for the renderer.
type Opts struct {
	Rows, Cols int
	// Dot is the size in pixels of one character dot. Cells are 5x8 dots and
	// one dot apart.
	Dot int
	// Margin is the bezel width in pixels.
	Margin int
	Bezel  color.Color
	// Lit and Unlit are the cell background with the backlight on and off.
	Lit, Unlit color.Color
	Ink        color.Color
	// Face defaults to Go Regular sized to the cell height.
	Face font.Face

	_ struct{}
}

// DefaultOpts is a 16x2 yellow green panel.
var DefaultOpts = Opts{
	Rows:   2,
	Cols:   16,
	Dot:    4,
	Margin: 16,
	Bezel:  color.NRGBA{0x20, 0x20, 0x20, 0xFF},
	Lit:    color.NRGBA{0x9A, 0xC8, 0x3C, 0xFF},
	Unlit:  color.NRGBA{0x50, 0x60, 0x30, 0xFF},
	Ink:    color.NRGBA{0x10, 0x20, 0x10, 0xFF},
}

// Renderer draws a Panel.
type Renderer struct {
	opts Opts
	face font.Face
}

// New returns a Renderer. A nil opts uses DefaultOpts.
func New(opts *Opts) (*Renderer, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Rows < 1 || opts.Cols < 1 || opts.Dot < 1 || opts.Margin < 0 {
		return nil, errors.New("lcdimage: invalid geometry")
	}
	if opts.Bezel == nil || opts.Lit == nil || opts.Unlit == nil || opts.Ink == nil {
		return nil, errors.New("lcdimage: missing color")
	}
	r := &Renderer{opts: *opts, face: opts.Face}
	if r.face == nil {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("lcdimage: %w", err)
		}
		r.face = truetype.NewFace(f, &truetype.Options{Size: float64(dotsY*opts.Dot) * 0.8})
	}
	return r, nil
}

// Bounds returns the size of the rendered images.
func (r *Renderer) Bounds() image.Rectangle {
	o := &r.opts
	return image.Rect(0, 0,
		2*o.Margin+o.Cols*(dotsX+1)*o.Dot-o.Dot,
		2*o.Margin+o.Rows*(dotsY+1)*o.Dot-o.Dot)
}

// Cell returns the pixel rectangle of the character at row and col, 0 based.
func (r *Renderer) Cell(row, col int) image.Rectangle {
	o := &r.opts
	x := o.Margin + col*(dotsX+1)*o.Dot
	y := o.Margin + row*(dotsY+1)*o.Dot
	return image.Rect(x, y, x+dotsX*o.Dot, y+dotsY*o.Dot)
}

// Render draws the panel, with the backlight on when lit is true.
func (r *Renderer) Render(p Panel, lit bool) (image.Image, error) {
	dc, err := r.draw(p, lit)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// EncodePNG writes the rendered panel as a PNG to w.
func (r *Renderer) EncodePNG(w io.Writer, p Panel, lit bool) error {
	dc, err := r.draw(p, lit)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// SavePNG writes the rendered panel as a PNG file.
func (r *Renderer) SavePNG(path string, p Panel, lit bool) error {
	dc, err := r.draw(p, lit)
	if err != nil {
		return err
	}
	return dc.SavePNG(path)
}

func (r *Renderer) draw(p Panel, lit bool) (*gg.Context, error) {
	o := &r.opts
	lines, err := p.Lines(o.Rows, o.Cols)
	if err != nil {
		return nil, fmt.Errorf("lcdimage: %w", err)
	}
	on, _, _ := p.DisplayOn()
	b := r.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetColor(o.Bezel)
	dc.Clear()
	bg := o.Unlit
	if lit {
		bg = o.Lit
	}
	dc.SetFontFace(r.face)
	for row, l := range lines {
		for col := 0; col < len(l) && col < o.Cols; col++ {
			cell := r.Cell(row, col)
			dc.SetColor(bg)
			dc.DrawRectangle(float64(cell.Min.X), float64(cell.Min.Y), float64(cell.Dx()), float64(cell.Dy()))
			dc.Fill()
			if !on {
				continue
			}
			dc.SetColor(o.Ink)
			switch c := l[col]; {
			case c < 8:
				r.glyph(dc, cell, p.Glyph(int(c)))
			case c > ' ' && c <= '~':
				dc.DrawStringAnchored(string(rune(c)), float64(cell.Min.X+cell.Max.X)/2, float64(cell.Min.Y+cell.Max.Y)/2, 0.5, 0.5)
			}
		}
	}
	return dc, nil
}

func (r *Renderer) glyph(dc *gg.Context, cell image.Rectangle, g [8]byte) {
	d := float64(r.opts.Dot)
	for y, bits := range g {
		for x := 0; x < dotsX; x++ {
			if bits>>uint(dotsX-1-x)&1 == 1 {
				dc.DrawRectangle(float64(cell.Min.X)+float64(x)*d, float64(cell.Min.Y)+float64(y)*d, d, d)
			}
		}
	}
	dc.Fill()
}
