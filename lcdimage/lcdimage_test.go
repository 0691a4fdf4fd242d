// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdimage

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font/basicfont"
)

type fakePanel struct {
	lines  []string
	on     bool
	glyphs [8][8]byte
	err    error
}

func (p *fakePanel) Lines(rows, cols int) ([]string, error) {
	return p.lines, p.err
}

func (p *fakePanel) DisplayOn() (bool, bool, bool) {
	return p.on, false, false
}

func (p *fakePanel) Glyph(slot int) [8]byte {
	return p.glyphs[slot&7]
}

func same(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

// dot returns the center pixel of a character dot.
func dot(r *Renderer, row, col, x, y int) image.Point {
	c := r.Cell(row, col)
	d := r.opts.Dot
	return image.Pt(c.Min.X+x*d+d/2, c.Min.Y+y*d+d/2)
}

func getRenderer(t *testing.T) *Renderer {
	opts := DefaultOpts
	opts.Face = basicfont.Face7x13
	r, err := New(&opts)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestBounds(t *testing.T) {
	r := getRenderer(t)
	if b := r.Bounds(); b.Dx() != 412 || b.Dy() != 100 {
		t.Errorf("bounds %v", b)
	}
	if c := r.Cell(1, 15); c.Max.X != 412-16 || c.Max.Y != 100-16 {
		t.Errorf("last cell %v", c)
	}
}

func TestGlyph(t *testing.T) {
	r := getRenderer(t)
	p := &fakePanel{lines: []string{"\x03", " "}, on: true}
	p.glyphs[3] = [8]byte{0x10, 0, 0, 0, 0, 0, 0, 0x01}
	img, err := r.Render(p, true)
	if err != nil {
		t.Fatal(err)
	}
	ink := DefaultOpts.Ink
	lit := DefaultOpts.Lit
	for _, tc := range []struct {
		x, y int
		want color.Color
	}{
		{0, 0, ink},
		{1, 0, lit},
		{4, 7, ink},
		{0, 7, lit},
	} {
		pt := dot(r, 0, 0, tc.x, tc.y)
		if !same(img.At(pt.X, pt.Y), tc.want) {
			t.Errorf("dot %d,%d is %v", tc.x, tc.y, img.At(pt.X, pt.Y))
		}
	}
	if !same(img.At(0, 0), DefaultOpts.Bezel) {
		t.Error("bezel not drawn")
	}
}

func TestText(t *testing.T) {
	r := getRenderer(t)
	p := &fakePanel{lines: []string{"A ", "  "}, on: true}
	img, err := r.Render(p, true)
	if err != nil {
		t.Fatal(err)
	}
	inked := func(row, col int) bool {
		c := r.Cell(row, col)
		for y := c.Min.Y; y < c.Max.Y; y++ {
			for x := c.Min.X; x < c.Max.X; x++ {
				if !same(img.At(x, y), DefaultOpts.Lit) {
					return true
				}
			}
		}
		return false
	}
	if !inked(0, 0) {
		t.Error("A not drawn")
	}
	if inked(0, 1) || inked(1, 0) {
		t.Error("blank cell drawn")
	}
}

func TestDisplayOffAndUnlit(t *testing.T) {
	r := getRenderer(t)
	p := &fakePanel{lines: []string{"\x00", " "}}
	p.glyphs[0][0] = 0x1F
	img, err := r.Render(p, false)
	if err != nil {
		t.Fatal(err)
	}
	pt := dot(r, 0, 0, 0, 0)
	if !same(img.At(pt.X, pt.Y), DefaultOpts.Unlit) {
		t.Errorf("got %v", img.At(pt.X, pt.Y))
	}
}

func TestPNG(t *testing.T) {
	r := getRenderer(t)
	p := &fakePanel{lines: []string{"Hi", "!"}, on: true}
	var buf bytes.Buffer
	if err := r.EncodePNG(&buf, p, true); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != r.Bounds() {
		t.Errorf("decoded %v", img.Bounds())
	}

	path := filepath.Join(t.TempDir(), "lcd.png")
	if err = r.SavePNG(path, p, true); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("png not written: %v", err)
	}
}

func TestErrors(t *testing.T) {
	r := getRenderer(t)
	if _, err := r.Render(&fakePanel{err: errors.New("boom")}, true); err == nil || !strings.Contains(err.Error(), "lcdimage: boom") {
		t.Errorf("got %v", err)
	}
	if _, err := New(&Opts{Rows: 2, Cols: 16}); err == nil {
		t.Error("zero dot size accepted")
	}
	opts := DefaultOpts
	opts.Ink = nil
	if _, err := New(&opts); err == nil {
		t.Error("missing ink accepted")
	}
}

func TestDefaultFace(t *testing.T) {
	r, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.face == nil {
		t.Fatal("no face")
	}
}
