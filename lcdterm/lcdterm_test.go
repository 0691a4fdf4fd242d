// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdterm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/avrhal/hd44780"
	"github.com/GermanBionicSystems/avrhal/hd44780/hd44780test"
	"github.com/maruel/ansi256"
	"github.com/sirupsen/logrus"
)

type fakePanel struct {
	lines []string
	on    bool
	err   error
}

func (p *fakePanel) Lines(rows, cols int) ([]string, error) {
	return p.lines, p.err
}

func (p *fakePanel) DisplayOn() (bool, bool, bool) {
	return p.on, false, false
}

func getDev(t *testing.T, p Panel) (*Dev, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	opts := DefaultOpts
	opts.W = buf
	d, err := New(p, &opts)
	if err != nil {
		t.Fatal(err)
	}
	return d, buf
}

func TestRefresh(t *testing.T) {
	p := &fakePanel{lines: []string{"Hello\x00\x07", "\x1f~\xff"}, on: true}
	d, buf := getDev(t, p)
	if err := d.Refresh(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Hello##", " ~ ", ansi256.Default.Block(DefaultOpts.Lit)} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if n := strings.Count(out, "\n"); n != 4 {
		t.Errorf("expected 4 lines, got %d", n)
	}
	if strings.Contains(out, "\033[4A") {
		t.Error("first frame must not move the cursor up")
	}

	buf.Reset()
	if err := d.Refresh(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "\033[4A") {
		t.Errorf("second frame does not redraw in place: %q", buf.String())
	}
}

func TestDisplayOff(t *testing.T) {
	p := &fakePanel{lines: []string{"abc", "def"}}
	d, buf := getDev(t, p)
	_ = d.Refresh()
	if out := buf.String(); strings.Contains(out, "abc") || !strings.Contains(out, "   ") {
		t.Errorf("display off still shows text: %q", out)
	}
}

func TestBacklight(t *testing.T) {
	p := &fakePanel{lines: []string{"a", "b"}, on: true}
	d, buf := getDev(t, p)
	if err := d.Backlight(0); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), ansi256.Default.Block(DefaultOpts.Unlit)) {
		t.Error("unlit bezel not drawn")
	}
}

func TestPanelError(t *testing.T) {
	p := &fakePanel{err: errors.New("boom")}
	d, _ := getDev(t, p)
	if err := d.Refresh(); err == nil || !strings.Contains(err.Error(), "lcdterm: boom") {
		t.Errorf("got %v", err)
	}
}

func TestController(t *testing.T) {
	c, err := hd44780test.New(4)
	if err != nil {
		t.Fatal(err)
	}
	cfg := hd44780.DefaultConfig
	cfg.RS, cfg.RW, cfg.E = c.RS, c.RW, c.E
	cfg.Data = c.DataPins()
	cfg.Delayer = c
	cfg.Logger = logrus.New()
	dev, err := hd44780.New(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err = dev.Init(); err != nil {
		t.Fatal(err)
	}
	if err = dev.SendStringAt("on LCD", hd44780.SecondRow, 3); err != nil {
		t.Fatal(err)
	}
	d, buf := getDev(t, c)
	if err = d.Refresh(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "  on LCD") {
		t.Errorf("second row missing: %q", buf.String())
	}
	if err = d.Halt(); err != nil {
		t.Fatal(err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("nil panel accepted")
	}
	if _, err := New(&fakePanel{}, &Opts{Cols: 16}); err == nil {
		t.Error("zero rows accepted")
	}
}
