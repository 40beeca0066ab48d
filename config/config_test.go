// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/zldpll/zl3073x"
)

func TestParse(t *testing.T) {
	const txt = `
device:
  transport: SMBus
  bus-num: 3
  addr: 0x71
  poll: 1ms
  labels: generic
pins:
  - name: REF0P
    dpll: 1
    priority: 2
    frequency: 10000000
  - name: OUT0P
    phase: -1500
    esync: 1
monitor:
  interval: 250ms
  output: telemetry.yoda
mail:
  server: smtp.example.org
  targets: [ops@example.org]
`
	cfg, err := Parse(strings.NewReader(txt))
	if err != nil {
		t.Fatalf("could not parse configuration: %+v", err)
	}

	var (
		prio  = uint8(2)
		freq  = uint64(10000000)
		phase = int32(-1500)
		esync = uint64(1)
	)
	want := Config{
		Device: Device{
			Transport: "smbus",
			BusNum:    3,
			Addr:      0x71,
			Speed:     10000000,
			Poll:      time.Millisecond,
			Timeout:   100 * time.Second,
			Labels:    "generic",
		},
		Pins: []Pin{
			{Name: "REF0P", DPLL: 1, Priority: &prio, Frequency: &freq},
			{Name: "OUT0P", Phase: &phase, Esync: &esync},
		},
		Monitor: Monitor{Interval: 250 * time.Millisecond, Output: "telemetry.yoda"},
		Mail: Mail{
			Server:  "smtp.example.org",
			Port:    587,
			Targets: []string{"ops@example.org"},
		},
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("invalid configuration:\ngot= %+v\nwant=%+v", cfg, want)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("could not parse empty configuration: %+v", err)
	}
	if got, want := cfg, Default(); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid configuration:\ngot= %+v\nwant=%+v", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		txt  string
		err  string
	}{
		{
			name: "transport",
			txt:  "device: {transport: usb}",
			err:  `config: unknown transport "usb"`,
		},
		{
			name: "sim",
			txt:  "device: {transport: sim}",
			err:  "config: simulator transport needs a state file",
		},
		{
			name: "no-name",
			txt:  "pins: [{dpll: 1}]",
			err:  "config: pin #0 has no name",
		},
		{
			name: "dpll",
			txt:  "pins: [{name: REF0P, dpll: 2}]",
			err:  `config: pin "REF0P": invalid DPLL index 2`,
		},
		{
			name: "dup",
			txt:  "pins: [{name: REF0P}, {name: REF0N}, {name: REF0P}]",
			err:  `config: pin "REF0P" configured twice (#0 and #2)`,
		},
		{
			name: "negative",
			txt:  "device: {timeout: -1s}",
			err:  "config: negative durations are not allowed",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.txt))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), tc.err; got != want {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
			}
		})
	}

	_, err := Parse(strings.NewReader("device: {unknown: 1}"))
	if err == nil {
		t.Fatalf("expected an error for an unknown field")
	}
}

func TestLoad(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "zl.yaml")
	err := os.WriteFile(fname, []byte("device:\n  transport: spi\n  bus: SPI0.0\n"), 0644)
	if err != nil {
		t.Fatalf("could not create configuration file: %+v", err)
	}

	cfg, err := Load(fname)
	if err != nil {
		t.Fatalf("could not load configuration: %+v", err)
	}
	if got, want := cfg.Device.Bus, "SPI0.0"; got != want {
		t.Fatalf("invalid bus: got=%q, want=%q", got, want)
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("invalid error: %+v", err)
	}
}

func TestMailFromEnv(t *testing.T) {
	t.Setenv("MAIL_SERVER", "smtp.example.org")
	t.Setenv("MAIL_PORT", "465")
	t.Setenv("MAIL_USERNAME", "bot")
	t.Setenv("MAIL_PASSWORD", "s3cr3t")
	t.Setenv("MAIL_TGTS", "a@example.org, b@example.org,")

	m := Default().Mail
	if m.Enabled() {
		t.Fatalf("default mail settings should be disabled")
	}
	err := m.FromEnv()
	if err != nil {
		t.Fatalf("could not read environment: %+v", err)
	}
	want := Mail{
		Server:   "smtp.example.org",
		Port:     465,
		Username: "bot",
		Password: "s3cr3t",
		Targets:  []string{"a@example.org", "b@example.org"},
	}
	if !reflect.DeepEqual(m, want) {
		t.Fatalf("invalid mail settings:\ngot= %+v\nwant=%+v", m, want)
	}
	if !m.Enabled() {
		t.Fatalf("mail settings should be enabled")
	}

	m = Mail{Server: "smtp.local", Targets: []string{"c@example.org"}}
	err = m.FromEnv()
	if err != nil {
		t.Fatalf("could not read environment: %+v", err)
	}
	if got, want := m.Server, "smtp.local"; got != want {
		t.Fatalf("configured server overridden: got=%q, want=%q", got, want)
	}
	if got, want := m.Targets, []string{"c@example.org"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("configured targets overridden: got=%q, want=%q", got, want)
	}

	t.Setenv("MAIL_PORT", "smtp")
	m = Mail{}
	err = m.FromEnv()
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestOpenApply(t *testing.T) {
	cfg := Default()
	cfg.Device.Transport = "sim"
	cfg.Device.Bus = filepath.Join(t.TempDir(), "zl.sim")
	cfg.Device.Labels = "generic"
	cfg.Device.Poll = 0
	cfg.Device.Timeout = 50 * time.Millisecond

	dev, err := cfg.Device.Open(log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	defer dev.Close()

	var (
		prio  = uint8(3)
		freq  = uint64(25000000)
		phase = int32(-1000)
		esync = uint64(1)
		bad   = uint64(12345)
	)
	err = Apply(dev, []Pin{
		{Name: "REF1N", DPLL: 1, Priority: &prio, Frequency: &freq, Esync: &esync},
		{Name: "OUT1P", Phase: &phase},
		{Name: "OUT2P", Frequency: &bad},
		{Name: "NOPE"},
	})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, zl3073x.ErrUnsupported) || !errors.Is(err, zl3073x.ErrInvalidArgument) {
		t.Fatalf("invalid error: %+v", err)
	}

	ref, _ := dev.Pin("REF1N")
	dpll, _ := dev.DPLL(1)
	got, err := dpll.Priority(ref)
	if err != nil {
		t.Fatalf("could not read priority: %+v", err)
	}
	if got != prio {
		t.Fatalf("invalid priority: got=%d, want=%d", got, prio)
	}
	f, err := ref.Frequency()
	if err != nil {
		t.Fatalf("could not read frequency: %+v", err)
	}
	if f != freq {
		t.Fatalf("invalid frequency: got=%d, want=%d", f, freq)
	}
	es, err := ref.Esync()
	if err != nil {
		t.Fatalf("could not read esync: %+v", err)
	}
	if es.Freq != esync {
		t.Fatalf("invalid esync: got=%d, want=%d", es.Freq, esync)
	}

	out, _ := dev.Pin("OUT1P")
	ph, err := out.PhaseAdjust()
	if err != nil {
		t.Fatalf("could not read phase adjustment: %+v", err)
	}
	if ph != phase {
		t.Fatalf("invalid phase adjustment: got=%d, want=%d", ph, phase)
	}

	pins, err := Snapshot(dev)
	if err != nil {
		t.Fatalf("could not snapshot device: %+v", err)
	}
	if got, want := len(pins), 20+2*10; got != want {
		t.Fatalf("invalid number of snapshot entries: got=%d, want=%d", got, want)
	}
	var found bool
	for _, pin := range pins {
		if pin.Name != "REF1N" || pin.DPLL != 1 {
			continue
		}
		found = true
		if pin.Priority == nil || *pin.Priority != prio {
			t.Fatalf("invalid snapshot priority: %+v", pin)
		}
	}
	if !found {
		t.Fatalf("REF1N on DPLL 1 missing from snapshot")
	}
}
