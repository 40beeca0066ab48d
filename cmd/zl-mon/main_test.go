// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/zldpll/config"
	"github.com/go-lpc/zldpll/monitor"
	"github.com/go-lpc/zldpll/zl3073x"
	mail "gopkg.in/gomail.v2"
)

func newTestConfig(t *testing.T) (fname, oname string) {
	t.Helper()
	for _, k := range []string{"MAIL_SERVER", "MAIL_PORT", "MAIL_USERNAME", "MAIL_PASSWORD", "MAIL_TGTS"} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	fname = filepath.Join(dir, "board.yaml")
	oname = filepath.Join(dir, "telemetry.yoda")
	err := os.WriteFile(fname, []byte(`device:
  transport: sim
  bus: `+filepath.Join(dir, "zl.sim")+`
  labels: generic
  timeout: 1s
monitor:
  interval: 1ms
  output: `+oname+`
`), 0644)
	if err != nil {
		t.Fatalf("could not create configuration file: %+v", err)
	}
	return fname, oname
}

func TestRun(t *testing.T) {
	fname, oname := newTestConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := run(ctx, fname, "REF0P,REF4N")
	if err != nil {
		t.Fatalf("could not run monitor: %+v", err)
	}

	raw, err := os.ReadFile(oname)
	if err != nil {
		t.Fatalf("could not read telemetry file: %+v", err)
	}
	for _, name := range []string{"ffo-REF0P", "phase-REF4N"} {
		if !strings.Contains(string(raw), name) {
			t.Fatalf("missing histogram %q", name)
		}
	}

	err = run(ctx, fname, "OUT0P")
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestLookupRefs(t *testing.T) {
	fname, _ := newTestConfig(t)
	cfg, err := config.Load(fname)
	if err != nil {
		t.Fatalf("could not load configuration: %+v", err)
	}
	dev, err := cfg.Device.Open(log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	defer dev.Close()

	for _, tc := range []struct {
		refs string
		want []string
		err  string
	}{
		{
			refs: "",
			want: []string{"REF0P", "REF0N", "REF1P", "REF1N", "REF2P", "REF2N", "REF3P", "REF3N", "REF4P", "REF4N"},
		},
		{
			refs: "REF1N, REF3P",
			want: []string{"REF1N", "REF3P"},
		},
		{
			refs: "OUT0P",
			err:  `pin "OUT0P" is not a reference`,
		},
	} {
		t.Run(tc.refs, func(t *testing.T) {
			pins, err := lookupRefs(dev, tc.refs)
			if tc.err != "" {
				if err == nil || err.Error() != tc.err {
					t.Fatalf("invalid error: got=%v, want=%q", err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("could not lookup references: %+v", err)
			}
			var got []string
			for _, p := range pins {
				got = append(got, p.Name())
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid references:\ngot= %q\nwant=%q", got, tc.want)
			}
		})
	}

	_, err = lookupRefs(dev, "NOPE")
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestAlerter(t *testing.T) {
	var msgs []*mail.Message
	alr := newAlerter(config.Mail{
		Server:   "smtp.example.org",
		Port:     587,
		Username: "zl-mon@example.org",
		Password: "s3cr3t",
		Targets:  []string{"ops@example.org"},
	})
	alr.host = "lab-01"
	alr.send = func(msg *mail.Message) error {
		msgs = append(msgs, msg)
		return nil
	}

	evt := monitor.Event{
		Time: time.Date(2021, 4, 5, 6, 7, 8, 0, time.UTC),
		DPLL: 1,
		Old:  zl3073x.Locked,
		New:  zl3073x.Holdover,
	}
	for i := 0; i < 2*maxAlerts; i++ {
		alr.alert(evt)
	}
	if got, want := len(msgs), maxAlerts; got != want {
		t.Fatalf("invalid number of alerts: got=%d, want=%d", got, want)
	}
	if got, want := msgs[0].GetHeader("Subject"), []string{"[zl-mon] lab-01: dpll-1 holdover"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid subject: got=%q, want=%q", got, want)
	}
	if got, want := msgs[0].GetHeader("Bcc"), []string{"ops@example.org"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid targets: got=%q, want=%q", got, want)
	}

	evt.DPLL = 0
	alr.alert(evt)
	if got, want := len(msgs), maxAlerts+1; got != want {
		t.Fatalf("invalid number of alerts: got=%d, want=%d", got, want)
	}

	alr = newAlerter(config.Mail{})
	alr.send = func(msg *mail.Message) error {
		t.Fatalf("unexpected mail")
		return nil
	}
	alr.alert(evt)
}
