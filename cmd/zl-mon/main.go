// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zl-mon monitors the lock status of the DPLLs of a ZL3073x chip
// and sends e-mail alerts when a DPLL loses its lock.
//
// Missing mail settings are read from the MAIL_SERVER, MAIL_PORT,
// MAIL_USERNAME, MAIL_PASSWORD and MAIL_TGTS environment variables.
//
// Usage:
//
//	$> zl-mon -cfg ./board.yaml -refs=REF0P,REF1P
package main // import "github.com/go-lpc/zldpll/cmd/zl-mon"

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/go-lpc/zldpll/config"
	"github.com/go-lpc/zldpll/monitor"
	"github.com/go-lpc/zldpll/zl3073x"
	mail "gopkg.in/gomail.v2"
)

func main() {
	log.SetPrefix("zl-mon: ")
	log.SetFlags(0)

	var (
		fname = flag.String("cfg", "/etc/zldpll/board.yaml", "path to the board configuration file")
		refs  = flag.String("refs", "", "comma-separated list of references to sample (default: all inputs)")
	)

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)
	go func() {
		<-stop
		cancel()
	}()

	err := run(ctx, *fname, *refs)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(ctx context.Context, fname, refs string) error {
	cfg, err := config.Load(fname)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}

	err = cfg.Mail.FromEnv()
	if err != nil {
		return fmt.Errorf("could not configure mail alerts: %w", err)
	}

	dev, err := cfg.Device.Open(log.New(os.Stdout, "zl3073x: ", 0))
	if err != nil {
		return fmt.Errorf("could not open device: %w", err)
	}
	defer dev.Close()

	pins, err := lookupRefs(dev, refs)
	if err != nil {
		return err
	}

	var (
		mon  = monitor.New(dev, cfg.Monitor.Interval, monitor.WithRefs(pins...))
		alr  = newAlerter(cfg.Mail)
		evts = make(chan monitor.Event)
		errc = make(chan error, 1)
	)

	log.Printf("monitoring %d DPLLs every %v...", len(dev.DPLLs()), cfg.Monitor.Interval)
	go func() {
		errc <- mon.Run(ctx, evts)
	}()

loop:
	for {
		select {
		case evt := <-evts:
			log.Printf("%v", evt)
			if evt.Alarm() {
				alr.alert(evt)
			}
		case err = <-errc:
			break loop
		}
	}
	if err != nil {
		return fmt.Errorf("could not monitor device: %w", err)
	}

	if n := mon.Errors(); n > 0 {
		log.Printf("sampling errors: %d", n)
	}
	for _, st := range mon.Stats() {
		log.Printf("%s: n=%d, mean=%g, rms=%g", st.Name, st.Entries, st.Mean, st.StdDev)
	}

	if cfg.Monitor.Output == "" {
		return nil
	}
	return dump(mon, cfg.Monitor.Output)
}

func lookupRefs(dev *zl3073x.Device, refs string) ([]*zl3073x.Pin, error) {
	var pins []*zl3073x.Pin
	if refs == "" {
		for _, p := range dev.Pins() {
			if p.Direction() == zl3073x.Input {
				pins = append(pins, p)
			}
		}
		return pins, nil
	}

	for _, name := range strings.Split(refs, ",") {
		p, err := dev.Pin(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("could not find reference: %w", err)
		}
		if p.Direction() != zl3073x.Input {
			return nil, fmt.Errorf("pin %q is not a reference", p.Name())
		}
		pins = append(pins, p)
	}
	return pins, nil
}

func dump(mon *monitor.Monitor, oname string) error {
	f, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create telemetry file: %w", err)
	}
	defer f.Close()

	err = mon.WriteYODA(f)
	if err != nil {
		return fmt.Errorf("could not write telemetry file: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close telemetry file: %w", err)
	}
	return nil
}

// maxAlerts is the number of e-mails sent per DPLL.
const maxAlerts = 5

type alerter struct {
	cfg    config.Mail
	host   string
	alerts map[int]int // number of alerts per DPLL
	send   func(msg *mail.Message) error
}

func newAlerter(cfg config.Mail) *alerter {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	alr := &alerter{
		cfg:    cfg,
		host:   host,
		alerts: make(map[int]int),
	}
	alr.send = alr.dial
	return alr
}

func (alr *alerter) alert(evt monitor.Event) {
	alr.alerts[evt.DPLL]++
	if alr.alerts[evt.DPLL] > maxAlerts {
		return
	}

	if !alr.cfg.Enabled() {
		log.Printf("could not send mail alert: missing credentials")
		return
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", alr.cfg.Username)
	msg.SetHeader("Bcc", alr.cfg.Targets...)
	msg.SetHeader("Subject", fmt.Sprintf("[zl-mon] %s: dpll-%d %v", alr.host, evt.DPLL, evt.New))
	msg.SetBody("text/plain", fmt.Sprintf(
		"host:  %s\nevent: %v\nalert: %d/%d",
		alr.host, evt, alr.alerts[evt.DPLL], maxAlerts,
	))

	err := alr.send(msg)
	if err != nil {
		log.Printf("could not send mail alert: %+v", err)
	}
}

func (alr *alerter) dial(msg *mail.Message) error {
	dial := mail.NewDialer(alr.cfg.Server, alr.cfg.Port, alr.cfg.Username, alr.cfg.Password)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	return dial.DialAndSend(msg)
}
