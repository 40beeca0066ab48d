// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/zldpll/config"
	"github.com/go-lpc/zldpll/monitor"
	"github.com/go-lpc/zldpll/zl3073x"
)

type server struct {
	fname string
	msg   *log.Logger

	mu   sync.Mutex
	cfg  config.Config
	dev  *zl3073x.Device
	mon  *monitor.Monitor
	evts chan monitor.Event
}

func newServer(fname string) *server {
	return &server{
		fname: fname,
		msg:   log.New(os.Stdout, "zl3073x: ", 0),
	}
}

func (srv *server) configure() error {
	cfg, err := config.Load(srv.fname)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.cfg = cfg
	return nil
}

// attach (re)attaches the chip and applies the pin settings.
func (srv *server) attach() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.detach()

	dev, err := srv.cfg.Device.Open(srv.msg)
	if err != nil {
		return fmt.Errorf("could not open device: %w", err)
	}
	srv.dev = dev

	var refs []*zl3073x.Pin
	for _, p := range dev.Pins() {
		if p.Direction() == zl3073x.Input {
			refs = append(refs, p)
		}
	}
	srv.mon = monitor.New(
		dev, srv.cfg.Monitor.Interval,
		monitor.WithRefs(refs...),
		monitor.WithLogger(log.New(os.Stdout, "monitor: ", 0)),
	)
	srv.evts = make(chan monitor.Event, 1024)

	err = config.Apply(dev, srv.cfg.Pins)
	if err != nil {
		return fmt.Errorf("could not apply pin settings: %w", err)
	}
	return nil
}

func (srv *server) detach() error {
	srv.mon = nil
	if srv.dev == nil {
		return nil
	}
	err := srv.dev.Close()
	srv.dev = nil
	if err != nil {
		return fmt.Errorf("could not close device: %w", err)
	}
	return nil
}

func (srv *server) reset() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.detach()
}

func (srv *server) sampler() (*monitor.Monitor, chan monitor.Event, error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.mon == nil {
		return nil, nil, fmt.Errorf("device not initialized")
	}
	return srv.mon, srv.evts, nil
}

// dump writes the telemetry histograms to the configured output file.
func (srv *server) dump() error {
	mon, _, err := srv.sampler()
	if err != nil {
		return err
	}

	srv.mu.Lock()
	oname := srv.cfg.Monitor.Output
	srv.mu.Unlock()

	if oname == "" {
		return nil
	}

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

func (srv *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	err := srv.configure()
	if err != nil {
		ctx.Msg.Errorf("could not configure: %+v", err)
		return err
	}
	return nil
}

func (srv *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := srv.attach()
	if err != nil {
		ctx.Msg.Errorf("could not initialize: %+v", err)
		return err
	}
	return nil
}

func (srv *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := srv.reset()
	if err != nil {
		ctx.Msg.Errorf("could not reset: %+v", err)
		return err
	}
	return nil
}

func (srv *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	_, _, err := srv.sampler()
	if err != nil {
		ctx.Msg.Errorf("could not start: %+v", err)
		return err
	}
	return nil
}

func (srv *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	mon, _, err := srv.sampler()
	if err != nil {
		ctx.Msg.Errorf("could not stop: %+v", err)
		return err
	}
	for _, st := range mon.Stats() {
		ctx.Msg.Infof("%s: n=%d, mean=%g, rms=%g", st.Name, st.Entries, st.Mean, st.StdDev)
	}
	err = srv.dump()
	if err != nil {
		ctx.Msg.Errorf("could not dump telemetry: %+v", err)
		return err
	}
	return nil
}

func (srv *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	err := srv.reset()
	if err != nil {
		ctx.Msg.Errorf("could not quit: %+v", err)
		return err
	}
	return nil
}

func (srv *server) status(ctx tdaq.Context, dst *tdaq.Frame) error {
	_, evts, err := srv.sampler()
	if err != nil {
		dst.Body = nil
		return nil
	}

	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case evt := <-evts:
		dst.Body, err = encodeEvent(evt)
		if err != nil {
			return fmt.Errorf("could not encode status frame: %w", err)
		}
	}
	return nil
}

func (srv *server) run(ctx tdaq.Context) error {
	return srv.loop(ctx.Ctx)
}

func (srv *server) loop(ctx context.Context) error {
	mon, evts, err := srv.sampler()
	if err != nil {
		return err
	}
	return mon.Run(ctx, evts)
}

// encodeEvent encodes a lock status transition into a status frame body.
func encodeEvent(evt monitor.Event) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	enc.WriteI64(evt.Time.UnixNano())
	enc.WriteU8(uint8(evt.DPLL))
	enc.WriteU8(uint8(evt.Old))
	enc.WriteU8(uint8(evt.New))
	return buf.Bytes(), enc.Err()
}

func decodeEvent(r io.Reader) (monitor.Event, error) {
	var (
		evt monitor.Event
		dec = tdaq.NewDecoder(r)
	)
	evt.Time = time.Unix(0, dec.ReadI64()).UTC()
	evt.DPLL = int(dec.ReadU8())
	evt.Old = zl3073x.LockStatus(dec.ReadU8())
	evt.New = zl3073x.LockStatus(dec.ReadU8())
	return evt, dec.Err()
}
