// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package monitor periodically samples the lock status of the DPLLs of a
// ZL3073x chip and the telemetry of its input references.
//
// Lock status transitions are reported as events.
// Frequency and phase offsets are accumulated into histograms.
package monitor // import "github.com/go-lpc/zldpll/monitor"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-lpc/zldpll/zl3073x"
	"go-hep.org/x/hep/hbook"
	"golang.org/x/sync/errgroup"
)

// Event is a lock status transition of a DPLL.
type Event struct {
	Time time.Time
	DPLL int
	Old  zl3073x.LockStatus // zero for the first sample
	New  zl3073x.LockStatus
}

func (evt Event) String() string {
	old := "unknown"
	if evt.Old != 0 {
		old = evt.Old.String()
	}
	return fmt.Sprintf(
		"%s dpll-%d: %s -> %s",
		evt.Time.UTC().Format(time.RFC3339), evt.DPLL, old, evt.New,
	)
}

// Alarm reports whether the transition lost the lock.
func (evt Event) Alarm() bool {
	switch evt.New {
	case zl3073x.Unlocked, zl3073x.Holdover:
		return evt.Old != evt.New
	}
	return false
}

// Sample is a snapshot of the chip status.
type Sample struct {
	Time   time.Time
	Status []zl3073x.LockStatus // per DPLL
	FFO    []int64              // per monitored reference, in 2^-32 units
	Phase  []int64              // per monitored reference, in ps
}

// Monitor samples a chip.
type Monitor struct {
	dev  *zl3073x.Device
	dpll *zl3073x.DPLL // DPLL the telemetry is measured against
	refs []*zl3073x.Pin
	freq time.Duration
	msg  *log.Logger

	mu    sync.Mutex
	last  []zl3073x.LockStatus
	nerrs int
	ffo   []*hbook.H1D
	phase []*hbook.H1D
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger of the monitor.
func WithLogger(msg *log.Logger) Option {
	return func(mon *Monitor) {
		mon.msg = msg
	}
}

// WithRefs sets the input references whose telemetry is sampled.
func WithRefs(refs ...*zl3073x.Pin) Option {
	return func(mon *Monitor) {
		mon.refs = refs
	}
}

// WithDPLL sets the DPLL the telemetry is measured against.
func WithDPLL(dpll *zl3073x.DPLL) Option {
	return func(mon *Monitor) {
		mon.dpll = dpll
	}
}

const (
	ppb = 1e9 / (1 << 32) // FFO unit, in ppb

	ffoBins   = 200
	ffoRange  = 1000.0 // ppb
	phaseBins = 200
	phaseRng  = 100000.0 // ps
)

// New returns a monitor sampling the chip every freq.
func New(dev *zl3073x.Device, freq time.Duration, opts ...Option) *Monitor {
	dplls := dev.DPLLs()
	mon := &Monitor{
		dev:  dev,
		dpll: dplls[len(dplls)-1],
		freq: freq,
		msg:  log.New(os.Stdout, "monitor: ", 0),
		last: make([]zl3073x.LockStatus, len(dplls)),
	}
	for _, opt := range opts {
		opt(mon)
	}

	mon.ffo = make([]*hbook.H1D, len(mon.refs))
	mon.phase = make([]*hbook.H1D, len(mon.refs))
	for i, ref := range mon.refs {
		mon.ffo[i] = hbook.NewH1D(ffoBins, -ffoRange, +ffoRange)
		mon.ffo[i].Annotation()["name"] = "ffo-" + ref.Name()
		mon.ffo[i].Annotation()["title"] = fmt.Sprintf("FFO of %s vs %v [ppb]", ref.Name(), mon.dpll)

		mon.phase[i] = hbook.NewH1D(phaseBins, -phaseRng, +phaseRng)
		mon.phase[i].Annotation()["name"] = "phase-" + ref.Name()
		mon.phase[i].Annotation()["title"] = fmt.Sprintf("phase offset of %s vs %v [ps]", ref.Name(), mon.dpll)
	}
	return mon
}

// Sample takes a snapshot of the chip status.
func (mon *Monitor) Sample() (Sample, error) {
	dplls := mon.dev.DPLLs()
	s := Sample{
		Time:   time.Now().UTC(),
		Status: make([]zl3073x.LockStatus, len(dplls)),
		FFO:    make([]int64, len(mon.refs)),
		Phase:  make([]int64, len(mon.refs)),
	}

	var err error
	for i, dpll := range dplls {
		s.Status[i], err = dpll.LockStatus()
		if err != nil {
			return s, fmt.Errorf("monitor: could not sample lock status: %w", err)
		}
	}

	for i, ref := range mon.refs {
		s.FFO[i], err = mon.dpll.FFO(ref)
		if err != nil {
			return s, fmt.Errorf("monitor: could not sample FFO: %w", err)
		}
		s.Phase[i], err = mon.dpll.PhaseOffset(ref)
		if err != nil {
			return s, fmt.Errorf("monitor: could not sample phase offset: %w", err)
		}
	}
	return s, nil
}

// update accumulates a sample and returns the lock status transitions.
func (mon *Monitor) update(s Sample) []Event {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	var evts []Event
	for i, st := range s.Status {
		if st == mon.last[i] {
			continue
		}
		evts = append(evts, Event{Time: s.Time, DPLL: i, Old: mon.last[i], New: st})
		mon.last[i] = st
	}

	for i := range s.FFO {
		mon.ffo[i].Fill(float64(s.FFO[i])*ppb, 1)
		mon.phase[i].Fill(float64(s.Phase[i]), 1)
	}
	return evts
}

// Run samples the chip until ctx is done and sends the lock status
// transitions on evts. Sampling errors are logged and counted.
func (mon *Monitor) Run(ctx context.Context, evts chan<- Event) error {
	grp, ctx := errgroup.WithContext(ctx)
	samples := make(chan Sample)

	grp.Go(func() error {
		defer close(samples)
		tck := time.NewTicker(mon.freq)
		defer tck.Stop()

		for {
			s, err := mon.Sample()
			switch err {
			case nil:
				select {
				case samples <- s:
				case <-ctx.Done():
					return ctx.Err()
				}
			default:
				mon.mu.Lock()
				mon.nerrs++
				mon.mu.Unlock()
				mon.msg.Printf("%+v", err)
			}

			select {
			case <-tck.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	grp.Go(func() error {
		for s := range samples {
			for _, evt := range mon.update(s) {
				if evt.Alarm() {
					mon.msg.Printf("alarm: %v", evt)
				}
				if evts == nil {
					continue
				}
				select {
				case evts <- evt:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return nil
	})

	err := grp.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Errors returns the number of failed samples.
func (mon *Monitor) Errors() int {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	return mon.nerrs
}

// Status returns the last sampled lock status of each DPLL.
func (mon *Monitor) Status() []zl3073x.LockStatus {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	return append([]zl3073x.LockStatus(nil), mon.last...)
}

// Stat summarizes the telemetry of a reference.
type Stat struct {
	Name    string
	Entries int64
	Mean    float64
	StdDev  float64
}

// Stats returns the FFO and phase offset summaries of the monitored
// references.
func (mon *Monitor) Stats() []Stat {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	stats := make([]Stat, 0, 2*len(mon.refs))
	for i := range mon.refs {
		for _, h := range []*hbook.H1D{mon.ffo[i], mon.phase[i]} {
			st := Stat{
				Name:    h.Name(),
				Entries: h.Entries(),
			}
			if st.Entries > 0 {
				st.Mean = h.XMean()
			}
			if st.Entries > 1 {
				st.StdDev = h.XStdDev()
			}
			stats = append(stats, st)
		}
	}
	return stats
}

// WriteYODA writes the telemetry histograms in the YODA format.
func (mon *Monitor) WriteYODA(w io.Writer) error {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	for i := range mon.refs {
		for _, h := range []*hbook.H1D{mon.ffo[i], mon.phase[i]} {
			raw, err := h.MarshalYODA()
			if err != nil {
				return fmt.Errorf("monitor: could not marshal %q: %w", h.Name(), err)
			}
			_, err = w.Write(raw)
			if err != nil {
				return fmt.Errorf("monitor: could not write %q: %w", h.Name(), err)
			}
		}
	}
	return nil
}
