// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-lpc/zldpll/internal/regs"
	"github.com/go-lpc/zldpll/internal/zlsim"
)

func TestAdjFine(t *testing.T) {
	dev, sim := newTestSim(t)
	dpll, _ := dev.DPLL(1)
	reg := regs.DPLLAddr(regs.DFOffset, 1)

	n := sim.Writes()
	err := dpll.AdjFine(0)
	if err != nil {
		t.Fatalf("could not apply null adjustment: %+v", err)
	}
	if got, want := sim.Writes(), n; got != want {
		t.Fatalf("null adjustment accessed the chip: got=%d writes, want=%d", got, want)
	}

	for _, tc := range []struct {
		ppm  int64
		want int64
	}{
		{1 << 16, -281474976},
		{-1 << 16, 281474976},
		{1 << 15, -140737488},
		{100 << 16, -28147497600},
	} {
		err := dpll.AdjFine(tc.ppm)
		if err != nil {
			t.Fatalf("ppm=%d: could not adjust frequency: %+v", tc.ppm, err)
		}
		if got, want := sim.Reg(reg, 6), twos(tc.want, 48); got != want {
			t.Fatalf("ppm=%d: invalid DCO offset: got=0x%x, want=0x%x", tc.ppm, got, want)
		}
	}

	for _, ppm := range []int64{1 << 36, -(1 << 36) - 1<<16} {
		err := dpll.AdjFine(ppm)
		if !errors.Is(err, ErrRange) {
			t.Fatalf("ppm=%d: invalid error: %+v", ppm, err)
		}
	}
}

func TestAdjPhase(t *testing.T) {
	dev, sim := newTestSim(t)
	dpll, _ := dev.DPLL(1)

	for _, tc := range []struct {
		delta time.Duration
		want  int64
	}{
		{time.Millisecond, 100000000000},
		{-time.Millisecond, -100000000000},
		{123 * time.Nanosecond, 12300000},
		{time.Second, 0},
	} {
		err := dpll.AdjPhase(tc.delta)
		if err != nil {
			t.Fatalf("delta=%v: could not adjust phase: %+v", tc.delta, err)
		}
		if got := sim.TIE(1); got != tc.want {
			t.Fatalf("delta=%v: invalid TIE: got=%d, want=%d", tc.delta, got, tc.want)
		}
		if got := sim.TIE(0); got != 0 {
			t.Fatalf("delta=%v: TIE applied to DPLL #0: got=%d", tc.delta, got)
		}
	}

	err := dpll.AdjPhase(time.Second + 1)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("invalid error: %+v", err)
	}

	sim.Stick(regs.TIECtrl, true)
	err = dpll.AdjPhase(time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("invalid error: %+v", err)
	}
}

func TestStepUnits(t *testing.T) {
	for _, tc := range []struct {
		delta int64
		freq  uint64
		want  int32
		ok    bool
	}{
		{500000, 100000000, 50000, true},
		{-500000, 100000000, -50000, true},
		{999999999, 1000000000, 999999999, true},
		{1, 1000, 0, true},
		{999999999, 3000000000, 0, false},
	} {
		got, ok := stepUnits(tc.delta, tc.freq)
		if ok != tc.ok {
			t.Fatalf("stepUnits(%d, %d): got ok=%v, want=%v", tc.delta, tc.freq, ok, tc.ok)
		}
		if got != tc.want {
			t.Fatalf("stepUnits(%d, %d): got=%d, want=%d", tc.delta, tc.freq, got, tc.want)
		}
	}
}

func TestAdjTimeStep(t *testing.T) {
	dev, sim := newTestSim(t)
	dpll, _ := dev.DPLL(1)
	out, _ := dev.Output(0)

	err := dpll.AdjTime(10 * time.Millisecond)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("invalid error: %+v", err)
	}

	n := sim.Writes()
	err = dpll.AdjTime(0)
	if err != nil {
		t.Fatalf("could not apply null adjustment: %+v", err)
	}
	if got, want := sim.Writes(), n; got != want {
		t.Fatalf("null adjustment accessed the chip: got=%d writes, want=%d", got, want)
	}

	// drive output pair #0 from the 100MHz synth.
	sim.SetReg(regs.OutputCtrl, 2<<regs.OutputCtrlSynthShift, 1)
	err = dpll.EnablePerout(out, PeroutRequest{Start: time.Unix(10, 0), Period: time.Second})
	if err != nil {
		t.Fatalf("could not enable periodic output: %+v", err)
	}

	err = dpll.AdjTime(500 * time.Microsecond)
	if err != nil {
		t.Fatalf("could not adjust time: %+v", err)
	}
	err = dpll.AdjTime(-1500 * time.Microsecond)
	if err != nil {
		t.Fatalf("could not adjust time: %+v", err)
	}

	want := []zlsim.Step{
		{DPLL: 1, Mask: 0x1, Units: 50000, TOD: true},
		{DPLL: 1, Mask: 0x1, Units: -150000, TOD: true},
	}
	if got := sim.Steps(); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid phase steps:\ngot= %+v\nwant=%+v", got, want)
	}
	if got, want := dev.rollovers, 0; got != want {
		t.Fatalf("sub-second adjustment waited for a rollover: got=%d", got)
	}
}

func TestAdjTimeSeconds(t *testing.T) {
	dev, sim := newTestSim(t, WithTimeout(time.Second))
	dpll, _ := dev.DPLL(0)

	var (
		mu   sync.Mutex
		base = time.Unix(5000, 0)
		n    time.Duration
		last time.Time
	)
	sim.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		last = base.Add(n * 100 * time.Millisecond)
		return last
	})
	sim.SetTime(0, time.Unix(1000, 0))
	offset := func() time.Duration {
		now := sim.Time(0)
		mu.Lock()
		defer mu.Unlock()
		return now.Sub(last)
	}
	before := offset()

	err := dpll.AdjTime(5 * time.Second)
	if err != nil {
		t.Fatalf("could not adjust time: %+v", err)
	}
	if got, want := offset()-before, 5*time.Second; got != want {
		t.Fatalf("invalid time step: got=%v, want=%v", got, want)
	}
	if got, want := dev.rollovers, 1; got != want {
		t.Fatalf("invalid number of rollovers: got=%d, want=%d", got, want)
	}
	if got := len(sim.Steps()); got != 0 {
		t.Fatalf("unexpected phase steps: %d", got)
	}

	err = dpll.AdjTime(-3 * time.Second)
	if err != nil {
		t.Fatalf("could not adjust time: %+v", err)
	}
	if got, want := offset()-before, 2*time.Second; got != want {
		t.Fatalf("invalid time step: got=%v, want=%v", got, want)
	}
}
