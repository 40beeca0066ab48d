// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"errors"
	"testing"

	"github.com/go-lpc/zldpll/internal/regs"
	"github.com/go-lpc/zldpll/internal/zlsim"
)

func TestMailboxMask(t *testing.T) {
	dev, sim := newTestSim(t)

	for _, tc := range []struct {
		mb   mailbox
		idx  int
		want uint64
	}{
		{mbRef, 0, 0x0001},
		{mbRef, 9, 0x0200},
		{mbDPLL, 1, 0x0002},
		{mbSynth, 4, 0x0010},
		{mbOutput, 9, 0x0200},
	} {
		s := dev.seq()
		s.mbRead(tc.mb, tc.idx)
		if s.err != nil {
			t.Fatalf("%s[%d]: could not read mailbox: %+v", tc.mb.name, tc.idx, s.err)
		}
		if got := sim.Reg(tc.mb.mask, 2); got != tc.want {
			t.Fatalf("%s[%d]: invalid mask: got=0x%04x, want=0x%04x", tc.mb.name, tc.idx, got, tc.want)
		}
	}
}

func TestMailboxIndex(t *testing.T) {
	dev, _ := newTestSim(t)

	for _, tc := range []struct {
		mb  mailbox
		idx int
	}{
		{mbRef, -1},
		{mbRef, 10},
		{mbDPLL, 2},
		{mbSynth, 5},
		{mbOutput, 10},
	} {
		s := dev.seq()
		s.mbWrite(tc.mb, tc.idx)
		if !errors.Is(s.err, ErrInvalidArgument) {
			t.Fatalf("%s[%d]: invalid error: %+v", tc.mb.name, tc.idx, s.err)
		}
	}
}

func TestMailboxRoundTrip(t *testing.T) {
	dev, sim := newTestSim(t)
	sim.SetBankReg(zlsim.Output, 4, regs.OutputDiv, 1234, 4)

	s := dev.seq()
	s.mbRead(mbOutput, 4)
	if got, want := s.rN(regs.OutputDiv, 4), uint64(1234); got != want {
		t.Fatalf("invalid window: got=%d, want=%d", got, want)
	}
	s.wN(regs.OutputDiv, 5678, 4)
	s.mbWrite(mbOutput, 4)
	if s.err != nil {
		t.Fatalf("could not write mailbox: %+v", s.err)
	}

	if got, want := sim.BankReg(zlsim.Output, 4, regs.OutputDiv, 4), uint64(5678); got != want {
		t.Fatalf("invalid bank: got=%d, want=%d", got, want)
	}
	if got, want := sim.BankReg(zlsim.Output, 3, regs.OutputDiv, 4), uint64(1); got != want {
		t.Fatalf("neighbour bank modified: got=%d, want=%d", got, want)
	}
}

func TestMailboxTimeout(t *testing.T) {
	dev, sim := newTestSim(t)
	sim.Stick(regs.RefMBSem, true)

	ref, err := dev.Input(3)
	if err != nil {
		t.Fatalf("could not get input: %+v", err)
	}

	err = ref.SetPhaseAdjust(100)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("invalid error: %+v", err)
	}

	// the device lock was released.
	dpll, err := dev.DPLL(1)
	if err != nil {
		t.Fatalf("could not get DPLL: %+v", err)
	}
	_, err = dpll.Time()
	if err != nil {
		t.Fatalf("could not read time after timeout: %+v", err)
	}
	_, err = dev.SynthFrequency(0)
	if err != nil {
		t.Fatalf("could not read synth after timeout: %+v", err)
	}
}
