// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-lpc/zldpll/internal/regs"
	"github.com/go-lpc/zldpll/internal/zlsim"
)

func TestRefFreqs(t *testing.T) {
	for _, rf := range refFreqs {
		if got, want := rf.value(), rf.freq; got != want {
			t.Fatalf("invalid encoding of %dHz: got=%dHz", want, got)
		}
	}

	_, ok := lookupRefFreq(12345)
	if ok {
		t.Fatalf("unexpected reference frequency 12345Hz")
	}
}

func TestSynthFrequency(t *testing.T) {
	dev, sim := newTestSim(t)

	for i, want := range []uint64{1000000000, 156250000, 100000000, 25000000, 10000000} {
		got, err := dev.SynthFrequency(i)
		if err != nil {
			t.Fatalf("synth #%d: could not read frequency: %+v", i, err)
		}
		if got != want {
			t.Fatalf("synth #%d: invalid frequency: got=%d, want=%d", i, got, want)
		}
	}

	sim.SetSynth(2, 20000, 5000, 3, 2)
	got, err := dev.SynthFrequency(2)
	if err != nil {
		t.Fatalf("could not read frequency: %+v", err)
	}
	if want := uint64(150000000); got != want {
		t.Fatalf("invalid frequency: got=%d, want=%d", got, want)
	}

	sim.SetSynth(2, 20000, 5000, 1, 0)
	_, err = dev.SynthFrequency(2)
	if !errors.Is(err, ErrRange) {
		t.Fatalf("invalid error: %+v", err)
	}

	_, err = dev.SynthFrequency(5)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("invalid error: %+v", err)
	}
}

func TestInputFrequency(t *testing.T) {
	dev, sim := newTestSim(t)
	ref, _ := dev.Input(6)

	for _, rf := range refFreqs {
		err := ref.SetFrequency(rf.freq)
		if err != nil {
			t.Fatalf("could not set %dHz: %+v", rf.freq, err)
		}
		for _, tc := range []struct {
			reg  uint16
			want uint16
		}{
			{regs.RefFreqBase, rf.base},
			{regs.RefFreqMult, rf.mult},
			{regs.RefRatioM, rf.m},
			{regs.RefRatioN, rf.n},
		} {
			if got := sim.BankReg(zlsim.Ref, 6, tc.reg, 2); got != uint64(tc.want) {
				t.Fatalf("%dHz: invalid register 0x%04x: got=%d, want=%d", rf.freq, tc.reg, got, tc.want)
			}
		}
		got, err := ref.Frequency()
		if err != nil {
			t.Fatalf("could not read frequency: %+v", err)
		}
		if got != rf.freq {
			t.Fatalf("invalid frequency: got=%d, want=%d", got, rf.freq)
		}
	}

	err := ref.SetFrequency(12345)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("invalid error: %+v", err)
	}

	sim.SetBankReg(zlsim.Ref, 6, regs.RefFreqBase, 12345, 2)
	sim.SetBankReg(zlsim.Ref, 6, regs.RefFreqMult, 1, 2)
	_, err = ref.Frequency()
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("invalid error for an unknown frequency: %+v", err)
	}

	sim.SetBankReg(zlsim.Ref, 6, regs.RefRatioN, 0, 2)
	_, err = ref.Frequency()
	if !errors.Is(err, ErrRange) {
		t.Fatalf("invalid error for a null denominator: %+v", err)
	}
}

func TestOutputFrequency(t *testing.T) {
	dev, sim := newTestSim(t)
	out, _ := dev.Output(2) // pair #1, 1GHz synth.

	if got, want := out.Frequencies(), ptpFrequencies; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid frequencies: got=%v, want=%v", got, want)
	}

	for _, freq := range []uint64{1, 1000, 10000000, 25000000} {
		err := out.SetFrequency(freq)
		if err != nil {
			t.Fatalf("could not set %dHz: %+v", freq, err)
		}
		div := 1000000000 / freq
		if got := sim.BankReg(zlsim.Output, 1, regs.OutputDiv, 4); got != div {
			t.Fatalf("%dHz: invalid divisor: got=%d, want=%d", freq, got, div)
		}
		got, err := out.Frequency()
		if err != nil {
			t.Fatalf("could not read frequency: %+v", err)
		}
		if got != freq {
			t.Fatalf("invalid frequency: got=%d, want=%d", got, freq)
		}
	}

	err := out.SetFrequency(50)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("invalid error: %+v", err)
	}

	sim.SetSynth(0, 10000, 1000, 1, 1)
	err = out.SetFrequency(25000000)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("invalid error for a frequency above the synth one: %+v", err)
	}

	sim.SetBankReg(zlsim.Output, 1, regs.OutputDiv, 3, 4)
	_, err = out.Frequency()
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("invalid error for an unknown frequency: %+v", err)
	}

	sim.SetBankReg(zlsim.Output, 1, regs.OutputDiv, 0, 4)
	_, err = out.Frequency()
	if !errors.Is(err, ErrRange) {
		t.Fatalf("invalid error for a null divisor: %+v", err)
	}
}

func TestFixedFrequency(t *testing.T) {
	dev, _ := newTestSim(t)

	for _, tc := range []struct {
		out  int
		want uint64
	}{
		{6, 156250000},
		{11, 156250000},
		{19, 25000000},
	} {
		out, _ := dev.Output(tc.out)
		if got, want := out.Frequencies(), []uint64{tc.want}; !reflect.DeepEqual(got, want) {
			t.Fatalf("%v: invalid frequencies: got=%v, want=%v", out, got, want)
		}
		_, err := out.Frequency()
		if !errors.Is(err, ErrUnsupported) {
			t.Fatalf("%v: invalid error: %+v", out, err)
		}
		err = out.SetFrequency(tc.want)
		if !errors.Is(err, ErrUnsupported) {
			t.Fatalf("%v: invalid error: %+v", out, err)
		}
	}
}

func TestDividedFrequency(t *testing.T) {
	dev, sim := newTestSim(t)
	p, _ := dev.Output(14) // pair #7, 1GHz synth.
	n, _ := dev.Output(15)

	err := n.SetFrequency(1)
	if err != nil {
		t.Fatalf("could not set N frequency: %+v", err)
	}
	err = p.SetFrequency(10000000)
	if err != nil {
		t.Fatalf("could not set P frequency: %+v", err)
	}

	for _, tc := range []struct {
		reg  uint16
		want uint64
	}{
		{regs.OutputDiv, 100},
		{regs.OutputWidth, 100},
		{regs.OutputEsyncDiv, 10000000},
		{regs.OutputEsyncPulseWidth, 10000000},
	} {
		if got := sim.BankReg(zlsim.Output, 7, tc.reg, 4); got != tc.want {
			t.Fatalf("invalid register 0x%04x: got=%d, want=%d", tc.reg, got, tc.want)
		}
	}

	for _, tc := range []struct {
		pin  *Pin
		want uint64
	}{
		{p, 10000000},
		{n, 1},
	} {
		got, err := tc.pin.Frequency()
		if err != nil {
			t.Fatalf("%v: could not read frequency: %+v", tc.pin, err)
		}
		if got != tc.want {
			t.Fatalf("%v: invalid frequency: got=%d, want=%d", tc.pin, got, tc.want)
		}
	}

	err = n.SetFrequency(25000000)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("invalid error for N above P: %+v", err)
	}
	err = p.SetFrequency(1)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("invalid error for P below N: %+v", err)
	}
}
