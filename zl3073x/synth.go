// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"

	"github.com/go-lpc/zldpll/internal/regs"
)

// synthFreq returns the output frequency of a synthesizer, in Hz.
func (s *seq) synthFreq(synth int) uint64 {
	s.mbRead(mbSynth, synth)
	base := s.rN(regs.SynthFreqBase, 2)
	mult := s.rN(regs.SynthFreqMult, 4)
	m := s.rN(regs.SynthFreqM, 2)
	n := s.rN(regs.SynthFreqN, 2)
	if s.err != nil {
		return 0
	}
	if n == 0 {
		s.err = fmt.Errorf("%w: synth #%d has a null ratio denominator", ErrRange, synth)
		return 0
	}
	return base * mult * m / n
}

// pairSynth returns the synthesizer driving an output pair.
func (s *seq) pairSynth(pair int) int {
	v := s.r8(regs.OutputCtrl + uint16(pair))
	return int(v&regs.OutputCtrlSynthMask) >> regs.OutputCtrlSynthShift
}

// pairFreq returns the frequency of the synthesizer driving an output pair.
func (s *seq) pairFreq(pair int) uint64 {
	synth := s.pairSynth(pair)
	if s.err != nil {
		return 0
	}
	if synth >= regs.NumSynths {
		s.err = fmt.Errorf("%w: output pair #%d driven by invalid synth #%d", ErrRange, pair, synth)
		return 0
	}
	return s.synthFreq(synth)
}

// SynthFrequency returns the output frequency of a synthesizer, in Hz.
func (dev *Device) SynthFrequency(synth int) (uint64, error) {
	if synth < 0 || synth >= regs.NumSynths {
		return 0, fmt.Errorf("zl3073x: invalid synth index %d: %w", synth, ErrInvalidArgument)
	}

	s := dev.lock()
	defer dev.unlock()

	freq := s.synthFreq(synth)
	if s.err != nil {
		return 0, fmt.Errorf("zl3073x: could not read frequency of synth #%d: %w", synth, s.err)
	}
	return freq, nil
}

// refFreq is the register encoding of an input reference frequency.
type refFreq struct {
	freq uint64
	base uint16
	mult uint16
	m    uint16
	n    uint16
}

var refFreqs = []refFreq{
	{freq: 1, base: 1, mult: 1, m: 1, n: 1},
	{freq: 25, base: 1, mult: 25, m: 1, n: 1},
	{freq: 100, base: 1, mult: 100, m: 1, n: 1},
	{freq: 1000, base: 1, mult: 1000, m: 1, n: 1},
	{freq: 10000000, base: 10000, mult: 1000, m: 1, n: 1},
	{freq: 25000000, base: 25000, mult: 1000, m: 1, n: 1},
	{freq: 62500000, base: 20000, mult: 3125, m: 1, n: 1},
	{freq: 78125000, base: 15625, mult: 5000, m: 1, n: 1},
	{freq: 100000000, base: 20000, mult: 5000, m: 1, n: 1},
}

func lookupRefFreq(freq uint64) (refFreq, bool) {
	for _, rf := range refFreqs {
		if rf.freq == freq {
			return rf, true
		}
	}
	return refFreq{}, false
}

func (rf refFreq) value() uint64 {
	return uint64(rf.base) * uint64(rf.mult) * uint64(rf.m) / uint64(rf.n)
}
