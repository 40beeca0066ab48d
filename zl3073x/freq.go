// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"
	"slices"

	"github.com/go-lpc/zldpll/internal/regs"
)

// Frequency returns the frequency of the pin, in Hz.
func (p *Pin) Frequency() (uint64, error) {
	if p.isFixed() {
		return 0, fmt.Errorf("zl3073x: could not read frequency of %s: %w: fixed frequency output", p.name, ErrUnsupported)
	}

	s := p.dev.lock()
	defer p.dev.unlock()

	var freq uint64
	switch p.dir {
	case Input:
		freq = s.refFrequency(p.id)
	case Output:
		freq = s.outputFrequency(p)
		if s.err == nil && !slices.Contains(p.Frequencies(), freq) {
			s.err = fmt.Errorf("%w: output has an unknown frequency %dHz", ErrUnsupported, freq)
		}
	}
	if s.err != nil {
		return 0, fmt.Errorf("zl3073x: could not read frequency of %s: %w", p.name, s.err)
	}
	return freq, nil
}

func (s *seq) refFrequency(ref int) uint64 {
	s.mbRead(mbRef, ref)
	rf := refFreq{
		base: uint16(s.rN(regs.RefFreqBase, 2)),
		mult: uint16(s.rN(regs.RefFreqMult, 2)),
		m:    uint16(s.rN(regs.RefRatioM, 2)),
		n:    uint16(s.rN(regs.RefRatioN, 2)),
	}
	if s.err != nil {
		return 0
	}
	if rf.n == 0 {
		s.err = fmt.Errorf("%w: ref #%d has a null ratio denominator", ErrRange, ref)
		return 0
	}
	freq := rf.value()
	if _, ok := lookupRefFreq(freq); !ok {
		s.err = fmt.Errorf("%w: ref #%d has an unknown frequency %dHz", ErrUnsupported, ref, freq)
		return 0
	}
	return freq
}

func (s *seq) outputFrequency(p *Pin) uint64 {
	pair := p.pair()
	synth := s.pairFreq(pair)
	s.mbRead(mbOutput, pair)
	div := s.rN(regs.OutputDiv, 4)
	if s.err != nil {
		return 0
	}
	if div == 0 {
		s.err = fmt.Errorf("%w: output pair #%d has a null divisor", ErrRange, pair)
		return 0
	}
	freq := synth / div
	if outputSignals[pair] != SingleEndedDivided || p.isP() {
		return freq
	}

	ndiv := s.rN(regs.OutputEsyncDiv, 4)
	if s.err != nil {
		return 0
	}
	if ndiv == 0 {
		s.err = fmt.Errorf("%w: output pair #%d has a null N divisor", ErrRange, pair)
		return 0
	}
	return freq / ndiv
}

// SetFrequency sets the frequency of the pin, in Hz.
func (p *Pin) SetFrequency(freq uint64) error {
	if p.isFixed() {
		return fmt.Errorf("zl3073x: could not set frequency of %s: %w: fixed frequency output", p.name, ErrUnsupported)
	}
	if !slices.Contains(p.Frequencies(), freq) {
		return fmt.Errorf("zl3073x: could not set frequency of %s: %w: %dHz", p.name, ErrUnsupported, freq)
	}

	s := p.dev.lock()
	defer p.dev.unlock()

	switch p.dir {
	case Input:
		s.setRefFrequency(p.id, freq)
	case Output:
		s.setOutputFrequency(p, freq)
	}
	if s.err != nil {
		return fmt.Errorf("zl3073x: could not set frequency of %s: %w", p.name, s.err)
	}
	return nil
}

func (s *seq) setRefFrequency(ref int, freq uint64) {
	rf, _ := lookupRefFreq(freq)
	s.mbRead(mbRef, ref)
	s.wN(regs.RefFreqBase, uint64(rf.base), 2)
	s.wN(regs.RefFreqMult, uint64(rf.mult), 2)
	s.wN(regs.RefRatioM, uint64(rf.m), 2)
	s.wN(regs.RefRatioN, uint64(rf.n), 2)
	s.mbWrite(mbRef, ref)
}

func (s *seq) setOutputFrequency(p *Pin, freq uint64) {
	pair := p.pair()
	synth := s.pairFreq(pair)
	if s.err != nil {
		return
	}
	if freq > synth {
		s.err = fmt.Errorf("%w: %dHz above synth frequency %dHz", ErrInvalidArgument, freq, synth)
		return
	}

	s.mbRead(mbOutput, pair)
	if outputSignals[pair] != SingleEndedDivided {
		div := synth / freq
		s.wN(regs.OutputDiv, div, 4)
		s.wN(regs.OutputWidth, div, 4)
		s.mbWrite(mbOutput, pair)
		return
	}

	// the N half of a divided pair runs at the P frequency divided by
	// the esync divisor.
	div := s.rN(regs.OutputDiv, 4)
	ndiv := s.rN(regs.OutputEsyncDiv, 4)
	if s.err != nil {
		return
	}
	if div == 0 || ndiv == 0 {
		s.err = fmt.Errorf("%w: output pair #%d has a null divisor (div=%d, n-div=%d)", ErrRange, pair, div, ndiv)
		return
	}
	pfreq := synth / div
	nfreq := pfreq / ndiv

	switch {
	case p.isP():
		if nfreq == 0 {
			s.err = fmt.Errorf("%w: output pair #%d has a null N frequency", ErrRange, pair)
			return
		}
		if freq <= nfreq {
			s.err = fmt.Errorf("%w: P frequency %dHz must exceed N frequency %dHz", ErrInvalidArgument, freq, nfreq)
			return
		}
		div = synth / freq
		ndiv = freq / nfreq
		s.wN(regs.OutputDiv, div, 4)
		s.wN(regs.OutputWidth, div, 4)
	default:
		if pfreq <= freq {
			s.err = fmt.Errorf("%w: P frequency %dHz must exceed N frequency %dHz", ErrInvalidArgument, pfreq, freq)
			return
		}
		ndiv = pfreq / freq
	}
	s.wN(regs.OutputEsyncDiv, ndiv, 4)
	s.wN(regs.OutputEsyncPulseWidth, ndiv, 4)
	s.mbWrite(mbOutput, pair)
}
