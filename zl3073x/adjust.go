// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/go-lpc/zldpll/internal/regs"
)

// dcoOffset converts a 16.16 fixed-point ppm value into a DCO offset.
func dcoOffset(scaledPPM int64) int64 {
	const k = regs.OnePPMFormat
	return k*(scaledPPM>>16) + (k*(scaledPPM&0xffff))>>16
}

// AdjFine trims the frequency of the DPLL by scaledPPM, a parts per
// million value with a 16-bit fractional part.
// A null adjustment does not access the chip.
func (d *DPLL) AdjFine(scaledPPM int64) error {
	if scaledPPM == 0 {
		return nil
	}

	if ppm := scaledPPM >> 16; ppm >= 1<<20 || ppm < -(1<<20) {
		return fmt.Errorf("zl3073x: could not adjust frequency of %v: %w: %d", d, ErrRange, scaledPPM)
	}

	off := -dcoOffset(scaledPPM)
	if !fits(off, 8*regs.DFOffsetSize) {
		return fmt.Errorf("zl3073x: could not adjust frequency of %v: %w: %d", d, ErrRange, scaledPPM)
	}

	s := d.dev.lock()
	defer d.dev.unlock()

	s.wN(regs.DPLLAddr(regs.DFOffset, d.id), twos(off, 8*regs.DFOffsetSize), regs.DFOffsetSize)
	if s.err != nil {
		return fmt.Errorf("zl3073x: could not adjust frequency of %v: %w", d, s.err)
	}
	return nil
}

// AdjPhase steps the phase of the DPLL by injecting a time interval error.
// The step must lie within one second.
func (d *DPLL) AdjPhase(delta time.Duration) error {
	if delta < -time.Second || delta > time.Second {
		return fmt.Errorf("zl3073x: could not adjust phase of %v: %w: %v", d, ErrInvalidArgument, delta)
	}

	// TIE data is in units of 0.01 ps.
	tie := int64(delta%time.Second) * 100000

	s := d.dev.lock()
	defer d.dev.unlock()

	s.w8(regs.TIECtrlDPLLEn, 1<<uint(d.id))
	s.poll(regs.TIECtrl, regs.TIECtrlMask)
	s.wN(regs.DPLLAddr(regs.TIEData, d.id), twos(tie, 8*regs.TIEDataSize), regs.TIEDataSize)
	s.w8(regs.TIECtrl, regs.TIECtrlWrite)
	s.poll(regs.TIECtrl, regs.TIECtrlMask)
	if s.err != nil {
		return fmt.Errorf("zl3073x: could not adjust phase of %v: %w", d, s.err)
	}
	return nil
}

// stepUnits converts a sub-second time step into synthesizer cycles.
func stepUnits(delta int64, freq uint64) (int32, bool) {
	v := delta * int64(freq) / nsPerSec
	if !fits(v, 32) {
		return 0, false
	}
	return int32(v), true
}

// stepTime steps the periodic outputs of the DPLL and its time-of-day
// by a sub-second delta, in ns.
func (d *DPLL) stepTime(s *seq, delta int64) {
	if s.err != nil {
		return
	}
	if d.perout == 0 {
		s.err = fmt.Errorf("%w: no periodic output enabled on %v", ErrUnsupported, d)
		return
	}

	s.poll(regs.OutputPhaseStepCtrl, regs.OutputPhaseStepOpMask)
	s.w8(regs.OutputPhaseStepNumber, 1)

	pair := bits.TrailingZeros16(d.perout)
	freq := s.pairFreq(pair)
	if s.err != nil {
		return
	}

	units, ok := stepUnits(delta, freq)
	if !ok {
		s.err = fmt.Errorf("%w: phase step of %dns at %dHz", ErrRange, delta, freq)
		return
	}

	s.wN(regs.OutputPhaseStepData, uint64(uint32(units)), 4)
	s.wN(regs.OutputPhaseStepMask, uint64(d.perout), 2)
	s.w8(
		regs.OutputPhaseStepCtrl,
		uint8(d.id)<<regs.OutputPhaseStepDPLLShft|regs.OutputPhaseStepOpWrite|regs.OutputPhaseStepTOD,
	)
}

// AdjTime steps the time of the DPLL by delta.
//
// Whole seconds are applied to the time-of-day at the next 1PPS edge.
// The sub-second remainder is applied with a phase step of the periodic
// outputs of the DPLL.
func (d *DPLL) AdjTime(delta time.Duration) error {
	s := d.dev.lock()
	defer d.dev.unlock()

	ns := int64(delta)
	if ns >= nsPerSec || ns <= -nsPerSec {
		// the sample that saw the rollover already holds the next-second
		// time, no extra read-next is issued.
		sec, nsec := s.waitRollover(d.id)
		if s.err == nil {
			v := int64(sec) + ns/nsPerSec
			if v < 0 || v > maxTOD {
				s.err = fmt.Errorf("%w: time-of-day %ds", ErrRange, v)
			}
			s.writeTOD(d.id, uint64(v), nsec)
			s.poll(regs.TODCtrlAddr(d.id), regs.TODCtrlSem)
		}
	}

	if rem := ns % nsPerSec; rem != 0 {
		d.stepTime(s, rem)
	}

	if s.err != nil {
		return fmt.Errorf("zl3073x: could not adjust time of %v by %v: %w", d, delta, s.err)
	}
	return nil
}
