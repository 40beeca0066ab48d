// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"

	"github.com/go-lpc/zldpll/internal/regs"
)

// halfCycle returns half a period of the provided frequency, in ps.
func halfCycle(freq uint64) int64 {
	if freq == 0 {
		return 0
	}
	return int64(1000000000000 / (2 * freq))
}

// PhaseAdjust returns the static phase compensation of the pin, in ps.
func (p *Pin) PhaseAdjust() (int32, error) {
	s := p.dev.lock()
	defer p.dev.unlock()

	var (
		v  int32
		ok bool
	)
	switch p.dir {
	case Input:
		s.mbRead(mbRef, p.id)
		raw := s.rN(regs.RefPhaseOffsetComp, regs.RefPhaseOffsetCompSize)
		if s.err != nil {
			break
		}
		v, ok = negInt32(signExtend(raw, 8*regs.RefPhaseOffsetCompSize))
		if !ok {
			s.err = fmt.Errorf("%w: phase compensation 0x%012x", ErrRange, raw)
		}

	case Output:
		half := halfCycle(s.pairFreq(p.pair()))
		s.mbRead(mbOutput, p.pair())
		raw := s.rN(regs.OutputPhaseComp, 4)
		if s.err != nil {
			break
		}
		if half == 0 {
			s.err = fmt.Errorf("%w: null half synth cycle", ErrRange)
			break
		}
		v, ok = negInt32(int64(int32(uint32(raw))) * half)
		if !ok {
			s.err = fmt.Errorf("%w: phase compensation 0x%08x (x %dps)", ErrRange, raw, half)
		}
	}

	if s.err != nil {
		return 0, fmt.Errorf("zl3073x: could not read phase adjustment of %s: %w", p.name, s.err)
	}
	return v, nil
}

// SetPhaseAdjust sets the static phase compensation of the pin, in ps.
// Output compensations must be a multiple of half a synthesizer cycle.
func (p *Pin) SetPhaseAdjust(v int32) error {
	s := p.dev.lock()
	defer p.dev.unlock()

	switch p.dir {
	case Input:
		raw := twos(-int64(v), 8*regs.RefPhaseOffsetCompSize)
		s.mbRead(mbRef, p.id)
		s.wN(regs.RefPhaseOffsetComp, raw, regs.RefPhaseOffsetCompSize)
		s.mbWrite(mbRef, p.id)

	case Output:
		half := halfCycle(s.pairFreq(p.pair()))
		if s.err != nil {
			break
		}
		if half == 0 {
			s.err = fmt.Errorf("%w: null half synth cycle", ErrRange)
			break
		}
		if int64(v)%half != 0 {
			s.err = fmt.Errorf("%w: %dps is not a multiple of %dps", ErrRange, v, half)
			break
		}
		raw := twos(-(int64(v) / half), 32)
		s.mbRead(mbOutput, p.pair())
		s.wN(regs.OutputPhaseComp, raw, 4)
		s.mbWrite(mbOutput, p.pair())
	}

	if s.err != nil {
		return fmt.Errorf("zl3073x: could not set phase adjustment of %s: %w", p.name, s.err)
	}
	return nil
}
