// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"
	"slices"

	"github.com/go-lpc/zldpll/internal/regs"
)

// Esync is the embedded-sync configuration of a pin.
type Esync struct {
	Freq  uint64 // embedded pulse frequency in Hz, 0 when disabled
	Pulse uint32 // pulse duty cycle, in percent
}

// Esync returns the embedded-sync configuration of the pin.
func (p *Pin) Esync() (Esync, error) {
	s := p.dev.lock()
	defer p.dev.unlock()

	var esync Esync
	switch p.dir {
	case Input:
		esync = s.refEsync(p.id)
	case Output:
		esync = s.outputEsync(p)
	}
	if s.err != nil {
		return Esync{}, fmt.Errorf("zl3073x: could not read esync of %s: %w", p.name, s.err)
	}
	return esync, nil
}

func (s *seq) refEsync(ref int) Esync {
	s.mbRead(mbRef, ref)
	ctrl := s.r8(regs.RefSyncCtrl)
	div := s.rN(regs.RefEsyncDiv, 4)
	if s.err != nil {
		return Esync{}
	}
	if ctrl&regs.RefSyncCtrlModeMask != regs.RefSyncCtrlEsync {
		return Esync{Freq: 0, Pulse: 50}
	}
	var freq uint64
	if div == 0 {
		freq = 1
	}
	return Esync{Freq: freq, Pulse: 25}
}

func (s *seq) outputEsync(p *Pin) Esync {
	pair := p.pair()
	synth := s.pairFreq(pair)
	s.mbRead(mbOutput, pair)
	mode := s.r8(regs.OutputMode)
	if s.err != nil {
		return Esync{}
	}
	format := Format(mode&regs.OutputModeFormatMask) >> regs.OutputModeFormatShift
	if format.nDivided() || mode&regs.OutputModeClockMask != regs.OutputClockEsync {
		return Esync{Freq: 0, Pulse: 50}
	}

	div := s.rN(regs.OutputDiv, 4)
	esdiv := s.rN(regs.OutputEsyncDiv, 4)
	width := s.rN(regs.OutputEsyncPulseWidth, 4)
	if s.err != nil {
		return Esync{}
	}
	if div == 0 || esdiv == 0 {
		s.err = fmt.Errorf("%w: null output divisor (div=%d, esync-div=%d)", ErrRange, div, esdiv)
		return Esync{}
	}
	return Esync{
		Freq:  synth / div / esdiv,
		Pulse: uint32(50 * width / div),
	}
}

// SetEsync enables (freq=1) or disables (freq=0) the embedded sync of the pin.
func (p *Pin) SetEsync(freq uint64) error {
	if !slices.Contains(esyncFreqs, freq) {
		return fmt.Errorf("zl3073x: could not set esync of %s: %w: %dHz", p.name, ErrInvalidArgument, freq)
	}

	s := p.dev.lock()
	defer p.dev.unlock()

	switch p.dir {
	case Input:
		s.setRefEsync(p.id, freq)
	case Output:
		s.setOutputEsync(p, freq)
	}
	if s.err != nil {
		return fmt.Errorf("zl3073x: could not set esync of %s: %w", p.name, s.err)
	}
	return nil
}

func (s *seq) setRefEsync(ref int, freq uint64) {
	s.mbRead(mbRef, ref)
	s.rmw8(regs.RefSyncCtrl, func(v uint8) uint8 {
		v &^= regs.RefSyncCtrlModeMask
		if freq != 0 {
			v |= regs.RefSyncCtrlEsync
		}
		return v
	})
	if freq != 0 {
		s.wN(regs.RefEsyncDiv, 0, 4)
	}
	s.mbWrite(mbRef, ref)
}

func (s *seq) setOutputEsync(p *Pin, freq uint64) {
	pair := p.pair()
	synth := s.pairFreq(pair)
	s.mbRead(mbOutput, pair)
	mode := s.r8(regs.OutputMode)
	if s.err != nil {
		return
	}
	format := Format(mode&regs.OutputModeFormatMask) >> regs.OutputModeFormatShift
	if format.nDivided() {
		s.err = fmt.Errorf("%w: esync on an N-divided output", ErrUnsupported)
		return
	}

	mode &^= regs.OutputModeClockMask
	if freq == 0 {
		s.w8(regs.OutputMode, mode|regs.OutputClockNormal)
		s.mbWrite(mbOutput, pair)
		return
	}

	div := s.rN(regs.OutputDiv, 4)
	if s.err != nil {
		return
	}
	if div == 0 {
		s.err = fmt.Errorf("%w: null output divisor", ErrRange)
		return
	}
	s.w8(regs.OutputMode, mode|regs.OutputClockEsync)
	s.wN(regs.OutputEsyncDiv, synth/(div*freq), 4)
	s.wN(regs.OutputEsyncPulseWidth, div/2, 4)
	s.mbWrite(mbOutput, pair)
}
