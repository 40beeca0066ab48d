// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"

	"github.com/go-lpc/zldpll/internal/regs"
)

// FFO returns the fractional frequency offset of the input reference
// relative to the DPLL, in units of 2^-32.
func (d *DPLL) FFO(ref *Pin) (int64, error) {
	if err := ref.input(); err != nil {
		return 0, fmt.Errorf("zl3073x: could not measure FFO: %w", err)
	}

	s := d.dev.lock()
	defer d.dev.unlock()

	s.poll(regs.RefFreqMeasCtrl, regs.RefFreqMeasCtrlMask)
	s.w8(regs.DPLLMeasRefFreqCtrl, uint8(d.id)<<4|1)
	if ref.id < 8 {
		s.w8(regs.RefFreqMeasMask30, 1<<uint(ref.id))
	} else {
		s.w8(regs.RefFreqMeasMask4, 1<<uint(ref.id-8))
	}
	s.w8(regs.RefFreqMeasCtrl, regs.RefFreqMeasRqst)
	s.poll(regs.RefFreqMeasCtrl, regs.RefFreqMeasCtrlMask)
	raw := s.rN(regs.RefFreqErr+uint16(ref.id*regs.RefFreqErrStride), regs.RefFreqErrSize)
	if s.err != nil {
		return 0, fmt.Errorf("zl3073x: could not measure FFO of %s on %v: %w", ref.name, d, s.err)
	}
	return signExtend(raw, 8*regs.RefFreqErrSize), nil
}

// PhaseOffset returns the phase offset between the input reference and
// the DPLL, in ps.
func (d *DPLL) PhaseOffset(ref *Pin) (int64, error) {
	if err := ref.input(); err != nil {
		return 0, fmt.Errorf("zl3073x: could not measure phase offset: %w", err)
	}

	s := d.dev.lock()
	defer d.dev.unlock()

	s.poll(regs.RefPhaseErrRqst, regs.RefPhaseErrRqstMask)
	s.w8(regs.DPLLMeasIdx, uint8(d.id)&regs.DPLLMeasIdxMask)
	s.rmw8(regs.DPLLMeasCtrl, func(v uint8) uint8 {
		return v | regs.DPLLMeasCtrlEn
	})
	s.w8(regs.RefPhaseErrRqst, regs.RefPhaseErrRqstMask)
	s.poll(regs.RefPhaseErrRqst, regs.RefPhaseErrRqstMask)
	raw := s.rN(regs.RefPhaseErr+uint16(ref.id*regs.RefPhaseErrStride), regs.RefPhaseErrSize)
	if s.err != nil {
		return 0, fmt.Errorf("zl3073x: could not measure phase offset of %s on %v: %w", ref.name, d, s.err)
	}
	return signExtend(raw, 8*regs.RefPhaseErrSize) / regs.PhaseErrUnitsPS, nil
}
