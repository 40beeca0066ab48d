// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"

	"github.com/go-lpc/zldpll/internal/regs"
)

// PinState is the state of a pin with regard to a DPLL.
type PinState uint8

const (
	Disconnected PinState = iota + 1
	Connected
	Selectable
)

func (st PinState) String() string {
	switch st {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Selectable:
		return "selectable"
	}
	return fmt.Sprintf("PinState(%d)", uint8(st))
}

// PinState returns the state of the pin with regard to the DPLL.
func (d *DPLL) PinState(p *Pin) (PinState, error) {
	s := d.dev.lock()
	defer d.dev.unlock()

	var st PinState
	switch p.dir {
	case Input:
		st = s.inputState(d.id, p.id)
	case Output:
		st = s.outputState(d.id, p.pair())
	}
	if s.err != nil {
		return 0, fmt.Errorf("zl3073x: could not read state of %s on %v: %w", p.name, d, s.err)
	}
	return st, nil
}

func (s *seq) inputState(dpll, ref int) PinState {
	mon := s.r8(regs.RefMonStatus + uint16(ref))
	if s.err != nil || mon != regs.RefMonStatusOK {
		return Disconnected
	}

	v := s.r8(regs.ModeRefSel + uint16(dpll*regs.ModeRefSelStride))
	if s.err != nil {
		return 0
	}
	if v&regs.ModeMask != regs.ModeAutoLock {
		forced := int(v&regs.RefSelMask) >> regs.RefSelShift
		if forced == ref {
			return Connected
		}
		return Disconnected
	}

	sel := s.r8(regs.LockRefSelStat + uint16(dpll))
	if s.err != nil {
		return 0
	}
	if int(sel&regs.SelRefMask) == ref {
		return Connected
	}
	if s.priority(dpll, ref) != PriorityNone {
		return Selectable
	}
	return Disconnected
}

func (s *seq) outputState(dpll, pair int) PinState {
	synth := s.pairSynth(pair)
	if s.err != nil || synth >= regs.NumSynths {
		return Disconnected
	}
	ctrl := s.r8(regs.SynthCtrl + uint16(synth))
	if int(ctrl&regs.SynthCtrlDPLLMask)>>regs.SynthCtrlDPLLShift == dpll {
		return Connected
	}
	return Disconnected
}
