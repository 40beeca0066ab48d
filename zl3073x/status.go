// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"

	"github.com/go-lpc/zldpll/internal/regs"
)

// Mode is the reference selection mode of a DPLL.
type Mode uint8

const (
	ModeManual Mode = iota + 1
	ModeAutomatic
)

func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeAutomatic:
		return "automatic"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// LockStatus is the lock status of a DPLL.
type LockStatus uint8

const (
	Unlocked LockStatus = iota + 1
	Locked
	LockedHoldoverAcquired
	Holdover
)

func (ls LockStatus) String() string {
	switch ls {
	case Unlocked:
		return "unlocked"
	case Locked:
		return "locked"
	case LockedHoldoverAcquired:
		return "locked-ho-acq"
	case Holdover:
		return "holdover"
	}
	return fmt.Sprintf("LockStatus(%d)", uint8(ls))
}

// modeOf maps a raw DPLL mode onto a selection mode.
func modeOf(raw uint8) (Mode, error) {
	switch raw {
	case regs.ModeHoldover, regs.ModeRefLock:
		return ModeManual, nil
	case regs.ModeAutoLock:
		return ModeAutomatic, nil
	case regs.ModeFreerun, regs.ModeNCO:
		return 0, fmt.Errorf("%w: DPLL mode %d has no selection mode", ErrUnsupported, raw)
	}
	return 0, fmt.Errorf("%w: unknown DPLL mode %d", ErrUnsupported, raw)
}

// lockStatusOf maps a raw lock state onto a lock status.
func lockStatusOf(raw uint8, hoReady bool) (LockStatus, error) {
	switch raw {
	case regs.LockFreerun, regs.LockFastLock, regs.LockAcquiring:
		return Unlocked, nil
	case regs.LockHoldover:
		return Holdover, nil
	case regs.LockLocked:
		if hoReady {
			return LockedHoldoverAcquired, nil
		}
		return Locked, nil
	}
	return 0, fmt.Errorf("%w: unknown lock state %d", ErrUnsupported, raw)
}

func (s *seq) rawMode(dpll int) uint8 {
	return s.r8(regs.ModeRefSel+uint16(dpll*regs.ModeRefSelStride)) & regs.ModeMask
}

// Mode returns the reference selection mode of the DPLL.
func (d *DPLL) Mode() (Mode, error) {
	s := d.dev.lock()
	defer d.dev.unlock()

	raw := s.rawMode(d.id)
	if s.err != nil {
		return 0, fmt.Errorf("zl3073x: could not read mode of %v: %w", d, s.err)
	}
	mode, err := modeOf(raw)
	if err != nil {
		return 0, fmt.Errorf("zl3073x: could not read mode of %v: %w", d, err)
	}
	return mode, nil
}

// LockStatus returns the lock status of the DPLL.
func (d *DPLL) LockStatus() (LockStatus, error) {
	s := d.dev.lock()
	defer d.dev.unlock()

	v := s.r8(regs.LockRefSelStat + uint16(d.id))
	raw := (v & regs.LockStateMask) >> regs.LockStateShift
	hoReady := false
	if raw == regs.LockLocked {
		mon := s.r8(regs.DPLLMonStatus + uint16(d.id))
		hoReady = mon&regs.DPLLMonStatusHOReady != 0
	}
	if s.err != nil {
		return 0, fmt.Errorf("zl3073x: could not read lock status of %v: %w", d, s.err)
	}
	st, err := lockStatusOf(raw, hoReady)
	if err != nil {
		return 0, fmt.Errorf("zl3073x: could not read lock status of %v: %w", d, err)
	}
	return st, nil
}
