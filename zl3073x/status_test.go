// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"errors"
	"testing"

	"github.com/go-lpc/zldpll/internal/regs"
)

func TestModeOf(t *testing.T) {
	for _, tc := range []struct {
		raw  uint8
		want Mode
		err  error
	}{
		{regs.ModeFreerun, 0, ErrUnsupported},
		{regs.ModeHoldover, ModeManual, nil},
		{regs.ModeRefLock, ModeManual, nil},
		{regs.ModeAutoLock, ModeAutomatic, nil},
		{regs.ModeNCO, 0, ErrUnsupported},
		{5, 0, ErrUnsupported},
		{7, 0, ErrUnsupported},
	} {
		got, err := modeOf(tc.raw)
		if !errors.Is(err, tc.err) {
			t.Fatalf("raw=%d: invalid error: got=%v, want=%v", tc.raw, err, tc.err)
		}
		if got != tc.want {
			t.Fatalf("raw=%d: invalid mode: got=%v, want=%v", tc.raw, got, tc.want)
		}
	}
}

func TestLockStatusOf(t *testing.T) {
	for _, tc := range []struct {
		raw     uint8
		hoReady bool
		want    LockStatus
		err     error
	}{
		{regs.LockFreerun, false, Unlocked, nil},
		{regs.LockFreerun, true, Unlocked, nil},
		{regs.LockHoldover, false, Holdover, nil},
		{regs.LockHoldover, true, Holdover, nil},
		{regs.LockFastLock, false, Unlocked, nil},
		{regs.LockAcquiring, true, Unlocked, nil},
		{regs.LockLocked, false, Locked, nil},
		{regs.LockLocked, true, LockedHoldoverAcquired, nil},
		{5, false, 0, ErrUnsupported},
		{7, true, 0, ErrUnsupported},
	} {
		got, err := lockStatusOf(tc.raw, tc.hoReady)
		if !errors.Is(err, tc.err) {
			t.Fatalf("raw=%d: invalid error: got=%v, want=%v", tc.raw, err, tc.err)
		}
		if got != tc.want {
			t.Fatalf("raw=%d, ho=%v: invalid status: got=%v, want=%v", tc.raw, tc.hoReady, got, tc.want)
		}
	}
}

func TestDPLLStatus(t *testing.T) {
	dev, sim := newTestSim(t)
	dpll, _ := dev.DPLL(1)
	modeReg := uint16(regs.ModeRefSel + regs.ModeRefSelStride)

	mode, err := dpll.Mode()
	if err != nil {
		t.Fatalf("could not read mode: %+v", err)
	}
	if got, want := mode, ModeAutomatic; got != want {
		t.Fatalf("invalid mode: got=%v, want=%v", got, want)
	}

	sim.SetReg(modeReg, 3<<regs.RefSelShift|regs.ModeRefLock, 1)
	mode, err = dpll.Mode()
	if err != nil {
		t.Fatalf("could not read mode: %+v", err)
	}
	if got, want := mode, ModeManual; got != want {
		t.Fatalf("invalid mode: got=%v, want=%v", got, want)
	}

	sim.SetReg(modeReg, regs.ModeNCO, 1)
	_, err = dpll.Mode()
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("invalid error: %+v", err)
	}

	for _, tc := range []struct {
		state uint8
		mon   uint8
		want  LockStatus
	}{
		{regs.LockLocked, 0, Locked},
		{regs.LockLocked, regs.DPLLMonStatusHOReady, LockedHoldoverAcquired},
		{regs.LockHoldover, regs.DPLLMonStatusHOReady, Holdover},
		{regs.LockAcquiring, 0, Unlocked},
	} {
		sim.SetReg(regs.LockRefSelStat+1, uint64(tc.state)<<regs.LockStateShift|2, 1)
		sim.SetReg(regs.DPLLMonStatus+1, uint64(tc.mon), 1)
		got, err := dpll.LockStatus()
		if err != nil {
			t.Fatalf("could not read lock status: %+v", err)
		}
		if got != tc.want {
			t.Fatalf("invalid lock status: got=%v, want=%v", got, tc.want)
		}
	}
}
