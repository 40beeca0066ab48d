// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"
	"time"
)

// DPLL is one of the digital phase-locked loops of the chip.
//
// DPLL #0 is the frequency-only EEC loop, DPLL #1 the time and frequency
// PPS loop.
type DPLL struct {
	dev *Device
	id  int

	perout uint16 // output pairs serving as 1PPS outputs
}

// Index returns the index of the DPLL.
func (d *DPLL) Index() int { return d.id }

// Type returns the role of the DPLL.
func (d *DPLL) Type() string {
	if d.id == 0 {
		return "eec"
	}
	return "pps"
}

func (d *DPLL) String() string {
	return fmt.Sprintf("dpll-%d[%s]", d.id, d.Type())
}

// PeroutMask returns the bitmask of output pairs serving as periodic
// outputs of this DPLL.
func (d *DPLL) PeroutMask() uint16 {
	d.dev.mu.Lock()
	defer d.dev.mu.Unlock()
	return d.perout
}

// TimeSource is a hardware clock with an absolute time.
type TimeSource interface {
	Time() (time.Time, error)
	SetTime(t time.Time) error
	AdjTime(delta time.Duration) error
}

// FrequencyAdjustable is a clock whose frequency can be trimmed.
type FrequencyAdjustable interface {
	AdjFine(scaledPPM int64) error
}

// PhaseAdjustable is a clock whose phase can be stepped.
type PhaseAdjustable interface {
	AdjPhase(delta time.Duration) error
}

// PriorityConfigurable is a DPLL whose references can be prioritized.
type PriorityConfigurable interface {
	Priority(ref *Pin) (uint8, error)
	SetPriority(ref *Pin, prio uint8) error
}

// PhaseCompensated is a pin with a static phase compensation.
type PhaseCompensated interface {
	PhaseAdjust() (int32, error)
	SetPhaseAdjust(v int32) error
}

var (
	_ TimeSource           = (*DPLL)(nil)
	_ FrequencyAdjustable  = (*DPLL)(nil)
	_ PhaseAdjustable      = (*DPLL)(nil)
	_ PriorityConfigurable = (*DPLL)(nil)
	_ PhaseCompensated     = (*Pin)(nil)
)
