// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"

	"github.com/go-lpc/zldpll/internal/regs"
)

// PriorityNone marks a reference that can not be selected.
const PriorityNone = regs.RefPriorityInvalid

// packPriority stores the 4-bit prio of reference ref into the
// priority byte holding it.
// Even references use the low nibble, odd references the high one.
func packPriority(v uint8, ref int, prio uint8) uint8 {
	prio &= regs.RefPriorityMask
	if ref%2 == 0 {
		return v&^regs.RefPriorityMask | prio
	}
	return v&regs.RefPriorityMask | prio<<4
}

// unpackPriority extracts the priority of reference ref.
func unpackPriority(v uint8, ref int) uint8 {
	if ref%2 == 0 {
		return v & regs.RefPriorityMask
	}
	return v >> 4
}

func priorityReg(ref int) uint16 {
	return regs.RefPriority + uint16(ref/2)
}

func (s *seq) priority(dpll, ref int) uint8 {
	s.mbRead(mbDPLL, dpll)
	v := s.r8(priorityReg(ref))
	return unpackPriority(v, ref)
}

// Priority returns the priority of the input reference for this DPLL.
// Lower values have higher priority.
func (d *DPLL) Priority(ref *Pin) (uint8, error) {
	if err := ref.input(); err != nil {
		return 0, fmt.Errorf("zl3073x: could not read priority: %w", err)
	}

	s := d.dev.lock()
	defer d.dev.unlock()

	prio := s.priority(d.id, ref.id)
	if s.err != nil {
		return 0, fmt.Errorf("zl3073x: could not read priority of %s on %v: %w", ref.name, d, s.err)
	}
	return prio, nil
}

// SetPriority sets the priority of the input reference for this DPLL.
// PriorityNone makes the reference not selectable.
func (d *DPLL) SetPriority(ref *Pin, prio uint8) error {
	if err := ref.input(); err != nil {
		return fmt.Errorf("zl3073x: could not set priority: %w", err)
	}
	if prio > PriorityNone {
		return fmt.Errorf("zl3073x: could not set priority of %s: %w: %d", ref.name, ErrInvalidArgument, prio)
	}

	s := d.dev.lock()
	defer d.dev.unlock()

	s.mbRead(mbDPLL, d.id)
	s.rmw8(priorityReg(ref.id), func(v uint8) uint8 {
		return packPriority(v, ref.id, prio)
	})
	s.mbWrite(mbDPLL, d.id)
	if s.err != nil {
		return fmt.Errorf("zl3073x: could not set priority of %s on %v: %w", ref.name, d, s.err)
	}
	return nil
}
