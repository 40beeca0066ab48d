// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"
	"time"

	"github.com/go-lpc/zldpll/internal/regs"
)

const (
	nsPerSec = 1000000000
	maxTOD   = 1<<48 - 1
)

// normalize carries nanoseconds above one second into seconds.
func normalize(sec, nsec uint64) (uint64, uint64) {
	sec += nsec / nsPerSec
	nsec %= nsPerSec
	return sec, nsec
}

// readTOD issues the provided TOD command and decodes the latched time.
func (s *seq) readTOD(dpll int, cmd uint8) (sec, nsec uint64) {
	ctrl := regs.TODCtrlAddr(dpll)
	s.poll(ctrl, regs.TODCtrlSem)
	s.w8(ctrl, regs.TODCtrlSem|cmd)
	s.poll(ctrl, regs.TODCtrlSem)

	sec = s.rN(regs.DPLLAddr(regs.TODSec, dpll), regs.TODSize)
	nsec = s.rN(regs.DPLLAddr(regs.TODNsec, dpll), 4)
	if s.err != nil {
		return 0, 0
	}
	return normalize(sec, nsec)
}

// writeTOD schedules the provided time for the next 1PPS edge.
func (s *seq) writeTOD(dpll int, sec, nsec uint64) {
	ctrl := regs.TODCtrlAddr(dpll)
	s.poll(ctrl, regs.TODCtrlSem)
	s.wN(regs.DPLLAddr(regs.TODSec, dpll), sec, regs.TODSize)
	// only the 4 most significant bytes hold nanoseconds.
	s.wN(regs.DPLLAddr(regs.TODNsec, dpll), nsec<<16, regs.TODSize)
	s.w8(ctrl, regs.TODCtrlSem|regs.TODCmdWriteNext)
}

// waitRollover waits for the next second and returns the time the chip
// predicts for the following 1PPS edge.
func (s *seq) waitRollover(dpll int) (sec, nsec uint64) {
	s.dev.rollovers++

	var (
		cfg      = s.dev.cfg
		deadline = time.Now().Add(cfg.timeout)
	)
	sec0, _ := s.readTOD(dpll, regs.TODCmdReadNext)
	for s.err == nil {
		time.Sleep(cfg.rollover)
		sec, nsec = s.readTOD(dpll, regs.TODCmdReadNext)
		if s.err != nil {
			break
		}
		if sec > sec0 {
			return sec, nsec
		}
		if time.Now().After(deadline) {
			s.err = fmt.Errorf("%w: no TOD rollover after %v", ErrTimeout, cfg.timeout)
		}
	}
	return 0, 0
}

// Time returns the current time-of-day of the DPLL.
func (d *DPLL) Time() (time.Time, error) {
	s := d.dev.lock()
	defer d.dev.unlock()

	sec, nsec := s.readTOD(d.id, regs.TODCmdRead)
	if s.err != nil {
		return time.Time{}, fmt.Errorf("zl3073x: could not read time of %v: %w", d, s.err)
	}
	return time.Unix(int64(sec), int64(nsec)), nil
}

// NextTime returns the time the chip predicts for the next 1PPS edge.
func (d *DPLL) NextTime() (time.Time, error) {
	s := d.dev.lock()
	defer d.dev.unlock()

	sec, nsec := s.readTOD(d.id, regs.TODCmdReadNext)
	if s.err != nil {
		return time.Time{}, fmt.Errorf("zl3073x: could not read next time of %v: %w", d, s.err)
	}
	return time.Unix(int64(sec), int64(nsec)), nil
}

// SetTime sets the time-of-day of the DPLL.
// The time is applied at the next 1PPS edge.
func (d *DPLL) SetTime(t time.Time) error {
	sec := t.Unix()
	if sec < 0 || sec > maxTOD {
		return fmt.Errorf("zl3073x: could not set time of %v: %w: %v", d, ErrRange, t)
	}

	s := d.dev.lock()
	defer d.dev.unlock()

	s.writeTOD(d.id, uint64(sec), uint64(t.Nanosecond()))
	if s.err != nil {
		return fmt.Errorf("zl3073x: could not set time of %v: %w", d, s.err)
	}
	return nil
}
