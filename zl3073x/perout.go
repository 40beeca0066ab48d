// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"
	"time"

	"github.com/go-lpc/zldpll/internal/regs"
)

// PeroutRequest describes a periodic output.
// Only 1PPS outputs aligned on a second are supported.
type PeroutRequest struct {
	Start  time.Time
	Period time.Duration
	On     time.Duration // duty cycle; zero keeps the current pulse width
}

func (req PeroutRequest) validate() error {
	if req.Period != time.Second {
		return fmt.Errorf("%w: period %v is not 1s", ErrInvalidArgument, req.Period)
	}
	if req.Start.Nanosecond() != 0 {
		return fmt.Errorf("%w: start %v is not aligned on a second", ErrInvalidArgument, req.Start)
	}
	if req.On < 0 || req.On >= time.Second {
		return fmt.Errorf("%w: invalid pulse width %v", ErrInvalidArgument, req.On)
	}
	return nil
}

// EnablePerout enables a 1PPS periodic output on the provided output pin.
func (d *DPLL) EnablePerout(pin *Pin, req PeroutRequest) error {
	if err := pin.output(); err != nil {
		return fmt.Errorf("zl3073x: could not enable periodic output: %w", err)
	}
	if err := req.validate(); err != nil {
		return fmt.Errorf("zl3073x: could not enable periodic output on %s: %w", pin.name, err)
	}

	s := d.dev.lock()
	defer d.dev.unlock()

	pair := pin.pair()
	freq := s.pairFreq(pair)

	s.mbRead(mbOutput, pair)
	s.setFormat(pin.half(), EnableFormat)
	s.w8(regs.OutputGPOEn, 0)
	s.wN(regs.OutputDiv, freq, 4)
	if req.On > 0 && s.err == nil {
		width := freq / uint64(time.Second/req.On) * 2
		s.wN(regs.OutputWidth, width, 4)
	}
	s.mbWrite(mbOutput, pair)
	if s.err != nil {
		return fmt.Errorf("zl3073x: could not enable periodic output on %s: %w", pin.name, s.err)
	}

	d.perout |= 1 << uint(pair)
	return nil
}

// DisablePerout disables the periodic output of the provided output pin.
func (d *DPLL) DisablePerout(pin *Pin) error {
	if err := pin.output(); err != nil {
		return fmt.Errorf("zl3073x: could not disable periodic output: %w", err)
	}

	s := d.dev.lock()
	defer d.dev.unlock()

	pair := pin.pair()
	s.mbRead(mbOutput, pair)
	s.setFormat(pin.half(), DisableFormat)
	s.mbWrite(mbOutput, pair)
	if s.err != nil {
		return fmt.Errorf("zl3073x: could not disable periodic output on %s: %w", pin.name, s.err)
	}

	d.perout &^= 1 << uint(pair)
	return nil
}
