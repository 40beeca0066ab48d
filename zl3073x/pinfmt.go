// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"

	"github.com/go-lpc/zldpll/internal/regs"
)

// Format is the signal format of an output pair.
type Format uint8

const (
	BothDisabled        Format = regs.FormatBothDisabled
	BothEnabled         Format = regs.FormatBothEnabled
	PEnable             Format = regs.FormatPEnable
	NEnable             Format = regs.FormatNEnable
	NDivided            Format = regs.FormatNDivided
	NDividedAndInverted Format = regs.FormatNDividedAndInverted
)

func (f Format) String() string {
	switch f {
	case BothDisabled:
		return "both-disabled"
	case BothEnabled:
		return "both-enabled"
	case PEnable:
		return "p-enable"
	case NEnable:
		return "n-enable"
	case NDivided:
		return "n-divided"
	case NDividedAndInverted:
		return "n-divided-inverted"
	}
	return fmt.Sprintf("Format(0x%x)", uint8(f))
}

func (f Format) nDivided() bool {
	return f == NDivided || f == NDividedAndInverted
}

// Half is one half of an output pair.
type Half uint8

const (
	HalfP Half = iota
	HalfN
)

func (h Half) String() string {
	if h == HalfP {
		return "P"
	}
	return "N"
}

// EnableFormat returns the format of a pair once half h is enabled.
func EnableFormat(cur Format, h Half) Format {
	switch {
	case cur == PEnable && h == HalfN,
		cur == NEnable && h == HalfP:
		return BothEnabled
	case cur == BothDisabled && h == HalfP:
		return PEnable
	case cur == BothDisabled && h == HalfN:
		return NEnable
	}
	return BothEnabled
}

// DisableFormat returns the format of a pair once half h is disabled.
func DisableFormat(cur Format, h Half) Format {
	switch {
	case cur == BothEnabled && h == HalfP:
		return NEnable
	case cur == BothEnabled && h == HalfN:
		return PEnable
	}
	return BothDisabled
}

func (p *Pin) half() Half {
	if p.isP() {
		return HalfP
	}
	return HalfN
}

// setFormat applies f to the format field of the output mode register
// currently loaded in the output mailbox.
func (s *seq) setFormat(half Half, f func(Format, Half) Format) {
	s.rmw8(regs.OutputMode, func(v uint8) uint8 {
		cur := Format(v&regs.OutputModeFormatMask) >> regs.OutputModeFormatShift
		next := f(cur, half)
		return v&^regs.OutputModeFormatMask | uint8(next)<<regs.OutputModeFormatShift
	})
}
