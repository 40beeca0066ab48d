// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"

	"github.com/go-lpc/zldpll/internal/regs"
)

// mailbox is a banked register window of the chip.
// A mask register selects the bank, a semaphore register requests the
// transfer between the bank and the window.
type mailbox struct {
	name string
	mask uint16
	sem  uint16
	n    int // number of banks
}

var (
	mbRef    = mailbox{name: "ref", mask: regs.RefMBMask, sem: regs.RefMBSem, n: regs.NumRefs}
	mbDPLL   = mailbox{name: "dpll", mask: regs.DPLLMBMask, sem: regs.DPLLMBSem, n: regs.NumDPLLs}
	mbSynth  = mailbox{name: "synth", mask: regs.SynthMBMask, sem: regs.SynthMBSem, n: regs.NumSynths}
	mbOutput = mailbox{name: "output", mask: regs.OutputMBMask, sem: regs.OutputMBSem, n: regs.NumPairs}
)

// request runs one handshake of the mailbox for bank idx.
// The semaphore must be clear before the request and clears again
// once the chip has completed the transfer.
func (s *seq) request(mb mailbox, idx int, op uint8) {
	if s.err != nil {
		return
	}
	if idx < 0 || idx >= mb.n {
		s.err = fmt.Errorf("%w: invalid %s mailbox index %d", ErrInvalidArgument, mb.name, idx)
		return
	}
	s.poll(mb.sem, regs.MBSemRD|regs.MBSemWR)
	s.wN(mb.mask, 1<<uint(idx), 2)
	s.w8(mb.sem, op)
	s.poll(mb.sem, op)
}

// mbRead loads bank idx into the data window.
func (s *seq) mbRead(mb mailbox, idx int) {
	s.request(mb, idx, regs.MBSemRD)
}

// mbWrite commits the data window into bank idx.
// The data window must be populated before.
func (s *seq) mbWrite(mb mailbox, idx int) {
	s.request(mb, idx, regs.MBSemWR)
}
