// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zlsim

import (
	"math/bits"
	"time"

	"github.com/go-lpc/zldpll/internal/regs"
)

// trigger runs the engine associated with a written register.
func (sim *Sim) trigger(reg uint16) {
	for d, dom := range domains {
		if reg == dom.sem {
			sim.mailbox(Domain(d))
			return
		}
	}

	switch {
	case reg == regs.TODCtrl || reg == regs.TODCtrl+1:
		sim.todCmd(int(reg - regs.TODCtrl))
	case reg == regs.TIECtrl:
		sim.tieCmd()
	case reg == regs.OutputPhaseStepCtrl:
		sim.phaseStep()
	case reg == regs.RefFreqMeasCtrl:
		sim.clear(reg, regs.RefFreqMeasCtrlMask)
	case reg == regs.RefPhaseErrRqst:
		sim.clear(reg, regs.RefPhaseErrRqstMask)
	}
}

func (sim *Sim) mailbox(d Domain) {
	dom := domains[d]
	sem := uint8(sim.u(int64(dom.sem), 1))
	mask := sim.u(int64(dom.mask), 2)
	size := int(dom.hi - dom.lo)

	switch {
	case sem&regs.MBSemRD != 0:
		if mask != 0 {
			idx := bits.TrailingZeros64(mask)
			if idx < dom.n {
				sim.put(int64(dom.lo), sim.get(sim.bank(d, idx), size))
			}
		}
		sim.clear(dom.sem, regs.MBSemRD)

	case sem&regs.MBSemWR != 0:
		win := sim.get(int64(dom.lo), size)
		for idx := 0; idx < dom.n; idx++ {
			if mask&(1<<uint(idx)) != 0 {
				sim.put(sim.bank(d, idx), win)
			}
		}
		sim.clear(dom.sem, regs.MBSemWR)
	}
}

func (sim *Sim) todCmd(dpll int) {
	ctrl := regs.TODCtrlAddr(dpll)
	v := uint8(sim.u(int64(ctrl), 1))
	if v&regs.TODCtrlSem == 0 {
		return
	}

	var (
		secReg  = int64(regs.DPLLAddr(regs.TODSec, dpll))
		nsecReg = int64(regs.DPLLAddr(regs.TODNsec, dpll))
		now     = sim.tod(dpll)
		next    = now.Truncate(time.Second).Add(time.Second)
	)

	switch v &^ regs.TODCtrlSem {
	case regs.TODCmdRead:
		sim.setU(secReg, uint64(now.Unix()), regs.TODSize)
		sim.setU(nsecReg, uint64(now.Nanosecond())<<16, regs.TODSize)
	case regs.TODCmdReadNext:
		sim.setU(secReg, uint64(next.Unix()), regs.TODSize)
		sim.setU(nsecReg, 0, regs.TODSize)
	case regs.TODCmdWriteNext:
		sec := sim.u(secReg, regs.TODSize)
		nsec := sim.u(nsecReg, 4)
		t := time.Unix(int64(sec), int64(nsec))
		off := time.Duration(sim.u(todBase+int64(8*dpll), 8))
		sim.setU(todBase+int64(8*dpll), uint64(off+t.Sub(next)), 8)
	}
	sim.clear(ctrl, regs.TODCtrlSem)
}

func (sim *Sim) tieCmd() {
	v := uint8(sim.u(regs.TIECtrl, 1))
	if v&regs.TIECtrlMask != regs.TIECtrlWrite {
		return
	}
	en := uint8(sim.u(regs.TIECtrlDPLLEn, 1))
	for dpll := 0; dpll < regs.NumDPLLs; dpll++ {
		if en&(1<<uint(dpll)) == 0 {
			continue
		}
		raw := sim.u(int64(regs.DPLLAddr(regs.TIEData, dpll)), regs.TIEDataSize)
		tie := int64(raw<<16) >> 16
		sim.setU(tieBase+int64(8*dpll), uint64(tie), 8)

		off := time.Duration(sim.u(todBase+int64(8*dpll), 8))
		off += time.Duration(tie / 100000)
		sim.setU(todBase+int64(8*dpll), uint64(off), 8)
	}
	sim.clear(regs.TIECtrl, regs.TIECtrlMask)
}

func (sim *Sim) phaseStep() {
	v := uint8(sim.u(regs.OutputPhaseStepCtrl, 1))
	if v&regs.OutputPhaseStepOpMask != regs.OutputPhaseStepOpWrite {
		return
	}

	step := Step{
		DPLL:  int(v >> regs.OutputPhaseStepDPLLShft),
		Mask:  uint16(sim.u(regs.OutputPhaseStepMask, 2)),
		Units: int32(uint32(sim.u(regs.OutputPhaseStepData, 4))),
		TOD:   v&regs.OutputPhaseStepTOD != 0,
	}
	sim.steps = append(sim.steps, step)

	if step.TOD && step.Mask != 0 && step.DPLL < regs.NumDPLLs {
		pair := bits.TrailingZeros16(step.Mask)
		synth := int(sim.u(int64(regs.OutputCtrl+pair), 1)&regs.OutputCtrlSynthMask) >> regs.OutputCtrlSynthShift
		if freq := sim.synthFreq(synth); freq != 0 {
			off := time.Duration(sim.u(todBase+int64(8*step.DPLL), 8))
			off += time.Duration(int64(step.Units) * int64(time.Second) / int64(freq))
			sim.setU(todBase+int64(8*step.DPLL), uint64(off), 8)
		}
	}
	sim.clear(regs.OutputPhaseStepCtrl, regs.OutputPhaseStepOpMask)
}

func (sim *Sim) synthFreq(i int) uint64 {
	if i >= regs.NumSynths {
		return 0
	}
	b := sim.bank(Synth, i) - int64(domains[Synth].lo)
	var (
		base = sim.u(b+regs.SynthFreqBase, 2)
		mult = sim.u(b+regs.SynthFreqMult, 4)
		m    = sim.u(b+regs.SynthFreqM, 2)
		n    = sim.u(b+regs.SynthFreqN, 2)
	)
	if n == 0 {
		return 0
	}
	return base * mult * m / n
}
