// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs describes the register map of the ZL3073x family.
package regs // import "github.com/go-lpc/zldpll/internal/regs"

const (
	Page = 0x7f // page select register

	PageMask = 0xff80
	AddrMask = 0x007f

	MaxAddr = 0x0780 // end of the register space
)

// Resource counts.
const (
	NumDPLLs   = 2
	NumSynths  = 5
	NumRefs    = 10
	NumOutputs = 20
	NumPairs   = NumOutputs / 2
)

const (
	ChipID = 0x0001 // 2 bytes
)

// Status registers.
const (
	RefMonStatus   = 0x0102 // + ref
	DPLLMonStatus  = 0x0110 // + dpll
	LockRefSelStat = 0x0130 // + dpll

	RefMonStatusOK = 0x00

	DPLLMonStatusHOReady = 1 << 2

	LockStateMask  = 0x70
	LockStateShift = 4
	SelRefMask     = 0x0f

	RefFreqErr       = 0x0144 // + ref*4, 4 bytes
	RefFreqErrStride = 4
	RefFreqErrSize   = 4
)

// Measurement registers.
const (
	RefPhaseErrRqst     = 0x020f
	RefPhaseErrRqstMask = 0x01

	RefFreqMeasCtrl     = 0x021c
	RefFreqMeasCtrlMask = 0x03
	RefFreqMeasRqst     = 0x03
	RefFreqMeasMask30   = 0x021d
	RefFreqMeasMask4    = 0x021e
	DPLLMeasRefFreqCtrl = 0x021f

	RefPhaseErr       = 0x0220 // + ref*6, 6 bytes
	RefPhaseErrStride = 6
	RefPhaseErrSize   = 6

	DPLLMeasCtrl    = 0x02d0
	DPLLMeasCtrlEn  = 0x01
	DPLLMeasIdx     = 0x02d1
	DPLLMeasIdxMask = 0x07
	PhaseErrUnitsPS = 100 // register unit is 0.01 ps
)

// DPLL mode registers.
const (
	ModeRefSel       = 0x0284 // + dpll*4
	ModeRefSelStride = 4

	ModeMask     = 0x07
	RefSelShift  = 4
	RefSelMask   = 0xf0
	ModeFreerun  = 0
	ModeHoldover = 1
	ModeRefLock  = 2
	ModeAutoLock = 3
	ModeNCO      = 4
)

// Lock states.
const (
	LockFreerun   = 0
	LockHoldover  = 1
	LockFastLock  = 2
	LockAcquiring = 3
	LockLocked    = 4
)

// TIE and TOD registers.
const (
	TIECtrl       = 0x02b0
	TIECtrlMask   = 0x07
	TIECtrlWrite  = 0x04
	TIECtrlDPLLEn = 0x02b1

	TODCtrl         = 0x02b8 // + dpll
	TODCtrlSem      = 1 << 4
	TODCmdWriteNext = 0x01
	TODCmdRead      = 0x08
	TODCmdReadNext  = 0x09

	DPLLStride = 0x20

	DFOffset = 0x0300 // + dpll*0x20, 6 bytes
	TIEData  = 0x030c // + dpll*0x20, 6 bytes
	TODSec   = 0x0312 // + dpll*0x20, 6 bytes
	TODNsec  = 0x0318 // + dpll*0x20, 6 bytes

	DFOffsetSize = 6
	TIEDataSize  = 6
	TODSize      = 6

	OnePPMFormat = 281474976 // DCO offset of 1 ppm
)

// Synthesizer and output control registers.
const (
	SynthCtrl          = 0x0480 // + synth
	SynthCtrlDPLLMask  = 0x70
	SynthCtrlDPLLShift = 4

	SynthPhaseShiftCtrl  = 0x049e
	SynthPhaseShiftMask  = 0x049f
	SynthPhaseShiftIntvl = 0x04a0
	SynthPhaseShiftData  = 0x04a1 // 2 bytes

	OutputCtrl           = 0x04a8 // + pair
	OutputCtrlSynthMask  = 0x70
	OutputCtrlSynthShift = 4

	OutputPhaseStepCtrl     = 0x04b8
	OutputPhaseStepOpMask   = 0x03
	OutputPhaseStepOpWrite  = 0x03
	OutputPhaseStepTOD      = 1 << 3
	OutputPhaseStepDPLLShft = 4
	OutputPhaseStepNumber   = 0x04b9
	OutputPhaseStepMask     = 0x04ba // 2 bytes
	OutputPhaseStepData     = 0x04bc // 4 bytes
)

// Mailbox semaphore bits, shared by every domain.
const (
	MBSemWR = 1 << 0
	MBSemRD = 1 << 1
)

// Reference mailbox.
const (
	RefMBMask = 0x0502 // 2 bytes
	RefMBSem  = 0x0504

	RefFreqBase = 0x0505 // 2 bytes
	RefFreqMult = 0x0507 // 2 bytes
	RefRatioM   = 0x0509 // 2 bytes
	RefRatioN   = 0x050b // 2 bytes

	RefPhaseOffsetComp     = 0x0528 // 6 bytes
	RefPhaseOffsetCompSize = 6

	RefSyncCtrl         = 0x052e
	RefSyncCtrlModeMask = 0x0f
	RefSyncCtrlOff      = 0x00
	RefSyncCtrlEsync    = 0x02 // esync 25/75

	RefEsyncDiv = 0x0530 // 4 bytes
)

// DPLL mailbox.
const (
	DPLLMBMask = 0x0602 // 2 bytes
	DPLLMBSem  = 0x0604

	RefPriority        = 0x0652 // + ref/2
	RefPriorityMask    = 0x0f
	RefPriorityInvalid = 0x0f
)

// Synth mailbox.
const (
	SynthMBMask = 0x0682 // 2 bytes
	SynthMBSem  = 0x0684

	SynthFreqBase = 0x0686 // 2 bytes
	SynthFreqMult = 0x0688 // 4 bytes
	SynthFreqM    = 0x068c // 2 bytes
	SynthFreqN    = 0x068e // 2 bytes
)

// Output mailbox.
const (
	OutputMBMask = 0x0702 // 2 bytes
	OutputMBSem  = 0x0704

	OutputMode            = 0x0705
	OutputModeFormatMask  = 0xf0
	OutputModeFormatShift = 4
	OutputModeClockMask   = 0x07
	OutputClockNormal     = 0
	OutputClockEsync      = 1
	OutputClockEsyncAlt   = 2

	OutputDiv             = 0x070c // 4 bytes
	OutputWidth           = 0x0710 // 4 bytes
	OutputEsyncDiv        = 0x0714 // 4 bytes
	OutputEsyncPulseWidth = 0x0718 // 4 bytes
	OutputPhaseComp       = 0x0720 // 4 bytes
	OutputGPOEn           = 0x0724
)

// Output signal formats.
const (
	FormatBothDisabled        = 0x0
	FormatBothEnabled         = 0x4
	FormatPEnable             = 0x5
	FormatNEnable             = 0x6
	FormatNDivided            = 0xc
	FormatNDividedAndInverted = 0xd
)

// TODCtrlAddr returns the TOD control register of the given DPLL.
func TODCtrlAddr(dpll int) uint16 { return uint16(TODCtrl + dpll) }

// DPLLAddr returns the address of a per-DPLL block register.
func DPLLAddr(base uint16, dpll int) uint16 {
	return base + uint16(dpll*DPLLStride)
}
