// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zlsim simulates the register space of a ZL3073x chip.
//
// The simulator models the self-clearing semaphores of the mailboxes
// and of the time-of-day, TIE, phase-step and measurement engines.
// Its state lives in memory or in a memory-mapped file shared by
// several processes.
package zlsim // import "github.com/go-lpc/zldpll/internal/zlsim"

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-lpc/zldpll/internal/mmap"
	"github.com/go-lpc/zldpll/internal/regs"
)

// ChipID is the chip identifier of a simulated chip.
const ChipID = 0x0e95

const magic = 0x7a6c3733 // "zl73"

type store interface {
	io.ReaderAt
	io.WriterAt
}

type mem []byte

func (m mem) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m[off:]), nil
}

func (m mem) WriteAt(p []byte, off int64) (int, error) {
	return copy(m[off:], p), nil
}

// Domain identifies a mailbox of the chip.
type Domain int

const (
	Ref Domain = iota
	DPLL
	Synth
	Output
)

type domain struct {
	mask uint16
	sem  uint16
	lo   uint16 // data window
	hi   uint16
	n    int
	base int64 // offset of the banks in the store
}

var domains = func() [4]domain {
	ds := [4]domain{
		Ref:    {mask: regs.RefMBMask, sem: regs.RefMBSem, lo: 0x0505, hi: 0x0580, n: regs.NumRefs},
		DPLL:   {mask: regs.DPLLMBMask, sem: regs.DPLLMBSem, lo: 0x0605, hi: 0x0680, n: regs.NumDPLLs},
		Synth:  {mask: regs.SynthMBMask, sem: regs.SynthMBSem, lo: 0x0685, hi: 0x0700, n: regs.NumSynths},
		Output: {mask: regs.OutputMBMask, sem: regs.OutputMBSem, lo: 0x0705, hi: 0x0780, n: regs.NumPairs},
	}
	off := int64(regs.MaxAddr)
	for i := range ds {
		ds[i].base = off
		off += int64(ds[i].n) * int64(ds[i].hi-ds[i].lo)
	}
	return ds
}()

var (
	todBase   = domains[Output].base + int64(domains[Output].n)*int64(domains[Output].hi-domains[Output].lo)
	tieBase   = todBase + 8*regs.NumDPLLs
	magicAddr = tieBase + 8*regs.NumDPLLs

	// Size is the size of the simulator state, in bytes.
	Size = int(magicAddr + 4)
)

// Sim is a simulated ZL3073x chip.
type Sim struct {
	mu    sync.Mutex
	store store
	clock func() time.Time

	stuck  map[uint16]bool
	writes int
	steps  []Step
}

// Step is a phase step applied to periodic outputs.
type Step struct {
	DPLL  int
	Mask  uint16
	Units int32
	TOD   bool
}

// New returns a simulated chip in its default state.
func New() *Sim {
	sim := newSim(make(mem, Size))
	sim.Reset()
	return sim
}

// OpenFile returns a simulated chip whose state is stored in the named
// file. A new file is initialized with the default state.
func OpenFile(fname string) (*Sim, error) {
	h, err := mmap.Open(fname, Size)
	if err != nil {
		return nil, fmt.Errorf("zlsim: could not open state file: %w", err)
	}
	sim := newSim(h)
	if sim.u(magicAddr, 4) != magic {
		sim.Reset()
	}
	return sim, nil
}

func newSim(s store) *Sim {
	return &Sim{
		store: s,
		clock: time.Now,
		stuck: make(map[uint16]bool),
	}
}

// Close releases the state of the simulator.
func (sim *Sim) Close() error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if c, ok := sim.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reset puts the simulator in its default state:
//   - synth #0 runs at 1GHz, #1 at 156.25MHz, #2 at 100MHz, #3 at 25MHz and #4 at 10MHz;
//   - synths #0, #2 and #4 follow the PPS DPLL, the others the EEC DPLL;
//   - output pairs 0-2 and 6-8 use synth #0, 3-5 synth #1 and 9 synth #3;
//   - every output is enabled with a unit divisor;
//   - every reference is qualified, at 1Hz, with no priority;
//   - both DPLLs are locked in automatic mode on reference #0.
func (sim *Sim) Reset() {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	zero := make([]byte, Size)
	sim.put(0, zero)

	sim.put(regs.ChipID, []byte{ChipID & 0xff, ChipID >> 8})

	synths := [regs.NumSynths][4]uint64{
		{25000, 40000, 1, 1},
		{15625, 10000, 1, 1},
		{20000, 5000, 1, 1},
		{25000, 1000, 1, 1},
		{10000, 1000, 1, 1},
	}
	for i, s := range synths {
		sim.setSynth(i, s[0], s[1], s[2], s[3])
		dpll := 1
		if i == 1 || i == 3 {
			dpll = 0
		}
		sim.put(int64(regs.SynthCtrl+i), []byte{uint8(dpll) << regs.SynthCtrlDPLLShift})
	}

	pairs := [regs.NumPairs]int{0, 0, 0, 1, 1, 1, 0, 0, 0, 3}
	for pair, synth := range pairs {
		sim.put(int64(regs.OutputCtrl+pair), []byte{uint8(synth) << regs.OutputCtrlSynthShift})
		b := sim.bank(Output, pair)
		sim.setU(b+regs.OutputMode-int64(domains[Output].lo), regs.FormatBothEnabled<<regs.OutputModeFormatShift, 1)
		sim.setU(b+regs.OutputDiv-int64(domains[Output].lo), 1, 4)
		sim.setU(b+regs.OutputWidth-int64(domains[Output].lo), 1, 4)
		sim.setU(b+regs.OutputEsyncDiv-int64(domains[Output].lo), 1, 4)
	}

	for ref := 0; ref < regs.NumRefs; ref++ {
		b := sim.bank(Ref, ref) - int64(domains[Ref].lo)
		for _, addr := range []int64{regs.RefFreqBase, regs.RefFreqMult, regs.RefRatioM, regs.RefRatioN} {
			sim.setU(b+addr, 1, 2)
		}
	}

	for dpll := 0; dpll < regs.NumDPLLs; dpll++ {
		b := sim.bank(DPLL, dpll) - int64(domains[DPLL].lo)
		for i := 0; i < regs.NumRefs/2; i++ {
			sim.setU(b+regs.RefPriority+int64(i), 0xff, 1)
		}
		sim.put(int64(regs.ModeRefSel+dpll*regs.ModeRefSelStride), []byte{regs.ModeAutoLock})
		sim.put(int64(regs.LockRefSelStat+dpll), []byte{regs.LockLocked << regs.LockStateShift})
	}

	sim.setU(magicAddr, magic, 4)
	sim.writes = 0
	sim.steps = nil
}

// SetClock sets the time source of the simulator.
func (sim *Sim) SetClock(clock func() time.Time) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.clock = clock
}

// Stick prevents the semaphore or busy bits of reg from ever clearing.
func (sim *Sim) Stick(reg uint16, v bool) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.stuck[reg] = v
}

// Writes returns the number of register writes received.
func (sim *Sim) Writes() int {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.writes
}

// Steps returns the phase steps applied so far.
func (sim *Sim) Steps() []Step {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return append([]Step(nil), sim.steps...)
}

// ReadAt implements io.ReaderAt.
func (sim *Sim) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > regs.MaxAddr {
		return 0, fmt.Errorf("zlsim: invalid register range [0x%04x, 0x%04x)", off, off+int64(len(p)))
	}
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.store.ReadAt(p, off)
}

// WriteAt implements io.WriterAt.
func (sim *Sim) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > regs.MaxAddr {
		return 0, fmt.Errorf("zlsim: invalid register range [0x%04x, 0x%04x)", off, off+int64(len(p)))
	}
	sim.mu.Lock()
	defer sim.mu.Unlock()

	sim.writes++
	n, err := sim.store.WriteAt(p, off)
	if err != nil {
		return n, err
	}
	for i := range p {
		sim.trigger(uint16(off) + uint16(i))
	}
	return n, nil
}

// Reg returns the n-byte value of a register, most significant byte first.
func (sim *Sim) Reg(addr uint16, n int) uint64 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.u(int64(addr), n)
}

// SetReg sets the n-byte value of a register, most significant byte first.
func (sim *Sim) SetReg(addr uint16, v uint64, n int) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.setU(int64(addr), v, n)
}

// BankReg returns the n-byte value of a mailbox register of bank idx.
func (sim *Sim) BankReg(d Domain, idx int, addr uint16, n int) uint64 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.u(sim.bank(d, idx)+int64(addr-domains[d].lo), n)
}

// SetBankReg sets the n-byte value of a mailbox register of bank idx.
func (sim *Sim) SetBankReg(d Domain, idx int, addr uint16, v uint64, n int) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.setU(sim.bank(d, idx)+int64(addr-domains[d].lo), v, n)
}

// SetSynth programs the frequency quadruple of a synthesizer.
func (sim *Sim) SetSynth(i int, base, mult, m, n uint64) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.setSynth(i, base, mult, m, n)
}

func (sim *Sim) setSynth(i int, base, mult, m, n uint64) {
	b := sim.bank(Synth, i) - int64(domains[Synth].lo)
	sim.setU(b+regs.SynthFreqBase, base, 2)
	sim.setU(b+regs.SynthFreqMult, mult, 4)
	sim.setU(b+regs.SynthFreqM, m, 2)
	sim.setU(b+regs.SynthFreqN, n, 2)
}

// Time returns the time-of-day of a DPLL.
func (sim *Sim) Time(dpll int) time.Time {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.tod(dpll)
}

// SetTime sets the time-of-day of a DPLL.
func (sim *Sim) SetTime(dpll int, t time.Time) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.setU(todBase+int64(8*dpll), uint64(t.Sub(sim.clock())), 8)
}

// TIE returns the last time interval error injected in a DPLL, in 0.01ps.
func (sim *Sim) TIE(dpll int) int64 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return int64(sim.u(tieBase+int64(8*dpll), 8))
}

func (sim *Sim) tod(dpll int) time.Time {
	off := time.Duration(sim.u(todBase+int64(8*dpll), 8))
	return sim.clock().Add(off)
}

func (sim *Sim) bank(d Domain, idx int) int64 {
	dom := domains[d]
	return dom.base + int64(idx)*int64(dom.hi-dom.lo)
}

func (sim *Sim) get(off int64, n int) []byte {
	p := make([]byte, n)
	_, _ = sim.store.ReadAt(p, off)
	return p
}

func (sim *Sim) put(off int64, p []byte) {
	_, _ = sim.store.WriteAt(p, off)
}

func (sim *Sim) u(off int64, n int) uint64 {
	var v uint64
	for _, b := range sim.get(off, n) {
		v = v<<8 | uint64(b)
	}
	return v
}

func (sim *Sim) setU(off int64, v uint64, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	sim.put(off, buf[8-n:])
}

// clear clears the bits of mask in reg, unless the register is stuck.
func (sim *Sim) clear(reg uint16, mask uint8) {
	if sim.stuck[reg] {
		return
	}
	v := sim.u(int64(reg), 1)
	sim.setU(int64(reg), v&^uint64(mask), 1)
}
