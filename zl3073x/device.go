// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zl3073x controls ZL3073x DPLL clock chips.
//
// A Device owns the register transport and a single lock.
// Every exported operation of a Device, a DPLL or a Pin takes the lock
// once, runs its whole register sequence and releases the lock, even on
// error. Register sequences are never retried.
package zl3073x // import "github.com/go-lpc/zldpll/zl3073x"

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/go-lpc/zldpll/internal/regs"
)

// Device is a ZL3073x chip.
type Device struct {
	mu  sync.Mutex
	bus rwer
	cfg config
	msg *log.Logger

	chipID uint16

	dplls [regs.NumDPLLs]*DPLL
	ins   [regs.NumRefs]*Pin
	outs  [regs.NumOutputs]*Pin

	rollovers int // number of waits for the next second
}

// New attaches the chip reachable through the provided register transport.
//
// The optional firmware program is loaded first, then the chip identity
// is read and the synthesizers fine phase adjustment is initialized.
func New(bus rwer, opts ...Option) (*Device, error) {
	dev := &Device{
		bus: bus,
		cfg: newConfig(),
	}
	for _, opt := range opts {
		opt(&dev.cfg)
	}
	dev.msg = dev.cfg.msg

	for i := range dev.dplls {
		dev.dplls[i] = &DPLL{dev: dev, id: i}
	}
	for i := range dev.ins {
		dev.ins[i] = &Pin{dev: dev, id: i, dir: Input, name: dev.cfg.labels.Inputs[i]}
	}
	for i := range dev.outs {
		dev.outs[i] = &Pin{dev: dev, id: i, dir: Output, name: dev.cfg.labels.Outputs[i]}
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	if len(dev.cfg.fw) > 0 {
		dev.msg.Printf("loading firmware (%d commands)...", len(dev.cfg.fw))
		err := dev.cfg.fw.Run(bus)
		if err != nil {
			return nil, fmt.Errorf("zl3073x: could not load firmware: %w: %w", ErrTransport, err)
		}
	}

	s := dev.seq()
	id := s.rN(regs.ChipID, 2)
	if s.err != nil {
		return nil, fmt.Errorf("zl3073x: could not read chip id: %w", s.err)
	}
	// chip-id is stored least significant byte first.
	dev.chipID = uint16(id>>8) | uint16(id&0xff)<<8

	err := dev.initFinePhase()
	if err != nil {
		return nil, fmt.Errorf("zl3073x: could not initialize fine phase adjustment: %w", err)
	}

	dev.msg.Printf("attached chip 0x%04x", dev.chipID)
	return dev, nil
}

func (dev *Device) initFinePhase() error {
	s := dev.seq()
	s.w8(regs.SynthPhaseShiftMask, 0x1f)
	s.w8(regs.SynthPhaseShiftIntvl, 0x01)
	s.wN(regs.SynthPhaseShiftData, 0xffff, 2)
	s.w8(regs.SynthPhaseShiftCtrl, 0x01)
	return s.err
}

// Close closes the underlying transport, if it is closable.
func (dev *Device) Close() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if c, ok := dev.bus.(io.Closer); ok {
		err := c.Close()
		if err != nil {
			return fmt.Errorf("zl3073x: could not close transport: %w", err)
		}
	}
	return nil
}

// ChipID returns the identifier of the chip.
func (dev *Device) ChipID() uint16 { return dev.chipID }

// ClockID returns the clock identifier derived from the chip identifier.
func (dev *Device) ClockID() uint64 { return uint64(dev.chipID) << 16 }

// DPLL returns the i-th DPLL channel.
func (dev *Device) DPLL(i int) (*DPLL, error) {
	if i < 0 || i >= len(dev.dplls) {
		return nil, fmt.Errorf("zl3073x: invalid DPLL index %d: %w", i, ErrInvalidArgument)
	}
	return dev.dplls[i], nil
}

// DPLLs returns the DPLL channels of the chip.
func (dev *Device) DPLLs() []*DPLL {
	return dev.dplls[:]
}

// Input returns the i-th input reference.
func (dev *Device) Input(i int) (*Pin, error) {
	if i < 0 || i >= len(dev.ins) {
		return nil, fmt.Errorf("zl3073x: invalid input index %d: %w", i, ErrInvalidArgument)
	}
	return dev.ins[i], nil
}

// Output returns the i-th output.
func (dev *Device) Output(i int) (*Pin, error) {
	if i < 0 || i >= len(dev.outs) {
		return nil, fmt.Errorf("zl3073x: invalid output index %d: %w", i, ErrInvalidArgument)
	}
	return dev.outs[i], nil
}

// Pins returns all the pins of the chip, outputs first.
func (dev *Device) Pins() []*Pin {
	pins := make([]*Pin, 0, len(dev.outs)+len(dev.ins))
	pins = append(pins, dev.outs[:]...)
	pins = append(pins, dev.ins[:]...)
	return pins
}

// Pin returns the pin with the provided name.
func (dev *Device) Pin(name string) (*Pin, error) {
	for _, p := range dev.Pins() {
		if p.name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("zl3073x: unknown pin %q: %w", name, ErrInvalidArgument)
}

// lock acquires the device lock and returns a fresh register sequence.
func (dev *Device) lock() *seq {
	dev.mu.Lock()
	return dev.seq()
}

func (dev *Device) unlock() {
	dev.mu.Unlock()
}
