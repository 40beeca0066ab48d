// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

type rwer interface {
	io.ReaderAt
	io.WriterAt
}

// seq is a sequence of register accesses.
// The first error is recorded and every subsequent access is a no-op.
type seq struct {
	dev  *Device
	err  error
	xbuf [8]byte
}

func (dev *Device) seq() *seq {
	return &seq{dev: dev}
}

// read reads len(p) bytes starting at reg, in transmission order.
func (s *seq) read(reg uint16, p []byte) {
	if s.err != nil {
		return
	}
	_, err := s.dev.bus.ReadAt(p, int64(reg))
	if err != nil {
		s.err = fmt.Errorf("%w: could not read register 0x%04x: %w", ErrTransport, reg, err)
		return
	}
	if s.dev.cfg.verbose {
		s.dev.msg.Printf("read  0x%04x: % x", reg, p)
	}
}

// write reverses p in place and writes it starting at reg.
// Callers encode multi-byte values least significant byte first:
// the reversal puts the most significant byte at the lowest address.
func (s *seq) write(reg uint16, p []byte) {
	if s.err != nil {
		return
	}
	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}
	if s.dev.cfg.verbose {
		s.dev.msg.Printf("write 0x%04x: % x", reg, p)
	}
	_, err := s.dev.bus.WriteAt(p, int64(reg))
	if err != nil {
		s.err = fmt.Errorf("%w: could not write register 0x%04x: %w", ErrTransport, reg, err)
	}
}

func (s *seq) r8(reg uint16) uint8 {
	s.read(reg, s.xbuf[:1])
	if s.err != nil {
		return 0
	}
	return s.xbuf[0]
}

func (s *seq) w8(reg uint16, v uint8) {
	s.xbuf[0] = v
	s.write(reg, s.xbuf[:1])
}

// rN reads an n-byte register, most significant byte first.
func (s *seq) rN(reg uint16, n int) uint64 {
	s.read(reg, s.xbuf[:n])
	if s.err != nil {
		return 0
	}
	return decodeUint(s.xbuf[:n])
}

// wN writes the n low bytes of v to an n-byte register.
func (s *seq) wN(reg uint16, v uint64, n int) {
	binary.LittleEndian.PutUint64(s.xbuf[:], v)
	s.write(reg, s.xbuf[:n])
}

// poll waits for the bits of mask to clear in reg.
func (s *seq) poll(reg uint16, mask uint8) {
	if s.err != nil {
		return
	}
	var (
		cfg      = s.dev.cfg
		deadline = time.Now().Add(cfg.timeout)
	)
	for {
		v := s.r8(reg)
		if s.err != nil {
			return
		}
		if v&mask == 0 {
			return
		}
		if time.Now().After(deadline) {
			s.err = fmt.Errorf(
				"%w: register 0x%04x still busy after %v (value=0x%02x, mask=0x%02x)",
				ErrTimeout, reg, cfg.timeout, v, mask,
			)
			return
		}
		time.Sleep(cfg.poll)
	}
}

// rmw8 applies f to the content of reg.
func (s *seq) rmw8(reg uint16, f func(v uint8) uint8) {
	v := s.r8(reg)
	if s.err != nil {
		return
	}
	s.w8(reg, f(v))
}

func decodeUint(p []byte) uint64 {
	var v uint64
	for _, b := range p {
		v = v<<8 | uint64(b)
	}
	return v
}
