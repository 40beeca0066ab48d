// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bus provides register transports to ZL3073x chips.
//
// The chip exposes a 16-bit register space through 128-byte pages.
// The page is selected by writing to register 0x7f, which is visible
// from every page.
package bus // import "github.com/go-lpc/zldpll/bus"

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-lpc/zldpll/internal/regs"
)

// Bus is a transport to the register space of a ZL3073x chip.
type Bus interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// raw is a transport that only reaches the 128-byte window of the
// currently selected page.
type raw interface {
	read(off uint8, p []byte) error
	write(off uint8, p []byte) error
	io.Closer
}

const pageUnknown = -1

// paged implements the page selection on top of a raw transport.
type paged struct {
	mu   sync.Mutex
	raw  raw
	page int
}

func newPaged(r raw) *paged {
	return &paged{raw: r, page: pageUnknown}
}

func (p *paged) ReadAt(buf []byte, off int64) (int, error) {
	return p.xfer(buf, off, p.raw.read)
}

func (p *paged) WriteAt(buf []byte, off int64) (int, error) {
	return p.xfer(buf, off, p.raw.write)
}

func (p *paged) xfer(buf []byte, off int64, f func(uint8, []byte) error) (int, error) {
	if off < 0 || off+int64(len(buf)) > regs.MaxAddr {
		return 0, fmt.Errorf("bus: invalid register range [0x%04x, 0x%04x)", off, off+int64(len(buf)))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for n < len(buf) {
		addr := int(off) + n
		err := p.selectPage(addr)
		if err != nil {
			return n, err
		}
		lo := addr & regs.AddrMask
		end := len(buf)
		if sz := regs.AddrMask + 1 - lo; end-n > sz {
			end = n + sz
		}
		err = f(uint8(lo), buf[n:end])
		if err != nil {
			p.page = pageUnknown
			return n, fmt.Errorf("bus: could not access register 0x%04x: %w", addr, err)
		}
		n = end
	}
	return n, nil
}

func (p *paged) selectPage(addr int) error {
	page := (addr & regs.PageMask) >> 7
	if page == p.page {
		return nil
	}
	err := p.raw.write(regs.Page, []byte{uint8(page)})
	if err != nil {
		p.page = pageUnknown
		return fmt.Errorf("bus: could not select page %d: %w", page, err)
	}
	p.page = page
	return nil
}

func (p *paged) Close() error {
	return p.raw.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

var (
	_ Bus = (*paged)(nil)
)
