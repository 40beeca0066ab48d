// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"fmt"

	"github.com/go-daq/smbus"
)

// smbusConn is the subset of an SMBus connection used to reach the chip.
type smbusConn interface {
	ReadReg(addr, reg uint8) (uint8, error)
	WriteReg(addr, reg, v uint8) error
	Close() error
}

type smbusDev struct {
	conn smbusConn
	addr uint8
}

// OpenSMBus opens the numbered SMBus adapter and returns a transport
// to the chip at the provided address.
// Registers are accessed one byte at a time.
func OpenSMBus(bus int, addr uint8) (Bus, error) {
	c, err := smbus.Open(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("bus: could not open SMBus %d: %w", bus, err)
	}
	return newPaged(&smbusDev{conn: c, addr: addr}), nil
}

func (d *smbusDev) read(off uint8, p []byte) error {
	for i := range p {
		v, err := d.conn.ReadReg(d.addr, off+uint8(i))
		if err != nil {
			return err
		}
		p[i] = v
	}
	return nil
}

func (d *smbusDev) write(off uint8, p []byte) error {
	for i, v := range p {
		err := d.conn.WriteReg(d.addr, off+uint8(i), v)
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *smbusDev) Close() error {
	return d.conn.Close()
}

var (
	_ smbusConn = (*smbus.Conn)(nil)
)
