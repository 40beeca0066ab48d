// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const spiRead = 0x80

// DefaultSPISpeed is the default SPI clock frequency.
const DefaultSPISpeed = 10 * physic.MegaHertz

type spiDev struct {
	conn conn.Conn
	c    io.Closer
}

// OpenSPI opens the named SPI port, in mode 0 with 8-bit words.
// An empty name selects the first available port.
func OpenSPI(name string, speed physic.Frequency) (Bus, error) {
	_, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("bus: could not initialize host: %w", err)
	}

	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("bus: could not open SPI port %q: %w", name, err)
	}

	if speed == 0 {
		speed = DefaultSPISpeed
	}
	c, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("bus: could not connect to SPI port %q: %w", name, err)
	}

	return newPaged(&spiDev{conn: c, c: port}), nil
}

// NewSPI returns a transport over an already connected SPI link.
// Closing the transport does not close the link.
func NewSPI(c conn.Conn) Bus {
	return newPaged(&spiDev{conn: c, c: nopCloser{}})
}

func (d *spiDev) read(off uint8, p []byte) error {
	w := make([]byte, 1+len(p))
	r := make([]byte, 1+len(p))
	w[0] = off | spiRead
	err := d.conn.Tx(w, r)
	if err != nil {
		return err
	}
	copy(p, r[1:])
	return nil
}

func (d *spiDev) write(off uint8, p []byte) error {
	w := make([]byte, 1+len(p))
	w[0] = off
	copy(w[1:], p)
	return d.conn.Tx(w, nil)
}

func (d *spiDev) Close() error {
	return d.c.Close()
}
