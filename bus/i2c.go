// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DefaultI2CAddr is the default I2C address of a ZL3073x chip.
const DefaultI2CAddr = 0x70

type i2cDev struct {
	dev i2c.Dev
	c   io.Closer
}

// OpenI2C opens the named I2C bus and returns a transport to the chip
// at the provided address.
// An empty name selects the first available bus.
func OpenI2C(name string, addr uint16) (Bus, error) {
	_, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("bus: could not initialize host: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("bus: could not open I2C bus %q: %w", name, err)
	}

	return newPaged(&i2cDev{
		dev: i2c.Dev{Bus: b, Addr: addr},
		c:   b,
	}), nil
}

// NewI2C returns a transport to the chip at addr on the provided bus.
// Closing the transport does not close the bus.
func NewI2C(b i2c.Bus, addr uint16) Bus {
	return newPaged(&i2cDev{
		dev: i2c.Dev{Bus: b, Addr: addr},
		c:   nopCloser{},
	})
}

func (d *i2cDev) read(off uint8, p []byte) error {
	return d.dev.Tx([]byte{off}, p)
}

func (d *i2cDev) write(off uint8, p []byte) error {
	w := make([]byte, 1+len(p))
	w[0] = off
	copy(w[1:], p)
	return d.dev.Tx(w, nil)
}

func (d *i2cDev) Close() error {
	return d.c.Close()
}
