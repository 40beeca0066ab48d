// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/zldpll/bus"
	"github.com/go-lpc/zldpll/firmware"
	"github.com/go-lpc/zldpll/internal/zlsim"
	"github.com/go-lpc/zldpll/zl3073x"
	"periph.io/x/conn/v3/physic"
)

type transport interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// openTransport opens the register transport of the device.
func (dev Device) openTransport() (transport, error) {
	switch dev.Transport {
	case "i2c":
		return bus.OpenI2C(dev.Bus, dev.Addr)
	case "spi":
		return bus.OpenSPI(dev.Bus, physic.Frequency(dev.Speed)*physic.Hertz)
	case "smbus":
		return bus.OpenSMBus(dev.BusNum, uint8(dev.Addr))
	case "sim":
		return zlsim.OpenFile(dev.Bus)
	}
	return nil, fmt.Errorf("config: unknown transport %q", dev.Transport)
}

// Options returns the device options matching the configuration.
func (dev Device) Options(msg *log.Logger) ([]zl3073x.Option, error) {
	labels, err := zl3073x.LabelsByName(dev.Labels)
	if err != nil {
		return nil, fmt.Errorf("config: could not select pin labels: %w", err)
	}

	opts := []zl3073x.Option{
		zl3073x.WithPollInterval(dev.Poll),
		zl3073x.WithTimeout(dev.Timeout),
		zl3073x.WithLabels(labels),
		zl3073x.WithVerbose(dev.Verbose),
	}
	if msg != nil {
		opts = append(opts, zl3073x.WithLogger(msg))
	}

	if dev.Firmware != "" {
		prog, err := firmware.Load(dev.Firmware)
		if err != nil {
			return nil, fmt.Errorf("config: could not load firmware: %w", err)
		}
		opts = append(opts, zl3073x.WithFirmware(prog))
	}
	return opts, nil
}

// Open opens the transport of the device and attaches the chip.
func (dev Device) Open(msg *log.Logger) (*zl3073x.Device, error) {
	opts, err := dev.Options(msg)
	if err != nil {
		return nil, err
	}

	tr, err := dev.openTransport()
	if err != nil {
		return nil, fmt.Errorf("config: could not open %s transport: %w", dev.Transport, err)
	}

	zl, err := zl3073x.New(tr, opts...)
	if err != nil {
		_ = tr.Close()
		return nil, fmt.Errorf("config: could not attach device: %w", err)
	}
	return zl, nil
}

// Apply applies the settings of the pins to the device.
// Every pin is tried. The returned error joins the failures.
func Apply(dev *zl3073x.Device, pins []Pin) error {
	var errs []error
	for _, pin := range pins {
		err := pin.apply(dev)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (pin Pin) apply(dev *zl3073x.Device) error {
	p, err := dev.Pin(pin.Name)
	if err != nil {
		return fmt.Errorf("config: could not find pin: %w", err)
	}

	if pin.Frequency != nil {
		err = p.SetFrequency(*pin.Frequency)
		if err != nil {
			return fmt.Errorf("config: could not configure %s: %w", pin.Name, err)
		}
	}
	if pin.Phase != nil {
		err = p.SetPhaseAdjust(*pin.Phase)
		if err != nil {
			return fmt.Errorf("config: could not configure %s: %w", pin.Name, err)
		}
	}
	if pin.Esync != nil {
		err = p.SetEsync(*pin.Esync)
		if err != nil {
			return fmt.Errorf("config: could not configure %s: %w", pin.Name, err)
		}
	}
	if pin.Priority != nil {
		dpll, err := dev.DPLL(pin.DPLL)
		if err != nil {
			return fmt.Errorf("config: could not configure %s: %w", pin.Name, err)
		}
		err = dpll.SetPriority(p, *pin.Priority)
		if err != nil {
			return fmt.Errorf("config: could not configure %s: %w", pin.Name, err)
		}
	}
	return nil
}

// Snapshot returns the current settings of every pin of the device.
// Settings the chip cannot report are left unset.
// Inputs get one entry per DPLL, carrying the reference priority.
func Snapshot(dev *zl3073x.Device) ([]Pin, error) {
	var pins []Pin
	for _, p := range dev.Pins() {
		pin := Pin{Name: p.Name()}

		freq, err := p.Frequency()
		switch {
		case err == nil:
			pin.Frequency = &freq
		case !errors.Is(err, zl3073x.ErrUnsupported):
			return nil, fmt.Errorf("config: could not snapshot %s: %w", p.Name(), err)
		}

		phase, err := p.PhaseAdjust()
		switch {
		case err == nil:
			pin.Phase = &phase
		case !errors.Is(err, zl3073x.ErrUnsupported):
			return nil, fmt.Errorf("config: could not snapshot %s: %w", p.Name(), err)
		}

		esync, err := p.Esync()
		switch {
		case err == nil:
			pin.Esync = &esync.Freq
		case !errors.Is(err, zl3073x.ErrUnsupported):
			return nil, fmt.Errorf("config: could not snapshot %s: %w", p.Name(), err)
		}

		if p.Direction() != zl3073x.Input {
			pins = append(pins, pin)
			continue
		}

		for _, dpll := range dev.DPLLs() {
			prio, err := dpll.Priority(p)
			if err != nil {
				return nil, fmt.Errorf("config: could not snapshot %s: %w", p.Name(), err)
			}
			pin.DPLL = dpll.Index()
			pin.Priority = &prio
			pins = append(pins, pin)
			pin = Pin{Name: p.Name()}
		}
	}
	return pins, nil
}
