// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"log"
	"os"
	"time"

	"github.com/go-lpc/zldpll/firmware"
)

type config struct {
	poll     time.Duration // sleep between two samples of a status register
	timeout  time.Duration // maximum duration of a polling loop
	rollover time.Duration // sleep between two TOD samples while waiting for the next second
	verbose  bool

	msg    *log.Logger
	labels Labels
	fw     firmware.Program
}

func newConfig() config {
	return config{
		poll:     10 * time.Microsecond,
		timeout:  100 * time.Second,
		rollover: 10 * time.Millisecond,
		msg:      log.New(os.Stdout, "zl3073x: ", 0),
		labels:   BoardLabels,
	}
}

// Option configures a Device.
type Option func(*config)

// WithPollInterval sets the sleep duration between two samples of a
// semaphore or busy register.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *config) {
		cfg.poll = d
	}
}

// WithTimeout sets the maximum duration a semaphore or busy register
// is polled before giving up.
func WithTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = d
	}
}

// WithRolloverInterval sets the sleep duration between two samples of
// the time-of-day while waiting for the next second.
func WithRolloverInterval(d time.Duration) Option {
	return func(cfg *config) {
		cfg.rollover = d
	}
}

// WithLogger sets the logger of the device.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithVerbose enables the logging of every register access.
func WithVerbose(v bool) Option {
	return func(cfg *config) {
		cfg.verbose = v
	}
}

// WithLabels sets the names of the pins.
func WithLabels(labels Labels) Option {
	return func(cfg *config) {
		cfg.labels = labels
	}
}

// WithFirmware sets the bootstrap program run when the device is attached.
func WithFirmware(prog firmware.Program) Option {
	return func(cfg *config) {
		cfg.fw = prog
	}
}
