// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import "errors"

// Error kinds returned by the package.
// Every error returned by a Device, a DPLL or a Pin wraps one of them.
var (
	// ErrTimeout is returned when a polled status bit did not clear in time.
	ErrTimeout = errors.New("timeout")

	// ErrTransport is returned when the register transport failed.
	ErrTransport = errors.New("transport error")

	// ErrInvalidArgument is returned for out of range indices or
	// malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRange is returned when a value does not fit its encoding or
	// when the chip holds a malformed configuration.
	ErrRange = errors.New("value out of range")

	// ErrUnsupported is returned for operations that are not meaningful
	// for a pin or a mode.
	ErrUnsupported = errors.New("unsupported operation")
)
