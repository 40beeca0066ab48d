// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zlsim

import (
	"errors"
	"io"
	"sync"
)

// ErrFault is the default error returned by a Faulty transport.
var ErrFault = errors.New("zlsim: injected fault")

// Faulty wraps a register space and fails a chosen access.
type Faulty struct {
	mu  sync.Mutex
	rw  rwer
	at  int // 1-based index of the failing access, 0 to never fail
	n   int
	err error
}

type rwer interface {
	io.ReaderAt
	io.WriterAt
}

// NewFaulty returns a transport failing the at-th access to rw.
func NewFaulty(rw rwer, at int) *Faulty {
	return &Faulty{rw: rw, at: at, err: ErrFault}
}

// Arm makes the at-th access from now on fail.
func (f *Faulty) Arm(at int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.at = at
	f.n = 0
}

func (f *Faulty) fail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return f.n == f.at
}

// ReadAt implements io.ReaderAt.
func (f *Faulty) ReadAt(p []byte, off int64) (int, error) {
	if f.fail() {
		return 0, f.err
	}
	return f.rw.ReadAt(p, off)
}

// WriteAt implements io.WriterAt.
func (f *Faulty) WriteAt(p []byte, off int64) (int, error) {
	if f.fail() {
		return 0, f.err
	}
	return f.rw.WriteAt(p, off)
}
