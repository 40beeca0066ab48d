// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestShared(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "regs.bin")

	h1, err := Open(fname, 64)
	if err != nil {
		t.Fatalf("could not open mmap: %+v", err)
	}
	defer h1.Close()

	h2, err := Open(fname, 64)
	if err != nil {
		t.Fatalf("could not re-open mmap: %+v", err)
	}
	defer h2.Close()

	if got, want := h1.Len(), 64; got != want {
		t.Fatalf("invalid length: got=%d, want=%d", got, want)
	}

	_, err = h1.WriteAt([]byte{1, 2, 3}, 10)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}

	buf := make([]byte, 3)
	_, err = h2.ReadAt(buf, 10)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if got, want := buf, []byte{1, 2, 3}; !bytes.Equal(got, want) {
		t.Fatalf("invalid shared data: got=%v, want=%v", got, want)
	}

	_, err = h2.ReadAt(buf, 62)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("invalid short read error: %+v", err)
	}

	_, err = h2.WriteAt(buf, 65)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got, want := err.Error(), "mmap: invalid WriteAt offset 65"; got != want {
		t.Fatalf("invalid error: got=%q, want=%q", got, want)
	}

	err = h1.Close()
	if err != nil {
		t.Fatalf("could not close mmap: %+v", err)
	}
	_, err = h1.ReadAt(buf, 0)
	if !errors.Is(err, errClosed) {
		t.Fatalf("invalid read-at error: %+v", err)
	}
}
