// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package firmware parses and runs ZL3073x bootstrap programs.
//
// A program is a text file with one command per line:
//
//	; comment
//	X , 0x0480 , 0x12   write byte 0x12 to register 0x0480
//	W , 2000            wait for 2000 microseconds
package firmware // import "github.com/go-lpc/zldpll/firmware"

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Op is the kind of a firmware command.
type Op uint8

const (
	Write Op = iota // single byte register write
	Wait            // delay
)

// Cmd is a firmware command.
type Cmd struct {
	Op    Op
	Addr  uint16
	Value uint8
	Delay time.Duration
}

func (cmd Cmd) String() string {
	switch cmd.Op {
	case Write:
		return fmt.Sprintf("X , 0x%04x , 0x%02x", cmd.Addr, cmd.Value)
	case Wait:
		return fmt.Sprintf("W , %d", cmd.Delay.Microseconds())
	}
	return fmt.Sprintf("Op(%d)", uint8(cmd.Op))
}

// Program is a sequence of firmware commands.
type Program []Cmd

var sleep = time.Sleep

// Load parses the named firmware file.
func Load(fname string) (Program, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("firmware: could not open %q: %w", fname, err)
	}
	defer f.Close()

	prog, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("firmware: could not parse %q: %w", fname, err)
	}
	return prog, nil
}

// Parse parses a firmware program.
func Parse(r io.Reader) (Program, error) {
	var (
		prog Program
		sc   = bufio.NewScanner(r)
		line = 0
	)
	for sc.Scan() {
		line++
		txt := strings.TrimSpace(sc.Text())
		if txt == "" || strings.HasPrefix(txt, ";") {
			continue
		}
		cmd, err := parseCmd(txt)
		if err != nil {
			return nil, fmt.Errorf("firmware: line %d: %w", line, err)
		}
		prog = append(prog, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("firmware: could not scan program: %w", err)
	}
	return prog, nil
}

func parseCmd(txt string) (Cmd, error) {
	toks := strings.Split(txt, ",")
	for i := range toks {
		toks[i] = strings.TrimSpace(toks[i])
	}

	switch strings.ToUpper(toks[0]) {
	case "X":
		if len(toks) != 3 {
			return Cmd{}, fmt.Errorf("invalid write command %q", txt)
		}
		addr, err := strconv.ParseUint(trimHex(toks[1]), 16, 16)
		if err != nil {
			return Cmd{}, fmt.Errorf("invalid register address %q: %w", toks[1], err)
		}
		v, err := strconv.ParseUint(trimHex(toks[2]), 16, 8)
		if err != nil {
			return Cmd{}, fmt.Errorf("invalid register value %q: %w", toks[2], err)
		}
		return Cmd{Op: Write, Addr: uint16(addr), Value: uint8(v)}, nil

	case "W":
		if len(toks) != 2 {
			return Cmd{}, fmt.Errorf("invalid wait command %q", txt)
		}
		us, err := strconv.ParseUint(toks[1], 10, 32)
		if err != nil {
			return Cmd{}, fmt.Errorf("invalid delay %q: %w", toks[1], err)
		}
		return Cmd{Op: Wait, Delay: time.Duration(us) * time.Microsecond}, nil
	}

	return Cmd{}, fmt.Errorf("unknown command %q", toks[0])
}

func trimHex(s string) string {
	s = strings.TrimPrefix(s, "0x")
	return strings.TrimPrefix(s, "0X")
}

// Run executes the program against the register space of a chip.
func (prog Program) Run(w io.WriterAt) error {
	var buf [1]byte
	for i, cmd := range prog {
		switch cmd.Op {
		case Write:
			buf[0] = cmd.Value
			_, err := w.WriteAt(buf[:], int64(cmd.Addr))
			if err != nil {
				return fmt.Errorf("firmware: could not run command #%d (%v): %w", i, cmd, err)
			}
		case Wait:
			sleep(cmd.Delay)
		default:
			return fmt.Errorf("firmware: invalid command #%d (%v)", i, cmd)
		}
	}
	return nil
}
