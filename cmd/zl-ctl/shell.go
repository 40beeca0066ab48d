// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-lpc/zldpll"
	"github.com/go-lpc/zldpll/conddb"
	"github.com/go-lpc/zldpll/config"
	"github.com/go-lpc/zldpll/zl3073x"
	"github.com/peterh/liner"
)

type command struct {
	usage string
	help  string
	nargs [2]int // min and max number of arguments
	run   func(args []string) error
}

type shell struct {
	cfg config.Config
	dev *zl3073x.Device
	msg *log.Logger
	w   io.Writer

	db    *conddb.DB
	board string

	cmds map[string]command
}

func newShell(cfg config.Config, w io.Writer) (*shell, error) {
	sh := &shell{
		cfg: cfg,
		msg: log.New(w, "zl3073x: ", 0),
		w:   w,
	}

	dev, err := cfg.Device.Open(sh.msg)
	if err != nil {
		return nil, fmt.Errorf("could not open device: %w", err)
	}
	sh.dev = dev

	sh.cmds = map[string]command{
		"help":     {usage: "help", help: "list the available commands", run: sh.cmdHelp},
		"info":     {usage: "info", help: "display the chip identity and the DPLLs status", run: sh.cmdInfo},
		"pins":     {usage: "pins", help: "list the pins", run: sh.cmdPins},
		"time":     {usage: "time DPLL [next]", help: "read the time of day", nargs: [2]int{1, 2}, run: sh.cmdTime},
		"settime":  {usage: "settime DPLL SEC[.NSEC]|now", help: "set the time of day at the next 1PPS", nargs: [2]int{2, 2}, run: sh.cmdSetTime},
		"adjtime":  {usage: "adjtime DPLL DURATION", help: "step the time of day", nargs: [2]int{2, 2}, run: sh.cmdAdjTime},
		"adjphase": {usage: "adjphase DPLL DURATION", help: "slew the phase", nargs: [2]int{2, 2}, run: sh.cmdAdjPhase},
		"adjfine":  {usage: "adjfine DPLL SCALED-PPM", help: "adjust the frequency offset", nargs: [2]int{2, 2}, run: sh.cmdAdjFine},
		"freq":     {usage: "freq PIN [HZ]", help: "get or set the frequency of a pin", nargs: [2]int{1, 2}, run: sh.cmdFreq},
		"phase":    {usage: "phase PIN [PS]", help: "get or set the phase compensation of a pin", nargs: [2]int{1, 2}, run: sh.cmdPhase},
		"esync":    {usage: "esync PIN [HZ]", help: "get or set the embedded sync of a pin", nargs: [2]int{1, 2}, run: sh.cmdEsync},
		"prio":     {usage: "prio DPLL PIN [PRIO]", help: "get or set the priority of a reference", nargs: [2]int{2, 3}, run: sh.cmdPrio},
		"state":    {usage: "state DPLL PIN", help: "display the state of a pin", nargs: [2]int{2, 2}, run: sh.cmdState},
		"perout":   {usage: "perout DPLL PIN on|off [WIDTH]", help: "enable or disable a 1PPS output", nargs: [2]int{3, 4}, run: sh.cmdPerout},
		"ffo":      {usage: "ffo DPLL PIN", help: "measure the fractional frequency offset of a reference", nargs: [2]int{2, 2}, run: sh.cmdFFO},
		"offset":   {usage: "offset DPLL PIN", help: "measure the phase offset of a reference", nargs: [2]int{2, 2}, run: sh.cmdOffset},
		"apply":    {usage: "apply", help: "apply the pin settings of the configuration", run: sh.cmdApply},
		"firmware": {usage: "firmware FILE", help: "reattach the chip, loading a firmware", nargs: [2]int{1, 1}, run: sh.cmdFirmware},
		"profiles": {usage: "profiles", help: "list the board profiles", run: sh.cmdProfiles},
		"load":     {usage: "load PROFILE", help: "apply a board profile", nargs: [2]int{1, 1}, run: sh.cmdLoad},
		"save":     {usage: "save PROFILE", help: "save the pin settings as a board profile", nargs: [2]int{1, 1}, run: sh.cmdSave},
		"version":  {usage: "version", help: "display the version of zldpll", run: sh.cmdVersion},
	}

	return sh, nil
}

func (sh *shell) close() {
	if sh.dev == nil {
		return
	}
	err := sh.dev.Close()
	if err != nil {
		log.Printf("could not close device: %+v", err)
	}
	sh.dev = nil
}

func (sh *shell) exec(line string) error {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return nil
	}

	name, args := toks[0], toks[1:]
	cmd, ok := sh.cmds[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try \"help\")", name)
	}
	if len(args) < cmd.nargs[0] || len(args) > cmd.nargs[1] {
		return fmt.Errorf("invalid number of arguments (usage: %s)", cmd.usage)
	}
	if sh.dev == nil && name != "help" {
		return fmt.Errorf("no device attached")
	}
	return cmd.run(args)
}

func (sh *shell) repl(hist string) error {
	ln := liner.NewLiner()
	defer ln.Close()

	ln.SetCtrlCAborts(true)
	ln.SetCompleter(sh.complete)

	if hist != "" {
		if f, err := os.Open(hist); err == nil {
			_, _ = ln.ReadHistory(f)
			f.Close()
		}
		defer func() {
			f, err := os.Create(hist)
			if err != nil {
				log.Printf("could not save history: %+v", err)
				return
			}
			defer f.Close()
			_, _ = ln.WriteHistory(f)
		}()
	}

	for {
		line, err := ln.Prompt("zl> ")
		switch {
		case err == nil:
			// ok.
		case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			fmt.Fprintln(sh.w)
			return nil
		default:
			return fmt.Errorf("could not read command: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		switch line {
		case "quit", "exit":
			return nil
		}

		err = sh.exec(line)
		if err != nil {
			fmt.Fprintf(sh.w, "error: %+v\n", err)
		}
	}
}

// complete completes command names, then pin names.
func (sh *shell) complete(line string) []string {
	var (
		i      = strings.LastIndex(line, " ")
		head   = line[:i+1]
		prefix = line[i+1:]
		names  []string
	)
	switch i {
	case -1:
		for name := range sh.cmds {
			names = append(names, name)
		}
	default:
		if sh.dev == nil {
			return nil
		}
		for _, p := range sh.dev.Pins() {
			names = append(names, p.Name())
		}
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			out = append(out, head+name)
		}
	}
	return out
}

func (sh *shell) dpll(arg string) (*zl3073x.DPLL, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("could not parse DPLL index %q: %w", arg, err)
	}
	return sh.dev.DPLL(i)
}

func (sh *shell) dpllPin(args []string) (*zl3073x.DPLL, *zl3073x.Pin, error) {
	dpll, err := sh.dpll(args[0])
	if err != nil {
		return nil, nil, err
	}
	pin, err := sh.dev.Pin(args[1])
	if err != nil {
		return nil, nil, err
	}
	return dpll, pin, nil
}

func (sh *shell) cmdHelp(args []string) error {
	names := make([]string, 0, len(sh.cmds))
	for name := range sh.cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	o := tabwriter.NewWriter(sh.w, 0, 8, 2, ' ', 0)
	for _, name := range names {
		cmd := sh.cmds[name]
		fmt.Fprintf(o, "  %s\t%s\n", cmd.usage, cmd.help)
	}
	fmt.Fprintf(o, "  quit\texit the interactive session\n")
	return o.Flush()
}

func (sh *shell) cmdVersion(args []string) error {
	v, sum := zldpll.Version()
	if v == "" {
		v = "(devel)"
	}
	fmt.Fprintf(sh.w, "version: %s\n", strings.TrimSpace(v+" "+sum))
	return nil
}

func (sh *shell) cmdInfo(args []string) error {
	fmt.Fprintf(sh.w, "chip-id:  0x%04x\n", sh.dev.ChipID())
	fmt.Fprintf(sh.w, "clock-id: 0x%016x\n", sh.dev.ClockID())
	for _, dpll := range sh.dev.DPLLs() {
		status, err := dpll.LockStatus()
		if err != nil {
			return err
		}
		mode, err := dpll.Mode()
		if err != nil && !errors.Is(err, zl3073x.ErrUnsupported) {
			return err
		}
		fmt.Fprintf(sh.w, "%v: status=%v, mode=%v\n", dpll, status, mode)
	}
	return nil
}

func (sh *shell) cmdPins(args []string) error {
	o := tabwriter.NewWriter(sh.w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(o, "NAME\tDIR\tKIND\tTYPE\tFREQ\tPHASE\n")
	for _, p := range sh.dev.Pins() {
		freq := "n/a"
		if v, err := p.Frequency(); err == nil {
			freq = strconv.FormatUint(v, 10)
		}
		phase := "n/a"
		if v, err := p.PhaseAdjust(); err == nil {
			phase = strconv.FormatInt(int64(v), 10)
		}
		fmt.Fprintf(o, "%s\t%v\t%v\t%v\t%s\t%s\n",
			p.Name(), p.Direction(), p.Kind(), p.SignalType(), freq, phase,
		)
	}
	return o.Flush()
}

func (sh *shell) cmdTime(args []string) error {
	dpll, err := sh.dpll(args[0])
	if err != nil {
		return err
	}

	var t time.Time
	switch {
	case len(args) == 1:
		t, err = dpll.Time()
	case args[1] == "next":
		t, err = dpll.NextTime()
	default:
		return fmt.Errorf("invalid time argument %q", args[1])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "%v: %d.%09d (%s)\n", dpll, t.Unix(), t.Nanosecond(), t.UTC().Format(time.RFC3339Nano))
	return nil
}

func parseTime(s string) (time.Time, error) {
	if s == "now" {
		return time.Now(), nil
	}

	str, frac, _ := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse seconds %q: %w", s, err)
	}
	if len(frac) > 9 {
		return time.Time{}, fmt.Errorf("invalid nanoseconds %q", s)
	}
	var nsec int64
	if frac != "" {
		nsec, err = strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("could not parse nanoseconds %q: %w", s, err)
		}
	}
	return time.Unix(sec, nsec), nil
}

func (sh *shell) cmdSetTime(args []string) error {
	dpll, err := sh.dpll(args[0])
	if err != nil {
		return err
	}
	t, err := parseTime(args[1])
	if err != nil {
		return err
	}
	return dpll.SetTime(t)
}

func (sh *shell) cmdAdjTime(args []string) error {
	dpll, err := sh.dpll(args[0])
	if err != nil {
		return err
	}
	delta, err := time.ParseDuration(args[1])
	if err != nil {
		return fmt.Errorf("could not parse time step: %w", err)
	}
	return dpll.AdjTime(delta)
}

func (sh *shell) cmdAdjPhase(args []string) error {
	dpll, err := sh.dpll(args[0])
	if err != nil {
		return err
	}
	delta, err := time.ParseDuration(args[1])
	if err != nil {
		return fmt.Errorf("could not parse phase step: %w", err)
	}
	return dpll.AdjPhase(delta)
}

func (sh *shell) cmdAdjFine(args []string) error {
	dpll, err := sh.dpll(args[0])
	if err != nil {
		return err
	}
	ppm, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("could not parse frequency offset: %w", err)
	}
	return dpll.AdjFine(ppm)
}

func (sh *shell) cmdFreq(args []string) error {
	pin, err := sh.dev.Pin(args[0])
	if err != nil {
		return err
	}
	if len(args) == 2 {
		v, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("could not parse frequency: %w", err)
		}
		return pin.SetFrequency(v)
	}

	v, err := pin.Frequency()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "%s: %d Hz\n", pin.Name(), v)
	return nil
}

func (sh *shell) cmdPhase(args []string) error {
	pin, err := sh.dev.Pin(args[0])
	if err != nil {
		return err
	}
	if len(args) == 2 {
		v, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("could not parse phase compensation: %w", err)
		}
		return pin.SetPhaseAdjust(int32(v))
	}

	v, err := pin.PhaseAdjust()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "%s: %d ps\n", pin.Name(), v)
	return nil
}

func (sh *shell) cmdEsync(args []string) error {
	pin, err := sh.dev.Pin(args[0])
	if err != nil {
		return err
	}
	if len(args) == 2 {
		v, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("could not parse esync frequency: %w", err)
		}
		return pin.SetEsync(v)
	}

	v, err := pin.Esync()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "%s: esync=%d Hz, pulse=%d%%\n", pin.Name(), v.Freq, v.Pulse)
	return nil
}

func (sh *shell) cmdPrio(args []string) error {
	dpll, pin, err := sh.dpllPin(args)
	if err != nil {
		return err
	}
	if len(args) == 3 {
		v, err := strconv.ParseUint(args[2], 10, 8)
		if err != nil {
			return fmt.Errorf("could not parse priority: %w", err)
		}
		return dpll.SetPriority(pin, uint8(v))
	}

	v, err := dpll.Priority(pin)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "%s: priority=%d on %v\n", pin.Name(), v, dpll)
	return nil
}

func (sh *shell) cmdState(args []string) error {
	dpll, pin, err := sh.dpllPin(args)
	if err != nil {
		return err
	}
	st, err := dpll.PinState(pin)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "%s: %v on %v\n", pin.Name(), st, dpll)
	return nil
}

func (sh *shell) cmdPerout(args []string) error {
	dpll, pin, err := sh.dpllPin(args)
	if err != nil {
		return err
	}

	switch args[2] {
	case "on":
		req := zl3073x.PeroutRequest{Period: time.Second}
		if len(args) == 4 {
			req.On, err = time.ParseDuration(args[3])
			if err != nil {
				return fmt.Errorf("could not parse pulse width: %w", err)
			}
		}
		return dpll.EnablePerout(pin, req)
	case "off":
		return dpll.DisablePerout(pin)
	}
	return fmt.Errorf("invalid periodic output request %q", args[2])
}

func (sh *shell) cmdFFO(args []string) error {
	dpll, pin, err := sh.dpllPin(args)
	if err != nil {
		return err
	}
	v, err := dpll.FFO(pin)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "%s: ffo=%d (%.3f ppb)\n", pin.Name(), v, float64(v)*1e9/(1<<32))
	return nil
}

func (sh *shell) cmdOffset(args []string) error {
	dpll, pin, err := sh.dpllPin(args)
	if err != nil {
		return err
	}
	v, err := dpll.PhaseOffset(pin)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "%s: phase-offset=%d ps\n", pin.Name(), v)
	return nil
}

func (sh *shell) cmdApply(args []string) error {
	return config.Apply(sh.dev, sh.cfg.Pins)
}

func (sh *shell) cmdFirmware(args []string) error {
	sh.close()

	dev := sh.cfg.Device
	dev.Firmware = args[0]
	zl, err := dev.Open(sh.msg)
	if err != nil {
		// reattach without the new firmware.
		var rerr error
		sh.dev, rerr = sh.cfg.Device.Open(sh.msg)
		if rerr != nil {
			return fmt.Errorf("could not reattach device: %w", errors.Join(err, rerr))
		}
		return err
	}
	sh.dev = zl
	return nil
}

func (sh *shell) dbCtx() (context.Context, context.CancelFunc, error) {
	if sh.db == nil {
		return nil, nil, fmt.Errorf("no board-profiles db (see -db)")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	return ctx, cancel, nil
}

func (sh *shell) cmdProfiles(args []string) error {
	ctx, cancel, err := sh.dbCtx()
	if err != nil {
		return err
	}
	defer cancel()

	ps, err := sh.db.Profiles(ctx)
	if err != nil {
		return err
	}
	o := tabwriter.NewWriter(sh.w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(o, "ID\tNAME\tBOARD\tDATE\n")
	for _, p := range ps {
		fmt.Fprintf(o, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Board, p.Date.Format(time.RFC3339))
	}
	return o.Flush()
}

func (sh *shell) cmdLoad(args []string) error {
	ctx, cancel, err := sh.dbCtx()
	if err != nil {
		return err
	}
	defer cancel()

	pins, err := sh.db.PinSettings(ctx, args[0])
	if err != nil {
		return err
	}
	return config.Apply(sh.dev, pins)
}

func (sh *shell) cmdSave(args []string) error {
	ctx, cancel, err := sh.dbCtx()
	if err != nil {
		return err
	}
	defer cancel()

	if sh.board == "" {
		return fmt.Errorf("no board name (see -board)")
	}

	pins, err := config.Snapshot(sh.dev)
	if err != nil {
		return err
	}
	return sh.db.SaveProfile(ctx, args[0], sh.board, pins)
}
