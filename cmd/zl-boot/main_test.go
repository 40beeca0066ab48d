// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skipf("could not find sleep: %+v", err)
	}

	var killed []string
	defer func(f func(string) error) { killall = f }(killall)
	killall = func(name string) error {
		killed = append(killed, name)
		return errors.New("no process found")
	}

	for _, tc := range []struct {
		name string
		cmds func() []*exec.Cmd
		mon  bool
		stop bool
		err  bool
	}{
		{
			name: "simple",
			cmds: func() []*exec.Cmd {
				return []*exec.Cmd{
					exec.Command(sleep, "1"),
					exec.Command(sleep, "1"),
				}
			},
		},
		{
			name: "simple-pmon",
			cmds: func() []*exec.Cmd {
				return []*exec.Cmd{
					exec.Command(sleep, "1"),
					exec.Command(sleep, "1"),
				}
			},
			mon: true,
		},
		{
			name: "simple-stop",
			cmds: func() []*exec.Cmd {
				return []*exec.Cmd{
					exec.Command(sleep, "30"),
					exec.Command(sleep, "30"),
				}
			},
			stop: true,
		},
		{
			name: "simple-stop-pmon",
			cmds: func() []*exec.Cmd {
				return []*exec.Cmd{
					exec.Command(sleep, "30"),
					exec.Command(sleep, "30"),
				}
			},
			stop: true,
			mon:  true,
		},
		{
			name: "failure",
			cmds: func() []*exec.Cmd {
				return []*exec.Cmd{
					exec.Command(sleep, "30"),
					exec.Command(sleep, "not-a-duration"),
				}
			},
			err: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "logs")
			stop := make(chan os.Signal, 1)
			if tc.stop {
				go func() {
					time.Sleep(1 * time.Second)
					stop <- os.Interrupt
				}()
			}

			beg := time.Now()
			err := run(tc.mon, 100*time.Millisecond, tc.cmds(), dir, stop)
			switch {
			case err != nil && !tc.err:
				t.Fatalf("could not run processes: %+v", err)
			case err == nil && tc.err:
				t.Fatalf("expected an error")
			}
			if delta := time.Since(beg); delta > 20*time.Second {
				t.Fatalf("processes not stopped: %v", delta)
			}

			_, err = os.Stat(filepath.Join(dir, "sleep.log"))
			if err != nil {
				t.Fatalf("missing log file: %+v", err)
			}
		})
	}

	if len(killed) == 0 || killed[0] != "sleep" {
		t.Fatalf("invalid killall calls: %q", killed)
	}
}
