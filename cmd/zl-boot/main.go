// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zl-boot (re)starts the zl-srv and zl-mon processes of a board.
//
// Each process logs into its own file under the log directory.
// When a process fails, the other ones are stopped.
//
// Usage:
//
//	$> zl-boot [OPTIONS] [TDAQ-OPTIONS-OF-ZL-SRV...]
//
// Example:
//
//	$> zl-boot -cfg /etc/zldpll/board.yaml -pmon -- -rc-addr=daq-rc:44000
package main // import "github.com/go-lpc/zldpll/cmd/zl-boot"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("zl-boot: ")
	log.SetFlags(0)

	var (
		fname  = flag.String("cfg", "/etc/zldpll/board.yaml", "path to the board configuration file")
		dir    = flag.String("dir", os.Getenv("ZLDPLL_LOGDIR"), "directory where to store the processes logs")
		doMon  = flag.Bool("pmon", false, "enable pmon monitoring")
		doFreq = flag.Duration("freq", 1*time.Second, "pmon frequency")
	)

	flag.Parse()

	srv := append(flag.Args(), *fname)
	cmds := []*exec.Cmd{
		exec.Command("zl-srv", srv...),
		exec.Command("zl-mon", "-cfg="+*fname),
	}

	stop := make(chan os.Signal, 1)
	err := run(*doMon, *doFreq, cmds, *dir, stop)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

// killall stops the already running instances of a command.
var killall = func(name string) error {
	kill := exec.Command("killall", name)
	kill.Stderr = os.Stderr
	kill.Stdout = os.Stdout
	return kill.Run()
}

func run(doMon bool, freq time.Duration, cmds []*exec.Cmd, dir string, stop chan os.Signal) error {
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	for _, cmd := range cmds {
		name := filepath.Base(cmd.Path)
		err := killall(name)
		if err != nil {
			log.Printf("could not kill %q: %+v", name, err)
		}
	}

	if dir == "" {
		dir = "/var/log/zldpll"
	}
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("could not create log directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grp, ctx := errgroup.WithContext(ctx)
	for _, cmd := range cmds {
		cmd := cmd
		grp.Go(func() error {
			return start(ctx, cmd, dir, doMon, freq)
		})
	}

	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	err = grp.Wait()
	if err != nil {
		return fmt.Errorf("could not boot board processes: %w", err)
	}
	return nil
}

func start(ctx context.Context, cmd *exec.Cmd, dir string, doMon bool, freq time.Duration) error {
	name := filepath.Base(cmd.Path)
	out, err := os.Create(filepath.Join(dir, name+".log"))
	if err != nil {
		return fmt.Errorf("could not create output log file for %q: %w", name, err)
	}
	defer out.Close()

	cmd.Stdout = out
	cmd.Stderr = out

	log.Printf("starting %q...", name)
	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start %q: %w", name, err)
	}

	errch := make(chan error, 1)
	go func() {
		errch <- cmd.Wait()
	}()

	if doMon {
		stop, err := monitor(cmd, dir, freq)
		if err != nil {
			_ = cmd.Process.Kill()
			<-errch
			return err
		}
		defer stop()
	}

	select {
	case <-ctx.Done():
		log.Printf("stopping %q...", name)
		err = cmd.Process.Kill()
		if err != nil {
			return fmt.Errorf("could not kill %q: %w", name, err)
		}
		<-errch
	case err = <-errch:
		if err != nil {
			return fmt.Errorf("could not run %q: %w", name, err)
		}
	}

	return nil
}

// monitor starts the pmon monitoring of the process of cmd.
func monitor(cmd *exec.Cmd, dir string, freq time.Duration) (func(), error) {
	name := filepath.Base(cmd.Path)
	p, err := pmon.Monitor(cmd.Process.Pid)
	if err != nil {
		return nil, fmt.Errorf("could not start monitoring %q (pid=%d): %w", name, cmd.Process.Pid, err)
	}

	f, err := os.Create(filepath.Join(dir, name+"-pmon.log"))
	if err != nil {
		return nil, fmt.Errorf("could not create pmon log file for command %q: %w", name, err)
	}
	p.W = f
	p.Freq = freq

	go func() {
		log.Printf("run pmon %q...", name)
		err := p.Run()
		if err != nil {
			log.Printf("could not start monitoring %q: %+v", name, err)
		}
	}()

	return func() {
		err := p.Kill()
		if err != nil {
			log.Printf("could not stop monitoring %q: %+v", name, err)
		}
		_ = f.Close()
	}, nil
}
