// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zl-srv starts a TDAQ server driving a ZL3073x DPLL chip.
//
// The chip is attached on /init, monitored between /start and /stop,
// and its lock status transitions are published on the /status output.
//
// Usage:
//
//	$> zl-srv [TDAQ-OPTIONS] board.yaml
package main // import "github.com/go-lpc/zldpll/cmd/zl-srv"

import (
	"context"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
)

func main() {
	log.SetPrefix("zl-srv: ")
	log.SetFlags(0)

	cmd := flags.New()
	if len(cmd.Args) == 0 {
		log.Fatalf("missing board configuration file")
	}

	dev := newServer(cmd.Args[0])

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/status", dev.status)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
