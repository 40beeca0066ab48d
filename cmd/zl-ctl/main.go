// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zl-ctl is an interactive shell driving a ZL3073x DPLL chip.
//
// Usage:
//
//	$> zl-ctl [OPTIONS] [COMMAND [ARGS...]]
//
// Without a command, zl-ctl starts an interactive session.
// Type "help" to list the available commands.
//
// Example:
//
//	$> zl-ctl -cfg ./board.yaml pins
//	$> zl-ctl -cfg ./board.yaml adjtime 1 -1.5us
//	$> zl-ctl -cfg ./board.yaml -db zldpll -board lab-01
//	zl> profiles
//	zl> save nominal
package main // import "github.com/go-lpc/zldpll/cmd/zl-ctl"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/zldpll/conddb"
	"github.com/go-lpc/zldpll/config"
	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetPrefix("zl-ctl: ")
	log.SetFlags(0)

	var (
		fname  = flag.String("cfg", "/etc/zldpll/board.yaml", "path to the board configuration file")
		dbname = flag.String("db", "", "name of the board-profiles database (disabled if empty)")
		board  = flag.String("board", "", "board name of the profiles")
	)

	flag.Parse()

	err := run(*fname, *dbname, *board, flag.Args(), os.Stdout)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(fname, dbname, board string, args []string, w io.Writer) error {
	cfg, err := config.Load(fname)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}

	sh, err := newShell(cfg, w)
	if err != nil {
		return fmt.Errorf("could not create shell: %w", err)
	}
	defer sh.close()

	sh.board = board
	if dbname != "" {
		db, err := conddb.Open(dbname)
		if err != nil {
			return fmt.Errorf("could not open board-profiles db: %w", err)
		}
		defer db.Close()
		sh.db = db
	}

	if len(args) > 0 {
		return sh.exec(strings.Join(args, " "))
	}

	return sh.repl(histFile())
}

func histFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".zl-ctl_history")
}
