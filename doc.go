// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zldpll controls Microchip ZL3073x DPLL clock chips.
//
// The chip itself is driven by the zl3073x package, over one of the
// register transports of the bus package. The config and conddb packages
// hold the deployment settings of a board, and the monitor package samples
// its lock status and telemetry.
//
// The zl-ctl, zl-srv, zl-mon and zl-boot commands are built on top of them.
package zldpll // import "github.com/go-lpc/zldpll"

import (
	"fmt"
	"runtime/debug"
)

const modulePath = "github.com/go-lpc/zldpll"

// Version returns the version of zldpll and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	if b.Main.Path == modulePath {
		return moduleVersion(&b.Main)
	}
	for _, m := range b.Deps {
		if m.Path == modulePath {
			return moduleVersion(m)
		}
	}
	return "", ""
}

func moduleVersion(m *debug.Module) (version, sum string) {
	r := m.Replace
	switch {
	case r == nil:
		return m.Version, m.Sum
	case r.Version != "" && r.Path != "":
		return fmt.Sprintf("%s %s", r.Path, r.Version), r.Sum
	case r.Version != "":
		return r.Version, r.Sum
	case r.Path != "":
		return r.Path, r.Sum
	}
	return m.Version + "*", ""
}
