// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zldpll

import (
	"runtime/debug"
	"testing"
)

func TestVersionOf(t *testing.T) {
	const root = "github.com/go-lpc/zldpll"
	for _, tc := range []struct {
		name    string
		b       *debug.BuildInfo
		version string
		sum     string
	}{
		{"nil", nil, "", ""},
		{
			name: "no-dep",
			b:    &debug.BuildInfo{Deps: []*debug.Module{{Path: "example.com/m", Version: "v1.0.0"}}},
		},
		{
			name:    "dep",
			b:       &debug.BuildInfo{Deps: []*debug.Module{{Path: root, Version: "v0.3.0", Sum: "h1:xyz"}}},
			version: "v0.3.0",
			sum:     "h1:xyz",
		},
		{
			name: "main",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: root, Version: "(devel)"},
				Deps: []*debug.Module{{Path: "example.com/m", Version: "v1.0.0"}},
			},
			version: "(devel)",
		},
		{
			name: "replace-path-version",
			b: &debug.BuildInfo{Deps: []*debug.Module{{
				Path: root, Version: "v0.3.0",
				Replace: &debug.Module{Path: "example.com/fork", Version: "v0.4.0", Sum: "h1:abc"},
			}}},
			version: "example.com/fork v0.4.0",
			sum:     "h1:abc",
		},
		{
			name: "replace-version",
			b: &debug.BuildInfo{Deps: []*debug.Module{{
				Path: root, Version: "v0.3.0",
				Replace: &debug.Module{Version: "v0.4.0", Sum: "h1:abc"},
			}}},
			version: "v0.4.0",
			sum:     "h1:abc",
		},
		{
			name: "replace-path",
			b: &debug.BuildInfo{Deps: []*debug.Module{{
				Path: root, Version: "v0.3.0",
				Replace: &debug.Module{Path: "../zldpll"},
			}}},
			version: "../zldpll",
		},
		{
			name: "replace-empty",
			b: &debug.BuildInfo{Deps: []*debug.Module{{
				Path: root, Version: "v0.3.0",
				Replace: &debug.Module{},
			}}},
			version: "v0.3.0*",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			version, sum := versionOf(tc.b)
			if version != tc.version {
				t.Fatalf("invalid version: got=%q, want=%q", version, tc.version)
			}
			if sum != tc.sum {
				t.Fatalf("invalid sum: got=%q, want=%q", sum, tc.sum)
			}
		})
	}
}
