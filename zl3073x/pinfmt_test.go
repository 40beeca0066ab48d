// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import "testing"

func TestFormat(t *testing.T) {
	for _, tc := range []struct {
		cur     Format
		half    Half
		enable  Format
		disable Format
	}{
		{BothDisabled, HalfP, PEnable, BothDisabled},
		{BothDisabled, HalfN, NEnable, BothDisabled},
		{PEnable, HalfP, BothEnabled, BothDisabled},
		{PEnable, HalfN, BothEnabled, BothDisabled},
		{NEnable, HalfP, BothEnabled, BothDisabled},
		{NEnable, HalfN, BothEnabled, BothDisabled},
		{BothEnabled, HalfP, BothEnabled, NEnable},
		{BothEnabled, HalfN, BothEnabled, PEnable},
		{NDivided, HalfP, BothEnabled, BothDisabled},
		{NDividedAndInverted, HalfN, BothEnabled, BothDisabled},
	} {
		t.Run(tc.cur.String()+"-"+tc.half.String(), func(t *testing.T) {
			if got, want := EnableFormat(tc.cur, tc.half), tc.enable; got != want {
				t.Fatalf("invalid enabled format: got=%v, want=%v", got, want)
			}
			if got, want := DisableFormat(tc.cur, tc.half), tc.disable; got != want {
				t.Fatalf("invalid disabled format: got=%v, want=%v", got, want)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	for _, tc := range []struct {
		f    Format
		want string
	}{
		{BothDisabled, "both-disabled"},
		{NDividedAndInverted, "n-divided-inverted"},
		{Format(0xe), "Format(0xe)"},
	} {
		if got := tc.f.String(); got != tc.want {
			t.Fatalf("invalid string: got=%q, want=%q", got, tc.want)
		}
	}
}
