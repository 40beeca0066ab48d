// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import "math"

// signExtend interprets the low bits of v as a two's complement value.
func signExtend(v uint64, bits uint) int64 {
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

// twos encodes v as a bits-wide two's complement value.
func twos(v int64, bits uint) uint64 {
	if bits >= 64 {
		return uint64(v)
	}
	return uint64(v) & (1<<bits - 1)
}

// fits reports whether v is representable as a bits-wide signed value.
func fits(v int64, bits uint) bool {
	if bits >= 64 {
		return true
	}
	lim := int64(1) << (bits - 1)
	return -lim <= v && v < lim
}

// negInt32 negates v, reporting whether the result fits a signed 32-bit value.
func negInt32(v int64) (int32, bool) {
	v = -v
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}
