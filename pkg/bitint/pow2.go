// SPDX-License-Identifier: MIT

// Package bitint provides the power-of-two arithmetic used to size capture
// buffers. Device drivers deliver audio most reliably in power-of-two
// blocks, so a latency in sample frames is rounded up before it becomes a
// datagram size.
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Subtracting 1 first
// keeps exact powers of two unchanged.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// ClampPowerOfTwo rounds n up to a power of two and limits the result to
// [lo, hi]. lo and hi are expected to be powers of two themselves.
func ClampPowerOfTwo(n, lo, hi int) int {
	p := NextPowerOfTwo(n)
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
