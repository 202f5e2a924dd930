// SPDX-License-Identifier: MIT

/*
Package bitint provides power-of-two helpers for sizing real-time buffers.
Ring buffers index with a mask instead of a modulo, and FFT sizes must be
powers of two, so both round their requested size with NextPowerOfTwo.

All helpers are allocation free and constant time.

	capacity := bitint.NextPowerOfTwo(1000) // 1024
	mask := uint64(capacity - 1)

The (size-1) in NextPowerOfTwo keeps exact powers of two unchanged:
bits.Len64(7) = 3 and 1<<3 = 8, whereas bits.Len64(8) = 4 would double it.
*/
package bitint

import "math/bits"

// Integer is the set of integer types the helpers accept.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// NextPowerOfTwo returns the smallest power of two >= size. Zero and
// negative sizes return 1. The result overflows silently when size is larger
// than the biggest power of two T can hold.
func NextPowerOfTwo[T Integer](size T) T {
	if size <= 1 {
		return 1
	}
	return T(1) << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   not positive
func IsPowerOfTwo[T Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// Mask returns size-1 as a uint64 when size is a power of two, for use as a
// wrap-around index mask. ok is false for any other size.
func Mask[T Integer](size T) (mask uint64, ok bool) {
	if !IsPowerOfTwo(size) {
		return 0, false
	}
	return uint64(size - 1), true
}
