// Package intconv provides safe integer conversion helpers for the automaton
// generator.
//
// These functions perform bounds checking before narrowing integer conversions
// to prevent silent overflow. They panic on overflow since this indicates a
// programming error (e.g. more states or equivalence classes than the
// compressed table encoding can address).
package intconv

import "math"

// IntToUint32 safely converts an int to uint32.
// Panics if n < 0 or n > math.MaxUint32.
func IntToUint32(n int) uint32 {
	// Use uint for comparison to avoid overflow on 32-bit platforms
	// where int cannot represent math.MaxUint32
	if n < 0 || uint(n) > math.MaxUint32 {
		panic("integer overflow: int value out of uint32 range")
	}
	return uint32(n)
}

// IntToUint16 safely converts an int to uint16.
// Panics if n < 0 or n > math.MaxUint16.
func IntToUint16(n int) uint16 {
	if n < 0 || n > math.MaxUint16 {
		panic("integer overflow: int value out of uint16 range")
	}
	return uint16(n)
}

// IntToInt16 safely converts an int to int16.
// Panics if n < math.MinInt16 or n > math.MaxInt16.
func IntToInt16(n int) int16 {
	if n < math.MinInt16 || n > math.MaxInt16 {
		panic("integer overflow: int value out of int16 range")
	}
	return int16(n)
}

// IntToInt32 safely converts an int to int32, used for compact state indices
// and alt counts in the compressed transition tables.
// Panics if n < math.MinInt32 or n > math.MaxInt32.
func IntToInt32(n int) int32 {
	if n < math.MinInt32 || n > math.MaxInt32 {
		panic("integer overflow: int value out of int32 range")
	}
	return int32(n)
}

// Uint64ToUint32 safely converts a uint64 to uint32.
// Panics if n > math.MaxUint32.
func Uint64ToUint32(n uint64) uint32 {
	if n > math.MaxUint32 {
		panic("integer overflow: uint64 value out of uint32 range")
	}
	return uint32(n)
}
