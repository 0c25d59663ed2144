// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package ec

import "math/bits"

// NewCDF allocates a table for n symbols with a uniform distribution.
// The table has n+1 cells; the last cell is the usage counter, set to
// zero. NewCDF panics if n is outside [2, 16].
func NewCDF(n int) []uint16 {
	cdf := make([]uint16, n+1)
	InitCDF(cdf)
	return cdf
}

// InitCDF overwrites cdf with the uniform distribution over
// len(cdf)-1 symbols and clears the usage counter. It allows tables
// embedded as arrays in larger structures to be (re)initialized in
// place. InitCDF panics if the slice length is not in [3, 17].
func InitCDF(cdf []uint16) {
	n := len(cdf) - 1
	if n < 2 || n > maxSymbols {
		panic("ec: table must cover 2 to 16 symbols")
	}
	for i := 0; i < n; i++ {
		cdf[i] = uint16(probTop - (i+1)*probTop/n)
	}
	cdf[n] = 0
}

// cdfSymbols returns the number of symbols the table covers and checks
// the layout invariants shared by all coding calls.
func cdfSymbols(cdf []uint16) int {
	n := len(cdf) - 1
	if n < 2 || n > maxSymbols {
		panic("ec: table must cover 2 to 16 symbols")
	}
	if cdf[n-1] != 0 {
		panic("ec: last table entry must have probability zero")
	}
	return n
}

// updateCDF moves the distribution toward the coded symbol s. The step
// size halves once the usage counter in the last cell passes 31; the
// counter saturates at 32. Entries keep a floor of 32 per symbol, so a
// table never degenerates and stays strictly decreasing.
func updateCDF(cdf []uint16, s int) {
	n := len(cdf) - 1
	rate := 4 + (bits.Len32(uint32(n)) - 1)
	if cdf[n] > 31 {
		rate++
	}
	tmp := int32(probTop - 32)
	diff := ((probTop - int32(n)<<5) >> rate) << rate
	for i := 0; i < n-1; i++ {
		if i == s {
			tmp -= diff
		}
		p := int32(cdf[i])
		cdf[i] = uint16(p + ((tmp - p) >> rate))
		tmp -= 32
	}
	if cdf[n] < counterMax {
		cdf[n]++
	}
}
