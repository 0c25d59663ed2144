// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

// putLE32 stores the uint32 value in the first four bytes of p in
// little-endian order.
func putLE32(p []byte, u uint32) {
	_ = p[3]
	p[0] = byte(u)
	p[1] = byte(u >> 8)
	p[2] = byte(u >> 16)
	p[3] = byte(u >> 24)
}

// getLE32 reads a little-endian uint32 from the first four bytes of p.
func getLE32(p []byte) uint32 {
	_ = p[3]
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 |
		uint32(p[3])<<24
}
