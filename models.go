// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"math/bits"

	"github.com/ulikunitz/rz/ec"
)

// Limits for match lengths. The writer splits longer matches from the
// LZ parser into multiple coded matches.
const (
	minMatchLen = 2
	maxMatchLen = 273
)

// maxDecodedMatchLen bounds the match length the symbol layout can
// express. The length class 15 carries eight extra bits, so a decoder
// may observe lengths beyond maxMatchLen in foreign streams.
const maxDecodedMatchLen = 381

// models holds the adaptive probability tables for one chunk sequence.
// Each table is an array so that the struct can be snapshotted and
// restored by plain assignment. A chunk with a reset control byte
// starts again from the uniform distributions.
//
// A chunk body is a sequence of symbols. Each starts with an isMatch
// decision. A literal follows with its high and low nibble, the low
// nibble conditioned on the high one. A match follows with a length
// class, optional extra length bits, a distance slot and the distance
// footer bits.
type models struct {
	isMatch  [3]uint16
	litHi    [17]uint16
	litLo    [16][17]uint16
	lenClass [17]uint16
	distSlot [14]uint16
}

// init resets all tables to the uniform distribution.
func (m *models) init() {
	ec.InitCDF(m.isMatch[:])
	ec.InitCDF(m.litHi[:])
	for i := range m.litLo {
		ec.InitCDF(m.litLo[i][:])
	}
	ec.InitCDF(m.lenClass[:])
	ec.InitCDF(m.distSlot[:])
}

// encodeLiteral codes the byte c preceded by a zero isMatch decision.
func (m *models) encodeLiteral(e *ec.Encoder, c byte) {
	e.EncodeSymbol(0, m.isMatch[:])
	hi := int(c >> 4)
	e.EncodeSymbol(hi, m.litHi[:])
	e.EncodeSymbol(int(c&0x0f), m.litLo[hi][:])
}

// encodeMatch codes a match of length u at distance o preceded by a
// one isMatch decision. The length must be in the interval
// [minMatchLen, maxMatchLen] and the distance in [1, 1<<28).
func (m *models) encodeMatch(e *ec.Encoder, u, o uint32) {
	e.EncodeSymbol(1, m.isMatch[:])
	switch {
	case u <= 13:
		e.EncodeSymbol(int(u)-minMatchLen, m.lenClass[:])
	case u <= 29:
		e.EncodeSymbol(12, m.lenClass[:])
		e.EncodeBits(u-14, 4)
	case u <= 61:
		e.EncodeSymbol(13, m.lenClass[:])
		e.EncodeBits(u-30, 5)
	case u <= 125:
		e.EncodeSymbol(14, m.lenClass[:])
		e.EncodeBits(u-62, 6)
	default:
		e.EncodeSymbol(15, m.lenClass[:])
		e.EncodeBits(u-126, 8)
	}
	b := bits.Len32(o) - 1
	if b < 12 {
		e.EncodeSymbol(b, m.distSlot[:])
	} else {
		e.EncodeSymbol(12, m.distSlot[:])
		e.EncodeBits(uint32(b-12), 4)
	}
	if b > 0 {
		e.EncodeBits(o&(1<<b-1), b)
	}
}

// decodeSymbol reads the isMatch decision and either a literal or a
// match. For a literal match is false and c holds the byte. For a
// match u holds the length and o the distance.
func (m *models) decodeSymbol(d *ec.Decoder) (match bool, c byte, u, o uint32) {
	if d.DecodeSymbol(m.isMatch[:]) == 0 {
		hi := d.DecodeSymbol(m.litHi[:])
		lo := d.DecodeSymbol(m.litLo[hi][:])
		return false, byte(hi<<4 | lo), 0, 0
	}
	switch s := d.DecodeSymbol(m.lenClass[:]); {
	case s <= 11:
		u = uint32(s) + minMatchLen
	case s == 12:
		u = 14 + d.DecodeBits(4)
	case s == 13:
		u = 30 + d.DecodeBits(5)
	case s == 14:
		u = 62 + d.DecodeBits(6)
	default:
		u = 126 + d.DecodeBits(8)
	}
	b := d.DecodeSymbol(m.distSlot[:])
	if b == 12 {
		b += int(d.DecodeBits(4))
	}
	o = 1 << b
	if b > 0 {
		o |= d.DecodeBits(b)
	}
	return true, 0, u, o
}
