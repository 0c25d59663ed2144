// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package ec

import "math/bits"

// Encoder is a range encoder over Q15 probabilities. It collects
// output in an internal buffer and resolves carries when Done is
// called. The zero value is not usable; use NewEncoder.
type Encoder struct {
	// output bytes with their carry flags in bit 8
	precarry []uint16
	// low end of the current range
	low uint32
	// size of the current range, normalized to [0x8000, 0xFFFF]
	rng uint32
	// bits of finished data in low
	cnt int
}

// NewEncoder creates an empty encoder.
func NewEncoder() *Encoder {
	e := new(Encoder)
	e.Reset()
	return e
}

// Reset returns the encoder to its initial state. The output buffer is
// retained and reused.
func (e *Encoder) Reset() {
	e.precarry = e.precarry[:0]
	e.low = 0
	e.rng = 0x8000
	// crosses zero once one byte and one carry bit have accumulated
	e.cnt = -9
}

// EncodeBool encodes a single binary value. The argument f is the Q15
// probability that val is true and must be in (0, 32768).
func (e *Encoder) EncodeBool(val bool, f uint16) {
	if f == 0 || f >= probTop {
		panic("ec: probability out of range")
	}
	l := e.low
	r := e.rng
	if r < probTop {
		panic("ec: encoder not initialized")
	}
	v := ((r >> 8) * uint32(f)) >> 7
	if val {
		l += r - v
		r = v
	} else {
		r -= v
	}
	e.normalize(l, r)
}

// EncodeCDF encodes symbol s under a fixed distribution. The table
// uses the layout described in the package documentation; the counter
// cell is ignored and the table is not modified.
func (e *Encoder) EncodeCDF(s int, cdf []uint16) {
	n := cdfSymbols(cdf)
	if s < 0 || s >= n {
		panic("ec: symbol out of range")
	}
	fl := uint16(probTop)
	if s > 0 {
		fl = cdf[s-1]
	}
	e.encodeQ15(fl, cdf[s])
}

// EncodeSymbol encodes symbol s and adapts the table toward it. The
// decoder applies the identical update, so both sides track the same
// distribution.
func (e *Encoder) EncodeSymbol(s int, cdf []uint16) {
	e.EncodeCDF(s, cdf)
	updateCDF(cdf, s)
}

// EncodeBits encodes the n least significant bits of v directly, most
// significant bit first. n must be in [0, 32].
func (e *Encoder) EncodeBits(v uint32, n int) {
	if n < 0 || n > 32 {
		panic("ec: bit count out of range")
	}
	for i := n - 1; i >= 0; i-- {
		e.EncodeBool(v>>i&1 == 1, probTop/2)
	}
}

// encodeQ15 encodes a symbol spanning the inverted frequency interval
// [fh, fl). fl is 32768 minus the cumulative frequency of the symbols
// before the coded one, fh includes the coded symbol.
func (e *Encoder) encodeQ15(fl, fh uint16) {
	l := e.low
	r := e.rng
	if r < probTop {
		panic("ec: encoder not initialized")
	}
	if fh >= fl || fl > probTop {
		panic("ec: invalid frequency interval")
	}
	if fl < probTop {
		u := ((r >> 8) * uint32(fl)) >> 7
		v := ((r >> 8) * uint32(fh)) >> 7
		l += r - u
		r = u - v
	} else {
		r -= ((r >> 8) * uint32(fh)) >> 7
	}
	e.normalize(l, r)
}

// normalize restores 0x8000 <= rng <= 0xFFFF after an encode step and
// moves finished bits from low into the precarry buffer.
func (e *Encoder) normalize(low, rng uint32) {
	d := 16 - bits.Len32(rng)
	s := e.cnt + d
	if s >= 0 {
		c := e.cnt + 16
		m := uint32(1)<<c - 1
		if s >= 8 {
			e.precarry = append(e.precarry, uint16(low>>c))
			low &= m
			c -= 8
			m >>= 8
		}
		e.precarry = append(e.precarry, uint16(low>>c))
		s = c + d - 24
		low &= m
	}
	e.low = low << d
	e.rng = rng << d
	e.cnt = s
}

// Tell returns the number of output bits the operations so far
// require, plus one reserved termination bit. A decoder reports the
// same value after the same operations. Call it before Done.
func (e *Encoder) Tell() int {
	return e.cnt + 10 + 8*len(e.precarry)
}

// A Checkpoint stores an encoder position for Rollback.
type Checkpoint struct {
	low uint32
	rng uint32
	cnt int
	n   int
}

// Checkpoint captures the current encoder state. Taking a checkpoint
// is cheap; the output buffer is not copied.
func (e *Encoder) Checkpoint() Checkpoint {
	return Checkpoint{low: e.low, rng: e.rng, cnt: e.cnt, n: len(e.precarry)}
}

// Rollback rewinds the encoder to a state captured by Checkpoint on
// the same encoder. Everything encoded since then is discarded.
func (e *Encoder) Rollback(c Checkpoint) {
	if c.rng < probTop || c.n > len(e.precarry) {
		panic("ec: invalid checkpoint")
	}
	e.precarry = e.precarry[:c.n]
	e.low = c.low
	e.rng = c.rng
	e.cnt = c.cnt
}

// Done terminates the stream and returns the coded buffer. It emits
// the minimum number of bits that keeps every encoded symbol decodable
// regardless of the bits a decoder synthesizes afterwards, then
// resolves all pending carries in a single backward pass. An encoder
// without operations yields an empty slice. After Done the encoder
// must be Reset before it can encode again.
func (e *Encoder) Done() []byte {
	l := e.low
	r := e.rng
	if r < probTop {
		panic("ec: encoder not initialized")
	}
	c := e.cnt
	s := 9
	m := uint32(0x7FFF)
	u := (l + m) &^ m
	for (u | m) >= l+r {
		s++
		m >>= 1
		u = (l + m) &^ m
	}
	s += c
	if s > 0 {
		n := uint32(1)<<(c+16) - 1
		for {
			e.precarry = append(e.precarry, uint16(u>>(c+16)))
			u &= n
			s -= 8
			c -= 8
			n >>= 8
			if s <= 0 {
				break
			}
		}
	}

	out := make([]byte, len(e.precarry))
	var carry uint32
	for i := len(e.precarry) - 1; i >= 0; i-- {
		carry += uint32(e.precarry[i])
		out[i] = byte(carry)
		carry >>= 8
	}

	e.rng = 0
	return out
}
