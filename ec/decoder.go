// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package ec

import "math/bits"

const (
	// windowBits is the size of the decoder window dif.
	windowBits = 32

	// lotsOfBits replaces cnt once the input is exhausted. The window
	// then delivers synthesized zero bits and Overread starts to
	// report true as soon as such bits reach a decision.
	lotsOfBits = 0x4000
)

// Decoder decodes a buffer produced by an [Encoder]. It cannot fail:
// past the end of the buffer it continues with synthesized zero bits
// and records the fact for [Decoder.Overread]. The zero value is not
// usable; use NewDecoder or Reset.
//
// The decoder reads the buffer only during calls; the caller must not
// modify it while decoding.
type Decoder struct {
	buf  []byte
	bptr int
	// keeps Tell consistent once bptr stops advancing
	tellOffs int
	// complement window; the top 16 bits are the operating frame
	dif uint32
	rng uint32
	cnt int
}

// NewDecoder creates a decoder for buf. Any content, including an
// empty slice, is decodable; the operation sequence and the buffer
// length are conveyed outside the coded stream.
func NewDecoder(buf []byte) *Decoder {
	d := new(Decoder)
	d.Reset(buf)
	return d
}

// Reset prepares the decoder for a new buffer, reusing the instance.
func (d *Decoder) Reset(buf []byte) {
	*d = Decoder{
		buf:      buf,
		tellOffs: -14,
		dif:      1<<(windowBits-1) - 1,
		rng:      0x8000,
		cnt:      -15,
	}
	d.refill()
}

// DecodeBool decodes a binary value coded with the Q15 probability f
// that the value is true. f must be in (0, 32768).
func (d *Decoder) DecodeBool(f uint16) bool {
	if f == 0 || f >= probTop {
		panic("ec: probability out of range")
	}
	dif := d.dif
	r := d.rng
	if r < probTop {
		panic("ec: decoder not initialized")
	}
	v := ((r >> 8) * uint32(f)) >> 7
	vw := v << (windowBits - 16)
	val := true
	rng := v
	if dif >= vw {
		val = false
		rng = r - v
		dif -= vw
	}
	d.normalize(dif, rng)
	return val
}

// DecodeCDF decodes a symbol under a fixed distribution, mirroring
// [Encoder.EncodeCDF]. The table is not modified.
func (d *Decoder) DecodeCDF(cdf []uint16) int {
	cdfSymbols(cdf)
	dif := d.dif
	r := d.rng
	if r < probTop {
		panic("ec: decoder not initialized")
	}
	c := dif >> (windowBits - 16)
	v := r
	s := -1
	var u uint32
	for {
		s++
		u = v
		v = ((r >> 8) * uint32(cdf[s])) >> 7
		if v <= c {
			break
		}
	}
	d.normalize(dif-v<<(windowBits-16), u-v)
	return s
}

// DecodeSymbol decodes a symbol and applies the same adaptation as
// [Encoder.EncodeSymbol] on the encoding side.
func (d *Decoder) DecodeSymbol(cdf []uint16) int {
	s := d.DecodeCDF(cdf)
	updateCDF(cdf, s)
	return s
}

// DecodeBits decodes n raw bits, most significant bit first. n must be
// in [0, 32].
func (d *Decoder) DecodeBits(n int) uint32 {
	if n < 0 || n > 32 {
		panic("ec: bit count out of range")
	}
	var v uint32
	for i := 0; i < n; i++ {
		v <<= 1
		if d.DecodeBool(probTop / 2) {
			v |= 1
		}
	}
	return v
}

// normalize restores 0x8000 <= rng <= 0xFFFF after a decode step. The
// window shifts in one bits; refill flips them to the complement of
// the loaded bytes.
func (d *Decoder) normalize(dif, rng uint32) {
	s := 16 - bits.Len32(rng)
	d.cnt -= s
	d.dif = (dif+1)<<s - 1
	d.rng = rng << s
	if d.cnt < 0 {
		d.refill()
	}
}

// refill loads input bytes into the window until at least nine unused
// bits sit below the operating frame. When the buffer is exhausted it
// pretends cnt holds plenty of bits, so the ones shifted in by
// normalize act as zero bits of input.
func (d *Decoder) refill() {
	s := windowBits - 9 - (d.cnt + 15)
	for s >= 0 && d.bptr < len(d.buf) {
		d.dif ^= uint32(d.buf[d.bptr]) << s
		d.cnt += 8
		d.bptr++
		s -= 8
	}
	if d.bptr == len(d.buf) {
		d.tellOffs += lotsOfBits - d.cnt
		d.cnt = lotsOfBits
	}
}

// Tell returns the number of bits consumed so far, including the
// reserved termination bit. It matches [Encoder.Tell] after the same
// operation sequence.
func (d *Decoder) Tell() int {
	return 8*d.bptr - d.cnt + d.tellOffs
}

// Overread reports whether decoding has consumed bits past the end of
// the buffer. Such bits are synthesized as zeros and decoding remains
// deterministic; whether running past the end is an error is for the
// caller to judge. Decoding a complete stream with the operation
// sequence it was encoded with never overreads.
func (d *Decoder) Overread() bool {
	return d.Tell()-1 > 8*len(d.buf)
}
