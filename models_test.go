// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"math/rand"
	"testing"

	"github.com/ulikunitz/rz/ec"
)

func TestModelsRoundTrip(t *testing.T) {
	type op struct {
		match bool
		c     byte
		u, o  uint32
	}
	rnd := rand.New(rand.NewSource(42))
	ops := make([]op, 2000)
	for i := range ops {
		if rnd.Intn(3) == 0 {
			ops[i] = op{
				match: true,
				u: uint32(minMatchLen +
					rnd.Intn(maxMatchLen-minMatchLen+1)),
				o: uint32(1 + rnd.Intn(1<<27)),
			}
		} else {
			ops[i] = op{c: byte(rnd.Intn(256))}
		}
	}

	var m models
	m.init()
	var e ec.Encoder
	e.Reset()
	for _, o := range ops {
		if o.match {
			m.encodeMatch(&e, o.u, o.o)
		} else {
			m.encodeLiteral(&e, o.c)
		}
	}
	data := e.Done()
	t.Logf("encoded %d symbols into %d bytes", len(ops), len(data))

	m.init()
	var d ec.Decoder
	d.Reset(data)
	for i, o := range ops {
		match, c, u, off := m.decodeSymbol(&d)
		if match != o.match {
			t.Fatalf("symbol %d: match is %t; want %t",
				i, match, o.match)
		}
		if !match {
			if c != o.c {
				t.Fatalf("symbol %d: literal %#02x; want %#02x",
					i, c, o.c)
			}
			continue
		}
		if u != o.u {
			t.Fatalf("symbol %d: match length %d; want %d",
				i, u, o.u)
		}
		if off != o.o {
			t.Fatalf("symbol %d: match distance %d; want %d",
				i, off, o.o)
		}
	}
	if d.Overread() {
		t.Fatalf("decoder overread the compressed data")
	}
}

func TestModelsMatchLimits(t *testing.T) {
	tests := []struct {
		u, o uint32
	}{
		{minMatchLen, 1},
		{minMatchLen + 1, 1},
		{13, 1 << 11},
		{14, 1},
		{29, 4096},
		{30, 1},
		{61, 1},
		{62, 1},
		{125, 1},
		{126, 1},
		{maxMatchLen, 1<<27 - 1},
	}

	var m models
	m.init()
	var e ec.Encoder
	e.Reset()
	for _, tc := range tests {
		m.encodeMatch(&e, tc.u, tc.o)
	}
	data := e.Done()

	m.init()
	var d ec.Decoder
	d.Reset(data)
	for _, tc := range tests {
		match, _, u, o := m.decodeSymbol(&d)
		if !match {
			t.Fatalf("decodeSymbol returned a literal; want match"+
				" %d/%d", tc.u, tc.o)
		}
		if u != tc.u || o != tc.o {
			t.Fatalf("decodeSymbol got %d/%d; want %d/%d",
				u, o, tc.u, tc.o)
		}
	}
	if d.Overread() {
		t.Fatalf("decoder overread the compressed data")
	}
}
