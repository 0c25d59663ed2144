// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/ulikunitz/rz/internal/randtxt"
)

func TestReaderEmptyInput(t *testing.T) {
	if _, err := NewReader(bytes.NewReader(nil)); err != io.EOF {
		t.Fatalf("NewReader returned %v; want %v", err, io.EOF)
	}
	_, err := NewReader(strings.NewReader("rz"))
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("NewReader returned %v; want %v", err,
			io.ErrUnexpectedEOF)
	}
}

func TestReaderBadStreams(t *testing.T) {
	hdr := string([]byte{'r', 'z', 1, 16})
	tests := []struct {
		name string
		data string
	}{
		{"badMagic", "xz\x01\x10"},
		{"badVersion", "rz\x02\x10"},
		{"badWindowExp", "rz\x01\x28"},
		{"badControl", hdr + "\x07"},
		{"firstChunkNotReset", hdr + "\x01\x01\x00\x00\x00a"},
		{"truncatedCompressed", hdr + "\x04\x05\x00\x00\x00\x03\x00\x00\x00"},
		{"truncatedUncompressed", hdr + "\x02\x05\x00\x00\x00ab"},
		{"zeroSizeChunk", hdr + "\x02\x00\x00\x00\x00"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewReader(strings.NewReader(tc.data))
			if err != nil {
				t.Logf("NewReader error %s", err)
				return
			}
			if _, err = io.ReadAll(r); err == nil {
				t.Fatalf("reading an invalid stream succeeded")
			}
			t.Logf("io.ReadAll error %s", err)
		})
	}
}

func TestReaderMissingEOS(t *testing.T) {
	const text = "The quick brown fox jumps over the lazy dog."
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter error %s", err)
	}
	defer w.Close()
	if _, err = io.WriteString(w, text); err != nil {
		t.Fatalf("io.WriteString error %s", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("w.Close() error %s", err)
	}

	data := buf.Bytes()[:buf.Len()-1]
	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewReader error %s", err)
	}
	defer r.Close()
	_, err = io.ReadAll(r)
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("io.ReadAll error %v; want %v", err,
			io.ErrUnexpectedEOF)
	}
}

func TestReaderMaxWindowSize(t *testing.T) {
	var buf bytes.Buffer
	cfg := WriterConfig{WindowSize: 1 << 22, Workers: 1}
	w, err := NewWriterConfig(&buf, cfg)
	if err != nil {
		t.Fatalf("NewWriterConfig error %s", err)
	}
	defer w.Close()
	if _, err = io.WriteString(w, "foobar"); err != nil {
		t.Fatalf("io.WriteString error %s", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("w.Close() error %s", err)
	}

	rcfg := ReaderConfig{MaxWindowSize: 1 << 20}
	_, err = NewReaderConfig(&buf, rcfg)
	if err == nil {
		t.Fatalf("NewReaderConfig accepts window size %d"+
			" with MaxWindowSize %d", 1<<22, rcfg.MaxWindowSize)
	}
	t.Logf("NewReaderConfig error %s", err)
}

func TestReaderParallel(t *testing.T) {
	const txtlen = 1 << 20
	tbuf := new(bytes.Buffer)
	io.CopyN(tbuf, randtxt.NewReader(rand.NewSource(41)), txtlen)
	data := tbuf.Bytes()
	hsum := sha256.Sum256(data)

	tests := []struct {
		name string
		wcfg WriterConfig
		rcfg ReaderConfig
	}{
		{
			name: "parallel",
			wcfg: WriterConfig{
				WindowSize:       1 << 16,
				Workers:          4,
				WorkerBufferSize: 1 << 17,
			},
			rcfg: ReaderConfig{Workers: 4},
		},
		{
			name: "fallback",
			wcfg: WriterConfig{WindowSize: 1 << 16, Workers: 1},
			rcfg: ReaderConfig{
				Workers:          4,
				WorkerBufferSize: 1 << 16,
			},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			w, err := NewWriterConfig(buf, tc.wcfg)
			if err != nil {
				t.Fatalf("NewWriterConfig error %s", err)
			}
			defer w.Close()
			if _, err = w.Write(data); err != nil {
				t.Fatalf("w.Write(data) error %s", err)
			}
			if err = w.Close(); err != nil {
				t.Fatalf("w.Close() error %s", err)
			}
			t.Logf("compressed: %d, uncompressed: %d", buf.Len(),
				len(data))

			r, err := NewReaderConfig(buf, tc.rcfg)
			if err != nil {
				t.Fatalf("NewReaderConfig error %s", err)
			}
			defer r.Close()
			h := sha256.New()
			n, err := io.Copy(h, r)
			if err != nil {
				t.Fatalf("io.Copy(h, r) error %s", err)
			}
			if n != int64(len(data)) {
				t.Fatalf("decompressed length %d; want %d",
					n, len(data))
			}
			if !bytes.Equal(h.Sum(nil), hsum[:]) {
				t.Fatalf("hash checksums differ")
			}
		})
	}
}

func BenchmarkReader(b *testing.B) {
	data := make([]byte, 1<<22)
	if _, err := io.ReadFull(randtxt.NewReader(rand.NewSource(41)),
		data); err != nil {
		b.Fatalf("io.ReadFull error %s", err)
	}
	var zbuf bytes.Buffer
	w, err := NewWriter(&zbuf)
	if err != nil {
		b.Fatalf("NewWriter error %s", err)
	}
	if _, err = w.Write(data); err != nil {
		b.Fatalf("w.Write(data) error %s", err)
	}
	if err = w.Close(); err != nil {
		b.Fatalf("w.Close() error %s", err)
	}
	z := zbuf.Bytes()

	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := NewReader(bytes.NewReader(z))
		if err != nil {
			b.Fatalf("NewReader error %s", err)
		}
		n, err := io.Copy(io.Discard, r)
		if err != nil {
			b.Fatalf("io.Copy error %s", err)
		}
		if n != int64(len(data)) {
			b.Fatalf("io.Copy returned %d; want %d", n, len(data))
		}
		r.Close()
	}
}

func TestReaderWriteTo(t *testing.T) {
	const txtlen = 200 << 10
	tbuf := new(bytes.Buffer)
	io.CopyN(tbuf, randtxt.NewReader(rand.NewSource(41)), txtlen)
	data := tbuf.Bytes()

	var zbuf bytes.Buffer
	w, err := NewWriterConfig(&zbuf,
		WriterConfig{WindowSize: 1 << 16, Workers: 1})
	if err != nil {
		t.Fatalf("NewWriterConfig error %s", err)
	}
	defer w.Close()
	if _, err = w.Write(data); err != nil {
		t.Fatalf("w.Write(data) error %s", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("w.Close() error %s", err)
	}
	z := zbuf.Bytes()

	for _, workers := range []int{1, 4} {
		workers := workers
		t.Run(fmt.Sprintf("%d", workers), func(t *testing.T) {
			r, err := NewReaderConfig(bytes.NewReader(z),
				ReaderConfig{Workers: workers})
			if err != nil {
				t.Fatalf("NewReaderConfig error %s", err)
			}
			defer r.Close()
			var out bytes.Buffer
			n, err := r.WriteTo(&out)
			if err != nil {
				t.Fatalf("r.WriteTo(&out) error %s", err)
			}
			if n != int64(len(data)) {
				t.Fatalf("r.WriteTo wrote %d bytes; want %d",
					n, len(data))
			}
			if !bytes.Equal(out.Bytes(), data) {
				t.Fatalf("decompressed data differs from" +
					" original")
			}
		})
	}
}
