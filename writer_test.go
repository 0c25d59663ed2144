// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"runtime"
	"strings"
	"testing"

	"github.com/ulikunitz/rz/internal/randtxt"
)

func TestWriter(t *testing.T) {
	const text = "The quick brown fox jumps over the lazy dog."
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter error %s", err)
	}
	n, err := io.WriteString(w, text)
	if err != nil {
		t.Fatalf("WriteString error %s", err)
	}
	if n != len(text) {
		t.Fatalf("WriteString wrote %d bytes; want %d", n, len(text))
	}
	if err = w.Close(); err != nil {
		t.Fatalf("w.Close error %s", err)
	}
	var out bytes.Buffer
	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader error %s", err)
	}
	if _, err = io.Copy(&out, r); err != nil {
		t.Fatalf("io.Copy error %s", err)
	}
	s := out.String()
	if s != text {
		t.Fatalf("reader decompressed to %q; want %q", s, text)
	}
}

func TestWriterText(t *testing.T) {
	const txtlen = 1023
	var buf bytes.Buffer
	io.CopyN(&buf, randtxt.NewReader(rand.NewSource(41)), txtlen)
	txt := buf.String()

	buf.Reset()
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter error %s", err)
	}
	n, err := io.WriteString(w, txt)
	if err != nil {
		t.Fatalf("WriteString error %s", err)
	}
	if n != len(txt) {
		t.Fatalf("WriteString wrote %d bytes; want %d", n, len(txt))
	}
	if err = w.Close(); err != nil {
		t.Fatalf("Close error %s", err)
	}
	t.Logf("buf.Len() %d", buf.Len())

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader error %s", err)
	}
	var out bytes.Buffer
	k, err := io.Copy(&out, r)
	if err != nil {
		t.Fatalf("Decompressing copy error %s after %d bytes", err, n)
	}
	if k != txtlen {
		t.Fatalf("Decompression data length %d; want %d", k, txtlen)
	}
	if txt != out.String() {
		t.Fatal("decompressed data differs from original")
	}
}

func TestWriterStrings(t *testing.T) {
	tests := []string{
		"",
		"a",
		"The quick brown fox jumps over the lazy dog.",
		"=====foofoobar==foobar====",
		strings.Repeat("abcabcdabcde", 1000),
	}
	for i, s := range tests {
		s := s
		t.Run(fmt.Sprintf("%d", i+1), func(t *testing.T) {
			cfg := WriterConfig{WindowSize: 1 << 12, Workers: 1}
			buf := new(bytes.Buffer)
			w, err := NewWriterConfig(buf, cfg)
			if err != nil {
				t.Fatalf("NewWriterConfig error %s", err)
			}
			defer w.Close()
			if _, err = io.WriteString(w, s); err != nil {
				t.Fatalf("io.WriteString(w, s) error %s", err)
			}
			if err = w.Close(); err != nil {
				t.Fatalf("w.Close() error %s", err)
			}
			t.Logf("buf.Len() %d; len(s) %d", buf.Len(), len(s))

			r, err := NewReader(buf)
			if err != nil {
				t.Fatalf("NewReader(buf) error %s", err)
			}
			defer r.Close()
			sb := new(strings.Builder)
			if _, err = io.Copy(sb, r); err != nil {
				t.Fatalf("io.Copy(sb, r) error %s", err)
			}
			g := sb.String()
			if g != s {
				t.Fatalf("got %q; want %q", g, s)
			}
		})
	}
}

func TestWriterConfigs(t *testing.T) {
	const txtlen = 1 << 20
	tbuf := new(bytes.Buffer)
	io.CopyN(tbuf, randtxt.NewReader(rand.NewSource(41)), txtlen)
	data := tbuf.Bytes()
	hsum := sha256.Sum256(data)

	tests := []WriterConfig{
		{Workers: 1},
		{WindowSize: 1 << 16, Workers: 1},
		{WorkerBufferSize: 100000, Workers: 2},
		{WindowSize: 1 << 16, WorkerBufferSize: 3e5},
		{},
	}
	for i, cfg := range tests {
		cfg := cfg
		t.Run(fmt.Sprintf("%d", i+1), func(t *testing.T) {
			buf := new(bytes.Buffer)
			w, err := NewWriterConfig(buf, cfg)
			if err != nil {
				t.Fatalf("NewWriterConfig error %s", err)
			}
			defer w.Close()
			t.Logf("windowSize: %d", w.WindowSize())

			if _, err = w.Write(data); err != nil {
				t.Fatalf("w.Write(data) error %s", err)
			}
			if err = w.Close(); err != nil {
				t.Fatalf("w.Close() error %s", err)
			}
			t.Logf("compressed: %d, uncompressed: %d", buf.Len(),
				len(data))

			r, err := NewReader(buf)
			if err != nil {
				t.Fatalf("NewReader(buf) error %s", err)
			}
			defer r.Close()

			h := sha256.New()
			n, err := io.Copy(h, r)
			if err != nil {
				t.Fatalf("io.Copy(h, r) error %s", err)
			}
			if n != int64(len(data)) {
				t.Fatalf("decompressed length %d; want %d", n,
					len(data))
			}
			if !bytes.Equal(h.Sum(nil), hsum[:]) {
				t.Fatalf("hash checksums differ")
			}
		})
	}
}

func TestWriterFlush(t *testing.T) {
	buf := new(bytes.Buffer)
	w, err := NewWriter(buf)
	if err != nil {
		t.Fatalf("NewWriter(buf) error %s", err)
	}
	defer w.Close()

	if _, err = io.WriteString(w, "1"); err != nil {
		t.Fatalf("io.WriteString(%q) error %s", "1", err)
	}
	if err = w.Flush(); err != nil {
		t.Fatalf("w.Flush() error %s", err)
	}
	if _, err = io.WriteString(w, "2"); err != nil {
		t.Fatalf("io.WriteString(%q) error %s", "2", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("w.Close() error %s", err)
	}

	t.Logf("\n%s", hex.Dump(buf.Bytes()))

	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader(buf) error %s", err)
	}
	defer r.Close()
	p, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("io.ReadAll(r) error %s", err)
	}
	if err = r.Close(); err != nil {
		t.Fatalf("r.Close() error %s", err)
	}

	s := string(p)
	if s != "12" {
		t.Fatalf("got string %q; want %s", s, "12")
	}
}

func TestWriteEmptyFile(t *testing.T) {
	buf := new(bytes.Buffer)
	w, err := NewWriter(buf)
	if err != nil {
		t.Fatalf("NewWriter(buf) error %s", err)
	}
	defer w.Close()
	if err = w.Flush(); err != nil {
		t.Fatalf("w.Flush() error %s", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("w.Close() error %s", err)
	}

	if buf.Len() != headerLen+1 {
		t.Fatalf("empty stream has length %d; want %d", buf.Len(),
			headerLen+1)
	}
	t.Logf("\n%s", hex.Dump(buf.Bytes()))

	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader(buf) error %s", err)
	}
	defer r.Close()
	p, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("io.ReadAll(r) error %s", err)
	}
	if err = r.Close(); err != nil {
		t.Fatalf("r.Close() error %s", err)
	}
	if len(p) != 0 {
		t.Fatalf("got len(p) %d; want %d", len(p), 0)
	}
}

func TestWriterIncompressible(t *testing.T) {
	p := make([]byte, 100000)
	rnd := rand.New(rand.NewSource(41))
	rnd.Read(p)

	buf := new(bytes.Buffer)
	cfg := WriterConfig{WindowSize: 1 << 16, Workers: 1}
	w, err := NewWriterConfig(buf, cfg)
	if err != nil {
		t.Fatalf("NewWriterConfig error %s", err)
	}
	defer w.Close()
	if _, err = w.Write(p); err != nil {
		t.Fatalf("w.Write(p) error %s", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("w.Close() error %s", err)
	}
	t.Logf("compressed: %d, uncompressed: %d", buf.Len(), len(p))

	var nU int
	_, err = Walk(bytes.NewReader(buf.Bytes()),
		func(h ChunkHeader) error {
			if h.Control == CU || h.Control == CUR {
				nU++
			}
			return nil
		})
	if err != nil {
		t.Fatalf("Walk error %s", err)
	}
	if nU == 0 {
		t.Fatalf("no uncompressed chunks in a stream of random data")
	}

	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader(buf) error %s", err)
	}
	defer r.Close()
	q, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("io.ReadAll(r) error %s", err)
	}
	if !bytes.Equal(q, p) {
		t.Fatalf("decompressed data differs from original")
	}
}

func TestWriterConfigSetDefaults(t *testing.T) {
	cfg := WriterConfig{WindowSize: 5000}
	cfg.SetDefaults()
	if cfg.WindowSize != 8192 {
		t.Fatalf("SetDefaults set WindowSize %d; want %d",
			cfg.WindowSize, 8192)
	}
	if cfg.Workers != runtime.GOMAXPROCS(0) {
		t.Fatalf("SetDefaults set Workers %d; want %d", cfg.Workers,
			runtime.GOMAXPROCS(0))
	}
	if cfg.Workers > 1 && cfg.WorkerBufferSize != defaultWorkerBufferSize {
		t.Fatalf("SetDefaults set WorkerBufferSize %d; want %d",
			cfg.WorkerBufferSize, defaultWorkerBufferSize)
	}
	if err := cfg.Verify(); err != nil {
		t.Fatalf("cfg.Verify() error %s", err)
	}
}

func BenchmarkWriter(b *testing.B) {
	data := make([]byte, 1<<22)
	if _, err := io.ReadFull(randtxt.NewReader(rand.NewSource(41)),
		data); err != nil {
		b.Fatalf("io.ReadFull error %s", err)
	}
	buf := new(bytes.Buffer)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		w, err := NewWriter(buf)
		if err != nil {
			b.Fatalf("NewWriter(buf) error %s", err)
		}
		if _, err = w.Write(data); err != nil {
			b.Fatalf("w.Write(data) error %s", err)
		}
		if err = w.Close(); err != nil {
			b.Fatalf("w.Close() error %s", err)
		}
	}
	b.ReportMetric(float64(buf.Len())/float64(len(data)), "rate")
}

func TestWriterConfigVerify(t *testing.T) {
	tests := []struct {
		name string
		mod  func(cfg *WriterConfig)
	}{
		{"windowTooLarge", func(cfg *WriterConfig) {
			cfg.WindowSize = maxWindowSize << 1
		}},
		{"windowNotPow2", func(cfg *WriterConfig) {
			cfg.WindowSize = 5000
		}},
		{"negativeWorkers", func(cfg *WriterConfig) {
			cfg.Workers = -1
		}},
		{"workerBufferTooLarge", func(cfg *WriterConfig) {
			cfg.Workers = 2
			cfg.WorkerBufferSize = 1 << 30
		}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var cfg WriterConfig
			cfg.SetDefaults()
			tc.mod(&cfg)
			err := cfg.Verify()
			if err == nil {
				t.Fatalf("cfg.Verify() returns no error for" +
					" an invalid configuration")
			}
			t.Logf("cfg.Verify() error %s", err)
		})
	}
}
