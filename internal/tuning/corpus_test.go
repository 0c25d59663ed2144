// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package tuning

import (
	"bytes"
	"crypto/sha256"
	"io"
	"testing"

	"github.com/ulikunitz/rz"
	"github.com/ulikunitz/zdata"
)

func TestSilesia(t *testing.T) {
	configs := []struct {
		name string
		cfg  rz.WriterConfig
		rcfg rz.ReaderConfig
	}{
		{"single-threaded",
			rz.WriterConfig{Workers: 1},
			rz.ReaderConfig{Workers: 1},
		},
		{"parallel",
			rz.WriterConfig{Workers: 4},
			rz.ReaderConfig{Workers: 4},
		},
	}

	files, err := Files(zdata.Silesia)
	if err != nil {
		t.Fatalf("Files(zdata.Silesia) error %s", err)
	}

	for _, c := range configs {
		c := c
		for _, f := range files {
			f := f
			t.Run(c.name+":"+f.Name, func(t *testing.T) {
				s := sha256.Sum256(f.Data)
				hsum := s[:]

				buf := new(bytes.Buffer)
				w, err := rz.NewWriterConfig(buf, c.cfg)
				if err != nil {
					t.Fatalf("rz.NewWriterConfig error %s",
						err)
				}
				defer w.Close()
				_, err = io.Copy(w, bytes.NewReader(f.Data))
				if err != nil {
					t.Fatalf("%s: io.Copy compression error %s",
						f.Name, err)
				}
				if err = w.Close(); err != nil {
					t.Fatalf("%s: w.Close() error %s",
						f.Name, err)
				}

				h := sha256.New()
				r, err := rz.NewReaderConfig(buf, c.rcfg)
				if err != nil {
					t.Fatalf("%s: rz.NewReaderConfig error %s",
						f.Name, err)
				}
				defer r.Close()
				_, err = io.Copy(h, r)
				if err != nil {
					t.Fatalf("%s: io.Copy decompression error %s",
						f.Name, err)
				}
				if err = r.Close(); err != nil {
					t.Fatalf("%s: r.Close() error %s",
						f.Name, err)
				}
				gsum := h.Sum(nil)
				if !bytes.Equal(gsum, hsum) {
					t.Errorf("%s: got %x; want %x",
						f.Name, gsum, hsum)
					return
				}
			})
		}
	}
}

func TestCompress(t *testing.T) {
	files, err := Files(zdata.Silesia)
	if err != nil {
		t.Fatalf("Files(zdata.Silesia) error %s", err)
	}
	uncompressed := Size(files)
	if uncompressed == 0 {
		t.Fatal("Size(files) is zero")
	}
	compressed, err := Compress(files, rz.WriterConfig{Workers: 1})
	if err != nil {
		t.Fatalf("Compress error %s", err)
	}
	t.Logf("uncompressed %d compressed %d ratio %.3f",
		uncompressed, compressed,
		float64(compressed)/float64(uncompressed))
	if compressed >= uncompressed {
		t.Errorf("compressed size %d not smaller than uncompressed size %d",
			compressed, uncompressed)
	}
}
