// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz_test

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ulikunitz/rz"
)

func Example() {
	const text = "The quick brown fox jumps over the lazy dog."
	var buf bytes.Buffer

	// compress text
	w, err := rz.NewWriter(&buf)
	if err != nil {
		log.Fatalf("rz.NewWriter error %s", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		log.Fatalf("io.WriteString error %s", err)
	}
	if err := w.Close(); err != nil {
		log.Fatalf("w.Close() error %s", err)
	}

	// decompress buffer and write result to stdout
	r, err := rz.NewReader(&buf)
	if err != nil {
		log.Fatalf("rz.NewReader error %s", err)
	}
	if _, err = io.Copy(os.Stdout, r); err != nil {
		log.Fatalf("io.Copy error %s", err)
	}

	// Output:
	// The quick brown fox jumps over the lazy dog.
}

func ExampleStat() {
	const text = "The quick brown fox jumps over the lazy dog."
	var buf bytes.Buffer

	w, err := rz.NewWriter(&buf)
	if err != nil {
		log.Fatalf("rz.NewWriter error %s", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		log.Fatalf("io.WriteString error %s", err)
	}
	if err := w.Close(); err != nil {
		log.Fatalf("w.Close() error %s", err)
	}

	info, err := rz.Stat(&buf)
	if err != nil {
		log.Fatalf("rz.Stat error %s", err)
	}
	fmt.Printf("uncompressed: %d\n", info.Uncompressed)
	fmt.Printf("chunks: %d\n", info.Chunks)

	// Output:
	// uncompressed: 45
	// chunks: 1
}
