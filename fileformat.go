// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"errors"
	"fmt"
)

// Limits for the window size of a stream. The header stores the window
// size as a power of two, so only exponents between minWindowExp and
// maxWindowExp can be represented.
const (
	minWindowExp = 12
	maxWindowExp = 27

	minWindowSize = 1 << minWindowExp
	maxWindowSize = 1 << maxWindowExp
)

// headerLen is the length of the stream header in bytes.
const headerLen = 4

// fileVersion is the only supported stream format version.
const fileVersion = 1

// header represents the information stored in the stream header: the
// magic bytes 'r' and 'z', the format version and the window size
// exponent.
type header struct {
	wexp int
}

// append adds the binary representation of the header to p.
func (h header) append(p []byte) ([]byte, error) {
	if !(minWindowExp <= h.wexp && h.wexp <= maxWindowExp) {
		return p, fmt.Errorf("rz: window exponent %d out of range",
			h.wexp)
	}
	return append(p, 'r', 'z', fileVersion, byte(h.wexp)), nil
}

// parse reads the header from the first headerLen bytes of p.
func (h *header) parse(p []byte) error {
	if len(p) != headerLen {
		return fmt.Errorf("rz: header must have %d bytes", headerLen)
	}
	if p[0] != 'r' || p[1] != 'z' {
		return errors.New("rz: invalid magic bytes")
	}
	if p[2] != fileVersion {
		return fmt.Errorf("rz: unsupported file version %d", p[2])
	}
	wexp := int(p[3])
	if !(minWindowExp <= wexp && wexp <= maxWindowExp) {
		return fmt.Errorf("rz: window exponent %d out of range", wexp)
	}
	h.wexp = wexp
	return nil
}

// windowExp computes the smallest window exponent whose window size is
// greater than or equal to size.
func windowExp(size int) (wexp int, err error) {
	if size > maxWindowSize {
		return 0, fmt.Errorf("rz: window size %d exceeds maximum %d",
			size, maxWindowSize)
	}
	wexp = minWindowExp
	for 1<<wexp < size {
		wexp++
	}
	return wexp, nil
}
