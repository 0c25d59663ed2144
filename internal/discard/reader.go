// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package discard skips data on an io.Reader without materializing it.
// If the underlying reader supports seeking or a Discard method, those
// are used instead of reading into a scratch buffer.
package discard

import (
	"errors"
	"io"
	"math"
)

// Reader extends io.Reader with a Discard64 method.
type Reader interface {
	io.Reader
	Discard64(n int64) (discarded int64, err error)
}

var errNegativeCount = errors.New("discard: negative count")

// plainReader discards by reading into a scratch buffer.
type plainReader struct {
	io.Reader
	buf [8192]byte
}

func (r *plainReader) Discard64(n int64) (discarded int64, err error) {
	if n < 0 {
		return 0, errNegativeCount
	}
	for discarded < n {
		p := r.buf[:]
		if k := n - discarded; k < int64(len(p)) {
			p = p[:k]
		}
		m, err := r.Read(p)
		discarded += int64(m)
		if err != nil {
			return discarded, err
		}
	}
	return n, nil
}

// seekReader discards using the Seek method.
type seekReader struct {
	io.ReadSeeker
}

func (r *seekReader) Discard64(n int64) (discarded int64, err error) {
	if n < 0 {
		return 0, errNegativeCount
	}
	if n == 0 {
		return 0, nil
	}
	if _, err = r.Seek(n, io.SeekCurrent); err != nil {
		return 0, err
	}
	return n, nil
}

// discardReader wraps readers with an int-based Discard method, for
// instance *bufio.Reader.
type discardReader struct {
	io.Reader
	discard func(n int) (int, error)
}

func (r *discardReader) Discard64(n int64) (discarded int64, err error) {
	if n < 0 {
		return 0, errNegativeCount
	}
	for n > 0 {
		k := n
		if k > math.MaxInt {
			k = math.MaxInt
		}
		m, err := r.discard(int(k))
		discarded += int64(m)
		if err != nil {
			return discarded, err
		}
		n -= int64(m)
	}
	return discarded, nil
}

// Wrap converts an io.Reader into a Reader with an efficient Discard64
// method.
func Wrap(r io.Reader) Reader {
	switch t := r.(type) {
	case Reader:
		return t
	case io.ReadSeeker:
		if _, err := t.Seek(0, io.SeekCurrent); err == nil {
			return &seekReader{ReadSeeker: t}
		}
	}
	if t, ok := r.(interface {
		io.Reader
		Discard(n int) (int, error)
	}); ok {
		return &discardReader{Reader: t, discard: t.Discard}
	}
	return &plainReader{Reader: r}
}
