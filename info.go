// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"fmt"
	"io"

	"github.com/ulikunitz/rz/internal/discard"
)

// Walk reads the stream header and visits every chunk header of the
// stream without decompressing the payload data. The callback receives
// the end-of-stream marker as the final chunk header. Walk returns the
// window size recorded in the stream header.
func Walk(r io.Reader, ch func(h ChunkHeader) error) (windowSize int, err error) {
	var p [headerLen]byte
	if _, err = io.ReadFull(r, p[:]); err != nil {
		return 0, err
	}
	var h header
	if err = h.parse(p[:]); err != nil {
		return 0, err
	}
	windowSize = 1 << h.wexp

	dr := discard.Wrap(r)
	cstate := sStart
	for {
		h, err := parseChunkHeader(dr)
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return windowSize, err
		}
		cstate = cstate.next(h.Control)
		if cstate == sError {
			return windowSize, fmt.Errorf(
				"rz: unexpected chunk control byte %#02x",
				h.Control)
		}
		if err = ch(h); err != nil {
			return windowSize, err
		}
		if cstate == sFinished {
			return windowSize, nil
		}
		k := int64(h.Size)
		if h.Control == CC || h.Control == CCR {
			k = int64(h.CompressedSize)
		}
		if _, err = dr.Discard64(k); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return windowSize, err
		}
	}
}

// Info summarizes an rz stream.
type Info struct {
	WindowSize   int
	Uncompressed int64
	Compressed   int64
	Chunks       int64
}

// Stat collects stream statistics by walking over the chunk headers.
// Compressed covers the complete stream including the stream header
// and the chunk headers.
func Stat(r io.Reader) (info Info, err error) {
	info.Compressed = headerLen
	ws, err := Walk(r, func(h ChunkHeader) error {
		info.Compressed += int64(h.headerLen())
		if h.Control == CEOS {
			return nil
		}
		info.Chunks++
		info.Uncompressed += int64(h.Size)
		switch h.Control {
		case CU, CUR:
			info.Compressed += int64(h.Size)
		default:
			info.Compressed += int64(h.CompressedSize)
		}
		return nil
	})
	info.WindowSize = ws
	if err != nil {
		return info, err
	}
	return info, nil
}
