// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"bufio"
	"fmt"
	"io"
)

// Control bytes for the chunks of an rz stream. The R variants reset
// the probability models and the dictionary window, so decompression
// can restart at such a chunk without any prior history.
const (
	// CEOS terminates the chunk sequence of a stream.
	CEOS = iota
	// CU marks an uncompressed chunk.
	CU
	// CUR marks an uncompressed chunk after a reset.
	CUR
	// CC marks a compressed chunk.
	CC
	// CCR marks a compressed chunk after a reset.
	CCR
)

// chunkMax is the maximum number of uncompressed bytes covered by a
// single chunk.
const chunkMax = 1 << 20

// maxCompressedSize bounds the compressed payload of a chunk. The
// writer falls back to an uncompressed chunk before the range coder
// output can grow this large.
const maxCompressedSize = chunkMax + 64

// ChunkHeader describes a single chunk of an rz stream. Size is the
// number of uncompressed bytes the chunk covers and CompressedSize the
// length of the range-coded payload. CompressedSize is zero for
// uncompressed chunks and the end-of-stream marker.
type ChunkHeader struct {
	Control        byte
	Size           int
	CompressedSize int
}

// String provides a short description of the chunk header.
func (h ChunkHeader) String() string {
	switch h.Control {
	case CEOS:
		return "EOS"
	case CU:
		return fmt.Sprintf("U size=%d", h.Size)
	case CUR:
		return fmt.Sprintf("UR size=%d", h.Size)
	case CC:
		return fmt.Sprintf("C size=%d csize=%d", h.Size,
			h.CompressedSize)
	case CCR:
		return fmt.Sprintf("CR size=%d csize=%d", h.Size,
			h.CompressedSize)
	}
	return fmt.Sprintf("invalid control %#02x", h.Control)
}

// headerLen returns the length of the encoded chunk header in bytes.
func (h ChunkHeader) headerLen() int {
	switch h.Control {
	case CU, CUR:
		return 5
	case CC, CCR:
		return 9
	}
	return 1
}

// verify checks the chunk header fields against the format limits.
func (h ChunkHeader) verify() error {
	switch h.Control {
	case CEOS:
		if h.Size != 0 || h.CompressedSize != 0 {
			return fmt.Errorf(
				"rz: end-of-stream chunk must have no sizes")
		}
		return nil
	case CU, CUR:
		if h.CompressedSize != 0 {
			return fmt.Errorf(
				"rz: uncompressed chunk has compressed size")
		}
	case CC, CCR:
		if !(1 <= h.CompressedSize &&
			h.CompressedSize <= maxCompressedSize) {
			return fmt.Errorf(
				"rz: compressed chunk size %d out of range",
				h.CompressedSize)
		}
	default:
		return fmt.Errorf("rz: unsupported control byte %#02x",
			h.Control)
	}
	if !(1 <= h.Size && h.Size <= chunkMax) {
		return fmt.Errorf("rz: chunk size %d out of range", h.Size)
	}
	return nil
}

// append adds the binary representation of the chunk header to p.
func (h ChunkHeader) append(p []byte) ([]byte, error) {
	if err := h.verify(); err != nil {
		return p, err
	}
	p = append(p, h.Control)
	switch h.Control {
	case CU, CUR:
		var q [4]byte
		putLE32(q[:], uint32(h.Size))
		p = append(p, q[:]...)
	case CC, CCR:
		var q [8]byte
		putLE32(q[:4], uint32(h.Size))
		putLE32(q[4:], uint32(h.CompressedSize))
		p = append(p, q[:]...)
	}
	return p, nil
}

// setSizes fills the size fields of the header from the encoded form
// in p, which must hold at least headerLen bytes after the control
// byte has been stored in h.Control.
func (h *ChunkHeader) setSizes(p []byte) error {
	switch h.Control {
	case CU, CUR:
		h.Size = int(getLE32(p[1:5]))
	case CC, CCR:
		h.Size = int(getLE32(p[1:5]))
		h.CompressedSize = int(getLE32(p[5:9]))
	}
	return h.verify()
}

// parseChunkHeader reads and validates a chunk header from r. An
// io.EOF before the first byte is returned unchanged, a truncated
// header results in io.ErrUnexpectedEOF.
func parseChunkHeader(r io.Reader) (h ChunkHeader, err error) {
	p := make([]byte, 1, 9)
	if _, err = io.ReadFull(r, p); err != nil {
		return h, err
	}
	h.Control = p[0]
	if n := h.headerLen(); n > 1 {
		p = p[:n]
		if _, err = io.ReadFull(r, p[1:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return h, err
		}
	}
	if err = h.setSizes(p); err != nil {
		return h, err
	}
	return h, nil
}

// peekChunkHeader reads a chunk header from the buffered reader
// without consuming it. It returns the length of the encoded header.
func peekChunkHeader(br *bufio.Reader) (h ChunkHeader, n int, err error) {
	p, err := br.Peek(1)
	if err != nil {
		return h, 0, err
	}
	h.Control = p[0]
	n = h.headerLen()
	if n > 1 {
		if p, err = br.Peek(n); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return h, 0, err
		}
	}
	if err = h.setSizes(p); err != nil {
		return h, 0, err
	}
	return h, n, nil
}

// chunkState tracks the progress through the chunk sequence of a
// stream. The first chunk must reset models and window, so only the R
// variants or the end-of-stream marker are acceptable at the start.
type chunkState byte

const (
	sStart chunkState = iota
	sRun
	sFinished
	sError
)

// next returns the state after a chunk with the given control byte.
func (s chunkState) next(control byte) chunkState {
	if s == sFinished || s == sError {
		return sError
	}
	switch control {
	case CEOS:
		return sFinished
	case CUR, CCR:
		return sRun
	case CU, CC:
		if s == sRun {
			return sRun
		}
	}
	return sError
}
