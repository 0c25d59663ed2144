// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/lz"
	"github.com/ulikunitz/rz/ec"
	"github.com/ulikunitz/rz/internal/xlog"
)

// chunkReader decompresses a sequence of chunks. The first chunk must
// carry a reset control byte. If noEOS is set a stream ending without
// an end-of-stream marker is not an error, which is used for decoding
// stream segments in parallel.
type chunkReader struct {
	m      models
	dec    ec.Decoder
	buffer lz.Buffer
	r      io.Reader
	// reused buffer for the range-coded chunk payload
	payload []byte
	// uncompressed stream position
	pos int64
	// position of the last model and window reset
	resetPos int64
	winSize  int
	cstate   chunkState
	err      error
	noEOS    bool
}

// init initializes the chunk reader. The decoder buffer provides room
// for the window and two full chunks, so a whole chunk can always be
// decoded before data is read from the buffer.
func (r *chunkReader) init(z io.Reader, winSize int) error {
	*r = chunkReader{
		r:       z,
		payload: r.payload,
		winSize: winSize,
	}
	dc := lz.DecoderConfig{
		WindowSize: winSize,
		BufferSize: winSize + 2*chunkMax,
	}
	if err := r.buffer.Init(dc); err != nil {
		return err
	}
	r.m.init()
	return nil
}

// reset prepares the chunk reader for a new stream reusing the
// allocated buffers. The function doesn't touch the noEOS flag.
func (r *chunkReader) reset(z io.Reader) {
	r.r = z
	r.buffer.Reset()
	r.m.init()
	r.cstate = sStart
	r.pos = 0
	r.resetPos = 0
	r.err = nil
}

// readChunk reads a single chunk into the decoder buffer.
func (r *chunkReader) readChunk() error {
	h, err := parseChunkHeader(r.r)
	if err != nil {
		if !r.noEOS && err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	xlog.Printf(debug, "read chunk %s", h)
	r.cstate = r.cstate.next(h.Control)
	if r.cstate == sError {
		return fmt.Errorf("rz: unexpected chunk control byte %#02x",
			h.Control)
	}
	if r.cstate == sFinished {
		return io.EOF
	}

	if h.Control == CUR || h.Control == CCR {
		r.buffer.Reset()
		r.m.init()
		r.resetPos = r.pos
	}

	if h.Control == CU || h.Control == CUR {
		if _, err = io.CopyN(&r.buffer, r.r, int64(h.Size)); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		r.pos += int64(h.Size)
		return nil
	}

	k := h.CompressedSize
	if cap(r.payload) < k {
		r.payload = make([]byte, k)
	}
	p := r.payload[:k]
	if _, err = io.ReadFull(r.r, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	r.dec.Reset(p)

	n := h.Size
	for n > 0 {
		match, c, u, o := r.m.decodeSymbol(&r.dec)
		if !match {
			// writing a byte into the sized buffer never fails
			if err = r.buffer.WriteByte(c); err != nil {
				panic(err)
			}
			r.pos++
			n--
			continue
		}
		if int64(o) > r.pos-r.resetPos || o > uint32(r.winSize) {
			return fmt.Errorf("rz: match distance %d out of range",
				o)
		}
		n -= int(u)
		r.pos += int64(u)
		if _, err = r.buffer.WriteMatch(u, o); err != nil {
			return err
		}
	}
	if n < 0 {
		return errors.New("rz: chunk decodes to more data than" +
			" the header announces")
	}
	if r.dec.Overread() {
		return errors.New("rz: compressed chunk data truncated")
	}
	return nil
}

// Read reads decompressed data.
func (r *chunkReader) Read(p []byte) (n int, err error) {
	k := len(r.buffer.Data) - r.buffer.R
	if r.err != nil && k == 0 {
		return 0, r.err
	}
	for {
		// reading from the decoder buffer never fails
		k, _ := r.buffer.Read(p[n:])
		n += k
		if n == len(p) {
			return n, nil
		}
		if r.err != nil {
			return n, r.err
		}
		if err = r.readChunk(); err != nil {
			r.err = err
			k := len(r.buffer.Data) - r.buffer.R
			if k > 0 {
				continue
			}
			return n, err
		}
	}
}

// WriteTo supports the WriterTo interface.
func (r *chunkReader) WriteTo(w io.Writer) (n int64, err error) {
	k := len(r.buffer.Data) - r.buffer.R
	if r.err != nil && k == 0 {
		return 0, r.err
	}
	for {
		k, err := r.buffer.WriteTo(w)
		n += k
		if err != nil {
			r.err = err
			return n, err
		}
		if r.err != nil {
			if r.err == io.EOF {
				return n, nil
			}
			return n, r.err
		}
		if err = r.readChunk(); err != nil {
			r.err = err
			k := len(r.buffer.Data) - r.buffer.R
			if k > 0 {
				continue
			}
			if err == io.EOF {
				err = nil
			}
			return n, err
		}
	}
}
