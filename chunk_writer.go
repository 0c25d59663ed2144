// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"context"
	"io"

	"github.com/ulikunitz/lz"
	"github.com/ulikunitz/rz/ec"
	"github.com/ulikunitz/rz/internal/xlog"
)

// chunkWriter compresses data into a sequence of chunks. The
// probability models adapt across chunks until a chunk carries a reset
// control byte. Use init before use and to reuse the allocated buffers
// for another stream.
type chunkWriter struct {
	m      models
	enc    ec.Encoder
	blk    lz.Block
	seq    lz.Sequencer
	window *lz.Window
	// scratch buffer for uncompressed chunks
	buf []byte
	w   io.Writer
	// uncompressed stream position
	pos int64
	// upper limit of uncompressed bytes per chunk
	chunkSize int
	winSize   int
	// reset is true if the next chunk must reset models and window
	reset bool
	err   error
}

func (w *chunkWriter) init(z io.Writer, seq lz.Sequencer, data []byte,
	winSize int) error {
	*w = chunkWriter{
		seq:    seq,
		window: seq.WindowPtr(),
		blk: lz.Block{
			Sequences: w.blk.Sequences[:0],
			Literals:  w.blk.Literals[:0],
		},
		enc:       w.enc,
		buf:       w.buf,
		w:         z,
		winSize:   winSize,
		chunkSize: chunkMax,
		reset:     true,
	}
	if w.chunkSize > winSize {
		// The window must be able to provide the data for the
		// uncompressed fallback of a whole chunk.
		w.chunkSize = winSize
	}
	if err := w.window.Reset(data); err != nil {
		return err
	}
	w.m.init()
	return nil
}

func updateBlock(blk *lz.Block, litIndex, seqIndex int) {
	n := copy(blk.Literals, blk.Literals[litIndex:])
	blk.Literals = blk.Literals[:n]
	n = copy(blk.Sequences, blk.Sequences[seqIndex:])
	blk.Sequences = blk.Sequences[:n]
}

// writeChunk codes buffered data into a single chunk and writes it
// out. If the range coder output would be larger than the raw data the
// chunk is stored uncompressed and the models are restored, because
// the decoder never sees the discarded symbols.
func (w *chunkWriter) writeChunk() error {
	w.enc.Reset()
	n := 0
	saved := w.m

loop:
	for {
		litIndex := 0
		for k, s := range w.blk.Sequences {
			i := litIndex
			litIndex += int(s.LitLen)
			for j, c := range w.blk.Literals[i:litIndex] {
				w.m.encodeLiteral(&w.enc, c)
				n++
				if n >= w.chunkSize {
					w.blk.Sequences[k].LitLen -=
						uint32(j) + 1
					updateBlock(&w.blk, i+j+1, k)
					break loop
				}
			}

			o, m := s.Offset, s.MatchLen
			for {
				var u uint32
				if m <= maxMatchLen {
					u = m
				} else if m >= maxMatchLen+minMatchLen {
					u = maxMatchLen
				} else {
					u = m - minMatchLen
				}
				if n+int(u) > w.chunkSize {
					// The remainder of the match moves into
					// the next chunk.
					w.blk.Sequences[k] = lz.Seq{
						MatchLen: m,
						Offset:   o,
					}
					updateBlock(&w.blk, litIndex, k)
					break loop
				}
				w.m.encodeMatch(&w.enc, u, o)
				n += int(u)
				m -= u
				if m == 0 {
					break
				}
			}
		}
		w.blk.Sequences = w.blk.Sequences[:0]
		for j, c := range w.blk.Literals[litIndex:] {
			w.m.encodeLiteral(&w.enc, c)
			n++
			if n >= w.chunkSize {
				updateBlock(&w.blk, litIndex+j+1,
					len(w.blk.Sequences))
				break loop
			}
		}

		_, err := w.seq.Sequence(&w.blk, 0)
		if err != nil {
			if err == lz.ErrEmptyBuffer {
				w.blk.Literals = w.blk.Literals[:0]
				w.blk.Sequences = w.blk.Sequences[:0]
				break loop
			}
			return err
		}
	}
	if n == 0 {
		return nil
	}
	w.pos += int64(n)

	payload := w.enc.Done()
	k := len(payload)

	h := ChunkHeader{Size: n}
	if 5+n <= 9+k {
		// uncompressed chunk
		w.m = saved
		if w.reset {
			h.Control = CUR
		} else {
			h.Control = CU
		}
		xlog.Printf(debug, "write chunk %s", h)
		m := 5 + n
		if cap(w.buf) < m {
			w.buf = make([]byte, m)
		}
		p, err := h.append(w.buf[:0])
		if err != nil {
			return err
		}
		p = p[:m]
		j, err := w.window.ReadAt(p[5:], w.pos-int64(n))
		if err != nil {
			return err
		}
		if j != n {
			panic("j != n")
		}
		if _, err = w.w.Write(p); err != nil {
			return err
		}
		w.reset = false
		return nil
	}

	h.CompressedSize = k
	if w.reset {
		h.Control = CCR
	} else {
		h.Control = CC
	}
	xlog.Printf(debug, "write chunk %s", h)
	var a [9]byte
	p, err := h.append(a[:0])
	if err != nil {
		return err
	}
	if _, err = w.w.Write(p); err != nil {
		return err
	}
	if _, err = w.w.Write(payload); err != nil {
		return err
	}
	w.reset = false
	return nil
}

func (w *chunkWriter) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	for {
		var k int
		k, err = w.window.Write(p[n:])
		n += k
		if err == nil {
			return n, nil
		}
		if err != lz.ErrFullBuffer {
			w.err = err
			return n, err
		}
		if err = w.writeChunk(); err != nil {
			w.err = err
			return n, err
		}
	}
}

// Flush writes all buffered data into chunks. It does not terminate
// the chunk sequence.
func (w *chunkWriter) Flush() error {
	if w.err != nil {
		return w.err
	}
	for {
		if len(w.blk.Sequences) == 0 && len(w.blk.Literals) == 0 &&
			w.window.Buffered() == 0 {
			return nil
		}
		if err := w.writeChunk(); err != nil {
			w.err = err
			return err
		}
	}
}

// flushContext works like Flush but checks for cancellation between
// chunks.
func (w *chunkWriter) flushContext(ctx context.Context) error {
	if w.err != nil {
		return w.err
	}
	for {
		select {
		case <-ctx.Done():
			w.err = ctx.Err()
			return w.err
		default:
		}
		if len(w.blk.Sequences) == 0 && len(w.blk.Literals) == 0 &&
			w.window.Buffered() == 0 {
			return nil
		}
		if err := w.writeChunk(); err != nil {
			w.err = err
			return err
		}
	}
}

// Close flushes all buffered data and terminates the chunk sequence
// with the end-of-stream marker.
func (w *chunkWriter) Close() error {
	if w.err != nil {
		return w.err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if _, err := w.w.Write(eos); err != nil {
		w.err = err
		return err
	}
	w.err = errClosed
	return nil
}

func (w *chunkWriter) WindowSize() int { return w.winSize }
