// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ReaderConfig provides the parameters for an rz reader.
//
// Note that parallel decoding only works if the stream has been
// written with worker segments that fit into WorkerBufferSize. The
// reader falls back to sequential decoding otherwise.
type ReaderConfig struct {
	// MaxWindowSize limits the window size the reader accepts. Streams
	// requiring a larger window are rejected. The default accepts
	// every window size the format supports.
	MaxWindowSize int

	// Workers is the maximum number of decompressing goroutines.
	Workers int
	// WorkerBufferSize is the maximum number of uncompressed bytes a
	// single worker decodes as one segment.
	WorkerBufferSize int
}

// SetDefaults replaces zero values with default values.
func (cfg *ReaderConfig) SetDefaults() {
	if cfg.MaxWindowSize == 0 {
		cfg.MaxWindowSize = maxWindowSize
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.WorkerBufferSize == 0 {
		cfg.WorkerBufferSize = defaultWorkerBufferSize
	}
}

// Verify checks the configuration parameters.
func (cfg *ReaderConfig) Verify() error {
	if cfg == nil {
		return errors.New("rz: ReaderConfig pointer must not be nil")
	}
	if !(minWindowSize <= cfg.MaxWindowSize &&
		cfg.MaxWindowSize <= maxWindowSize) {
		return fmt.Errorf("rz: MaxWindowSize %d out of range",
			cfg.MaxWindowSize)
	}
	if cfg.Workers < 0 {
		return errors.New("rz: Workers must not be negative")
	}
	if cfg.WorkerBufferSize <= 0 {
		return errors.New("rz: WorkerBufferSize must be greater than 0")
	}
	return nil
}

// Reader decompresses an rz stream.
type Reader struct {
	r       io.Reader
	cancel  context.CancelFunc
	winSize int
	err     error
}

// NewReader creates a reader with the default configuration. The
// stream header is read immediately.
func NewReader(z io.Reader) (*Reader, error) {
	return NewReaderConfig(z, ReaderConfig{})
}

// NewReaderConfig creates a reader for a specific configuration. The
// stream header is read before the function returns, so the window
// size is available afterwards.
func NewReaderConfig(z io.Reader, cfg ReaderConfig) (*Reader, error) {
	cfg.SetDefaults()
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	var p [headerLen]byte
	if _, err := io.ReadFull(z, p[:]); err != nil {
		return nil, err
	}
	var h header
	if err := h.parse(p[:]); err != nil {
		return nil, err
	}
	winSize := 1 << h.wexp
	if winSize > cfg.MaxWindowSize {
		return nil, fmt.Errorf(
			"rz: window size %d exceeds MaxWindowSize %d",
			winSize, cfg.MaxWindowSize)
	}

	if cfg.Workers == 1 {
		cr := new(chunkReader)
		if err := cr.init(z, winSize); err != nil {
			return nil, err
		}
		return &Reader{r: cr, winSize: winSize}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	mr := newMTReader(ctx, cfg, z, winSize)
	return &Reader{r: mr, cancel: cancel, winSize: winSize}, nil
}

// WindowSize returns the window size of the stream.
func (r *Reader) WindowSize() int { return r.winSize }

// Read reads decompressed data.
func (r *Reader) Read(p []byte) (n int, err error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.r.Read(p)
}

// onlyReader hides all other methods of the wrapped reader.
type onlyReader struct{ io.Reader }

// WriteTo decompresses the remaining stream into w.
func (r *Reader) WriteTo(w io.Writer) (n int64, err error) {
	if r.err != nil {
		return 0, r.err
	}
	if wt, ok := r.r.(io.WriterTo); ok {
		return wt.WriteTo(w)
	}
	return io.Copy(w, onlyReader{r.r})
}

// Close releases the reader resources. It must be called for readers
// with multiple workers to stop the goroutines.
func (r *Reader) Close() error {
	if r.err == errClosed {
		return errClosed
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.err = errClosed
	return nil
}

// mtrTask describes a stream segment for a worker. If size is
// negative the segment length is unknown and the worker streams the
// output through a pipe.
type mtrTask struct {
	// compressed segment consisting of whole chunks
	z io.Reader
	// uncompressed size; less than zero if unknown
	size int
	// reader for the decompressed segment
	rCh chan io.Reader
}

// mtReader provides a multithreaded reader for rz streams.
type mtReader struct {
	outCh <-chan mtrTask
	err   error
	r     io.Reader
}

func newMTReader(ctx context.Context, cfg ReaderConfig, z io.Reader,
	winSize int) *mtReader {
	tskCh := make(chan mtrTask)
	outCh := make(chan mtrTask)
	go mtrGenerate(ctx, z, cfg.WorkerBufferSize, tskCh, outCh)
	for i := 0; i < cfg.Workers; i++ {
		go mtrWork(ctx, winSize, tskCh)
	}
	return &mtReader{outCh: outCh}
}

func (r *mtReader) Read(p []byte) (n int, err error) {
	if r.err != nil {
		return 0, r.err
	}
	for n < len(p) {
		if r.r == nil {
			tsk, ok := <-r.outCh
			if !ok {
				r.err = io.EOF
				if n == 0 {
					return 0, io.EOF
				}
				return n, nil
			}
			r.r = <-tsk.rCh
		}
		k, err := r.r.Read(p[n:])
		n += k
		if err != nil {
			if err == io.EOF {
				r.r = nil
				continue
			}
			r.err = err
			return n, err
		}
	}
	return n, nil
}

// mtrGenerate splits the stream into segments and hands them to the
// workers. The tasks are forwarded in stream order to outCh, where
// the reader picks up the decompressed data.
func mtrGenerate(ctx context.Context, z io.Reader, bufSize int,
	tskCh, outCh chan<- mtrTask) {
	br := bufio.NewReader(z)
	for ctx.Err() == nil {
		buf := new(bytes.Buffer)
		buf.Grow(bufSize)
		tsk := mtrTask{rCh: make(chan io.Reader, 1)}
		size, parallel, err := splitStream(buf, br, bufSize)
		if err != nil && err != io.EOF {
			tsk.rCh <- &errReader{err: err}
			select {
			case <-ctx.Done():
				return
			case outCh <- tsk:
			}
			close(outCh)
			return
		}
		if parallel {
			tsk.z = buf
			tsk.size = size
		} else {
			tsk.z = io.MultiReader(buf, br)
			tsk.size = -1
			err = io.EOF
		}
		select {
		case <-ctx.Done():
			return
		case tskCh <- tsk:
		}
		select {
		case <-ctx.Done():
			return
		case outCh <- tsk:
		}
		if err == io.EOF {
			close(outCh)
			return
		}
	}
}

type errReader struct{ err error }

func (r *errReader) Read(p []byte) (n int, err error) { return 0, r.err }

func mtrWork(ctx context.Context, winSize int, tskCh <-chan mtrTask) {
	var cr chunkReader
	if err := cr.init(nil, winSize); err != nil {
		panic(fmt.Errorf("cr.init error %s", err))
	}
	for {
		var tsk mtrTask
		select {
		case <-ctx.Done():
			return
		case tsk = <-tskCh:
		}
		cr.reset(tsk.z)
		if tsk.size >= 0 {
			cr.noEOS = true
			buf := new(bytes.Buffer)
			buf.Grow(tsk.size)
			var r io.Reader
			if _, err := io.Copy(buf, &cr); err != nil {
				r = &errReader{err: err}
			} else {
				r = buf
			}
			select {
			case <-ctx.Done():
				return
			case tsk.rCh <- r:
			}
		} else {
			cr.noEOS = false
			pr, pw := io.Pipe()
			select {
			case <-ctx.Done():
				return
			case tsk.rCh <- pr:
			}
			if _, err := io.Copy(pw, &cr); err != nil {
				if err = pw.CloseWithError(err); err != nil {
					panic(fmt.Errorf(
						"pw.CloseWithError error %s",
						err))
				}
			}
			if err := pw.Close(); err != nil {
				panic(fmt.Errorf("pw.Close() error %s", err))
			}
		}
	}
}

// splitStream copies whole chunks into w up to the next reset chunk.
// Segments can only be cut at reset chunks because those don't depend
// on earlier data. If no reset chunk turns up within size uncompressed
// bytes, ok is false and the stream must be decoded sequentially
// starting with the data copied to w. A returned io.EOF reports that
// the end-of-stream marker has been reached; the marker itself is not
// consumed.
func splitStream(w io.Writer, br *bufio.Reader, size int) (n int, ok bool, err error) {
	for {
		h, k, err := peekChunkHeader(br)
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, false, err
		}
		switch h.Control {
		case CUR, CCR:
			if n > 0 {
				return n, true, nil
			}
		case CEOS:
			return n, true, io.EOF
		}
		switch h.Control {
		case CU, CUR:
			k += h.Size
		case CC, CCR:
			k += h.CompressedSize
		}
		n += h.Size
		if n > size {
			return 0, false, io.EOF
		}
		if _, err := io.CopyN(w, br, int64(k)); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, false, err
		}
	}
}
