// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/ulikunitz/lz"
)

// defaultWorkerBufferSize is the number of uncompressed bytes a worker
// compresses into an independently decodable stream segment.
const defaultWorkerBufferSize = 4 << 20

var errClosed = errors.New("rz: already closed")

// eos is the end-of-stream marker chunk.
var eos = []byte{CEOS}

// WriterConfig provides the parameters for an rz writer.
type WriterConfig struct {
	// WindowSize sets the dictionary window size for the stream. The
	// value is rounded up to the next power of two because the stream
	// header stores the window size as an exponent.
	WindowSize int

	// Workers is the number of goroutines compressing data.
	Workers int
	// WorkerBufferSize is the number of uncompressed bytes a single
	// worker compresses into an independently decodable segment.
	WorkerBufferSize int

	// LZ configures the LZ parser.
	LZ lz.SeqConfig
}

// fixBufConfig aligns the sequencer buffer configuration with the
// stream window size. The shrink size must cover the window so the
// uncompressed fallback of a chunk can always be copied out of it.
func fixBufConfig(cfg lz.SeqConfig, windowSize int) {
	bc := cfg.BufConfig()
	bc.WindowSize = windowSize
	bc.ShrinkSize = bc.WindowSize
	bc.BufferSize = 2 * bc.WindowSize

	const minBufferSize = 256 << 10
	if bc.BufferSize < minBufferSize {
		bc.BufferSize = minBufferSize
	}
	cfg.SetBufConfig(bc)
}

// SetDefaults replaces zero values with default values. The number of
// workers defaults to the number of CPUs.
func (cfg *WriterConfig) SetDefaults() {
	if cfg.LZ == nil {
		cfg.LZ = &lz.DHSConfig{WindowSize: cfg.WindowSize}
	} else if cfg.WindowSize > 0 {
		bc := cfg.LZ.BufConfig()
		bc.WindowSize = cfg.WindowSize
		cfg.LZ.SetBufConfig(bc)
	}
	cfg.LZ.SetDefaults()

	bc := cfg.LZ.BufConfig()
	if wexp, err := windowExp(bc.WindowSize); err == nil {
		cfg.WindowSize = 1 << wexp
	} else {
		cfg.WindowSize = bc.WindowSize
	}
	fixBufConfig(cfg.LZ, cfg.WindowSize)

	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	if cfg.WorkerBufferSize == 0 && cfg.Workers > 1 {
		cfg.WorkerBufferSize = defaultWorkerBufferSize
		bc := cfg.LZ.BufConfig()
		if cfg.WorkerBufferSize > bc.BufferSize {
			bc.BufferSize = cfg.WorkerBufferSize
			cfg.LZ.SetBufConfig(bc)
		}
	}
}

// Verify checks whether the configuration is consistent and correct.
// Usually call SetDefaults before this method.
func (cfg *WriterConfig) Verify() error {
	if cfg == nil {
		return errors.New("rz: WriterConfig pointer must not be nil")
	}
	if cfg.LZ == nil {
		return errors.New("rz: WriterConfig field LZ is nil")
	}
	if err := cfg.LZ.Verify(); err != nil {
		return err
	}
	if !(minWindowSize <= cfg.WindowSize &&
		cfg.WindowSize <= maxWindowSize) {
		return fmt.Errorf("rz: window size %d out of range",
			cfg.WindowSize)
	}
	if cfg.WindowSize&(cfg.WindowSize-1) != 0 {
		return fmt.Errorf("rz: window size %d must be a power of two",
			cfg.WindowSize)
	}
	if cfg.Workers < 0 {
		return errors.New("rz: Workers must not be negative")
	}
	if cfg.Workers > 1 {
		if cfg.WorkerBufferSize <= 0 {
			return errors.New(
				"rz: WorkerBufferSize must be greater than 0")
		}
		bc := cfg.LZ.BufConfig()
		if cfg.WorkerBufferSize > bc.BufferSize {
			return errors.New("rz: WorkerBufferSize must be less" +
				" or equal than the LZ buffer size")
		}
	}
	return nil
}

// Writer is the interface for compressing a stream of data. Close
// terminates the stream with an end-of-stream marker. Flush writes all
// buffered data out but keeps the stream open.
type Writer interface {
	io.WriteCloser
	Flush() error
	WindowSize() int
}

// NewWriter creates a writer compressing data it writes to z with the
// default configuration.
func NewWriter(z io.Writer) (w Writer, err error) {
	return NewWriterConfig(z, WriterConfig{})
}

// NewWriterConfig creates a writer for a specific configuration. The
// stream header is written before the function returns. Note that the
// implementation for cfg.Workers > 1 uses goroutines.
func NewWriterConfig(z io.Writer, cfg WriterConfig) (w Writer, err error) {
	cfg.SetDefaults()
	bc := cfg.LZ.BufConfig()
	if cfg.Workers > 1 && cfg.WorkerBufferSize > bc.BufferSize {
		bc.BufferSize = cfg.WorkerBufferSize
		cfg.LZ.SetBufConfig(bc)
	}
	if err = cfg.Verify(); err != nil {
		return nil, err
	}

	wexp, err := windowExp(cfg.WindowSize)
	if err != nil {
		return nil, err
	}
	var a [headerLen]byte
	p, err := header{wexp: wexp}.append(a[:0])
	if err != nil {
		return nil, err
	}
	if _, err = z.Write(p); err != nil {
		return nil, err
	}

	if cfg.Workers == 1 {
		seq, err := cfg.LZ.NewSequencer()
		if err != nil {
			return nil, err
		}
		var cw chunkWriter
		if err = cw.init(z, seq, nil, cfg.WindowSize); err != nil {
			return nil, err
		}
		return &cw, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	mw := &mtWriter{
		// extra margin is an optimization for the sequencers
		buf:    make([]byte, 0, cfg.WorkerBufferSize+7),
		ctx:    ctx,
		cancel: cancel,
		taskCh: make(chan mtwTask, cfg.Workers),
		outCh:  make(chan mtwOutput, cfg.Workers),
		errCh:  make(chan error, 1),
		z:      z,
		cfg:    cfg,
	}

	go mtwWriteOutput(mw.ctx, mw.outCh, mw.z, mw.errCh)

	return mw, nil
}

// mtWriter distributes the data over multiple chunk writers. Every
// worker buffer becomes a segment starting with a reset chunk, so the
// segments can be decompressed independently.
type mtWriter struct {
	buf     []byte
	ctx     context.Context
	cancel  context.CancelFunc
	taskCh  chan mtwTask
	outCh   chan mtwOutput
	errCh   chan error
	z       io.Writer
	workers int
	cfg     WriterConfig
	err     error
}

func (w *mtWriter) WindowSize() int { return w.cfg.WindowSize }

func (w *mtWriter) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	select {
	case err = <-w.errCh:
		w.err = err
		w.cancel()
		return n, err
	default:
	}
	for len(p) > 0 {
		k := w.cfg.WorkerBufferSize - len(w.buf)
		if k >= len(p) {
			w.buf = append(w.buf, p...)
			n += len(p)
			return n, nil
		}
		if w.workers < w.cfg.Workers {
			go mtwWork(w.ctx, w.taskCh, w.cfg)
			w.workers++
		}
		w.buf = append(w.buf, p[:k]...)
		zCh := make(chan []byte, 1)
		select {
		case err = <-w.errCh:
			w.err = err
			w.cancel()
			return n, err
		case w.taskCh <- mtwTask{data: w.buf, zCh: zCh}:
		}
		select {
		case err = <-w.errCh:
			w.err = err
			w.cancel()
			return n, err
		case w.outCh <- mtwOutput{zCh: zCh}:
		}
		// extra margin is an optimization for the sequencers
		w.buf = make([]byte, 0, w.cfg.WorkerBufferSize+7)
		n += k
		p = p[k:]
	}
	return n, nil
}

func (w *mtWriter) Flush() error {
	if w.err != nil {
		return w.err
	}
	var err error
	select {
	case err = <-w.errCh:
		w.err = err
		w.cancel()
		return err
	default:
	}
	flushCh := make(chan struct{}, 1)
	var zCh chan []byte
	if len(w.buf) > 0 {
		if w.workers < w.cfg.Workers {
			go mtwWork(w.ctx, w.taskCh, w.cfg)
			w.workers++
		}
		zCh = make(chan []byte, 1)
		select {
		case err = <-w.errCh:
			w.err = err
			w.cancel()
			return err
		case w.taskCh <- mtwTask{data: w.buf, zCh: zCh}:
		}
		// extra margin is an optimization for the sequencers
		w.buf = make([]byte, 0, w.cfg.WorkerBufferSize+7)
	}
	select {
	case err = <-w.errCh:
		w.err = err
		w.cancel()
		return err
	case w.outCh <- mtwOutput{flushCh: flushCh, zCh: zCh}:
	}
	select {
	case err = <-w.errCh:
		w.err = err
		w.cancel()
		return err
	case <-flushCh:
	}
	return nil
}

func (w *mtWriter) Close() error {
	if w.err != nil {
		return w.err
	}
	defer w.cancel()
	var err error
	if err = w.Flush(); err != nil {
		w.err = err
		return err
	}
	if _, err = w.z.Write(eos); err != nil {
		w.err = err
		return err
	}
	w.err = errClosed
	return nil
}

type mtwOutput struct {
	flushCh chan<- struct{}
	zCh     <-chan []byte
}

type mtwTask struct {
	data []byte
	zCh  chan<- []byte
}

// mtwWriteOutput writes the compressed segments in order to the
// output stream.
func mtwWriteOutput(ctx context.Context, outCh <-chan mtwOutput,
	z io.Writer, errCh chan<- error) {
	var (
		o    mtwOutput
		data []byte
	)
	for {
		select {
		case <-ctx.Done():
			return
		case o = <-outCh:
		}
		if o.zCh != nil {
			select {
			case <-ctx.Done():
				return
			case data = <-o.zCh:
			}
			if _, err := z.Write(data); err != nil {
				select {
				case <-ctx.Done():
				case errCh <- err:
				}
				return
			}
		}
		if o.flushCh != nil {
			select {
			case <-ctx.Done():
				return
			case o.flushCh <- struct{}{}:
			}
		}
	}
}

// mtwWork compresses worker buffers into chunk segments. The
// configuration has been verified before the worker starts, so errors
// from the sequencer or the chunk writer are programming errors.
func mtwWork(ctx context.Context, taskCh <-chan mtwTask, cfg WriterConfig) {
	seq, err := cfg.LZ.NewSequencer()
	if err != nil {
		panic(fmt.Errorf("NewSequencer error %s", err))
	}
	var (
		tsk mtwTask
		w   chunkWriter
	)
	for {
		select {
		case <-ctx.Done():
			return
		case tsk = <-taskCh:
		}
		buf := new(bytes.Buffer)
		if err := w.init(buf, seq, tsk.data, cfg.WindowSize); err != nil {
			panic(fmt.Errorf("w.init error %s", err))
		}
		if err := w.flushContext(ctx); err != nil {
			if errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) {
				return
			}
			panic(fmt.Errorf("w.flushContext error %s", err))
		}
		select {
		case <-ctx.Done():
			return
		case tsk.zCh <- buf.Bytes():
		}
	}
}
