// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kr/pretty"
	"github.com/ulikunitz/rz"
	"github.com/ulikunitz/rz/internal/xlog"
)

// rzExt is the file name extension of compressed files.
const rzExt = ".rz"

// quiet suppresses warning messages when set. It is initialized in
// main.
var quiet bool

// debug is nil unless verbose mode has been requested. It is
// initialized in main.
var debug xlog.Logger

func printErr(err error) {
	if err != nil && !quiet {
		log.Print(userError(err))
	}
}

// signalHandler removes the temporary output file if the program is
// interrupted or terminated. The returned quit channel must be closed
// to stop the handler goroutine.
func signalHandler(w *writer) chan<- struct{} {
	quit := make(chan struct{})
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			signal.Stop(sigch)
			return
		case <-sigch:
			w.removeTmpFile()
			os.Exit(7)
		}
	}()
	return quit
}

// windowExps maps preset values to window size exponents.
var windowExps = []uint{18, 20, 21, 22, 22, 23, 23, 24, 25, 26}

// newCompressor creates the rz compressor described by the options.
func newCompressor(w io.Writer, opts *options) (cmp io.WriteCloser, err error) {
	if opts.decompress {
		panic("no compressor needed")
	}
	cfg := rz.WriterConfig{
		WindowSize: 1 << windowExps[opts.preset],
		Workers:    opts.threads,
	}
	if opts.wexp != 0 {
		cfg.WindowSize = 1 << opts.wexp
	}
	xlog.Printf(debug, "writer config %s", pretty.Sprint(&cfg))
	return rz.NewWriterConfig(w, cfg)
}

// newDecompressor creates the rz decompressor described by the
// options.
func newDecompressor(br *bufio.Reader, opts *options) (dec io.Reader, err error) {
	if !opts.decompress {
		panic("no decompressor needed")
	}
	cfg := rz.ReaderConfig{Workers: opts.threads}
	xlog.Printf(debug, "reader config %s", pretty.Sprint(&cfg))
	return rz.NewReaderConfig(br, cfg)
}

// targetName computes the name of the output file. Compression
// requires that the path doesn't carry the .rz suffix already and
// decompression that it does.
func targetName(path string, opts *options) (target string, err error) {
	if path == "-" {
		panic("path name - not supported")
	}
	if len(path) == 0 {
		return "", errors.New("empty file name not supported")
	}
	if !opts.decompress {
		if strings.HasSuffix(path, rzExt) {
			return "", fmt.Errorf("file %s has already the %s suffix",
				path, rzExt)
		}
		return path + rzExt, nil
	}
	if !strings.HasSuffix(path, rzExt) {
		return "", fmt.Errorf("file %s has no %s suffix", path, rzExt)
	}
	target = path[:len(path)-len(rzExt)]
	if len(target) == 0 {
		return "", fmt.Errorf("file name %s has no base part", path)
	}
	return target, nil
}

// tmpName converts the path into the name of the temporary file the
// output is written to before the rename.
func tmpName(path string, decompress bool) string {
	if decompress {
		return path + ".decompress"
	}
	return path + ".compress"
}

// writer writes the output file. During compression the rz compressor
// is part of the write path.
type writer struct {
	f    *os.File
	name string
	bw   *bufio.Writer
	io.Writer
	cmp     io.WriteCloser
	success bool
}

// newWriter opens the output file for the given path. The data is
// written to a temporary file that Close renames to the target name on
// success.
func newWriter(path string, perm os.FileMode, opts *options,
) (w *writer, err error) {
	w = &writer{name: path}
	if opts.stdout {
		w.f = os.Stdout
		w.name = "-"
	} else {
		name, err := targetName(path, opts)
		if err != nil {
			return nil, err
		}
		if _, err = os.Stat(name); !os.IsNotExist(err) {
			if !opts.force {
				return nil, &userPathError{
					Path: name,
					Err:  errors.New("file exists")}
			}
			if err = os.Remove(name); err != nil {
				return nil, err
			}
		}
		tmp := tmpName(path, opts.decompress)
		if w.f, err = os.OpenFile(tmp,
			os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm); err != nil {
			return nil, err
		}
		w.name = name
	}
	w.bw = bufio.NewWriter(w.f)
	if opts.decompress {
		w.Writer = w.bw
		return w, nil
	}
	w.cmp, err = newCompressor(w.bw, opts)
	if err != nil {
		return nil, err
	}
	w.Writer = w.cmp
	return w, nil
}

// isStdout checks whether the file refers to standard output.
func isStdout(f *os.File) bool {
	return f.Fd() == uintptr(syscall.Stdout)
}

var errInval = errors.New("invalid value")

// Close completes the output file. Without success set the temporary
// file is removed, otherwise the compressor and buffer are flushed and
// the file renamed to the target name.
func (w *writer) Close() error {
	var err error

	if w.f == nil {
		return errInval
	}
	defer func() { w.f = nil }()

	if !w.success {
		if isStdout(w.f) {
			return nil
		}
		if err = w.f.Close(); err != nil {
			return err
		}
		return os.Remove(w.f.Name())
	}
	if w.cmp != nil {
		if err = w.cmp.Close(); err != nil {
			return err
		}
	}
	if err = w.bw.Flush(); err != nil {
		return err
	}
	if isStdout(w.f) {
		return nil
	}
	if err = w.f.Close(); err != nil {
		return err
	}
	return os.Rename(w.f.Name(), w.name)
}

// removeTmpFile removes the temporary file. It is called by the signal
// handler goroutine.
func (w *writer) removeTmpFile() {
	if w.f != nil && !isStdout(w.f) {
		os.Remove(w.f.Name())
	}
}

// SetSuccess marks the output file as complete.
func (w *writer) SetSuccess() { w.success = true }

// reader reads the input file. During decompression the rz
// decompressor is part of the read path.
type reader struct {
	f *os.File
	io.Reader
	success bool
	keep    bool
}

var errNoRegular = errors.New("no regular file")

// specialBits are the mode bits grz refuses to handle without the
// force option.
const specialBits = os.ModeSetuid | os.ModeSetgid | os.ModeSticky

// openFile opens the input file and checks that it is a regular file.
// Symbolic links are only followed with the force option.
func openFile(path string, opts *options) (f *os.File, err error) {
	if path == "-" {
		return os.Stdin, nil
	}
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	fm := fi.Mode()
	if !fm.IsRegular() {
		if !opts.force || fm&os.ModeSymlink == 0 {
			return nil, &userPathError{Path: path,
				Err: errNoRegular}
		}
	}
	if f, err = os.Open(path); err != nil {
		return nil, err
	}
	if fi, err = f.Stat(); err != nil {
		return nil, err
	}
	fm = fi.Mode()
	if !fm.IsRegular() {
		return nil, &userPathError{Path: path, Err: errNoRegular}
	}
	if fm&specialBits != 0 && !opts.force {
		return nil, &userPathError{Path: path,
			Err: errors.New("setuid, setgid and/or sticky bit set")}
	}
	return f, nil
}

// newReader opens the input file for the given path.
func newReader(path string, opts *options) (r *reader, err error) {
	f, err := openFile(path, opts)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	if !opts.decompress {
		return &reader{f: f, Reader: br,
			keep: opts.keep || opts.stdout}, nil
	}
	dec, err := newDecompressor(br, opts)
	if err != nil {
		return nil, err
	}
	return &reader{f: f, Reader: dec,
		keep: opts.keep || opts.stdout}, nil
}

// isStdin checks whether the file refers to standard input.
func isStdin(f *os.File) bool {
	return f.Fd() == uintptr(syscall.Stdin)
}

// Close closes the input file. With success set and keep unset the
// input file is removed.
func (r *reader) Close() error {
	if r.f == nil {
		return errInval
	}
	defer func() { r.f = nil }()
	if isStdin(r.f) {
		return nil
	}
	if err := r.f.Close(); err != nil {
		return err
	}
	if r.keep || !r.success {
		return nil
	}
	return os.Remove(r.f.Name())
}

// SetSuccess marks the input file as fully processed.
func (r *reader) SetSuccess() { r.success = true }

// Perm provides the permissions of the input file for the output file.
func (r *reader) Perm() os.FileMode {
	const defaultPerm os.FileMode = 0666

	fi, err := r.f.Stat()
	if err != nil {
		return defaultPerm
	}
	return fi.Mode() & defaultPerm
}

// userPathError is a path error without the operation information of
// os.PathError, which doesn't help users of the program.
type userPathError struct {
	Path string
	Err  error
}

func (e *userPathError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// userError strips the operation information from path errors.
func userError(err error) error {
	var pe *os.PathError
	if !errors.As(err, &pe) {
		return err
	}
	return &userPathError{Path: pe.Path, Err: pe.Err}
}

// processFile compresses or decompresses the file with the given path
// as the options demand.
func processFile(path string, opts *options) (err error) {
	r, err := newReader(path, opts)
	if err != nil {
		printErr(err)
		return
	}
	defer r.Close()
	w, err := newWriter(path, r.Perm(), opts)
	if err != nil {
		printErr(err)
		return
	}
	defer w.Close()
	quitSignalHandler := signalHandler(w)
	if _, err = io.Copy(w, r); err != nil {
		close(quitSignalHandler)
		printErr(err)
		return err
	}
	close(quitSignalHandler)
	w.SetSuccess()
	if err = w.Close(); err != nil {
		printErr(err)
		return err
	}
	r.SetSuccess()
	if err = r.Close(); err != nil {
		printErr(err)
		return err
	}
	return nil
}
