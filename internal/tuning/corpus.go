// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package tuning measures compression configurations over a file
// corpus.
package tuning

import (
	"bytes"
	"io"
	"io/fs"

	"github.com/pkg/errors"
	"github.com/ulikunitz/rz"
)

type File struct {
	Name string
	Data []byte
}

func Files(corpus fs.FS) (files []File, err error) {
	err = fs.WalkDir(corpus, ".",
		func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			data, err := fs.ReadFile(corpus, path)
			if err != nil {
				return err
			}
			files = append(files, File{Name: path, Data: data})
			return nil
		})
	return files, err
}

func Size(files []File) int64 {
	n := int64(0)
	for _, f := range files {
		n += int64(len(f.Data))
	}
	return n
}

type countWriter struct {
	n int64
}

func (w *countWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	w.n += int64(n)
	return n, nil
}

// Compress compresses all corpus files with the given configuration
// and returns the total size of the compressed streams.
func Compress(files []File, cfg rz.WriterConfig) (compressedSize int64, err error) {
	for _, f := range files {
		cw := &countWriter{}
		w, err := rz.NewWriterConfig(cw, cfg)
		if err != nil {
			return compressedSize, err
		}
		if _, err = io.Copy(w, bytes.NewReader(f.Data)); err != nil {
			return compressedSize, errors.Wrapf(err, "file %s", f.Name)
		}
		if err = w.Close(); err != nil {
			return compressedSize, errors.Wrapf(err, "file %s", f.Name)
		}
		compressedSize += cw.n
	}
	return compressedSize, nil
}
