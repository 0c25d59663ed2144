// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package rz supports the compression and decompression of rz streams.
//
// The format combines LZ77 parsing with the adaptive range coder from
// package ec. A stream starts with a 4-byte header carrying the window
// size and continues with a sequence of chunks. Chunks are either
// stored uncompressed or entropy-coded and may reset the probability
// models and the dictionary window, which allows multiple workers to
// compress and decompress segments of a stream independently.
//
// Use [NewWriter] and [NewReader] for the default configuration or
// [NewWriterConfig] and [NewReaderConfig] to control window size and
// the number of parallel workers.
package rz
