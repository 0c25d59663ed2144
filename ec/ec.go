// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package ec implements a binary and multi-symbol range coder with
// adaptive probability models. It is the coder used by the Daala and
// AV1 video codecs, transplanted from the video world into a general
// compression primitive.
//
// Probabilities live in Q15: 32768 represents certainty. A
// distribution over n symbols (2 <= n <= 16) is stored as an inverted
// cumulative table of n+1 uint16 values: entry i holds 32768 minus the
// cumulative frequency of symbols 0..i, so the entries decrease
// strictly and entry n-1 is zero. The final cell is not a probability
// at all but a usage counter that the adaptive update advances to 32;
// it selects a faster adaptation rate while a table is young. [NewCDF]
// and [InitCDF] produce tables in this layout.
//
// The Encoder buffers its output and resolves all carry propagation in
// a single backward pass when [Encoder.Done] is called. The Decoder
// works on a byte slice and never fails: past the end of the buffer it
// behaves as if the stream continued with zero bits, and
// [Decoder.Overread] reports whether such synthesized bits have been
// consumed. Storing the length of the coded buffer is the caller's
// job; the coder does not frame its output.
//
// Encoder and Decoder must see the same sequence of operations with
// the same probabilities. Adaptive tables are owned by the caller and
// must not be shared between two concurrently coded streams.
package ec

const (
	// probTop is the Q15 representation of certainty.
	probTop = 1 << 15

	// maxSymbols is the largest supported alphabet size per table.
	maxSymbols = 16

	// counterMax caps the usage counter in the last table cell.
	counterMax = 32
)
