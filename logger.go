// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package rz

import (
	"io"
	"log"

	"github.com/ulikunitz/rz/internal/xlog"
)

// debug stores a reference to a logger. It may contain nil for no
// output.
var debug xlog.Logger

// debugOn writes debug information to the given writer. If w is nil no
// output will be written.
func debugOn(w io.Writer) {
	if w == nil {
		debug = nil
		return
	}
	debug = log.New(w, "", 0)
}

// debugOff switches the debugging output off.
func debugOff() { debug = nil }
