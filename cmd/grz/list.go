// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bufio"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/ulikunitz/rz"
)

// listFile collects the stream statistics for a single file.
func listFile(path string) (info rz.Info, err error) {
	if path == "-" {
		return rz.Info{}, errors.New("standard input cannot be listed")
	}
	f, err := os.Open(path)
	if err != nil {
		return rz.Info{}, userError(err)
	}
	defer f.Close()
	info, err = rz.Stat(bufio.NewReader(f))
	if err != nil {
		return rz.Info{}, errors.Wrapf(err, "file %s", path)
	}
	return info, nil
}

// listFiles prints a statistics table for the given files and returns
// the exit code for the program.
func listFiles(args []string) int {
	exitCode := 0
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "uncompressed\tcompressed\tratio\tchunks\twindow\tname\t")
	for _, path := range args {
		info, err := listFile(path)
		if err != nil {
			printErr(err)
			exitCode = 1
			continue
		}
		ratio := 0.0
		if info.Uncompressed > 0 {
			ratio = float64(info.Compressed) /
				float64(info.Uncompressed)
		}
		fmt.Fprintf(tw, "%d\t%d\t%.3f\t%d\t%d\t%s\t\n",
			info.Uncompressed, info.Compressed, ratio,
			info.Chunks, info.WindowSize, path)
	}
	tw.Flush()
	return exitCode
}
