// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Command grz compresses and decompresses files in the rz format.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ogier/pflag"
)

const version = "0.1.4"

const usageStr = `Usage: grz [OPTION]... [FILE]...
Compress or uncompress FILEs in the .rz format (by default, compress FILES
in place).

  -c, --stdout      write to standard output and don't delete input files
  -d, --decompress  force decompression
  -f, --force       force overwrite of output file and compress links
  -h, --help        give this help
  -k, --keep        keep (don't delete) input files
  -l, --list        list information about .rz files
  -q, --quiet       suppress all warnings
  -T, --threads N   number of worker threads; 0 means all CPUs
  -v, --verbose     verbose mode
  -V, --version     display version string
  -w, --window N    set window size to 2^N bytes
  -z, --compress    force compression
  -0 ... -9         compression preset; default is 6

With no file, or when FILE is -, read standard input.

Report bugs using <https://github.com/ulikunitz/rz/issues>.
`

func usage(w io.Writer) {
	fmt.Fprint(w, usageStr)
}

// Preset represents a compression preset in the range from 0 to 9.
type Preset int

const defaultPreset Preset = 6

// filterArg removes preset digits from a short option cluster and
// records the last one in p. Other arguments pass through unchanged.
func (p *Preset) filterArg(arg string) string {
	if len(arg) < 2 || arg[0] != '-' || arg[1] == '-' {
		return arg
	}
	if strings.IndexByte(arg, 'T') >= 0 {
		// -T takes a numeric argument
		return arg
	}
	buf := new(bytes.Buffer)
	buf.Grow(len(arg))
	for _, c := range arg {
		if '0' <= c && c <= '9' {
			*p = Preset(c - '0')
			continue
		}
		buf.WriteRune(c)
	}
	return buf.String()
}

// filter rewrites os.Args with the preset digits removed. Arguments
// following the -- terminator stay untouched.
func (p *Preset) filter() {
	args := make([]string, 1, len(os.Args))
	args[0] = os.Args[0]
	for i, arg := range os.Args[1:] {
		if arg == "--" {
			args = append(args, os.Args[1+i:]...)
			break
		}
		farg := p.filterArg(arg)
		if farg == "-" && arg != "-" {
			// the argument consisted only of preset digits
			continue
		}
		args = append(args, farg)
	}
	os.Args = args
}

// options collects the settings for processing a single file.
type options struct {
	decompress bool
	force      bool
	keep       bool
	stdout     bool
	preset     Preset
	threads    int
	wexp       int
}

func main() {
	cmdName := filepath.Base(os.Args[0])
	log.SetPrefix(fmt.Sprintf("%s: ", cmdName))
	log.SetFlags(0)

	pflag.CommandLine = pflag.NewFlagSet(cmdName, pflag.ExitOnError)
	pflag.SetInterspersed(true)
	pflag.Usage = func() { usage(os.Stderr); os.Exit(1) }
	var (
		help        = pflag.BoolP("help", "h", false, "")
		stdout      = pflag.BoolP("stdout", "c", false, "")
		decompress  = pflag.BoolP("decompress", "d", false, "")
		compress    = pflag.BoolP("compress", "z", false, "")
		force       = pflag.BoolP("force", "f", false, "")
		keep        = pflag.BoolP("keep", "k", false, "")
		list        = pflag.BoolP("list", "l", false, "")
		quietFlag   = pflag.BoolP("quiet", "q", false, "")
		verbose     = pflag.BoolP("verbose", "v", false, "")
		versionFlag = pflag.BoolP("version", "V", false, "")
		threads     = pflag.IntP("threads", "T", 0, "")
		window      = pflag.IntP("window", "w", 0, "")
		preset      = defaultPreset
	)

	preset.filter()
	pflag.Parse()

	if *help {
		usage(os.Stdout)
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("%s version %s\n", cmdName, version)
		os.Exit(0)
	}
	if *compress && *decompress {
		log.Fatal("options -z and -d must not be combined")
	}
	if *window != 0 && !(12 <= *window && *window <= 27) {
		log.Fatalf("option -w: window exponent %d not in range [12,27]",
			*window)
	}
	quiet = *quietFlag
	if *verbose {
		debug = log.New(os.Stderr, fmt.Sprintf("%s: ", cmdName), 0)
	}

	opts := options{
		decompress: *decompress,
		force:      *force,
		keep:       *keep,
		stdout:     *stdout,
		preset:     preset,
		threads:    *threads,
		wexp:       *window,
	}

	args := pflag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}

	if *list {
		os.Exit(listFiles(args))
	}

	exitCode := 0
	for _, path := range args {
		fileOpts := opts
		if path == "-" {
			fileOpts.stdout = true
			fileOpts.keep = true
		}
		if err := processFile(path, &fileOpts); err != nil {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
