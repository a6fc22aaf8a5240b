// seehuhn.de/go/pdfclean - remove white backgrounds from PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Pdf-clean removes large white background rectangles from PDF files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"golang.org/x/term"

	"seehuhn.de/go/pdfclean/batch"
	"seehuhn.de/go/pdfclean/internal/inputs"
	"seehuhn.de/go/pdfclean/internal/logging"
	"seehuhn.de/go/pdfclean/tools/internal/buildinfo"
	"seehuhn.de/go/pdfclean/tools/internal/profile"
	"seehuhn.de/go/pdfclean/transparent"
	"seehuhn.de/go/pdfclean/whiteout"
)

var (
	threshold  = flag.Float64("threshold", whiteout.DefaultThreshold, "minimal fraction of the page `area` covered by a removed rectangle")
	whiteness  = flag.Float64("whiteness", whiteout.DefaultWhiteness, "minimal value of the red, green and blue components of a white fill")
	suffix     = flag.String("suffix", whiteout.DefaultSuffix, "`suffix` for output file names; empty to overwrite the input")
	mode       = flag.String("mode", "drop", "`strategy`: \"drop\" redraws pages without white rectangles, \"transparent\" makes white fills transparent")
	jobs       = flag.Int("j", runtime.NumCPU(), "number of files processed in parallel")
	strict     = flag.Bool("strict", false, "exit with status 1 if any file could not be processed")
	passwdArg  = flag.String("password", "", "password for encrypted files; use \"-\" to read it from the terminal")
	verbose    = flag.Bool("v", false, "show debug messages")
	version    = flag.Bool("version", false, "print version information and exit")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
	memprofile = flag.String("memprofile", "", "write memory profile to `file`")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pdf-clean - remove white backgrounds from PDF files\n")
		fmt.Fprintf(os.Stderr, "%s\n\n", buildinfo.Short("pdf-clean"))
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  pdf-clean [options] <path>...\n\n")
		fmt.Fprintf(os.Stderr, "Arguments:\n")
		fmt.Fprintf(os.Stderr, "  path   PDF file, directory, or glob pattern like 'plots/**/*.pdf'\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pdf-clean figure.pdf\n")
		fmt.Fprintf(os.Stderr, "  pdf-clean -mode transparent -suffix _t plots/\n")
	}
	flag.Parse()

	if *version {
		fmt.Println(buildinfo.Short("pdf-clean"))
		return
	}
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	code, err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	os.Exit(code)
}

// outcome is the result of processing a single file.
type outcome struct {
	output  string
	changed int
}

func run() (int, error) {
	log := logging.New(os.Stderr, *verbose)

	if *threshold < 0 || *threshold > 1 {
		return 0, fmt.Errorf("invalid threshold %g", *threshold)
	}
	if *whiteness < 0 || *whiteness > 1 {
		return 0, fmt.Errorf("invalid whiteness %g", *whiteness)
	}
	passwd, err := readPassword(*passwdArg)
	if err != nil {
		return 0, err
	}

	var process func(string) (outcome, error)
	switch *mode {
	case "drop":
		opt := &whiteout.Options{
			Threshold: *threshold,
			Whiteness: *whiteness,
			Suffix:    *suffix,
			Password:  passwd,
			Logger:    log,
		}
		process = func(path string) (outcome, error) {
			res, err := whiteout.ProcessFile(path, opt)
			if err != nil {
				return outcome{}, err
			}
			return outcome{output: res.Output, changed: res.Dropped}, nil
		}
	case "transparent":
		opt := &transparent.Options{
			Whiteness: *whiteness,
			Suffix:    *suffix,
			Password:  passwd,
			Logger:    log,
		}
		process = func(path string) (outcome, error) {
			res, err := transparent.ProcessFile(path, opt)
			if err != nil {
				return outcome{}, err
			}
			return outcome{output: res.Output, changed: res.Fills}, nil
		}
	default:
		return 0, fmt.Errorf("unknown mode %q", *mode)
	}

	stop, err := profile.Start(*cpuprofile, *memprofile, log)
	if err != nil {
		return 0, err
	}
	defer stop()

	files, err := inputs.Find(flag.Args(), *suffix, log)
	if err != nil {
		return 0, err
	}
	log.Debug("found input files", slog.Int("count", len(files)))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	results := batch.Run(ctx, files, *jobs, func(path string) (outcome, error) {
		log.Info("processing", slog.String("file", path))
		return process(path)
	})
	for _, r := range results {
		switch {
		case errors.Is(r.Err, context.Canceled):
			log.Warn("skipped", slog.String("file", r.Item))
		case r.Err != nil:
			log.Error("failed", slog.String("file", r.Item), slog.Any("error", r.Err))
		case r.Value.output == "":
			log.Info("unchanged", slog.String("file", r.Item))
		default:
			log.Info("processed",
				slog.String("file", r.Item),
				slog.String("output", r.Value.output),
				slog.Int("changed", r.Value.changed))
		}
	}

	summary := batch.Summarize(results)
	log.Info("done",
		slog.Int("files", summary.Total),
		slog.Int("failed", summary.Failed))

	policy := batch.BestEffort
	if *strict {
		policy = batch.FailOnError
	}
	return summary.ExitCode(policy), nil
}

// readPassword returns the password given on the command line.  The value
// "-" causes the password to be read from the terminal.
func readPassword(arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("cannot read password: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "password: ")
	passwd, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(passwd), nil
}
