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

// Pdf-embed attaches files to a PDF document.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"seehuhn.de/go/pdfclean/attach"
	"seehuhn.de/go/pdfclean/internal/logging"
	"seehuhn.de/go/pdfclean/tools/internal/buildinfo"
)

var (
	outFile = flag.String("o", "", "output file name (default \"<stem>_embedded.pdf\")")
	inPlace = flag.Bool("in-place", false, "overwrite the input file")
	list    = flag.Bool("list", false, "list the embedded files and exit")
	verbose = flag.Bool("v", false, "show debug messages")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pdf-embed - attach files to a PDF document\n")
		fmt.Fprintf(os.Stderr, "%s\n\n", buildinfo.Short("pdf-embed"))
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  pdf-embed [options] <file.pdf> <file>...\n")
		fmt.Fprintf(os.Stderr, "  pdf-embed -list <file.pdf>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *list && flag.NArg() != 1 || !*list && flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}

	err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	log := logging.New(os.Stderr, *verbose)
	pdfPath := flag.Arg(0)

	if *list {
		return printNames(pdfPath)
	}

	var files []attach.File
	for _, name := range flag.Args()[1:] {
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		files = append(files, attach.File{Name: filepath.Base(name), Data: data})
	}

	out, err := attach.Embed(pdfPath, files, &attach.EmbedOptions{
		Output:  *outFile,
		InPlace: *inPlace,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	embedded, err := attach.Read(out)
	if err != nil {
		return err
	}
	return logEmbedded(log, files, embedded)
}

// logEmbedded reports the size of each file as stored in the output.
func logEmbedded(log *slog.Logger, files []attach.File, embedded map[string][]byte) error {
	for _, f := range files {
		name, err := attach.NormalizeName(f.Name)
		if err != nil {
			return err
		}
		log.Debug("embedded file",
			slog.String("name", name),
			slog.Int("size", len(embedded[name])))
	}
	return nil
}

func printNames(pdfPath string) error {
	names, err := attach.Names(pdfPath)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
