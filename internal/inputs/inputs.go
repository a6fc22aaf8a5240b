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

// Package inputs finds the PDF files named on the command line.
package inputs

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// Find returns the PDF files given by paths.
//
// Each element of paths can be the name of a file, the
// name of a directory, which is searched recursively for files with the
// extension ".pdf" (in any case), or a glob pattern, which may use "**" to
// match any number of directories.  Files whose name stem ends in suffix
// are skipped, since these are the outputs of earlier runs.  Paths which do
// not exist are logged and skipped.
//
// The result is sorted and contains no duplicates.
func Find(paths []string, suffix string, log *slog.Logger) ([]string, error) {
	if log == nil {
		log = slog.Default()
	}

	var res []string
	for _, arg := range paths {
		var candidates []string
		switch {
		case isPattern(arg):
			matches, err := doublestar.Glob(arg)
			if err != nil {
				return nil, err
			}
			if len(matches) == 0 {
				log.Info("no files match pattern", slog.String("pattern", arg))
			}
			for _, m := range matches {
				if isRegular(m) {
					candidates = append(candidates, m)
				}
			}
		default:
			fi, err := os.Stat(arg)
			if err != nil {
				log.Info("skipping, not a file or directory", slog.String("path", arg))
				continue
			}
			if !fi.IsDir() {
				candidates = append(candidates, arg)
				break
			}
			matches, err := doublestar.Glob(filepath.Join(escape(arg), "**", "*"))
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				if isRegular(m) {
					candidates = append(candidates, m)
				}
			}
		}

		for _, c := range candidates {
			switch {
			case !isPDF(c):
				log.Debug("skipping, not a PDF file", slog.String("path", c))
			case hasSuffix(c, suffix):
				log.Debug("skipping output file", slog.String("path", c))
			default:
				res = append(res, c)
			}
		}
	}

	slices.Sort(res)
	return slices.Compact(res), nil
}

func isPattern(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// escape quotes the glob metacharacters in a directory name.
func escape(path string) string {
	var b strings.Builder
	for _, r := range path {
		if strings.ContainsRune(`*?[]{}\`, r) && r != filepath.Separator {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isRegular(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// hasSuffix reports whether the name stem of path ends in suffix.
func hasSuffix(path, suffix string) bool {
	if suffix == "" {
		return false
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(stem, suffix)
}
