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

// Package logging sets up the loggers used by the command line tools.
package logging

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// New returns a logger which writes to f.
//
// If f is a terminal, log records are written as human readable text.
// Otherwise one JSON object is written per record.  If verbose is set,
// debug messages are included.
func New(f *os.File, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if term.IsTerminal(int(f.Fd())) {
		h = slog.NewTextHandler(f, opts)
	} else {
		h = slog.NewJSONHandler(f, opts)
	}
	return slog.New(h)
}
