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

// Package buildinfo reports the version of the command line tools.
package buildinfo

import (
	"runtime/debug"
)

// Info describes the build of a command line tool.
type Info struct {
	Tool    string
	Module  string // empty if no build information is available
	Version string // module version, or VCS revision for development builds
}

// Read returns the build information for the running binary.
func Read(tool string) Info {
	res := Info{Tool: tool}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return res
	}
	res.Module = info.Main.Path

	if v := info.Main.Version; v != "" && v != "(devel)" {
		res.Version = v
		return res
	}

	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 8 {
		rev = rev[:8]
	}
	if rev != "" && dirty {
		rev += "+dirty"
	}
	res.Version = rev
	return res
}

// String returns a short version string, e.g.
// "pdf-clean (seehuhn.de/go/pdfclean v0.1.0)".
func (i Info) String() string {
	if i.Module == "" || i.Version == "" {
		return i.Tool
	}
	return i.Tool + " (" + i.Module + " " + i.Version + ")"
}

// Short returns the version string for the named tool.
func Short(tool string) string {
	return Read(tool).String()
}
