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

// Package testpdf writes small PDF files for use in tests.
package testpdf

import (
	"bytes"
	"fmt"
	"os"
)

// Page describes one page of a test file.
type Page struct {
	Width, Height float64

	// Content is the (uncompressed) content stream of the page.
	Content string

	// Resources is the resource dictionary of the page, in PDF syntax.
	// If empty, an empty dictionary is used.
	Resources string
}

// Bytes returns a complete PDF file containing the given pages.
func Bytes(pages ...Page) []byte {
	buf := &bytes.Buffer{}
	var offsets []int

	startObj := func() int {
		offsets = append(offsets, buf.Len())
		return len(offsets)
	}

	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	startObj()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	startObj()
	fmt.Fprintf(buf, "2 0 obj\n<< /Type /Pages /Count %d /Kids [", len(pages))
	for i := range pages {
		fmt.Fprintf(buf, " %d 0 R", 3+2*i)
	}
	buf.WriteString(" ] >>\nendobj\n")

	for _, p := range pages {
		res := p.Resources
		if res == "" {
			res = "<< >>"
		}
		pageNo := startObj()
		fmt.Fprintf(buf, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources %s /Contents %d 0 R >>\nendobj\n",
			pageNo, p.Width, p.Height, res, pageNo+1)

		contentNo := startObj()
		fmt.Fprintf(buf, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			contentNo, len(p.Content)+1, p.Content)
	}

	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f\r\n")
	for _, pos := range offsets {
		fmt.Fprintf(buf, "%010d 00000 n\r\n", pos)
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

// Write writes a PDF file containing the given pages.
func Write(path string, pages ...Page) error {
	return os.WriteFile(path, Bytes(pages...), 0o644)
}
