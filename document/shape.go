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

package document

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/pdfclean/content"
	"seehuhn.de/go/pdfclean/drawing"
)

// A Shape collects the drawing paths of a new output page.
//
// The page content is only replaced once [Shape.Commit] is called.
type Shape struct {
	doc    *Document
	pageNo int
	box    rect.Rect
	w      *content.Writer
	done   bool
}

// NewPage starts a new, blank output page of the given size.
//
// Output pages replace the pages of the document in order: the first call
// to NewPage creates the replacement for page 0, the second call for page 1,
// and so on.  The page keeps its position in the page tree, but loses its
// previous contents, resources and annotations.
func (d *Document) NewPage(box rect.Rect) (*Shape, error) {
	if d.next >= d.ctx.PageCount {
		return nil, ErrPageRange
	}
	s := &Shape{
		doc:    d,
		pageNo: d.next,
		box:    box,
		w:      content.NewWriter(),
	}
	d.next++
	return s, nil
}

// DrawLine adds a line segment to the current path.
func (s *Shape) DrawLine(p0, p1 vec.Vec2) {
	s.w.Line(p0, p1)
}

// DrawRect adds a rectangle to the current path.
func (s *Shape) DrawRect(r rect.Rect) {
	s.w.Rectangle(r)
}

// DrawQuad adds a closed quadrilateral to the current path.
func (s *Shape) DrawQuad(q [4]vec.Vec2) {
	s.w.Quad(q)
}

// DrawBezier adds a cubic Bezier curve to the current path.
func (s *Shape) DrawBezier(b [4]vec.Vec2) {
	s.w.Bezier(b)
}

// Finish paints the current path using the given style.
func (s *Shape) Finish(style drawing.Style) {
	s.w.Finish(style)
}

// Commit installs the collected paths as the content of the output page.
func (s *Shape) Commit() error {
	if s.done {
		return fmt.Errorf("page %d: shape already committed", s.pageNo+1)
	}
	if s.w.Err != nil {
		return fmt.Errorf("page %d: %w", s.pageNo+1, s.w.Err)
	}

	pageDict, _, _, err := s.doc.ctx.PageDict(s.pageNo+1, false)
	if err != nil {
		return fmt.Errorf("page %d: %w", s.pageNo+1, err)
	}
	err = s.doc.install(pageDict, s.w.Content.Bytes(), s.w.Resources())
	if err != nil {
		return fmt.Errorf("page %d: %w", s.pageNo+1, err)
	}
	pageDict.Update("MediaBox", types.NewNumberArray(s.box.LLx, s.box.LLy, s.box.URx, s.box.URy))
	pageDict.Delete("CropBox")
	pageDict.Delete("Annots")

	s.done = true
	return nil
}
