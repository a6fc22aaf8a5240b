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

// Package drawing describes the vector graphics found on a PDF page.
//
// A page is represented as a sequence of [Path] values.  Each path holds an
// ordered list of drawing items (lines, rectangles, quadrilaterals and cubic
// Bezier curves) together with the [Style] used to paint them.  All
// coordinates are given in PDF default user space.
package drawing

import (
	"fmt"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// An Item is one element of a drawing path.
//
// The set of item types is closed: every Item is one of [Line], [Rect],
// [Quad] or [Bezier].
type Item interface {
	isItem()
}

// Line is a straight line segment from P0 to P1.
type Line struct {
	P0, P1 vec.Vec2
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	rect.Rect
}

// Quad is a closed quadrilateral, with the corners given in drawing order.
// Rectangles drawn under a rotated or skewed transformation become quads.
type Quad struct {
	P [4]vec.Vec2
}

// Bezier is a cubic Bezier curve from P[0] to P[3] with control points P[1]
// and P[2].
type Bezier struct {
	P [4]vec.Vec2
}

func (Line) isItem()   {}
func (Rect) isItem()   {}
func (Quad) isItem()   {}
func (Bezier) isItem() {}

func (l Line) String() string {
	return fmt.Sprintf("line %g,%g-%g,%g", l.P0.X, l.P0.Y, l.P1.X, l.P1.Y)
}

func (r Rect) String() string {
	return fmt.Sprintf("rect %g,%g %gx%g", r.LLx, r.LLy, r.Dx(), r.Dy())
}

// Color is a colour in the RGB colour space, with an additional alpha value.
// All components are in the range [0, 1].
type Color struct {
	R, G, B, A float64
}

// RGB returns an opaque colour.
func RGB(r, g, b float64) *Color {
	return &Color{R: r, G: g, B: b, A: 1}
}

// Gray returns an opaque gray value.
func Gray(v float64) *Color {
	return &Color{R: v, G: v, B: v, A: 1}
}

// CMYK converts a DeviceCMYK colour to RGB.
func CMYK(c, m, y, k float64) *Color {
	return &Color{
		R: (1 - c) * (1 - k),
		G: (1 - m) * (1 - k),
		B: (1 - y) * (1 - k),
		A: 1,
	}
}

// MinRGB returns the smallest of the red, green and blue components.
func (c *Color) MinRGB() float64 {
	return min(c.R, c.G, c.B)
}

func (c *Color) String() string {
	if c == nil {
		return "none"
	}
	return fmt.Sprintf("(%g, %g, %g, %g)", c.R, c.G, c.B, c.A)
}

// Path is a group of drawing items which are painted together.
type Path struct {
	Items []Item
	Style
}

// Page is the drawing content of a single page.
type Page struct {
	// Box is the visible area of the page, in default user space.
	Box rect.Rect

	Paths []*Path
}

// Area returns the area of the page.
func (p *Page) Area() float64 {
	return p.Box.Dx() * p.Box.Dy()
}
