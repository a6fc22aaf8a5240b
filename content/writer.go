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

package content

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/pdfclean/drawing"
)

// Writer writes drawing paths to a content stream.
//
// Path items are collected using the methods [Writer.Line], [Writer.Rectangle],
// [Writer.Quad] and [Writer.Bezier].  [Writer.Finish] then paints the
// collected items using a given style.  Every path is wrapped in its own
// "q" ... "Q" pair, so that paths do not affect each other.
//
// The first error is stored in Err; once an error has occurred, all further
// method calls are ignored.
type Writer struct {
	Content *bytes.Buffer
	Err     error

	path    *bytes.Buffer
	start   vec.Vec2
	current vec.Vec2
	hasCur  bool

	extGState map[opacity]string
	resources types.Dict
}

type opacity struct {
	fill, stroke float64
}

// NewWriter returns a new writer with an empty content stream.
func NewWriter() *Writer {
	return &Writer{
		Content:   &bytes.Buffer{},
		path:      &bytes.Buffer{},
		extGState: make(map[opacity]string),
	}
}

// MoveTo starts a new subpath.
//
// This implements the PDF graphics operator "m".
func (w *Writer) MoveTo(p vec.Vec2) {
	if w.Err != nil {
		return
	}
	w.start, w.current, w.hasCur = p, p, true
	_, w.Err = fmt.Fprintln(w.path, coord(p.X), coord(p.Y), "m")
}

// LineTo appends a straight line segment to the current subpath.
//
// This implements the PDF graphics operator "l".
func (w *Writer) LineTo(p vec.Vec2) {
	if w.Err != nil {
		return
	}
	if !w.hasCur {
		w.Err = errNoCurrentPoint
		return
	}
	w.current = p
	_, w.Err = fmt.Fprintln(w.path, coord(p.X), coord(p.Y), "l")
}

// CurveTo appends a cubic Bezier curve to the current subpath.
//
// This implements the PDF graphics operator "c".
func (w *Writer) CurveTo(p1, p2, p3 vec.Vec2) {
	if w.Err != nil {
		return
	}
	if !w.hasCur {
		w.Err = errNoCurrentPoint
		return
	}
	w.current = p3
	_, w.Err = fmt.Fprintln(w.path,
		coord(p1.X), coord(p1.Y), coord(p2.X), coord(p2.Y), coord(p3.X), coord(p3.Y), "c")
}

// ClosePath closes the current subpath.
//
// This implements the PDF graphics operator "h".
func (w *Writer) ClosePath() {
	if w.Err != nil || !w.hasCur {
		return
	}
	w.current = w.start
	_, w.Err = fmt.Fprintln(w.path, "h")
}

// Line appends a line segment.  A new subpath is only started if p0 is not
// the current point.
func (w *Writer) Line(p0, p1 vec.Vec2) {
	w.moveIfNeeded(p0)
	w.LineTo(p1)
}

// Rectangle appends a rectangle as a closed subpath.
//
// This implements the PDF graphics operator "re".
func (w *Writer) Rectangle(r rect.Rect) {
	if w.Err != nil {
		return
	}
	p := vec.Vec2{X: r.LLx, Y: r.LLy}
	w.start, w.current, w.hasCur = p, p, true
	_, w.Err = fmt.Fprintln(w.path, coord(r.LLx), coord(r.LLy), coord(r.Dx()), coord(r.Dy()), "re")
}

// Quad appends a quadrilateral as a closed subpath.
func (w *Writer) Quad(q [4]vec.Vec2) {
	w.MoveTo(q[0])
	w.LineTo(q[1])
	w.LineTo(q[2])
	w.LineTo(q[3])
	w.ClosePath()
}

// Bezier appends a cubic Bezier curve.  A new subpath is only started if
// b[0] is not the current point.
func (w *Writer) Bezier(b [4]vec.Vec2) {
	w.moveIfNeeded(b[0])
	w.CurveTo(b[1], b[2], b[3])
}

func (w *Writer) moveIfNeeded(p vec.Vec2) {
	if !w.hasCur || w.current != p {
		w.MoveTo(p)
	}
}

// Finish paints the collected path items using the given style and starts a
// new path.  Missing style fields take their default values.
// If no path items have been added, nothing is written.
func (w *Writer) Finish(style drawing.Style) {
	defer w.resetPath()
	if w.Err != nil || w.path.Len() == 0 {
		return
	}
	s := style.Normalized()
	if s.ClosePath {
		w.ClosePath()
	}

	out := w.Content
	fmt.Fprintln(out, "q")
	if s.Fill != nil {
		fmt.Fprintln(out, colorValue(s.Fill.R), colorValue(s.Fill.G), colorValue(s.Fill.B), "rg")
	}
	if s.Stroke != nil {
		fmt.Fprintln(out, colorValue(s.Stroke.R), colorValue(s.Stroke.G), colorValue(s.Stroke.B), "RG")
		fmt.Fprintln(out, coord(s.Width), "w")
		fmt.Fprintln(out, s.Cap(), "J")
		fmt.Fprintln(out, s.LineJoin, "j")
		if len(s.Dash) > 0 {
			fmt.Fprint(out, "[")
			for i, x := range s.Dash {
				if i > 0 {
					fmt.Fprint(out, " ")
				}
				fmt.Fprint(out, coord(x))
			}
			fmt.Fprintln(out, "]", coord(s.DashPhase), "d")
		}
	}
	if s.FillOpacity != 1 || s.StrokeOpacity != 1 {
		name := w.opacityName(opacity{fill: s.FillOpacity, stroke: s.StrokeOpacity})
		fmt.Fprintln(out, "/"+name, "gs")
	}

	out.Write(w.path.Bytes())

	var op string
	switch {
	case s.Fill != nil && s.Stroke != nil:
		op = ifelse(s.EvenOdd, "B*", "B")
	case s.Fill != nil:
		op = ifelse(s.EvenOdd, "f*", "f")
	case s.Stroke != nil:
		op = "S"
	default:
		op = "n"
	}
	fmt.Fprintln(out, op)
	fmt.Fprintln(out, "Q")
}

func (w *Writer) resetPath() {
	w.path.Reset()
	w.hasCur = false
}

// opacityName returns the resource name of a graphics state parameter
// dictionary which sets the given opacities.
func (w *Writer) opacityName(key opacity) string {
	if name, ok := w.extGState[key]; ok {
		return name
	}
	name := "GS" + strconv.Itoa(len(w.extGState))
	w.extGState[key] = name

	if w.resources == nil {
		w.resources = types.NewDict()
	}
	dict := types.Dict{
		"Type": types.Name("ExtGState"),
		"ca":   types.Float(key.fill),
		"CA":   types.Float(key.stroke),
	}
	gs, _ := w.resources["ExtGState"].(types.Dict)
	if gs == nil {
		gs = types.NewDict()
		w.resources["ExtGState"] = gs
	}
	gs[name] = dict
	return name
}

// Resources returns the resource dictionary needed by the content stream.
func (w *Writer) Resources() types.Dict {
	if w.resources == nil {
		return types.NewDict()
	}
	return w.resources
}

var errNoCurrentPoint = errors.New("no current point")

// coord formats a coordinate, rounded to three decimal places.
func coord(x float64) string {
	x = math.Round(x*1000) / 1000
	if x == 0 {
		x = 0 // avoid "-0"
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func colorValue(x float64) string {
	return coord(max(0, min(1, x)))
}

func ifelse[T any](c bool, a, b T) T {
	if c {
		return a
	}
	return b
}
