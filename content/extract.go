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

// Package content reads and writes the vector graphics in PDF content streams.
//
// [Extract] interprets a content stream and returns the drawing paths it
// paints.  [Writer] is used to emit paths into a new content stream.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/pdfclean/content/scanner"
	"seehuhn.de/go/pdfclean/drawing"
)

// Resolver gives access to the objects of a PDF file.
// This is implemented by *model.Context from pdfcpu.
type Resolver interface {
	Dereference(o types.Object) (types.Object, error)
	DereferenceStreamDict(o types.Object) (*types.StreamDict, bool, error)
}

// maxFormDepth limits the nesting of form XObjects.
const maxFormDepth = 16

// MalformedError is returned when a content stream refers to objects of
// the wrong type.
type MalformedError struct {
	Err error
}

func (err *MalformedError) Error() string {
	return "malformed content: " + err.Err.Error()
}

func (err *MalformedError) Unwrap() error {
	return err.Err
}

var errFormLoop = errors.New("form XObjects nested too deeply")

// Extract returns the drawing paths painted by a content stream.
//
// The resources dictionary res is used to look up graphics state parameter
// dictionaries, colour spaces and form XObjects.  Paths inside form
// XObjects are included.  Clipping paths, text and images are not included.
func Extract(src Resolver, res types.Dict, data []byte) ([]*drawing.Path, error) {
	e := newExtractor(src)
	err := e.run(res, data, 0)
	if err != nil {
		return nil, err
	}
	return e.paths, nil
}

type extractor struct {
	src   Resolver
	state *gstate
	stack []*gstate

	// the path under construction
	items   []drawing.Item
	start   vec.Vec2 // start of the current subpath, device space
	current vec.Vec2 // current point, device space
	hasCur  bool
	closed  bool

	paths []*drawing.Path

	// byte offsets in the top-level content stream
	depth     int
	op        scanner.Operator
	pathStart int64 // -1 if no path is under construction
	clip      bool
	fills     []FillSpan
}

// A FillSpan locates a filled path in a content stream.
type FillSpan struct {
	// Start is the offset of the first path construction operator and End
	// is the offset just after the painting operator.
	Start, End int64

	// Fill is the fill colour.  This is nil for patterns and for
	// unsupported colour spaces.
	Fill *drawing.Color

	// Clip is set if the path is also used as a clipping path.
	Clip bool
}

// FillSpans returns the locations of all filled paths in a content stream.
// Paths inside form XObjects are not included.
func FillSpans(src Resolver, res types.Dict, data []byte) ([]FillSpan, error) {
	e := newExtractor(src)
	err := e.run(res, data, 0)
	if err != nil {
		return nil, err
	}
	return e.fills, nil
}

func newExtractor(src Resolver) *extractor {
	return &extractor{
		src:       src,
		state:     newGState(),
		pathStart: -1,
	}
}

func (e *extractor) run(res types.Dict, data []byte, depth int) error {
	s := scanner.New()
	return s.Scan(bytes.NewReader(data))(func(op scanner.Operator) error {
		e.depth = depth
		e.op = op
		return e.do(res, op.Name, op.Args, depth)
	})
}

// startPath records the position of the current operator, if it begins
// a new path in the top-level content stream.
func (e *extractor) startPath() {
	if e.depth == 0 && e.pathStart < 0 {
		e.pathStart = e.op.Start
	}
}

func (e *extractor) do(res types.Dict, op string, args []types.Object, depth int) error {
	st := e.state

	switch op {

	// == General graphics state =========================================

	case "w":
		if x, ok := getNumbers(args, 1); ok {
			st.width = x[0]
		}
	case "J":
		if x, ok := getNumbers(args, 1); ok {
			st.lineCap = clampStyle(x[0])
		}
	case "j":
		if x, ok := getNumbers(args, 1); ok {
			st.lineJoin = clampStyle(x[0])
		}
	case "d":
		if len(args) == 2 {
			pat, ok1 := e.numberArray(args[0])
			phase, ok2 := e.number(args[1])
			if ok1 && ok2 {
				st.dash = pat
				st.dashPhase = phase
			}
		}
	case "gs":
		if len(args) != 1 {
			break
		}
		name, ok := args[0].(types.Name)
		if !ok {
			break
		}
		err := e.applyExtGState(res, string(name))
		if err != nil {
			return err
		}

	// == Special graphics state =========================================

	case "q":
		e.stack = append(e.stack, st.clone())
	case "Q":
		if n := len(e.stack); n > 0 {
			e.state = e.stack[n-1]
			e.stack = e.stack[:n-1]
		}
	case "cm":
		if x, ok := getNumbers(args, 6); ok {
			m := matrix.Matrix{x[0], x[1], x[2], x[3], x[4], x[5]}
			st.ctm = m.Mul(st.ctm)
		}

	// == Path construction ==============================================

	case "m":
		if x, ok := getNumbers(args, 2); ok {
			e.startPath()
			p := st.apply(x[0], x[1])
			e.start, e.current, e.hasCur = p, p, true
		}
	case "l":
		if x, ok := getNumbers(args, 2); ok && e.hasCur {
			p := st.apply(x[0], x[1])
			e.items = append(e.items, drawing.Line{P0: e.current, P1: p})
			e.current = p
		}
	case "c":
		if x, ok := getNumbers(args, 6); ok && e.hasCur {
			e.curve(st.apply(x[0], x[1]), st.apply(x[2], x[3]), st.apply(x[4], x[5]))
		}
	case "v":
		if x, ok := getNumbers(args, 4); ok && e.hasCur {
			e.curve(e.current, st.apply(x[0], x[1]), st.apply(x[2], x[3]))
		}
	case "y":
		if x, ok := getNumbers(args, 4); ok && e.hasCur {
			p3 := st.apply(x[2], x[3])
			e.curve(st.apply(x[0], x[1]), p3, p3)
		}
	case "h":
		e.closeSubpath()
	case "re":
		if x, ok := getNumbers(args, 4); ok {
			e.startPath()
			e.items = append(e.items, st.rectangle(x[0], x[1], x[2], x[3]))
			p := st.apply(x[0], x[1])
			e.start, e.current, e.hasCur = p, p, true
		}

	// == Path painting ==================================================

	case "S":
		e.paint(false, true, false)
	case "s":
		e.closeSubpath()
		e.paint(false, true, false)
	case "f", "F":
		e.paint(true, false, false)
	case "f*":
		e.paint(true, false, true)
	case "B":
		e.paint(true, true, false)
	case "B*":
		e.paint(true, true, true)
	case "b":
		e.closeSubpath()
		e.paint(true, true, false)
	case "b*":
		e.closeSubpath()
		e.paint(true, true, true)
	case "n":
		e.endPath()

	// == Clipping paths =================================================

	case "W", "W*":
		e.clip = true

	// == Colour =========================================================

	case "G":
		if x, ok := getNumbers(args, 1); ok {
			st.strokeSpace = spaceGray
			st.stroke = drawing.Gray(x[0])
		}
	case "g":
		if x, ok := getNumbers(args, 1); ok {
			st.fillSpace = spaceGray
			st.fill = drawing.Gray(x[0])
		}
	case "RG":
		if x, ok := getNumbers(args, 3); ok {
			st.strokeSpace = spaceRGB
			st.stroke = drawing.RGB(x[0], x[1], x[2])
		}
	case "rg":
		if x, ok := getNumbers(args, 3); ok {
			st.fillSpace = spaceRGB
			st.fill = drawing.RGB(x[0], x[1], x[2])
		}
	case "K":
		if x, ok := getNumbers(args, 4); ok {
			st.strokeSpace = spaceCMYK
			st.stroke = drawing.CMYK(x[0], x[1], x[2], x[3])
		}
	case "k":
		if x, ok := getNumbers(args, 4); ok {
			st.fillSpace = spaceCMYK
			st.fill = drawing.CMYK(x[0], x[1], x[2], x[3])
		}
	case "CS", "cs":
		if len(args) != 1 {
			break
		}
		name, ok := args[0].(types.Name)
		if !ok {
			break
		}
		space := e.colorSpace(res, string(name))
		col := space.initial()
		if op == "CS" {
			st.strokeSpace, st.stroke = space, col
		} else {
			st.fillSpace, st.fill = space, col
		}
	case "SC", "SCN":
		st.stroke = st.strokeSpace.color(args)
	case "sc", "scn":
		st.fill = st.fillSpace.color(args)

	// == XObjects =======================================================

	case "Do":
		if len(args) != 1 {
			break
		}
		name, ok := args[0].(types.Name)
		if !ok {
			break
		}
		return e.drawForm(res, string(name), depth)
	}
	return nil
}

func (e *extractor) curve(p1, p2, p3 vec.Vec2) {
	e.items = append(e.items, drawing.Bezier{P: [4]vec.Vec2{e.current, p1, p2, p3}})
	e.current = p3
}

func (e *extractor) closeSubpath() {
	if !e.hasCur {
		return
	}
	if e.current != e.start {
		e.items = append(e.items, drawing.Line{P0: e.current, P1: e.start})
		e.current = e.start
	}
	e.closed = true
}

// paint records the current path as a drawing and starts a new path.
func (e *extractor) paint(fill, stroke, evenOdd bool) {
	if len(e.items) == 0 {
		e.endPath()
		return
	}

	st := e.state
	if fill && e.depth == 0 && e.pathStart >= 0 {
		e.fills = append(e.fills, FillSpan{
			Start: e.pathStart,
			End:   e.op.End,
			Fill:  withAlpha(st.fill, st.fillAlpha),
			Clip:  e.clip,
		})
	}

	p := &drawing.Path{Items: e.items}
	p.Width = st.width * st.scale()
	p.LineJoin = st.lineJoin
	p.LineCap = []int{st.lineCap}
	p.StrokeOpacity = st.strokeAlpha
	p.FillOpacity = st.fillAlpha
	p.Set = drawing.StyleWidth | drawing.StyleLineJoin | drawing.StyleLineCap |
		drawing.StyleStrokeOpacity | drawing.StyleFillOpacity
	if len(st.dash) > 0 {
		scale := st.scale()
		p.Dash = make([]float64, len(st.dash))
		for i, x := range st.dash {
			p.Dash[i] = x * scale
		}
		p.DashPhase = st.dashPhase * scale
		p.Set |= drawing.StyleDash
	}
	if e.closed {
		p.ClosePath = true
		p.Set |= drawing.StyleClosePath
	}
	if fill {
		p.Fill = withAlpha(st.fill, st.fillAlpha)
		p.EvenOdd = evenOdd
		p.Set |= drawing.StyleEvenOdd
	}
	if stroke {
		p.Stroke = withAlpha(st.stroke, st.strokeAlpha)
	}
	if p.Fill != nil || p.Stroke != nil {
		e.paths = append(e.paths, p)
	}

	e.items = nil
	e.endPath()
}

func (e *extractor) endPath() {
	e.items = nil
	e.hasCur = false
	e.closed = false
	e.pathStart = -1
	e.clip = false
}

func withAlpha(c *drawing.Color, alpha float64) *drawing.Color {
	if c == nil {
		return nil
	}
	res := *c
	res.A = alpha
	return &res
}

func (e *extractor) applyExtGState(res types.Dict, name string) error {
	dict, err := e.resource(res, "ExtGState", name)
	if err != nil || dict == nil {
		return err
	}

	st := e.state
	if x, ok := e.number(dict["LW"]); ok {
		st.width = x
	}
	if x, ok := e.number(dict["LC"]); ok {
		st.lineCap = clampStyle(x)
	}
	if x, ok := e.number(dict["LJ"]); ok {
		st.lineJoin = clampStyle(x)
	}
	if x, ok := e.number(dict["CA"]); ok {
		st.strokeAlpha = x
	}
	if x, ok := e.number(dict["ca"]); ok {
		st.fillAlpha = x
	}
	if obj, err := e.src.Dereference(dict["D"]); err == nil {
		if a, ok := obj.(types.Array); ok && len(a) == 2 {
			pat, ok1 := e.numberArray(a[0])
			phase, ok2 := e.number(a[1])
			if ok1 && ok2 {
				st.dash = pat
				st.dashPhase = phase
			}
		}
	}
	return nil
}

func (e *extractor) drawForm(res types.Dict, name string, depth int) error {
	xobjects, err := e.dict(res["XObject"])
	if err != nil || xobjects == nil {
		return err
	}
	ref, ok := xobjects[name]
	if !ok {
		return nil
	}
	sd, _, err := e.src.DereferenceStreamDict(ref)
	if err != nil {
		return err
	}
	if sd == nil {
		return nil
	}
	if subtype := sd.Dict.NameEntry("Subtype"); subtype == nil || *subtype != "Form" {
		return nil
	}
	if depth >= maxFormDepth {
		return &MalformedError{Err: errFormLoop}
	}

	if err := sd.Decode(); err != nil {
		return fmt.Errorf("form XObject %s: %w", name, err)
	}

	formRes := res
	if r, err := e.dict(sd.Dict["Resources"]); err != nil {
		return err
	} else if r != nil {
		formRes = r
	}

	saved := e.state
	savedStack := e.stack
	e.state = saved.clone()
	e.stack = nil
	if m, ok := e.numberArray(sd.Dict["Matrix"]); ok && len(m) == 6 {
		M := matrix.Matrix{m[0], m[1], m[2], m[3], m[4], m[5]}
		e.state.ctm = M.Mul(e.state.ctm)
	}
	e.endPath()

	err = e.run(formRes, sd.Content, depth+1)

	e.state = saved
	e.stack = savedStack
	e.endPath()
	return err
}

// resource looks up a dictionary in the given resource category.
// If the resource does not exist, nil is returned.
func (e *extractor) resource(res types.Dict, category, name string) (types.Dict, error) {
	cat, err := e.dict(res[category])
	if err != nil || cat == nil {
		return nil, err
	}
	return e.dict(cat[name])
}

// dict resolves obj to a dictionary.  Missing objects are mapped to nil.
func (e *extractor) dict(obj types.Object) (types.Dict, error) {
	if obj == nil {
		return nil, nil
	}
	obj, err := e.src.Dereference(obj)
	if err != nil {
		return nil, err
	}
	switch x := obj.(type) {
	case nil:
		return nil, nil
	case types.Dict:
		return x, nil
	case types.StreamDict:
		return x.Dict, nil
	default:
		return nil, &MalformedError{Err: fmt.Errorf("expected dictionary but got %T", obj)}
	}
}

func (e *extractor) number(obj types.Object) (float64, bool) {
	if obj == nil {
		return 0, false
	}
	obj, err := e.src.Dereference(obj)
	if err != nil {
		return 0, false
	}
	return getNumber(obj)
}

func (e *extractor) numberArray(obj types.Object) ([]float64, bool) {
	if obj == nil {
		return nil, false
	}
	obj, err := e.src.Dereference(obj)
	if err != nil {
		return nil, false
	}
	a, ok := obj.(types.Array)
	if !ok {
		return nil, false
	}
	res := make([]float64, len(a))
	for i, x := range a {
		res[i], ok = e.number(x)
		if !ok {
			return nil, false
		}
	}
	return res, true
}

func getNumber(obj types.Object) (float64, bool) {
	switch x := obj.(type) {
	case types.Integer:
		return float64(x), true
	case types.Float:
		return float64(x), true
	default:
		return 0, false
	}
}

// getNumbers returns the operands as numbers, if there are exactly n
// numeric operands.
func getNumbers(args []types.Object, n int) ([]float64, bool) {
	if len(args) != n {
		return nil, false
	}
	res := make([]float64, n)
	for i, obj := range args {
		x, ok := getNumber(obj)
		if !ok {
			return nil, false
		}
		res[i] = x
	}
	return res, true
}

func clampStyle(x float64) int {
	i := int(x)
	if i < 0 || i > 2 {
		return 0
	}
	return i
}

// gstate is the part of the graphics state which affects drawing paths.
type gstate struct {
	ctm matrix.Matrix

	fill, stroke           *drawing.Color
	fillSpace, strokeSpace colorSpace

	width     float64
	lineCap   int
	lineJoin  int
	dash      []float64
	dashPhase float64

	fillAlpha, strokeAlpha float64
}

func newGState() *gstate {
	return &gstate{
		ctm:         matrix.Identity,
		fill:        drawing.Gray(0),
		stroke:      drawing.Gray(0),
		fillSpace:   spaceGray,
		strokeSpace: spaceGray,
		width:       1,
		fillAlpha:   1,
		strokeAlpha: 1,
	}
}

func (st *gstate) clone() *gstate {
	res := *st
	res.dash = append([]float64(nil), st.dash...)
	return &res
}

func (st *gstate) apply(x, y float64) vec.Vec2 {
	x, y = st.ctm.Apply(x, y)
	return vec.Vec2{X: x, Y: y}
}

// scale returns the factor by which lengths are scaled by the CTM.
func (st *gstate) scale() float64 {
	M := st.ctm
	return math.Sqrt(math.Abs(M[0]*M[3] - M[1]*M[2]))
}

// rectangle converts a rectangle given in user space to device space.
// If the CTM rotates or skews the rectangle, a quad is returned.
func (st *gstate) rectangle(x, y, w, h float64) drawing.Item {
	M := st.ctm
	p0 := st.apply(x, y)
	p1 := st.apply(x+w, y)
	p2 := st.apply(x+w, y+h)
	p3 := st.apply(x, y+h)
	if (M[1] == 0 && M[2] == 0) || (M[0] == 0 && M[3] == 0) {
		return drawing.Rect{Rect: rect.Rect{
			LLx: min(p0.X, p2.X),
			LLy: min(p0.Y, p2.Y),
			URx: max(p0.X, p2.X),
			URy: max(p0.Y, p2.Y),
		}}
	}
	return drawing.Quad{P: [4]vec.Vec2{p0, p1, p2, p3}}
}
