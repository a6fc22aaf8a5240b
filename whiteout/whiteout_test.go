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

package whiteout

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/pdfclean/document"
	"seehuhn.de/go/pdfclean/drawing"
	"seehuhn.de/go/pdfclean/internal/testpdf"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testOptions() *Options {
	opt := DefaultOptions()
	opt.Logger = quiet
	return opt
}

func TestIsLargeWhiteRectangle(t *testing.T) {
	page := rect.Rect{URx: 612, URy: 792}
	area := page.Dx() * page.Dy()

	cases := []struct {
		name string
		r    rect.Rect
		fill *drawing.Color
		want bool
	}{
		{"full page white", page, drawing.RGB(1, 1, 1), true},
		{"small white", rect.Rect{LLx: 10, LLy: 10, URx: 110, URy: 110}, drawing.RGB(1, 1, 1), false},
		{"full page light grey", page, drawing.RGB(0.9, 0.9, 0.9), false},
		{"nearly white", page, drawing.RGB(0.96, 0.97, 0.99), true},
		{"one channel dark", page, drawing.RGB(1, 0.5, 1), false},
		{"no fill", page, nil, false},
		{"exactly half", rect.Rect{URx: 306, URy: 792}, drawing.RGB(1, 1, 1), false},
		{"more than half", rect.Rect{URx: 307, URy: 792}, drawing.RGB(1, 1, 1), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := IsLargeWhiteRectangle(c.r, c.fill, area, testOptions())
			if got != c.want {
				t.Errorf("expected %t, got %t", c.want, got)
			}
		})
	}
}

func TestIsLargeWhiteRectangleOptions(t *testing.T) {
	page := rect.Rect{URx: 100, URy: 100}
	r := rect.Rect{URx: 30, URy: 100}
	grey := drawing.Gray(0.9)

	opt := testOptions()
	if IsLargeWhiteRectangle(r, grey, 10000, opt) {
		t.Error("default options should keep the rectangle")
	}

	opt.Threshold = 0.25
	opt.Whiteness = 0.85
	if !IsLargeWhiteRectangle(r, grey, page.Dx()*page.Dy(), opt) {
		t.Error("relaxed options should remove the rectangle")
	}

	if IsLargeWhiteRectangle(r, grey, 0, opt) {
		t.Error("empty page should never match")
	}
}

// recordSink records the calls made by RemoveLargeWhiteRectangles.
type recordSink struct {
	pages  [][]string
	saved  []string
	commit error
}

func (s *recordSink) NewPage(box rect.Rect) (Shape, error) {
	s.pages = append(s.pages, []string{fmt.Sprintf("page %g %g %g %g", box.LLx, box.LLy, box.URx, box.URy)})
	return &recordShape{sink: s, idx: len(s.pages) - 1}, nil
}

func (s *recordSink) Save(path string) error {
	s.saved = append(s.saved, path)
	return nil
}

type recordShape struct {
	sink *recordSink
	idx  int
}

func (r *recordShape) add(format string, args ...any) {
	r.sink.pages[r.idx] = append(r.sink.pages[r.idx], fmt.Sprintf(format, args...))
}

func (r *recordShape) DrawLine(p0, p1 vec.Vec2) { r.add("line %g %g %g %g", p0.X, p0.Y, p1.X, p1.Y) }
func (r *recordShape) DrawRect(b rect.Rect)     { r.add("rect %g %g %g %g", b.LLx, b.LLy, b.URx, b.URy) }
func (r *recordShape) DrawQuad(q [4]vec.Vec2)   { r.add("quad %g %g", q[0].X, q[0].Y) }
func (r *recordShape) DrawBezier(b [4]vec.Vec2) { r.add("bezier %g %g", b[0].X, b[0].Y) }

func (r *recordShape) Finish(style drawing.Style) {
	fill := "none"
	if style.Fill != nil {
		fill = style.Fill.String()
	}
	r.add("finish %s %g", fill, style.Width)
}

func (r *recordShape) Commit() error {
	r.add("commit")
	return r.sink.commit
}

// memSource is an in-memory Source.
type memSource []*drawing.Page

func (m memSource) NumPages() int { return len(m) }

func (m memSource) Page(i int) (*drawing.Page, error) {
	if i < 0 || i >= len(m) {
		return nil, document.ErrPageRange
	}
	return m[i], nil
}

func filled(c *drawing.Color, items ...drawing.Item) *drawing.Path {
	style := drawing.DefaultStyle()
	style.Fill = c
	return &drawing.Path{Items: items, Style: style}
}

func stroked(items ...drawing.Item) *drawing.Path {
	style := drawing.DefaultStyle()
	style.Stroke = drawing.Gray(0)
	return &drawing.Path{Items: items, Style: style}
}

func TestRemoveDropsBackground(t *testing.T) {
	box := rect.Rect{URx: 100, URy: 100}
	src := memSource{{
		Box: box,
		Paths: []*drawing.Path{
			filled(drawing.RGB(1, 1, 1), drawing.Rect{Rect: box}),
			stroked(drawing.Line{P0: vec.Vec2{X: 0, Y: 0}, P1: vec.Vec2{X: 10, Y: 10}}),
			filled(drawing.RGB(1, 0, 0), drawing.Rect{Rect: rect.Rect{LLx: 10, LLy: 10, URx: 20, URy: 20}}),
		},
	}}
	sink := &recordSink{}

	res, err := RemoveLargeWhiteRectangles(src, sink, "out.pdf", testOptions())
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{{
		"page 0 0 100 100",
		"finish (1, 1, 1, 1) 1",
		"line 0 0 10 10",
		"finish none 1",
		"rect 10 10 20 20",
		"finish (1, 0, 0, 1) 1",
		"commit",
	}}
	if d := cmp.Diff(want, sink.pages); d != "" {
		t.Errorf("unexpected calls (-want +got):\n%s", d)
	}
	if d := cmp.Diff([]string{"out.pdf"}, sink.saved); d != "" {
		t.Errorf("unexpected saves (-want +got):\n%s", d)
	}
	wantRes := &Result{Output: "out.pdf", Pages: 1, Paths: 3, Dropped: 1}
	if d := cmp.Diff(wantRes, res); d != "" {
		t.Errorf("unexpected result (-want +got):\n%s", d)
	}
}

func TestRemoveNoChange(t *testing.T) {
	box := rect.Rect{URx: 100, URy: 100}
	src := memSource{
		{Box: box, Paths: []*drawing.Path{
			filled(drawing.RGB(0.5, 0.5, 0.5), drawing.Rect{Rect: box}),
		}},
		{Box: box},
	}
	sink := &recordSink{}

	res, err := RemoveLargeWhiteRectangles(src, sink, "out.pdf", testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(sink.saved) != 0 {
		t.Errorf("unexpected save to %v", sink.saved)
	}
	if res.Changed() || res.Output != "" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Pages != 2 {
		t.Errorf("expected 2 pages, got %d", res.Pages)
	}
}

func TestRemoveKeepsOrder(t *testing.T) {
	box := rect.Rect{URx: 10, URy: 10}
	var paths []*drawing.Path
	var want []string
	want = append(want, "page 0 0 10 10")
	for i := range 5 {
		x := float64(i)
		paths = append(paths, stroked(drawing.Line{P0: vec.Vec2{X: x}, P1: vec.Vec2{X: x, Y: 1}}))
		want = append(want, fmt.Sprintf("line %g 0 %g 1", x, x), "finish none 1")
	}
	paths = append(paths, filled(drawing.Gray(1), drawing.Rect{Rect: box}))
	want = append(want, "finish (1, 1, 1, 1) 1", "commit")

	sink := &recordSink{}
	_, err := RemoveLargeWhiteRectangles(memSource{{Box: box, Paths: paths}}, sink, "x.pdf", testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([][]string{want}, sink.pages); d != "" {
		t.Errorf("unexpected calls (-want +got):\n%s", d)
	}
}

func TestRemoveMixedPath(t *testing.T) {
	// A large white rectangle shares its path with a curve and a small
	// rectangle.  Only the large rectangle is removed.
	box := rect.Rect{URx: 100, URy: 100}
	b := [4]vec.Vec2{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 2}, {X: 4, Y: 1}}
	q := [4]vec.Vec2{{X: 5, Y: 0}, {X: 10, Y: 5}, {X: 5, Y: 10}, {X: 0, Y: 5}}
	src := memSource{{Box: box, Paths: []*drawing.Path{
		filled(drawing.Gray(1),
			drawing.Bezier{P: b},
			drawing.Rect{Rect: box},
			drawing.Quad{P: q},
			drawing.Rect{Rect: rect.Rect{URx: 5, URy: 5}}),
	}}}
	sink := &recordSink{}
	res, err := RemoveLargeWhiteRectangles(src, sink, "x.pdf", testOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{
		"page 0 0 100 100",
		"bezier 1 1",
		"quad 5 0",
		"rect 0 0 5 5",
		"finish (1, 1, 1, 1) 1",
		"commit",
	}}
	if d := cmp.Diff(want, sink.pages); d != "" {
		t.Errorf("unexpected calls (-want +got):\n%s", d)
	}
	if res.Dropped != 1 {
		t.Errorf("expected 1 dropped rectangle, got %d", res.Dropped)
	}
}

type fakeItem struct {
	drawing.Line
}

func TestRemoveUnsupportedItem(t *testing.T) {
	box := rect.Rect{URx: 100, URy: 100}
	src := memSource{{Box: box, Paths: []*drawing.Path{
		filled(drawing.Gray(1), drawing.Rect{Rect: box}),
		stroked(fakeItem{}),
	}}}
	sink := &recordSink{}

	_, err := RemoveLargeWhiteRectangles(src, sink, "x.pdf", testOptions())
	var unsupported *UnsupportedItemError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedItemError, got %v", err)
	}
	if unsupported.Page != 0 {
		t.Errorf("expected page 0, got %d", unsupported.Page)
	}
	if len(sink.saved) != 0 {
		t.Errorf("unexpected save to %v", sink.saved)
	}
}

func TestRemoveCommitError(t *testing.T) {
	box := rect.Rect{URx: 100, URy: 100}
	src := memSource{{Box: box, Paths: []*drawing.Path{
		filled(drawing.Gray(1), drawing.Rect{Rect: box}),
	}}}
	errBroken := errors.New("broken")
	sink := &recordSink{commit: errBroken}

	_, err := RemoveLargeWhiteRectangles(src, sink, "x.pdf", testOptions())
	if !errors.Is(err, errBroken) {
		t.Errorf("expected %v, got %v", errBroken, err)
	}
	if len(sink.saved) != 0 {
		t.Errorf("unexpected save to %v", sink.saved)
	}
}

func TestOutputPath(t *testing.T) {
	cases := []struct {
		in, suffix, want string
	}{
		{"a.pdf", "_clean", "a_clean.pdf"},
		{filepath.Join("dir", "b.PDF"), "_clean", filepath.Join("dir", "b_clean.pdf")},
		{"c.v2.pdf", "_x", "c.v2_x.pdf"},
		{"d.pdf", "", "d.pdf"},
	}
	for _, c := range cases {
		got := OutputPath(c.in, c.suffix)
		if got != c.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", c.in, c.suffix, got, c.want)
		}
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "slide.pdf")
	err := testpdf.Write(in, testpdf.Page{
		Width: 200, Height: 100,
		Content: "1 1 1 rg 0 0 200 100 re f 0 0 1 rg 10 10 20 20 re f 0 G 2 w 0 0 m 200 100 l S",
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := ProcessFile(in, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "slide_clean.pdf")
	if res.Output != out || res.Dropped != 1 || res.Input != in {
		t.Fatalf("unexpected result %+v", res)
	}

	doc, err := document.Open(out, nil)
	if err != nil {
		t.Fatal(err)
	}
	page, err := doc.Page(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(page.Paths))
	}
	wantItems := [][]drawing.Item{
		{drawing.Rect{Rect: rect.Rect{LLx: 10, LLy: 10, URx: 30, URy: 30}}},
		{drawing.Line{P0: vec.Vec2{}, P1: vec.Vec2{X: 200, Y: 100}}},
	}
	for i, p := range page.Paths {
		if d := cmp.Diff(wantItems[i], p.Items); d != "" {
			t.Errorf("path %d: unexpected items (-want +got):\n%s", i, d)
		}
	}
	if d := cmp.Diff(drawing.RGB(0, 0, 1), page.Paths[0].Fill); d != "" {
		t.Errorf("unexpected fill (-want +got):\n%s", d)
	}
	if page.Paths[1].Width != 2 {
		t.Errorf("expected line width 2, got %g", page.Paths[1].Width)
	}

	// Running the tool on its own output finds nothing more to remove.
	res, err = ProcessFile(out, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed() {
		t.Errorf("second pass removed %d rectangles", res.Dropped)
	}
	if _, err := os.Stat(filepath.Join(dir, "slide_clean_clean.pdf")); !os.IsNotExist(err) {
		t.Errorf("second pass wrote output file (err=%v)", err)
	}
}

func TestProcessFileUnchanged(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "plain.pdf")
	err := testpdf.Write(in, testpdf.Page{Width: 100, Height: 100, Content: "0 g 0 0 100 100 re f"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := ProcessFile(in, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed() {
		t.Errorf("unexpected change %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "plain_clean.pdf")); !os.IsNotExist(err) {
		t.Errorf("output file written for unchanged input (err=%v)", err)
	}
}
