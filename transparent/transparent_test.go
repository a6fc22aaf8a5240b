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

package transparent

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/pdfclean/content"
	"seehuhn.de/go/pdfclean/document"
	"seehuhn.de/go/pdfclean/internal/testpdf"
)

func testOptions() *Options {
	opt := DefaultOptions()
	opt.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opt
}

func TestWrapSpans(t *testing.T) {
	data := []byte("1 g 0 0 9 9 re f 0 g 1 1 m 2 2 l S 1 g 3 3 1 1 re f")
	spans := []content.FillSpan{
		{Start: 4, End: 16},
		{Start: 39, End: 51},
	}
	got := string(wrapSpans(data, spans, "X"))
	want := "1 g q /X gs 0 0 9 9 re f Q 0 g 1 1 m 2 2 l S 1 g q /X gs 3 3 1 1 re f Q"
	if got != want {
		t.Errorf("unexpected output:\n got: %q\nwant: %q", got, want)
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "plot.pdf")
	err := testpdf.Write(in, testpdf.Page{
		Width: 100, Height: 100,
		Content:   "1 g 0 0 100 100 re f\n0 G 10 10 m 90 90 l S\n0.2 g 20 20 10 10 re f\n1 1 1 rg 0 0 5 5 re W n",
		Resources: "<< /ExtGState << /Transparent << /ca 0.5 >> >> >>",
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := ProcessFile(in, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "plot_clean.pdf")
	want := &Result{Input: in, Output: out, Pages: 1, Fills: 1}
	if d := cmp.Diff(want, res); d != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", d)
	}

	doc, err := document.Open(out, nil)
	if err != nil {
		t.Fatal(err)
	}
	data, _, err := doc.PageContent(0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "q /Transparent1 gs 0 0 100 100 re f Q") {
		t.Errorf("white fill not wrapped:\n%s", data)
	}

	page, err := doc.Page(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Paths) != 3 {
		t.Fatalf("expected 3 paths, got %d", len(page.Paths))
	}
	if op := page.Paths[0].FillOpacity; op != 0 {
		t.Errorf("expected transparent background, got opacity %g", op)
	}
	if op := page.Paths[2].FillOpacity; op != 1 {
		t.Errorf("expected opaque grey fill, got opacity %g", op)
	}

	// Already transparent fills are left alone.
	res, err = ProcessFile(out, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed() {
		t.Errorf("second pass changed %d fills", res.Fills)
	}
	if _, err := os.Stat(filepath.Join(dir, "plot_clean_clean.pdf")); !os.IsNotExist(err) {
		t.Errorf("second pass wrote output file (err=%v)", err)
	}
}

func TestNoWhiteFills(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dark.pdf")
	err := testpdf.Write(in, testpdf.Page{Width: 50, Height: 50, Content: "0.5 g 0 0 50 50 re f"})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := document.Open(in, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := MakeWhiteTransparent(doc, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no changes, got %d", n)
	}
}
