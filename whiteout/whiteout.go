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

// Package whiteout removes large white rectangles from PDF pages.
//
// Many programs draw a white rectangle covering the whole page before
// drawing the actual content.  When such pages are placed on top of other
// material, the white background hides everything below.  This package
// re-draws the vector graphics of every page, omitting filled rectangles
// which are nearly white and which cover a large part of the page.
package whiteout

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/pdfclean/document"
	"seehuhn.de/go/pdfclean/drawing"
)

// Default values for the fields in [Options].
const (
	DefaultThreshold = 0.5
	DefaultWhiteness = 0.95
	DefaultSuffix    = "_clean"
)

// Options control which rectangles are removed and where the output is
// written.
type Options struct {
	// Threshold is the fraction of the page area a rectangle must exceed
	// to be removed.
	Threshold float64

	// Whiteness is the minimal value of each of the red, green and blue
	// components for a fill colour to be considered white.
	Whiteness float64

	// Suffix is appended to the file name stem to form the output file
	// name.  If Suffix is empty, the input file is overwritten.
	Suffix string

	// Password is used to open encrypted files.
	Password string

	// Logger receives progress information.  If nil, [slog.Default] is
	// used.
	Logger *slog.Logger
}

// DefaultOptions returns the options used when nil is passed to one of the
// functions in this package.
func DefaultOptions() *Options {
	return &Options{
		Threshold: DefaultThreshold,
		Whiteness: DefaultWhiteness,
		Suffix:    DefaultSuffix,
	}
}

func (opt *Options) logger() *slog.Logger {
	if opt.Logger != nil {
		return opt.Logger
	}
	return slog.Default()
}

// Result summarises the work done for one document.
type Result struct {
	Input  string
	Output string // empty, if no output was written

	Pages   int
	Paths   int
	Dropped int // number of rectangles removed
}

// Changed reports whether any rectangles were removed.
func (r *Result) Changed() bool {
	return r.Dropped > 0
}

// UnsupportedItemError is returned when a page contains a drawing item which
// cannot be re-emitted.
type UnsupportedItemError struct {
	Page int // 0-based
	Item drawing.Item
}

func (err *UnsupportedItemError) Error() string {
	return fmt.Sprintf("page %d: unsupported drawing item %T", err.Page+1, err.Item)
}

// Source provides the drawing paths of the input document.
type Source interface {
	NumPages() int
	Page(i int) (*drawing.Page, error)
}

// Sink receives the re-emitted pages.
type Sink interface {
	// NewPage starts a new, blank output page of the given size.
	NewPage(box rect.Rect) (Shape, error)

	// Save writes the output document.
	Save(path string) error
}

// Shape collects the drawing paths of one output page.
type Shape interface {
	DrawLine(p0, p1 vec.Vec2)
	DrawRect(r rect.Rect)
	DrawQuad(q [4]vec.Vec2)
	DrawBezier(b [4]vec.Vec2)

	// Finish paints the items added since the previous call to Finish.
	Finish(style drawing.Style)

	// Commit finalises the page.
	Commit() error
}

// IsLargeWhiteRectangle reports whether a rectangle with the given fill
// colour should be removed from a page of area pageArea.
//
// This is the case if the rectangle is filled, if each of the red, green and
// blue components of the fill colour is at least opt.Whiteness, and if the
// rectangle covers more than the fraction opt.Threshold of the page.
func IsLargeWhiteRectangle(r rect.Rect, fill *drawing.Color, pageArea float64, opt *Options) bool {
	if opt == nil {
		opt = DefaultOptions()
	}
	if fill == nil || pageArea <= 0 {
		return false
	}

	frac := r.Dx() * r.Dy() / pageArea
	log := opt.logger()
	log.Debug("rectangle",
		slog.Float64("fraction", frac),
		slog.String("fill", fill.String()))

	w := opt.Whiteness
	if fill.R < w || fill.G < w || fill.B < w {
		return false
	}
	if frac <= opt.Threshold {
		return false
	}

	log.Info("large white rectangle",
		slog.Float64("fraction", frac),
		slog.String("fill", fill.String()))
	return true
}

// RemoveLargeWhiteRectangles copies the drawing paths of all pages from src
// to dst, omitting large white rectangles.
//
// If at least one rectangle was removed, the output is saved to outPath.
// Otherwise nothing is written.  An item type which cannot be re-emitted
// causes an *UnsupportedItemError; in this case nothing is written.
func RemoveLargeWhiteRectangles(src Source, dst Sink, outPath string, opt *Options) (*Result, error) {
	if opt == nil {
		opt = DefaultOptions()
	}
	log := opt.logger()

	res := &Result{}
	numPages := src.NumPages()
	for i := 0; i < numPages; i++ {
		page, err := src.Page(i)
		if err != nil {
			return nil, err
		}
		area := page.Area()

		shape, err := dst.NewPage(page.Box)
		if err != nil {
			return nil, err
		}

		dropped := 0
		for _, path := range page.Paths {
			for _, item := range path.Items {
				switch item := item.(type) {
				case drawing.Line:
					shape.DrawLine(item.P0, item.P1)
				case drawing.Rect:
					if IsLargeWhiteRectangle(item.Rect, path.Fill, area, opt) {
						dropped++
						continue
					}
					shape.DrawRect(item.Rect)
				case drawing.Quad:
					shape.DrawQuad(item.P)
				case drawing.Bezier:
					shape.DrawBezier(item.P)
				default:
					return nil, &UnsupportedItemError{Page: i, Item: item}
				}
			}
			shape.Finish(path.Style.Normalized())
		}

		err = shape.Commit()
		if err != nil {
			return nil, err
		}

		log.Debug("page done",
			slog.Int("page", i+1),
			slog.Int("paths", len(page.Paths)),
			slog.Int("dropped", dropped))
		res.Pages++
		res.Paths += len(page.Paths)
		res.Dropped += dropped
	}

	if !res.Changed() {
		return res, nil
	}

	err := dst.Save(outPath)
	if err != nil {
		return nil, err
	}
	res.Output = outPath
	return res, nil
}

// ProcessFile removes the large white rectangles from a PDF file.
//
// The output is written to the file given by [OutputPath], but only if
// something was removed.
func ProcessFile(path string, opt *Options) (*Result, error) {
	if opt == nil {
		opt = DefaultOptions()
	}

	doc, err := document.Open(path, &document.OpenOptions{Password: opt.Password})
	if err != nil {
		return nil, err
	}

	out := OutputPath(path, opt.Suffix)
	res, err := RemoveLargeWhiteRectangles(doc, docSink{doc}, out, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Input = path
	return res, nil
}

// OutputPath returns the name of the output file for the input file path.
// The output file is in the same directory as the input, and is named
// "{stem}{suffix}.pdf".  If suffix is empty, path is returned unchanged.
func OutputPath(path, suffix string) string {
	if suffix == "" {
		return path
	}
	dir, base := filepath.Split(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+suffix+".pdf")
}

// docSink adapts a [document.Document] to the [Sink] interface.
type docSink struct {
	*document.Document
}

func (s docSink) NewPage(box rect.Rect) (Shape, error) {
	shape, err := s.Document.NewPage(box)
	if err != nil {
		return nil, err
	}
	return shape, nil
}
