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

// Package transparent makes white fills in PDF files transparent.
//
// This is an alternative to the approach in [seehuhn.de/go/pdfclean/whiteout]:
// instead of re-drawing the page, the existing content stream is kept and
// every white fill is wrapped in a graphics state which sets the fill and
// stroke opacity to zero.  Text and images on the page are preserved.
package transparent

import (
	"bytes"
	"fmt"
	"log/slog"
	"maps"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"seehuhn.de/go/pdfclean/content"
	"seehuhn.de/go/pdfclean/document"
	"seehuhn.de/go/pdfclean/whiteout"
)

// Options control which fills are made transparent.
type Options struct {
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
		Whiteness: whiteout.DefaultWhiteness,
		Suffix:    whiteout.DefaultSuffix,
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

	Pages int
	Fills int // number of fills made transparent
}

// Changed reports whether any fills were made transparent.
func (r *Result) Changed() bool {
	return r.Fills > 0
}

// gsName is the resource name used for the transparent graphics state.
// A numeric suffix is added if the name is already in use.
const gsName = "Transparent"

// MakeWhiteTransparent makes all white fills in the document transparent.
// The function returns the number of fills which were changed.
//
// Fills which are already transparent, and paths which are also used for
// clipping, are left unchanged.
func MakeWhiteTransparent(doc *document.Document, opt *Options) (int, error) {
	if opt == nil {
		opt = DefaultOptions()
	}
	log := opt.logger()
	ctx := doc.Context()

	total := 0
	for i := range doc.NumPages() {
		data, res, err := doc.PageContent(i)
		if err != nil {
			return 0, err
		}
		spans, err := content.FillSpans(ctx, res, data)
		if err != nil {
			return 0, fmt.Errorf("page %d: %w", i+1, err)
		}

		var white []content.FillSpan
		for _, s := range spans {
			if isWhite(s, opt.Whiteness) {
				white = append(white, s)
			}
		}
		log.Debug("page scanned",
			slog.Int("page", i+1),
			slog.Int("fills", len(spans)),
			slog.Int("white", len(white)))
		if len(white) == 0 {
			continue
		}

		newRes, name, err := addTransparentState(ctx, res)
		if err != nil {
			return 0, fmt.Errorf("page %d: %w", i+1, err)
		}
		err = doc.SetPageContent(i, wrapSpans(data, white, name), newRes)
		if err != nil {
			return 0, fmt.Errorf("page %d: %w", i+1, err)
		}
		log.Info("white fills made transparent",
			slog.Int("page", i+1),
			slog.Int("count", len(white)))
		total += len(white)
	}
	return total, nil
}

func isWhite(s content.FillSpan, whiteness float64) bool {
	if s.Clip || s.Fill == nil || s.Fill.A == 0 {
		return false
	}
	return s.Fill.MinRGB() >= whiteness
}

// addTransparentState returns a copy of the resource dictionary res, with a
// graphics state parameter dictionary added which makes all painting
// invisible.  The resource name of the new entry is returned as well.
func addTransparentState(ctx *model.Context, res types.Dict) (types.Dict, string, error) {
	ext := types.NewDict()
	if obj, ok := res.Find("ExtGState"); ok {
		old, err := ctx.DereferenceDict(obj)
		if err != nil {
			return nil, "", err
		}
		maps.Copy(ext, old)
	}

	name := gsName
	for k := 1; ; k++ {
		if _, used := ext[name]; !used {
			break
		}
		name = fmt.Sprintf("%s%d", gsName, k)
	}
	ext[name] = types.Dict{
		"Type": types.Name("ExtGState"),
		"ca":   types.Float(0),
		"CA":   types.Float(0),
	}

	newRes := types.NewDict()
	maps.Copy(newRes, res)
	newRes["ExtGState"] = ext
	return newRes, name, nil
}

// wrapSpans surrounds each of the given spans with "q /name gs" and "Q".
// The spans must be sorted and must not overlap.
func wrapSpans(data []byte, spans []content.FillSpan, name string) []byte {
	buf := &bytes.Buffer{}
	var pos int64
	for _, s := range spans {
		buf.Write(data[pos:s.Start])
		fmt.Fprintf(buf, "q /%s gs ", name)
		buf.Write(data[s.Start:s.End])
		buf.WriteString(" Q")
		pos = s.End
	}
	buf.Write(data[pos:])
	return buf.Bytes()
}

// ProcessFile makes the white fills in a PDF file transparent.
//
// The output is written to the file given by [whiteout.OutputPath], but only
// if something was changed.
func ProcessFile(path string, opt *Options) (*Result, error) {
	if opt == nil {
		opt = DefaultOptions()
	}

	doc, err := document.Open(path, &document.OpenOptions{Password: opt.Password})
	if err != nil {
		return nil, err
	}

	n, err := MakeWhiteTransparent(doc, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res := &Result{
		Input: path,
		Pages: doc.NumPages(),
		Fills: n,
	}
	if n == 0 {
		return res, nil
	}

	out := whiteout.OutputPath(path, opt.Suffix)
	err = doc.Save(out)
	if err != nil {
		return nil, err
	}
	res.Output = out
	return res, nil
}
