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

package drawing

import "slices"

// Style describes how the items of a path are painted.
//
// Only the fields marked in Set are considered present.  Use [Style.Normalized]
// to obtain a style where all missing fields have their default values.
// Fill and Stroke are present if they are non-nil; a nil Fill means that the
// path is not filled, a nil Stroke means that it is not stroked.
type Style struct {
	Fill   *Color
	Stroke *Color

	Dash      []float64
	DashPhase float64

	// EvenOdd selects the even-odd rule for filling.  If false, the
	// nonzero winding number rule is used.
	EvenOdd bool

	// ClosePath indicates that the last subpath is closed before painting.
	ClosePath bool

	LineJoin int

	// LineCap holds the cap styles found for the path.  The style used
	// for painting is the maximum of these values.
	LineCap []int

	Width float64

	StrokeOpacity float64
	FillOpacity   float64

	Set StyleBits
}

// StyleBits records which fields of a [Style] are present.
type StyleBits uint16

// Possible values for StyleBits.
const (
	StyleDash StyleBits = 1 << iota
	StyleEvenOdd
	StyleClosePath
	StyleLineJoin
	StyleLineCap
	StyleWidth
	StyleStrokeOpacity
	StyleFillOpacity

	styleAll = StyleDash | StyleEvenOdd | StyleClosePath | StyleLineJoin |
		StyleLineCap | StyleWidth | StyleStrokeOpacity | StyleFillOpacity
)

// DefaultStyle returns the style used for fields which are missing on a path.
func DefaultStyle() Style {
	return Style{
		EvenOdd:       true,
		ClosePath:     false,
		LineJoin:      0,
		LineCap:       []int{0},
		Width:         1,
		StrokeOpacity: 1,
		FillOpacity:   1,
		Set:           styleAll,
	}
}

// Normalized returns a copy of s where every missing field is replaced by its
// default value.  Fill and stroke colours are kept as they are.
func (s Style) Normalized() Style {
	def := DefaultStyle()
	res := s.Clone()
	if s.Set&StyleDash == 0 {
		res.Dash = nil
		res.DashPhase = 0
	}
	if s.Set&StyleEvenOdd == 0 {
		res.EvenOdd = def.EvenOdd
	}
	if s.Set&StyleClosePath == 0 {
		res.ClosePath = def.ClosePath
	}
	if s.Set&StyleLineJoin == 0 {
		res.LineJoin = def.LineJoin
	}
	if s.Set&StyleLineCap == 0 || len(s.LineCap) == 0 {
		res.LineCap = def.LineCap
	}
	if s.Set&StyleWidth == 0 {
		res.Width = def.Width
	}
	if s.Set&StyleStrokeOpacity == 0 {
		res.StrokeOpacity = def.StrokeOpacity
	}
	if s.Set&StyleFillOpacity == 0 {
		res.FillOpacity = def.FillOpacity
	}
	res.Set = styleAll
	return res
}

// Cap returns the line cap style to use for painting.
func (s Style) Cap() int {
	if len(s.LineCap) == 0 {
		return 0
	}
	return slices.Max(s.LineCap)
}

// Clone returns a deep copy of s.
func (s Style) Clone() Style {
	res := s
	if s.Fill != nil {
		fill := *s.Fill
		res.Fill = &fill
	}
	if s.Stroke != nil {
		stroke := *s.Stroke
		res.Stroke = &stroke
	}
	res.Dash = slices.Clone(s.Dash)
	res.LineCap = slices.Clone(s.LineCap)
	return res
}
