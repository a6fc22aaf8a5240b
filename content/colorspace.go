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
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"seehuhn.de/go/icc"

	"seehuhn.de/go/pdfclean/drawing"
)

// colorSpace is the approximation of a PDF colour space used for path
// extraction.  Calibrated and ICC-based spaces are interpreted as
// DeviceGray, DeviceRGB or DeviceCMYK, following the data colour space of
// the profile.  Patterns, Lab and other colour spaces give a nil colour.
type colorSpace int

const (
	spaceUnknown colorSpace = 0
	spaceGray    colorSpace = 1
	spaceRGB     colorSpace = 3
	spaceCMYK    colorSpace = 4
	spacePattern colorSpace = -1
)

// initial returns the initial colour of the colour space, as set by the
// "cs" and "CS" operators.
func (cs colorSpace) initial() *drawing.Color {
	switch cs {
	case spaceGray, spaceRGB:
		return drawing.Gray(0)
	case spaceCMYK:
		return drawing.CMYK(0, 0, 0, 1)
	default:
		return nil
	}
}

// color converts the operands of "sc", "scn", "SC" or "SCN" to a colour.
func (cs colorSpace) color(args []types.Object) *drawing.Color {
	if cs <= 0 {
		return nil
	}
	x, ok := getNumbers(args, int(cs))
	if !ok {
		return nil
	}
	switch cs {
	case spaceGray:
		return drawing.Gray(x[0])
	case spaceRGB:
		return drawing.RGB(x[0], x[1], x[2])
	default:
		return drawing.CMYK(x[0], x[1], x[2], x[3])
	}
}

// colorSpace determines the colour space selected by a "cs" or "CS"
// operator.
func (e *extractor) colorSpace(res types.Dict, name string) colorSpace {
	switch name {
	case "DeviceGray", "CalGray", "G":
		return spaceGray
	case "DeviceRGB", "CalRGB", "RGB":
		return spaceRGB
	case "DeviceCMYK", "CMYK":
		return spaceCMYK
	case "Pattern":
		return spacePattern
	}

	spaces, err := e.dict(res["ColorSpace"])
	if err != nil || spaces == nil {
		return spaceUnknown
	}
	obj, err := e.src.Dereference(spaces[name])
	if err != nil {
		return spaceUnknown
	}
	return e.colorSpaceFromObject(obj)
}

func (e *extractor) colorSpaceFromObject(obj types.Object) colorSpace {
	switch obj := obj.(type) {
	case types.Name:
		switch obj {
		case "DeviceGray":
			return spaceGray
		case "DeviceRGB":
			return spaceRGB
		case "DeviceCMYK":
			return spaceCMYK
		case "Pattern":
			return spacePattern
		}
	case types.Array:
		if len(obj) == 0 {
			return spaceUnknown
		}
		family, _ := obj[0].(types.Name)
		switch family {
		case "CalGray":
			return spaceGray
		case "CalRGB":
			return spaceRGB
		case "Pattern":
			return spacePattern
		case "ICCBased":
			if len(obj) < 2 {
				return spaceUnknown
			}
			return e.iccSpace(obj[1])
		}
	}
	return spaceUnknown
}

// iccSpace determines the colour space of an ICCBased colour space from the
// data colour space of its profile.  If the profile cannot be decoded, the
// alternate colour space is used, or else the number N of components.
func (e *extractor) iccSpace(ref types.Object) colorSpace {
	sd, _, err := e.src.DereferenceStreamDict(ref)
	if err != nil || sd == nil {
		return spaceUnknown
	}

	if err := sd.Decode(); err == nil {
		if p, err := icc.Decode(sd.Content); err == nil {
			switch p.ColorSpace {
			case icc.GraySpace:
				return spaceGray
			case icc.RGBSpace:
				return spaceRGB
			case icc.CMYKSpace:
				return spaceCMYK
			default:
				return spaceUnknown
			}
		}
	}

	if alt, ok := sd.Dict["Alternate"]; ok {
		obj, err := e.src.Dereference(alt)
		if err != nil {
			return spaceUnknown
		}
		if a, ok := obj.(types.Array); ok && len(a) > 0 && a[0] == types.Name("ICCBased") {
			return spaceUnknown
		}
		return e.colorSpaceFromObject(obj)
	}
	if n, ok := e.number(sd.Dict["N"]); ok {
		switch int(n) {
		case 1, 3, 4:
			return colorSpace(n)
		}
	}
	return spaceUnknown
}
