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

// Package document gives page level access to PDF files.
//
// The package is a thin layer on top of pdfcpu.  A [Document] is opened
// from a file, provides the drawing paths found on its pages, and can
// replace page contents with new content streams before it is written to a
// new file.
package document

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/xdg-go/stringprep"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfclean/content"
	"seehuhn.de/go/pdfclean/drawing"
)

// OpenOptions control how a document is opened.
type OpenOptions struct {
	// Password is used to open encrypted documents.  It is used both as
	// the user and as the owner password.
	Password string

	// Strict enables strict validation of the file structure.
	// By default, pdfcpu's relaxed validation mode is used.
	Strict bool
}

// A Document is a PDF file held in memory.
type Document struct {
	ctx  *model.Context
	next int // number of output pages created so far
}

var (
	// ErrPageRange is returned when a page number is out of range.
	ErrPageRange = errors.New("page number out of range")

	errInvalidPassword = errors.New("invalid password")
)

// Open reads and validates a PDF file.
func Open(path string, opt *OpenOptions) (*Document, error) {
	if opt == nil {
		opt = &OpenOptions{}
	}

	conf := model.NewDefaultConfiguration()
	if !opt.Strict {
		conf.ValidationMode = model.ValidationRelaxed
	}
	if opt.Password != "" {
		passwd, err := preparePassword(opt.Password)
		if err != nil {
			return nil, err
		}
		conf.UserPW = passwd
		conf.OwnerPW = passwd
	}

	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	ctx, err := api.ReadContext(fd, conf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	err = api.ValidateContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Document{ctx: ctx}, nil
}

// preparePassword normalises a password in the way PDF 2.0 requires for
// AES-256 encryption.  For older encryption methods the normalisation has
// no effect on ASCII passwords.
func preparePassword(passwd string) (string, error) {
	prepped, err := stringprep.SASLprep.Prepare(passwd)
	if err != nil {
		return "", errInvalidPassword
	}
	if len(prepped) > 127 {
		prepped = prepped[:127]
	}
	return prepped, nil
}

// Context returns the underlying pdfcpu context.
func (d *Document) Context() *model.Context {
	return d.ctx
}

// NumPages returns the number of pages in the document.
func (d *Document) NumPages() int {
	return d.ctx.PageCount
}

// pageInfo collects the information about a page needed for reading and
// replacing its content.
type pageInfo struct {
	dict      types.Dict
	box       rect.Rect
	resources types.Dict
}

func (d *Document) pageInfo(i int) (*pageInfo, error) {
	if i < 0 || i >= d.ctx.PageCount {
		return nil, ErrPageRange
	}
	pageDict, _, inh, err := d.ctx.PageDict(i+1, false)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", i+1, err)
	}
	if pageDict == nil {
		return nil, fmt.Errorf("page %d: missing page dictionary", i+1)
	}

	info := &pageInfo{dict: pageDict}

	var box *types.Rectangle
	if inh != nil {
		box = inh.MediaBox
		if inh.CropBox != nil {
			box = inh.CropBox
		}
	}
	if box == nil {
		box = types.RectForFormat("A4")
	}
	info.box = rect.Rect{LLx: box.LL.X, LLy: box.LL.Y, URx: box.UR.X, URy: box.UR.Y}

	if obj, ok := pageDict.Find("Resources"); ok {
		res, err := d.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("page %d: resources: %w", i+1, err)
		}
		info.resources = res
	}
	if info.resources == nil && inh != nil {
		info.resources = inh.Resources
	}
	if info.resources == nil {
		info.resources = types.NewDict()
	}
	return info, nil
}

// Page returns the drawing paths of page i.  Pages are numbered from 0.
func (d *Document) Page(i int) (*drawing.Page, error) {
	info, err := d.pageInfo(i)
	if err != nil {
		return nil, err
	}
	data, err := d.contents(info.dict)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", i+1, err)
	}
	paths, err := content.Extract(d.ctx, info.resources, data)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", i+1, err)
	}
	return &drawing.Page{Box: info.box, Paths: paths}, nil
}

// PageContent returns the decoded content stream of page i, together with
// the page's resource dictionary.
func (d *Document) PageContent(i int) ([]byte, types.Dict, error) {
	info, err := d.pageInfo(i)
	if err != nil {
		return nil, nil, err
	}
	data, err := d.contents(info.dict)
	if err != nil {
		return nil, nil, fmt.Errorf("page %d: %w", i+1, err)
	}
	return data, info.resources, nil
}

// contents returns the concatenated, decoded content streams of a page.
func (d *Document) contents(pageDict types.Dict) ([]byte, error) {
	obj, ok := pageDict.Find("Contents")
	if !ok {
		return nil, nil
	}
	obj, err := d.ctx.Dereference(obj)
	if err != nil {
		return nil, err
	}

	switch x := obj.(type) {
	case nil:
		return nil, nil
	case types.StreamDict:
		return d.decode(pageDict["Contents"])
	case types.Array:
		var res []byte
		for _, part := range x {
			data, err := d.decode(part)
			if err != nil {
				return nil, err
			}
			res = append(res, data...)
			res = append(res, '\n')
		}
		return res, nil
	default:
		return nil, &content.MalformedError{
			Err: fmt.Errorf("unexpected type %T for content stream", obj),
		}
	}
}

func (d *Document) decode(obj types.Object) ([]byte, error) {
	sd, _, err := d.ctx.DereferenceStreamDict(obj)
	if err != nil {
		return nil, err
	}
	if sd == nil {
		return nil, nil
	}
	err = sd.Decode()
	if err != nil {
		return nil, err
	}
	return sd.Content, nil
}

// SetPageContent replaces the content stream and the resource dictionary of
// page i.
func (d *Document) SetPageContent(i int, data []byte, res types.Dict) error {
	info, err := d.pageInfo(i)
	if err != nil {
		return err
	}
	return d.install(info.dict, data, res)
}

func (d *Document) install(pageDict types.Dict, data []byte, res types.Dict) error {
	sd, err := d.ctx.NewStreamDictForBuf(data)
	if err != nil {
		return err
	}
	err = sd.Encode()
	if err != nil {
		return err
	}
	ref, err := d.ctx.IndRefForNewObject(*sd)
	if err != nil {
		return err
	}
	pageDict.Update("Contents", *ref)
	if res != nil {
		pageDict.Update("Resources", res)
	}
	return nil
}

// Save writes the document to a file.
func (d *Document) Save(path string) error {
	return api.WriteContextFile(d.ctx, path)
}
