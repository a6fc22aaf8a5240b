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

// Package attach embeds files into PDF documents and reads them back.
package attach

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/exp/maps"
	"golang.org/x/text/unicode/norm"

	"seehuhn.de/go/pdfclean/document"
)

// A File is a file to be embedded into a PDF document.
type File struct {
	// Name is the file name shown by PDF viewers.
	Name string

	Data []byte
}

// EmbedOptions control where the output of [Embed] is written.
type EmbedOptions struct {
	// Output is the name of the output file.  If this is empty, the
	// output is written to "{stem}_embedded.pdf" next to the input,
	// unless InPlace is set.
	Output string

	// InPlace causes the input file to be overwritten, if Output is
	// empty.
	InPlace bool

	// Logger receives progress information.  If nil, [slog.Default] is
	// used.
	Logger *slog.Logger
}

var errNoFiles = errors.New("no files to embed")

// InvalidNameError is returned by [Embed] for file names which cannot be
// used for embedded files.
type InvalidNameError struct {
	Name string
}

func (err *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid name %q for embedded file", err.Name)
}

// Embed adds the given files to the PDF file pdfPath, and returns the name
// of the file written.  Existing embedded files with the same name are
// replaced.
func Embed(pdfPath string, files []File, opt *EmbedOptions) (string, error) {
	if opt == nil {
		opt = &EmbedOptions{}
	}
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	if len(files) == 0 {
		return "", errNoFiles
	}

	out := opt.Output
	if out == "" {
		if opt.InPlace {
			out = pdfPath
		} else {
			dir, base := filepath.Split(pdfPath)
			stem := strings.TrimSuffix(base, filepath.Ext(base))
			out = filepath.Join(dir, stem+"_embedded.pdf")
		}
	}

	var names []string
	seen := make(map[string]bool)
	for _, f := range files {
		name, err := NormalizeName(f.Name)
		if err != nil {
			return "", err
		}
		if seen[name] {
			return "", fmt.Errorf("duplicate embedded file %q", name)
		}
		seen[name] = true
		names = append(names, name)
	}

	doc, err := document.Open(pdfPath, nil)
	if err != nil {
		return "", err
	}
	ctx := doc.Context()

	existing, err := ctx.ListAttachments()
	if err != nil {
		return "", fmt.Errorf("%s: %w", pdfPath, err)
	}
	for _, a := range existing {
		if !seen[a.ID] && !seen[a.FileName] {
			continue
		}
		_, err := ctx.RemoveAttachments([]string{a.ID})
		if err != nil {
			return "", fmt.Errorf("%s: %w", pdfPath, err)
		}
		log.Debug("replacing embedded file", slog.String("name", a.ID))
	}

	now := time.Now()
	for i, f := range files {
		a := model.Attachment{
			Reader:  bytes.NewReader(f.Data),
			ID:      names[i],
			ModTime: &now,
		}
		err := ctx.AddAttachment(a, false)
		if err != nil {
			return "", fmt.Errorf("%s: %s: %w", pdfPath, names[i], err)
		}
		log.Debug("adding embedded file",
			slog.String("name", names[i]),
			slog.Int("size", len(f.Data)))
	}

	err = doc.Save(out)
	if err != nil {
		return "", err
	}
	log.Info("embedded files",
		slog.String("input", pdfPath),
		slog.String("output", out),
		slog.Int("count", len(files)))
	return out, nil
}

// NormalizeName converts a file name to Unicode normal form C, which is the
// form used for the names of embedded files.  An error is returned if the
// name cannot be used for an embedded file.
func NormalizeName(name string) (string, error) {
	n := norm.NFC.String(name)
	if n == "" || n == "." || n == ".." ||
		strings.ContainsAny(n, `/\`) || strings.ContainsRune(n, 0) {
		return "", &InvalidNameError{Name: name}
	}
	return n, nil
}

// Read returns the contents of all files embedded in a PDF file, indexed by
// file name.  For a file without embedded files, an empty map is returned.
func Read(pdfPath string) (map[string][]byte, error) {
	doc, err := document.Open(pdfPath, nil)
	if err != nil {
		return nil, err
	}
	ctx := doc.Context()

	stubs, err := ctx.ListAttachments()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pdfPath, err)
	}
	res := make(map[string][]byte, len(stubs))
	if len(stubs) == 0 {
		return res, nil
	}

	attachments, err := ctx.ExtractAttachments(nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pdfPath, err)
	}
	for _, a := range attachments {
		name := a.FileName
		if name == "" {
			name = a.ID
		}
		if a.Reader == nil {
			res[name] = nil
			continue
		}
		data, err := io.ReadAll(a.Reader)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", pdfPath, name, err)
		}
		res[name] = data
	}
	return res, nil
}

// Names returns the sorted names of all files embedded in a PDF file.
func Names(pdfPath string) ([]string, error) {
	files, err := Read(pdfPath)
	if err != nil {
		return nil, err
	}
	keys := maps.Keys(files)
	slices.Sort(keys)
	return keys, nil
}
