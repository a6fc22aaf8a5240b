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

package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	log := New(f, false)
	if log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug messages enabled without verbose flag")
	}
	log.Info("processed", slog.String("file", "a.pdf"))
	log.Debug("hidden")
	err = f.Close()
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec map[string]any
	err = json.Unmarshal(data, &rec)
	if err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", data, err)
	}
	if rec["msg"] != "processed" || rec["file"] != "a.pdf" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewVerbose(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "log"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	log := New(f, true)
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug messages disabled with verbose flag")
	}
}
