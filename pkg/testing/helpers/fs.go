// Etiquette
// Copyright (c) 2026 The Etiquette Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Etiquette.
//
// Etiquette is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Etiquette is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Etiquette.  If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

// FSHelper wraps a filesystem for building test media trees.
type FSHelper struct {
	Fs afero.Fs
}

// NewMemoryFS creates an in-memory filesystem for unit tests.
func NewMemoryFS() *FSHelper {
	return &FSHelper{Fs: afero.NewMemMapFs()}
}

// NewOSFS creates a helper on the real filesystem, for tests that hand
// paths to the catalog (which opens files itself).
func NewOSFS() *FSHelper {
	return &FSHelper{Fs: afero.NewOsFs()}
}

// WriteTree creates every file in the map, relative to root, with parent
// directories as needed.
func (h *FSHelper) WriteTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := h.Fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := afero.WriteFile(h.Fs, path, content, 0o640); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

// SampleMediaTree writes a small directory of fake media files under root
// and returns their paths in natural order.
func (h *FSHelper) SampleMediaTree(t *testing.T, root string) []string {
	t.Helper()
	files := map[string][]byte{
		"album1/photo1.jpg":      []byte("jpeg-bytes-1"),
		"album1/photo2.jpg":      []byte("jpeg-bytes-2"),
		"album1/inner/clip1.mp4": []byte("mp4-bytes-1"),
		"album2/photo3.png":      []byte("png-bytes-3"),
	}
	h.WriteTree(t, root, files)
	return []string{
		filepath.Join(root, "album1", "photo1.jpg"),
		filepath.Join(root, "album1", "photo2.jpg"),
		filepath.Join(root, "album1", "inner", "clip1.mp4"),
		filepath.Join(root, "album2", "photo3.png"),
	}
}
