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

// Package media probes media files for metadata and renders thumbnails.
// Images are handled in-process; video and audio are delegated to ffmpeg.
package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	// registered decoders for probe and thumbnailing
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ProbeResult is the metadata a probe extracts from one file.
type ProbeResult struct {
	Width    int
	Height   int
	Duration float64
	HasVideo bool
	HasAudio bool
}

// Toolkit is the media capability surface the catalog core consumes.
type Toolkit interface {
	// Probe extracts dimensions, duration and stream kinds from a file.
	Probe(ctx context.Context, path string) (ProbeResult, error)
	// Thumbnail extracts a video frame at atTime seconds, scaled to fit the
	// given bounds, written as a JPEG to outPath.
	Thumbnail(ctx context.Context, input string, atTime float64, width, height int, outPath string, quality int) error
}

// DetectClass sniffs a file's content and returns its major mimetype class
// ("image", "video", "audio") or "" when unrecognized.
func DetectClass(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to detect mimetype of %s: %w", path, err)
	}
	class := mt.String()
	if i := strings.Index(class, "/"); i >= 0 {
		class = class[:i]
	}
	return class, nil
}

// ProbeImage decodes only the image header to read its dimensions.
func ProbeImage(path string) (ProbeResult, error) {
	f, err := os.Open(path) //nolint:gosec // caller provides catalog paths
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	return ProbeResult{Width: cfg.Width, Height: cfg.Height}, nil
}
