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

package media

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// ThumbnailQuality is the JPEG quality used for generated thumbnails.
const ThumbnailQuality = 50

const checkerTile = 8

// FitInside scales (width, height) down to fit inside (boundW, boundH)
// preserving aspect ratio. Dimensions already inside the bounds are
// unchanged.
func FitInside(width, height, boundW, boundH int) (int, int) {
	if width <= boundW && height <= boundH {
		return width, height
	}
	ratioW := float64(boundW) / float64(width)
	ratioH := float64(boundH) / float64(height)
	ratio := ratioW
	if ratioH < ratio {
		ratio = ratioH
	}
	newW := int(float64(width) * ratio)
	newH := int(float64(height) * ratio)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return newW, newH
}

// checkerboard renders the light/dark gray tile pattern composited under
// transparent images.
func checkerboard(width, height int) *image.RGBA {
	light := color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	dark := color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	board := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/checkerTile+y/checkerTile)%2 == 0 {
				board.SetRGBA(x, y, light)
			} else {
				board.SetRGBA(x, y, dark)
			}
		}
	}
	return board
}

func hasAlpha(img image.Image) bool {
	type opaquer interface{ Opaque() bool }
	if o, ok := img.(opaquer); ok {
		return !o.Opaque()
	}
	return false
}

// RenderThumbnail scales an image to fit inside (boundW, boundH) and
// composites it onto a checkerboard when it carries transparency.
func RenderThumbnail(src image.Image, boundW, boundH int) image.Image {
	bounds := src.Bounds()
	newW, newH := FitInside(bounds.Dx(), bounds.Dy(), boundW, boundH)

	scaled := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)

	if !hasAlpha(src) {
		return scaled
	}

	board := checkerboard(newW, newH)
	draw.Draw(board, board.Bounds(), scaled, image.Point{}, draw.Over)
	return board
}

// WriteImageThumbnail decodes an image file, renders its thumbnail and
// writes it as a JPEG.
func WriteImageThumbnail(inputPath, outPath string, boundW, boundH int) error {
	f, err := os.Open(inputPath) //nolint:gosec // caller provides catalog paths
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", inputPath, err)
	}

	thumb := RenderThumbnail(src, boundW, boundH)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	out, err := os.Create(outPath) //nolint:gosec // path is under the thumbnail dir
	if err != nil {
		return fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer func() { _ = out.Close() }()

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: ThumbnailQuality}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return nil
}
