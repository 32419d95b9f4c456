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

// Package mocks provides test doubles for the catalog's external
// collaborators.
package mocks

import (
	"context"
	"os"

	"github.com/voussoir/etiquette/pkg/media"
)

// MockToolkit is a media toolkit double. Probe returns the configured
// result and Thumbnail writes a small placeholder file, so tests never need
// ffmpeg installed.
type MockToolkit struct {
	ProbeResult media.ProbeResult
	ProbeErr    error

	ProbeCalls     []string
	ThumbnailCalls []string
}

// NewMockToolkit returns a toolkit double reporting a 100x100 image.
func NewMockToolkit() *MockToolkit {
	return &MockToolkit{
		ProbeResult: media.ProbeResult{Width: 100, Height: 100},
	}
}

func (m *MockToolkit) Probe(_ context.Context, path string) (media.ProbeResult, error) {
	m.ProbeCalls = append(m.ProbeCalls, path)
	if m.ProbeErr != nil {
		return media.ProbeResult{}, m.ProbeErr
	}
	return m.ProbeResult, nil
}

func (m *MockToolkit) Thumbnail(
	_ context.Context, input string, _ float64, _, _ int, outPath string, _ int,
) error {
	m.ThumbnailCalls = append(m.ThumbnailCalls, input)
	//nolint:gosec // test fixture
	return os.WriteFile(outPath, []byte("thumbnail"), 0o640)
}
