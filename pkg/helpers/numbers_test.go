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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytestring(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  float64
	}{
		{"100", 100},
		{"1k", 1024},
		{"1kb", 1024},
		{"2mb", 2 * 1024 * 1024},
		{"1.5g", 1.5 * 1024 * 1024 * 1024},
		{"1T", 1024 * 1024 * 1024 * 1024},
		{" 512 b ", 512},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseBytestring(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}

	_, err := ParseBytestring("")
	assert.Error(t, err)
	_, err = ParseBytestring("banana")
	assert.Error(t, err)
}

func TestParseHMS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  float64
	}{
		{"90", 90},
		{"1:30", 90},
		{"0:10:00", 600},
		{"1:00:00", 3600},
		{"0:00:01.5", 1.5},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseHMS(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}

	_, err := ParseHMS("1:2:3:4")
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	t.Parallel()

	got, err := ParseNumber("3.5")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, got, 0.001)

	got, err = ParseNumber("0:02:00")
	require.NoError(t, err)
	assert.InDelta(t, 120, got, 0.001)

	got, err = ParseNumber("4mb")
	require.NoError(t, err)
	assert.InDelta(t, 4*1024*1024, got, 0.001)

	_, err = ParseNumber("nonsense")
	assert.Error(t, err)
}
