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
)

func TestNaturalLess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"digit runs compare numerically", "page2", "page10", true},
		{"reversed", "page10", "page2", false},
		{"equal strings", "photo", "photo", false},
		{"case insensitive", "Photo2", "photo10", true},
		{"leading zeros", "img007", "img8", true},
		{"plain lexicographic", "apple", "banana", true},
		{"prefix sorts first", "clip", "clip1", true},
		{"mixed segments", "disc1track9", "disc1track10", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NaturalLess(tt.a, tt.b))
		})
	}
}

func TestSortNatural(t *testing.T) {
	t.Parallel()

	items := []string{"photo10.jpg", "photo2.jpg", "photo1.jpg", "cover.jpg"}
	SortNatural(items)
	assert.Equal(t,
		[]string{"cover.jpg", "photo1.jpg", "photo2.jpg", "photo10.jpg"},
		items)
}
