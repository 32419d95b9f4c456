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

package photodb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voussoir/etiquette/pkg/database"
	"github.com/voussoir/etiquette/pkg/database/photodb"
	testhelpers "github.com/voussoir/etiquette/pkg/testing/helpers"
)

func TestNormalizeTagName(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Music", "music"},
		{"spaces to underscores", "sunset beach", "sunset_beach"},
		{"hyphens to underscores", "black-and-white", "black_and_white"},
		{"invalid characters dropped", "c@fé!", "cf"},
		{"parens survive", "live_(bootleg)", "live_(bootleg)"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := db.NormalizeTagName(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := db.NormalizeTagName("!!!")
	assert.ErrorIs(t, err, database.ErrTagTooShort)
}

func TestNormalizeExtensionSet(t *testing.T) {
	t.Parallel()

	got := photodb.NormalizeExtensionSet([]string{"JPG, .png", "jpg", "", " gif "})
	assert.Equal(t, []string{"jpg", "png", "gif"}, got)

	// the wildcard survives untouched
	got = photodb.NormalizeExtensionSet([]string{"*"})
	assert.Equal(t, []string{"*"}, got)

	assert.Nil(t, photodb.NormalizeExtensionSet(nil))
}
