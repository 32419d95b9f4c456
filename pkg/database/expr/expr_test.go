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

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRendering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single atom", "apple", "apple"},
		{"explicit and", "apple AND banana", "(apple AND banana)"},
		{"implicit and", "apple banana", "(apple AND banana)"},
		{"or lower precedence", "apple OR banana AND cherry", "(apple OR (banana AND cherry))"},
		{"parens override", "(apple OR banana) AND cherry", "((apple OR banana) AND cherry)"},
		{"not binds tightest", "NOT apple AND banana", "((NOT apple) AND banana)"},
		{"double not", "NOT NOT apple", "(NOT (NOT apple))"},
		{"quoted atom keeps spaces", `"vacation photos" OR beach`, `("vacation photos" OR beach)`},
		{"hyphen separates atoms", "family-pets", "(family AND pets)"},
		{"quoted atom keeps hyphen", `"family-pets"`, `"family-pets"`},
		{"keyword case insensitive", "apple and banana or cherry", "((apple AND banana) OR cherry)"},
		{"quoted keyword is an atom", `"AND"`, `AND`},
		{"left associative and", "a AND b AND c", "((a AND b) AND c)"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tree.String())
		})
	}
}

func TestHyphenTokenization(t *testing.T) {
	t.Parallel()

	tree, err := Parse("family-pets")
	require.NoError(t, err)
	assert.Equal(t, []string{"family", "pets"}, tree.Atoms())

	quoted, err := Parse(`"family-pets"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"family-pets"}, quoted.Atoms())

	// a hyphen alone leaves nothing to parse
	tree, err = Parse(" - ")
	require.NoError(t, err)
	assert.Nil(t, tree)
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()
	tree, err := Parse("   ")
	require.NoError(t, err)
	assert.Nil(t, tree)
	assert.True(t, tree.Evaluate(func(string) bool { return false }))
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"(apple",
		"apple)",
		"AND",
		"apple AND",
		"NOT",
		`"unterminated`,
	} {
		input := input
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	have := map[string]bool{"apple": true, "banana": true}
	match := func(atom string) bool { return have[atom] }

	tests := []struct {
		input string
		want  bool
	}{
		{"apple", true},
		{"cherry", false},
		{"apple AND banana", true},
		{"apple AND cherry", false},
		{"apple OR cherry", true},
		{"NOT cherry", true},
		{"NOT apple", false},
		{"apple AND NOT cherry", true},
		{"(cherry OR banana) AND apple", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			tree, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tree.Evaluate(match))
		})
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	t.Parallel()

	var asked []string
	match := func(atom string) bool {
		asked = append(asked, atom)
		return atom == "apple"
	}

	tree, err := Parse("apple OR banana")
	require.NoError(t, err)
	assert.True(t, tree.Evaluate(match))
	assert.Equal(t, []string{"apple"}, asked)

	asked = nil
	tree, err = Parse("banana AND apple")
	require.NoError(t, err)
	assert.False(t, tree.Evaluate(match))
	assert.Equal(t, []string{"banana"}, asked)
}

func TestAtomsAndLowerAtoms(t *testing.T) {
	t.Parallel()

	tree, err := Parse("Apple AND (Banana OR NOT Cherry)")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Banana", "Cherry"}, tree.Atoms())

	tree.LowerAtoms()
	assert.Equal(t, []string{"apple", "banana", "cherry"}, tree.Atoms())
}
