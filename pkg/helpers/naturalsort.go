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
	"sort"
	"strings"
	"unicode"
)

// NaturalLess compares two strings so that embedded digit runs sort
// numerically: "page2" < "page10". Comparison outside digit runs is
// case-insensitive.
func NaturalLess(a, b string) bool {
	ar := []rune(strings.ToLower(a))
	br := []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		ca, cb := ar[i], br[j]
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			// compare whole digit runs numerically
			ia, ja := i, j
			for ia < len(ar) && unicode.IsDigit(ar[ia]) {
				ia++
			}
			for ja < len(br) && unicode.IsDigit(br[ja]) {
				ja++
			}
			na := strings.TrimLeft(string(ar[i:ia]), "0")
			nb := strings.TrimLeft(string(br[j:ja]), "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			i, j = ia, ja
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(ar)-i < len(br)-j
}

// SortNatural sorts a slice of strings in natural order, in place.
func SortNatural(items []string) {
	sort.SliceStable(items, func(i, j int) bool {
		return NaturalLess(items[i], items[j])
	})
}
