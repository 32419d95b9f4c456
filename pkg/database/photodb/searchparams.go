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

package photodb

import (
	"strings"

	"github.com/voussoir/etiquette/pkg/database"
	"github.com/voussoir/etiquette/pkg/helpers"
)

// TriBool is a three-valued search filter. The zero value means "use this
// parameter's default", which is no filter for most parameters and false
// for IsSearchHidden.
type TriBool int

const (
	TriDefault TriBool = iota
	TriNull
	TriTrue
	TriFalse
)

// SearchParams hold every knob of a photo search. The zero value searches
// everything except search-hidden photos, newest first.
type SearchParams struct {
	// hyphen-range strings, e.g. "1024-2048", "100-", "-0:10:00", "1mb-"
	Area     string
	Width    string
	Height   string
	Ratio    string
	Bytes    string
	Duration string
	Created  string

	Authors         []*database.User
	Extension       []string
	ExtensionNot    []string
	Filename        string
	Mimetype        []string
	TagMusts        []string
	TagMays         []string
	TagForbids      []string
	TagExpression   string
	WithinDirectory []string

	HasTags        TriBool
	HasThumbnail   TriBool
	IsSearchHidden TriBool

	// OrderBy entries look like "created-desc" or "bytes-asc"; "random"
	// needs no direction.
	OrderBy []string

	Offset int
	// Limit caps emitted results. Nil means unlimited; zero yields nothing.
	Limit *int

	YieldPhotos bool
	YieldAlbums bool
}

// minmax is a parsed hyphen-range. Nil ends are unbounded.
type minmax struct {
	min *float64
	max *float64
}

// parseMinMax parses "low-high", "low-", "-high" or a single value. The
// range name feeds the OutOfOrder error.
func parseMinMax(rangeName, s string) (minmax, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return minmax{}, nil
	}

	low, high, ranged := strings.Cut(s, "-")
	if !ranged {
		value, err := helpers.ParseNumber(s)
		if err != nil {
			return minmax{}, err
		}
		return minmax{min: &value, max: &value}, nil
	}

	var result minmax
	if strings.TrimSpace(low) != "" {
		value, err := helpers.ParseNumber(strings.TrimSpace(low))
		if err != nil {
			return minmax{}, err
		}
		result.min = &value
	}
	if strings.TrimSpace(high) != "" {
		value, err := helpers.ParseNumber(strings.TrimSpace(high))
		if err != nil {
			return minmax{}, err
		}
		result.max = &value
	}
	if result.min != nil && result.max != nil && *result.min > *result.max {
		return minmax{}, database.OutOfOrder(rangeName, *result.min, *result.max)
	}
	return result, nil
}

// orderableColumns maps accepted orderby names to their SQL columns.
var orderableColumns = map[string]string{
	"extension": "extension",
	"width":     "width",
	"height":    "height",
	"ratio":     "aspectratio",
	"area":      "area",
	"duration":  "duration",
	"bytes":     "bytes",
	"created":   "created",
	"tagged_at": "tagged_at",
	"random":    "random",
}

type ordering struct {
	column     string
	descending bool
}

// parseOrderBy validates "column-direction" entries, warning about unknown
// columns and directions. The fallback ordering is created desc.
func parseOrderBy(entries []string, warnings *database.WarningBag) []ordering {
	var orderings []ordering
	for _, entry := range entries {
		name, direction, _ := strings.Cut(strings.ToLower(strings.TrimSpace(entry)), "-")
		column, ok := orderableColumns[name]
		if !ok {
			warnings.Add("invalid orderby column %q", name)
			continue
		}
		descending := true
		switch direction {
		case "desc", "":
		case "asc":
			descending = false
		default:
			warnings.Add("invalid orderby direction %q, using desc", direction)
		}
		orderings = append(orderings, ordering{column: column, descending: descending})
	}
	if len(orderings) == 0 {
		orderings = []ordering{{column: "created", descending: true}}
	}
	return orderings
}
