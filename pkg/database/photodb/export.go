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
	"context"
)

// FlatDescendants returns the reflexive closure of the tag hierarchy as a
// name lookup: for every tag name and every synonym name, the set of tag
// names covering that tag and all of its transitive descendants. Search
// expands a single tag term into this set instead of recursing in SQL.
// The map is memoized until the next tag, synonym or group write; callers
// must not mutate it.
func (db *PhotoDB) FlatDescendants(ctx context.Context) (map[string]map[string]struct{}, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if cached, ok := db.exports.get(); ok {
		return cached, nil
	}

	tags, err := sqlAllTags(ctx, db.sql)
	if err != nil {
		return nil, err
	}
	rels, err := sqlAllTagGroupRels(ctx, db.sql)
	if err != nil {
		return nil, err
	}
	synonyms, err := sqlAllSynonyms(ctx, db.sql)
	if err != nil {
		return nil, err
	}

	nameByID := make(map[int64]string, len(tags))
	for _, tag := range tags {
		nameByID[tag.ID] = tag.Name
	}
	childrenByID := make(map[int64][]int64, len(rels))
	for _, rel := range rels {
		childrenByID[rel.ParentID] = append(childrenByID[rel.ParentID], rel.MemberID)
	}

	memo := make(map[int64]map[string]struct{}, len(tags))
	var descend func(id int64) map[string]struct{}
	descend = func(id int64) map[string]struct{} {
		if set, ok := memo[id]; ok {
			return set
		}
		set := map[string]struct{}{nameByID[id]: {}}
		for _, childID := range childrenByID[id] {
			for name := range descend(childID) {
				set[name] = struct{}{}
			}
		}
		memo[id] = set
		return set
	}

	result := make(map[string]map[string]struct{}, len(tags)+len(synonyms))
	for _, tag := range tags {
		result[tag.Name] = descend(tag.ID)
	}
	for _, synonym := range synonyms {
		if set, ok := result[synonym.MasterName]; ok {
			result[synonym.Name] = set
		}
	}

	db.exports.set(result)
	return result, nil
}
