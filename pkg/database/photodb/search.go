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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/voussoir/etiquette/pkg/database"
	"github.com/voussoir/etiquette/pkg/database/expr"
)

// searchPlan is the compiled form of SearchParams: SQL plus post-SQL
// filters that cannot be pushed into the query.
type searchPlan struct {
	wheres    []string
	args      []any
	orderings []ordering

	mimeClasses  map[string]struct{}
	filenameTree *expr.Node
	tagTree      *expr.Node
	flat         map[string]map[string]struct{}

	offset int
	limit  *int

	yieldPhotos bool
	yieldAlbums bool
}

// SearchResults iterates photos and albums matched by a search. Use it like
// sql.Rows: Next, then Photo or Album, then Err, and Close when done early.
// Albums appear before the first of their photos when YieldAlbums is set.
type SearchResults struct {
	db   *PhotoDB
	plan *searchPlan

	candidates []database.Photo
	cursor     int
	emitted    int
	skipped    int

	seenAlbums    map[int64]struct{}
	pendingAlbums []*database.Album
	pendingPhoto  *database.Photo

	currentPhoto *database.Photo
	currentAlbum *database.Album

	warnings *database.WarningBag
	err      error
	done     bool
}

// Search compiles the parameters and runs the SQL pass. Post-SQL filters,
// offset, limit and album interleaving happen lazily in Next.
func (db *PhotoDB) Search(ctx context.Context, params SearchParams) (*SearchResults, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if !params.YieldPhotos && !params.YieldAlbums {
		return nil, database.NoYields()
	}

	warnings := database.NewWarningBag()
	plan, err := db.compileSearch(ctx, params, warnings)
	if err != nil {
		return nil, err
	}

	query := `select ` + selectPhotoColumns + ` from photos`
	if len(plan.wheres) > 0 {
		query += ` where ` + strings.Join(plan.wheres, " and ")
	}
	query += ` order by ` + renderOrderings(plan.orderings) + `;`
	log.Debug().Str("query", query).Msg("running photo search")

	rows, err := db.sql.QueryContext(ctx, query, plan.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	// the single connection cannot serve nested per-photo lookups while a
	// cursor is open, so the SQL pass materializes its candidates
	var candidates []database.Photo
	for rows.Next() {
		photo, scanErr := scanPhoto(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan photo row: %w", scanErr)
		}
		candidates = append(candidates, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("photo rows iteration error: %w", err)
	}

	return &SearchResults{
		db:         db,
		plan:       plan,
		candidates: candidates,
		seenAlbums: make(map[int64]struct{}),
		warnings:   warnings,
	}, nil
}

func renderOrderings(orderings []ordering) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if ord.column == "random" {
			parts = append(parts, "random()")
			continue
		}
		direction := "asc"
		if ord.descending {
			direction = "desc"
		}
		parts = append(parts, ord.column+" "+direction)
	}
	return strings.Join(parts, ", ")
}

// compileSearch normalizes every parameter, routing recoverable problems to
// the warning bag.
func (db *PhotoDB) compileSearch(ctx context.Context, params SearchParams, warnings *database.WarningBag) (*searchPlan, error) {
	plan := &searchPlan{
		offset:      params.Offset,
		limit:       params.Limit,
		yieldPhotos: params.YieldPhotos,
		yieldAlbums: params.YieldAlbums,
		orderings:   parseOrderBy(params.OrderBy, warnings),
	}

	ranges := []struct {
		name   string
		column string
		value  string
	}{
		{"area", "area", params.Area},
		{"width", "width", params.Width},
		{"height", "height", params.Height},
		{"ratio", "aspectratio", params.Ratio},
		{"bytes", "bytes", params.Bytes},
		{"duration", "duration", params.Duration},
		{"created", "created", params.Created},
	}
	for _, r := range ranges {
		if r.value == "" {
			continue
		}
		bounds, err := parseMinMax(r.name, r.value)
		if err != nil {
			warnings.AddError(err)
			continue
		}
		if bounds.min != nil {
			plan.wheres = append(plan.wheres, r.column+` is not null and `+r.column+` >= ?`)
			plan.args = append(plan.args, *bounds.min)
		}
		if bounds.max != nil {
			plan.wheres = append(plan.wheres, r.column+` is not null and `+r.column+` <= ?`)
			plan.args = append(plan.args, *bounds.max)
		}
	}

	if len(params.Authors) > 0 {
		placeholders := prepareVariadic("?", ", ", len(params.Authors))
		plan.wheres = append(plan.wheres, `author_id in (`+placeholders+`)`)
		for _, author := range params.Authors {
			plan.args = append(plan.args, author.ID)
		}
	}

	if extensions := NormalizeExtensionSet(params.Extension); len(extensions) > 0 {
		if containsString(extensions, "*") {
			plan.wheres = append(plan.wheres, `extension != ''`)
		} else {
			placeholders := prepareVariadic("?", ", ", len(extensions))
			plan.wheres = append(plan.wheres, `extension in (`+placeholders+`)`)
			for _, extension := range extensions {
				plan.args = append(plan.args, extension)
			}
		}
	}
	if extensions := NormalizeExtensionSet(params.ExtensionNot); len(extensions) > 0 {
		if containsString(extensions, "*") {
			plan.wheres = append(plan.wheres, `extension = ''`)
		} else {
			placeholders := prepareVariadic("?", ", ", len(extensions))
			plan.wheres = append(plan.wheres, `extension not in (`+placeholders+`)`)
			for _, extension := range extensions {
				plan.args = append(plan.args, extension)
			}
		}
	}

	if len(params.WithinDirectory) > 0 {
		var likes []string
		for _, directory := range params.WithinDirectory {
			likes = append(likes, `filepath like ?`)
			plan.args = append(plan.args, strings.TrimRight(directory, "/\\")+string(os.PathSeparator)+"%")
		}
		plan.wheres = append(plan.wheres, `(`+strings.Join(likes, " or ")+`)`)
	}

	switch params.HasThumbnail {
	case TriTrue:
		plan.wheres = append(plan.wheres, `thumbnail is not null`)
	case TriFalse:
		plan.wheres = append(plan.wheres, `thumbnail is null`)
	}

	switch params.IsSearchHidden {
	case TriTrue:
		plan.wheres = append(plan.wheres, `searchhidden = 1`)
	case TriDefault, TriFalse:
		plan.wheres = append(plan.wheres, `searchhidden = 0`)
	}

	// non-random orderby columns are useless against null values
	for _, ord := range plan.orderings {
		if ord.column != "random" && ord.column != "created" {
			plan.wheres = append(plan.wheres, ord.column+` is not null`)
		}
	}

	if len(params.Mimetype) > 0 {
		plan.mimeClasses = make(map[string]struct{}, len(params.Mimetype))
		for _, class := range params.Mimetype {
			plan.mimeClasses[strings.ToLower(strings.TrimSpace(class))] = struct{}{}
		}
	}

	if params.Filename != "" {
		tree, err := expr.Parse(params.Filename)
		if err != nil {
			warnings.Add("invalid filename expression %q: %s", params.Filename, err)
		} else if tree != nil {
			tree.LowerAtoms()
			plan.filenameTree = tree
		}
	}

	if err := db.compileTagFilters(ctx, params, plan, warnings); err != nil {
		return nil, err
	}
	return plan, nil
}

func (db *PhotoDB) compileTagFilters(ctx context.Context, params SearchParams, plan *searchPlan, warnings *database.WarningBag) error {
	musts := params.TagMusts
	mays := params.TagMays
	forbids := params.TagForbids

	if params.TagExpression != "" && (len(musts)+len(mays)+len(forbids)) > 0 {
		warnings.Add("tag_expression overrides tag_musts/mays/forbids")
		musts, mays, forbids = nil, nil, nil
	}
	if params.HasTags == TriFalse && (len(musts)+len(mays)+len(forbids) > 0 || params.TagExpression != "") {
		warnings.Add("has_tags=false drops all tag filters")
		musts, mays, forbids = nil, nil, nil
		params.TagExpression = ""
	}

	switch params.HasTags {
	case TriTrue:
		plan.wheres = append(plan.wheres,
			`exists (select 1 from photo_tag_rel where photoid = photos.id)`)
	case TriFalse:
		plan.wheres = append(plan.wheres,
			`not exists (select 1 from photo_tag_rel where photoid = photos.id)`)
	}

	needFlat := params.TagExpression != "" || len(musts)+len(mays)+len(forbids) > 0
	if !needFlat {
		return nil
	}

	flat, err := db.FlatDescendants(ctx)
	if err != nil {
		return err
	}
	plan.flat = flat

	tagIDByName := make(map[string]int64)
	tags, err := sqlAllTags(ctx, db.sql)
	if err != nil {
		return err
	}
	for _, tag := range tags {
		tagIDByName[tag.Name] = tag.ID
	}

	// familyIDs expands one tag reference into the IDs of the tag and its
	// descendants. Unknown references warn and expand to nothing.
	familyIDs := func(ref string) []int64 {
		tag, err := db.GetTagByName(ctx, ref)
		if err != nil {
			if errors.Is(err, database.ErrNoSuchTag) {
				warnings.Add("no such tag %q", ref)
				return nil
			}
			warnings.AddError(err)
			return nil
		}
		var ids []int64
		for name := range flat[tag.Name] {
			if id, ok := tagIDByName[name]; ok {
				ids = append(ids, id)
			}
		}
		return ids
	}

	appendExists := func(negate bool, ids []int64) {
		placeholders := prepareVariadic("?", ", ", len(ids))
		clause := `exists (select 1 from photo_tag_rel where photoid = photos.id and tagid in (` + placeholders + `))`
		if negate {
			clause = `not ` + clause
		}
		plan.wheres = append(plan.wheres, clause)
		for _, id := range ids {
			plan.args = append(plan.args, id)
		}
	}

	for _, must := range musts {
		if ids := familyIDs(must); len(ids) > 0 {
			appendExists(false, ids)
		}
	}
	var mayIDs []int64
	for _, may := range mays {
		mayIDs = append(mayIDs, familyIDs(may)...)
	}
	if len(mayIDs) > 0 {
		appendExists(false, mayIDs)
	}
	var forbidIDs []int64
	for _, forbid := range forbids {
		forbidIDs = append(forbidIDs, familyIDs(forbid)...)
	}
	if len(forbidIDs) > 0 {
		appendExists(true, forbidIDs)
	}

	if params.TagExpression != "" {
		tree, err := expr.Parse(params.TagExpression)
		if err != nil {
			warnings.Add("invalid tag expression %q: %s", params.TagExpression, err)
		} else if tree != nil {
			plan.tagTree = tree
		}
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Next advances to the next result. It returns false when the results are
// exhausted or an error occurred; check Err afterwards.
func (r *SearchResults) Next(ctx context.Context) bool {
	if r.done || r.err != nil {
		return false
	}

	if len(r.pendingAlbums) > 0 {
		r.currentAlbum, r.pendingAlbums = r.pendingAlbums[0], r.pendingAlbums[1:]
		r.currentPhoto = nil
		return true
	}
	if r.pendingPhoto != nil {
		r.currentPhoto, r.pendingPhoto = r.pendingPhoto, nil
		r.currentAlbum = nil
		r.emitted++
		return true
	}

	for r.cursor < len(r.candidates) {
		if err := ctx.Err(); err != nil {
			r.err = err
			return false
		}
		if r.plan.limit != nil && r.emitted >= *r.plan.limit {
			break
		}

		row := r.candidates[r.cursor]
		r.cursor++

		match, err := r.matches(ctx, &row)
		if err != nil {
			r.err = err
			return false
		}
		if !match {
			continue
		}
		if r.skipped < r.plan.offset {
			r.skipped++
			continue
		}

		photo := r.db.cachedPhoto(row)
		if r.plan.yieldAlbums {
			if err := r.queueAlbumsOf(ctx, photo); err != nil {
				r.err = err
				return false
			}
		}

		if !r.plan.yieldPhotos {
			if len(r.pendingAlbums) > 0 {
				return r.Next(ctx)
			}
			r.emitted++
			continue
		}

		if len(r.pendingAlbums) > 0 {
			r.pendingPhoto = photo
			return r.Next(ctx)
		}
		r.currentPhoto = photo
		r.currentAlbum = nil
		r.emitted++
		return true
	}

	r.done = true
	return false
}

// matches applies the post-SQL filters to one candidate row.
func (r *SearchResults) matches(ctx context.Context, row *database.Photo) (bool, error) {
	if r.plan.mimeClasses != nil {
		if _, ok := r.plan.mimeClasses[row.MimeClass()]; !ok {
			return false, nil
		}
	}

	if r.plan.filenameTree != nil {
		basename := strings.ToLower(row.Basename())
		ok := r.plan.filenameTree.Evaluate(func(atom string) bool {
			return strings.Contains(basename, atom)
		})
		if !ok {
			return false, nil
		}
	}

	if r.plan.tagTree != nil {
		tagIDs, err := sqlTagIDsOfPhoto(ctx, r.db.sql, row.ID)
		if err != nil {
			return false, err
		}
		photoTags := make(map[string]struct{}, len(tagIDs))
		for _, id := range tagIDs {
			tag, err := r.db.GetTagByID(ctx, id)
			if err != nil {
				return false, err
			}
			photoTags[tag.Name] = struct{}{}
		}
		ok := r.plan.tagTree.Evaluate(func(atom string) bool {
			family, known := r.plan.flat[strings.ToLower(strings.TrimSpace(atom))]
			if !known {
				return false
			}
			for name := range family {
				if _, has := photoTags[name]; has {
					return true
				}
			}
			return false
		})
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// queueAlbumsOf stages the photo's not-yet-seen albums for emission ahead
// of the photo itself.
func (r *SearchResults) queueAlbumsOf(ctx context.Context, photo *database.Photo) error {
	albumIDs, err := sqlAlbumIDsOfPhoto(ctx, r.db.sql, photo.ID)
	if err != nil {
		return err
	}
	for _, id := range albumIDs {
		if _, seen := r.seenAlbums[id]; seen {
			continue
		}
		r.seenAlbums[id] = struct{}{}
		album, err := r.db.GetAlbum(ctx, id)
		if err != nil {
			return err
		}
		r.pendingAlbums = append(r.pendingAlbums, album)
	}
	return nil
}

// Photo returns the current photo result, or nil if the current result is
// an album.
func (r *SearchResults) Photo() *database.Photo {
	return r.currentPhoto
}

// Album returns the current album result, or nil if the current result is
// a photo.
func (r *SearchResults) Album() *database.Album {
	return r.currentAlbum
}

// Warnings returns the bag of problems collected while normalizing and
// running the search.
func (r *SearchResults) Warnings() *database.WarningBag {
	return r.warnings
}

// Err returns the first error hit during iteration.
func (r *SearchResults) Err() error {
	return r.err
}

// Close releases the iterator. Safe to call at any point.
func (r *SearchResults) Close() {
	r.done = true
	r.candidates = nil
	r.pendingAlbums = nil
	r.pendingPhoto = nil
}
