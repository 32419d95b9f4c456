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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voussoir/etiquette/pkg/database"
	"github.com/voussoir/etiquette/pkg/database/photodb"
	testhelpers "github.com/voussoir/etiquette/pkg/testing/helpers"
)

func mustTag(t *testing.T, db *photodb.PhotoDB, name string) *database.Tag {
	t.Helper()
	tag, err := db.NewTag(context.Background(), name, nil, nil)
	require.NoError(t, err)
	return tag
}

func mustGroup(t *testing.T, db *photodb.PhotoDB, parent, member *database.Tag) {
	t.Helper()
	require.NoError(t, db.AddTagChild(context.Background(), parent, member))
}

func TestNewTagNormalizesName(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	tag, err := db.NewTag(ctx, "Sunset Beach", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "sunset_beach", tag.Name)

	fetched, err := db.GetTagByName(ctx, " SUNSET_BEACH ")
	require.NoError(t, err)
	assert.Same(t, tag, fetched)
}

func TestNewTagRejectsDuplicates(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	tag := mustTag(t, db, "music")
	_, err := db.NewTag(ctx, "music", nil, nil)
	assert.ErrorIs(t, err, database.ErrTagExists)

	// a synonym occupies the name too
	_, err = db.AddSynonym(ctx, tag, "tunes")
	require.NoError(t, err)
	_, err = db.NewTag(ctx, "tunes", nil, nil)
	assert.ErrorIs(t, err, database.ErrTagExists)
}

func TestNewTagRejectsInvalidNames(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	_, err := db.NewTag(ctx, "!!!", nil, nil)
	assert.ErrorIs(t, err, database.ErrTagTooShort)

	long := make([]byte, 40)
	for i := range long {
		long[i] = 'a'
	}
	_, err = db.NewTag(ctx, string(long), nil, nil)
	assert.ErrorIs(t, err, database.ErrTagTooLong)
}

func TestGetTagExclusiveArguments(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	tag := mustTag(t, db, "solo")
	name := tag.Name
	id := tag.ID

	_, err := db.GetTag(ctx, &name, &id)
	assert.ErrorIs(t, err, database.ErrNotExclusive)
	_, err = db.GetTag(ctx, nil, nil)
	assert.ErrorIs(t, err, database.ErrNotExclusive)

	byName, err := db.GetTag(ctx, &name, nil)
	require.NoError(t, err)
	byID, err := db.GetTag(ctx, nil, &id)
	require.NoError(t, err)
	assert.Same(t, byName, byID)
}

func TestGetTagByNameResolvesSynonyms(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	music := mustTag(t, db, "music")
	_, err := db.AddSynonym(ctx, music, "song")
	require.NoError(t, err)

	got, err := db.GetTagByName(ctx, "song")
	require.NoError(t, err)
	assert.Equal(t, "music", got.Name)
	assert.Same(t, music, got)

	_, err = db.GetTagByName(ctx, "absent")
	assert.ErrorIs(t, err, database.ErrNoSuchTag)
}

func TestTagHierarchy(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	media := mustTag(t, db, "media")
	music := mustTag(t, db, "music")
	jazz := mustTag(t, db, "jazz")
	mustGroup(t, db, media, music)
	mustGroup(t, db, music, jazz)

	parent, err := db.GetTagParent(ctx, jazz)
	require.NoError(t, err)
	assert.Same(t, music, parent)

	parent, err = db.GetTagParent(ctx, media)
	require.NoError(t, err)
	assert.Nil(t, parent)

	children, err := db.GetTagChildren(ctx, media)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Same(t, music, children[0])

	qualified, err := db.QualifiedTagName(ctx, jazz)
	require.NoError(t, err)
	assert.Equal(t, "media.music.jazz", qualified)

	roots, err := db.GetRootTags(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Same(t, media, roots[0])
}

func TestAddTagChildRejectsCycles(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	a := mustTag(t, db, "a1")
	b := mustTag(t, db, "b1")
	c := mustTag(t, db, "c1")
	mustGroup(t, db, a, b)
	mustGroup(t, db, b, c)

	assert.ErrorIs(t, db.AddTagChild(ctx, a, a), database.ErrRecursiveGrouping)
	assert.ErrorIs(t, db.AddTagChild(ctx, c, a), database.ErrRecursiveGrouping)

	// joining the same parent again is a no-op
	assert.NoError(t, db.AddTagChild(ctx, a, b))

	// a member grouped elsewhere cannot be claimed
	other := mustTag(t, db, "other")
	assert.ErrorIs(t, db.AddTagChild(ctx, other, b), database.ErrGroupExists)
}

func TestRemoveTagChild(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	parent := mustTag(t, db, "parent")
	child := mustTag(t, db, "child")
	stranger := mustTag(t, db, "stranger")
	mustGroup(t, db, parent, child)

	assert.ErrorIs(t, db.RemoveTagChild(ctx, parent, stranger), database.ErrNoSuchGroup)

	require.NoError(t, db.RemoveTagChild(ctx, parent, child))
	got, err := db.GetTagParent(ctx, child)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSynonyms(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	music := mustTag(t, db, "music")

	_, err := db.AddSynonym(ctx, music, "music")
	assert.ErrorIs(t, err, database.ErrCantSynonymSelf)

	name, err := db.AddSynonym(ctx, music, "Tunes")
	require.NoError(t, err)
	assert.Equal(t, "tunes", name)

	syns, err := db.GetSynonyms(ctx, music)
	require.NoError(t, err)
	assert.Equal(t, []string{"tunes"}, syns)

	_, err = db.RemoveSynonym(ctx, music, "nothere")
	assert.ErrorIs(t, err, database.ErrNoSuchSynonym)

	removed, err := db.RemoveSynonym(ctx, music, "tunes")
	require.NoError(t, err)
	assert.Equal(t, "tunes", removed)

	syns, err = db.GetSynonyms(ctx, music)
	require.NoError(t, err)
	assert.Empty(t, syns)
}

func TestRenameTag(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	music := mustTag(t, db, "music")
	_, err := db.AddSynonym(ctx, music, "tunes")
	require.NoError(t, err)

	mustTag(t, db, "taken")
	assert.ErrorIs(t, db.RenameTag(ctx, music, "taken", false), database.ErrTagExists)

	require.NoError(t, db.RenameTag(ctx, music, "audio", true))
	assert.Equal(t, "audio", music.Name)

	got, err := db.GetTagByName(ctx, "tunes")
	require.NoError(t, err)
	assert.Same(t, music, got)

	_, err = db.GetTagByName(ctx, "music")
	assert.ErrorIs(t, err, database.ErrNoSuchTag)
}

func TestEditTagDescription(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	tag := mustTag(t, db, "descr")
	desc := "  all about it  "
	require.NoError(t, db.EditTagDescription(ctx, tag, &desc))
	require.NotNil(t, tag.Description)
	assert.Equal(t, "all about it", *tag.Description)

	empty := "   "
	require.NoError(t, db.EditTagDescription(ctx, tag, &empty))
	assert.Nil(t, tag.Description)
}

func TestConvertTagToSynonymKeepsPhotoTagging(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o640))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	song := mustTag(t, db, "song")
	music := mustTag(t, db, "music")
	_, err = db.AddSynonym(ctx, song, "track")
	require.NoError(t, err)
	require.NoError(t, db.AddTag(ctx, photo, song))

	require.NoError(t, db.ConvertTagToSynonym(ctx, song, music))

	// the old name and its synonyms now resolve to the master
	got, err := db.GetTagByName(ctx, "song")
	require.NoError(t, err)
	assert.Same(t, music, got)
	got, err = db.GetTagByName(ctx, "track")
	require.NoError(t, err)
	assert.Same(t, music, got)

	hasIt, err := db.HasTag(ctx, photo, music, false)
	require.NoError(t, err)
	assert.True(t, hasIt)

	require.ErrorIs(t, db.ConvertTagToSynonym(ctx, music, music), database.ErrCantSynonymSelf)
}

func TestDeleteTagReparentsChildren(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	grandparent := mustTag(t, db, "grandparent")
	parent := mustTag(t, db, "parent")
	child := mustTag(t, db, "child")
	mustGroup(t, db, grandparent, parent)
	mustGroup(t, db, parent, child)

	require.NoError(t, db.DeleteTag(ctx, parent, false))

	_, err := db.GetTagByName(ctx, "parent")
	assert.ErrorIs(t, err, database.ErrNoSuchTag)

	got, err := db.GetTagParent(ctx, child)
	require.NoError(t, err)
	assert.Same(t, grandparent, got)
}

func TestDeleteTagRecursive(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	parent := mustTag(t, db, "parent")
	child := mustTag(t, db, "child")
	grandchild := mustTag(t, db, "grandchild")
	mustGroup(t, db, parent, child)
	mustGroup(t, db, child, grandchild)

	require.NoError(t, db.DeleteTag(ctx, parent, true))

	for _, name := range []string{"parent", "child", "grandchild"} {
		_, err := db.GetTagByName(ctx, name)
		assert.ErrorIs(t, err, database.ErrNoSuchTag, name)
	}
}

func TestFlatDescendants(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	media := mustTag(t, db, "media")
	music := mustTag(t, db, "music")
	jazz := mustTag(t, db, "jazz")
	mustGroup(t, db, media, music)
	mustGroup(t, db, music, jazz)
	_, err := db.AddSynonym(ctx, music, "tunes")
	require.NoError(t, err)

	flat, err := db.FlatDescendants(ctx)
	require.NoError(t, err)

	wantMedia := map[string]struct{}{
		"media": {}, "music": {}, "jazz": {},
	}
	assert.Equal(t, wantMedia, flat["media"])

	wantMusic := map[string]struct{}{
		"music": {}, "jazz": {},
	}
	assert.Equal(t, wantMusic, flat["music"])

	// synonym keys alias their master's set
	assert.Equal(t, flat["music"], flat["tunes"])

	// leaf sets are reflexive
	assert.Equal(t, map[string]struct{}{"jazz": {}}, flat["jazz"])
}

func TestFlatDescendantsInvalidatedByHierarchyChanges(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	parent := mustTag(t, db, "parent")
	child := mustTag(t, db, "child")

	flat, err := db.FlatDescendants(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"parent": {}}, flat["parent"])

	mustGroup(t, db, parent, child)

	flat, err = db.FlatDescendants(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"parent": {}, "child": {}}, flat["parent"])
}
