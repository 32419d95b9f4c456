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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voussoir/etiquette/pkg/database/photodb"
	testhelpers "github.com/voussoir/etiquette/pkg/testing/helpers"
)

func TestEasyBakeChain(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	notes, err := db.EasyBake(ctx, "media.music.jazz", nil)
	require.NoError(t, err)
	assert.Equal(t, []photodb.BakeNote{
		{Action: "new_tag", Name: "media"},
		{Action: "new_tag", Name: "music"},
		{Action: "join_group", Name: "media.music"},
		{Action: "new_tag", Name: "jazz"},
		{Action: "join_group", Name: "media.music.jazz"},
	}, notes)

	jazz, err := db.GetTagByName(ctx, "jazz")
	require.NoError(t, err)
	qualified, err := db.QualifiedTagName(ctx, jazz)
	require.NoError(t, err)
	assert.Equal(t, "media.music.jazz", qualified)
}

func TestEasyBakeExistingTagsAreReused(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	_, err := db.EasyBake(ctx, "media.music", nil)
	require.NoError(t, err)

	notes, err := db.EasyBake(ctx, "media.music.jazz", nil)
	require.NoError(t, err)
	assert.Equal(t, []photodb.BakeNote{
		{Action: "existing_tag", Name: "media"},
		{Action: "existing_tag", Name: "media.music"},
		{Action: "new_tag", Name: "jazz"},
		{Action: "join_group", Name: "media.music.jazz"},
	}, notes)
}

func TestEasyBakeSynonym(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	notes, err := db.EasyBake(ctx, "media.music+song", nil)
	require.NoError(t, err)
	assert.Contains(t, notes, photodb.BakeNote{Action: "add_synonym", Name: "media.music"})

	got, err := db.GetTagByName(ctx, "song")
	require.NoError(t, err)
	assert.Equal(t, "music", got.Name)
}

func TestEasyBakeRename(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	_, err := db.EasyBake(ctx, "media.music", nil)
	require.NoError(t, err)

	notes, err := db.EasyBake(ctx, "media.music=audio", nil)
	require.NoError(t, err)
	assert.Contains(t, notes, photodb.BakeNote{Action: "rename_tag", Name: "media.audio"})

	_, err = db.GetTagByName(ctx, "music")
	assert.Error(t, err)
	audio, err := db.GetTagByName(ctx, "audio")
	require.NoError(t, err)
	assert.Equal(t, "audio", audio.Name)
}

func TestEasyBakeRejectsBadExpressions(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	_, err := db.EasyBake(ctx, "", nil)
	assert.Error(t, err)
	_, err = db.EasyBake(ctx, "a=b+c", nil)
	assert.Error(t, err)
	_, err = db.EasyBake(ctx, "music+", nil)
	assert.Error(t, err)
	_, err = db.EasyBake(ctx, "music=", nil)
	assert.Error(t, err)
}
