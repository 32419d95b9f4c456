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

package database_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voussoir/etiquette/pkg/database"
)

func TestErrorCodesMatchUnderIs(t *testing.T) {
	t.Parallel()

	err := database.NoSuchTag("sunset")
	assert.ErrorIs(t, err, database.ErrNoSuchTag)
	assert.NotErrorIs(t, err, database.ErrNoSuchPhoto)
	assert.Contains(t, err.Error(), "sunset")

	// wrapping preserves code matching
	wrapped := fmt.Errorf("during digest: %w", database.PhotoExists("/x/y.jpg"))
	assert.ErrorIs(t, wrapped, database.ErrPhotoExists)

	var typed *database.Error
	assert.True(t, errors.As(wrapped, &typed))
	assert.Equal(t, "PHOTO_EXISTS", typed.Code)
}

func TestErrorMessageFallsBackToCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "NO_SUCH_TAG", database.ErrNoSuchTag.Error())
	assert.NotEqual(t, "NO_SUCH_TAG", database.NoSuchTag(7).Error())
}

func TestWarningBag(t *testing.T) {
	t.Parallel()
	bag := database.NewWarningBag()
	assert.True(t, bag.Empty())

	bag.Add("no such tag %q", "ghost")
	bag.AddError(errors.New("range broke"))

	assert.False(t, bag.Empty())
	warnings := bag.Warnings()
	assert.Len(t, warnings, 2)
	assert.Equal(t, `no such tag "ghost"`, warnings[0])
	assert.Equal(t, "range broke", warnings[1])
}

func TestPhotoBasename(t *testing.T) {
	t.Parallel()
	photo := database.Photo{Filepath: "/media/pics/beach.jpg"}
	assert.Equal(t, "beach.jpg", photo.Basename())

	override := "vacation shot.jpg"
	photo.OverrideFilename = &override
	assert.Equal(t, "vacation shot.jpg", photo.Basename())

	empty := ""
	photo.OverrideFilename = &empty
	assert.Equal(t, "beach.jpg", photo.Basename())
}

func TestPhotoMimeClass(t *testing.T) {
	t.Parallel()
	photo := database.Photo{Extension: "png"}
	assert.Equal(t, "image/png", photo.Mimetype())
	assert.Equal(t, "image", photo.MimeClass())

	photo.Extension = ""
	assert.Equal(t, "", photo.Mimetype())
	assert.Equal(t, "", photo.MimeClass())
}

func TestAlbumDisplayTitle(t *testing.T) {
	t.Parallel()
	var album database.Album
	assert.Equal(t, "", album.DisplayTitle())

	title := "Holiday"
	album.Title = &title
	assert.Equal(t, "Holiday", album.DisplayTitle())
}

func TestUserDisplayableName(t *testing.T) {
	t.Parallel()
	user := database.User{Username: "ansel"}
	assert.Equal(t, "ansel", user.DisplayableName())

	display := "Ansel A."
	user.DisplayName = &display
	assert.Equal(t, "Ansel A.", user.DisplayableName())
}
