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
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voussoir/etiquette/pkg/database"
	"github.com/voussoir/etiquette/pkg/database/photodb"
	testhelpers "github.com/voussoir/etiquette/pkg/testing/helpers"
)

func writeTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o640))
	return path
}

// writeTestPNG renders a small real PNG so the image pipeline can decode it.
func writeTestPNG(t *testing.T, name string, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), name)
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(out, img))
	require.NoError(t, out.Close())
	return path
}

func TestNewPhoto(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "beach.JPG", []byte("jpeg-bytes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	assert.Equal(t, path, photo.Filepath)
	assert.Equal(t, "jpg", photo.Extension)
	assert.Equal(t, "beach.JPG", photo.Basename())
	assert.InDelta(t, float64(testhelpers.TestEpoch.Unix()), photo.Created, 0.001)

	fetched, err := db.GetPhoto(ctx, photo.ID)
	require.NoError(t, err)
	assert.Same(t, photo, fetched)
}

func TestNewPhotoRejectsDuplicatePaths(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "dup.jpg", []byte("jpeg-bytes"))
	_, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	_, err = db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	assert.ErrorIs(t, err, database.ErrPhotoExists)

	dup, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{AllowDuplicates: true})
	require.NoError(t, err)
	assert.Equal(t, path, dup.Filepath)
}

func TestNewPhotoRequiresExistingFile(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	_, err := db.NewPhoto(ctx, filepath.Join(t.TempDir(), "ghost.jpg"), photodb.NewPhotoOptions{})
	assert.Error(t, err)
}

func TestReloadMetadata(t *testing.T) {
	t.Parallel()
	db, _, toolkit := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	content := []byte("video-bytes-video-bytes-video-bytes-")
	path := writeTestFile(t, "clip.mp4", content)
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	toolkit.ProbeResult.Width = 640
	toolkit.ProbeResult.Height = 480
	toolkit.ProbeResult.Duration = 10

	require.NoError(t, db.ReloadMetadata(ctx, photo))

	require.NotNil(t, photo.Bytes)
	assert.Equal(t, int64(len(content)), *photo.Bytes)
	require.NotNil(t, photo.Width)
	assert.Equal(t, int64(640), *photo.Width)
	require.NotNil(t, photo.Height)
	assert.Equal(t, int64(480), *photo.Height)
	require.NotNil(t, photo.Area)
	assert.Equal(t, int64(640*480), *photo.Area)
	require.NotNil(t, photo.AspectRatio)
	assert.InDelta(t, 1.33, *photo.AspectRatio, 0.001)
	require.NotNil(t, photo.Duration)
	assert.InDelta(t, 10, *photo.Duration, 0.001)
	require.NotNil(t, photo.Bitrate)
	assert.InDelta(t, (float64(len(content))/128)/10, *photo.Bitrate, 0.001)
	require.NotNil(t, photo.SHA256)
	assert.Len(t, *photo.SHA256, 64)
	assert.Equal(t, []string{path}, toolkit.ProbeCalls)
}

func TestReloadMetadataToleratesProbeFailure(t *testing.T) {
	t.Parallel()
	db, _, toolkit := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "weird.bin", []byte("not-media"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	toolkit.ProbeErr = os.ErrInvalid
	require.NoError(t, db.ReloadMetadata(ctx, photo))

	require.NotNil(t, photo.Bytes)
	assert.Nil(t, photo.Width)
	assert.Nil(t, photo.Duration)
	require.NotNil(t, photo.SHA256)
}

func TestAddTagSubsumption(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "gig.jpg", []byte("jpeg-bytes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	media := mustTag(t, db, "media")
	music := mustTag(t, db, "music")
	jazz := mustTag(t, db, "jazz")
	mustGroup(t, db, media, music)
	mustGroup(t, db, music, jazz)

	// the photo carries jazz, so adding an ancestor changes nothing
	require.NoError(t, db.AddTag(ctx, photo, jazz))
	require.NoError(t, db.AddTag(ctx, photo, music))

	tags, err := db.GetTagsOfPhoto(ctx, photo)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Same(t, jazz, tags[0])

	hasIt, err := db.HasTag(ctx, photo, music, true)
	require.NoError(t, err)
	assert.True(t, hasIt)
	hasIt, err = db.HasTag(ctx, photo, music, false)
	require.NoError(t, err)
	assert.False(t, hasIt)
}

func TestAddTagReplacesAncestors(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "gig.jpg", []byte("jpeg-bytes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	media := mustTag(t, db, "media")
	music := mustTag(t, db, "music")
	jazz := mustTag(t, db, "jazz")
	mustGroup(t, db, media, music)
	mustGroup(t, db, music, jazz)

	require.NoError(t, db.AddTag(ctx, photo, media))
	require.NoError(t, db.AddTag(ctx, photo, jazz))

	// jazz subsumed the broader media tag
	tags, err := db.GetTagsOfPhoto(ctx, photo)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Same(t, jazz, tags[0])
	require.NotNil(t, photo.TaggedAt)
}

func TestRemoveTagRemovesDescendants(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "gig.jpg", []byte("jpeg-bytes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	music := mustTag(t, db, "music")
	jazz := mustTag(t, db, "jazz")
	mustGroup(t, db, music, jazz)

	require.NoError(t, db.AddTag(ctx, photo, jazz))
	require.NoError(t, db.RemoveTag(ctx, photo, music))

	tags, err := db.GetTagsOfPhoto(ctx, photo)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestSetOverrideFilename(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "dsc01234.jpg", []byte("jpeg-bytes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	name := "Sunset over the bay.jpg"
	require.NoError(t, db.SetOverrideFilename(ctx, photo, &name))
	assert.Equal(t, name, photo.Basename())

	empty := "  "
	require.NoError(t, db.SetOverrideFilename(ctx, photo, &empty))
	assert.Equal(t, "dsc01234.jpg", photo.Basename())
}

func TestSetSearchHidden(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "secret.jpg", []byte("jpeg-bytes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	require.NoError(t, db.SetSearchHidden(ctx, photo, true))
	assert.True(t, photo.SearchHidden)
	require.NoError(t, db.SetSearchHidden(ctx, photo, false))
	assert.False(t, photo.SearchHidden)
}

func TestDeletePhoto(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "keepfile.jpg", []byte("jpeg-bytes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	require.NoError(t, db.DeletePhoto(ctx, photo, false))
	_, err = db.GetPhoto(ctx, photo.ID)
	assert.ErrorIs(t, err, database.ErrNoSuchPhoto)
	// without deleteFile the bytes stay on disk
	assert.FileExists(t, path)
}

func TestDeletePhotoWithFile(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "dropfile.jpg", []byte("jpeg-bytes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	require.NoError(t, db.DeletePhoto(ctx, photo, true))
	assert.NoFileExists(t, path)
}

func TestDeletePhotoWithFileRollback(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "survivor.jpg", []byte("jpeg-bytes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	_, err = db.Savepoint(ctx)
	require.NoError(t, err)
	require.NoError(t, db.DeletePhoto(ctx, photo, true))
	// the file removal is deferred until commit
	assert.FileExists(t, path)
	require.NoError(t, db.Rollback(ctx))

	assert.FileExists(t, path)
	fetched, err := db.GetPhoto(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, path, fetched.Filepath)
}

func TestGenerateThumbnailImage(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestPNG(t, "real.png", 16, 12)
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	require.NoError(t, db.GenerateThumbnail(ctx, photo))

	require.NotNil(t, photo.Thumbnail)
	// ids are zero padded and chunked into 3-character directories
	assert.Regexp(t, `^(\d{3}/)+\d{12}\.jpg$`, *photo.Thumbnail)
	assert.FileExists(t, filepath.Join(db.ThumbnailDir(), filepath.FromSlash(*photo.Thumbnail)))
}

func TestGenerateThumbnailVideoUsesToolkit(t *testing.T) {
	t.Parallel()
	db, _, toolkit := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	// a minimal ftyp box so content sniffing agrees this is an mp4
	header := append([]byte{0, 0, 0, 0x18}, []byte("ftypmp42\x00\x00\x00\x00mp42isom")...)
	path := writeTestFile(t, "clip.mp4", header)
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	require.NoError(t, db.GenerateThumbnail(ctx, photo))

	require.NotNil(t, photo.Thumbnail)
	assert.Equal(t, []string{path}, toolkit.ThumbnailCalls)
}

func TestGenerateThumbnailSkipsUnknownClass(t *testing.T) {
	t.Parallel()
	db, _, toolkit := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "notes.bin", []byte("plain text notes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
	require.NoError(t, err)

	require.NoError(t, db.GenerateThumbnail(ctx, photo))

	assert.Nil(t, photo.Thumbnail)
	assert.Empty(t, toolkit.ThumbnailCalls)
}

func TestGenerateThumbnailsBatch(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	var photos []*database.Photo
	for _, name := range []string{"one.png", "two.png", "three.png"} {
		path := writeTestPNG(t, name, 8, 8)
		photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{})
		require.NoError(t, err)
		photos = append(photos, photo)
	}

	require.NoError(t, db.GenerateThumbnails(ctx, photos, 2))
	for _, photo := range photos {
		require.NotNil(t, photo.Thumbnail)
		assert.FileExists(t, filepath.Join(db.ThumbnailDir(), filepath.FromSlash(*photo.Thumbnail)))
	}
}

func TestNewPhotoWithEverything(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	author, err := db.RegisterUser(ctx, "ansel", []byte("halfdome"), nil)
	require.NoError(t, err)
	landscape := mustTag(t, db, "landscape")

	path := writeTestPNG(t, "yosemite.png", 20, 10)
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{
		Author:      author,
		Tags:        []*database.Tag{landscape},
		DoMetadata:  true,
		DoThumbnail: true,
	})
	require.NoError(t, err)

	require.NotNil(t, photo.AuthorID)
	assert.Equal(t, author.ID, *photo.AuthorID)
	require.NotNil(t, photo.Bytes)
	require.NotNil(t, photo.Thumbnail)

	hasIt, err := db.HasTag(ctx, photo, landscape, false)
	require.NoError(t, err)
	assert.True(t, hasIt)
}

func TestGetPhotoByDevIno(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	path := writeTestFile(t, "inode.jpg", []byte("jpeg-bytes"))
	photo, err := db.NewPhoto(ctx, path, photodb.NewPhotoOptions{DoMetadata: true})
	require.NoError(t, err)

	if photo.DevIno == nil {
		t.Skip("device/inode identity is unavailable on this platform")
	}

	found, err := db.GetPhotoByDevIno(ctx, *photo.DevIno)
	require.NoError(t, err)
	assert.Same(t, photo, found)

	_, err = db.GetPhotoByDevIno(ctx, "0,0")
	assert.ErrorIs(t, err, database.ErrNoSuchPhoto)
}
