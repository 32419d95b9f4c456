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

package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voussoir/etiquette/pkg/database"
	"github.com/voussoir/etiquette/pkg/database/scanner"
	"github.com/voussoir/etiquette/pkg/helpers"
	testhelpers "github.com/voussoir/etiquette/pkg/testing/helpers"
)

// makeTree creates files under root, keyed by relative path. The digest
// opens files through the OS, so the tree goes on the real filesystem.
func makeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	tree := make(map[string][]byte, len(files))
	for rel, content := range files {
		tree[rel] = []byte(content)
	}
	testhelpers.NewOSFS().WriteTree(t, root, tree)
}

func basenames(photos []*database.Photo) []string {
	var out []string
	for _, photo := range photos {
		out = append(out, photo.Basename())
	}
	return out
}

func TestDigestDirectoryFlat(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"beta.jpg":  "beta-bytes",
		"alpha.jpg": "alpha-bytes",
	})

	report, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha.jpg", "beta.jpg"}, basenames(report.NewPhotos))
	assert.Empty(t, report.KnownPhotos)
	assert.Empty(t, report.MovedPhotos)
	assert.Empty(t, report.Albums)

	photo, err := db.GetPhotoByPath(ctx, filepath.Join(root, "alpha.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "alpha.jpg", photo.Basename())
}

func TestDigestContinuesPastBadFile(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"alpha.jpg": "alpha-bytes",
		"omega.jpg": "omega-bytes",
	})
	// a dangling symlink sorts between the two good files and fails to stat
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.jpg"), filepath.Join(root, "broken.jpg")))

	report, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha.jpg", "omega.jpg"}, basenames(report.NewPhotos))
	require.Len(t, report.Failures, 1)
	assert.Equal(t, filepath.Join(root, "broken.jpg"), report.Failures[0].Path)
	assert.ErrorContains(t, report.Failures[0].Err, "failed to stat")

	// the good files were committed despite the failure in between
	_, err = db.GetPhotoByPath(ctx, filepath.Join(root, "omega.jpg"))
	require.NoError(t, err)
}

func TestDigestNaturalOrdering(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)

	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"img10.jpg": "j",
		"img2.jpg":  "b",
		"img1.jpg":  "a",
	})

	var order []string
	_, err := scanner.DigestDirectory(context.Background(), db, root, scanner.Options{
		OnPhoto: func(photo *database.Photo) {
			order = append(order, photo.Basename())
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"img1.jpg", "img2.jpg", "img10.jpg"}, order)
}

func TestDigestIgnoresSubdirsWithoutRecurse(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"top.jpg":        "a",
		"nested/sub.jpg": "b",
	})

	report, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"top.jpg"}, basenames(report.NewPhotos))

	_, err = db.GetPhotoByPath(ctx, filepath.Join(root, "nested", "sub.jpg"))
	assert.ErrorIs(t, err, database.ErrNoSuchPhoto)
}

func TestDigestRecurseWithAlbums(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"cover.jpg":        "a",
		"vacation/sea.jpg": "b",
	})

	report, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{
		Recurse:    true,
		MakeAlbums: true,
	})
	require.NoError(t, err)
	require.Len(t, report.Albums, 2)
	assert.Len(t, report.NewPhotos, 2)

	rootAlbum := report.Albums[0]
	subAlbum := report.Albums[1]
	assert.Equal(t, filepath.Base(root), rootAlbum.DisplayTitle())
	assert.Equal(t, "vacation", subAlbum.DisplayTitle())

	parent, err := db.GetAlbumParent(ctx, subAlbum)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, rootAlbum.ID, parent.ID)

	photos, err := db.GetAlbumPhotos(ctx, subAlbum)
	require.NoError(t, err)
	assert.Equal(t, []string{"sea.jpg"}, basenames(photos))

	// the directory association makes the album findable for future runs
	albums, err := db.GetAlbumsByDirectory(ctx, filepath.Join(root, "vacation"))
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, subAlbum.ID, albums[0].ID)
}

func TestDigestSampleMediaTree(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	root := t.TempDir()
	paths := testhelpers.NewOSFS().SampleMediaTree(t, root)

	report, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{
		Recurse:    true,
		MakeAlbums: true,
	})
	require.NoError(t, err)
	assert.Len(t, report.NewPhotos, len(paths))
	// one album per directory: root, album1, album1/inner, album2
	assert.Len(t, report.Albums, 4)

	for _, path := range paths {
		_, err := db.GetPhotoByPath(ctx, path)
		assert.NoError(t, err, path)
	}
}

func TestDigestSecondRunReportsKnownPhotos(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	root := t.TempDir()
	makeTree(t, root, map[string]string{"one.jpg": "a", "two.jpg": "b"})

	first, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{})
	require.NoError(t, err)
	assert.Len(t, first.NewPhotos, 2)

	second, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{})
	require.NoError(t, err)
	assert.Empty(t, second.NewPhotos)
	assert.ElementsMatch(t, []string{"one.jpg", "two.jpg"}, basenames(second.KnownPhotos))
}

func TestDigestAlbumReusedAcrossRuns(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	root := t.TempDir()
	makeTree(t, root, map[string]string{"one.jpg": "a"})

	first, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{MakeAlbums: true})
	require.NoError(t, err)
	require.Len(t, first.Albums, 1)

	second, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{MakeAlbums: true})
	require.NoError(t, err)
	require.Len(t, second.Albums, 1)
	assert.Equal(t, first.Albums[0].ID, second.Albums[0].ID)
}

func TestDigestExcludePatterns(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"keep.jpg":         "a",
		"thumbs.db":        "junk",
		".git/config":      "junk",
		".git/objects/obj": "junk",
	})

	report, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{Recurse: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.jpg"}, basenames(report.NewPhotos))

	_, err = db.GetPhotoByPath(ctx, filepath.Join(root, "thumbs.db"))
	assert.ErrorIs(t, err, database.ErrNoSuchPhoto)
}

func TestDigestRecognizesMovedFiles(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	root := t.TempDir()
	oldPath := filepath.Join(root, "original.jpg")
	makeTree(t, root, map[string]string{"original.jpg": "stable-bytes"})

	info, err := os.Stat(oldPath)
	require.NoError(t, err)
	if _, ok := helpers.DevIno(info); !ok {
		t.Skip("device and inode identity not available on this platform")
	}

	first, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{DoMetadata: true})
	require.NoError(t, err)
	require.Len(t, first.NewPhotos, 1)
	photoID := first.NewPhotos[0].ID

	newPath := filepath.Join(root, "renamed.jpg")
	require.NoError(t, os.Rename(oldPath, newPath))

	second, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{DoMetadata: true})
	require.NoError(t, err)
	assert.Empty(t, second.NewPhotos)
	require.Len(t, second.MovedPhotos, 1)
	assert.Equal(t, photoID, second.MovedPhotos[0].ID)

	photo, err := db.GetPhotoByPath(ctx, newPath)
	require.NoError(t, err)
	assert.Equal(t, photoID, photo.ID)

	_, err = db.GetPhotoByPath(ctx, oldPath)
	assert.ErrorIs(t, err, database.ErrNoSuchPhoto)
}

func TestDigestCancelRollsBack(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)

	root := t.TempDir()
	makeTree(t, root, map[string]string{"one.jpg": "a", "two.jpg": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{
		OnPhoto: func(*database.Photo) {
			cancel()
		},
	})
	require.Error(t, err)

	// everything from the interrupted run rolled back
	_, err = db.GetPhotoByPath(context.Background(), filepath.Join(root, "one.jpg"))
	assert.ErrorIs(t, err, database.ErrNoSuchPhoto)
}

func TestDigestRootMustBeDirectory(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)

	root := t.TempDir()
	path := filepath.Join(root, "file.jpg")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	_, err := scanner.DigestDirectory(context.Background(), db, root+"/missing", scanner.Options{})
	assert.Error(t, err)

	_, err = scanner.DigestDirectory(context.Background(), db, path, scanner.Options{})
	assert.ErrorContains(t, err, "not a directory")
}

func TestDigestRecordsAuthor(t *testing.T) {
	t.Parallel()
	db, _, _ := testhelpers.NewTestPhotoDB(t)
	ctx := context.Background()

	author, err := db.RegisterUser(ctx, "curator", []byte("hunter22"), nil)
	require.NoError(t, err)

	root := t.TempDir()
	makeTree(t, root, map[string]string{"one.jpg": "a"})

	report, err := scanner.DigestDirectory(ctx, db, root, scanner.Options{
		Author:     author,
		MakeAlbums: true,
	})
	require.NoError(t, err)
	require.Len(t, report.NewPhotos, 1)
	require.NotNil(t, report.NewPhotos[0].AuthorID)
	assert.Equal(t, author.ID, *report.NewPhotos[0].AuthorID)
	require.Len(t, report.Albums, 1)
	require.NotNil(t, report.Albums[0].AuthorID)
	assert.Equal(t, author.ID, *report.Albums[0].AuthorID)
}
