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

// Package scanner ingests directory trees into the catalog: each file
// becomes a photo, moved files are recognized by inode instead of
// re-created, and directories can be mirrored as nested albums.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/voussoir/etiquette/pkg/database"
	"github.com/voussoir/etiquette/pkg/database/photodb"
	"github.com/voussoir/etiquette/pkg/helpers"
)

// Options tune one digest run.
type Options struct {
	// Author is recorded on photos and albums created by this run.
	Author *database.User

	// Recurse descends into subdirectories.
	Recurse bool

	// MakeAlbums mirrors the directory tree as albums, nesting each new
	// album under its parent directory's album.
	MakeAlbums bool

	// DoMetadata and DoThumbnail run those steps on newly created photos.
	DoMetadata  bool
	DoThumbnail bool

	// OnPhoto, when set, is called for every photo the digest touches, in
	// walk order, before the digest finishes.
	OnPhoto func(*database.Photo)

	// OnAlbum, when set, is called for every album the digest creates or
	// reuses.
	OnAlbum func(*database.Album)
}

// Report summarizes one digest run.
type Report struct {
	NewPhotos   []*database.Photo
	KnownPhotos []*database.Photo
	MovedPhotos []*database.Photo
	Albums      []*database.Album
	Failures    []DigestFailure
}

// DigestFailure records one file the digest could not ingest.
type DigestFailure struct {
	Path string
	Err  error
}

// DigestDirectory walks a directory tree and registers every file as a
// photo. Files that cannot be ingested are logged and recorded on the
// report without stopping the walk. The whole run happens in one
// transaction; cancelling the context rolls everything back.
func DigestDirectory(ctx context.Context, db *photodb.PhotoDB, root string, opts Options) (*Report, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to absolutize path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat digest root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("digest root %q is not a directory", root)
	}

	report := &Report{}
	savepoint, err := db.Savepoint(ctx)
	if err != nil {
		return nil, err
	}
	if err := digestOne(ctx, db, root, nil, opts, report); err != nil {
		// the context may be the reason we are bailing, so the rollback
		// must not inherit its cancellation
		if rbErr := db.RollbackTo(context.WithoutCancel(ctx), savepoint); rbErr != nil {
			log.Warn().Err(rbErr).Msg("failed to roll back digest savepoint")
		}
		return nil, err
	}
	if err := db.ReleaseSavepoint(ctx, savepoint, true); err != nil {
		return nil, err
	}
	return report, nil
}

// digestOne processes a single directory and recurses into its children.
// parentAlbum is the album of the directory above, nil at the root or when
// MakeAlbums is off.
func digestOne(ctx context.Context, db *photodb.PhotoDB, dir string, parentAlbum *database.Album, opts Options, report *Report) error {
	excludeFiles, excludeDirs := db.Config().DigestExcludes()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	var subdirs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			if !matchesAny(name, excludeDirs) {
				subdirs = append(subdirs, name)
			}
			continue
		}
		if !matchesAny(name, excludeFiles) {
			files = append(files, name)
		}
	}
	// natural order keeps created timestamps monotone with how a person
	// would read the directory listing
	helpers.SortNatural(files)
	helpers.SortNatural(subdirs)

	var album *database.Album
	if opts.MakeAlbums {
		album, err = ensureAlbum(ctx, db, dir, parentAlbum, opts)
		if err != nil {
			return err
		}
		report.Albums = append(report.Albums, album)
		if opts.OnAlbum != nil {
			opts.OnAlbum(album)
		}
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		photo, err := createOrFetchPhoto(ctx, db, path, opts, report)
		if err != nil {
			// a dead context aborts the run; any other error belongs to
			// this one file, whose own savepoint has already rolled back
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Str("path", path).Msg("failed to ingest file")
			report.Failures = append(report.Failures, DigestFailure{Path: path, Err: err})
			continue
		}
		if album != nil {
			if err := db.AddAlbumPhoto(ctx, album, photo); err != nil {
				return err
			}
		}
		if opts.OnPhoto != nil {
			opts.OnPhoto(photo)
		}
	}

	if !opts.Recurse {
		return nil
	}
	for _, name := range subdirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := digestOne(ctx, db, filepath.Join(dir, name), album, opts, report); err != nil {
			return err
		}
	}
	return nil
}

// createOrFetchPhoto looks a file up by path, then by device and inode with
// a matching size to catch moved files, and creates a new photo otherwise.
func createOrFetchPhoto(ctx context.Context, db *photodb.PhotoDB, path string, opts Options, report *Report) (*database.Photo, error) {
	photo, err := db.GetPhotoByPath(ctx, path)
	if err == nil {
		report.KnownPhotos = append(report.KnownPhotos, photo)
		return photo, nil
	}
	if !errors.Is(err, database.ErrNoSuchPhoto) {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat digest file: %w", err)
	}
	if devIno, ok := helpers.DevIno(info); ok {
		moved, err := db.GetPhotoByDevIno(ctx, devIno)
		if err == nil && moved.Bytes != nil && *moved.Bytes == info.Size() {
			log.Info().
				Str("old", moved.Filepath).
				Str("new", path).
				Msg("recognized moved file by inode")
			if err := db.RelocatePhoto(ctx, moved, path); err != nil {
				return nil, err
			}
			report.MovedPhotos = append(report.MovedPhotos, moved)
			return moved, nil
		}
		if err != nil && !errors.Is(err, database.ErrNoSuchPhoto) {
			return nil, err
		}
	}

	photo, err = db.NewPhoto(ctx, path, photodb.NewPhotoOptions{
		Author:      opts.Author,
		DoMetadata:  opts.DoMetadata,
		DoThumbnail: opts.DoThumbnail,
	})
	if err != nil {
		return nil, err
	}
	report.NewPhotos = append(report.NewPhotos, photo)
	return photo, nil
}

// ensureAlbum reuses the album already associated with the directory or
// creates one titled after the directory's basename. A fresh or orphaned
// album is nested under the parent directory's album.
func ensureAlbum(ctx context.Context, db *photodb.PhotoDB, dir string, parentAlbum *database.Album, opts Options) (*database.Album, error) {
	albums, err := db.GetAlbumsByDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}

	var album *database.Album
	if len(albums) > 0 {
		album = albums[0]
	} else {
		title := filepath.Base(dir)
		album, err = db.NewAlbum(ctx, &title, nil, opts.Author, nil)
		if err != nil {
			return nil, err
		}
		if err := db.AddAssociatedDirectory(ctx, album, dir); err != nil {
			return nil, err
		}
	}

	if parentAlbum != nil {
		existingParent, err := db.GetAlbumParent(ctx, album)
		if err != nil {
			return nil, err
		}
		if existingParent == nil {
			if err := db.AddAlbumChild(ctx, parentAlbum, album); err != nil {
				return nil, err
			}
		}
	}
	return album, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("invalid digest exclude pattern")
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
