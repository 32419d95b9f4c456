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
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/voussoir/etiquette/pkg/database"
	"github.com/voussoir/etiquette/pkg/helpers"
	"github.com/voussoir/etiquette/pkg/media"
)

func (db *PhotoDB) cachedPhoto(row database.Photo) *database.Photo {
	if cached, ok := db.caches.photos.Get(row.ID); ok {
		return cached
	}
	photo := row
	db.caches.photos.Add(photo.ID, &photo)
	return &photo
}

func (db *PhotoDB) uncachePhotoOnRollback(id int64) {
	db.OnRollback("uncache photo", func() error {
		db.caches.photos.Remove(id)
		return nil
	})
}

// GetPhoto fetches a photo by id.
func (db *PhotoDB) GetPhoto(ctx context.Context, id int64) (*database.Photo, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if cached, ok := db.caches.photos.Get(id); ok {
		return cached, nil
	}
	row, err := sqlFindPhotoByID(ctx, db.sql, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.NoSuchPhoto(id)
		}
		return nil, err
	}
	return db.cachedPhoto(row), nil
}

// GetPhotoByPath fetches a photo by its absolute file path.
func (db *PhotoDB) GetPhotoByPath(ctx context.Context, path string) (*database.Photo, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to absolutize path: %w", err)
	}
	row, err := sqlFindPhotoByPath(ctx, db.sql, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.NoSuchPhoto(path)
		}
		return nil, err
	}
	return db.cachedPhoto(row), nil
}

// GetPhotoByDevIno fetches a photo whose last-known device and inode pair
// matches. Ingest uses this to recognize files that moved on disk.
func (db *PhotoDB) GetPhotoByDevIno(ctx context.Context, devIno string) (*database.Photo, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	row, err := sqlFindPhotoByDevIno(ctx, db.sql, devIno)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.NoSuchPhoto(devIno)
		}
		return nil, err
	}
	return db.cachedPhoto(row), nil
}

// NewPhotoOptions tune photo creation.
type NewPhotoOptions struct {
	Author *database.User
	Tags   []*database.Tag

	// AllowDuplicates skips the existing-path check, creating a second row
	// for the same file.
	AllowDuplicates bool
	DoMetadata      bool
	DoThumbnail     bool
}

// NewPhoto registers a file as a photo. The file must exist.
func (db *PhotoDB) NewPhoto(ctx context.Context, path string, opts NewPhotoOptions) (*database.Photo, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if err := db.requireFeature("photo.new"); err != nil {
		return nil, err
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to absolutize path: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat new photo file: %w", err)
	}
	if !opts.AllowDuplicates {
		if _, err := sqlFindPhotoByPath(ctx, db.sql, path); err == nil {
			return nil, database.PhotoExists(path)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	var photo *database.Photo
	err = db.withTransaction(ctx, func(ctx context.Context) error {
		id, err := db.NextID(ctx, "photos")
		if err != nil {
			return err
		}
		row := database.Photo{
			ID:        id,
			Filepath:  path,
			Extension: extensionOf(path),
			Created:   db.now(),
		}
		if opts.Author != nil {
			row.AuthorID = &opts.Author.ID
		}
		if err := sqlInsertPhoto(ctx, db.sql, row); err != nil {
			return err
		}
		photo = db.cachedPhoto(row)
		db.uncachePhotoOnRollback(id)

		if opts.DoMetadata {
			if err := db.reloadMetadata(ctx, photo); err != nil {
				return err
			}
		}
		if opts.DoThumbnail {
			if err := db.generateThumbnail(ctx, photo); err != nil {
				return err
			}
		}
		for _, tag := range opts.Tags {
			if err := db.addTag(ctx, photo, tag); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

func extensionOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ReloadMetadata refreshes size, hash and media properties from the file.
// Decoder failures are logged and tolerated; the row keeps whatever was
// readable.
func (db *PhotoDB) ReloadMetadata(ctx context.Context, photo *database.Photo) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		return db.reloadMetadata(ctx, photo)
	})
}

func (db *PhotoDB) reloadMetadata(ctx context.Context, photo *database.Photo) error {
	old := *photo

	info, err := os.Stat(photo.Filepath)
	if err != nil {
		return fmt.Errorf("failed to stat photo file: %w", err)
	}
	bytes := info.Size()
	mtime := float64(info.ModTime().UnixMicro()) / 1e6
	photo.Bytes = &bytes
	photo.MTime = &mtime
	if devIno, ok := helpers.DevIno(info); ok {
		photo.DevIno = &devIno
	}

	if digest, err := db.hashFile(photo.Filepath); err != nil {
		log.Warn().Err(err).Str("filepath", photo.Filepath).Msg("failed to hash photo file")
	} else {
		photo.SHA256 = &digest
	}

	photo.Width = nil
	photo.Height = nil
	photo.Area = nil
	photo.AspectRatio = nil
	photo.Duration = nil
	photo.Bitrate = nil
	probe, err := db.toolkit.Probe(ctx, photo.Filepath)
	if err != nil {
		log.Warn().Err(err).Str("filepath", photo.Filepath).Msg("failed to probe photo file")
	} else {
		if probe.Width > 0 && probe.Height > 0 {
			width := int64(probe.Width)
			height := int64(probe.Height)
			area := width * height
			ratio := math.Round(float64(width)/float64(height)*100) / 100
			photo.Width = &width
			photo.Height = &height
			photo.Area = &area
			photo.AspectRatio = &ratio
		}
		if probe.Duration > 0 {
			duration := probe.Duration
			photo.Duration = &duration
			bitrate := (float64(bytes) / 128) / duration
			photo.Bitrate = &bitrate
		}
	}

	if err := sqlUpdatePhotoMetadata(ctx, db.sql, *photo); err != nil {
		return err
	}
	db.OnRollback("revert photo metadata", func() error {
		*photo = old
		return nil
	})
	return nil
}

// hashFile digests a file in configured chunks so huge videos do not grab
// one contiguous buffer.
func (db *PhotoDB) hashFile(path string) (string, error) {
	handle, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer func() {
		if closeErr := handle.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close file after hashing")
		}
	}()

	hasher := sha256.New()
	buffer := make([]byte, db.cfg.FileReadChunk())
	if _, err := io.CopyBuffer(hasher, handle, buffer); err != nil {
		return "", fmt.Errorf("failed to read file for hashing: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// AddTag applies a tag to the photo under the subsumption rule: if the photo
// already carries the tag or any of its descendants, nothing happens; any
// ancestor of the tag present on the photo is removed first.
func (db *PhotoDB) AddTag(ctx context.Context, photo *database.Photo, tag *database.Tag) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		return db.addTag(ctx, photo, tag)
	})
}

func (db *PhotoDB) addTag(ctx context.Context, photo *database.Photo, tag *database.Tag) error {
	hasIt, err := sqlPhotoHasTag(ctx, db.sql, photo.ID, tag.ID)
	if err != nil {
		return err
	}
	if hasIt {
		return nil
	}

	flat, err := db.FlatDescendants(ctx)
	if err != nil {
		return err
	}
	descendants := flat[tag.Name]

	current, err := db.GetTagsOfPhoto(ctx, photo)
	if err != nil {
		return err
	}
	for _, existing := range current {
		if _, ok := descendants[existing.Name]; ok {
			// a more specific tag already covers this branch
			return nil
		}
	}

	ancestors, err := db.tagAncestors(ctx, tag)
	if err != nil {
		return err
	}
	for _, ancestor := range ancestors {
		if _, err := sqlDeletePhotoTagRel(ctx, db.sql, photo.ID, ancestor.ID); err != nil {
			return err
		}
	}

	if err := sqlInsertPhotoTagRel(ctx, db.sql, photo.ID, tag.ID); err != nil {
		return err
	}
	return db.touchTaggedAt(ctx, photo)
}

func (db *PhotoDB) touchTaggedAt(ctx context.Context, photo *database.Photo) error {
	old := photo.TaggedAt
	now := db.now()
	if err := sqlUpdatePhotoTaggedAt(ctx, db.sql, photo.ID, now); err != nil {
		return err
	}
	photo.TaggedAt = &now
	db.OnRollback("revert photo tagged_at", func() error {
		photo.TaggedAt = old
		return nil
	})
	return nil
}

// RemoveTag removes the tag and all of its descendants from the photo.
func (db *PhotoDB) RemoveTag(ctx context.Context, photo *database.Photo, tag *database.Tag) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		family, err := db.walkTagChildren(ctx, tag)
		if err != nil {
			return err
		}
		for _, member := range family {
			if _, err := sqlDeletePhotoTagRel(ctx, db.sql, photo.ID, member.ID); err != nil {
				return err
			}
		}
		return db.touchTaggedAt(ctx, photo)
	})
}

// HasTag reports whether the photo carries the tag. With checkChildren, a
// descendant of the tag counts too.
func (db *PhotoDB) HasTag(ctx context.Context, photo *database.Photo, tag *database.Tag, checkChildren bool) (bool, error) {
	if db.sql == nil {
		return false, ErrNullSQL
	}
	if !checkChildren {
		return sqlPhotoHasTag(ctx, db.sql, photo.ID, tag.ID)
	}
	family, err := db.walkTagChildren(ctx, tag)
	if err != nil {
		return false, err
	}
	for _, member := range family {
		hasIt, err := sqlPhotoHasTag(ctx, db.sql, photo.ID, member.ID)
		if err != nil {
			return false, err
		}
		if hasIt {
			return true, nil
		}
	}
	return false, nil
}

// GetTagsOfPhoto returns the tags applied to the photo.
func (db *PhotoDB) GetTagsOfPhoto(ctx context.Context, photo *database.Photo) ([]*database.Tag, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	ids, err := sqlTagIDsOfPhoto(ctx, db.sql, photo.ID)
	if err != nil {
		return nil, err
	}
	tags := make([]*database.Tag, 0, len(ids))
	for _, id := range ids {
		tag, err := db.GetTagByID(ctx, id)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// SetSearchHidden toggles the photo's exclusion from default search results.
func (db *PhotoDB) SetSearchHidden(ctx context.Context, photo *database.Photo, hidden bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}
	old := photo.SearchHidden
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlUpdatePhotoSearchHidden(ctx, db.sql, photo.ID, hidden); err != nil {
			return err
		}
		photo.SearchHidden = hidden
		db.OnRollback("revert photo searchhidden", func() error {
			photo.SearchHidden = old
			return nil
		})
		return nil
	})
}

// SetOverrideFilename changes the display filename without touching the file.
func (db *PhotoDB) SetOverrideFilename(ctx context.Context, photo *database.Photo, name *string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}
	name = normalizeTitle(name)
	old := photo.OverrideFilename
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlUpdatePhotoOverrideFilename(ctx, db.sql, photo.ID, name); err != nil {
			return err
		}
		photo.OverrideFilename = name
		db.OnRollback("revert photo override filename", func() error {
			photo.OverrideFilename = old
			return nil
		})
		return nil
	})
}

// RenameFile renames or relocates the photo's file. The new content is put
// in place immediately via link or copy, but the old file is only removed
// when the outermost transaction commits; a rollback removes the new copy
// instead, leaving the original untouched.
func (db *PhotoDB) RenameFile(ctx context.Context, photo *database.Photo, newName string, move bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}

	oldPath := photo.Filepath
	newPath := newName
	if !strings.ContainsRune(newName, os.PathSeparator) {
		newPath = filepath.Join(filepath.Dir(oldPath), newName)
	}
	newPath, err := filepath.Abs(newPath)
	if err != nil {
		return fmt.Errorf("failed to absolutize path: %w", err)
	}

	if newPath == oldPath {
		return fmt.Errorf("rename target is identical to the current path %q", oldPath)
	}
	if !move && filepath.Dir(newPath) != filepath.Dir(oldPath) {
		return fmt.Errorf("rename would change directory, use move to relocate %q", oldPath)
	}

	caseOnly := strings.EqualFold(newPath, oldPath)

	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := os.MkdirAll(filepath.Dir(newPath), 0o750); err != nil {
			return fmt.Errorf("failed to create destination directory: %w", err)
		}

		if caseOnly {
			// same file under a case-insensitive filesystem; rename in
			// place once the transaction is safe
			if err := db.OnCommit("rename photo file", func() error {
				return os.Rename(oldPath, newPath)
			}); err != nil {
				return err
			}
		} else {
			if err := linkOrCopy(oldPath, newPath); err != nil {
				return err
			}
			db.OnRollback("remove renamed photo file", func() error {
				return os.Remove(newPath)
			})
			if err := db.OnCommit("remove old photo file", func() error {
				return os.Remove(oldPath)
			}); err != nil {
				return err
			}
		}

		if err := sqlUpdatePhotoFilepath(ctx, db.sql, photo.ID, newPath, extensionOf(newPath)); err != nil {
			return err
		}
		photo.Filepath = newPath
		photo.Extension = extensionOf(newPath)
		db.OnRollback("revert photo filepath", func() error {
			photo.Filepath = oldPath
			photo.Extension = extensionOf(oldPath)
			return nil
		})
		return nil
	})
}

// RelocatePhoto points the row at a file that already moved on disk. No
// filesystem changes happen; ingest calls this when inode matching finds a
// renamed file.
func (db *PhotoDB) RelocatePhoto(ctx context.Context, photo *database.Photo, newPath string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}
	newPath, err := filepath.Abs(newPath)
	if err != nil {
		return fmt.Errorf("failed to absolutize path: %w", err)
	}
	oldPath := photo.Filepath
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlUpdatePhotoFilepath(ctx, db.sql, photo.ID, newPath, extensionOf(newPath)); err != nil {
			return err
		}
		photo.Filepath = newPath
		photo.Extension = extensionOf(newPath)
		db.OnRollback("revert photo filepath", func() error {
			photo.Filepath = oldPath
			photo.Extension = extensionOf(oldPath)
			return nil
		})
		return nil
	})
}

func linkOrCopy(oldPath, newPath string) error {
	if err := os.Link(oldPath, newPath); err == nil {
		return nil
	}
	source, err := os.Open(oldPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close source file")
		}
	}()
	dest, err := os.OpenFile(newPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	if _, err := io.Copy(dest, source); err != nil {
		_ = dest.Close()
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}

// DeletePhoto removes the photo row and its relations. With deleteFile the
// underlying file and thumbnail are removed once the outermost transaction
// commits.
func (db *PhotoDB) DeletePhoto(ctx context.Context, photo *database.Photo, deleteFile bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlDeletePhotoTagRelsOfPhoto(ctx, db.sql, photo.ID); err != nil {
			return err
		}
		if err := sqlDeleteAlbumPhotoRelsOfPhoto(ctx, db.sql, photo.ID); err != nil {
			return err
		}
		if err := sqlDeletePhoto(ctx, db.sql, photo.ID); err != nil {
			return err
		}
		db.caches.photos.Remove(photo.ID)
		db.uncachePhotoOnRollback(photo.ID)

		if deleteFile {
			path := photo.Filepath
			if err := db.OnCommit("remove deleted photo file", func() error {
				return os.Remove(path)
			}); err != nil {
				return err
			}
			if photo.Thumbnail != nil {
				thumbPath := filepath.Join(db.ThumbnailDir(), filepath.FromSlash(*photo.Thumbnail))
				if err := db.OnCommit("remove deleted photo thumbnail", func() error {
					return os.Remove(thumbPath)
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GenerateThumbnail renders the photo's thumbnail into the chunked tree and
// records its relative path.
func (db *PhotoDB) GenerateThumbnail(ctx context.Context, photo *database.Photo) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		return db.generateThumbnail(ctx, photo)
	})
}

func (db *PhotoDB) generateThumbnail(ctx context.Context, photo *database.Photo) error {
	relpath, rendered, err := db.renderThumbnail(ctx, photo)
	if err != nil {
		return err
	}
	if !rendered {
		return nil
	}
	return db.recordThumbnail(ctx, photo, relpath)
}

func (db *PhotoDB) recordThumbnail(ctx context.Context, photo *database.Photo, relpath string) error {
	outPath := filepath.Join(db.ThumbnailDir(), filepath.FromSlash(relpath))
	old := photo.Thumbnail
	if err := sqlUpdatePhotoThumbnail(ctx, db.sql, photo.ID, &relpath); err != nil {
		return err
	}
	photo.Thumbnail = &relpath
	db.OnRollback("remove rendered thumbnail", func() error {
		photo.Thumbnail = old
		return os.Remove(outPath)
	})
	return nil
}

// renderThumbnail writes the thumbnail file and returns its path relative
// to the thumbnail directory. Audio and unrecognized files render nothing.
func (db *PhotoDB) renderThumbnail(ctx context.Context, photo *database.Photo) (string, bool, error) {
	relpath := db.thumbnailRelPath(photo.ID)
	outPath := filepath.Join(db.ThumbnailDir(), filepath.FromSlash(relpath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return "", false, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	class := photo.MimeClass()
	if class == "" {
		detected, err := media.DetectClass(photo.Filepath)
		if err != nil {
			log.Warn().Err(err).Str("filepath", photo.Filepath).Msg("failed to sniff photo file")
			return "", false, nil
		}
		class = detected
	}

	width, height := db.cfg.ThumbnailBounds()
	switch class {
	case "image":
		if err := media.WriteImageThumbnail(photo.Filepath, outPath, width, height); err != nil {
			return "", false, fmt.Errorf("failed to render image thumbnail: %w", err)
		}
	case "video":
		atTime := 0.0
		if photo.Duration != nil && *photo.Duration >= 3 {
			atTime = 2
		}
		if err := db.toolkit.Thumbnail(ctx, photo.Filepath, atTime, width, height, outPath, media.ThumbnailQuality); err != nil {
			return "", false, fmt.Errorf("failed to render video thumbnail: %w", err)
		}
	default:
		return "", false, nil
	}
	return relpath, true, nil
}

// thumbnailRelPath chunks the zero-padded photo id into 3-character
// directory segments, e.g. id 12345 with length 12 becomes
// 000/000/012/000000012345.jpg.
func (db *PhotoDB) thumbnailRelPath(id int64) string {
	padded := fmt.Sprintf("%0*d", db.cfg.IDLength(), id)
	var segments []string
	for i := 0; i+3 < len(padded); i += 3 {
		segments = append(segments, padded[i:i+3])
	}
	segments = append(segments, padded+".jpg")
	return strings.Join(segments, "/")
}

// GenerateThumbnails renders thumbnails for many photos with a bounded
// worker pool, then records all results in a single transaction. A failed
// render cancels the remaining work.
func (db *PhotoDB) GenerateThumbnails(ctx context.Context, photos []*database.Photo, workers int) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}
	if workers < 1 {
		workers = 1
	}

	relpaths := make([]string, len(photos))
	rendered := make([]bool, len(photos))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, photo := range photos {
		i, photo := i, photo
		group.Go(func() error {
			relpath, ok, err := db.renderThumbnail(groupCtx, photo)
			if err != nil {
				return err
			}
			relpaths[i] = relpath
			rendered[i] = ok
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	return db.withTransaction(ctx, func(ctx context.Context) error {
		for i, photo := range photos {
			if !rendered[i] {
				continue
			}
			if err := db.recordThumbnail(ctx, photo, relpaths[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
