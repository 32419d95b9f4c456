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
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/voussoir/etiquette/pkg/database"
)

// albumSumMemo caches an album's aggregate sums. The stamp pins the memo to
// one committed state of the database; a mismatch means recompute.
type albumSumMemo struct {
	stamp           int64
	bytes           *int64
	bytesRecursive  *int64
	photos          *int64
	photosRecursive *int64
}

// uncacheAlbumSums drops the sum memos of the album and all of its
// ancestors, since their recursive sums include this album.
func (db *PhotoDB) uncacheAlbumSums(ctx context.Context, album *database.Album) {
	delete(db.albumSums, album.ID)
	cursor := album.ID
	for {
		parentID, ok, err := sqlAlbumParentID(ctx, db.sql, cursor)
		if err != nil || !ok {
			return
		}
		delete(db.albumSums, parentID)
		cursor = parentID
	}
}

func (db *PhotoDB) cachedAlbum(row database.Album) *database.Album {
	if cached, ok := db.caches.albums.Get(row.ID); ok {
		return cached
	}
	album := row
	db.caches.albums.Add(album.ID, &album)
	return &album
}

func (db *PhotoDB) uncacheAlbumOnRollback(id int64) {
	db.OnRollback("uncache album", func() error {
		db.caches.albums.Remove(id)
		delete(db.albumSums, id)
		return nil
	})
}

// GetAlbum fetches an album by id.
func (db *PhotoDB) GetAlbum(ctx context.Context, id int64) (*database.Album, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if cached, ok := db.caches.albums.Get(id); ok {
		return cached, nil
	}
	row, err := sqlFindAlbumByID(ctx, db.sql, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.NoSuchAlbum(id)
		}
		return nil, err
	}
	return db.cachedAlbum(row), nil
}

// GetAlbums returns every album.
func (db *PhotoDB) GetAlbums(ctx context.Context) ([]*database.Album, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	rows, err := sqlAllAlbums(ctx, db.sql)
	if err != nil {
		return nil, err
	}
	albums := make([]*database.Album, 0, len(rows))
	for _, row := range rows {
		albums = append(albums, db.cachedAlbum(row))
	}
	return albums, nil
}

// GetRootAlbums returns albums that have no parent.
func (db *PhotoDB) GetRootAlbums(ctx context.Context) ([]*database.Album, error) {
	all, err := db.GetAlbums(ctx)
	if err != nil {
		return nil, err
	}
	var roots []*database.Album
	for _, album := range all {
		_, hasParent, err := sqlAlbumParentID(ctx, db.sql, album.ID)
		if err != nil {
			return nil, err
		}
		if !hasParent {
			roots = append(roots, album)
		}
	}
	return roots, nil
}

// NewAlbum creates an album, optionally seeded with photos.
func (db *PhotoDB) NewAlbum(ctx context.Context, title, description *string, author *database.User, photos []*database.Photo) (*database.Album, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if err := db.requireFeature("album.new"); err != nil {
		return nil, err
	}

	var album *database.Album
	err := db.withTransaction(ctx, func(ctx context.Context) error {
		id, err := db.NextID(ctx, "albums")
		if err != nil {
			return err
		}
		row := database.Album{
			ID:          id,
			Title:       normalizeTitle(title),
			Description: normalizeDescription(description),
			Created:     db.now(),
		}
		if author != nil {
			row.AuthorID = &author.ID
		}
		if err := sqlInsertAlbum(ctx, db.sql, row); err != nil {
			return err
		}
		album = db.cachedAlbum(row)
		db.uncacheAlbumOnRollback(id)

		for _, photo := range photos {
			if err := db.addAlbumPhoto(ctx, album, photo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return album, nil
}

// EditAlbum updates the album's title and description.
func (db *PhotoDB) EditAlbum(ctx context.Context, album *database.Album, title, description *string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("album.edit"); err != nil {
		return err
	}
	old := *album
	return db.withTransaction(ctx, func(ctx context.Context) error {
		album.Title = normalizeTitle(title)
		album.Description = normalizeDescription(description)
		if err := sqlUpdateAlbum(ctx, db.sql, *album); err != nil {
			return err
		}
		db.OnRollback("revert album edit", func() error {
			*album = old
			return nil
		})
		return nil
	})
}

// SetAlbumThumbnailPhoto picks the photo whose thumbnail represents the
// album, or clears it with nil.
func (db *PhotoDB) SetAlbumThumbnailPhoto(ctx context.Context, album *database.Album, photo *database.Photo) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("album.edit"); err != nil {
		return err
	}
	old := album.ThumbnailPhoto
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if photo == nil {
			album.ThumbnailPhoto = nil
		} else {
			album.ThumbnailPhoto = &photo.ID
		}
		if err := sqlUpdateAlbum(ctx, db.sql, *album); err != nil {
			return err
		}
		db.OnRollback("revert album thumbnail photo", func() error {
			album.ThumbnailPhoto = old
			return nil
		})
		return nil
	})
}

// GetAlbumParent returns the album's parent, or nil for a root album.
func (db *PhotoDB) GetAlbumParent(ctx context.Context, album *database.Album) (*database.Album, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	parentID, ok, err := sqlAlbumParentID(ctx, db.sql, album.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return db.GetAlbum(ctx, parentID)
}

// GetAlbumChildren returns the album's direct children.
func (db *PhotoDB) GetAlbumChildren(ctx context.Context, album *database.Album) ([]*database.Album, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	ids, err := sqlAlbumChildIDs(ctx, db.sql, album.ID)
	if err != nil {
		return nil, err
	}
	children := make([]*database.Album, 0, len(ids))
	for _, id := range ids {
		child, err := db.GetAlbum(ctx, id)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func (db *PhotoDB) albumAncestors(ctx context.Context, album *database.Album) ([]*database.Album, error) {
	var ancestors []*database.Album
	cursor := album
	for {
		parent, err := db.GetAlbumParent(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return ancestors, nil
		}
		ancestors = append(ancestors, parent)
		cursor = parent
	}
}

// AddAlbumChild nests member under parent, with the same single-parent and
// cycle rules as tag grouping.
func (db *PhotoDB) AddAlbumChild(ctx context.Context, parent, member *database.Album) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("album.edit"); err != nil {
		return err
	}
	if parent.ID == member.ID {
		return database.RecursiveGrouping(parent.DisplayTitle(), member.DisplayTitle())
	}

	existingParentID, hasParent, err := sqlAlbumParentID(ctx, db.sql, member.ID)
	if err != nil {
		return err
	}
	if hasParent {
		if existingParentID == parent.ID {
			return nil
		}
		return database.GroupExists(parent.DisplayTitle(), member.DisplayTitle())
	}

	ancestors, err := db.albumAncestors(ctx, parent)
	if err != nil {
		return err
	}
	for _, ancestor := range ancestors {
		if ancestor.ID == member.ID {
			return database.RecursiveGrouping(parent.DisplayTitle(), member.DisplayTitle())
		}
	}

	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlInsertAlbumGroupRel(ctx, db.sql, parent.ID, member.ID); err != nil {
			return err
		}
		db.uncacheAlbumSums(ctx, parent)
		return nil
	})
}

// RemoveAlbumChild detaches member from parent, making it a root album.
func (db *PhotoDB) RemoveAlbumChild(ctx context.Context, parent, member *database.Album) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("album.edit"); err != nil {
		return err
	}
	existingParentID, hasParent, err := sqlAlbumParentID(ctx, db.sql, member.ID)
	if err != nil {
		return err
	}
	if !hasParent || existingParentID != parent.ID {
		return database.NoSuchGroup(parent.DisplayTitle(), member.DisplayTitle())
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlDeleteAlbumGroupRelMember(ctx, db.sql, member.ID); err != nil {
			return err
		}
		db.uncacheAlbumSums(ctx, parent)
		return nil
	})
}

// AddAlbumPhoto puts the photo in the album; already-present photos are a
// no-op.
func (db *PhotoDB) AddAlbumPhoto(ctx context.Context, album *database.Album, photo *database.Photo) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("album.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		return db.addAlbumPhoto(ctx, album, photo)
	})
}

func (db *PhotoDB) addAlbumPhoto(ctx context.Context, album *database.Album, photo *database.Photo) error {
	if err := sqlInsertAlbumPhotoRel(ctx, db.sql, album.ID, photo.ID); err != nil {
		return err
	}
	db.uncacheAlbumSums(ctx, album)
	return nil
}

// RemoveAlbumPhoto takes the photo out of the album.
func (db *PhotoDB) RemoveAlbumPhoto(ctx context.Context, album *database.Album, photo *database.Photo) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("album.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if _, err := sqlDeleteAlbumPhotoRel(ctx, db.sql, album.ID, photo.ID); err != nil {
			return err
		}
		db.uncacheAlbumSums(ctx, album)
		return nil
	})
}

// AlbumHasPhoto reports direct membership.
func (db *PhotoDB) AlbumHasPhoto(ctx context.Context, album *database.Album, photo *database.Photo) (bool, error) {
	if db.sql == nil {
		return false, ErrNullSQL
	}
	return sqlAlbumHasPhoto(ctx, db.sql, album.ID, photo.ID)
}

// GetAlbumPhotos returns the album's direct photos.
func (db *PhotoDB) GetAlbumPhotos(ctx context.Context, album *database.Album) ([]*database.Photo, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	ids, err := sqlPhotoIDsOfAlbum(ctx, db.sql, album.ID)
	if err != nil {
		return nil, err
	}
	photos := make([]*database.Photo, 0, len(ids))
	for _, id := range ids {
		photo, err := db.GetPhoto(ctx, id)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, nil
}

// WalkAlbumPhotos returns the album's photos followed by those of all
// descendant albums, depth first.
func (db *PhotoDB) WalkAlbumPhotos(ctx context.Context, album *database.Album) ([]*database.Photo, error) {
	photos, err := db.GetAlbumPhotos(ctx, album)
	if err != nil {
		return nil, err
	}
	children, err := db.GetAlbumChildren(ctx, album)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		nested, err := db.WalkAlbumPhotos(ctx, child)
		if err != nil {
			return nil, err
		}
		photos = append(photos, nested...)
	}
	return photos, nil
}

// AddTagToAllAlbumPhotos applies the tag to every photo of the album, and
// with nested, of its descendant albums too.
func (db *PhotoDB) AddTagToAllAlbumPhotos(ctx context.Context, album *database.Album, tag *database.Tag, nested bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("photo.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		var photos []*database.Photo
		var err error
		if nested {
			photos, err = db.WalkAlbumPhotos(ctx, album)
		} else {
			photos, err = db.GetAlbumPhotos(ctx, album)
		}
		if err != nil {
			return err
		}
		for _, photo := range photos {
			if err := db.addTag(ctx, photo, tag); err != nil {
				return err
			}
		}
		return nil
	})
}

// SumBytes totals the byte sizes of the album's photos, and with recursive,
// of all descendant albums' photos too. Results are memoized until the
// album's membership changes or the next commit.
func (db *PhotoDB) SumBytes(ctx context.Context, album *database.Album, recursive bool) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	memo := db.albumSums[album.ID]
	if memo.stamp == db.commitCount {
		if !recursive && memo.bytes != nil {
			return *memo.bytes, nil
		}
		if recursive && memo.bytesRecursive != nil {
			return *memo.bytesRecursive, nil
		}
	} else {
		memo = albumSumMemo{stamp: db.commitCount}
	}

	total, err := sqlSumBytesOfAlbum(ctx, db.sql, album.ID)
	if err != nil {
		return 0, err
	}
	if !recursive {
		memo.bytes = &total
		db.albumSums[album.ID] = memo
		return total, nil
	}

	children, err := db.GetAlbumChildren(ctx, album)
	if err != nil {
		return 0, err
	}
	for _, child := range children {
		nested, err := db.SumBytes(ctx, child, true)
		if err != nil {
			return 0, err
		}
		total += nested
	}
	memo.bytesRecursive = &total
	db.albumSums[album.ID] = memo
	return total, nil
}

// SumPhotos counts the album's photos, recursively when asked. Memoized
// like SumBytes.
func (db *PhotoDB) SumPhotos(ctx context.Context, album *database.Album, recursive bool) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	memo := db.albumSums[album.ID]
	if memo.stamp == db.commitCount {
		if !recursive && memo.photos != nil {
			return *memo.photos, nil
		}
		if recursive && memo.photosRecursive != nil {
			return *memo.photosRecursive, nil
		}
	} else {
		memo = albumSumMemo{stamp: db.commitCount}
	}

	count, err := sqlCountPhotosOfAlbum(ctx, db.sql, album.ID)
	if err != nil {
		return 0, err
	}
	if !recursive {
		memo.photos = &count
		db.albumSums[album.ID] = memo
		return count, nil
	}

	children, err := db.GetAlbumChildren(ctx, album)
	if err != nil {
		return 0, err
	}
	for _, child := range children {
		nested, err := db.SumPhotos(ctx, child, true)
		if err != nil {
			return 0, err
		}
		count += nested
	}
	memo.photosRecursive = &count
	db.albumSums[album.ID] = memo
	return count, nil
}

/*
 * associated directories
 */

// GetAssociatedDirectories lists the filesystem directories the album
// mirrors.
func (db *PhotoDB) GetAssociatedDirectories(ctx context.Context, album *database.Album) ([]string, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlDirectoriesOfAlbum(ctx, db.sql, album.ID)
}

// GetAlbumsByDirectory returns the albums associated with a directory.
func (db *PhotoDB) GetAlbumsByDirectory(ctx context.Context, directory string) ([]*database.Album, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	directory, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to absolutize path: %w", err)
	}
	ids, err := sqlAlbumIDsByDirectory(ctx, db.sql, directory)
	if err != nil {
		return nil, err
	}
	albums := make([]*database.Album, 0, len(ids))
	for _, id := range ids {
		album, err := db.GetAlbum(ctx, id)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	return albums, nil
}

// AddAssociatedDirectory links a filesystem directory to the album so
// ingest can find it again.
func (db *PhotoDB) AddAssociatedDirectory(ctx context.Context, album *database.Album, directory string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("album.edit"); err != nil {
		return err
	}
	directory, err := filepath.Abs(directory)
	if err != nil {
		return fmt.Errorf("failed to absolutize path: %w", err)
	}
	existing, err := sqlDirectoriesOfAlbum(ctx, db.sql, album.ID)
	if err != nil {
		return err
	}
	for _, dir := range existing {
		if dir == directory {
			return nil
		}
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		return sqlInsertAlbumDirectory(ctx, db.sql, album.ID, directory)
	})
}

// DeleteAlbum removes the album. Without deleteChildren, child albums are
// reparented to this album's parent, or become roots.
func (db *PhotoDB) DeleteAlbum(ctx context.Context, album *database.Album, deleteChildren bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("album.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		return db.deleteAlbum(ctx, album, deleteChildren)
	})
}

func (db *PhotoDB) deleteAlbum(ctx context.Context, album *database.Album, deleteChildren bool) error {
	db.uncacheAlbumSums(ctx, album)

	children, err := db.GetAlbumChildren(ctx, album)
	if err != nil {
		return err
	}
	if deleteChildren {
		for _, child := range children {
			if err := db.deleteAlbum(ctx, child, true); err != nil {
				return err
			}
		}
	} else if len(children) > 0 {
		parentID, hasParent, err := sqlAlbumParentID(ctx, db.sql, album.ID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := sqlDeleteAlbumGroupRelMember(ctx, db.sql, child.ID); err != nil {
				return err
			}
			if hasParent {
				if err := sqlInsertAlbumGroupRel(ctx, db.sql, parentID, child.ID); err != nil {
					return err
				}
			}
		}
	}

	if err := sqlDeleteAlbumGroupRelMember(ctx, db.sql, album.ID); err != nil {
		return err
	}
	if err := sqlDeleteAlbumPhotoRelsOfAlbum(ctx, db.sql, album.ID); err != nil {
		return err
	}
	if err := sqlDeleteAlbumDirectories(ctx, db.sql, album.ID); err != nil {
		return err
	}
	if err := sqlDeleteAlbum(ctx, db.sql, album.ID); err != nil {
		return err
	}
	db.caches.albums.Remove(album.ID)
	delete(db.albumSums, album.ID)
	db.uncacheAlbumOnRollback(album.ID)
	return nil
}
