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
	"strings"

	"github.com/voussoir/etiquette/pkg/database"
)

func (db *PhotoDB) cachedBookmark(row database.Bookmark) *database.Bookmark {
	if cached, ok := db.caches.bookmarks.Get(row.ID); ok {
		return cached
	}
	bookmark := row
	db.caches.bookmarks.Add(bookmark.ID, &bookmark)
	return &bookmark
}

// GetBookmark fetches a bookmark by id.
func (db *PhotoDB) GetBookmark(ctx context.Context, id int64) (*database.Bookmark, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if cached, ok := db.caches.bookmarks.Get(id); ok {
		return cached, nil
	}
	row, err := sqlFindBookmarkByID(ctx, db.sql, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.NoSuchBookmark(id)
		}
		return nil, err
	}
	return db.cachedBookmark(row), nil
}

// GetBookmarks returns every bookmark.
func (db *PhotoDB) GetBookmarks(ctx context.Context) ([]*database.Bookmark, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	rows, err := sqlAllBookmarks(ctx, db.sql)
	if err != nil {
		return nil, err
	}
	bookmarks := make([]*database.Bookmark, 0, len(rows))
	for _, row := range rows {
		bookmarks = append(bookmarks, db.cachedBookmark(row))
	}
	return bookmarks, nil
}

// NewBookmark saves a URL with an optional title.
func (db *PhotoDB) NewBookmark(ctx context.Context, title *string, url string, author *database.User) (*database.Bookmark, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if err := db.requireFeature("bookmark.new"); err != nil {
		return nil, err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("bookmark url must not be empty")
	}

	var bookmark *database.Bookmark
	err := db.withTransaction(ctx, func(ctx context.Context) error {
		id, err := db.NextID(ctx, "bookmarks")
		if err != nil {
			return err
		}
		row := database.Bookmark{
			ID:      id,
			Title:   normalizeTitle(title),
			URL:     url,
			Created: db.now(),
		}
		if author != nil {
			row.AuthorID = &author.ID
		}
		if err := sqlInsertBookmark(ctx, db.sql, row); err != nil {
			return err
		}
		bookmark = db.cachedBookmark(row)
		db.OnRollback("uncache bookmark", func() error {
			db.caches.bookmarks.Remove(id)
			return nil
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bookmark, nil
}

// EditBookmark updates the bookmark's title and url. A nil url keeps the
// current one.
func (db *PhotoDB) EditBookmark(ctx context.Context, bookmark *database.Bookmark, title *string, url *string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("bookmark.edit"); err != nil {
		return err
	}
	if url != nil && strings.TrimSpace(*url) == "" {
		return fmt.Errorf("bookmark url must not be empty")
	}
	old := *bookmark
	return db.withTransaction(ctx, func(ctx context.Context) error {
		bookmark.Title = normalizeTitle(title)
		if url != nil {
			bookmark.URL = strings.TrimSpace(*url)
		}
		if err := sqlUpdateBookmark(ctx, db.sql, *bookmark); err != nil {
			return err
		}
		db.OnRollback("revert bookmark edit", func() error {
			*bookmark = old
			return nil
		})
		return nil
	})
}

// DeleteBookmark removes the bookmark.
func (db *PhotoDB) DeleteBookmark(ctx context.Context, bookmark *database.Bookmark) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("bookmark.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlDeleteBookmark(ctx, db.sql, bookmark.ID); err != nil {
			return err
		}
		db.caches.bookmarks.Remove(bookmark.ID)
		db.OnRollback("uncache bookmark", func() error {
			db.caches.bookmarks.Remove(bookmark.ID)
			return nil
		})
		return nil
	})
}
