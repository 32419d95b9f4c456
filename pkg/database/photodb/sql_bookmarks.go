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
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/voussoir/etiquette/pkg/database"
)

const selectBookmarkColumns = `id, title, url, created, author_id`

func scanBookmark(row interface{ Scan(...any) error }) (database.Bookmark, error) {
	var bookmark database.Bookmark
	err := row.Scan(
		&bookmark.ID,
		&bookmark.Title,
		&bookmark.URL,
		&bookmark.Created,
		&bookmark.AuthorID,
	)
	return bookmark, err
}

func sqlFindBookmarkByID(ctx context.Context, db *sql.DB, id int64) (database.Bookmark, error) {
	row := db.QueryRowContext(ctx,
		`select `+selectBookmarkColumns+` from bookmarks where id = ? limit 1;`, id)
	bookmark, err := scanBookmark(row)
	if err != nil {
		return bookmark, fmt.Errorf("failed to scan bookmark row: %w", err)
	}
	return bookmark, nil
}

func sqlInsertBookmark(ctx context.Context, db *sql.DB, row database.Bookmark) error {
	_, err := db.ExecContext(ctx, `
		insert into bookmarks (id, title, url, created, author_id)
		values (?, ?, ?, ?, ?);
	`,
		row.ID,
		row.Title,
		row.URL,
		row.Created,
		row.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bookmark: %w", err)
	}
	return nil
}

func sqlUpdateBookmark(ctx context.Context, db *sql.DB, row database.Bookmark) error {
	_, err := db.ExecContext(ctx,
		`update bookmarks set title = ?, url = ? where id = ?;`,
		row.Title, row.URL, row.ID)
	if err != nil {
		return fmt.Errorf("failed to update bookmark: %w", err)
	}
	return nil
}

func sqlDeleteBookmark(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `delete from bookmarks where id = ?;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

func sqlAllBookmarks(ctx context.Context, db *sql.DB) ([]database.Bookmark, error) {
	rows, err := db.QueryContext(ctx,
		`select `+selectBookmarkColumns+` from bookmarks order by id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var bookmarks []database.Bookmark
	for rows.Next() {
		bookmark, scanErr := scanBookmark(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan bookmark row: %w", scanErr)
		}
		bookmarks = append(bookmarks, bookmark)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookmark rows iteration error: %w", err)
	}
	return bookmarks, nil
}
