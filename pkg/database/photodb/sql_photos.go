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

const selectPhotoColumns = `
	id, filepath, override_filename, extension, mtime, sha256, width,
	height, area, aspectratio, duration, bytes, bitrate, created,
	thumbnail, tagged_at, author_id, searchhidden, dev_ino`

func scanPhoto(row interface{ Scan(...any) error }) (database.Photo, error) {
	var photo database.Photo
	err := row.Scan(
		&photo.ID,
		&photo.Filepath,
		&photo.OverrideFilename,
		&photo.Extension,
		&photo.MTime,
		&photo.SHA256,
		&photo.Width,
		&photo.Height,
		&photo.Area,
		&photo.AspectRatio,
		&photo.Duration,
		&photo.Bytes,
		&photo.Bitrate,
		&photo.Created,
		&photo.Thumbnail,
		&photo.TaggedAt,
		&photo.AuthorID,
		&photo.SearchHidden,
		&photo.DevIno,
	)
	return photo, err
}

func sqlFindPhotoByID(ctx context.Context, db *sql.DB, id int64) (database.Photo, error) {
	row := db.QueryRowContext(ctx,
		`select `+selectPhotoColumns+` from photos where id = ? limit 1;`, id)
	photo, err := scanPhoto(row)
	if err != nil {
		return photo, fmt.Errorf("failed to scan photo row: %w", err)
	}
	return photo, nil
}

func sqlFindPhotoByPath(ctx context.Context, db *sql.DB, path string) (database.Photo, error) {
	row := db.QueryRowContext(ctx,
		`select `+selectPhotoColumns+` from photos where filepath = ? limit 1;`, path)
	photo, err := scanPhoto(row)
	if err != nil {
		return photo, fmt.Errorf("failed to scan photo row: %w", err)
	}
	return photo, nil
}

func sqlFindPhotoByDevIno(ctx context.Context, db *sql.DB, devIno string) (database.Photo, error) {
	row := db.QueryRowContext(ctx,
		`select `+selectPhotoColumns+` from photos where dev_ino = ? limit 1;`, devIno)
	photo, err := scanPhoto(row)
	if err != nil {
		return photo, fmt.Errorf("failed to scan photo row: %w", err)
	}
	return photo, nil
}

func sqlInsertPhoto(ctx context.Context, db *sql.DB, row database.Photo) error {
	_, err := db.ExecContext(ctx, `
		insert into photos (
			id, filepath, override_filename, extension, mtime, sha256,
			width, height, area, aspectratio, duration, bytes, bitrate,
			created, thumbnail, tagged_at, author_id, searchhidden, dev_ino
		)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`,
		row.ID,
		row.Filepath,
		row.OverrideFilename,
		row.Extension,
		row.MTime,
		row.SHA256,
		row.Width,
		row.Height,
		row.Area,
		row.AspectRatio,
		row.Duration,
		row.Bytes,
		row.Bitrate,
		row.Created,
		row.Thumbnail,
		row.TaggedAt,
		row.AuthorID,
		row.SearchHidden,
		row.DevIno,
	)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

func sqlUpdatePhotoMetadata(ctx context.Context, db *sql.DB, row database.Photo) error {
	_, err := db.ExecContext(ctx, `
		update photos set
			mtime = ?, sha256 = ?, width = ?, height = ?, area = ?,
			aspectratio = ?, duration = ?, bytes = ?, bitrate = ?,
			dev_ino = ?
		where id = ?;
	`,
		row.MTime,
		row.SHA256,
		row.Width,
		row.Height,
		row.Area,
		row.AspectRatio,
		row.Duration,
		row.Bytes,
		row.Bitrate,
		row.DevIno,
		row.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update photo metadata: %w", err)
	}
	return nil
}

func sqlUpdatePhotoFilepath(ctx context.Context, db *sql.DB, id int64, path, extension string) error {
	_, err := db.ExecContext(ctx,
		`update photos set filepath = ?, extension = ? where id = ?;`,
		path, extension, id)
	if err != nil {
		return fmt.Errorf("failed to update photo filepath: %w", err)
	}
	return nil
}

func sqlUpdatePhotoOverrideFilename(ctx context.Context, db *sql.DB, id int64, name *string) error {
	_, err := db.ExecContext(ctx,
		`update photos set override_filename = ? where id = ?;`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update photo override filename: %w", err)
	}
	return nil
}

func sqlUpdatePhotoThumbnail(ctx context.Context, db *sql.DB, id int64, relpath *string) error {
	_, err := db.ExecContext(ctx,
		`update photos set thumbnail = ? where id = ?;`, relpath, id)
	if err != nil {
		return fmt.Errorf("failed to update photo thumbnail: %w", err)
	}
	return nil
}

func sqlUpdatePhotoTaggedAt(ctx context.Context, db *sql.DB, id int64, taggedAt float64) error {
	_, err := db.ExecContext(ctx,
		`update photos set tagged_at = ? where id = ?;`, taggedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update photo tagged_at: %w", err)
	}
	return nil
}

func sqlUpdatePhotoSearchHidden(ctx context.Context, db *sql.DB, id int64, hidden bool) error {
	_, err := db.ExecContext(ctx,
		`update photos set searchhidden = ? where id = ?;`, hidden, id)
	if err != nil {
		return fmt.Errorf("failed to update photo searchhidden: %w", err)
	}
	return nil
}

func sqlDeletePhoto(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `delete from photos where id = ?;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

/*
 * photo-tag relations
 */

func sqlPhotoHasTag(ctx context.Context, db *sql.DB, photoID, tagID int64) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx,
		`select 1 from photo_tag_rel where photoid = ? and tagid = ? limit 1;`,
		photoID, tagID,
	).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to scan photo tag rel row: %w", err)
	}
	return true, nil
}

func sqlInsertPhotoTagRel(ctx context.Context, db *sql.DB, photoID, tagID int64) error {
	_, err := db.ExecContext(ctx,
		`insert or ignore into photo_tag_rel (photoid, tagid) values (?, ?);`,
		photoID, tagID)
	if err != nil {
		return fmt.Errorf("failed to insert photo tag rel: %w", err)
	}
	return nil
}

func sqlDeletePhotoTagRel(ctx context.Context, db *sql.DB, photoID, tagID int64) (int64, error) {
	res, err := db.ExecContext(ctx,
		`delete from photo_tag_rel where photoid = ? and tagid = ?;`,
		photoID, tagID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete photo tag rel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func sqlDeletePhotoTagRelsOfPhoto(ctx context.Context, db *sql.DB, photoID int64) error {
	_, err := db.ExecContext(ctx,
		`delete from photo_tag_rel where photoid = ?;`, photoID)
	if err != nil {
		return fmt.Errorf("failed to delete photo tag rels: %w", err)
	}
	return nil
}

func sqlDeletePhotoTagRelsOfTag(ctx context.Context, db *sql.DB, tagID int64) error {
	_, err := db.ExecContext(ctx,
		`delete from photo_tag_rel where tagid = ?;`, tagID)
	if err != nil {
		return fmt.Errorf("failed to delete photo tag rels: %w", err)
	}
	return nil
}

func sqlPhotoIDsWithTag(ctx context.Context, db *sql.DB, tagID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`select photoid from photo_tag_rel where tagid = ?;`, tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photo tag rels: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan photo tag rel row: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("photo tag rel rows iteration error: %w", err)
	}
	return ids, nil
}

func sqlTagIDsOfPhoto(ctx context.Context, db *sql.DB, photoID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`select tagid from photo_tag_rel where photoid = ?;`, photoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photo tag rels: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan photo tag rel row: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("photo tag rel rows iteration error: %w", err)
	}
	return ids, nil
}

func sqlDeleteAlbumPhotoRelsOfPhoto(ctx context.Context, db *sql.DB, photoID int64) error {
	_, err := db.ExecContext(ctx,
		`delete from album_photo_rel where photoid = ?;`, photoID)
	if err != nil {
		return fmt.Errorf("failed to delete album photo rels: %w", err)
	}
	return nil
}
