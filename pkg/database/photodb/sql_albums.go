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

const selectAlbumColumns = `id, title, description, created, thumbnail_photo, author_id`

func scanAlbum(row interface{ Scan(...any) error }) (database.Album, error) {
	var album database.Album
	err := row.Scan(
		&album.ID,
		&album.Title,
		&album.Description,
		&album.Created,
		&album.ThumbnailPhoto,
		&album.AuthorID,
	)
	return album, err
}

func sqlFindAlbumByID(ctx context.Context, db *sql.DB, id int64) (database.Album, error) {
	row := db.QueryRowContext(ctx,
		`select `+selectAlbumColumns+` from albums where id = ? limit 1;`, id)
	album, err := scanAlbum(row)
	if err != nil {
		return album, fmt.Errorf("failed to scan album row: %w", err)
	}
	return album, nil
}

func sqlInsertAlbum(ctx context.Context, db *sql.DB, row database.Album) error {
	_, err := db.ExecContext(ctx, `
		insert into albums (id, title, description, created, thumbnail_photo, author_id)
		values (?, ?, ?, ?, ?, ?);
	`,
		row.ID,
		row.Title,
		row.Description,
		row.Created,
		row.ThumbnailPhoto,
		row.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert album: %w", err)
	}
	return nil
}

func sqlUpdateAlbum(ctx context.Context, db *sql.DB, row database.Album) error {
	_, err := db.ExecContext(ctx, `
		update albums set title = ?, description = ?, thumbnail_photo = ?
		where id = ?;
	`,
		row.Title,
		row.Description,
		row.ThumbnailPhoto,
		row.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}
	return nil
}

func sqlDeleteAlbum(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `delete from albums where id = ?;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete album: %w", err)
	}
	return nil
}

func sqlAllAlbums(ctx context.Context, db *sql.DB) ([]database.Album, error) {
	rows, err := db.QueryContext(ctx,
		`select `+selectAlbumColumns+` from albums order by id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var albums []database.Album
	for rows.Next() {
		album, scanErr := scanAlbum(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan album row: %w", scanErr)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("album rows iteration error: %w", err)
	}
	return albums, nil
}

/*
 * group relations
 */

func sqlAlbumParentID(ctx context.Context, db *sql.DB, memberID int64) (int64, bool, error) {
	var parentID int64
	err := db.QueryRowContext(ctx,
		`select parentid from album_group_rel where memberid = ? limit 1;`, memberID,
	).Scan(&parentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to scan album parent row: %w", err)
	}
	return parentID, true, nil
}

func sqlAlbumChildIDs(ctx context.Context, db *sql.DB, parentID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`select memberid from album_group_rel where parentid = ?;`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query album children: %w", err)
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
			return nil, fmt.Errorf("failed to scan album child row: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("album child rows iteration error: %w", err)
	}
	return ids, nil
}

func sqlInsertAlbumGroupRel(ctx context.Context, db *sql.DB, parentID, memberID int64) error {
	_, err := db.ExecContext(ctx,
		`insert into album_group_rel (parentid, memberid) values (?, ?);`,
		parentID, memberID)
	if err != nil {
		return fmt.Errorf("failed to insert album group rel: %w", err)
	}
	return nil
}

func sqlDeleteAlbumGroupRelMember(ctx context.Context, db *sql.DB, memberID int64) error {
	_, err := db.ExecContext(ctx,
		`delete from album_group_rel where memberid = ?;`, memberID)
	if err != nil {
		return fmt.Errorf("failed to delete album group rel: %w", err)
	}
	return nil
}

/*
 * photo membership
 */

func sqlAlbumHasPhoto(ctx context.Context, db *sql.DB, albumID, photoID int64) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx,
		`select 1 from album_photo_rel where albumid = ? and photoid = ? limit 1;`,
		albumID, photoID,
	).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to scan album photo rel row: %w", err)
	}
	return true, nil
}

func sqlInsertAlbumPhotoRel(ctx context.Context, db *sql.DB, albumID, photoID int64) error {
	_, err := db.ExecContext(ctx,
		`insert or ignore into album_photo_rel (albumid, photoid) values (?, ?);`,
		albumID, photoID)
	if err != nil {
		return fmt.Errorf("failed to insert album photo rel: %w", err)
	}
	return nil
}

func sqlDeleteAlbumPhotoRel(ctx context.Context, db *sql.DB, albumID, photoID int64) (int64, error) {
	res, err := db.ExecContext(ctx,
		`delete from album_photo_rel where albumid = ? and photoid = ?;`,
		albumID, photoID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete album photo rel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func sqlDeleteAlbumPhotoRelsOfAlbum(ctx context.Context, db *sql.DB, albumID int64) error {
	_, err := db.ExecContext(ctx,
		`delete from album_photo_rel where albumid = ?;`, albumID)
	if err != nil {
		return fmt.Errorf("failed to delete album photo rels: %w", err)
	}
	return nil
}

func sqlPhotoIDsOfAlbum(ctx context.Context, db *sql.DB, albumID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`select photoid from album_photo_rel where albumid = ?;`, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query album photos: %w", err)
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
			return nil, fmt.Errorf("failed to scan album photo row: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("album photo rows iteration error: %w", err)
	}
	return ids, nil
}

func sqlAlbumIDsOfPhoto(ctx context.Context, db *sql.DB, photoID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`select albumid from album_photo_rel where photoid = ?;`, photoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums of photo: %w", err)
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
			return nil, fmt.Errorf("failed to scan album photo row: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("album photo rows iteration error: %w", err)
	}
	return ids, nil
}

func sqlSumBytesOfAlbum(ctx context.Context, db *sql.DB, albumID int64) (int64, error) {
	var total sql.NullInt64
	err := db.QueryRowContext(ctx, `
		select sum(photos.bytes)
		from photos
		inner join album_photo_rel on album_photo_rel.photoid = photos.id
		where album_photo_rel.albumid = ?;
	`, albumID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum album bytes: %w", err)
	}
	return total.Int64, nil
}

func sqlCountPhotosOfAlbum(ctx context.Context, db *sql.DB, albumID int64) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx,
		`select count(*) from album_photo_rel where albumid = ?;`, albumID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count album photos: %w", err)
	}
	return count, nil
}

/*
 * associated directories
 */

func sqlDirectoriesOfAlbum(ctx context.Context, db *sql.DB, albumID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`select directory from album_associated_directories where albumid = ?;`, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query album directories: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var dirs []string
	for rows.Next() {
		var dir string
		if scanErr := rows.Scan(&dir); scanErr != nil {
			return nil, fmt.Errorf("failed to scan album directory row: %w", scanErr)
		}
		dirs = append(dirs, dir)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("album directory rows iteration error: %w", err)
	}
	return dirs, nil
}

func sqlAlbumIDsByDirectory(ctx context.Context, db *sql.DB, directory string) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`select albumid from album_associated_directories where directory = ?;`, directory)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums by directory: %w", err)
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
			return nil, fmt.Errorf("failed to scan album directory row: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("album directory rows iteration error: %w", err)
	}
	return ids, nil
}

func sqlInsertAlbumDirectory(ctx context.Context, db *sql.DB, albumID int64, directory string) error {
	_, err := db.ExecContext(ctx,
		`insert into album_associated_directories (albumid, directory) values (?, ?);`,
		albumID, directory)
	if err != nil {
		return fmt.Errorf("failed to insert album directory: %w", err)
	}
	return nil
}

func sqlDeleteAlbumDirectories(ctx context.Context, db *sql.DB, albumID int64) error {
	_, err := db.ExecContext(ctx,
		`delete from album_associated_directories where albumid = ?;`, albumID)
	if err != nil {
		return fmt.Errorf("failed to delete album directories: %w", err)
	}
	return nil
}
