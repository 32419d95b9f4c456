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

const selectUserColumns = `id, username, password_hash, display_name, created`

func scanUser(row interface{ Scan(...any) error }) (database.User, error) {
	var user database.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Created,
	)
	return user, err
}

func sqlFindUserByID(ctx context.Context, db *sql.DB, id int64) (database.User, error) {
	row := db.QueryRowContext(ctx,
		`select `+selectUserColumns+` from users where id = ? limit 1;`, id)
	user, err := scanUser(row)
	if err != nil {
		return user, fmt.Errorf("failed to scan user row: %w", err)
	}
	return user, nil
}

func sqlFindUserByUsername(ctx context.Context, db *sql.DB, username string) (database.User, error) {
	row := db.QueryRowContext(ctx,
		`select `+selectUserColumns+` from users where username = ? limit 1;`, username)
	user, err := scanUser(row)
	if err != nil {
		return user, fmt.Errorf("failed to scan user row: %w", err)
	}
	return user, nil
}

func sqlInsertUser(ctx context.Context, db *sql.DB, row database.User) error {
	_, err := db.ExecContext(ctx, `
		insert into users (id, username, password_hash, display_name, created)
		values (?, ?, ?, ?, ?);
	`,
		row.ID,
		row.Username,
		row.PasswordHash,
		row.DisplayName,
		row.Created,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func sqlUpdateUserPasswordHash(ctx context.Context, db *sql.DB, id int64, hash []byte) error {
	_, err := db.ExecContext(ctx,
		`update users set password_hash = ? where id = ?;`, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update user password: %w", err)
	}
	return nil
}

func sqlUpdateUserDisplayName(ctx context.Context, db *sql.DB, id int64, name *string) error {
	_, err := db.ExecContext(ctx,
		`update users set display_name = ? where id = ?;`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update user display name: %w", err)
	}
	return nil
}

func sqlAllUsers(ctx context.Context, db *sql.DB) ([]database.User, error) {
	rows, err := db.QueryContext(ctx,
		`select `+selectUserColumns+` from users order by username;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var users []database.User
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", scanErr)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user rows iteration error: %w", err)
	}
	return users, nil
}
