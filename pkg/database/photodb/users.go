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

	"golang.org/x/crypto/bcrypt"

	"github.com/voussoir/etiquette/pkg/database"
)

func (db *PhotoDB) cachedUser(row database.User) *database.User {
	if cached, ok := db.caches.users.Get(row.ID); ok {
		return cached
	}
	user := row
	db.caches.users.Add(user.ID, &user)
	return &user
}

// GetUser fetches a user by exactly one of username or id.
func (db *PhotoDB) GetUser(ctx context.Context, username *string, id *int64) (*database.User, error) {
	if (username == nil) == (id == nil) {
		return nil, database.NotExclusive("username", "id")
	}
	if id != nil {
		return db.GetUserByID(ctx, *id)
	}
	return db.GetUserByUsername(ctx, *username)
}

// GetUserByID fetches a user by id.
func (db *PhotoDB) GetUserByID(ctx context.Context, id int64) (*database.User, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if cached, ok := db.caches.users.Get(id); ok {
		return cached, nil
	}
	row, err := sqlFindUserByID(ctx, db.sql, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.NoSuchUser(id)
		}
		return nil, err
	}
	return db.cachedUser(row), nil
}

// GetUserByUsername fetches a user by name. Matching is case-insensitive.
func (db *PhotoDB) GetUserByUsername(ctx context.Context, username string) (*database.User, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	row, err := sqlFindUserByUsername(ctx, db.sql, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.NoSuchUser(username)
		}
		return nil, err
	}
	return db.cachedUser(row), nil
}

// GetUsers returns every user, ordered by username.
func (db *PhotoDB) GetUsers(ctx context.Context) ([]*database.User, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	rows, err := sqlAllUsers(ctx, db.sql)
	if err != nil {
		return nil, err
	}
	users := make([]*database.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, db.cachedUser(row))
	}
	return users, nil
}

// RegisterUser creates an account. The username must be free; usernames
// collide case-insensitively.
func (db *PhotoDB) RegisterUser(ctx context.Context, username string, password []byte, displayName *string) (*database.User, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if err := db.requireFeature("user.new"); err != nil {
		return nil, err
	}
	username, err := db.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	password, err = db.NormalizePassword(password)
	if err != nil {
		return nil, err
	}
	if _, err := sqlFindUserByUsername(ctx, db.sql, username); err == nil {
		return nil, database.UserExists(username)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *database.User
	err = db.withTransaction(ctx, func(ctx context.Context) error {
		id, err := db.NextID(ctx, "users")
		if err != nil {
			return err
		}
		row := database.User{
			ID:           id,
			Username:     username,
			PasswordHash: hash,
			DisplayName:  normalizeTitle(displayName),
			Created:      db.now(),
		}
		if err := sqlInsertUser(ctx, db.sql, row); err != nil {
			return err
		}
		user = db.cachedUser(row)
		db.OnRollback("uncache user", func() error {
			db.caches.users.Remove(id)
			return nil
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies a password against the user named by exactly one of
// username or id. A missing user and a wrong password both report
// WrongLogin so the two cases are indistinguishable.
func (db *PhotoDB) Login(ctx context.Context, username *string, id *int64, password []byte) (*database.User, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if (username == nil) == (id == nil) {
		return nil, database.NotExclusive("username", "id")
	}
	var row database.User
	var err error
	if id != nil {
		row, err = sqlFindUserByID(ctx, db.sql, *id)
	} else {
		row, err = sqlFindUserByUsername(ctx, db.sql, *username)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.WrongLogin()
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(row.PasswordHash, password); err != nil {
		return nil, database.WrongLogin()
	}
	return db.cachedUser(row), nil
}

// SetUserPassword rehashes and stores a new password.
func (db *PhotoDB) SetUserPassword(ctx context.Context, user *database.User, password []byte) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("user.edit"); err != nil {
		return err
	}
	password, err := db.NormalizePassword(password)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	old := user.PasswordHash
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlUpdateUserPasswordHash(ctx, db.sql, user.ID, hash); err != nil {
			return err
		}
		user.PasswordHash = hash
		db.OnRollback("revert user password", func() error {
			user.PasswordHash = old
			return nil
		})
		return nil
	})
}

// SetUserDisplayName updates the optional display name.
func (db *PhotoDB) SetUserDisplayName(ctx context.Context, user *database.User, displayName *string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("user.edit"); err != nil {
		return err
	}
	displayName = normalizeTitle(displayName)
	old := user.DisplayName
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlUpdateUserDisplayName(ctx, db.sql, user.ID, displayName); err != nil {
			return err
		}
		user.DisplayName = displayName
		db.OnRollback("revert user display name", func() error {
			user.DisplayName = old
			return nil
		})
		return nil
	})
}
