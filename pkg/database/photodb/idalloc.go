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

	"github.com/voussoir/etiquette/pkg/database"
)

// tables that hand out monotonic IDs through id_numbers
var idTables = map[string]struct{}{
	"albums":    {},
	"bookmarks": {},
	"photos":    {},
	"tags":      {},
	"users":     {},
}

// NextID reserves the next integer ID for a table. The increment runs inside
// the caller's transaction, so a rollback returns the ID to the pool.
func (db *PhotoDB) NextID(ctx context.Context, table string) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	if _, ok := idTables[table]; !ok {
		return 0, database.BadTable(table)
	}

	var lastID int64
	err := db.sql.QueryRowContext(ctx,
		`select last_id from id_numbers where tablename = ?;`, table,
	).Scan(&lastID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		lastID = 0
	case err != nil:
		return 0, fmt.Errorf("failed to read id counter for %s: %w", table, err)
	}

	nextID := lastID + 1
	_, err = db.sql.ExecContext(ctx, `
		insert into id_numbers (tablename, last_id)
		values (?, ?)
		on conflict (tablename) do update set last_id = excluded.last_id;
	`, table, nextID)
	if err != nil {
		return 0, fmt.Errorf("failed to write id counter for %s: %w", table, err)
	}
	return nextID, nil
}
