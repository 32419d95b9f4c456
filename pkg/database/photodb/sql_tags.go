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

const selectTagColumns = `id, name, description, created, author_id`

func scanTag(row interface{ Scan(...any) error }) (database.Tag, error) {
	var tag database.Tag
	err := row.Scan(
		&tag.ID,
		&tag.Name,
		&tag.Description,
		&tag.Created,
		&tag.AuthorID,
	)
	return tag, err
}

func sqlFindTagByID(ctx context.Context, db *sql.DB, id int64) (database.Tag, error) {
	row := db.QueryRowContext(ctx,
		`select `+selectTagColumns+` from tags where id = ? limit 1;`, id)
	tag, err := scanTag(row)
	if err != nil {
		return tag, fmt.Errorf("failed to scan tag row: %w", err)
	}
	return tag, nil
}

func sqlFindTagByName(ctx context.Context, db *sql.DB, name string) (database.Tag, error) {
	row := db.QueryRowContext(ctx,
		`select `+selectTagColumns+` from tags where name = ? limit 1;`, name)
	tag, err := scanTag(row)
	if err != nil {
		return tag, fmt.Errorf("failed to scan tag row: %w", err)
	}
	return tag, nil
}

func sqlInsertTag(ctx context.Context, db *sql.DB, row database.Tag) error {
	_, err := db.ExecContext(ctx, `
		insert into tags (id, name, description, created, author_id)
		values (?, ?, ?, ?, ?);
	`,
		row.ID,
		row.Name,
		row.Description,
		row.Created,
		row.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tag: %w", err)
	}
	return nil
}

func sqlUpdateTagName(ctx context.Context, db *sql.DB, id int64, name string) error {
	_, err := db.ExecContext(ctx, `update tags set name = ? where id = ?;`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename tag: %w", err)
	}
	return nil
}

func sqlUpdateTagDescription(ctx context.Context, db *sql.DB, id int64, description *string) error {
	_, err := db.ExecContext(ctx, `update tags set description = ? where id = ?;`, description, id)
	if err != nil {
		return fmt.Errorf("failed to update tag description: %w", err)
	}
	return nil
}

func sqlDeleteTag(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `delete from tags where id = ?;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

func sqlAllTags(ctx context.Context, db *sql.DB) ([]database.Tag, error) {
	rows, err := db.QueryContext(ctx,
		`select `+selectTagColumns+` from tags order by name;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var tags []database.Tag
	for rows.Next() {
		tag, scanErr := scanTag(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", scanErr)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tag rows iteration error: %w", err)
	}
	return tags, nil
}

/*
 * synonyms
 */

func sqlFindSynonym(ctx context.Context, db *sql.DB, name string) (database.TagSynonym, error) {
	var syn database.TagSynonym
	err := db.QueryRowContext(ctx,
		`select name, mastername from tag_synonyms where name = ? limit 1;`, name,
	).Scan(&syn.Name, &syn.MasterName)
	if err != nil {
		return syn, fmt.Errorf("failed to scan synonym row: %w", err)
	}
	return syn, nil
}

func sqlInsertSynonym(ctx context.Context, db *sql.DB, row database.TagSynonym) error {
	_, err := db.ExecContext(ctx,
		`insert into tag_synonyms (name, mastername) values (?, ?);`,
		row.Name, row.MasterName)
	if err != nil {
		return fmt.Errorf("failed to insert synonym: %w", err)
	}
	return nil
}

func sqlDeleteSynonym(ctx context.Context, db *sql.DB, name, mastername string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`delete from tag_synonyms where name = ? and mastername = ?;`,
		name, mastername)
	if err != nil {
		return 0, fmt.Errorf("failed to delete synonym: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func sqlDeleteSynonymsOfTag(ctx context.Context, db *sql.DB, mastername string) error {
	_, err := db.ExecContext(ctx,
		`delete from tag_synonyms where mastername = ?;`, mastername)
	if err != nil {
		return fmt.Errorf("failed to delete synonyms of tag: %w", err)
	}
	return nil
}

func sqlSynonymsOfTag(ctx context.Context, db *sql.DB, mastername string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`select name from tag_synonyms where mastername = ? order by name;`, mastername)
	if err != nil {
		return nil, fmt.Errorf("failed to query synonyms: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var names []string
	for rows.Next() {
		var name string
		if scanErr := rows.Scan(&name); scanErr != nil {
			return nil, fmt.Errorf("failed to scan synonym row: %w", scanErr)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("synonym rows iteration error: %w", err)
	}
	return names, nil
}

func sqlReassignSynonyms(ctx context.Context, db *sql.DB, oldMaster, newMaster string) error {
	_, err := db.ExecContext(ctx,
		`update tag_synonyms set mastername = ? where mastername = ?;`,
		newMaster, oldMaster)
	if err != nil {
		return fmt.Errorf("failed to reassign synonyms: %w", err)
	}
	return nil
}

func sqlAllSynonyms(ctx context.Context, db *sql.DB) ([]database.TagSynonym, error) {
	rows, err := db.QueryContext(ctx, `select name, mastername from tag_synonyms;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query synonyms: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var syns []database.TagSynonym
	for rows.Next() {
		var syn database.TagSynonym
		if scanErr := rows.Scan(&syn.Name, &syn.MasterName); scanErr != nil {
			return nil, fmt.Errorf("failed to scan synonym row: %w", scanErr)
		}
		syns = append(syns, syn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("synonym rows iteration error: %w", err)
	}
	return syns, nil
}

/*
 * group relations
 */

func sqlTagParentID(ctx context.Context, db *sql.DB, memberID int64) (int64, bool, error) {
	var parentID int64
	err := db.QueryRowContext(ctx,
		`select parentid from tag_group_rel where memberid = ? limit 1;`, memberID,
	).Scan(&parentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to scan tag parent row: %w", err)
	}
	return parentID, true, nil
}

func sqlTagChildIDs(ctx context.Context, db *sql.DB, parentID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`select memberid from tag_group_rel where parentid = ?;`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag children: %w", err)
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
			return nil, fmt.Errorf("failed to scan tag child row: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tag child rows iteration error: %w", err)
	}
	return ids, nil
}

func sqlInsertTagGroupRel(ctx context.Context, db *sql.DB, parentID, memberID int64) error {
	_, err := db.ExecContext(ctx,
		`insert into tag_group_rel (parentid, memberid) values (?, ?);`,
		parentID, memberID)
	if err != nil {
		return fmt.Errorf("failed to insert tag group rel: %w", err)
	}
	return nil
}

func sqlDeleteTagGroupRelMember(ctx context.Context, db *sql.DB, memberID int64) error {
	_, err := db.ExecContext(ctx,
		`delete from tag_group_rel where memberid = ?;`, memberID)
	if err != nil {
		return fmt.Errorf("failed to delete tag group rel: %w", err)
	}
	return nil
}

func sqlAllTagGroupRels(ctx context.Context, db *sql.DB) ([]database.TagGroupRel, error) {
	rows, err := db.QueryContext(ctx, `select parentid, memberid from tag_group_rel;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag group rels: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var rels []database.TagGroupRel
	for rows.Next() {
		var rel database.TagGroupRel
		if scanErr := rows.Scan(&rel.ParentID, &rel.MemberID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tag group rel row: %w", scanErr)
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tag group rel rows iteration error: %w", err)
	}
	return rels, nil
}
