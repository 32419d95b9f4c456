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
	"strings"

	"github.com/voussoir/etiquette/pkg/database"
)

// cachedTag returns the identity-cached instance for a freshly scanned row,
// inserting the row if the tag was not cached yet. Callers always go through
// here so two fetches of the same tag yield the same pointer.
func (db *PhotoDB) cachedTag(row database.Tag) *database.Tag {
	if cached, ok := db.caches.tags.Get(row.ID); ok {
		return cached
	}
	tag := row
	db.caches.tags.Add(tag.ID, &tag)
	return &tag
}

func (db *PhotoDB) uncacheTag(id int64) {
	db.caches.tags.Remove(id)
	db.exports.invalidate()
}

// uncacheTagOnRollback keeps the identity cache honest when the enclosing
// transaction is rolled back and the row reverts under the cached instance.
func (db *PhotoDB) uncacheTagOnRollback(id int64) {
	db.OnRollback("uncache tag", func() error {
		db.uncacheTag(id)
		return nil
	})
}

// GetTag fetches a tag by exactly one of name or id.
func (db *PhotoDB) GetTag(ctx context.Context, name *string, id *int64) (*database.Tag, error) {
	if (name == nil) == (id == nil) {
		return nil, database.NotExclusive("name", "id")
	}
	if id != nil {
		return db.GetTagByID(ctx, *id)
	}
	return db.GetTagByName(ctx, *name)
}

// GetTagByID fetches a tag by its id.
func (db *PhotoDB) GetTagByID(ctx context.Context, id int64) (*database.Tag, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if cached, ok := db.caches.tags.Get(id); ok {
		return cached, nil
	}
	row, err := sqlFindTagByID(ctx, db.sql, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.NoSuchTag(id)
		}
		return nil, err
	}
	return db.cachedTag(row), nil
}

// GetTagByName fetches a tag by name, following a synonym to its master.
// Synonyms never chain because inserts resolve the master first, so at most
// one hop happens in practice; the loop guards against a corrupted table.
func (db *PhotoDB) GetTagByName(ctx context.Context, name string) (*database.Tag, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	original := name
	name = strings.ToLower(strings.TrimSpace(name))
	seen := make(map[string]struct{})
	for {
		if _, ok := seen[name]; ok {
			return nil, database.NoSuchTag(original)
		}
		seen[name] = struct{}{}

		row, err := sqlFindTagByName(ctx, db.sql, name)
		if err == nil {
			return db.cachedTag(row), nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		syn, err := sqlFindSynonym(ctx, db.sql, name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, database.NoSuchTag(original)
			}
			return nil, err
		}
		name = syn.MasterName
	}
}

// GetTags returns every tag, ordered by name.
func (db *PhotoDB) GetTags(ctx context.Context) ([]*database.Tag, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	rows, err := sqlAllTags(ctx, db.sql)
	if err != nil {
		return nil, err
	}
	tags := make([]*database.Tag, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, db.cachedTag(row))
	}
	return tags, nil
}

// GetRootTags returns tags that have no parent, ordered by name.
func (db *PhotoDB) GetRootTags(ctx context.Context) ([]*database.Tag, error) {
	all, err := db.GetTags(ctx)
	if err != nil {
		return nil, err
	}
	var roots []*database.Tag
	for _, tag := range all {
		_, hasParent, err := sqlTagParentID(ctx, db.sql, tag.ID)
		if err != nil {
			return nil, err
		}
		if !hasParent {
			roots = append(roots, tag)
		}
	}
	return roots, nil
}

// NewTag creates a tag. The name is normalized first and must not collide
// with any existing tag or synonym name.
func (db *PhotoDB) NewTag(ctx context.Context, name string, description *string, author *database.User) (*database.Tag, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if err := db.requireFeature("tag.new"); err != nil {
		return nil, err
	}
	name, err := db.NormalizeTagName(name)
	if err != nil {
		return nil, err
	}
	if err := db.assertNoSuchTagName(ctx, name); err != nil {
		return nil, err
	}

	var tag *database.Tag
	err = db.withTransaction(ctx, func(ctx context.Context) error {
		id, err := db.NextID(ctx, "tags")
		if err != nil {
			return err
		}
		row := database.Tag{
			ID:          id,
			Name:        name,
			Description: normalizeDescription(description),
			Created:     db.now(),
		}
		if author != nil {
			row.AuthorID = &author.ID
		}
		if err := sqlInsertTag(ctx, db.sql, row); err != nil {
			return err
		}
		tag = db.cachedTag(row)
		db.exports.invalidate()
		db.uncacheTagOnRollback(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// assertNoSuchTagName fails with TagExists if the name is taken by a tag or
// by a synonym. Tag and synonym names share one namespace.
func (db *PhotoDB) assertNoSuchTagName(ctx context.Context, name string) error {
	if _, err := sqlFindTagByName(ctx, db.sql, name); err == nil {
		return database.TagExists(name)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if _, err := sqlFindSynonym(ctx, db.sql, name); err == nil {
		return database.TagExists(name)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}

// GetTagParent returns the tag's parent, or nil for a root tag.
func (db *PhotoDB) GetTagParent(ctx context.Context, tag *database.Tag) (*database.Tag, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	parentID, ok, err := sqlTagParentID(ctx, db.sql, tag.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return db.GetTagByID(ctx, parentID)
}

// GetTagChildren returns the tag's direct children.
func (db *PhotoDB) GetTagChildren(ctx context.Context, tag *database.Tag) ([]*database.Tag, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	ids, err := sqlTagChildIDs(ctx, db.sql, tag.ID)
	if err != nil {
		return nil, err
	}
	children := make([]*database.Tag, 0, len(ids))
	for _, id := range ids {
		child, err := db.GetTagByID(ctx, id)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// walkTagChildren returns the tag and all transitive descendants, parents
// before children.
func (db *PhotoDB) walkTagChildren(ctx context.Context, tag *database.Tag) ([]*database.Tag, error) {
	result := []*database.Tag{tag}
	for cursor := 0; cursor < len(result); cursor++ {
		children, err := db.GetTagChildren(ctx, result[cursor])
		if err != nil {
			return nil, err
		}
		result = append(result, children...)
	}
	return result, nil
}

// tagAncestors returns the chain of parents from the tag upward, nearest
// first. The tag itself is not included.
func (db *PhotoDB) tagAncestors(ctx context.Context, tag *database.Tag) ([]*database.Tag, error) {
	var ancestors []*database.Tag
	cursor := tag
	for {
		parent, err := db.GetTagParent(ctx, cursor)
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

// QualifiedTagName renders the dotted ancestry path, e.g. "media.music.song".
func (db *PhotoDB) QualifiedTagName(ctx context.Context, tag *database.Tag) (string, error) {
	ancestors, err := db.tagAncestors(ctx, tag)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		parts = append(parts, ancestors[i].Name)
	}
	parts = append(parts, tag.Name)
	return strings.Join(parts, "."), nil
}

// AddTagChild makes member a child of parent. Joining the same parent twice
// is a no-op; a member grouped elsewhere fails with GroupExists, and a
// member found in parent's ancestry fails with RecursiveGrouping.
func (db *PhotoDB) AddTagChild(ctx context.Context, parent, member *database.Tag) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("tag.edit"); err != nil {
		return err
	}
	if parent.ID == member.ID {
		return database.RecursiveGrouping(parent.Name, member.Name)
	}

	existingParentID, hasParent, err := sqlTagParentID(ctx, db.sql, member.ID)
	if err != nil {
		return err
	}
	if hasParent {
		if existingParentID == parent.ID {
			return nil
		}
		return database.GroupExists(parent.Name, member.Name)
	}

	ancestors, err := db.tagAncestors(ctx, parent)
	if err != nil {
		return err
	}
	for _, ancestor := range ancestors {
		if ancestor.ID == member.ID {
			return database.RecursiveGrouping(parent.Name, member.Name)
		}
	}

	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlInsertTagGroupRel(ctx, db.sql, parent.ID, member.ID); err != nil {
			return err
		}
		db.exports.invalidate()
		db.OnRollback("invalidate tag exports", func() error {
			db.exports.invalidate()
			return nil
		})
		return nil
	})
}

// RemoveTagChild removes member from parent, making member a root tag.
func (db *PhotoDB) RemoveTagChild(ctx context.Context, parent, member *database.Tag) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("tag.edit"); err != nil {
		return err
	}
	existingParentID, hasParent, err := sqlTagParentID(ctx, db.sql, member.ID)
	if err != nil {
		return err
	}
	if !hasParent || existingParentID != parent.ID {
		return database.NoSuchGroup(parent.Name, member.Name)
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlDeleteTagGroupRelMember(ctx, db.sql, member.ID); err != nil {
			return err
		}
		db.exports.invalidate()
		db.OnRollback("invalidate tag exports", func() error {
			db.exports.invalidate()
			return nil
		})
		return nil
	})
}

// AddSynonym registers synname as an alias of the tag and returns the
// normalized synonym name.
func (db *PhotoDB) AddSynonym(ctx context.Context, tag *database.Tag, synname string) (string, error) {
	if db.sql == nil {
		return "", ErrNullSQL
	}
	if err := db.requireFeature("tag.edit"); err != nil {
		return "", err
	}
	synname, err := db.NormalizeTagName(synname)
	if err != nil {
		return "", err
	}
	if synname == tag.Name {
		return "", database.CantSynonymSelf(synname)
	}
	if err := db.assertNoSuchTagName(ctx, synname); err != nil {
		return "", err
	}
	err = db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlInsertSynonym(ctx, db.sql, database.TagSynonym{
			Name:       synname,
			MasterName: tag.Name,
		}); err != nil {
			return err
		}
		db.exports.invalidate()
		db.OnRollback("invalidate tag exports", func() error {
			db.exports.invalidate()
			return nil
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return synname, nil
}

// RemoveSynonym drops a synonym of the tag and returns the normalized name
// that was removed.
func (db *PhotoDB) RemoveSynonym(ctx context.Context, tag *database.Tag, synname string) (string, error) {
	if db.sql == nil {
		return "", ErrNullSQL
	}
	if err := db.requireFeature("tag.edit"); err != nil {
		return "", err
	}
	synname, err := db.NormalizeTagName(synname)
	if err != nil {
		return "", err
	}
	err = db.withTransaction(ctx, func(ctx context.Context) error {
		affected, err := sqlDeleteSynonym(ctx, db.sql, synname, tag.Name)
		if err != nil {
			return err
		}
		if affected == 0 {
			return database.NoSuchSynonym(synname)
		}
		db.exports.invalidate()
		db.OnRollback("invalidate tag exports", func() error {
			db.exports.invalidate()
			return nil
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return synname, nil
}

// GetSynonyms returns the tag's synonym names, ordered.
func (db *PhotoDB) GetSynonyms(ctx context.Context, tag *database.Tag) ([]string, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlSynonymsOfTag(ctx, db.sql, tag.Name)
}

// RenameTag changes the tag's name. With applyToSynonyms, synonym rows
// pointing at the old name follow it.
func (db *PhotoDB) RenameTag(ctx context.Context, tag *database.Tag, newName string, applyToSynonyms bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("tag.edit"); err != nil {
		return err
	}
	newName, err := db.NormalizeTagName(newName)
	if err != nil {
		return err
	}
	if newName == tag.Name {
		return nil
	}
	if err := db.assertNoSuchTagName(ctx, newName); err != nil {
		return err
	}

	oldName := tag.Name
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlUpdateTagName(ctx, db.sql, tag.ID, newName); err != nil {
			return err
		}
		if applyToSynonyms {
			if err := sqlReassignSynonyms(ctx, db.sql, oldName, newName); err != nil {
				return err
			}
		}
		tag.Name = newName
		db.exports.invalidate()
		db.uncacheTagOnRollback(tag.ID)
		db.OnRollback("revert tag name", func() error {
			tag.Name = oldName
			return nil
		})
		return nil
	})
}

// EditTagDescription updates the tag's description.
func (db *PhotoDB) EditTagDescription(ctx context.Context, tag *database.Tag, description *string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("tag.edit"); err != nil {
		return err
	}
	description = normalizeDescription(description)
	old := tag.Description
	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlUpdateTagDescription(ctx, db.sql, tag.ID, description); err != nil {
			return err
		}
		tag.Description = description
		db.OnRollback("revert tag description", func() error {
			tag.Description = old
			return nil
		})
		return nil
	})
}

// ConvertTagToSynonym retires old as a real tag and leaves its name behind
// as a synonym of master. Photos tagged old get master, old's synonyms are
// reassigned, then old is deleted.
func (db *PhotoDB) ConvertTagToSynonym(ctx context.Context, old, master *database.Tag) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("tag.edit"); err != nil {
		return err
	}
	if old.ID == master.ID {
		return database.CantSynonymSelf(old.Name)
	}

	return db.withTransaction(ctx, func(ctx context.Context) error {
		if err := sqlReassignSynonyms(ctx, db.sql, old.Name, master.Name); err != nil {
			return err
		}

		photoIDs, err := sqlPhotoIDsWithTag(ctx, db.sql, old.ID)
		if err != nil {
			return err
		}
		for _, photoID := range photoIDs {
			hasMaster, err := sqlPhotoHasTag(ctx, db.sql, photoID, master.ID)
			if err != nil {
				return err
			}
			if hasMaster {
				continue
			}
			if err := sqlInsertPhotoTagRel(ctx, db.sql, photoID, master.ID); err != nil {
				return err
			}
		}

		oldName := old.Name
		if err := db.deleteTag(ctx, old, false); err != nil {
			return err
		}
		if err := sqlInsertSynonym(ctx, db.sql, database.TagSynonym{
			Name:       oldName,
			MasterName: master.Name,
		}); err != nil {
			return err
		}
		db.exports.invalidate()
		return nil
	})
}

// DeleteTag removes the tag. Without deleteChildren, children are
// reparented to this tag's parent, or become roots if it had none.
func (db *PhotoDB) DeleteTag(ctx context.Context, tag *database.Tag, deleteChildren bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := db.requireFeature("tag.edit"); err != nil {
		return err
	}
	return db.withTransaction(ctx, func(ctx context.Context) error {
		return db.deleteTag(ctx, tag, deleteChildren)
	})
}

func (db *PhotoDB) deleteTag(ctx context.Context, tag *database.Tag, deleteChildren bool) error {
	children, err := db.GetTagChildren(ctx, tag)
	if err != nil {
		return err
	}
	if deleteChildren {
		for _, child := range children {
			if err := db.deleteTag(ctx, child, true); err != nil {
				return err
			}
		}
	} else if len(children) > 0 {
		parentID, hasParent, err := sqlTagParentID(ctx, db.sql, tag.ID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := sqlDeleteTagGroupRelMember(ctx, db.sql, child.ID); err != nil {
				return err
			}
			if hasParent {
				if err := sqlInsertTagGroupRel(ctx, db.sql, parentID, child.ID); err != nil {
					return err
				}
			}
		}
	}

	if err := sqlDeleteTagGroupRelMember(ctx, db.sql, tag.ID); err != nil {
		return err
	}
	if err := sqlDeletePhotoTagRelsOfTag(ctx, db.sql, tag.ID); err != nil {
		return err
	}
	if err := sqlDeleteSynonymsOfTag(ctx, db.sql, tag.Name); err != nil {
		return err
	}
	if err := sqlDeleteTag(ctx, db.sql, tag.ID); err != nil {
		return err
	}
	db.uncacheTag(tag.ID)
	db.uncacheTagOnRollback(tag.ID)
	return nil
}
