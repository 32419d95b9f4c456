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
	"errors"
	"fmt"
	"strings"

	"github.com/voussoir/etiquette/pkg/database"
)

// BakeNote records one thing EasyBake did, e.g. ("new_tag", "media.music").
type BakeNote struct {
	Action string
	Name   string
}

// EasyBake runs one expression of the compact tag language:
//
//	a.b.c    create or fetch a, b, c and chain them parent to child
//	name+syn add syn as a synonym of name
//	old=new  rename old to new
//
// The rename form applies to the last tag of the dotted chain and cannot be
// combined with a synonym in the same expression.
func (db *PhotoDB) EasyBake(ctx context.Context, expression string, author *database.User) ([]BakeNote, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("empty easybake expression")
	}

	var synonym string
	if i := strings.IndexRune(expression, '+'); i >= 0 {
		synonym = expression[i+1:]
		expression = expression[:i]
		if strings.ContainsRune(expression, '=') || strings.ContainsRune(synonym, '=') {
			return nil, fmt.Errorf("easybake cannot rename and synonym in one expression")
		}
		if synonym == "" {
			return nil, fmt.Errorf("easybake synonym must not be empty")
		}
	}

	var rename string
	if i := strings.IndexRune(expression, '='); i >= 0 {
		rename = expression[i+1:]
		expression = expression[:i]
		if rename == "" {
			return nil, fmt.Errorf("easybake rename target must not be empty")
		}
	}

	chain := strings.Split(expression, ".")
	var notes []BakeNote
	err := db.withTransaction(ctx, func(ctx context.Context) error {
		var parent *database.Tag
		for _, link := range chain {
			tag, linkNotes, err := db.bakeTag(ctx, parent, link, author)
			if err != nil {
				return err
			}
			notes = append(notes, linkNotes...)
			parent = tag
		}

		if rename != "" {
			if err := db.RenameTag(ctx, parent, rename, true); err != nil {
				return err
			}
			qualified, err := db.QualifiedTagName(ctx, parent)
			if err != nil {
				return err
			}
			notes = append(notes, BakeNote{Action: "rename_tag", Name: qualified})
		}

		if synonym != "" {
			if _, err := db.AddSynonym(ctx, parent, synonym); err != nil {
				return err
			}
			qualified, err := db.QualifiedTagName(ctx, parent)
			if err != nil {
				return err
			}
			notes = append(notes, BakeNote{Action: "add_synonym", Name: qualified})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// bakeTag fetches or creates one link of the dotted chain and ensures it is
// grouped under the previous link.
func (db *PhotoDB) bakeTag(ctx context.Context, parent *database.Tag, name string, author *database.User) (*database.Tag, []BakeNote, error) {
	var notes []BakeNote

	tag, err := db.GetTagByName(ctx, name)
	switch {
	case err == nil:
		qualified, qErr := db.QualifiedTagName(ctx, tag)
		if qErr != nil {
			return nil, nil, qErr
		}
		notes = append(notes, BakeNote{Action: "existing_tag", Name: qualified})
	case errors.Is(err, database.ErrNoSuchTag):
		tag, err = db.NewTag(ctx, name, nil, author)
		if err != nil {
			return nil, nil, err
		}
		notes = append(notes, BakeNote{Action: "new_tag", Name: tag.Name})
	default:
		return nil, nil, err
	}

	if parent != nil {
		existingParent, err := db.GetTagParent(ctx, tag)
		if err != nil {
			return nil, nil, err
		}
		if existingParent == nil || existingParent.ID != parent.ID {
			if err := db.AddTagChild(ctx, parent, tag); err != nil {
				return nil, nil, err
			}
			qualified, err := db.QualifiedTagName(ctx, tag)
			if err != nil {
				return nil, nil, err
			}
			notes = append(notes, BakeNote{Action: "join_group", Name: qualified})
		}
	}
	return tag, notes, nil
}
