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
	"strings"

	"github.com/voussoir/etiquette/pkg/database"
)

// NormalizeTagName lowercases, maps space and hyphen to underscore, keeps
// only the configured character set, and enforces the length bounds.
func (db *PhotoDB) NormalizeTagName(name string) (string, error) {
	tagCfg := db.cfg.TagConfig()

	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	var cleaned strings.Builder
	for _, r := range name {
		if strings.ContainsRune(tagCfg.ValidChars, r) {
			cleaned.WriteRune(r)
		}
	}
	name = cleaned.String()

	if len(name) < tagCfg.MinLength {
		return "", database.TagTooShort(name, tagCfg.MinLength)
	}
	if len(name) > tagCfg.MaxLength {
		return "", database.TagTooLong(name, tagCfg.MaxLength)
	}
	return name, nil
}

// NormalizeUsername validates bounds and the character whitelist. Case is
// preserved; uniqueness is enforced case-insensitively by the store.
func (db *PhotoDB) NormalizeUsername(username string) (string, error) {
	userCfg := db.cfg.UserConfig()

	if len(username) < userCfg.MinUsernameLength {
		return "", database.UsernameTooShort(username, userCfg.MinUsernameLength)
	}
	if len(username) > userCfg.MaxUsernameLength {
		return "", database.UsernameTooLong(username, userCfg.MaxUsernameLength)
	}
	for _, r := range username {
		if !strings.ContainsRune(userCfg.ValidChars, r) {
			return "", database.InvalidUsernameChars(username)
		}
	}
	return username, nil
}

// NormalizePassword enforces the minimum length on the raw bytes.
func (db *PhotoDB) NormalizePassword(password []byte) ([]byte, error) {
	userCfg := db.cfg.UserConfig()
	if len(password) < userCfg.MinPasswordLength {
		return nil, database.PasswordTooShort(userCfg.MinPasswordLength)
	}
	return password, nil
}

// NormalizeExtensionSet splits on commas and whitespace, lowercases, strips
// leading dots and drops empties. The element "*" survives untouched; the
// search engine gives it match-any semantics.
func NormalizeExtensionSet(extensions []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, chunk := range extensions {
		for _, ext := range strings.FieldsFunc(chunk, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}) {
			ext = strings.ToLower(strings.TrimPrefix(ext, "."))
			if ext == "" {
				continue
			}
			if _, ok := seen[ext]; ok {
				continue
			}
			seen[ext] = struct{}{}
			out = append(out, ext)
		}
	}
	return out
}

// normalizeTitle collapses inner whitespace lines and trims. An empty result
// maps to nil so the column stores NULL.
func normalizeTitle(title *string) *string {
	if title == nil {
		return nil
	}
	trimmed := strings.TrimSpace(strings.ReplaceAll(*title, "\n", " "))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeDescription trims but preserves inner newlines.
func normalizeDescription(description *string) *string {
	if description == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*description)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
