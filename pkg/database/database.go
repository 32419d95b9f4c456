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

// Package database holds the row structs shared between the catalog engines,
// the catalog error taxonomy, and migration plumbing. The concrete store
// implementation lives in photodb.
package database

import (
	"mime"
	"path/filepath"
	"strings"
)

/*
 * Structs for SQL records
 */

// Photo is one cataloged media file. Nullable columns are pointers; nil
// means the column is NULL.
type Photo struct {
	OverrideFilename *string
	MTime            *float64
	SHA256           *string
	Width            *int64
	Height           *int64
	Area             *int64
	AspectRatio      *float64
	Duration         *float64
	Bytes            *int64
	Bitrate          *float64
	Thumbnail        *string
	TaggedAt         *float64
	AuthorID         *int64
	DevIno           *string
	Filepath         string
	Extension        string
	Created          float64
	ID               int64
	SearchHidden     bool
}

// Basename returns the display filename: the override filename when set,
// otherwise the basename of the real path.
func (p *Photo) Basename() string {
	if p.OverrideFilename != nil && *p.OverrideFilename != "" {
		return *p.OverrideFilename
	}
	return filepath.Base(p.Filepath)
}

// Mimetype guesses the photo's mimetype from its extension. Returns "" when
// the extension is unknown.
func (p *Photo) Mimetype() string {
	if p.Extension == "" {
		return ""
	}
	mt := mime.TypeByExtension("." + p.Extension)
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

// MimeClass returns the major mimetype class ("image", "video", "audio") or
// "" when unknown.
func (p *Photo) MimeClass() string {
	mt := p.Mimetype()
	if i := strings.Index(mt, "/"); i >= 0 {
		return mt[:i]
	}
	return mt
}

// Tag is one node of the tag taxonomy. Name is stored normalized and unique.
type Tag struct {
	Description *string
	AuthorID    *int64
	Name        string
	Created     float64
	ID          int64
}

// TagSynonym maps an alternate name onto a master tag name. Synonyms never
// chain: MasterName always names a real tag.
type TagSynonym struct {
	Name       string
	MasterName string
}

// TagGroupRel is one parent->member edge of the tag hierarchy. MemberID is
// unique across the table: a tag has at most one parent.
type TagGroupRel struct {
	ParentID int64
	MemberID int64
}

// Album is a hierarchical photo collection, optionally tied to filesystem
// directories.
type Album struct {
	Title          *string
	Description    *string
	ThumbnailPhoto *int64
	AuthorID       *int64
	Created        float64
	ID             int64
}

// DisplayTitle returns the album title or "" when unset.
func (a *Album) DisplayTitle() string {
	if a.Title == nil {
		return ""
	}
	return *a.Title
}

// AlbumGroupRel is one parent->member edge of the album hierarchy.
type AlbumGroupRel struct {
	ParentID int64
	MemberID int64
}

// AlbumPhotoRel is one album membership row.
type AlbumPhotoRel struct {
	AlbumID int64
	PhotoID int64
}

// PhotoTagRel is one photo-tag application row.
type PhotoTagRel struct {
	PhotoID int64
	TagID   int64
}

// Bookmark is a titled URL owned by a user.
type Bookmark struct {
	Title    *string
	AuthorID *int64
	URL      string
	Created  float64
	ID       int64
}

// User is a catalog account. Usernames are unique case-insensitively.
type User struct {
	DisplayName  *string
	Username     string
	PasswordHash []byte
	Created      float64
	ID           int64
}

// DisplayableName returns the display name when set, else the username.
func (u *User) DisplayableName() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}
