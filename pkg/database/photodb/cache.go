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
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/voussoir/etiquette/pkg/config"
	"github.com/voussoir/etiquette/pkg/database"
)

// objectCaches are the per-type identity maps. A cached object is THE live
// instance for its ID: getters consult the cache before constructing from a
// row, so two fetches of the same ID return the same pointer.
type objectCaches struct {
	albums    *lru.Cache[int64, *database.Album]
	bookmarks *lru.Cache[int64, *database.Bookmark]
	photos    *lru.Cache[int64, *database.Photo]
	tags      *lru.Cache[int64, *database.Tag]
	users     *lru.Cache[int64, *database.User]
}

func newObjectCaches(sizes config.CacheSize) *objectCaches {
	albums, err := lru.New[int64, *database.Album](sizes.Album)
	if err != nil {
		panic(fmt.Sprintf("album cache: %v", err))
	}
	bookmarks, err := lru.New[int64, *database.Bookmark](sizes.Bookmark)
	if err != nil {
		panic(fmt.Sprintf("bookmark cache: %v", err))
	}
	photos, err := lru.New[int64, *database.Photo](sizes.Photo)
	if err != nil {
		panic(fmt.Sprintf("photo cache: %v", err))
	}
	tags, err := lru.New[int64, *database.Tag](sizes.Tag)
	if err != nil {
		panic(fmt.Sprintf("tag cache: %v", err))
	}
	users, err := lru.New[int64, *database.User](sizes.User)
	if err != nil {
		panic(fmt.Sprintf("user cache: %v", err))
	}
	return &objectCaches{
		albums:    albums,
		bookmarks: bookmarks,
		photos:    photos,
		tags:      tags,
		users:     users,
	}
}

func (c *objectCaches) clear() {
	c.albums.Purge()
	c.bookmarks.Purge()
	c.photos.Purge()
	c.tags.Purge()
	c.users.Purge()
}

// exportCache memoizes tag-export derivations, most importantly the flat
// descendants map behind hierarchical search. Any tag, synonym or group
// write invalidates it.
type exportCache struct {
	flatDescendants map[string]map[string]struct{}
	valid           bool
}

func newExportCache() *exportCache {
	return &exportCache{}
}

func (c *exportCache) invalidate() {
	c.flatDescendants = nil
	c.valid = false
}

func (c *exportCache) get() (map[string]map[string]struct{}, bool) {
	return c.flatDescendants, c.valid
}

func (c *exportCache) set(m map[string]map[string]struct{}) {
	c.flatDescendants = m
	c.valid = true
}
