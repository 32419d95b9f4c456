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

// Package config loads and serves the catalog configuration. The config
// lives as config.json inside the data directory; defaults are merged in at
// load time and the file is rewritten when new defaults were added.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/voussoir/etiquette/pkg/helpers/syncutil"
)

const (
	// CfgFile is the config filename inside the data directory.
	CfgFile = "config.json"
	// DatabaseFile is the SQLite store filename inside the data directory.
	DatabaseFile = "phototagger.db"
	// ThumbnailDir is the thumbnail tree dirname inside the data directory.
	ThumbnailDir = "thumbnails"
)

// Values is the on-disk shape of config.json.
type Values struct {
	Tag                Tag        `json:"tag"`
	User               User       `json:"user"`
	CacheSize          CacheSize  `json:"cache_size"`
	EnableFeature      Features   `json:"enable_feature"`
	DigestExcludeFiles []string   `json:"digest_exclude_files"`
	DigestExcludeDirs  []string   `json:"digest_exclude_dirs"`
	IDLength           int        `json:"id_length" validate:"min=1"`
	ThumbnailWidth     int        `json:"thumbnail_width" validate:"min=1"`
	ThumbnailHeight    int        `json:"thumbnail_height" validate:"min=1"`
	FileReadChunk      int        `json:"file_read_chunk" validate:"min=1"`
}

// Tag holds tag-name normalization bounds and character whitelist.
type Tag struct {
	ValidChars string `json:"valid_chars"`
	MinLength  int    `json:"min_length" validate:"min=1"`
	MaxLength  int    `json:"max_length" validate:"min=1"`
}

// User holds credential bounds and the username character whitelist.
type User struct {
	ValidChars        string `json:"valid_chars"`
	MinUsernameLength int    `json:"min_username_length" validate:"min=1"`
	MaxUsernameLength int    `json:"max_username_length" validate:"min=1"`
	MinPasswordLength int    `json:"min_password_length" validate:"min=1"`
}

// CacheSize bounds the per-type object caches.
type CacheSize struct {
	Album    int `json:"album" validate:"min=1"`
	Bookmark int `json:"bookmark" validate:"min=1"`
	Photo    int `json:"photo" validate:"min=1"`
	Tag      int `json:"tag" validate:"min=1"`
	User     int `json:"user" validate:"min=1"`
}

// Features gates write operations per entity type. A disabled feature makes
// the corresponding operation fail with FeatureDisabled.
type Features struct {
	Album    FeatureSet `json:"album"`
	Bookmark FeatureSet `json:"bookmark"`
	Photo    FeatureSet `json:"photo"`
	Tag      FeatureSet `json:"tag"`
	User     FeatureSet `json:"user"`
}

// FeatureSet holds the create and edit gates of one entity type.
type FeatureSet struct {
	New  bool `json:"new"`
	Edit bool `json:"edit"`
}

// BaseDefaults are the values written to a fresh config.json and merged in
// under any keys missing from an existing one.
var BaseDefaults = Values{
	Tag: Tag{
		MinLength:  1,
		MaxLength:  32,
		ValidChars: "abcdefghijklmnopqrstuvwxyz0123456789_()",
	},
	User: User{
		MinUsernameLength: 2,
		MaxUsernameLength: 24,
		MinPasswordLength: 6,
		ValidChars: "abcdefghijklmnopqrstuvwxyz" +
			"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
			"0123456789" +
			"~!@#$%^*()[]{}:;,.<>/\\-_+=",
	},
	CacheSize: CacheSize{
		Album:    10000,
		Bookmark: 100,
		Photo:    100000,
		Tag:      10000,
		User:     200,
	},
	EnableFeature: Features{
		Album:    FeatureSet{New: true, Edit: true},
		Bookmark: FeatureSet{New: true, Edit: true},
		Photo:    FeatureSet{New: true, Edit: true},
		Tag:      FeatureSet{New: true, Edit: true},
		User:     FeatureSet{New: true, Edit: true},
	},
	DigestExcludeFiles: []string{"phototagger.db", "desktop.ini", "thumbs.db"},
	DigestExcludeDirs:  []string{".git", "_site_thumbnails"},
	IDLength:           12,
	ThumbnailWidth:     400,
	ThumbnailHeight:    400,
	FileReadChunk:      1 << 20,
}

// Instance serves config values behind a read-write lock.
type Instance struct {
	cfgPath string
	vals    Values
	mu      syncutil.RWMutex
}

// New loads config.json from the data directory, merging defaults under any
// missing keys. A missing file is created from defaults; a file that gained
// defaults is rewritten.
func New(dataDir string, defaults Values) (*Instance, error) {
	cfgPath := filepath.Join(dataDir, CfgFile)

	cfg := Instance{
		cfgPath: cfgPath,
		vals:    defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")
		if err := cfg.save(); err != nil {
			return nil, fmt.Errorf("failed to save new config: %w", err)
		}
		return &cfg, nil
	}

	data, err := os.ReadFile(cfgPath) //nolint:gosec // path is under the data dir
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	merged, added, err := mergeDefaults(data, defaults)
	if err != nil {
		return nil, err
	}
	cfg.vals = merged

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg.vals); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if added {
		log.Info().Msg("config gained new default keys, rewriting")
		if err := cfg.save(); err != nil {
			return nil, fmt.Errorf("failed to rewrite config: %w", err)
		}
	}

	return &cfg, nil
}

// mergeDefaults layers the user's JSON over the defaults and reports whether
// any default key was absent from the user's file.
func mergeDefaults(data []byte, defaults Values) (Values, bool, error) {
	var userMap map[string]any
	if err := json.Unmarshal(data, &userMap); err != nil {
		return defaults, false, fmt.Errorf("failed to parse config file: %w", err)
	}

	defaultsJSON, err := json.Marshal(defaults)
	if err != nil {
		return defaults, false, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var defaultsMap map[string]any
	if err := json.Unmarshal(defaultsJSON, &defaultsMap); err != nil {
		return defaults, false, fmt.Errorf("failed to remarshal defaults: %w", err)
	}

	added := deepMerge(defaultsMap, userMap)

	mergedJSON, err := json.Marshal(defaultsMap)
	if err != nil {
		return defaults, false, fmt.Errorf("failed to marshal merged config: %w", err)
	}
	var merged Values
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return defaults, false, fmt.Errorf("failed to unmarshal merged config: %w", err)
	}
	return merged, added, nil
}

// deepMerge overlays user values onto base in place and reports whether base
// contributed any key the user did not have.
func deepMerge(base, user map[string]any) bool {
	added := false
	for key, baseVal := range base {
		userVal, ok := user[key]
		if !ok {
			added = true
			continue
		}
		baseMap, baseIsMap := baseVal.(map[string]any)
		userMap, userIsMap := userVal.(map[string]any)
		if baseIsMap && userIsMap {
			if deepMerge(baseMap, userMap) {
				added = true
			}
			continue
		}
		base[key] = userVal
	}
	// keys only the user has are carried through untouched
	for key, userVal := range user {
		if _, ok := base[key]; !ok {
			base[key] = userVal
		}
	}
	return added
}

func (c *Instance) save() error {
	if err := os.MkdirAll(filepath.Dir(c.cfgPath), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(&c.vals, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.cfgPath, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Save writes the current values back to disk.
func (c *Instance) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.save()
}

// Values returns a copy of the current config values.
func (c *Instance) Values() Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals
}

// SetValues replaces the current config values.
func (c *Instance) SetValues(vals Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals = vals
}

func (c *Instance) TagConfig() Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Tag
}

func (c *Instance) UserConfig() User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.User
}

func (c *Instance) CacheSizes() CacheSize {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.CacheSize
}

func (c *Instance) ThumbnailBounds() (width, height int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ThumbnailWidth, c.vals.ThumbnailHeight
}

func (c *Instance) FileReadChunk() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.FileReadChunk
}

func (c *Instance) IDLength() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.IDLength
}

func (c *Instance) DigestExcludes() (files, dirs []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.vals.DigestExcludeFiles...),
		append([]string(nil), c.vals.DigestExcludeDirs...)
}

// FeatureEnabled reports whether a write gate like "photo.new" or "tag.edit"
// is enabled. Unknown feature names are enabled.
func (c *Instance) FeatureEnabled(feature string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f := c.vals.EnableFeature
	sets := map[string]FeatureSet{
		"album":    f.Album,
		"bookmark": f.Bookmark,
		"photo":    f.Photo,
		"tag":      f.Tag,
		"user":     f.User,
	}
	entity, op, ok := cutFeature(feature)
	if !ok {
		return true
	}
	set, ok := sets[entity]
	if !ok {
		return true
	}
	switch op {
	case "new":
		return set.New
	case "edit":
		return set.Edit
	default:
		return true
	}
}

func cutFeature(feature string) (entity, op string, ok bool) {
	for i := 0; i < len(feature); i++ {
		if feature[i] == '.' {
			return feature[:i], feature[i+1:], true
		}
	}
	return "", "", false
}
