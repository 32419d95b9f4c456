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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voussoir/etiquette/pkg/config"
)

func TestNewWritesDefaultConfig(t *testing.T) {
	t.Parallel()
	dataDir := t.TempDir()

	cfg, err := config.New(dataDir, config.BaseDefaults)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dataDir, config.CfgFile))
	assert.Equal(t, config.BaseDefaults, cfg.Values())
	assert.Equal(t, 12, cfg.IDLength())

	width, height := cfg.ThumbnailBounds()
	assert.Equal(t, 400, width)
	assert.Equal(t, 400, height)
}

func TestNewMergesPartialUserConfig(t *testing.T) {
	t.Parallel()
	dataDir := t.TempDir()

	partial := `{
		"tag": {"max_length": 64},
		"id_length": 8
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, config.CfgFile), []byte(partial), 0o600))

	cfg, err := config.New(dataDir, config.BaseDefaults)
	require.NoError(t, err)

	// user keys win, everything else falls back to defaults
	assert.Equal(t, 8, cfg.IDLength())
	assert.Equal(t, 64, cfg.TagConfig().MaxLength)
	assert.Equal(t, config.BaseDefaults.Tag.MinLength, cfg.TagConfig().MinLength)
	assert.Equal(t, config.BaseDefaults.Tag.ValidChars, cfg.TagConfig().ValidChars)
	assert.Equal(t, config.BaseDefaults.User, cfg.UserConfig())

	// the file gained the missing defaults and was rewritten
	data, err := os.ReadFile(filepath.Join(dataDir, config.CfgFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "digest_exclude_files")
}

func TestNewRejectsMalformedConfig(t *testing.T) {
	t.Parallel()
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, config.CfgFile), []byte("{nope"), 0o600))

	_, err := config.New(dataDir, config.BaseDefaults)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestNewValidatesBounds(t *testing.T) {
	t.Parallel()
	dataDir := t.TempDir()
	bad := `{"id_length": 0}`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, config.CfgFile), []byte(bad), 0o600))

	_, err := config.New(dataDir, config.BaseDefaults)
	assert.ErrorContains(t, err, "config validation failed")
}

func TestFeatureEnabled(t *testing.T) {
	t.Parallel()
	dataDir := t.TempDir()

	cfg, err := config.New(dataDir, config.BaseDefaults)
	require.NoError(t, err)

	assert.True(t, cfg.FeatureEnabled("photo.new"))
	assert.True(t, cfg.FeatureEnabled("tag.edit"))

	vals := cfg.Values()
	vals.EnableFeature.Photo.New = false
	cfg.SetValues(vals)

	assert.False(t, cfg.FeatureEnabled("photo.new"))
	assert.True(t, cfg.FeatureEnabled("photo.edit"))

	// unknown gates never block anything
	assert.True(t, cfg.FeatureEnabled("widget.new"))
	assert.True(t, cfg.FeatureEnabled("photo.transmogrify"))
	assert.True(t, cfg.FeatureEnabled("nodot"))
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()
	dataDir := t.TempDir()

	cfg, err := config.New(dataDir, config.BaseDefaults)
	require.NoError(t, err)

	vals := cfg.Values()
	vals.ThumbnailWidth = 256
	cfg.SetValues(vals)
	require.NoError(t, cfg.Save())

	reloaded, err := config.New(dataDir, config.BaseDefaults)
	require.NoError(t, err)
	width, _ := reloaded.ThumbnailBounds()
	assert.Equal(t, 256, width)
}
