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

// Package helpers provides shared test scaffolding: temp-file catalogs with
// fake clocks and sample media trees.
package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/voussoir/etiquette/pkg/database/photodb"
	"github.com/voussoir/etiquette/pkg/testing/mocks"
)

// TestEpoch is the fixed instant test clocks start at.
var TestEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// NewTestPhotoDB opens a catalog in a temp directory with a fake clock and
// a mock media toolkit. The database is closed automatically when the test
// finishes.
func NewTestPhotoDB(t *testing.T, opts ...photodb.Option) (*photodb.PhotoDB, *clockwork.FakeClock, *mocks.MockToolkit) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(TestEpoch)
	toolkit := mocks.NewMockToolkit()

	allOpts := []photodb.Option{
		photodb.WithClock(clock),
		photodb.WithToolkit(toolkit),
	}
	allOpts = append(allOpts, opts...)

	db, err := photodb.Open(context.Background(), t.TempDir(), allOpts...)
	if err != nil {
		t.Fatalf("failed to open test catalog: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("failed to close test catalog: %v", closeErr)
		}
	})
	return db, clock, toolkit
}
