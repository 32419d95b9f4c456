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

package database

import "fmt"

// WarningBag collects non-fatal issues during search and normalization
// instead of raising them. Operations that accept a bag downgrade
// recoverable errors into warnings and continue.
type WarningBag struct {
	warnings []string
}

// NewWarningBag returns an empty bag.
func NewWarningBag() *WarningBag {
	return &WarningBag{}
}

// Add formats and records one warning.
func (b *WarningBag) Add(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// AddError records an error's message as a warning.
func (b *WarningBag) AddError(err error) {
	if err != nil {
		b.warnings = append(b.warnings, err.Error())
	}
}

// Empty reports whether no warnings were collected.
func (b *WarningBag) Empty() bool {
	return len(b.warnings) == 0
}

// Warnings returns the collected messages in order.
func (b *WarningBag) Warnings() []string {
	return b.warnings
}
