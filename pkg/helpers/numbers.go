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

package helpers

import (
	"fmt"
	"strconv"
	"strings"
)

var byteSuffixes = map[byte]float64{
	'k': 1 << 10,
	'm': 1 << 20,
	'g': 1 << 30,
	't': 1 << 40,
}

// ParseBytestring converts a size string like "100", "1k", "2mb" or "1.5g"
// into a number of bytes. Suffix multipliers are powers of 1024.
func ParseBytestring(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty byte string")
	}
	s = strings.TrimSuffix(s, "b")
	multiplier := 1.0
	if len(s) > 0 {
		if m, ok := byteSuffixes[s[len(s)-1]]; ok {
			multiplier = m
			s = s[:len(s)-1]
		}
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte string %q: %w", s, err)
	}
	return value * multiplier, nil
}

// ParseHMS converts "hh:mm:ss", "mm:ss" or "ss" into seconds. Fractional
// seconds are allowed in the final segment.
func ParseHMS(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid hh:mm:ss string %q", s)
	}
	total := 0.0
	for _, part := range parts {
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hh:mm:ss string %q: %w", s, err)
		}
		total = total*60 + value
	}
	return total, nil
}

// ParseNumber accepts a plain number, an hh:mm:ss duration, or a
// byte-suffixed size, returning its numeric value.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if value, err := strconv.ParseFloat(s, 64); err == nil {
		return value, nil
	}
	if strings.Contains(s, ":") {
		return ParseHMS(s)
	}
	return ParseBytestring(s)
}
