// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package graph

import (
	"regexp"
	"strings"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, collapses every run of characters outside [a-z0-9]
// into a single hyphen and trims hyphens from both ends.
// Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	return strings.Trim(nonSlugRun.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
