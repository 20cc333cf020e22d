// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package mapper

import (
	"regexp"
	"strings"

	"github.com/jhprks/damerau"
)

// reNorm strips punctuation and leading zeros before comparison, the
// same normalization demlo's fuzzy.go applies so "Track 01" and
// "Track1" compare as related.
var reNorm = regexp.MustCompile(`\b0+|[^\pL\pN]`)

func stringNorm(s string) string {
	return strings.ToLower(reNorm.ReplaceAllString(s, ""))
}

// stringRel returns a similarity score: one minus the Damerau-Levenshtein
// distance between a and b divided by the longer string's length, so
// identical strings score 1 and completely unrelated strings score 0.
func stringRel(a, b string) float64 {
	na, nb := stringNorm(a), stringNorm(b)
	max := len([]rune(na))
	if l := len([]rune(nb)); l > max {
		max = l
	} else if max == 0 {
		return 1
	}
	distance := damerau.DamerauLevenshteinDistance(na, nb)
	return 1 - float64(distance)/float64(max)
}
