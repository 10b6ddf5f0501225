// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

// Package match implements the place matching engine: string similarity
// primitives, street address parsing, and the composite scorer that decides
// how likely two place records denote the same real-world place.
package match

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Jaro-Winkler parameters: the prefix bonus (up to 4 leading characters)
// is applied only when the base similarity already exceeds 0.7, so short
// unrelated strings don't get inflated.
const (
	winklerBoostThreshold = 0.7
	winklerPrefixSize     = 4
)

var nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]+`)

// Normalize lowercases, removes accents, replaces every non-alphanumeric
// character with a space, collapses whitespace runs, and trims. All
// similarity comparisons operate on normalized strings, never raw input.
func Normalize(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.ToLower(s),
	)

	s = nonAlphanumericRegex.ReplaceAllString(s, " ")

	return strings.Join(strings.Fields(s), " ")
}

// EditDistance is the Levenshtein distance between two strings,
// insert/delete/substitute each costing 1.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// EditSimilarity maps edit distance into [0,1]: 1 - distance/max(len).
// Two empty strings are defined as identical.
func EditSimilarity(a, b string) float64 {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)

	longest := la
	if lb > longest {
		longest = lb
	}

	if longest == 0 {
		return 1
	}

	return 1 - float64(EditDistance(a, b))/float64(longest)
}

// PrefixSimilarity is a Jaro-Winkler similarity in [0,1]: character matches
// within a proportional sliding window, transposition counting, and a
// common-prefix boost gated by winklerBoostThreshold. Good for place names,
// where the leading tokens carry most of the identity.
func PrefixSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}

	return smetrics.JaroWinkler(a, b, winklerBoostThreshold, winklerPrefixSize)
}
