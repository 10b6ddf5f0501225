// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

// Package classify assigns a semantic category to a place from its name and
// the category vocabularies of two independent providers. The rules form a
// strict priority cascade: the first matching tier wins and later tiers are
// never consulted.
package classify

import (
	"errors"
	"regexp"

	"github.com/sangamhq/placedir/match"
)

// ErrEmptyName is returned when a nameless record reaches the classifier.
// A place must have a name; classifying without one would be a silent lie.
var ErrEmptyName = errors.New("classify: place name is empty")

// Label is the closed set of semantic categories.
type Label string

const (
	LabelTemple     Label = "temple"
	LabelGurdwara   Label = "gurdwara"
	LabelMosque     Label = "mosque"
	LabelRestaurant Label = "restaurant"
	LabelCafe       Label = "cafe"
	LabelGrocer     Label = "grocer"
	LabelFashion    Label = "fashion"
	LabelBeauty     Label = "beauty"
	LabelDance      Label = "dance"
	LabelOrg        Label = "org"
)

// Provider taxonomies frequently file small worship spaces under a generic
// "religious organization" tag or leave them untagged entirely, so the name
// is the more reliable signal. Curated whole-word term lists, checked in
// order; case-insensitive.
type worshipRule struct {
	label Label
	terms *regexp.Regexp
}

var worshipRules = []worshipRule{
	{LabelTemple, regexp.MustCompile(`(?i)\b(mandir|hindu temple|hindu society|vedic|iskcon|balaji|venkateswara|durga|lakshmi|ganesh|hanuman|shiv|shiva|krishna|swaminarayan|murugan)\b`)},
	{LabelGurdwara, regexp.MustCompile(`(?i)\b(gurdwara|gurudwara|sikh|khalsa|nanak|singh sabha|darbar sahib)\b`)},
	{LabelMosque, regexp.MustCompile(`(?i)\b(masjid|mosque|islamic|jamia|jame|jamatkhana|musalla)\b`)},
}

// worshipLabel runs the worship term lists against a name. Empty label means
// no rule matched.
func worshipLabel(name string) Label {
	for _, rule := range worshipRules {
		if rule.terms.MatchString(name) {
			return rule.label
		}
	}

	return ""
}

// religiousOrgTags is the union of both providers' "religious organization"
// style tags, normalized.
var religiousOrgTags = map[string]bool{
	"religiousorgs":    true,
	"religiousitems":   true,
	"churches":         true,
	"temples":          true,
	"mosques":          true,
	"synagogues":       true,
	"place of worship": true,
	"hindu temple":     true,
	"church":           true,
	"mosque":           true,
}

// categoryKeywords maps each third-tier label to the provider tags that
// imply it. The sets are disjoint; within the tier the first match wins.
// Both taxonomies feed the same table since tags are opaque strings anyway.
var categoryKeywords = []struct {
	label Label
	tags  map[string]bool
}{
	{LabelRestaurant, setOf(
		"restaurants", "restaurant", "food", "indpak", "pakistani", "afghani",
		"srilankan", "bangladeshi", "himalayan", "halal", "foodtrucks",
		"foodstands", "caterers", "buffets", "meal takeaway", "meal delivery",
	)},
	{LabelCafe, setOf(
		"cafes", "cafe", "coffee", "desserts", "bakeries", "bakery",
		"icecream", "juicebars", "bubbletea", "gelato", "creperies",
	)},
	{LabelGrocer, setOf(
		"grocery", "intlgrocery", "markets", "convenience", "butcher",
		"importedfood", "spicemerchants", "grocery or supermarket",
		"supermarket", "convenience store",
	)},
	{LabelFashion, setOf(
		"fashion", "womenscloth", "menscloth", "jewelry", "accessories",
		"bridal", "fabricstores", "shoes", "clothing store", "jewelry store",
		"shoe store",
	)},
	{LabelBeauty, setOf(
		"beautysvc", "hair", "hairsalons", "barbers", "skincare", "spas",
		"othersalons", "threadingservices", "makeupartists", "hennaartists",
		"beauty salon", "hair care", "spa", "nail salon",
	)},
	{LabelDance, setOf(
		"dance", "danceschools", "dancestudio", "performingarts",
		"culturalcenter", "nonprofit", "socialclubs",
		"performing arts theater", "community center",
	)},
}

func setOf(tags ...string) map[string]bool {
	m := make(map[string]bool, len(tags))
	for _, t := range tags {
		m[t] = true
	}

	return m
}

// Classify maps a place to exactly one Label. Total and deterministic for
// any non-empty name: unknown tags simply fall through to LabelOrg. The
// fallback is never LabelRestaurant - defaulting to the most common category
// would silently misclassify every unrecognized record as food service.
func Classify(name string, categoryTags, typeTags []string) (Label, error) {
	if match.Normalize(name) == "" {
		return "", ErrEmptyName
	}

	// Tier 1: worship terms in the name outrank every taxonomy signal.
	if label := worshipLabel(name); label != "" {
		return label, nil
	}

	// Tier 2: tagged as a religious organization but the raw name missed.
	// Retry against the normalized (accent-folded) name to catch
	// transliteration spellings, then settle for org. Never restaurant.
	if hasAnyTag(religiousOrgTags, categoryTags) || hasAnyTag(religiousOrgTags, typeTags) {
		if label := worshipLabel(match.Normalize(name)); label != "" {
			return label, nil
		}

		return LabelOrg, nil
	}

	// Tier 3: keyword sets against the first taxonomy, then the second.
	for _, tags := range [][]string{categoryTags, typeTags} {
		for _, entry := range categoryKeywords {
			if hasAnyTag(entry.tags, tags) {
				return entry.label, nil
			}
		}
	}

	return LabelOrg, nil
}

func hasAnyTag(set map[string]bool, tags []string) bool {
	for _, tag := range tags {
		if set[match.Normalize(tag)] {
			return true
		}
	}

	return false
}

// IsNameCategoryMismatch reports whether a record's name implies a worship
// category that its assigned label does not carry. Used by periodic
// data-quality sweeps over the canonical directory, not for gating new
// ingestion.
func IsNameCategoryMismatch(name string, assigned Label) bool {
	implied := worshipLabel(name)

	return implied != "" && implied != assigned
}
