// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"regexp"
	"strings"
)

// Street is the comparable portion of a free-text address.
type Street struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

// Roadway-type suffixes stripped from the tail of a street name so that
// "123 Main Street" and "123 Main" compare as equal street names.
var streetSuffixes = map[string]bool{
	"street":    true,
	"st":        true,
	"avenue":    true,
	"ave":       true,
	"av":        true,
	"road":      true,
	"rd":        true,
	"boulevard": true,
	"blvd":      true,
	"drive":     true,
	"dr":        true,
	"lane":      true,
	"ln":        true,
	"way":       true,
	"place":     true,
	"pl":        true,
	"highway":   true,
	"hwy":       true,
}

var leadingNumberRegex = regexp.MustCompile(`^(\d+)\s+`)

// ParseStreet extracts a (number, name) tuple from a free-text address.
// The address is normalized, a leading digit run becomes the street number,
// and the tokens up to the first comma become the street name with any
// trailing roadway suffix removed. When no leading number exists the whole
// normalized address is returned as the name - graceful degradation, never
// an error.
func ParseStreet(address string) Street {
	// Normalization erases commas, so cut the street portion first.
	street, _, _ := strings.Cut(address, ",")
	street = Normalize(street)

	var number string
	if m := leadingNumberRegex.FindStringSubmatch(street); m != nil {
		number = m[1]
		street = strings.TrimSpace(street[len(m[0]):])
	}

	tokens := strings.Fields(street)
	if len(tokens) > 1 && streetSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	return Street{
		Number: number,
		Name:   strings.Join(tokens, " "),
	}
}
