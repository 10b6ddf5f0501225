// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"errors"
	"fmt"

	"github.com/sangamhq/placedir/spatial"
)

// Boundary violations worth failing fast on. Everything else degrades
// gracefully (missing coordinates, unparseable addresses, unknown tags).
var (
	ErrMissingName        = errors.New("place record has no name")
	ErrInvalidCoordinates = errors.New("coordinates are not valid decimal degrees")
)

// PlaceRecord is a provider candidate or an existing canonical entry.
// The engine treats it as an immutable value: validate, classify, and score
// never mutate their inputs.
type PlaceRecord struct {
	Name    string         `json:"name"`
	Address string         `json:"address"`
	Point   *spatial.Point `json:"point,omitempty"`

	// CategoryTags come from the business-review provider, TypeTags from the
	// place-type provider. Both are opaque vocabularies, either may be empty.
	CategoryTags []string `json:"category_tags,omitempty"`
	TypeTags     []string `json:"type_tags,omitempty"`

	Country string `json:"country,omitempty"` // ISO-style, e.g. "CA"
	Region  string `json:"region,omitempty"`  // province/state code, e.g. "BC"
}

// Validate enforces the record contract at the ingestion boundary.
// Absent coordinates are fine; present-but-malformed ones are not.
func (r *PlaceRecord) Validate() error {
	if Normalize(r.Name) == "" {
		return ErrMissingName
	}

	if r.Point != nil && !r.Point.Valid() {
		return fmt.Errorf("%w: (%f, %f)", ErrInvalidCoordinates, r.Point.Lat, r.Point.Lng)
	}

	return nil
}
