// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

// Package region gates which provider records are eligible for ingestion at
// all. Upstream providers return globally-scoped search results; this filter
// enforces the service-area boundary before any expensive matching work.
package region

import (
	"strings"

	"github.com/sangamhq/placedir/match"
	"github.com/sangamhq/placedir/spatial"
)

// ServiceArea is static configuration: a rectangular bounding box plus the
// accepted country and province codes. Loaded once at process start, never
// mutated.
type ServiceArea struct {
	Bounds  spatial.Bounds `json:"bounds"`
	Country string         `json:"country"`
	Regions []string       `json:"regions"`
}

// DefaultServiceArea covers Metro Vancouver with about a 20 km margin.
func DefaultServiceArea() ServiceArea {
	return ServiceArea{
		Bounds:  spatial.Bounds{South: 48.9, North: 49.5, West: -123.4, East: -122.4},
		Country: "CA",
		Regions: []string{"BC"},
	}
}

// Validator applies the service-area gate to candidate records.
type Validator struct {
	area    ServiceArea
	regions map[string]bool
}

// NewValidator builds a validator for the given service area.
func NewValidator(area ServiceArea) *Validator {
	regions := make(map[string]bool, len(area.Regions))
	for _, r := range area.Regions {
		regions[strings.ToUpper(strings.TrimSpace(r))] = true
	}

	return &Validator{area: area, regions: regions}
}

// Eligible reports whether the record may enter the pipeline. Only a
// mismatch rejects: records with missing coordinates or missing
// country/region codes pass, since providers routinely omit fields.
func (v *Validator) Eligible(r *match.PlaceRecord) bool {
	if r.Point != nil && r.Point.Valid() &&
		!v.area.Bounds.Contains(r.Point.Lat, r.Point.Lng) {
		return false
	}

	if r.Country != "" && !strings.EqualFold(r.Country, v.area.Country) {
		return false
	}

	if r.Region != "" && !v.regions[strings.ToUpper(strings.TrimSpace(r.Region))] {
		return false
	}

	return true
}
