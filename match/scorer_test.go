// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"math"
	"testing"

	"github.com/sangamhq/placedir/spatial"
	"github.com/stretchr/testify/assert"
)

// pointAtMeters returns a point exactly d meters due north of the base.
// A pure latitude offset makes the haversine distance exact: d = R * dLat.
func pointAtMeters(base spatial.Point, d float64) *spatial.Point {
	dLat := d / 6371e3 * 180 / math.Pi

	return &spatial.Point{Lat: base.Lat + dLat, Lng: base.Lng}
}

func TestDistanceScoreDecay(t *testing.T) {
	s := NewScorer()
	base := spatial.Point{Lat: 49.25, Lng: -123.10}

	tests := []struct {
		name   string
		meters float64
		want   float64
	}{
		{"At near threshold", 50, 1.0},
		{"Below near threshold", 10, 1.0},
		{"Midpoint of decay", 125, 0.5},
		{"At far threshold", 200, 0.0},
		{"Beyond far threshold", 500, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := &PlaceRecord{Point: pointAtMeters(base, tt.meters)}
			canonical := &PlaceRecord{Point: &base}

			got := s.distanceScore(candidate, canonical)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestDistanceScoreNeutralWithoutCoordinates(t *testing.T) {
	s := NewScorer()
	base := spatial.Point{Lat: 49.25, Lng: -123.10}

	assert.InDelta(t, 0.5, s.distanceScore(&PlaceRecord{}, &PlaceRecord{Point: &base}), 1e-9)
	assert.InDelta(t, 0.5, s.distanceScore(&PlaceRecord{Point: &base}, &PlaceRecord{}), 1e-9)

	// Malformed coordinates degrade the same way rather than erroring.
	nan := &spatial.Point{Lat: math.NaN(), Lng: -123.1}
	assert.InDelta(t, 0.5, s.distanceScore(&PlaceRecord{Point: nan}, &PlaceRecord{Point: &base}), 1e-9)
}

func TestAddressScore(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{
			name: "Same number and street with different suffix forms",
			a:    "123 Main Street",
			b:    "123 Main",
			min:  0.99,
			max:  1.0,
		},
		{
			name: "Different numbers on the same street clamp low",
			a:    "123 Main Street",
			b:    "456 Main Street",
			min:  0.2,
			max:  0.2,
		},
		{
			name: "No numbers at all falls back to street similarity",
			a:    "Punjabi Market",
			b:    "Punjabi Market",
			min:  1.0,
			max:  1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.addressScore(tt.a, tt.b)
			if got < tt.min-1e-9 || got > tt.max+1e-9 {
				t.Errorf("addressScore(%q, %q) = %f, want within [%f, %f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestScoreStaysInUnitInterval(t *testing.T) {
	s := NewScorer()
	base := spatial.Point{Lat: 49.25, Lng: -123.10}

	records := []*PlaceRecord{
		{Name: "Gurdwara Sahib", Address: "456 Fraser St", Point: &base},
		{Name: "Himalaya Restaurant", Address: ""},
		{Name: "", Address: "no address at all"},
		{Name: "Zzz", Address: "999 Nowhere Blvd", Point: pointAtMeters(base, 5000)},
	}

	for _, a := range records {
		for _, b := range records {
			got := s.Score(a, b)
			if got < 0 || got > 1 {
				t.Errorf("Score(%q, %q) = %f, outside [0,1]", a.Name, b.Name, got)
			}
		}
	}
}

// The scenario the whole engine exists for: a provider record for an
// existing gurdwara with a shorter name, a suffix-variant address, and a
// coordinate a dozen meters off must land solidly in likely-match territory.
func TestScoreLikelyMatchScenario(t *testing.T) {
	s := NewScorer()

	candidate := &PlaceRecord{
		Name:    "Gurdwara Sahib",
		Address: "456 Fraser St",
		Point:   &spatial.Point{Lat: 49.25, Lng: -123.10},
	}
	canonical := &PlaceRecord{
		Name:    "Gurdwara Sahib Khalsa Diwan",
		Address: "456 Fraser Street",
		Point:   &spatial.Point{Lat: 49.2501, Lng: -123.1001},
	}

	got := s.Score(candidate, canonical)
	assert.Greater(t, got, 0.85, "expected likely-match score")

	// Deterministic: same inputs, same score.
	assert.InDelta(t, got, s.Score(candidate, canonical), 1e-12)
}

func TestScoreDistinctPlaces(t *testing.T) {
	s := NewScorer()

	candidate := &PlaceRecord{
		Name:    "Shan-e-Punjab Restaurant",
		Address: "123 Main Street",
		Point:   &spatial.Point{Lat: 49.25, Lng: -123.10},
	}
	canonical := &PlaceRecord{
		Name:    "Vancouver Threading Studio",
		Address: "456 Main Street",
		Point:   &spatial.Point{Lat: 49.31, Lng: -123.02},
	}

	got := s.Score(candidate, canonical)
	assert.Less(t, got, 0.5, "expected clearly-distinct score")
}

func TestBestMatch(t *testing.T) {
	s := NewScorer()
	base := spatial.Point{Lat: 49.25, Lng: -123.10}

	candidate := &PlaceRecord{
		Name:    "Gurdwara Sahib",
		Address: "456 Fraser St",
		Point:   &base,
	}

	canonicals := []*PlaceRecord{
		{Name: "Punjab Sweets", Address: "789 Scott Road", Point: pointAtMeters(base, 3000)},
		{Name: "Gurdwara Sahib Khalsa Diwan", Address: "456 Fraser Street", Point: pointAtMeters(base, 20)},
		{Name: "Fraser Cafe", Address: "456 Fraser Street", Point: pointAtMeters(base, 60)},
	}

	best := s.BestMatch(candidate, canonicals, 2)
	assert.Equal(t, 1, best.Index)
	assert.Greater(t, best.Score, 0.85)

	// Empty canonical set
	none := s.BestMatch(candidate, nil, 0)
	assert.Equal(t, -1, none.Index)
	assert.Zero(t, none.Score)
}

func TestPlaceRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  PlaceRecord
		wantErr error
	}{
		{
			name:   "Valid with coordinates",
			record: PlaceRecord{Name: "Ram Mandir", Point: &spatial.Point{Lat: 49.2, Lng: -123.0}},
		},
		{
			name:   "Valid without coordinates",
			record: PlaceRecord{Name: "Ram Mandir"},
		},
		{
			name:    "Empty name",
			record:  PlaceRecord{Name: "   "},
			wantErr: ErrMissingName,
		},
		{
			name:    "NaN coordinates",
			record:  PlaceRecord{Name: "X", Point: &spatial.Point{Lat: math.NaN(), Lng: 0}},
			wantErr: ErrInvalidCoordinates,
		},
		{
			name:    "Out of range longitude",
			record:  PlaceRecord{Name: "X", Point: &spatial.Point{Lat: 0, Lng: 200}},
			wantErr: ErrInvalidCoordinates,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
