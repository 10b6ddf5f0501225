// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"testing"

	"github.com/sangamhq/placedir/match"
	"github.com/sangamhq/placedir/spatial"
	"github.com/stretchr/testify/assert"
)

func TestEligible(t *testing.T) {
	v := NewValidator(DefaultServiceArea())

	tests := []struct {
		name   string
		record match.PlaceRecord
		want   bool
	}{
		{
			name: "Inside bounds with matching codes",
			record: match.PlaceRecord{
				Name:    "Gurdwara Sahib",
				Point:   &spatial.Point{Lat: 49.28, Lng: -123.12},
				Country: "CA",
				Region:  "BC",
			},
			want: true,
		},
		{
			name: "Inside bounds, wrong country",
			record: match.PlaceRecord{
				Point:   &spatial.Point{Lat: 49.28, Lng: -123.12},
				Country: "US",
			},
			want: false,
		},
		{
			name: "Wrong region code",
			record: match.PlaceRecord{
				Country: "CA",
				Region:  "ON",
			},
			want: false,
		},
		{
			name: "Region code case and whitespace tolerated",
			record: match.PlaceRecord{
				Country: "ca",
				Region:  " bc ",
			},
			want: true,
		},
		{
			name:   "All fields absent passes",
			record: match.PlaceRecord{Name: "Unknown Place"},
			want:   true,
		},
		{
			name: "Coordinates outside bounds",
			record: match.PlaceRecord{
				Point: &spatial.Point{Lat: 47.60, Lng: -122.33}, // Seattle
			},
			want: false,
		},
		{
			name: "Boundary latitude is inclusive",
			record: match.PlaceRecord{
				Point: &spatial.Point{Lat: 49.5, Lng: -123.0},
			},
			want: true,
		},
		{
			name: "Malformed coordinates do not reject on their own",
			record: match.PlaceRecord{
				Point:   &spatial.Point{Lat: 200, Lng: 0},
				Country: "CA",
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Eligible(&tt.record))
		})
	}
}
