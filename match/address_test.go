// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStreet(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    Street
	}{
		{
			name:    "Number and suffix",
			address: "123 Main Street",
			want:    Street{Number: "123", Name: "main"},
		},
		{
			name:    "Number without suffix",
			address: "123 Main",
			want:    Street{Number: "123", Name: "main"},
		},
		{
			name:    "Abbreviated suffix",
			address: "456 Fraser St",
			want:    Street{Number: "456", Name: "fraser"},
		},
		{
			name:    "Ignores everything after the comma",
			address: "8000 Ross Street, Vancouver, BC V5X 4C5",
			want:    Street{Number: "8000", Name: "ross"},
		},
		{
			name:    "Multi-word street name",
			address: "6550 Fraser Hwy Avenue",
			want:    Street{Number: "6550", Name: "fraser hwy"},
		},
		{
			name:    "No leading number degrades to full name",
			address: "Punjabi Market, Vancouver",
			want:    Street{Number: "", Name: "punjabi market"},
		},
		{
			name:    "Empty address",
			address: "",
			want:    Street{Number: "", Name: ""},
		},
		{
			name:    "Suffix alone is kept",
			address: "12 Street",
			want:    Street{Number: "12", Name: "street"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseStreet(tt.address)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseStreet(%q) mismatch (-want +got):\n%s", tt.address, diff)
			}
		})
	}
}
