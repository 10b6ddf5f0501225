// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const placesSearchBody = `{
	"results": [
		{
			"place_id": "ChIJabc123",
			"name": "Ross Street Gurdwara",
			"formatted_address": "8000 Ross St, Vancouver, BC V5X 4C4, Canada",
			"geometry": {"location": {"lat": 49.2104, "lng": -123.0833}},
			"types": ["place_of_worship", "point_of_interest", "establishment"]
		}
	],
	"status": "OK"
}`

func TestPlacesTextSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/textsearch/json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "gurdwara", r.URL.Query().Get("query"))

		w.Header().Set("Content-Type", "application/json")

		if _, err := w.Write([]byte(placesSearchBody)); err != nil {
			t.Errorf("writing response: %v", err)
		}
	}))
	defer server.Close()

	client := NewPlacesClient("test-key")
	client.baseURL = server.URL

	candidates, err := client.TextSearch("gurdwara", 49.25, -123.10, 5000)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	got := candidates[0]
	assert.Equal(t, "places", got.Provider)
	assert.Equal(t, "ChIJabc123", got.Ref)
	assert.Equal(t, "Ross Street Gurdwara", got.Name)
	require.NotNil(t, got.Point)
	assert.InDelta(t, 49.2104, got.Point.Lat, 1e-9)
	assert.Equal(t, []string{"place_of_worship", "point_of_interest", "establishment"}, got.TypeTags)
}

func TestPlacesTextSearchStatuses(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		check   func(error) bool
	}{
		{
			name: "Zero results is not an error",
			body: `{"results": [], "status": "ZERO_RESULTS"}`,
		},
		{
			name:    "Over query limit",
			body:    `{"results": [], "status": "OVER_QUERY_LIMIT"}`,
			wantErr: true,
			check:   IsQuotaExceededError,
		},
		{
			name:    "Request denied",
			body:    `{"results": [], "status": "REQUEST_DENIED"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")

				if _, err := w.Write([]byte(tt.body)); err != nil {
					t.Errorf("writing response: %v", err)
				}
			}))
			defer server.Close()

			client := NewPlacesClient("test-key")
			client.baseURL = server.URL

			candidates, err := client.TextSearch("gurdwara", 49.25, -123.10, 5000)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Empty(t, candidates)

				return
			}

			require.Error(t, err)

			if tt.check != nil {
				assert.True(t, tt.check(err))
			}
		})
	}
}
