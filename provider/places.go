// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sangamhq/placedir/directory"
	"github.com/sangamhq/placedir/match"
	"github.com/sangamhq/placedir/spatial"
)

const placesBaseURL = "https://maps.googleapis.com"

// PlacesClient fetches places from the general place-search service. Its
// taxonomy uses fixed place types like "place_of_worship" or
// "grocery_or_supermarket", which the classifier reads as type tags.
type PlacesClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewPlacesClient creates a client for the place-search service.
func NewPlacesClient(apiKey string) *PlacesClient {
	return &PlacesClient{
		apiKey:  apiKey,
		baseURL: placesBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type placesResponse struct {
	Results []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Types []string `json:"types"`
	} `json:"results"`
	Status string `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, etc.
}

// TextSearch returns candidates for a query, biased around a coordinate.
func (c *PlacesClient) TextSearch(query string, lat, lng float64, radiusMeters int) ([]*directory.Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("radius", fmt.Sprintf("%d", radiusMeters))
	params.Set("key", c.apiKey)

	reqURL := c.baseURL + "/maps/api/place/textsearch/json?" + params.Encode()

	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("place search request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, "")
	}

	var parsed placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	switch parsed.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	case "OVER_QUERY_LIMIT":
		return nil, &ProviderError{
			Type:    ErrorTypeQuotaExceeded,
			Message: "place search quota exceeded",
		}
	default:
		return nil, fmt.Errorf("place search status: %s", parsed.Status)
	}

	candidates := make([]*directory.Candidate, 0, len(parsed.Results))

	for _, r := range parsed.Results {
		var point *spatial.Point
		if r.Geometry.Location.Lat != 0 || r.Geometry.Location.Lng != 0 {
			point = &spatial.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng}
		}

		candidates = append(candidates, &directory.Candidate{
			PlaceRecord: match.PlaceRecord{
				Name:     r.Name,
				Address:  r.FormattedAddress,
				Point:    point,
				TypeTags: r.Types,
			},
			Provider: "places",
			Ref:      r.PlaceID,
		})
	}

	return candidates, nil
}
