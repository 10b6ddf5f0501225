// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sangamhq/placedir/directory"
	"github.com/sangamhq/placedir/match"
	"github.com/sangamhq/placedir/spatial"
)

const reviewsBaseURL = "https://api.yelp.com"

// ReviewsClient fetches businesses from the review service. Its taxonomy
// uses alias tags like "indpak" or "threadingservices", which the
// classifier reads as category tags.
type ReviewsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewReviewsClient creates a client for the review service.
func NewReviewsClient(apiKey string) *ReviewsClient {
	return &ReviewsClient{
		apiKey:  apiKey,
		baseURL: reviewsBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type reviewsResponse struct {
	Businesses []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Coordinates struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"coordinates"`
		Location struct {
			Address1 string `json:"address1"`
			City     string `json:"city"`
			State    string `json:"state"`
			Country  string `json:"country"`
		} `json:"location"`
		Categories []struct {
			Alias string `json:"alias"`
			Title string `json:"title"`
		} `json:"categories"`
	} `json:"businesses"`
	Total int `json:"total"`
}

// Search returns candidates for a term around a coordinate.
func (c *ReviewsClient) Search(term string, lat, lng float64, limit int) ([]*directory.Candidate, error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))

	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	reqURL := c.baseURL + "/v3/businesses/search?" + params.Encode()

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("review search request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, "")
	}

	var parsed reviewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	candidates := make([]*directory.Candidate, 0, len(parsed.Businesses))

	for _, b := range parsed.Businesses {
		var point *spatial.Point
		if b.Coordinates.Latitude != 0 || b.Coordinates.Longitude != 0 {
			point = &spatial.Point{Lat: b.Coordinates.Latitude, Lng: b.Coordinates.Longitude}
		}

		tags := make([]string, len(b.Categories))
		for i, cat := range b.Categories {
			tags[i] = cat.Alias
		}

		candidates = append(candidates, &directory.Candidate{
			PlaceRecord: match.PlaceRecord{
				Name:         b.Name,
				Address:      b.Location.Address1,
				Point:        point,
				CategoryTags: tags,
				Country:      b.Location.Country,
				Region:       b.Location.State,
			},
			Provider: "reviews",
			Ref:      b.ID,
		})
	}

	return candidates, nil
}
