// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"errors"
	"testing"

	"github.com/sangamhq/placedir/classify"
	"github.com/sangamhq/placedir/match"
	"github.com/sangamhq/placedir/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCanonical(t *testing.T, places PlaceRepository) *Place {
	t.Helper()

	place := &Place{
		Name:    "Gurdwara Sahib Khalsa Diwan",
		Address: "456 Fraser Street",
		Point:   &spatial.Point{Lat: 49.2501, Lng: -123.1001},
		Label:   classify.LabelGurdwara,
	}
	require.NoError(t, places.SavePlace(place))

	return place
}

func newCandidate(name, address string, point *spatial.Point, ref string) *Candidate {
	return &Candidate{
		PlaceRecord: match.PlaceRecord{
			Name:    name,
			Address: address,
			Point:   point,
			Country: "CA",
			Region:  "BC",
		},
		Provider: "places",
		Ref:      ref,
	}
}

func TestIngestAutoMerge(t *testing.T) {
	_, places, reviews := setupTestDB(t)
	canonical := seedCanonical(t, places)

	ing := NewIngestor(places, reviews)
	ing.MaxProcs = 2

	candidate := newCandidate(
		"Gurdwara Sahib",
		"456 Fraser St",
		&spatial.Point{Lat: 49.25, Lng: -123.10},
		"ChIJmerge1",
	)

	metrics, err := ing.Run([]*Candidate{candidate})
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.Merged)
	assert.Zero(t, metrics.Inserted)
	assert.Zero(t, metrics.Queued)

	sources, err := places.ListSources(canonical.ID)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "places", sources[0].Provider)
	assert.Equal(t, "ChIJmerge1", sources[0].Ref)

	count, err := places.CountPlaces()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "merge must not create a new place")
}

func TestIngestInsertNew(t *testing.T) {
	_, places, reviews := setupTestDB(t)
	seedCanonical(t, places)

	ing := NewIngestor(places, reviews)

	candidate := newCandidate(
		"Punjab Food Centre",
		"6635 Main Street",
		&spatial.Point{Lat: 49.2245, Lng: -123.1010},
		"ChIJnew1",
	)
	candidate.CategoryTags = []string{"intlgrocery"}

	metrics, err := ing.Run([]*Candidate{candidate})
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.Inserted)

	count, err := places.CountPlaces()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	label := classify.LabelGrocer

	grocers, err := places.ListPlaces(&label, 0, 0)
	require.NoError(t, err)
	require.Len(t, grocers, 1)
	assert.Equal(t, "Punjab Food Centre", grocers[0].Name)
}

func TestIngestReviewBand(t *testing.T) {
	_, places, reviews := setupTestDB(t)
	canonical := seedCanonical(t, places)

	ing := NewIngestor(places, reviews)
	// Widen the review band so a same-cell, partially-matching record
	// lands in it deterministically
	ing.SetThresholds(Thresholds{AutoMerge: 0.99, Review: 0.40})

	candidate := newCandidate(
		"Khalsa Community Kitchen",
		"458 Fraser Street",
		&spatial.Point{Lat: 49.2502, Lng: -123.1002},
		"ChIJreview1",
	)

	metrics, err := ing.Run([]*Candidate{candidate})
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.Queued)

	pending, err := reviews.ListPending(0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, canonical.ID, pending[0].BestPlaceID)
	assert.Equal(t, "Khalsa Community Kitchen", pending[0].Name)
}

func TestIngestGateAndValidation(t *testing.T) {
	_, places, reviews := setupTestDB(t)

	ing := NewIngestor(places, reviews)

	candidates := []*Candidate{
		// Outside the service area
		newCandidate("Seattle Gurdwara", "", &spatial.Point{Lat: 47.6, Lng: -122.33}, "out1"),
		// Wrong country
		{
			PlaceRecord: match.PlaceRecord{Name: "Portland Mandir", Country: "US"},
			Provider:    "places",
			Ref:         "out2",
		},
		// No name
		{
			PlaceRecord: match.PlaceRecord{Address: "123 Main Street"},
			Provider:    "places",
			Ref:         "bad1",
		},
		// Fine
		newCandidate("Apna Bazaar", "", nil, "ok1"),
	}

	metrics, err := ing.Run(candidates)
	require.NoError(t, err)

	assert.Equal(t, 2, metrics.Skipped)
	assert.Equal(t, 1, metrics.Invalid)
	assert.Equal(t, 1, metrics.Inserted)

	count, err := places.CountPlaces()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestMergeBackfillsMissingFields(t *testing.T) {
	_, places, reviews := setupTestDB(t)

	// Canonical record with no coordinates yet; the merge must pick up
	// the candidate's point and address, and the name must carry enough
	// signal on its own
	canonical := &Place{
		Name:  "Gurdwara Sahib Khalsa Diwan",
		Label: classify.LabelGurdwara,
	}
	require.NoError(t, places.SavePlace(canonical))

	ing := NewIngestor(places, reviews)
	// With no canonical address or point, only the name contributes
	// above neutral; lower the bar accordingly
	ing.SetThresholds(Thresholds{AutoMerge: 0.50, Review: 0.30})

	candidate := newCandidate(
		"Gurdwara Sahib Khalsa Diwan",
		"456 Fraser Street",
		&spatial.Point{Lat: 49.2501, Lng: -123.1001},
		"ChIJfill1",
	)

	metrics, err := ing.Run([]*Candidate{candidate})
	require.NoError(t, err)
	require.Equal(t, 1, metrics.Merged)

	got, err := places.GetPlace(canonical.ID)
	require.NoError(t, err)
	assert.Equal(t, "456 Fraser Street", got.Address)
	require.NotNil(t, got.Point)
	assert.InDelta(t, 49.2501, got.Point.Lat, 1e-6)
}

func TestAcceptAndRejectReview(t *testing.T) {
	_, places, reviews := setupTestDB(t)
	canonical := seedCanonical(t, places)

	ing := NewIngestor(places, reviews)

	item := &ReviewItem{
		Provider:    "reviews",
		Ref:         "gurdwara-sahib-vancouver",
		Name:        "Gurdwara Sahib",
		Address:     "456 Fraser St",
		Point:       &spatial.Point{Lat: 49.25, Lng: -123.10},
		Label:       classify.LabelGurdwara,
		BestPlaceID: canonical.ID,
		Score:       0.82,
	}
	require.NoError(t, reviews.Enqueue(item))

	require.NoError(t, ing.AcceptReview(item.ID))

	sources, err := places.ListSources(canonical.ID)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.InDelta(t, 0.82, sources[0].Score, 1e-9)

	got, err := reviews.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, ReviewAccepted, got.Status)

	// Reject path creates a distinct place
	other := &ReviewItem{
		Provider:    "reviews",
		Ref:         "khalsa-kitchen-vancouver",
		Name:        "Khalsa Community Kitchen",
		Address:     "458 Fraser Street",
		Label:       classify.LabelOrg,
		BestPlaceID: canonical.ID,
		Score:       0.75,
	}
	require.NoError(t, reviews.Enqueue(other))
	require.NoError(t, ing.RejectReview(other.ID))

	count, err := places.CountPlaces()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestNegativeMaxProcs(t *testing.T) {
	_, places, reviews := setupTestDB(t)
	seedCanonical(t, places)

	ing := NewIngestor(places, reviews)
	ing.MaxProcs = -1

	candidate := newCandidate(
		"Gurdwara Sahib",
		"456 Fraser St",
		&spatial.Point{Lat: 49.25, Lng: -123.10},
		"ChIJnegprocs1",
	)

	// A nonsense worker count falls back to one worker per CPU
	metrics, err := ing.Run([]*Candidate{candidate})
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Merged)
}

type failingNearbyRepository struct {
	PlaceRepository
}

func (failingNearbyRepository) ListNearby(*spatial.Point) ([]*Place, error) {
	return nil, errors.New("connection lost")
}

func TestIngestStorageFailureAbortsBatch(t *testing.T) {
	_, places, reviews := setupTestDB(t)

	ing := NewIngestor(failingNearbyRepository{places}, reviews)

	candidate := newCandidate("Apna Bazaar", "", nil, "ok1")

	metrics, err := ing.Run([]*Candidate{candidate})
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection lost")

	// A storage failure is an error, not a defect in the record
	assert.Equal(t, 1, metrics.Errors)
	assert.Zero(t, metrics.Invalid)
}

func TestIngestMetricsMerge(t *testing.T) {
	total := &IngestMetrics{}
	total.Merge(&IngestMetrics{Total: 3, Merged: 1, Inserted: 2})
	total.Merge(&IngestMetrics{Total: 2, Queued: 1, Skipped: 1})

	assert.Equal(t, 5, total.Total)
	assert.Equal(t, 1, total.Merged)
	assert.Equal(t, 2, total.Inserted)
	assert.Equal(t, 1, total.Queued)
	assert.Equal(t, 1, total.Skipped)
}
