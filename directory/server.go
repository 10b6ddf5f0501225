// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sangamhq/placedir/classify"
	"github.com/sangamhq/placedir/match"
	"github.com/sangamhq/placedir/spatial"
)

// Server exposes the directory and the review workflow as a JSON API.
type Server struct {
	places   PlaceRepository
	reviews  ReviewRepository
	ingestor *Ingestor
	scorer   *match.Scorer
}

// NewServer wires the API against the given repositories.
func NewServer(places PlaceRepository, reviews ReviewRepository, ingestor *Ingestor) *Server {
	return &Server{
		places:   places,
		reviews:  reviews,
		ingestor: ingestor,
		scorer:   match.NewScorer(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/places", s.listPlaces)
	r.GET("/api/places/:id", s.getPlace)
	r.GET("/api/places/:id/sources", s.listSources)
	r.GET("/api/nearby", s.listNearby)
	r.GET("/api/mismatches", s.listMismatches)
	r.GET("/api/stats", s.getStats)
	r.POST("/api/suggest", s.suggest)
	r.GET("/api/review/queue", s.getReviewQueue)
	r.POST("/api/review/accept/:id", s.acceptReview)
	r.POST("/api/review/reject/:id", s.rejectReview)

	return r
}

// Run serves the API on the given address until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) listPlaces(ctx *gin.Context) {
	var label *classify.Label

	if param := ctx.Query("label"); param != "" {
		l := classify.Label(param)
		label = &l
	}

	limit := intQuery(ctx, "limit", 100)
	offset := intQuery(ctx, "offset", 0)

	places, err := s.places.ListPlaces(label, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, places)
}

func (s *Server) getPlace(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})

		return
	}

	place, err := s.places.GetPlace(id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "place not found"})

		return
	}

	ctx.JSON(http.StatusOK, place)
}

func (s *Server) listSources(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})

		return
	}

	sources, err := s.places.ListSources(id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, sources)
}

func (s *Server) listNearby(ctx *gin.Context) {
	point, ok := pointQuery(ctx)
	if !ok {
		return
	}

	places, err := s.places.ListNearby(point)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, places)
}

func (s *Server) listMismatches(ctx *gin.Context) {
	mismatches, err := SweepMismatches(s.places)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, mismatches)
}

func (s *Server) getStats(ctx *gin.Context) {
	count, err := s.places.CountPlaces()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	reviewCounts, err := s.reviews.CountByStatus()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"places": count,
		"review": reviewCounts,
	})
}

// SuggestionResponse carries the read-only engine verdict for a posted
// candidate: its label and its best match in the directory, if any.
type SuggestionResponse struct {
	Label     classify.Label `json:"label"`
	BestPlace *Place         `json:"best_place,omitempty"`
	Score     float64        `json:"score"`
}

func (s *Server) suggest(ctx *gin.Context) {
	var candidate Candidate
	if err := ctx.BindJSON(&candidate); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := candidate.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	label, err := classify.Classify(candidate.Name, candidate.CategoryTags, candidate.TypeTags)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	nearby, err := s.places.ListNearby(candidate.Point)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	records := make([]*match.PlaceRecord, len(nearby))
	for i, p := range nearby {
		records[i] = &match.PlaceRecord{
			Name:    p.Name,
			Address: p.Address,
			Point:   p.Point,
		}
	}

	best := s.scorer.BestMatch(&candidate.PlaceRecord, records, 0)

	resp := SuggestionResponse{Label: label, Score: best.Score}
	if best.Index >= 0 {
		resp.BestPlace = nearby[best.Index]
	}

	ctx.JSON(http.StatusOK, resp)
}

func (s *Server) getReviewQueue(ctx *gin.Context) {
	limit := intQuery(ctx, "limit", 100)
	offset := intQuery(ctx, "offset", 0)

	items, err := s.reviews.ListPending(limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, items)
}

func (s *Server) acceptReview(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})

		return
	}

	if err := s.ingestor.AcceptReview(id); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": ReviewAccepted})
}

func (s *Server) rejectReview(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})

		return
	}

	if err := s.ingestor.RejectReview(id); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": ReviewRejected})
}

func intQuery(ctx *gin.Context, name string, fallback int) int {
	param := ctx.Query(name)
	if param == "" {
		return fallback
	}

	v, err := strconv.Atoi(param)
	if err != nil {
		return fallback
	}

	return v
}

func pointQuery(ctx *gin.Context) (*spatial.Point, bool) {
	lat, errLat := strconv.ParseFloat(ctx.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(ctx.Query("lng"), 64)

	if errLat != nil || errLng != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})

		return nil, false
	}

	point := &spatial.Point{Lat: lat, Lng: lng}
	if !point.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})

		return nil, false
	}

	return point, true
}
