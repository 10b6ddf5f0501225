// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sangamhq/placedir/classify"
	"github.com/sangamhq/placedir/match"
	"github.com/sangamhq/placedir/region"
	"github.com/schollz/progressbar/v3"
)

// Thresholds is the ingest decision policy. The scorer only produces a raw
// confidence; where the merge / review / insert lines sit is tuned here.
type Thresholds struct {
	// AutoMerge is the score at or above which a candidate is merged
	// into its best match without human review
	AutoMerge float64 `json:"auto_merge"`

	// Review is the score at or above which (but below AutoMerge) a
	// candidate goes to the manual review queue
	Review float64 `json:"review"`
}

// DefaultThresholds returns the production decision policy.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoMerge: 0.90, Review: 0.70}
}

// Candidate is one provider record entering the pipeline.
type Candidate struct {
	match.PlaceRecord

	// Provider identifies which upstream the record came from
	Provider string `json:"provider"`

	// Ref is the provider's stable identifier for the record
	Ref string `json:"ref"`
}

// IngestMetrics tracks pipeline outcomes for one batch.
type IngestMetrics struct {
	Total    int
	Invalid  int
	Skipped  int
	Merged   int
	Queued   int
	Inserted int
	Errors   int
}

// Merge accumulates another batch's metrics into this one.
func (m *IngestMetrics) Merge(other *IngestMetrics) {
	m.Total += other.Total
	m.Invalid += other.Invalid
	m.Skipped += other.Skipped
	m.Merged += other.Merged
	m.Queued += other.Queued
	m.Inserted += other.Inserted
	m.Errors += other.Errors
}

func (m *IngestMetrics) String() string {
	return fmt.Sprintf(
		"%d candidates: %d merged, %d queued, %d inserted, %d skipped, %d invalid, %d errors",
		m.Total, m.Merged, m.Queued, m.Inserted, m.Skipped, m.Invalid, m.Errors,
	)
}

// Ingestor runs provider records through validate, gate, classify and score,
// then applies the threshold policy against the canonical directory.
type Ingestor struct {
	places     PlaceRepository
	reviews    ReviewRepository
	scorer     *match.Scorer
	validator  *region.Validator
	thresholds Thresholds

	// MaxProcs bounds the scoring worker pool; zero or negative means
	// one per CPU
	MaxProcs int
}

// NewIngestor wires a pipeline against the given repositories with the
// default scorer, service area and thresholds.
func NewIngestor(places PlaceRepository, reviews ReviewRepository) *Ingestor {
	return &Ingestor{
		places:     places,
		reviews:    reviews,
		scorer:     match.NewScorer(),
		validator:  region.NewValidator(region.DefaultServiceArea()),
		thresholds: DefaultThresholds(),
	}
}

// SetScorer overrides the default scorer, for tuned weights.
func (ing *Ingestor) SetScorer(s *match.Scorer) { ing.scorer = s }

// SetValidator overrides the default service area gate.
func (ing *Ingestor) SetValidator(v *region.Validator) { ing.validator = v }

// SetThresholds overrides the default decision policy.
func (ing *Ingestor) SetThresholds(t Thresholds) { ing.thresholds = t }

type action int

const (
	actionInvalid action = iota
	actionError
	actionSkip
	actionMerge
	actionQueue
	actionInsert
)

// decision is the fully-scored outcome for one candidate. Scoring runs on
// the worker pool; decisions are applied serially afterwards so repository
// writes never race.
type decision struct {
	candidate *Candidate
	label     classify.Label
	best      match.Match
	nearby    []*Place
	act       action
	err       error
}

// Run processes a batch of provider records and returns batch metrics.
// Bad records are counted, logged and do not abort the batch; repository
// failures do, whether hit while scoring or while applying decisions.
func (ing *Ingestor) Run(candidates []*Candidate) (*IngestMetrics, error) {
	n := len(candidates)

	maxProcs := ing.MaxProcs
	if maxProcs <= 0 {
		maxProcs = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription("Scoring candidates"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var wg sync.WaitGroup

	semaphore := make(chan struct{}, maxProcs)
	decisions := make([]decision, n)

	for i, candidate := range candidates {
		wg.Add(1)

		go func(i int, candidate *Candidate) {
			defer wg.Done()
			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			decisions[i] = ing.decide(candidate)

			if bar != nil {
				if err := bar.Add(1); err != nil {
					log.Printf("updating progress bar: %v", err)
				}
			}
		}(i, candidate)
	}

	wg.Wait()

	metrics := &IngestMetrics{Total: n}

	for i := range decisions {
		if err := ing.apply(&decisions[i], metrics); err != nil {
			return metrics, err
		}
	}

	log.Printf("Ingest complete - %s", metrics)

	return metrics, nil
}

// decide runs the read-only part of the pipeline for one candidate.
func (ing *Ingestor) decide(candidate *Candidate) decision {
	d := decision{candidate: candidate}

	if err := candidate.Validate(); err != nil {
		d.act = actionInvalid
		d.err = err

		return d
	}

	if !ing.validator.Eligible(&candidate.PlaceRecord) {
		d.act = actionSkip

		return d
	}

	label, err := classify.Classify(candidate.Name, candidate.CategoryTags, candidate.TypeTags)
	if err != nil {
		d.act = actionInvalid
		d.err = err

		return d
	}

	d.label = label

	nearby, err := ing.places.ListNearby(candidate.Point)
	if err != nil {
		// A storage failure, not a problem with the record. Surfaced
		// as a batch error rather than counted against the candidate.
		d.act = actionError
		d.err = fmt.Errorf("listing nearby places: %w", err)

		return d
	}

	d.nearby = nearby

	records := make([]*match.PlaceRecord, len(nearby))
	for i, p := range nearby {
		records[i] = &match.PlaceRecord{
			Name:         p.Name,
			Address:      p.Address,
			Point:        p.Point,
			CategoryTags: p.CategoryTags,
			TypeTags:     p.TypeTags,
		}
	}

	// The outer pool already saturates the CPUs
	d.best = ing.scorer.BestMatch(&candidate.PlaceRecord, records, 1)

	switch {
	case d.best.Index >= 0 && d.best.Score >= ing.thresholds.AutoMerge:
		d.act = actionMerge
	case d.best.Index >= 0 && d.best.Score >= ing.thresholds.Review:
		d.act = actionQueue
	default:
		d.act = actionInsert
	}

	return d
}

// apply performs the repository writes for one decision.
func (ing *Ingestor) apply(d *decision, metrics *IngestMetrics) error {
	candidate := d.candidate

	switch d.act {
	case actionInvalid:
		metrics.Invalid++

		if d.err != nil {
			log.Printf("Rejecting %s/%s - %v", candidate.Provider, candidate.Ref, d.err)
		}

	case actionError:
		metrics.Errors++

		return fmt.Errorf("scoring %s/%s: %w", candidate.Provider, candidate.Ref, d.err)

	case actionSkip:
		metrics.Skipped++

	case actionMerge:
		place := d.nearby[d.best.Index]

		if err := ing.merge(candidate, place, d.best.Score); err != nil {
			metrics.Errors++

			return fmt.Errorf("merging %s/%s into place %d: %w", candidate.Provider, candidate.Ref, place.ID, err)
		}

		metrics.Merged++

	case actionQueue:
		place := d.nearby[d.best.Index]

		item := &ReviewItem{
			Provider:     candidate.Provider,
			Ref:          candidate.Ref,
			Name:         candidate.Name,
			Address:      candidate.Address,
			Point:        candidate.Point,
			Label:        d.label,
			CategoryTags: candidate.CategoryTags,
			TypeTags:     candidate.TypeTags,
			BestPlaceID:  place.ID,
			Score:        d.best.Score,
		}
		if err := ing.reviews.Enqueue(item); err != nil {
			metrics.Errors++

			return fmt.Errorf("queueing %s/%s: %w", candidate.Provider, candidate.Ref, err)
		}

		metrics.Queued++

	case actionInsert:
		if err := ing.Insert(candidate, d.label); err != nil {
			metrics.Errors++

			return fmt.Errorf("inserting %s/%s: %w", candidate.Provider, candidate.Ref, err)
		}

		metrics.Inserted++
	}

	return nil
}

// merge records the provider sighting on the canonical place and backfills
// fields the canonical record is missing.
func (ing *Ingestor) merge(candidate *Candidate, place *Place, score float64) error {
	if err := ing.places.AddSource(&Source{
		PlaceID:  place.ID,
		Provider: candidate.Provider,
		Ref:      candidate.Ref,
		Score:    score,
	}); err != nil {
		return err
	}

	changed := false

	if place.Point == nil && candidate.Point != nil {
		place.Point = candidate.Point
		changed = true
	}

	if place.Address == "" && candidate.Address != "" {
		place.Address = candidate.Address
		changed = true
	}

	if !changed {
		return nil
	}

	return ing.places.SavePlace(place)
}

// Insert creates a new canonical place from a candidate, recording its
// provider sighting. Also used when a review item is rejected.
func (ing *Ingestor) Insert(candidate *Candidate, label classify.Label) error {
	place := &Place{
		Name:         candidate.Name,
		Address:      candidate.Address,
		Point:        candidate.Point,
		Label:        label,
		CategoryTags: candidate.CategoryTags,
		TypeTags:     candidate.TypeTags,
	}

	if err := ing.places.SavePlace(place); err != nil {
		return err
	}

	return ing.places.AddSource(&Source{
		PlaceID:  place.ID,
		Provider: candidate.Provider,
		Ref:      candidate.Ref,
		Score:    1,
	})
}

// AcceptReview merges a pending review item into its best-match place.
func (ing *Ingestor) AcceptReview(id int) error {
	item, err := ing.reviews.GetItem(id)
	if err != nil {
		return fmt.Errorf("loading review item %d: %w", id, err)
	}

	place, err := ing.places.GetPlace(item.BestPlaceID)
	if err != nil {
		return fmt.Errorf("loading place %d: %w", item.BestPlaceID, err)
	}

	candidate := reviewCandidate(item)

	if err := ing.merge(candidate, place, item.Score); err != nil {
		return err
	}

	return ing.reviews.Resolve(id, ReviewAccepted)
}

// RejectReview inserts a pending review item as a distinct new place.
func (ing *Ingestor) RejectReview(id int) error {
	item, err := ing.reviews.GetItem(id)
	if err != nil {
		return fmt.Errorf("loading review item %d: %w", id, err)
	}

	if err := ing.Insert(reviewCandidate(item), item.Label); err != nil {
		return err
	}

	return ing.reviews.Resolve(id, ReviewRejected)
}

func reviewCandidate(item *ReviewItem) *Candidate {
	return &Candidate{
		PlaceRecord: match.PlaceRecord{
			Name:         item.Name,
			Address:      item.Address,
			Point:        item.Point,
			CategoryTags: item.CategoryTags,
			TypeTags:     item.TypeTags,
		},
		Provider: item.Provider,
		Ref:      item.Ref,
	}
}
