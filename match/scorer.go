// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"runtime"
	"sync"
)

// Address sub-score constants. Differing street numbers on the same street
// almost always mean different units or buildings, so the address score is
// clamped hard no matter how similar the street names are. Matching numbers
// earn a flat bonus instead.
const (
	numberMismatchScore = 0.2
	numberMatchBonus    = 0.2
)

// neutralDistanceScore is used when either record lacks usable coordinates:
// distance then neither confirms nor denies a match.
const neutralDistanceScore = 0.5

// Weights splits the composite score between the three signals. Names are
// the cleanest provider field, addresses the noisiest, and distance alone
// cannot tell neighboring units apart - hence the ordering.
type Weights struct {
	Name     float64 `json:"name"`
	Address  float64 `json:"address"`
	Distance float64 `json:"distance"`
}

// DistanceDecay is the linear ramp from full confidence at Near meters
// down to zero at Far meters.
type DistanceDecay struct {
	Near float64 `json:"near"` // meters, score 1.0 at or below
	Far  float64 `json:"far"`  // meters, score 0.0 at or beyond
}

// ScorerConfig carries the tuned constants. They have no derivation beyond
// observed provider data, so they are configuration rather than code.
type ScorerConfig struct {
	Weights Weights       `json:"weights"`
	Decay   DistanceDecay `json:"decay"`
}

// DefaultScorerConfig returns the production tuning.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights: Weights{Name: 0.40, Address: 0.35, Distance: 0.25},
		Decay:   DistanceDecay{Near: 50, Far: 200},
	}
}

// Scorer computes composite match confidence between two place records.
// It is stateless and safe for concurrent use.
type Scorer struct {
	cfg ScorerConfig
}

// NewScorer creates a scorer with the default weights and decay.
func NewScorer() *Scorer {
	return NewScorerWithConfig(DefaultScorerConfig())
}

// NewScorerWithConfig creates a scorer with custom tuning.
func NewScorerWithConfig(cfg ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score returns the composite confidence in [0,1] that candidate and
// canonical denote the same real-world place. Pure: no side effects, no
// persisted decision. Thresholding is the caller's policy.
func (s *Scorer) Score(candidate, canonical *PlaceRecord) float64 {
	name := PrefixSimilarity(Normalize(candidate.Name), Normalize(canonical.Name))
	address := s.addressScore(candidate.Address, canonical.Address)
	distance := s.distanceScore(candidate, canonical)

	score := s.cfg.Weights.Name*name +
		s.cfg.Weights.Address*address +
		s.cfg.Weights.Distance*distance

	return clamp01(score)
}

func (s *Scorer) addressScore(a, b string) float64 {
	sa := ParseStreet(a)
	sb := ParseStreet(b)

	if sa.Number != "" && sb.Number != "" && sa.Number != sb.Number {
		return numberMismatchScore
	}

	score := PrefixSimilarity(sa.Name, sb.Name)

	if sa.Number != "" && sa.Number == sb.Number {
		score += numberMatchBonus
	}

	return clamp01(score)
}

func (s *Scorer) distanceScore(candidate, canonical *PlaceRecord) float64 {
	if candidate.Point == nil || canonical.Point == nil ||
		!candidate.Point.Valid() || !canonical.Point.Valid() {
		return neutralDistanceScore
	}

	d := candidate.Point.HaversineDistance(canonical.Point)

	switch {
	case d <= s.cfg.Decay.Near:
		return 1
	case d >= s.cfg.Decay.Far:
		return 0
	default:
		return 1 - (d-s.cfg.Decay.Near)/(s.cfg.Decay.Far-s.cfg.Decay.Near)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// Match is the result of comparing one candidate against a canonical set.
type Match struct {
	Index int     `json:"index"` // position in the canonical slice, -1 if empty
	Score float64 `json:"score"`
}

// BestMatch scores the candidate against every canonical record and returns
// the highest-scoring one. Each pair score is independent, so comparisons
// run on a bounded worker pool; maxProcs 0 means one worker per CPU.
func (s *Scorer) BestMatch(candidate *PlaceRecord, canonicals []*PlaceRecord, maxProcs int) Match {
	if len(canonicals) == 0 {
		return Match{Index: -1}
	}

	if maxProcs <= 0 {
		maxProcs = runtime.NumCPU()
	}

	scores := make([]float64, len(canonicals))

	var wg sync.WaitGroup

	semaphore := make(chan struct{}, maxProcs)

	for i, canonical := range canonicals {
		wg.Add(1)

		go func(i int, canonical *PlaceRecord) {
			defer wg.Done()
			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			scores[i] = s.Score(candidate, canonical)
		}(i, canonical)
	}

	wg.Wait()

	best := Match{Index: 0, Score: scores[0]}

	for i := 1; i < len(scores); i++ {
		if scores[i] > best.Score {
			best = Match{Index: i, Score: scores[i]}
		}
	}

	return best
}
