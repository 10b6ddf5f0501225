// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"fmt"
	"log"

	"github.com/sangamhq/placedir/classify"
)

// Mismatch is a stored place whose name implies a worship category its
// assigned label does not carry.
type Mismatch struct {
	Place    *Place         `json:"place"`
	Implied  classify.Label `json:"implied"`
	Assigned classify.Label `json:"assigned"`
}

// SweepMismatches scans the whole directory for worship-name mismatches.
// Read-only: relabeling is a separate, explicit step.
func SweepMismatches(repo PlaceRepository) ([]*Mismatch, error) {
	places, err := repo.GetAllPlacesSorted()
	if err != nil {
		return nil, fmt.Errorf("listing places: %w", err)
	}

	var mismatches []*Mismatch

	for _, place := range places {
		if !classify.IsNameCategoryMismatch(place.Name, place.Label) {
			continue
		}

		implied, err := classify.Classify(place.Name, nil, nil)
		if err != nil {
			// A stored place always has a name; classification of just
			// the name cannot fail here
			log.Printf("Sweep: classifying %q: %v", place.Name, err)

			continue
		}

		mismatches = append(mismatches, &Mismatch{
			Place:    place,
			Implied:  implied,
			Assigned: place.Label,
		})
	}

	return mismatches, nil
}

// FixMismatches relabels every mismatched place with its implied label and
// returns how many were changed.
func FixMismatches(repo PlaceRepository) (int, error) {
	mismatches, err := SweepMismatches(repo)
	if err != nil {
		return 0, err
	}

	for i, m := range mismatches {
		if err := repo.UpdateLabel(m.Place.ID, m.Implied); err != nil {
			return i, fmt.Errorf("relabeling place %d: %w", m.Place.ID, err)
		}

		log.Printf("Relabeled %q: %s -> %s", m.Place.Name, m.Assigned, m.Implied)
	}

	return len(mismatches), nil
}
