// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SeedData represents the JSON seed file format. Places are exported
// sorted by name so the file diffs cleanly under version control.
type SeedData struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
	Places      []*Place  `json:"places"`
}

// ExportToJSON exports the whole directory to a JSON file.
func ExportToJSON(repo PlaceRepository, filepath string) error {
	places, err := repo.GetAllPlacesSorted()
	if err != nil {
		return fmt.Errorf("listing places: %w", err)
	}

	seed := &SeedData{
		Version:     "1.0",
		LastUpdated: time.Now(),
		Places:      places,
	}

	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	err = os.WriteFile(filepath, data, 0o600)
	if err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

// ImportFromJSON imports places from a JSON file.
func ImportFromJSON(repo PlaceRepository, filepath string) (int, error) {
	data, err := os.ReadFile(filepath) // #nosec G304 - filepath is provided by admin
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parsing JSON: %w", err)
	}

	// IDs belong to the exporting database; reassign on import
	for _, place := range seed.Places {
		place.ID = 0
	}

	if err := repo.BulkInsertPlaces(seed.Places); err != nil {
		return 0, fmt.Errorf("inserting places: %w", err)
	}

	return len(seed.Places), nil
}

// SeedIfEmpty seeds the database from a JSON file if no places exist.
func SeedIfEmpty(repo PlaceRepository, filepath string) (bool, int, error) {
	count, err := repo.CountPlaces()
	if err != nil {
		return false, 0, fmt.Errorf("counting places: %w", err)
	}

	if count > 0 {
		return false, count, nil
	}
	// Database is empty, try to seed
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		// No seed file exists, that's okay
		return false, 0, nil
	}

	imported, err := ImportFromJSON(repo, filepath)
	if err != nil {
		return false, 0, err
	}

	return true, imported, nil
}
