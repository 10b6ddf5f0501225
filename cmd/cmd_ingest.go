// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/sangamhq/placedir/directory"
	"github.com/sangamhq/placedir/provider"
	"github.com/spf13/cobra"
)

type ingestOptions struct {
	// Lat, Lng center the provider search
	Lat float64
	Lng float64

	// RadiusMeters bounds the place search
	RadiusMeters int

	// Limit caps the number of records fetched from the review service
	Limit int

	// MaxProcs bounds the scoring worker pool
	MaxProcs int

	// AutoMerge and Review override the decision thresholds
	AutoMerge float64
	Review    float64
}

var ingestOpts = &ingestOptions{}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch provider records and run them through the pipeline",
}

func newIngestor(places directory.PlaceRepository, reviews directory.ReviewRepository) *directory.Ingestor {
	ing := directory.NewIngestor(places, reviews)
	ing.MaxProcs = ingestOpts.MaxProcs
	ing.SetThresholds(directory.Thresholds{
		AutoMerge: ingestOpts.AutoMerge,
		Review:    ingestOpts.Review,
	})

	return ing
}

func runIngest(candidates []*directory.Candidate) error {
	db, places, reviews, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	metrics, err := newIngestor(places, reviews).Run(candidates)
	if err != nil {
		return fmt.Errorf("running ingest: %w", err)
	}

	fmt.Printf("✅ %s\n", metrics)

	return nil
}

var ingestReviewsCmd = &cobra.Command{
	Use:   "reviews <term>",
	Short: "Ingest businesses from the review service",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		apiKey := os.Getenv("REVIEWS_API_KEY")
		if apiKey == "" {
			return fmt.Errorf("REVIEWS_API_KEY is not set")
		}

		client := provider.NewReviewsClient(apiKey)

		candidates, err := client.Search(args[0], ingestOpts.Lat, ingestOpts.Lng, ingestOpts.Limit)
		if err != nil {
			return fmt.Errorf("searching review service: %w", err)
		}

		log.Printf("Fetched %d candidates from the review service", len(candidates))

		return runIngest(candidates)
	},
}

var ingestPlacesCmd = &cobra.Command{
	Use:   "places <query>",
	Short: "Ingest places from the place-search service",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		apiKey := os.Getenv("PLACES_API_KEY")
		if apiKey == "" {
			log.Println("PLACES_API_KEY is not set. Attempting to retrieve via ADC...")

			var err error

			apiKey, err = provider.APIKeyFromADC(context.Background())
			if err != nil {
				return fmt.Errorf("PLACES_API_KEY is not set and ADC failed: %w", err)
			}

			log.Println("✅ Successfully retrieved place-search API key via ADC")
		}

		client := provider.NewPlacesClient(apiKey)

		candidates, err := client.TextSearch(args[0], ingestOpts.Lat, ingestOpts.Lng, ingestOpts.RadiusMeters)
		if err != nil {
			return fmt.Errorf("searching place service: %w", err)
		}

		log.Printf("Fetched %d candidates from the place-search service", len(candidates))

		return runIngest(candidates)
	},
}

var ingestFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Ingest candidates from a JSON file",
	Long: `Reads a JSON array of candidate records and runs them through the
pipeline. Useful for replaying provider exports and for offline testing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0]) // #nosec G304 - filepath is provided by admin
		if err != nil {
			return fmt.Errorf("reading candidates file: %w", err)
		}

		var candidates []*directory.Candidate
		if err := json.Unmarshal(data, &candidates); err != nil {
			return fmt.Errorf("parsing candidates file: %w", err)
		}

		return runIngest(candidates)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestReviewsCmd)
	ingestCmd.AddCommand(ingestPlacesCmd)
	ingestCmd.AddCommand(ingestFileCmd)

	ingestCmd.PersistentFlags().Float64Var(
		&ingestOpts.Lat,
		"lat",
		49.25,
		"Latitude to center the provider search on",
	)
	ingestCmd.PersistentFlags().Float64Var(
		&ingestOpts.Lng,
		"lng",
		-123.10,
		"Longitude to center the provider search on",
	)
	ingestCmd.PersistentFlags().IntVar(
		&ingestOpts.RadiusMeters,
		"radius",
		25000,
		"Search radius in meters for the place-search service",
	)
	ingestCmd.PersistentFlags().IntVar(
		&ingestOpts.Limit,
		"limit",
		50,
		"Maximum number of records to fetch from the review service",
	)
	ingestCmd.PersistentFlags().IntVar(
		&ingestOpts.MaxProcs,
		"max-procs",
		0,
		"Max number of scoring workers. Defaults to the number of CPUs",
	)
	thresholds := directory.DefaultThresholds()
	ingestCmd.PersistentFlags().Float64Var(
		&ingestOpts.AutoMerge,
		"auto-merge-threshold",
		thresholds.AutoMerge,
		"Score at or above which a candidate merges without review",
	)
	ingestCmd.PersistentFlags().Float64Var(
		&ingestOpts.Review,
		"review-threshold",
		thresholds.Review,
		"Score at or above which a candidate goes to manual review",
	)
}
