// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"

	"github.com/sangamhq/placedir/directory"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the directory and review web server (local only)",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, places, reviews, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		seeded, count, err := directory.SeedIfEmpty(places, seedFile)
		if err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}

		if seeded {
			log.Printf("Seeded %d places from %s", count, seedFile)
		}

		server := directory.NewServer(places, reviews, directory.NewIngestor(places, reviews))

		fmt.Println("🗺️  Directory review server starting...")
		fmt.Printf("📍 Open http://%s in your browser\n", serveAddr)
		fmt.Println("🔒 Local only - not exposed to internet")

		return server.Run(serveAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(
		&serveAddr,
		"addr",
		"localhost:8080",
		"Address to serve the API on",
	)
}
