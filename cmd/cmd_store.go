// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/sangamhq/placedir/directory"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Export the directory to a file",
	Long: `Exports all places from the database to a local JSON file. The file is
sorted to minimize diffs when checking into version control.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, places, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		count, err := places.CountPlaces()
		if err != nil {
			return fmt.Errorf("counting places: %w", err)
		}

		if err := directory.ExportToJSON(places, seedFile); err != nil {
			return fmt.Errorf("exporting places: %w", err)
		}

		fmt.Printf("✅ Exported %d places to %s\n", count, seedFile)

		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Import the directory from a file",
	Long: `Imports places from the local JSON file into the database if the places
table is empty. A non-empty database is left untouched to avoid clobbering
unsaved review work.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, places, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		seeded, count, err := directory.SeedIfEmpty(places, seedFile)
		if err != nil {
			return fmt.Errorf("importing places: %w", err)
		}

		if !seeded {
			fmt.Printf("ℹ️  Database already has %d places, nothing imported\n", count)

			return nil
		}

		fmt.Printf("✅ Imported %d places from %s\n", count, seedFile)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(loadCmd)
}
