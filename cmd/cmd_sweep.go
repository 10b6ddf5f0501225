// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/sangamhq/placedir/directory"
	"github.com/spf13/cobra"
)

var sweepFix bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Find places whose name contradicts their category",
	Long: `Scans the directory for places whose name carries a worship term that
their assigned label does not match, a recurring provider data-quality
problem. With --fix the implied label is written back.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, places, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if sweepFix {
			fixed, err := directory.FixMismatches(places)
			if err != nil {
				return fmt.Errorf("fixing mismatches: %w", err)
			}

			fmt.Printf("✅ Relabeled %d places\n", fixed)

			return nil
		}

		mismatches, err := directory.SweepMismatches(places)
		if err != nil {
			return fmt.Errorf("sweeping directory: %w", err)
		}

		if len(mismatches) == 0 {
			fmt.Println("✅ No mismatches found")

			return nil
		}

		for _, m := range mismatches {
			fmt.Printf("%6d  %-40s  %s -> %s\n", m.Place.ID, m.Place.Name, m.Assigned, m.Implied)
		}

		fmt.Printf("Found %d mismatches. Re-run with --fix to relabel.\n", len(mismatches))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().BoolVar(&sweepFix, "fix", false, "Write the implied label back to the database")
}
