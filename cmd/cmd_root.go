// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/sangamhq/placedir/directory"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})

	rootCmd.PersistentFlags().StringVar(
		&dbPath,
		"db-path",
		"db",
		"Base directory for the place database",
	)
}

var rootCmd = &cobra.Command{
	Use:   "placedir",
	Short: "place directory for the Metro Vancouver South Asian community",
	Long: `
placedir maintains a curated directory of places - gurdwaras, mandirs,
masjids, restaurants, grocers and more - by ingesting records from external
providers, matching them against the directory and classifying them.
`,
}

var dbPath string

// seedFile is the version-controlled JSON export of the directory.
const seedFile = "places.json"

func dbFile() string {
	return filepath.Join(dbPath, "placedir.duckdb")
}

// openDB opens the database and ensures the schema exists.
func openDB() (*sql.DB, directory.PlaceRepository, directory.ReviewRepository, error) {
	if err := os.MkdirAll(dbPath, 0o750); err != nil {
		return nil, nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", dbFile())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	places := directory.NewPlaceRepository(db)
	if err := places.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, nil, fmt.Errorf("creating places schema: %w", err)
	}

	reviews := directory.NewReviewRepository(db)
	if err := reviews.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, nil, fmt.Errorf("creating review schema: %w", err)
	}

	return db, places, reviews, nil
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
