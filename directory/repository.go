// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

// Package directory is the canonical place store and the ingestion workflow
// around it. The matching and classification engine itself lives in match
// and classify; this package persists its decisions.
package directory

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/sangamhq/placedir/classify"
	"github.com/sangamhq/placedir/spatial"
	"github.com/uber/h3-go/v4"
)

// nearbyResolution is the H3 resolution used for the proximity pre-filter.
// Res 8 cells are roughly 460 m across, comfortably wider than the 200 m
// far edge of the distance decay, so one ring of neighbors never misses a
// candidate that could still score above zero on distance.
const nearbyResolution = 8

// Place is a canonical directory entry. CategoryTags and TypeTags keep the
// raw provider vocabularies so records can be reclassified when the rule
// tables change.
type Place struct {
	ID           int            `json:"id"`
	Name         string         `json:"name"`
	Address      string         `json:"address,omitempty"`
	Point        *spatial.Point `json:"point,omitempty"`
	Label        classify.Label `json:"label"`
	CategoryTags []string       `json:"category_tags,omitempty"`
	TypeTags     []string       `json:"type_tags,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	H3Res1       int64          `json:"-"`
	H3Res2       int64          `json:"-"`
	H3Res3       int64          `json:"-"`
	H3Res4       int64          `json:"-"`
	H3Res5       int64          `json:"-"`
	H3Res6       int64          `json:"-"`
	H3Res7       int64          `json:"-"`
	H3Res8       int64          `json:"-"`
}

func (p *Place) computeH3() error {
	if p.Point != nil {
		latLng := h3.NewLatLng(p.Point.Lat, p.Point.Lng)
		for res := 1; res <= 8; res++ {
			cell, err := h3.LatLngToCell(latLng, res)
			if err != nil {
				return fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
			}

			switch res {
			case 1:
				p.H3Res1 = int64(cell)
			case 2:
				p.H3Res2 = int64(cell)
			case 3:
				p.H3Res3 = int64(cell)
			case 4:
				p.H3Res4 = int64(cell)
			case 5:
				p.H3Res5 = int64(cell)
			case 6:
				p.H3Res6 = int64(cell)
			case 7:
				p.H3Res7 = int64(cell)
			case 8:
				p.H3Res8 = int64(cell)
			}
		}
	} else {
		p.H3Res1 = 0
		p.H3Res2 = 0
		p.H3Res3 = 0
		p.H3Res4 = 0
		p.H3Res5 = 0
		p.H3Res6 = 0
		p.H3Res7 = 0
		p.H3Res8 = 0
	}

	return nil
}

// Source records one provider sighting merged into a canonical place.
type Source struct {
	PlaceID  int       `json:"place_id"`
	Provider string    `json:"provider"`
	Ref      string    `json:"ref"`
	Score    float64   `json:"score"`
	MergedAt time.Time `json:"merged_at"`
}

// PlaceRepository handles persistence of canonical places.
type PlaceRepository interface {
	// CreateSchema creates the places and place_sources tables
	CreateSchema() error

	// SavePlace saves a new place or updates an existing one by ID
	SavePlace(place *Place) error

	// GetPlace returns a single place by ID
	GetPlace(id int) (*Place, error)

	// ListPlaces returns places, optionally filtered by label
	ListPlaces(label *classify.Label, limit, offset int) ([]*Place, error)

	// GetAllPlacesSorted returns all places sorted by name and id,
	// suitable for stable JSON export
	GetAllPlacesSorted() ([]*Place, error)

	// BulkInsertPlaces inserts a slice of places in one transaction
	BulkInsertPlaces(places []*Place) error

	// CountPlaces returns the total number of places
	CountPlaces() (int, error)

	// ListNearby returns places whose res-8 H3 cell falls within one
	// grid ring of the given point
	ListNearby(point *spatial.Point) ([]*Place, error)

	// UpdateLabel reassigns a place's category label
	UpdateLabel(id int, label classify.Label) error

	// AddSource appends a provider sighting to a place
	AddSource(src *Source) error

	// ListSources returns all provider sightings for a place
	ListSources(placeID int) ([]*Source, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlPlaceRepository struct {
	db *sql.DB
}

// NewPlaceRepository creates a DuckDB-backed place repository.
func NewPlaceRepository(db *sql.DB) PlaceRepository {
	return &sqlPlaceRepository{db: db}
}

func (r *sqlPlaceRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlPlaceRepository) CreateSchema() error {
	// DuckDB needs to load the spatial extension
	_, err := r.db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS places_seq START 1;

		CREATE TABLE IF NOT EXISTS places (
			id INTEGER PRIMARY KEY DEFAULT nextval('places_seq'),
			name VARCHAR NOT NULL,
			address VARCHAR NOT NULL,
			point POINT_2D,
			label VARCHAR NOT NULL,
			category_tags VARCHAR NOT NULL,
			type_tags VARCHAR NOT NULL,
			notes TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			h3_res1 UBIGINT,
			h3_res2 UBIGINT,
			h3_res3 UBIGINT,
			h3_res4 UBIGINT,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT
		);

		CREATE TABLE IF NOT EXISTS place_sources (
			place_id INTEGER NOT NULL,
			provider VARCHAR NOT NULL,
			ref VARCHAR NOT NULL,
			score DOUBLE NOT NULL,
			merged_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(provider, ref)
		);
	`)

	return err
}

// Tags travel as a single pipe-joined column. The classifier normalizes
// tags before lookup, so the separator can never appear inside one.
func tagsToDB(tags []string) string {
	return strings.Join(tags, "|")
}

func tagsFromDB(s string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, "|")
}

func (r *sqlPlaceRepository) SavePlace(place *Place) error {
	if err := place.computeH3(); err != nil {
		return err
	}

	place.UpdatedAt = time.Now()

	if place.ID > 0 {
		var lng, lat any
		if place.Point != nil {
			lng, lat = place.Point.Lng, place.Point.Lat
		}

		_, err := r.db.Exec(`
			UPDATE places
			SET name = ?, address = ?, point = ST_Point(?, ?), label = ?,
			    category_tags = ?, type_tags = ?, notes = ?, updated_at = ?,
				h3_res1 = ?, h3_res2 = ?, h3_res3 = ?, h3_res4 = ?, h3_res5 = ?, h3_res6 = ?, h3_res7 = ?, h3_res8 = ?
			WHERE id = ?
		`,
			place.Name,
			place.Address,
			lng,
			lat,
			string(place.Label),
			tagsToDB(place.CategoryTags),
			tagsToDB(place.TypeTags),
			place.Notes,
			place.UpdatedAt,
			place.H3Res1,
			place.H3Res2,
			place.H3Res3,
			place.H3Res4,
			place.H3Res5,
			place.H3Res6,
			place.H3Res7,
			place.H3Res8,
			place.ID,
		)

		return err
	}

	place.CreatedAt = place.UpdatedAt

	return r.BulkInsertPlaces([]*Place{place})
}

func (r *sqlPlaceRepository) BulkInsertPlaces(places []*Place) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO places(
			name,
			address,
			point,
			label,
			category_tags,
			type_tags,
			notes,
			created_at,
			updated_at,
			h3_res1,
			h3_res2,
			h3_res3,
			h3_res4,
			h3_res5,
			h3_res6,
			h3_res7,
			h3_res8
		)
		VALUES (?, ?, ST_Point(?, ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}
	defer stmt.Close()

	now := time.Now()

	for _, p := range places {
		if err = p.computeH3(); err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return err
		}

		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}

		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}

		var lng, lat any
		if p.Point != nil {
			lng, lat = p.Point.Lng, p.Point.Lat
		}

		err := stmt.QueryRow(
			p.Name,
			p.Address,
			lng,
			lat,
			string(p.Label),
			tagsToDB(p.CategoryTags),
			tagsToDB(p.TypeTags),
			p.Notes,
			p.CreatedAt,
			p.UpdatedAt,
			p.H3Res1,
			p.H3Res2,
			p.H3Res3,
			p.H3Res4,
			p.H3Res5,
			p.H3Res6,
			p.H3Res7,
			p.H3Res8,
		).Scan(&p.ID)
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return fmt.Errorf("inserting place %q: %w", p.Name, err)
		}
	}

	return tx.Commit()
}

var baseSelect = `
	SELECT id, name, address, point, label,
	       category_tags, type_tags, notes,
		   created_at, updated_at,
		   h3_res1, h3_res2, h3_res3, h3_res4, h3_res5, h3_res6, h3_res7, h3_res8
	FROM places
`

func (r *sqlPlaceRepository) scanPlace(row interface{ Scan(...any) error }) (*Place, error) {
	place := &Place{}

	point := &spatial.Point{}

	var label, categoryTags, typeTags string

	var h3Res1, h3Res2, h3Res3, h3Res4, h3Res5, h3Res6, h3Res7, h3Res8 sql.NullInt64

	err := row.Scan(
		&place.ID,
		&place.Name,
		&place.Address,
		point,
		&label,
		&categoryTags,
		&typeTags,
		&place.Notes,
		&place.CreatedAt,
		&place.UpdatedAt,
		&h3Res1, &h3Res2, &h3Res3, &h3Res4, &h3Res5, &h3Res6, &h3Res7, &h3Res8,
	)
	if err != nil {
		return nil, err
	}

	// A NULL point scans as (0,0). Null Island is well outside any
	// service area this directory will ever cover.
	if point.Lat != 0 || point.Lng != 0 {
		place.Point = point
	}

	place.Label = classify.Label(label)
	place.CategoryTags = tagsFromDB(categoryTags)
	place.TypeTags = tagsFromDB(typeTags)

	if h3Res1.Valid {
		place.H3Res1 = h3Res1.Int64
	}

	if h3Res2.Valid {
		place.H3Res2 = h3Res2.Int64
	}

	if h3Res3.Valid {
		place.H3Res3 = h3Res3.Int64
	}

	if h3Res4.Valid {
		place.H3Res4 = h3Res4.Int64
	}

	if h3Res5.Valid {
		place.H3Res5 = h3Res5.Int64
	}

	if h3Res6.Valid {
		place.H3Res6 = h3Res6.Int64
	}

	if h3Res7.Valid {
		place.H3Res7 = h3Res7.Int64
	}

	if h3Res8.Valid {
		place.H3Res8 = h3Res8.Int64
	}

	return place, nil
}

func (r *sqlPlaceRepository) list(query string, args []any) ([]*Place, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []*Place

	for rows.Next() {
		place, err := r.scanPlace(rows)
		if err != nil {
			return nil, err
		}

		places = append(places, place)
	}

	return places, rows.Err()
}

func (r *sqlPlaceRepository) GetPlace(id int) (*Place, error) {
	return r.scanPlace(r.db.QueryRow(baseSelect+` WHERE id = ?`, id))
}

func (r *sqlPlaceRepository) ListPlaces(label *classify.Label, limit, offset int) ([]*Place, error) {
	query := baseSelect

	args := []any{}

	if label != nil {
		query += " WHERE label = ?"

		args = append(args, string(*label))
	}

	query += " ORDER BY updated_at DESC"

	if limit > 0 {
		query += " LIMIT ? OFFSET ?"

		args = append(args, limit, offset)
	}

	return r.list(query, args)
}

func (r *sqlPlaceRepository) GetAllPlacesSorted() ([]*Place, error) {
	return r.list(baseSelect+` ORDER BY name, id`, []any{})
}

func (r *sqlPlaceRepository) CountPlaces() (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM places",
	).Scan(&count)

	return count, err
}

func (r *sqlPlaceRepository) ListNearby(point *spatial.Point) ([]*Place, error) {
	if point == nil || !point.Valid() {
		// Without coordinates there is no pre-filter; every place with a
		// name is a potential match.
		return r.ListPlaces(nil, 0, 0)
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(point.Lat, point.Lng), nearbyResolution)
	if err != nil {
		return nil, fmt.Errorf("error converting to h3 cell at res %d: %w", nearbyResolution, err)
	}

	ring, err := h3.GridDisk(cell, 1)
	if err != nil {
		return nil, fmt.Errorf("error computing h3 grid disk: %w", err)
	}

	placeholders := make([]string, len(ring))
	args := make([]any, len(ring))

	for i, c := range ring {
		placeholders[i] = "?"
		args[i] = int64(c)
	}

	// Places stored without coordinates carry h3_res8 = 0 and can never
	// fall inside the ring, yet they still score against any candidate
	// (neutral distance). Always include them.
	query := baseSelect + ` WHERE h3_res8 IN (` + strings.Join(placeholders, ", ") + `) OR h3_res8 = 0`

	return r.list(query, args)
}

func (r *sqlPlaceRepository) UpdateLabel(id int, label classify.Label) error {
	result, err := r.db.Exec(`
		UPDATE places SET label = ?, updated_at = ? WHERE id = ?
	`, string(label), time.Now(), id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("place %d not found", id)
	}

	return nil
}

func (r *sqlPlaceRepository) AddSource(src *Source) error {
	if src.MergedAt.IsZero() {
		src.MergedAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO place_sources(place_id, provider, ref, score, merged_at)
		VALUES (?, ?, ?, ?, ?)
	`, src.PlaceID, src.Provider, src.Ref, src.Score, src.MergedAt)

	return err
}

func (r *sqlPlaceRepository) ListSources(placeID int) ([]*Source, error) {
	rows, err := r.db.Query(`
		SELECT place_id, provider, ref, score, merged_at
		FROM place_sources
		WHERE place_id = ?
		ORDER BY merged_at
	`, placeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*Source

	for rows.Next() {
		src := &Source{}
		if err := rows.Scan(&src.PlaceID, &src.Provider, &src.Ref, &src.Score, &src.MergedAt); err != nil {
			return nil, err
		}

		sources = append(sources, src)
	}

	return sources, rows.Err()
}
