// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sangamhq/placedir/classify"
	"github.com/sangamhq/placedir/spatial"
)

// Review statuses. Pending items wait for a human; accepted items were
// merged into their best-match place; rejected items were inserted as new
// places instead.
const (
	ReviewPending  = "pending"
	ReviewAccepted = "accepted"
	ReviewRejected = "rejected"
)

// ReviewItem is a provider record whose best-match score landed in the
// ambiguous band. The candidate fields are snapshotted so the item stays
// reviewable even if the provider record changes upstream.
type ReviewItem struct {
	ID           int            `json:"id"`
	Provider     string         `json:"provider"`
	Ref          string         `json:"ref"`
	Name         string         `json:"name"`
	Address      string         `json:"address,omitempty"`
	Point        *spatial.Point `json:"point,omitempty"`
	Label        classify.Label `json:"label"`
	CategoryTags []string       `json:"category_tags,omitempty"`
	TypeTags     []string       `json:"type_tags,omitempty"`
	BestPlaceID  int            `json:"best_place_id"`
	Score        float64        `json:"score"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
}

// ReviewRepository handles persistence of the manual review queue.
type ReviewRepository interface {
	// CreateSchema creates the review_queue table
	CreateSchema() error

	// Enqueue adds a pending item, assigning its ID
	Enqueue(item *ReviewItem) error

	// GetItem returns a single item by ID
	GetItem(id int) (*ReviewItem, error)

	// ListPending returns pending items ordered by score descending,
	// so the most likely merges surface first
	ListPending(limit, offset int) ([]*ReviewItem, error)

	// Resolve marks a pending item accepted or rejected
	Resolve(id int, status string) error

	// CountByStatus returns item counts keyed by status
	CountByStatus() (map[string]int, error)
}

type sqlReviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a DuckDB-backed review queue repository.
func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &sqlReviewRepository{db: db}
}

func (r *sqlReviewRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS review_queue_seq START 1;

		CREATE TABLE IF NOT EXISTS review_queue (
			id INTEGER PRIMARY KEY DEFAULT nextval('review_queue_seq'),
			provider VARCHAR NOT NULL,
			ref VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			address VARCHAR NOT NULL,
			point POINT_2D,
			label VARCHAR NOT NULL,
			category_tags VARCHAR NOT NULL,
			type_tags VARCHAR NOT NULL,
			best_place_id INTEGER NOT NULL,
			score DOUBLE NOT NULL,
			status VARCHAR NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			resolved_at TIMESTAMP,
			UNIQUE(provider, ref)
		);
	`)

	return err
}

func (r *sqlReviewRepository) Enqueue(item *ReviewItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	item.Status = ReviewPending

	var lng, lat any
	if item.Point != nil {
		lng, lat = item.Point.Lng, item.Point.Lat
	}

	return r.db.QueryRow(`
		INSERT INTO review_queue(
			provider, ref, name, address, point, label,
			category_tags, type_tags, best_place_id, score, status, created_at
		)
		VALUES (?, ?, ?, ?, ST_Point(?, ?), ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`,
		item.Provider,
		item.Ref,
		item.Name,
		item.Address,
		lng,
		lat,
		string(item.Label),
		tagsToDB(item.CategoryTags),
		tagsToDB(item.TypeTags),
		item.BestPlaceID,
		item.Score,
		item.Status,
		item.CreatedAt,
	).Scan(&item.ID)
}

var reviewSelect = `
	SELECT id, provider, ref, name, address, point, label,
	       category_tags, type_tags, best_place_id, score, status,
		   created_at, resolved_at
	FROM review_queue
`

func (r *sqlReviewRepository) scanItem(row interface{ Scan(...any) error }) (*ReviewItem, error) {
	item := &ReviewItem{}

	point := &spatial.Point{}

	var label, categoryTags, typeTags string

	var resolvedAt sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.Provider,
		&item.Ref,
		&item.Name,
		&item.Address,
		point,
		&label,
		&categoryTags,
		&typeTags,
		&item.BestPlaceID,
		&item.Score,
		&item.Status,
		&item.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if point.Lat != 0 || point.Lng != 0 {
		item.Point = point
	}

	item.Label = classify.Label(label)
	item.CategoryTags = tagsFromDB(categoryTags)
	item.TypeTags = tagsFromDB(typeTags)

	if resolvedAt.Valid {
		item.ResolvedAt = &resolvedAt.Time
	}

	return item, nil
}

func (r *sqlReviewRepository) GetItem(id int) (*ReviewItem, error) {
	return r.scanItem(r.db.QueryRow(reviewSelect+` WHERE id = ?`, id))
}

func (r *sqlReviewRepository) ListPending(limit, offset int) ([]*ReviewItem, error) {
	query := reviewSelect + ` WHERE status = ? ORDER BY score DESC, id`

	args := []any{ReviewPending}

	if limit > 0 {
		query += " LIMIT ? OFFSET ?"

		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ReviewItem

	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *sqlReviewRepository) Resolve(id int, status string) error {
	if status != ReviewAccepted && status != ReviewRejected {
		return fmt.Errorf("invalid review status %q", status)
	}

	result, err := r.db.Exec(`
		UPDATE review_queue
		SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`, status, time.Now(), id, ReviewPending)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("review item %d not found or already resolved", id)
	}

	return nil
}

func (r *sqlReviewRepository) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT status, COUNT(*) FROM review_queue GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var status string

		var count int

		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}

		counts[status] = count
	}

	return counts, rows.Err()
}
