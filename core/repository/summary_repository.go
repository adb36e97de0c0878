// Package repository persists non-sensitive job summaries so the history
// view warm-starts when the engine is unreachable. Parameters, results,
// and error details are deliberately never written here.
package repository

import (
	"database/sql"
	"time"

	"github.com/dronreef2/3dPot2-sub000/core/models"
)

// SummaryRepository handles database operations for job summaries
type SummaryRepository struct {
	db *DB
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// SaveSummary inserts or refreshes a summary row.
func (r *SummaryRepository) SaveSummary(summary models.JobSummary) error {
	query := `
		INSERT INTO job_summaries (id, kind, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
			SET status = EXCLUDED.status, completed_at = EXCLUDED.completed_at
	`
	_, err := r.db.Exec(query,
		summary.ID,
		summary.Kind,
		summary.Status,
		summary.CreatedAt,
		summary.CompletedAt,
	)
	return err
}

// UpdateStatus records a status transition for an existing summary.
func (r *SummaryRepository) UpdateStatus(id string, status models.JobStatus, completedAt *time.Time) error {
	query := `UPDATE job_summaries SET status = $2, completed_at = $3 WHERE id = $1`
	_, err := r.db.Exec(query, id, status, completedAt)
	return err
}

// ListSummaries returns summaries matching the filters, newest first.
func (r *SummaryRepository) ListSummaries(filters models.HistoryFilters) ([]models.JobSummary, error) {
	query := `
		SELECT id, kind, status, created_at, completed_at
		FROM job_summaries
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(query, string(filters.Status), string(filters.Kind), limit, filters.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.JobSummary
	for rows.Next() {
		var s models.JobSummary
		var completedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.Kind, &s.Status, &s.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t := completedAt.Time
			s.CompletedAt = &t
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
