package visit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evcraddock/dengue-visits/internal/answer"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
)

// Record is one submission kept in the local history.
type Record struct {
	ID          string
	VisitID     answer.VisitID
	StatusColor questionnaire.StatusColor
	Payload     string
	PhotoCount  int
	QueuedAt    *time.Time
	SubmittedAt time.Time
}

// Repository stores the visit state blob and the submission history in
// SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a visit repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save replaces the stored state blob.
func (r *Repository) Save(ctx context.Context, blob []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO app_state (id, blob, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET blob = excluded.blob, updated_at = CURRENT_TIMESTAMP`,
		string(blob),
	)
	if err != nil {
		return fmt.Errorf("saving visit state: %w", err)
	}
	return nil
}

// Load returns the stored state blob, or nil when nothing was saved yet.
func (r *Repository) Load(ctx context.Context) ([]byte, error) {
	var blob string
	err := r.db.QueryRowContext(ctx, "SELECT blob FROM app_state WHERE id = 1").Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading visit state: %w", err)
	}
	return []byte(blob), nil
}

// RecordSubmission adds a delivered submission to the history.
func (r *Repository) RecordSubmission(ctx context.Context, s Submission) error {
	var queuedAt any
	if !s.QueuedAt.IsZero() {
		queuedAt = s.QueuedAt.UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO submissions (id, visit_id, status_color, payload, photo_count, queued_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		s.ID, string(s.VisitID), string(s.StatusColor), string(s.Payload), len(s.Photos), queuedAt,
	)
	if err != nil {
		return fmt.Errorf("recording submission %s: %w", s.ID, err)
	}
	return nil
}

// ListSubmissions returns the submission history, newest first.
func (r *Repository) ListSubmissions(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, visit_id, status_color, payload, photo_count, queued_at, submitted_at
		 FROM submissions ORDER BY submitted_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	var records []*Record
	for rows.Next() {
		var rec Record
		var visitID, color string
		var queuedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &visitID, &color, &rec.Payload, &rec.PhotoCount, &queuedAt, &rec.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		rec.VisitID = answer.VisitID(visitID)
		rec.StatusColor = questionnaire.StatusColor(color)
		if queuedAt.Valid {
			t := queuedAt.Time
			rec.QueuedAt = &t
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating submissions: %w", err)
	}

	return records, nil
}

// CountByColor returns how many submitted visits ended in each color.
func (r *Repository) CountByColor(ctx context.Context) (map[questionnaire.StatusColor]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status_color, COUNT(*) FROM submissions GROUP BY status_color")
	if err != nil {
		return nil, fmt.Errorf("counting submissions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	counts := make(map[questionnaire.StatusColor]int)
	for rows.Next() {
		var color string
		var n int
		if err := rows.Scan(&color, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[questionnaire.StatusColor(color)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}

	return counts, nil
}
