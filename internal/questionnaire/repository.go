package questionnaire

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotCached means no questionnaire was fetched for the language yet.
var ErrNotCached = errors.New("no cached questionnaire")

// Repository caches fetched questionnaires in SQLite so visits can start
// without a connection.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a questionnaire repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save stores q as the current questionnaire for a language.
func (r *Repository) Save(ctx context.Context, language string, q *Questionnaire) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encoding questionnaire %s: %w", q.ID, err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO questionnaires (id, language, definition, fetched_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET language = excluded.language, definition = excluded.definition, fetched_at = CURRENT_TIMESTAMP`,
		q.ID, language, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving questionnaire %s: %w", q.ID, err)
	}
	return nil
}

// Latest returns the most recently fetched questionnaire for a language.
func (r *Repository) Latest(ctx context.Context, language string) (*Questionnaire, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		"SELECT definition FROM questionnaires WHERE language = ? ORDER BY fetched_at DESC, rowid DESC LIMIT 1",
		language,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("language %q: %w", language, ErrNotCached)
	}
	if err != nil {
		return nil, fmt.Errorf("loading questionnaire: %w", err)
	}

	q, err := Parse([]byte(data), "json")
	if err != nil {
		return nil, fmt.Errorf("cached questionnaire: %w", err)
	}
	return q, nil
}
