package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/signbridge/backend/internal/model"
)

// DefaultHistoryLimit caps how many history entries are returned when the
// caller does not ask for a specific count.
const DefaultHistoryLimit = 50

// ClassificationRepository provides data access for classification history.
type ClassificationRepository struct {
	db *sql.DB
}

// NewClassificationRepository creates a new ClassificationRepository.
func NewClassificationRepository(db *sql.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

// Record inserts one classification result into the history.
func (r *ClassificationRepository) Record(ctx context.Context, letter string, confidence float64, latencyMs int64) error {
	query := `
		INSERT INTO classifications (letter, confidence, latency_ms)
		VALUES (?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, letter, confidence, latencyMs); err != nil {
		return fmt.Errorf("failed to record classification: %w", err)
	}
	return nil
}

// Recent returns the most recent classification records, newest first.
func (r *ClassificationRepository) Recent(ctx context.Context, limit int) ([]*model.ClassificationRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT id, letter, confidence, latency_ms, created_at
		FROM classifications
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer rows.Close()

	records := make([]*model.ClassificationRecord, 0, limit)
	for rows.Next() {
		rec := &model.ClassificationRecord{}
		if err := rows.Scan(&rec.ID, &rec.Letter, &rec.Confidence, &rec.LatencyMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classifications: %w", err)
	}

	return records, nil
}

// Count returns the total number of recorded classifications.
func (r *ClassificationRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classifications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count classifications: %w", err)
	}
	return n, nil
}
