package repository

import (
	"context"
	"time"

	"strata/backend/internal/model"
	"strata/backend/internal/snowflake"
)

type AIHistoryRepository interface {
	// Save records a successful translation. An entry with the same
	// prompt is replaced (moving it to the front); the list is then
	// trimmed to the cap, oldest entries first.
	Save(ctx context.Context, prompt, filter, explanation string) error
	// List returns history entries newest first.
	List(ctx context.Context) ([]model.AIHistoryEntry, error)
	// DeleteAll purges the history and returns the number of deleted entries.
	DeleteAll(ctx context.Context) (int64, error)
}

type aiHistoryRepository struct {
	db dbtx
}

func NewAIHistoryRepository(db dbtx) AIHistoryRepository {
	return &aiHistoryRepository{db: db}
}

func (r *aiHistoryRepository) Save(ctx context.Context, prompt, filter, explanation string) error {
	id := snowflake.NextID()
	now := formatTime(time.Now())

	// Re-submitting a known prompt moves it to the front: the row keeps
	// its identity but takes a fresh timestamp and result.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ai_history (id, prompt, filter, explanation, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(prompt) DO UPDATE SET
		  filter = excluded.filter,
		  explanation = excluded.explanation,
		  created_at = excluded.created_at
	`, id, prompt, filter, explanation, now)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		DELETE FROM ai_history WHERE id NOT IN (
		  SELECT id FROM ai_history ORDER BY created_at DESC, id DESC LIMIT ?
		)
	`, model.AIHistoryLimit)
	return err
}

func (r *aiHistoryRepository) List(ctx context.Context) ([]model.AIHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, prompt, filter, explanation, created_at
		FROM ai_history
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AIHistoryEntry
	for rows.Next() {
		var e model.AIHistoryEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Prompt, &e.Filter, &e.Explanation, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *aiHistoryRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ai_history`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
