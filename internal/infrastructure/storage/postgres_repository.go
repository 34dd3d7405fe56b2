package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/ports"
)

// PostgresRepository persists summarized videos into Postgres for
// long-term history, independent of the per-room cache lifecycle.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.History = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Save upserts the summarized video snapshot. Re-summarizing the same
// video in the same room refreshes the stored summary.
func (r *PostgresRepository) Save(ctx context.Context, state domain.VideoState) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("video_summaries").
		Columns("id", "room", "video_id", "title", "summary", "created_at").
		Values(state.ID, state.Room, state.VideoID, state.Title, state.Summary, state.CreatedAt).
		Suffix(`ON CONFLICT (room, video_id) DO UPDATE
		        SET summary = EXCLUDED.summary,
		            title = EXCLUDED.title,
		            created_at = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}

	return nil
}

// Recent returns the newest summaries for a room, most recent first.
// Transcripts are not stored, so returned states carry an empty
// Transcript field.
func (r *PostgresRepository) Recent(ctx context.Context, room string, limit int) ([]domain.VideoState, error) {
	if r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query, args, err := r.builder.
		Select("id", "room", "video_id", "title", "summary", "created_at").
		From("video_summaries").
		Where(sq.Eq{"room": room}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var states []domain.VideoState
	for rows.Next() {
		var s domain.VideoState
		if err := rows.Scan(&s.ID, &s.Room, &s.VideoID, &s.Title, &s.Summary, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return states, nil
}
