package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"phoneverify/internal/models"
)

// JournalRepository: журнал прогонов верификации.
type JournalRepository interface {
	Insert(ctx context.Context, rec *models.VerificationRecord) error
	Recent(ctx context.Context, limit int) ([]models.VerificationRecord, error)
	Summary(ctx context.Context, since time.Time) (models.JournalSummary, error)
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS verification_journal (
	id              BIGSERIAL PRIMARY KEY,
	chat_id         BIGINT      NOT NULL,
	phone_masked    TEXT        NOT NULL,
	source          TEXT        NOT NULL,
	state           TEXT        NOT NULL,
	error_kind      TEXT        NOT NULL DEFAULT '',
	delivery_failed BOOLEAN     NOT NULL DEFAULT FALSE,
	duration_ms     BIGINT      NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS verification_journal_created_at_idx ON verification_journal (created_at);
`

type journalRepository struct{ db *sql.DB }

func NewJournalRepository(db *sql.DB) JournalRepository {
	return &journalRepository{db: db}
}

// EnsureJournalSchema создаёт таблицу журнала, если её нет.
func EnsureJournalSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, journalSchema); err != nil {
		return fmt.Errorf("ensure journal schema: %w", err)
	}
	return nil
}

func (r *journalRepository) Insert(ctx context.Context, rec *models.VerificationRecord) error {
	const q = `
		INSERT INTO verification_journal
			(chat_id, phone_masked, source, state, error_kind, delivery_failed, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := r.db.QueryRowContext(ctx, q,
		rec.ChatID, rec.PhoneMasked, rec.Source, rec.State, rec.ErrorKind,
		rec.DeliveryFailed, rec.DurationMS, rec.CreatedAt,
	).Scan(&rec.ID); err != nil {
		return fmt.Errorf("insert journal record: %w", err)
	}
	return nil
}

func (r *journalRepository) Recent(ctx context.Context, limit int) ([]models.VerificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, chat_id, phone_masked, source, state, error_kind, delivery_failed, duration_ms, created_at
		FROM verification_journal
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var out []models.VerificationRecord
	for rows.Next() {
		var rec models.VerificationRecord
		if err := rows.Scan(
			&rec.ID, &rec.ChatID, &rec.PhoneMasked, &rec.Source, &rec.State,
			&rec.ErrorKind, &rec.DeliveryFailed, &rec.DurationMS, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *journalRepository) Summary(ctx context.Context, since time.Time) (models.JournalSummary, error) {
	const q = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE state = 'delivered'),
			COUNT(*) FILTER (WHERE state = 'failed'),
			COUNT(*) FILTER (WHERE state = 'blocked'),
			MAX(created_at)
		FROM verification_journal
		WHERE created_at >= $1
	`
	var s models.JournalSummary
	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx, q, since).Scan(&s.Total, &s.Delivered, &s.Failed, &s.Blocked, &last); err != nil {
		return models.JournalSummary{}, fmt.Errorf("journal summary: %w", err)
	}
	if last.Valid {
		t := last.Time.UTC()
		s.LastAt = &t
	}
	return s, nil
}
