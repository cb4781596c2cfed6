package services

import (
	"context"
	"log/slog"
	"time"

	"phoneverify/internal/models"
	"phoneverify/internal/phone"
	"phoneverify/internal/repositories"
	"phoneverify/internal/verification"
)

const journalWriteTimeout = 3 * time.Second

// JournalService пишет прогоны верификации в журнал.
type JournalService struct {
	repo repositories.JournalRepository
	log  *slog.Logger
}

func NewJournalService(repo repositories.JournalRepository, log *slog.Logger) *JournalService {
	if log == nil {
		log = slog.Default()
	}
	return &JournalService{repo: repo, log: log.With("component", "journal")}
}

// ObserveRun реализует verification.Observer. Ошибка записи только логируется.
func (s *JournalService) ObserveRun(ctx context.Context, run verification.Run) {
	rec := &models.VerificationRecord{
		ChatID:         run.ChatID,
		PhoneMasked:    phone.Mask(run.Outcome.PhoneNumber),
		Source:         string(run.Source),
		State:          string(run.Outcome.State),
		ErrorKind:      string(run.Outcome.Kind()),
		DeliveryFailed: run.Outcome.DeliveryErr != nil,
		DurationMS:     run.Took.Milliseconds(),
		CreatedAt:      run.Started.UTC(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
	defer cancel()
	if err := s.repo.Insert(ctx, rec); err != nil {
		s.log.Error("journal insert failed", "chat_id", run.ChatID, "err", err)
	}
}

func (s *JournalService) Recent(ctx context.Context, limit int) ([]models.VerificationRecord, error) {
	return s.repo.Recent(ctx, limit)
}

func (s *JournalService) Summary(ctx context.Context, since time.Time) (models.JournalSummary, error) {
	return s.repo.Summary(ctx, since)
}
