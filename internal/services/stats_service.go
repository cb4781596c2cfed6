package services

import (
	"context"
	"time"

	"phoneverify/internal/models"
	"phoneverify/internal/ratelimit"
)

type Statistics struct {
	AgentStatus              string                `json:"agent_status"`
	APIBaseURL               string                `json:"api_base_url"`
	TelegramBotConfigured    bool                  `json:"telegram_bot_configured"`
	APICredentialsConfigured bool                  `json:"api_credentials_configured"`
	EphemeralSessionSecret   bool                  `json:"ephemeral_session_secret"`
	RateLimit                ratelimit.Stats       `json:"rate_limit"`
	Journal24h               models.JournalSummary `json:"journal_24h"`
	Timestamp                time.Time             `json:"timestamp"`
}

type limiterStats interface {
	Stats() ratelimit.Stats
}

type journalSummary interface {
	Summary(ctx context.Context, since time.Time) (models.JournalSummary, error)
}

// StatsService собирает /statistics.
type StatsService struct {
	apiBaseURL  string
	credentials bool
	ephemeral   bool
	tg          *TelegramService
	limiter     limiterStats
	journal     journalSummary
	now         func() time.Time
}

func NewStatsService(apiBaseURL string, credentials, ephemeralSecret bool, tg *TelegramService, limiter limiterStats, journal journalSummary) *StatsService {
	return &StatsService{
		apiBaseURL:  apiBaseURL,
		credentials: credentials,
		ephemeral:   ephemeralSecret,
		tg:          tg,
		limiter:     limiter,
		journal:     journal,
		now:         time.Now,
	}
}

func (s *StatsService) Collect(ctx context.Context) (Statistics, error) {
	now := s.now()
	st := Statistics{
		AgentStatus:              "active",
		APIBaseURL:               s.apiBaseURL,
		TelegramBotConfigured:    s.tg.Enabled(),
		APICredentialsConfigured: s.credentials,
		EphemeralSessionSecret:   s.ephemeral,
		RateLimit:                s.limiter.Stats(),
		Timestamp:                now,
	}
	if s.journal != nil {
		sum, err := s.journal.Summary(ctx, now.Add(-24*time.Hour))
		if err != nil {
			return st, err
		}
		st.Journal24h = sum
	}
	return st, nil
}
