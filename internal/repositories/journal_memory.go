package repositories

import (
	"context"
	"sync"
	"time"

	"phoneverify/internal/models"
)

// memoryJournal: кольцевой буфер на случай, когда БД не настроена.
type memoryJournal struct {
	mu     sync.Mutex
	buf    []models.VerificationRecord
	next   int
	full   bool
	lastID int64
}

func NewMemoryJournal(capacity int) JournalRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &memoryJournal{buf: make([]models.VerificationRecord, capacity)}
}

func (m *memoryJournal) Insert(_ context.Context, rec *models.VerificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	rec.ID = m.lastID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.buf[m.next] = *rec
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent: от новых к старым.
func (m *memoryJournal) Recent(_ context.Context, limit int) ([]models.VerificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.len()
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.VerificationRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.buf)) % len(m.buf)
		out = append(out, m.buf[idx])
	}
	return out, nil
}

func (m *memoryJournal) Summary(_ context.Context, since time.Time) (models.JournalSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s models.JournalSummary
	n := m.len()
	for i := 0; i < n; i++ {
		rec := m.buf[i]
		if rec.CreatedAt.Before(since) {
			continue
		}
		s.Total++
		switch rec.State {
		case "delivered":
			s.Delivered++
		case "failed":
			s.Failed++
		case "blocked":
			s.Blocked++
		}
		if s.LastAt == nil || rec.CreatedAt.After(*s.LastAt) {
			t := rec.CreatedAt
			s.LastAt = &t
		}
	}
	return s, nil
}

func (m *memoryJournal) len() int {
	if m.full {
		return len(m.buf)
	}
	return m.next
}
