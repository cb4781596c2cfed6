package models

import "time"

// VerificationRecord: запись журнала о прогоне верификации.
// Код и токены не хранятся, номер только в маске.
type VerificationRecord struct {
	ID             int64     `json:"id"`
	ChatID         int64     `json:"chat_id"`
	PhoneMasked    string    `json:"phone_masked"`
	Source         string    `json:"source"`
	State          string    `json:"state"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	DeliveryFailed bool      `json:"delivery_failed"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// JournalSummary: агрегаты журнала за период.
type JournalSummary struct {
	Total     int        `json:"total"`
	Delivered int        `json:"delivered"`
	Failed    int        `json:"failed"`
	Blocked   int        `json:"blocked"`
	LastAt    *time.Time `json:"last_at,omitempty"`
}
