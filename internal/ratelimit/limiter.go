// Package ratelimit ограничивает число попыток верификации на идентичность
// (chat id) в скользящем окне.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 600 * time.Second
)

type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Decision: результат проверки лимита.
type Decision struct {
	Blocked     bool
	RetryAfter  time.Duration
	Attempts    int
	MaxAttempts int
}

type Stats struct {
	Identities  int `json:"identities"`
	Blocked     int `json:"blocked"`
	Attempts    int `json:"attempts"`
	MaxAttempts int `json:"max_attempts"`
	WindowSecs  int `json:"window_seconds"`
}

// window: попытки одной идентичности. Мьютекс свой у каждой, поэтому
// разные идентичности друг друга не блокируют.
type window struct {
	mu     sync.Mutex
	stamps []time.Time
	// dead выставляет Sweep; такое окно уже удалено из map.
	dead bool
}

type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.RWMutex
	windows map[int64]*window
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(cfg Config, opts ...Option) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	l := &Limiter{cfg: cfg, now: time.Now, windows: make(map[int64]*window)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Config() Config { return l.cfg }

// Check сжимает окно и сообщает, заблокирована ли идентичность. Попытку не записывает.
func (l *Limiter) Check(id int64) Decision {
	l.mu.RLock()
	w := l.windows[id]
	l.mu.RUnlock()
	if w == nil {
		return Decision{MaxAttempts: l.cfg.MaxAttempts}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return l.decide(w, l.now())
}

// Record добавляет попытку "сейчас".
func (l *Limiter) Record(id int64) {
	for {
		w := l.acquireWindow(id)
		w.mu.Lock()
		if w.dead {
			w.mu.Unlock()
			continue
		}
		w.stamps = append(w.stamps, l.now())
		w.mu.Unlock()
		return
	}
}

// Acquire выполняет Check и Record под одной блокировкой: две параллельные попытки
// одной идентичности не могут обе пройти проверку на границе лимита.
// Попытка записывается только если идентичность не заблокирована.
func (l *Limiter) Acquire(id int64) Decision {
	for {
		w := l.acquireWindow(id)
		w.mu.Lock()
		if w.dead {
			w.mu.Unlock()
			continue
		}
		now := l.now()
		d := l.decide(w, now)
		if !d.Blocked {
			w.stamps = append(w.stamps, now)
			d.Attempts = len(w.stamps)
		}
		w.mu.Unlock()
		return d
	}
}

// Stats: срез по всем идентичностям; окна при этом сжимаются.
func (l *Limiter) Stats() Stats {
	l.mu.RLock()
	ws := make([]*window, 0, len(l.windows))
	for _, w := range l.windows {
		ws = append(ws, w)
	}
	l.mu.RUnlock()

	st := Stats{
		Identities:  len(ws),
		MaxAttempts: l.cfg.MaxAttempts,
		WindowSecs:  int(l.cfg.Window / time.Second),
	}
	now := l.now()
	for _, w := range ws {
		w.mu.Lock()
		d := l.decide(w, now)
		w.mu.Unlock()
		st.Attempts += d.Attempts
		if d.Blocked {
			st.Blocked++
		}
	}
	return st
}

// Sweep удаляет идентичности, у которых не осталось попыток в окне.
// Возвращает число удалённых.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, w := range l.windows {
		w.mu.Lock()
		l.compact(w, now)
		if len(w.stamps) == 0 {
			w.dead = true
			delete(l.windows, id)
			removed++
		}
		w.mu.Unlock()
	}
	return removed
}

func (l *Limiter) acquireWindow(id int64) *window {
	l.mu.RLock()
	w := l.windows[id]
	l.mu.RUnlock()
	if w != nil {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w = l.windows[id]; w == nil {
		w = &window{}
		l.windows[id] = w
	}
	return w
}

// decide вызывается под w.mu.
func (l *Limiter) decide(w *window, now time.Time) Decision {
	l.compact(w, now)
	d := Decision{Attempts: len(w.stamps), MaxAttempts: l.cfg.MaxAttempts}
	if len(w.stamps) < l.cfg.MaxAttempts {
		return d
	}
	oldest := w.stamps[0]
	for _, ts := range w.stamps[1:] {
		if ts.Before(oldest) {
			oldest = ts
		}
	}
	d.Blocked = true
	d.RetryAfter = oldest.Add(l.cfg.Window).Sub(now)
	if d.RetryAfter < 0 {
		d.RetryAfter = 0
	}
	return d
}

// compact оставляет только попытки, для которых now-ts < окна.
func (l *Limiter) compact(w *window, now time.Time) {
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if now.Sub(ts) < l.cfg.Window {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept
}
