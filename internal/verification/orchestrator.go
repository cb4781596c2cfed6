// Package verification проводит прогон верификации: лимит попыток, логин
// в апстрим, запрос кода, поиск кода в ответе и доставку результата в чат.
package verification

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"phoneverify/internal/extract"
	"phoneverify/internal/phone"
	"phoneverify/internal/ratelimit"
	"phoneverify/internal/session"
	"phoneverify/internal/upstream"
)

type Upstream interface {
	Login(ctx context.Context) (upstream.Credentials, error)
	RequestCode(ctx context.Context, phoneNumber string, creds upstream.Credentials) ([]byte, error)
}

type Limiter interface {
	Acquire(identity int64) ratelimit.Decision
}

// Notifier доставляет итог прогона в чат. Вызывается ровно один раз на прогон.
type Notifier interface {
	Deliver(ctx context.Context, chatID int64, out Outcome) error
}

type SessionDecoder interface {
	Decode(token string) (session.Session, error)
}

// Observer получает каждый завершённый прогон. Не должен блокироваться надолго.
type Observer interface {
	ObserveRun(ctx context.Context, run Run)
}

type Orchestrator struct {
	upstream  Upstream
	limiter   Limiter
	notifier  Notifier
	sessions  SessionDecoder
	observers []Observer
	log       *slog.Logger
	now       func() time.Time
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(up Upstream, lim Limiter, n Notifier, sessions SessionDecoder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		upstream: up,
		limiter:  lim,
		notifier: n,
		sessions: sessions,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunDirect запрашивает код для номера. Если creds == nil, токены берутся
// логином сервисной учётной записи.
func (o *Orchestrator) RunDirect(ctx context.Context, phoneNumber string, chatID int64, creds *upstream.Credentials) Outcome {
	source := SourceDirect
	if creds == nil {
		source = SourceAuto
	}
	return o.execute(ctx, chatID, source, func() Outcome {
		return o.direct(ctx, phoneNumber, chatID, creds)
	})
}

// RunFromSession расшифровывает токен из ссылки и продолжает как RunDirect
// с токенами из сессии. Ошибка токена не расходует попытку.
func (o *Orchestrator) RunFromSession(ctx context.Context, token string, chatID int64) Outcome {
	return o.execute(ctx, chatID, SourceLink, func() Outcome {
		s, err := o.sessions.Decode(token)
		if err != nil {
			o.log.Warn("session rejected", "chat_id", chatID, "err", err)
			return failed("", sessionError(err))
		}
		creds := &upstream.Credentials{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
		return o.direct(ctx, s.PhoneNumber, chatID, creds)
	})
}

func (o *Orchestrator) execute(ctx context.Context, chatID int64, source Source, fn func() Outcome) Outcome {
	started := o.now()
	out := o.safely(chatID, fn)
	out.DeliveryErr = o.deliver(ctx, chatID, out)

	log := o.log.With("chat_id", chatID, "source", source, "state", out.State)
	switch {
	case out.Delivered():
		log.Info("verification delivered")
	case out.State == StateBlocked:
		log.Warn("verification blocked", "retry_after", out.RetryAfter)
	default:
		log.Warn("verification failed", "kind", out.Kind(), "detail", out.Err.Detail)
	}

	run := Run{ChatID: chatID, Source: source, Outcome: out, Started: started, Took: o.now().Sub(started)}
	for _, obs := range o.observers {
		obs.ObserveRun(ctx, run)
	}
	return out
}

func (o *Orchestrator) safely(chatID int64, fn func() Outcome) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("verification panic", "chat_id", chatID, "panic", r, "stack", string(debug.Stack()))
			out = failed(out.PhoneNumber, &Error{Kind: KindUnknown, Detail: KindUnknown.Message(), Err: fmt.Errorf("panic: %v", r)})
		}
	}()
	return fn()
}

func (o *Orchestrator) deliver(ctx context.Context, chatID int64, out Outcome) (err error) {
	if o.notifier == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	if err = o.notifier.Deliver(ctx, chatID, out); err != nil {
		o.log.Error("delivery failed", "chat_id", chatID, "state", out.State, "err", err)
	}
	return err
}

func (o *Orchestrator) direct(ctx context.Context, rawPhone string, chatID int64, creds *upstream.Credentials) Outcome {
	phoneNumber, err := phone.Normalize(rawPhone)
	if err != nil {
		return failed(rawPhone, newError(KindInvalidPhone, err))
	}

	decision := o.limiter.Acquire(chatID)
	if decision.Blocked {
		return Outcome{
			State:       StateBlocked,
			PhoneNumber: phoneNumber,
			RetryAfter:  decision.RetryAfter,
			Attempt:     decision.Attempts,
			MaxAttempts: decision.MaxAttempts,
		}
	}
	attempt := func(out Outcome) Outcome {
		out.Attempt = decision.Attempts
		out.MaxAttempts = decision.MaxAttempts
		return out
	}

	if creds == nil {
		c, err := o.upstream.Login(ctx)
		if err != nil {
			return attempt(failed(phoneNumber, loginError(err)))
		}
		creds = &c
	}

	body, err := o.upstream.RequestCode(ctx, phoneNumber, *creds)
	if err != nil {
		return attempt(failed(phoneNumber, codeError(err)))
	}

	code, ok := extract.FromJSON(body)
	if !ok {
		e := newError(KindCodeNotFound, nil)
		e.Raw = body
		return attempt(failed(phoneNumber, e))
	}
	return attempt(delivered(phoneNumber, code))
}
