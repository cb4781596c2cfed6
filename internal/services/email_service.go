package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"phoneverify/internal/config"
	"phoneverify/internal/phone"
	"phoneverify/internal/verification"
)

// MailSender: часть *gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// alertKinds: ошибки, о которых пишем в поддержку, так как они говорят о поломке
// интеграции, а не о действиях пользователя.
var alertKinds = map[verification.Kind]bool{
	verification.KindLoginAPI:        true,
	verification.KindTokensNotFound:  true,
	verification.KindInvalidResponse: true,
	verification.KindCodeNotFound:    true,
	verification.KindUnknown:         true,
}

type AlertService struct {
	sender     MailSender
	from       string
	to         []string
	appName    string
	dispatcher *AlertDispatcher
	log        *slog.Logger
}

func NewAlertService(cfg config.AlertsConfig, appName string, onDrop func(), log *slog.Logger) *AlertService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return newAlertService(dialer, cfg.From, cfg.To, appName, cfg.QueueSize, onDrop, log)
}

func newAlertService(sender MailSender, from string, to []string, appName string, queue int, onDrop func(), log *slog.Logger) *AlertService {
	if log == nil {
		log = slog.Default()
	}
	s := &AlertService{
		sender:  sender,
		from:    from,
		to:      to,
		appName: appName,
		log:     log.With("component", "alerts"),
	}
	s.dispatcher = NewAlertDispatcher(queue, s.deliver, onDrop)
	return s
}

// ObserveRun реализует verification.Observer.
func (s *AlertService) ObserveRun(_ context.Context, run verification.Run) {
	kind := run.Outcome.Kind()
	if !alertKinds[kind] {
		return
	}
	s.dispatcher.Emit(s.buildAlert(run))
}

func (s *AlertService) buildAlert(run verification.Run) Alert {
	out := run.Outcome
	detail := ""
	raw := ""
	if out.Err != nil {
		detail = out.Err.Detail
		raw = Excerpt(string(out.Err.Raw), 1000)
	}
	body := fmt.Sprintf(`
		<h3>%s: ошибка верификации %s</h3>
		<p><b>Время:</b> %s</p>
		<p><b>Источник:</b> %s</p>
		<p><b>Chat ID:</b> %d</p>
		<p><b>Номер:</b> %s</p>
		<p><b>Детали:</b> %s</p>
		<pre>%s</pre>
	`,
		html.EscapeString(s.appName), out.Kind(),
		run.Started.UTC().Format(time.RFC3339),
		run.Source, run.ChatID,
		html.EscapeString(phone.Mask(out.PhoneNumber)),
		html.EscapeString(detail),
		html.EscapeString(raw),
	)
	return Alert{
		Subject: fmt.Sprintf("[%s] %s", s.appName, out.Kind()),
		Body:    body,
	}
}

func (s *AlertService) deliver(a Alert) {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to...)
	m.SetHeader("Subject", a.Subject)
	m.SetBody("text/html", a.Body)

	if err := s.sender.DialAndSend(m); err != nil {
		s.log.Error("failed to send alert email", "subject", a.Subject, "err", err)
		return
	}
	s.log.Info("alert email sent", "subject", a.Subject)
}

func (s *AlertService) Dropped() uint64 { return s.dispatcher.Dropped() }

func (s *AlertService) Close() { s.dispatcher.Close() }
