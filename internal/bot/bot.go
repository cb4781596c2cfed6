// Package bot обрабатывает обновления Telegram: команды, контакты и кнопки.
package bot

import (
	"context"
	"encoding/base64"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"phoneverify/internal/phone"
	"phoneverify/internal/ratelimit"
	"phoneverify/internal/services"
	"phoneverify/internal/upstream"
	"phoneverify/internal/verification"
)

const (
	CallbackExample = "example_number"
	CallbackHelp    = "help_info"
	CallbackStatus  = "status_info"
)

// Runner: часть оркестратора, нужная боту.
type Runner interface {
	RunDirect(ctx context.Context, phoneNumber string, chatID int64, creds *upstream.Credentials) verification.Outcome
	RunFromSession(ctx context.Context, token string, chatID int64) verification.Outcome
}

type StatsSource interface {
	Stats() ratelimit.Stats
}

// UpdateCounter считает входящие обновления по типу.
type UpdateCounter interface {
	BotUpdate(kind string)
}

type handlerFunc func(ctx context.Context, msg *tgbotapi.Message)

type command struct {
	handler   handlerFunc
	adminOnly bool
}

type Options struct {
	Telegram *services.TelegramService
	Messages *services.Messages
	Runner   Runner
	Stats    StatsSource
	IsAdmin  func(userID int64) bool
	Counter  UpdateCounter
	Logger   *slog.Logger
	// RunTimeout ограничивает один прогон верификации.
	RunTimeout time.Duration
}

type Bot struct {
	tg         *services.TelegramService
	msgs       *services.Messages
	runner     Runner
	stats      StatsSource
	isAdmin    func(int64) bool
	counter    UpdateCounter
	log        *slog.Logger
	runTimeout time.Duration
	now        func() time.Time

	commands  map[string]command
	callbacks map[string]func(q *tgbotapi.CallbackQuery) string

	wg sync.WaitGroup
}

func New(opts Options) *Bot {
	b := &Bot{
		tg:         opts.Telegram,
		msgs:       opts.Messages,
		runner:     opts.Runner,
		stats:      opts.Stats,
		isAdmin:    opts.IsAdmin,
		counter:    opts.Counter,
		log:        opts.Logger,
		runTimeout: opts.RunTimeout,
		now:        time.Now,
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	b.log = b.log.With("component", "bot")
	if b.isAdmin == nil {
		b.isAdmin = func(int64) bool { return false }
	}
	if b.runTimeout <= 0 {
		b.runTimeout = 2 * time.Minute
	}

	b.commands = map[string]command{
		"start":   {handler: b.handleStart},
		"help":    {handler: b.handleHelp},
		"support": {handler: b.handleSupport},
		"share":   {handler: b.handleShare},
		"whoami":  {handler: b.handleWhoami},
		"status":  {handler: b.handleStatus, adminOnly: true},
	}
	b.callbacks = map[string]func(*tgbotapi.CallbackQuery) string{
		CallbackExample: func(*tgbotapi.CallbackQuery) string { return b.msgs.Example() },
		CallbackHelp:    func(*tgbotapi.CallbackQuery) string { return b.msgs.HelpShort() },
		CallbackStatus: func(*tgbotapi.CallbackQuery) string {
			return b.msgs.PublicStatus(b.stats.Stats(), b.now())
		},
	}
	return b
}

// HandleUpdate обрабатывает одно обновление синхронно. Паника одного
// обработчика не роняет цикл чтения обновлений.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	kind := updateKind(u)
	if b.counter != nil {
		b.counter.BotUpdate(kind)
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panic", "update_id", u.UpdateID, "panic", r, "stack", string(debug.Stack()))
			if chat := u.FromChat(); chat != nil {
				_ = b.tg.SendMessage(chat.ID, b.msgs.GenericError())
			}
		}
	}()

	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	default:
		b.log.Debug("update ignored", "update_id", u.UpdateID, "kind", kind)
	}
}

// Dispatch обрабатывает обновление в фоне; Wait дожидается всех запущенных.
func (b *Bot) Dispatch(ctx context.Context, u tgbotapi.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.HandleUpdate(ctx, u)
	}()
}

func (b *Bot) Wait() { b.wg.Wait() }

func updateKind(u tgbotapi.Update) string {
	switch {
	case u.CallbackQuery != nil:
		return "callback"
	case u.Message == nil:
		return "other"
	case u.Message.IsCommand():
		return "command"
	case u.Message.Contact != nil:
		return "contact"
	case u.Message.Text != "":
		return "text"
	}
	return "other"
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	if msg.IsCommand() {
		cmd, ok := b.commands[strings.ToLower(msg.Command())]
		if !ok {
			b.reply(msg.Chat.ID, b.msgs.CommandsOnly())
			return
		}
		if cmd.adminOnly && (msg.From == nil || !b.isAdmin(msg.From.ID)) {
			b.log.Warn("admin command rejected", "chat_id", msg.Chat.ID, "command", msg.Command())
			b.reply(msg.Chat.ID, b.msgs.AccessDenied())
			return
		}
		cmd.handler(ctx, msg)
		return
	}
	if msg.Contact != nil {
		b.handleContact(ctx, msg)
		return
	}
	if msg.Text != "" {
		b.reply(msg.Chat.ID, b.msgs.CommandsOnly())
	}
}

// handleStart разбирает /start <jwt> (ссылка верификации) и /start <номер>
// (прямой запрос кода). Без аргумента шлёт приветствие и кнопку контакта.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.log.Info("start", "chat_id", chatID)
		b.replyMarkup(chatID, b.msgs.Welcome(), contactKeyboard())
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.runTimeout)
	defer cancel()
	if looksLikeToken(arg) {
		b.log.Info("start with link", "chat_id", chatID)
		b.runner.RunFromSession(ctx, arg, chatID)
		return
	}
	b.log.Info("start with phone", "chat_id", chatID, "phone", phone.Mask(arg))
	b.runner.RunDirect(ctx, arg, chatID, nil)
}

// looksLikeToken: три части base64url через точку, заголовок декодируется
// в JSON-объект. Номер с точками ("998.99.8888931") токеном не считается.
func looksLikeToken(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		if _, err := base64.RawURLEncoding.DecodeString(part); err != nil {
			return false
		}
	}
	header, _ := base64.RawURLEncoding.DecodeString(parts[0])
	return strings.HasPrefix(string(header), "{")
}

func (b *Bot) handleHelp(_ context.Context, msg *tgbotapi.Message) {
	st := b.stats.Stats()
	window := time.Duration(st.WindowSecs) * time.Second
	b.replyMarkup(msg.Chat.ID, b.msgs.Help(st.MaxAttempts, window), helpKeyboard())
}

func (b *Bot) handleSupport(_ context.Context, msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, b.msgs.SupportInfo())
}

func (b *Bot) handleShare(_ context.Context, msg *tgbotapi.Message) {
	b.replyMarkup(msg.Chat.ID, b.msgs.ShareContact(), contactKeyboard())
}

func (b *Bot) handleWhoami(_ context.Context, msg *tgbotapi.Message) {
	var username, first, last string
	if msg.From != nil {
		username, first, last = msg.From.UserName, msg.From.FirstName, msg.From.LastName
	}
	b.reply(msg.Chat.ID, b.msgs.Whoami(msg.Chat.ID, username, first, last))
}

func (b *Bot) handleStatus(_ context.Context, msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, b.msgs.AdminStatus(b.stats.Stats(), b.now()))
}

func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	b.replyMarkup(chatID, b.msgs.ContactReceived(), tgbotapi.NewRemoveKeyboard(true))

	ctx, cancel := context.WithTimeout(ctx, b.runTimeout)
	defer cancel()
	b.log.Info("contact shared", "chat_id", chatID, "phone", phone.Mask(msg.Contact.PhoneNumber))
	b.runner.RunDirect(ctx, msg.Contact.PhoneNumber, chatID, nil)
}

func (b *Bot) handleCallback(q *tgbotapi.CallbackQuery) {
	if err := b.tg.AnswerCallback(q.ID, ""); err != nil {
		b.log.Warn("answer callback failed", "err", err)
	}
	render, ok := b.callbacks[q.Data]
	if !ok || q.Message == nil || q.Message.Chat == nil {
		b.log.Debug("callback ignored", "data", q.Data)
		return
	}
	if err := b.tg.EditMessage(q.Message.Chat.ID, q.Message.MessageID, render(q)); err != nil {
		b.log.Warn("edit message failed", "chat_id", q.Message.Chat.ID, "data", q.Data, "err", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.tg.SendMessage(chatID, text); err != nil {
		b.log.Warn("reply failed", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) replyMarkup(chatID int64, text string, markup any) {
	if err := b.tg.SendWithMarkup(chatID, text, markup); err != nil {
		b.log.Warn("reply failed", "chat_id", chatID, "err", err)
	}
}

func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("📱 Поделиться номером")),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func helpKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📱 Пример номера", CallbackExample),
			tgbotapi.NewInlineKeyboardButtonData("❓ Кратко", CallbackHelp),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статус", CallbackStatus),
		),
	)
}
