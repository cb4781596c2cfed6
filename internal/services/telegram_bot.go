package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"phoneverify/internal/models"
)

var (
	ErrTelegramDisabled = errors.New("telegram bot token not configured")
	ErrChatNotFound     = errors.New("chat not found")
)

// BotAPI: используемая часть *tgbotapi.BotAPI.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// NewBotAPI создаёт клиента Bot API с таймаутом на каждый вызов.
// Конструктор tgbotapi сразу делает getMe.
func NewBotAPI(token string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	return NewBotAPIWithEndpoint(token, tgbotapi.APIEndpoint, timeout)
}

// NewBotAPIWithEndpoint: то же для другого адреса Bot API (формат tgbotapi.APIEndpoint).
func NewBotAPIWithEndpoint(token, endpoint string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, ErrTelegramDisabled
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram getMe: %w", err)
	}
	return api, nil
}

// PollingTimeout: таймаут клиента для getUpdates. Telegram держит запрос
// до longPollSeconds, поэтому клиенту нужен запас сверх этого срока.
func PollingTimeout(longPollSeconds int, slack time.Duration) time.Duration {
	return time.Duration(longPollSeconds)*time.Second + slack
}

type TelegramService struct {
	api    BotAPI
	banner string
	log    *slog.Logger
}

// NewTelegramService: api == nil означает, что бот не настроен; все отправки
// вернут ErrTelegramDisabled.
func NewTelegramService(api BotAPI, banner string, log *slog.Logger) *TelegramService {
	if log == nil {
		log = slog.Default()
	}
	return &TelegramService{api: api, banner: strings.TrimSpace(banner), log: log.With("component", "tg")}
}

func (t *TelegramService) Enabled() bool { return t != nil && t.api != nil }

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	return t.send(chatID, text, nil)
}

// SendWithMarkup: сообщение с клавиатурой (reply, inline или удаление клавиатуры).
func (t *TelegramService) SendWithMarkup(chatID int64, text string, markup any) error {
	return t.send(chatID, text, markup)
}

func (t *TelegramService) send(chatID int64, text string, markup any) error {
	if !t.Enabled() || chatID == 0 {
		t.log.Warn("send skipped", "enabled", t.Enabled(), "chat_id", chatID)
		return ErrTelegramDisabled
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("sendMessage failed", "chat_id", chatID, "err", err)
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	t.log.Debug("sendMessage ok", "chat_id", chatID, "len", len(text))
	return nil
}

// SendBanner отправляет картинку перед кодом. Баннер: URL или путь к файлу.
func (t *TelegramService) SendBanner(chatID int64) error {
	if t.banner == "" {
		return nil
	}
	if !t.Enabled() {
		return ErrTelegramDisabled
	}
	var file tgbotapi.RequestFileData
	if strings.HasPrefix(t.banner, "http://") || strings.HasPrefix(t.banner, "https://") {
		file = tgbotapi.FileURL(t.banner)
	} else {
		file = tgbotapi.FilePath(t.banner)
	}
	if _, err := t.api.Send(tgbotapi.NewPhoto(chatID, file)); err != nil {
		return fmt.Errorf("telegram sendPhoto: %w", err)
	}
	return nil
}

func (t *TelegramService) EditMessage(chatID int64, messageID int, text string) error {
	if !t.Enabled() {
		return ErrTelegramDisabled
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	if _, err := t.api.Request(edit); err != nil {
		return fmt.Errorf("telegram editMessageText: %w", err)
	}
	return nil
}

func (t *TelegramService) AnswerCallback(callbackID, text string) error {
	if !t.Enabled() {
		return ErrTelegramDisabled
	}
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("telegram answerCallbackQuery: %w", err)
	}
	return nil
}

// SetWebhook регистрирует адрес. secret приходит обратно в заголовке
// X-Telegram-Bot-Api-Secret-Token; tgbotapi v5 этого поля не знает,
// поэтому запрос собирается вручную.
func (t *TelegramService) SetWebhook(url, secret string) error {
	if !t.Enabled() || url == "" {
		return ErrTelegramDisabled
	}
	if _, err := tgbotapi.NewWebhook(url); err != nil {
		return fmt.Errorf("telegram webhook url: %w", err)
	}
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if _, err := t.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("telegram setWebhook: %w", err)
	}
	t.log.Info("webhook set", "url", url)
	return nil
}

// NewWebhookSecret: случайный secret_token на время жизни процесса.
func NewWebhookSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (t *TelegramService) DeleteWebhook() error {
	if !t.Enabled() {
		return ErrTelegramDisabled
	}
	if _, err := t.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("telegram deleteWebhook: %w", err)
	}
	return nil
}

// ChatInfo: getChat по числовому id.
func (t *TelegramService) ChatInfo(chatID int64) (models.ChatInfo, error) {
	if !t.Enabled() {
		return models.ChatInfo{}, ErrTelegramDisabled
	}
	chat, err := t.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		return models.ChatInfo{}, fmt.Errorf("telegram getChat: %w", err)
	}
	return chatInfo(chat), nil
}

// ChatIDByUsername: getChat по @username.
func (t *TelegramService) ChatIDByUsername(username string) (int64, error) {
	if !t.Enabled() {
		return 0, ErrTelegramDisabled
	}
	username = "@" + strings.TrimPrefix(strings.TrimSpace(username), "@")
	chat, err := t.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: username}})
	if err != nil {
		return 0, fmt.Errorf("telegram getChat: %w", err)
	}
	if chat.ID == 0 {
		return 0, ErrChatNotFound
	}
	return chat.ID, nil
}

func chatInfo(c tgbotapi.Chat) models.ChatInfo {
	return models.ChatInfo{
		ChatID:    c.ID,
		ChatType:  c.Type,
		Title:     c.Title,
		Username:  c.UserName,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
}
