package services

import (
	"context"
	"log/slog"

	"phoneverify/internal/verification"
)

// ChatNotifier доставляет итог верификации в чат Telegram.
type ChatNotifier struct {
	tg   *TelegramService
	msgs *Messages
	log  *slog.Logger
}

func NewChatNotifier(tg *TelegramService, msgs *Messages, log *slog.Logger) *ChatNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &ChatNotifier{tg: tg, msgs: msgs, log: log}
}

// Deliver: перед кодом уходит баннер, его ошибка не мешает отправке кода.
func (n *ChatNotifier) Deliver(_ context.Context, chatID int64, out verification.Outcome) error {
	if out.Delivered() {
		if err := n.tg.SendBanner(chatID); err != nil {
			n.log.Warn("banner not sent", "chat_id", chatID, "err", err)
		}
	}
	return n.tg.SendMessage(chatID, n.msgs.Outcome(out))
}
