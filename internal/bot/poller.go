package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource: long polling из *tgbotapi.BotAPI.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poll читает обновления, пока ctx не отменён. Каждое обновление
// обрабатывается в своей горутине; перед выходом дожидается их завершения.
func (b *Bot) Poll(ctx context.Context, src UpdateSource, timeoutSeconds int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSeconds
	updates := src.GetUpdatesChan(u)

	b.log.Info("polling mode", "timeout_seconds", timeoutSeconds)
	defer b.Wait()
	for {
		select {
		case <-ctx.Done():
			src.StopReceivingUpdates()
			b.log.Info("polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.Dispatch(context.WithoutCancel(ctx), upd)
		}
	}
}
