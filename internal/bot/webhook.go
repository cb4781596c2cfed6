package bot

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SecretTokenHeader: Telegram повторяет в нём secret_token из setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler принимает обновления от Telegram. Запрос без верного
// секрета отклоняется с 403. Ответ уходит сразу, обработка идёт в фоне,
// иначе Telegram повторит доставку по таймауту.
func (b *Bot) WebhookHandler(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" {
			got := c.GetHeader(SecretTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				b.log.Warn("webhook: secret token mismatch", "ip", c.ClientIP())
				c.Status(http.StatusForbidden)
				return
			}
		}
		var upd tgbotapi.Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			b.log.Warn("webhook: bad update", "err", err)
			c.Status(http.StatusBadRequest)
			return
		}
		b.Dispatch(context.WithoutCancel(c.Request.Context()), upd)
		c.Status(http.StatusOK)
	}
}
