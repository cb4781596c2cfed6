package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"phoneverify/internal/models"
	"phoneverify/internal/services"
)

// ChatService: операции Telegram, доступные через API.
type ChatService interface {
	Enabled() bool
	SendMessage(chatID int64, text string) error
	ChatInfo(chatID int64) (models.ChatInfo, error)
	ChatIDByUsername(username string) (int64, error)
}

type TelegramHandler struct {
	tg   ChatService
	msgs *services.Messages
	log  *slog.Logger
}

func NewTelegramHandler(tg ChatService, msgs *services.Messages, log *slog.Logger) *TelegramHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TelegramHandler{tg: tg, msgs: msgs, log: log.With("component", "api")}
}

// @Summary      Информация о чате
// @Tags         Telegram
// @Produce      json
// @Param        chat_id  path      int  true  "Chat ID"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  models.ErrorResponse
// @Failure      503      {object}  models.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /api/v1/user/{chat_id} [get]
func (h *TelegramHandler) UserInfo(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		badRequest(c, "INVALID_CHAT_ID", "chat_id должен быть числом")
		return
	}
	if !h.tg.Enabled() {
		unavailable(c, "Telegram бот не настроен")
		return
	}
	info, err := h.tg.ChatInfo(chatID)
	if err != nil {
		h.log.Warn("getChat failed", "chat_id", chatID, "err", err)
		badRequest(c, "CHAT_INFO_ERROR", services.Excerpt(err.Error(), 200))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user_info": info})
}

// @Summary      Отправить пользователю его chat_id
// @Tags         Telegram
// @Produce      json
// @Param        chat_id  path      int  true  "Chat ID"
// @Success      200      {object}  models.NotificationResponse
// @Failure      400      {object}  models.ErrorResponse
// @Failure      500      {object}  models.NotificationResponse
// @Security     ApiKeyAuth
// @Router       /api/v1/sendChatIdInfo/{chat_id} [post]
func (h *TelegramHandler) SendChatIDInfo(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		badRequest(c, "INVALID_CHAT_ID", "chat_id должен быть числом")
		return
	}
	if !h.tg.Enabled() {
		unavailable(c, "Telegram бот не настроен")
		return
	}
	text := h.msgs.ChatInfo(models.ChatInfo{ChatID: chatID, ChatType: "unknown"})
	if info, err := h.tg.ChatInfo(chatID); err == nil {
		text = h.msgs.ChatInfo(info)
	} else {
		h.log.Warn("getChat failed, sending bare id", "chat_id", chatID, "err", err)
	}
	if err := h.tg.SendMessage(chatID, text); err != nil {
		c.JSON(http.StatusInternalServerError, models.NotificationResponse{Success: false, Message: "Не удалось отправить сообщение", ChatID: chatID, Error: "SEND_ERROR"})
		return
	}
	c.JSON(http.StatusOK, models.NotificationResponse{Success: true, Message: "Информация о chat_id отправлена в чат", ChatID: chatID})
}

// @Summary      Уведомление заведению
// @Description  Отправляет в чат фиксированное уведомление о новой регистрации
// @Tags         Telegram
// @Accept       json
// @Produce      json
// @Param        request  body      models.NotificationRequest  true  "chatId"
// @Success      200      {object}  models.NotificationResponse
// @Failure      400      {object}  models.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /api/v1/sendNotification [post]
func (h *TelegramHandler) SendNotification(c *gin.Context) {
	var req models.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	h.log.Info("venue notification", "chat_id", req.ChatID)
	if err := h.tg.SendMessage(req.ChatID, h.msgs.VenueNotification()); err != nil {
		c.JSON(http.StatusOK, models.NotificationResponse{Success: false, Message: "Ошибка отправки уведомления", ChatID: req.ChatID, Error: "SEND_ERROR"})
		return
	}
	c.JSON(http.StatusOK, models.NotificationResponse{Success: true, Message: "Уведомление отправлено", ChatID: req.ChatID})
}

// @Summary      Получить chat_id
// @Description  По user_id (совпадает с chat_id личного чата) или по @username через getChat
// @Tags         Telegram
// @Accept       json
// @Produce      json
// @Param        request  body      models.ChatIDRequest  true  "username или user_id"
// @Success      200      {object}  models.ChatIDResponse
// @Security     ApiKeyAuth
// @Router       /api/v1/getChatId [post]
func (h *TelegramHandler) GetChatID(c *gin.Context) {
	var req models.ChatIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	switch {
	case req.UserID != 0:
		c.JSON(http.StatusOK, models.ChatIDResponse{Success: true, ChatID: req.UserID, Message: "chat_id найден по user_id"})
	case strings.TrimSpace(req.Username) != "":
		id, err := h.tg.ChatIDByUsername(req.Username)
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			c.JSON(http.StatusOK, models.ChatIDResponse{Success: false, Error: "NOT_FOUND", Message: "chat_id не найден по username"})
		case err != nil:
			c.JSON(http.StatusOK, models.ChatIDResponse{Success: false, Error: "API_ERROR", Message: "Ошибка Telegram API: " + services.Excerpt(err.Error(), 200)})
		default:
			c.JSON(http.StatusOK, models.ChatIDResponse{Success: true, ChatID: id, Message: "chat_id найден по username"})
		}
	default:
		c.JSON(http.StatusOK, models.ChatIDResponse{Success: false, Error: "NO_INPUT", Message: "Не передан username или user_id"})
	}
}
