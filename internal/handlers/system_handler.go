package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const Version = "2.3.0"

type SystemHandler struct {
	appName string
	started time.Time
}

func NewSystemHandler(appName string) *SystemHandler {
	return &SystemHandler{appName: appName, started: time.Now()}
}

// @Summary      Описание сервиса
// @Tags         Service
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       / [get]
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":     h.appName + " verification agent v" + Version,
		"description": "Доставка кодов верификации номера телефона через Telegram бота",
		"endpoints": gin.H{
			"health":            "/health",
			"metrics":           "/metrics",
			"docs":              "/swagger/index.html",
			"generate_link":     "/api/v1/generateLink",
			"verify_from_token": "/api/v1/verifyFromToken",
			"request_code":      "/api/v1/requestCode",
			"request_code_auto": "/api/v1/requestCodeAuto",
			"statistics":        "/api/v1/statistics",
			"user_info":         "/api/v1/user/{chat_id}",
			"send_chat_id_info": "/api/v1/sendChatIdInfo/{chat_id}",
			"send_notification": "/api/v1/sendNotification",
			"get_chat_id":       "/api/v1/getChatId",
		},
		"workflow": gin.H{
			"step1": "Приложение генерирует ссылку через /api/v1/generateLink",
			"step2": "Пользователь переходит по ссылке: https://t.me/<bot>?start=<token>",
			"step3": "Бот проверяет токен и запрашивает код в API",
			"step4": "Код отправляется пользователю в Telegram чат",
		},
	})
}

// @Summary      Проверка здоровья
// @Tags         Service
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"agent_status": "active",
		"version":      Version,
		"uptime":       time.Since(h.started).Round(time.Second).String(),
		"timestamp":    time.Now().UTC(),
	})
}
