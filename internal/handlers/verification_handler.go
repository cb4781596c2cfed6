package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"phoneverify/internal/models"
	"phoneverify/internal/phone"
	"phoneverify/internal/services"
	"phoneverify/internal/session"
	"phoneverify/internal/upstream"
	"phoneverify/internal/verification"
)

type LinkGenerator interface {
	Generate(phoneNumber, accessToken, refreshToken, botUsername string) (session.Link, error)
}

type Runner interface {
	RunDirect(ctx context.Context, phoneNumber string, chatID int64, creds *upstream.Credentials) verification.Outcome
	RunFromSession(ctx context.Context, token string, chatID int64) verification.Outcome
}

type StatsCollector interface {
	Collect(ctx context.Context) (services.Statistics, error)
}

type VerificationHandler struct {
	links      LinkGenerator
	runner     Runner
	stats      StatsCollector
	botName    string
	runTimeout time.Duration
	log        *slog.Logger
	now        func() time.Time
}

func NewVerificationHandler(links LinkGenerator, runner Runner, stats StatsCollector, botUsername string, runTimeout time.Duration, log *slog.Logger) *VerificationHandler {
	if log == nil {
		log = slog.Default()
	}
	if runTimeout <= 0 {
		runTimeout = 2 * time.Minute
	}
	return &VerificationHandler{
		links:      links,
		runner:     runner,
		stats:      stats,
		botName:    botUsername,
		runTimeout: runTimeout,
		log:        log.With("component", "api"),
		now:        time.Now,
	}
}

// @Summary      Сгенерировать ссылку верификации
// @Description  Упаковывает номер и токены пользователя в подписанный токен и возвращает deep link на бота (срок 24 часа)
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Param        request  body      models.GenerateLinkRequest  true  "Номер и токены"
// @Success      200      {object}  models.GenerateLinkResponse
// @Failure      400      {object}  models.GenerateLinkResponse
// @Failure      500      {object}  models.GenerateLinkResponse
// @Security     ApiKeyAuth
// @Router       /api/v1/generateLink [post]
func (h *VerificationHandler) GenerateLink(c *gin.Context) {
	var req models.GenerateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.GenerateLinkResponse{Success: false, Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}
	bot := req.BotUsername
	if strings.TrimSpace(bot) == "" {
		bot = h.botName
	}

	link, err := h.links.Generate(req.PhoneNumber, req.AccessToken, req.RefreshToken, bot)
	switch {
	case errors.Is(err, session.ErrInvalidLinkRequest):
		c.JSON(http.StatusBadRequest, models.GenerateLinkResponse{Success: false, Error: "INVALID_REQUEST", Message: err.Error()})
		return
	case err != nil:
		h.log.Error("generate link failed", "err", err)
		c.JSON(http.StatusInternalServerError, models.GenerateLinkResponse{Success: false, Error: "LINK_ERROR", Message: "Не удалось создать ссылку"})
		return
	}

	h.log.Info("link generated", "phone", phone.Mask(link.Phone), "expires_at", link.ExpiresAt)
	expires := link.ExpiresAt
	c.JSON(http.StatusOK, models.GenerateLinkResponse{
		Success:          true,
		Message:          "Ссылка для верификации создана",
		VerificationLink: link.URL,
		JWTToken:         link.Token,
		PhoneNumber:      link.Phone,
		ExpiresAt:        &expires,
	})
}

// @Summary      Верификация по токену из ссылки
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Param        request  body      models.VerifyFromTokenRequest  true  "Токен и chat_id"
// @Success      200      {object}  models.VerificationResponse
// @Failure      400      {object}  models.ErrorResponse
// @Failure      429      {object}  models.VerificationResponse
// @Security     ApiKeyAuth
// @Router       /api/v1/verifyFromToken [post]
func (h *VerificationHandler) VerifyFromToken(c *gin.Context) {
	var req models.VerifyFromTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	ctx, cancel := h.runContext(c)
	defer cancel()
	h.respond(c, req.ChatID, h.runner.RunFromSession(ctx, req.JWTToken, req.ChatID))
}

// @Summary      Запрос кода верификации
// @Description  Без access_token и refresh_token токены берутся логином сервисной учётной записи
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Param        request  body      models.RequestCodeRequest  true  "Номер, chat_id и токены"
// @Success      200      {object}  models.VerificationResponse
// @Failure      400      {object}  models.ErrorResponse
// @Failure      429      {object}  models.VerificationResponse
// @Security     ApiKeyAuth
// @Router       /api/v1/requestCode [post]
func (h *VerificationHandler) RequestCode(c *gin.Context) {
	var req models.RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	h.log.Info("request code",
		"chat_id", req.ChatID,
		"phone", phone.Mask(req.PhoneNumber),
		"access_token", req.AccessToken != "",
		"refresh_token", req.RefreshToken != "",
	)
	var creds *upstream.Credentials
	if req.AccessToken != "" || req.RefreshToken != "" {
		creds = &upstream.Credentials{AccessToken: req.AccessToken, RefreshToken: req.RefreshToken}
	}
	ctx, cancel := h.runContext(c)
	defer cancel()
	h.respond(c, req.ChatID, h.runner.RunDirect(ctx, req.PhoneNumber, req.ChatID, creds))
}

// @Summary      Автоматическая верификация
// @Description  Логин сервисной учётной записи и запрос кода
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Param        request  body      models.RequestCodeRequest  true  "Номер и chat_id"
// @Success      200      {object}  models.VerificationResponse
// @Failure      400      {object}  models.ErrorResponse
// @Failure      429      {object}  models.VerificationResponse
// @Security     ApiKeyAuth
// @Router       /api/v1/requestCodeAuto [post]
func (h *VerificationHandler) RequestCodeAuto(c *gin.Context) {
	var req models.RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	ctx, cancel := h.runContext(c)
	defer cancel()
	h.respond(c, req.ChatID, h.runner.RunDirect(ctx, req.PhoneNumber, req.ChatID, nil))
}

// @Summary      Статистика агента
// @Tags         Service
// @Produce      json
// @Success      200  {object}  services.Statistics
// @Failure      500  {object}  models.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /api/v1/statistics [get]
func (h *VerificationHandler) Statistics(c *gin.Context) {
	st, err := h.stats.Collect(c.Request.Context())
	if err != nil {
		h.log.Error("statistics failed", "err", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Success: false, Error: "STATISTICS_ERROR", Message: "Ошибка при получении статистики"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// runContext не зависит от обрыва соединения клиента: код уже запрошен,
// сообщение в чат должно уйти.
func (h *VerificationHandler) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.runTimeout)
}

func (h *VerificationHandler) respond(c *gin.Context, chatID int64, out verification.Outcome) {
	resp := models.VerificationResponse{
		Success:     out.Delivered(),
		PhoneNumber: out.PhoneNumber,
		ChatID:      chatID,
		Delivered:   out.Delivered() && out.DeliveryErr == nil,
		Timestamp:   h.now().UTC(),
	}
	status := http.StatusOK
	switch out.State {
	case verification.StateDelivered:
		resp.Message = "Код отправлен пользователю"
		resp.Code = out.Code
	case verification.StateBlocked:
		status = http.StatusTooManyRequests
		resp.Error = string(verification.KindBlocked)
		resp.Message = verification.KindBlocked.Message()
		resp.RetryAfterSeconds = out.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(resp.RetryAfterSeconds))
	default:
		kind := out.Kind()
		resp.Error = string(kind)
		resp.Message = kind.Message()
		if out.Err != nil && out.Err.Detail != "" {
			resp.Message = services.Excerpt(out.Err.Detail, 200)
		}
		if kind == verification.KindInvalidPhone {
			status = http.StatusBadRequest
		}
	}
	c.JSON(status, resp)
}
