package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"phoneverify/internal/handlers"
	"phoneverify/internal/middleware"
)

type Deps struct {
	System       *handlers.SystemHandler
	Verification *handlers.VerificationHandler
	Telegram     *handlers.TelegramHandler

	// Webhook: обработчик обновлений Telegram; nil в режиме long polling.
	Webhook     gin.HandlerFunc
	WebhookPath string

	Metrics    http.Handler
	APIKeyAuth gin.HandlerFunc
}

func SetupRoutes(r *gin.Engine, d Deps) *gin.Engine {
	// ---- public
	r.GET("/", d.System.Root)
	r.GET("/health", d.System.Health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Telegram webhook публикуем только в режиме webhook
	if d.Webhook != nil && d.WebhookPath != "" {
		r.POST(d.WebhookPath, d.Webhook)
	}

	// ---- protected
	api := r.Group("/api/v1")
	if d.APIKeyAuth != nil {
		api.Use(d.APIKeyAuth)
	}
	{
		api.POST("/generateLink", d.Verification.GenerateLink)
		api.POST("/verifyFromToken", d.Verification.VerifyFromToken)
		api.POST("/requestCode", d.Verification.RequestCode)
		api.POST("/requestCodeAuto", d.Verification.RequestCodeAuto)
		api.GET("/statistics", d.Verification.Statistics)

		api.GET("/user/:chat_id", d.Telegram.UserInfo)
		api.POST("/sendChatIdInfo/:chat_id", d.Telegram.SendChatIDInfo)
		api.POST("/sendNotification", d.Telegram.SendNotification)
		api.POST("/getChatId", d.Telegram.GetChatID)
	}

	return r
}

// NewEngine: gin с общими middleware сервиса.
func NewEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(mw...)
	return r
}
