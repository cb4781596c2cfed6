package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"phoneverify/internal/models"
)

const APIKeyHeader = "X-API-Key"

// список публичных эндпоинтов, которые не требуют ключа
func isPublicPath(path string) bool {
	switch path {
	case "/", "/health", "/metrics":
		return true
	}
	return strings.HasPrefix(path, "/swagger")
}

// APIKeyAuth проверяет ключ из X-API-Key или Authorization: Bearer по
// bcrypt-хэшу. Пустой хэш отключает проверку.
func APIKeyAuth(keyHash string, log *slog.Logger) gin.HandlerFunc {
	hash := []byte(strings.TrimSpace(keyHash))
	if log == nil {
		log = slog.Default()
	}
	return func(c *gin.Context) {
		// 1) пропускаем preflight и открытые пути
		if len(hash) == 0 || c.Request.Method == http.MethodOptions || isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		// 2) читаем ключ
		key := apiKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "UNAUTHORIZED", Message: "Missing API key"})
			return
		}

		// 3) сверяем с хэшем
		if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
			log.Warn("api key rejected", "path", c.Request.URL.Path, "ip", c.ClientIP(), "request_id", c.GetString(RequestIDKey))
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "UNAUTHORIZED", Message: "Invalid API key"})
			return
		}
		c.Next()
	}
}

func apiKey(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader(APIKeyHeader)); k != "" {
		return k
	}
	parts := strings.SplitN(strings.TrimSpace(c.GetHeader("Authorization")), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// HashAPIKey: bcrypt-хэш ключа для api.key_hash.
func HashAPIKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
