package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"phoneverify/internal/models"
)

// chatIDParam читает :chat_id. Отрицательные id допустимы (группы).
func chatIDParam(c *gin.Context) (int64, bool) {
	raw := strings.TrimSpace(c.Param("chat_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Error: code, Message: message})
}

func unavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Success: false, Error: "SERVICE_UNAVAILABLE", Message: message})
}
