package routes

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"phoneverify/internal/handlers"
	"phoneverify/internal/middleware"
)

func TestRouteTable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	hash, _ := bcrypt.GenerateFromPassword([]byte("k"), bcrypt.MinCost)

	r := SetupRoutes(NewEngine(middleware.RequestID()), Deps{
		System:       handlers.NewSystemHandler("Place&Play"),
		Verification: handlers.NewVerificationHandler(nil, nil, nil, "bot", 0, quiet),
		Telegram:     handlers.NewTelegramHandler(nil, nil, quiet),
		Webhook:      func(c *gin.Context) { c.Status(http.StatusAccepted) },
		WebhookPath:  "/telegram/webhook",
		Metrics:      http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
		APIKeyAuth:   middleware.APIKeyAuth(string(hash), quiet),
	})

	want := map[string]bool{
		"GET /":                                true,
		"GET /health":                          true,
		"GET /metrics":                         true,
		"GET /swagger/*any":                    true,
		"POST /telegram/webhook":               true,
		"POST /api/v1/generateLink":            true,
		"POST /api/v1/verifyFromToken":         true,
		"POST /api/v1/requestCode":             true,
		"POST /api/v1/requestCodeAuto":         true,
		"GET /api/v1/statistics":               true,
		"GET /api/v1/user/:chat_id":            true,
		"POST /api/v1/sendChatIdInfo/:chat_id": true,
		"POST /api/v1/sendNotification":        true,
		"POST /api/v1/getChatId":               true,
	}
	for _, ri := range r.Routes() {
		delete(want, ri.Method+" "+ri.Path)
	}
	if len(want) != 0 {
		t.Fatalf("missing routes: %v", want)
	}

	// /api/v1 закрыт ключом, служебные пути открыты
	for path, code := range map[string]int{"/api/v1/statistics": http.StatusUnauthorized, "/health": http.StatusOK, "/metrics": http.StatusOK} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != code {
			t.Errorf("%s: status = %d, want %d", path, w.Code, code)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/telegram/webhook", nil))
	if w.Code != http.StatusAccepted {
		t.Errorf("webhook status = %d", w.Code)
	}
}
