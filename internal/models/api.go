package models

import "time"

// Тела запросов и ответов /api/v1.

type GenerateLinkRequest struct {
	PhoneNumber  string `json:"phone_number" binding:"required" example:"+998998888931"`
	AccessToken  string `json:"access_token" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
	BotUsername  string `json:"bot_username" example:"PlaceAndPlayBot"`
}

type GenerateLinkResponse struct {
	Success          bool       `json:"success"`
	Message          string     `json:"message"`
	VerificationLink string     `json:"verification_link,omitempty"`
	JWTToken         string     `json:"jwt_token,omitempty"`
	PhoneNumber      string     `json:"phone_number,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	Error            string     `json:"error,omitempty"`
}

type VerifyFromTokenRequest struct {
	JWTToken string `json:"jwt_token" binding:"required"`
	ChatID   int64  `json:"chat_id" binding:"required"`
}

type RequestCodeRequest struct {
	PhoneNumber  string `json:"phone_number" binding:"required" example:"+998998888931"`
	ChatID       int64  `json:"chat_id" binding:"required"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type VerificationResponse struct {
	Success           bool      `json:"success"`
	Message           string    `json:"message"`
	PhoneNumber       string    `json:"phone_number,omitempty"`
	Code              string    `json:"code,omitempty"`
	ChatID            int64     `json:"chat_id,omitempty"`
	Error             string    `json:"error,omitempty"`
	RetryAfterSeconds int       `json:"retry_after_seconds,omitempty"`
	Delivered         bool      `json:"delivered"`
	Timestamp         time.Time `json:"timestamp"`
}

type NotificationRequest struct {
	Message string `json:"message"`
	ChatID  int64  `json:"chatId" binding:"required"`
}

type NotificationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ChatID  int64  `json:"chat_id"`
	Error   string `json:"error,omitempty"`
}

type ChatIDRequest struct {
	Username string `json:"username,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
}

type ChatIDResponse struct {
	Success bool   `json:"success"`
	ChatID  int64  `json:"chat_id,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type ChatInfo struct {
	ChatID    int64  `json:"chat_id"`
	ChatType  string `json:"chat_type"`
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
