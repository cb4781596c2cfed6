// Package upstream содержит клиент API верификации Place&Play: логин сервисной
// учётной записи и запрос кода подтверждения номера.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "PlaceAndPlay-TelegramBot/1.0"

	maxBodyBytes = 1 << 20
)

var (
	ErrLoginStatus     = errors.New("upstream login returned non-success status")
	ErrInvalidResponse = errors.New("upstream login response has unexpected shape")
	ErrTokensNotFound  = errors.New("upstream login response has no tokens")
	ErrNetwork         = errors.New("upstream unreachable")
	ErrUnauthorized    = errors.New("upstream rejected credentials")
	ErrAPIStatus       = errors.New("upstream returned non-success status")
	ErrNotConfigured   = errors.New("upstream service credentials not configured")
)

// Error несёт статус и тело ответа для диагностики. Unwrap отдаёт сентинел.
type Error struct {
	Op     string
	Status int
	Body   []byte
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s: %v (status %d)", e.Op, e.Err, e.Status)
	}
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Credentials struct {
	AccessToken  string
	RefreshToken string
}

func (c Credentials) Empty() bool { return c.AccessToken == "" && c.RefreshToken == "" }

type Config struct {
	BaseURL       string
	LoginEmail    string
	LoginPassword string
	// LoginLanguage и CodeLanguage: значение заголовка language.
	LoginLanguage string
	CodeLanguage  string
	UserAgent     string
	Timeout       time.Duration
}

// Observer получает длительность каждого вызова (метрики).
type Observer interface {
	ObserveUpstream(op, result string, took time.Duration)
}

type Client struct {
	cfg      Config
	http     *http.Client
	log      *slog.Logger
	observer Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.LoginLanguage == "" {
		cfg.LoginLanguage = "uz"
	}
	if cfg.CodeLanguage == "" {
		cfg.CodeLanguage = "en"
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// HasServiceCredentials: настроены ли логин и пароль сервисной учётки.
func (c *Client) HasServiceCredentials() bool {
	return c.cfg.LoginEmail != "" && c.cfg.LoginPassword != ""
}

type loginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type loginResponse struct {
	Status  *int            `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type loginTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login получает свежую пару токенов под сервисной учётной записью.
func (c *Client) Login(ctx context.Context) (creds Credentials, err error) {
	const op = "login"
	if !c.HasServiceCredentials() {
		return Credentials{}, &Error{Op: op, Err: ErrNotConfigured}
	}
	start := time.Now()
	defer func() { c.observe(op, err, time.Since(start)) }()

	payload, err := json.Marshal(loginRequest{PhoneNumber: c.cfg.LoginEmail, Password: c.cfg.LoginPassword})
	if err != nil {
		return Credentials{}, &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return Credentials{}, &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("isUser", "true")
	req.Header.Set("language", c.cfg.LoginLanguage)

	c.log.Info("upstream login")
	status, body, err := c.do(req)
	if err != nil {
		return Credentials{}, &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	if status < 200 || status > 299 {
		c.log.Error("upstream login failed", "status", status, "body", excerpt(body, 200))
		return Credentials{}, &Error{Op: op, Status: status, Body: body, Err: ErrLoginStatus}
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Credentials{}, &Error{Op: op, Status: status, Body: body, Err: ErrInvalidResponse}
	}
	if resp.Status == nil || *resp.Status != http.StatusOK || len(resp.Result) == 0 || string(resp.Result) == "null" {
		c.log.Error("upstream login: unexpected body", "message", resp.Message)
		return Credentials{}, &Error{Op: op, Status: status, Body: body, Err: ErrInvalidResponse}
	}
	var tokens loginTokens
	if err := json.Unmarshal(resp.Result, &tokens); err != nil {
		return Credentials{}, &Error{Op: op, Status: status, Body: body, Err: ErrInvalidResponse}
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return Credentials{}, &Error{Op: op, Status: status, Body: body, Err: ErrTokensNotFound}
	}

	c.log.Info("upstream login ok")
	return Credentials{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

// RequestCode вызывает выдачу кода для номера. При 2xx возвращает сырое тело:
// где в нём лежит код, решает вызывающий.
func (c *Client) RequestCode(ctx context.Context, phoneNumber string, creds Credentials) (body []byte, err error) {
	const op = "request_code"
	start := time.Now()
	defer func() { c.observe(op, err, time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("phoneNumber", phoneNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/auth/phoneNumberVerification?"+q.Encode(), nil)
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("language", c.cfg.CodeLanguage)
	if creds.AccessToken != "" {
		req.Header.Set("accessToken", creds.AccessToken)
	}
	if creds.RefreshToken != "" {
		req.Header.Set("refreshToken", creds.RefreshToken)
	}

	c.log.Info("upstream code request",
		"has_access_token", creds.AccessToken != "",
		"has_refresh_token", creds.RefreshToken != "")
	status, body, err := c.do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	c.log.Info("upstream code response", "status", status, "bytes", len(body))

	switch {
	case status >= 200 && status <= 299:
		return body, nil
	case status == http.StatusUnauthorized:
		return nil, &Error{Op: op, Status: status, Body: body, Err: ErrUnauthorized}
	default:
		return nil, &Error{Op: op, Status: status, Body: body, Err: ErrAPIStatus}
	}
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) observe(op string, err error, took time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(op, ResultLabel(err), took)
}

// ResultLabel сводит ошибку к короткой метке для метрик.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrLoginStatus), errors.Is(err, ErrAPIStatus):
		return "bad_status"
	default:
		return "invalid_response"
	}
}

func excerpt(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n]
	}
	return s
}
