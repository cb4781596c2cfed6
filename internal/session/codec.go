package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// KindVerification: единственный допустимый тип сессии.
	KindVerification = "verification"
	// TTL: срок жизни сессии, фиксирован.
	TTL = 24 * time.Hour

	generatedSecretBytes = 32
)

var (
	ErrMalformedToken = errors.New("malformed session token")
	ErrExpired        = errors.New("session token expired")
	ErrWrongKind      = errors.New("session token kind mismatch")
	ErrEncoding       = errors.New("session token encoding failed")
)

// Session: ожидающая верификация, упакованная в ссылку. Неизменяема.
type Session struct {
	PhoneNumber  string
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Kind         string
}

// New собирает сессию верификации, выпущенную в момент now.
// Время усечено до секунд, как его хранит токен.
func New(phoneNumber, accessToken, refreshToken string, now time.Time) Session {
	issued := now.UTC().Truncate(time.Second)
	return Session{
		PhoneNumber:  phoneNumber,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     issued,
		ExpiresAt:    issued.Add(TTL),
		Kind:         KindVerification,
	}
}

// Claims: полезная нагрузка токена.
type Claims struct {
	PhoneNumber  string `json:"phone_number"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Type         string `json:"type"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret    []byte
	generated bool
	now       func() time.Time
}

type Option func(*Codec)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec создаёт кодек с процессным секретом. Если секрет пуст,
// генерируется случайный: выданные ссылки не переживут перезапуск.
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	c := &Codec{secret: secret, now: time.Now}
	if len(c.secret) == 0 {
		buf := make([]byte, generatedSecretBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		c.secret = buf
		c.generated = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// EphemeralSecret сообщает, что секрет сгенерирован на время жизни процесса.
func (c *Codec) EphemeralSecret() bool { return c.generated }

// Encode подписывает сессию HS256. Результат URL-safe (base64url и точки).
func (c *Codec) Encode(s Session) (string, error) {
	expires := s.ExpiresAt
	if expires.IsZero() {
		expires = s.IssuedAt.Add(TTL)
	}
	claims := &Claims{
		PhoneNumber:  s.PhoneNumber,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Type:         s.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return token, nil
}

// Decode проверяет подпись, срок и тип. Любая ошибка подписи или структуры
// сводится к ErrMalformedToken.
func (c *Codec) Decode(token string) (Session, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		// exp и type проверяем сами ниже: граница "now > exp" строгая.
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil || claims.PhoneNumber == "" {
		return Session{}, fmt.Errorf("%w: required claims missing", ErrMalformedToken)
	}

	expires := claims.ExpiresAt.Time.UTC()
	if c.now().After(expires) {
		return Session{}, ErrExpired
	}
	if claims.Type != KindVerification {
		return Session{}, ErrWrongKind
	}

	return Session{
		PhoneNumber:  claims.PhoneNumber,
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
		IssuedAt:     claims.IssuedAt.Time.UTC(),
		ExpiresAt:    expires,
		Kind:         claims.Type,
	}, nil
}

func (c *Codec) keyFunc(token *jwt.Token) (interface{}, error) {
	// принимаем только HMAC
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return c.secret, nil
}
