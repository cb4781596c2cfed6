package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"phoneverify/internal/phone"
)

const botEntryBase = "https://t.me/"

var ErrInvalidLinkRequest = errors.New("invalid link request")

// Link: deep link на бота с токеном сессии в параметре start.
type Link struct {
	URL       string
	Token     string
	Phone     string
	ExpiresAt time.Time
}

type LinkGenerator struct {
	codec *Codec
	now   func() time.Time
}

func NewLinkGenerator(codec *Codec) *LinkGenerator {
	return &LinkGenerator{codec: codec, now: codec.now}
}

// BotEntryURL возвращает https://t.me/<username> (без "@").
func BotEntryURL(botUsername string) string {
	return botEntryBase + strings.TrimPrefix(strings.TrimSpace(botUsername), "@")
}

func (g *LinkGenerator) Generate(phoneNumber, accessToken, refreshToken, botUsername string) (Link, error) {
	normalized, err := phone.Normalize(phoneNumber)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrInvalidLinkRequest, err)
	}
	if strings.TrimSpace(accessToken) == "" || strings.TrimSpace(refreshToken) == "" {
		return Link{}, fmt.Errorf("%w: access and refresh tokens are required", ErrInvalidLinkRequest)
	}
	if strings.TrimPrefix(strings.TrimSpace(botUsername), "@") == "" {
		return Link{}, fmt.Errorf("%w: bot username is required", ErrInvalidLinkRequest)
	}

	s := New(normalized, accessToken, refreshToken, g.now())
	token, err := g.codec.Encode(s)
	if err != nil {
		return Link{}, err
	}
	q := url.Values{}
	q.Set("start", token)
	return Link{
		URL:       BotEntryURL(botUsername) + "?" + q.Encode(),
		Token:     token,
		Phone:     normalized,
		ExpiresAt: s.ExpiresAt,
	}, nil
}
