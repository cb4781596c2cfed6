package session

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestGenerateLink(t *testing.T) {
	c := newTestCodec(t, testNow)
	g := NewLinkGenerator(c)

	link, err := g.Generate("998998888931", "access", "refresh", "@placeplay_bot")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(link.URL, "https://t.me/placeplay_bot?start=") {
		t.Fatalf("URL = %q", link.URL)
	}
	u, err := url.Parse(link.URL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	if got := u.Query().Get("start"); got != link.Token {
		t.Fatalf("start param = %q, want token", got)
	}
	if link.Phone != "+998998888931" {
		t.Errorf("Phone = %q", link.Phone)
	}

	s, err := c.Decode(link.Token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.PhoneNumber != "+998998888931" || s.AccessToken != "access" || s.RefreshToken != "refresh" {
		t.Errorf("decoded session = %+v", s)
	}
	if !s.ExpiresAt.Equal(link.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, link.ExpiresAt)
	}
}

func TestGenerateLinkValidation(t *testing.T) {
	g := NewLinkGenerator(newTestCodec(t, testNow))
	cases := []struct{ phone, access, refresh, bot string }{
		{"12", "a", "r", "bot"},
		{"+998998888931", "", "r", "bot"},
		{"+998998888931", "a", " ", "bot"},
		{"+998998888931", "a", "r", "@"},
	}
	for _, tc := range cases {
		if _, err := g.Generate(tc.phone, tc.access, tc.refresh, tc.bot); !errors.Is(err, ErrInvalidLinkRequest) {
			t.Errorf("Generate(%+v) error = %v, want ErrInvalidLinkRequest", tc, err)
		}
	}
}
