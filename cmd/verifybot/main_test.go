package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashKey(t *testing.T) {
	out, err := execute(t, "hash-key", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")) != nil {
		t.Fatalf("output %q is not a hash of the key", out)
	}
	if _, err := execute(t, "hash-key"); err == nil {
		t.Fatal("expected error without argument")
	}
}

func TestLink(t *testing.T) {
	cfg := writeConfig(t, `
telegram:
  bot_username: "@PlaceAndPlayBot"
upstream:
  base_url: "http://localhost:8080/api"
session:
  secret: "test-secret"
`)
	out, err := execute(t, "link", "--config", cfg, "--phone", "998998888931", "--access-token", "a", "--refresh-token", "r")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "https://t.me/PlaceAndPlayBot?start=") || !strings.Contains(out, "phone: +998998888931") {
		t.Fatalf("output = %q", out)
	}
}

func TestLinkRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg := writeConfig(t, "upstream:\n  base_url: \"http://localhost/api\"\n")
	_, err := execute(t, "link", "--config", cfg, "--phone", "+998998888931", "--access-token", "a", "--refresh-token", "r", "--bot", "b")
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("err = %v", err)
	}
}

func TestServeRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	cfg := writeConfig(t, "upstream:\n  base_url: \"http://localhost/api\"\n")
	_, err := execute(t, "serve", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Fatalf("err = %v", err)
	}
}
