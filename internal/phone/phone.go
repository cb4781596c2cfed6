package phone

import (
	"errors"
	"strings"
)

// Минимальная длина номера вместе с "+".
const minLength = 10

var ErrInvalid = errors.New("invalid phone number")

var separators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "\u00a0", "")

// Normalize приводит номер к виду +<цифры>: убирает пробелы, дефисы и скобки,
// добавляет "+" если его нет.
func Normalize(raw string) (string, error) {
	s := separators.Replace(strings.TrimSpace(raw))
	if s == "" {
		return "", ErrInvalid
	}
	if !strings.HasPrefix(s, "+") {
		s = "+" + s
	}
	if len(s) < minLength {
		return "", ErrInvalid
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return "", ErrInvalid
		}
	}
	return s, nil
}

// Pretty форматирует узбекский номер (+998 XX XXX XX XX); остальные возвращает как есть.
func Pretty(p string) string {
	if !strings.HasPrefix(p, "+") || len(p) != 13 {
		return p
	}
	return p[:4] + " " + p[4:6] + " " + p[6:9] + " " + p[9:11] + " " + p[11:13]
}

// Mask скрывает середину номера для журналов: +998*****931.
// Режет по рунам: на вход попадают и сырые аргументы из чата.
func Mask(p string) string {
	r := []rune(p)
	if len(r) <= 7 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:4]) + strings.Repeat("*", len(r)-7) + string(r[len(r)-3:])
}
