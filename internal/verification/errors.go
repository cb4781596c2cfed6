package verification

import (
	"errors"
	"fmt"

	"phoneverify/internal/session"
	"phoneverify/internal/upstream"
)

// Kind: строковая метка ошибки, отдаётся клиентам API как есть.
type Kind string

const (
	KindMalformedToken  Kind = "MALFORMED_TOKEN"
	KindExpired         Kind = "EXPIRED"
	KindWrongKind       Kind = "WRONG_KIND"
	KindLoginAPI        Kind = "LOGIN_API_ERROR"
	KindInvalidResponse Kind = "INVALID_RESPONSE"
	KindTokensNotFound  Kind = "TOKENS_NOT_FOUND"
	KindNetwork         Kind = "NETWORK_ERROR"
	KindAuth            Kind = "AUTH_ERROR"
	KindAPI             Kind = "API_ERROR"
	KindCodeNotFound    Kind = "CODE_NOT_FOUND"
	KindBlocked         Kind = "BLOCKED"
	KindInvalidPhone    Kind = "INVALID_PHONE_FORMAT"
	KindUnknown         Kind = "UNKNOWN_ERROR"
)

// IsSessionFailure сообщает об ошибке ссылки: нужна новая ссылка, повтор бесполезен.
func (k Kind) IsSessionFailure() bool {
	return k == KindMalformedToken || k == KindExpired || k == KindWrongKind
}

// IsLoginFailure: не удалось получить токены сервисной учётки.
func (k Kind) IsLoginFailure() bool {
	return k == KindLoginAPI || k == KindInvalidResponse || k == KindTokensNotFound
}

var messages = map[Kind]string{
	KindMalformedToken:  "Ссылка недействительна",
	KindExpired:         "Срок действия ссылки истёк",
	KindWrongKind:       "Ссылка не предназначена для верификации",
	KindLoginAPI:        "Ошибка авторизации сервиса в API",
	KindInvalidResponse: "Неверный формат ответа API",
	KindTokensNotFound:  "Токены не найдены в ответе API",
	KindNetwork:         "Ошибка сети",
	KindAuth:            "Ошибка аутентификации. Проверьте токены доступа.",
	KindAPI:             "Ошибка API",
	KindCodeNotFound:    "Код не найден в ответе API",
	KindBlocked:         "Слишком много попыток",
	KindInvalidPhone:    "Неверный формат номера телефона",
	KindUnknown:         "Неожиданная ошибка",
}

// Message: короткое описание без технических деталей.
func (k Kind) Message() string {
	if m, ok := messages[k]; ok {
		return m
	}
	return messages[KindUnknown]
}

// Error: единственная форма ошибки, выходящая за пределы оркестратора.
// Raw: тело ответа апстрима для диагностики, пользователю целиком не показывается.
type Error struct {
	Kind   Kind
	Detail string
	Raw    []byte
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	e := &Error{Kind: kind, Detail: kind.Message(), Err: err}
	var ue *upstream.Error
	if errors.As(err, &ue) {
		e.Raw = ue.Body
		if ue.Status != 0 {
			e.Detail = fmt.Sprintf("%s (HTTP %d)", e.Detail, ue.Status)
		}
	}
	return e
}

func sessionError(err error) *Error {
	switch {
	case errors.Is(err, session.ErrExpired):
		return newError(KindExpired, err)
	case errors.Is(err, session.ErrWrongKind):
		return newError(KindWrongKind, err)
	default:
		return newError(KindMalformedToken, err)
	}
}

func loginError(err error) *Error {
	switch {
	case errors.Is(err, upstream.ErrNetwork):
		return newError(KindNetwork, err)
	case errors.Is(err, upstream.ErrInvalidResponse):
		return newError(KindInvalidResponse, err)
	case errors.Is(err, upstream.ErrTokensNotFound):
		return newError(KindTokensNotFound, err)
	case errors.Is(err, upstream.ErrLoginStatus), errors.Is(err, upstream.ErrNotConfigured):
		return newError(KindLoginAPI, err)
	default:
		return newError(KindUnknown, err)
	}
}

func codeError(err error) *Error {
	switch {
	case errors.Is(err, upstream.ErrUnauthorized):
		return newError(KindAuth, err)
	case errors.Is(err, upstream.ErrAPIStatus):
		return newError(KindAPI, err)
	case errors.Is(err, upstream.ErrNetwork):
		return newError(KindNetwork, err)
	default:
		return newError(KindUnknown, err)
	}
}
