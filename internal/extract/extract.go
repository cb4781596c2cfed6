package extract

import "strings"

// Ключи сравниваются без учёта регистра.
var codeKeys = map[string]struct{}{
	"code":             {},
	"verificationcode": {},
	"otp":              {},
	"otpcode":          {},
}

// Code обходит дерево в глубину и возвращает первое строковое или целое
// значение под одним из ключей кода. Для каждого ключа объекта сначала
// проверяется сам ключ, затем его значение рекурсивно, и только потом
// следующий ключ. Пустые строки кодом не считаются.
func Code(v Value) (string, bool) {
	switch node := v.(type) {
	case Object:
		for _, m := range node {
			if _, ok := codeKeys[strings.ToLower(m.Key)]; ok {
				if s, ok := scalar(m.Value); ok {
					return s, true
				}
			}
			if s, ok := Code(m.Value); ok {
				return s, true
			}
		}
	case Array:
		for _, item := range node {
			if s, ok := Code(item); ok {
				return s, true
			}
		}
	}
	return "", false
}

// FromJSON: Code поверх сырого тела ответа. Невалидный JSON означает
// отсутствие кода, а не ошибку.
func FromJSON(body []byte) (string, bool) {
	v, err := Parse(body)
	if err != nil {
		return "", false
	}
	return Code(v)
}

func scalar(v Value) (string, bool) {
	switch s := v.(type) {
	case String:
		if s == "" {
			return "", false
		}
		return string(s), true
	case Number:
		if isInteger(string(s)) {
			return string(s), true
		}
	}
	return "", false
}

func isInteger(lit string) bool {
	lit = strings.TrimPrefix(lit, "-")
	if lit == "" {
		return false
	}
	for _, r := range lit {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
