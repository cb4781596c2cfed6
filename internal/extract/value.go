// Package extract ищет код подтверждения в ответе внешнего API, форма
// которого не зафиксирована.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Value: разобранный JSON. Закрытое множество: Object, Array, String,
// Number, Bool, Null.
type Value interface {
	isValue()
}

// Member: пара ключ/значение объекта; порядок как в исходном документе.
type Member struct {
	Key   string
	Value Value
}

type (
	Object []Member
	Array  []Value
	String string
	// Number хранит исходный литерал без преобразования в float.
	Number string
	Bool   bool
	Null   struct{}
)

func (Object) isValue() {}
func (Array) isValue()  {}
func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue()   {}
func (Null) isValue()   {}

const maxDepth = 512

var (
	ErrTooDeep       = errors.New("json nesting too deep")
	ErrTrailingData  = errors.New("trailing data after json value")
	errUnexpectedEnd = errors.New("unexpected end of json object")
)

// Parse разбирает документ, сохраняя порядок ключей объектов.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return v, nil
}

func parseValue(dec *json.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, ErrTooDeep
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec, depth)
		case '[':
			return parseArray(dec, depth)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	}
	return nil, fmt.Errorf("unexpected token %T", tok)
}

func parseObject(dec *json.Decoder, depth int) (Value, error) {
	obj := Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T", tok)
		}
		v, err := parseValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		obj = append(obj, Member{Key: key, Value: v})
	}
	if err := closeDelim(dec, '}'); err != nil {
		return nil, err
	}
	return obj, nil
}

func parseArray(dec *json.Decoder, depth int) (Value, error) {
	arr := Array{}
	for dec.More() {
		v, err := parseValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if err := closeDelim(dec, ']'); err != nil {
		return nil, err
	}
	return arr, nil
}

func closeDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errUnexpectedEnd
	}
	return nil
}
