package verification

import "time"

type State string

const (
	StateDelivered State = "delivered"
	StateFailed    State = "failed"
	StateBlocked   State = "blocked"
)

// Source: чем был инициирован прогон.
type Source string

const (
	SourceLink   Source = "link"
	SourceDirect Source = "direct"
	SourceAuto   Source = "auto"
)

// Outcome: результат одного прогона верификации.
type Outcome struct {
	State       State
	PhoneNumber string
	Code        string
	Err         *Error
	RetryAfter  time.Duration
	Attempt     int
	MaxAttempts int
	// DeliveryErr: ошибка отправки сообщения. На State не влияет.
	DeliveryErr error
}

func (o Outcome) Delivered() bool { return o.State == StateDelivered }

// Kind: метка ошибки; пустая для Delivered.
func (o Outcome) Kind() Kind {
	switch o.State {
	case StateBlocked:
		return KindBlocked
	case StateFailed:
		if o.Err != nil {
			return o.Err.Kind
		}
		return KindUnknown
	default:
		return ""
	}
}

// RetryAfterSeconds округляет вверх: "0 секунд" при активной блокировке не показываем.
func (o Outcome) RetryAfterSeconds() int {
	if o.RetryAfter <= 0 {
		return 0
	}
	s := int(o.RetryAfter / time.Second)
	if o.RetryAfter%time.Second != 0 {
		s++
	}
	return s
}

func delivered(phoneNumber, code string) Outcome {
	return Outcome{State: StateDelivered, PhoneNumber: phoneNumber, Code: code}
}

func failed(phoneNumber string, err *Error) Outcome {
	return Outcome{State: StateFailed, PhoneNumber: phoneNumber, Err: err}
}

// Run: запись о прогоне для наблюдателей (журнал, метрики, алерты).
type Run struct {
	ChatID  int64
	Source  Source
	Outcome Outcome
	Started time.Time
	Took    time.Duration
}
