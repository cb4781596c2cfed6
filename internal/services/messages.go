package services

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"phoneverify/internal/models"
	"phoneverify/internal/phone"
	"phoneverify/internal/ratelimit"
	"phoneverify/internal/verification"
)

const (
	ExampleNumber = "+998998888931"
	excerptLimit  = 200
)

// Messages: тексты бота (HTML).
type Messages struct {
	Support string
	AppName string
}

func NewMessages(support, appName string) *Messages {
	return &Messages{Support: support, AppName: appName}
}

func (m *Messages) supportLine() string {
	return "🆘 <b>Поддержка:</b> " + html.EscapeString(m.Support)
}

func attemptLine(out verification.Outcome) string {
	if out.MaxAttempts <= 0 || out.Attempt <= 0 {
		return ""
	}
	return fmt.Sprintf("🛡️ <b>Попытка:</b> %d/%d\n", out.Attempt, out.MaxAttempts)
}

func phoneLine(label, p string) string {
	if p == "" {
		return ""
	}
	return fmt.Sprintf("📱 <b>%s:</b> <code>%s</code>\n", label, html.EscapeString(p))
}

// Outcome: сообщение пользователю по итогам прогона.
func (m *Messages) Outcome(out verification.Outcome) string {
	switch out.State {
	case verification.StateDelivered:
		return m.codeMessage(out)
	case verification.StateBlocked:
		return m.Blocked(out.RetryAfter)
	}

	kind := out.Kind()
	var b strings.Builder
	switch {
	case kind.IsSessionFailure():
		b.WriteString("❌ <b>Ошибка валидации токена</b>\n\n")
		fmt.Fprintf(&b, "🚨 Проблема: %s\n\n", html.EscapeString(kind.Message()))
		b.WriteString("🔄 <b>Получите новую ссылку для верификации</b>")
		return b.String()
	case kind == verification.KindInvalidPhone:
		return m.InvalidPhone()
	case kind == verification.KindAuth:
		b.WriteString("❌ <b>Ошибка аутентификации</b>\n\n")
		b.WriteString(phoneLine("Номер", out.PhoneNumber))
		b.WriteString(attemptLine(out))
		b.WriteString("🔑 Проблема: Неверные токены доступа\n\n")
		b.WriteString("🔄 <b>Попробуйте войти в приложение заново</b>\n")
		b.WriteString(m.supportLine())
		return b.String()
	case kind.IsLoginFailure():
		b.WriteString("❌ <b>Ошибка получения токенов</b>\n\n")
		b.WriteString(phoneLine("Номер", out.PhoneNumber))
		b.WriteString(attemptLine(out))
		fmt.Fprintf(&b, "\n🚨 <b>Тип ошибки:</b> %s\n", kind)
		fmt.Fprintf(&b, "📝 <b>Детали:</b> %s\n\n", html.EscapeString(detail(out)))
		b.WriteString("🔄 Попробуйте позже\n")
		b.WriteString(m.supportLine())
		return b.String()
	case kind == verification.KindUnknown:
		b.WriteString("❌ <b>Внутренняя ошибка</b>\n\n")
		b.WriteString(phoneLine("Номер", out.PhoneNumber))
		b.WriteString(attemptLine(out))
		b.WriteString("\n🔄 Попробуйте позже\n")
		b.WriteString(m.supportLine())
		return b.String()
	default:
		b.WriteString("❌ <b>Ошибка при запросе кода</b>\n\n")
		b.WriteString(phoneLine("Номер", out.PhoneNumber))
		b.WriteString(attemptLine(out))
		fmt.Fprintf(&b, "\n🚨 <b>Ответ API:</b>\n<code>%s</code>\n\n", html.EscapeString(Excerpt(apiResponse(out), excerptLimit)))
		b.WriteString("🔄 Попробуйте позже\n")
		b.WriteString(m.supportLine())
		return b.String()
	}
}

func (m *Messages) codeMessage(out verification.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔐 <b>Ваш код:</b> <code>%s</code>\n\n", html.EscapeString(out.Code))
	b.WriteString(phoneLine("Для номера", phone.Pretty(out.PhoneNumber)))
	b.WriteString(attemptLine(out))
	b.WriteString("\n⚠️ <i>Никому не передавайте этот код</i>\n")
	fmt.Fprintf(&b, "💡 <i>Введите код в приложении %s</i>", html.EscapeString(m.AppName))
	return b.String()
}

func detail(out verification.Outcome) string {
	if out.Err == nil || out.Err.Detail == "" {
		return out.Kind().Message()
	}
	return out.Err.Detail
}

func apiResponse(out verification.Outcome) string {
	d := detail(out)
	if out.Err != nil && len(out.Err.Raw) > 0 {
		return d + ": " + string(out.Err.Raw)
	}
	return d
}

// Excerpt обрезает строку до n рун, добавляя "...".
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// FormatWait: mm:ss, с округлением вверх до секунды.
func FormatWait(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func (m *Messages) Blocked(retryAfter time.Duration) string {
	return "🚫 <b>Доступ заблокирован</b>\n\n" +
		"⚠️ Превышен лимит попыток\n" +
		"⏰ Разблокировка через: <code>" + FormatWait(retryAfter) + "</code>\n\n" +
		m.supportLine()
}

func (m *Messages) InvalidPhone() string {
	return "❌ <b>Неверный формат номера</b>\n\n" +
		"📱 <b>Требования:</b>\n" +
		"• Должен начинаться с '+'\n" +
		"• Минимум 10 цифр\n\n" +
		"💡 <b>Пример:</b> <code>" + ExampleNumber + "</code>\n\n" +
		m.supportLine()
}

func (m *Messages) Welcome() string {
	return fmt.Sprintf("🎉 <b>Добро пожаловать в %s!</b>\n\n", html.EscapeString(m.AppName)) +
		"📱 <b>Для продолжения поделитесь своим номером телефона</b>\n" +
		"Нажмите кнопку ниже, чтобы отправить контакт.\n\n" +
		"🛡️ <b>Безопасность:</b> Ваш номер используется только для верификации."
}

func (m *Messages) ShareContact() string {
	return "Пожалуйста, поделитесь своим номером телефона, нажав на кнопку ниже:"
}

func (m *Messages) ContactReceived() string {
	return "Спасибо! Ваш номер получен и отправлен на верификацию."
}

func (m *Messages) CommandsOnly() string {
	return "❌ В этом боте можно использовать только команды. Для начала нажмите /start или /share."
}

func (m *Messages) Example() string {
	return "📱 <b>Пример номера телефона:</b>\n\n" +
		"<code>" + ExampleNumber + "</code>\n\n" +
		"💡 <b>Скопируйте и отправьте в чат</b>\n\n" +
		m.supportLine()
}

func (m *Messages) HelpShort() string {
	return "❓ <b>Краткая справка</b>\n\n" +
		"📱 <b>Как использовать:</b>\n" +
		"1️⃣ Отправьте номер телефона\n" +
		"2️⃣ Получите код верификации\n" +
		"3️⃣ Введите код в приложении\n\n" +
		"💬 <b>Команды:</b>\n" +
		"• /start - Начать заново\n" +
		"• /help - Подробная справка\n" +
		"• /support - Поддержка\n\n" +
		"🆘 <b>Проблемы?</b>\n" +
		"Обратитесь в поддержку: " + html.EscapeString(m.Support)
}

func (m *Messages) Help(maxAttempts int, window time.Duration) string {
	app := html.EscapeString(m.AppName)
	return "🔍 <b>Справка по использованию</b>\n\n" +
		"📱 <b>Пошаговая инструкция:</b>\n" +
		"1️⃣ Нажмите /start для начала работы\n" +
		"2️⃣ Нажмите кнопку <b>Поделиться номером</b> и отправьте свой контакт\n" +
		"3️⃣ Дождитесь автоматической обработки\n" +
		"4️⃣ Получите код верификации\n" +
		"5️⃣ Введите код в приложении " + app + "\n\n" +
		"🎯 <b>Основные команды:</b>\n" +
		"• /start - Начать процесс верификации\n" +
		"• /help - Показать эту справку\n" +
		"• /support - Связаться с поддержкой\n" +
		"• /whoami - Ваши данные Telegram\n\n" +
		"🚨 <b>Решение проблем:</b>\n" +
		"• Поделитесь номером только через кнопку\n" +
		"• Убедитесь в регистрации в " + app + "\n" +
		"• Попробуйте позже или обратитесь в поддержку\n\n" +
		"🛡️ <b>Система защиты:</b>\n" +
		fmt.Sprintf("• Максимум %d попыток верификации\n", maxAttempts) +
		fmt.Sprintf("• Блокировка на %d минут при превышении лимита\n", int(window/time.Minute)) +
		"• Автоматическая разблокировка\n\n" +
		"🆘 <b>Поддержка:</b>\n" +
		"• Telegram: " + html.EscapeString(m.Support) + "\n" +
		"• Команда: /support"
}

func (m *Messages) SupportInfo() string {
	handle := strings.TrimPrefix(m.Support, "@")
	return fmt.Sprintf("🆘 <b>Поддержка %s</b>\n\n", html.EscapeString(m.AppName)) +
		"📞 <b>Связаться с поддержкой:</b>\n" +
		"• Telegram: " + html.EscapeString(m.Support) + "\n" +
		"• Описание: Техническая поддержка и помощь пользователям\n\n" +
		"💬 <b>Что можно уточнить:</b>\n" +
		"• Проблемы с верификацией\n" +
		"• Ошибки в работе бота\n" +
		"• Вопросы по использованию\n\n" +
		"🔗 <b>Нажмите на ссылку:</b>\n" +
		fmt.Sprintf("<a href=\"https://t.me/%s\">@%s</a>\n\n", html.EscapeString(handle), html.EscapeString(handle)) +
		"⏰ <b>Время ответа:</b>\n" +
		"• Обычно в течение 1-2 часов\n\n" +
		"💡 <b>Совет:</b>\n" +
		"Опишите проблему подробно для быстрого решения"
}

func (m *Messages) AccessDenied() string {
	return "🚫 <b>Доступ запрещен</b>\n\n⚠️ Эта команда доступна только администраторам"
}

// AdminStatus: /status для администраторов.
func (m *Messages) AdminStatus(st ratelimit.Stats, now time.Time) string {
	return "📊 <b>Статус защиты от перебора</b>\n\n" +
		"🛡️ <b>Настройки защиты:</b>\n" +
		fmt.Sprintf("• Максимум попыток: %d\n", st.MaxAttempts) +
		fmt.Sprintf("• Время блокировки: %d минут\n\n", st.WindowSecs/60) +
		"📈 <b>Текущая статистика:</b>\n" +
		fmt.Sprintf("• Активных чатов: %d\n", st.Identities) +
		fmt.Sprintf("• Заблокированных чатов: %d\n", st.Blocked) +
		fmt.Sprintf("• Всего попыток: %d\n\n", st.Attempts) +
		"⏰ <b>Время:</b>\n" +
		fmt.Sprintf("• Текущее время: %s\n", now.Format("15:04:05")) +
		fmt.Sprintf("• Дата: %s\n\n", now.Format("02.01.2006")) +
		m.supportLine()
}

// PublicStatus: кнопка "статус" для всех пользователей.
func (m *Messages) PublicStatus(st ratelimit.Stats, now time.Time) string {
	return "📊 <b>Статус системы</b>\n\n" +
		"🛡️ <b>Защита от перебора:</b>\n" +
		fmt.Sprintf("• Максимум попыток: %d\n", st.MaxAttempts) +
		fmt.Sprintf("• Время блокировки: %d минут\n\n", st.WindowSecs/60) +
		"📈 <b>Статистика:</b>\n" +
		fmt.Sprintf("• Отслеживается чатов: %d\n\n", st.Identities) +
		fmt.Sprintf("⏰ <b>Время:</b> %s\n\n", now.Format("15:04:05")) +
		"💡 <b>Статус:</b> Система работает ✅\n\n" +
		m.supportLine()
}

func (m *Messages) Whoami(chatID int64, username, firstName, lastName string) string {
	if username == "" {
		username = "(нет)"
	}
	return "🆔 <b>Ваши данные Telegram</b>\n\n" +
		fmt.Sprintf("<b>Chat ID:</b> <code>%d</code>\n", chatID) +
		"<b>Username:</b> @" + html.EscapeString(username) + "\n" +
		"<b>Имя:</b> " + html.EscapeString(firstName) + "\n" +
		"<b>Фамилия:</b> " + html.EscapeString(lastName) + "\n\n" +
		fmt.Sprintf("<i>Используйте эти данные для интеграции с %s API или поддержки.</i>", html.EscapeString(m.AppName))
}

func (m *Messages) ChatInfo(info models.ChatInfo) string {
	var b strings.Builder
	b.WriteString("🆔 <b>Информация о чате</b>\n\n")
	fmt.Fprintf(&b, "📱 <b>Chat ID:</b> <code>%d</code>\n", info.ChatID)
	fmt.Fprintf(&b, "👤 <b>Тип:</b> %s\n", html.EscapeString(info.ChatType))
	if info.Title != "" {
		fmt.Fprintf(&b, "📝 <b>Название:</b> %s\n", html.EscapeString(info.Title))
	}
	if info.Username != "" {
		fmt.Fprintf(&b, "🔗 <b>Username:</b> @%s\n", html.EscapeString(info.Username))
	}
	if info.FirstName != "" {
		fmt.Fprintf(&b, "👨 <b>Имя:</b> %s\n", html.EscapeString(info.FirstName))
	}
	if info.LastName != "" {
		fmt.Fprintf(&b, "👨 <b>Фамилия:</b> %s\n", html.EscapeString(info.LastName))
	}
	b.WriteString("\n💡 <i>Сохраните этот Chat ID для использования в API</i>")
	return b.String()
}

func (m *Messages) ChatInfoFailed(err error) string {
	return "❌ <b>Ошибка получения информации</b>\n\n" +
		"🚨 Проблема: " + html.EscapeString(Excerpt(err.Error(), excerptLimit)) + "\n\n" +
		"🔄 <b>Попробуйте позже</b>"
}

// VenueNotification: уведомление заведению о новой регистрации.
func (m *Messages) VenueNotification() string {
	return "🆕🎉 Новое событие!\n" +
		"🔔 Получено новое уведомление о регистрации в вашем заведении.\n" +
		"Проверьте подробности по ссылке: <a href=\"https://placeandplay.uz/organization.html\">проверить событие</a>"
}

func (m *Messages) GenericError() string {
	return "❌ <b>Произошла ошибка</b>\n\n" +
		"🚨 Что-то пошло не так при обработке запроса\n\n" +
		"🔄 Попробуйте позже или используйте /start\n\n" +
		m.supportLine()
}
