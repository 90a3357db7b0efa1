package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"steam-nav-bot/internal/domain"
	"steam-nav-bot/internal/usecase/content"
)

// webAppURL возвращает ссылку на каталог или на его раздел (#prep, #steam, #news, #links).
func (h *Handler) webAppURL(fragment string) string {
	if h.cfg.WebAppURL == "" {
		return DefaultWebAppURL
	}
	if fragment == "" {
		return h.cfg.WebAppURL
	}
	base := h.cfg.WebAppURL
	if base[len(base)-1] != '/' {
		base += "/"
	}
	return base + "#" + fragment
}

func (h *Handler) startKeyboard(admin bool) *tgbotapi.InlineKeyboardMarkup {
	buttons := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonURL("📱 Открыть каталог", h.webAppURL("")),
		tgbotapi.NewInlineKeyboardButtonURL("🧩 "+domain.SectionPrep.Title(), h.webAppURL("prep")),
		tgbotapi.NewInlineKeyboardButtonURL("🚀 "+domain.SectionSteam.Title(), h.webAppURL("steam")),
		tgbotapi.NewInlineKeyboardButtonURL("🗞 Новости", h.webAppURL("news")),
		tgbotapi.NewInlineKeyboardButtonURL("🔗 Полезные ссылки", h.webAppURL("links")),
	}
	if h.cfg.ChatURL != "" {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL("💬 Чат-обсуждение", h.cfg.ChatURL))
	}
	if channel := content.ChannelURL(h.cfg.Channel.Username); channel != "" {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL("📣 Канал", channel))
	}
	buttons = append(buttons,
		tgbotapi.NewInlineKeyboardButtonData("📚 Уроки в чате", "menu"),
		tgbotapi.NewInlineKeyboardButtonData("▶️ Продолжить", "continue"),
	)
	if admin {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("🛠 Админ-панель", "admin"))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(columns(buttons, 2)...)
	return &markup
}

func menuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧩 "+domain.SectionPrep.Title(), sectionData(domain.SectionPrep, 0)),
			tgbotapi.NewInlineKeyboardButtonData("🚀 "+domain.SectionSteam.Title(), sectionData(domain.SectionSteam, 0)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗞 Новости", "news"),
			tgbotapi.NewInlineKeyboardButtonData("🔗 Ссылки", "links"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Продолжить", "continue"),
		),
	)
	return &markup
}

func adminKeyboard() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Урок: подготовительный", "adm_lesson:"+string(domain.SectionPrep)),
			tgbotapi.NewInlineKeyboardButtonData("➕ Урок: STEAM", "adm_lesson:"+string(domain.SectionSteam)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗞 Добавить новость", "adm_news"),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Отменить", "adm_cancel"),
		),
	)
	return &markup
}

func cancelKeyboard() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✖️ Отменить", "adm_cancel")),
	)
	return &markup
}

// columns раскладывает кнопки по строкам заданной ширины.
func columns(buttons []tgbotapi.InlineKeyboardButton, width int) [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, (len(buttons)+width-1)/width)
	for start := 0; start < len(buttons); start += width {
		end := min(start+width, len(buttons))
		rows = append(rows, buttons[start:end])
	}
	return rows
}
