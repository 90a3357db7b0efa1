package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"steam-nav-bot/internal/domain"
	"steam-nav-bot/internal/usecase/content"
)

const (
	lessonsPerPage = 8
	newsInChat     = 10
)

func (h *Handler) handleStart(chatID, userID int64) {
	h.reply(chatID, "Привет! Выбери раздел:", h.startKeyboard(h.admins.IsAdmin(userID)))
}

func (h *Handler) handleHelp(chatID, userID int64) {
	lines := []string{
		"📖 Что умеет бот:",
		"• /start — главное меню и каталог",
		"• /menu — уроки прямо в чате",
		"• /continue — продолжить с того места, где остановились",
	}
	if h.admins.IsAdmin(userID) {
		lines = append(lines,
			"",
			"🛠 Команды администратора:",
			"• /addlesson steam — добавить урок, затем «номер | название» и пересылка поста",
			"• /addlesson steam 3 | Введение — сразу ждать пересылку",
			"• /addnews — переслать пост канала как новость",
			"• /cancel — отменить начатое действие",
			"• /addlink Название | https://... [| порядок]",
			"• /dellink <id>, /dellesson <раздел> <номер>, /delnews <message_id>",
			"• /admin — панель с кнопками",
		)
	}
	h.reply(chatID, strings.Join(lines, "\n"), nil)
}

func (h *Handler) showMenu(chatID int64) {
	h.reply(chatID, "📚 Что открыть?", menuKeyboard())
}

func (h *Handler) showSection(ctx context.Context, chatID int64, section domain.Section, page int) {
	lessons, err := h.content.ListLessons(ctx, section)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSection) {
			h.reply(chatID, "Такого раздела нет", menuKeyboard())
			return
		}
		h.log.Error().Err(err).Str("section", string(section)).Msg("не удалось получить уроки")
		h.reply(chatID, "Не удалось получить уроки. Попробуйте позже.", nil)
		return
	}
	if len(lessons) == 0 {
		h.reply(chatID, fmt.Sprintf("%s: уроков пока нет", section.Title()), menuKeyboard())
		return
	}
	pages := (len(lessons) + lessonsPerPage - 1) / lessonsPerPage
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	from := page * lessonsPerPage
	to := min(from+lessonsPerPage, len(lessons))

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, to-from+2)
	for _, l := range lessons[from:to] {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d. %s", l.Ord, l.Title), lessonData(l.Section, l.Ord)),
		))
	}
	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️", sectionData(section, page-1)))
	}
	if page < pages-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("▶️", sectionData(section, page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Меню", "menu")))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)

	text := fmt.Sprintf("%s (стр. %d из %d)", section.Title(), page+1, pages)
	h.reply(chatID, text, &markup)
}

// showLesson показывает карточку урока и запоминает его как текущий для пользователя.
func (h *Handler) showLesson(ctx context.Context, chatID, userID int64, section domain.Section, ord int) {
	lesson, err := h.content.Lesson(ctx, section, ord)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidSection) || errors.Is(err, domain.ErrInvalidOrd) {
			h.reply(chatID, "Урок не найден", menuKeyboard())
			return
		}
		h.log.Error().Err(err).Str("section", string(section)).Int("ord", ord).Msg("не удалось получить урок")
		h.reply(chatID, "Не удалось открыть урок. Попробуйте позже.", nil)
		return
	}
	if err := h.content.RecordProgress(ctx, userID, section, ord); err != nil {
		h.log.Warn().Err(err).Int64("user", userID).Msg("не удалось записать прогресс")
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if lesson.PostURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📖 Открыть пост", lesson.PostURL)))
	}
	if next, ok := h.nextLesson(ctx, section, ord); ok {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("➡️ %d. %s", next.Ord, next.Title), lessonData(section, next.Ord)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📚 К списку", sectionData(section, h.lessonPage(ctx, section, ord))),
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Меню", "menu"),
	))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)

	text := fmt.Sprintf("%s\nУрок %d. %s", section.Title(), lesson.Ord, lesson.Title)
	if lesson.PostURL == "" {
		text += "\n\nСсылка на пост недоступна: канал не настроен."
	}
	h.reply(chatID, text, &markup)
}

func (h *Handler) nextLesson(ctx context.Context, section domain.Section, ord int) (content.LessonView, bool) {
	lessons, err := h.content.ListLessons(ctx, section)
	if err != nil {
		return content.LessonView{}, false
	}
	for _, l := range lessons {
		if l.Ord > ord {
			return l, true
		}
	}
	return content.LessonView{}, false
}

// lessonPage возвращает страницу раздела, на которой стоит урок.
func (h *Handler) lessonPage(ctx context.Context, section domain.Section, ord int) int {
	lessons, err := h.content.ListLessons(ctx, section)
	if err != nil {
		return 0
	}
	for i, l := range lessons {
		if l.Ord == ord {
			return i / lessonsPerPage
		}
	}
	return 0
}

func (h *Handler) showLinks(ctx context.Context, chatID int64) {
	links, err := h.content.ListLinks(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось получить ссылки")
		h.reply(chatID, "Не удалось получить ссылки. Попробуйте позже.", nil)
		return
	}
	if len(links) == 0 {
		h.reply(chatID, "🔗 Ссылок пока нет", menuKeyboard())
		return
	}
	var b strings.Builder
	b.WriteString("🔗 Полезные ссылки:\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(links)+1)
	for _, l := range links {
		fmt.Fprintf(&b, "• %s — %s\n", l.Title, l.URL)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(l.Title, l.URL)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Меню", "menu")))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.reply(chatID, b.String(), &markup)
}

func (h *Handler) showNews(ctx context.Context, chatID int64) {
	news, err := h.content.ListNews(ctx, newsInChat)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось получить новости")
		h.reply(chatID, "Не удалось получить новости. Попробуйте позже.", nil)
		return
	}
	if len(news) == 0 {
		h.reply(chatID, "🗞 Новостей пока нет", menuKeyboard())
		return
	}
	var b strings.Builder
	b.WriteString("🗞 Последние новости:\n")
	for _, n := range news {
		link := n.PostURL
		if link == "" {
			link = "пост #" + strconv.FormatInt(n.MessageID, 10)
		}
		fmt.Fprintf(&b, "• %s — %s\n", n.CreatedAt.Format("02.01.2006"), link)
	}
	h.reply(chatID, b.String(), menuKeyboard())
}

// showContinue показывает текущий урок в каждом разделе и кнопку следующего.
func (h *Handler) showContinue(ctx context.Context, chatID, userID int64) {
	views, err := h.content.Progress(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("не удалось получить прогресс")
		h.reply(chatID, "Не удалось получить прогресс. Попробуйте позже.", nil)
		return
	}
	var (
		b    strings.Builder
		rows [][]tgbotapi.InlineKeyboardButton
	)
	b.WriteString("▶️ Где вы остановились:\n")
	for _, v := range views {
		if v.Lesson == nil {
			continue
		}
		fmt.Fprintf(&b, "• %s: урок %d. %s\n", v.Section.Title(), v.Ord, v.Lesson.Title)
		if next, ok := h.nextLesson(ctx, v.Section, v.Ord); ok {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("➡️ %s: %d. %s", v.Section.Title(), next.Ord, next.Title), lessonData(v.Section, next.Ord)),
			))
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🔁 %s: %d. %s", v.Section.Title(), v.Ord, v.Lesson.Title), lessonData(v.Section, v.Ord)),
		))
	}
	if len(rows) == 0 {
		h.reply(chatID, "Вы ещё не открывали уроки. Начните с меню.", menuKeyboard())
		return
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Меню", "menu")))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.reply(chatID, b.String(), &markup)
}

func sectionData(section domain.Section, page int) string {
	return fmt.Sprintf("sec:%s:%d", section, page)
}

func lessonData(section domain.Section, ord int) string {
	return fmt.Sprintf("lesson:%s:%d", section, ord)
}

// parseSectionPage разбирает sec:<раздел>:<страница>.
func parseSectionPage(data string) (domain.Section, int) {
	section, page := parseSectionOrd(strings.TrimPrefix(data, "sec:"))
	return section, page
}

// parseSectionOrd разбирает <раздел>:<число>. Некорректное число даёт 0.
func parseSectionOrd(raw string) (domain.Section, int) {
	name, num, _ := strings.Cut(raw, ":")
	n, err := strconv.Atoi(num)
	if err != nil {
		n = 0
	}
	return domain.Section(name), n
}
