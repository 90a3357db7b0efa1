package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"steam-nav-bot/internal/adapters/telegram"
	"steam-nav-bot/internal/domain"
	"steam-nav-bot/internal/usecase/content"
	"steam-nav-bot/internal/usecase/ingest"
)

var errMetaFormat = errors.New("ожидается формат «номер | название»")

const (
	textAdminsOnly   = "Команда доступна только администраторам."
	textMetaPrompt   = "Отправьте номер и название урока: 3 | Введение в робототехнику"
	textForwardHint  = "Нужна именно пересылка поста из канала, а не копия. Перешлите пост через «Переслать»."
	textStoreFailure = "Не удалось сохранить. Действие сброшено, начните заново."
)

// ParseLessonMeta разбирает строку «номер | название».
func ParseLessonMeta(raw string) (ingest.LessonMeta, error) {
	ordRaw, title, ok := strings.Cut(raw, "|")
	if !ok {
		return ingest.LessonMeta{}, errMetaFormat
	}
	ord, err := strconv.Atoi(strings.TrimSpace(ordRaw))
	if err != nil || ord <= 0 {
		return ingest.LessonMeta{}, errMetaFormat
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ingest.LessonMeta{}, errMetaFormat
	}
	return ingest.LessonMeta{Ord: ord, Title: title}, nil
}

func (h *Handler) showAdminPanel(chatID, userID int64) {
	if !h.admins.IsAdmin(userID) {
		h.reply(chatID, textAdminsOnly, nil)
		return
	}
	h.reply(chatID, "🛠 Админ-панель", adminKeyboard())
}

// splitFirstWord отделяет первое слово по любому пробельному символу, включая перевод строки.
func splitFirstWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// handleAddLesson разбирает «<раздел> [<номер> | <название>]» и начинает добавление урока.
func (h *Handler) handleAddLesson(ctx context.Context, chatID, userID int64, args string) {
	if !h.admins.IsAdmin(userID) {
		h.reply(chatID, textAdminsOnly, nil)
		return
	}
	sectionRaw, metaRaw := splitFirstWord(args)
	section, err := domain.ParseSection(sectionRaw)
	if err != nil {
		h.reply(chatID, "Укажите раздел: /addlesson prep или /addlesson steam", nil)
		return
	}

	var meta *ingest.LessonMeta
	if metaRaw = strings.TrimSpace(metaRaw); metaRaw != "" {
		parsed, err := ParseLessonMeta(metaRaw)
		if err != nil {
			h.reply(chatID, textMetaPrompt, nil)
			return
		}
		meta = &parsed
	}

	res, err := h.machine.StartLesson(ctx, userID, section, meta)
	if err != nil {
		h.replyIngestError(chatID, userID, err)
		return
	}
	h.replyIngestResult(chatID, res)
}

func (h *Handler) startNews(ctx context.Context, chatID, userID int64) {
	res, err := h.machine.StartNews(ctx, userID)
	if err != nil {
		h.replyIngestError(chatID, userID, err)
		return
	}
	h.replyIngestResult(chatID, res)
}

func (h *Handler) cancelPending(ctx context.Context, chatID, userID int64) {
	res, err := h.machine.Cancel(ctx, userID)
	if err != nil {
		h.replyIngestError(chatID, userID, err)
		return
	}
	h.replyIngestResult(chatID, res)
}

// continuePending передаёт сообщение администратора машине состояний.
func (h *Handler) continuePending(ctx context.Context, msg *tgbotapi.Message, action domain.PendingAction) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	var (
		res ingest.Result
		err error
	)
	if action.Kind == domain.PendingLessonMeta {
		meta, parseErr := ParseLessonMeta(telegram.MessageText(msg))
		if parseErr != nil {
			h.reply(chatID, textMetaPrompt, cancelKeyboard())
			return
		}
		res, err = h.machine.SubmitMeta(ctx, userID, meta)
	} else {
		res, err = h.machine.Deliver(ctx, userID, telegram.Provenance(msg))
	}
	if err != nil {
		h.replyIngestError(chatID, userID, err)
		return
	}
	h.replyIngestResult(chatID, res)
}

func (h *Handler) replyIngestResult(chatID int64, res ingest.Result) {
	switch res.Kind {
	case ingest.ResultAwaitingMeta:
		h.reply(chatID, fmt.Sprintf("%s: новый урок.\n%s", res.Pending.Section.Title(), textMetaPrompt), cancelKeyboard())
	case ingest.ResultAwaitingForward:
		if res.Pending.Kind == domain.PendingNewsForward {
			h.reply(chatID, "Перешлите пост канала, который нужно добавить в новости.", cancelKeyboard())
			return
		}
		h.reply(chatID, fmt.Sprintf("%s, урок %d «%s».\nТеперь перешлите пост урока из канала.",
			res.Pending.Section.Title(), res.Pending.Ord, res.Pending.Title), cancelKeyboard())
	case ingest.ResultLessonSaved:
		text := fmt.Sprintf("✅ Урок сохранён: %s, %d. %s", res.Lesson.Section.Title(), res.Lesson.Ord, res.Lesson.Title)
		h.reply(chatID, withPostURL(text, h.content.PostURL(res.MessageID)), adminKeyboard())
	case ingest.ResultNewsSaved:
		text := "✅ Новость добавлена"
		if !res.NewsInserted {
			text = "Эта новость уже есть"
		}
		h.reply(chatID, withPostURL(text, h.content.PostURL(res.MessageID)), adminKeyboard())
	case ingest.ResultCancelled:
		if !res.HadPending {
			h.reply(chatID, "Нечего отменять", nil)
			return
		}
		h.reply(chatID, "Действие отменено", nil)
	}
}

func (h *Handler) replyIngestError(chatID, userID int64, err error) {
	switch {
	case errors.Is(err, ingest.ErrNotAdmin):
		h.reply(chatID, textAdminsOnly, nil)
	case errors.Is(err, ingest.ErrNotForwarded):
		h.reply(chatID, textForwardHint, cancelKeyboard())
	case errors.Is(err, ingest.ErrForeignChannel):
		text := "Пост переслан не из нашего канала."
		if h.cfg.Channel.Username != "" {
			text = fmt.Sprintf("Пост переслан не из канала @%s.", h.cfg.Channel.Username)
		}
		h.reply(chatID, text+" Перешлите пост из нужного канала.", cancelKeyboard())
	case errors.Is(err, ingest.ErrNoPending):
		h.reply(chatID, "Нет начатого действия. Откройте /admin", nil)
	case errors.Is(err, ingest.ErrUnexpectedInput):
		h.reply(chatID, "Сейчас ожидается другой ввод. /cancel сбросит действие.", nil)
	case errors.Is(err, domain.ErrInvalidSection):
		h.reply(chatID, "Раздел должен быть prep или steam", nil)
	case errors.Is(err, domain.ErrInvalidOrd), errors.Is(err, domain.ErrEmptyTitle):
		h.reply(chatID, textMetaPrompt, cancelKeyboard())
	default:
		h.log.Error().Err(err).Int64("admin", userID).Msg("ошибка добавления контента")
		h.reply(chatID, textStoreFailure, nil)
	}
}

// handleAddLink разбирает «название | url [| порядок]».
func (h *Handler) handleAddLink(ctx context.Context, chatID, userID int64, args string) {
	if !h.admins.IsAdmin(userID) {
		h.reply(chatID, textAdminsOnly, nil)
		return
	}
	parts := strings.Split(args, "|")
	if len(parts) < 2 || len(parts) > 3 {
		h.reply(chatID, "Формат: /addlink Название | https://example.com [| порядок]", nil)
		return
	}
	link := domain.Link{Title: parts[0], URL: parts[1]}
	if len(parts) == 3 {
		ord, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			h.reply(chatID, "Порядок должен быть числом", nil)
			return
		}
		link.Ord = ord
	}
	saved, err := h.content.AddLink(ctx, link)
	if err != nil {
		h.replyContentError(chatID, err)
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Ссылка #%d добавлена: %s", saved.ID, saved.Title), nil)
}

func (h *Handler) handleDeleteLink(ctx context.Context, chatID, userID int64, args string) {
	if !h.admins.IsAdmin(userID) {
		h.reply(chatID, textAdminsOnly, nil)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		h.reply(chatID, "Формат: /dellink <id>", nil)
		return
	}
	if err := h.content.DeleteLink(ctx, id); err != nil {
		h.replyContentError(chatID, err)
		return
	}
	h.reply(chatID, "🗑 Ссылка удалена", nil)
}

func (h *Handler) handleDeleteLesson(ctx context.Context, chatID, userID int64, args string) {
	if !h.admins.IsAdmin(userID) {
		h.reply(chatID, textAdminsOnly, nil)
		return
	}
	fields := strings.Fields(args)
	if len(fields) != 2 {
		h.reply(chatID, "Формат: /dellesson <prep|steam> <номер>", nil)
		return
	}
	section, err := domain.ParseSection(fields[0])
	if err != nil {
		h.replyContentError(chatID, err)
		return
	}
	ord, err := strconv.Atoi(fields[1])
	if err != nil {
		h.replyContentError(chatID, domain.ErrInvalidOrd)
		return
	}
	if err := h.content.DeleteLesson(ctx, section, ord); err != nil {
		h.replyContentError(chatID, err)
		return
	}
	h.reply(chatID, fmt.Sprintf("🗑 Урок %d удалён из раздела «%s»", ord, section.Title()), nil)
}

func (h *Handler) handleDeleteNews(ctx context.Context, chatID, userID int64, args string) {
	if !h.admins.IsAdmin(userID) {
		h.reply(chatID, textAdminsOnly, nil)
		return
	}
	messageID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		h.reply(chatID, "Формат: /delnews <message_id>", nil)
		return
	}
	if err := h.content.DeleteNews(ctx, messageID); err != nil {
		h.replyContentError(chatID, err)
		return
	}
	h.reply(chatID, "🗑 Новость удалена", nil)
}

func (h *Handler) replyContentError(chatID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.reply(chatID, "Не найдено", nil)
	case errors.Is(err, domain.ErrInvalidSection),
		errors.Is(err, domain.ErrInvalidOrd),
		errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrInvalidMessageID),
		errors.Is(err, content.ErrInvalidURL),
		errors.Is(err, content.ErrInvalidLinkID):
		h.reply(chatID, "Ошибка: "+err.Error(), nil)
	default:
		h.log.Error().Err(err).Msg("ошибка изменения контента")
		h.reply(chatID, "Не удалось выполнить команду. Попробуйте позже.", nil)
	}
}

func withPostURL(text, postURL string) string {
	if postURL == "" {
		return text
	}
	return text + "\n" + postURL
}
