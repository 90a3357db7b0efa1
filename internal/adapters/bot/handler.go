package bot

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"steam-nav-bot/internal/adapters/telegram"
	"steam-nav-bot/internal/infra/metrics"
	"steam-nav-bot/internal/usecase/content"
	"steam-nav-bot/internal/usecase/ingest"
)

// DefaultWebAppURL открывается, если WEBAPP_URL не задан.
const DefaultWebAppURL = "https://easypi9.github.io/steam-nav-bot/"

// Sender — методы Bot API, которыми пользуется обработчик. *tgbotapi.BotAPI подходит.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Config задаёт ссылки меню и канал.
type Config struct {
	WebAppURL string
	ChatURL   string
	Channel   ingest.Channel
	NewsTag   string
}

// Handler обрабатывает апдейты бота.
type Handler struct {
	bot     Sender
	log     zerolog.Logger
	content *content.Service
	machine *ingest.Machine
	admins  ingest.AdminGuard
	cfg     Config
}

// NewHandler создаёт обработчик.
func NewHandler(bot Sender, log zerolog.Logger, contentUC *content.Service, machine *ingest.Machine, admins ingest.AdminGuard, cfg Config) *Handler {
	return &Handler{
		bot:     bot,
		log:     log,
		content: contentUC,
		machine: machine,
		admins:  admins,
		cfg:     cfg,
	}
}

// HandleUpdate обрабатывает входящий апдейт. Паника внутри одного апдейта не роняет процесс.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Int("update_id", upd.UpdateID).Bytes("stack", debug.Stack()).Msg("паника при обработке апдейта")
		}
	}()
	switch {
	case upd.Message != nil:
		h.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		h.handleCallback(ctx, upd.CallbackQuery)
	case upd.ChannelPost != nil:
		h.handleChannelPost(ctx, upd.ChannelPost)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}
	if h.admins.IsAdmin(msg.From.ID) {
		action, ok, err := h.machine.Pending(ctx, msg.From.ID)
		if err != nil {
			h.log.Error().Err(err).Int64("admin", msg.From.ID).Msg("не удалось прочитать состояние администратора")
			h.reply(msg.Chat.ID, "Не удалось прочитать состояние. Попробуйте ещё раз.", nil)
			return
		}
		if ok {
			h.continuePending(ctx, msg, action)
			return
		}
	}
	if msg.Chat.IsPrivate() {
		h.reply(msg.Chat.ID, "Выберите раздел в меню: /start", nil)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		h.handleStart(chatID, userID)
	case "help":
		h.handleHelp(chatID, userID)
	case "menu":
		h.showMenu(chatID)
	case "continue":
		h.showContinue(ctx, chatID, userID)
	case "addlesson":
		h.handleAddLesson(ctx, chatID, userID, args)
	case "addnews":
		h.startNews(ctx, chatID, userID)
	case "cancel":
		h.cancelPending(ctx, chatID, userID)
	case "addlink":
		h.handleAddLink(ctx, chatID, userID, args)
	case "dellink":
		h.handleDeleteLink(ctx, chatID, userID, args)
	case "dellesson":
		h.handleDeleteLesson(ctx, chatID, userID, args)
	case "delnews":
		h.handleDeleteNews(ctx, chatID, userID, args)
	case "admin":
		h.showAdminPanel(chatID, userID)
	default:
		h.reply(chatID, "Неизвестная команда. Используйте /help", nil)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	h.answerCallback(cb.ID)
	if cb.Message == nil || cb.From == nil {
		return
	}
	chatID, userID := cb.Message.Chat.ID, cb.From.ID
	data := cb.Data
	switch {
	case data == "menu":
		h.showMenu(chatID)
	case strings.HasPrefix(data, "sec:"):
		section, page := parseSectionPage(data)
		h.showSection(ctx, chatID, section, page)
	case strings.HasPrefix(data, "lesson:"):
		section, ord := parseSectionOrd(strings.TrimPrefix(data, "lesson:"))
		h.showLesson(ctx, chatID, userID, section, ord)
	case data == "links":
		h.showLinks(ctx, chatID)
	case data == "news":
		h.showNews(ctx, chatID)
	case data == "continue":
		h.showContinue(ctx, chatID, userID)
	case data == "admin":
		h.showAdminPanel(chatID, userID)
	case strings.HasPrefix(data, "adm_lesson:"):
		h.handleAddLesson(ctx, chatID, userID, strings.TrimPrefix(data, "adm_lesson:"))
	case data == "adm_news":
		h.startNews(ctx, chatID, userID)
	case data == "adm_cancel":
		h.cancelPending(ctx, chatID, userID)
	default:
		h.log.Debug().Str("data", data).Msg("неизвестный callback")
	}
}

// handleChannelPost сохраняет новость, если пост нашего канала содержит тег новостей.
func (h *Handler) handleChannelPost(ctx context.Context, post *tgbotapi.Message) {
	ch := h.cfg.Channel
	if ch.Username == "" && ch.ID == 0 {
		return
	}
	if !telegram.FromChannel(post.Chat, ch.Username, ch.ID) {
		return
	}
	if !telegram.HasTag(telegram.MessageText(post), h.cfg.NewsTag) {
		return
	}
	_, inserted, err := h.content.AddNews(ctx, int64(post.MessageID))
	if err != nil {
		metrics.IncIngestion("channel_post", "store_error")
		h.log.Error().Err(err).Int("message_id", post.MessageID).Msg("не удалось сохранить новость из канала")
		return
	}
	metrics.IncIngestion("channel_post", "news_saved")
	h.log.Info().Int("message_id", post.MessageID).Bool("inserted", inserted).Msg("новость из канала сохранена")
}

func (h *Handler) answerCallback(id string) {
	if id == "" {
		return
	}
	start := time.Now()
	_, err := h.bot.Request(tgbotapi.NewCallback(id, ""))
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", "callback", start, err)
	if err != nil {
		h.log.Warn().Err(err).Msg("не удалось ответить на callback")
	}
}

// reply отправляет текст частями; клавиатура прикрепляется к последней части.
func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	parts := telegram.SplitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true
		if i == len(parts)-1 && keyboard != nil {
			msg.ReplyMarkup = *keyboard
		}
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", "chat", start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить сообщение")
			return
		}
	}
}
