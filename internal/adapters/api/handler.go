package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"steam-nav-bot/internal/domain"
	httpinfra "steam-nav-bot/internal/infra/http"
	"steam-nav-bot/internal/usecase/content"
)

const timestampLayout = "2006-01-02 15:04:05"

// Meta — публичные настройки, которые отдаёт /meta.
type Meta struct {
	ChannelUsername string   `json:"channel_username"`
	ChatURL         string   `json:"chat_url"`
	WebAppOrigin    string   `json:"webapp_origin"`
	AllowedOrigins  []string `json:"allowed_origins"`
}

// Options настраивает защищённые маршруты.
type Options struct {
	AdminSecret string
	BotToken    string
	// InitDataMaxAge ограничивает возраст initData WebApp; 0 отключает проверку.
	InitDataMaxAge time.Duration
	NewsLimit      int
}

// Handler обслуживает HTTP API каталога.
type Handler struct {
	content *content.Service
	meta    Meta
	opts    Options
	log     zerolog.Logger
}

// NewHandler создаёт обработчик.
func NewHandler(contentUC *content.Service, meta Meta, opts Options, log zerolog.Logger) *Handler {
	if opts.NewsLimit <= 0 || opts.NewsLimit > content.MaxNews {
		opts.NewsLimit = content.MaxNews
	}
	if meta.AllowedOrigins == nil {
		meta.AllowedOrigins = []string{}
	}
	return &Handler{content: contentUC, meta: meta, opts: opts, log: log}
}

// Register вешает маршруты на роутер.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK. Try /health or /meta"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/meta", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, h.meta)
	})
	r.Get("/lessons", h.listLessons)
	r.Get("/links", h.listLinks)
	r.Get("/news", h.listNews)
	r.Get("/progress", h.getProgress)

	r.With(httpinfra.WebAppAuthMiddleware(h.opts.BotToken, h.opts.InitDataMaxAge, h.log)).Post("/progress", h.postProgress)

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpinfra.SecretGuard(h.opts.AdminSecret, h.log))
		admin.Post("/lessons", h.adminSaveLesson)
		admin.Delete("/lessons/{section}/{ord}", h.adminDeleteLesson)
		admin.Post("/links", h.adminAddLink)
		admin.Delete("/links/{id}", h.adminDeleteLink)
		admin.Post("/news", h.adminAddNews)
		admin.Delete("/news/{message_id}", h.adminDeleteNews)
	})
}

type lessonItem struct {
	Ord       int     `json:"ord"`
	Title     string  `json:"title"`
	MessageID int64   `json:"message_id"`
	PostURL   *string `json:"post_url"`
}

type linkItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Ord   int    `json:"ord"`
}

type newsItem struct {
	MessageID int64   `json:"message_id"`
	CreatedAt string  `json:"created_at"`
	PostURL   *string `json:"post_url"`
}

type progressItem struct {
	Section   domain.Section `json:"section"`
	Ord       int            `json:"ord"`
	UpdatedAt string         `json:"updated_at"`
	Title     *string        `json:"title"`
	MessageID *int64         `json:"message_id"`
	PostURL   *string        `json:"post_url"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toLessonItem(v content.LessonView) lessonItem {
	return lessonItem{Ord: v.Ord, Title: v.Title, MessageID: v.MessageID, PostURL: optional(v.PostURL)}
}

func (h *Handler) listLessons(w http.ResponseWriter, r *http.Request) {
	section, err := domain.ParseSection(r.URL.Query().Get("section"))
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "section must be prep|steam")
		return
	}
	views, err := h.content.ListLessons(r.Context(), section)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]lessonItem, 0, len(views))
	for _, v := range views {
		items = append(items, toLessonItem(v))
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"section": section, "items": items})
}

func (h *Handler) listLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.content.ListLinks(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]linkItem, 0, len(links))
	for _, l := range links {
		items = append(items, linkItem{ID: l.ID, Title: l.Title, URL: l.URL, Ord: l.Ord})
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) listNews(w http.ResponseWriter, r *http.Request) {
	limit := h.opts.NewsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > content.MaxNews {
			httpinfra.WriteError(w, http.StatusBadRequest, "limit must be 1.."+strconv.Itoa(content.MaxNews))
			return
		}
		limit = n
	}
	views, err := h.content.ListNews(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]newsItem, 0, len(views))
	for _, v := range views {
		items = append(items, newsItem{MessageID: v.MessageID, CreatedAt: v.CreatedAt.Format(timestampLayout), PostURL: optional(v.PostURL)})
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("user_id")), 10, 64)
	if err != nil || userID <= 0 {
		httpinfra.WriteError(w, http.StatusBadRequest, "user_id required")
		return
	}
	views, err := h.content.Progress(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]progressItem, 0, len(views))
	for _, v := range views {
		item := progressItem{Section: v.Section, Ord: v.Ord, UpdatedAt: v.UpdatedAt.Format(timestampLayout), PostURL: optional(v.PostURL)}
		if v.Lesson != nil {
			title, messageID := v.Lesson.Title, v.Lesson.MessageID
			item.Title = &title
			item.MessageID = &messageID
		}
		items = append(items, item)
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"user_id": userID, "items": items})
}

type progressRequest struct {
	Section string `json:"section"`
	Ord     int    `json:"ord"`
}

func (h *Handler) postProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpinfra.WebAppUserID(r.Context())
	if !ok {
		httpinfra.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req progressRequest
	if !decode(w, r, &req) {
		return
	}
	section, err := domain.ParseSection(req.Section)
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "section must be prep|steam")
		return
	}
	if err := h.content.RecordProgress(r.Context(), userID, section, req.Ord); err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "user_id": userID, "section": section, "ord": req.Ord})
}

type lessonRequest struct {
	Section   string `json:"section"`
	Ord       int    `json:"ord"`
	Title     string `json:"title"`
	MessageID int64  `json:"message_id"`
	Replace   *bool  `json:"replace"`
}

func (h *Handler) adminSaveLesson(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if !decode(w, r, &req) {
		return
	}
	replace := req.Replace == nil || *req.Replace
	view, err := h.content.SaveLesson(r.Context(), domain.Lesson{
		Section:   domain.Section(req.Section),
		Ord:       req.Ord,
		Title:     req.Title,
		MessageID: req.MessageID,
	}, replace)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info().Str("section", string(view.Section)).Int("ord", view.Ord).Bool("replace", replace).Msg("api: урок сохранён")
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "section": view.Section, "item": toLessonItem(view)})
}

func (h *Handler) adminDeleteLesson(w http.ResponseWriter, r *http.Request) {
	section, err := domain.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "section must be prep|steam")
		return
	}
	ord, err := strconv.Atoi(chi.URLParam(r, "ord"))
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, domain.ErrInvalidOrd.Error())
		return
	}
	if err := h.content.DeleteLesson(r.Context(), section, ord); err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type linkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Ord   int    `json:"ord"`
}

func (h *Handler) adminAddLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !decode(w, r, &req) {
		return
	}
	link, err := h.content.AddLink(r.Context(), domain.Link{Title: req.Title, URL: req.URL, Ord: req.Ord})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "item": linkItem{ID: link.ID, Title: link.Title, URL: link.URL, Ord: link.Ord}})
}

func (h *Handler) adminDeleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, content.ErrInvalidLinkID.Error())
		return
	}
	if err := h.content.DeleteLink(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type newsRequest struct {
	MessageID int64 `json:"message_id"`
}

func (h *Handler) adminAddNews(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if !decode(w, r, &req) {
		return
	}
	view, inserted, err := h.content.AddNews(r.Context(), req.MessageID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"inserted":   inserted,
		"message_id": view.MessageID,
		"post_url":   optional(view.PostURL),
	})
}

func (h *Handler) adminDeleteNews(w http.ResponseWriter, r *http.Request) {
	messageID, err := strconv.ParseInt(chi.URLParam(r, "message_id"), 10, 64)
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, domain.ErrInvalidMessageID.Error())
		return
	}
	if err := h.content.DeleteNews(r.Context(), messageID); err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(dst); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSection),
		errors.Is(err, domain.ErrInvalidOrd),
		errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrInvalidMessageID),
		errors.Is(err, content.ErrInvalidUserID),
		errors.Is(err, content.ErrInvalidURL),
		errors.Is(err, content.ErrInvalidLinkID),
		errors.Is(err, content.ErrInvalidLimit):
		httpinfra.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httpinfra.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrLessonExists):
		httpinfra.WriteError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Str("path", r.URL.Path).Msg("api: внутренняя ошибка")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
