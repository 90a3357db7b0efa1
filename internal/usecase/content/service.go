package content

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"steam-nav-bot/internal/domain"
)

var (
	ErrInvalidUserID  = errors.New("user_id обязателен")
	ErrInvalidURL     = errors.New("ссылка должна быть абсолютным http(s) адресом")
	ErrInvalidLinkID  = errors.New("некорректный id ссылки")
	ErrInvalidLimit   = errors.New("некорректный limit")
	ErrInvalidChannel = errors.New("не удалось разобрать имя канала")
)

// MaxNews ограничивает выдачу новостей.
const MaxNews = 200

var channelRegex = regexp.MustCompile(`(?i)^(?:@|https?://t\.me/|t\.me/)?([a-z0-9_]{5,})/?$`)

// NormalizeChannel приводит @alias, t.me/alias или alias к каноничному имени канала.
// Пустая строка означает, что канал не настроен.
func NormalizeChannel(input string) string {
	matches := channelRegex.FindStringSubmatch(strings.TrimSpace(input))
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// ResolveChannel разбирает CHANNEL_USERNAME. Пустое значение означает, что канал не настроен,
// непустое и неразобранное возвращает ErrInvalidChannel.
func ResolveChannel(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	channel := NormalizeChannel(raw)
	if channel == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, raw)
	}
	return channel, nil
}

// PostURL строит ссылку на пост канала. Без канала или без id поста возвращает пустую строку.
func PostURL(channel string, messageID int64) string {
	if channel == "" || messageID <= 0 {
		return ""
	}
	return "https://t.me/" + channel + "/" + strconv.FormatInt(messageID, 10)
}

// ChannelURL возвращает ссылку на канал или пустую строку.
func ChannelURL(channel string) string {
	if channel == "" {
		return ""
	}
	return "https://t.me/" + channel
}

// LessonView дополняет урок ссылкой на пост.
type LessonView struct {
	domain.Lesson
	PostURL string
}

// NewsView дополняет новость ссылкой на пост.
type NewsView struct {
	domain.NewsItem
	PostURL string
}

// ProgressView — позиция пользователя вместе с уроком, если он ещё существует.
type ProgressView struct {
	domain.Progress
	Lesson  *domain.Lesson
	PostURL string
}

// Service отдаёт контент боту и HTTP API и проверяет изменения от администраторов.
type Service struct {
	repo    domain.ContentRepo
	channel string
}

// NewService создаёт сервис. channel задаётся без @ и может быть пустым.
func NewService(repo domain.ContentRepo, channel string) *Service {
	return &Service{repo: repo, channel: NormalizeChannel(channel)}
}

// Channel возвращает каноничное имя канала.
func (s *Service) Channel() string {
	return s.channel
}

// PostURL строит ссылку на пост настроенного канала.
func (s *Service) PostURL(messageID int64) string {
	return PostURL(s.channel, messageID)
}

// ListLessons возвращает уроки раздела по возрастанию номера.
func (s *Service) ListLessons(ctx context.Context, section domain.Section) ([]LessonView, error) {
	if _, err := domain.ParseSection(string(section)); err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListLessons(ctx, section)
	if err != nil {
		return nil, fmt.Errorf("получение уроков: %w", err)
	}
	views := make([]LessonView, 0, len(lessons))
	for _, l := range lessons {
		views = append(views, LessonView{Lesson: l, PostURL: s.PostURL(l.MessageID)})
	}
	return views, nil
}

// Lesson возвращает урок из слота или domain.ErrNotFound.
func (s *Service) Lesson(ctx context.Context, section domain.Section, ord int) (LessonView, error) {
	lesson, err := s.repo.GetLesson(ctx, section, ord)
	if err != nil {
		return LessonView{}, err
	}
	return LessonView{Lesson: lesson, PostURL: s.PostURL(lesson.MessageID)}, nil
}

// ListLinks возвращает ссылки по ord, затем по id.
func (s *Service) ListLinks(ctx context.Context) ([]domain.Link, error) {
	links, err := s.repo.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение ссылок: %w", err)
	}
	return links, nil
}

// ListNews возвращает последние новости. limit вне 1..MaxNews заменяется на MaxNews.
func (s *Service) ListNews(ctx context.Context, limit int) ([]NewsView, error) {
	if limit <= 0 || limit > MaxNews {
		limit = MaxNews
	}
	items, err := s.repo.ListNews(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("получение новостей: %w", err)
	}
	views := make([]NewsView, 0, len(items))
	for _, it := range items {
		views = append(views, NewsView{NewsItem: it, PostURL: s.PostURL(it.MessageID)})
	}
	return views, nil
}

// Progress возвращает позиции пользователя по разделам с данными урока.
func (s *Service) Progress(ctx context.Context, userID int64) ([]ProgressView, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	records, err := s.repo.GetProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("получение прогресса: %w", err)
	}
	views := make([]ProgressView, 0, len(records))
	for _, p := range records {
		view := ProgressView{Progress: p}
		lesson, err := s.repo.GetLesson(ctx, p.Section, p.Ord)
		switch {
		case err == nil:
			view.Lesson = &lesson
			view.PostURL = s.PostURL(lesson.MessageID)
		case errors.Is(err, domain.ErrNotFound):
		default:
			return nil, fmt.Errorf("получение урока: %w", err)
		}
		views = append(views, view)
	}
	return views, nil
}

// RecordProgress запоминает, что пользователь открыл урок.
func (s *Service) RecordProgress(ctx context.Context, userID int64, section domain.Section, ord int) error {
	if userID <= 0 {
		return ErrInvalidUserID
	}
	if _, err := domain.ParseSection(string(section)); err != nil {
		return err
	}
	if ord <= 0 {
		return domain.ErrInvalidOrd
	}
	if _, err := s.repo.GetLesson(ctx, section, ord); err != nil {
		return err
	}
	return s.repo.UpsertProgress(ctx, userID, section, ord)
}

// SaveLesson записывает урок. Если replace=false, занятый слот даёт domain.ErrLessonExists.
func (s *Service) SaveLesson(ctx context.Context, lesson domain.Lesson, replace bool) (LessonView, error) {
	lesson.Title = strings.TrimSpace(lesson.Title)
	if err := lesson.Validate(); err != nil {
		return LessonView{}, err
	}
	var err error
	if replace {
		err = s.repo.UpsertLesson(ctx, lesson)
	} else {
		err = s.repo.InsertLesson(ctx, lesson)
	}
	if err != nil {
		return LessonView{}, err
	}
	return LessonView{Lesson: lesson, PostURL: s.PostURL(lesson.MessageID)}, nil
}

// DeleteLesson удаляет урок или возвращает domain.ErrNotFound.
func (s *Service) DeleteLesson(ctx context.Context, section domain.Section, ord int) error {
	if _, err := domain.ParseSection(string(section)); err != nil {
		return err
	}
	if ord <= 0 {
		return domain.ErrInvalidOrd
	}
	return notFound(s.repo.DeleteLesson(ctx, section, ord))
}

// AddLink проверяет и сохраняет ссылку.
func (s *Service) AddLink(ctx context.Context, link domain.Link) (domain.Link, error) {
	link.Title = strings.TrimSpace(link.Title)
	link.URL = strings.TrimSpace(link.URL)
	if link.Title == "" {
		return domain.Link{}, domain.ErrEmptyTitle
	}
	u, err := url.Parse(link.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Link{}, ErrInvalidURL
	}
	if link.Ord < 0 {
		return domain.Link{}, domain.ErrInvalidOrd
	}
	return s.repo.InsertLink(ctx, link)
}

// DeleteLink удаляет ссылку по id.
func (s *Service) DeleteLink(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidLinkID
	}
	return notFound(s.repo.DeleteLink(ctx, id))
}

// AddNews сохраняет новость; повторный id не считается ошибкой.
func (s *Service) AddNews(ctx context.Context, messageID int64) (NewsView, bool, error) {
	if messageID <= 0 {
		return NewsView{}, false, domain.ErrInvalidMessageID
	}
	inserted, err := s.repo.InsertNewsIfAbsent(ctx, messageID)
	if err != nil {
		return NewsView{}, false, err
	}
	return NewsView{NewsItem: domain.NewsItem{MessageID: messageID}, PostURL: s.PostURL(messageID)}, inserted, nil
}

// DeleteNews удаляет новость по id поста.
func (s *Service) DeleteNews(ctx context.Context, messageID int64) error {
	if messageID <= 0 {
		return domain.ErrInvalidMessageID
	}
	return notFound(s.repo.DeleteNews(ctx, messageID))
}

func notFound(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
