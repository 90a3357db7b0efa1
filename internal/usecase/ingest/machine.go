// Package ingest реализует двухшаговое добавление контента администратором:
// сначала администратор объявляет, что добавляет, затем пересылает пост канала.
// Ничего не пишется в хранилище, пока пересылка не проверена.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"steam-nav-bot/internal/domain"
	"steam-nav-bot/internal/infra/metrics"
)

var (
	ErrNotAdmin        = errors.New("пользователь не администратор")
	ErrNoPending       = errors.New("нет незавершённого действия")
	ErrNotForwarded    = errors.New("сообщение не является пересылкой из канала")
	ErrForeignChannel  = errors.New("пост переслан не из нашего канала")
	ErrUnexpectedInput = errors.New("сейчас ожидается другой ввод")
)

// AdminGuard решает, является ли пользователь администратором.
type AdminGuard interface {
	IsAdmin(userID int64) bool
}

// Writer выполняет итоговую запись в хранилище.
type Writer interface {
	UpsertLesson(ctx context.Context, lesson domain.Lesson) error
	InsertNewsIfAbsent(ctx context.Context, messageID int64) (bool, error)
}

// Channel описывает канал, из которого принимаются пересылки. Пустое значение отключает проверку источника.
type Channel struct {
	Username string
	ID       int64
}

func (c Channel) configured() bool {
	return c.Username != "" || c.ID != 0
}

func (c Channel) matches(fwd domain.ChannelForward) bool {
	if c.ID != 0 && fwd.ChannelID == c.ID {
		return true
	}
	return c.Username != "" && strings.EqualFold(strings.TrimPrefix(fwd.ChannelUsername, "@"), c.Username)
}

// LessonMeta — уже разобранные номер и название урока.
type LessonMeta struct {
	Ord   int
	Title string
}

func (m LessonMeta) validate() (LessonMeta, error) {
	m.Title = strings.TrimSpace(m.Title)
	if m.Ord <= 0 {
		return m, domain.ErrInvalidOrd
	}
	if m.Title == "" {
		return m, domain.ErrEmptyTitle
	}
	return m, nil
}

// ResultKind описывает итог шага.
type ResultKind int

const (
	// ResultAwaitingMeta — ждём номер и название.
	ResultAwaitingMeta ResultKind = iota + 1
	// ResultAwaitingForward — ждём пересланный пост.
	ResultAwaitingForward
	// ResultLessonSaved — урок записан, действие завершено.
	ResultLessonSaved
	// ResultNewsSaved — новость записана (или уже была), действие завершено.
	ResultNewsSaved
	// ResultCancelled — действие сброшено.
	ResultCancelled
)

// Result описывает итог успешного шага.
type Result struct {
	Kind    ResultKind
	Pending domain.PendingAction
	Lesson  domain.Lesson
	// NewsInserted false означает, что новость с этим постом уже была.
	NewsInserted bool
	MessageID    int64
	// HadPending сообщает, было ли что отменять.
	HadPending bool
}

// Machine хранит по одному незавершённому действию на администратора.
type Machine struct {
	guard   AdminGuard
	pending domain.PendingStore
	store   Writer
	channel Channel
	log     zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewMachine создаёт машину состояний.
func NewMachine(guard AdminGuard, pending domain.PendingStore, store Writer, channel Channel, log zerolog.Logger) *Machine {
	return &Machine{
		guard:   guard,
		pending: pending,
		store:   store,
		channel: channel,
		log:     log,
		now:     time.Now,
		locks:   make(map[int64]*sync.Mutex),
	}
}

// lock сериализует шаги одного администратора; разные администраторы не блокируют друг друга.
func (m *Machine) lock(adminID int64) func() {
	m.mu.Lock()
	l, ok := m.locks[adminID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[adminID] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Pending возвращает текущее действие администратора. Для не-администраторов всегда false.
func (m *Machine) Pending(ctx context.Context, adminID int64) (domain.PendingAction, bool, error) {
	if !m.guard.IsAdmin(adminID) {
		return domain.PendingAction{}, false, nil
	}
	return m.pending.Get(ctx, adminID)
}

// StartLesson начинает добавление урока. Если meta передан, сразу ждём пересылку.
// Предыдущее действие администратора отбрасывается.
func (m *Machine) StartLesson(ctx context.Context, adminID int64, section domain.Section, meta *LessonMeta) (Result, error) {
	if !m.guard.IsAdmin(adminID) {
		return m.deny("start_lesson", adminID)
	}
	if _, err := domain.ParseSection(string(section)); err != nil {
		return Result{}, err
	}
	action := domain.PendingAction{Kind: domain.PendingLessonMeta, Section: section}
	if meta != nil {
		valid, err := meta.validate()
		if err != nil {
			metrics.IncIngestion("start_lesson", "invalid")
			return Result{}, err
		}
		action.Kind = domain.PendingLessonForward
		action.Ord = valid.Ord
		action.Title = valid.Title
	}
	unlock := m.lock(adminID)
	defer unlock()
	return m.begin(ctx, "start_lesson", adminID, action)
}

// StartNews начинает добавление новости.
func (m *Machine) StartNews(ctx context.Context, adminID int64) (Result, error) {
	if !m.guard.IsAdmin(adminID) {
		return m.deny("start_news", adminID)
	}
	unlock := m.lock(adminID)
	defer unlock()
	return m.begin(ctx, "start_news", adminID, domain.PendingAction{Kind: domain.PendingNewsForward})
}

func (m *Machine) begin(ctx context.Context, event string, adminID int64, action domain.PendingAction) (Result, error) {
	action.ID = uuid.NewString()
	action.CreatedAt = m.now().UTC()
	if err := m.pending.Set(ctx, adminID, action); err != nil {
		metrics.IncIngestion(event, "error")
		return Result{}, fmt.Errorf("сохранение состояния: %w", err)
	}
	metrics.IncIngestion(event, "ok")
	m.log.Info().Int64("admin", adminID).Str("action_id", action.ID).Str("kind", string(action.Kind)).Str("section", string(action.Section)).Msg("ingest: действие начато")
	kind := ResultAwaitingMeta
	if action.AwaitsForward() {
		kind = ResultAwaitingForward
	}
	return Result{Kind: kind, Pending: action}, nil
}

// SubmitMeta принимает номер и название урока в состоянии ожидания метаданных.
// При ошибке проверки состояние не меняется.
func (m *Machine) SubmitMeta(ctx context.Context, adminID int64, meta LessonMeta) (Result, error) {
	if !m.guard.IsAdmin(adminID) {
		return m.deny("meta", adminID)
	}
	unlock := m.lock(adminID)
	defer unlock()

	action, ok, err := m.pending.Get(ctx, adminID)
	if err != nil {
		return Result{}, fmt.Errorf("чтение состояния: %w", err)
	}
	if !ok {
		return Result{}, ErrNoPending
	}
	if action.Kind != domain.PendingLessonMeta {
		metrics.IncIngestion("meta", "unexpected")
		return Result{Pending: action}, ErrUnexpectedInput
	}
	valid, err := meta.validate()
	if err != nil {
		metrics.IncIngestion("meta", "invalid")
		return Result{Pending: action}, err
	}
	action.Kind = domain.PendingLessonForward
	action.Ord = valid.Ord
	action.Title = valid.Title
	if err := m.pending.Set(ctx, adminID, action); err != nil {
		return Result{}, fmt.Errorf("сохранение состояния: %w", err)
	}
	metrics.IncIngestion("meta", "ok")
	return Result{Kind: ResultAwaitingForward, Pending: action}, nil
}

// Deliver принимает следующее сообщение в состоянии ожидания пересылки.
// Без подлинной пересылки из настроенного канала состояние не меняется и ничего не пишется.
func (m *Machine) Deliver(ctx context.Context, adminID int64, in domain.Inbound) (Result, error) {
	if !m.guard.IsAdmin(adminID) {
		return m.deny("forward", adminID)
	}
	unlock := m.lock(adminID)
	defer unlock()

	action, ok, err := m.pending.Get(ctx, adminID)
	if err != nil {
		return Result{}, fmt.Errorf("чтение состояния: %w", err)
	}
	if !ok {
		return Result{}, ErrNoPending
	}
	if !action.AwaitsForward() {
		metrics.IncIngestion("forward", "unexpected")
		return Result{Pending: action}, ErrUnexpectedInput
	}
	fwd, isForward := in.(domain.ChannelForward)
	if !isForward || fwd.MessageID <= 0 {
		metrics.IncIngestion("forward", "not_forwarded")
		return Result{Pending: action}, ErrNotForwarded
	}
	if m.channel.configured() && !m.channel.matches(fwd) {
		metrics.IncIngestion("forward", "foreign_channel")
		m.log.Warn().Int64("admin", adminID).Str("action_id", action.ID).Int64("channel_id", fwd.ChannelID).Str("channel", fwd.ChannelUsername).Msg("ingest: пересылка из чужого канала")
		return Result{Pending: action}, ErrForeignChannel
	}

	// Действие потребляется до записи: при ошибке хранилища администратор начинает заново.
	if err := m.pending.Clear(ctx, adminID); err != nil {
		return Result{}, fmt.Errorf("сброс состояния: %w", err)
	}

	switch action.Kind {
	case domain.PendingLessonForward:
		lesson := domain.Lesson{Section: action.Section, Ord: action.Ord, Title: action.Title, MessageID: fwd.MessageID}
		if err := m.store.UpsertLesson(ctx, lesson); err != nil {
			metrics.IncIngestion("forward", "store_error")
			m.log.Error().Err(err).Int64("admin", adminID).Str("action_id", action.ID).Msg("ingest: не удалось сохранить урок")
			return Result{}, fmt.Errorf("сохранение урока: %w", err)
		}
		metrics.IncIngestion("forward", "lesson_saved")
		m.log.Info().Int64("admin", adminID).Str("action_id", action.ID).Str("section", string(lesson.Section)).Int("ord", lesson.Ord).Int64("message_id", lesson.MessageID).Msg("ingest: урок сохранён")
		return Result{Kind: ResultLessonSaved, Pending: action, Lesson: lesson, MessageID: fwd.MessageID}, nil
	default:
		inserted, err := m.store.InsertNewsIfAbsent(ctx, fwd.MessageID)
		if err != nil {
			metrics.IncIngestion("forward", "store_error")
			m.log.Error().Err(err).Int64("admin", adminID).Str("action_id", action.ID).Msg("ingest: не удалось сохранить новость")
			return Result{}, fmt.Errorf("сохранение новости: %w", err)
		}
		metrics.IncIngestion("forward", "news_saved")
		m.log.Info().Int64("admin", adminID).Str("action_id", action.ID).Int64("message_id", fwd.MessageID).Bool("inserted", inserted).Msg("ingest: новость сохранена")
		return Result{Kind: ResultNewsSaved, Pending: action, NewsInserted: inserted, MessageID: fwd.MessageID}, nil
	}
}

// Cancel безусловно сбрасывает действие администратора.
func (m *Machine) Cancel(ctx context.Context, adminID int64) (Result, error) {
	if !m.guard.IsAdmin(adminID) {
		return m.deny("cancel", adminID)
	}
	unlock := m.lock(adminID)
	defer unlock()
	action, had, err := m.pending.Get(ctx, adminID)
	if err != nil {
		return Result{}, fmt.Errorf("чтение состояния: %w", err)
	}
	if err := m.pending.Clear(ctx, adminID); err != nil {
		return Result{}, fmt.Errorf("сброс состояния: %w", err)
	}
	metrics.IncIngestion("cancel", "ok")
	if had {
		m.log.Info().Int64("admin", adminID).Str("action_id", action.ID).Msg("ingest: действие отменено")
	}
	return Result{Kind: ResultCancelled, Pending: action, HadPending: had}, nil
}

func (m *Machine) deny(event string, userID int64) (Result, error) {
	metrics.IncIngestion(event, "not_admin")
	metrics.IncGuardRejection("admin")
	m.log.Warn().Int64("user", userID).Str("event", event).Msg("ingest: отказ, не администратор")
	return Result{}, ErrNotAdmin
}
