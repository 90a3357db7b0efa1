package domain

import (
	"context"
	"time"
)

// PendingKind описывает, чего ждёт незавершённое действие администратора.
type PendingKind string

const (
	// PendingLessonMeta — ждём номер и название урока.
	PendingLessonMeta PendingKind = "lesson_meta"
	// PendingLessonForward — номер и название есть, ждём пересланный пост.
	PendingLessonForward PendingKind = "lesson_forward"
	// PendingNewsForward — ждём пересланный пост для новостей.
	PendingNewsForward PendingKind = "news_forward"
)

// PendingAction — незавершённое действие администратора. У каждого администратора не больше одного.
type PendingAction struct {
	ID        string      `json:"id"`
	Kind      PendingKind `json:"kind"`
	Section   Section     `json:"section,omitempty"`
	Ord       int         `json:"ord,omitempty"`
	Title     string      `json:"title,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// AwaitsForward сообщает, ждёт ли действие пересланный пост.
func (p PendingAction) AwaitsForward() bool {
	return p.Kind == PendingLessonForward || p.Kind == PendingNewsForward
}

// PendingStore хранит незавершённые действия по id администратора.
type PendingStore interface {
	// Get возвращает false, если действия нет.
	Get(ctx context.Context, adminID int64) (PendingAction, bool, error)
	// Set заменяет предыдущее действие администратора.
	Set(ctx context.Context, adminID int64, action PendingAction) error
	Clear(ctx context.Context, adminID int64) error
}
