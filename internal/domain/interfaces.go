package domain

import "context"

// LessonRepo управляет уроками.
type LessonRepo interface {
	// UpsertLesson вставляет урок или заменяет урок в занятом слоте.
	UpsertLesson(ctx context.Context, lesson Lesson) error
	// InsertLesson возвращает ErrLessonExists, если слот занят.
	InsertLesson(ctx context.Context, lesson Lesson) error
	DeleteLesson(ctx context.Context, section Section, ord int) (bool, error)
	GetLesson(ctx context.Context, section Section, ord int) (Lesson, error)
	ListLessons(ctx context.Context, section Section) ([]Lesson, error)
}

// LinkRepo управляет полезными ссылками.
type LinkRepo interface {
	InsertLink(ctx context.Context, link Link) (Link, error)
	ListLinks(ctx context.Context) ([]Link, error)
	DeleteLink(ctx context.Context, id int64) (bool, error)
}

// NewsRepo управляет новостями.
type NewsRepo interface {
	// InsertNewsIfAbsent возвращает false без ошибки, если новость уже есть.
	InsertNewsIfAbsent(ctx context.Context, messageID int64) (bool, error)
	ListNews(ctx context.Context, limit int) ([]NewsItem, error)
	DeleteNews(ctx context.Context, messageID int64) (bool, error)
}

// ProgressRepo хранит по одной записи прогресса на пользователя и раздел.
type ProgressRepo interface {
	UpsertProgress(ctx context.Context, userID int64, section Section, ord int) error
	GetProgress(ctx context.Context, userID int64) ([]Progress, error)
}

// ContentRepo объединяет все таблицы хранилища.
type ContentRepo interface {
	LessonRepo
	LinkRepo
	NewsRepo
	ProgressRepo
}
