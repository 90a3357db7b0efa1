package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"steam-nav-bot/internal/domain"
	"steam-nav-bot/internal/infra/metrics"
)

const timestampLayout = "2006-01-02 15:04:05"

// SQLite реализует domain.ContentRepo поверх встроенной БД.
type SQLite struct {
	db *sql.DB
}

var _ domain.ContentRepo = (*SQLite)(nil)

// NewSQLite создаёт адаптер БД.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func (s *SQLite) exec(ctx context.Context, op, table, query string, args ...any) (sql.Result, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	start := time.Now()
	res, err := s.db.ExecContext(ctx, query, args...)
	metrics.ObserveNetworkRequest("sqlite", op, table, start, err)
	return res, err
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func parseTimestamp(raw string) time.Time {
	t, err := time.ParseInLocation(timestampLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// UpsertLesson реализует domain.LessonRepo.
func (s *SQLite) UpsertLesson(ctx context.Context, lesson domain.Lesson) error {
	_, err := s.exec(ctx, "lesson_upsert", "lessons", `
INSERT INTO lessons (section, ord, title, message_id)
VALUES (?, ?, ?, ?)
ON CONFLICT (section, ord) DO UPDATE SET title = excluded.title, message_id = excluded.message_id, created_at = datetime('now')
`, string(lesson.Section), lesson.Ord, lesson.Title, lesson.MessageID)
	if err != nil {
		return fmt.Errorf("upsert lesson: %w", err)
	}
	metrics.IncContentWrite("lesson", "upsert")
	return nil
}

// InsertLesson реализует domain.LessonRepo.
func (s *SQLite) InsertLesson(ctx context.Context, lesson domain.Lesson) error {
	_, err := s.exec(ctx, "lesson_insert", "lessons", `
INSERT INTO lessons (section, ord, title, message_id) VALUES (?, ?, ?, ?)
`, string(lesson.Section), lesson.Ord, lesson.Title, lesson.MessageID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrLessonExists
		}
		return fmt.Errorf("insert lesson: %w", err)
	}
	metrics.IncContentWrite("lesson", "insert")
	return nil
}

// DeleteLesson реализует domain.LessonRepo.
func (s *SQLite) DeleteLesson(ctx context.Context, section domain.Section, ord int) (bool, error) {
	res, err := s.exec(ctx, "lesson_delete", "lessons", `DELETE FROM lessons WHERE section = ? AND ord = ?`, string(section), ord)
	if err != nil {
		return false, fmt.Errorf("delete lesson: %w", err)
	}
	return affected(res, "lesson")
}

// GetLesson реализует domain.LessonRepo.
func (s *SQLite) GetLesson(ctx context.Context, section domain.Section, ord int) (domain.Lesson, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	var (
		lesson  domain.Lesson
		created string
	)
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `
SELECT section, ord, title, message_id, created_at FROM lessons WHERE section = ? AND ord = ?
`, string(section), ord).Scan(&lesson.Section, &lesson.Ord, &lesson.Title, &lesson.MessageID, &created)
	metrics.ObserveNetworkRequest("sqlite", "lesson_get", "lessons", start, ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Lesson{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("get lesson: %w", err)
	}
	lesson.CreatedAt = parseTimestamp(created)
	return lesson, nil
}

// ListLessons реализует domain.LessonRepo.
func (s *SQLite) ListLessons(ctx context.Context, section domain.Section) ([]domain.Lesson, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
SELECT section, ord, title, message_id, created_at FROM lessons WHERE section = ? ORDER BY ord ASC
`, string(section))
	metrics.ObserveNetworkRequest("sqlite", "lesson_list", "lessons", start, err)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()
	lessons := make([]domain.Lesson, 0)
	for rows.Next() {
		var (
			lesson  domain.Lesson
			created string
		)
		if err := rows.Scan(&lesson.Section, &lesson.Ord, &lesson.Title, &lesson.MessageID, &created); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lesson.CreatedAt = parseTimestamp(created)
		lessons = append(lessons, lesson)
	}
	return lessons, rows.Err()
}

// InsertLink реализует domain.LinkRepo.
func (s *SQLite) InsertLink(ctx context.Context, link domain.Link) (domain.Link, error) {
	res, err := s.exec(ctx, "link_insert", "links", `INSERT INTO links (title, url, ord) VALUES (?, ?, ?)`, link.Title, link.URL, link.Ord)
	if err != nil {
		return domain.Link{}, fmt.Errorf("insert link: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Link{}, fmt.Errorf("link id: %w", err)
	}
	link.ID = id
	metrics.IncContentWrite("link", "insert")
	return link, nil
}

// ListLinks реализует domain.LinkRepo.
func (s *SQLite) ListLinks(ctx context.Context) ([]domain.Link, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, url, ord FROM links ORDER BY ord ASC, id ASC`)
	metrics.ObserveNetworkRequest("sqlite", "link_list", "links", start, err)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()
	links := make([]domain.Link, 0)
	for rows.Next() {
		var link domain.Link
		if err := rows.Scan(&link.ID, &link.Title, &link.URL, &link.Ord); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// DeleteLink реализует domain.LinkRepo.
func (s *SQLite) DeleteLink(ctx context.Context, id int64) (bool, error) {
	res, err := s.exec(ctx, "link_delete", "links", `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete link: %w", err)
	}
	return affected(res, "link")
}

// InsertNewsIfAbsent реализует domain.NewsRepo.
func (s *SQLite) InsertNewsIfAbsent(ctx context.Context, messageID int64) (bool, error) {
	res, err := s.exec(ctx, "news_insert", "news", `INSERT INTO news (message_id) VALUES (?) ON CONFLICT (message_id) DO NOTHING`, messageID)
	if err != nil {
		return false, fmt.Errorf("insert news: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("news rows: %w", err)
	}
	if n > 0 {
		metrics.IncContentWrite("news", "insert")
	}
	return n > 0, nil
}

// ListNews реализует domain.NewsRepo. Свежие новости идут первыми.
func (s *SQLite) ListNews(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
SELECT id, message_id, created_at FROM news ORDER BY created_at DESC, id DESC LIMIT ?
`, limit)
	metrics.ObserveNetworkRequest("sqlite", "news_list", "news", start, err)
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	defer rows.Close()
	items := make([]domain.NewsItem, 0)
	for rows.Next() {
		var (
			item    domain.NewsItem
			created string
		)
		if err := rows.Scan(&item.ID, &item.MessageID, &created); err != nil {
			return nil, fmt.Errorf("scan news: %w", err)
		}
		item.CreatedAt = parseTimestamp(created)
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteNews реализует domain.NewsRepo.
func (s *SQLite) DeleteNews(ctx context.Context, messageID int64) (bool, error) {
	res, err := s.exec(ctx, "news_delete", "news", `DELETE FROM news WHERE message_id = ?`, messageID)
	if err != nil {
		return false, fmt.Errorf("delete news: %w", err)
	}
	return affected(res, "news")
}

// UpsertProgress реализует domain.ProgressRepo.
func (s *SQLite) UpsertProgress(ctx context.Context, userID int64, section domain.Section, ord int) error {
	_, err := s.exec(ctx, "progress_upsert", "progress", `
INSERT INTO progress (user_id, section, ord) VALUES (?, ?, ?)
ON CONFLICT (user_id, section) DO UPDATE SET ord = excluded.ord, updated_at = datetime('now')
`, userID, string(section), ord)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	metrics.IncContentWrite("progress", "upsert")
	return nil
}

// GetProgress реализует domain.ProgressRepo.
func (s *SQLite) GetProgress(ctx context.Context, userID int64) ([]domain.Progress, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, section, ord, updated_at FROM progress WHERE user_id = ? ORDER BY section ASC
`, userID)
	metrics.ObserveNetworkRequest("sqlite", "progress_get", "progress", start, err)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	defer rows.Close()
	items := make([]domain.Progress, 0)
	for rows.Next() {
		var (
			p       domain.Progress
			updated string
		)
		if err := rows.Scan(&p.UserID, &p.Section, &p.Ord, &updated); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		p.UpdatedAt = parseTimestamp(updated)
		items = append(items, p)
	}
	return items, rows.Err()
}

func affected(res sql.Result, entity string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		metrics.IncContentWrite(entity, "delete")
	}
	return n > 0, nil
}

func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
