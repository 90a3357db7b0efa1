package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidSection   = errors.New("раздел должен быть prep или steam")
	ErrInvalidOrd       = errors.New("номер урока должен быть положительным")
	ErrEmptyTitle       = errors.New("название не может быть пустым")
	ErrInvalidMessageID = errors.New("message_id должен быть положительным")
	ErrNotFound         = errors.New("запись не найдена")
	ErrLessonExists     = errors.New("урок с таким номером уже есть в разделе")
)

// Section — раздел с уроками.
type Section string

const (
	SectionPrep  Section = "prep"
	SectionSteam Section = "steam"
)

// Sections перечисляет разделы в порядке показа.
var Sections = []Section{SectionPrep, SectionSteam}

// ParseSection принимает ровно prep или steam, без пробелов и в нижнем регистре.
func ParseSection(raw string) (Section, error) {
	switch s := Section(raw); s {
	case SectionPrep, SectionSteam:
		return s, nil
	default:
		return "", ErrInvalidSection
	}
}

// Title возвращает человекочитаемое название раздела.
func (s Section) Title() string {
	switch s {
	case SectionPrep:
		return "Подготовительный курс"
	case SectionSteam:
		return "Курс STEAM"
	default:
		return string(s)
	}
}

// Lesson — урок, привязанный к посту канала. Пара (Section, Ord) уникальна.
type Lesson struct {
	Section   Section
	Ord       int
	Title     string
	MessageID int64
	CreatedAt time.Time
}

// Validate проверяет слот и поля урока.
func (l Lesson) Validate() error {
	if _, err := ParseSection(string(l.Section)); err != nil {
		return err
	}
	if l.Ord <= 0 {
		return ErrInvalidOrd
	}
	if strings.TrimSpace(l.Title) == "" {
		return ErrEmptyTitle
	}
	if l.MessageID <= 0 {
		return ErrInvalidMessageID
	}
	return nil
}

// Link описывает полезную ссылку. Ord не уникален, при равенстве порядок задаёт ID.
type Link struct {
	ID    int64
	Title string
	URL   string
	Ord   int
}

// NewsItem ссылается на пост канала.
type NewsItem struct {
	ID        int64
	MessageID int64
	CreatedAt time.Time
}

// Progress хранит текущую позицию пользователя в разделе.
type Progress struct {
	UserID    int64
	Section   Section
	Ord       int
	UpdatedAt time.Time
}
