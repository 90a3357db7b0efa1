package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"steam-nav-bot/internal/domain"
)

// Provenance определяет, является ли сообщение пересылкой поста канала.
// Копии, пересылки от пользователей и из групп считаются обычными сообщениями.
func Provenance(msg *tgbotapi.Message) domain.Inbound {
	if msg == nil || msg.ForwardFromChat == nil || msg.ForwardFromMessageID <= 0 {
		return domain.PlainMessage{}
	}
	if msg.ForwardFromChat.Type != "channel" {
		return domain.PlainMessage{}
	}
	return domain.ChannelForward{
		ChannelID:       msg.ForwardFromChat.ID,
		ChannelUsername: msg.ForwardFromChat.UserName,
		MessageID:       int64(msg.ForwardFromMessageID),
	}
}

// MessageText возвращает текст или подпись к медиа.
func MessageText(msg *tgbotapi.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// HasTag ищет тег в тексте без учёта регистра. Тег должен стоять отдельным словом.
func HasTag(text, tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return false
	}
	for _, word := range strings.FieldsFunc(strings.ToLower(text), isTagSeparator) {
		if word == tag {
			return true
		}
	}
	return false
}

func isTagSeparator(r rune) bool {
	switch r {
	case ' ', '\n', '\t', '\r', ',', '.', ':', ';', '!', '?', '(', ')':
		return true
	}
	return false
}

// FromChannel проверяет, что пост опубликован в указанном канале.
func FromChannel(chat *tgbotapi.Chat, username string, id int64) bool {
	if chat == nil || chat.Type != "channel" {
		return false
	}
	if id != 0 && chat.ID == id {
		return true
	}
	return username != "" && strings.EqualFold(chat.UserName, username)
}
