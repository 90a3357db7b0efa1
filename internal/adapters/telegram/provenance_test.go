package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"steam-nav-bot/internal/domain"
)

func TestProvenance(t *testing.T) {
	channel := &tgbotapi.Chat{ID: -1001, Type: "channel", UserName: "steam_nav"}
	group := &tgbotapi.Chat{ID: -2002, Type: "supergroup", UserName: "steam_chat"}

	cases := []struct {
		name string
		msg  *tgbotapi.Message
		want domain.Inbound
	}{
		{"nil", nil, domain.PlainMessage{}},
		{"plain text", &tgbotapi.Message{Text: "hello"}, domain.PlainMessage{}},
		{"copy without forward id", &tgbotapi.Message{ForwardFromChat: channel}, domain.PlainMessage{}},
		{"forward from group", &tgbotapi.Message{ForwardFromChat: group, ForwardFromMessageID: 5}, domain.PlainMessage{}},
		{"forward from user", &tgbotapi.Message{ForwardFrom: &tgbotapi.User{ID: 9}, ForwardFromMessageID: 5}, domain.PlainMessage{}},
		{
			"channel forward",
			&tgbotapi.Message{ForwardFromChat: channel, ForwardFromMessageID: 777},
			domain.ChannelForward{ChannelID: -1001, ChannelUsername: "steam_nav", MessageID: 777},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Provenance(tc.msg)); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestHasTag(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Открыт набор! #news", true},
		{"#NEWS: расписание", true},
		{"#News, расписание", true},
		{"#newsletter", false},
		{"без тега", false},
	}
	for _, tc := range cases {
		if got := HasTag(tc.text, "#news"); got != tc.want {
			t.Fatalf("HasTag(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
	if HasTag("#news", "  ") {
		t.Fatal("пустой тег не должен совпадать")
	}
}

func TestFromChannel(t *testing.T) {
	chat := &tgbotapi.Chat{ID: -1001, Type: "channel", UserName: "Steam_Nav"}
	if !FromChannel(chat, "steam_nav", 0) {
		t.Fatal("совпадение по имени без учёта регистра")
	}
	if !FromChannel(chat, "", -1001) {
		t.Fatal("совпадение по id")
	}
	if FromChannel(chat, "other_chan", 0) {
		t.Fatal("чужой канал")
	}
	if FromChannel(&tgbotapi.Chat{ID: -1001, Type: "group"}, "", -1001) {
		t.Fatal("группа не канал")
	}
}

func TestMessageText(t *testing.T) {
	if got := MessageText(&tgbotapi.Message{Caption: "photo #news"}); got != "photo #news" {
		t.Fatalf("ожидали подпись, получили %q", got)
	}
}
