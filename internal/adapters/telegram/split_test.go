package telegram

import (
	"strings"
	"testing"
	"unicode/utf16"
	"unicode/utf8"
)

func TestSplitMessageKeepsLines(t *testing.T) {
	text := strings.Repeat("а", 3000) + "\n\n" + strings.Repeat("б", 2000) + "\n" + strings.Repeat("в", 500)

	parts := SplitMessage(text)
	if len(parts) != 2 {
		t.Fatalf("ожидали 2 части, получили %d", len(parts))
	}
	for i, part := range parts {
		if n := utf8.RuneCountInString(part); n > MessageLimit {
			t.Fatalf("часть %d длиннее лимита: %d", i, n)
		}
	}
	if parts[0] != strings.Repeat("а", 3000) {
		t.Fatal("первая часть должна содержать только первый блок")
	}
	if !strings.HasPrefix(parts[1], "б") || !strings.HasSuffix(parts[1], strings.Repeat("в", 500)) {
		t.Fatal("вторая часть должна содержать оставшиеся строки целиком")
	}
}

func TestSplitMessageLongLine(t *testing.T) {
	parts := splitLines("abcdefghij\nxy", 4)
	want := []string{"abcd", "efgh", "ij", "xy"}
	if strings.Join(parts, ",") != strings.Join(want, ",") {
		t.Fatalf("получили %q, ожидали %q", parts, want)
	}
}

func TestSplitMessageCountsUTF16(t *testing.T) {
	text := strings.Repeat("🚀", 5000)

	parts := SplitMessage(text)
	if len(parts) != 3 {
		t.Fatalf("ожидали 3 части, получили %d", len(parts))
	}
	for i, part := range parts {
		if n := len(utf16.Encode([]rune(part))); n > MessageLimit {
			t.Fatalf("часть %d длиннее лимита: %d единиц UTF-16", i, n)
		}
	}
	if strings.Join(parts, "") != text {
		t.Fatal("склейка частей должна дать исходный текст")
	}
}

func TestSplitMessageEmojiLinesStayWhole(t *testing.T) {
	parts := splitLines("ab🚀\ncd", 4)
	want := []string{"ab🚀", "cd"}
	if strings.Join(parts, ",") != strings.Join(want, ",") {
		t.Fatalf("получили %q, ожидали %q", parts, want)
	}
}

func TestSplitMessageShort(t *testing.T) {
	parts := SplitMessage("  hello\nworld  ")
	if len(parts) != 1 || parts[0] != "hello\nworld" {
		t.Fatalf("неожиданный результат: %q", parts)
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	if parts := SplitMessage("   \n  "); len(parts) != 0 {
		t.Fatalf("ожидали пустой результат, получили %q", parts)
	}
}
