package telegram

import (
	"strings"
	"unicode/utf16"
)

// MessageLimit — максимальная длина текста сообщения Telegram в единицах UTF-16.
const MessageLimit = 4096

// SplitMessage режет текст на части не длиннее MessageLimit единиц UTF-16.
// Части собираются из целых строк; строка длиннее лимита режется по символам.
func SplitMessage(text string) []string {
	return splitLines(text, MessageLimit)
}

// textLen считает длину так же, как Telegram: символы вне BMP занимают две единицы.
func textLen(runes []rune) int {
	n := 0
	for _, r := range runes {
		if l := len(utf16.Encode([]rune{r})); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

func splitLines(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var (
		parts   []string
		buf     []rune
		bufSize int
	)
	flush := func() {
		if chunk := strings.Trim(string(buf), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		buf = buf[:0]
		bufSize = 0
	}

	for _, line := range strings.Split(trimmed, "\n") {
		runes := []rune(line)
		size := textLen(runes)
		if size > limit {
			flush()
			var piece []rune
			pieceSize := 0
			for _, r := range runes {
				l := textLen([]rune{r})
				if pieceSize+l > limit && len(piece) > 0 {
					parts = append(parts, string(piece))
					piece, pieceSize = nil, 0
				}
				piece = append(piece, r)
				pieceSize += l
			}
			runes, size = piece, pieceSize
		}
		extra := size
		if len(buf) > 0 {
			extra++
		}
		if bufSize+extra > limit {
			flush()
		}
		if len(buf) > 0 {
			buf = append(buf, '\n')
			bufSize++
		}
		buf = append(buf, runes...)
		bufSize += size
	}
	flush()
	return parts
}
