package digest

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// TextLength returns the length of s in UTF-16 code units, the unit
// Telegram uses for message limits.
func TextLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Len(r)
	}
	return n
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	// Invalid UTF-8 is sent as U+FFFD.
	return 1
}

// SplitMessage cuts text into chunks of at most limit UTF-16 code units,
// preferring paragraph breaks, then line breaks, then any rune boundary.
func SplitMessage(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || TextLength(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for TextLength(text) > limit {
		head := prefixUnits(text, limit)
		cut := strings.LastIndex(head, "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(head, "\n")
		}
		if cut <= 0 {
			cut = len(head)
		}
		if cut == 0 {
			// A single rune wider than limit still has to go somewhere.
			_, cut = utf8.DecodeRuneInString(text)
		}
		if chunk := strings.TrimSpace(text[:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text = strings.TrimSpace(text); text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// prefixUnits returns the longest prefix of s with at most n UTF-16 code
// units that does not split a rune.
func prefixUnits(s string, n int) string {
	units := 0
	for pos, r := range s {
		units += utf16Len(r)
		if units > n {
			return s[:pos]
		}
	}
	return s
}
