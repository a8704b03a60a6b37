package digest

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

const systemPrompt = `You write digests of posts from Telegram channels.

Rules:
1. Group the posts by channel.
2. For every channel give a short overview (1-2 sentences) and the key topics.
3. Keep the links to the posts, written as Markdown links [text](url).
4. Stay under 3800 characters in total.
5. Use Telegram Markdown only: *bold*, _italic_, ` + "`code`" + `.
6. Be brief and factual.

If there are no posts, answer with an empty string.`

// buildPrompt lists the posts grouped by channel in title order. When a
// budget is given, posts that would exceed it are left out.
func buildPrompt(msgs []SourceMessage, counter tokenCounter, budget int) (prompt string, dropped int) {
	byChannel := make(map[string][]SourceMessage)
	var titles []string
	for _, m := range msgs {
		if _, ok := byChannel[m.ChannelTitle]; !ok {
			titles = append(titles, m.ChannelTitle)
		}
		byChannel[m.ChannelTitle] = append(byChannel[m.ChannelTitle], m)
	}
	sort.Strings(titles)

	var (
		b    strings.Builder
		used int
	)
	for _, title := range titles {
		header := "\n**" + title + ":**\n"
		headerWritten := false
		for _, m := range byChannel[title] {
			line := promptLine(m)
			cost := 0
			if budget > 0 {
				cost = counter.Count(line)
				if !headerWritten {
					cost += counter.Count(header)
				}
				if used+cost > budget {
					dropped++
					continue
				}
			}
			if !headerWritten {
				b.WriteString(header)
				headerWritten = true
			}
			b.WriteString(line)
			used += cost
		}
	}
	return strings.TrimPrefix(b.String(), "\n"), dropped
}

func promptLine(m SourceMessage) string {
	text := strings.Join(strings.Fields(m.Content), " ")
	if m.PageTitle != "" {
		text += " (page: " + m.PageTitle + ")"
	}
	if m.Link != "" {
		return "- [" + text + "](" + m.Link + ")\n"
	}
	return "- " + text + "\n"
}

type tokenCounter interface {
	Count(s string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(s string) int {
	return len(c.enc.Encode(s, nil, nil))
}

// runeCounter estimates four runes per token.
type runeCounter struct{}

func (runeCounter) Count(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

func newTokenCounter(model string, lg *zap.Logger) tokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		lg.Warn("No tiktoken encoding, estimating tokens from runes", zap.String("model", model), zap.Error(err))
		return runeCounter{}
	}
	return tiktokenCounter{enc: enc}
}
