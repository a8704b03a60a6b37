package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanrmurphy/tgdigest/digest"
	"github.com/seanrmurphy/tgdigest/store"
)

func TestDigestRows(t *testing.T) {
	rows := DigestRows([]store.Digest{{
		ID:        7,
		CreatedAt: time.Now(),
		Backend:   "tdlib",
		Channels:  2,
		Messages:  5,
		Summary:   "first line\nsecond line",
		Delivered: true,
	}})
	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, []string{"7", "now", "tdlib", "2", "5", "yes", "first line second line"}, rows[1])
}

func TestMessageRowsPreview(t *testing.T) {
	long := strings.Repeat("ж", 100)
	rows := MessageRows([]digest.SourceMessage{{ChannelTitle: "News", MessageID: 3, Content: long, Date: time.Now()}})
	require.Len(t, rows, 2)
	cell := []rune(rows[1][3])
	assert.Len(t, cell, previewLength)
	assert.Equal(t, '…', cell[len(cell)-1])
}
