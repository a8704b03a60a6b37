package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanrmurphy/tgdigest/tdlib"
)

func TestTerminalAsksPhoneEveryTime(t *testing.T) {
	answers := []string{" +100 ", "+200"}
	var labels []string
	term := terminal{input: func(_ context.Context, label string, secret bool) (string, error) {
		assert.False(t, secret)
		labels = append(labels, label)
		v := answers[0]
		answers = answers[1:]
		return v, nil
	}}

	first, err := term.Prompt(context.Background(), tdlib.PromptPhoneNumber)
	require.NoError(t, err)
	second, err := term.Prompt(context.Background(), tdlib.PromptPhoneNumber)
	require.NoError(t, err)

	assert.Equal(t, "+100", first)
	assert.Equal(t, "+200", second)
	assert.Len(t, labels, 2)
}

func TestTerminalMasksPassword(t *testing.T) {
	var masked bool
	term := terminal{input: func(_ context.Context, _ string, secret bool) (string, error) {
		masked = secret
		return "hunter2", nil
	}}
	v, err := term.Prompt(context.Background(), tdlib.PromptPassword)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)
	assert.True(t, masked)

	_, err = term.Prompt(context.Background(), tdlib.PromptKind(99))
	require.Error(t, err)
}
