package main

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/pterm/pterm"

	"github.com/seanrmurphy/tgdigest/tdlib"
)

// terminal asks for input with pterm. Passwords, codes and secrets are
// masked. A configured phone number reaches the backends through their own
// parameters, so a rejected number is always asked again here.
type terminal struct {
	// input replaces the interactive pterm prompt when set.
	input func(ctx context.Context, label string, secret bool) (string, error)
}

var _ tdlib.Prompter = terminal{}

func (t terminal) Prompt(ctx context.Context, kind tdlib.PromptKind) (string, error) {
	switch kind {
	case tdlib.PromptPhoneNumber:
		return t.read(ctx, "Enter phone number (+1234567890)", false)
	case tdlib.PromptCode:
		return t.read(ctx, "Enter the code sent to your Telegram app", false)
	case tdlib.PromptPassword:
		return t.read(ctx, "Enter 2FA password", true)
	default:
		return "", errors.Errorf("unexpected prompt %s", kind)
	}
}

func (t terminal) Ask(label string, secret bool) (string, error) {
	return t.read(context.Background(), label, secret)
}

func (t terminal) read(ctx context.Context, label string, secret bool) (string, error) {
	if t.input != nil {
		v, err := t.input(ctx, label, secret)
		return strings.TrimSpace(v), err
	}
	input := pterm.DefaultInteractiveTextInput.WithDefaultText(label)
	if secret {
		input = input.WithMask("*")
	}
	type result struct {
		value string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := input.Show()
		done <- result{value: v, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", errors.Wrap(r.err, "read input")
		}
		return strings.TrimSpace(r.value), nil
	}
}
