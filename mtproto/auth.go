package mtproto

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/seanrmurphy/tgdigest/tdlib"
)

// prompterAuth asks the shared tdlib.Prompter for sign-in input. Sign up is
// not supported.
type prompterAuth struct {
	phone    string
	prompter tdlib.Prompter
}

var _ auth.UserAuthenticator = prompterAuth{}

func (a prompterAuth) Phone(ctx context.Context) (string, error) {
	if a.phone != "" {
		return a.phone, nil
	}
	phone, err := a.prompter.Prompt(ctx, tdlib.PromptPhoneNumber)
	return strings.TrimSpace(phone), err
}

func (a prompterAuth) Password(ctx context.Context) (string, error) {
	return a.prompter.Prompt(ctx, tdlib.PromptPassword)
}

func (a prompterAuth) Code(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
	code, err := a.prompter.Prompt(ctx, tdlib.PromptCode)
	return strings.TrimSpace(code), err
}

func (a prompterAuth) SignUp(context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up is not supported")
}

func (a prompterAuth) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}
