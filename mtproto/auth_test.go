package mtproto

import (
	"context"
	"testing"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanrmurphy/tgdigest/tdlib"
)

func TestPrompterAuth(t *testing.T) {
	var asked []tdlib.PromptKind
	prompter := tdlib.PrompterFunc(func(_ context.Context, kind tdlib.PromptKind) (string, error) {
		asked = append(asked, kind)
		switch kind {
		case tdlib.PromptPhoneNumber:
			return " +15550001111\n", nil
		case tdlib.PromptCode:
			return "12345\n", nil
		default:
			return "secret", nil
		}
	})
	ctx := context.Background()

	a := prompterAuth{prompter: prompter}
	phone, err := a.Phone(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", phone)

	code, err := a.Code(ctx, &tg.AuthSentCode{})
	require.NoError(t, err)
	assert.Equal(t, "12345", code)

	password, err := a.Password(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret", password)
	assert.Equal(t, []tdlib.PromptKind{tdlib.PromptPhoneNumber, tdlib.PromptCode, tdlib.PromptPassword}, asked)

	configured := prompterAuth{phone: "+1999", prompter: prompter}
	phone, err = configured.Phone(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+1999", phone)

	_, err = a.SignUp(ctx)
	assert.Error(t, err)

	var signUp *auth.SignUpRequired
	assert.ErrorAs(t, a.AcceptTermsOfService(ctx, tg.HelpTermsOfService{}), &signUp)
}
