package tdlib

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authServer plays TDLib's side of the sign-in flow.
type authServer struct {
	mu       sync.Mutex
	state    string
	code     string
	password string
}

func (s *authServer) respond(f *fakeTransport, req map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	move := func(next string) {
		s.state = next
		f.reply(req, ok())
		f.push(authUpdate(next))
	}
	switch req["@type"] {
	case "getAuthorizationState":
		f.reply(req, map[string]any{"@type": s.state})
	case "setTdlibParameters":
		move(AuthorizationStateWaitEncryptionKey)
	case "checkDatabaseEncryptionKey":
		move(AuthorizationStateWaitPhoneNumber)
	case "setAuthenticationPhoneNumber":
		if req["phone_number"] == "" || req["phone_number"] == "+0" {
			f.reply(req, tdError(400, "PHONE_NUMBER_INVALID"))
			return
		}
		move(AuthorizationStateWaitCode)
	case "checkAuthenticationCode":
		if req["code"] != s.code {
			f.reply(req, tdError(400, "PHONE_CODE_INVALID"))
			return
		}
		move(AuthorizationStateWaitPassword)
	case "checkAuthenticationPassword":
		if req["password"] != s.password {
			f.reply(req, tdError(400, "PASSWORD_HASH_INVALID"))
			return
		}
		move(AuthorizationStateReady)
	case "close":
		move(AuthorizationStateClosed)
	}
}

type scriptedPrompter struct {
	mu      sync.Mutex
	answers map[PromptKind][]string
	asked   []PromptKind
}

func (p *scriptedPrompter) Prompt(_ context.Context, kind PromptKind) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, kind)
	a := p.answers[kind]
	if len(a) == 0 {
		return "", nil
	}
	p.answers[kind] = a[1:]
	return a[0], nil
}

func TestAuthorizeFullFlow(t *testing.T) {
	srv := &authServer{state: AuthorizationStateWaitTdlibParameters, code: "12345", password: "hunter2"}
	f := newFakeTransport(srv.respond)
	c := newTestClient(t, f)

	prompter := &scriptedPrompter{answers: map[PromptKind][]string{
		PromptCode:     {"00000", "12345"},
		PromptPassword: {"hunter2"},
	}}
	dir := t.TempDir()
	params := Parameters{
		APIID:         94575,
		APIHash:       "a3406de8d171bb422bb6ddf3bbd800e2",
		StateDir:      dir,
		EncryptionKey: "secret",
		PhoneNumber:   "+15550000000",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Authorize(ctx, params, prompter))

	assert.Equal(t, []PromptKind{PromptCode, PromptCode, PromptPassword}, prompter.asked)

	set := f.requests("setTdlibParameters")
	require.Len(t, set, 1)
	assert.Equal(t, filepath.Join(dir, "db"), set[0]["database_directory"])
	assert.Equal(t, filepath.Join(dir, "files"), set[0]["files_directory"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("secret")), set[0]["database_encryption_key"])
	assert.Equal(t, "en", set[0]["system_language_code"])
	assert.Equal(t, false, set[0]["use_secret_chats"])

	phones := f.requests("setAuthenticationPhoneNumber")
	require.Len(t, phones, 1)
	assert.Equal(t, "+15550000000", phones[0]["phone_number"])
}

func TestAuthorizePromptsPhoneAfterRejection(t *testing.T) {
	srv := &authServer{state: AuthorizationStateWaitPhoneNumber, code: "1"}
	f := newFakeTransport(srv.respond)
	c := newTestClient(t, f)

	prompter := &scriptedPrompter{answers: map[PromptKind][]string{
		PromptPhoneNumber: {"+15551112222"},
		PromptCode:        {"1"},
	}}
	srv.password = "p"
	prompter.answers[PromptPassword] = []string{"p"}

	params := Parameters{APIID: 1, APIHash: "h", StateDir: t.TempDir(), PhoneNumber: "+0"}
	require.NoError(t, c.Authorize(context.Background(), params, prompter))
	assert.Equal(t, []PromptKind{PromptPhoneNumber, PromptCode, PromptPassword}, prompter.asked)

	phones := f.requests("setAuthenticationPhoneNumber")
	require.Len(t, phones, 2)
	assert.Equal(t, "+15551112222", phones[1]["phone_number"])
}

func TestAuthorizeStopsOnRepeatedRejectedPhone(t *testing.T) {
	srv := &authServer{state: AuthorizationStateWaitPhoneNumber}
	f := newFakeTransport(srv.respond)
	c := newTestClient(t, f)

	prompter := PrompterFunc(func(context.Context, PromptKind) (string, error) {
		return "+0", nil
	})
	params := Parameters{APIID: 1, APIHash: "h", StateDir: t.TempDir(), PhoneNumber: "+0"}
	err := c.Authorize(context.Background(), params, prompter)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already rejected")
	assert.Contains(t, err.Error(), "PHONE_NUMBER_INVALID")
	assert.Len(t, f.requests("setAuthenticationPhoneNumber"), 1)
}

func TestAuthorizeAlreadyReady(t *testing.T) {
	srv := &authServer{state: AuthorizationStateReady}
	f := newFakeTransport(srv.respond)
	c := newTestClient(t, f)

	prompter := PrompterFunc(func(context.Context, PromptKind) (string, error) {
		t.Fatal("unexpected prompt")
		return "", nil
	})
	require.NoError(t, c.Authorize(context.Background(), Parameters{}, prompter))
	assert.Empty(t, f.requests("setTdlibParameters"))
}

func TestAuthorizeClosed(t *testing.T) {
	srv := &authServer{state: AuthorizationStateClosing}
	f := newFakeTransport(srv.respond)
	c := newTestClient(t, f)

	err := c.Authorize(context.Background(), Parameters{}, PrompterFunc(nil))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAuthorizeTimeoutNamesLastActivity(t *testing.T) {
	// The server accepts the parameters but never moves on.
	f := newFakeTransport(func(f *fakeTransport, req map[string]any) {
		switch req["@type"] {
		case "getAuthorizationState":
			f.reply(req, map[string]any{"@type": AuthorizationStateWaitTdlibParameters})
		case "setTdlibParameters":
			f.reply(req, ok())
		}
	})
	c := newTestClient(t, f, WithAuthorizationLimits(500, 50*time.Millisecond))

	err := c.Authorize(context.Background(), Parameters{}, PrompterFunc(nil))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "setTdlibParameters")
}
