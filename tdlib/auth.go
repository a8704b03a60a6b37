package tdlib

import (
	"context"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// PromptKind names the secret a Prompter is asked for.
type PromptKind int

const (
	PromptPhoneNumber PromptKind = iota
	PromptCode
	PromptPassword
)

func (k PromptKind) String() string {
	switch k {
	case PromptPhoneNumber:
		return "phone number"
	case PromptCode:
		return "code"
	case PromptPassword:
		return "password"
	default:
		return "unknown"
	}
}

// Prompter asks the user for sign-in input.
type Prompter interface {
	Prompt(ctx context.Context, kind PromptKind) (string, error)
}

type PrompterFunc func(ctx context.Context, kind PromptKind) (string, error)

func (f PrompterFunc) Prompt(ctx context.Context, kind PromptKind) (string, error) {
	return f(ctx, kind)
}

// Parameters configure a TDLib instance.
type Parameters struct {
	APIID         int32
	APIHash       string
	StateDir      string
	EncryptionKey string
	// PhoneNumber skips the phone prompt when set.
	PhoneNumber string
	UseTestDC   bool

	SystemLanguageCode string
	DeviceModel        string
	SystemVersion      string
	ApplicationVersion string
}

func (p Parameters) request() *SetTdlibParameters {
	req := &SetTdlibParameters{
		UseTestDC:             p.UseTestDC,
		DatabaseDirectory:     filepath.Join(p.StateDir, "db"),
		FilesDirectory:        filepath.Join(p.StateDir, "files"),
		DatabaseEncryptionKey: encodeKey(p.EncryptionKey),
		UseFileDatabase:       true,
		UseChatInfoDatabase:   true,
		UseMessageDatabase:    true,
		UseSecretChats:        false,
		APIID:                 p.APIID,
		APIHash:               p.APIHash,
		SystemLanguageCode:    p.SystemLanguageCode,
		DeviceModel:           p.DeviceModel,
		SystemVersion:         p.SystemVersion,
		ApplicationVersion:    p.ApplicationVersion,
	}
	if req.SystemLanguageCode == "" {
		req.SystemLanguageCode = "en"
	}
	if req.DeviceModel == "" {
		req.DeviceModel = "tgdigest"
	}
	if req.ApplicationVersion == "" {
		req.ApplicationVersion = "1.0"
	}
	return req
}

// Authorize drives the authorization state machine until the account is
// ready. Rejected phone numbers, codes and passwords are prompted again.
func (c *Client) Authorize(ctx context.Context, p Parameters, prompter Prompter) error {
	ctx, cancel := context.WithTimeout(ctx, c.authTimeout)
	defer cancel()

	lg := c.lg.Named("auth")
	if p.EncryptionKey == "" {
		lg.Warn("No database encryption key, TDLib database is stored unencrypted")
	}

	c.drainAuthStates()
	last := "getAuthorizationState"
	var state AuthorizationState
	if err := c.Send(ctx, &GetAuthorizationState{}, &state); err != nil {
		return errors.Wrap(err, "get authorization state")
	}

	var (
		paramsSent    bool
		phoneRejected bool
		rejected      = map[string]error{}
	)
	for i := 0; i < c.authLimit; i++ {
		lg.Debug("Authorization state", zap.String("state", state.Kind))

		var err error
		switch state.Kind {
		case AuthorizationStateWaitTdlibParameters:
			if !paramsSent {
				paramsSent = true
				last = "setTdlibParameters"
				err = c.Send(ctx, p.request(), nil)
			}
		case AuthorizationStateWaitEncryptionKey:
			last = "checkDatabaseEncryptionKey"
			err = c.Send(ctx, &CheckDatabaseEncryptionKey{EncryptionKey: encodeKey(p.EncryptionKey)}, nil)
		case AuthorizationStateWaitPhoneNumber:
			phone := p.PhoneNumber
			if phone == "" || phoneRejected {
				if phone, err = prompter.Prompt(ctx, PromptPhoneNumber); err != nil {
					return errors.Wrap(err, "prompt phone number")
				}
			}
			// Resending a rejected number only burns requests toward a flood wait.
			if prev, ok := rejected[phone]; ok {
				return errors.Wrapf(prev, "authorization: phone number %q was already rejected", phone)
			}
			last = "setAuthenticationPhoneNumber"
			err = c.Send(ctx, &SetAuthenticationPhoneNumber{PhoneNumber: phone}, nil)
			if err != nil {
				phoneRejected = true
				rejected[phone] = err
			}
		case AuthorizationStateWaitCode:
			code, perr := prompter.Prompt(ctx, PromptCode)
			if perr != nil {
				return errors.Wrap(perr, "prompt code")
			}
			last = "checkAuthenticationCode"
			err = c.Send(ctx, &CheckAuthenticationCode{Code: code}, nil)
		case AuthorizationStateWaitPassword:
			password, perr := prompter.Prompt(ctx, PromptPassword)
			if perr != nil {
				return errors.Wrap(perr, "prompt password")
			}
			last = "checkAuthenticationPassword"
			err = c.Send(ctx, &CheckAuthenticationPassword{Password: password}, nil)
		case AuthorizationStateReady:
			lg.Info("Authorized")
			return nil
		case AuthorizationStateClosing, AuthorizationStateClosed, AuthorizationStateLoggingOut:
			return ErrClosed
		default:
			lg.Warn("Unknown authorization state", zap.String("state", state.Kind))
		}

		if err != nil {
			if tdErr, ok := asError(err); ok && promptState(state.Kind) {
				lg.Warn("Input rejected",
					zap.String("state", state.Kind),
					zap.Int("code", tdErr.Code),
					zap.String("message", tdErr.Message),
				)
				continue
			}
			return errors.Wrapf(err, "authorization: %s", last)
		}

		next, err := c.nextAuthState(ctx, state.Kind)
		if err != nil {
			return errors.Wrapf(err, "authorization: waiting after %s", last)
		}
		state = next
	}
	return errors.Errorf("authorization: gave up after %d states, last activity %s", c.authLimit, last)
}

func promptState(kind string) bool {
	switch kind {
	case AuthorizationStateWaitPhoneNumber, AuthorizationStateWaitCode, AuthorizationStateWaitPassword:
		return true
	}
	return false
}

func (c *Client) drainAuthStates() {
	for {
		select {
		case <-c.authStates:
		default:
			return
		}
	}
}

// nextAuthState waits for a state different from current. Repeats of the
// current state are stale updates.
func (c *Client) nextAuthState(ctx context.Context, current string) (AuthorizationState, error) {
	for {
		select {
		case s := <-c.authStates:
			if s.Kind != current {
				return s, nil
			}
		case <-c.done:
			return AuthorizationState{}, ErrClosed
		case <-ctx.Done():
			return AuthorizationState{}, ctx.Err()
		}
	}
}
