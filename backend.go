package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/seanrmurphy/tgdigest/digest"
	"github.com/seanrmurphy/tgdigest/mtproto"
	"github.com/seanrmurphy/tgdigest/tdjson"
	"github.com/seanrmurphy/tgdigest/tdlib"
)

// session is a signed-in account ready to serve digests.
type session struct {
	Source digest.Source
	// Self describes the signed-in user.
	Self string
}

func displayName(first, username string, id int64) string {
	if username != "" {
		return fmt.Sprintf("%s (@%s), %v", first, username, id)
	}
	return fmt.Sprintf("%s, %v", first, id)
}

// connect signs in with the configured backend and calls fn with the
// session. The backend is shut down when fn returns.
func connect(ctx context.Context, cfg *Config, paths statePaths, lg *zap.Logger, fn func(ctx context.Context, s *session) error) error {
	prompter := terminal{}
	switch cfg.Backend {
	case BackendMTProto:
		return connectMTProto(ctx, cfg, paths, prompter, lg, fn)
	default:
		return connectTDLib(ctx, cfg, paths, prompter, lg, fn)
	}
}

func connectTDLib(ctx context.Context, cfg *Config, paths statePaths, prompter tdlib.Prompter, lg *zap.Logger, fn func(ctx context.Context, s *session) error) error {
	if !tdjson.Available() {
		return errors.Wrap(tdjson.ErrUnavailable, "tdlib backend (set backend = \"mtproto\" to use the pure Go client)")
	}
	tdjson.SetLogFatalErrorCallback(func(message string) {
		lg.Error("TDLib fatal error", zap.String("message", message))
	})
	if err := tdlib.ConfigureLogging(
		tdlib.ExecutorFunc(tdjson.Execute),
		tdlib.LogVerbosity(cfg.TDLib.LogVerbosity),
		paths.TDLibLog,
		tdlib.DefaultLogMaxFileSize,
	); err != nil {
		return errors.Wrap(err, "configure tdlib logging")
	}

	transport, err := tdjson.NewClient()
	if err != nil {
		return errors.Wrap(err, "create tdjson client")
	}
	client := tdlib.NewClient(transport, lg)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			lg.Warn("Close tdlib", zap.Error(err))
		}
	}()

	params := tdlib.Parameters{
		APIID:         cfg.Telegram.APIID,
		APIHash:       cfg.Telegram.APIHash,
		StateDir:      paths.TDLibDir,
		EncryptionKey: cfg.TDLib.EncryptionKey,
		PhoneNumber:   cfg.Telegram.PhoneNumber,
		UseTestDC:     cfg.Telegram.UseTestDC,
	}
	if err := client.Authorize(ctx, params, prompter); err != nil {
		return errors.Wrap(err, "authorize")
	}
	me, err := client.GetMe(ctx)
	if err != nil {
		return errors.Wrap(err, "get me")
	}
	lg.Info("Login",
		zap.String("first_name", me.FirstName),
		zap.String("username", me.Username()),
		zap.Int64("id", me.ID),
	)

	src := digest.NewChannelSource(client, digest.ChannelSourceConfig{
		Allowlist: cfg.Digest.Channels,
	}, lg)
	return fn(ctx, &session{
		Source: src,
		Self:   displayName(me.FirstName, me.Username(), me.ID),
	})
}

func connectMTProto(ctx context.Context, cfg *Config, paths statePaths, prompter tdlib.Prompter, lg *zap.Logger, fn func(ctx context.Context, s *session) error) error {
	client, err := mtproto.New(mtproto.Config{
		AppID:           int(cfg.Telegram.APIID),
		AppHash:         cfg.Telegram.APIHash,
		Phone:           cfg.Telegram.PhoneNumber,
		StateDir:        paths.Root,
		FillPeerStorage: cfg.Telegram.FillPeerStorage,
		UseTestDC:       cfg.Telegram.UseTestDC,
	}, prompter, lg)
	if err != nil {
		return errors.Wrap(err, "create client")
	}
	return client.Run(ctx, func(ctx context.Context, s *mtproto.Session) error {
		src := mtproto.NewSource(s.API, mtproto.SourceConfig{
			Allowlist: cfg.Digest.Channels,
		}, lg)
		src.Resolver = s.Resolver
		return fn(ctx, &session{
			Source: src,
			Self:   displayName(s.Self.FirstName, s.Self.Username, s.Self.ID),
		})
	})
}
