package digest

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MaxMessageLength is the Bot API limit for a text message, in UTF-16 code
// units.
const MaxMessageLength = 4096

type BotConfig struct {
	Token  string
	ChatID int64
	// ServerURL overrides https://api.telegram.org.
	ServerURL string
	ParseMode models.ParseMode
	Retry     Policy
}

// BotNotifier delivers text through the Telegram Bot API.
type BotNotifier struct {
	bot *bot.Bot
	cfg BotConfig
	lg  *zap.Logger
}

func NewBotNotifier(cfg BotConfig, lg *zap.Logger) (*BotNotifier, error) {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultPolicy()
	}
	opts := []bot.Option{bot.WithSkipGetMe()}
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(strings.TrimRight(cfg.ServerURL, "/")))
	}
	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create bot")
	}
	return &BotNotifier{bot: b, cfg: cfg, lg: lg.Named("bot")}, nil
}

// Notify sends text as one message. Text over MaxMessageLength fails with
// ErrMessageTooLong before any request is made.
func (n *BotNotifier) Notify(ctx context.Context, text string) error {
	length := TextLength(text)
	if length > MaxMessageLength {
		return errors.Wrapf(ErrMessageTooLong, "%d > %d UTF-16 code units", length, MaxMessageLength)
	}
	n.lg.Info("Sending message", zap.Int64("chat_id", n.cfg.ChatID), zap.Int("length", length))

	parseMode := n.cfg.ParseMode
	return Retry(ctx, n.lg, n.cfg.Retry, retryableBotError, func(ctx context.Context) error {
		msg, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    n.cfg.ChatID,
			Text:      text,
			ParseMode: parseMode,
		})
		if err != nil && parseMode != "" && isEntityParseError(err) {
			// Model output is not always valid markup.
			n.lg.Warn("Markup rejected, sending plain text", zap.Error(err))
			parseMode = ""
			msg, err = n.bot.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: n.cfg.ChatID,
				Text:   text,
			})
		}
		if err != nil {
			return err
		}
		n.lg.Info("Message sent", zap.Int("message_id", msg.ID))
		return nil
	})
}

// retryableBotError rejects errors a retry cannot fix. Rate limits, server
// errors and transport failures are retried.
func retryableBotError(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, bot.ErrorBadRequest),
		errors.Is(err, bot.ErrorUnauthorized),
		errors.Is(err, bot.ErrorForbidden),
		errors.Is(err, bot.ErrorNotFound),
		errors.Is(err, bot.ErrorConflict):
		return false
	}
	return true
}

func isEntityParseError(err error) bool {
	return errors.Is(err, bot.ErrorBadRequest) && strings.Contains(err.Error(), "can't parse entities")
}
