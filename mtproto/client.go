// Package mtproto is the pure-Go backend built on gotd/td.
package mtproto

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	boltstor "github.com/gotd/contrib/bbolt"
	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/contrib/pebble"
	"github.com/gotd/contrib/storage"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/telegram/message/peer"
	"github.com/gotd/td/telegram/query"
	"github.com/gotd/td/telegram/updates"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/seanrmurphy/tgdigest/tdlib"
)

type Config struct {
	AppID   int
	AppHash string
	Phone   string
	// StateDir holds the session directories.
	StateDir        string
	FillPeerStorage bool
	UseTestDC       bool
}

// Handlers is a wrapper around the update and flood-wait plumbing of a
// client.
type Handlers struct {
	Dispatcher      tg.UpdateDispatcher
	Waiter          *floodwait.Waiter
	UpdatesRecovery *updates.Manager
}

// Session is what a Run callback gets once the user is signed in.
type Session struct {
	API      *tg.Client
	Self     *tg.User
	Resolver peer.Resolver
}

type Client struct {
	cfg      Config
	lg       *zap.Logger
	prompter tdlib.Prompter

	storage  *Storage
	peerDB   *pebble.PeerStorage
	client   *telegram.Client
	handlers *Handlers
}

// New opens the session storage and creates a client; nothing connects
// until Run.
func New(cfg Config, prompter tdlib.Prompter, lg *zap.Logger) (*Client, error) {
	s, err := OpenStorage(cfg.StateDir, cfg.Phone)
	if err != nil {
		return nil, errors.Wrap(err, "initialize storage")
	}
	lg = lg.Named("mtproto")
	lg.Info("Storage", zap.String("path", s.SessionDir))

	c := &Client{
		cfg:      cfg,
		lg:       lg,
		prompter: prompter,
		storage:  s,
		peerDB:   pebble.NewPeerStorage(s.DB),
	}
	c.client, c.handlers = c.createClient()
	return c, nil
}

func (c *Client) createClient() (*telegram.Client, *Handlers) {
	handlers := &Handlers{}
	// Dispatcher is used to register handlers for events.
	handlers.Dispatcher = tg.NewUpdateDispatcher()
	// Setting up update handler that will fill peer storage before
	// calling dispatcher handlers.
	updateHandler := storage.UpdateHook(handlers.Dispatcher, c.peerDB)

	handlers.UpdatesRecovery = updates.New(updates.Config{
		Handler: updateHandler,
		Logger:  c.lg.Named("updates.recovery"),
		Storage: boltstor.NewStateStorage(c.storage.Bolt),
	})

	// Handler of FLOOD_WAIT that will automatically retry request.
	handlers.Waiter = floodwait.NewWaiter().WithCallback(func(ctx context.Context, wait floodwait.FloodWait) {
		c.lg.Warn("Flood wait", zap.Duration("wait", wait.Duration))
	})

	dcList := dcs.Prod()
	if c.cfg.UseTestDC {
		dcList = dcs.Test()
	}
	options := telegram.Options{
		Logger:         c.lg,
		SessionStorage: c.storage.SessionStorage,
		UpdateHandler:  handlers.UpdatesRecovery,
		Middlewares: []telegram.Middleware{
			handlers.Waiter,
			// General rate limit, to less likely get flood wait errors.
			ratelimit.New(rate.Every(time.Millisecond*100), 5),
		},
		DCList: dcList,
	}
	return telegram.NewClient(c.cfg.AppID, c.cfg.AppHash, options), handlers
}

// Run connects, signs in if there is no valid session and calls fn while
// the update manager keeps peer and update state current.
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	defer func() {
		if err := c.storage.Close(); err != nil {
			c.lg.Warn("Close storage", zap.Error(err))
		}
	}()

	flow := auth.NewFlow(prompterAuth{phone: c.cfg.Phone, prompter: c.prompter}, auth.SendCodeOptions{})

	return c.handlers.Waiter.Run(ctx, func(ctx context.Context) error {
		if err := c.client.Run(ctx, func(ctx context.Context) error {
			if err := c.client.Auth().IfNecessary(ctx, flow); err != nil {
				return errors.Wrap(err, "auth")
			}
			self, err := c.client.Self(ctx)
			if err != nil {
				return errors.Wrap(err, "call self")
			}
			c.lg.Info("Login",
				zap.String("first_name", self.FirstName),
				zap.String("last_name", self.LastName),
				zap.String("username", self.Username),
				zap.Int64("id", self.ID),
			)

			api := c.client.API()
			if c.cfg.FillPeerStorage {
				c.lg.Info("Filling peer storage from dialogs")
				collector := storage.CollectPeers(c.peerDB)
				if err := collector.Dialogs(ctx, query.GetDialogs(api).Iter()); err != nil {
					return errors.Wrap(err, "collect peers")
				}
			}

			sess := &Session{
				API:      api,
				Self:     self,
				Resolver: storage.NewResolverCache(peer.Plain(api), c.peerDB),
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error {
				err := c.handlers.UpdatesRecovery.Run(gctx, api, self.ID, updates.AuthOptions{
					IsBot: self.Bot,
					OnStart: func(ctx context.Context) {
						c.lg.Debug("Update recovery started")
					},
				})
				if err == nil || (errors.Is(err, context.Canceled) && runCtx.Err() != nil) {
					return nil
				}
				return errors.Wrap(err, "updates")
			})
			g.Go(func() error {
				defer cancel()
				return fn(gctx, sess)
			})
			return g.Wait()
		}); err != nil {
			return errors.Wrap(err, "run")
		}
		return nil
	})
}
