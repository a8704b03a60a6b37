package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seanrmurphy/tgdigest/digest"
	"github.com/seanrmurphy/tgdigest/utils"
)

// app carries what every command needs once the config is loaded.
type app struct {
	cfg   *Config
	paths statePaths
	lg    *zap.Logger
}

func setup() (*app, error) {
	bootstrap := zap.NewNop()
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}
	cfg, err := readConfig(path, terminal{}, bootstrap)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	paths := newStatePaths(cfg.StateDirectory)
	if err := paths.create(); err != nil {
		return nil, err
	}
	lg := createLogger(paths.LogFile)
	lg.Info("Starting", zap.String("backend", cfg.Backend), zap.String("state", paths.Root))
	return &app{cfg: cfg, paths: paths, lg: lg}, nil
}

func (a *app) close() { _ = a.lg.Sync() }

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           ApplicationName,
		Short:         "Summarize unread Telegram channel posts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newLoginCommand(),
		newDigestCommand(),
		newHistoryCommand(),
		newServeCommand(),
		newSecretsCommand(),
	)
	return root
}

func newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.Validate(false); err != nil {
				return err
			}
			return connect(cmd.Context(), a.cfg, a.paths, a.lg, func(ctx context.Context, s *session) error {
				fmt.Println("Current user:", s.Self)
				return nil
			})
		},
	}
}

func newDigestCommand() *cobra.Command {
	var (
		dryRun     bool
		noMarkRead bool
	)
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Summarize unread channel posts and send the digest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.Validate(!dryRun); err != nil {
				return err
			}
			return runDigest(cmd.Context(), a, digest.RunOptions{
				DryRun:     dryRun,
				MarkAsRead: a.cfg.Digest.MarkAsRead && !noMarkRead,
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest instead of sending, storing or marking it")
	cmd.Flags().BoolVar(&noMarkRead, "no-mark-read", false, "leave the fetched posts unread")
	return cmd
}

func runDigest(ctx context.Context, a *app, opts digest.RunOptions) error {
	history, err := openHistory(ctx, a.paths, a.lg)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	orch := &digest.Orchestrator{
		Store:   history,
		Backend: a.cfg.Backend,
		Logger:  a.lg,
	}
	if a.cfg.OpenAI.APIKey != "" {
		orch.Summarizer = digest.NewOpenAISummarizer(digest.OpenAIConfig{
			APIKey:    a.cfg.OpenAI.APIKey,
			Model:     a.cfg.OpenAI.Model,
			BaseURL:   a.cfg.OpenAI.BaseURL,
			MaxTokens: a.cfg.OpenAI.MaxTokens,
		}, a.lg)
	}
	if !opts.DryRun {
		notifier, err := digest.NewBotNotifier(digest.BotConfig{
			Token:  a.cfg.Bot.Token,
			ChatID: a.cfg.Bot.ChatID,
		}, a.lg)
		if err != nil {
			return errors.Wrap(err, "create notifier")
		}
		orch.Notifier = notifier
	}
	if a.cfg.Digest.ResolveLinks {
		orch.Links = digest.NewLinkResolver(nil, 0, a.lg)
	}

	return connect(ctx, a.cfg, a.paths, a.lg, func(ctx context.Context, s *session) error {
		orch.Source = s.Source
		if orch.Summarizer == nil {
			// Dry run without an OpenAI key: show what would be summarized.
			msgs, err := s.Source.FetchUnread(ctx)
			if err != nil {
				return errors.Wrap(err, "fetch unread")
			}
			return utils.PrintMessages(msgs)
		}
		spinner, _ := utils.NewSpinner().Start("Building digest for " + s.Self)
		res, err := orch.Run(ctx, opts)
		if err != nil {
			_ = spinner.Stop()
			return err
		}
		spinner.Success("Done")
		utils.PrintResult(res, opts.DryRun)
		return nil
	})
}

func newHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored digests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			history, err := openHistory(cmd.Context(), a.paths, a.lg)
			if err != nil {
				return err
			}
			defer func() { _ = history.Close() }()
			digests, err := history.ListDigests(cmd.Context(), limit)
			if err != nil {
				return errors.Wrap(err, "list digests")
			}
			return utils.PrintDigests(digests)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of digests to show")
	return cmd
}

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the digest history over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			history, err := openHistory(cmd.Context(), a.paths, a.lg)
			if err != nil {
				return err
			}
			defer func() { _ = history.Close() }()
			return runServer(cmd.Context(), addr, history, a.lg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")
	return cmd
}

func newSecretsCommand() *cobra.Command {
	secrets := &cobra.Command{
		Use:   "secrets",
		Short: "Manage secrets stored in the OS keyring",
	}
	secrets.AddCommand(&cobra.Command{
		Use:       "set <name>",
		Short:     "Store a secret in the OS keyring",
		Args:      cobra.ExactArgs(1),
		ValidArgs: secretNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := terminal{}.read(cmd.Context(), "Value for "+args[0], true)
			if err != nil {
				return err
			}
			if err := setSecret(args[0], value); err != nil {
				return err
			}
			pterm.Success.Println("Stored " + args[0])
			return nil
		},
	})
	return secrets
}

func runServer(ctx context.Context, addr string, history digestHistory, lg *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newApp(history, lg).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	lg.Info("Serving", zap.String("addr", addr))
	pterm.Info.Println("Serving digest history on " + addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen")
	}
	return ctx.Err()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		code := 1
		switch {
		case errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled:
			fmt.Println("\rClosed")
		case errors.Is(err, ErrMissingCredentials):
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			code = 2
		default:
			_, _ = fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		}
		cancel()
		os.Exit(code)
	}
}
