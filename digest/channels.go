package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seanrmurphy/tgdigest/tdlib"
)

// TDLib is the part of *tdlib.Client used by ChannelSource.
type TDLib interface {
	Subscribe() (<-chan tdlib.Update, func())
	LoadChats(ctx context.Context, list tdlib.ChatList, limit int32) error
	GetChatHistory(ctx context.Context, chatID, fromMessageID int64, offset, limit int32, onlyLocal bool) (*tdlib.Messages, error)
	GetSupergroup(ctx context.Context, supergroupID int64) (*tdlib.Supergroup, error)
	Viewer
}

type ChannelSourceConfig struct {
	// LoadBatch is the loadChats limit per call.
	LoadBatch int32
	// MaxBatches bounds the number of loadChats calls.
	MaxBatches int
	PageDelay  time.Duration
	// CollectQuiet is how long no update may arrive before the chat list is
	// considered complete.
	CollectQuiet time.Duration
	HistoryLimit int32
	Parallelism  int
	// Allowlist restricts the digest to these usernames or titles.
	Allowlist []string

	MarkParallelism int
	MarkTimeout     time.Duration
}

func (c *ChannelSourceConfig) setDefaults() {
	if c.LoadBatch <= 0 {
		c.LoadBatch = 100
	}
	if c.MaxBatches <= 0 {
		c.MaxBatches = 50
	}
	if c.PageDelay < 0 {
		c.PageDelay = 0
	}
	if c.CollectQuiet <= 0 {
		c.CollectQuiet = 2 * time.Second
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 100
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 5
	}
}

// ChannelSource is a Source backed by TDLib.
type ChannelSource struct {
	td    TDLib
	cfg   ChannelSourceConfig
	cache *ChannelCache
	mark  *MarkAsReadService
	lg    *zap.Logger
}

func NewChannelSource(td TDLib, cfg ChannelSourceConfig, lg *zap.Logger) *ChannelSource {
	cfg.setDefaults()
	return &ChannelSource{
		td:    td,
		cfg:   cfg,
		cache: NewChannelCache(),
		mark:  NewMarkAsReadService(td, cfg.MarkParallelism, cfg.MarkTimeout, lg),
		lg:    lg.Named("source"),
	}
}

func (s *ChannelSource) Cache() *ChannelCache { return s.cache }

// FetchUnread loads the chat list and returns unread posts of every unread
// channel, sorted by channel title and message id. A channel whose history
// cannot be fetched is skipped; the call fails only if all of them fail.
func (s *ChannelSource) FetchUnread(ctx context.Context) ([]SourceMessage, error) {
	if err := s.loadChannels(ctx); err != nil {
		return nil, err
	}

	channels := s.cache.Unread()
	s.lg.Info("Unread channels", zap.Int("channels", len(channels)), zap.Int("known", s.cache.Len()))
	if len(channels) == 0 {
		return nil, nil
	}

	var (
		mu        sync.Mutex
		out       []SourceMessage
		attempted int
		failed    int
		merr      *multierror.Error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for _, ch := range channels {
		ch := ch
		g.Go(func() error {
			msgs, skip, err := s.fetchChannel(gctx, ch)
			mu.Lock()
			defer mu.Unlock()
			if skip {
				return nil
			}
			attempted++
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.lg.Warn("Skip channel", zap.Int64("chat_id", ch.ChatID), zap.String("title", ch.Title), zap.Error(err))
				failed++
				merr = multierror.Append(merr, err)
				return nil
			}
			out = append(out, msgs...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Channels left out by the allowlist were never attempted.
	if failed > 0 && failed == attempted {
		return nil, errors.Wrap(merr.ErrorOrNil(), "fetch history of every channel failed")
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ChannelTitle != out[j].ChannelTitle {
			return out[i].ChannelTitle < out[j].ChannelTitle
		}
		if out[i].ChatID != out[j].ChatID {
			return out[i].ChatID < out[j].ChatID
		}
		return out[i].MessageID < out[j].MessageID
	})
	s.lg.Info("Fetched unread messages", zap.Int("messages", len(out)), zap.Int("failed_channels", failed))
	return out, nil
}

// loadChannels fills the cache from updates produced by loadChats.
func (s *ChannelSource) loadChannels(ctx context.Context) error {
	updates, cancel := s.td.Subscribe()
	activity := make(chan struct{}, 1)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for u := range updates {
			if s.cache.Apply(u) {
				select {
				case activity <- struct{}{}:
				default:
				}
			}
		}
	}()
	defer func() {
		cancel()
		<-consumed
	}()

	for batch := 0; batch < s.cfg.MaxBatches; batch++ {
		err := s.td.LoadChats(ctx, tdlib.ChatListMain(), s.cfg.LoadBatch)
		if errors.Is(err, tdlib.ErrAllChatsLoaded) {
			s.lg.Debug("All chats loaded", zap.Int("batches", batch+1))
			break
		}
		if err != nil {
			return errors.Wrap(err, "load chats")
		}
		if s.cfg.PageDelay > 0 {
			select {
			case <-time.After(s.cfg.PageDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	quiet := time.NewTimer(s.cfg.CollectQuiet)
	defer quiet.Stop()
	for {
		select {
		case <-activity:
			if !quiet.Stop() {
				<-quiet.C
			}
			quiet.Reset(s.cfg.CollectQuiet)
		case <-quiet.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *ChannelSource) fetchChannel(ctx context.Context, ch ChannelInfo) ([]SourceMessage, bool, error) {
	if ch.Username == "" && ch.SupergroupID != 0 {
		sg, err := s.td.GetSupergroup(ctx, ch.SupergroupID)
		if err != nil {
			s.lg.Debug("No supergroup info", zap.Int64("chat_id", ch.ChatID), zap.Error(err))
		} else if name := sg.Usernames.Primary(); name != "" {
			ch.Username = name
			s.cache.SetUsername(ch.ChatID, name)
		}
	}
	if !s.allowed(ch) {
		return nil, true, nil
	}

	history, err := s.td.GetChatHistory(ctx, ch.ChatID, 0, 0, s.cfg.HistoryLimit, false)
	if err != nil {
		return nil, false, err
	}
	var out []SourceMessage
	for _, m := range history.Messages {
		if m.ID <= ch.LastReadInboxMessageID {
			continue
		}
		text := strings.TrimSpace(m.Content.PlainText())
		if text == "" {
			continue
		}
		out = append(out, SourceMessage{
			ChatID:       ch.ChatID,
			MessageID:    m.ID,
			Content:      text,
			ChannelTitle: ch.Title,
			Link:         messageLink(ch.Username, m.ServerID()),
			Date:         time.Unix(int64(m.Date), 0).UTC(),
		})
	}
	return out, false, nil
}

func (s *ChannelSource) allowed(ch ChannelInfo) bool {
	if len(s.cfg.Allowlist) == 0 {
		return true
	}
	for _, entry := range s.cfg.Allowlist {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if ch.Username != "" && strings.EqualFold(strings.TrimPrefix(entry, "@"), ch.Username) {
			return true
		}
		if entry == ch.Title {
			return true
		}
	}
	return false
}

func messageLink(username string, id int64) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", username, id)
}

// MarkAsRead marks every chat up to the highest id of msgs as read.
func (s *ChannelSource) MarkAsRead(ctx context.Context, msgs []SourceMessage) error {
	return Failures(s.mark.MarkAsRead(ctx, groupByChat(msgs)))
}
