package mtproto

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/message/peer"
	"github.com/gotd/td/tg"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seanrmurphy/tgdigest/digest"
)

// API is the part of *tg.Client used by Source.
type API interface {
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	ChannelsReadHistory(ctx context.Context, request *tg.ChannelsReadHistoryRequest) (bool, error)
}

type SourceConfig struct {
	DialogLimit  int
	HistoryLimit int
	Parallelism  int
	// Allowlist entries are usernames or titles.
	Allowlist       []string
	MarkParallelism int
	MarkTimeout     time.Duration
}

type channelState struct {
	input    *tg.InputChannel
	title    string
	username string
	readMax  int
	unread   int
}

// Source is a digest.Source over MTProto.
type Source struct {
	api API
	cfg SourceConfig
	lg  *zap.Logger
	// Resolver, when set, resolves @usernames of the allowlist to channel
	// ids, so renamed channels still match.
	Resolver peer.Resolver

	mu       sync.Mutex
	channels map[int64]*tg.InputChannel
	mark     *digest.MarkAsReadService
}

var _ digest.Source = (*Source)(nil)

func NewSource(api API, cfg SourceConfig, lg *zap.Logger) *Source {
	if cfg.DialogLimit <= 0 {
		cfg.DialogLimit = 100
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 5
	}
	s := &Source{
		api:      api,
		cfg:      cfg,
		lg:       lg.Named("source"),
		channels: map[int64]*tg.InputChannel{},
	}
	s.mark = digest.NewMarkAsReadService(channelReader{s}, cfg.MarkParallelism, cfg.MarkTimeout, lg)
	return s
}

func (s *Source) FetchUnread(ctx context.Context) ([]digest.SourceMessage, error) {
	channels, err := s.unreadChannels(ctx)
	if err != nil {
		return nil, err
	}
	allowIDs := s.resolveAllowlist(ctx)
	s.lg.Info("Unread channels", zap.Int("channels", len(channels)))

	var (
		mu     sync.Mutex
		out    []digest.SourceMessage
		failed int
		total  int
		merr   *multierror.Error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for _, ch := range channels {
		ch := ch
		if !s.allowed(ch, allowIDs) {
			continue
		}
		total++
		g.Go(func() error {
			msgs, err := s.history(gctx, ch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.lg.Warn("Skip channel", zap.Int64("channel_id", ch.input.ChannelID), zap.String("title", ch.title), zap.Error(err))
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
	if failed > 0 && failed == total {
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
	return out, nil
}

func (s *Source) unreadChannels(ctx context.Context) ([]channelState, error) {
	request := tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      s.cfg.DialogLimit,
	}
	dialogsClass, err := s.api.MessagesGetDialogs(ctx, &request)
	if err != nil {
		return nil, errors.Wrap(err, "get dialogs")
	}
	var (
		dialogs []tg.DialogClass
		chats   []tg.ChatClass
	)
	switch d := dialogsClass.(type) {
	case *tg.MessagesDialogs:
		dialogs, chats = d.Dialogs, d.Chats
	case *tg.MessagesDialogsSlice:
		dialogs, chats = d.Dialogs, d.Chats
	case *tg.MessagesDialogsNotModified:
		s.lg.Debug("Dialogs not modified")
		return nil, nil
	default:
		return nil, errors.Errorf("unexpected dialogs type %T", d)
	}

	broadcast := map[int64]*tg.Channel{}
	for _, c := range chats {
		if ch, ok := c.(*tg.Channel); ok && ch.Broadcast {
			broadcast[ch.ID] = ch
		}
	}

	var out []channelState
	for _, dc := range dialogs {
		d, ok := dc.(*tg.Dialog)
		if !ok || d.UnreadCount == 0 {
			continue
		}
		p, ok := d.Peer.(*tg.PeerChannel)
		if !ok {
			continue
		}
		ch, ok := broadcast[p.ChannelID]
		if !ok {
			continue
		}
		input := ch.AsInput()
		s.mu.Lock()
		s.channels[ch.ID] = input
		s.mu.Unlock()
		out = append(out, channelState{
			input:    input,
			title:    ch.Title,
			username: ch.Username,
			readMax:  d.ReadInboxMaxID,
			unread:   d.UnreadCount,
		})
	}
	return out, nil
}

func (s *Source) resolveAllowlist(ctx context.Context) map[int64]struct{} {
	ids := map[int64]struct{}{}
	if s.Resolver == nil {
		return ids
	}
	for _, entry := range s.cfg.Allowlist {
		if !strings.HasPrefix(entry, "@") {
			continue
		}
		p, err := s.Resolver.ResolveDomain(ctx, strings.TrimPrefix(entry, "@"))
		if err != nil {
			s.lg.Debug("Resolve allowlist entry", zap.String("entry", entry), zap.Error(err))
			continue
		}
		if ch, ok := p.(*tg.InputPeerChannel); ok {
			ids[ch.ChannelID] = struct{}{}
		}
	}
	return ids
}

func (s *Source) allowed(ch channelState, ids map[int64]struct{}) bool {
	if len(s.cfg.Allowlist) == 0 {
		return true
	}
	if _, ok := ids[ch.input.ChannelID]; ok {
		return true
	}
	for _, entry := range s.cfg.Allowlist {
		if ch.username != "" && strings.EqualFold(strings.TrimPrefix(entry, "@"), ch.username) {
			return true
		}
		if entry == ch.title {
			return true
		}
	}
	return false
}

func (s *Source) history(ctx context.Context, ch channelState) ([]digest.SourceMessage, error) {
	res, err := s.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  &tg.InputPeerChannel{ChannelID: ch.input.ChannelID, AccessHash: ch.input.AccessHash},
		Limit: s.cfg.HistoryLimit,
		MinID: ch.readMax,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get history of %q", ch.title)
	}
	var messages []tg.MessageClass
	switch m := res.(type) {
	case *tg.MessagesChannelMessages:
		messages = m.Messages
	case *tg.MessagesMessages:
		messages = m.Messages
	case *tg.MessagesMessagesSlice:
		messages = m.Messages
	default:
		return nil, errors.Errorf("unexpected messages type %T", m)
	}

	chatID := ch.input.ChannelID
	var out []digest.SourceMessage
	for _, mc := range messages {
		m, ok := mc.(*tg.Message)
		if !ok || m.ID <= ch.readMax {
			continue
		}
		text := strings.TrimSpace(m.Message)
		if text == "" {
			continue
		}
		msg := digest.SourceMessage{
			ChatID:       chatID,
			MessageID:    int64(m.ID),
			Content:      text,
			ChannelTitle: ch.title,
			Date:         time.Unix(int64(m.Date), 0).UTC(),
		}
		if ch.username != "" {
			msg.Link = fmt.Sprintf("https://t.me/%s/%d", ch.username, m.ID)
		}
		out = append(out, msg)
	}
	return out, nil
}

// MarkAsRead reads every channel up to the highest fetched message.
func (s *Source) MarkAsRead(ctx context.Context, msgs []digest.SourceMessage) error {
	byChat := map[int64][]int64{}
	for _, m := range msgs {
		byChat[m.ChatID] = append(byChat[m.ChatID], m.MessageID)
	}
	return digest.Failures(s.mark.MarkAsRead(ctx, byChat))
}

// channelReader adapts channels.readHistory to digest.Viewer.
type channelReader struct{ s *Source }

func (r channelReader) ViewMessages(ctx context.Context, chatID int64, ids []int64, _ bool) error {
	r.s.mu.Lock()
	input, ok := r.s.channels[chatID]
	r.s.mu.Unlock()
	if !ok {
		return errors.Errorf("unknown channel %d", chatID)
	}
	var maxID int64
	for _, id := range ids {
		if id > maxID {
			maxID = id
		}
	}
	_, err := r.s.api.ChannelsReadHistory(ctx, &tg.ChannelsReadHistoryRequest{
		Channel: input,
		MaxID:   int(maxID),
	})
	if err != nil {
		return errors.Wrap(err, "read history")
	}
	return nil
}
