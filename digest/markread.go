package digest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Viewer marks messages as viewed.
type Viewer interface {
	ViewMessages(ctx context.Context, chatID int64, messageIDs []int64, forceRead bool) error
}

// MarkAsReadService marks chats read through viewMessages. Passing the
// highest message id reads everything up to it.
type MarkAsReadService struct {
	v           Viewer
	parallelism int
	timeout     time.Duration
	lg          *zap.Logger
}

func NewMarkAsReadService(v Viewer, parallelism int, timeout time.Duration, lg *zap.Logger) *MarkAsReadService {
	if parallelism <= 0 {
		parallelism = 20
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &MarkAsReadService{v: v, parallelism: parallelism, timeout: timeout, lg: lg.Named("mark_read")}
}

// MarkAsRead returns an entry per chat; a nil error means success.
func (s *MarkAsReadService) MarkAsRead(ctx context.Context, messages map[int64][]int64) map[int64]error {
	results := make(map[int64]error, len(messages))
	if len(messages) == 0 {
		return results
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.parallelism)
	for chatID, ids := range messages {
		chatID, ids := chatID, ids
		if len(ids) == 0 {
			s.lg.Warn("Empty message ids, skipping", zap.Int64("chat_id", chatID))
			results[chatID] = nil
			continue
		}
		g.Go(func() error {
			err := s.markChat(ctx, chatID, ids)
			mu.Lock()
			results[chatID] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		}
	}
	s.lg.Info(fmt.Sprintf("Marked %d/%d chats as read", ok, len(results)))
	return results
}

func (s *MarkAsReadService) markChat(ctx context.Context, chatID int64, ids []int64) error {
	maxID := ids[0]
	for _, id := range ids[1:] {
		if id > maxID {
			maxID = id
		}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.v.ViewMessages(ctx, chatID, []int64{maxID}, true); err != nil {
		s.lg.Error("Failed to mark chat as read", zap.Int64("chat_id", chatID), zap.Error(err))
		return err
	}
	s.lg.Debug("Chat marked as read",
		zap.Int64("chat_id", chatID),
		zap.Int64("max_message_id", maxID),
		zap.Int("messages", len(ids)),
	)
	return nil
}

// Failures folds per-chat results into one error, ordered by chat id.
func Failures(results map[int64]error) error {
	ids := make([]int64, 0, len(results))
	for id, err := range results {
		if err != nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var merr *multierror.Error
	for _, id := range ids {
		merr = multierror.Append(merr, errors.Wrapf(results[id], "chat %d", id))
	}
	return merr.ErrorOrNil()
}
