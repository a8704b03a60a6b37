package digest

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Record is a delivered digest and the posts it covers.
type Record struct {
	CreatedAt time.Time
	Backend   string
	Summary   string
	Delivered bool
	Messages  []SourceMessage
}

// Store remembers which posts earlier digests covered.
type Store interface {
	FilterSeen(ctx context.Context, msgs []SourceMessage) ([]SourceMessage, error)
	RecordDigest(ctx context.Context, r Record) (int64, error)
}

type RunOptions struct {
	// DryRun summarizes without delivering, recording or marking read.
	DryRun     bool
	MarkAsRead bool
}

type Result struct {
	Fetched   int
	New       int
	Chunks    int
	Digest    string
	DigestID  int64
	Delivered bool
	// MarkAsReadErr collects per-chat failures; they do not fail the run.
	MarkAsReadErr error
}

type Orchestrator struct {
	Source     Source
	Summarizer Summarizer
	Notifier   Notifier
	// Store and Links are optional.
	Store   Store
	Links   *LinkResolver
	Backend string
	Logger  *zap.Logger
	// ChunkLimit defaults to MaxMessageLength.
	ChunkLimit int
}

func (o *Orchestrator) lg() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Generate summarizes msgs; no messages means an empty digest.
func (o *Orchestrator) Generate(ctx context.Context, msgs []SourceMessage) (string, error) {
	lg := o.lg()
	lg.Info("Generating digest", zap.Int("messages", len(msgs)))
	if len(msgs) == 0 {
		return "", nil
	}
	digest, err := o.Summarizer.Summarize(ctx, msgs)
	if err != nil {
		lg.Error("Digest generation failed", zap.Error(err))
		return "", errors.Wrap(err, "summarize")
	}
	lg.Info("Digest generated", zap.Int("length", TextLength(digest)))
	return digest, nil
}

// Run fetches, summarizes, delivers and records one digest.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	lg := o.lg()
	res := &Result{}

	fetched, err := o.Source.FetchUnread(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch unread")
	}
	res.Fetched = len(fetched)

	fresh := fetched
	if o.Store != nil {
		if fresh, err = o.Store.FilterSeen(ctx, fetched); err != nil {
			return nil, errors.Wrap(err, "filter seen")
		}
	}
	res.New = len(fresh)
	lg.Info("Unread messages", zap.Int("fetched", res.Fetched), zap.Int("new", res.New))

	if o.Links != nil && len(fresh) > 0 {
		fresh = o.Links.Enrich(ctx, fresh)
	}

	if res.Digest, err = o.Generate(ctx, fresh); err != nil {
		return nil, err
	}
	if opts.DryRun {
		return res, nil
	}

	if res.Digest != "" {
		limit := o.ChunkLimit
		if limit <= 0 {
			limit = MaxMessageLength
		}
		chunks := SplitMessage(res.Digest, limit)
		for i, chunk := range chunks {
			if err := o.Notifier.Notify(ctx, chunk); err != nil {
				return nil, errors.Wrapf(err, "notify chunk %d/%d", i+1, len(chunks))
			}
			res.Chunks++
		}
		res.Delivered = true

		if o.Store != nil {
			id, err := o.Store.RecordDigest(ctx, Record{
				CreatedAt: time.Now().UTC(),
				Backend:   o.Backend,
				Summary:   res.Digest,
				Delivered: true,
				Messages:  fresh,
			})
			if err != nil {
				return nil, errors.Wrap(err, "record digest")
			}
			res.DigestID = id
		}
	}

	if opts.MarkAsRead && len(fetched) > 0 {
		if err := o.Source.MarkAsRead(ctx, fetched); err != nil {
			lg.Warn("Some chats were not marked as read", zap.Error(err))
			res.MarkAsReadErr = err
		}
	}
	return res, nil
}
