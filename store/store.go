// Package store keeps the digest history in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/go-faster/errors"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/seanrmurphy/tgdigest/dbqueries"
	"github.com/seanrmurphy/tgdigest/digest"
)

//go:embed sql/schema.sql
var ddl string

// Filename is the database file name inside the state directory.
const Filename = "sqlite.db"

var (
	// ErrRowExists is returned when trying to create a record for a row which already exists
	ErrRowExists = errors.New("row exists")
	ErrNotFound  = errors.New("not found")
)

// Digest is a stored digest.
type Digest struct {
	ID        int64
	CreatedAt time.Time
	Backend   string
	Channels  int
	Messages  int
	Summary   string
	Delivered bool
}

type Message struct {
	ChatID    int64
	MessageID int64
	Channel   string
	Link      string
}

// History implements digest.Store.
type History struct {
	db *sql.DB
	lg *zap.Logger
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string, lg *zap.Logger) (*History, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// create tables
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create tables")
	}
	return &History{db: db, lg: lg.Named("store")}, nil
}

func (h *History) Close() error { return h.db.Close() }

// FilterSeen drops messages that an earlier digest covered.
func (h *History) FilterSeen(ctx context.Context, msgs []digest.SourceMessage) ([]digest.SourceMessage, error) {
	queries := dbqueries.New(h.db)
	out := make([]digest.SourceMessage, 0, len(msgs))
	for _, m := range msgs {
		_, err := queries.GetDigestMessage(ctx, dbqueries.GetDigestMessageParams{ChatID: m.ChatID, MessageID: m.MessageID})
		if errors.Is(err, sql.ErrNoRows) {
			out = append(out, m)
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "get digest message")
		}
	}
	if skipped := len(msgs) - len(out); skipped > 0 {
		h.lg.Info("Skipping messages from earlier digests", zap.Int("skipped", skipped))
	}
	return out, nil
}

// RecordDigest stores r and its messages in one transaction.
func (h *History) RecordDigest(ctx context.Context, r digest.Record) (id int64, err error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	queries := dbqueries.New(h.db).WithTx(tx)

	channels := map[int64]struct{}{}
	for _, m := range r.Messages {
		channels[m.ChatID] = struct{}{}
	}
	delivered := int64(0)
	if r.Delivered {
		delivered = 1
	}
	row, err := queries.InsertDigest(ctx, dbqueries.InsertDigestParams{
		CreatedAt: r.CreatedAt.Unix(),
		Backend:   r.Backend,
		Channels:  int64(len(channels)),
		Messages:  int64(len(r.Messages)),
		Summary:   r.Summary,
		Delivered: delivered,
	})
	if err != nil {
		return 0, errors.Wrap(err, "insert digest")
	}

	stored := 0
	for _, m := range r.Messages {
		err := storeMessage(ctx, queries, row.ID, m)
		if err != nil && !errors.Is(err, ErrRowExists) {
			return 0, err
		}
		if err == nil {
			stored++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	h.lg.Info("Digest recorded", zap.Int64("id", row.ID), zap.Int("messages", stored))
	return row.ID, nil
}

func storeMessage(ctx context.Context, queries *dbqueries.Queries, digestID int64, m digest.SourceMessage) error {
	_, err := queries.GetDigestMessage(ctx, dbqueries.GetDigestMessageParams{ChatID: m.ChatID, MessageID: m.MessageID})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "get digest message")
	}
	if err == nil {
		return ErrRowExists
	}
	err = queries.InsertDigestMessage(ctx, dbqueries.InsertDigestMessageParams{
		ChatID:    m.ChatID,
		MessageID: m.MessageID,
		DigestID:  digestID,
		Channel:   m.ChannelTitle,
		Link:      sql.NullString{String: m.Link, Valid: m.Link != ""},
	})
	if err != nil {
		return errors.Wrap(err, "insert digest message")
	}
	return nil
}

// ListDigests returns up to limit digests, newest first.
func (h *History) ListDigests(ctx context.Context, limit int) ([]Digest, error) {
	rows, err := dbqueries.New(h.db).ListDigests(ctx, int64(limit))
	if err != nil {
		return nil, errors.Wrap(err, "list digests")
	}
	out := make([]Digest, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDigest(row))
	}
	return out, nil
}

// GetDigest returns a digest and the messages it covered.
func (h *History) GetDigest(ctx context.Context, id int64) (*Digest, []Message, error) {
	queries := dbqueries.New(h.db)
	row, err := queries.GetDigest(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "get digest")
	}
	rows, err := queries.ListDigestMessages(ctx, id)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list digest messages")
	}
	msgs := make([]Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, Message{
			ChatID:    r.ChatID,
			MessageID: r.MessageID,
			Channel:   r.Channel,
			Link:      r.Link.String,
		})
	}
	d := toDigest(row)
	return &d, msgs, nil
}

// RecordSync notes a completed fetch.
func (h *History) RecordSync(ctx context.Context, at time.Time) error {
	if _, err := dbqueries.New(h.db).InsertSync(ctx, at.Unix()); err != nil {
		return errors.Wrap(err, "insert sync")
	}
	return nil
}

// LastSync reports the time of the latest RecordSync.
func (h *History) LastSync(ctx context.Context) (time.Time, bool, error) {
	row, err := dbqueries.New(h.db).GetLastSync(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "get last sync")
	}
	return time.Unix(row.SyncTime, 0).UTC(), true, nil
}

func toDigest(row dbqueries.Digest) Digest {
	return Digest{
		ID:        row.ID,
		CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
		Backend:   row.Backend,
		Channels:  int(row.Channels),
		Messages:  int(row.Messages),
		Summary:   row.Summary,
		Delivered: row.Delivered != 0,
	}
}
