package main

import (
	"context"
	_ "embed"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/chasefleming/elem-go"
	"github.com/chasefleming/elem-go/attrs"
	hx "github.com/chasefleming/elem-go/htmx"
	"github.com/donseba/go-htmx"
	"github.com/donseba/go-htmx/middleware"
	"github.com/dustin/go-humanize"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/seanrmurphy/tgdigest/store"
)

//go:embed web/index.html
var indexPage []byte

// digestHistory is the part of *store.History the web UI reads.
type digestHistory interface {
	ListDigests(ctx context.Context, limit int) ([]store.Digest, error)
	GetDigest(ctx context.Context, id int64) (*store.Digest, []store.Message, error)
}

const listLimit = 50

type App struct {
	htmx    *htmx.HTMX
	history digestHistory
	lg      *zap.Logger
}

func newApp(history digestHistory, lg *zap.Logger) *App {
	return &App{
		htmx:    htmx.New(),
		history: history,
		lg:      lg.Named("server"),
	}
}

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	// wrap the htmx middleware around the http handlers
	mux.Handle("GET /{$}", middleware.MiddleWare(http.HandlerFunc(a.Home)))
	mux.Handle("GET /digests", middleware.MiddleWare(http.HandlerFunc(a.Digests)))
	mux.Handle("GET /digests/{id}", middleware.MiddleWare(http.HandlerFunc(a.Digest)))
	return mux
}

// text escapes s; elem.Text renders its argument verbatim.
func text(s string) elem.Node { return elem.Text(html.EscapeString(s)) }

func message(s string) elem.Node {
	return elem.Div(attrs.Props{attrs.Class: "empty"}, elem.P(nil, text(s)))
}

func (a *App) write(h *htmx.Handler, node elem.Node) {
	if _, err := h.Write([]byte(node.Render())); err != nil {
		a.lg.Debug("Write response", zap.Error(err))
	}
}

func (a *App) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	h := a.htmx.NewHandler(w, r)
	_, _ = h.Write(indexPage)
}

func digestItem(d store.Digest) elem.Node {
	delivered := "not delivered"
	if d.Delivered {
		delivered = "delivered"
	}
	return elem.Li(attrs.Props{
		attrs.Class: "digest",
		hx.HXGet:    fmt.Sprintf("/digests/%d", d.ID),
		hx.HXTarget: "#detail",
	},
		elem.Strong(nil, elem.Text(humanize.Time(d.CreatedAt))),
		elem.Text(fmt.Sprintf(" · %d channels · %d messages · %s", d.Channels, d.Messages, delivered)),
	)
}

// Digests renders the list partial.
func (a *App) Digests(w http.ResponseWriter, r *http.Request) {
	h := a.htmx.NewHandler(w, r)

	digests, err := a.history.ListDigests(r.Context(), listLimit)
	if err != nil {
		a.lg.Warn("List digests", zap.Error(err))
		a.write(h, message("Unable to load digests"))
		return
	}
	if len(digests) == 0 {
		a.write(h, message("No digests yet"))
		return
	}

	items := elem.TransformEach(digests, digestItem)
	a.write(h, elem.Div(nil, elem.Ul(nil, items...)))
}

// Digest renders one digest with the messages it covered.
func (a *App) Digest(w http.ResponseWriter, r *http.Request) {
	h := a.htmx.NewHandler(w, r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		a.write(h, message("Invalid digest id"))
		return
	}
	d, msgs, err := a.history.GetDigest(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		a.write(h, message(fmt.Sprintf("Digest %d not found", id)))
		return
	case err != nil:
		a.lg.Warn("Get digest", zap.Int64("id", id), zap.Error(err))
		a.write(h, message("Unable to load digest"))
		return
	}
	if h.IsHxRequest() {
		h.PushURL(fmt.Sprintf("/digests/%d", id))
	}

	links := elem.TransformEach(msgs, func(m store.Message) elem.Node {
		if m.Link == "" {
			return elem.Li(nil, text(fmt.Sprintf("%s #%d", m.Channel, m.MessageID)))
		}
		return elem.Li(nil, elem.A(attrs.Props{attrs.Href: m.Link}, text(m.Channel)))
	})
	a.write(h, elem.Div(attrs.Props{attrs.ID: fmt.Sprintf("digest-%d", d.ID)},
		elem.H2(nil, elem.Text(fmt.Sprintf("Digest #%d, %s", d.ID, humanize.Time(d.CreatedAt)))),
		elem.Div(attrs.Props{attrs.Class: "summary"}, text(d.Summary)),
		elem.Ul(nil, links...),
	))
}
