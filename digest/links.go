package digest

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var urlPattern = regexp.MustCompile(`https?://[-A-Za-z0-9+&@#/%?=~_|!:,.;]+[-A-Za-z0-9+&@#/%=~_|]`)

var errNoURL = errors.New("no urls found")

func containsURL(text string) bool {
	return strings.Contains(text, "http://") || strings.Contains(text, "https://")
}

// extractURL returns the first http(s) URL of text.
func extractURL(text string) (string, error) {
	u := urlPattern.FindString(text)
	if u == "" {
		return "", errNoURL
	}
	return u, nil
}

// LinkResolver looks up titles of pages linked from posts.
type LinkResolver struct {
	client      *http.Client
	parallelism int
	lg          *zap.Logger

	mu     sync.Mutex
	titles map[string]string
}

func NewLinkResolver(client *http.Client, parallelism int, lg *zap.Logger) *LinkResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if parallelism <= 0 {
		parallelism = 4
	}
	return &LinkResolver{
		client:      client,
		parallelism: parallelism,
		lg:          lg.Named("links"),
		titles:      map[string]string{},
	}
}

// Title fetches uri and returns the text of its <title>.
func (r *LinkResolver) Title(ctx context.Context, uri string) (string, error) {
	r.mu.Lock()
	title, ok := r.titles[uri]
	r.mu.Unlock()
	if ok {
		return title, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", errors.Wrap(err, "create request")
	}
	res, err := r.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "get page")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("invalid status code %d", res.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return "", errors.Wrap(err, "parse page")
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())

	r.mu.Lock()
	r.titles[uri] = title
	r.mu.Unlock()
	return title, nil
}

// Enrich sets PageTitle on messages that link to a page. Failures are
// logged and leave the message unchanged.
func (r *LinkResolver) Enrich(ctx context.Context, msgs []SourceMessage) []SourceMessage {
	out := make([]SourceMessage, len(msgs))
	copy(out, msgs)

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i := range out {
		i := i
		if !containsURL(out[i].Content) {
			continue
		}
		uri, err := extractURL(out[i].Content)
		if err != nil {
			continue
		}
		g.Go(func() error {
			title, err := r.Title(ctx, uri)
			if err != nil {
				r.lg.Debug("No page title", zap.String("url", uri), zap.Error(err))
				return nil
			}
			out[i].PageTitle = title
			return nil
		})
	}
	_ = g.Wait()
	return out
}
