package tdlib

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type response struct {
	typ string
	raw []byte
}

// Client multiplexes requests and updates over a single Transport.
type Client struct {
	t  Transport
	lg *zap.Logger

	pollTimeout time.Duration
	subBuffer   int
	authLimit   int
	authTimeout time.Duration

	mu      sync.Mutex
	waiters map[string]chan response
	subs    map[int]chan Update
	nextSub int
	closed  bool

	authStates chan AuthorizationState
	closedOnce sync.Once
	tdClosed   chan struct{}

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(c *Client)

// WithPollTimeout sets how long a single Receive call may block.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Client) { c.pollTimeout = d }
}

// WithSubscriberBuffer sets the channel size handed out by Subscribe.
func WithSubscriberBuffer(n int) Option {
	return func(c *Client) { c.subBuffer = n }
}

// WithAuthorizationLimits bounds Authorize by state transitions and time.
func WithAuthorizationLimits(maxStates int, timeout time.Duration) Option {
	return func(c *Client) {
		c.authLimit = maxStates
		c.authTimeout = timeout
	}
}

// NewClient starts the receive loop on t. The client owns t from now on and
// closes it in Close.
func NewClient(t Transport, lg *zap.Logger, opts ...Option) *Client {
	c := &Client{
		t:           t,
		lg:          lg,
		pollTimeout: time.Second,
		subBuffer:   256,
		authLimit:   500,
		authTimeout: 5 * time.Minute,
		waiters:     map[string]chan response{},
		subs:        map[int]chan Update{},
		authStates:  make(chan AuthorizationState, 16),
		tdClosed:    make(chan struct{}),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	go c.loop()
	return c
}

func (c *Client) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		raw, ok := c.t.Receive(c.pollTimeout)
		if !ok {
			continue
		}
		c.dispatch([]byte(raw))
	}
}

func (c *Client) dispatch(raw []byte) {
	typ, extra, err := readEnvelope(raw)
	if err != nil {
		c.lg.Warn("Drop malformed object", zap.Error(err), zap.ByteString("raw", raw))
		return
	}
	if extra != "" {
		c.mu.Lock()
		w, ok := c.waiters[extra]
		delete(c.waiters, extra)
		c.mu.Unlock()
		if !ok {
			c.lg.Debug("Response without waiter", zap.String("type", typ), zap.String("extra", extra))
			return
		}
		w <- response{typ: typ, raw: raw}
		return
	}
	if !strings.HasPrefix(typ, "update") {
		c.lg.Debug("Unexpected object", zap.String("type", typ))
		return
	}
	u, err := decodeUpdate(typ, raw)
	if err != nil {
		c.lg.Warn("Drop update", zap.String("type", typ), zap.Error(err))
		return
	}
	if s := u.AuthorizationState; s != nil {
		c.pushAuthState(*s)
	}
	c.publish(u)
}

// pushAuthState never blocks the loop: when the buffer is full the oldest
// state is discarded, since only the latest one matters.
func (c *Client) pushAuthState(s AuthorizationState) {
	if s.Kind == AuthorizationStateClosed {
		c.closedOnce.Do(func() { close(c.tdClosed) })
	}
	for {
		select {
		case c.authStates <- s:
			return
		default:
		}
		select {
		case <-c.authStates:
		default:
		}
	}
}

func (c *Client) publish(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		select {
		case ch <- u:
		default:
			c.lg.Warn("Subscriber is full, update dropped",
				zap.Int("subscriber", id),
				zap.String("type", u.Kind),
			)
		}
	}
}

// Subscribe returns a channel receiving every update from now on. The
// channel is closed by cancel or by Close.
func (c *Client) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, c.subBuffer)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Send sends req and decodes the matching response into out, which may be
// nil when the result is not needed.
func (c *Client) Send(ctx context.Context, req Request, out any) error {
	extra := uuid.NewString()
	payload, err := encodeRequest(req, extra)
	if err != nil {
		return errors.Wrapf(err, "encode %s", req.TypeName())
	}

	ch := make(chan response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.waiters[extra] = ch
	c.mu.Unlock()

	c.t.Send(string(payload))

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		return decodeResponse(resp, out)
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.waiters, extra)
		c.mu.Unlock()
		return ctx.Err()
	}
}

// Execute runs a synchronous request on the client's transport.
func (c *Client) Execute(req Request, out any) error {
	return Execute(c.t, req, out)
}

// Execute runs a synchronous request through exec.
func Execute(exec Executor, req Request, out any) error {
	payload, err := encodeRequest(req, "")
	if err != nil {
		return errors.Wrapf(err, "encode %s", req.TypeName())
	}
	raw, ok := exec.Execute(string(payload))
	if !ok {
		return errors.Wrapf(ErrNoResult, "execute %s", req.TypeName())
	}
	typ, _, err := readEnvelope([]byte(raw))
	if err != nil {
		return err
	}
	return decodeResponse(response{typ: typ, raw: []byte(raw)}, out)
}

func decodeResponse(resp response, out any) error {
	if resp.typ == "error" {
		tdErr := &Error{}
		if err := json.Unmarshal(resp.raw, tdErr); err != nil {
			return errors.Wrap(err, "decode error")
		}
		return tdErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.raw, out); err != nil {
		return errors.Wrapf(err, "decode %s", resp.typ)
	}
	return nil
}

// Close asks TDLib to close the instance and waits for
// authorizationStateClosed or ctx. The loop is then stopped, the transport
// destroyed and every pending call fails with ErrClosed.
func (c *Client) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		if sendErr := c.Send(ctx, &Close{}, nil); sendErr != nil {
			c.lg.Warn("Close request failed", zap.Error(sendErr))
		}
		select {
		case <-c.tdClosed:
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "wait for closed state")
		}

		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.stop)
		<-c.done
		c.t.Close()

		c.mu.Lock()
		for extra, w := range c.waiters {
			delete(c.waiters, extra)
			close(w)
		}
		for id, ch := range c.subs {
			delete(c.subs, id)
			close(ch)
		}
		c.mu.Unlock()
	})
	return err
}
