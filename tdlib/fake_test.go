package tdlib

import (
	"sync"
	"time"
)

type fakeTransport struct {
	in chan string

	mu      sync.Mutex
	sent    []map[string]any
	closed  bool
	respond func(f *fakeTransport, req map[string]any)
	execute func(req string) (string, bool)
}

func newFakeTransport(respond func(f *fakeTransport, req map[string]any)) *fakeTransport {
	return &fakeTransport{in: make(chan string, 64), respond: respond}
}

func (f *fakeTransport) Send(request string) {
	var req map[string]any
	if err := json.Unmarshal([]byte(request), &req); err != nil {
		panic(err)
	}
	f.mu.Lock()
	f.sent = append(f.sent, req)
	respond := f.respond
	f.mu.Unlock()
	if respond != nil {
		respond(f, req)
	}
}

func (f *fakeTransport) Receive(timeout time.Duration) (string, bool) {
	select {
	case s := <-f.in:
		return s, true
	case <-time.After(timeout):
		return "", false
	}
}

func (f *fakeTransport) Execute(request string) (string, bool) {
	if f.execute == nil {
		return "", false
	}
	return f.execute(request)
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) requests(typ string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, r := range f.sent {
		if r["@type"] == typ {
			out = append(out, r)
		}
	}
	return out
}

// push queues an object as if TDLib emitted it.
func (f *fakeTransport) push(obj map[string]any) {
	b, err := json.Marshal(obj)
	if err != nil {
		panic(err)
	}
	f.in <- string(b)
}

// reply answers req with obj, copying its @extra.
func (f *fakeTransport) reply(req map[string]any, obj map[string]any) {
	obj["@extra"] = req["@extra"]
	f.push(obj)
}

func ok() map[string]any { return map[string]any{"@type": "ok"} }

func tdError(code int, msg string) map[string]any {
	return map[string]any{"@type": "error", "code": code, "message": msg}
}

func authUpdate(kind string) map[string]any {
	return map[string]any{
		"@type":               "updateAuthorizationState",
		"authorization_state": map[string]any{"@type": kind},
	}
}
