package tdlib

import "time"

// Transport is the raw TDLib JSON interface. *tdjson.Client implements it.
type Transport interface {
	Send(request string)
	Receive(timeout time.Duration) (string, bool)
	Execute(request string) (string, bool)
	Close()
}

// Executor runs synchronous requests. It is satisfied by a Transport and by
// ExecutorFunc(tdjson.Execute), which needs no client instance.
type Executor interface {
	Execute(request string) (string, bool)
}

type ExecutorFunc func(request string) (string, bool)

func (f ExecutorFunc) Execute(request string) (string, bool) { return f(request) }
