// Package tdjson exposes TDLib's JSON client and log configuration API
// (td_json_client.h and td_log.h) to Go.
//
// The native binding is compiled only with the tdjson build tag and cgo
// enabled; otherwise a stub with the same API reports ErrUnavailable.
package tdjson

import (
	"sync"

	"github.com/go-faster/errors"
)

var (
	// ErrUnavailable is returned when the binary was built without libtdjson.
	ErrUnavailable = errors.New("tdjson: built without TDLib support (use -tags tdjson)")
	// ErrCreateFailed is returned when td_json_client_create returns NULL.
	ErrCreateFailed = errors.New("tdjson: failed to create client")
)

var (
	fatalMu      sync.Mutex
	fatalHandler func(string)
)
