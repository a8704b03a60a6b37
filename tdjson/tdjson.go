//go:build cgo && tdjson

package tdjson

// #cgo pkg-config: tdjson
// #include <stdlib.h>
// #include <td/telegram/td_json_client.h>
// #include <td/telegram/td_log.h>
//
// extern void goTdFatalError(char *message);
//
// static void tdjson_fatal_bridge(const char *message) {
//     goTdFatalError((char *)message);
// }
//
// static void tdjson_set_fatal_callback(int enabled) {
//     td_set_log_fatal_error_callback(enabled ? tdjson_fatal_bridge : NULL);
// }
import "C"

import (
	"sync"
	"time"
	"unsafe"
)

// Client is a TDLib JSON client instance created with td_json_client_create.
// Calls on the instance hold mu for reading so Close cannot destroy it
// underneath them.
type Client struct {
	mu  sync.RWMutex
	ptr unsafe.Pointer
}

// Available reports whether the binary was built with the native binding.
func Available() bool { return true }

// NewClient creates a new TDLib instance.
func NewClient() (*Client, error) {
	ptr := C.td_json_client_create()
	if ptr == nil {
		return nil, ErrCreateFailed
	}
	return &Client{ptr: ptr}, nil
}

// Send sends a request to TDLib. It never blocks.
func (c *Client) Send(request string) {
	query := C.CString(request)
	defer C.free(unsafe.Pointer(query))

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ptr == nil {
		return
	}
	C.td_json_client_send(c.ptr, query)
}

// Receive waits up to timeout for an incoming update or response. The second
// result is false when nothing arrived. Receive must not be called
// concurrently on the same client.
//
// Close waits for a pending Receive, so it can take up to timeout.
func (c *Client) Receive(timeout time.Duration) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ptr == nil {
		return "", false
	}
	result := C.td_json_client_receive(c.ptr, C.double(timeout.Seconds()))
	if result == nil {
		return "", false
	}
	return C.GoString(result), true
}

// Execute runs a synchronous request on this client.
func (c *Client) Execute(request string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ptr == nil {
		return "", false
	}
	return execute(c.ptr, request)
}

// Close destroys the TDLib instance. Subsequent calls are no-ops.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ptr == nil {
		return
	}
	C.td_json_client_destroy(c.ptr)
	c.ptr = nil
}

// Execute runs a synchronous request that does not need a client instance,
// such as setLogVerbosityLevel or getTextEntities.
func Execute(request string) (string, bool) {
	return execute(nil, request)
}

func execute(ptr unsafe.Pointer, request string) (string, bool) {
	query := C.CString(request)
	defer C.free(unsafe.Pointer(query))
	result := C.td_json_client_execute(ptr, query)
	if result == nil {
		return "", false
	}
	return C.GoString(result), true
}

// SetLogVerbosityLevel sets the verbosity of TDLib's internal log.
func SetLogVerbosityLevel(level int) {
	C.td_set_log_verbosity_level(C.int(level))
}

// SetLogFilePath redirects TDLib's internal log to a file. An empty path
// restores the default stream.
func SetLogFilePath(path string) bool {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	return C.td_set_log_file_path(cpath) != 0
}

// SetLogMaxFileSize sets the size at which TDLib rotates its log file.
func SetLogMaxFileSize(size int64) {
	C.td_set_log_max_file_size(C.longlong(size))
}

// SetLogFatalErrorCallback registers fn to be called when TDLib hits a fatal
// error, right before the process aborts. A nil fn unregisters the callback.
func SetLogFatalErrorCallback(fn func(message string)) {
	fatalMu.Lock()
	fatalHandler = fn
	fatalMu.Unlock()
	enabled := C.int(0)
	if fn != nil {
		enabled = 1
	}
	C.tdjson_set_fatal_callback(enabled)
}
