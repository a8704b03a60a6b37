//go:build !cgo || !tdjson

package tdjson

import "time"

// Client is a placeholder for builds without libtdjson.
type Client struct{}

// Available reports whether the binary was built with the native binding.
func Available() bool { return false }

// NewClient always fails with ErrUnavailable.
func NewClient() (*Client, error) { return nil, ErrUnavailable }

func (c *Client) Send(string) {}

// Receive, Execute and the package level Execute never produce a result.
// tdlib reports that as tdlib.ErrNoResult.

func (c *Client) Receive(time.Duration) (string, bool) { return "", false }

func (c *Client) Execute(string) (string, bool) { return "", false }

func (c *Client) Close() {}

func Execute(string) (string, bool) { return "", false }

func SetLogVerbosityLevel(int) {}

// SetLogFilePath reports false, the same result as a path TDLib rejects.
func SetLogFilePath(string) bool { return false }

func SetLogMaxFileSize(int64) {}

// SetLogFatalErrorCallback stores fn so callers behave the same with and
// without the binding; it is never invoked.
func SetLogFatalErrorCallback(fn func(message string)) {
	fatalMu.Lock()
	fatalHandler = fn
	fatalMu.Unlock()
}
