// Package tdlib is a typed client for TDLib's JSON interface.
//
// A Client owns a Transport (normally a *tdjson.Client) and runs a single
// receive loop. Requests are correlated with their responses through the
// @extra field; updates are fanned out to subscribers.
package tdlib
