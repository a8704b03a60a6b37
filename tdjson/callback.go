//go:build cgo && tdjson

package tdjson

import "C"

//export goTdFatalError
func goTdFatalError(message *C.char) {
	fatalMu.Lock()
	fn := fatalHandler
	fatalMu.Unlock()
	if fn != nil {
		fn(C.GoString(message))
	}
}
