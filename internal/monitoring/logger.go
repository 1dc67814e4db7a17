// Package monitoring holds the process logger hook and the listener's
// datagram statistics.
package monitoring

import (
	"io"
	"log"
)

// Logf is the process-wide logger used by the listener, forwarder and
// stats reporter. Replace it with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. nil mutes logging.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetLogWriter routes Logf to w with the standard log prefix flags.
func SetLogWriter(w io.Writer) {
	if w == nil {
		SetLogger(nil)
		return
	}
	SetLogger(log.New(w, "", log.LstdFlags).Printf)
}
