package stream

import (
	"strings"

	v1 "github.com/iostack-ai/client-example/contracts/stream/v1"
)

// Framer is the running buffer that reassembles delimiter-terminated packets.
type Framer struct {
	buf string
}

// Reset discards any buffered text.
func (f *Framer) Reset() { f.buf = "" }

// Write appends newly decoded text.
func (f *Framer) Write(chunk string) { f.buf += chunk }

// Next pops the next complete packet. It returns false when no delimiter is
// buffered, leaving the partial packet in place.
func (f *Framer) Next() (string, bool) {
	i := strings.Index(f.buf, v1.Delimiter)
	if i < 0 {
		return "", false
	}
	packet := f.buf[:i]
	f.buf = f.buf[i+len(v1.Delimiter):]
	return packet, true
}

// Pending returns text that has not yet been terminated by a delimiter.
func (f *Framer) Pending() string { return f.buf }
