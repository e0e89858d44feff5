package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const readChunkBytes = 32 * 1024

// Decoder drains a streaming reply through a Framer and a Dispatcher.
// It is not safe for concurrent use.
type Decoder struct {
	framer     Framer
	dispatcher *Dispatcher
	log        *slog.Logger
}

// NewDecoder constructs a Decoder that dispatches through d.
func NewDecoder(d *Dispatcher, log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{dispatcher: d, log: log}
}

// Reset clears the running buffer.
func (d *Decoder) Reset() { d.framer.Reset() }

// Process appends chunk to the running buffer and dispatches every complete
// packet. It stops at the first dispatch error; packets after it are not decoded.
func (d *Decoder) Process(ctx context.Context, chunk string) error {
	d.framer.Write(chunk)
	for {
		packet, ok := d.framer.Next()
		if !ok {
			return nil
		}
		if err := d.dispatcher.Dispatch(ctx, packet); err != nil {
			return err
		}
	}
}

// Consume reads body to EOF. Bytes are decoded as UTF-8 incrementally, so
// multi-byte characters split across reads are preserved.
//
// Text left without a trailing delimiter when the body ends is discarded.
func (d *Decoder) Consume(ctx context.Context, body io.Reader) error {
	d.Reset()

	r := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, readChunkBytes)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if perr := d.Process(ctx, string(buf[:n])); perr != nil {
				return perr
			}
		}
		if errors.Is(err, io.EOF) {
			if rest := d.framer.Pending(); rest != "" {
				d.log.Debug("stream.residual.dropped", "bytes", len(rest))
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}
