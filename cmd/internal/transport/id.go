package transport

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewRequestID returns a ULID sent as X-Request-ID.
// ULIDs sort by time, which keeps client and server logs easy to correlate.
func NewRequestID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
