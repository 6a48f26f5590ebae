package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no object exists under the key, or when the
// object's expiry has passed.
var ErrNotFound = errors.New("blob not found")

// Store holds rendered report bytes keyed by a report-derived key. The TTL is
// aligned to the download-token horizon; expired blobs may be removed by the
// backing service or by the retention sweeper, whichever comes first.
type Store interface {
	Put(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
