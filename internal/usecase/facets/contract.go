package facets

import (
	"context"
	"time"

	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
)

// Repository enumerates field values.
type Repository interface {
	Terms(ctx context.Context, taxonomy string) ([]domcontent.Term, error)
	MetaValues(ctx context.Context, key string) ([]string, error)
	NumericBounds(ctx context.Context, key string) (lo, hi float64, ok bool, err error)
}

// Cache stores serialized facets.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
