package listing

import (
	"context"

	"github.com/kailas-cloud/postfilter/internal/domain/query"
	"github.com/kailas-cloud/postfilter/internal/repository/content"
)

// Repository runs filtered listings.
type Repository interface {
	List(ctx context.Context, req content.ListRequest) (content.ListResult, error)
}

// SlotReader reads the shared compiled-query slot.
type SlotReader interface {
	Get(ctx context.Context) (query.Compiled, bool)
}

// TokenParser verifies filter tokens.
type TokenParser interface {
	ParseFilter(tok string) (query.Compiled, error)
}
