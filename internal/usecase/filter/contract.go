package filter

import (
	"context"

	"github.com/kailas-cloud/postfilter/internal/domain/query"
	"github.com/kailas-cloud/postfilter/internal/domain/widget"
	"github.com/kailas-cloud/postfilter/internal/usecase/listing"
)

// NonceVerifier checks the forgery-prevention token of a submission.
type NonceVerifier interface {
	VerifyNonce(tok string) error
}

// TokenSigner packs a compiled query into a filter token.
type TokenSigner interface {
	SignFilter(q query.Compiled) (string, error)
}

// WidgetLookup resolves widget settings by id.
type WidgetLookup interface {
	Lookup(id string) (widget.Widget, error)
}

// Slot is the shared compiled-query slot.
type Slot interface {
	Put(ctx context.Context, q query.Compiled) error
	Clear(ctx context.Context) error
}

// Renderer renders a listing page.
type Renderer interface {
	Render(ctx context.Context, req listing.Request) (listing.Result, error)
}
