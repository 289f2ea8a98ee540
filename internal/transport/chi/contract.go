package chi

import (
	"context"
	"time"

	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
	"github.com/kailas-cloud/postfilter/internal/domain/widget"
	contentuc "github.com/kailas-cloud/postfilter/internal/usecase/content"
	facetsuc "github.com/kailas-cloud/postfilter/internal/usecase/facets"
	filteruc "github.com/kailas-cloud/postfilter/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/postfilter/internal/usecase/health"
	listinguc "github.com/kailas-cloud/postfilter/internal/usecase/listing"
)

// FilterService applies and clears filter submissions.
type FilterService interface {
	Apply(ctx context.Context, sub filteruc.Submission) (filteruc.Outcome, error)
	Clear(ctx context.Context, nonce string) error
}

// ListingService renders listing pages.
type ListingService interface {
	Render(ctx context.Context, req listinguc.Request) (listinguc.Result, error)
}

// FacetService enumerates filter options.
type FacetService interface {
	Get(ctx context.Context, kind facetsuc.Kind, key string, editor bool) (facetsuc.Facet, error)
}

// ContentService manages items and terms.
type ContentService interface {
	UpsertItem(ctx context.Context, it domcontent.Item) (bool, error)
	GetItem(ctx context.Context, id uint64) (domcontent.Item, error)
	UpsertTerm(ctx context.Context, t domcontent.Term) error
	Reindex(ctx context.Context) error
	Seed(ctx context.Context, terms []domcontent.Term, items []domcontent.Item) ([]contentuc.SeedResult, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// NonceService issues and checks forgery-prevention tokens.
type NonceService interface {
	IssueNonce() (string, time.Time, error)
	VerifyNonce(tok string) error
}

// SlotClearer clears the shared compiled-query slot.
type SlotClearer interface {
	Clear(ctx context.Context) error
}

// WidgetRegistry resolves listing widgets.
type WidgetRegistry interface {
	Lookup(id string) (widget.Widget, error)
	IDs() []string
}

// Limiter decides whether a client may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

var _ ContentService = (*contentuc.Service)(nil)
