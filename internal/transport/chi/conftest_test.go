package chi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/postfilter/internal/domain"
	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
	"github.com/kailas-cloud/postfilter/internal/domain/pagination"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
	"github.com/kailas-cloud/postfilter/internal/domain/widget"
	contentuc "github.com/kailas-cloud/postfilter/internal/usecase/content"
	facetsuc "github.com/kailas-cloud/postfilter/internal/usecase/facets"
	filteruc "github.com/kailas-cloud/postfilter/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/postfilter/internal/usecase/health"
	listinguc "github.com/kailas-cloud/postfilter/internal/usecase/listing"
)

// --- Mocks ---

type mockFilter struct {
	applyFn func(ctx context.Context, sub filteruc.Submission) (filteruc.Outcome, error)
	clearFn func(ctx context.Context, nonce string) error
	got     filteruc.Submission
	cleared int
}

func (m *mockFilter) Apply(ctx context.Context, sub filteruc.Submission) (filteruc.Outcome, error) {
	m.got = sub
	if m.applyFn != nil {
		return m.applyFn(ctx, sub)
	}
	return filteruc.Outcome{Empty: true}, nil
}

func (m *mockFilter) Clear(ctx context.Context, nonce string) error {
	m.cleared++
	if m.clearFn != nil {
		return m.clearFn(ctx, nonce)
	}
	return nil
}

type mockListing struct {
	renderFn func(ctx context.Context, req listinguc.Request) (listinguc.Result, error)
	got      listinguc.Request
}

func (m *mockListing) Render(ctx context.Context, req listinguc.Request) (listinguc.Result, error) {
	m.got = req
	if m.renderFn != nil {
		return m.renderFn(ctx, req)
	}
	return listinguc.Result{HTML: `<div class="postfilter-listing"></div>`, Page: 1, MaxPage: 1}, nil
}

type mockFacets struct {
	getFn      func(ctx context.Context, kind facetsuc.Kind, key string, editor bool) (facetsuc.Facet, error)
	lastEditor bool
}

func (m *mockFacets) Get(ctx context.Context, kind facetsuc.Kind, key string, editor bool) (facetsuc.Facet, error) {
	m.lastEditor = editor
	if m.getFn != nil {
		return m.getFn(ctx, kind, key, editor)
	}
	return facetsuc.Facet{Kind: kind, Key: key}, nil
}

type mockContent struct {
	upsertFn   func(ctx context.Context, it domcontent.Item) (bool, error)
	getFn      func(ctx context.Context, id uint64) (domcontent.Item, error)
	termFn     func(ctx context.Context, t domcontent.Term) error
	reindexErr error
	gotItem    domcontent.Item
	gotTerm    domcontent.Term
	reindexed  int
}

func (m *mockContent) UpsertItem(ctx context.Context, it domcontent.Item) (bool, error) {
	m.gotItem = it
	if m.upsertFn != nil {
		return m.upsertFn(ctx, it)
	}
	return true, nil
}

func (m *mockContent) GetItem(ctx context.Context, id uint64) (domcontent.Item, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domcontent.Item{}, domain.ErrNotFound
}

func (m *mockContent) UpsertTerm(ctx context.Context, t domcontent.Term) error {
	m.gotTerm = t
	if m.termFn != nil {
		return m.termFn(ctx, t)
	}
	return nil
}

func (m *mockContent) Reindex(_ context.Context) error {
	m.reindexed++
	return m.reindexErr
}

func (m *mockContent) Seed(
	_ context.Context, _ []domcontent.Term, _ []domcontent.Item,
) ([]contentuc.SeedResult, error) {
	return nil, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type mockNonces struct {
	err       error
	verifyErr error
}

func (m *mockNonces) VerifyNonce(_ string) error { return m.verifyErr }

func (m *mockNonces) IssueNonce() (string, time.Time, error) {
	return "nonce-1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), m.err
}

type mockSlot struct {
	err     error
	cleared int
}

func (m *mockSlot) Clear(_ context.Context) error {
	m.cleared++
	return m.err
}

type mockLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (m *mockLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allow, m.err
}

// --- Helpers ---

type testDeps struct {
	filter  *mockFilter
	listing *mockListing
	facets  *mockFacets
	content *mockContent
	health  *mockHealth
	nonces  *mockNonces
	slot    *mockSlot
	limiter *mockLimiter
	apiKeys []string
}

func newTestDeps() *testDeps {
	return &testDeps{
		filter:  &mockFilter{},
		listing: &mockListing{},
		facets:  &mockFacets{},
		content: &mockContent{},
		health:  &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK}}},
		nonces:  &mockNonces{},
		slot:    &mockSlot{},
	}
}

func testRegistry(t *testing.T) *widget.Registry {
	t.Helper()
	reg, err := widget.NewRegistry([]widget.Widget{
		{ID: "shop", PostType: "product", Pagination: pagination.Numbered, Query: pagination.CustomQuery},
		{ID: "blog", PostType: "post", Pagination: pagination.LoadMoreClick, Query: pagination.MainQuery},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func testSchema() *query.Schema {
	return query.NewSchema([]string{"category"}, []string{"color"}, []string{"price"})
}

func (d *testDeps) router(t *testing.T) http.Handler {
	t.Helper()
	s := NewServer(Services{
		Filter:  d.filter,
		Listing: d.listing,
		Facets:  d.facets,
		Content: d.content,
		Health:  d.health,
		Nonces:  d.nonces,
		Slot:    d.slot,
		Widgets: testRegistry(t),
	}, testSchema(), "/ajax", zap.NewNop())

	r := chi.NewRouter()
	var limiter Limiter
	if d.limiter != nil {
		limiter = d.limiter
	}
	s.Register(r, d.apiKeys, limiter)
	return r
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
