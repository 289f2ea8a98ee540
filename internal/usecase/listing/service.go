// Package listing renders a page of a widget's listing with the filter
// overlay that applies to the current request.
package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
	"github.com/kailas-cloud/postfilter/internal/domain/pagination"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
	"github.com/kailas-cloud/postfilter/internal/domain/widget"
	"github.com/kailas-cloud/postfilter/internal/logger"
	"github.com/kailas-cloud/postfilter/internal/repository/content"
)

// Source is where the overlay query of a listing came from.
type Source string

// Overlay sources, in resolution order.
const (
	SourceContext Source = "context"
	SourceToken   Source = "token"
	SourceSlot    Source = "slot"
	SourceNone    Source = "none"
)

// Request is one listing read.
type Request struct {
	Widget      widget.Widget
	Page        int // 0 selects the overlay's page, then the first page
	PageContext pagination.PageContext
	FilterToken string
	Primary     bool // top-level page load; never reads the shared slot
}

// Result is one rendered page of a listing.
type Result struct {
	HTML    string
	Items   []domcontent.Item
	Page    int
	MaxPage int
	Found   int
	Source  Source
	Query   query.Compiled
}

// Service renders listings.
type Service struct {
	repo       Repository
	slot       SlotReader
	tokens     TokenParser
	sharedSlot bool
	duration   *prometheus.HistogramVec
}

// New creates a listing service. slot is read only when sharedSlot is set.
// duration has one label, "source"; nil disables it.
func New(repo Repository, slot SlotReader, tokens TokenParser, sharedSlot bool, duration *prometheus.HistogramVec) *Service {
	return &Service{repo: repo, slot: slot, tokens: tokens, sharedSlot: sharedSlot, duration: duration}
}

// Resolve picks the overlay query: the request context first, then a valid
// filter token, then the shared slot for non-primary requests when enabled.
func (s *Service) Resolve(ctx context.Context, req Request) (query.Compiled, Source) {
	if q, ok := query.FromContext(ctx); ok && !q.IsEmpty() {
		return q, SourceContext
	}

	if req.FilterToken != "" && s.tokens != nil {
		q, err := s.tokens.ParseFilter(req.FilterToken)
		if err == nil && !q.IsEmpty() {
			return q, SourceToken
		}
		if err != nil {
			logger.FromContext(ctx).Debug("Ignoring filter token", zap.Error(err))
		}
	}

	if s.sharedSlot && !req.Primary && s.slot != nil {
		if q, ok := s.slot.Get(ctx); ok {
			return q, SourceSlot
		}
	}

	return query.Empty, SourceNone
}

// Render lists and renders one page. The page is clamped to the last page
// when the request points past it.
func (s *Service) Render(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	q, src := s.Resolve(ctx, req)

	page := req.Page
	if page < 1 {
		page = max(q.Page, 1)
	}
	perPage := req.Widget.PerPage
	if perPage <= 0 {
		perPage = widget.DefaultPerPage
	}

	res, err := s.list(ctx, req.Widget, q, page, perPage)
	if err != nil {
		return Result{}, err
	}
	maxPage := pageCount(res.Total, perPage)
	if page > maxPage && res.Total > 0 {
		page = maxPage
		if res, err = s.list(ctx, req.Widget, q, page, perPage); err != nil {
			return Result{}, err
		}
	}

	out := Result{
		Items:   res.Items,
		Page:    page,
		MaxPage: maxPage,
		Found:   res.Total,
		Source:  src,
		Query:   q,
	}
	html, err := renderFragment(req.Widget, req.PageContext, out)
	if err != nil {
		return Result{}, err
	}
	out.HTML = html

	if s.duration != nil {
		s.duration.WithLabelValues(string(src)).Observe(time.Since(start).Seconds())
	}
	return out, nil
}

func (s *Service) list(ctx context.Context, w widget.Widget, q query.Compiled, page, perPage int) (content.ListResult, error) {
	res, err := s.repo.List(ctx, content.ListRequest{
		Query:    q,
		PostType: w.PostType,
		Order:    w.Order,
		Offset:   (page - 1) * perPage,
		Limit:    perPage,
	})
	if err != nil {
		return content.ListResult{}, fmt.Errorf("list widget %s: %w", w.ID, err)
	}
	return res, nil
}

// pageCount is the number of pages for total items; never below 1.
func pageCount(total, perPage int) int {
	if total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
