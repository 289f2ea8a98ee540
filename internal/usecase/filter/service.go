// Package filter compiles filter submissions and renders the filtered listing.
package filter

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/postfilter/internal/domain/archive"
	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
	"github.com/kailas-cloud/postfilter/internal/domain/pagination"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
	"github.com/kailas-cloud/postfilter/internal/logger"
	"github.com/kailas-cloud/postfilter/internal/usecase/listing"
)

// Submission is one filter submission.
type Submission struct {
	Nonce       string
	WidgetID    string
	Criteria    []criterion.Criterion
	Sort        query.Sort
	Search      string
	Archive     archive.Context
	Page        int
	PageContext pagination.PageContext
}

// Outcome is the result of applying a submission. Empty outcomes carry no listing.
type Outcome struct {
	Empty   bool
	Query   query.Compiled
	Listing listing.Result
	Token   string
}

// Service applies filter submissions.
type Service struct {
	nonces  NonceVerifier
	widgets WidgetLookup
	schema  *query.Schema
	slot    Slot
	tokens  TokenSigner
	listing Renderer
	total   *prometheus.CounterVec
}

// New creates a filter service. total has one label, "outcome"; nil disables it.
func New(
	nonces NonceVerifier, widgets WidgetLookup, schema *query.Schema,
	slot Slot, tokens TokenSigner, renderer Renderer, total *prometheus.CounterVec,
) *Service {
	return &Service{
		nonces:  nonces,
		widgets: widgets,
		schema:  schema,
		slot:    slot,
		tokens:  tokens,
		listing: renderer,
		total:   total,
	}
}

// Apply verifies, compiles and renders a submission. The shared slot is
// written only after the listing rendered. A submission that constrains
// nothing clears the shared slot and returns an Empty outcome.
func (s *Service) Apply(ctx context.Context, sub Submission) (Outcome, error) {
	log := logger.FromContext(ctx)

	if err := s.nonces.VerifyNonce(sub.Nonce); err != nil {
		s.inc("denied")
		return Outcome{}, err
	}

	w, err := s.widgets.Lookup(sub.WidgetID)
	if err != nil {
		s.inc("invalid")
		return Outcome{}, err
	}

	if mixed := criterion.MixedLogic(sub.Criteria); len(mixed) > 0 {
		log.Warn("Filter fields declared with conflicting logic; first declaration wins",
			zap.String("widget", w.ID), zap.Strings("fields", mixed))
	}

	q := query.Compile(query.Input{
		Criteria:         sub.Criteria,
		Sort:             sub.Sort,
		Search:           sub.Search,
		PostType:         w.PostType,
		Page:             sub.Page,
		GroupLogic:       w.GroupLogic,
		DynamicFiltering: w.DynamicFiltering,
		Archive:          sub.Archive,
		Schema:           s.schema,
	})

	if q.IsEmpty() {
		if err := s.slot.Clear(ctx); err != nil {
			log.Warn("Failed to clear filter slot", zap.Error(err))
		}
		s.inc("empty")
		return Outcome{Empty: true}, nil
	}

	tok, err := s.tokens.SignFilter(q)
	if err != nil {
		s.inc("error")
		return Outcome{}, fmt.Errorf("sign filter: %w", err)
	}

	res, err := s.listing.Render(query.WithContext(ctx, q), listing.Request{
		Widget:      w,
		Page:        q.Page,
		PageContext: sub.PageContext,
	})
	if err != nil {
		// The slot must not keep a filter the listing cannot run.
		if cerr := s.slot.Clear(ctx); cerr != nil {
			log.Warn("Failed to clear filter slot", zap.Error(cerr))
		}
		s.inc("error")
		return Outcome{}, fmt.Errorf("render filtered listing: %w", err)
	}

	if err := s.slot.Put(ctx, q); err != nil {
		log.Warn("Failed to store compiled filter", zap.Error(err))
	}

	s.inc("applied")
	return Outcome{Query: q, Listing: res, Token: tok}, nil
}

// Clear empties the shared slot on an explicit revert.
func (s *Service) Clear(ctx context.Context, nonce string) error {
	if err := s.nonces.VerifyNonce(nonce); err != nil {
		s.inc("denied")
		return err
	}
	if err := s.slot.Clear(ctx); err != nil {
		return fmt.Errorf("clear filter slot: %w", err)
	}
	return nil
}

func (s *Service) inc(outcome string) {
	if s.total != nil {
		s.total.WithLabelValues(outcome).Inc()
	}
}
