// Package content manages listable items and taxonomy terms.
package content

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/postfilter/internal/domain"
	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
)

// MaxSeedSize is the maximum number of items plus terms per Seed call.
const MaxSeedSize = 1000

// Service handles content writes.
type Service struct {
	repo   Repository
	schema *query.Schema
}

// New creates a content service. Items may only carry fields declared in schema;
// a nil schema accepts every field.
func New(repo Repository, schema *query.Schema) *Service {
	return &Service{repo: repo, schema: schema}
}

// UpsertItem creates or replaces an item. Returns true if the item was created.
func (s *Service) UpsertItem(ctx context.Context, it domcontent.Item) (bool, error) {
	if err := s.validateFields(it); err != nil {
		return false, err
	}
	created, err := s.repo.UpsertItem(ctx, it)
	if err != nil {
		return false, fmt.Errorf("upsert item: %w", err)
	}
	return created, nil
}

// GetItem returns an item by id.
func (s *Service) GetItem(ctx context.Context, id uint64) (domcontent.Item, error) {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domcontent.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// UpsertTerm creates or replaces a term of a declared taxonomy.
func (s *Service) UpsertTerm(ctx context.Context, t domcontent.Term) error {
	if !s.allows(criterion.Taxonomy, t.Taxonomy) {
		return fmt.Errorf("taxonomy %q: %w", t.Taxonomy, domain.ErrNotFound)
	}
	if err := s.repo.UpsertTerm(ctx, t); err != nil {
		return fmt.Errorf("upsert term: %w", err)
	}
	return nil
}

// Reindex drops and recreates the search index over the stored items.
func (s *Service) Reindex(ctx context.Context) error {
	if err := s.repo.RebuildIndex(ctx); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	return nil
}

// SeedResult is the outcome of writing one seeded record.
type SeedResult struct {
	Kind string // "term" or "item"
	ID   uint64
	Err  error
}

// Seed ensures the index exists and writes terms first, then items, reporting
// a result per record. A failed record does not stop the others.
func (s *Service) Seed(ctx context.Context, terms []domcontent.Term, items []domcontent.Item) ([]SeedResult, error) {
	if n := len(terms) + len(items); n > MaxSeedSize {
		return nil, fmt.Errorf("seed of %d records exceeds %d: %w", n, MaxSeedSize, domain.ErrInvalidSubmission)
	}
	if _, err := s.repo.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	results := make([]SeedResult, 0, len(terms)+len(items))
	for _, t := range terms {
		results = append(results, SeedResult{Kind: "term", ID: t.ID, Err: s.UpsertTerm(ctx, t)})
	}
	for _, it := range items {
		_, err := s.UpsertItem(ctx, it)
		results = append(results, SeedResult{Kind: "item", ID: it.ID(), Err: err})
	}
	return results, nil
}

func (s *Service) validateFields(it domcontent.Item) error {
	for tax := range it.Terms() {
		if !s.allows(criterion.Taxonomy, tax) {
			return domain.NewValidationError("terms."+tax, "is not a declared taxonomy")
		}
	}
	for key := range it.Meta() {
		if !s.allows(criterion.CustomField, key) {
			return domain.NewValidationError("meta."+key, "is not a declared meta field")
		}
	}
	for key := range it.Numeric() {
		if !s.allows(criterion.Numeric, key) {
			return domain.NewValidationError("numeric."+key, "is not a declared numeric field")
		}
	}
	return nil
}

func (s *Service) allows(ft criterion.FieldType, key string) bool {
	return s.schema == nil || s.schema.Allows(ft, key)
}
