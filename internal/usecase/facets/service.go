// Package facets enumerates the options a filter control offers: taxonomy
// terms, distinct custom field values and numeric bounds.
package facets

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/postfilter/internal/db"
	"github.com/kailas-cloud/postfilter/internal/domain"
	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
)

// DefaultTTL is how long enumerated options are cached.
const DefaultTTL = 12 * time.Hour

// Kind is the field kind a facet enumerates.
type Kind string

// Facet kinds.
const (
	Terms   Kind = "terms"
	Meta    Kind = "meta"
	Numeric Kind = "numeric"
)

// ParseKind maps a route segment to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(s)); k {
	case Terms, Meta, Numeric:
		return k, true
	}
	return "", false
}

func (k Kind) fieldType() criterion.FieldType {
	switch k {
	case Terms:
		return criterion.Taxonomy
	case Meta:
		return criterion.CustomField
	case Numeric:
		return criterion.Numeric
	}
	return ""
}

// Option is one selectable value.
type Option struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Parent uint64 `json:"parent,omitempty"`
}

// Facet is the option list of one field. Numeric facets carry bounds instead
// of options; the bounds are the base values of a range control.
type Facet struct {
	Kind    Kind     `json:"kind"`
	Key     string   `json:"key"`
	Options []Option `json:"options"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

// Service enumerates facets through a shared cache.
type Service struct {
	repo   Repository
	cache  Cache
	schema *query.Schema
	ttl    time.Duration
	flight singleflight.Group
	total  *prometheus.CounterVec
	logger *zap.Logger
}

// New creates a facet service. total has one label, "result"; nil disables it.
func New(repo Repository, cache Cache, schema *query.Schema, ttl time.Duration, total *prometheus.CounterVec, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, schema: schema, ttl: ttl, total: total, logger: logger}
}

// Get returns the facet for a declared field. Editors skip the cached copy
// and refresh it. Undeclared fields are domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, kind Kind, key string, editor bool) (Facet, error) {
	key = criterion.SanitizeKey(key)
	if key == "" || !s.schema.Allows(kind.fieldType(), key) {
		return Facet{}, fmt.Errorf("facet %s/%s: %w", kind, key, domain.ErrNotFound)
	}
	cacheKey := domain.KeyPrefix + "facets:" + string(kind) + ":" + key

	if editor {
		s.inc("bypass")
	} else if f, ok := s.cached(ctx, cacheKey); ok {
		s.inc("hit")
		return f, nil
	} else {
		s.inc("miss")
	}

	v, err, _ := s.flight.Do(cacheKey, func() (any, error) {
		f, err := s.load(ctx, kind, key)
		if err != nil {
			return Facet{}, err
		}
		s.store(ctx, cacheKey, f)
		return f, nil
	})
	if err != nil {
		return Facet{}, err
	}
	return v.(Facet), nil
}

func (s *Service) load(ctx context.Context, kind Kind, key string) (Facet, error) {
	f := Facet{Kind: kind, Key: key, Options: []Option{}}

	switch kind {
	case Terms:
		terms, err := s.repo.Terms(ctx, key)
		if err != nil {
			return Facet{}, fmt.Errorf("load terms %s: %w", key, err)
		}
		slices.SortFunc(terms, func(a, b domcontent.Term) int {
			return cmp.Or(strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)), cmp.Compare(a.ID, b.ID))
		})
		for _, t := range terms {
			f.Options = append(f.Options, Option{Value: strconv.FormatUint(t.ID, 10), Label: t.Name, Parent: t.Parent})
		}
	case Meta:
		vals, err := s.repo.MetaValues(ctx, key)
		if err != nil {
			return Facet{}, fmt.Errorf("load values %s: %w", key, err)
		}
		slices.Sort(vals)
		for _, v := range vals {
			f.Options = append(f.Options, Option{Value: v, Label: v})
		}
	case Numeric:
		lo, hi, ok, err := s.repo.NumericBounds(ctx, key)
		if err != nil {
			return Facet{}, fmt.Errorf("load bounds %s: %w", key, err)
		}
		if ok {
			f.Min, f.Max = &lo, &hi
		}
	}
	return f, nil
}

func (s *Service) cached(ctx context.Context, key string) (Facet, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			s.logger.Warn("Failed to read facet cache", zap.String("key", key), zap.Error(err))
		}
		return Facet{}, false
	}
	var f Facet
	if err := json.Unmarshal(data, &f); err != nil {
		s.logger.Warn("Failed to parse facet cache", zap.String("key", key), zap.Error(err))
		return Facet{}, false
	}
	return f, true
}

func (s *Service) store(ctx context.Context, key string, f Facet) {
	data, err := json.Marshal(f)
	if err != nil {
		s.logger.Warn("Failed to marshal facet", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.SetWithTTL(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("Failed to write facet cache", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) inc(result string) {
	if s.total != nil {
		s.total.WithLabelValues(result).Inc()
	}
}
