// Package content stores listable items and taxonomy terms in Redis hashes
// and runs filtered listings over their FT index.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/postfilter/internal/db"
	"github.com/kailas-cloud/postfilter/internal/domain"
	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
)

// store is the consumer interface for content (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	TagValues(ctx context.Context, index, field string) ([]string, error)
}

// ListRequest is one page of a listing.
type ListRequest struct {
	Query    query.Compiled
	PostType string     // listing default, overridden by Query.PostType
	Order    query.Sort // listing default, overridden by a Query sort override
	Offset   int
	Limit    int
}

// ListResult is one page of items plus the total match count.
type ListResult struct {
	Items []domcontent.Item
	Total int
}

// Repo implements the content repository over a Redis store.
type Repo struct {
	store  store
	index  string
	schema *query.Schema
}

// New creates a content repository. index is the FT index name; schema
// declares which taxonomy, meta and numeric fields the index carries.
func New(s store, index string, schema *query.Schema) *Repo {
	if index == "" {
		index = domain.KeyPrefix + "items"
	}
	return &Repo{store: s, index: index, schema: schema}
}

// IndexDefinition returns the FT index definition for the configured schema.
func (r *Repo) IndexDefinition() *db.IndexDefinition {
	b := db.NewIndex(r.index).
		Prefix(itemPrefix).
		SortableNumeric(fieldID).
		Tag(fieldPostType).
		Tag(fieldStatus).
		SortableTag(fieldAuthor).
		SortableText(fieldTitle).
		Text(fieldExcerpt).
		SortableNumeric(fieldDate).
		SortableNumeric(fieldModified)

	for _, tax := range r.schema.Taxonomies() {
		b.TagWithOpts(TaxField(tax), tagSeparator, false)
	}
	for _, k := range r.schema.MetaFields() {
		b.SortableTag(MetaField(k))
	}
	for _, k := range r.schema.NumericFields() {
		b.SortableNumeric(NumField(k))
	}
	return b.MustBuild()
}

// EnsureIndex creates the FT index unless it already exists. Returns true if created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", r.index, err)
	}
	if exists {
		return false, nil
	}
	if err := r.store.CreateIndex(ctx, r.IndexDefinition()); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", r.index, err)
	}
	return true, nil
}

// RebuildIndex drops and recreates the FT index. Stored items are re-indexed by the server.
func (r *Repo) RebuildIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.index); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.index, err)
	}
	if err := r.store.CreateIndex(ctx, r.IndexDefinition()); err != nil {
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	return nil
}

// UpsertItem replaces an item. Returns true if created.
func (r *Repo) UpsertItem(ctx context.Context, it domcontent.Item) (bool, error) {
	key := itemKey(it.ID())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	if exists {
		// Fields dropped since the last write must not linger in the hash.
		if err := r.store.Del(ctx, key); err != nil {
			return false, fmt.Errorf("del %s: %w", key, err)
		}
	}
	if err := r.store.HSet(ctx, key, buildHashFields(it)); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}
	return !exists, nil
}

// GetItem returns an item by id.
func (r *Repo) GetItem(ctx context.Context, id uint64) (domcontent.Item, error) {
	key := itemKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domcontent.Item{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domcontent.Item{}, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return parseHashFields(id, m), nil
}

// UpsertTerm stores a term in its taxonomy hash.
func (r *Repo) UpsertTerm(ctx context.Context, t domcontent.Term) error {
	data, err := json.Marshal(termRecord{Name: t.Name, Slug: t.Slug, Parent: t.Parent})
	if err != nil {
		return fmt.Errorf("marshal term: %w", err)
	}
	key := termsKey(t.Taxonomy)
	if err := r.store.HSet(ctx, key, map[string]string{strconv.FormatUint(t.ID, 10): string(data)}); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Terms returns every term of a taxonomy. Malformed entries are skipped.
func (r *Repo) Terms(ctx context.Context, taxonomy string) ([]domcontent.Term, error) {
	key := termsKey(taxonomy)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}

	terms := make([]domcontent.Term, 0, len(m))
	for idStr, raw := range m {
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		var rec termRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		terms = append(terms, domcontent.Term{
			ID: id, Taxonomy: taxonomy, Name: rec.Name, Slug: rec.Slug, Parent: rec.Parent,
		})
	}
	return terms, nil
}

// List runs one page of a filtered listing.
func (r *Repo) List(ctx context.Context, req ListRequest) (ListResult, error) {
	expander := r.newExpander(ctx)
	expr, err := toExpression(req.Query, req.PostType, expander.expand)
	if err != nil {
		return ListResult{}, fmt.Errorf("translate query: %w", err)
	}
	if expander.err != nil {
		return ListResult{}, expander.err
	}

	order := req.Order
	if req.Query.Sort.IsOverride() {
		order = req.Query.Sort
	}
	sortBy, desc := sortField(order)

	res, err := r.store.Search(ctx, &db.ListQuery{
		IndexName:  r.index,
		Filters:    expr,
		SortBy:     sortBy,
		Descending: desc,
		Offset:     req.Offset,
		Limit:      req.Limit,
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("search %s: %w", r.index, err)
	}

	out := ListResult{Total: res.Total, Items: make([]domcontent.Item, 0, len(res.Entries))}
	for _, e := range res.Entries {
		id, err := strconv.ParseUint(strings.TrimPrefix(e.Key, itemPrefix), 10, 64)
		if err != nil {
			continue
		}
		out.Items = append(out.Items, parseHashFields(id, e.Fields))
	}
	return out, nil
}

// MetaValues returns the distinct values of a custom field.
func (r *Repo) MetaValues(ctx context.Context, key string) ([]string, error) {
	vals, err := r.store.TagValues(ctx, r.index, MetaField(key))
	if err != nil {
		return nil, fmt.Errorf("tagvals %s: %w", key, err)
	}
	return vals, nil
}

// NumericBounds returns the smallest and largest value of a numeric field
// across published items. ok is false when no item carries the field.
func (r *Repo) NumericBounds(ctx context.Context, key string) (lo, hi float64, ok bool, err error) {
	field := NumField(key)
	expr, err := toExpression(query.Empty, "", nil)
	if err != nil {
		return 0, 0, false, err
	}

	read := func(desc bool) (float64, bool, error) {
		res, err := r.store.Search(ctx, &db.ListQuery{
			IndexName:    r.index,
			Filters:      expr,
			SortBy:       field,
			Descending:   desc,
			Limit:        1,
			ReturnFields: []string{field},
		})
		if err != nil {
			return 0, false, fmt.Errorf("search %s bounds: %w", field, err)
		}
		for _, e := range res.Entries {
			if n, err := strconv.ParseFloat(e.Fields[field], 64); err == nil {
				return n, true, nil
			}
		}
		return 0, false, nil
	}

	if lo, ok, err = read(false); err != nil || !ok {
		return 0, 0, false, err
	}
	if hi, ok, err = read(true); err != nil || !ok {
		return 0, 0, false, err
	}
	return lo, hi, true, nil
}

// expander memoizes term hierarchies for one listing.
type expander struct {
	ctx   context.Context
	repo  *Repo
	terms map[string][]domcontent.Term
	err   error
}

func (r *Repo) newExpander(ctx context.Context) *expander {
	return &expander{ctx: ctx, repo: r, terms: map[string][]domcontent.Term{}}
}

func (e *expander) expand(taxonomy string, ids []uint64) []uint64 {
	terms, ok := e.terms[taxonomy]
	if !ok {
		var err error
		terms, err = e.repo.Terms(e.ctx, taxonomy)
		if err != nil {
			if e.err == nil {
				e.err = err
			}
			return ids
		}
		e.terms[taxonomy] = terms
	}

	seen := make(map[uint64]bool, len(ids))
	var out []uint64
	for _, id := range ids {
		for _, d := range domcontent.Descendants(terms, id) {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}

type termRecord struct {
	Name   string `json:"name"`
	Slug   string `json:"slug,omitempty"`
	Parent uint64 `json:"parent,omitempty"`
}

var itemPrefix = domain.KeyPrefix + "item:"

func itemKey(id uint64) string {
	return itemPrefix + strconv.FormatUint(id, 10)
}

func termsKey(taxonomy string) string {
	return domain.KeyPrefix + "terms:" + taxonomy
}
