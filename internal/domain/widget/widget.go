// Package widget holds the per-listing settings a filter submission refers to by id.
package widget

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/postfilter/internal/domain"
	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
	"github.com/kailas-cloud/postfilter/internal/domain/pagination"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
)

// DefaultPerPage is used when a widget does not set its page size.
const DefaultPerPage = 10

// MaxPerPage caps the page size of any widget.
const MaxPerPage = 100

// DefaultNothingFound is shown when a listing has no results.
const DefaultNothingFound = "Nothing found."

// Widget is the settings of one listing.
type Widget struct {
	ID               string
	PostType         string
	PerPage          int
	Pagination       pagination.Mode
	Query            pagination.QueryKind
	NothingFound     string
	Order            query.Sort
	GroupLogic       criterion.Logic
	DynamicFiltering bool
}

// Normalize validates w and fills defaults.
func Normalize(w Widget) (Widget, error) {
	w.ID = strings.TrimSpace(w.ID)
	if w.ID == "" {
		return Widget{}, fmt.Errorf("widget ID is required")
	}
	if w.PerPage <= 0 {
		w.PerPage = DefaultPerPage
	}
	if w.PerPage > MaxPerPage {
		return Widget{}, fmt.Errorf("widget %s: per_page too large (max %d)", w.ID, MaxPerPage)
	}
	if w.Pagination == "" {
		w.Pagination = pagination.Numbered
	}
	if w.Query == "" {
		w.Query = pagination.CustomQuery
	}
	if w.NothingFound == "" {
		w.NothingFound = DefaultNothingFound
	}
	if !w.GroupLogic.IsValid() {
		w.GroupLogic = criterion.AND
	}
	return w, nil
}

// Registry resolves widgets by id.
type Registry struct {
	byID map[string]Widget
}

// NewRegistry normalizes every widget. Duplicate ids are an error.
func NewRegistry(widgets []Widget) (*Registry, error) {
	r := &Registry{byID: make(map[string]Widget, len(widgets))}
	for _, w := range widgets {
		n, err := Normalize(w)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate widget ID %q", n.ID)
		}
		r.byID[n.ID] = n
	}
	return r, nil
}

// Lookup returns the widget with the given id or domain.ErrNotFound.
func (r *Registry) Lookup(id string) (Widget, error) {
	if r != nil {
		if w, ok := r.byID[id]; ok {
			return w, nil
		}
	}
	return Widget{}, fmt.Errorf("widget %q: %w", id, domain.ErrNotFound)
}

// IDs returns the registered widget ids in sorted order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
