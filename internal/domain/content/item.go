package content

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// MaxTitleLength caps item titles.
const MaxTitleLength = 1024

// Status is the publication status of an item.
type Status string

// Item statuses.
const (
	StatusPublish Status = "publish"
	StatusDraft   Status = "draft"
	StatusPrivate Status = "private"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPublish, StatusDraft, StatusPrivate:
		return true
	}
	return false
}

// Fields carries the mutable attributes of an item.
type Fields struct {
	PostType string
	Status   Status
	Author   uint64
	Title    string
	Excerpt  string
	Link     string
	Date     time.Time
	Modified time.Time
	Terms    map[string][]uint64
	Meta     map[string][]string
	Numeric  map[string]float64
}

// Item is a listable content item (immutable value object).
type Item struct {
	id uint64
	f  Fields
}

// New validates and creates an Item.
// ID must be positive, post type and title non-empty. Status defaults to publish,
// Modified defaults to Date.
func New(id uint64, f Fields) (Item, error) {
	if id == 0 {
		return Item{}, fmt.Errorf("item ID is required")
	}
	f.PostType = strings.TrimSpace(f.PostType)
	if f.PostType == "" {
		return Item{}, fmt.Errorf("post type is required")
	}
	if strings.TrimSpace(f.Title) == "" {
		return Item{}, fmt.Errorf("title is required")
	}
	if len(f.Title) > MaxTitleLength {
		return Item{}, fmt.Errorf("title too long (max %d)", MaxTitleLength)
	}
	if f.Status == "" {
		f.Status = StatusPublish
	}
	if !f.Status.IsValid() {
		return Item{}, fmt.Errorf("invalid status %q", f.Status)
	}
	if f.Modified.IsZero() {
		f.Modified = f.Date
	}

	f.Terms = cloneTerms(f.Terms)
	f.Meta = cloneMeta(f.Meta)
	f.Numeric = maps.Clone(f.Numeric)
	return Item{id: id, f: f}, nil
}

// Reconstruct creates an Item without validation (storage hydration).
func Reconstruct(id uint64, f Fields) Item {
	return Item{id: id, f: f}
}

// ID returns the item identifier.
func (i Item) ID() uint64 { return i.id }

// PostType returns the item's post type.
func (i Item) PostType() string { return i.f.PostType }

// Status returns the publication status.
func (i Item) Status() Status { return i.f.Status }

// Author returns the author id.
func (i Item) Author() uint64 { return i.f.Author }

// Title returns the title.
func (i Item) Title() string { return i.f.Title }

// Excerpt returns the excerpt.
func (i Item) Excerpt() string { return i.f.Excerpt }

// Link returns the permalink.
func (i Item) Link() string { return i.f.Link }

// Date returns the publication date.
func (i Item) Date() time.Time { return i.f.Date }

// Modified returns the last modification date.
func (i Item) Modified() time.Time { return i.f.Modified }

// Terms returns term ids per taxonomy.
func (i Item) Terms() map[string][]uint64 { return i.f.Terms }

// Meta returns custom field values per key.
func (i Item) Meta() map[string][]string { return i.f.Meta }

// Numeric returns numeric field values per key.
func (i Item) Numeric() map[string]float64 { return i.f.Numeric }

func cloneTerms(m map[string][]uint64) map[string][]uint64 {
	if m == nil {
		return nil
	}
	c := make(map[string][]uint64, len(m))
	for k, v := range m {
		c[k] = slices.Clone(v)
	}
	return c
}

func cloneMeta(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	c := make(map[string][]string, len(m))
	for k, v := range m {
		c[k] = slices.Clone(v)
	}
	return c
}
