package query

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
)

// Schema lists the field keys the content index knows about.
// A nil Schema accepts every key.
type Schema struct {
	taxonomies map[string]struct{}
	meta       map[string]struct{}
	numeric    map[string]struct{}
}

// NewSchema builds a Schema from sanitized key lists.
func NewSchema(taxonomies, meta, numeric []string) *Schema {
	return &Schema{
		taxonomies: toSet(taxonomies),
		meta:       toSet(meta),
		numeric:    toSet(numeric),
	}
}

// Allows reports whether key is declared for the field type.
func (s *Schema) Allows(ft criterion.FieldType, key string) bool {
	if s == nil {
		return true
	}
	var set map[string]struct{}
	switch ft {
	case criterion.Taxonomy:
		set = s.taxonomies
	case criterion.CustomField, criterion.CustomFieldLike:
		set = s.meta
	case criterion.Numeric:
		set = s.numeric
	default:
		return false
	}
	_, ok := set[key]
	return ok
}

// Taxonomies returns the declared taxonomy keys, sorted.
func (s *Schema) Taxonomies() []string {
	if s == nil {
		return nil
	}
	return keys(s.taxonomies)
}

// MetaFields returns the declared custom field keys.
func (s *Schema) MetaFields() []string {
	if s == nil {
		return nil
	}
	return keys(s.meta)
}

// NumericFields returns the declared numeric field keys.
func (s *Schema) NumericFields() []string {
	if s == nil {
		return nil
	}
	return keys(s.numeric)
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, k := range in {
		if k = criterion.SanitizeKey(k); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

func keys(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
