// Package archive describes the archive page a filter is embedded on.
package archive

import "strings"

// Kind is the archive page type.
type Kind string

// Archive kinds.
const (
	None     Kind = ""
	Author   Kind = "author"
	Date     Kind = "date"
	Category Kind = "category"
	Taxonomy Kind = "taxonomy"
	Tag      Kind = "tag"
	PostType Kind = "post_type"
	Search   Kind = "search"
)

// ParseKind maps a submitted archive type to a Kind. Unknown values map to None.
func ParseKind(s string) Kind {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case Author, Date, Category, Taxonomy, Tag, PostType, Search:
		return k
	}
	return None
}

// Context is the archive the current page renders.
type Context struct {
	Kind     Kind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	PostType string `json:"post_type,omitempty" yaml:"post_type,omitempty"`
	Taxonomy string `json:"taxonomy,omitempty" yaml:"taxonomy,omitempty"`
	ID       uint64 `json:"id,omitempty" yaml:"id,omitempty"`
	Search   string `json:"search,omitempty" yaml:"search,omitempty"`
}
