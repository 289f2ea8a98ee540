// Package query holds the compiled, engine-ready form of a filter submission.
package query

import "strings"

// Relation combines condition groups.
type Relation string

// Relation constants. The zero value means no relation is attached.
const (
	RelationAND Relation = "AND"
	RelationOR  Relation = "OR"
)

// Direction is a sort direction.
type Direction string

// Direction constants.
const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// ParseDirection returns DESC for "desc" in any case and ASC otherwise.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(DESC)) {
		return DESC
	}
	return ASC
}

// Sort is an explicit ordering request.
type Sort struct {
	Field     string    `json:"field,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	MetaKey   string    `json:"meta_key,omitempty"`
}

// IsOverride reports whether the sort asks for anything beyond the listing default.
func (s Sort) IsOverride() bool {
	return s.Field != "" || s.MetaKey != ""
}

// Compare is the comparison a meta condition applies.
type Compare string

// Comparison constants.
const (
	Equals  Compare = "="
	In      Compare = "IN"
	Like    Compare = "LIKE"
	Between Compare = "BETWEEN"
)

// TermCondition matches items carrying any of Terms in Taxonomy.
type TermCondition struct {
	Taxonomy        string   `json:"taxonomy"`
	Terms           []uint64 `json:"terms"`
	IncludeChildren bool     `json:"include_children,omitempty"`
}

// MetaCondition compares a custom field with Values.
type MetaCondition struct {
	Key     string   `json:"key"`
	Values  []string `json:"values"`
	Compare Compare  `json:"compare"`
	Numeric bool     `json:"numeric,omitempty"`
}

// TaxonomyClause holds taxonomy conditions. Every inner slice of And is one
// group whose conditions must all hold; Or is a single group of which any
// condition may hold.
type TaxonomyClause struct {
	And [][]TermCondition `json:"and,omitempty"`
	Or  []TermCondition   `json:"or,omitempty"`
}

// Groups returns the number of condition groups in the clause.
func (c TaxonomyClause) Groups() int {
	n := len(c.And)
	if len(c.Or) > 0 {
		n++
	}
	return n
}

// MetaClause holds meta conditions with the same AND/OR layout as TaxonomyClause.
type MetaClause struct {
	And [][]MetaCondition `json:"and,omitempty"`
	Or  []MetaCondition   `json:"or,omitempty"`
}

// Groups returns the number of condition groups in the clause.
func (c MetaClause) Groups() int {
	n := len(c.And)
	if len(c.Or) > 0 {
		n++
	}
	return n
}

// ContextKind is the archive restriction folded in by dynamic filtering.
type ContextKind string

// Context constraint kinds.
const (
	ContextAuthor   ContextKind = "author"
	ContextTerm     ContextKind = "term"
	ContextTag      ContextKind = "tag"
	ContextPostType ContextKind = "post_type"
	ContextSearch   ContextKind = "search"
)

// ContextConstraint restricts results to the archive the filter sits on.
type ContextConstraint struct {
	Kind     ContextKind `json:"kind"`
	ID       uint64      `json:"id,omitempty"`
	Taxonomy string      `json:"taxonomy,omitempty"`
	PostType string      `json:"post_type,omitempty"`
	Search   string      `json:"search,omitempty"`
}

// Compiled is a compiled filter submission.
type Compiled struct {
	Sort     Sort               `json:"sort"`
	Search   string             `json:"search,omitempty"`
	PostType string             `json:"post_type,omitempty"`
	Page     int                `json:"page,omitempty"`
	Taxonomy TaxonomyClause     `json:"taxonomy"`
	Meta     MetaClause         `json:"meta"`
	Numeric  MetaClause         `json:"numeric"`
	Relation Relation           `json:"relation,omitempty"`
	Context  *ContextConstraint `json:"context,omitempty"`
}

// Empty is the sentinel for a submission that constrains nothing.
var Empty = Compiled{}

// Groups returns the number of condition groups across all namespaces.
func (q Compiled) Groups() int {
	return q.Taxonomy.Groups() + q.Meta.Groups() + q.Numeric.Groups()
}

// IsEmpty reports whether q has no conditions, no search text and no sort override.
func (q Compiled) IsEmpty() bool {
	return q.Groups() == 0 && q.Search == "" && !q.Sort.IsOverride()
}
