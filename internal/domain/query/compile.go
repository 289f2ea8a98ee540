package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/postfilter/internal/domain/archive"
	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
)

// Input is everything a filter submission contributes to a query.
type Input struct {
	Criteria         []criterion.Criterion
	Sort             Sort
	Search           string
	PostType         string
	Page             int
	GroupLogic       criterion.Logic
	DynamicFiltering bool
	Archive          archive.Context
	Schema           *Schema
}

// Compile turns a submission into a Compiled query. Keys are sanitized and
// criteria reduced first, so callers may pass raw collector output. Unknown
// keys, empty keys and values that fail coercion are dropped without error.
// When nothing constrains the listing the result is Empty.
func Compile(in Input) Compiled {
	var q Compiled

	sanitized := make([]criterion.Criterion, 0, len(in.Criteria))
	for _, c := range in.Criteria {
		c.Key = criterion.SanitizeKey(c.Key)
		sanitized = append(sanitized, c)
	}

	for _, c := range criterion.Reduce(sanitized) {
		key := c.Key
		if key == "" || !in.Schema.Allows(c.FieldType, key) {
			continue
		}
		logic := c.Logic
		if !logic.IsValid() {
			logic = criterion.OR
		}

		switch c.FieldType {
		case criterion.Taxonomy:
			q.Taxonomy.add(key, termIDs(c.Values), logic)
		case criterion.CustomField:
			q.Meta.addEquals(key, metaValues(c.Values), logic)
		case criterion.CustomFieldLike:
			q.Meta.addLike(key, metaValues(c.Values), logic)
		case criterion.Numeric:
			q.Numeric.addNumeric(key, numericValues(c.Values), logic)
		}
	}

	q.Search = strings.TrimSpace(in.Search)
	q.Sort = normalizeSort(in.Sort)

	if q.IsEmpty() {
		return Empty
	}

	q.PostType = strings.TrimSpace(in.PostType)
	q.Page = max(in.Page, 1)

	if q.Groups() > 1 || in.DynamicFiltering {
		q.Relation = RelationAND
		if in.GroupLogic == criterion.OR {
			q.Relation = RelationOR
		}
	}
	if in.DynamicFiltering {
		q.Context = contextConstraint(in.Archive)
	}

	return q
}

func (c *TaxonomyClause) add(key string, terms []uint64, logic criterion.Logic) {
	if len(terms) == 0 {
		return
	}
	switch logic {
	case criterion.AND:
		group := make([]TermCondition, 0, len(terms))
		for _, t := range terms {
			group = append(group, TermCondition{Taxonomy: key, Terms: []uint64{t}, IncludeChildren: true})
		}
		c.And = append(c.And, group)
	case criterion.OR:
		c.Or = append(c.Or, TermCondition{Taxonomy: key, Terms: terms, IncludeChildren: true})
	}
}

func (c *MetaClause) addEquals(key string, values []string, logic criterion.Logic) {
	if len(values) == 0 {
		return
	}
	switch logic {
	case criterion.AND:
		group := make([]MetaCondition, 0, len(values))
		for _, v := range values {
			group = append(group, MetaCondition{Key: key, Values: []string{v}, Compare: Equals})
		}
		c.And = append(c.And, group)
	case criterion.OR:
		c.Or = append(c.Or, MetaCondition{Key: key, Values: values, Compare: In})
	}
}

func (c *MetaClause) addLike(key string, values []string, logic criterion.Logic) {
	if len(values) == 0 {
		return
	}
	c.addCondition(MetaCondition{Key: key, Values: []string{strings.Join(values, " ")}, Compare: Like}, logic)
}

func (c *MetaClause) addNumeric(key string, values []float64, logic criterion.Logic) {
	cond := MetaCondition{Key: key, Numeric: true}
	switch len(values) {
	case 0:
		return
	case 1:
		cond.Compare = Equals
		cond.Values = []string{formatNumber(values[0])}
	case 2:
		lo, hi := min(values[0], values[1]), max(values[0], values[1])
		cond.Compare = Between
		cond.Values = []string{formatNumber(lo), formatNumber(hi)}
	default:
		cond.Compare = In
		cond.Values = make([]string, len(values))
		for i, v := range values {
			cond.Values[i] = formatNumber(v)
		}
	}
	c.addCondition(cond, logic)
}

func (c *MetaClause) addCondition(cond MetaCondition, logic criterion.Logic) {
	switch logic {
	case criterion.AND:
		c.And = append(c.And, []MetaCondition{cond})
	case criterion.OR:
		c.Or = append(c.Or, cond)
	}
}

// termIDs coerces raw term ids to non-negative integers. Signs are dropped
// and anything that is not an integer is skipped.
func termIDs(values []string) []uint64 {
	out := make([]uint64, 0, len(values))
	for _, v := range values {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		if n < 0 {
			if n == math.MinInt64 {
				continue
			}
			n = -n
		}
		out = append(out, uint64(n))
	}
	return out
}

func metaValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func numericValues(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func normalizeSort(s Sort) Sort {
	s.Field = strings.TrimSpace(s.Field)
	s.MetaKey = criterion.SanitizeKey(s.MetaKey)
	if !s.IsOverride() {
		return Sort{}
	}
	s.Direction = ParseDirection(string(s.Direction))
	return s
}

// contextConstraint derives the archive restriction for dynamic filtering.
// Date archives carry no constraint.
func contextConstraint(a archive.Context) *ContextConstraint {
	switch a.Kind {
	case archive.Author:
		if a.ID == 0 {
			return nil
		}
		return &ContextConstraint{Kind: ContextAuthor, ID: a.ID}
	case archive.Category, archive.Taxonomy:
		tax := criterion.SanitizeKey(a.Taxonomy)
		if tax == "" && a.Kind == archive.Category {
			tax = "category"
		}
		if tax == "" || a.ID == 0 {
			return nil
		}
		return &ContextConstraint{Kind: ContextTerm, Taxonomy: tax, ID: a.ID}
	case archive.Tag:
		if a.ID == 0 {
			return nil
		}
		return &ContextConstraint{Kind: ContextTag, ID: a.ID}
	case archive.PostType:
		pt := strings.TrimSpace(a.PostType)
		if pt == "" {
			return nil
		}
		return &ContextConstraint{Kind: ContextPostType, PostType: pt}
	case archive.Search:
		s := strings.TrimSpace(a.Search)
		if s == "" {
			return nil
		}
		return &ContextConstraint{Kind: ContextSearch, Search: s}
	case archive.Date, archive.None:
		return nil
	}
	return nil
}
