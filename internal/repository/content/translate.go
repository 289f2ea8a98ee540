package content

import (
	"fmt"
	"strconv"

	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
	"github.com/kailas-cloud/postfilter/internal/domain/filter"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
)

// TagTaxonomy is the taxonomy tag archives restrict to.
const TagTaxonomy = "post_tag"

// expandFunc returns the ids a term condition matches, given its own ids.
type expandFunc func(taxonomy string, ids []uint64) []uint64

// Expression translates a compiled query without expanding term hierarchies.
func Expression(q query.Compiled, postType string) (filter.Expression, error) {
	return toExpression(q, postType, nil)
}

// toExpression translates a compiled query into the listing filter.
// Taxonomy groups and meta+numeric groups are each combined under the query's
// relation (AND when absent); the two namespaces and the context constraint
// always intersect.
func toExpression(q query.Compiled, postType string, expand expandFunc) (filter.Expression, error) {
	var must []filter.Clause

	if q.PostType != "" {
		postType = q.PostType
	}
	// A post type archive lists its own post type in place of the widget's.
	archivePostType := q.Context != nil && q.Context.Kind == query.ContextPostType && q.Context.PostType != ""
	if archivePostType {
		postType = q.Context.PostType
	}
	if postType != "" {
		c, err := filter.NewMatch(fieldPostType, postType)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, filter.Cond(c))
	}
	status, _ := filter.NewMatch(fieldStatus, string(domcontent.StatusPublish))
	must = append(must, filter.Cond(status))

	taxGroups, err := taxonomyGroups(q.Taxonomy, expand)
	if err != nil {
		return filter.Expression{}, err
	}
	metaGroups, err := metaGroups(q.Meta, q.Numeric)
	if err != nil {
		return filter.Expression{}, err
	}
	for _, groups := range [][]filter.Clause{taxGroups, metaGroups} {
		if len(groups) == 0 {
			continue
		}
		combined, err := combine(q.Relation, groups)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, filter.Sub(combined))
	}

	if q.Context != nil && !archivePostType {
		c, err := contextClause(*q.Context, expand)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, c)
	}

	if q.Search != "" {
		c, err := filter.NewText("", q.Search)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, filter.Cond(c))
	}

	return filter.All(must...)
}

func combine(rel query.Relation, groups []filter.Clause) (filter.Expression, error) {
	if rel == query.RelationOR {
		return chunked(filter.Any, groups)
	}
	return chunked(filter.All, groups)
}

// chunked builds an expression over any number of clauses. Past
// filter.MaxClausesPerGroup the clauses are split into nested groups of the
// same kind, which match the same items.
func chunked(build func(...filter.Clause) (filter.Expression, error), clauses []filter.Clause) (filter.Expression, error) {
	for len(clauses) > filter.MaxClausesPerGroup {
		nested := make([]filter.Clause, 0, len(clauses)/filter.MaxClausesPerGroup+1)
		for start := 0; start < len(clauses); start += filter.MaxClausesPerGroup {
			e, err := build(clauses[start:min(start+filter.MaxClausesPerGroup, len(clauses))]...)
			if err != nil {
				return filter.Expression{}, err
			}
			nested = append(nested, filter.Sub(e))
		}
		clauses = nested
	}
	return build(clauses...)
}

func taxonomyGroups(c query.TaxonomyClause, expand expandFunc) ([]filter.Clause, error) {
	var groups []filter.Clause
	for _, g := range c.And {
		clauses, err := termClauses(g, expand)
		if err != nil {
			return nil, err
		}
		e, err := chunked(filter.All, clauses)
		if err != nil {
			return nil, err
		}
		groups = append(groups, filter.Sub(e))
	}
	if len(c.Or) > 0 {
		clauses, err := termClauses(c.Or, expand)
		if err != nil {
			return nil, err
		}
		e, err := chunked(filter.Any, clauses)
		if err != nil {
			return nil, err
		}
		groups = append(groups, filter.Sub(e))
	}
	return groups, nil
}

func termClauses(conds []query.TermCondition, expand expandFunc) ([]filter.Clause, error) {
	out := make([]filter.Clause, 0, len(conds))
	for _, tc := range conds {
		ids := tc.Terms
		if tc.IncludeChildren && expand != nil {
			ids = expand(tc.Taxonomy, ids)
		}
		if len(ids) == 0 {
			continue
		}
		c, err := filter.NewMatch(TaxField(tc.Taxonomy), formatIDs(ids)...)
		if err != nil {
			return nil, err
		}
		out = append(out, filter.Cond(c))
	}
	return out, nil
}

func metaGroups(meta, numeric query.MetaClause) ([]filter.Clause, error) {
	var groups []filter.Clause
	for _, ns := range []query.MetaClause{meta, numeric} {
		for _, g := range ns.And {
			clauses, err := metaClauses(g)
			if err != nil {
				return nil, err
			}
			e, err := chunked(filter.All, clauses)
			if err != nil {
				return nil, err
			}
			groups = append(groups, filter.Sub(e))
		}
		if len(ns.Or) > 0 {
			clauses, err := metaClauses(ns.Or)
			if err != nil {
				return nil, err
			}
			e, err := chunked(filter.Any, clauses)
			if err != nil {
				return nil, err
			}
			groups = append(groups, filter.Sub(e))
		}
	}
	return groups, nil
}

func metaClauses(conds []query.MetaCondition) ([]filter.Clause, error) {
	out := make([]filter.Clause, 0, len(conds))
	for _, mc := range conds {
		if len(mc.Values) == 0 {
			continue
		}
		c, err := metaClause(mc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func metaClause(mc query.MetaCondition) (filter.Clause, error) {
	if mc.Numeric {
		return numericClause(mc)
	}
	field := MetaField(mc.Key)
	switch mc.Compare {
	case query.Like:
		c, err := filter.NewContains(field, mc.Values[0])
		return filter.Cond(c), err
	case query.Equals, query.In, query.Between:
		c, err := filter.NewMatch(field, mc.Values...)
		return filter.Cond(c), err
	}
	return filter.Clause{}, fmt.Errorf("unsupported comparison %q for %s", mc.Compare, mc.Key)
}

func numericClause(mc query.MetaCondition) (filter.Clause, error) {
	field := NumField(mc.Key)
	nums := make([]float64, 0, len(mc.Values))
	for _, v := range mc.Values {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter.Clause{}, fmt.Errorf("numeric value %q for %s: %w", v, mc.Key, err)
		}
		nums = append(nums, n)
	}

	switch mc.Compare {
	case query.Between:
		if len(nums) != 2 {
			return filter.Clause{}, fmt.Errorf("between on %s needs 2 values, got %d", mc.Key, len(nums))
		}
		c, err := filter.NewRange(field, filter.Between(nums[0], nums[1]))
		return filter.Cond(c), err
	case query.Equals:
		c, err := filter.NewRange(field, filter.Between(nums[0], nums[0]))
		return filter.Cond(c), err
	case query.In:
		alts := make([]filter.Clause, 0, len(nums))
		for _, n := range nums {
			c, err := filter.NewRange(field, filter.Between(n, n))
			if err != nil {
				return filter.Clause{}, err
			}
			alts = append(alts, filter.Cond(c))
		}
		e, err := chunked(filter.Any, alts)
		return filter.Sub(e), err
	}
	return filter.Clause{}, fmt.Errorf("unsupported numeric comparison %q for %s", mc.Compare, mc.Key)
}

func contextClause(cc query.ContextConstraint, expand expandFunc) (filter.Clause, error) {
	var (
		c   filter.Condition
		err error
	)
	switch cc.Kind {
	case query.ContextAuthor:
		c, err = filter.NewMatch(fieldAuthor, strconv.FormatUint(cc.ID, 10))
	case query.ContextTerm, query.ContextTag:
		tax := cc.Taxonomy
		if tax == "" {
			tax = TagTaxonomy
		}
		ids := []uint64{cc.ID}
		if expand != nil {
			ids = expand(tax, ids)
		}
		c, err = filter.NewMatch(TaxField(tax), formatIDs(ids)...)
	case query.ContextPostType:
		c, err = filter.NewMatch(fieldPostType, cc.PostType)
	case query.ContextSearch:
		c, err = filter.NewText("", cc.Search)
	default:
		err = fmt.Errorf("unknown context kind %q", cc.Kind)
	}
	return filter.Cond(c), err
}

func formatIDs(ids []uint64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatUint(id, 10)
	}
	return out
}

// sortField maps a sort override onto an index field and direction.
// Unknown fields fall back to the publication date, newest first.
func sortField(s query.Sort) (string, bool) {
	desc := s.Direction != query.ASC
	switch s.Field {
	case "date", "":
		return fieldDate, desc
	case "title", "name":
		return fieldTitle, desc
	case "modified":
		return fieldModified, desc
	case "ID", "id":
		return fieldID, desc
	case "author":
		return fieldAuthor, desc
	case "meta_value":
		if s.MetaKey != "" {
			return MetaField(s.MetaKey), desc
		}
	case "meta_value_num":
		if s.MetaKey != "" {
			return NumField(s.MetaKey), desc
		}
	}
	return fieldDate, true
}
