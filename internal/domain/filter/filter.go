// Package filter is the engine-neutral predicate tree a listing search runs.
package filter

import "fmt"

// MaxClausesPerGroup is the maximum number of clauses per expression group.
const MaxClausesPerGroup = 64

// Expression is a structured filter with must/should/must_not boolean semantics.
// Clauses may nest further expressions.
type Expression struct {
	must    []Clause
	should  []Clause
	mustNot []Clause
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Clause) (Expression, error) {
	if len(must) > MaxClausesPerGroup {
		return Expression{}, fmt.Errorf("too many must clauses (max %d)", MaxClausesPerGroup)
	}
	if len(should) > MaxClausesPerGroup {
		return Expression{}, fmt.Errorf("too many should clauses (max %d)", MaxClausesPerGroup)
	}
	if len(mustNot) > MaxClausesPerGroup {
		return Expression{}, fmt.Errorf("too many must_not clauses (max %d)", MaxClausesPerGroup)
	}
	return Expression{
		must:    compact(must),
		should:  compact(should),
		mustNot: compact(mustNot),
	}, nil
}

// All returns an expression that holds when every clause holds.
func All(clauses ...Clause) (Expression, error) { return NewExpression(clauses, nil, nil) }

// Any returns an expression that holds when at least one clause holds.
func Any(clauses ...Clause) (Expression, error) { return NewExpression(nil, clauses, nil) }

// Must returns the must clauses.
func (e Expression) Must() []Clause { return e.must }

// Should returns the should clauses.
func (e Expression) Should() []Clause { return e.should }

// MustNot returns the must-not clauses.
func (e Expression) MustNot() []Clause { return e.mustNot }

// IsEmpty reports whether the expression has no clauses.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Clause is either a single Condition or a nested Expression.
type Clause struct {
	cond *Condition
	sub  *Expression
}

// Cond wraps a condition as a clause.
func Cond(c Condition) Clause { return Clause{cond: &c} }

// Sub wraps an expression as a clause.
func Sub(e Expression) Clause { return Clause{sub: &e} }

// Condition returns the wrapped condition, if any.
func (c Clause) Condition() (Condition, bool) {
	if c.cond == nil {
		return Condition{}, false
	}
	return *c.cond, true
}

// Expression returns the nested expression, if any.
func (c Clause) Expression() (Expression, bool) {
	if c.sub == nil {
		return Expression{}, false
	}
	return *c.sub, true
}

func (c Clause) isZero() bool {
	return c.cond == nil && (c.sub == nil || c.sub.IsEmpty())
}

func compact(in []Clause) []Clause {
	var out []Clause
	for _, c := range in {
		if !c.isZero() {
			out = append(out, c)
		}
	}
	return out
}

// Kind is the kind of a condition.
type Kind int

// Condition kinds.
const (
	// KindMatch matches a tag field against any of a set of values.
	KindMatch Kind = iota + 1
	// KindContains matches a tag field containing a substring.
	KindContains
	// KindRange matches a numeric field against a range.
	KindRange
	// KindText runs a full-text query, optionally scoped to one field.
	KindText
)

// Condition is a single filter predicate.
type Condition struct {
	kind      Kind
	key       string
	values    []string
	rangeExpr *Range
}

// NewMatch creates a tag match condition that holds when the field carries
// any of values.
func NewMatch(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	for _, v := range values {
		if v == "" {
			return Condition{}, fmt.Errorf("empty match value for key %q", key)
		}
	}
	return Condition{kind: KindMatch, key: key, values: values}, nil
}

// NewContains creates a substring condition on a tag field.
func NewContains(key, substr string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if substr == "" {
		return Condition{}, fmt.Errorf("substring is required for key %q", key)
	}
	return Condition{kind: KindContains, key: key, values: []string{substr}}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{kind: KindRange, key: key, rangeExpr: &r}, nil
}

// NewText creates a full-text condition. An empty key searches every text field.
func NewText(key, text string) (Condition, error) {
	if text == "" {
		return Condition{}, fmt.Errorf("text is required")
	}
	return Condition{kind: KindText, key: key, values: []string{text}}, nil
}

// Kind returns the condition kind.
func (c Condition) Kind() Kind { return c.kind }

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Values returns the match values, the substring or the text.
func (c Condition) Values() []string { return c.values }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// Between returns the inclusive range [lo, hi].
func Between(lo, hi float64) Range {
	return Range{gte: &lo, lte: &hi}
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }
