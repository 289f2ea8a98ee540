package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/postfilter/internal/db"
	"github.com/kailas-cloud/postfilter/internal/domain/filter"
)

const defaultListLimit = 10

// Search runs a filtered, optionally sorted, paginated FT.SEARCH.
func (s *Store) Search(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q == nil || q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := max(q.Offset, 0)

	args := []string{q.IndexName, queryString(q.Filters)}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	if q.SortBy != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		args = append(args, "SORTBY", q.SortBy, dir)
	}

	args = append(args,
		"LIMIT", strconv.Itoa(offset), strconv.Itoa(limit),
		"DIALECT", "2",
	)

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseListResult(raw)
}

// SearchCount returns the number of documents matching the query filters.
func (s *Store) SearchCount(ctx context.Context, q *db.ListQuery) (int, error) {
	if q == nil || q.IndexName == "" {
		return 0, fmt.Errorf("index name is required")
	}

	cmd := s.b().Arbitrary("FT.SEARCH").
		Args(q.IndexName, queryString(q.Filters), "LIMIT", "0", "0", "DIALECT", "2").
		Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// TagValues returns the distinct values of a TAG field via FT.TAGVALS.
func (s *Store) TagValues(ctx context.Context, index, field string) ([]string, error) {
	vals, err := s.do(ctx, s.b().Arbitrary("FT.TAGVALS").Args(index, field).Build()).AsStrSlice()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpTagVals, Err: err}
	}
	return vals, nil
}

// --- Result parsing ---

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		entries = append(entries, db.SearchEntry{Key: key, Fields: parseFieldPairs(fields)})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

// FilterQuery renders expr in FT.SEARCH query syntax. An empty expression matches everything.
func FilterQuery(expr filter.Expression) string {
	return queryString(expr)
}

func queryString(expr filter.Expression) string {
	if q := buildFilter(expr); q != "" {
		return q
	}
	return "*"
}

// buildFilter translates a filter.Expression into FT.SEARCH query syntax.
// Must clauses intersect, should clauses form one union, must_not clauses are negated.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	var parts []string
	for _, c := range expr.Must() {
		parts = append(parts, buildClause(c))
	}

	switch should := expr.Should(); len(should) {
	case 0:
	case 1:
		parts = append(parts, buildClause(should[0]))
	default:
		alts := make([]string, 0, len(should))
		for _, c := range should {
			alts = append(alts, buildClause(c))
		}
		parts = append(parts, "("+strings.Join(alts, " | ")+")")
	}

	for _, c := range expr.MustNot() {
		parts = append(parts, "-"+buildClause(c))
	}

	return strings.Join(parts, " ")
}

func buildClause(c filter.Clause) string {
	if cond, ok := c.Condition(); ok {
		return buildCondition(cond)
	}
	if sub, ok := c.Expression(); ok {
		return "(" + buildFilter(sub) + ")"
	}
	return ""
}

func buildCondition(cond filter.Condition) string {
	switch cond.Kind() {
	case filter.KindMatch:
		return buildTagFilter(cond.Key(), cond.Values())
	case filter.KindContains:
		return fmt.Sprintf("@%s:{*%s*}", cond.Key(), tagEscaper.Replace(cond.Values()[0]))
	case filter.KindRange:
		return buildNumericFilter(cond.Key(), *cond.Range())
	case filter.KindText:
		text := escapeQuery(cond.Values()[0])
		if cond.Key() == "" {
			return "(" + text + ")"
		}
		return fmt.Sprintf("@%s:(%s)", cond.Key(), text)
	}
	return ""
}

func buildTagFilter(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, " | "))
}

func buildNumericFilter(key string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = "(" + formatFloat(*r.GT())
	} else if r.GTE() != nil {
		minBound = formatFloat(*r.GTE())
	}

	if r.LT() != nil {
		maxBound = "(" + formatFloat(*r.LT())
	} else if r.LTE() != nil {
		maxBound = formatFloat(*r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
)
