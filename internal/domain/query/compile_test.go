package query

import (
	"context"
	"reflect"
	"testing"

	"github.com/kailas-cloud/postfilter/internal/domain/archive"
	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
)

func tax(key string, logic criterion.Logic, values ...string) criterion.Criterion {
	return criterion.Criterion{FieldType: criterion.Taxonomy, Key: key, Values: values, Logic: logic}
}

func meta(key string, logic criterion.Logic, values ...string) criterion.Criterion {
	return criterion.Criterion{FieldType: criterion.CustomField, Key: key, Values: values, Logic: logic}
}

func num(key string, logic criterion.Logic, values ...string) criterion.Criterion {
	return criterion.Criterion{FieldType: criterion.Numeric, Key: key, Values: values, Logic: logic}
}

func TestCompile_Scenario_CategoryOrColorAnd(t *testing.T) {
	q := Compile(Input{
		Criteria: []criterion.Criterion{
			tax("category", criterion.OR, "4"),
			tax("category", criterion.OR, "7"),
			meta("color", criterion.AND, "red"),
		},
		GroupLogic: criterion.OR,
	})

	if q.Relation != RelationOR {
		t.Errorf("Relation = %q, want OR", q.Relation)
	}
	wantOr := []TermCondition{{Taxonomy: "category", Terms: []uint64{4, 7}, IncludeChildren: true}}
	if !reflect.DeepEqual(q.Taxonomy.Or, wantOr) {
		t.Errorf("Taxonomy.Or = %+v, want %+v", q.Taxonomy.Or, wantOr)
	}
	if len(q.Taxonomy.And) != 0 {
		t.Errorf("Taxonomy.And = %+v, want none", q.Taxonomy.And)
	}
	wantAnd := [][]MetaCondition{{{Key: "color", Values: []string{"red"}, Compare: Equals}}}
	if !reflect.DeepEqual(q.Meta.And, wantAnd) {
		t.Errorf("Meta.And = %+v, want %+v", q.Meta.And, wantAnd)
	}
}

func TestCompile_EmptySentinel(t *testing.T) {
	q := Compile(Input{GroupLogic: criterion.AND, DynamicFiltering: true, Page: 3})
	if !q.IsEmpty() {
		t.Fatalf("expected empty query, got %+v", q)
	}
	if !reflect.DeepEqual(q, Empty) {
		t.Errorf("expected the Empty sentinel, got %+v", q)
	}
}

func TestCompile_DroppedCriteriaYieldEmpty(t *testing.T) {
	q := Compile(Input{
		Criteria: []criterion.Criterion{
			tax("category", criterion.OR, "abc", ""),
			meta("", criterion.AND, "red"),
			num("price", criterion.AND, "cheap"),
		},
	})
	if !q.IsEmpty() {
		t.Errorf("expected empty query, got %+v", q)
	}
}

func TestCompile_SearchOrSortAloneIsNotEmpty(t *testing.T) {
	if q := Compile(Input{Search: " shoes "}); q.IsEmpty() || q.Search != "shoes" {
		t.Errorf("search: got %+v", q)
	}
	q := Compile(Input{Sort: Sort{Field: "title", Direction: "desc"}})
	if q.IsEmpty() {
		t.Fatal("sort override should not be empty")
	}
	if q.Sort.Direction != DESC {
		t.Errorf("Direction = %q, want DESC", q.Sort.Direction)
	}
	if q.Relation != "" {
		t.Errorf("Relation = %q, want none for zero groups", q.Relation)
	}
}

func TestCompile_DirectionWithoutFieldIsDefault(t *testing.T) {
	if q := Compile(Input{Sort: Sort{Direction: DESC}}); !q.IsEmpty() {
		t.Errorf("expected empty query, got %+v", q)
	}
}

func TestCompile_RelationPresence(t *testing.T) {
	tests := []struct {
		name     string
		criteria []criterion.Criterion
		dynamic  bool
		want     Relation
	}{
		{
			name:     "single AND group",
			criteria: []criterion.Criterion{tax("category", criterion.AND, "1")},
			want:     "",
		},
		{
			name:     "single OR group with two fields",
			criteria: []criterion.Criterion{tax("category", criterion.OR, "1"), tax("tag", criterion.OR, "2")},
			want:     "",
		},
		{
			name:     "two AND groups",
			criteria: []criterion.Criterion{tax("category", criterion.AND, "1"), tax("tag", criterion.AND, "2")},
			want:     RelationAND,
		},
		{
			name:     "single group with dynamic filtering",
			criteria: []criterion.Criterion{tax("category", criterion.AND, "1")},
			dynamic:  true,
			want:     RelationAND,
		},
		{
			name:     "taxonomy and numeric namespaces",
			criteria: []criterion.Criterion{tax("category", criterion.OR, "1"), num("price", criterion.OR, "1", "5")},
			want:     RelationAND,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Compile(Input{Criteria: tc.criteria, GroupLogic: criterion.AND, DynamicFiltering: tc.dynamic})
			if q.Relation != tc.want {
				t.Errorf("Relation = %q, want %q (groups=%d)", q.Relation, tc.want, q.Groups())
			}
		})
	}
}

func TestCompile_TaxonomyANDSplitsTerms(t *testing.T) {
	q := Compile(Input{Criteria: []criterion.Criterion{tax("category", criterion.AND, "4", "-7", "x", "9")}})

	want := [][]TermCondition{{
		{Taxonomy: "category", Terms: []uint64{4}, IncludeChildren: true},
		{Taxonomy: "category", Terms: []uint64{7}, IncludeChildren: true},
		{Taxonomy: "category", Terms: []uint64{9}, IncludeChildren: true},
	}}
	if !reflect.DeepEqual(q.Taxonomy.And, want) {
		t.Errorf("Taxonomy.And = %+v, want %+v", q.Taxonomy.And, want)
	}
}

func TestCompile_CustomFieldOR(t *testing.T) {
	q := Compile(Input{Criteria: []criterion.Criterion{meta("color", criterion.OR, "red", " ", "blue")}})

	want := []MetaCondition{{Key: "color", Values: []string{"red", "blue"}, Compare: In}}
	if !reflect.DeepEqual(q.Meta.Or, want) {
		t.Errorf("Meta.Or = %+v, want %+v", q.Meta.Or, want)
	}
}

func TestCompile_Like(t *testing.T) {
	q := Compile(Input{Criteria: []criterion.Criterion{
		{FieldType: criterion.CustomFieldLike, Key: "title", Values: []string{"red", "shoe"}, Logic: criterion.AND},
		{FieldType: criterion.CustomFieldLike, Key: "sku", Values: []string{"ab"}, Logic: criterion.OR},
	}})

	wantAnd := [][]MetaCondition{{{Key: "title", Values: []string{"red shoe"}, Compare: Like}}}
	if !reflect.DeepEqual(q.Meta.And, wantAnd) {
		t.Errorf("Meta.And = %+v, want %+v", q.Meta.And, wantAnd)
	}
	wantOr := []MetaCondition{{Key: "sku", Values: []string{"ab"}, Compare: Like}}
	if !reflect.DeepEqual(q.Meta.Or, wantOr) {
		t.Errorf("Meta.Or = %+v, want %+v", q.Meta.Or, wantOr)
	}
}

func TestCompile_Numeric(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   MetaCondition
	}{
		{"pair", []string{"10", "50"}, MetaCondition{Key: "price", Values: []string{"10", "50"}, Compare: Between, Numeric: true}},
		{"reversed pair", []string{"50", "10.5"}, MetaCondition{Key: "price", Values: []string{"10.5", "50"}, Compare: Between, Numeric: true}},
		{"single", []string{"7"}, MetaCondition{Key: "price", Values: []string{"7"}, Compare: Equals, Numeric: true}},
		{"many", []string{"1", "2", "3"}, MetaCondition{Key: "price", Values: []string{"1", "2", "3"}, Compare: In, Numeric: true}},
		{"junk dropped", []string{"1", "NaN", "x", "3"}, MetaCondition{Key: "price", Values: []string{"1", "3"}, Compare: Between, Numeric: true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Compile(Input{Criteria: []criterion.Criterion{num("price", criterion.AND, tc.values...)}})
			want := [][]MetaCondition{{tc.want}}
			if !reflect.DeepEqual(q.Numeric.And, want) {
				t.Errorf("Numeric.And = %+v, want %+v", q.Numeric.And, want)
			}
			if len(q.Meta.And) != 0 || len(q.Meta.Or) != 0 {
				t.Errorf("numeric leaked into meta namespace: %+v", q.Meta)
			}
		})
	}
}

func TestCompile_SchemaDropsUnknownKeys(t *testing.T) {
	schema := NewSchema([]string{"category"}, []string{"color"}, []string{"price"})
	q := Compile(Input{
		Criteria: []criterion.Criterion{
			tax("category", criterion.OR, "1"),
			tax("secret", criterion.OR, "2"),
			meta("price", criterion.AND, "3"),
			num("price", criterion.AND, "3"),
		},
		Schema: schema,
	})

	if len(q.Taxonomy.Or) != 1 || q.Taxonomy.Or[0].Taxonomy != "category" {
		t.Errorf("Taxonomy.Or = %+v", q.Taxonomy.Or)
	}
	if q.Meta.Groups() != 0 {
		t.Errorf("Meta = %+v, want none", q.Meta)
	}
	if q.Numeric.Groups() != 1 {
		t.Errorf("Numeric groups = %d, want 1", q.Numeric.Groups())
	}
}

func TestCompile_KeysSanitized(t *testing.T) {
	q := Compile(Input{Criteria: []criterion.Criterion{tax("Product Cat", criterion.OR, "1")}})
	if len(q.Taxonomy.Or) != 1 || q.Taxonomy.Or[0].Taxonomy != "productcat" {
		t.Errorf("Taxonomy.Or = %+v", q.Taxonomy.Or)
	}
}

func TestCompile_KeysSanitizedBeforeReduce(t *testing.T) {
	q := Compile(Input{Criteria: []criterion.Criterion{
		tax("Category", criterion.AND, "1"),
		tax("category", criterion.AND, "2"),
	}})

	if len(q.Taxonomy.And) != 1 {
		t.Fatalf("Taxonomy.And = %+v, want one group", q.Taxonomy.And)
	}
	if q.Relation != "" {
		t.Errorf("Relation = %q, want none for a single field", q.Relation)
	}
}

func TestCompile_ContextConstraint(t *testing.T) {
	base := []criterion.Criterion{tax("category", criterion.OR, "1")}
	tests := []struct {
		name string
		ctx  archive.Context
		want *ContextConstraint
	}{
		{"author", archive.Context{Kind: archive.Author, ID: 5}, &ContextConstraint{Kind: ContextAuthor, ID: 5}},
		{"category", archive.Context{Kind: archive.Category, ID: 3}, &ContextConstraint{Kind: ContextTerm, Taxonomy: "category", ID: 3}},
		{"taxonomy", archive.Context{Kind: archive.Taxonomy, Taxonomy: "genre", ID: 8}, &ContextConstraint{Kind: ContextTerm, Taxonomy: "genre", ID: 8}},
		{"tag", archive.Context{Kind: archive.Tag, ID: 2}, &ContextConstraint{Kind: ContextTag, ID: 2}},
		{"post type", archive.Context{Kind: archive.PostType, PostType: "product"}, &ContextConstraint{Kind: ContextPostType, PostType: "product"}},
		{"search", archive.Context{Kind: archive.Search, Search: "boots"}, &ContextConstraint{Kind: ContextSearch, Search: "boots"}},
		{"date", archive.Context{Kind: archive.Date, ID: 2024}, nil},
		{"none", archive.Context{}, nil},
		{"author without id", archive.Context{Kind: archive.Author}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Compile(Input{Criteria: base, DynamicFiltering: true, Archive: tc.ctx})
			if !reflect.DeepEqual(q.Context, tc.want) {
				t.Errorf("Context = %+v, want %+v", q.Context, tc.want)
			}
		})
	}
}

func TestCompile_NoContextWithoutDynamicFiltering(t *testing.T) {
	q := Compile(Input{
		Criteria: []criterion.Criterion{tax("category", criterion.OR, "1")},
		Archive:  archive.Context{Kind: archive.Author, ID: 5},
	})
	if q.Context != nil {
		t.Errorf("Context = %+v, want nil", q.Context)
	}
}

func TestCompile_PageDefaultsToOne(t *testing.T) {
	q := Compile(Input{Search: "x"})
	if q.Page != 1 {
		t.Errorf("Page = %d, want 1", q.Page)
	}
}

func TestContext_RoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no query in empty context")
	}
	q := Compile(Input{Search: "x"})
	got, ok := FromContext(WithContext(context.Background(), q))
	if !ok || got.Search != "x" {
		t.Errorf("FromContext() = %+v, %v", got, ok)
	}
}
