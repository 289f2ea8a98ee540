package content

import (
	"slices"
	"testing"
	"time"
)

func TestNew_Valid(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	item, err := New(42, Fields{
		PostType: "product",
		Title:    "Red boots",
		Date:     date,
		Terms:    map[string][]uint64{"category": {4}},
		Meta:     map[string][]string{"color": {"red"}},
		Numeric:  map[string]float64{"price": 99.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ID() != 42 {
		t.Errorf("ID() = %d, want 42", item.ID())
	}
	if item.Status() != StatusPublish {
		t.Errorf("Status() = %q, want publish", item.Status())
	}
	if !item.Modified().Equal(date) {
		t.Errorf("Modified() = %v, want %v", item.Modified(), date)
	}
	if item.Numeric()["price"] != 99.5 {
		t.Errorf("Numeric() = %v", item.Numeric())
	}
}

func TestNew_ClonesMaps(t *testing.T) {
	terms := map[string][]uint64{"category": {4}}
	meta := map[string][]string{"color": {"red"}}

	item, _ := New(1, Fields{PostType: "post", Title: "t", Terms: terms, Meta: meta})

	terms["category"][0] = 99
	meta["color"] = append(meta["color"], "blue")

	if item.Terms()["category"][0] != 4 {
		t.Error("Terms mutation leaked into item")
	}
	if len(item.Meta()["color"]) != 1 {
		t.Error("Meta mutation leaked into item")
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		id   uint64
		f    Fields
	}{
		{"zero id", 0, Fields{PostType: "post", Title: "t"}},
		{"no post type", 1, Fields{PostType: "  ", Title: "t"}},
		{"no title", 1, Fields{PostType: "post"}},
		{"bad status", 1, Fields{PostType: "post", Title: "t", Status: "trash"}},
	}
	for _, tt := range tests {
		if _, err := New(tt.id, tt.f); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestNewTerm(t *testing.T) {
	term, err := NewTerm(4, "category", "Winter Shoes", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if term.Slug != "winter-shoes" {
		t.Errorf("Slug = %q, want winter-shoes", term.Slug)
	}

	if _, err := NewTerm(4, "category", "x", "", 4); err == nil {
		t.Error("expected error for self parent")
	}
	if _, err := NewTerm(4, "", "x", "", 0); err == nil {
		t.Error("expected error for missing taxonomy")
	}
}

func TestDescendants(t *testing.T) {
	terms := []Term{
		{ID: 1, Name: "root"},
		{ID: 2, Parent: 1},
		{ID: 3, Parent: 1},
		{ID: 4, Parent: 2},
		{ID: 5},
		{ID: 1, Parent: 4}, // cycle
	}

	got := Descendants(terms, 1)
	if !slices.Equal(got, []uint64{1, 2, 3, 4}) {
		t.Errorf("Descendants(1) = %v", got)
	}
	if got := Descendants(terms, 5); !slices.Equal(got, []uint64{5}) {
		t.Errorf("Descendants(5) = %v", got)
	}
}
