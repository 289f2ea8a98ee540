package control

import (
	"reflect"
	"testing"

	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
)

func TestCollect_Checkboxes(t *testing.T) {
	groups := []Group{{
		Key:       "category",
		FieldType: criterion.Taxonomy,
		Logic:     criterion.OR,
		Control: Checkboxes{Options: []Option{
			{Value: "4", Selected: true},
			{Value: "5"},
			{Value: "7", Selected: true},
		}},
	}}

	got := Collect(groups)
	want := []criterion.Criterion{
		{FieldType: criterion.Taxonomy, Key: "category", Values: []string{"4"}, Logic: criterion.OR},
		{FieldType: criterion.Taxonomy, Key: "category", Values: []string{"7"}, Logic: criterion.OR},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Collect() = %+v, want %+v", got, want)
	}
}

func TestCollect_RadiosAndSingleSelectTakeFirst(t *testing.T) {
	opts := []Option{{Value: "a", Selected: true}, {Value: "b", Selected: true}}
	groups := []Group{
		{Key: "r", FieldType: criterion.CustomField, Logic: criterion.AND, Control: Radios{Options: opts}},
		{Key: "s", FieldType: criterion.CustomField, Logic: criterion.AND, Control: Select{Options: opts}},
		{Key: "m", FieldType: criterion.CustomField, Logic: criterion.AND, Control: Select{Options: opts, Multiple: true}},
	}

	got := Collect(groups)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4: %+v", len(got), got)
	}
	if got[0].Key != "r" || got[1].Key != "s" || got[2].Key != "m" || got[3].Key != "m" {
		t.Errorf("keys = %s %s %s %s", got[0].Key, got[1].Key, got[2].Key, got[3].Key)
	}
}

func TestCollect_SelectSkipsEmptyOption(t *testing.T) {
	groups := []Group{{
		Key:       "color",
		FieldType: criterion.CustomField,
		Logic:     criterion.OR,
		Control:   Select{Options: []Option{{Value: "", Label: "Any", Selected: true}}},
	}}

	if got := Collect(groups); len(got) != 0 {
		t.Errorf("expected no criteria, got %+v", got)
	}
}

func TestCollect_Text(t *testing.T) {
	groups := []Group{
		{Key: "title", FieldType: criterion.CustomFieldLike, Logic: criterion.AND, Control: Text{Value: "  "}},
		{Key: "sku", FieldType: criterion.CustomFieldLike, Logic: criterion.AND, Control: Text{Value: " ab-1 "}},
	}

	got := Collect(groups)
	want := []criterion.Criterion{
		{FieldType: criterion.CustomFieldLike, Key: "sku", Values: []string{"ab-1"}, Logic: criterion.AND},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Collect() = %+v, want %+v", got, want)
	}
}

func TestCollect_NumericUnchangedEmitsNothing(t *testing.T) {
	groups := []Group{{
		Key:       "price",
		FieldType: criterion.Numeric,
		Logic:     criterion.AND,
		Control: NumericRange{
			Min: NumericInput{Value: "10", Base: "10"},
			Max: NumericInput{Value: "10", Base: "10"},
		},
	}}

	if got := Collect(groups); len(got) != 0 {
		t.Errorf("expected zero numeric criteria, got %+v", got)
	}
}

func TestCollect_NumericChangedEmitsPair(t *testing.T) {
	groups := []Group{{
		Key:       "price",
		FieldType: criterion.Numeric,
		Logic:     criterion.AND,
		Control: NumericRange{
			Min: NumericInput{Value: "", Base: "5"},
			Max: NumericInput{Value: "50", Base: "100"},
		},
	}}

	got := criterion.Reduce(Collect(groups))
	want := []criterion.Criterion{
		{FieldType: criterion.Numeric, Key: "price", Values: []string{"5", "50"}, Logic: criterion.AND},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Collect() = %+v, want %+v", got, want)
	}
}

func TestCollect_SkipsUnrecognizedGroups(t *testing.T) {
	checked := Checkboxes{Options: []Option{{Value: "1", Selected: true}}}
	groups := []Group{
		{Key: "", FieldType: criterion.Taxonomy, Logic: criterion.OR, Control: checked},
		{Key: "category", FieldType: "style", Logic: criterion.OR, Control: checked},
		{Key: "category", FieldType: criterion.Taxonomy, Logic: criterion.OR},
	}

	if got := Collect(groups); len(got) != 0 {
		t.Errorf("expected skipped groups, got %+v", got)
	}
}

func TestCollect_MissingLogicReadsAsOR(t *testing.T) {
	groups := []Group{{
		Key:       "category",
		FieldType: criterion.Taxonomy,
		Control:   Checkboxes{Options: []Option{{Value: "1", Selected: true}}},
	}}

	got := Collect(groups)
	if len(got) != 1 || got[0].Logic != criterion.OR {
		t.Errorf("Collect() = %+v, want one OR criterion", got)
	}
}
