package postfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectAndReduce(t *testing.T) {
	groups := []Group{
		{Key: "color", FieldType: CustomField, Logic: OR, Control: Radios{Options: []ControlValue{
			{Value: "red", Selected: true},
			{Value: "blue", Selected: true},
		}}},
		{Key: "price", FieldType: Numeric, Logic: AND, Control: NumericRange{
			Min: NumericInput{Value: "10", Base: "0"},
			Max: NumericInput{Value: "", Base: "500"},
		}},
		{Key: "title", FieldType: CustomFieldLike, Logic: AND, Control: Text{Value: "   "}},
		{Key: "", FieldType: Taxonomy, Logic: AND, Control: Checkboxes{Options: []ControlValue{{Value: "1", Selected: true}}}},
	}

	got := Reduce(Collect(groups))
	require.Len(t, got, 2)

	assert.Equal(t, "color", got[0].Key)
	assert.Equal(t, []string{"red"}, got[0].Values, "radios keep the first selection")
	assert.Equal(t, "price", got[1].Key)
	assert.Equal(t, []string{"10", "500"}, got[1].Values, "empty end reads as its base")
}
