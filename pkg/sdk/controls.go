package postfilter

import (
	"github.com/kailas-cloud/postfilter/internal/domain/control"
	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
)

// Criterion is one filter instruction.
type Criterion = criterion.Criterion

// FieldType is the kind of field a criterion targets.
type FieldType = criterion.FieldType

// Logic is the combine rule of a filter group.
type Logic = criterion.Logic

// Field types and logics.
const (
	Taxonomy        = criterion.Taxonomy
	CustomField     = criterion.CustomField
	CustomFieldLike = criterion.CustomFieldLike
	Numeric         = criterion.Numeric

	AND = criterion.AND
	OR  = criterion.OR
)

// Control models. See Group for how a control is bound to a field.
type (
	Group        = control.Group
	Control      = control.Control
	ControlValue = control.Option
	Checkboxes   = control.Checkboxes
	Radios       = control.Radios
	Select       = control.Select
	Text         = control.Text
	NumericRange = control.NumericRange
	NumericInput = control.NumericInput
)

// Collect emits one criterion per checked or filled control value.
func Collect(groups []Group) []Criterion { return control.Collect(groups) }

// Reduce merges criteria sharing a field type and key; the first logic wins.
func Reduce(in []Criterion) []Criterion { return criterion.Reduce(in) }
