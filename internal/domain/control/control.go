// Package control models rendered filter controls and collects criteria
// from their current state.
package control

import (
	"strings"

	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
)

// Control is one of the supported form controls. The set is closed:
// Checkboxes, Radios, Select, Text and NumericRange.
type Control interface {
	isControl()
}

// Option is a selectable value of a checkbox set, radio set or select.
type Option struct {
	Value    string `json:"value" yaml:"value"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Selected bool   `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// Checkboxes is a set of independent checkboxes.
type Checkboxes struct {
	Options []Option
}

// Radios is a radio group. Only the first selected option counts.
type Radios struct {
	Options []Option
}

// Select is a drop-down, single or multiple.
type Select struct {
	Options  []Option
	Multiple bool
}

// Text is a free-text input.
type Text struct {
	Value string
}

// NumericInput is one end of a numeric range with the value it was
// rendered with.
type NumericInput struct {
	Value string
	Base  string
}

// NumericRange is a min/max input pair.
type NumericRange struct {
	Min NumericInput
	Max NumericInput
}

func (Checkboxes) isControl()   {}
func (Radios) isControl()       {}
func (Select) isControl()       {}
func (Text) isControl()         {}
func (NumericRange) isControl() {}

// Group binds a control to the field it filters and the logic declared for it.
type Group struct {
	Key       string
	FieldType criterion.FieldType
	Logic     criterion.Logic
	Control   Control
}

// Collect emits one criterion per checked or filled control value, in group
// order. Groups without a usable key or field type are skipped.
func Collect(groups []Group) []criterion.Criterion {
	var out []criterion.Criterion

	for _, g := range groups {
		key := strings.TrimSpace(g.Key)
		if key == "" || !g.FieldType.IsValid() || g.Control == nil {
			continue
		}
		logic := g.Logic
		if !logic.IsValid() {
			logic = criterion.OR
		}

		for _, v := range values(g.Control) {
			out = append(out, criterion.Criterion{
				FieldType: g.FieldType,
				Key:       key,
				Values:    []string{v},
				Logic:     logic,
			})
		}
	}

	return out
}

func values(c Control) []string {
	switch c := c.(type) {
	case Checkboxes:
		return selected(c.Options, false)
	case Radios:
		return selected(c.Options, true)
	case Select:
		return selected(c.Options, !c.Multiple)
	case Text:
		if v := strings.TrimSpace(c.Value); v != "" {
			return []string{v}
		}
		return nil
	case NumericRange:
		return c.values()
	}
	return nil
}

func selected(opts []Option, firstOnly bool) []string {
	var out []string
	for _, o := range opts {
		if !o.Selected || strings.TrimSpace(o.Value) == "" {
			continue
		}
		out = append(out, o.Value)
		if firstOnly {
			break
		}
	}
	return out
}

// values returns the pair [min, max] when either end moved away from its
// base value. An empty end reads as its base.
func (r NumericRange) values() []string {
	lo, loChanged := r.Min.resolve()
	hi, hiChanged := r.Max.resolve()
	if !loChanged && !hiChanged {
		return nil
	}

	var out []string
	if lo != "" {
		out = append(out, lo)
	}
	if hi != "" {
		out = append(out, hi)
	}
	return out
}

func (n NumericInput) resolve() (string, bool) {
	v := strings.TrimSpace(n.Value)
	base := strings.TrimSpace(n.Base)
	if v == "" {
		return base, false
	}
	return v, v != base
}
