// Package criterion models normalized filter instructions.
package criterion

import (
	"fmt"
	"strings"
)

// FieldType is the kind of field a criterion targets.
type FieldType string

// Field type constants.
const (
	Taxonomy        FieldType = "taxonomy"
	CustomField     FieldType = "custom_field"
	CustomFieldLike FieldType = "custom_field_like"
	Numeric         FieldType = "numeric"
)

// IsValid checks if the field type is one of the supported values.
func (f FieldType) IsValid() bool {
	switch f {
	case Taxonomy, CustomField, CustomFieldLike, Numeric:
		return true
	}
	return false
}

// Logic is the combine rule declared on a filter group.
type Logic string

// Logic constants.
const (
	AND Logic = "AND"
	OR  Logic = "OR"
)

// IsValid checks if the logic is AND or OR.
func (l Logic) IsValid() bool {
	return l == AND || l == OR
}

// ParseLogic accepts any letter case. Anything other than "and" reads as OR,
// matching how rows without a declared logic have always been treated.
func ParseLogic(s string) Logic {
	if strings.EqualFold(strings.TrimSpace(s), string(AND)) {
		return AND
	}
	return OR
}

// Criterion is one filter instruction: a field, its raw values and the
// logic of the group it came from. Values keep encounter order and may
// contain duplicates.
type Criterion struct {
	FieldType FieldType `json:"field_type" yaml:"field_type"`
	Key       string    `json:"key" yaml:"key"`
	Values    []string  `json:"values" yaml:"values"`
	Logic     Logic     `json:"logic" yaml:"logic"`
}

// New creates a criterion after checking its enums and key.
func New(ft FieldType, key string, values []string, logic Logic) (Criterion, error) {
	if !ft.IsValid() {
		return Criterion{}, fmt.Errorf("unknown field type %q", ft)
	}
	if !logic.IsValid() {
		return Criterion{}, fmt.Errorf("unknown logic %q", logic)
	}
	if SanitizeKey(key) == "" {
		return Criterion{}, fmt.Errorf("criterion key is required")
	}
	return Criterion{FieldType: ft, Key: key, Values: values, Logic: logic}, nil
}

// SanitizeKey lowercases key and strips everything except [a-z0-9_-].
func SanitizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range strings.ToLower(key) {
		isAlpha := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		if isAlpha || isDigit || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
