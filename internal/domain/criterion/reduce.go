package criterion

type groupKey struct {
	fieldType FieldType
	key       string
}

// Reduce merges criteria sharing a (FieldType, Key) pair into one.
// Values are concatenated in input order, the first logic seen wins and the
// output keeps first-occurrence order of the groups. Reduce is idempotent.
func Reduce(in []Criterion) []Criterion {
	if len(in) == 0 {
		return nil
	}

	index := make(map[groupKey]int, len(in))
	out := make([]Criterion, 0, len(in))

	for _, c := range in {
		k := groupKey{fieldType: c.FieldType, key: c.Key}
		if i, ok := index[k]; ok {
			out[i].Values = append(out[i].Values, c.Values...)
			continue
		}
		index[k] = len(out)
		c.Values = append([]string(nil), c.Values...)
		out = append(out, c)
	}

	return out
}

// MixedLogic returns "fieldType:key" for every group whose sources declared
// different logics. Reduce keeps the first one; callers use this to log.
func MixedLogic(in []Criterion) []string {
	first := make(map[groupKey]Logic, len(in))
	reported := make(map[groupKey]bool)
	var out []string

	for _, c := range in {
		k := groupKey{fieldType: c.FieldType, key: c.Key}
		l, ok := first[k]
		if !ok {
			first[k] = c.Logic
			continue
		}
		if l != c.Logic && !reported[k] {
			reported[k] = true
			out = append(out, string(c.FieldType)+":"+c.Key)
		}
	}

	return out
}
