package content

import (
	"fmt"
	"strings"
)

// Term is a taxonomy term. Parent is zero for top-level terms.
type Term struct {
	ID       uint64 `json:"id"`
	Taxonomy string `json:"taxonomy"`
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	Parent   uint64 `json:"parent,omitempty"`
}

// NewTerm validates and creates a Term. Slug defaults to the lowercased name.
func NewTerm(id uint64, taxonomy, name, slug string, parent uint64) (Term, error) {
	if id == 0 {
		return Term{}, fmt.Errorf("term ID is required")
	}
	if taxonomy == "" {
		return Term{}, fmt.Errorf("taxonomy is required")
	}
	if strings.TrimSpace(name) == "" {
		return Term{}, fmt.Errorf("term name is required")
	}
	if parent == id {
		return Term{}, fmt.Errorf("term %d cannot be its own parent", id)
	}
	if slug == "" {
		slug = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
	}
	return Term{ID: id, Taxonomy: taxonomy, Name: name, Slug: slug, Parent: parent}, nil
}

// Descendants returns id and every term below it in terms, in breadth-first order.
// Cycles in the parent chain are tolerated.
func Descendants(terms []Term, id uint64) []uint64 {
	children := make(map[uint64][]uint64, len(terms))
	for _, t := range terms {
		if t.Parent != 0 {
			children[t.Parent] = append(children[t.Parent], t.ID)
		}
	}

	out := []uint64{id}
	seen := map[uint64]bool{id: true}
	for i := 0; i < len(out); i++ {
		for _, c := range children[out[i]] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
