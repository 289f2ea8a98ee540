package chi

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
	"github.com/kailas-cloud/postfilter/internal/domain/widget"
	facetsuc "github.com/kailas-cloud/postfilter/internal/usecase/facets"
	listinguc "github.com/kailas-cloud/postfilter/internal/usecase/listing"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Widget.ID}}</title></head>
<body>
<form class="postfilter-form" data-widget="{{.Widget.ID}}" data-endpoint="{{.Endpoint}}" data-pagination="{{.Widget.Pagination}}">
<input type="hidden" name="nonce" value="{{.Nonce}}">
<input type="hidden" name="widget_id" value="{{.Widget.ID}}">
<input type="hidden" name="view" value="{{.View}}">
<input type="hidden" name="term_link" value="{{.TermLink}}">
{{range .Groups}}<fieldset class="postfilter-group" data-field-type="{{.FieldType}}" data-key="{{.Key}}" data-logic="{{.Logic}}">
<legend>{{.Key}}</legend>
{{if eq .Control "checkbox"}}{{range .Options}}<label{{if .Child}} class="child"{{end}}><input type="checkbox" value="{{.Value}}"> {{.Label}}</label>
{{end}}{{else if eq .Control "select"}}<select><option value="">&mdash;</option>{{range .Options}}<option value="{{.Value}}">{{.Label}}</option>{{end}}</select>
{{else}}<input type="number" step="any" data-end="min" data-base="{{.Min}}" value="{{.Min}}"> <input type="number" step="any" data-end="max" data-base="{{.Max}}" value="{{.Max}}">
{{end}}</fieldset>
{{end}}<input type="search" name="search_query">
<button type="submit">Filter</button> <button type="reset">Reset</button>
</form>
{{.Fragment}}
</body></html>
`))

type pageData struct {
	Widget   widget.Widget
	Endpoint string
	Nonce    string
	View     string
	TermLink string
	Groups   []controlGroup
	Listing  listinguc.Result
}

type controlOption struct {
	Value string
	Label string
	Child bool
}

type controlGroup struct {
	FieldType criterion.FieldType
	Key       string
	Logic     criterion.Logic
	Control   string // checkbox, select or range
	Options   []controlOption
	Min, Max  string
}

func renderPage(d pageData) (string, error) {
	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, struct {
		pageData
		Fragment template.HTML
	}{d, template.HTML(d.Listing.HTML)}) //nolint:gosec // fragment is rendered by html/template
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return buf.String(), nil
}

// controlGroups builds one control group per declared field. Fields whose
// options cannot be enumerated are left out of the form.
func (s *Server) controlGroups(ctx context.Context) []controlGroup {
	var groups []controlGroup
	add := func(kind facetsuc.Kind, ft criterion.FieldType, keys []string) {
		for _, key := range keys {
			f, err := s.svc.Facets.Get(ctx, kind, key, false)
			if err != nil {
				s.logger.Warn("failed to enumerate facet", zap.String("kind", string(kind)),
					zap.String("key", key), zap.Error(err))
				continue
			}
			if g, ok := controlFromFacet(ft, f); ok {
				groups = append(groups, g)
			}
		}
	}
	add(facetsuc.Terms, criterion.Taxonomy, s.schema.Taxonomies())
	add(facetsuc.Meta, criterion.CustomField, s.schema.MetaFields())
	add(facetsuc.Numeric, criterion.Numeric, s.schema.NumericFields())
	return groups
}

func controlFromFacet(ft criterion.FieldType, f facetsuc.Facet) (controlGroup, bool) {
	g := controlGroup{FieldType: ft, Key: f.Key, Logic: criterion.OR}
	switch f.Kind {
	case facetsuc.Terms:
		g.Control = "checkbox"
	case facetsuc.Meta:
		g.Control = "select"
	case facetsuc.Numeric:
		if f.Min == nil || f.Max == nil {
			return controlGroup{}, false
		}
		g.Control = "range"
		g.Min = strconv.FormatFloat(*f.Min, 'f', -1, 64)
		g.Max = strconv.FormatFloat(*f.Max, 'f', -1, 64)
		return g, true
	default:
		return controlGroup{}, false
	}
	if len(f.Options) == 0 {
		return controlGroup{}, false
	}
	for _, o := range f.Options {
		g.Options = append(g.Options, controlOption{Value: o.Value, Label: o.Label, Child: o.Parent != 0})
	}
	return g, true
}
