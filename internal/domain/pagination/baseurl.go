package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryKind is the kind of query a listing renders.
type QueryKind string

// Query kinds.
const (
	MainQuery   QueryKind = "main"
	CustomQuery QueryKind = "custom"
	UserQuery   QueryKind = "user"
)

// ParseQueryKind maps a widget setting to a QueryKind; unknown values are custom queries.
func ParseQueryKind(s string) QueryKind {
	switch k := QueryKind(strings.ToLower(s)); k {
	case MainQuery, UserQuery:
		return k
	}
	return CustomQuery
}

// View is the kind of page the listing is embedded on.
type View string

// Views.
const (
	OtherView           View = "other"
	HomeView            View = "home"
	ArchiveView         View = "archive"
	PostTypeArchiveView View = "post_type_archive"
	FrontPageView       View = "front_page"
	AuthorView          View = "author"
	SingularView        View = "singular"
	SearchView          View = "search"
	TaxonomyView        View = "taxonomy"
)

// ParseView maps a page type to a View; unknown values are OtherView.
func ParseView(s string) View {
	switch v := View(strings.ToLower(s)); v {
	case HomeView, ArchiveView, PostTypeArchiveView, FrontPageView, AuthorView,
		SingularView, SearchView, TaxonomyView:
		return v
	}
	return OtherView
}

// PageContext describes the page a listing renders on.
type PageContext struct {
	Query    QueryKind
	View     View
	Path     string     // request path without query
	Params   url.Values // request query parameters
	TermLink string     // canonical link of the term archive, TaxonomyView only
}

// Formula is the way page N of a listing is addressed.
type Formula string

// Formulas.
const (
	PagedVar    Formula = "paged_var"
	PageNumArg  Formula = "page_num_arg"
	SearchPath  Formula = "search_path"
	TermSegment Formula = "term_segment"
	GenericPage Formula = "generic_paged"
)

// Page parameters read and written by the formulas.
const (
	PagedParam   = "paged"
	PageNumParam = "page_num"
)

// Resolve picks the formula for a page context. Every context maps to
// exactly one formula; anything unrecognized falls back to GenericPage.
func Resolve(pc PageContext) Formula {
	if pc.Query == MainQuery {
		return PagedVar
	}
	switch pc.View {
	case HomeView, ArchiveView, PostTypeArchiveView, FrontPageView, AuthorView, SingularView:
		return PageNumArg
	case SearchView:
		return SearchPath
	case TaxonomyView:
		if pc.TermLink != "" {
			return TermSegment
		}
		return GenericPage
	case OtherView:
		return GenericPage
	}
	return GenericPage
}

// Param returns the query parameter that carries the current page.
func (f Formula) Param() string {
	switch f {
	case PageNumArg, SearchPath:
		return PageNumParam
	case PagedVar, TermSegment, GenericPage:
		return PagedParam
	}
	return PagedParam
}

// Link returns the URL of page n.
func (f Formula) Link(pc PageContext, n int) string {
	n = max(n, 1)
	switch f {
	case PageNumArg:
		params := cloneValues(pc.Params)
		params.Set(PageNumParam, strconv.Itoa(n))
		return pc.Path + "?" + params.Encode()
	case SearchPath:
		return pc.Path + "?" + PageNumParam + "=" + strconv.Itoa(n)
	case TermSegment:
		base := strings.TrimRight(pc.TermLink, "/") + "/"
		if n == 1 {
			return base
		}
		return base + "page/" + strconv.Itoa(n) + "/"
	case PagedVar, GenericPage:
		if n == 1 {
			return pc.Path
		}
		return pc.Path + "?" + PagedParam + "=" + strconv.Itoa(n)
	}
	return pc.Path
}

// CurrentPage reads the current page for the formula from params and clamps
// it to [1, total]. A total below 1 only applies the lower bound.
func (f Formula) CurrentPage(params url.Values, total int) int {
	n, err := strconv.Atoi(params.Get(f.Param()))
	if err != nil || n < 1 {
		n = 1
	}
	if total > 0 && n > total {
		n = total
	}
	return n
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
