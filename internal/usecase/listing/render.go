package listing

import (
	"bytes"
	"fmt"
	"html/template"

	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
	"github.com/kailas-cloud/postfilter/internal/domain/pagination"
	"github.com/kailas-cloud/postfilter/internal/domain/widget"
)

// pageWindow is how many numbered links are shown on each side of the current page.
const pageWindow = 2

var fragmentTmpl = template.Must(template.New("listing").Parse(
	`<div class="postfilter-listing" data-widget="{{.Widget}}" data-page="{{.Page}}" data-max-page="{{.MaxPage}}" data-found="{{.Found}}">` +
		`{{if .Items}}<ul class="postfilter-items">{{range .Items}}` +
		`<li class="postfilter-item" data-id="{{.ID}}"><a href="{{.Link}}">{{.Title}}</a>` +
		`{{with .Excerpt}}<p class="postfilter-excerpt">{{.}}</p>{{end}}</li>` +
		`{{end}}</ul>` +
		`{{else}}<p class="postfilter-nothing-found">{{.NothingFound}}</p>{{end}}` +
		`{{with .Nav}}<nav class="postfilter-pagination" data-page="{{.Page}}" data-max-page="{{.Max}}">` +
		`{{with .Prev}}<a class="prev page-numbers" href="{{.}}">&laquo;</a>{{end}}` +
		`{{range .Links}}{{if .Gap}}<span class="page-numbers dots">&hellip;</span>` +
		`{{else if .Current}}<span aria-current="page" class="page-numbers current">{{.N}}</span>` +
		`{{else}}<a class="page-numbers" href="{{.Href}}">{{.N}}</a>{{end}}{{end}}` +
		`{{with .Next}}<a class="next page-numbers" href="{{.}}">&raquo;</a>{{end}}` +
		`</nav>{{end}}` +
		`{{with .More}}<a class="postfilter-load-more" href="{{.Href}}" data-next-page="{{.N}}">Load more</a>{{end}}` +
		`</div>`,
))

type pageLink struct {
	N       int
	Href    string
	Current bool
	Gap     bool
}

type nav struct {
	Page  int
	Max   int
	Prev  string
	Next  string
	Links []pageLink
}

type fragmentData struct {
	Widget       string
	Page         int
	MaxPage      int
	Found        int
	Items        []domcontent.Item
	NothingFound string
	Nav          *nav
	More         *pageLink
}

func renderFragment(w widget.Widget, pc pagination.PageContext, r Result) (string, error) {
	data := fragmentData{
		Widget:       w.ID,
		Page:         r.Page,
		MaxPage:      r.MaxPage,
		Found:        r.Found,
		Items:        r.Items,
		NothingFound: w.NothingFound,
	}
	if data.NothingFound == "" {
		data.NothingFound = widget.DefaultNothingFound
	}

	if r.MaxPage > 1 {
		f := pagination.Resolve(pc)
		switch w.Pagination {
		case pagination.Numbered, pagination.NumberedPrevNext:
			data.Nav = buildNav(f, pc, r.Page, r.MaxPage, w.Pagination == pagination.NumberedPrevNext)
		case pagination.LoadMoreClick, pagination.LoadMoreInfinite:
			if r.Page < r.MaxPage {
				data.More = &pageLink{N: r.Page + 1, Href: f.Link(pc, r.Page+1)}
			}
		case pagination.None:
		}
	}

	var buf bytes.Buffer
	if err := fragmentTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render listing %s: %w", w.ID, err)
	}
	return buf.String(), nil
}

// buildNav lists the first page, the last page and a window around the
// current one, with gaps between them.
func buildNav(f pagination.Formula, pc pagination.PageContext, current, maxPage int, prevNext bool) *nav {
	n := &nav{Page: current, Max: maxPage}
	if prevNext {
		if current > 1 {
			n.Prev = f.Link(pc, current-1)
		}
		if current < maxPage {
			n.Next = f.Link(pc, current+1)
		}
	}

	last := 0
	for p := 1; p <= maxPage; p++ {
		if p != 1 && p != maxPage && (p < current-pageWindow || p > current+pageWindow) {
			continue
		}
		if last != 0 && p > last+1 {
			n.Links = append(n.Links, pageLink{Gap: true})
		}
		n.Links = append(n.Links, pageLink{N: p, Href: f.Link(pc, p), Current: p == current})
		last = p
	}
	return n
}
