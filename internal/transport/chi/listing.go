package chi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/postfilter/internal/domain/pagination"
	listinguc "github.com/kailas-cloud/postfilter/internal/usecase/listing"
)

// listingItem is one listed item in a JSON listing response.
type listingItem struct {
	ID      uint64    `json:"id"`
	Title   string    `json:"title"`
	Link    string    `json:"link,omitempty"`
	Excerpt string    `json:"excerpt,omitempty"`
	Date    time.Time `json:"date"`
}

// listingResponse is the JSON form of a rendered listing.
type listingResponse struct {
	HTML    string        `json:"html"`
	Items   []listingItem `json:"items"`
	Page    int           `json:"page"`
	MaxPage int           `json:"max_page"`
	Found   int           `json:"found"`
	Source  string        `json:"source"`
}

// Listing handles GET /listing: an independent read of one widget's listing.
// The overlay query comes from the filter token or, when enabled, the shared slot.
func (s *Server) Listing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	wd, err := s.svc.Widgets.Lookup(q.Get("widget"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	page := 0
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "page must be a positive integer")
			return
		}
	}

	res, err := s.svc.Listing.Render(r.Context(), listinguc.Request{
		Widget:      wd,
		Page:        page,
		PageContext: pageContext(q.Get("page_url"), q.Get("view"), q.Get("term_link"), wd.Query),
		FilterToken: q.Get("filter"),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, listingToResponse(res))
		return
	}
	writeHTML(w, http.StatusOK, res.HTML)
}

func listingToResponse(res listinguc.Result) listingResponse {
	items := make([]listingItem, len(res.Items))
	for i, it := range res.Items {
		items[i] = listingItem{
			ID:      it.ID(),
			Title:   it.Title(),
			Link:    it.Link(),
			Excerpt: it.Excerpt(),
			Date:    it.Date().UTC(),
		}
	}
	return listingResponse{
		HTML:    res.HTML,
		Items:   items,
		Page:    res.Page,
		MaxPage: res.MaxPage,
		Found:   res.Found,
		Source:  string(res.Source),
	}
}

// Page handles GET /: a top-level page load. It clears the shared slot and
// renders the filter form next to the unfiltered listing.
func (s *Server) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	id := q.Get("widget")
	if id == "" {
		if ids := s.svc.Widgets.IDs(); len(ids) > 0 {
			id = ids[0]
		}
	}
	wd, err := s.svc.Widgets.Lookup(id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := s.svc.Slot.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear filter slot on page load", zap.Error(err))
	}

	nonce, _, err := s.svc.Nonces.IssueNonce()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	pc := pagination.PageContext{
		Query:    wd.Query,
		View:     pagination.ParseView(q.Get("view")),
		Path:     r.URL.Path,
		Params:   q,
		TermLink: q.Get("term_link"),
	}
	res, err := s.svc.Listing.Render(ctx, listinguc.Request{
		Widget:      wd,
		Page:        pagination.Resolve(pc).CurrentPage(q, 0),
		PageContext: pc,
		Primary:     true,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	html, err := renderPage(pageData{
		Widget:   wd,
		Endpoint: s.endpoint,
		Nonce:    nonce,
		View:     string(pc.View),
		TermLink: pc.TermLink,
		Groups:   s.controlGroups(ctx),
		Listing:  res,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeHTML(w, http.StatusOK, html)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
