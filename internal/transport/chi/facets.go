package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/postfilter/internal/domain"
	facetsuc "github.com/kailas-cloud/postfilter/internal/usecase/facets"
)

// Facet handles GET /facets/{kind}/{key}. Editors always read fresh options.
func (s *Server) Facet(w http.ResponseWriter, r *http.Request) {
	kind, ok := facetsuc.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		s.handleDomainError(w, fmt.Errorf("facet kind %q: %w", chi.URLParam(r, "kind"), domain.ErrNotFound))
		return
	}

	f, err := s.svc.Facets.Get(r.Context(), kind, chi.URLParam(r, "key"), IsEditor(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if f.Options == nil {
		f.Options = []facetsuc.Option{}
	}
	writeJSON(w, http.StatusOK, f)
}
