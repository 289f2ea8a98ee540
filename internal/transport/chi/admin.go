package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
)

// itemRequest is the body of PUT /admin/items/{id}.
type itemRequest struct {
	PostType string              `json:"post_type" validate:"required,max=64"`
	Status   string              `json:"status" validate:"omitempty,oneof=publish draft private"`
	Author   uint64              `json:"author"`
	Title    string              `json:"title" validate:"required,max=1024"`
	Excerpt  string              `json:"excerpt"`
	Link     string              `json:"link" validate:"omitempty,max=2048"`
	Date     time.Time           `json:"date" validate:"required"`
	Modified time.Time           `json:"modified"`
	Terms    map[string][]uint64 `json:"terms"`
	Meta     map[string][]string `json:"meta"`
	Numeric  map[string]float64  `json:"numeric"`
}

// itemResponse is the JSON form of a stored item.
type itemResponse struct {
	ID       uint64              `json:"id"`
	PostType string              `json:"post_type"`
	Status   string              `json:"status"`
	Author   uint64              `json:"author,omitempty"`
	Title    string              `json:"title"`
	Excerpt  string              `json:"excerpt,omitempty"`
	Link     string              `json:"link,omitempty"`
	Date     time.Time           `json:"date"`
	Modified time.Time           `json:"modified"`
	Terms    map[string][]uint64 `json:"terms,omitempty"`
	Meta     map[string][]string `json:"meta,omitempty"`
	Numeric  map[string]float64  `json:"numeric,omitempty"`
}

// termRequest is the body of PUT /admin/terms/{taxonomy}/{id}.
type termRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Slug   string `json:"slug" validate:"max=200"`
	Parent uint64 `json:"parent"`
}

// PutItem handles PUT /admin/items/{id}.
func (s *Server) PutItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, validationMessage(err))
		return
	}

	it, err := domcontent.New(id, domcontent.Fields{
		PostType: req.PostType,
		Status:   domcontent.Status(req.Status),
		Author:   req.Author,
		Title:    req.Title,
		Excerpt:  req.Excerpt,
		Link:     req.Link,
		Date:     req.Date,
		Modified: req.Modified,
		Terms:    req.Terms,
		Meta:     req.Meta,
		Numeric:  req.Numeric,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	created, err := s.svc.Content.UpsertItem(r.Context(), it)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, itemToResponse(it))
}

// GetItem handles GET /admin/items/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	it, err := s.svc.Content.GetItem(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToResponse(it))
}

// PutTerm handles PUT /admin/terms/{taxonomy}/{id}.
func (s *Server) PutTerm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req termRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, validationMessage(err))
		return
	}

	t, err := domcontent.NewTerm(id, chi.URLParam(r, "taxonomy"), req.Name, req.Slug, req.Parent)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	if err := s.svc.Content.UpsertTerm(r.Context(), t); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Reindex handles POST /admin/index.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Content.Reindex(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err == nil && id == 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func itemToResponse(it domcontent.Item) itemResponse {
	return itemResponse{
		ID:       it.ID(),
		PostType: it.PostType(),
		Status:   string(it.Status()),
		Author:   it.Author(),
		Title:    it.Title(),
		Excerpt:  it.Excerpt(),
		Link:     it.Link(),
		Date:     it.Date().UTC(),
		Modified: it.Modified().UTC(),
		Terms:    it.Terms(),
		Meta:     it.Meta(),
		Numeric:  it.Numeric(),
	}
}
