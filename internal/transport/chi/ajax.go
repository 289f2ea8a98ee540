package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/postfilter/internal/domain"
	"github.com/kailas-cloud/postfilter/internal/domain/archive"
	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
	"github.com/kailas-cloud/postfilter/internal/domain/pagination"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
	"github.com/kailas-cloud/postfilter/internal/logger"
	filteruc "github.com/kailas-cloud/postfilter/internal/usecase/filter"
)

// Ajax actions.
const (
	actionCompile = "compile_filter"
	actionClear   = "clear_filter"
)

// maxFormBytes bounds a submission body.
const maxFormBytes = 1 << 20

// outputRow is one reduced filter group as the browser sends it. Field carries
// the taxonomy or custom field key; Terms carries the values.
type outputRow struct {
	Field string   `json:"taxonomy" validate:"max=64"`
	Terms []string `json:"terms" validate:"max=500,dive,max=256"`
	Logic string   `json:"logic" validate:"max=8"`
}

// ajaxRequest is a filter endpoint submission.
type ajaxRequest struct {
	Action          string      `json:"action" validate:"required,max=32"`
	Nonce           string      `json:"nonce"`
	WidgetID        string      `json:"widget_id" validate:"required_if=Action compile_filter,max=64"`
	Taxonomy        []outputRow `json:"taxonomy_output" validate:"max=50,dive"`
	CustomField     []outputRow `json:"custom_field_output" validate:"max=50,dive"`
	CustomFieldLike []outputRow `json:"custom_field_like_output" validate:"max=50,dive"`
	Numeric         []outputRow `json:"numeric_output" validate:"max=50,dive"`
	SearchQuery     string      `json:"search_query" validate:"max=256"`
	OrderBy         string      `json:"order_by" validate:"max=64"`
	Order           string      `json:"order" validate:"omitempty,oneof=ASC DESC asc desc"`
	OrderByMeta     string      `json:"order_by_meta" validate:"max=64"`
	Paged           int         `json:"paged" validate:"gte=0"`
	ArchiveType     string      `json:"archive_type" validate:"max=32"`
	ArchivePostType string      `json:"archive_post_type" validate:"max=64"`
	ArchiveTaxonomy string      `json:"archive_taxonomy" validate:"max=64"`
	ArchiveID       uint64      `json:"archive_id"`
	PageURL         string      `json:"page_url" validate:"max=2048"`
	View            string      `json:"view" validate:"max=32"`
	TermLink        string      `json:"term_link" validate:"max=2048"`
}

// ajaxResponse is the body of an applied submission.
type ajaxResponse struct {
	HTML        string `json:"html"`
	Page        int    `json:"page"`
	MaxPage     int    `json:"max_page"`
	Found       int    `json:"found"`
	FilterToken string `json:"filter_token"`
}

// emptyResult is written when a submission constrains nothing.
const emptyResult = "0"

// Ajax handles POST on the filter endpoint.
func (s *Server) Ajax(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAjax(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Action == actionCompile || req.Action == actionClear {
		if err := s.svc.Nonces.VerifyNonce(req.Nonce); err != nil {
			s.handleDomainError(w, err)
			return
		}
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, validationMessage(err))
		return
	}

	ctx := logger.With(r.Context(), zap.String("action", req.Action))
	switch req.Action {
	case actionCompile:
		s.compile(w, r.WithContext(ctx), req)
	case actionClear:
		if err := s.svc.Filter.Clear(ctx, req.Nonce); err != nil {
			s.handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		s.handleDomainError(w, fmt.Errorf("action %q: %w", req.Action, domain.ErrUnknownAction))
	}
}

func (s *Server) compile(w http.ResponseWriter, r *http.Request, req ajaxRequest) {
	// Unknown widgets are rejected by Apply after the nonce check.
	kind := pagination.CustomQuery
	if wd, err := s.svc.Widgets.Lookup(req.WidgetID); err == nil {
		kind = wd.Query
	}

	out, err := s.svc.Filter.Apply(r.Context(), submissionFromRequest(req, kind))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if out.Empty {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(emptyResult))
		return
	}

	writeJSON(w, http.StatusOK, ajaxResponse{
		HTML:        out.Listing.HTML,
		Page:        out.Listing.Page,
		MaxPage:     out.Listing.MaxPage,
		Found:       out.Listing.Found,
		FilterToken: out.Token,
	})
}

func submissionFromRequest(req ajaxRequest, kind pagination.QueryKind) filteruc.Submission {
	var crit []criterion.Criterion
	crit = appendRows(crit, criterion.Taxonomy, req.Taxonomy)
	crit = appendRows(crit, criterion.CustomField, req.CustomField)
	crit = appendRows(crit, criterion.CustomFieldLike, req.CustomFieldLike)
	crit = appendRows(crit, criterion.Numeric, req.Numeric)

	var sort query.Sort
	if req.OrderBy != "" || req.OrderByMeta != "" {
		sort = query.Sort{
			Field:     req.OrderBy,
			Direction: query.ParseDirection(req.Order),
			MetaKey:   req.OrderByMeta,
		}
	}

	return filteruc.Submission{
		Nonce:    req.Nonce,
		WidgetID: req.WidgetID,
		Criteria: crit,
		Sort:     sort,
		Search:   req.SearchQuery,
		Archive: archive.Context{
			Kind:     archive.ParseKind(req.ArchiveType),
			PostType: req.ArchivePostType,
			Taxonomy: req.ArchiveTaxonomy,
			ID:       req.ArchiveID,
			Search:   req.SearchQuery,
		},
		Page:        req.Paged,
		PageContext: pageContext(req.PageURL, req.View, req.TermLink, kind),
	}
}

func appendRows(dst []criterion.Criterion, ft criterion.FieldType, rows []outputRow) []criterion.Criterion {
	for _, row := range rows {
		dst = append(dst, criterion.Criterion{
			FieldType: ft,
			Key:       row.Field,
			Values:    row.Terms,
			Logic:     criterion.ParseLogic(row.Logic),
		})
	}
	return dst
}

// pageContext describes the page a listing renders on from the page URL the
// browser reports. An unparsable URL yields a context rooted at "/".
func pageContext(pageURL, view, termLink string, kind pagination.QueryKind) pagination.PageContext {
	pc := pagination.PageContext{
		Query:    kind,
		View:     pagination.ParseView(view),
		Path:     "/",
		Params:   url.Values{},
		TermLink: termLink,
	}
	if u, err := url.Parse(pageURL); err == nil && pageURL != "" {
		if u.Path != "" {
			pc.Path = u.Path
		}
		pc.Params = u.Query()
	}
	return pc
}

// decodeAjax reads a JSON body or a urlencoded form whose filter groups use
// deepObject bracket keys: taxonomy_output[0][terms][1]=7.
func decodeAjax(w http.ResponseWriter, r *http.Request) (ajaxRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var req ajaxRequest
	if isJSON(r.Header.Get("Content-Type")) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return ajaxRequest{}, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return ajaxRequest{}, err
	}
	form := r.PostForm

	req.Action = form.Get("action")
	req.Nonce = form.Get("nonce")
	req.WidgetID = form.Get("widget_id")
	req.SearchQuery = form.Get("search_query")
	req.OrderBy = form.Get("order_by")
	req.Order = form.Get("order")
	req.OrderByMeta = form.Get("order_by_meta")
	req.ArchiveType = form.Get("archive_type")
	req.ArchivePostType = form.Get("archive_post_type")
	req.ArchiveTaxonomy = form.Get("archive_taxonomy")
	req.PageURL = form.Get("page_url")
	req.View = form.Get("view")
	req.TermLink = form.Get("term_link")

	var err error
	if req.Paged, err = formInt(form, "paged"); err != nil {
		return ajaxRequest{}, err
	}
	if v := form.Get("archive_id"); v != "" {
		if req.ArchiveID, err = strconv.ParseUint(v, 10, 64); err != nil {
			return ajaxRequest{}, fmt.Errorf("archive_id: %w", err)
		}
	}

	for name, dst := range map[string]*[]outputRow{
		"taxonomy_output":          &req.Taxonomy,
		"custom_field_output":      &req.CustomField,
		"custom_field_like_output": &req.CustomFieldLike,
		"numeric_output":           &req.Numeric,
	} {
		if *dst, err = deepObjectRows(form, name); err != nil {
			return ajaxRequest{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	return req, nil
}

// deepObjectRows decodes name[i][...] keys into rows ordered by i.
func deepObjectRows(form url.Values, name string) ([]outputRow, error) {
	prefix := name + "["
	found := false
	for k := range form {
		if strings.HasPrefix(k, prefix) {
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}

	byIndex := map[string]outputRow{}
	if err := runtime.UnmarshalDeepObject(&byIndex, name, form); err != nil {
		return nil, err
	}

	idx := make([]int, 0, len(byIndex))
	for k := range byIndex {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("row index %q is not a non-negative integer", k)
		}
		idx = append(idx, i)
	}
	slices.Sort(idx)

	rows := make([]outputRow, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, byIndex[strconv.Itoa(i)])
	}
	return rows, nil
}

func formInt(form url.Values, key string) (int, error) {
	v := form.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

// validationMessage names the first field that failed validation.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %q (%s)", field, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
	return err.Error()
}
