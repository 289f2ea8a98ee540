package postfilter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
)

const (
	defaultEndpoint = "/ajax"
	defaultTimeout  = 30 * time.Second

	// maxResponseBytes bounds a listing fragment.
	maxResponseBytes = 8 << 20
)

// emptyBody is what the filter endpoint answers when a submission constrains nothing.
const emptyBody = "0"

// rowFields maps each criterion field type to its form field.
var rowFields = []struct {
	ft   criterion.FieldType
	name string
}{
	{criterion.Taxonomy, "taxonomy_output"},
	{criterion.CustomField, "custom_field_output"},
	{criterion.CustomFieldLike, "custom_field_like_output"},
	{criterion.Numeric, "numeric_output"},
}

// Archive is the archive page a filter is embedded on.
type Archive struct {
	Type     string
	PostType string
	Taxonomy string
	ID       uint64
}

// Page describes the page a container renders on. The server derives page
// links from it.
type Page struct {
	URL      string
	View     string
	TermLink string
}

// Submission is one filter submission for every container.
type Submission struct {
	Nonce       string
	Criteria    []Criterion
	Search      string
	OrderBy     string
	Order       string
	OrderByMeta string
	Archive     Archive
}

// CompileRequest submits a filter for one widget.
type CompileRequest struct {
	Submission
	Widget string
	Paged  int
	Page   Page
}

// ListingRequest reads one page of a widget's listing.
type ListingRequest struct {
	Widget string
	Page   int
	Token  string
	Where  Page
}

// Result is a rendered listing page. Empty is set when the filter endpoint
// answered that the submission constrains nothing.
type Result struct {
	Empty   bool
	HTML    string
	Page    int
	MaxPage int
	Found   int
	Token   string
}

type resultBody struct {
	HTML        string `json:"html"`
	Page        int    `json:"page"`
	MaxPage     int    `json:"max_page"`
	Found       int    `json:"found"`
	FilterToken string `json:"filter_token"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is the HTTP client for a postfilter server.
type Client struct {
	base     *url.URL
	endpoint string
	apiKey   string
	hc       *http.Client
	obs      *observer
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{endpoint: defaultEndpoint}
	for _, o := range opts {
		o.apply(cfg)
	}

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("postfilter: invalid base URL %q", baseURL)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{
		base:     base,
		endpoint: cfg.endpoint,
		apiKey:   cfg.apiKey,
		hc:       cfg.httpClient,
		obs:      obs,
	}, nil
}

// Nonce fetches a forgery-prevention token for filter submissions.
func (c *Client) Nonce(ctx context.Context) (nonce string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("nonce", start, false, err) }()

	var body struct {
		Nonce string `json:"nonce"`
	}
	if err = c.getJSON(ctx, "/nonce", nil, &body); err != nil {
		return "", err
	}
	return body.Nonce, nil
}

// Compile submits a filter for one widget. A submission that constrains
// nothing yields a Result with Empty set.
func (c *Client) Compile(ctx context.Context, req CompileRequest) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("compile", start, res.Empty, err) }()

	form, err := encodeSubmission("compile_filter", req)
	if err != nil {
		return Result{}, err
	}
	data, err := c.post(ctx, form)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(string(data)) == emptyBody {
		return Result{Empty: true}, nil
	}
	return decodeResult(data)
}

// Clear empties the server's shared filter slot.
func (c *Client) Clear(ctx context.Context, nonce string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("clear", start, false, err) }()

	form := url.Values{"action": {"clear_filter"}, "nonce": {nonce}}
	_, err = c.post(ctx, form.Encode())
	return err
}

// Listing reads one page of a widget's listing, filtered by req.Token when set.
func (c *Client) Listing(ctx context.Context, req ListingRequest) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("listing", start, false, err) }()

	q := url.Values{"widget": {req.Widget}}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	setIf(q, "filter", req.Token)
	setIf(q, "page_url", req.Where.URL)
	setIf(q, "view", req.Where.View)
	setIf(q, "term_link", req.Where.TermLink)

	var body resultBody
	if err = c.getJSON(ctx, "/listing", q, &body); err != nil {
		return Result{}, err
	}
	// Listing reads carry the caller's token forward.
	return Result{HTML: body.HTML, Page: body.Page, MaxPage: body.MaxPage, Found: body.Found, Token: req.Token}, nil
}

func (c *Client) post(ctx context.Context, form string) ([]byte, error) {
	u := c.base.JoinPath(c.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form))
	if err != nil {
		return nil, fmt.Errorf("postfilter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.base.JoinPath(path)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("postfilter: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	data, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("postfilter: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postfilter: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("postfilter: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var body errorBody
		if json.Unmarshal(data, &body) == nil {
			apiErr.Code, apiErr.Message = body.Code, body.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}
	return data, nil
}

func decodeResult(data []byte) (Result, error) {
	var body resultBody
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&body); err != nil {
		return Result{}, fmt.Errorf("postfilter: decode result: %w", err)
	}
	return Result{
		HTML:    body.HTML,
		Page:    body.Page,
		MaxPage: body.MaxPage,
		Found:   body.Found,
		Token:   body.FilterToken,
	}, nil
}

// deepRow is one filter group in deepObject form.
type deepRow struct {
	Taxonomy string   `json:"taxonomy"`
	Terms    []string `json:"terms"`
	Logic    string   `json:"logic"`
}

// encodeSubmission builds the urlencoded body of a filter submission.
// Criteria are reduced first and sent as deepObject rows, one list per
// field type: taxonomy_output[0][terms][1]=7.
func encodeSubmission(action string, req CompileRequest) (string, error) {
	form := url.Values{
		"action":    {action},
		"nonce":     {req.Nonce},
		"widget_id": {req.Widget},
	}
	setIf(form, "search_query", req.Search)
	setIf(form, "order_by", req.OrderBy)
	setIf(form, "order", req.Order)
	setIf(form, "order_by_meta", req.OrderByMeta)
	if req.Paged > 0 {
		form.Set("paged", strconv.Itoa(req.Paged))
	}
	setIf(form, "archive_type", req.Archive.Type)
	setIf(form, "archive_post_type", req.Archive.PostType)
	setIf(form, "archive_taxonomy", req.Archive.Taxonomy)
	if req.Archive.ID > 0 {
		form.Set("archive_id", strconv.FormatUint(req.Archive.ID, 10))
	}
	setIf(form, "page_url", req.Page.URL)
	setIf(form, "view", req.Page.View)
	setIf(form, "term_link", req.Page.TermLink)

	parts := []string{form.Encode()}
	reduced := criterion.Reduce(req.Criteria)
	for _, rf := range rowFields {
		var rows []deepRow
		for _, c := range reduced {
			if c.FieldType != rf.ft || len(c.Values) == 0 {
				continue
			}
			rows = append(rows, escapedRow(c))
		}
		if len(rows) == 0 {
			continue
		}
		enc, err := runtime.MarshalDeepObject(rows, rf.name)
		if err != nil {
			return "", fmt.Errorf("postfilter: encode %s: %w", rf.name, err)
		}
		parts = append(parts, enc)
	}
	return strings.Join(parts, "&"), nil
}

// escapedRow query-escapes every value up front; the deepObject encoder
// writes leaf values verbatim.
func escapedRow(c Criterion) deepRow {
	row := deepRow{
		Taxonomy: url.QueryEscape(c.Key),
		Terms:    make([]string, len(c.Values)),
		Logic:    string(c.Logic),
	}
	for i, v := range c.Values {
		row.Terms[i] = url.QueryEscape(v)
	}
	return row
}

func setIf(v url.Values, key, val string) {
	if val != "" {
		v.Set(key, val)
	}
}
