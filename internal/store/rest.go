package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

type accessTokenKey struct{}

// WithAccessToken attaches the caller's bearer token to ctx. Requests made
// with that context run under the caller's row-level permissions.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the bearer token attached to ctx.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// Observer receives the outcome of every remote call.
type Observer func(op, table string, elapsed time.Duration, err error)

// RESTStore talks to a PostgREST endpoint (/rest/v1).
type RESTStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
	observe Observer
}

// RESTOption configures a RESTStore.
type RESTOption func(*RESTStore)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RESTOption {
	return func(s *RESTStore) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RESTOption {
	return func(s *RESTStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers a call observer, e.g. for latency metrics.
func WithObserver(o Observer) RESTOption {
	return func(s *RESTStore) { s.observe = o }
}

// NewRESTStore creates a store for the project at baseURL. apiKey is sent as
// the apikey header and used as the bearer token when the context carries none.
func NewRESTStore(baseURL, apiKey string, opts ...RESTOption) *RESTStore {
	s := &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select implements Store.
func (s *RESTStore) Select(ctx context.Context, q Query) ([]Row, error) {
	params := s.readParams(q)
	var rows []Row
	err := s.do(ctx, "select", q.Table, http.MethodGet, s.tableURL(q.Table, params), nil, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// SelectOne implements Store.
func (s *RESTStore) SelectOne(ctx context.Context, q Query) (Row, error) {
	rows, err := s.Select(ctx, q.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Insert implements Store.
func (s *RESTStore) Insert(ctx context.Context, table string, values Row) (Row, error) {
	params := url.Values{}
	params.Set("select", "*")
	var rows []Row
	if err := s.do(ctx, "insert", table, http.MethodPost, s.tableURL(table, params), values, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Update implements Store.
func (s *RESTStore) Update(ctx context.Context, q Query, values Row) (Row, error) {
	params := url.Values{}
	params.Set("select", "*")
	applyFilters(params, q.Filters)
	var rows []Row
	if err := s.do(ctx, "update", q.Table, http.MethodPatch, s.tableURL(q.Table, params), values, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// RPC calls a stored procedure and decodes its result into out.
func (s *RESTStore) RPC(ctx context.Context, fn string, params map[string]any, out any) error {
	if params == nil {
		params = map[string]any{}
	}
	return s.do(ctx, "rpc", fn, http.MethodPost, s.baseURL+"/rest/v1/rpc/"+url.PathEscape(fn), params, out)
}

func (s *RESTStore) readParams(q Query) url.Values {
	params := url.Values{}
	columns := q.Columns
	if columns == "" {
		columns = "*"
	}
	params.Set("select", columns)
	if q.MaxRows > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.MaxRows))
	}
	if q.OrderBy != "" {
		dir := "asc"
		if q.Descending {
			dir = "desc"
		}
		params.Set("order", q.OrderBy+"."+dir)
	}
	applyFilters(params, q.Filters)
	return params
}

func applyFilters(params url.Values, filters []Filter) {
	for _, f := range filters {
		if f.Value == nil {
			params.Set(f.Column, "is.null")
			continue
		}
		params.Set(f.Column, "eq."+fmt.Sprint(f.Value))
	}
}

func (s *RESTStore) tableURL(table string, params url.Values) string {
	return s.baseURL + "/rest/v1/" + url.PathEscape(table) + "?" + params.Encode()
}

func (s *RESTStore) do(ctx context.Context, op, table, method, target string, body any, out any) (err error) {
	if s.baseURL == "" || s.apiKey == "" {
		return ErrNotConfigured
	}
	start := time.Now()
	defer func() {
		if s.observe != nil {
			s.observe(op, table, time.Since(start), err)
		}
	}()

	var reader io.Reader
	if body != nil {
		raw, mErr := json.Marshal(body)
		if mErr != nil {
			return fmt.Errorf("marshal %s body: %w", op, mErr)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	token := AccessToken(ctx)
	if token == "" {
		token = s.apiKey
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("remote store request failed", zap.String("op", op), zap.String("table", table), zap.Error(err))
		return &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Message: fmt.Sprintf("read response: %v", err), Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload := map[string]any{}
		_ = json.Unmarshal(raw, &payload)
		e := errorFromPayload(payload, resp.StatusCode)
		if e.Message == "" {
			e.Message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		s.logger.Debug("remote store rejected request",
			zap.String("op", op), zap.String("table", table),
			zap.Int("status", resp.StatusCode), zap.String("code", e.Code), zap.String("message", e.Message))
		return e
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return decodeRows(raw, out)
}

// decodeRows decodes a PostgREST body. Numbers are kept as json.Number so
// large integer ids survive; a single object is accepted where an array is expected.
func decodeRows(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if rows, ok := out.(*[]Row); ok && len(raw) > 0 && bytes.TrimSpace(raw)[0] == '{' {
		var single Row
		if err := dec.Decode(&single); err != nil {
			return &Error{Message: fmt.Sprintf("decode response: %v", err)}
		}
		*rows = []Row{single}
		return nil
	}
	if err := dec.Decode(out); err != nil {
		return &Error{Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}
