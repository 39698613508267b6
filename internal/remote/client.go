// Package remote talks to a hosted record API that stores connections and
// query history as generic records in named collections.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"datalink/internal/errs"
	"datalink/internal/logger"
)

// Collection names on the record API.
const (
	CollectionConnection = "connection"
	CollectionQuery      = "query"
)

// Config configures the record API client.
type Config struct {
	BaseURL   string        `koanf:"base_url"`
	ProjectID string        `koanf:"project_id"`
	PublicKey string        `koanf:"public_key"`
	Timeout   time.Duration `koanf:"timeout"`
}

// ── Wire types ─────────────────────────────────────────────

// FieldName names one field of a projection.
type FieldName struct {
	Name string `json:"Name"`
}

// Field is one entry of a projection. ReferenceField selects a field of the
// record a lookup field points at.
type Field struct {
	Field          FieldName `json:"field"`
	ReferenceField *Field    `json:"referenceField,omitempty"`
}

// Fields builds a flat projection.
func Fields(names ...string) []Field {
	out := make([]Field, len(names))
	for i, n := range names {
		out[i] = Field{Field: FieldName{Name: n}}
	}
	return out
}

// OrderBy sorts fetched records.
type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

// Where filters fetched records.
type Where struct {
	FieldName string   `json:"FieldName"`
	Operator  string   `json:"Operator"`
	Values    []string `json:"Values"`
}

// Paging limits fetched records.
type Paging struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FetchParams selects records from a collection.
type FetchParams struct {
	Fields     []Field   `json:"fields"`
	Where      []Where   `json:"where,omitempty"`
	OrderBy    []OrderBy `json:"orderBy,omitempty"`
	PagingInfo *Paging   `json:"pagingInfo,omitempty"`
}

// FieldError is a validation failure on one field of one record.
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

// RecordResult is the per-record outcome of a write.
type RecordResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  []FieldError    `json:"errors,omitempty"`
}

// Err converts a failed result into an error. Field errors read
// "<fieldLabel>: <message>".
func (r RecordResult) Err() error {
	if r.Success {
		return nil
	}
	if len(r.Errors) > 0 {
		parts := make([]error, 0, len(r.Errors))
		for _, fe := range r.Errors {
			parts = append(parts, errs.Validation("%s: %s", fe.FieldLabel, fe.Message))
		}
		return errors.Join(parts...)
	}
	if r.Message != "" {
		return errs.New(errs.ErrKindOperationFailed, r.Message)
	}
	return errs.New(errs.ErrKindOperationFailed, "record rejected")
}

// Response is the envelope every call returns.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Results []RecordResult  `json:"results,omitempty"`
}

// Failures joins the errors of every failed record, or returns nil.
func (r *Response) Failures() error {
	var failed []error
	for _, res := range r.Results {
		if err := res.Err(); err != nil {
			failed = append(failed, err)
		}
	}
	return errors.Join(failed...)
}

// FirstSuccess returns the data of the first successful record.
func (r *Response) FirstSuccess() (json.RawMessage, bool) {
	for _, res := range r.Results {
		if res.Success {
			return res.Data, true
		}
	}
	return nil, false
}

// ── Client ─────────────────────────────────────────────────

// Client issues record calls over HTTP.
type Client struct {
	base      string
	projectID string
	publicKey string
	http      *http.Client
	log       *logger.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errs.Validation("remote base_url is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, errs.Validation("remote base_url is invalid: %v", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		projectID: cfg.ProjectID,
		publicKey: cfg.PublicKey,
		http:      &http.Client{Timeout: timeout},
		log:       log.With().Str("component", "remote").Logger(),
	}, nil
}

func (c *Client) recordsURL(collection string, id ...int) string {
	u := fmt.Sprintf("%s/v1/projects/%s/collections/%s/records",
		c.base, url.PathEscape(c.projectID), url.PathEscape(collection))
	if len(id) > 0 {
		u += "/" + strconv.Itoa(id[0])
	}
	return u
}

// FetchRecords lists records of a collection.
func (c *Client) FetchRecords(ctx context.Context, collection string, p FetchParams) (*Response, error) {
	return c.do(ctx, http.MethodPost, c.recordsURL(collection)+"/fetch", p)
}

// GetRecordByID returns one record. A missing record is NotFound.
func (c *Client) GetRecordByID(ctx context.Context, collection string, id int, p FetchParams) (*Response, error) {
	resp, err := c.do(ctx, http.MethodPost, c.recordsURL(collection, id)+"/fetch", p)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, errs.NotFound(collection, strconv.Itoa(id))
	}
	return resp, nil
}

// CreateRecord inserts records.
func (c *Client) CreateRecord(ctx context.Context, collection string, records ...map[string]any) (*Response, error) {
	return c.do(ctx, http.MethodPost, c.recordsURL(collection), map[string]any{"records": records})
}

// UpdateRecord patches records; each record carries its "Id".
func (c *Client) UpdateRecord(ctx context.Context, collection string, records ...map[string]any) (*Response, error) {
	return c.do(ctx, http.MethodPatch, c.recordsURL(collection), map[string]any{"records": records})
}

// DeleteRecord removes records by id.
func (c *Client) DeleteRecord(ctx context.Context, collection string, ids ...int) (*Response, error) {
	return c.do(ctx, http.MethodDelete, c.recordsURL(collection), map[string]any{"RecordIds": ids})
}

// do sends one call and decodes the envelope. A response with
// success=false surfaces its message as the error.
func (c *Client) do(ctx context.Context, method, endpoint string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindOperationFailed, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindOperationFailed, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Project-Id", c.projectID)
	if c.publicKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.publicKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindOperationFailed, "remote request", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindOperationFailed, "read response", err)
	}
	c.log.With().
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Int("duration_ms", int(time.Since(start).Milliseconds())).
		Logger().Debug("remote call")

	var out Response
	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode == http.StatusNotFound {
		msg := out.Message
		if msg == "" {
			msg = "record not found"
		}
		return nil, errs.New(errs.ErrKindNotFound, msg)
	}
	if resp.StatusCode >= 400 {
		if decodeErr == nil && out.Message != "" {
			return nil, errs.New(errs.ErrKindOperationFailed, out.Message)
		}
		snippet := data
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return nil, errs.New(errs.ErrKindOperationFailed, fmt.Sprintf("http %d: %s", resp.StatusCode, snippet))
	}
	if decodeErr != nil {
		return nil, errs.Wrap(errs.ErrKindOperationFailed, "parse response", decodeErr)
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "remote call failed"
		}
		return nil, errs.New(errs.ErrKindOperationFailed, msg)
	}
	return &out, nil
}

// parseID converts a local string id into the numeric record id. Ids that
// are not numbers cannot exist remotely.
func parseID(entity, id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return 0, errs.NotFound(entity, id)
	}
	return n, nil
}
