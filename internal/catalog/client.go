package catalog

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

	"github.com/yanizio/catalog-admin/internal/logger"
	"github.com/yanizio/catalog-admin/internal/metrics"
)

// StatusActive is the only status the admin forms create.
const StatusActive = "active"

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// Payload is the create and update request body.  Empty optional fields
// are omitted, except that ClearThumbnail sends "thumbnail": "" so an
// update can drop the stored image.
type Payload struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Thumbnail      string `json:"thumbnail,omitempty"`
	Status         string `json:"status"`
	ClearThumbnail bool   `json:"-"`
}

func (p Payload) MarshalJSON() ([]byte, error) {
	type plain Payload
	out := struct {
		plain
		Thumbnail *string `json:"thumbnail,omitempty"`
	}{plain: plain(p)}
	if p.Thumbnail != "" || p.ClearThumbnail {
		out.Thumbnail = &p.Thumbnail
	}
	return json.Marshal(out)
}

// Entity is the subset of a stored record the edit form needs.
type Entity struct {
	ID          string
	Name        string
	Description string
	Thumbnail   string
	Status      string
}

// Client talks JSON to the catalog REST API.
type Client struct {
	base string
	http *http.Client
}

// New returns a Client rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Create posts p to endpoint and returns the new entity ID.  Failures wrap
// ErrCreateFailed; a non-2xx response is an *APIError.
func (c *Client) Create(ctx context.Context, endpoint string, p Payload) (string, error) {
	var out idEnvelope
	if err := c.do(ctx, "create", http.MethodPost, endpoint, p, &out, ErrCreateFailed); err != nil {
		return "", err
	}
	id := out.id()
	if id == "" {
		return "", fmt.Errorf("%w: response carried no id", ErrCreateFailed)
	}
	return id, nil
}

// Update replaces the entity id under endpoint.  Failures wrap
// ErrUpdateFailed.
func (c *Client) Update(ctx context.Context, endpoint, id string, p Payload) error {
	return c.do(ctx, "update", http.MethodPut, endpoint+"/"+url.PathEscape(id), p, nil, ErrUpdateFailed)
}

// Get fetches one entity for the edit form.
func (c *Client) Get(ctx context.Context, endpoint, id string) (*Entity, error) {
	var out entityEnvelope
	if err := c.do(ctx, "get", http.MethodGet, endpoint+"/"+url.PathEscape(id), nil, &out, nil); err != nil {
		return nil, err
	}
	e := out.entity()
	if e.ID == "" {
		e.ID = id
	}
	return &e, nil
}

// List fetches the entities under endpoint for the list page.  Both a bare
// array and a {"data": [...]} envelope are accepted.
func (c *Client) List(ctx context.Context, endpoint string) ([]Entity, error) {
	var out listEnvelope
	if err := c.do(ctx, "list", http.MethodGet, endpoint, nil, &out, nil); err != nil {
		return nil, err
	}
	list := make([]Entity, 0, len(out))
	for _, b := range out {
		list = append(list, b.entity())
	}
	return list, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any, sentinel error) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return wrap(sentinel, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return wrap(sentinel, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := BearerFromContext(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.BackendDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return wrap(sentinel, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return wrap(sentinel, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseError(resp.StatusCode, raw, sentinel)
		logger.FromContext(ctx).Warnw("catalog backend rejected request",
			"op", op, "path", path, "status", resp.StatusCode,
			"message", apiErr.Message, "fields", apiErr.Fields)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return wrap(sentinel, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func wrap(sentinel, err error) error {
	if sentinel == nil {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

//
// response envelopes
//

// flexID accepts numeric and string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = flexID(s)
	return nil
}

type idEnvelope struct {
	ID   flexID `json:"id"`
	Data *struct {
		ID flexID `json:"id"`
	} `json:"data"`
}

func (e idEnvelope) id() string {
	if e.ID != "" {
		return string(e.ID)
	}
	if e.Data != nil {
		return string(e.Data.ID)
	}
	return ""
}

type entityBody struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	Status      string `json:"status"`
}

type entityEnvelope struct {
	entityBody
	Data *entityBody `json:"data"`
}

func (e entityEnvelope) entity() Entity {
	if e.Data != nil {
		return e.Data.entity()
	}
	return e.entityBody.entity()
}

func (b entityBody) entity() Entity {
	return Entity{
		ID:          string(b.ID),
		Name:        b.Name,
		Description: b.Description,
		Thumbnail:   b.Thumbnail,
		Status:      b.Status,
	}
}

type listEnvelope []entityBody

func (l *listEnvelope) UnmarshalJSON(b []byte) error {
	var bare []entityBody
	if err := json.Unmarshal(b, &bare); err == nil {
		*l = bare
		return nil
	}
	var wrapped struct {
		Data []entityBody `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Data
	return nil
}
