package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/tablecraft/tablecraft/internal/query"
)

// Meta is the pagination block of a list envelope.
type Meta struct {
	Total      int `json:"total"`
	Page       int `json:"page,omitempty"`
	PageSize   int `json:"pageSize,omitempty"`
	TotalPages int `json:"totalPages,omitempty"`
	Limit      int `json:"limit,omitempty"`
	Offset     int `json:"offset,omitempty"`
}

// Envelope is the {success, data, meta} shape returned by the Generic Handler.
type Envelope[T any] struct {
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Message string          `json:"message,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
	Meta    *Meta           `json:"meta,omitempty"`
}

// Err returns an APIError carrying the message of an unsuccessful envelope.
func (e *Envelope[T]) Err() error {
	if e.Success {
		return nil
	}
	msg := e.Message
	if msg == "" && len(e.Error) > 0 {
		msg, _, _ = parseErrorBody([]byte(`{"error":` + string(e.Error) + `}`))
	}
	if msg == "" {
		msg = "request was not successful"
	}
	return &APIError{Status: http.StatusOK, Message: msg}
}

// ListResult is a page of resources.
type ListResult[T any] struct {
	Items []T
	Meta  *Meta
}

// Total returns the total from the meta block or the number of items when there is no meta.
func (r *ListResult[T]) Total() int {
	if r.Meta != nil {
		return r.Meta.Total
	}
	return len(r.Items)
}

// ResourcePath returns the Generic Handler path for a resource and optional id.
func ResourcePath(resource string, id ...string) string {
	var sb strings.Builder
	sb.WriteString("/data/")
	sb.WriteString(url.PathEscape(resource))
	for _, v := range id {
		sb.WriteString("/")
		sb.WriteString(url.PathEscape(v))
	}
	return sb.String()
}

func paramsOpts(params *query.Params) (*RequestOptions, error) {
	if params == nil {
		return &RequestOptions{}, nil
	}
	if err := params.Validate(); err != nil {
		return nil, &ValidationError{APIError: APIError{Message: err.Error()}}
	}
	return &RequestOptions{Params: params.Map()}, nil
}

// ListResources returns a page of a resource.
func ListResources[T any](ctx context.Context, c *Client, resource string, params *query.Params) (*ListResult[T], error) {
	opts, err := paramsOpts(params)
	if err != nil {
		return nil, err
	}
	var env Envelope[[]T]
	if err := c.Get(ctx, ResourcePath(resource), opts, &env); err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	items := env.Data
	if items == nil {
		items = make([]T, 0)
	}
	return &ListResult[T]{Items: items, Meta: env.Meta}, nil
}

// GetResource returns a single resource by id.
func GetResource[T any](ctx context.Context, c *Client, resource string, id string, include ...string) (*T, error) {
	opts := &RequestOptions{}
	if len(include) > 0 {
		opts.Params = map[string]any{"include": include}
	}
	var env Envelope[*T]
	if err := c.Get(ctx, ResourcePath(resource, id), opts, &env); err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, &NotFoundError{APIError{Status: http.StatusNotFound, Message: resource + " " + id}}
	}
	return env.Data, nil
}

// CreateResource creates a resource and returns the stored version.
func CreateResource[T any](ctx context.Context, c *Client, resource string, body any) (*T, error) {
	var env Envelope[*T]
	if err := c.Post(ctx, ResourcePath(resource), body, nil, &env); err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// UpdateResource replaces a resource and returns the stored version.
func UpdateResource[T any](ctx context.Context, c *Client, resource string, id string, body any) (*T, error) {
	var env Envelope[*T]
	if err := c.Put(ctx, ResourcePath(resource, id), body, nil, &env); err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// DeleteResource deletes a resource by id.
func DeleteResource(ctx context.Context, c *Client, resource string, id string) error {
	return DeleteAt(ctx, c, ResourcePath(resource, id), nil)
}

// DeleteAt sends a DELETE to path. An empty body (204) is success, any other body must be a successful envelope.
func DeleteAt(ctx context.Context, c *Client, path string, opts *RequestOptions) error {
	var raw json.RawMessage
	if err := c.Delete(ctx, path, opts, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Status: http.StatusOK, Message: "invalid response: " + err.Error()}
	}
	return env.Err()
}

// CountResources returns the number of resources matching params.
func CountResources(ctx context.Context, c *Client, resource string, params *query.Params) (int, error) {
	opts, err := paramsOpts(params)
	if err != nil {
		return 0, err
	}
	var env Envelope[int]
	if err := c.Get(ctx, ResourcePath(resource, "count"), opts, &env); err != nil {
		return 0, err
	}
	if err := env.Err(); err != nil {
		return 0, err
	}
	return env.Data, nil
}

// GetData fetches a non Generic Handler endpoint returning a {success, data} envelope.
func GetData[T any](ctx context.Context, c *Client, path string, params map[string]any) (T, error) {
	var env Envelope[T]
	var zero T
	if err := c.Get(ctx, path, &RequestOptions{Params: params}, &env); err != nil {
		return zero, err
	}
	if err := env.Err(); err != nil {
		return zero, err
	}
	return env.Data, nil
}

// PostData posts to a non Generic Handler endpoint returning a {success, data} envelope.
func PostData[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var env Envelope[T]
	var zero T
	if err := c.Post(ctx, path, body, nil, &env); err != nil {
		return zero, err
	}
	if err := env.Err(); err != nil {
		return zero, err
	}
	return env.Data, nil
}
