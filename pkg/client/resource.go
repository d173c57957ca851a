package client

import (
	"context"
	"net/http"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/pkg/feed"
)

// Resource is a feed.Source over one REST collection such as "complaints".
type Resource[T feed.Record] struct {
	client *Client
	path   string
	// PageSize is the number of rows fetched per list call. Zero means 100.
	PageSize int
}

// NewResource binds a collection path.
func NewResource[T feed.Record](c *Client, collection string) *Resource[T] {
	return &Resource[T]{client: c, path: "/" + collection}
}

// List implements feed.Source.
func (r *Resource[T]) List(ctx context.Context, q feed.Query) ([]T, error) {
	size := r.PageSize
	if size <= 0 {
		size = 100
	}
	params := map[string]string{"page_size": itoa(size)}
	if q.OwnerID != "" {
		params["owner_id"] = q.OwnerID
	}
	if q.Status != "" {
		params["status"] = q.Status
	}
	if q.Search != "" {
		params["search"] = q.Search
	}
	if q.DateFrom != nil {
		params["date_from"] = q.DateFrom.Format(dateLayout)
	}
	if q.DateTo != nil {
		params["date_to"] = q.DateTo.Format(dateLayout)
	}
	var out []T
	if err := r.client.do(ctx, http.MethodGet, r.path, params, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodGet, r.path+"/"+id, nil, nil, &out)
	return out, err
}

// Create implements feed.Source.
func (r *Resource[T]) Create(ctx context.Context, payload interface{}) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPost, r.path, nil, payload, &out)
	return out, err
}

// Update implements feed.Source.
func (r *Resource[T]) Update(ctx context.Context, id string, payload interface{}) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPatch, r.path+"/"+id, nil, payload, &out)
	return out, err
}

// SetStatus implements feed.Source.
func (r *Resource[T]) SetStatus(ctx context.Context, id, status string) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPatch, r.path+"/"+id+"/status", nil, models.StatusUpdateRequest{Status: status}, &out)
	return out, err
}

// Delete implements feed.Source.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.do(ctx, http.MethodDelete, r.path+"/"+id, nil, nil, nil)
}
