package services

import (
	"context"

	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/query"
)

// Resource is the Generic Handler CRUD surface for one resource name.
type Resource[T any] struct {
	client *apiclient.Client
	name   string
}

func newResource[T any](client *apiclient.Client, name string) *Resource[T] {
	return &Resource[T]{client: client, name: name}
}

// Name returns the resource name used in the path.
func (r *Resource[T]) Name() string {
	return r.name
}

// List returns a page of the resource.
func (r *Resource[T]) List(ctx context.Context, params *query.Params) (*apiclient.ListResult[*T], error) {
	return apiclient.ListResources[*T](ctx, r.client, r.name, params)
}

// Get returns one item by id.
func (r *Resource[T]) Get(ctx context.Context, id string, include ...string) (*T, error) {
	return apiclient.GetResource[T](ctx, r.client, r.name, id, include...)
}

// Create creates an item from body.
func (r *Resource[T]) Create(ctx context.Context, body any) (*T, error) {
	return apiclient.CreateResource[T](ctx, r.client, r.name, body)
}

// Update replaces the item with id.
func (r *Resource[T]) Update(ctx context.Context, id string, body any) (*T, error) {
	return apiclient.UpdateResource[T](ctx, r.client, r.name, id, body)
}

// Delete removes the item with id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return apiclient.DeleteResource(ctx, r.client, r.name, id)
}

// Count returns the number of items matching params.
func (r *Resource[T]) Count(ctx context.Context, params *query.Params) (int, error) {
	return apiclient.CountResources(ctx, r.client, r.name, params)
}

const defaultPageSize = 100

// pageAll walks the pages of list and passes every item to fn. With a meta block it stops once meta.total items
// were seen or a page comes back empty, since the backend may cap the page size. Without one a short page ends it.
func pageAll[T any](ctx context.Context, params *query.Params, list func(ctx context.Context, params *query.Params) (*apiclient.ListResult[T], error), fn func(T) error) (int, error) {
	p := query.Params{}
	if params != nil {
		p = *params
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	p.Page = 1
	var count int
	for {
		res, err := list(ctx, &p)
		if err != nil {
			return count, err
		}
		for _, item := range res.Items {
			if err := fn(item); err != nil {
				return count, err
			}
			count++
		}
		switch {
		case len(res.Items) == 0:
			return count, nil
		case res.Meta != nil && count >= res.Meta.Total:
			return count, nil
		case res.Meta == nil && len(res.Items) < p.PageSize:
			return count, nil
		}
		p.Page++
	}
}
