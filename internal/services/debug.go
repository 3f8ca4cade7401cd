package services

import (
	"context"
	"net/url"

	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
)

// Debug reads the backend's admin inspection endpoints.
type Debug struct {
	client *apiclient.Client
}

// Tables returns every backend table with its columns and row count.
func (d *Debug) Tables(ctx context.Context) ([]*model.DetailedTable, error) {
	tables, err := apiclient.GetData[[]*model.DetailedTable](ctx, d.client, "/debug/tables-detailed", nil)
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = make([]*model.DetailedTable, 0)
	}
	return tables, nil
}

// TableData returns raw rows of a backend table.
func (d *Debug) TableData(ctx context.Context, schemaName string, table string, limit int, offset int) ([]map[string]any, error) {
	params := map[string]any{}
	if limit > 0 {
		params["limit"] = limit
	}
	if offset > 0 {
		params["offset"] = offset
	}
	path := "/debug/table/" + url.PathEscape(schemaName) + "/" + url.PathEscape(table) + "/data"
	rows, err := apiclient.GetData[[]map[string]any](ctx, d.client, path, params)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = make([]map[string]any, 0)
	}
	return rows, nil
}
