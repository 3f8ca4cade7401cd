package services

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/query"
	"github.com/tablecraft/tablecraft/internal/schema"
	"github.com/tablecraft/tablecraft/internal/util"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultImportConcurrency = 4
	DefaultImportBatchSize   = 50

	validatorTTL = 30 * time.Minute

	projectHeader = "X-Project-Id"
	apiKeyHeader  = "X-API-Key"
)

// Row is a single record of a user defined table.
type Row = map[string]any

// Rows reads and writes the data of user defined tables. Writes are validated against the table definition first.
type Rows struct {
	client      *apiclient.Client
	validators  *util.Cache[*schema.RowValidator]
	logger      logger.Logger
	concurrency int
}

func (s *Rows) options(project *model.Project, params *query.Params) (*apiclient.RequestOptions, error) {
	opts := &apiclient.RequestOptions{
		Headers: map[string]string{projectHeader: project.ID},
	}
	if project.APIKey != "" {
		opts.Headers[apiKeyHeader] = project.APIKey
	}
	if params != nil {
		if err := params.Validate(); err != nil {
			return nil, validationError(err.Error(), nil)
		}
		opts.Params = params.Map()
	}
	return opts, nil
}

func validationError(msg string, fields map[string][]string) error {
	return &apiclient.ValidationError{APIError: apiclient.APIError{Status: http.StatusBadRequest, Message: msg}, Fields: fields}
}

// checkFields rejects filters and sorts on fields the table doesn't have.
func checkFields(table *model.Table, params *query.Params) error {
	if params == nil {
		return nil
	}
	known := func(name string) bool {
		switch name {
		case "id", "createdAt", "updatedAt":
			return true
		}
		return table.FindField(name) != nil
	}
	fields := make(map[string][]string)
	for _, f := range params.Filters {
		if !known(f.Field) {
			fields[f.Field] = append(fields[f.Field], "unknown field")
		}
	}
	for _, srt := range params.Sort {
		if !known(srt.Field) {
			fields[srt.Field] = append(fields[srt.Field], "unknown field")
		}
	}
	if len(fields) > 0 {
		return validationError("unknown fields for table "+table.Name, fields)
	}
	return nil
}

// Validator returns the compiled validator for the table, cached by its definition.
func (s *Rows) Validator(table *model.Table) (*schema.RowValidator, error) {
	return s.validators.GetOrLoad(util.HashJSON(table), validatorTTL, func() (*schema.RowValidator, error) {
		return schema.NewRowValidator(table)
	})
}

func (s *Rows) validate(table *model.Table, row Row, partial bool) error {
	v, err := s.Validator(table)
	if err != nil {
		return err
	}
	var fields map[string][]string
	if partial {
		fields, err = v.ValidatePartial(row)
	} else {
		fields, err = v.Validate(row)
	}
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return validationError("row is invalid for table "+table.Name, fields)
	}
	return nil
}

func decode[T any](env *apiclient.Envelope[T]) (T, error) {
	var zero T
	if err := env.Err(); err != nil {
		return zero, err
	}
	return env.Data, nil
}

// List returns a page of rows.
func (s *Rows) List(ctx context.Context, project *model.Project, table *model.Table, params *query.Params) (*apiclient.ListResult[Row], error) {
	if err := checkFields(table, params); err != nil {
		return nil, err
	}
	opts, err := s.options(project, params)
	if err != nil {
		return nil, err
	}
	var env apiclient.Envelope[[]Row]
	if err := s.client.Get(ctx, apiclient.ResourcePath(table.Name), opts, &env); err != nil {
		return nil, err
	}
	rows, err := decode(&env)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = make([]Row, 0)
	}
	return &apiclient.ListResult[Row]{Items: rows, Meta: env.Meta}, nil
}

// Count returns the number of rows matching params.
func (s *Rows) Count(ctx context.Context, project *model.Project, table *model.Table, params *query.Params) (int, error) {
	if err := checkFields(table, params); err != nil {
		return 0, err
	}
	opts, err := s.options(project, params)
	if err != nil {
		return 0, err
	}
	var env apiclient.Envelope[int]
	if err := s.client.Get(ctx, apiclient.ResourcePath(table.Name, "count"), opts, &env); err != nil {
		return 0, err
	}
	return decode(&env)
}

// Get returns one row.
func (s *Rows) Get(ctx context.Context, project *model.Project, table *model.Table, id string) (Row, error) {
	opts, err := s.options(project, nil)
	if err != nil {
		return nil, err
	}
	var env apiclient.Envelope[Row]
	if err := s.client.Get(ctx, apiclient.ResourcePath(table.Name, id), opts, &env); err != nil {
		return nil, err
	}
	row, err := decode(&env)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &apiclient.NotFoundError{APIError: apiclient.APIError{Status: http.StatusNotFound, Message: table.Name + " " + id}}
	}
	return row, nil
}

// Create validates and stores a new row.
func (s *Rows) Create(ctx context.Context, project *model.Project, table *model.Table, row Row) (Row, error) {
	if err := s.validate(table, row, false); err != nil {
		return nil, err
	}
	opts, err := s.options(project, nil)
	if err != nil {
		return nil, err
	}
	var env apiclient.Envelope[Row]
	if err := s.client.Post(ctx, apiclient.ResourcePath(table.Name), row, opts, &env); err != nil {
		return nil, err
	}
	return decode(&env)
}

// Update validates and applies changes to a row. Fields missing from changes are kept.
func (s *Rows) Update(ctx context.Context, project *model.Project, table *model.Table, id string, changes Row) (Row, error) {
	if err := s.validate(table, changes, true); err != nil {
		return nil, err
	}
	opts, err := s.options(project, nil)
	if err != nil {
		return nil, err
	}
	var env apiclient.Envelope[Row]
	if err := s.client.Put(ctx, apiclient.ResourcePath(table.Name, id), changes, opts, &env); err != nil {
		return nil, err
	}
	return decode(&env)
}

// Delete removes a row.
func (s *Rows) Delete(ctx context.Context, project *model.Project, table *model.Table, id string) error {
	opts, err := s.options(project, nil)
	if err != nil {
		return err
	}
	return apiclient.DeleteAt(ctx, s.client, apiclient.ResourcePath(table.Name, id), opts)
}

// ImportResult summarizes an import.
type ImportResult struct {
	Created int
	// Invalid maps the zero based input position to its validation problems
	Invalid map[int]map[string][]string
}

// Import validates every row then creates the valid ones in batches. Progress is reported after each batch.
// The import stops at the first backend error.
func (s *Rows) Import(ctx context.Context, project *model.Project, table *model.Table, rows []Row, progress func(done, total int)) (*ImportResult, error) {
	v, err := s.Validator(table)
	if err != nil {
		return nil, err
	}
	res := &ImportResult{Invalid: make(map[int]map[string][]string)}
	valid := make([]Row, 0, len(rows))
	for i, row := range rows {
		fields, err := v.Validate(row)
		if err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			res.Invalid[i] = fields
			continue
		}
		valid = append(valid, row)
	}
	if len(res.Invalid) > 0 {
		s.logger.Warn("skipping %d invalid rows for table %s", len(res.Invalid), table.Name)
	}
	var created int64
	batcher := util.NewBatcher[Row](DefaultImportBatchSize)
	send := func(batch []Row) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, row := range batch {
			g.Go(func() error {
				if _, err := s.Create(gctx, project, table, row); err != nil {
					return err
				}
				atomic.AddInt64(&created, 1)
				return nil
			})
		}
		err := g.Wait()
		if progress != nil {
			progress(int(atomic.LoadInt64(&created)), len(valid))
		}
		return err
	}
	for _, row := range valid {
		if batch := batcher.Add(row); batch != nil {
			if err := send(batch); err != nil {
				res.Created = int(created)
				return res, err
			}
		}
	}
	if batch := batcher.Flush(); len(batch) > 0 {
		if err := send(batch); err != nil {
			res.Created = int(created)
			return res, err
		}
	}
	res.Created = int(created)
	s.logger.Debug("imported %d rows into %s", res.Created, table.Name)
	return res, nil
}

// Export pages through every row matching params and passes each to fn.
func (s *Rows) Export(ctx context.Context, project *model.Project, table *model.Table, params *query.Params, fn func(Row) error) (int, error) {
	return pageAll(ctx, params, func(ctx context.Context, p *query.Params) (*apiclient.ListResult[Row], error) {
		return s.List(ctx, project, table, p)
	}, fn)
}
