package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	js "github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tablecraft/tablecraft/internal/model"
)

// RowSchema returns the JSON schema for a row of the table.
func RowSchema(table *model.Table) map[string]any {
	props := make(map[string]any)
	required := make([]string, 0)
	for _, f := range table.Fields {
		props[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"title":                table.Name,
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": true,
	}
}

func nullable(f *model.Field, t ...string) any {
	if !f.Required {
		t = append(t, "null")
	}
	if len(t) == 1 {
		return t[0]
	}
	return t
}

func fieldSchema(f *model.Field) map[string]any {
	s := make(map[string]any)
	v := f.Validation
	switch f.Type {
	case model.FieldTypeString:
		s["type"] = nullable(f, "string")
		if v != nil {
			if v.MinLength != nil {
				s["minLength"] = *v.MinLength
			}
			if v.MaxLength != nil {
				s["maxLength"] = *v.MaxLength
			}
			if v.Pattern != "" {
				s["pattern"] = v.Pattern
			}
			if len(v.Enum) > 0 {
				enum := make([]any, 0, len(v.Enum)+1)
				for _, e := range v.Enum {
					enum = append(enum, e)
				}
				if !f.Required {
					enum = append(enum, nil)
				}
				s["enum"] = enum
			}
		}
	case model.FieldTypeNumber, model.FieldTypeCurrency, model.FieldTypeWeight:
		s["type"] = nullable(f, "number")
		if v != nil {
			if v.Min != nil {
				s["minimum"] = *v.Min
			}
			if v.Max != nil {
				s["maximum"] = *v.Max
			}
		}
	case model.FieldTypeBoolean:
		s["type"] = nullable(f, "boolean")
	case model.FieldTypeDate:
		s["type"] = nullable(f, "string")
		s["anyOf"] = []any{
			map[string]any{"type": "null"},
			map[string]any{"format": "date"},
			map[string]any{"format": "date-time"},
		}
	case model.FieldTypeObject:
		s["type"] = nullable(f, "object")
	case model.FieldTypeArray:
		s["type"] = nullable(f, "array")
	case model.FieldTypeRelation:
		s["type"] = nullable(f, "string", "integer")
	}
	return s
}

// RowValidator validates rows against a table definition.
type RowValidator struct {
	table  *model.Table
	schema *js.Schema
}

// NewRowValidator compiles the row schema for the table.
func NewRowValidator(table *model.Table) (*RowValidator, error) {
	buf, err := json.Marshal(RowSchema(table))
	if err != nil {
		return nil, errors.Wrap(err, "error encoding row schema")
	}
	url := "tablecraft://tables/" + table.ID + ".json"
	compiler := js.NewCompiler()
	compiler.Draft = js.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(url, bytes.NewReader(buf)); err != nil {
		return nil, errors.Wrapf(err, "error adding schema for table %s", table.Name)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, errors.Wrapf(err, "error compiling schema for table %s", table.Name)
	}
	return &RowValidator{table: table, schema: schema}, nil
}

// Validate returns the problems found per field name. An empty map means the row is valid.
func (v *RowValidator) Validate(row map[string]any) (map[string][]string, error) {
	// round trip so the validator sees plain json values
	buf, err := json.Marshal(row)
	if err != nil {
		return nil, errors.Wrap(err, "error encoding row")
	}
	var obj any
	if err := json.Unmarshal(buf, &obj); err != nil {
		return nil, errors.Wrap(err, "error decoding row")
	}
	res := make(map[string][]string)
	if err := v.schema.Validate(obj); err != nil {
		var verr *js.ValidationError
		if !errors.As(err, &verr) {
			return nil, errors.Wrap(err, "error validating row")
		}
		collect(verr, res)
	}
	v.checkDates(obj, res)
	for k := range res {
		sort.Strings(res[k])
	}
	return res, nil
}

// ValidatePartial validates an update where absent fields keep their stored value.
func (v *RowValidator) ValidatePartial(row map[string]any) (map[string][]string, error) {
	res, err := v.Validate(row)
	if err != nil {
		return nil, err
	}
	for name, msgs := range res {
		if _, ok := row[name]; ok {
			continue
		}
		kept := msgs[:0]
		for _, m := range msgs {
			if m != "is required" {
				kept = append(kept, m)
			}
		}
		if len(kept) == 0 {
			delete(res, name)
		} else {
			res[name] = kept
		}
	}
	return res, nil
}

// collect gathers the leaf errors keyed by the top level property they refer to.
func collect(verr *js.ValidationError, res map[string][]string) {
	if len(verr.Causes) == 0 {
		field := strings.TrimPrefix(verr.InstanceLocation, "/")
		if i := strings.Index(field, "/"); i >= 0 {
			field = field[:i]
		}
		msg := verr.Message
		if field == "" {
			// missing properties: 'a', 'b'
			if strings.HasPrefix(msg, "missing properties:") {
				for _, name := range strings.Split(strings.TrimPrefix(msg, "missing properties:"), ",") {
					name = strings.Trim(strings.TrimSpace(name), "'")
					res[name] = appendUnique(res[name], "is required")
				}
				return
			}
			field = "_"
		}
		res[field] = appendUnique(res[field], msg)
		return
	}
	for _, c := range verr.Causes {
		collect(c, res)
	}
}

func appendUnique(vals []string, val string) []string {
	for _, v := range vals {
		if v == val {
			return vals
		}
	}
	return append(vals, val)
}

func parseDate(val string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, val)
}

func (v *RowValidator) checkDates(obj any, res map[string][]string) {
	row, ok := obj.(map[string]any)
	if !ok {
		return
	}
	for _, f := range v.table.Fields {
		if f.Type != model.FieldTypeDate || f.Validation == nil {
			continue
		}
		s, ok := row[f.Name].(string)
		if !ok {
			continue
		}
		t, err := parseDate(s)
		if err != nil {
			continue
		}
		if f.Validation.MinDate != nil && t.Before(*f.Validation.MinDate) {
			res[f.Name] = appendUnique(res[f.Name], fmt.Sprintf("must be on or after %s", f.Validation.MinDate.Format(time.DateOnly)))
		}
		if f.Validation.MaxDate != nil && t.After(*f.Validation.MaxDate) {
			res[f.Name] = appendUnique(res[f.Name], fmt.Sprintf("must be on or before %s", f.Validation.MaxDate.Format(time.DateOnly)))
		}
	}
}
