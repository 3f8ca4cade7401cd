package schema

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/tablecraft/tablecraft/internal/model"
)

// CoerceValue converts a command line value into the json type of the field.
// The literal null clears a value.
func CoerceValue(field *model.Field, val string) (any, error) {
	if val == "null" {
		return nil, nil
	}
	switch field.Type {
	case model.FieldTypeNumber, model.FieldTypeCurrency, model.FieldTypeWeight:
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s expects a number", field.Name)
		}
		return f, nil
	case model.FieldTypeBoolean:
		b, err := cast.ToBoolE(val)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s expects a boolean", field.Name)
		}
		return b, nil
	case model.FieldTypeObject, model.FieldTypeArray:
		var v any
		if err := json.Unmarshal([]byte(val), &v); err != nil {
			return nil, errors.Wrapf(err, "field %s expects json", field.Name)
		}
		return v, nil
	case model.FieldTypeRelation:
		if i, err := cast.ToInt64E(val); err == nil {
			return i, nil
		}
		return val, nil
	}
	return val, nil
}

// CoerceRow converts name=value pairs into a row for the table. Unknown names are an error.
func CoerceRow(table *model.Table, pairs []string) (map[string]any, error) {
	row := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.Newf("invalid value %q, expected name=value", pair)
		}
		field := table.FindField(name)
		if field == nil {
			return nil, errors.Newf("table %s has no field %q", table.Name, name)
		}
		v, err := CoerceValue(field, val)
		if err != nil {
			return nil, err
		}
		row[field.Name] = v
	}
	return row, nil
}
