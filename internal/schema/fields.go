package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/tablecraft/tablecraft/internal/model"
)

const maxIdentifierLength = 63

var isIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved names are added by the backend to every row
var reserved = map[string]bool{"id": true, "created_at": true, "updated_at": true, "createdat": true, "updatedat": true}

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidName  = errors.New("invalid name")
	ErrDuplicate    = errors.New("duplicate name")
	ErrInvalidIndex = errors.New("index out of range")
)

func validateIdentifier(kind string, name string) error {
	if name == "" {
		return errors.Wrapf(ErrInvalidName, "%s name is required", kind)
	}
	if len(name) > maxIdentifierLength {
		return errors.Wrapf(ErrInvalidName, "%s name %q is longer than %d characters", kind, name, maxIdentifierLength)
	}
	if !isIdentifier.MatchString(name) {
		return errors.Wrapf(ErrInvalidName, "%s name %q must start with a letter or underscore and contain only letters, digits and underscores", kind, name)
	}
	return nil
}

// ValidateTableName checks the name is an identifier and unique (case-insensitive) in the project.
// excludeID skips the table being renamed.
func ValidateTableName(project *model.Project, name string, excludeID string) error {
	if err := validateIdentifier("table", name); err != nil {
		return err
	}
	for _, t := range project.Tables {
		if t.ID != excludeID && strings.EqualFold(t.Name, name) {
			return errors.Wrapf(ErrDuplicate, "table %q already exists in project %s", name, project.Name)
		}
	}
	return nil
}

// ValidateFieldName checks the name is an identifier, not reserved and unique (case-insensitive) in the table.
func ValidateFieldName(table *model.Table, name string, excludeID string) error {
	if err := validateIdentifier("field", name); err != nil {
		return err
	}
	if reserved[strings.ToLower(name)] {
		return errors.Wrapf(ErrInvalidName, "field name %q is reserved", name)
	}
	for _, f := range table.Fields {
		if f.ID != excludeID && strings.EqualFold(f.Name, name) {
			return errors.Wrapf(ErrDuplicate, "field %q already exists in table %s", name, table.Name)
		}
	}
	return nil
}

// MoveField returns a new slice with the element at from moved to to. All other elements keep their relative order.
func MoveField(fields []*model.Field, from, to int) ([]*model.Field, error) {
	if from < 0 || from >= len(fields) || to < 0 || to >= len(fields) {
		return nil, errors.Wrapf(ErrInvalidIndex, "cannot move field from %d to %d in a table with %d fields", from, to, len(fields))
	}
	res := make([]*model.Field, 0, len(fields))
	res = append(res, fields[:from]...)
	res = append(res, fields[from+1:]...)
	moved := fields[from]
	res = append(res[:to], append([]*model.Field{moved}, res[to:]...)...)
	return res, nil
}

// AddTable validates and appends a new table, assigning an id if it has none.
func AddTable(project *model.Project, table *model.Table) error {
	if err := ValidateTableName(project, table.Name, ""); err != nil {
		return err
	}
	if table.ID == "" {
		table.ID = uuid.NewString()
	}
	if table.Fields == nil {
		table.Fields = make([]*model.Field, 0)
	}
	for _, f := range table.Fields {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
	}
	if err := table.Validate(); err != nil {
		return err
	}
	project.Tables = append(project.Tables, table)
	return nil
}

// RemoveTable removes the table and every relationship in other tables which targets it.
func RemoveTable(project *model.Project, tableID string) error {
	table, err := findTable(project, tableID)
	if err != nil {
		return err
	}
	idx := project.TableIndex(table.ID)
	project.Tables = append(project.Tables[:idx], project.Tables[idx+1:]...)
	pruneRelationships(project, func(r *model.FieldRelationship) bool {
		return r.TargetTableID == table.ID
	})
	return nil
}

func findTable(project *model.Project, tableID string) (*model.Table, error) {
	table := project.FindTable(tableID)
	if table == nil {
		return nil, errors.Wrapf(ErrNotFound, "table %s", tableID)
	}
	return table, nil
}

// AddField validates and appends a field to the table.
func AddField(project *model.Project, tableID string, field *model.Field) error {
	table, err := findTable(project, tableID)
	if err != nil {
		return err
	}
	if err := ValidateFieldName(table, field.Name, ""); err != nil {
		return err
	}
	if !field.Type.Valid() {
		return fmt.Errorf("invalid field type: %q", field.Type)
	}
	if err := validateRules(field); err != nil {
		return err
	}
	if field.ID == "" {
		field.ID = uuid.NewString()
	}
	table.Fields = append(table.Fields, field)
	return nil
}

// UpdateField replaces the field with the same id, keeping its position.
func UpdateField(project *model.Project, tableID string, field *model.Field) error {
	table, err := findTable(project, tableID)
	if err != nil {
		return err
	}
	idx := table.FieldIndex(field.ID)
	if idx < 0 {
		return errors.Wrapf(ErrNotFound, "field %s", field.ID)
	}
	if err := ValidateFieldName(table, field.Name, field.ID); err != nil {
		return err
	}
	if !field.Type.Valid() {
		return fmt.Errorf("invalid field type: %q", field.Type)
	}
	if err := validateRules(field); err != nil {
		return err
	}
	table.Fields[idx] = field
	return nil
}

// RemoveField removes the field and any relationship in the project which targets it.
func RemoveField(project *model.Project, tableID string, fieldID string) error {
	table, err := findTable(project, tableID)
	if err != nil {
		return err
	}
	field := table.FindField(fieldID)
	if field == nil {
		return errors.Wrapf(ErrNotFound, "field %s", fieldID)
	}
	idx := table.FieldIndex(field.ID)
	table.Fields = append(table.Fields[:idx], table.Fields[idx+1:]...)
	pruneRelationships(project, func(r *model.FieldRelationship) bool {
		return r.TargetFieldID == field.ID
	})
	return nil
}

// ReorderField moves a field inside a table.
func ReorderField(project *model.Project, tableID string, from, to int) error {
	table, err := findTable(project, tableID)
	if err != nil {
		return err
	}
	fields, err := MoveField(table.Fields, from, to)
	if err != nil {
		return err
	}
	table.Fields = fields
	return nil
}

func pruneRelationships(project *model.Project, remove func(*model.FieldRelationship) bool) {
	for _, t := range project.Tables {
		for _, f := range t.Fields {
			if len(f.Relationships) == 0 {
				continue
			}
			kept := f.Relationships[:0]
			for _, r := range f.Relationships {
				if !remove(r) {
					kept = append(kept, r)
				}
			}
			f.Relationships = kept
		}
	}
}

// validateRules checks the validation rules make sense for the field type.
func validateRules(field *model.Field) error {
	v := field.Validation
	if v == nil {
		return nil
	}
	switch {
	case field.Type == model.FieldTypeString:
		if v.Min != nil || v.Max != nil {
			return fmt.Errorf("field %s: min/max apply to numeric fields, use minLength/maxLength", field.Name)
		}
		if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
			return fmt.Errorf("field %s: minLength is greater than maxLength", field.Name)
		}
		if v.Pattern != "" {
			if _, err := regexp.Compile(v.Pattern); err != nil {
				return fmt.Errorf("field %s: invalid pattern: %w", field.Name, err)
			}
		}
	case field.Type.Numeric():
		if v.MinLength != nil || v.MaxLength != nil || v.Pattern != "" {
			return fmt.Errorf("field %s: length and pattern rules apply to string fields", field.Name)
		}
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			return fmt.Errorf("field %s: min is greater than max", field.Name)
		}
	case field.Type == model.FieldTypeDate:
		if v.MinDate != nil && v.MaxDate != nil && v.MinDate.After(*v.MaxDate) {
			return fmt.Errorf("field %s: minDate is after maxDate", field.Name)
		}
	}
	return nil
}
