package model

import (
	"fmt"
	"time"
)

// FieldType is one of the fixed set of column types a user can pick.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeNumber   FieldType = "number"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeDate     FieldType = "date"
	FieldTypeObject   FieldType = "object"
	FieldTypeArray    FieldType = "array"
	FieldTypeRelation FieldType = "relation"
	FieldTypeCurrency FieldType = "currency"
	FieldTypeWeight   FieldType = "weight"
)

// FieldTypes lists every supported field type in display order.
var FieldTypes = []FieldType{
	FieldTypeString,
	FieldTypeNumber,
	FieldTypeBoolean,
	FieldTypeDate,
	FieldTypeObject,
	FieldTypeArray,
	FieldTypeRelation,
	FieldTypeCurrency,
	FieldTypeWeight,
}

// Valid returns true if the type is one of FieldTypes.
func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// Numeric returns true for types stored as a number.
func (t FieldType) Numeric() bool {
	return t == FieldTypeNumber || t == FieldTypeCurrency || t == FieldTypeWeight
}

// ParseFieldType converts a string into a FieldType.
func ParseFieldType(val string) (FieldType, error) {
	ft := FieldType(val)
	if !ft.Valid() {
		return "", fmt.Errorf("invalid field type: %s", val)
	}
	return ft, nil
}

// FieldValidation holds the optional rules for a field. Which members apply depends on the field type.
type FieldValidation struct {
	MinLength *int       `json:"minLength,omitempty" msgpack:"minLength,omitempty"`
	MaxLength *int       `json:"maxLength,omitempty" msgpack:"maxLength,omitempty"`
	Pattern   string     `json:"pattern,omitempty" msgpack:"pattern,omitempty"`
	Enum      []string   `json:"enum,omitempty" msgpack:"enum,omitempty"`
	Min       *float64   `json:"min,omitempty" msgpack:"min,omitempty"`
	Max       *float64   `json:"max,omitempty" msgpack:"max,omitempty"`
	Currency  string     `json:"currency,omitempty" msgpack:"currency,omitempty"`
	Unit      string     `json:"unit,omitempty" msgpack:"unit,omitempty"`
	MinDate   *time.Time `json:"minDate,omitempty" msgpack:"minDate,omitempty"`
	MaxDate   *time.Time `json:"maxDate,omitempty" msgpack:"maxDate,omitempty"`
}

// Field is a single typed column of a table.
type Field struct {
	ID            string               `json:"id" msgpack:"id"`
	Name          string               `json:"name" msgpack:"name"`
	Type          FieldType            `json:"type" msgpack:"type"`
	Required      bool                 `json:"required" msgpack:"required"`
	Validation    *FieldValidation     `json:"validation,omitempty" msgpack:"validation,omitempty"`
	Relationships []*FieldRelationship `json:"relationships,omitempty" msgpack:"relationships,omitempty"`
}

func (f *Field) String() string {
	return fmt.Sprintf("Field[id=%s,name=%s,type=%s,required=%v]", f.ID, f.Name, f.Type, f.Required)
}

// Clone returns a deep copy of the field.
func (f *Field) Clone() *Field {
	c := *f
	if f.Validation != nil {
		v := *f.Validation
		v.Enum = append([]string(nil), f.Validation.Enum...)
		c.Validation = &v
	}
	if f.Relationships != nil {
		c.Relationships = make([]*FieldRelationship, 0, len(f.Relationships))
		for _, r := range f.Relationships {
			rc := *r
			c.Relationships = append(c.Relationships, &rc)
		}
	}
	return &c
}

// RelationshipType is the cardinality of a relationship.
type RelationshipType string

const (
	OneToOne   RelationshipType = "one_to_one"
	OneToMany  RelationshipType = "one_to_many"
	ManyToMany RelationshipType = "many_to_many"
)

// ParseRelationshipType accepts both the long form and the 1:1 / 1:N / N:N shorthand.
func ParseRelationshipType(val string) (RelationshipType, error) {
	switch val {
	case string(OneToOne), "1:1":
		return OneToOne, nil
	case string(OneToMany), "1:N", "1:n":
		return OneToMany, nil
	case string(ManyToMany), "N:N", "n:n":
		return ManyToMany, nil
	}
	return "", fmt.Errorf("invalid relationship type: %s", val)
}

// FieldRelationship is a directed edge from a field to a field in another (or the same) table.
type FieldRelationship struct {
	ID            string           `json:"id" msgpack:"id"`
	SourceFieldID string           `json:"sourceFieldId" msgpack:"sourceFieldId"`
	TargetTableID string           `json:"targetTableId" msgpack:"targetTableId"`
	TargetFieldID string           `json:"targetFieldId" msgpack:"targetFieldId"`
	Type          RelationshipType `json:"type" msgpack:"type"`
	CascadeDelete bool             `json:"cascadeDelete" msgpack:"cascadeDelete"`
}
