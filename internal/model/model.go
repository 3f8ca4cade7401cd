package model

import (
	"fmt"
	"strings"
	"time"
)

// ProjectSettings are the per project knobs exposed in the settings page.
type ProjectSettings struct {
	RateLimit   int    `json:"rateLimit,omitempty" msgpack:"rateLimit,omitempty"`
	WebhookURL  string `json:"webhookUrl,omitempty" msgpack:"webhookUrl,omitempty"`
	RequireAuth bool   `json:"requireAuth" msgpack:"requireAuth"`
}

// Project is a customer owned namespace of tables, analogous to a logical database.
type Project struct {
	ID          string          `json:"id" msgpack:"id"`
	Name        string          `json:"name" msgpack:"name"`
	Description string          `json:"description,omitempty" msgpack:"description,omitempty"`
	UserID      string          `json:"userId" msgpack:"userId"`
	APIKey      string          `json:"apiKey" msgpack:"apiKey"`
	APIKeys     []*APIKey       `json:"apiKeys,omitempty" msgpack:"apiKeys,omitempty"`
	Tables      []*Table        `json:"tables" msgpack:"tables"`
	Settings    ProjectSettings `json:"settings" msgpack:"settings"`
	CreatedAt   time.Time       `json:"createdAt" msgpack:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt" msgpack:"updatedAt"`
}

func (p *Project) String() string {
	return fmt.Sprintf("Project[id=%s,name=%s,tables=%d]", p.ID, p.Name, len(p.Tables))
}

// FindTable returns the table by id or name (case-insensitive) or nil if not found.
func (p *Project) FindTable(idOrName string) *Table {
	for _, table := range p.Tables {
		if table.ID == idOrName || strings.EqualFold(table.Name, idOrName) {
			return table
		}
	}
	return nil
}

// TableIndex returns the index of the table with id or -1.
func (p *Project) TableIndex(id string) int {
	for i, table := range p.Tables {
		if table.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants of the project.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	if p.APIKey == "" {
		return fmt.Errorf("project %s is missing its main api key", p.Name)
	}
	for _, key := range p.APIKeys {
		if key.Key == p.APIKey {
			return fmt.Errorf("project %s has more than one main api key", p.Name)
		}
	}
	seen := make(map[string]bool)
	for _, table := range p.Tables {
		name := strings.ToLower(table.Name)
		if seen[name] {
			return fmt.Errorf("duplicate table name %q in project %s", table.Name, p.Name)
		}
		seen[name] = true
		if err := table.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Table is a user defined table inside a project.
type Table struct {
	ID     string   `json:"id" msgpack:"id"`
	Name   string   `json:"name" msgpack:"name"`
	Fields []*Field `json:"fields" msgpack:"fields"`
}

func (t *Table) String() string {
	return fmt.Sprintf("Table[id=%s,name=%s,fields=%d]", t.ID, t.Name, len(t.Fields))
}

// FindField returns the field by id or name or nil if not found.
func (t *Table) FindField(idOrName string) *Field {
	for _, field := range t.Fields {
		if field.ID == idOrName || field.Name == idOrName {
			return field
		}
	}
	return nil
}

// FieldIndex returns the position of the field with id or -1.
func (t *Table) FieldIndex(id string) int {
	for i, field := range t.Fields {
		if field.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks field names are unique and field types are known.
func (t *Table) Validate() error {
	seen := make(map[string]bool)
	for _, field := range t.Fields {
		if seen[field.Name] {
			return fmt.Errorf("duplicate field name %q in table %s", field.Name, t.Name)
		}
		seen[field.Name] = true
		if !field.Type.Valid() {
			return fmt.Errorf("field %s in table %s has invalid type %q", field.Name, t.Name, field.Type)
		}
	}
	return nil
}

// Clone returns a deep copy of the table so edits don't leak into shared state.
func (t *Table) Clone() *Table {
	c := &Table{ID: t.ID, Name: t.Name, Fields: make([]*Field, 0, len(t.Fields))}
	for _, f := range t.Fields {
		c.Fields = append(c.Fields, f.Clone())
	}
	return c
}
