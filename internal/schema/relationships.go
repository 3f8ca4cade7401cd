package schema

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/tablecraft/tablecraft/internal/model"
)

// AddRelationship attaches a relationship to the source field after checking the target exists.
func AddRelationship(project *model.Project, tableID string, fieldID string, rel *model.FieldRelationship) error {
	table, err := findTable(project, tableID)
	if err != nil {
		return err
	}
	field := table.FindField(fieldID)
	if field == nil {
		return errors.Wrapf(ErrNotFound, "field %s", fieldID)
	}
	target, err := findTable(project, rel.TargetTableID)
	if err != nil {
		return errors.Wrap(err, "relationship target")
	}
	targetField := target.FindField(rel.TargetFieldID)
	if targetField == nil {
		return errors.Wrapf(ErrNotFound, "relationship target field %s", rel.TargetFieldID)
	}
	switch rel.Type {
	case model.OneToOne, model.OneToMany, model.ManyToMany:
	default:
		return errors.Newf("invalid relationship type: %q", rel.Type)
	}
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	rel.SourceFieldID = field.ID
	rel.TargetTableID = target.ID
	rel.TargetFieldID = targetField.ID
	field.Relationships = append(field.Relationships, rel)
	return nil
}

// RemoveRelationship removes a relationship from the source field.
func RemoveRelationship(project *model.Project, tableID string, fieldID string, relID string) error {
	table, err := findTable(project, tableID)
	if err != nil {
		return err
	}
	field := table.FindField(fieldID)
	if field == nil {
		return errors.Wrapf(ErrNotFound, "field %s", fieldID)
	}
	for i, r := range field.Relationships {
		if r.ID == relID {
			field.Relationships = append(field.Relationships[:i], field.Relationships[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "relationship %s", relID)
}

// FindRelationshipCycles returns the table cycles formed by relationships, each as a list of table names
// where the last table points back at the first. Self references are reported as a single table.
// Cycles are informational, nothing prevents creating them.
func FindRelationshipCycles(project *model.Project) [][]string {
	edges := make(map[string][]string)
	names := make(map[string]string)
	for _, t := range project.Tables {
		names[t.ID] = t.Name
		seen := make(map[string]bool)
		for _, f := range t.Fields {
			for _, r := range f.Relationships {
				if !seen[r.TargetTableID] {
					seen[r.TargetTableID] = true
					edges[t.ID] = append(edges[t.ID], r.TargetTableID)
				}
			}
		}
	}
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)
	var stack []string
	var cycles [][]string
	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range edges[id] {
			switch color[next] {
			case white:
				if _, ok := names[next]; ok {
					visit(next)
				}
			case grey:
				var cycle []string
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						for _, tid := range stack[i:] {
							cycle = append(cycle, names[tid])
						}
						break
					}
				}
				cycles = append(cycles, cycle)
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}
	for _, t := range project.Tables {
		if color[t.ID] == white {
			visit(t.ID)
		}
	}
	return cycles
}
