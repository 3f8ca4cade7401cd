package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldType(t *testing.T) {
	for _, ft := range FieldTypes {
		got, err := ParseFieldType(string(ft))
		require.NoError(t, err)
		assert.Equal(t, ft, got)
	}
	_, err := ParseFieldType("uuid")
	assert.Error(t, err)
	assert.True(t, FieldTypeCurrency.Numeric())
	assert.False(t, FieldTypeDate.Numeric())
}

func TestParseRelationshipType(t *testing.T) {
	for val, want := range map[string]RelationshipType{
		"1:1": OneToOne, "one_to_many": OneToMany, "1:N": OneToMany, "N:N": ManyToMany,
	} {
		got, err := ParseRelationshipType(val)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseRelationshipType("2:1")
	assert.Error(t, err)
}

func TestProjectValidate(t *testing.T) {
	p := &Project{Name: "shop", APIKey: "k", Tables: []*Table{
		{ID: "t1", Name: "Orders", Fields: []*Field{{Name: "a", Type: FieldTypeString}}},
	}}
	assert.NoError(t, p.Validate())
	assert.Same(t, p.Tables[0], p.FindTable("orders"))
	assert.Equal(t, 0, p.TableIndex("t1"))
	assert.Equal(t, -1, p.TableIndex("t2"))

	p.Tables = append(p.Tables, &Table{ID: "t2", Name: "orders"})
	assert.Error(t, p.Validate())

	p.Tables = p.Tables[:1]
	p.APIKeys = []*APIKey{{Key: "k"}}
	assert.Error(t, p.Validate())

	p.APIKeys = nil
	p.APIKey = ""
	assert.Error(t, p.Validate())
}

func TestTableValidate(t *testing.T) {
	table := &Table{Name: "x", Fields: []*Field{{Name: "a", Type: FieldTypeString}, {Name: "a", Type: FieldTypeNumber}}}
	assert.Error(t, table.Validate())
	table.Fields[1].Name = "b"
	assert.NoError(t, table.Validate())
	table.Fields[1].Type = "blob"
	assert.Error(t, table.Validate())
}

func TestTableCloneIsDeep(t *testing.T) {
	min := 1
	table := &Table{ID: "t1", Name: "x", Fields: []*Field{{
		ID: "f1", Name: "a", Type: FieldTypeString,
		Validation:    &FieldValidation{MinLength: &min, Enum: []string{"x"}},
		Relationships: []*FieldRelationship{{ID: "r1", Type: OneToOne}},
	}}}
	c := table.Clone()
	c.Fields[0].Name = "b"
	c.Fields[0].Validation.Enum[0] = "y"
	c.Fields[0].Relationships[0].Type = ManyToMany
	assert.Equal(t, "a", table.Fields[0].Name)
	assert.Equal(t, "x", table.Fields[0].Validation.Enum[0])
	assert.Equal(t, OneToOne, table.Fields[0].Relationships[0].Type)
}

func TestUserQuotas(t *testing.T) {
	u := &User{MaxProjects: 2, MaxTables: -1}
	assert.True(t, u.CanCreateProject(1))
	assert.False(t, u.CanCreateProject(2))
	assert.True(t, u.CanCreateTable(1000))
}

func TestAPIKeyPermissions(t *testing.T) {
	perms, err := ParsePermissions([]string{"read", "admin"})
	require.NoError(t, err)
	key := &APIKey{Permissions: perms, Active: true}
	assert.True(t, key.Has(PermissionDelete))
	_, err = ParsePermissions([]string{"root"})
	assert.Error(t, err)

	now := time.Now()
	past := now.Add(-time.Second)
	assert.True(t, key.Usable(now))
	key.ExpiresAt = &past
	assert.True(t, key.Expired(now))
	assert.False(t, key.Usable(now))
}

func TestPlanPrice(t *testing.T) {
	p := &PricingPlan{MonthlyPrice: 10, YearlyPrice: 100}
	assert.Equal(t, 10.0, p.Price(Monthly))
	assert.Equal(t, 100.0, p.Price(Yearly))
}
