package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/schema"
)

func TestProjectsCreateForQuota(t *testing.T) {
	backend, svc := newFakeBackend(t)
	user := &model.User{ID: "u1", SubscriptionTier: model.TierFree, MaxProjects: 1, MaxTables: 2}
	p, err := svc.Projects.CreateFor(context.Background(), user, ProjectInput{Name: "shop"})
	require.NoError(t, err)
	assert.Equal(t, "shop", p.Name)
	assert.Equal(t, "u1", p.UserID)
	assert.NotEmpty(t, p.APIKey)
	assert.NotNil(t, p.Tables)

	_, err = svc.Projects.CreateFor(context.Background(), user, ProjectInput{Name: "second"})
	require.Error(t, err)
	assert.Equal(t, apiclient.KindValidation, apiclient.KindOf(err))
	assert.Len(t, backend.All("projects"), 1)

	unlimited := &model.User{ID: "u2", MaxProjects: -1}
	_, err = svc.Projects.CreateFor(context.Background(), unlimited, ProjectInput{Name: "other"})
	require.NoError(t, err)

	_, err = svc.Projects.CreateFor(context.Background(), nil, ProjectInput{})
	assert.Equal(t, apiclient.KindValidation, apiclient.KindOf(err))
}

func TestProjectsForUser(t *testing.T) {
	backend, svc := newFakeBackend(t)
	backend.Seed("projects",
		map[string]any{"id": "p1", "name": "a", "userId": "u1", "apiKey": "k1"},
		map[string]any{"id": "p2", "name": "b", "userId": "u2", "apiKey": "k2"},
	)
	projects, err := svc.Projects.ForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "p1", projects[0].ID)
}

func TestProjectsForUserAllPages(t *testing.T) {
	backend, svc := newFakeBackend(t)
	backend.CapPageSize(50)
	for i := 0; i < 70; i++ {
		backend.Seed("projects", map[string]any{"id": fmt.Sprintf("p%d", i), "name": "shop", "userId": "u1", "apiKey": "k"})
	}
	backend.Seed("projects", map[string]any{"id": "other", "name": "x", "userId": "u2", "apiKey": "k"})
	projects, err := svc.Projects.ForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, projects, 70)
	assert.Equal(t, "p69", projects[69].ID)
	assert.Equal(t, 2, backend.Hits("GET", "/data/projects"))
}

func TestUpdateSchema(t *testing.T) {
	backend, svc := newFakeBackend(t)
	backend.Seed("projects", map[string]any{"id": "p1", "name": "shop", "userId": "u1", "apiKey": "k1", "tables": []any{}})
	ctx := context.Background()

	p, err := svc.Projects.UpdateSchema(ctx, "p1", func(p *model.Project) error {
		if err := schema.AddTable(p, &model.Table{Name: "customers"}); err != nil {
			return err
		}
		return schema.AddField(p, "customers", &model.Field{Name: "email", Type: model.FieldTypeString, Required: true})
	})
	require.NoError(t, err)
	require.Len(t, p.Tables, 1)
	assert.Equal(t, "email", p.Tables[0].Fields[0].Name)
	assert.Equal(t, 1, backend.Hits("PUT", "/data/projects/p1"))

	fresh, err := svc.Projects.Get(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, fresh.Tables, 1)
	assert.Equal(t, "customers", fresh.Tables[0].Name)

	_, err = svc.Projects.UpdateSchema(ctx, "p1", func(p *model.Project) error {
		return schema.AddTable(p, &model.Table{Name: "Customers"})
	})
	require.Error(t, err)
	assert.Equal(t, apiclient.KindValidation, apiclient.KindOf(err))
	assert.Equal(t, 1, backend.Hits("PUT", "/data/projects/p1"), "nothing stored on failure")

	_, err = svc.Projects.UpdateSchema(ctx, "missing", func(p *model.Project) error { return nil })
	assert.Equal(t, apiclient.KindNotFound, apiclient.KindOf(err))
}

func TestSaveRejectsInvalidProject(t *testing.T) {
	backend, svc := newFakeBackend(t)
	_, err := svc.Projects.Save(context.Background(), &model.Project{ID: "p1", Name: "x"})
	var verr *apiclient.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Message, "main api key")
	assert.Equal(t, 0, backend.Hits("PUT", "/data/projects/p1"))
}

func TestCheckTableQuota(t *testing.T) {
	p := &model.Project{Tables: []*model.Table{{Name: "a"}, {Name: "b"}}}
	assert.NoError(t, CheckTableQuota(nil, p))
	assert.NoError(t, CheckTableQuota(&model.User{MaxTables: 3}, p))
	assert.Error(t, CheckTableQuota(&model.User{MaxTables: 2}, p))
	assert.NoError(t, CheckTableQuota(&model.User{MaxTables: -1}, p))
}

func TestResourceCRUD(t *testing.T) {
	backend, svc := newFakeBackend(t)
	ctx := context.Background()
	tenant, err := svc.Tenants.Create(ctx, model.Tenant{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	assert.NotEmpty(t, tenant.ID)

	tenant.Name = "Acme Inc"
	updated, err := svc.Tenants.Update(ctx, tenant.ID, tenant)
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", updated.Name)

	count, err := svc.Tenants.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.Tenants.Delete(ctx, tenant.ID))
	assert.Empty(t, backend.All("tenants"))
	_, err = svc.Tenants.Get(ctx, tenant.ID)
	assert.Equal(t, apiclient.KindNotFound, apiclient.KindOf(err))
}
