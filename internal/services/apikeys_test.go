package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
)

func TestIssueValidates(t *testing.T) {
	backend, svc := newFakeBackend(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	for name, input := range map[string]APIKeyInput{
		"missing name":        {ProjectID: "p1", Permissions: []model.Permission{model.PermissionRead}},
		"missing permissions": {ProjectID: "p1", Name: "ci"},
		"expired":             {ProjectID: "p1", Name: "ci", Permissions: []model.Permission{model.PermissionRead}, ExpiresAt: &past},
	} {
		_, err := svc.APIKeys.Issue(ctx, input)
		assert.Equal(t, apiclient.KindValidation, apiclient.KindOf(err), name)
	}
	assert.Equal(t, 0, backend.Hits("POST", "/data/api_keys"))

	future := time.Now().Add(time.Hour)
	key, err := svc.APIKeys.Issue(ctx, APIKeyInput{ProjectID: "p1", Name: "ci", Permissions: []model.Permission{model.PermissionRead, model.PermissionWrite}, ExpiresAt: &future})
	require.NoError(t, err)
	assert.Equal(t, "ci", key.Name)
	assert.True(t, key.Has(model.PermissionWrite))
	assert.False(t, key.Has(model.PermissionDelete))
}

func TestRevokeKeepsKey(t *testing.T) {
	backend, svc := newFakeBackend(t)
	backend.Seed("api_keys", map[string]any{"id": "k1", "projectId": "p1", "name": "ci", "key": "secret", "permissions": []string{"read"}, "active": true})
	key, err := svc.APIKeys.Revoke(context.Background(), "k1")
	require.NoError(t, err)
	assert.False(t, key.Active)
	keys, err := svc.APIKeys.ForProject(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.False(t, keys[0].Usable(time.Now()))
}

func TestRegenerateAndMasterAdmin(t *testing.T) {
	backend, svc := newFakeBackend(t)
	ctx := context.Background()
	key, err := svc.APIKeys.Regenerate(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "regenerated", key.Key)
	assert.Equal(t, 1, backend.Hits("POST", "/api-keys/k1/regenerate"))

	keys, err := svc.APIKeys.MasterAdmin(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "tc_live", keys[0].KeyPrefix)
}

func TestRevokeMasterAdmin(t *testing.T) {
	_, svc := newFakeBackend(t)
	require.NoError(t, svc.APIKeys.RevokeMasterAdmin(context.Background(), "m1"))
	err := svc.APIKeys.RevokeMasterAdmin(context.Background(), "last")
	require.Error(t, err)
	assert.Equal(t, "cannot delete the last master admin key", apiclient.Message(err))
}
