package services

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/query"
)

const masterAdminPath = "/api-keys/master-admin"

// APIKeyInput is the body used to issue a scoped key.
type APIKeyInput struct {
	ProjectID   string             `json:"projectId"`
	Name        string             `json:"name"`
	Permissions []model.Permission `json:"permissions"`
	ExpiresAt   *time.Time         `json:"expiresAt,omitempty"`
}

// APIKeys manages the scoped keys of a project and the master admin keys.
type APIKeys struct {
	*Resource[model.APIKey]
	client *apiclient.Client
}

// ForProject returns the scoped keys of the project.
func (s *APIKeys) ForProject(ctx context.Context, projectID string) ([]*model.APIKey, error) {
	res, err := s.List(ctx, &query.Params{
		Filters: []query.Filter{{Field: "projectId", Op: query.Eq, Value: projectID}},
		Sort:    []query.Sort{{Field: "createdAt", Descending: true}},
	})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Issue creates a new key for the project.
func (s *APIKeys) Issue(ctx context.Context, input APIKeyInput) (*model.APIKey, error) {
	if input.Name == "" {
		return nil, &apiclient.ValidationError{APIError: apiclient.APIError{Status: http.StatusBadRequest, Message: "api key name is required"}, Fields: map[string][]string{"name": {"is required"}}}
	}
	if len(input.Permissions) == 0 {
		return nil, &apiclient.ValidationError{APIError: apiclient.APIError{Status: http.StatusBadRequest, Message: "at least one permission is required"}, Fields: map[string][]string{"permissions": {"is required"}}}
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now()) {
		return nil, &apiclient.ValidationError{APIError: apiclient.APIError{Status: http.StatusBadRequest, Message: "expiry must be in the future"}, Fields: map[string][]string{"expiresAt": {"must be in the future"}}}
	}
	return s.Create(ctx, input)
}

// Revoke deactivates a key. The key remains listed.
func (s *APIKeys) Revoke(ctx context.Context, id string) (*model.APIKey, error) {
	key, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key.Active = false
	return s.Update(ctx, id, key)
}

// Regenerate replaces the secret of a key keeping its permissions.
func (s *APIKeys) Regenerate(ctx context.Context, id string) (*model.APIKey, error) {
	return apiclient.PostData[*model.APIKey](ctx, s.client, "/api-keys/"+url.PathEscape(id)+"/regenerate", nil)
}

// MasterAdmin lists the master admin keys.
func (s *APIKeys) MasterAdmin(ctx context.Context) ([]*model.MasterAdminKey, error) {
	keys, err := apiclient.GetData[[]*model.MasterAdminKey](ctx, s.client, masterAdminPath, nil)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = make([]*model.MasterAdminKey, 0)
	}
	return keys, nil
}

// RevokeMasterAdmin deletes a master admin key.
func (s *APIKeys) RevokeMasterAdmin(ctx context.Context, id string) error {
	return apiclient.DeleteAt(ctx, s.client, masterAdminPath+"/"+url.PathEscape(id), nil)
}
