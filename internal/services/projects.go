package services

import (
	"context"
	"net/http"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/query"
)

// ProjectInput is the body used to create a project.
type ProjectInput struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	UserID      string                 `json:"userId,omitempty"`
	Settings    *model.ProjectSettings `json:"settings,omitempty"`
	Tables      []*model.Table         `json:"tables"`
}

// Projects manages projects and, through project updates, their tables and fields.
type Projects struct {
	*Resource[model.Project]
	logger logger.Logger
}

func quotaError(msg string) error {
	return &apiclient.ValidationError{APIError: apiclient.APIError{Status: http.StatusBadRequest, Message: msg}}
}

// ForUser returns every project owned by the user, across all pages.
func (s *Projects) ForUser(ctx context.Context, userID string) ([]*model.Project, error) {
	projects := make([]*model.Project, 0)
	_, err := pageAll(ctx, &query.Params{
		Filters: []query.Filter{{Field: "userId", Op: query.Eq, Value: userID}},
	}, s.List, func(p *model.Project) error {
		projects = append(projects, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateFor creates a project for the user after checking their project quota.
func (s *Projects) CreateFor(ctx context.Context, user *model.User, input ProjectInput) (*model.Project, error) {
	if input.Name == "" {
		return nil, quotaError("project name is required")
	}
	if user != nil {
		input.UserID = user.ID
		count, err := s.Count(ctx, &query.Params{
			Filters: []query.Filter{{Field: "userId", Op: query.Eq, Value: user.ID}},
		})
		if err != nil {
			return nil, err
		}
		if !user.CanCreateProject(count) {
			return nil, quotaError("project limit reached for the " + string(user.SubscriptionTier) + " plan")
		}
	}
	if input.Tables == nil {
		input.Tables = make([]*model.Table, 0)
	}
	project, err := s.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("created project %s", project)
	return project, nil
}

// Save validates and stores the project.
func (s *Projects) Save(ctx context.Context, project *model.Project) (*model.Project, error) {
	if err := project.Validate(); err != nil {
		return nil, &apiclient.ValidationError{APIError: apiclient.APIError{Status: http.StatusBadRequest, Message: err.Error()}}
	}
	return s.Update(ctx, project.ID, project)
}

// UpdateSchema loads the project, applies fn to it and stores the result. Nothing is stored when fn fails.
func (s *Projects) UpdateSchema(ctx context.Context, projectID string, fn func(project *model.Project) error) (*model.Project, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Tables == nil {
		project.Tables = make([]*model.Table, 0)
	}
	if err := fn(project); err != nil {
		return nil, &apiclient.ValidationError{APIError: apiclient.APIError{Status: http.StatusBadRequest, Message: err.Error()}}
	}
	return s.Save(ctx, project)
}

// CheckTableQuota returns a validation error when the user cannot add another table to the project.
func CheckTableQuota(user *model.User, project *model.Project) error {
	if user != nil && !user.CanCreateTable(len(project.Tables)) {
		return quotaError("table limit reached for the " + string(user.SubscriptionTier) + " plan")
	}
	return nil
}
