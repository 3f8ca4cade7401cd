package services

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/util"
	"golang.org/x/sync/errgroup"
)

// Session is the result of a successful login.
type Session struct {
	User     *model.User
	Projects []*model.Project
}

// Auth logs users in and preloads what the client needs after login.
type Auth struct {
	client   *apiclient.Client
	projects *Projects
	users    *Resource[model.User]
	logger   logger.Logger
}

// Login authenticates and preloads the user's projects.
func (a *Auth) Login(ctx context.Context, creds apiclient.Credentials) (*Session, error) {
	res, err := a.client.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return a.preload(ctx, res), nil
}

// Register creates an account, which is logged in on success.
func (a *Auth) Register(ctx context.Context, reg apiclient.Registration) (*Session, error) {
	res, err := a.client.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	return a.preload(ctx, res), nil
}

// preload fetches the projects and a fresh user record in parallel. Both are best effort: failures are
// logged and leave the login result as is with an empty project list.
func (a *Auth) preload(ctx context.Context, res *apiclient.AuthResult) *Session {
	sess := &Session{User: res.User, Projects: make([]*model.Project, 0)}
	userID := ""
	if res.User != nil {
		userID = res.User.ID
	} else if sub, err := util.GetSubjectFromJWT(res.Token); err == nil {
		userID = sub
	}
	if userID == "" {
		a.logger.Warn("login response has no user, skipping project preload")
		return sess
	}
	var (
		g        errgroup.Group
		projects []*model.Project
		user     *model.User
	)
	g.Go(func() error {
		p, err := a.projects.ForUser(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "projects")
		}
		projects = p
		return nil
	})
	if res.User == nil {
		g.Go(func() error {
			u, err := a.users.Get(ctx, userID)
			if err != nil {
				return errors.Wrap(err, "user")
			}
			user = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("preload after login incomplete: %s", err)
	}
	if projects != nil {
		sess.Projects = projects
	}
	if user != nil {
		sess.User = user
		if err := a.client.Store().SetUser(user); err != nil {
			a.logger.Warn("error caching user: %s", err)
		}
	}
	return sess
}

// Logout forgets the session.
func (a *Auth) Logout() error {
	return a.client.Logout()
}

// IsAuthenticated returns true if a usable token is held.
func (a *Auth) IsAuthenticated() bool {
	return a.client.IsAuthenticated()
}

// CurrentUser returns the cached user.
func (a *Auth) CurrentUser() (*model.User, error) {
	return a.client.CurrentUser()
}
