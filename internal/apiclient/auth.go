package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tablecraft/tablecraft/internal"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/session"
)

const refreshTimeout = 30 * time.Second

// Credentials are used to login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is used to create a new account.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AuthResult is the result of a login, register or refresh.
type AuthResult struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user,omitempty"`
}

// unwrapData decodes either a bare payload or a {success, data} envelope into out.
func unwrapData(raw json.RawMessage, out any) error {
	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Success != nil {
		if !*env.Success {
			return &APIError{Status: http.StatusOK, Message: env.Message}
		}
		if len(env.Data) > 0 {
			raw = env.Data
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Status: http.StatusOK, Message: "invalid response: " + err.Error()}
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*AuthResult, error) {
	var raw json.RawMessage
	if err := c.Post(ctx, path, body, &RequestOptions{SkipAuth: true, SkipRefresh: true}, &raw); err != nil {
		return nil, err
	}
	var res AuthResult
	if err := unwrapData(raw, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, &APIError{Status: http.StatusOK, Message: "response is missing the token"}
	}
	if err := c.store.SetTokens(res.Token, res.RefreshToken); err != nil {
		return nil, errors.Wrap(err, "error saving tokens")
	}
	if res.User != nil {
		if err := c.store.SetUser(res.User); err != nil {
			return nil, errors.Wrap(err, "error saving user")
		}
	}
	return &res, nil
}

// Login authenticates with email and password and stores the tokens.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Register creates a new account and stores the tokens.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", reg)
}

// Refresh exchanges the stored refresh token for a new token pair. Concurrent callers share one backend call.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.refreshToken(ctx, c.store.Token())
}

// refreshToken refreshes the session unless the token has already moved on from staleToken,
// in which case the current token is returned without calling the backend.
func (c *Client) refreshToken(ctx context.Context, staleToken string) (string, error) {
	val, err, shared := c.refresh.Do("refresh", func() (any, error) {
		if current := c.store.Token(); current != "" && current != staleToken {
			return current, nil
		}
		refreshToken := c.store.RefreshToken()
		if refreshToken == "" {
			return "", &AuthenticationError{APIError{Status: http.StatusUnauthorized, Message: "no refresh token"}}
		}
		// the refresh outlives a single caller cancelling since other callers may be waiting on it
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		var raw json.RawMessage
		err := c.doWithRetry(rctx, http.MethodPost, refreshPath, mustJSON(map[string]string{"refreshToken": refreshToken}), &RequestOptions{SkipAuth: true, SkipRefresh: true}, "", &raw)
		if err == nil {
			var res AuthResult
			if err = unwrapData(raw, &res); err == nil && res.Token == "" {
				err = &APIError{Status: http.StatusOK, Message: "response is missing the token"}
			}
			if err == nil {
				if res.RefreshToken == "" {
					res.RefreshToken = refreshToken
				}
				if err := c.store.SetTokens(res.Token, res.RefreshToken); err != nil {
					return "", errors.Wrap(err, "error saving tokens")
				}
				internal.TotalRefreshes.WithLabelValues("success").Inc()
				c.logger.Debug("token refreshed")
				return res.Token, nil
			}
		}
		internal.TotalRefreshes.WithLabelValues("failure").Inc()
		c.clearSession()
		return "", err
	})
	if shared {
		c.logger.Trace("joined in-flight token refresh")
	}
	if err != nil {
		return "", err
	}
	return val.(string), nil
}

func mustJSON(v any) []byte {
	buf, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return buf
}

// Logout forgets the session.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// IsAuthenticated returns true if a token is held which is either still valid or renewable.
func (c *Client) IsAuthenticated() bool {
	token := c.store.Token()
	if token == "" {
		return false
	}
	if c.store.RefreshToken() != "" {
		return true
	}
	return !session.TokenExpired(token, time.Now(), 0)
}

// CurrentUser returns the user cached at login.
func (c *Client) CurrentUser() (*model.User, error) {
	return c.store.User()
}
