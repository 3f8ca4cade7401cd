package session

import (
	"errors"
	"time"

	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/util"
)

const (
	TokenKey        = "auth_token"
	RefreshTokenKey = "refresh_token"
	UserKey         = "user"
	SnapshotKey     = "state_snapshot"
)

// ErrNoUser is returned by User when no user is cached.
var ErrNoUser = errors.New("no user in session")

// Store holds the credentials of the current session.
type Store interface {
	// Token returns the access token or empty string
	Token() string
	// RefreshToken returns the refresh token or empty string
	RefreshToken() string
	// SetTokens replaces both tokens
	SetTokens(token, refreshToken string) error
	// User returns the cached user or ErrNoUser
	User() (*model.User, error)
	// SetUser caches the user
	SetUser(user *model.User) error
	// Get returns a raw value for key
	Get(key string) (bool, []byte, error)
	// Set stores a raw value for key
	Set(key string, val []byte) error
	// Clear removes the tokens and user
	Clear() error
	// Close the store
	Close() error
}

// TokenExpired returns true if the token carries an exp claim in the past (with leeway). Tokens which
// cannot be parsed or have no exp are treated as not expired and left to the server to reject.
func TokenExpired(token string, now time.Time, leeway time.Duration) bool {
	if token == "" {
		return true
	}
	exp, ok, err := util.GetExpiryFromJWT(token)
	if err != nil || !ok {
		return false
	}
	return !exp.After(now.Add(leeway))
}
