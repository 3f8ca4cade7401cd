package session

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tidwall/buntdb"
	"github.com/vmihailenco/msgpack/v5"
)

type DBConfig struct {
	Logger logger.Logger
	Dir    string
}

// DBStore is a Store persisted in a buntdb file in the data directory.
type DBStore struct {
	logger logger.Logger
	db     *buntdb.DB
	once   sync.Once
}

var _ Store = (*DBStore)(nil)

// Close will close the store and the underlying database.
func (s *DBStore) Close() error {
	s.logger.Trace("closing")
	s.once.Do(func() {
		s.db.Shrink()
		s.db.Close()
	})
	s.logger.Trace("closed")
	return nil
}

func (s *DBStore) getKey(key string) (bool, string, error) {
	var value string
	var found bool
	err := s.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(key, false)
		if err != nil {
			if err == buntdb.ErrNotFound {
				return nil
			}
			return err
		}
		value = val
		found = true
		return nil
	})
	if err != nil {
		return found, "", fmt.Errorf("failed to get key: %w", err)
	}
	return found, value, nil
}

func (s *DBStore) getString(key string) string {
	_, val, err := s.getKey(key)
	if err != nil {
		s.logger.Error("error reading %s: %s", key, err)
	}
	return val
}

// Token returns the access token.
func (s *DBStore) Token() string {
	return s.getString(TokenKey)
}

// RefreshToken returns the refresh token.
func (s *DBStore) RefreshToken() string {
	return s.getString(RefreshTokenKey)
}

// SetTokens will set both tokens in a single transaction. An empty refresh token removes the stored one.
func (s *DBStore) SetTokens(token, refreshToken string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(TokenKey, token, nil); err != nil {
			return err
		}
		if refreshToken == "" {
			if _, err := tx.Delete(RefreshTokenKey); err != nil && err != buntdb.ErrNotFound {
				return err
			}
			return nil
		}
		_, _, err := tx.Set(RefreshTokenKey, refreshToken, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set tokens: %w", err)
	}
	return nil
}

// User returns the cached user.
func (s *DBStore) User() (*model.User, error) {
	found, val, err := s.Get(UserKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoUser
	}
	var user model.User
	if err := msgpack.Unmarshal(val, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// SetUser caches the user.
func (s *DBStore) SetUser(user *model.User) error {
	buf, err := msgpack.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	return s.Set(UserKey, buf)
}

// Get will return the raw value of the key.
func (s *DBStore) Get(key string) (bool, []byte, error) {
	found, val, err := s.getKey(key)
	if err != nil || !found {
		return found, nil, err
	}
	return true, []byte(val), nil
}

// Set will set the key to the value in the database.
func (s *DBStore) Set(key string, val []byte) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(val), nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Clear removes the tokens and user but keeps other keys.
func (s *DBStore) Clear() error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		for _, key := range []string{TokenKey, RefreshTokenKey, UserKey, SnapshotKey} {
			if _, err := tx.Delete(key); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
}

// FilenameFromDir returns the filename for the session database based on a specific directory.
func FilenameFromDir(dir string) string {
	return filepath.Join(dir, "tablecraft-session.db")
}

// NewDBStore will open (or create) the session database in the configured directory.
func NewDBStore(config DBConfig) (*DBStore, error) {
	db, err := buntdb.Open(FilenameFromDir(config.Dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	var dbcfg buntdb.Config
	if err := db.ReadConfig(&dbcfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read db config: %w", err)
	}
	dbcfg.SyncPolicy = buntdb.Always
	if err := db.SetConfig(dbcfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set db config: %w", err)
	}
	return &DBStore{
		db:     db,
		logger: config.Logger.WithPrefix("[session]"),
	}, nil
}
