package session

import (
	"sync"

	"github.com/tablecraft/tablecraft/internal/model"
)

// MemoryStore is a Store which lives only as long as the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	user   *model.User
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return string(s.values[key])
}

func (s *MemoryStore) Token() string {
	return s.get(TokenKey)
}

func (s *MemoryStore) RefreshToken() string {
	return s.get(RefreshTokenKey)
}

func (s *MemoryStore) SetTokens(token, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[TokenKey] = []byte(token)
	if refreshToken == "" {
		delete(s.values, RefreshTokenKey)
	} else {
		s.values[RefreshTokenKey] = []byte(refreshToken)
	}
	return nil
}

func (s *MemoryStore) User() (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, ErrNoUser
	}
	u := *s.user
	return &u, nil
}

func (s *MemoryStore) SetUser(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.user = &u
	return nil
}

func (s *MemoryStore) Get(key string) (bool, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return ok, val, nil
}

func (s *MemoryStore) Set(key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = val
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, TokenKey)
	delete(s.values, RefreshTokenKey)
	delete(s.values, SnapshotKey)
	s.user = nil
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}
