package store

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/session"
	"github.com/vmihailenco/msgpack/v5"
)

const DefaultSaveDelay = 250 * time.Millisecond

// Listener is called with the new state after each dispatch.
type Listener func(state State, action Action)

type Config struct {
	Logger logger.Logger
	// Session receives the snapshot; optional
	Session session.Store
	// SaveDelay debounces snapshot writes
	SaveDelay time.Duration
}

// Store serializes actions through Reduce and notifies listeners.
type Store struct {
	logger    logger.Logger
	session   session.Store
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
	saver     *Debouncer
}

// New returns a store initialized from the session snapshot when one is present.
func New(config Config) *Store {
	s := &Store{
		logger:    config.Logger.WithPrefix("[store]"),
		session:   config.Session,
		state:     State{Projects: make([]*model.Project, 0)},
		listeners: make(map[int]Listener),
	}
	delay := config.SaveDelay
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	s.saver = NewDebouncer(delay)
	if s.session != nil {
		state, err := loadSnapshot(s.session)
		if err != nil {
			s.logger.Warn("ignoring unreadable state snapshot: %s", err)
		} else if state != nil {
			s.state = *state
		}
	}
	return s
}

func loadSnapshot(sess session.Store) (*State, error) {
	found, buf, err := sess.Get(session.SnapshotKey)
	if err != nil {
		return nil, err
	}
	if !found || len(buf) == 0 {
		return nil, nil
	}
	var state State
	if err := msgpack.Unmarshal(buf, &state); err != nil {
		return nil, errors.Wrap(err, "error decoding snapshot")
	}
	if state.Projects == nil {
		state.Projects = make([]*model.Project, 0)
	}
	return &state, nil
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies the action and returns the new state.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	state := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	s.logger.Trace("dispatched %s", action.Type)
	for _, l := range listeners {
		l(state, action)
	}
	if s.session != nil {
		s.saver.Call(func() {
			if err := s.Save(); err != nil {
				s.logger.Error("error saving state snapshot: %s", err)
			}
		})
	}
	return state
}

// Subscribe registers a listener and returns a function which removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Save writes the snapshot to the session now.
func (s *Store) Save() error {
	if s.session == nil {
		return nil
	}
	state := s.State()
	buf, err := msgpack.Marshal(&state)
	if err != nil {
		return errors.Wrap(err, "error encoding snapshot")
	}
	return s.session.Set(session.SnapshotKey, buf)
}

// Close flushes any pending snapshot write.
func (s *Store) Close() error {
	s.saver.Flush()
	return nil
}
