package store

import (
	"sync"
	"testing"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/session"
)

func TestStoreDispatchAndSubscribe(t *testing.T) {
	s := New(Config{Logger: logger.NewTestLogger()})
	var got []ActionType
	unsubscribe := s.Subscribe(func(state State, action Action) {
		got = append(got, action.Type)
	})
	s.Dispatch(Action{Type: ActionAddProject, Project: &model.Project{ID: "p1"}})
	s.Dispatch(Action{Type: ActionSelectProject, ProjectID: "p1"})
	unsubscribe()
	s.Dispatch(Action{Type: ActionSelectTable, TableID: "t1"})
	assert.Equal(t, []ActionType{ActionAddProject, ActionSelectProject}, got)
	assert.Equal(t, "t1", s.State().SelectedTableID)
}

func TestStoreConcurrentDispatch(t *testing.T) {
	s := New(Config{Logger: logger.NewTestLogger()})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Dispatch(Action{Type: ActionAddProject, Project: &model.Project{ID: string(rune('a' + i%26))}})
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.State().Projects, 50)
}

func TestStoreSnapshot(t *testing.T) {
	sess := session.NewMemoryStore()
	s := New(Config{Logger: logger.NewTestLogger(), Session: sess, SaveDelay: time.Hour})
	s.Dispatch(Action{Type: ActionLogin, User: &model.User{ID: "u1", Email: "a@b.c"}})
	s.Dispatch(Action{Type: ActionSetProjects, Projects: []*model.Project{{ID: "p1", Name: "one", Tables: []*model.Table{{ID: "t1", Name: "a"}}}}})
	s.Dispatch(Action{Type: ActionSelectProject, ProjectID: "p1"})
	s.Dispatch(Action{Type: ActionSetError, Error: "transient"})

	found, _, err := sess.Get(session.SnapshotKey)
	require.NoError(t, err)
	assert.False(t, found, "writes are debounced")
	require.NoError(t, s.Close())

	restored := New(Config{Logger: logger.NewTestLogger(), Session: sess})
	state := restored.State()
	assert.True(t, state.Authenticated)
	assert.Equal(t, "u1", state.User.ID)
	assert.Equal(t, "p1", state.SelectedProjectID)
	require.Len(t, state.Projects, 1)
	assert.Equal(t, "a", state.Projects[0].Tables[0].Name)
	assert.Empty(t, state.Error)
}

func TestStoreIgnoresCorruptSnapshot(t *testing.T) {
	sess := session.NewMemoryStore()
	require.NoError(t, sess.Set(session.SnapshotKey, []byte{0xc1}))
	s := New(Config{Logger: logger.NewTestLogger(), Session: sess})
	assert.NotNil(t, s.State().Projects)
	assert.False(t, s.State().Authenticated)
}
