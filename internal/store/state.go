package store

import (
	"github.com/tablecraft/tablecraft/internal/model"
)

// ActionType identifies a state transition.
type ActionType string

const (
	ActionLogin         ActionType = "LOGIN"
	ActionLogout        ActionType = "LOGOUT"
	ActionSetProjects   ActionType = "SET_PROJECTS"
	ActionAddProject    ActionType = "ADD_PROJECT"
	ActionUpdateProject ActionType = "UPDATE_PROJECT"
	ActionDeleteProject ActionType = "DELETE_PROJECT"
	ActionSelectProject ActionType = "SELECT_PROJECT"
	ActionSelectTable   ActionType = "SELECT_TABLE"
	ActionAddTable      ActionType = "ADD_TABLE"
	ActionUpdateTable   ActionType = "UPDATE_TABLE"
	ActionDeleteTable   ActionType = "DELETE_TABLE"
	ActionSetLoading    ActionType = "SET_LOADING"
	ActionSetError      ActionType = "SET_ERROR"
)

// Action is a state transition and its payload. Which members are read depends on Type.
type Action struct {
	Type      ActionType
	User      *model.User
	Projects  []*model.Project
	Project   *model.Project
	Table     *model.Table
	ProjectID string
	TableID   string
	Loading   bool
	Error     string
}

// State is the client side application state.
type State struct {
	User              *model.User      `msgpack:"user,omitempty"`
	Authenticated     bool             `msgpack:"authenticated"`
	Projects          []*model.Project `msgpack:"projects"`
	SelectedProjectID string           `msgpack:"selectedProjectId,omitempty"`
	SelectedTableID   string           `msgpack:"selectedTableId,omitempty"`
	Loading           bool             `msgpack:"-"`
	Error             string           `msgpack:"-"`
}

// SelectedProject returns the selected project or nil.
func (s State) SelectedProject() *model.Project {
	if s.SelectedProjectID == "" {
		return nil
	}
	for _, p := range s.Projects {
		if p.ID == s.SelectedProjectID {
			return p
		}
	}
	return nil
}

// SelectedTable returns the selected table of the selected project or nil.
func (s State) SelectedTable() *model.Table {
	p := s.SelectedProject()
	if p == nil || s.SelectedTableID == "" {
		return nil
	}
	return p.FindTable(s.SelectedTableID)
}

func projectIndex(projects []*model.Project, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// withProject returns a copy of projects where the project with id has been replaced by fn's result.
func withProject(projects []*model.Project, id string, fn func(p model.Project) *model.Project) []*model.Project {
	idx := projectIndex(projects, id)
	if idx < 0 {
		return projects
	}
	res := make([]*model.Project, len(projects))
	copy(res, projects)
	res[idx] = fn(*projects[idx])
	return res
}

// Reduce returns the state after applying action. The input state is never modified.
func Reduce(state State, action Action) State {
	switch action.Type {
	case ActionLogin:
		state.User = action.User
		state.Authenticated = true
		state.Error = ""
	case ActionLogout:
		return State{Projects: make([]*model.Project, 0)}
	case ActionSetProjects:
		state.Projects = append(make([]*model.Project, 0, len(action.Projects)), action.Projects...)
		if projectIndex(state.Projects, state.SelectedProjectID) < 0 {
			state.SelectedProjectID = ""
			state.SelectedTableID = ""
		}
	case ActionAddProject:
		if action.Project == nil {
			return state
		}
		projects := make([]*model.Project, 0, len(state.Projects)+1)
		projects = append(projects, state.Projects...)
		state.Projects = append(projects, action.Project)
	case ActionUpdateProject:
		if action.Project == nil {
			return state
		}
		state.Projects = withProject(state.Projects, action.Project.ID, func(model.Project) *model.Project {
			return action.Project
		})
	case ActionDeleteProject:
		idx := projectIndex(state.Projects, action.ProjectID)
		if idx < 0 {
			return state
		}
		projects := make([]*model.Project, 0, len(state.Projects)-1)
		projects = append(projects, state.Projects[:idx]...)
		state.Projects = append(projects, state.Projects[idx+1:]...)
		if state.SelectedProjectID == action.ProjectID {
			state.SelectedProjectID = ""
			state.SelectedTableID = ""
		}
	case ActionSelectProject:
		if state.SelectedProjectID != action.ProjectID {
			state.SelectedTableID = ""
		}
		state.SelectedProjectID = action.ProjectID
	case ActionSelectTable:
		state.SelectedTableID = action.TableID
	case ActionAddTable, ActionUpdateTable, ActionDeleteTable:
		projectID := action.ProjectID
		if projectID == "" {
			projectID = state.SelectedProjectID
		}
		state.Projects = withProject(state.Projects, projectID, func(p model.Project) *model.Project {
			p.Tables = reduceTables(p.Tables, action)
			return &p
		})
		if action.Type == ActionDeleteTable && projectID == state.SelectedProjectID && state.SelectedTableID == action.TableID {
			state.SelectedTableID = ""
		}
	case ActionSetLoading:
		state.Loading = action.Loading
	case ActionSetError:
		state.Error = action.Error
		state.Loading = false
	}
	return state
}

func reduceTables(tables []*model.Table, action Action) []*model.Table {
	res := make([]*model.Table, 0, len(tables)+1)
	switch action.Type {
	case ActionAddTable:
		if action.Table == nil {
			return tables
		}
		res = append(res, tables...)
		res = append(res, action.Table)
	case ActionUpdateTable:
		if action.Table == nil {
			return tables
		}
		for _, t := range tables {
			if t.ID == action.Table.ID {
				res = append(res, action.Table)
			} else {
				res = append(res, t)
			}
		}
	case ActionDeleteTable:
		for _, t := range tables {
			if t.ID != action.TableID {
				res = append(res, t)
			}
		}
	}
	return res
}
