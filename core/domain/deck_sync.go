package domain

// SyncType enumerates the cross-tab notifications.
type SyncType string

const (
	SyncTodoCreated      SyncType = "TODO_CREATED"
	SyncTodoUpdated      SyncType = "TODO_UPDATED"
	SyncTodoDeleted      SyncType = "TODO_DELETED"
	SyncTodoCompleted    SyncType = "TODO_COMPLETED"
	SyncTodoUncompleted  SyncType = "TODO_UNCOMPLETED"
	SyncTodoTodayToggled SyncType = "TODO_TODAY_TOGGLED"
	SyncAreaCreated      SyncType = "AREA_CREATED"
	SyncAreaUpdated      SyncType = "AREA_UPDATED"
	SyncAreaDeleted      SyncType = "AREA_DELETED"
)

// SyncTypes lists every known type.
var SyncTypes = []SyncType{
	SyncTodoCreated, SyncTodoUpdated, SyncTodoDeleted,
	SyncTodoCompleted, SyncTodoUncompleted, SyncTodoTodayToggled,
	SyncAreaCreated, SyncAreaUpdated, SyncAreaDeleted,
}

// IsTodo reports whether t concerns todos.
func (t SyncType) IsTodo() bool {
	switch t {
	case SyncTodoCreated, SyncTodoUpdated, SyncTodoDeleted,
		SyncTodoCompleted, SyncTodoUncompleted, SyncTodoTodayToggled:
		return true
	}
	return false
}

// IsArea reports whether t concerns areas.
func (t SyncType) IsArea() bool {
	switch t {
	case SyncAreaCreated, SyncAreaUpdated, SyncAreaDeleted:
		return true
	}
	return false
}

// Valid reports whether t is one of the known types.
func (t SyncType) Valid() bool {
	return t.IsTodo() || t.IsArea()
}

// SyncData is the payload of a SyncMessage. Timestamp is unix milliseconds.
type SyncData struct {
	ID        int64 `json:"id"`
	Timestamp int64 `json:"timestamp"`
	Completed *bool `json:"completed,omitempty"`
	IsToday   *bool `json:"is_today,omitempty"`
}

// SyncMessage is broadcast between tab sessions after a successful mutation.
type SyncMessage struct {
	Type        SyncType `json:"type"`
	Data        SyncData `json:"data"`
	SourceTabID string   `json:"sourceTabId"`
}
