package domain

import (
	"strconv"
	"strings"
	"time"
)

// PendingAction tags a cached entity with the kind of unconfirmed mutation
// applied to it. The zero value means server truth.
type PendingAction string

const (
	PendingNone   PendingAction = ""
	PendingCreate PendingAction = "create"
	PendingUpdate PendingAction = "update"
	PendingDelete PendingAction = "delete"
)

// Todo represents a todo item as served by the API.
type Todo struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	IsToday     bool       `json:"is_today"`
	AreaID      *int64     `json:"area_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Local only
	Pending PendingAction `json:"-"`
}

// IsOverdue returns true if the todo is past its due date
func (t *Todo) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Completed {
		return false
	}
	dueEnd := time.Date(t.DueDate.Year(), t.DueDate.Month(), t.DueDate.Day(), 23, 59, 59, 0, t.DueDate.Location())
	return dueEnd.Before(now)
}

// InArea reports whether the todo belongs to the given area.
func (t *Todo) InArea(areaID int64) bool {
	return t.AreaID != nil && *t.AreaID == areaID
}

// TodoFilter selects a todos partition. Nil fields mean "any".
type TodoFilter struct {
	Completed *bool
	AreaID    *int64
}

// Descriptor renders the filter canonically; it doubles as the query string.
func (f TodoFilter) Descriptor() string {
	var parts []string
	if f.AreaID != nil {
		parts = append(parts, "area_id="+strconv.FormatInt(*f.AreaID, 10))
	}
	if f.Completed != nil {
		parts = append(parts, "completed="+strconv.FormatBool(*f.Completed))
	}
	return strings.Join(parts, "&")
}

// Matches reports whether todo belongs in a partition with this filter.
func (f TodoFilter) Matches(todo *Todo) bool {
	if f.Completed != nil && todo.Completed != *f.Completed {
		return false
	}
	if f.AreaID != nil && !todo.InArea(*f.AreaID) {
		return false
	}
	return true
}

// ParseTodoFilter is the inverse of Descriptor.
func ParseTodoFilter(descriptor string) TodoFilter {
	var f TodoFilter
	for _, part := range strings.Split(descriptor, "&") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch key {
		case "completed":
			if b, err := strconv.ParseBool(value); err == nil {
				f.Completed = &b
			}
		case "area_id":
			if id, err := strconv.ParseInt(value, 10, 64); err == nil {
				f.AreaID = &id
			}
		}
	}
	return f
}

// TodayFilter selects a today-view partition.
type TodayFilter struct {
	IncludeDueToday bool
	DaysAhead       int
}

// Descriptor renders the filter canonically; it doubles as the query string.
func (f TodayFilter) Descriptor() string {
	return "include_due_today=" + strconv.FormatBool(f.IncludeDueToday) +
		"&days_ahead=" + strconv.Itoa(f.DaysAhead)
}

// ParseTodayFilter is the inverse of Descriptor.
func ParseTodayFilter(descriptor string) TodayFilter {
	var f TodayFilter
	for _, part := range strings.Split(descriptor, "&") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch key {
		case "include_due_today":
			f.IncludeDueToday, _ = strconv.ParseBool(value)
		case "days_ahead":
			f.DaysAhead, _ = strconv.Atoi(value)
		}
	}
	return f
}

// TodayView is the server-computed "today" projection.
type TodayView struct {
	Today       []Todo    `json:"today"`
	DueToday    []Todo    `json:"due_today,omitempty"`
	Upcoming    []Todo    `json:"upcoming,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// CreateTodoInput is the body of POST /todos.
type CreateTodoInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AreaID      *int64     `json:"area_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsToday     bool       `json:"is_today,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// UpdateTodoInput is the body of PUT /todos/:id. Nil fields are left alone.
type UpdateTodoInput struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	IsToday     *bool      `json:"is_today,omitempty"`
	AreaID      *int64     `json:"area_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// ApplyTo patches todo in place with the non-nil fields and stamps the
// locally approximated timestamps.
func (in *UpdateTodoInput) ApplyTo(todo *Todo, now time.Time) {
	if in.Title != nil {
		todo.Title = *in.Title
	}
	if in.Description != nil {
		todo.Description = *in.Description
	}
	if in.Completed != nil && *in.Completed != todo.Completed {
		todo.Completed = *in.Completed
		if todo.Completed {
			completedAt := now
			todo.CompletedAt = &completedAt
		} else {
			todo.CompletedAt = nil
		}
	}
	if in.IsToday != nil {
		todo.IsToday = *in.IsToday
	}
	if in.AreaID != nil {
		areaID := *in.AreaID
		todo.AreaID = &areaID
	}
	if in.DueDate != nil {
		due := *in.DueDate
		todo.DueDate = &due
	}
	if in.Tags != nil {
		todo.Tags = append([]string(nil), in.Tags...)
	}
	todo.UpdatedAt = now
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to s.
func String(s string) *string { return &s }
