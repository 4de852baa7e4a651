package domain

import "time"

// Area groups todos (a project).
type Area struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Pending PendingAction `json:"-"`
}

// AreaStats is served by GET /areas/:id/stats.
type AreaStats struct {
	AreaID    int64 `json:"area_id"`
	Total     int   `json:"total"`
	Completed int   `json:"completed"`
	Today     int   `json:"today"`
	Overdue   int   `json:"overdue"`
}

// AreaColor is one entry of the palette served by GET /areas/colors.
type AreaColor struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// CreateAreaInput is the body of POST /areas.
type CreateAreaInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// UpdateAreaInput is the body of PUT /areas/:id. Nil fields are left alone.
type UpdateAreaInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

// ApplyTo patches area in place.
func (in *UpdateAreaInput) ApplyTo(area *Area, now time.Time) {
	if in.Name != nil {
		area.Name = *in.Name
	}
	if in.Description != nil {
		area.Description = *in.Description
	}
	if in.Color != nil {
		area.Color = *in.Color
	}
	if in.SortOrder != nil {
		area.SortOrder = *in.SortOrder
	}
	area.UpdatedAt = now
}
