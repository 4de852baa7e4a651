package mutation

import "taskdeck/core/domain"

// Cached values are shared with snapshots, so every helper here returns a
// fresh slice and never writes through the input.

func todoID(t *domain.Todo) int64 { return t.ID }
func areaID(a *domain.Area) int64 { return a.ID }

func indexOf[T any](list []T, id int64, idOf func(*T) int64) int {
	for i := range list {
		if idOf(&list[i]) == id {
			return i
		}
	}
	return -1
}

// patch returns a copy of list with the element id replaced by fn(element).
func patch[T any](list []T, id int64, idOf func(*T) int64, fn func(T) T) ([]T, bool) {
	i := indexOf(list, id, idOf)
	if i < 0 {
		return list, false
	}
	next := make([]T, len(list))
	copy(next, list)
	next[i] = fn(next[i])
	return next, true
}

// remove returns a copy of list without the element id.
func remove[T any](list []T, id int64, idOf func(*T) int64) ([]T, bool) {
	i := indexOf(list, id, idOf)
	if i < 0 {
		return list, false
	}
	next := make([]T, 0, len(list)-1)
	next = append(next, list[:i]...)
	return append(next, list[i+1:]...), true
}

// prepend returns a copy of list with item in front.
func prepend[T any](list []T, item T) []T {
	next := make([]T, 0, len(list)+1)
	next = append(next, item)
	return append(next, list...)
}

// findTodo looks id up in every cached todos and today partition.
func findTodo(values []any, id int64) (domain.Todo, bool) {
	for _, v := range values {
		switch val := v.(type) {
		case []domain.Todo:
			if i := indexOf(val, id, todoID); i >= 0 {
				return val[i], true
			}
		case *domain.TodayView:
			for _, list := range [][]domain.Todo{val.Today, val.DueToday, val.Upcoming} {
				if i := indexOf(list, id, todoID); i >= 0 {
					return list[i], true
				}
			}
		}
	}
	return domain.Todo{}, false
}

// patchTodayView applies fn to id in every list of view. The view is copied
// only when something changed.
func patchTodayView(view *domain.TodayView, id int64, fn func(domain.Todo) domain.Todo) (*domain.TodayView, bool) {
	today, a := patch(view.Today, id, todoID, fn)
	dueToday, b := patch(view.DueToday, id, todoID, fn)
	upcoming, c := patch(view.Upcoming, id, todoID, fn)
	if !a && !b && !c {
		return view, false
	}
	next := *view
	next.Today, next.DueToday, next.Upcoming = today, dueToday, upcoming
	return &next, true
}

// removeFromTodayView drops id from every list of view.
func removeFromTodayView(view *domain.TodayView, id int64) (*domain.TodayView, bool) {
	today, a := remove(view.Today, id, todoID)
	dueToday, b := remove(view.DueToday, id, todoID)
	upcoming, c := remove(view.Upcoming, id, todoID)
	if !a && !b && !c {
		return view, false
	}
	next := *view
	next.Today, next.DueToday, next.Upcoming = today, dueToday, upcoming
	return &next, true
}
